package lesson

import (
	"context"

	"lesson-quiz/internal/quiz"
)

// Question lists change only through ImportQuestions, so they are cached per
// scope and dropped wholesale on import.

func (s *Service) scopeQuestions(ctx context.Context, scope quiz.Scope) ([]TestQuestion, error) {
	s.cacheMu.RLock()
	cached, ok := s.scopeCache[scope]
	s.cacheMu.RUnlock()
	if ok {
		return cached, nil
	}

	questions, err := s.questions.ScopeQuestions(ctx, scope)
	if err != nil {
		return nil, err
	}

	s.cacheMu.Lock()
	s.scopeCache[scope] = questions
	for _, question := range questions {
		s.questionCache[question.ID] = question
	}
	s.cacheMu.Unlock()
	return questions, nil
}

func (s *Service) question(ctx context.Context, questionID string) (TestQuestion, error) {
	s.cacheMu.RLock()
	cached, ok := s.questionCache[questionID]
	s.cacheMu.RUnlock()
	if ok {
		return cached, nil
	}

	question, err := s.questions.GetQuestion(ctx, questionID)
	if err != nil {
		return TestQuestion{}, err
	}

	s.cacheMu.Lock()
	s.questionCache[question.ID] = question
	s.cacheMu.Unlock()
	return question, nil
}

func (s *Service) invalidateQuestions() {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.scopeCache = make(map[quiz.Scope][]TestQuestion)
	s.questionCache = make(map[string]TestQuestion)
}
