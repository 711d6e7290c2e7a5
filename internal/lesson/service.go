package lesson

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"lesson-quiz/internal/quiz"
)

type Service struct {
	lessons   LessonRepository
	questions QuestionRepository
	progress  ProgressRepository

	shuffle shuffleFunc
	now     func() time.Time

	cacheMu       sync.RWMutex
	scopeCache    map[quiz.Scope][]TestQuestion
	questionCache map[string]TestQuestion
}

func NewService(lessons LessonRepository, questions QuestionRepository, progress ProgressRepository) *Service {
	return &Service{
		lessons:       lessons,
		questions:     questions,
		progress:      progress,
		now:           func() time.Time { return time.Now().UTC() },
		scopeCache:    make(map[quiz.Scope][]TestQuestion),
		questionCache: make(map[string]TestQuestion),
	}
}

// ListLessons returns the catalog with per-user status: completed lessons are
// COMPLETED, the first lesson not yet completed is ACTIVE, the rest LOCKED.
func (s *Service) ListLessons(ctx context.Context, userID int64) ([]Lesson, error) {
	lessons, err := s.lessons.ListLessons(ctx)
	if err != nil {
		return nil, err
	}
	completed, err := s.progress.CompletedLessons(ctx, userID)
	if err != nil {
		return nil, err
	}
	applyStatuses(lessons, completed)
	return lessons, nil
}

func (s *Service) GetLesson(ctx context.Context, userID, lessonID int64) (Lesson, error) {
	lesson, err := s.lessons.GetLesson(ctx, lessonID)
	if err != nil {
		return Lesson{}, err
	}
	status, err := s.lessonStatus(ctx, userID, lessonID)
	if err != nil {
		return Lesson{}, err
	}
	lesson.Status = status
	return lesson, nil
}

// CompleteLesson marks the lesson completed and clears the test position of
// the lesson and of each of its blocks, so every test starts from the first
// question again.
func (s *Service) CompleteLesson(ctx context.Context, userID, lessonID int64) error {
	status, err := s.lessonStatus(ctx, userID, lessonID)
	if err != nil {
		return err
	}
	if status == StatusLocked {
		return ErrLessonLocked
	}
	lesson, err := s.lessons.GetLesson(ctx, lessonID)
	if err != nil {
		return err
	}
	if err := s.progress.MarkLessonCompleted(ctx, userID, lessonID, s.now()); err != nil {
		return err
	}
	scopes := []quiz.Scope{quiz.LessonScope(strconv.FormatInt(lessonID, 10))}
	for _, block := range lesson.Blocks {
		scopes = append(scopes, quiz.BlockScope(strconv.FormatInt(block.ID, 10)))
	}
	for _, scope := range scopes {
		if err := s.progress.ResetScope(ctx, userID, scope); err != nil {
			return fmt.Errorf("reset %s %s: %w", scope.Kind, scope.ID, err)
		}
	}
	return nil
}

// NextQuestion returns the first question of scope the user has not answered
// yet. ok is false once every question of the scope is answered; that reply
// ends the run and clears the scope, so the next run starts from question 1.
func (s *Service) NextQuestion(ctx context.Context, userID int64, scope quiz.Scope) (PublicQuestion, bool, error) {
	lessonID, err := s.scopeLesson(ctx, scope)
	if err != nil {
		return PublicQuestion{}, false, err
	}
	status, err := s.lessonStatus(ctx, userID, lessonID)
	if err != nil {
		return PublicQuestion{}, false, err
	}
	if status == StatusLocked {
		return PublicQuestion{}, false, ErrLessonLocked
	}

	questions, err := s.scopeQuestions(ctx, scope)
	if err != nil {
		return PublicQuestion{}, false, err
	}
	answered, err := s.progress.AnsweredQuestions(ctx, userID, scope)
	if err != nil {
		return PublicQuestion{}, false, err
	}
	if err := s.progress.SetActiveScope(ctx, userID, scope); err != nil {
		return PublicQuestion{}, false, err
	}

	for _, question := range questions {
		if !answered[question.ID] {
			return question.Public(s.shuffle), true, nil
		}
	}
	if len(answered) > 0 {
		if err := s.progress.ResetScope(ctx, userID, scope); err != nil {
			return PublicQuestion{}, false, err
		}
	}
	return PublicQuestion{}, false, nil
}

// CheckAnswer grades a complete answer and moves the user past the question
// whether or not it was right.
func (s *Service) CheckAnswer(ctx context.Context, userID int64, questionID string, selected map[string]string) (bool, error) {
	question, err := s.question(ctx, questionID)
	if err != nil {
		return false, err
	}
	correct := question.Grade(selected)
	attempt := Attempt{
		UserID:      userID,
		QuestionID:  question.ID,
		Scope:       s.attemptScope(ctx, userID, question),
		Full:        true,
		Correct:     correct,
		SubmittedAt: s.now(),
	}
	if err := s.progress.RecordAttempt(ctx, attempt); err != nil {
		return false, err
	}
	return correct, nil
}

// CheckPair grades one pair of a matching question. Position does not move.
func (s *Service) CheckPair(ctx context.Context, userID int64, questionID string, pair quiz.Pair) (bool, error) {
	question, err := s.question(ctx, questionID)
	if err != nil {
		return false, err
	}
	correct := question.GradePair(pair)
	attempt := Attempt{
		UserID:      userID,
		QuestionID:  question.ID,
		Scope:       s.attemptScope(ctx, userID, question),
		Correct:     correct,
		SubmittedAt: s.now(),
	}
	if err := s.progress.RecordAttempt(ctx, attempt); err != nil {
		return false, err
	}
	return correct, nil
}

// ImportLesson stores a lesson with its questions. Questions without an id
// get a fresh one; block questions are bound to the saved block ids by the
// block's position in the lesson.
func (s *Service) ImportLesson(ctx context.Context, lesson Lesson, questions []TestQuestion, blockOf []int) (Lesson, error) {
	saved, err := s.lessons.SaveLesson(ctx, lesson)
	if err != nil {
		return Lesson{}, err
	}
	for i := range questions {
		questions[i].LessonID = saved.ID
		if i < len(blockOf) && blockOf[i] >= 0 {
			if blockOf[i] >= len(saved.Blocks) {
				return Lesson{}, fmt.Errorf("question %d refers to missing block %d", i+1, blockOf[i]+1)
			}
			questions[i].BlockID = saved.Blocks[blockOf[i]].ID
		}
	}
	if err := s.ImportQuestions(ctx, questions); err != nil {
		return Lesson{}, err
	}
	return saved, nil
}

func (s *Service) ImportQuestions(ctx context.Context, questions []TestQuestion) error {
	for i := range questions {
		if strings.TrimSpace(questions[i].ID) == "" {
			questions[i].ID = uuid.NewString()
		}
		if err := questions[i].Validate(); err != nil {
			return err
		}
	}
	if err := s.questions.SaveQuestions(ctx, questions); err != nil {
		return err
	}
	s.invalidateQuestions()
	return nil
}

func (s *Service) lessonStatus(ctx context.Context, userID, lessonID int64) (Status, error) {
	lessons, err := s.lessons.ListLessons(ctx)
	if err != nil {
		return "", err
	}
	completed, err := s.progress.CompletedLessons(ctx, userID)
	if err != nil {
		return "", err
	}
	applyStatuses(lessons, completed)
	for _, lesson := range lessons {
		if lesson.ID == lessonID {
			return lesson.Status, nil
		}
	}
	return "", ErrLessonNotFound
}

func (s *Service) scopeLesson(ctx context.Context, scope quiz.Scope) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(scope.ID), 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidScope
	}
	switch scope.Kind {
	case quiz.ScopeLesson:
		return id, nil
	case quiz.ScopeBlock:
		return s.lessons.BlockLesson(ctx, id)
	default:
		return 0, ErrInvalidScope
	}
}

// attemptScope is the scope the user last fetched from when it contains the
// question, otherwise the question's own scope.
func (s *Service) attemptScope(ctx context.Context, userID int64, question TestQuestion) quiz.Scope {
	active, ok, err := s.progress.ActiveScope(ctx, userID)
	if err != nil || !ok {
		return question.Scope()
	}
	switch active.Kind {
	case quiz.ScopeLesson:
		if active.ID == strconv.FormatInt(question.LessonID, 10) {
			return active
		}
	case quiz.ScopeBlock:
		if active.ID == strconv.FormatInt(question.BlockID, 10) {
			return active
		}
	}
	return question.Scope()
}

func applyStatuses(lessons []Lesson, completed map[int64]bool) {
	activeAssigned := false
	for i := range lessons {
		switch {
		case completed[lessons[i].ID]:
			lessons[i].Status = StatusCompleted
		case !activeAssigned:
			lessons[i].Status = StatusActive
			activeAssigned = true
		default:
			lessons[i].Status = StatusLocked
		}
	}
}

// IsNotFound reports whether err means a lesson, block or question does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrLessonNotFound) || errors.Is(err, ErrBlockNotFound) || errors.Is(err, ErrQuestionNotFound)
}
