package seed

import (
	"context"
	"fmt"
	"html"
	"math/rand"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"lesson-quiz/internal/lesson"
	"lesson-quiz/internal/opentdb"
	"lesson-quiz/internal/quiz"
)

// TriviaSource fetches raw OpenTDB questions.
type TriviaSource interface {
	Fetch(ctx context.Context, q opentdb.Query) ([]opentdb.RawQuestion, error)
}

// TriviaTarget is where imported trivia lands. A zero BlockID attaches the
// questions to the lesson test.
type TriviaTarget struct {
	LessonID int64
	BlockID  int64
}

// ImportTrivia fetches one batch per query concurrently, converts every
// multiple/boolean question and stores them under target in query order.
func (l *Loader) ImportTrivia(ctx context.Context, source TriviaSource, target TriviaTarget, queries ...opentdb.Query) (int, error) {
	if target.LessonID <= 0 {
		return 0, fmt.Errorf("trivia target needs a lesson id")
	}
	if len(queries) == 0 {
		queries = []opentdb.Query{{}}
	}

	batches := make([][]opentdb.RawQuestion, len(queries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(2)
	for i, q := range queries {
		g.Go(func() error {
			raw, err := source.Fetch(gctx, q)
			if err != nil {
				return fmt.Errorf("fetch batch %d: %w", i+1, err)
			}
			batches[i] = raw
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	var questions []lesson.TestQuestion
	for _, batch := range batches {
		for _, raw := range batch {
			question, err := ConvertTrivia(raw, nil)
			if err == nil {
				question.ID = uuid.NewString()
				err = question.Validate()
			}
			if err != nil {
				l.log.Warn("trivia question skipped", "question", raw.Question, "error", err)
				continue
			}
			question.LessonID = target.LessonID
			question.BlockID = target.BlockID
			question.Position = len(questions) + 1
			questions = append(questions, question)
		}
	}
	if len(questions) == 0 {
		return 0, nil
	}
	if err := l.store.ImportQuestions(ctx, questions); err != nil {
		return 0, err
	}
	l.log.Info("trivia imported", "lesson", target.LessonID, "block", target.BlockID, "questions", len(questions))
	return len(questions), nil
}

// ConvertTrivia turns an OpenTDB question into a test question. Multiple
// choice answers are shuffled and lettered A, B, C...; boolean questions
// always list True before False.
func ConvertTrivia(raw opentdb.RawQuestion, shuffle func(n int, swap func(i, j int))) (lesson.TestQuestion, error) {
	if shuffle == nil {
		shuffle = rand.Shuffle
	}
	text := html.UnescapeString(strings.TrimSpace(raw.Question))
	correct := html.UnescapeString(strings.TrimSpace(raw.CorrectAnswer))

	var question lesson.TestQuestion
	switch raw.Type {
	case opentdb.TypeBoolean:
		items := []quiz.Item{{Key: "true", Value: "True"}, {Key: "false", Value: "False"}}
		key := strings.ToLower(correct)
		if key != "true" && key != "false" {
			return lesson.TestQuestion{}, fmt.Errorf("boolean answer %q", raw.CorrectAnswer)
		}
		question = lesson.TestQuestion{Type: quiz.TrueFalse, Items: items, Answer: lesson.ChoiceAnswer(items, key)}

	case opentdb.TypeMultiple:
		type choice struct {
			text      string
			isCorrect bool
		}
		choices := make([]choice, 0, len(raw.IncorrectAnswers)+1)
		for _, incorrect := range raw.IncorrectAnswers {
			choices = append(choices, choice{text: html.UnescapeString(incorrect)})
		}
		choices = append(choices, choice{text: correct, isCorrect: true})
		shuffle(len(choices), func(i, j int) {
			choices[i], choices[j] = choices[j], choices[i]
		})

		items := make([]quiz.Item, len(choices))
		correctKey := ""
		for idx, candidate := range choices {
			letter := string(rune('A' + idx))
			items[idx] = quiz.Item{Key: letter, Value: candidate.text}
			if candidate.isCorrect {
				correctKey = letter
			}
		}
		question = lesson.TestQuestion{Type: quiz.SingleChoice, Items: items, Answer: lesson.ChoiceAnswer(items, correctKey)}

	default:
		return lesson.TestQuestion{}, fmt.Errorf("unsupported trivia type %q", raw.Type)
	}

	question.Text = text
	return question, nil
}
