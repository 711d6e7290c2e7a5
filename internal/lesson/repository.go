package lesson

import (
	"context"
	"errors"
	"time"

	"lesson-quiz/internal/quiz"
)

var (
	ErrLessonNotFound   = errors.New("lesson not found")
	ErrBlockNotFound    = errors.New("block not found")
	ErrQuestionNotFound = errors.New("question not found")
	ErrLessonLocked     = errors.New("lesson is locked")
	ErrInvalidScope     = errors.New("invalid test scope")
)

// Attempt is one graded answer. Full attempts move the learner past the
// question in Scope; pair attempts only record the check.
type Attempt struct {
	UserID      int64
	QuestionID  string
	Scope       quiz.Scope
	Full        bool
	Correct     bool
	SubmittedAt time.Time
}

type LessonRepository interface {
	// ListLessons returns lessons without blocks, ordered by OrderIndex.
	ListLessons(ctx context.Context) ([]Lesson, error)
	// GetLesson returns the lesson with blocks and items in display order.
	GetLesson(ctx context.Context, lessonID int64) (Lesson, error)
	BlockLesson(ctx context.Context, blockID int64) (int64, error)
	SaveLesson(ctx context.Context, lesson Lesson) (Lesson, error)
}

type QuestionRepository interface {
	// ScopeQuestions returns the questions of a scope in position order. A
	// lesson scope covers every question of the lesson, including block ones.
	ScopeQuestions(ctx context.Context, scope quiz.Scope) ([]TestQuestion, error)
	GetQuestion(ctx context.Context, questionID string) (TestQuestion, error)
	SaveQuestions(ctx context.Context, questions []TestQuestion) error
}

type ProgressRepository interface {
	ActiveScope(ctx context.Context, userID int64) (quiz.Scope, bool, error)
	SetActiveScope(ctx context.Context, userID int64, scope quiz.Scope) error
	AnsweredQuestions(ctx context.Context, userID int64, scope quiz.Scope) (map[string]bool, error)
	RecordAttempt(ctx context.Context, attempt Attempt) error
	ResetScope(ctx context.Context, userID int64, scope quiz.Scope) error
	CompletedLessons(ctx context.Context, userID int64) (map[int64]bool, error)
	MarkLessonCompleted(ctx context.Context, userID, lessonID int64, at time.Time) error
}
