package quiz

import (
	"context"
	"fmt"
)

type ScopeKind int

const (
	ScopeBlock ScopeKind = iota + 1
	ScopeLesson
)

func (k ScopeKind) String() string {
	switch k {
	case ScopeBlock:
		return "block"
	case ScopeLesson:
		return "lesson"
	default:
		return fmt.Sprintf("ScopeKind(%d)", int(k))
	}
}

// Scope is the unit a quiz sequence runs over: one lesson block or a whole
// lesson.
type Scope struct {
	Kind ScopeKind
	ID   string
}

func BlockScope(blockID string) Scope {
	return Scope{Kind: ScopeBlock, ID: blockID}
}

func LessonScope(lessonID string) Scope {
	return Scope{Kind: ScopeLesson, ID: lessonID}
}

func (s Scope) String() string {
	return s.Kind.String() + ":" + s.ID
}

// QuestionSource hands out the next question of a scope. ok is false once the
// scope is exhausted. Every successful call advances the server-side position,
// so callers must not retry blindly after an ambiguous failure.
type QuestionSource interface {
	FetchNext(ctx context.Context, scope Scope) (question Question, ok bool, err error)
}

// AnswerVerifier checks answers. SubmitFull grades a whole answer and advances
// the server position; SubmitPair checks one progressive-matching pair and
// does not.
type AnswerVerifier interface {
	SubmitFull(ctx context.Context, questionID string, answer map[string]string) (bool, error)
	SubmitPair(ctx context.Context, questionID string, pair Pair) (bool, error)
}
