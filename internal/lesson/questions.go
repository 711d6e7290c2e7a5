package lesson

import (
	"fmt"
	"math/rand"
	"strconv"

	"lesson-quiz/internal/quiz"
)

type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusCompleted Status = "COMPLETED"
	StatusLocked    Status = "LOCKED"
)

type BlockType string

const (
	BlockText  BlockType = "TEXT"
	BlockImage BlockType = "IMAGE"
	BlockVideo BlockType = "VIDEO"
)

type Lesson struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	OrderIndex  int     `json:"orderIndex"`
	Status      Status  `json:"lessonStatus,omitempty"`
	Blocks      []Block `json:"blocks,omitempty"`
}

type Block struct {
	ID         int64       `json:"id"`
	LessonID   int64       `json:"lessonId"`
	Type       BlockType   `json:"type"`
	OrderIndex int         `json:"orderIndex"`
	HasTest    bool        `json:"hasTest"`
	Items      []BlockItem `json:"items"`
}

type BlockItem struct {
	ID         int64  `json:"id"`
	ItemType   string `json:"itemType"`
	Content    string `json:"content,omitempty"`
	MediaURL   string `json:"mediaUrl,omitempty"`
	OrderIndex int    `json:"orderIndex"`
}

// TestQuestion is a stored question together with its answer key. Items
// hold the candidate answers for choice questions and the correct pairs for
// matching questions; Answer maps each key that must be sent to its value.
type TestQuestion struct {
	ID       string
	LessonID int64
	BlockID  int64
	Position int
	Type     quiz.QuestionType
	Text     string
	MediaURL string
	Items    []quiz.Item
	Answer   map[string]string
}

// PublicQuestion is what a learner receives. It never carries the answer key.
type PublicQuestion struct {
	ID       string      `json:"id"`
	Type     string      `json:"type"`
	Text     string      `json:"text"`
	MediaURL string      `json:"mediaUrl,omitempty"`
	Items    []quiz.Item `json:"items"`
}

// Validate checks the question the same way the client will and makes sure
// the answer key refers to real items.
func (q TestQuestion) Validate() error {
	if err := q.quizQuestion().Validate(); err != nil {
		return err
	}
	if len(q.Answer) == 0 {
		return fmt.Errorf("%w: question %q has no answer", quiz.ErrMalformedQuestion, q.ID)
	}
	lookup := make(map[string]string, len(q.Items))
	for _, item := range q.Items {
		lookup[item.Key] = item.Value
	}
	for key, value := range q.Answer {
		if lookup[key] != value {
			return fmt.Errorf("%w: answer %s=%s of question %q is not an item", quiz.ErrMalformedQuestion, key, value, q.ID)
		}
	}
	switch q.Type {
	case quiz.SingleChoice, quiz.TrueFalse:
		if len(q.Answer) != 1 {
			return fmt.Errorf("%w: choice question %q needs exactly one answer", quiz.ErrMalformedQuestion, q.ID)
		}
	case quiz.Match, quiz.MatchProgressive:
		if len(q.Answer) != len(q.Items) {
			return fmt.Errorf("%w: matching question %q must pair every key", quiz.ErrMalformedQuestion, q.ID)
		}
	}
	return nil
}

func (q TestQuestion) quizQuestion() quiz.Question {
	return quiz.Question{ID: q.ID, Type: q.Type, Text: q.Text, MediaURL: q.MediaURL, Items: q.Items}
}

func (q TestQuestion) Scope() quiz.Scope {
	if q.BlockID != 0 {
		return quiz.BlockScope(strconv.FormatInt(q.BlockID, 10))
	}
	return quiz.LessonScope(strconv.FormatInt(q.LessonID, 10))
}

type shuffleFunc func(n int, swap func(i, j int))

// Public projects the question for a learner. Matching questions get their
// right-hand column shuffled so item order does not give the answer away.
func (q TestQuestion) Public(shuffle shuffleFunc) PublicQuestion {
	items := append([]quiz.Item(nil), q.Items...)
	if q.Type == quiz.Match || q.Type == quiz.MatchProgressive {
		values := make([]string, len(items))
		for i, item := range items {
			values[i] = item.Value
		}
		if shuffle == nil {
			shuffle = rand.Shuffle
		}
		shuffle(len(values), func(i, j int) { values[i], values[j] = values[j], values[i] })
		for i := range items {
			items[i].Value = values[i]
		}
	}
	return PublicQuestion{
		ID:       q.ID,
		Type:     q.Type.String(),
		Text:     q.Text,
		MediaURL: q.MediaURL,
		Items:    items,
	}
}

// Grade reports whether selected is exactly the answer key.
func (q TestQuestion) Grade(selected map[string]string) bool {
	if len(selected) != len(q.Answer) {
		return false
	}
	for key, value := range q.Answer {
		if got, ok := selected[key]; !ok || got != value {
			return false
		}
	}
	return true
}

// GradePair checks one pair of a matching question.
func (q TestQuestion) GradePair(pair quiz.Pair) bool {
	want, ok := q.Answer[pair.Key]
	return ok && want == pair.Value
}

// ChoiceAnswer builds the answer key of a choice question whose correct
// option has key correctKey.
func ChoiceAnswer(items []quiz.Item, correctKey string) map[string]string {
	for _, item := range items {
		if item.Key == correctKey {
			return map[string]string{item.Key: item.Value}
		}
	}
	return map[string]string{}
}

// PairsAnswer builds the answer key of a matching question from its items.
func PairsAnswer(items []quiz.Item) map[string]string {
	out := make(map[string]string, len(items))
	for _, item := range items {
		out[item.Key] = item.Value
	}
	return out
}
