package quiz

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// QuestionType selects how a question is answered.
type QuestionType int

const (
	SingleChoice QuestionType = iota + 1
	TrueFalse
	Match
	MatchProgressive
)

var questionTypeNames = map[QuestionType]string{
	SingleChoice:     "SINGLE_CHOICE",
	TrueFalse:        "TRUE_FALSE",
	Match:            "MATCH",
	MatchProgressive: "MATCH_PROGRESSIVE",
}

func (t QuestionType) String() string {
	if name, ok := questionTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("QuestionType(%d)", int(t))
}

func (t QuestionType) Valid() bool {
	_, ok := questionTypeNames[t]
	return ok
}

// Progressive reports whether pairs are checked one at a time instead of
// being submitted as a whole.
func (t QuestionType) Progressive() bool {
	return t == MatchProgressive
}

func (t QuestionType) matching() bool {
	return t == Match || t == MatchProgressive
}

// ParseQuestionType maps a wire name to its QuestionType. Unknown names
// return an error wrapping ErrMalformedQuestion.
func ParseQuestionType(name string) (QuestionType, error) {
	normalized := strings.ToUpper(strings.TrimSpace(name))
	for t, candidate := range questionTypeNames {
		if candidate == normalized {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: unsupported question type %q", ErrMalformedQuestion, name)
}

// Item is one {key, value} row of a question. For choice questions every item
// is a candidate answer; for matching questions keys form the left column and
// values the right column.
type Item struct {
	Key   string `json:"key" validate:"required"`
	Value string `json:"value"`
}

// Question is one quiz item as handed out by a QuestionSource. MediaURL is
// passed through untouched and may be relative to the server.
type Question struct {
	ID       string       `json:"id" validate:"required"`
	Type     QuestionType `json:"type" validate:"question_type"`
	Text     string       `json:"text"`
	MediaURL string       `json:"mediaUrl,omitempty"`
	Items    []Item       `json:"items" validate:"min=1,unique=Key,dive"`
}

// Pair links one left-hand key to one right-hand value.
type Pair struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func (p Pair) Map() map[string]string {
	return map[string]string{p.Key: p.Value}
}

func (q Question) Item(key string) (Item, bool) {
	for _, item := range q.Items {
		if item.Key == key {
			return item, true
		}
	}
	return Item{}, false
}

func (q Question) Keys() []string {
	keys := make([]string, 0, len(q.Items))
	for _, item := range q.Items {
		keys = append(keys, item.Key)
	}
	return keys
}

// Values returns the right-hand column in item order.
func (q Question) Values() []string {
	values := make([]string, 0, len(q.Items))
	for _, item := range q.Items {
		values = append(values, item.Value)
	}
	return values
}

func (q Question) clone() Question {
	out := q
	out.Items = append([]Item(nil), q.Items...)
	return out
}

var structValidator = newStructValidator()

func newStructValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("question_type", func(fl validator.FieldLevel) bool {
		return QuestionType(fl.Field().Int()).Valid()
	})
	return v
}

// Validate rejects questions the quiz cannot present: no items, an unknown
// type, blank or duplicate keys, and blank or duplicate right-hand values in
// matching questions (a value identifies its slot in the pool).
func (q Question) Validate() error {
	if len(q.Items) == 0 {
		return fmt.Errorf("%w: question %q has no items", ErrMalformedQuestion, q.ID)
	}
	if !q.Type.Valid() {
		return fmt.Errorf("%w: question %q has unsupported type %s", ErrMalformedQuestion, q.ID, q.Type)
	}
	if err := structValidator.Struct(q); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedQuestion, err)
	}
	if q.Type.matching() {
		seen := make(map[string]struct{}, len(q.Items))
		for _, item := range q.Items {
			if strings.TrimSpace(item.Value) == "" {
				return fmt.Errorf("%w: question %q has a blank value for key %q", ErrMalformedQuestion, q.ID, item.Key)
			}
			if _, dup := seen[item.Value]; dup {
				return fmt.Errorf("%w: question %q repeats value %q", ErrMalformedQuestion, q.ID, item.Value)
			}
			seen[item.Value] = struct{}{}
		}
	}
	return nil
}
