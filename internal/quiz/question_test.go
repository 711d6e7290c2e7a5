package quiz

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQuestionType(t *testing.T) {
	cases := map[string]QuestionType{
		"SINGLE_CHOICE":     SingleChoice,
		"true_false":        TrueFalse,
		" MATCH ":           Match,
		"MATCH_PROGRESSIVE": MatchProgressive,
	}
	for name, want := range cases {
		got, err := ParseQuestionType(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := ParseQuestionType("ESSAY")
	assert.ErrorIs(t, err, ErrMalformedQuestion)
}

func TestQuestionValidate(t *testing.T) {
	valid := Question{ID: "q1", Type: Match, Items: []Item{{Key: "1", Value: "Red"}, {Key: "2", Value: "Blue"}}}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name string
		q    Question
	}{
		{name: "no items", q: Question{ID: "q", Type: SingleChoice}},
		{name: "unknown type", q: Question{ID: "q", Items: []Item{{Key: "A", Value: "x"}}}},
		{name: "blank key", q: Question{ID: "q", Type: SingleChoice, Items: []Item{{Key: "", Value: "x"}}}},
		{name: "duplicate key", q: Question{ID: "q", Type: SingleChoice, Items: []Item{{Key: "A", Value: "x"}, {Key: "A", Value: "y"}}}},
		{name: "duplicate match value", q: Question{ID: "q", Type: Match, Items: []Item{{Key: "1", Value: "x"}, {Key: "2", Value: "x"}}}},
		{name: "blank match value", q: Question{ID: "q", Type: MatchProgressive, Items: []Item{{Key: "1", Value: "x"}, {Key: "2", Value: " "}}}},
		{name: "missing id", q: Question{Type: TrueFalse, Items: []Item{{Key: "T", Value: "True"}}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.q.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedQuestion))
		})
	}
}

func TestChoiceValuesMayRepeat(t *testing.T) {
	q := Question{ID: "q", Type: SingleChoice, Items: []Item{{Key: "A", Value: "same"}, {Key: "B", Value: "same"}}}
	assert.NoError(t, q.Validate())
}

func TestMediaAndChoiceValuesAreNotChecked(t *testing.T) {
	q := Question{ID: "q", Type: SingleChoice, MediaURL: "/uploads/cat.png",
		Items: []Item{{Key: "A", Value: ""}, {Key: "B", Value: "Dog"}}}
	assert.NoError(t, q.Validate())
}
