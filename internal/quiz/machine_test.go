package quiz

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	choiceQuestion = Question{ID: "q-choice", Type: SingleChoice, Text: "Which one barks?",
		Items: []Item{{Key: "A", Value: "Cat"}, {Key: "B", Value: "Dog"}}}
	matchQuestion = Question{ID: "q-match", Type: Match, Text: "Colors",
		Items: []Item{{Key: "1", Value: "Red"}, {Key: "2", Value: "Blue"}}}
	progressiveQuestion = Question{ID: "q-prog", Type: MatchProgressive, Text: "Pairs",
		Items: []Item{{Key: "X", Value: "Y"}, {Key: "Z", Value: "W"}}}
)

func only[T Effect](t *testing.T, effects []Effect) T {
	t.Helper()
	require.Len(t, effects, 1)
	eff, ok := effects[0].(T)
	require.True(t, ok, "unexpected effect %T", effects[0])
	return eff
}

func presenting(t *testing.T, q Question) *Machine {
	t.Helper()
	m := NewMachine(DefaultDelays())
	fetch := only[FetchNext](t, m.Handle(Start{Scope: BlockScope("block-1")}))
	assert.Equal(t, BlockScope("block-1"), fetch.Scope)
	require.Empty(t, m.Handle(QuestionLoaded{Token: fetch.Token, Question: q, OK: true}))
	require.Equal(t, StatePresenting, m.State())
	return m
}

func TestSingleChoiceSubmitThenAdvance(t *testing.T) {
	m := presenting(t, choiceQuestion)

	assert.Empty(t, m.Handle(Submit{}), "submit needs a selection")
	m.Handle(SelectKey{Key: "B"})
	submit := only[SubmitFull](t, m.Handle(Submit{}))
	assert.Equal(t, "q-choice", submit.QuestionID)
	assert.Equal(t, map[string]string{"B": "Dog"}, submit.Answer)

	snap := m.Snapshot()
	assert.True(t, snap.AnswerLocked)
	assert.Nil(t, snap.LastResult)

	sched := only[Schedule](t, m.Handle(VerdictReceived{Token: submit.Token, Correct: true}))
	assert.Equal(t, DefaultAdvanceDelay, sched.Delay)
	snap = m.Snapshot()
	require.NotNil(t, snap.LastResult)
	assert.True(t, *snap.LastResult)
	assert.True(t, snap.AnswerLocked)

	fetch := only[FetchNext](t, m.Handle(sched.Event))
	assert.Equal(t, StateLoading, m.State())
	assert.Greater(t, fetch.Token, submit.Token)
}

func TestSecondSubmitIgnoredWhileLocked(t *testing.T) {
	m := presenting(t, choiceQuestion)
	m.Handle(SelectKey{Key: "A"})
	only[SubmitFull](t, m.Handle(Submit{}))

	assert.Empty(t, m.Handle(Submit{}))
	assert.Empty(t, m.Handle(SelectKey{Key: "B"}))
	assert.Equal(t, "A", m.Snapshot().Pending.SelectedKey)
}

func TestPendingAnswerResetOnNextQuestion(t *testing.T) {
	m := presenting(t, choiceQuestion)
	m.Handle(SelectKey{Key: "A"})
	submit := only[SubmitFull](t, m.Handle(Submit{}))
	sched := only[Schedule](t, m.Handle(VerdictReceived{Token: submit.Token, Correct: false}))
	fetch := only[FetchNext](t, m.Handle(sched.Event))

	next := choiceQuestion
	next.ID = "q-choice-2"
	m.Handle(QuestionLoaded{Token: fetch.Token, Question: next, OK: true})

	snap := m.Snapshot()
	assert.Equal(t, "q-choice-2", snap.Question.ID)
	assert.Empty(t, snap.Pending.SelectedKey)
	assert.Nil(t, snap.LastResult)
	assert.False(t, snap.AnswerLocked)
	assert.Equal(t, 2, snap.Number)
}

func TestMatchSubmitDisabledUntilComplete(t *testing.T) {
	m := presenting(t, matchQuestion)

	m.Handle(AssignPair{Key: "1", Value: "Blue"})
	m.Handle(AssignPair{Key: "2", Value: "Blue"})
	snap := m.Snapshot()
	assert.Equal(t, map[string]string{"2": "Blue"}, snap.Pending.Assigned)
	assert.False(t, snap.Pending.Ready)
	assert.Empty(t, m.Handle(Submit{}))

	m.Handle(AssignPair{Key: "1", Value: "Red"})
	submit := only[SubmitFull](t, m.Handle(Submit{}))
	assert.Equal(t, map[string]string{"1": "Red", "2": "Blue"}, submit.Answer)
}

func TestMatchRemovePair(t *testing.T) {
	m := presenting(t, matchQuestion)
	m.Handle(AssignPair{Key: "1", Value: "Red"})
	m.Handle(RemovePair{Key: "1"})

	snap := m.Snapshot()
	assert.Empty(t, snap.Pending.Assigned)
	assert.Equal(t, []string{"Red", "Blue"}, snap.Pending.Available)
}

func TestProgressiveWrongThenRightThenFinish(t *testing.T) {
	m := presenting(t, progressiveQuestion)

	assert.Empty(t, m.Handle(SelectKey{Key: "X"}))
	check := only[SubmitPair](t, m.Handle(SelectValue{Value: "W"}))
	assert.Equal(t, Pair{Key: "X", Value: "W"}, check.Pair)
	assert.True(t, m.Snapshot().AnswerLocked)

	reveal := only[Schedule](t, m.Handle(PairChecked{Token: check.Token, Pair: check.Pair, Correct: false}))
	assert.Equal(t, DefaultRevealDelay, reveal.Delay)
	assert.Equal(t, HighlightWrong, m.Snapshot().Pending.Highlight)
	assert.Empty(t, m.Handle(reveal.Event))

	snap := m.Snapshot()
	assert.Equal(t, StatePresenting, snap.State)
	assert.Empty(t, snap.Pending.SelectedKey)
	assert.Empty(t, snap.Pending.SelectedValue)
	assert.Empty(t, snap.Pending.Resolved)

	m.Handle(SelectKey{Key: "X"})
	check = only[SubmitPair](t, m.Handle(SelectValue{Value: "Y"}))
	reveal = only[Schedule](t, m.Handle(PairChecked{Token: check.Token, Pair: check.Pair, Correct: true}))
	assert.Equal(t, HighlightCorrect, m.Snapshot().Pending.Highlight)
	assert.Empty(t, m.Handle(reveal.Event))
	assert.Equal(t, map[string]string{"X": "Y"}, m.Snapshot().Pending.Resolved)

	assert.Empty(t, m.Handle(SelectKey{Key: "X"}), "resolved key is not selectable")
	assert.Empty(t, m.Snapshot().Pending.SelectedKey)

	m.Handle(SelectKey{Key: "Z"})
	check = only[SubmitPair](t, m.Handle(SelectValue{Value: "W"}))
	reveal = only[Schedule](t, m.Handle(PairChecked{Token: check.Token, Pair: check.Pair, Correct: true}))
	finish := only[Schedule](t, m.Handle(reveal.Event))
	assert.Equal(t, DefaultAdvanceDelay, finish.Delay)
	assert.True(t, m.Snapshot().AnswerLocked)

	submit := only[SubmitFull](t, m.Handle(finish.Event))
	assert.Equal(t, map[string]string{"X": "Y", "Z": "W"}, submit.Answer)

	only[FetchNext](t, m.Handle(VerdictReceived{Token: submit.Token, Correct: true}))
	assert.Equal(t, StateLoading, m.State())
}

func TestProgressiveFinishFailureRetries(t *testing.T) {
	m := presenting(t, progressiveQuestion)
	var after []Effect
	for _, pair := range []Pair{{Key: "X", Value: "Y"}, {Key: "Z", Value: "W"}} {
		m.Handle(SelectKey{Key: pair.Key})
		check := only[SubmitPair](t, m.Handle(SelectValue{Value: pair.Value}))
		reveal := only[Schedule](t, m.Handle(PairChecked{Token: check.Token, Pair: check.Pair, Correct: true}))
		after = m.Handle(reveal.Event)
	}
	finish := only[Schedule](t, after)
	submit := only[SubmitFull](t, m.Handle(finish.Event))

	m.Handle(SubmitFailed{Token: submit.Token, Err: &TransportError{Op: "submit answer", Err: errors.New("connection reset")}})
	snap := m.Snapshot()
	assert.Equal(t, StatePresenting, snap.State)
	assert.False(t, snap.AnswerLocked)
	assert.True(t, snap.Retryable)
	assert.True(t, IsTransport(snap.Err))
	assert.Equal(t, map[string]string{"X": "Y", "Z": "W"}, snap.Pending.Resolved)

	again := only[SubmitFull](t, m.Handle(Retry{}))
	assert.Equal(t, map[string]string{"X": "Y", "Z": "W"}, again.Answer)
	assert.NotEqual(t, submit.Token, again.Token)
	assert.True(t, m.Snapshot().AnswerLocked)

	m.Handle(SubmitFailed{Token: again.Token, Err: &TransportError{Op: "submit answer", Err: errors.New("timeout")}})
	resent := only[SubmitFull](t, m.Handle(Submit{}))
	assert.Equal(t, again.Answer, resent.Answer)

	only[FetchNext](t, m.Handle(VerdictReceived{Token: resent.Token, Correct: true}))
}

func TestProgressiveSelectionReplacesPrior(t *testing.T) {
	m := presenting(t, progressiveQuestion)
	m.Handle(SelectKey{Key: "X"})
	m.Handle(SelectKey{Key: "Z"})
	check := only[SubmitPair](t, m.Handle(SelectValue{Value: "W"}))
	assert.Equal(t, Pair{Key: "Z", Value: "W"}, check.Pair)
}

func TestProgressiveHasNoExplicitSubmit(t *testing.T) {
	m := presenting(t, progressiveQuestion)
	m.Handle(SelectKey{Key: "X"})
	assert.Empty(t, m.Handle(Submit{}))
}

func TestExhaustedOnFirstFetch(t *testing.T) {
	m := NewMachine(DefaultDelays())
	fetch := only[FetchNext](t, m.Handle(Start{Scope: LessonScope("lesson-1")}))

	done := only[NotifyCompleted](t, m.Handle(QuestionLoaded{Token: fetch.Token, OK: false}))
	assert.Equal(t, LessonScope("lesson-1"), done.Scope)

	snap := m.Snapshot()
	assert.True(t, snap.Completed)
	assert.Nil(t, snap.Question)
	assert.Zero(t, snap.Number)

	for _, ev := range []Event{Start{Scope: LessonScope("lesson-1")}, Submit{}, Retry{}, SelectKey{Key: "A"},
		QuestionLoaded{Token: fetch.Token + 1, Question: choiceQuestion, OK: true}, TimerFired{Token: fetch.Token + 1}} {
		assert.Empty(t, m.Handle(ev), "%T after completion", ev)
	}
	assert.Equal(t, StateCompleted, m.State())
}

func TestSubmitFailureUnlocks(t *testing.T) {
	m := presenting(t, choiceQuestion)
	m.Handle(SelectKey{Key: "B"})
	submit := only[SubmitFull](t, m.Handle(Submit{}))

	failure := &TransportError{Op: "submit answer", Err: errors.New("connection reset")}
	assert.Empty(t, m.Handle(SubmitFailed{Token: submit.Token, Err: failure}))

	snap := m.Snapshot()
	assert.Equal(t, StatePresenting, snap.State)
	assert.False(t, snap.AnswerLocked)
	assert.Nil(t, snap.LastResult)
	assert.True(t, IsTransport(snap.Err))
	assert.True(t, snap.Retryable)
	assert.Equal(t, "q-choice", snap.Question.ID)
	assert.Equal(t, "B", snap.Pending.SelectedKey)

	again := only[SubmitFull](t, m.Handle(Retry{}))
	assert.Equal(t, map[string]string{"B": "Dog"}, again.Answer)
	assert.Nil(t, m.Snapshot().Err)
}

func TestPairFailureRetriesSamePair(t *testing.T) {
	m := presenting(t, progressiveQuestion)
	m.Handle(SelectKey{Key: "X"})
	check := only[SubmitPair](t, m.Handle(SelectValue{Value: "Y"}))

	m.Handle(SubmitFailed{Token: check.Token, Err: &TransportError{Op: "check pair", Err: errors.New("timeout")}})
	assert.Equal(t, StatePresenting, m.State())

	again := only[SubmitPair](t, m.Handle(Retry{}))
	assert.Equal(t, check.Pair, again.Pair)
	assert.NotEqual(t, check.Token, again.Token)
}

func TestNewSelectionReplacesFailedPair(t *testing.T) {
	m := presenting(t, progressiveQuestion)
	m.Handle(SelectKey{Key: "X"})
	check := only[SubmitPair](t, m.Handle(SelectValue{Value: "Y"}))
	m.Handle(SubmitFailed{Token: check.Token, Err: &TransportError{Op: "check pair", Err: errors.New("timeout")}})
	require.True(t, m.Snapshot().Retryable)

	assert.Empty(t, m.Handle(SelectKey{Key: "Z"}))
	assert.False(t, m.Snapshot().Retryable)
	assert.Empty(t, m.Handle(Retry{}), "the failed pair is not sent over a new choice")
	assert.Equal(t, "Z", m.Snapshot().Pending.SelectedKey)

	next := only[SubmitPair](t, m.Handle(SelectValue{Value: "W"}))
	assert.Equal(t, Pair{Key: "Z", Value: "W"}, next.Pair)
}

func TestRelativeMediaPathIsPresented(t *testing.T) {
	q := choiceQuestion
	q.MediaURL = "/uploads/cat.png"
	m := presenting(t, q)

	snap := m.Snapshot()
	assert.Nil(t, snap.Err)
	assert.Equal(t, "/uploads/cat.png", snap.Question.MediaURL)
}

func TestLoadFailureRetry(t *testing.T) {
	m := NewMachine(DefaultDelays())
	fetch := only[FetchNext](t, m.Handle(Start{Scope: BlockScope("b")}))

	m.Handle(LoadFailed{Token: fetch.Token, Err: &TransportError{Op: "fetch", Err: errors.New("503")}})
	snap := m.Snapshot()
	assert.Equal(t, StateLoading, snap.State)
	assert.True(t, snap.Retryable)

	again := only[FetchNext](t, m.Handle(Retry{}))
	assert.NotEqual(t, fetch.Token, again.Token)
	assert.Empty(t, m.Handle(Retry{}), "nothing to retry while the fetch is in flight")
}

func TestStaleRepliesDropped(t *testing.T) {
	m := NewMachine(DefaultDelays())
	fetch := only[FetchNext](t, m.Handle(Start{Scope: BlockScope("b")}))

	assert.Empty(t, m.Handle(QuestionLoaded{Token: fetch.Token + 5, Question: choiceQuestion, OK: true}))
	assert.Equal(t, StateLoading, m.State())

	m.Handle(QuestionLoaded{Token: fetch.Token, Question: choiceQuestion, OK: true})
	m.Handle(SelectKey{Key: "A"})
	submit := only[SubmitFull](t, m.Handle(Submit{}))

	assert.Empty(t, m.Handle(VerdictReceived{Token: fetch.Token, Correct: true}))
	assert.Empty(t, m.Handle(PairChecked{Token: submit.Token, Correct: true}), "pair reply to a full submit")
	assert.Empty(t, m.Handle(TimerFired{Token: submit.Token}))
	assert.True(t, m.Snapshot().AnswerLocked)
}

func TestMalformedQuestionBlocksScope(t *testing.T) {
	m := NewMachine(DefaultDelays())
	fetch := only[FetchNext](t, m.Handle(Start{Scope: BlockScope("b")}))

	empty := Question{ID: "q-empty", Type: SingleChoice}
	assert.Empty(t, m.Handle(QuestionLoaded{Token: fetch.Token, Question: empty, OK: true}))

	snap := m.Snapshot()
	assert.Equal(t, StateBlocked, snap.State)
	assert.ErrorIs(t, snap.Err, ErrMalformedQuestion)
	assert.False(t, snap.Retryable)
	assert.Empty(t, m.Handle(Retry{}))
	assert.Empty(t, m.Handle(Submit{}))
}

func TestPairFailureClearsSelection(t *testing.T) {
	m := presenting(t, progressiveQuestion)
	m.Handle(SelectKey{Key: "X"})
	check := only[SubmitPair](t, m.Handle(SelectValue{Value: "Y"}))
	m.Handle(SubmitFailed{Token: check.Token, Err: &TransportError{Op: "check pair", Err: errors.New("timeout")}})

	snap := m.Snapshot()
	assert.Empty(t, snap.Pending.SelectedKey)
	assert.Empty(t, snap.Pending.SelectedValue)
	assert.Empty(t, m.Handle(SelectKey{Key: "Z"}), "one side picked is not a pair yet")
}
