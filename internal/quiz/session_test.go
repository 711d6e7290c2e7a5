package quiz

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

type manualClock struct {
	mu     sync.Mutex
	timers []*manualTimer
}

type manualTimer struct {
	clock   *manualClock
	delay   time.Duration
	fn      func()
	stopped bool
	fired   bool
}

func (c *manualClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{clock: c, delay: d, fn: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// pending returns the delays of timers that are neither fired nor stopped.
func (c *manualClock) pending() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []time.Duration
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			out = append(out, t.delay)
		}
	}
	return out
}

func (c *manualClock) fireAll() {
	c.mu.Lock()
	var due []func()
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			t.fired = true
			due = append(due, t.fn)
		}
	}
	c.mu.Unlock()
	for _, fn := range due {
		fn()
	}
}

type fakeSource struct {
	mu        sync.Mutex
	questions []Question
	failFirst error
	calls     int
}

func (f *fakeSource) FetchNext(ctx context.Context, scope Scope) (Question, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failFirst != nil {
		err := f.failFirst
		f.failFirst = nil
		return Question{}, false, err
	}
	if len(f.questions) == 0 {
		return Question{}, false, nil
	}
	q := f.questions[0]
	f.questions = f.questions[1:]
	return q, true, nil
}

func (f *fakeSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeVerifier struct {
	mu      sync.Mutex
	full    []map[string]string
	pairs   []Pair
	correct func(Pair) bool
	block   chan struct{}
}

func (f *fakeVerifier) SubmitFull(ctx context.Context, questionID string, answer map[string]string) (bool, error) {
	f.mu.Lock()
	f.full = append(f.full, answer)
	block := f.block
	f.mu.Unlock()
	if block != nil {
		close(block)
		<-ctx.Done()
		return false, ctx.Err()
	}
	return true, nil
}

func (f *fakeVerifier) SubmitPair(ctx context.Context, questionID string, pair Pair) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pairs = append(f.pairs, pair)
	return f.correct(pair), nil
}

func (f *fakeVerifier) fullAnswers() []map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]map[string]string(nil), f.full...)
}

func waitState(t *testing.T, s *Session, want State) {
	t.Helper()
	require.Eventually(t, func() bool { return s.Snapshot().State == want }, waitFor, tick, "state %s", want)
}

func TestSessionRunsScopeToCompletion(t *testing.T) {
	src := &fakeSource{questions: []Question{choiceQuestion}}
	ver := &fakeVerifier{}
	clk := &manualClock{}
	completedScope := make(chan Scope, 1)

	s := Open(context.Background(), BlockScope("block-7"), src, ver,
		WithClock(clk),
		WithCompletionHandler(func(scope Scope) { completedScope <- scope }))
	defer s.Close()

	waitState(t, s, StatePresenting)
	require.NoError(t, s.Dispatch(SelectKey{Key: "B"}))
	require.NoError(t, s.Dispatch(Submit{}))

	require.Eventually(t, func() bool { return len(clk.pending()) == 1 }, waitFor, tick)
	assert.Equal(t, []time.Duration{DefaultAdvanceDelay}, clk.pending())
	assert.Equal(t, []map[string]string{{"B": "Dog"}}, ver.fullAnswers())
	snap := s.Snapshot()
	require.NotNil(t, snap.LastResult)
	assert.True(t, snap.AnswerLocked)

	clk.fireAll()

	select {
	case <-s.Completed():
	case <-time.After(waitFor):
		t.Fatal("session did not complete")
	}
	assert.Equal(t, BlockScope("block-7"), <-completedScope)
	assert.Equal(t, 2, src.callCount())
	assert.True(t, s.Snapshot().Completed)
}

func TestSessionProgressiveAutoAdvance(t *testing.T) {
	src := &fakeSource{questions: []Question{progressiveQuestion}}
	ver := &fakeVerifier{correct: func(p Pair) bool {
		return (p.Key == "X" && p.Value == "Y") || (p.Key == "Z" && p.Value == "W")
	}}
	clk := &manualClock{}

	s := Open(context.Background(), LessonScope("lesson-2"), src, ver, WithClock(clk))
	defer s.Close()

	waitState(t, s, StatePresenting)
	for _, pair := range []Pair{{Key: "X", Value: "Y"}, {Key: "Z", Value: "W"}} {
		require.NoError(t, s.Dispatch(SelectKey{Key: pair.Key}))
		require.NoError(t, s.Dispatch(SelectValue{Value: pair.Value}))
		require.Eventually(t, func() bool { return len(clk.pending()) == 1 }, waitFor, tick)
		clk.fireAll()
		require.Eventually(t, func() bool {
			_, ok := s.Snapshot().Pending.Resolved[pair.Key]
			return ok
		}, waitFor, tick)
	}

	require.Eventually(t, func() bool { return len(clk.pending()) == 1 }, waitFor, tick)
	clk.fireAll()

	select {
	case <-s.Completed():
	case <-time.After(waitFor):
		t.Fatal("session did not complete")
	}
	assert.Equal(t, []map[string]string{{"X": "Y", "Z": "W"}}, ver.fullAnswers())
}

func TestSessionTransportErrorIsRetryable(t *testing.T) {
	src := &fakeSource{questions: []Question{choiceQuestion}, failFirst: errors.New("dial tcp: refused")}
	s := Open(context.Background(), BlockScope("b"), src, &fakeVerifier{}, WithClock(&manualClock{}))
	defer s.Close()

	require.Eventually(t, func() bool { return s.Snapshot().Retryable }, waitFor, tick)
	snap := s.Snapshot()
	assert.Equal(t, StateLoading, snap.State)
	assert.True(t, IsTransport(snap.Err))

	require.NoError(t, s.Dispatch(Retry{}))
	waitState(t, s, StatePresenting)
	assert.Nil(t, s.Snapshot().Err)
}

func TestSessionCloseDiscardsLateReplies(t *testing.T) {
	block := make(chan struct{})
	src := &fakeSource{questions: []Question{choiceQuestion, matchQuestion}}
	ver := &fakeVerifier{block: block}
	s := Open(context.Background(), BlockScope("b"), src, ver, WithClock(&manualClock{}))

	waitState(t, s, StatePresenting)
	require.NoError(t, s.Dispatch(SelectKey{Key: "A"}))
	require.NoError(t, s.Dispatch(Submit{}))
	<-block

	s.Close()
	s.Close()

	snap := s.Snapshot()
	assert.Equal(t, StateLocked, snap.State)
	assert.Nil(t, snap.Err)
	assert.ErrorIs(t, s.Dispatch(Submit{}), ErrSessionClosed)
	assert.Equal(t, 1, src.callCount())
}

func TestSessionCloseStopsTimers(t *testing.T) {
	src := &fakeSource{questions: []Question{choiceQuestion, matchQuestion}}
	clk := &manualClock{}
	s := Open(context.Background(), BlockScope("b"), src, &fakeVerifier{}, WithClock(clk))

	waitState(t, s, StatePresenting)
	require.NoError(t, s.Dispatch(SelectKey{Key: "A"}))
	require.NoError(t, s.Dispatch(Submit{}))
	require.Eventually(t, func() bool { return len(clk.pending()) == 1 }, waitFor, tick)

	s.Close()

	assert.Empty(t, clk.pending())
	assert.Equal(t, 1, src.callCount())
}

func TestSessionUpdatesCarryLatestSnapshot(t *testing.T) {
	src := &fakeSource{questions: []Question{choiceQuestion}}
	s := Open(context.Background(), BlockScope("b"), src, &fakeVerifier{}, WithClock(&manualClock{}))
	defer s.Close()

	waitState(t, s, StatePresenting)
	require.NoError(t, s.Dispatch(SelectKey{Key: "B"}))
	require.Eventually(t, func() bool {
		select {
		case snap := <-s.Updates():
			return snap.Pending.SelectedKey == "B"
		default:
			return false
		}
	}, waitFor, tick)
}

func TestSessionApplyReturnsHandledSnapshot(t *testing.T) {
	src := &fakeSource{questions: []Question{matchQuestion}}
	s := Open(context.Background(), BlockScope("b"), src, &fakeVerifier{}, WithClock(&manualClock{}))

	waitState(t, s, StatePresenting)
	snap, err := s.Apply(context.Background(), AssignPair{Key: "1", Value: "Red"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"1": "Red"}, snap.Pending.Assigned)

	s.Close()
	_, err = s.Apply(context.Background(), RemovePair{Key: "1"})
	assert.ErrorIs(t, err, ErrSessionClosed)
}
