package quiz

import (
	"fmt"
	"time"
)

// State is the phase of a quiz run.
type State int

const (
	StateIdle State = iota
	StateLoading
	StatePresenting
	StateLocked
	StateCompleted
	// StateBlocked means the source handed out a question that cannot be
	// presented. The scope does not continue past it.
	StateBlocked
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StatePresenting:
		return "presenting"
	case StateLocked:
		return "locked"
	case StateCompleted:
		return "completed"
	case StateBlocked:
		return "blocked"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

const (
	DefaultRevealDelay  = 600 * time.Millisecond
	DefaultAdvanceDelay = 700 * time.Millisecond
)

// Delays are the display pauses between a verdict and the next transition.
type Delays struct {
	Reveal  time.Duration
	Advance time.Duration
}

func DefaultDelays() Delays {
	return Delays{Reveal: DefaultRevealDelay, Advance: DefaultAdvanceDelay}
}

// Event is anything fed into Machine.Handle: user intents and the replies to
// effects the machine asked for.
type Event interface{ event() }

type (
	Start       struct{ Scope Scope }
	SelectKey   struct{ Key string }
	SelectValue struct{ Value string }
	AssignPair  struct{ Key, Value string }
	RemovePair  struct{ Key string }
	Submit      struct{}
	Retry       struct{}

	QuestionLoaded struct {
		Token    uint64
		Question Question
		OK       bool
	}
	LoadFailed struct {
		Token uint64
		Err   error
	}
	VerdictReceived struct {
		Token   uint64
		Correct bool
	}
	PairChecked struct {
		Token   uint64
		Pair    Pair
		Correct bool
	}
	SubmitFailed struct {
		Token uint64
		Err   error
	}
	TimerFired struct{ Token uint64 }
)

func (Start) event()           {}
func (SelectKey) event()       {}
func (SelectValue) event()     {}
func (AssignPair) event()      {}
func (RemovePair) event()      {}
func (Submit) event()          {}
func (Retry) event()           {}
func (QuestionLoaded) event()  {}
func (LoadFailed) event()      {}
func (VerdictReceived) event() {}
func (PairChecked) event()     {}
func (SubmitFailed) event()    {}
func (TimerFired) event()      {}

// Effect is work the machine wants done outside of itself. Effects that
// expect a reply carry the token the reply must echo.
type Effect interface{ effect() }

type (
	FetchNext struct {
		Token uint64
		Scope Scope
	}
	SubmitFull struct {
		Token      uint64
		QuestionID string
		Answer     map[string]string
	}
	SubmitPair struct {
		Token      uint64
		QuestionID string
		Pair       Pair
	}
	Schedule struct {
		Delay time.Duration
		Event Event
	}
	NotifyCompleted struct{ Scope Scope }
)

func (FetchNext) effect()       {}
func (SubmitFull) effect()      {}
func (SubmitPair) effect()      {}
func (Schedule) effect()        {}
func (NotifyCompleted) effect() {}

type operation int

const (
	opNone operation = iota
	opFetch
	opSubmit
	opPair
	opFinish
)

type timerKind int

const (
	timerNone timerKind = iota
	timerAdvance
	timerReveal
	timerFinish
)

// Machine is the quiz transition function. It performs no I/O and keeps no
// clock; the caller executes the returned effects and feeds the replies back.
// A Machine is not safe for concurrent use.
type Machine struct {
	delays Delays

	scope    Scope
	state    State
	question *Question
	pending  *PendingAnswer
	number   int

	lastResult *bool
	err        error

	seq       uint64
	inflight  uint64
	op        operation
	timer     uint64
	timerKind timerKind
	retry     operation
}

func NewMachine(delays Delays) *Machine {
	if delays.Reveal <= 0 {
		delays.Reveal = DefaultRevealDelay
	}
	if delays.Advance <= 0 {
		delays.Advance = DefaultAdvanceDelay
	}
	return &Machine{delays: delays}
}

func (m *Machine) State() State {
	return m.state
}

// Handle applies one event and returns the effects it produced. Events that
// do not apply to the current state, and replies carrying a stale token, are
// dropped without effect.
func (m *Machine) Handle(ev Event) []Effect {
	if m.state == StateCompleted || m.state == StateBlocked {
		return nil
	}
	switch e := ev.(type) {
	case Start:
		return m.start(e)
	case SelectKey:
		return m.selectKey(e.Key)
	case SelectValue:
		return m.selectValue(e.Value)
	case AssignPair:
		if m.state == StatePresenting && m.pending.Match != nil {
			_ = m.pending.Match.Assign(e.Key, e.Value)
		}
	case RemovePair:
		if m.state == StatePresenting && m.pending.Match != nil {
			m.pending.Match.Remove(e.Key)
		}
	case Submit:
		return m.submit()
	case Retry:
		return m.retryFailed()
	case QuestionLoaded:
		return m.questionLoaded(e)
	case LoadFailed:
		if m.awaiting(e.Token, StateLoading) {
			m.settle()
			m.err = e.Err
			m.retry = opFetch
		}
	case VerdictReceived:
		return m.verdictReceived(e)
	case PairChecked:
		return m.pairChecked(e)
	case SubmitFailed:
		m.submitFailed(e)
	case TimerFired:
		return m.timerFired(e.Token)
	}
	return nil
}

func (m *Machine) start(e Start) []Effect {
	if m.state != StateIdle {
		return nil
	}
	m.scope = e.Scope
	return m.fetch()
}

func (m *Machine) fetch() []Effect {
	m.state = StateLoading
	m.question = nil
	m.pending = nil
	m.retry = opNone
	token := m.issue(opFetch)
	return []Effect{FetchNext{Token: token, Scope: m.scope}}
}

func (m *Machine) questionLoaded(e QuestionLoaded) []Effect {
	if !m.awaiting(e.Token, StateLoading) {
		return nil
	}
	m.settle()
	m.err = nil
	m.lastResult = nil
	if !e.OK {
		m.state = StateCompleted
		return []Effect{NotifyCompleted{Scope: m.scope}}
	}
	if err := e.Question.Validate(); err != nil {
		m.state = StateBlocked
		m.err = err
		return nil
	}
	q := e.Question.clone()
	m.question = &q
	m.pending = newPendingAnswer(q)
	m.number++
	m.state = StatePresenting
	return nil
}

func (m *Machine) selectKey(key string) []Effect {
	if m.state != StatePresenting {
		return nil
	}
	switch {
	case m.pending.Choice != nil:
		_ = m.pending.Choice.Select(key)
	case m.pending.Progressive != nil:
		if m.pending.Progressive.SelectKey(key) == nil {
			m.dropPairRetry()
			return m.maybeCheckPair()
		}
	}
	return nil
}

func (m *Machine) selectValue(value string) []Effect {
	if m.state != StatePresenting || m.pending.Progressive == nil {
		return nil
	}
	if m.pending.Progressive.SelectValue(value) == nil {
		m.dropPairRetry()
		return m.maybeCheckPair()
	}
	return nil
}

// dropPairRetry forgets a failed pair check once the learner starts a new pair.
func (m *Machine) dropPairRetry() {
	if m.retry == opPair {
		m.retry = opNone
	}
}

func (m *Machine) maybeCheckPair() []Effect {
	board := m.pending.Progressive
	if !board.Ready() {
		return nil
	}
	m.state = StateLocked
	m.err = nil
	m.retry = opNone
	m.lastResult = nil
	pair := board.Begin()
	token := m.issue(opPair)
	return []Effect{SubmitPair{Token: token, QuestionID: m.question.ID, Pair: pair}}
}

func (m *Machine) submit() []Effect {
	if m.state != StatePresenting {
		return nil
	}
	if m.pending.Progressive != nil {
		// Pairs submit themselves; an explicit submit only re-sends the
		// closing answer after it failed.
		if m.pending.Progressive.Done() {
			return m.finish()
		}
		return nil
	}
	if !m.pending.ready() {
		return nil
	}
	var answer map[string]string
	if m.pending.Choice != nil {
		answer = m.pending.Choice.Answer()
	} else {
		answer = m.pending.Match.Pairs()
	}
	m.state = StateLocked
	m.err = nil
	m.retry = opNone
	token := m.issue(opSubmit)
	return []Effect{SubmitFull{Token: token, QuestionID: m.question.ID, Answer: answer}}
}

// finish sends the resolved progressive pairs as a full answer so the server
// advances its position.
func (m *Machine) finish() []Effect {
	m.state = StateLocked
	m.err = nil
	m.retry = opNone
	m.lastResult = nil
	token := m.issue(opFinish)
	return []Effect{SubmitFull{Token: token, QuestionID: m.question.ID, Answer: m.pending.Progressive.Resolved()}}
}

func (m *Machine) verdictReceived(e VerdictReceived) []Effect {
	if !m.awaiting(e.Token, StateLocked) || (m.op != opSubmit && m.op != opFinish) {
		return nil
	}
	finishing := m.op == opFinish
	m.settle()
	correct := e.Correct
	m.lastResult = &correct
	if finishing {
		return m.fetch()
	}
	return m.schedule(timerAdvance, m.delays.Advance)
}

func (m *Machine) pairChecked(e PairChecked) []Effect {
	if !m.awaiting(e.Token, StateLocked) || m.op != opPair {
		return nil
	}
	m.settle()
	correct := e.Correct
	m.lastResult = &correct
	m.pending.Progressive.Mark(correct)
	return m.schedule(timerReveal, m.delays.Reveal)
}

func (m *Machine) submitFailed(e SubmitFailed) {
	if !m.awaiting(e.Token, StateLocked) {
		return
	}
	op := m.op
	m.settle()
	m.state = StatePresenting
	m.err = e.Err
	m.retry = op
	if op == opPair {
		m.pending.Progressive.Abort()
	}
}

func (m *Machine) retryFailed() []Effect {
	op := m.retry
	switch {
	case op == opFetch && m.state == StateLoading && m.inflight == 0:
		return m.fetch()
	case op == opSubmit && m.state == StatePresenting:
		return m.submit()
	case op == opPair && m.state == StatePresenting && m.pending.Progressive != nil:
		if m.pending.Progressive.Restore() {
			return m.maybeCheckPair()
		}
	case op == opFinish && m.state == StatePresenting && m.pending.Progressive != nil:
		return m.finish()
	}
	return nil
}

func (m *Machine) timerFired(token uint64) []Effect {
	if token == 0 || token != m.timer {
		return nil
	}
	kind := m.timerKind
	m.timer, m.timerKind = 0, timerNone
	switch kind {
	case timerAdvance:
		return m.fetch()
	case timerReveal:
		board := m.pending.Progressive
		if board.highlight == HighlightCorrect {
			board.Resolve()
		} else {
			board.Reject()
		}
		if board.Done() {
			return m.schedule(timerFinish, m.delays.Advance)
		}
		m.state = StatePresenting
	case timerFinish:
		return m.finish()
	}
	return nil
}

func (m *Machine) schedule(kind timerKind, delay time.Duration) []Effect {
	m.seq++
	m.timer, m.timerKind = m.seq, kind
	return []Effect{Schedule{Delay: delay, Event: TimerFired{Token: m.seq}}}
}

func (m *Machine) issue(op operation) uint64 {
	m.seq++
	m.inflight, m.op = m.seq, op
	return m.seq
}

func (m *Machine) awaiting(token uint64, state State) bool {
	return token != 0 && token == m.inflight && m.state == state
}

func (m *Machine) settle() {
	m.inflight, m.op = 0, opNone
}

// Snapshot is a copy of the machine state safe to hand to other goroutines.
type Snapshot struct {
	State    State
	Scope    Scope
	Question *Question
	Pending  PendingView
	// AnswerLocked is true from submit until the verdict has been shown or
	// the next question requested.
	AnswerLocked bool
	LastResult   *bool
	Err          error
	Retryable    bool
	Completed    bool
	// Number is the 1-based position of the current question in this run.
	Number int
}

func (m *Machine) Snapshot() Snapshot {
	s := Snapshot{
		State:        m.state,
		Scope:        m.scope,
		Pending:      m.pending.view(),
		AnswerLocked: m.state == StateLocked,
		Err:          m.err,
		Retryable:    m.retry != opNone,
		Completed:    m.state == StateCompleted,
		Number:       m.number,
	}
	if m.question != nil {
		q := m.question.clone()
		s.Question = &q
	}
	if m.lastResult != nil {
		r := *m.lastResult
		s.LastResult = &r
	}
	return s
}
