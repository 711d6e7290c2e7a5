package quiz

import (
	"context"
	"fmt"
	"sync"

	"lesson-quiz/internal/logger"
)

type Option func(*Session)

func WithClock(c Clock) Option {
	return func(s *Session) { s.clock = c }
}

func WithLogger(l *logger.Logger) Option {
	return func(s *Session) { s.log = l }
}

func WithDelays(d Delays) Option {
	return func(s *Session) { s.delays = d }
}

// WithCompletionHandler registers a callback run once the scope is exhausted.
// It runs on its own goroutine and may call Close.
func WithCompletionHandler(fn func(Scope)) Option {
	return func(s *Session) { s.onComplete = fn }
}

// Session runs one Machine for one mounted quiz scope. All machine access
// happens on the session's event loop; network calls run on goroutines bound
// to the session context and report back through the loop.
type Session struct {
	source   QuestionSource
	verifier AnswerVerifier
	clock    Clock
	log      *logger.Logger
	delays   Delays

	onComplete func(Scope)

	ctx    context.Context
	cancel context.CancelFunc
	events chan envelope

	mu       sync.RWMutex
	snapshot Snapshot
	updates  chan Snapshot

	completed     chan struct{}
	completedOnce sync.Once
	done          chan struct{}
	closeOnce     sync.Once

	// owned by the loop goroutine until done is closed
	machine *Machine
	timers  map[uint64]Timer
}

// Open starts a session over scope and immediately requests the first
// question.
func Open(ctx context.Context, scope Scope, source QuestionSource, verifier AnswerVerifier, opts ...Option) *Session {
	s := &Session{
		source:    source,
		verifier:  verifier,
		clock:     realClock{},
		log:       logger.Nop(),
		delays:    DefaultDelays(),
		events:    make(chan envelope, 16),
		updates:   make(chan Snapshot, 1),
		completed: make(chan struct{}),
		done:      make(chan struct{}),
		timers:    make(map[uint64]Timer),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("scope", scope.String())
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.machine = NewMachine(s.delays)
	s.snapshot = s.machine.Snapshot()

	go s.loop()
	s.post(Start{Scope: scope})
	return s
}

type envelope struct {
	ev    Event
	reply chan Snapshot
}

// Dispatch feeds a user intent to the session without waiting for it.
func (s *Session) Dispatch(ev Event) error {
	if s.ctx.Err() != nil {
		return ErrSessionClosed
	}
	select {
	case s.events <- envelope{ev: ev}:
		return nil
	case <-s.ctx.Done():
		return ErrSessionClosed
	}
}

// Apply feeds an intent and returns the snapshot right after it was handled.
func (s *Session) Apply(ctx context.Context, ev Event) (Snapshot, error) {
	if s.ctx.Err() != nil {
		return Snapshot{}, ErrSessionClosed
	}
	reply := make(chan Snapshot, 1)
	select {
	case s.events <- envelope{ev: ev, reply: reply}:
	case <-s.ctx.Done():
		return Snapshot{}, ErrSessionClosed
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
	select {
	case snap := <-reply:
		return snap, nil
	case <-s.ctx.Done():
		return Snapshot{}, ErrSessionClosed
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// Updates delivers the latest snapshot after every change. Slow readers only
// ever see the newest one.
func (s *Session) Updates() <-chan Snapshot {
	return s.updates
}

// Completed is closed once the scope reports exhaustion.
func (s *Session) Completed() <-chan struct{} {
	return s.completed
}

// Close cancels in-flight calls, stops pending timers and waits for the event
// loop to exit. Replies arriving afterwards are discarded.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		<-s.done
		for token, t := range s.timers {
			t.Stop()
			delete(s.timers, token)
		}
		s.log.Debug("quiz session closed")
	})
}

func (s *Session) loop() {
	defer close(s.done)
	for {
		select {
		case <-s.ctx.Done():
			return
		case env := <-s.events:
			if s.ctx.Err() != nil {
				return
			}
			snap := s.apply(env.ev)
			if env.reply != nil {
				env.reply <- snap
			}
		}
	}
}

func (s *Session) apply(ev Event) Snapshot {
	if tf, ok := ev.(TimerFired); ok {
		delete(s.timers, tf.Token)
	}
	effects := s.machine.Handle(ev)
	snap := s.machine.Snapshot()

	s.mu.Lock()
	s.snapshot = snap
	s.mu.Unlock()
	s.publish(snap)

	for _, eff := range effects {
		s.run(eff)
	}
	return snap
}

func (s *Session) publish(snap Snapshot) {
	select {
	case s.updates <- snap:
		return
	default:
	}
	select {
	case <-s.updates:
	default:
	}
	select {
	case s.updates <- snap:
	default:
	}
}

func (s *Session) run(eff Effect) {
	switch e := eff.(type) {
	case FetchNext:
		go func() {
			q, ok, err := s.source.FetchNext(s.ctx, e.Scope)
			if err != nil {
				s.log.Warn("fetch next question failed", "error", err)
				s.post(LoadFailed{Token: e.Token, Err: asTransport("fetch next question", err)})
				return
			}
			s.post(QuestionLoaded{Token: e.Token, Question: q, OK: ok})
		}()
	case SubmitFull:
		go func() {
			correct, err := s.verifier.SubmitFull(s.ctx, e.QuestionID, e.Answer)
			if err != nil {
				s.log.Warn("submit answer failed", "question_id", e.QuestionID, "error", err)
				s.post(SubmitFailed{Token: e.Token, Err: asTransport("submit answer", err)})
				return
			}
			s.post(VerdictReceived{Token: e.Token, Correct: correct})
		}()
	case SubmitPair:
		go func() {
			correct, err := s.verifier.SubmitPair(s.ctx, e.QuestionID, e.Pair)
			if err != nil {
				s.log.Warn("check pair failed", "question_id", e.QuestionID, "error", err)
				s.post(SubmitFailed{Token: e.Token, Err: asTransport("check pair", err)})
				return
			}
			s.post(PairChecked{Token: e.Token, Pair: e.Pair, Correct: correct})
		}()
	case Schedule:
		tf, ok := e.Event.(TimerFired)
		if !ok {
			panic(fmt.Sprintf("quiz: unsupported scheduled event %T", e.Event))
		}
		s.timers[tf.Token] = s.clock.AfterFunc(e.Delay, func() { s.post(tf) })
	case NotifyCompleted:
		s.completedOnce.Do(func() { close(s.completed) })
		s.log.Info("quiz scope completed")
		if s.onComplete != nil {
			go s.onComplete(e.Scope)
		}
	}
}

// post hands a reply to the loop unless the session is gone.
func (s *Session) post(ev Event) {
	if s.ctx.Err() != nil {
		s.log.Debug("discarding reply after close", "event", fmt.Sprintf("%T", ev))
		return
	}
	select {
	case s.events <- envelope{ev: ev}:
	case <-s.ctx.Done():
	}
}
