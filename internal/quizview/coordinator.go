// Package quizview maps quiz snapshots to per-question-type view models.
package quizview

import (
	"errors"
	"fmt"

	"lesson-quiz/internal/quiz"
)

const DefaultTotal = 10

type Kind int

const (
	KindLoading Kind = iota
	KindQuestion
	KindCompleted
	KindError
	KindBlocked
)

type Tone int

const (
	ToneNone Tone = iota
	ToneSuccess
	ToneFailure
	ToneError
)

type Progress struct {
	Current int
	Total   int
	Label   string
}

type Option struct {
	Key      string
	Label    string
	Selected bool
}

type ChoiceView struct {
	Options []Option
}

type MatchSlot struct {
	Key       string
	Value     string
	Assigned  bool
	Label     string
	Clearable bool
}

type MatchView struct {
	Slots []MatchSlot
	Pool  []string
	// Dragging is the pool value currently held by a drag gesture.
	Dragging string
}

type Chip struct {
	Label    string
	Selected bool
	Wrong    bool
	Correct  bool
}

type ProgressiveView struct {
	Keys     []Chip
	Values   []Chip
	Resolved []quiz.Pair
	Hint     string
}

// ViewModel is everything a renderer needs for one frame. At most one of the
// per-type views is set, and only for KindQuestion.
type ViewModel struct {
	Kind          Kind
	Text          string
	MediaURL      string
	Progress      Progress
	SubmitEnabled bool
	SubmitLabel   string
	Locked        bool
	Feedback      string
	Tone          Tone
	Retryable     bool
	RetryLabel    string

	SingleChoice *ChoiceView
	TrueFalse    *ChoiceView
	Match        *MatchView
	Progressive  *ProgressiveView
}

// Coordinator renders snapshots. Its only state is the drag gesture in
// progress; everything else comes from the snapshot.
type Coordinator struct {
	msgs     Messages
	total    int
	dragging string
}

func NewCoordinator(msgs Messages, total int) *Coordinator {
	if total <= 0 {
		total = DefaultTotal
	}
	return &Coordinator{msgs: msgs, total: total}
}

func (c *Coordinator) Messages() Messages {
	return c.msgs
}

func (c *Coordinator) BeginDrag(value string) {
	c.dragging = value
}

func (c *Coordinator) CancelDrag() {
	c.dragging = ""
}

// DropOn ends a drag over a left-hand slot and returns the intent to
// dispatch. ok is false when nothing was being dragged.
func (c *Coordinator) DropOn(key string) (quiz.Event, bool) {
	if c.dragging == "" {
		return nil, false
	}
	value := c.dragging
	c.dragging = ""
	return quiz.AssignPair{Key: key, Value: value}, true
}

func (c *Coordinator) Render(s quiz.Snapshot) ViewModel {
	vm := ViewModel{
		Progress:    c.progress(s.Number),
		Locked:      s.AnswerLocked,
		Retryable:   s.Retryable,
		RetryLabel:  c.msgs.Retry,
		SubmitLabel: c.msgs.Submit,
	}

	switch s.State {
	case quiz.StateCompleted:
		vm.Kind = KindCompleted
		vm.Feedback = c.msgs.Completed
		vm.Tone = ToneSuccess
		return vm
	case quiz.StateBlocked:
		vm.Kind = KindBlocked
		vm.Feedback = c.msgs.Unsupported
		vm.Tone = ToneError
		return vm
	case quiz.StateIdle, quiz.StateLoading:
		if s.Err != nil {
			vm.Kind = KindError
			vm.Feedback = c.msgs.LoadFailed
			vm.Tone = ToneError
			return vm
		}
		vm.Kind = KindLoading
		vm.Feedback = c.msgs.Loading
		return vm
	}

	if s.Question == nil {
		vm.Kind = KindLoading
		vm.Feedback = c.msgs.Loading
		return vm
	}

	q := *s.Question
	vm.Kind = KindQuestion
	vm.Text = q.Text
	vm.MediaURL = q.MediaURL
	vm.SubmitEnabled = s.State == quiz.StatePresenting && s.Pending.Ready && !q.Type.Progressive()
	c.feedback(&vm, s)

	switch q.Type {
	case quiz.SingleChoice:
		vm.SingleChoice = choiceView(q, s.Pending)
	case quiz.TrueFalse:
		vm.TrueFalse = choiceView(q, s.Pending)
	case quiz.Match:
		vm.Match = c.matchView(q, s)
	case quiz.MatchProgressive:
		vm.Progressive = c.progressiveView(q, s)
		if s.State == quiz.StatePresenting && s.Err != nil && len(s.Pending.Resolved) == len(q.Items) {
			vm.SubmitEnabled = true
		}
	}
	return vm
}

func (c *Coordinator) progress(number int) Progress {
	current := number
	if current > c.total {
		current = c.total
	}
	return Progress{Current: current, Total: c.total, Label: fmt.Sprintf(c.msgs.ProgressTemplate, current, c.total)}
}

func (c *Coordinator) feedback(vm *ViewModel, s quiz.Snapshot) {
	if s.Err != nil {
		vm.Feedback = c.msgs.SubmitFailed
		vm.Tone = ToneError
		if errors.Is(s.Err, quiz.ErrMalformedQuestion) {
			vm.Feedback = c.msgs.Unsupported
		}
		return
	}
	if s.LastResult == nil || !s.AnswerLocked {
		return
	}
	if *s.LastResult {
		vm.Feedback, vm.Tone = c.msgs.Correct, ToneSuccess
	} else {
		vm.Feedback, vm.Tone = c.msgs.Wrong, ToneFailure
	}
}

func choiceView(q quiz.Question, p quiz.PendingView) *ChoiceView {
	opts := make([]Option, 0, len(q.Items))
	for _, item := range q.Items {
		opts = append(opts, Option{Key: item.Key, Label: item.Value, Selected: item.Key == p.SelectedKey})
	}
	return &ChoiceView{Options: opts}
}

func (c *Coordinator) matchView(q quiz.Question, s quiz.Snapshot) *MatchView {
	slots := make([]MatchSlot, 0, len(q.Items))
	for _, item := range q.Items {
		value, ok := s.Pending.Assigned[item.Key]
		slot := MatchSlot{Key: item.Key, Value: value, Assigned: ok, Label: value}
		if !ok {
			slot.Label = c.msgs.EmptySlot
		}
		slot.Clearable = ok && s.State == quiz.StatePresenting
		slots = append(slots, slot)
	}
	return &MatchView{
		Slots:    slots,
		Pool:     append([]string(nil), s.Pending.Available...),
		Dragging: c.dragging,
	}
}

func (c *Coordinator) progressiveView(q quiz.Question, s quiz.Snapshot) *ProgressiveView {
	p := s.Pending
	view := &ProgressiveView{Hint: c.msgs.PickPair}

	var flight quiz.Pair
	if p.InFlight != nil {
		flight = *p.InFlight
	}
	wrong := p.Highlight == quiz.HighlightWrong
	correct := p.Highlight == quiz.HighlightCorrect

	for _, item := range q.Items {
		if _, done := p.Resolved[item.Key]; done {
			continue
		}
		inFlight := p.InFlight != nil && item.Key == flight.Key
		view.Keys = append(view.Keys, Chip{
			Label:    item.Key,
			Selected: item.Key == p.SelectedKey,
			Wrong:    inFlight && wrong,
			Correct:  inFlight && correct,
		})
	}
	for _, value := range p.Available {
		inFlight := p.InFlight != nil && value == flight.Value
		view.Values = append(view.Values, Chip{
			Label:    value,
			Selected: value == p.SelectedValue,
			Wrong:    inFlight && wrong,
			Correct:  inFlight && correct,
		})
	}
	for _, key := range p.ResolvedOrder {
		view.Resolved = append(view.Resolved, quiz.Pair{Key: key, Value: p.Resolved[key]})
	}
	return view
}
