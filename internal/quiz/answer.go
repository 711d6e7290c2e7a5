package quiz

import "errors"

var (
	ErrUnknownKey      = errors.New("unknown key")
	ErrUnknownValue    = errors.New("unknown value")
	ErrAlreadyResolved = errors.New("pair already resolved")
)

// ChoiceBoard holds the single selected key of a SingleChoice or TrueFalse
// question.
type ChoiceBoard struct {
	items    []Item
	selected string
}

func newChoiceBoard(items []Item) *ChoiceBoard {
	return &ChoiceBoard{items: items}
}

func (b *ChoiceBoard) Select(key string) error {
	if !hasKey(b.items, key) {
		return ErrUnknownKey
	}
	b.selected = key
	return nil
}

func (b *ChoiceBoard) Selected() (string, bool) {
	return b.selected, b.selected != ""
}

func (b *ChoiceBoard) Ready() bool {
	return b.selected != ""
}

// Answer is the {key: value} map sent to SubmitFull.
func (b *ChoiceBoard) Answer() map[string]string {
	for _, item := range b.items {
		if item.Key == b.selected {
			return map[string]string{item.Key: item.Value}
		}
	}
	return map[string]string{}
}

// MatchBoard is the batch matching answer. Each right-hand value sits in at
// most one slot; values not in a slot form the available pool.
type MatchBoard struct {
	items    []Item
	slots    map[string]string // key -> value
	occupant map[string]string // value -> key
}

func newMatchBoard(items []Item) *MatchBoard {
	return &MatchBoard{
		items:    items,
		slots:    make(map[string]string, len(items)),
		occupant: make(map[string]string, len(items)),
	}
}

// Assign places value into key's slot. A value already sitting elsewhere is
// moved, and whatever key previously held goes back to the pool.
func (b *MatchBoard) Assign(key, value string) error {
	if !hasKey(b.items, key) {
		return ErrUnknownKey
	}
	if !hasValue(b.items, value) {
		return ErrUnknownValue
	}
	if prevKey, ok := b.occupant[value]; ok {
		delete(b.slots, prevKey)
	}
	if prevValue, ok := b.slots[key]; ok {
		delete(b.occupant, prevValue)
	}
	b.slots[key] = value
	b.occupant[value] = key
	return nil
}

func (b *MatchBoard) Remove(key string) {
	value, ok := b.slots[key]
	if !ok {
		return
	}
	delete(b.slots, key)
	delete(b.occupant, value)
}

func (b *MatchBoard) Slot(key string) (string, bool) {
	value, ok := b.slots[key]
	return value, ok
}

// Available lists unassigned values in item order.
func (b *MatchBoard) Available() []string {
	out := make([]string, 0, len(b.items))
	for _, item := range b.items {
		if _, used := b.occupant[item.Value]; !used {
			out = append(out, item.Value)
		}
	}
	return out
}

func (b *MatchBoard) Complete() bool {
	for _, item := range b.items {
		if _, ok := b.slots[item.Key]; !ok {
			return false
		}
	}
	return true
}

func (b *MatchBoard) Ready() bool {
	return b.Complete()
}

func (b *MatchBoard) Pairs() map[string]string {
	out := make(map[string]string, len(b.slots))
	for k, v := range b.slots {
		out[k] = v
	}
	return out
}

// Highlight is the verdict colour shown on a progressive pair under check.
type Highlight int

const (
	HighlightNone Highlight = iota
	HighlightCorrect
	HighlightWrong
)

// ProgressiveBoard tracks progressive matching: the pair being chosen, the
// pair in flight and the resolved pairs, which only ever grow.
type ProgressiveBoard struct {
	items         []Item
	selectedKey   string
	selectedValue string
	inFlight      *Pair
	failed        *Pair
	highlight     Highlight
	resolved      map[string]string
	resolvedOrder []string
}

func newProgressiveBoard(items []Item) *ProgressiveBoard {
	return &ProgressiveBoard{items: items, resolved: make(map[string]string, len(items))}
}

// SelectKey replaces any earlier key choice. Resolved keys cannot be picked.
// A fresh choice also forgets a pair whose check failed.
func (b *ProgressiveBoard) SelectKey(key string) error {
	if !hasKey(b.items, key) {
		return ErrUnknownKey
	}
	if _, done := b.resolved[key]; done {
		return ErrAlreadyResolved
	}
	b.selectedKey = key
	b.failed = nil
	return nil
}

func (b *ProgressiveBoard) SelectValue(value string) error {
	if !hasValue(b.items, value) {
		return ErrUnknownValue
	}
	if b.valueResolved(value) {
		return ErrAlreadyResolved
	}
	b.selectedValue = value
	b.failed = nil
	return nil
}

func (b *ProgressiveBoard) Ready() bool {
	return b.selectedKey != "" && b.selectedValue != ""
}

// Begin moves the current selection in flight and returns it.
func (b *ProgressiveBoard) Begin() Pair {
	p := Pair{Key: b.selectedKey, Value: b.selectedValue}
	b.inFlight = &p
	b.failed = nil
	b.highlight = HighlightNone
	return p
}

// Mark sets the verdict highlight for the in-flight pair.
func (b *ProgressiveBoard) Mark(correct bool) {
	if correct {
		b.highlight = HighlightCorrect
		return
	}
	b.highlight = HighlightWrong
}

// Resolve commits the in-flight pair and clears the selection.
func (b *ProgressiveBoard) Resolve() {
	if b.inFlight != nil {
		if _, done := b.resolved[b.inFlight.Key]; !done {
			b.resolved[b.inFlight.Key] = b.inFlight.Value
			b.resolvedOrder = append(b.resolvedOrder, b.inFlight.Key)
		}
	}
	b.clearSelection()
}

// Reject drops the in-flight pair and clears the selection.
func (b *ProgressiveBoard) Reject() {
	b.clearSelection()
}

// Abort drops the in-flight pair after the check itself failed. The pair is
// kept so Restore can select it again.
func (b *ProgressiveBoard) Abort() {
	if b.inFlight != nil {
		p := *b.inFlight
		b.failed = &p
	}
	b.clearSelection()
}

// Restore selects the pair whose check failed, if any.
func (b *ProgressiveBoard) Restore() bool {
	if b.failed == nil {
		return false
	}
	b.selectedKey, b.selectedValue = b.failed.Key, b.failed.Value
	b.failed = nil
	return true
}

func (b *ProgressiveBoard) clearSelection() {
	b.selectedKey, b.selectedValue = "", ""
	b.inFlight = nil
	b.highlight = HighlightNone
}

func (b *ProgressiveBoard) Done() bool {
	return len(b.resolved) == len(b.items)
}

func (b *ProgressiveBoard) Resolved() map[string]string {
	out := make(map[string]string, len(b.resolved))
	for k, v := range b.resolved {
		out[k] = v
	}
	return out
}

func (b *ProgressiveBoard) UnresolvedKeys() []string {
	out := make([]string, 0, len(b.items))
	for _, item := range b.items {
		if _, done := b.resolved[item.Key]; !done {
			out = append(out, item.Key)
		}
	}
	return out
}

func (b *ProgressiveBoard) UnresolvedValues() []string {
	out := make([]string, 0, len(b.items))
	for _, item := range b.items {
		if !b.valueResolved(item.Value) {
			out = append(out, item.Value)
		}
	}
	return out
}

func (b *ProgressiveBoard) valueResolved(value string) bool {
	for _, v := range b.resolved {
		if v == value {
			return true
		}
	}
	return false
}

// PendingAnswer is the in-progress answer for the current question. Exactly
// one board is non-nil, chosen by the question type.
type PendingAnswer struct {
	Choice      *ChoiceBoard
	Match       *MatchBoard
	Progressive *ProgressiveBoard
}

func newPendingAnswer(q Question) *PendingAnswer {
	switch q.Type {
	case SingleChoice, TrueFalse:
		return &PendingAnswer{Choice: newChoiceBoard(q.Items)}
	case Match:
		return &PendingAnswer{Match: newMatchBoard(q.Items)}
	case MatchProgressive:
		return &PendingAnswer{Progressive: newProgressiveBoard(q.Items)}
	default:
		return &PendingAnswer{}
	}
}

func (p *PendingAnswer) ready() bool {
	switch {
	case p == nil:
		return false
	case p.Choice != nil:
		return p.Choice.Ready()
	case p.Match != nil:
		return p.Match.Ready()
	case p.Progressive != nil:
		return p.Progressive.Ready()
	default:
		return false
	}
}

// PendingView is a read-only copy of a PendingAnswer.
type PendingView struct {
	SelectedKey   string
	SelectedValue string
	Assigned      map[string]string
	Available     []string
	Resolved      map[string]string
	ResolvedOrder []string
	InFlight      *Pair
	Highlight     Highlight
	Ready         bool
}

func (p *PendingAnswer) view() PendingView {
	v := PendingView{Assigned: map[string]string{}, Resolved: map[string]string{}}
	if p == nil {
		return v
	}
	v.Ready = p.ready()
	switch {
	case p.Choice != nil:
		v.SelectedKey = p.Choice.selected
	case p.Match != nil:
		v.Assigned = p.Match.Pairs()
		v.Available = p.Match.Available()
	case p.Progressive != nil:
		b := p.Progressive
		v.SelectedKey = b.selectedKey
		v.SelectedValue = b.selectedValue
		v.Resolved = b.Resolved()
		v.ResolvedOrder = append([]string(nil), b.resolvedOrder...)
		v.Available = b.UnresolvedValues()
		v.Highlight = b.highlight
		if b.inFlight != nil {
			pair := *b.inFlight
			v.InFlight = &pair
		}
	}
	return v
}

func hasKey(items []Item, key string) bool {
	for _, item := range items {
		if item.Key == key {
			return true
		}
	}
	return false
}

func hasValue(items []Item, value string) bool {
	for _, item := range items {
		if item.Value == value {
			return true
		}
	}
	return false
}
