package userclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"lesson-quiz/internal/quiz"
	"lesson-quiz/internal/quizview"
)

var errLeave = errors.New("leave quiz")

// runQuiz mounts a quiz session for scope and drives it from terminal input
// until the scope completes, gets blocked or the user goes back. Leaving
// closes the session, which cancels whatever is still in flight.
func (a *app) runQuiz(ctx context.Context, scope quiz.Scope) (bool, error) {
	session := quiz.Open(ctx, scope, a.client, a.client,
		quiz.WithLogger(a.log),
		quiz.WithDelays(a.delays))
	defer session.Close()

	coord := quizview.NewCoordinator(a.msgs, quizview.DefaultTotal)
	printQuizHelp(a.out)

	for {
		snap, err := a.awaitInput(ctx, session, coord)
		if err != nil {
			return false, err
		}
		vm := coord.Render(snap)
		renderQuiz(a.out, vm)

		switch vm.Kind {
		case quizview.KindCompleted:
			return true, nil
		case quizview.KindBlocked:
			return false, nil
		}

		fmt.Fprint(a.out, "quiz> ")
		line, err := a.reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				return false, nil
			}
			return false, err
		}

		events, err := quizInput(strings.TrimSpace(line), vm, coord)
		if errors.Is(err, errLeave) {
			return false, nil
		}
		if err != nil {
			fmt.Fprintf(a.out, "%v\n", err)
			continue
		}
		for _, ev := range events {
			if _, err := session.Apply(ctx, ev); err != nil {
				return false, err
			}
		}
	}
}

// awaitInput blocks until the session can take input again, printing the
// verdict while an answer is being shown.
func (a *app) awaitInput(ctx context.Context, session *quiz.Session, coord *quizview.Coordinator) (quiz.Snapshot, error) {
	announced := false
	for {
		snap := session.Snapshot()
		if inputReady(snap) {
			return snap, nil
		}
		if snap.AnswerLocked && snap.LastResult != nil && !announced {
			fmt.Fprintln(a.out, coord.Render(snap).Feedback)
			announced = true
		}
		if !snap.AnswerLocked {
			announced = false
		}
		select {
		case <-session.Updates():
		case <-ctx.Done():
			return snap, ctx.Err()
		}
	}
}

func inputReady(s quiz.Snapshot) bool {
	switch s.State {
	case quiz.StatePresenting, quiz.StateCompleted, quiz.StateBlocked:
		return true
	case quiz.StateLoading:
		return s.Retryable
	default:
		return false
	}
}

func quizInput(line string, vm quizview.ViewModel, coord *quizview.Coordinator) ([]quiz.Event, error) {
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) == 0 {
		return nil, fmt.Errorf("type a choice, 'retry' or 'back'")
	}
	switch fields[0] {
	case "back":
		return nil, errLeave
	case "retry":
		return []quiz.Event{quiz.Retry{}}, nil
	case "submit":
		return []quiz.Event{quiz.Submit{}}, nil
	}
	if vm.Kind != quizview.KindQuestion {
		return nil, fmt.Errorf("type 'retry' or 'back'")
	}

	switch {
	case vm.SingleChoice != nil || vm.TrueFalse != nil:
		view := vm.SingleChoice
		if view == nil {
			view = vm.TrueFalse
		}
		i, err := parseIndex(fields[0], len(view.Options))
		if err != nil {
			return nil, err
		}
		return []quiz.Event{quiz.SelectKey{Key: view.Options[i].Key}, quiz.Submit{}}, nil

	case vm.Match != nil:
		if fields[0] == "clear" && len(fields) == 2 {
			i, err := parseIndex(fields[1], len(vm.Match.Slots))
			if err != nil {
				return nil, err
			}
			return []quiz.Event{quiz.RemovePair{Key: vm.Match.Slots[i].Key}}, nil
		}
		if len(fields) != 2 {
			return nil, fmt.Errorf("usage: <slot> <value>, clear <slot> or submit")
		}
		slot, err := parseIndex(fields[0], len(vm.Match.Slots))
		if err != nil {
			return nil, err
		}
		value, err := parseIndex(fields[1], len(vm.Match.Pool))
		if err != nil {
			return nil, err
		}
		coord.BeginDrag(vm.Match.Pool[value])
		ev, ok := coord.DropOn(vm.Match.Slots[slot].Key)
		if !ok {
			return nil, fmt.Errorf("nothing to drop")
		}
		return []quiz.Event{ev}, nil

	case vm.Progressive != nil:
		if len(fields) != 2 {
			return nil, fmt.Errorf("usage: <key> <value>")
		}
		k, err := parseIndex(fields[0], len(vm.Progressive.Keys))
		if err != nil {
			return nil, err
		}
		v, err := parseIndex(fields[1], len(vm.Progressive.Values))
		if err != nil {
			return nil, err
		}
		return []quiz.Event{
			quiz.SelectKey{Key: vm.Progressive.Keys[k].Label},
			quiz.SelectValue{Value: vm.Progressive.Values[v].Label},
		}, nil
	}
	return nil, fmt.Errorf("this question cannot be answered here")
}

func renderQuiz(out io.Writer, vm quizview.ViewModel) {
	switch vm.Kind {
	case quizview.KindLoading:
		fmt.Fprintln(out, vm.Feedback)
		return
	case quizview.KindCompleted, quizview.KindBlocked:
		fmt.Fprintln(out, vm.Feedback)
		return
	case quizview.KindError:
		fmt.Fprintf(out, "%s (%s / back)\n", vm.Feedback, strings.ToLower(vm.RetryLabel))
		return
	}

	fmt.Fprintf(out, "\n[%s] %s\n", vm.Progress.Label, vm.Text)
	if vm.MediaURL != "" {
		fmt.Fprintf(out, "media: %s\n", vm.MediaURL)
	}

	switch {
	case vm.SingleChoice != nil:
		renderOptions(out, vm.SingleChoice)
	case vm.TrueFalse != nil:
		renderOptions(out, vm.TrueFalse)
	case vm.Match != nil:
		for i, slot := range vm.Match.Slots {
			fmt.Fprintf(out, "  %d) %s -> %s\n", i+1, slot.Key, slot.Label)
		}
		fmt.Fprint(out, "  pool:")
		for i, value := range vm.Match.Pool {
			fmt.Fprintf(out, " %d) %s", i+1, value)
		}
		fmt.Fprintln(out)
		if vm.SubmitEnabled {
			fmt.Fprintf(out, "  ready: type 'submit' (%s)\n", vm.SubmitLabel)
		}
	case vm.Progressive != nil:
		for _, pair := range vm.Progressive.Resolved {
			fmt.Fprintf(out, "  ok  %s = %s\n", pair.Key, pair.Value)
		}
		fmt.Fprintf(out, "  %s\n  keys:  ", vm.Progressive.Hint)
		for i, chip := range vm.Progressive.Keys {
			fmt.Fprintf(out, " %d) %s", i+1, chip.Label)
		}
		fmt.Fprint(out, "\n  values:")
		for i, chip := range vm.Progressive.Values {
			fmt.Fprintf(out, " %d) %s", i+1, chip.Label)
		}
		fmt.Fprintln(out)
	}

	if vm.Feedback != "" {
		fmt.Fprintln(out, vm.Feedback)
		if vm.Retryable {
			fmt.Fprintf(out, "(%s: type 'retry')\n", vm.RetryLabel)
		}
	}
}

func renderOptions(out io.Writer, view *quizview.ChoiceView) {
	for i, opt := range view.Options {
		fmt.Fprintf(out, "  %d) %s\n", i+1, opt.Label)
	}
}
