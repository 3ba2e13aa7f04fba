package replay

import (
	"fmt"
	"time"

	"github.com/danielpatrickdp/obschronicle/internal/action"
	"github.com/danielpatrickdp/obschronicle/internal/state"
)

// #region types
// Phase is the position of the replay cursor relative to the window.
type Phase string

const (
	PhaseBeforeBegin Phase = "before_begin"
	PhaseInWindow    Phase = "in_window"
	PhasePastFinal   Phase = "past_final"
	PhaseDone        Phase = "done"
)

// Step records one applied chronicle action.
type Step struct {
	Date          time.Time
	Kind          action.Kind
	Justification string
	Channels      []int
	Phase         Phase // cursor phase when the action was applied
}

// Result holds the boundary snapshots of one replay.
type Result struct {
	Begin state.ObservingSystemState // state as of Window.Begin
	Final state.ObservingSystemState // state as of Window.Final
	Steps []Step
	// Skipped counts actions dated after Window.Final that were never applied.
	Skipped int
	// Cursor is the phase the walk ended in: PastFinal when it stopped early,
	// Done when it consumed every action.
	Cursor Phase
}

// ActionError wraps an applier failure with the chronicle entry that caused it.
type ActionError struct {
	Date          time.Time
	Kind          action.Kind
	Justification string
	Err           error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("chronicle action %s dated %s: %v", e.Kind, e.Date.Format(time.RFC3339), e.Err)
}

func (e *ActionError) Unwrap() error { return e.Err }

// #endregion types

// #region replay
// Replay walks actions once, in order, starting from initial. actions must
// already be validated as strictly increasing in date. An action dated
// exactly at a window bound is part of the state as of that bound.
func Replay(initial state.ObservingSystemState, actions []action.Dated, w Window) (Result, error) {
	if !w.Final.After(w.Begin) {
		return Result{}, fmt.Errorf("replay %s: %w", w, ErrInvalidWindow)
	}

	current := initial
	cursor := PhaseBeforeBegin
	res := Result{Steps: make([]Step, 0, len(actions))}

	for i, d := range actions {
		if cursor == PhaseBeforeBegin && d.Date.After(w.Begin) {
			res.Begin = current
			cursor = PhaseInWindow
		}
		if d.Date.After(w.Final) {
			res.Final = current
			res.Skipped = len(actions) - i
			res.Cursor = PhasePastFinal
			return res, nil
		}

		next, err := action.Apply(d.Action, current)
		if err != nil {
			return Result{}, &ActionError{
				Date:          d.Date,
				Kind:          d.Action.Kind(),
				Justification: d.Justification,
				Err:           err,
			}
		}
		next.AsOf = d.Date

		res.Steps = append(res.Steps, Step{
			Date:          d.Date,
			Kind:          d.Action.Kind(),
			Justification: d.Justification,
			Channels:      d.Action.Operand(),
			Phase:         cursor,
		})
		current = next
	}

	if cursor == PhaseBeforeBegin {
		res.Begin = current
	}
	res.Final = current
	res.Cursor = PhaseDone
	return res, nil
}

// #endregion replay
