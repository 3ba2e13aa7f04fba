package replay

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidWindow is returned for windows whose final is not after begin.
var ErrInvalidWindow = errors.New("invalid window")

// #region window
// Window is the half-open interval [Begin, Final) a configuration is resolved for.
type Window struct {
	Begin time.Time
	Final time.Time
}

// NewWindow checks that both bounds are set and final > begin.
func NewWindow(begin, final time.Time) (Window, error) {
	if begin.IsZero() || final.IsZero() {
		return Window{}, fmt.Errorf("%w: unset bound (begin=%v final=%v)", ErrInvalidWindow, begin, final)
	}
	if !final.After(begin) {
		return Window{}, fmt.Errorf("%w: final %s is not after begin %s",
			ErrInvalidWindow, final.Format(time.RFC3339), begin.Format(time.RFC3339))
	}
	return Window{Begin: begin.UTC(), Final: final.UTC()}, nil
}

// WithLength builds the window [begin, begin+length).
func WithLength(begin time.Time, length time.Duration) (Window, error) {
	return NewWindow(begin, begin.Add(length))
}

func (w Window) String() string {
	return fmt.Sprintf("[%s, %s)", w.Begin.Format(time.RFC3339), w.Final.Format(time.RFC3339))
}

// #endregion window
