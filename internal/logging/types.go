package logging

import "time"

// #region step-entry
// StepEntry is a single row in the replay_log table.
type StepEntry struct {
	ResolutionID  string
	ActionDate    time.Time
	ActionKind    string
	Justification string
	Channels      string // compact codec form, e.g. "1-3,7"
	Phase         string // "before_begin" | "in_window"
	CreatedAt     time.Time
}

// #endregion step-entry
