package chronicle

import (
	"fmt"
	"time"

	"github.com/danielpatrickdp/obschronicle/internal/action"
	"github.com/danielpatrickdp/obschronicle/internal/channels"
	"github.com/danielpatrickdp/obschronicle/internal/replay"
	"github.com/danielpatrickdp/obschronicle/internal/state"
	"github.com/danielpatrickdp/obschronicle/internal/timestamp"
)

// #region validate
// Validate checks the chronicle entries of doc and returns them as typed,
// dated actions. Dates must parse and be strictly increasing; ties count as
// out of order. The document is not modified.
func Validate(doc *Document) ([]action.Dated, error) {
	dates := make([]time.Time, len(doc.Chronicles))
	for i, entry := range doc.Chronicles {
		d, err := timestamp.FromConf(entry.ActionDate)
		if err != nil {
			return nil, fmt.Errorf("chronicle entry %d: action_date: %w", i, err)
		}
		dates[i] = d
	}
	for i := 1; i < len(dates); i++ {
		if !dates[i].After(dates[i-1]) {
			return nil, fmt.Errorf("%w: entry %d dated %s is not after entry %d dated %s",
				ErrChronicleOrder, i, dates[i].Format(time.RFC3339), i-1, dates[i-1].Format(time.RFC3339))
		}
	}

	out := make([]action.Dated, len(doc.Chronicles))
	for i, entry := range doc.Chronicles {
		a, err := action.Build(action.Kind(entry.Action), entry.Channels, copyValues(entry.Variables))
		if err != nil {
			return nil, fmt.Errorf("chronicle entry dated %s: %w", dates[i].Format(time.RFC3339), err)
		}
		out[i] = action.Dated{Date: dates[i], Justification: entry.Justification, Action: a}
	}
	return out, nil
}

// NewWindow converts begin and final, each an ISO-8601 string or a
// time.Time, into a window with final > begin.
func NewWindow(begin, final any) (replay.Window, error) {
	b, err := timestamp.FromConf(begin)
	if err != nil {
		return replay.Window{}, fmt.Errorf("%w: begin: %w", ErrInvalidWindow, err)
	}
	f, err := timestamp.FromConf(final)
	if err != nil {
		return replay.Window{}, fmt.Errorf("%w: final: %w", ErrInvalidWindow, err)
	}
	return replay.NewWindow(b, f)
}

// #endregion validate

// #region initial
// Initial builds the state declared at commissioning.
func Initial(doc *Document) (state.ObservingSystemState, error) {
	commissioned, err := timestamp.FromConf(doc.Commissioned)
	if err != nil {
		return state.ObservingSystemState{}, fmt.Errorf("commissioned: %w", err)
	}
	active, err := channels.ParseSet(doc.ActiveChannels)
	if err != nil {
		return state.ObservingSystemState{}, fmt.Errorf("active_channels: %w", err)
	}
	simulated, err := channels.Parse(doc.SimulatedChannels)
	if err != nil {
		return state.ObservingSystemState{}, fmt.Errorf("simulated_channels: %w", err)
	}
	vars := make(map[string]state.Variable, len(doc.Variables))
	for name, v := range doc.Variables {
		vars[name] = state.Variable{Policy: state.Policy(v.ValueAcrossWindow), Values: v.Values}
	}
	s, err := state.New(active, simulated, vars, commissioned)
	if err != nil {
		return state.ObservingSystemState{}, fmt.Errorf("initial declaration: %w", err)
	}
	return s, nil
}

// #endregion initial

func copyValues(in map[string][]float64) map[string][]float64 {
	if in == nil {
		return nil
	}
	out := make(map[string][]float64, len(in))
	for k, v := range in {
		out[k] = append([]float64(nil), v...)
	}
	return out
}
