package state

import (
	"fmt"
	"sort"
	"time"

	"github.com/danielpatrickdp/obschronicle/internal/channels"
)

// #region policy
// Policy is the rule used to reconcile a variable's value at the two window
// boundaries.
type Policy string

const (
	PolicyMin Policy = "min"
	PolicyMax Policy = "max"
)

// #endregion policy

// #region variable
// Variable is a channel-dependent parameter. Values is aligned 1:1 with the
// owning state's Simulated list.
type Variable struct {
	Policy Policy    `json:"value_across_window"`
	Values []float64 `json:"values"`
}

// #endregion variable

// #region observing-system-state
// ObservingSystemState is the instrument configuration after some number of
// chronicle actions. Values are treated as immutable: transitions build a new
// state and copy only what they change.
type ObservingSystemState struct {
	Active    channels.Set
	Simulated []int // ascending
	Variables map[string]Variable

	// AsOf is the date of the last applied action, or the commissioning date.
	AsOf time.Time
	// Applied counts the actions folded into this state.
	Applied int
}

// New builds an initial state. declared lists the simulated channels in the
// order the variable values were written; both are reordered ascending.
func New(active channels.Set, declared []int, vars map[string]Variable, asOf time.Time) (ObservingSystemState, error) {
	declared = channels.Unique(declared)
	if len(declared) == 0 && len(vars) > 0 {
		return ObservingSystemState{}, fmt.Errorf("%d variables declared without simulated channels: %w", len(vars), ErrNoSimulatedChannels)
	}
	for name, v := range vars {
		if len(v.Values) != len(declared) {
			return ObservingSystemState{}, fmt.Errorf("variable %q has %d values for %d simulated channels: %w",
				name, len(v.Values), len(declared), ErrVariableCountMismatch)
		}
	}
	simulated := channels.NewSet(declared...)
	if missing := active.Missing(simulated); len(missing) > 0 {
		return ObservingSystemState{}, fmt.Errorf("active channels %v are not simulated: %w", missing, ErrInactiveNotSimulated)
	}

	order := make([]int, len(declared))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return declared[order[a]] < declared[order[b]] })

	s := ObservingSystemState{
		Active:    channels.NewSet(active.Sorted()...),
		Simulated: make([]int, len(declared)),
		Variables: make(map[string]Variable, len(vars)),
		AsOf:      asOf,
	}
	for i, idx := range order {
		s.Simulated[i] = declared[idx]
	}
	for name, v := range vars {
		values := make([]float64, len(declared))
		for i, idx := range order {
			values[i] = v.Values[idx]
		}
		s.Variables[name] = Variable{Policy: v.Policy, Values: values}
	}
	return s, nil
}

// SimulatedSet returns the simulated channels as a set.
func (s ObservingSystemState) SimulatedSet() channels.Set {
	return channels.NewSet(s.Simulated...)
}

// Position returns the index of channel in Simulated, or -1.
func (s ObservingSystemState) Position(channel int) int {
	i := sort.SearchInts(s.Simulated, channel)
	if i < len(s.Simulated) && s.Simulated[i] == channel {
		return i
	}
	return -1
}

// VariableNames returns the variable names in ascending order.
func (s ObservingSystemState) VariableNames() []string {
	names := make([]string, 0, len(s.Variables))
	for name := range s.Variables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValueAt returns the value of variable name for channel.
func (s ObservingSystemState) ValueAt(name string, channel int) (float64, bool) {
	v, ok := s.Variables[name]
	if !ok {
		return 0, false
	}
	i := s.Position(channel)
	if i < 0 || i >= len(v.Values) {
		return 0, false
	}
	return v.Values[i], true
}

// #endregion observing-system-state
