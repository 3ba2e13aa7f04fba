package action

import (
	"fmt"
	"sort"

	"github.com/danielpatrickdp/obschronicle/internal/channels"
	"github.com/danielpatrickdp/obschronicle/internal/state"
)

// #region apply
// Apply is a pure function that computes the state following a. The input
// state is never modified; slices and maps that change are copied, the rest
// is shared with old.
func Apply(a Action, old state.ObservingSystemState) (state.ObservingSystemState, error) {
	var (
		next state.ObservingSystemState
		err  error
	)
	switch act := a.(type) {
	case RemoveActiveChannels:
		next, err = removeActive(act, old)
	case AddActiveChannels:
		next, err = addActive(act, old)
	case RemoveSimulatedChannels:
		next, err = removeSimulated(act, old)
	case AddSimulatedChannels:
		next, err = addSimulated(act, old)
	case AdjustChannelDependentVariables:
		next, err = adjustVariables(act, old)
	default:
		return state.ObservingSystemState{}, fmt.Errorf("unsupported action %T", a)
	}
	if err != nil {
		return state.ObservingSystemState{}, err
	}
	next.Applied = old.Applied + 1
	return next, nil
}

// #endregion apply

// #region active
func removeActive(a RemoveActiveChannels, old state.ObservingSystemState) (state.ObservingSystemState, error) {
	ops := channels.NewSet(a.Channels...)
	if missing := ops.Missing(old.Active); len(missing) > 0 {
		return state.ObservingSystemState{}, fmt.Errorf("remove active channels %v: channels %v are not active: %w",
			a.Channels, missing, state.ErrInvalidStateTransition)
	}
	next := old
	next.Active = old.Active.Minus(ops)
	return next, nil
}

func addActive(a AddActiveChannels, old state.ObservingSystemState) (state.ObservingSystemState, error) {
	ops := channels.NewSet(a.Channels...)
	if missing := ops.Missing(old.SimulatedSet()); len(missing) > 0 {
		return state.ObservingSystemState{}, fmt.Errorf("add active channels %v: channels %v are not simulated: %w",
			a.Channels, missing, state.ErrInvalidStateTransition)
	}
	next := old
	next.Active = old.Active.Union(ops)
	return next, nil
}

// #endregion active

// #region simulated
func addSimulated(a AddSimulatedChannels, old state.ObservingSystemState) (state.ObservingSystemState, error) {
	ops := channels.Unique(a.Channels)
	simulated := old.SimulatedSet()
	if dup := channels.NewSet(ops...).Intersect(simulated); dup.Len() > 0 {
		return state.ObservingSystemState{}, fmt.Errorf("add simulated channels %v: channels %v are already simulated: %w",
			a.Channels, dup.Sorted(), state.ErrInvalidStateTransition)
	}

	for _, name := range sortedKeys(a.Values) {
		if _, ok := old.Variables[name]; !ok {
			return state.ObservingSystemState{}, fmt.Errorf("add simulated channels %v: variable %q: %w",
				a.Channels, name, state.ErrUnknownVariable)
		}
	}
	for _, name := range old.VariableNames() {
		vals, ok := a.Values[name]
		if !ok {
			return state.ObservingSystemState{}, fmt.Errorf("add simulated channels %v: no values for variable %q: %w",
				a.Channels, name, state.ErrMissingVariableValues)
		}
		if len(vals) != len(ops) {
			return state.ObservingSystemState{}, fmt.Errorf("add simulated channels %v: variable %q has %d values for %d channels: %w",
				a.Channels, name, len(vals), len(ops), state.ErrVariableCountMismatch)
		}
	}

	added := make(map[int]int, len(ops)) // channel -> index into supplied values
	for i, ch := range ops {
		added[ch] = i
	}
	merged := simulated.Union(channels.NewSet(ops...)).Sorted()

	next := old
	next.Simulated = merged
	if len(old.Variables) == 0 {
		return next, nil
	}
	next.Variables = make(map[string]state.Variable, len(old.Variables))
	for name, v := range old.Variables {
		values := make([]float64, 0, len(merged))
		for _, ch := range merged {
			if i, ok := added[ch]; ok {
				values = append(values, a.Values[name][i])
				continue
			}
			values = append(values, v.Values[old.Position(ch)])
		}
		next.Variables[name] = state.Variable{Policy: v.Policy, Values: values}
	}
	return next, nil
}

// removeSimulated leaves Active untouched; a channel removed here while still
// active is dropped from the active flags when the window is resolved.
func removeSimulated(a RemoveSimulatedChannels, old state.ObservingSystemState) (state.ObservingSystemState, error) {
	ops := channels.NewSet(a.Channels...)
	if missing := ops.Missing(old.SimulatedSet()); len(missing) > 0 {
		return state.ObservingSystemState{}, fmt.Errorf("remove simulated channels %v: channels %v are not simulated: %w",
			a.Channels, missing, state.ErrInvalidStateTransition)
	}

	keep := make([]int, 0, len(old.Simulated))
	kept := make([]int, 0, len(old.Simulated)) // positions in old.Simulated
	for i, ch := range old.Simulated {
		if !ops.Contains(ch) {
			keep = append(keep, ch)
			kept = append(kept, i)
		}
	}

	next := old
	next.Simulated = keep
	if len(old.Variables) == 0 {
		return next, nil
	}
	next.Variables = make(map[string]state.Variable, len(old.Variables))
	for name, v := range old.Variables {
		values := make([]float64, len(kept))
		for j, i := range kept {
			values[j] = v.Values[i]
		}
		next.Variables[name] = state.Variable{Policy: v.Policy, Values: values}
	}
	return next, nil
}

// #endregion simulated

// #region variables
func adjustVariables(a AdjustChannelDependentVariables, old state.ObservingSystemState) (state.ObservingSystemState, error) {
	if len(old.Variables) == 0 {
		return state.ObservingSystemState{}, fmt.Errorf("adjust variables for channels %v: %w", a.Channels, state.ErrNoVariablesDefined)
	}
	names := sortedKeys(a.Updates)
	for _, name := range names {
		if _, ok := old.Variables[name]; !ok {
			return state.ObservingSystemState{}, fmt.Errorf("adjust variables for channels %v: variable %q: %w",
				a.Channels, name, state.ErrUnknownVariable)
		}
	}
	ops := channels.Unique(a.Channels)
	if missing := channels.NewSet(ops...).Missing(old.SimulatedSet()); len(missing) > 0 {
		return state.ObservingSystemState{}, fmt.Errorf("adjust variables: channels %v are not simulated: %w",
			missing, state.ErrInvalidStateTransition)
	}
	for _, name := range names {
		if n := len(a.Updates[name]); n != len(ops) {
			return state.ObservingSystemState{}, fmt.Errorf("adjust variables: variable %q has %d values for %d channels: %w",
				name, n, len(ops), state.ErrVariableCountMismatch)
		}
	}

	next := old
	next.Variables = make(map[string]state.Variable, len(old.Variables))
	for name, v := range old.Variables {
		next.Variables[name] = v
	}
	for _, name := range names {
		v := old.Variables[name]
		values := make([]float64, len(v.Values))
		copy(values, v.Values)
		for i, ch := range ops {
			values[old.Position(ch)] = a.Updates[name][i]
		}
		next.Variables[name] = state.Variable{Policy: v.Policy, Values: values}
	}
	return next, nil
}

// #endregion variables

func sortedKeys(m map[string][]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
