package resolve

import (
	"errors"
	"fmt"
	"math"

	"github.com/danielpatrickdp/obschronicle/internal/state"
)

// ErrUnknownAggregationPolicy is returned for a variable whose policy is not min or max.
var ErrUnknownAggregationPolicy = errors.New("unknown aggregation policy")

// #region configuration
// Configuration is the instrument configuration to use for a whole window.
// Active and every Variables entry are aligned 1:1 with Simulated.
type Configuration struct {
	Simulated []int                `json:"simulated_channels"`
	Active    []int                `json:"active_channels"` // +1 active, -1 not
	Variables map[string][]float64 `json:"variables"`
}

// ActiveChannels returns the channels flagged +1.
func (c Configuration) ActiveChannels() []int {
	out := make([]int, 0, len(c.Simulated))
	for i, ch := range c.Simulated {
		if c.Active[i] == 1 {
			out = append(out, ch)
		}
	}
	return out
}

// #endregion configuration

// #region resolve
// Resolve merges the states at the two window boundaries. A channel simulated
// at either boundary is listed; it is flagged active only if it is active and
// simulated at both.
// Variable values seen at both boundaries are combined with the variable's
// policy; a value seen at one boundary only is used as is.
func Resolve(begin, final state.ObservingSystemState) (Configuration, error) {
	simulated := begin.SimulatedSet().Union(final.SimulatedSet()).Sorted()
	active := begin.Active.Intersect(begin.SimulatedSet()).
		Intersect(final.Active).
		Intersect(final.SimulatedSet())

	cfg := Configuration{
		Simulated: simulated,
		Active:    make([]int, len(simulated)),
		Variables: make(map[string][]float64),
	}
	for i, ch := range simulated {
		cfg.Active[i] = -1
		if active.Contains(ch) {
			cfg.Active[i] = 1
		}
	}

	for _, name := range begin.VariableNames() {
		fv, ok := final.Variables[name]
		if !ok {
			continue
		}
		policy := begin.Variables[name].Policy
		if fv.Policy != policy {
			return Configuration{}, fmt.Errorf("variable %q changed policy from %q to %q within the window: %w",
				name, policy, fv.Policy, ErrUnknownAggregationPolicy)
		}
		values := make([]float64, len(simulated))
		for i, ch := range simulated {
			a, okA := begin.ValueAt(name, ch)
			b, okB := final.ValueAt(name, ch)
			switch {
			case okA && okB:
				v, err := Aggregate(policy, a, b)
				if err != nil {
					return Configuration{}, fmt.Errorf("variable %q channel %d: %w", name, ch, err)
				}
				values[i] = v
			case okA:
				values[i] = a
			case okB:
				values[i] = b
			default:
				return Configuration{}, fmt.Errorf("variable %q has no value for channel %d: %w",
					name, ch, state.ErrVariableCountMismatch)
			}
		}
		if err := checkPolicy(policy); err != nil {
			return Configuration{}, fmt.Errorf("variable %q: %w", name, err)
		}
		cfg.Variables[name] = values
	}
	return cfg, nil
}

// #endregion resolve

// #region aggregate
// Aggregate combines a begin and a final value.
func Aggregate(p state.Policy, a, b float64) (float64, error) {
	switch p {
	case state.PolicyMin:
		return math.Min(a, b), nil
	case state.PolicyMax:
		return math.Max(a, b), nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownAggregationPolicy, p)
	}
}

func checkPolicy(p state.Policy) error {
	_, err := Aggregate(p, 0, 0)
	return err
}

// #endregion aggregate
