package action

import (
	"fmt"
	"time"

	"github.com/danielpatrickdp/obschronicle/internal/channels"
)

// #region kind
// Kind names an action the way chronicle documents spell it.
type Kind string

const (
	KindRemoveActiveChannels    Kind = "remove_active_channels"
	KindAddActiveChannels       Kind = "add_active_channels"
	KindRemoveSimulatedChannels Kind = "remove_simulated_channels"
	KindAddSimulatedChannels    Kind = "add_simulated_channels"
	KindAdjustVariables         Kind = "adjust_channel_dependent_variables"
)

// Kinds lists every supported action kind.
func Kinds() []Kind {
	return []Kind{
		KindRemoveActiveChannels,
		KindAddActiveChannels,
		KindRemoveSimulatedChannels,
		KindAddSimulatedChannels,
		KindAdjustVariables,
	}
}

// #endregion kind

// #region action
// Action is a single chronicle mutation. The set of implementations is closed.
type Action interface {
	Kind() Kind
	// Operand returns the channels the action targets, in declaration order.
	Operand() []int
	sealed()
}

// RemoveActiveChannels deactivates channels that are currently active.
type RemoveActiveChannels struct {
	Channels []int
}

// AddActiveChannels activates channels that are currently simulated.
type AddActiveChannels struct {
	Channels []int
}

// RemoveSimulatedChannels drops channels and their variable values.
type RemoveSimulatedChannels struct {
	Channels []int
}

// AddSimulatedChannels adds channels. Values holds, per existing variable, one
// value per channel in the order of Channels.
type AddSimulatedChannels struct {
	Channels []int
	Values   map[string][]float64
}

// AdjustChannelDependentVariables replaces variable values for Channels.
// Updates holds, per variable, one value per channel in the order of Channels.
type AdjustChannelDependentVariables struct {
	Channels []int
	Updates  map[string][]float64
}

func (RemoveActiveChannels) Kind() Kind            { return KindRemoveActiveChannels }
func (AddActiveChannels) Kind() Kind               { return KindAddActiveChannels }
func (RemoveSimulatedChannels) Kind() Kind         { return KindRemoveSimulatedChannels }
func (AddSimulatedChannels) Kind() Kind            { return KindAddSimulatedChannels }
func (AdjustChannelDependentVariables) Kind() Kind { return KindAdjustVariables }

func (a RemoveActiveChannels) Operand() []int            { return a.Channels }
func (a AddActiveChannels) Operand() []int               { return a.Channels }
func (a RemoveSimulatedChannels) Operand() []int         { return a.Channels }
func (a AddSimulatedChannels) Operand() []int            { return a.Channels }
func (a AdjustChannelDependentVariables) Operand() []int { return a.Channels }

func (RemoveActiveChannels) sealed()            {}
func (AddActiveChannels) sealed()               {}
func (RemoveSimulatedChannels) sealed()         {}
func (AddSimulatedChannels) sealed()            {}
func (AdjustChannelDependentVariables) sealed() {}

// #endregion action

// #region build
// Build constructs the action of the given kind. spec is a channel
// specification accepted by channels.Parse; values is ignored by kinds that
// carry no variable values.
func Build(kind Kind, spec any, values map[string][]float64) (Action, error) {
	ids, err := channels.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", kind, err)
	}
	ids = channels.Unique(ids)

	switch kind {
	case KindRemoveActiveChannels:
		return RemoveActiveChannels{Channels: ids}, nil
	case KindAddActiveChannels:
		return AddActiveChannels{Channels: ids}, nil
	case KindRemoveSimulatedChannels:
		return RemoveSimulatedChannels{Channels: ids}, nil
	case KindAddSimulatedChannels:
		return AddSimulatedChannels{Channels: ids, Values: values}, nil
	case KindAdjustVariables:
		return AdjustChannelDependentVariables{Channels: ids, Updates: values}, nil
	default:
		return nil, fmt.Errorf("unknown action kind %q", kind)
	}
}

// #endregion build

// #region dated
// Dated is a validated chronicle entry.
type Dated struct {
	Date          time.Time
	Justification string
	Action        Action
}

// #endregion dated
