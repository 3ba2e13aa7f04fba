package chronicle

import (
	"errors"

	"github.com/danielpatrickdp/obschronicle/internal/channels"
	"github.com/danielpatrickdp/obschronicle/internal/replay"
	"github.com/danielpatrickdp/obschronicle/internal/resolve"
	"github.com/danielpatrickdp/obschronicle/internal/state"
	"github.com/danielpatrickdp/obschronicle/internal/timestamp"
)

var (
	// ErrChronicleOrder is returned when action dates are not strictly increasing.
	ErrChronicleOrder = errors.New("chronicle order")
	// ErrMalformedDocument is returned when a document fails structural checks.
	ErrMalformedDocument = errors.New("malformed chronicle document")
	// ErrInvalidWindow aliases replay.ErrInvalidWindow.
	ErrInvalidWindow = replay.ErrInvalidWindow
)

// #region classify
var kinds = []struct {
	name string
	err  error
}{
	{"chronicle_order", ErrChronicleOrder},
	{"invalid_window", ErrInvalidWindow},
	{"malformed_channel_spec", channels.ErrMalformedChannelSpec},
	{"malformed_timestamp", timestamp.ErrMalformedTimestamp},
	{"missing_variable_values", state.ErrMissingVariableValues},
	{"variable_count_mismatch", state.ErrVariableCountMismatch},
	{"unknown_variable", state.ErrUnknownVariable},
	{"no_variables_defined", state.ErrNoVariablesDefined},
	{"invalid_state_transition", state.ErrInvalidStateTransition},
	{"unknown_aggregation_policy", resolve.ErrUnknownAggregationPolicy},
	{"malformed_document", ErrMalformedDocument},
}

// Classify returns a stable name for the kind of err, "" for nil and
// "internal" for errors outside the chronicle taxonomy. Window errors are
// classified before the timestamp errors they may wrap.
func Classify(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return "internal"
}

// IsDataError reports whether err belongs to the chronicle taxonomy, i.e. the
// input document or window is at fault.
func IsDataError(err error) bool {
	c := Classify(err)
	return c != "" && c != "internal"
}

// #endregion classify
