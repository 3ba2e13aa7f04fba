package rpc

import (
	"fmt"
	"sort"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/obschronicle/internal/chronicle"
	"github.com/danielpatrickdp/obschronicle/internal/resolve"
)

// #region encode
func encodeOutcome(observer string, out chronicle.Outcome) (*structpb.Struct, error) {
	vars := make(map[string]any, len(out.Config.Variables))
	for name, values := range out.Config.Variables {
		vars[name] = floats(values)
	}
	return structpb.NewStruct(map[string]any{
		"observer":           observer,
		"window_begin":       out.Window.Begin.Format(time.RFC3339),
		"window_final":       out.Window.Final.Format(time.RFC3339),
		"simulated_channels": ints(out.Config.Simulated),
		"active_channels":    ints(out.Config.Active),
		"variables":          vars,
		"steps_applied":      len(out.Replay.Steps),
	})
}

func ints(in []int) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}

func floats(in []float64) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}

// #endregion encode

// #region decode
// Resolution is the decoded response of a Resolve call.
type Resolution struct {
	Observer     string
	WindowBegin  time.Time
	WindowFinal  time.Time
	Config       resolve.Configuration
	StepsApplied int
}

func decodeResolution(s *structpb.Struct) (Resolution, error) {
	f := s.GetFields()
	var r Resolution
	var err error
	r.Observer = f["observer"].GetStringValue()
	if r.WindowBegin, err = time.Parse(time.RFC3339, f["window_begin"].GetStringValue()); err != nil {
		return Resolution{}, fmt.Errorf("window_begin: %w", err)
	}
	if r.WindowFinal, err = time.Parse(time.RFC3339, f["window_final"].GetStringValue()); err != nil {
		return Resolution{}, fmt.Errorf("window_final: %w", err)
	}
	r.Config.Simulated = decodeInts(f["simulated_channels"])
	r.Config.Active = decodeInts(f["active_channels"])
	if len(r.Config.Active) != len(r.Config.Simulated) {
		return Resolution{}, fmt.Errorf("active_channels has %d entries for %d simulated channels",
			len(r.Config.Active), len(r.Config.Simulated))
	}
	r.Config.Variables = make(map[string][]float64)
	vars := f["variables"].GetStructValue().GetFields()
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		list := vars[name].GetListValue().GetValues()
		values := make([]float64, len(list))
		for i, v := range list {
			values[i] = v.GetNumberValue()
		}
		r.Config.Variables[name] = values
	}
	r.StepsApplied = int(f["steps_applied"].GetNumberValue())
	return r, nil
}

func decodeInts(v *structpb.Value) []int {
	list := v.GetListValue().GetValues()
	out := make([]int, len(list))
	for i, e := range list {
		out[i] = int(e.GetNumberValue())
	}
	return out
}

// #endregion decode
