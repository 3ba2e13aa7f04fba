package resolve

import (
	"errors"
	"reflect"
	"testing"

	"github.com/danielpatrickdp/obschronicle/internal/channels"
	"github.com/danielpatrickdp/obschronicle/internal/state"
)

func snapshot(active []int, simulated []int, vars map[string]state.Variable) state.ObservingSystemState {
	return state.ObservingSystemState{
		Active:    channels.NewSet(active...),
		Simulated: simulated,
		Variables: vars,
	}
}

func TestResolve_IdenticalSnapshots(t *testing.T) {
	s := snapshot([]int{3}, []int{1, 2, 3}, map[string]state.Variable{
		"err0": {Policy: state.PolicyMax, Values: []float64{1, 2, 3}},
	})
	cfg, err := Resolve(s, s)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !reflect.DeepEqual(cfg.Active, []int{-1, -1, 1}) {
		t.Fatalf("active = %v", cfg.Active)
	}
	if !reflect.DeepEqual(cfg.Simulated, []int{1, 2, 3}) {
		t.Fatalf("simulated = %v", cfg.Simulated)
	}
	if !reflect.DeepEqual(cfg.Variables["err0"], []float64{1, 2, 3}) {
		t.Fatalf("err0 = %v", cfg.Variables["err0"])
	}
	if !reflect.DeepEqual(cfg.ActiveChannels(), []int{3}) {
		t.Fatalf("ActiveChannels = %v", cfg.ActiveChannels())
	}
}

func TestResolve_Aggregation(t *testing.T) {
	begin := snapshot([]int{1, 2}, []int{1, 2}, map[string]state.Variable{
		"err0": {Policy: state.PolicyMax, Values: []float64{1.0, 4.0}},
		"bias": {Policy: state.PolicyMin, Values: []float64{0.5, 0.1}},
	})
	final := snapshot([]int{1}, []int{1, 2}, map[string]state.Variable{
		"err0": {Policy: state.PolicyMax, Values: []float64{3.0, 2.0}},
		"bias": {Policy: state.PolicyMin, Values: []float64{0.2, 0.9}},
	})
	cfg, err := Resolve(begin, final)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !reflect.DeepEqual(cfg.Variables["err0"], []float64{3.0, 4.0}) {
		t.Errorf("max aggregation = %v", cfg.Variables["err0"])
	}
	if !reflect.DeepEqual(cfg.Variables["bias"], []float64{0.2, 0.1}) {
		t.Errorf("min aggregation = %v", cfg.Variables["bias"])
	}
	if !reflect.DeepEqual(cfg.Active, []int{1, -1}) {
		t.Errorf("active must be the intersection, got %v", cfg.Active)
	}
}

func TestResolve_ChannelAddedMidWindow(t *testing.T) {
	begin := snapshot([]int{1, 2, 3}, []int{1, 2, 3}, map[string]state.Variable{
		"err0": {Policy: state.PolicyMax, Values: []float64{1, 1, 1}},
	})
	final := snapshot([]int{1, 2, 3, 4}, []int{1, 2, 3, 4}, map[string]state.Variable{
		"err0": {Policy: state.PolicyMax, Values: []float64{1, 1, 1, 1.01}},
	})
	cfg, err := Resolve(begin, final)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !reflect.DeepEqual(cfg.Simulated, []int{1, 2, 3, 4}) {
		t.Fatalf("simulated = %v", cfg.Simulated)
	}
	if !reflect.DeepEqual(cfg.Active, []int{1, 1, 1, -1}) {
		t.Fatalf("active = %v", cfg.Active)
	}
	if got := cfg.Variables["err0"][3]; got != 1.01 {
		t.Fatalf("one-sided value = %v, want 1.01", got)
	}
}

func TestResolve_ActiveButNotSimulatedIsDropped(t *testing.T) {
	// remove_simulated_channels leaves the active set alone.
	s := snapshot([]int{1, 2}, []int{1}, nil)
	cfg, err := Resolve(s, s)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !reflect.DeepEqual(cfg.Simulated, []int{1}) || !reflect.DeepEqual(cfg.Active, []int{1}) {
		t.Fatalf("unexpected configuration: %+v", cfg)
	}
}

func TestResolve_RemovedFromSimulatedMidWindow(t *testing.T) {
	begin := snapshot([]int{1, 2, 3}, []int{1, 2, 3}, map[string]state.Variable{
		"err0": {Policy: state.PolicyMax, Values: []float64{1, 2, 3}},
	})
	// channel 3 leaves the simulated list but stays in the active set
	final := snapshot([]int{1, 2, 3}, []int{1, 2}, map[string]state.Variable{
		"err0": {Policy: state.PolicyMax, Values: []float64{1, 2}},
	})
	cfg, err := Resolve(begin, final)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !reflect.DeepEqual(cfg.Simulated, []int{1, 2, 3}) {
		t.Fatalf("simulated = %v", cfg.Simulated)
	}
	if !reflect.DeepEqual(cfg.Active, []int{1, 1, -1}) {
		t.Fatalf("active = %v, want channel 3 inactive", cfg.Active)
	}
	if got := cfg.Variables["err0"][2]; got != 3 {
		t.Fatalf("one-sided value = %v, want 3", got)
	}
}

func TestResolve_UnknownPolicy(t *testing.T) {
	s := snapshot(nil, []int{1}, map[string]state.Variable{
		"err0": {Policy: "mean", Values: []float64{1}},
	})
	if _, err := Resolve(s, s); !errors.Is(err, ErrUnknownAggregationPolicy) {
		t.Fatalf("expected ErrUnknownAggregationPolicy, got %v", err)
	}
}

func TestAggregate(t *testing.T) {
	if v, _ := Aggregate(state.PolicyMax, 1, 2); v != 2 {
		t.Errorf("max = %v", v)
	}
	if v, _ := Aggregate(state.PolicyMin, 1, 2); v != 1 {
		t.Errorf("min = %v", v)
	}
	if _, err := Aggregate("", 1, 2); !errors.Is(err, ErrUnknownAggregationPolicy) {
		t.Errorf("expected ErrUnknownAggregationPolicy, got %v", err)
	}
}
