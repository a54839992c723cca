package agents

import (
	"testing"

	"rigwatch/pkg/features"
	"rigwatch/pkg/telemetry"
)

func nominalReading() telemetry.Reading {
	return features.Derive(telemetry.Reading{
		WOB:      25,
		RPM:      120,
		Torque:   10,
		ROP:      50,
		SPP:      3500,
		Depth:    10000,
		ECD:      12.5,
		HookLoad: 200,
		FlowRate: 600,
	})
}

func riskAgents() []Agent {
	return []Agent{
		NewMechanicalSticking(0.8),
		NewDifferentialSticking(0.7),
		NewHoleCleaning(0.75),
		NewWashoutMudLosses(0.8),
	}
}

func TestProbabilityAlwaysBounded(t *testing.T) {
	readings := []telemetry.Reading{
		{}, // all zero
		nominalReading(),
		features.Derive(telemetry.Reading{WOB: 80, RPM: 300, Torque: 90, ROP: 300, Depth: 25000, ECD: 19, HookLoad: 900, FlowRate: 100, SPP: 6000}),
		features.Derive(telemetry.Reading{WOB: -5, RPM: -10, Torque: -3, ROP: -1, Depth: -100, ECD: -2, HookLoad: -50, FlowRate: -300, SPP: -10}),
	}
	for _, agent := range riskAgents() {
		for i, r := range readings {
			res := agent.Predict(r)
			if res.Probability < 0 || res.Probability > 1 {
				t.Errorf("%s reading %d: probability %v out of [0,1]", agent.Kind(), i, res.Probability)
			}
		}
	}
}

func TestZeroFlowRateDoesNotPanic(t *testing.T) {
	r := nominalReading()
	r.FlowRate = 0

	for _, agent := range []Agent{NewHoleCleaning(0.75), NewDifferentialSticking(0.7)} {
		res := agent.Predict(r)
		if res.Probability < 0 || res.Probability > 1 {
			t.Errorf("%s: probability %v out of range", agent.Kind(), res.Probability)
		}
		for _, f := range res.Factors {
			if f.Name == "Low Flow Rate" {
				t.Errorf("%s: zero flow rate must resolve to fallback 0, not a low-flow factor", agent.Kind())
			}
		}
	}
}

func TestDifferentialStickingMonotonicInPressure(t *testing.T) {
	agent := NewDifferentialSticking(0.7)
	prev := -1.0
	for _, dp := range []float64{200, 450, 700, 950, 1200} {
		r := nominalReading()
		r.DifferentialPressure = dp
		p := agent.Predict(r).Probability
		if p < prev {
			t.Fatalf("probability decreased at dp=%v: %v < %v", dp, p, prev)
		}
		prev = p
	}
}

func TestSensitivityRaisesProbability(t *testing.T) {
	r := nominalReading()
	r.DifferentialPressure = 800
	r.ECD = 13.5

	low := NewDifferentialSticking(0.2).Predict(r).Probability
	high := NewDifferentialSticking(0.9).Predict(r).Probability
	if high <= low {
		t.Errorf("higher sensitivity should not lower probability: %v <= %v", high, low)
	}
}

func TestMechanicalStickingFlagsDrag(t *testing.T) {
	r := nominalReading()
	r.DragFactor = 0.9
	res := NewMechanicalSticking(0.8).Predict(r)
	if res.Probability <= 0 {
		t.Fatal("expected nonzero probability with high drag")
	}
	found := false
	for _, f := range res.Factors {
		if f.Name == "High Drag Factor" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected High Drag Factor in %v", res.Factors)
	}
	if len(res.Recommendations) == 0 {
		t.Error("expected recommendations for high drag")
	}
}

func TestWashoutIssueTypeSelection(t *testing.T) {
	t.Run("spp collapse picks washout", func(t *testing.T) {
		r := nominalReading()
		r.Stats = map[telemetry.Param]telemetry.Stat{
			telemetry.ParamSPP:      {Avg: 3500},
			telemetry.ParamFlowRate: {Avg: 600},
			telemetry.ParamTorque:   {Avg: 10},
		}
		r.Deltas.SPP = -500
		r.Deltas.FlowRate = 15

		res := NewWashoutMudLosses(0.8).Predict(r)
		if res.IssueType != IssueWashout {
			t.Errorf("issue type = %q, want %q", res.IssueType, IssueWashout)
		}
	})

	t.Run("flow loss with high ecd picks mud losses", func(t *testing.T) {
		r := nominalReading()
		r.ECD = 15
		r.Stats = map[telemetry.Param]telemetry.Stat{
			telemetry.ParamSPP:      {Avg: 3500},
			telemetry.ParamFlowRate: {Avg: 600},
			telemetry.ParamTorque:   {Avg: 10},
		}
		r.Deltas.FlowRate = -80
		r.Deltas.SPP = -40

		res := NewWashoutMudLosses(0.8).Predict(r)
		if res.IssueType != IssueMudLosses {
			t.Errorf("issue type = %q, want %q", res.IssueType, IssueMudLosses)
		}
		if res.Probability <= 0.3 {
			t.Errorf("expected elevated probability, got %v", res.Probability)
		}
	})
}

func TestGuardConvertsPanicToDegradedResult(t *testing.T) {
	res := guard("test_agent", func() Result { panic("bad input") })
	if res.Probability != 0 {
		t.Errorf("probability = %v, want 0", res.Probability)
	}
	if len(res.Recommendations) == 0 || res.Recommendations[0] != "Error in prediction model" {
		t.Errorf("recommendations = %v", res.Recommendations)
	}
}

func TestStationaryFactorFromWindow(t *testing.T) {
	agent := NewDifferentialSticking(0.7)
	r := nominalReading()
	rpm := make([]float64, 12)
	for i := range rpm {
		if i < 2 {
			rpm[i] = 120 // rotating at the start of the window
		}
	}
	r.Window = &telemetry.Window{RPM: rpm, WOB: make([]float64, 12)}

	if got := agent.stationaryFactor(r); got != 1 {
		t.Errorf("ten trailing static samples should saturate: got %v", got)
	}

	r.Window.RPM = []float64{120, 120, 120}
	if got := agent.stationaryFactor(r); got != 0 {
		t.Errorf("rotating string should score 0, got %v", got)
	}
}
