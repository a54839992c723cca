package agents

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rigwatch/pkg/features"
	"rigwatch/pkg/regression"
	"rigwatch/pkg/telemetry"
)

func inefficientReading() telemetry.Reading {
	// Very high MSE against the default formation strength, low torque
	// per unit WOB, poor hole cleaning.
	r := features.Derive(telemetry.Reading{
		WOB:      25,
		RPM:      120,
		Torque:   5,
		ROP:      10,
		SPP:      3500,
		Depth:    10000,
		ECD:      12.5,
		HookLoad: 200,
		FlowRate: 400,
	})
	r.MSE = 90000
	r.HoleCleaningIndex = 0.5
	return r
}

func TestHeuristicProposesAdjustments(t *testing.T) {
	agent := NewROPOptimizer(ROPConfig{Aggressiveness: 0.6}, nil)
	res := agent.Predict(inefficientReading())

	require.True(t, res.Optimized)
	assert.NotEmpty(t, res.RecommendedParameters)
	assert.NotEmpty(t, res.Factors)
	assert.Equal(t, 10.0, res.CurrentROP)

	// Low torque per unit WOB should push WOB up, bounded by constraints.
	wob, ok := res.RecommendedParameters["WOB"]
	require.True(t, ok, "expected a WOB proposal, got %v", res.RecommendedParameters)
	assert.Greater(t, wob, 25.0)
	assert.LessOrEqual(t, wob, DefaultROPConstraints().MaxWOB)

	// Poor hole cleaning should push flow rate up.
	flow, ok := res.RecommendedParameters["Flow_Rate"]
	require.True(t, ok)
	assert.Greater(t, flow, 400.0)
}

func TestHeuristicQuietWhenEfficient(t *testing.T) {
	r := features.Derive(telemetry.Reading{
		WOB: 25, RPM: 120, Torque: 10, ROP: 80, SPP: 3500,
		Depth: 6000, ECD: 11.5, HookLoad: 130, FlowRate: 900,
	})
	r.MSE = 30000 // below optimal for the default UCS

	agent := NewROPOptimizer(ROPConfig{Aggressiveness: 0.6, Constraints: DefaultROPConstraints()}, nil)
	res := agent.Predict(r)
	assert.False(t, res.Optimized)
	assert.Empty(t, res.RecommendedParameters)
}

func TestRefitGatingAndCadence(t *testing.T) {
	buf := regression.NewSampleBuffer(64)
	agent := NewROPOptimizer(ROPConfig{Aggressiveness: 0.5, MinSamples: 5, RefitEvery: 3}, buf)

	assert.False(t, agent.NeedsRefit(), "no samples yet")

	r := inefficientReading()
	for i := 0; i < 3; i++ {
		agent.Predict(r)
	}
	// Cadence reached but below the sample minimum.
	assert.False(t, agent.NeedsRefit())

	for i := 0; i < 10; i++ {
		agent.Predict(r)
	}
	assert.True(t, agent.NeedsRefit())
}

func TestRefitAndModelSearch(t *testing.T) {
	buf := regression.NewSampleBuffer(128)
	// Synthetic drilling response: ROP grows with WOB and RPM.
	for wob := 10.0; wob <= 40; wob += 2 {
		for rpm := 80.0; rpm <= 160; rpm += 20 {
			buf.Add(regression.Sample{
				Features: []float64{wob, rpm, 600, 10, 3500, 12.5, 50000},
				Target:   1.5*wob + 0.2*rpm,
			})
		}
	}

	agent := NewROPOptimizer(ROPConfig{Aggressiveness: 0.6, MinSamples: 5, RefitEvery: 1}, buf)
	require.NoError(t, agent.Refit())

	r := features.Derive(telemetry.Reading{
		WOB: 20, RPM: 100, Torque: 10, ROP: 50, SPP: 3500,
		Depth: 10000, ECD: 12.5, HookLoad: 200, FlowRate: 600,
	})
	res := agent.Predict(r)

	require.True(t, res.Optimized)
	assert.Greater(t, res.ExpectedROPImprovement, 0.0)
	wob, ok := res.RecommendedParameters["WOB"]
	require.True(t, ok, "model should push WOB up, got %v", res.RecommendedParameters)
	assert.Greater(t, wob, 20.0)
}

func TestRefitTooFewSamples(t *testing.T) {
	agent := NewROPOptimizer(ROPConfig{}, regression.NewSampleBuffer(8))
	assert.Error(t, agent.Refit())
}

func TestRefitFailureCountedAndCadenceReset(t *testing.T) {
	buf := regression.NewSampleBuffer(16)
	// Inconsistent feature dimensions make the fit fail after gating.
	buf.Restore([]regression.Sample{
		{Features: []float64{1}, Target: 1},
		{Features: []float64{1, 2}, Target: 2},
		{Features: []float64{2, 3}, Target: 3},
		{Features: []float64{3, 4}, Target: 4},
		{Features: []float64{4, 5}, Target: 5},
	})
	agent := NewROPOptimizer(ROPConfig{MinSamples: 5, RefitEvery: 1}, buf)

	before := testutil.ToFloat64(ropRefitFailures)
	require.Error(t, agent.Refit())
	assert.Equal(t, before+1, testutil.ToFloat64(ropRefitFailures))

	// A failed refit still resets the cadence so the loop does not retry
	// the same broken fit every cycle.
	assert.False(t, agent.NeedsRefit())
}

func TestPredictRecordsSamples(t *testing.T) {
	buf := regression.NewSampleBuffer(16)
	agent := NewROPOptimizer(ROPConfig{}, buf)
	agent.Predict(inefficientReading())
	agent.Predict(inefficientReading())
	assert.Equal(t, 2, buf.Len())
}
