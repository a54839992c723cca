package features

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"rigwatch/pkg/telemetry"
)

func baseReading() telemetry.Reading {
	return telemetry.Reading{
		WOB:      25,
		RPM:      120,
		Torque:   10,
		ROP:      50,
		Depth:    10000,
		ECD:      12.5,
		HookLoad: 200,
		FlowRate: 600,
	}
}

func TestDeriveNominal(t *testing.T) {
	r := Derive(baseReading())

	assert.Greater(t, r.MSE, 0.0)
	assert.GreaterOrEqual(t, r.DifferentialPressure, 0.0)
	assert.GreaterOrEqual(t, r.HoleCleaningIndex, 0.1)
	assert.LessOrEqual(t, r.HoleCleaningIndex, 1.0)
	assert.GreaterOrEqual(t, r.DragFactor, 0.1)
	assert.LessOrEqual(t, r.DragFactor, 1.0)

	// 0.052*12.5*10000 - 0.45*10000 = 6500 - 4500
	assert.InDelta(t, 2000, r.DifferentialPressure, 1e-9)
	// hook load exactly matches theoretical string weight
	assert.InDelta(t, 1.0, r.DragFactor, 1e-9)
}

func TestDeriveIdempotent(t *testing.T) {
	once := Derive(baseReading())
	twice := Derive(once)
	assert.Equal(t, once, twice)
}

func TestDeriveGuards(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*telemetry.Reading)
		check  func(*testing.T, telemetry.Reading)
	}{
		{
			name:   "zero rop leaves mse at zero",
			mutate: func(r *telemetry.Reading) { r.ROP = 0 },
			check: func(t *testing.T, r telemetry.Reading) {
				assert.Zero(t, r.MSE)
			},
		},
		{
			name:   "zero flow rate yields neutral cleaning index",
			mutate: func(r *telemetry.Reading) { r.FlowRate = 0 },
			check: func(t *testing.T, r telemetry.Reading) {
				assert.Equal(t, 0.1, r.HoleCleaningIndex)
			},
		},
		{
			name:   "zero depth yields zero differential pressure",
			mutate: func(r *telemetry.Reading) { r.Depth = 0 },
			check: func(t *testing.T, r telemetry.Reading) {
				assert.Zero(t, r.DifferentialPressure)
			},
		},
		{
			name:   "zero hook load yields neutral drag factor",
			mutate: func(r *telemetry.Reading) { r.HookLoad = 0 },
			check: func(t *testing.T, r telemetry.Reading) {
				assert.Equal(t, 0.1, r.DragFactor)
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := baseReading()
			tc.mutate(&r)
			tc.check(t, Derive(r))
		})
	}
}

func TestDerivePreservesSuppliedValues(t *testing.T) {
	r := baseReading()
	r.MSE = 42000
	r.DragFactor = 0.33
	out := Derive(r)
	assert.Equal(t, 42000.0, out.MSE)
	assert.Equal(t, 0.33, out.DragFactor)
}
