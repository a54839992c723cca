// Package features computes the engineered drilling features agents score
// on: mechanical specific energy, hole cleaning index, differential
// pressure, and drag factor.
package features

import (
	"math"

	"rigwatch/pkg/stats"
	"rigwatch/pkg/telemetry"
)

// Model constants. One canonical formula set is applied uniformly; see
// DESIGN.md for the variant choice.
const (
	// BitDiameter is the assumed bit diameter, inches.
	BitDiameter = 8.5
	// PorePressureGradient is the assumed pore pressure gradient, psi/ft.
	PorePressureGradient = 0.45
	// StringWeightPerFoot is the assumed drill string weight, lbs/ft.
	StringWeightPerFoot = 0.02 * 1000 // 20 lbs/ft, hook load in klbs

	neutralHoleCleaningIndex = 0.1
	neutralDragFactor        = 0.1
)

// Derive fills the derived feature fields of r and returns the enriched
// reading. It is pure and total: invalid or missing inputs leave each
// feature at its documented default instead of failing. Caller-supplied
// nonzero feature values are preserved.
func Derive(r telemetry.Reading) telemetry.Reading {
	if r.MSE == 0 {
		r.MSE = mse(r.WOB, r.RPM, r.Torque, r.ROP)
	}
	if r.HoleCleaningIndex == 0 {
		r.HoleCleaningIndex = holeCleaningIndex(r.FlowRate, r.RPM, r.ROP)
	}
	if r.DifferentialPressure == 0 {
		r.DifferentialPressure = differentialPressure(r.ECD, r.Depth)
	}
	if r.DragFactor == 0 {
		r.DragFactor = dragFactor(r.HookLoad, r.Depth)
	}
	return r
}

// mse is the mechanical specific energy in psi for WOB in klbs, torque in
// kft-lbs, and ROP in ft/hr. Zero when any input driving a division is
// non-positive.
func mse(wob, rpm, torque, rop float64) float64 {
	if wob <= 0 || rpm <= 0 || rop <= 0 {
		return 0
	}
	area := math.Pi * BitDiameter * BitDiameter
	return 4*wob*1000/area + (480*rpm*torque)/(area*rop)
}

// holeCleaningIndex scores cuttings transport efficiency in [0.1, 1.0].
// Higher flow rate and RPM improve cleaning; higher ROP loads the annulus
// with more cuttings.
func holeCleaningIndex(flowRate, rpm, rop float64) float64 {
	if flowRate <= 0 || rpm <= 0 {
		return neutralHoleCleaningIndex
	}
	return stats.Clamp(0.1, 1.0, 0.5+0.3*(flowRate/800)+0.2*(rpm/150)-0.1*(rop/50))
}

// differentialPressure is hydrostatic pressure minus the assumed pore
// pressure, floored at zero, psi.
func differentialPressure(ecd, depth float64) float64 {
	if ecd <= 0 || depth <= 0 {
		return 0
	}
	hydrostatic := 0.052 * ecd * depth
	pore := PorePressureGradient * depth
	return math.Max(0, hydrostatic-pore)
}

// dragFactor is the ratio of observed hook load to the theoretical string
// weight, clamped to [0.1, 1.0].
func dragFactor(hookLoad, depth float64) float64 {
	if hookLoad <= 0 || depth <= 0 {
		return neutralDragFactor
	}
	theoretical := depth * StringWeightPerFoot / 1000 // klbs
	if theoretical <= 0 {
		return neutralDragFactor
	}
	return stats.Clamp(0.1, 1.0, hookLoad/theoretical)
}
