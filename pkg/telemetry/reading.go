// Package telemetry defines the drilling data model shared by the whole
// pipeline: the per-cycle Reading snapshot, rolling statistics, and the
// short time-series window agents use for trend analysis.
package telemetry

import "time"

// Param identifies a drilling parameter inside rolling statistics and
// time-series windows.
type Param string

const (
	ParamDepth    Param = "depth"
	ParamWOB      Param = "wob"
	ParamROP      Param = "rop"
	ParamRPM      Param = "rpm"
	ParamTorque   Param = "torque"
	ParamSPP      Param = "spp"
	ParamFlowRate Param = "flow_rate"
	ParamECD      Param = "ecd"
	ParamHookLoad Param = "hook_load"
)

// Stat holds the rolling statistics of one parameter over the recent
// sample window.
type Stat struct {
	Avg  float64 `json:"avg"`
	Std  float64 `json:"std"`
	Rate float64 `json:"rate"`
}

// Deltas holds the short-term rate of change (per sampling interval) of
// the parameters that agents trend on.
type Deltas struct {
	WOB      float64 `json:"wob"`
	ROP      float64 `json:"rop"`
	RPM      float64 `json:"rpm"`
	Torque   float64 `json:"torque"`
	SPP      float64 `json:"spp"`
	FlowRate float64 `json:"flow_rate"`
}

// Window is an ordered set of recent samples per parameter, equal length,
// most-recent-last. Optional on a Reading.
type Window struct {
	Depth    []float64 `json:"depth,omitempty"`
	WOB      []float64 `json:"wob,omitempty"`
	ROP      []float64 `json:"rop,omitempty"`
	RPM      []float64 `json:"rpm,omitempty"`
	Torque   []float64 `json:"torque,omitempty"`
	SPP      []float64 `json:"spp,omitempty"`
	FlowRate []float64 `json:"flow_rate,omitempty"`
	ECD      []float64 `json:"ecd,omitempty"`
	HookLoad []float64 `json:"hook_load,omitempty"`
}

// Len returns the number of samples in the window.
func (w *Window) Len() int {
	if w == nil {
		return 0
	}
	return len(w.WOB)
}

// Reading is one processed telemetry snapshot. Raw parameters come from
// the ingestion source; the derived fields are filled by features.Derive.
// A Reading is immutable once derived: agents consume it read-only.
type Reading struct {
	Timestamp time.Time `json:"timestamp"`

	Depth    float64 `json:"depth"`     // ft
	WOB      float64 `json:"wob"`       // klbs
	ROP      float64 `json:"rop"`       // ft/hr
	RPM      float64 `json:"rpm"`       // rev/min
	Torque   float64 `json:"torque"`    // kft-lbs
	SPP      float64 `json:"spp"`       // psi
	FlowRate float64 `json:"flow_rate"` // gpm
	ECD      float64 `json:"ecd"`       // ppg
	HookLoad float64 `json:"hook_load"` // klbs

	// Derived features. Zero until features.Derive fills them in.
	MSE                  float64 `json:"mse"`
	HoleCleaningIndex    float64 `json:"hole_cleaning_index"`
	DifferentialPressure float64 `json:"differential_pressure"` // psi
	DragFactor           float64 `json:"drag_factor"`

	Deltas Deltas         `json:"deltas"`
	Stats  map[Param]Stat `json:"stats,omitempty"`
	Window *Window        `json:"window,omitempty"`
}

// Stat returns the rolling statistics for p, or the zero Stat when no
// statistics are available. Callers fall back to the instantaneous value
// where that matters.
func (r *Reading) Stat(p Param) Stat {
	if r.Stats == nil {
		return Stat{}
	}
	return r.Stats[p]
}

// AvgOr returns the rolling average of p, or fallback when the average is
// unavailable or non-positive.
func (r *Reading) AvgOr(p Param, fallback float64) float64 {
	if s := r.Stat(p); s.Avg > 0 {
		return s.Avg
	}
	return fallback
}
