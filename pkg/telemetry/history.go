package telemetry

import (
	"sync"

	"rigwatch/pkg/stats"
)

// History accumulates raw readings and backfills rolling statistics, short
// term deltas, and the time-series window onto each new reading. The cycle
// driver owns one History per telemetry source.
type History struct {
	mu      sync.Mutex
	maxSize int
	buf     []Reading
}

// NewHistory creates a History keeping at most maxSize recent readings.
func NewHistory(maxSize int) *History {
	if maxSize < 2 {
		maxSize = 2
	}
	return &History{maxSize: maxSize}
}

// Len returns the number of buffered readings.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.buf)
}

// Observe appends r to the buffer and returns a copy of r enriched with
// rolling statistics, deltas, and the sample window computed over the
// buffered history.
func (h *History) Observe(r Reading) Reading {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.buf = append(h.buf, r)
	if len(h.buf) > h.maxSize {
		h.buf = h.buf[len(h.buf)-h.maxSize:]
	}

	w := h.window()
	r.Window = &w
	r.Stats = map[Param]Stat{
		ParamWOB:      statOf(w.WOB),
		ParamROP:      statOf(w.ROP),
		ParamRPM:      statOf(w.RPM),
		ParamTorque:   statOf(w.Torque),
		ParamSPP:      statOf(w.SPP),
		ParamFlowRate: statOf(w.FlowRate),
	}
	r.Deltas = Deltas{
		WOB:      lastDelta(w.WOB),
		ROP:      lastDelta(w.ROP),
		RPM:      lastDelta(w.RPM),
		Torque:   lastDelta(w.Torque),
		SPP:      lastDelta(w.SPP),
		FlowRate: lastDelta(w.FlowRate),
	}
	return r
}

func (h *History) window() Window {
	n := len(h.buf)
	w := Window{
		Depth:    make([]float64, n),
		WOB:      make([]float64, n),
		ROP:      make([]float64, n),
		RPM:      make([]float64, n),
		Torque:   make([]float64, n),
		SPP:      make([]float64, n),
		FlowRate: make([]float64, n),
		ECD:      make([]float64, n),
		HookLoad: make([]float64, n),
	}
	for i, r := range h.buf {
		w.Depth[i] = r.Depth
		w.WOB[i] = r.WOB
		w.ROP[i] = r.ROP
		w.RPM[i] = r.RPM
		w.Torque[i] = r.Torque
		w.SPP[i] = r.SPP
		w.FlowRate[i] = r.FlowRate
		w.ECD[i] = r.ECD
		w.HookLoad[i] = r.HookLoad
	}
	return w
}

func statOf(xs []float64) Stat {
	return Stat{Avg: stats.Mean(xs), Std: stats.Std(xs), Rate: stats.Rate(xs)}
}

func lastDelta(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	return xs[len(xs)-1] - xs[len(xs)-2]
}
