// Package stats provides the shared numeric helpers used by feature
// derivation and the risk agents.
package stats

import "math"

// Clamp bounds x to [lo, hi].
func Clamp(lo, hi, x float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// Clamp01 bounds x to the closed probability range [0, 1].
func Clamp01(x float64) float64 { return Clamp(0, 1, x) }

// Mean returns the arithmetic mean of xs, or 0 for an empty slice.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range xs {
		sum += v
	}
	return sum / float64(len(xs))
}

// Std returns the population standard deviation of xs, or 0 for an
// empty slice.
func Std(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := Mean(xs)
	variance := 0.0
	for _, v := range xs {
		d := v - m
		variance += d * d
	}
	return math.Sqrt(variance / float64(len(xs)))
}

// Rate returns the average change per sample over xs (most-recent-last),
// or 0 when fewer than two samples are available.
func Rate(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	return (xs[len(xs)-1] - xs[0]) / float64(len(xs)-1)
}

// Summary holds the basic statistics of a data series.
type Summary struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Avg   float64 `json:"avg"`
	Std   float64 `json:"std"`
	Count int     `json:"count"`
}

// Summarize computes min/max/avg/std over xs. An empty series yields the
// zero Summary.
func Summarize(xs []float64) Summary {
	if len(xs) == 0 {
		return Summary{}
	}
	s := Summary{Min: xs[0], Max: xs[0], Count: len(xs)}
	for _, v := range xs {
		if v < s.Min {
			s.Min = v
		}
		if v > s.Max {
			s.Max = v
		}
	}
	s.Avg = Mean(xs)
	s.Std = Std(xs)
	return s
}
