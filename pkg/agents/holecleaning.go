package agents

import (
	"fmt"
	"time"

	"rigwatch/pkg/stats"
	"rigwatch/pkg/telemetry"
)

// HoleCleaning predicts inadequate cuttings transport, the precursor to
// packoffs and stuck pipe. The cleaning index is the primary signal,
// supported by ROP/RPM/flow-rate levels, ECD deviation from the optimum
// band, and a depth-based hole-angle proxy.
type HoleCleaning struct {
	sensitivity float64
}

const (
	ropFullScale       = 100  // ft/hr
	rpmFullScale       = 150  // rev/min
	ecdOptimum         = 11.5 // ppg, middle of the 11-12 optimum band
	horizontalDepth    = 8000 // ft, assumed start of the horizontal section
	ropTrendBump       = 5    // ft/hr per interval
	flowRateTrendBump  = -20  // gpm per interval
	trendProbabilityUp = 0.1
)

// NewHoleCleaning builds the agent with the given sensitivity.
func NewHoleCleaning(sensitivity float64) *HoleCleaning {
	return &HoleCleaning{sensitivity: stats.Clamp01(sensitivity)}
}

func (a *HoleCleaning) Kind() string { return KindHoleCleaning }

// Predict scores the reading. Sub-feature weights: cleaning index 0.3,
// ROP 0.2, flow rate 0.2, RPM 0.1, ECD 0.1, hole angle 0.1. Rapid ROP
// increase or flow-rate decrease each add a fixed bump before the final
// clamp.
func (a *HoleCleaning) Predict(r telemetry.Reading) Result {
	return guard(a.Kind(), func() Result { return a.predict(r) })
}

func (a *HoleCleaning) predict(r telemetry.Reading) Result {
	base := 0.5
	if r.HoleCleaningIndex > 0 {
		// Higher index means better cleaning, so invert.
		base = stats.Clamp01(1.0 - r.HoleCleaningIndex)
	}

	ropFactor := 0.0
	if r.ROP > 0 {
		ropFactor = stats.Clamp01(r.ROP / ropFullScale)
	}
	rpmFactor := 0.0
	if r.RPM > 0 {
		rpmFactor = stats.Clamp01(1.0 - r.RPM/rpmFullScale)
	}
	flowFactor := 0.0
	if r.FlowRate > 0 {
		flowFactor = stats.Clamp01(1.0 - r.FlowRate/flowRateFullScale)
	}
	ecdFactor := 0.0
	if r.ECD > 0 {
		dev := r.ECD - ecdOptimum
		if dev < 0 {
			dev = -dev
		}
		ecdFactor = stats.Clamp01(dev / 3)
	}

	angleFactor := 0.0
	if r.Depth > horizontalDepth {
		angleFactor = 0.8
	} else {
		angleFactor = stats.Clamp(0.1, 0.6, r.Depth/10000)
	}

	p := 0.3*base + 0.2*ropFactor + 0.1*rpmFactor + 0.2*flowFactor + 0.1*ecdFactor + 0.1*angleFactor
	p = sensitivityAdjust(p, a.sensitivity)

	if r.Deltas.ROP > ropTrendBump {
		p = stats.Clamp01(p + trendProbabilityUp)
	}
	if r.Deltas.FlowRate < flowRateTrendBump {
		p = stats.Clamp01(p + trendProbabilityUp)
	}

	var factors []Factor
	var recs []string

	if r.HoleCleaningIndex > 0 && r.HoleCleaningIndex < 0.6 {
		factors = append(factors, Factor{Name: "Low Hole Cleaning Index", Value: fmtFloat(r.HoleCleaningIndex, 2)})
		recs = append(recs, "Increase flow rate and pipe rotation to improve hole cleaning")
	}
	if ropFactor > 0.7 {
		factors = append(factors, Factor{Name: "High ROP", Value: fmt.Sprintf("%.1f ft/hr", r.ROP)})
		recs = append(recs, "Reduce ROP to prevent excess cuttings generation")
	}
	if flowFactor > 0.6 {
		factors = append(factors, Factor{Name: "Low Flow Rate", Value: fmt.Sprintf("%.0f gpm", r.FlowRate)})
		recs = append(recs, "Increase flow rate to improve cuttings removal")
	}
	if rpmFactor > 0.6 {
		factors = append(factors, Factor{Name: "Low RPM", Value: fmt.Sprintf("%.0f rpm", r.RPM)})
		recs = append(recs, "Increase rotary speed to improve hole cleaning")
	}
	if ecdFactor > 0.6 {
		factors = append(factors, Factor{Name: "Non-optimal ECD", Value: fmt.Sprintf("%.2f ppg", r.ECD)})
		recs = append(recs, "Adjust mud properties to optimize ECD")
	}
	if angleFactor > 0.7 {
		factors = append(factors, Factor{Name: "High Hole Angle/Depth", Value: fmt.Sprintf("%.0f ft", r.Depth)})
		recs = append(recs, "Increase flowrate and RPM in high-angle sections")
	}
	if p > 0.7 && len(recs) == 0 {
		recs = append(recs,
			"Perform wiper trips to clean the hole",
			"Consider optimizing mud properties for better cuttings transport")
	}

	return Result{
		Timestamp:       time.Now(),
		Probability:     p,
		Factors:         factors,
		Recommendations: recs,
	}
}
