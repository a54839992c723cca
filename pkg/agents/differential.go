package agents

import (
	"fmt"
	"time"

	"rigwatch/pkg/stats"
	"rigwatch/pkg/telemetry"
)

// DifferentialSticking predicts the string embedding in the wellbore
// filter cake under a pressure imbalance. Risk rises with differential
// pressure and ECD, with falling flow rate, and with the time the string
// sits stationary against the cake.
type DifferentialSticking struct {
	sensitivity float64
}

// Thresholds of the differential sticking model.
const (
	diffPressureHighRisk = 1000 // psi, full-scale normalization
	ecdBaseline          = 10   // ppg
	flowRateFullScale    = 800  // gpm
	stationaryRPM        = 5    // rev/min, below this the string counts as static
	stationarySamples    = 10   // window samples of near-zero RPM for full risk
)

// NewDifferentialSticking builds the agent with the given sensitivity.
func NewDifferentialSticking(sensitivity float64) *DifferentialSticking {
	return &DifferentialSticking{sensitivity: stats.Clamp01(sensitivity)}
}

func (a *DifferentialSticking) Kind() string { return KindDifferentialSticking }

// Predict scores the reading. Sub-feature weights: differential pressure
// 0.4, ECD 0.3, flow rate 0.2, stationary time 0.1.
func (a *DifferentialSticking) Predict(r telemetry.Reading) Result {
	return guard(a.Kind(), func() Result { return a.predict(r) })
}

func (a *DifferentialSticking) predict(r telemetry.Reading) Result {
	base := stats.Clamp01(r.DifferentialPressure / diffPressureHighRisk * 0.8)

	ecdFactor := 0.0
	if r.ECD > 0 {
		ecdFactor = stats.Clamp01((r.ECD - ecdBaseline) / 3)
	}

	flowFactor := 0.0
	if r.FlowRate > 0 {
		flowFactor = stats.Clamp01(1.0 - r.FlowRate/flowRateFullScale)
	}

	stationary := a.stationaryFactor(r)

	p := 0.4*base + 0.3*ecdFactor + 0.2*flowFactor + 0.1*stationary
	p = sensitivityAdjust(p, a.sensitivity)

	var factors []Factor
	var recs []string

	if r.DifferentialPressure > 500 {
		factors = append(factors, Factor{Name: "High Differential Pressure", Value: fmt.Sprintf("%.0f psi", r.DifferentialPressure)})
		recs = append(recs, "Reduce mud weight to decrease differential pressure")
	}
	if ecdFactor > 0.5 {
		factors = append(factors, Factor{Name: "High ECD", Value: fmt.Sprintf("%.2f ppg", r.ECD)})
		recs = append(recs, "Reduce ECD by adjusting mud properties or reducing pump rate")
	}
	if flowFactor > 0.6 {
		factors = append(factors, Factor{Name: "Low Flow Rate", Value: fmt.Sprintf("%.0f gpm", r.FlowRate)})
		recs = append(recs, "Increase flow rate to improve filter cake management")
	}
	if stationary > 0.5 {
		factors = append(factors, Factor{Name: "Extended Stationary Time", Value: "Detected"})
		recs = append(recs, "Keep pipe moving to prevent embedment in filter cake")
	}
	if p > 0.7 && len(recs) == 0 {
		recs = append(recs,
			"Monitor for signs of differential sticking: overpull, high torque, no reciprocation",
			"Consider reducing mud weight and keeping pipe moving")
	}

	return Result{
		Timestamp:       time.Now(),
		Probability:     p,
		Factors:         factors,
		Recommendations: recs,
	}
}

// stationaryFactor estimates how long the string has sat still. With a
// time-series window it counts trailing near-zero-RPM samples; without
// one it falls back to the hook-load-to-string-weight ratio, where a low
// ratio means weight resting on the formation.
func (a *DifferentialSticking) stationaryFactor(r telemetry.Reading) float64 {
	if w := r.Window; w.Len() > 0 {
		count := 0
		for i := len(w.RPM) - 1; i >= 0; i-- {
			if w.RPM[i] >= stationaryRPM {
				break
			}
			count++
		}
		return stats.Clamp01(float64(count) / stationarySamples)
	}
	if r.Depth > 0 && r.HookLoad > 0 {
		theoretical := r.Depth * 0.02 // klbs, 20 lbs/ft
		if theoretical > 0 {
			return stats.Clamp01(1.0 - r.HookLoad/theoretical)
		}
	}
	return 0
}
