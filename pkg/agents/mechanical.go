package agents

import (
	"fmt"
	"math"
	"time"

	"rigwatch/pkg/stats"
	"rigwatch/pkg/telemetry"
)

// MechanicalSticking predicts mechanical sticking: the string wedging on
// undergauge hole, keyseats, ledges, or unstable wellbore sections. The
// dominant signals are drag, torque deviation above the rolling average,
// and short-term torque/RPM instability.
type MechanicalSticking struct {
	sensitivity float64
}

// NewMechanicalSticking builds the agent with the given sensitivity in
// [0, 1]; 0.5 is neutral.
func NewMechanicalSticking(sensitivity float64) *MechanicalSticking {
	return &MechanicalSticking{sensitivity: stats.Clamp01(sensitivity)}
}

func (a *MechanicalSticking) Kind() string { return KindMechanicalSticking }

// Predict scores the reading. Sub-feature weights: drag 0.35, torque risk
// 0.25, torque instability 0.25, RPM instability 0.15.
func (a *MechanicalSticking) Predict(r telemetry.Reading) Result {
	return guard(a.Kind(), func() Result { return a.predict(r) })
}

func (a *MechanicalSticking) predict(r telemetry.Reading) Result {
	torqueAvg := r.AvgOr(telemetry.ParamTorque, r.Torque)
	torqueStd := r.Stat(telemetry.ParamTorque).Std
	rpmAvg := r.AvgOr(telemetry.ParamRPM, r.RPM)
	rpmStd := r.Stat(telemetry.ParamRPM).Std

	// Base risk from drag: friction already visible on the hook load.
	base := stats.Clamp01(r.DragFactor * 0.8)

	// Torque deviation above the rolling average; only the positive side
	// counts, a torque drop is not a sticking signature.
	torqueFactor := 0.0
	if torqueAvg > 0 && torqueStd > 0 {
		torqueFactor = (r.Torque - torqueAvg) / (torqueStd + 1)
	}
	torqueRisk := stats.Clamp01(0.3 + 0.7*math.Max(0, torqueFactor))

	// Short-term instability relative to the rolling average.
	torqueInstability := math.Min(1.0, math.Abs(r.Deltas.Torque)/(torqueAvg*0.2+0.1))
	rpmInstability := 0.0
	if rpmAvg > 0 && rpmStd > 0 {
		rpmInstability = math.Min(1.0, math.Abs(r.Deltas.RPM)/(rpmAvg*0.2+0.1))
	}

	p := 0.35*base + 0.25*torqueRisk + 0.25*torqueInstability + 0.15*rpmInstability
	p = sensitivityAdjust(p, a.sensitivity)

	var factors []Factor
	var recs []string

	if r.DragFactor > 0.6 {
		factors = append(factors, Factor{Name: "High Drag Factor", Value: fmtFloat(r.DragFactor, 2)})
		recs = append(recs, "Work pipe to reduce drag and consider lubricant additives to mud")
	}
	if torqueRisk > 0.5 {
		factors = append(factors, Factor{Name: "Elevated Torque", Value: fmt.Sprintf("%.1f kft-lbs", r.Torque)})
		recs = append(recs, "Reduce weight on bit (WOB) to decrease torque")
	}
	if torqueInstability > 0.6 {
		factors = append(factors, Factor{Name: "Torque Instability", Value: fmt.Sprintf("%.2f kft-lbs/min", r.Deltas.Torque)})
		recs = append(recs, "Stabilize drilling parameters and check for formation changes")
	}
	if rpmInstability > 0.6 {
		factors = append(factors, Factor{Name: "RPM Instability", Value: fmt.Sprintf("%.1f RPM/min", r.Deltas.RPM)})
		recs = append(recs, "Stabilize rotary speed and check for possible vibrations")
	}
	if r.FlowRate < 400 && p > 0.4 {
		factors = append(factors, Factor{Name: "Low Flow Rate", Value: fmt.Sprintf("%.0f gpm", r.FlowRate)})
		recs = append(recs, "Increase flow rate to improve hole cleaning")
	}
	if r.WOB > 30 && p > 0.4 {
		factors = append(factors, Factor{Name: "High WOB", Value: fmt.Sprintf("%.1f klbs", r.WOB)})
		recs = append(recs, "Reduce weight on bit (WOB) to decrease mechanical sticking risk")
	}
	if p > 0.7 && len(recs) == 0 {
		recs = append(recs,
			"Perform slack-off and pick-up tests to check for potential sticking points",
			"Consider working the pipe and reaming to clean the hole")
	}

	return Result{
		Timestamp:       time.Now(),
		Probability:     p,
		Factors:         factors,
		Recommendations: recs,
	}
}
