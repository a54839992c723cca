package agents

import (
	"fmt"
	"math"
	"time"

	"rigwatch/pkg/stats"
	"rigwatch/pkg/telemetry"
)

// Issue types reported by the washout/mud-losses agent.
const (
	IssueWashout   = "Washout"
	IssueMudLosses = "Mud Losses"
)

// WashoutMudLosses runs two parallel detectors, one for washouts (a flow
// path eroding through the string or bit) and one for mud losses (fluid
// escaping into the formation), and reports whichever scores higher.
type WashoutMudLosses struct {
	sensitivity float64
}

// NewWashoutMudLosses builds the agent with the given sensitivity.
func NewWashoutMudLosses(sensitivity float64) *WashoutMudLosses {
	return &WashoutMudLosses{sensitivity: stats.Clamp01(sensitivity)}
}

func (a *WashoutMudLosses) Kind() string { return KindWashoutMudLosses }

// Predict scores the reading. Washout weights: SPP drop 0.5, flow/pressure
// anomaly 0.3, torque instability 0.2. Mud-loss weights: flow loss 0.4,
// pressure-flow correlation 0.3, ECD 0.3.
func (a *WashoutMudLosses) Predict(r telemetry.Reading) Result {
	return guard(a.Kind(), func() Result { return a.predict(r) })
}

func (a *WashoutMudLosses) predict(r telemetry.Reading) Result {
	sppAvg := r.AvgOr(telemetry.ParamSPP, r.SPP)
	flowAvg := r.AvgOr(telemetry.ParamFlowRate, r.FlowRate)
	torqueAvg := r.AvgOr(telemetry.ParamTorque, r.Torque)

	sppChange := r.Deltas.SPP
	flowChange := r.Deltas.FlowRate
	torqueChange := r.Deltas.Torque

	// Washout signatures.
	sppDrop := 0.0
	if sppChange < 0 && sppAvg > 0 {
		sppDrop = stats.Clamp01(math.Abs(sppChange) / (sppAvg * 0.1))
	}
	flowPressureAnomaly := 0.0
	if sppChange < 0 && flowChange > 0 {
		// Flow rising while pressure falls points at a new flow path.
		flowPressureAnomaly = stats.Clamp01((flowChange / 20) * math.Abs(sppChange/100))
	}
	torqueInstability := 0.0
	torqueContribution := 0.0
	if torqueAvg > 0 {
		torqueContribution = math.Abs(torqueChange) / (torqueAvg*0.2 + 0.1)
		torqueInstability = stats.Clamp01(torqueContribution)
	}
	washout := sensitivityAdjust(0.5*sppDrop+0.3*flowPressureAnomaly+0.2*torqueInstability, a.sensitivity)

	// Mud-loss signatures.
	flowLoss := 0.0
	if flowChange < 0 && flowAvg > 0 {
		flowLoss = stats.Clamp01(math.Abs(flowChange) / (flowAvg * 0.1))
	}
	pressureFlowCorrelation := 0.0
	if sppChange < 0 && flowChange < 0 {
		pressureFlowCorrelation = stats.Clamp01(math.Abs(flowChange) / (flowAvg*0.1 + 0.1) * math.Abs(sppChange/100))
	}
	ecdFactor := 0.0
	if r.ECD > 12 {
		ecdFactor = stats.Clamp01((r.ECD - 12) / 3)
	}
	mudLoss := sensitivityAdjust(0.4*flowLoss+0.3*pressureFlowCorrelation+0.3*ecdFactor, a.sensitivity)

	issueType := IssueMudLosses
	p := mudLoss
	if washout > mudLoss {
		issueType = IssueWashout
		p = washout
	}

	var factors []Factor
	var recs []string

	if issueType == IssueWashout {
		if sppDrop > 0.5 {
			factors = append(factors, Factor{Name: "Standpipe Pressure Drop", Value: fmt.Sprintf("%.0f psi", sppChange)})
			recs = append(recs, "Monitor for surface pressure fluctuations")
		}
		if flowPressureAnomaly > 0.5 {
			factors = append(factors, Factor{Name: "Flow-Pressure Anomaly", Value: "Detected"})
			recs = append(recs, "Check for inconsistent flow and pressure relationships")
		}
		if torqueInstability > 0.5 && torqueContribution > 0 {
			factors = append(factors, Factor{Name: "Torque Instability", Value: fmt.Sprintf("%.2f kft-lbs/min", torqueChange)})
			recs = append(recs, "Watch for erratic torque behavior")
		}
		if len(recs) == 0 {
			recs = append(recs,
				"Perform flow check to confirm washout",
				"Prepare to pull out of hole if washout confirmed")
		}
	} else {
		if flowLoss > 0.5 {
			factors = append(factors, Factor{Name: "Flow Return Decrease", Value: fmt.Sprintf("%.0f gpm", flowChange)})
			recs = append(recs, "Monitor pit volume and flow returns closely")
		}
		if pressureFlowCorrelation > 0.5 {
			factors = append(factors, Factor{Name: "Pressure-Flow Correlation", Value: "Detected"})
			recs = append(recs, "Check for simultaneous pressure and flow decreases")
		}
		if ecdFactor > 0.5 {
			factors = append(factors, Factor{Name: "High ECD", Value: fmt.Sprintf("%.2f ppg", r.ECD)})
			recs = append(recs, "Consider reducing mud weight or ECD")
		}
		if len(recs) == 0 {
			recs = append(recs,
				"Perform flow check to confirm losses",
				"Prepare loss circulation material (LCM) if losses confirmed")
		}
	}

	return Result{
		Timestamp:       time.Now(),
		Probability:     p,
		IssueType:       issueType,
		Factors:         factors,
		Recommendations: recs,
	}
}
