// Package orchestrator turns per-agent risk scores into deduplicated,
// severity-ranked alerts and a unified recommendation list. It holds no
// state across cycles: every call is a pure function of the predictions
// and the configured thresholds.
package orchestrator

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"rigwatch/pkg/agents"
)

// Severity tiers. One policy for every agent: >= 0.8 HIGH, >= 0.6 MEDIUM,
// else LOW.
type Severity string

const (
	SeverityLow    Severity = "LOW"
	SeverityMedium Severity = "MEDIUM"
	SeverityHigh   Severity = "HIGH"
)

const (
	severityHighCut   = 0.8
	severityMediumCut = 0.6
)

// SeverityFor maps a probability to its alert severity tier.
func SeverityFor(probability float64) Severity {
	switch {
	case probability >= severityHighCut:
		return SeverityHigh
	case probability >= severityMediumCut:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// Alert is one threshold crossing. Alerts are append-only; Acknowledged is
// the only field mutated after creation.
type Alert struct {
	ID             string    `json:"id"`
	Timestamp      time.Time `json:"timestamp"`
	Type           string    `json:"type"`
	Severity       Severity  `json:"severity"`
	Probability    float64   `json:"probability"`
	Message        string    `json:"message"`
	Recommendation string    `json:"recommendation"`
	Acknowledged   bool      `json:"acknowledged"`
}

// Predictions carries one cycle's agent results. A nil entry means the
// agent failed or is disabled; the orchestrator skips it without failing
// the cycle.
type Predictions struct {
	MechanicalSticking   *agents.Result `json:"mechanical_sticking"`
	DifferentialSticking *agents.Result `json:"differential_sticking"`
	HoleCleaning         *agents.Result `json:"hole_cleaning"`
	WashoutMudLosses     *agents.Result `json:"washout_mud_losses"`
	ROPOptimization      *agents.Result `json:"rop_optimization"`
}

// Thresholds maps agent kind to its alert threshold in [0, 1].
type Thresholds map[string]float64

// DefaultThresholds mirror the shipped configuration defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		agents.KindMechanicalSticking:   0.6,
		agents.KindDifferentialSticking: 0.65,
		agents.KindHoleCleaning:         0.65,
		agents.KindWashoutMudLosses:     0.7,
	}
}

// riskEntry pairs an agent kind with its display name in fixed evaluation
// order: mechanical, differential, hole cleaning, washout/mud losses.
type riskEntry struct {
	kind        string
	displayName string
	fallbackRec string
	result      func(Predictions) *agents.Result
}

var riskOrder = []riskEntry{
	{
		kind:        agents.KindMechanicalSticking,
		displayName: "Mechanical Sticking",
		fallbackRec: "Monitor drilling parameters closely",
		result:      func(p Predictions) *agents.Result { return p.MechanicalSticking },
	},
	{
		kind:        agents.KindDifferentialSticking,
		displayName: "Differential Sticking",
		fallbackRec: "Monitor ECD and differential pressure",
		result:      func(p Predictions) *agents.Result { return p.DifferentialSticking },
	},
	{
		kind:        agents.KindHoleCleaning,
		displayName: "Hole Cleaning",
		fallbackRec: "Increase flow rate and RPM",
		result:      func(p Predictions) *agents.Result { return p.HoleCleaning },
	},
	{
		kind:        agents.KindWashoutMudLosses,
		displayName: "Washout/Mud Losses",
		fallbackRec: "Monitor flow and pressure indicators",
		result:      func(p Predictions) *agents.Result { return p.WashoutMudLosses },
	},
}

// Evaluate builds one Alert per risk agent whose probability reached its
// threshold (>= comparison). Alert order follows the fixed agent
// evaluation order, so the output is deterministic for a given input.
func Evaluate(p Predictions, thresholds Thresholds) []Alert {
	var alerts []Alert
	now := time.Now()

	for _, entry := range riskOrder {
		res := entry.result(p)
		if res == nil {
			continue
		}
		threshold, ok := thresholds[entry.kind]
		if !ok {
			threshold = DefaultThresholds()[entry.kind]
		}
		if res.Probability < threshold {
			continue
		}

		alertType := entry.displayName + " Risk"
		if entry.kind == agents.KindWashoutMudLosses && res.IssueType != "" {
			alertType = res.IssueType + " Risk"
		}

		msg := fmt.Sprintf("%s detected (%.1f%%)", alertType, res.Probability*100)
		if len(res.Factors) > 0 {
			parts := make([]string, 0, len(res.Factors))
			for _, f := range res.Factors {
				parts = append(parts, fmt.Sprintf("%s (%s)", f.Name, f.Value))
			}
			msg += ". Contributing factors: " + strings.Join(parts, ", ")
		}

		rec := entry.fallbackRec
		if len(res.Recommendations) > 0 {
			rec = strings.Join(res.Recommendations, "; ")
		}

		severity := SeverityFor(res.Probability)
		alerts = append(alerts, Alert{
			ID:             uuid.NewString(),
			Timestamp:      now,
			Type:           alertType,
			Severity:       severity,
			Probability:    res.Probability,
			Message:        msg,
			Recommendation: rec,
		})
		log.Printf("[orchestrator] %s alert: %s (%.1f%%)", entry.kind, severity, res.Probability*100)
	}
	return alerts
}
