package orchestrator

import (
	"fmt"
	"sort"
	"strings"

	"rigwatch/pkg/agents"
)

// Impact levels of a Recommendation.
const (
	ImpactHigh   = "High"
	ImpactMedium = "Medium"
)

const (
	criticalCut = 0.7
	moderateCut = 0.4
	// ROP suggestions are suppressed when a safety issue scores this high.
	ropSuppressCut = 0.8
)

// Recommendation is one ranked entry of the unified recommendation list.
type Recommendation struct {
	Category         string   `json:"category"`
	Title            string   `json:"title"`
	ImpactLevel      string   `json:"impact_level"`
	Probability      float64  `json:"probability"`
	Description      string   `json:"description"`
	ActionItems      []string `json:"action_items"`
	ExpectedBenefits []string `json:"expected_benefits"`
}

// Recommendations aggregates every agent's advice into one deterministic,
// severity-first list. Critical issues (probability >= 0.7) come first in
// descending probability; the ROP optimization entry follows unless a
// critical issue reached 0.8; moderate risks (0.4-0.7) not already listed
// close the list. No agent is represented twice.
func Recommendations(p Predictions) []Recommendation {
	var out []Recommendation
	seen := map[string]bool{}

	type scored struct {
		entry riskEntry
		res   *agents.Result
	}
	var critical []scored
	suppressROP := false

	for _, entry := range riskOrder {
		res := entry.result(p)
		if res == nil {
			continue
		}
		if res.Probability >= criticalCut {
			critical = append(critical, scored{entry, res})
			if res.Probability >= ropSuppressCut {
				suppressROP = true
			}
		}
	}
	sort.SliceStable(critical, func(i, j int) bool {
		return critical[i].res.Probability > critical[j].res.Probability
	})

	for _, c := range critical {
		seen[c.entry.kind] = true
		out = append(out, Recommendation{
			Category:    "Risk Mitigation",
			Title:       fmt.Sprintf("Address %s Risk", c.entry.displayName),
			ImpactLevel: ImpactHigh,
			Probability: c.res.Probability,
			Description: fmt.Sprintf("%s risk at %.1f%% probability requires immediate attention", c.entry.displayName, c.res.Probability*100),
			ActionItems: actionItems(c.res, c.entry.fallbackRec),
			ExpectedBenefits: []string{
				"Reduced non-productive time",
				fmt.Sprintf("Lower %s risk", strings.ToLower(c.entry.displayName)),
			},
		})
	}

	if rop := p.ROPOptimization; rop != nil && rop.Optimized && !suppressROP {
		items := append([]string{}, rop.Recommendations...)
		if len(items) == 0 {
			items = []string{"Review proposed drilling parameters"}
		}
		out = append(out, Recommendation{
			Category:    "Performance",
			Title:       "Optimize Rate of Penetration",
			ImpactLevel: ImpactMedium,
			Probability: ropProbability(rop),
			Description: ropDescription(rop),
			ActionItems: items,
			ExpectedBenefits: []string{
				fmt.Sprintf("Expected ROP improvement of %.1f%%", rop.ExpectedROPImprovement),
				"Reduced drilling time per section",
			},
		})
	}

	for _, entry := range riskOrder {
		res := entry.result(p)
		if res == nil || seen[entry.kind] {
			continue
		}
		if res.Probability < moderateCut || res.Probability >= criticalCut {
			continue
		}
		out = append(out, Recommendation{
			Category:    "Preventive",
			Title:       fmt.Sprintf("Monitor %s Indicators", entry.displayName),
			ImpactLevel: ImpactMedium,
			Probability: res.Probability,
			Description: fmt.Sprintf("%s risk at %.1f%% probability; preventive action advised", entry.displayName, res.Probability*100),
			ActionItems: actionItems(res, entry.fallbackRec),
			ExpectedBenefits: []string{
				"Early intervention before the risk escalates",
			},
		})
	}

	return out
}

func actionItems(res *agents.Result, fallback string) []string {
	if len(res.Recommendations) > 0 {
		return append([]string{}, res.Recommendations...)
	}
	return []string{fallback}
}

func ropDescription(rop *agents.Result) string {
	if len(rop.RecommendedParameters) == 0 {
		return "Current drilling parameters are near optimal"
	}
	keys := make([]string, 0, len(rop.RecommendedParameters))
	for k := range rop.RecommendedParameters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %.1f", k, rop.RecommendedParameters[k]))
	}
	return "Optimize drilling parameters: " + strings.Join(parts, ", ")
}

// ropProbability gives the ROP entry a stable ranking score without
// pretending optimization advice is a risk probability.
func ropProbability(rop *agents.Result) float64 {
	if rop.Optimized {
		return 1.0
	}
	return 0
}
