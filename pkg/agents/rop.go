package agents

import (
	"fmt"
	"math"
	"sync"
	"time"

	"rigwatch/pkg/regression"
	"rigwatch/pkg/stats"
	"rigwatch/pkg/telemetry"
)

// ROPConstraints bounds the parameter adjustments the optimizer may
// propose.
type ROPConstraints struct {
	MinWOB      float64 `yaml:"min_wob" json:"min_wob"`
	MaxWOB      float64 `yaml:"max_wob" json:"max_wob"`
	MinRPM      float64 `yaml:"min_rpm" json:"min_rpm"`
	MaxRPM      float64 `yaml:"max_rpm" json:"max_rpm"`
	MinFlowRate float64 `yaml:"min_flow_rate" json:"min_flow_rate"`
	MaxFlowRate float64 `yaml:"max_flow_rate" json:"max_flow_rate"`
	MaxTorque   float64 `yaml:"max_torque" json:"max_torque"`
	MaxSPP      float64 `yaml:"max_spp" json:"max_spp"`
}

// DefaultROPConstraints are typical rig operating limits.
func DefaultROPConstraints() ROPConstraints {
	return ROPConstraints{
		MinWOB: 5, MaxWOB: 50,
		MinRPM: 40, MaxRPM: 220,
		MinFlowRate: 300, MaxFlowRate: 1200,
		MaxTorque: 100,
		MaxSPP:    5000,
	}
}

// ROPConfig configures the optimization agent.
type ROPConfig struct {
	// Aggressiveness in [0, 1] scales how far proposed adjustments move
	// toward their heuristic optimum.
	Aggressiveness float64
	// FormationUCS is the assumed unconfined compressive strength of the
	// formation, psi. Optimal MSE is 35% of it.
	FormationUCS float64
	Constraints  ROPConstraints
	// MinSamples gates the model-based search; below it the heuristic runs.
	MinSamples int
	// RefitEvery is the cycle count between model refits.
	RefitEvery int
}

const defaultFormationUCS = 100000 // psi

// ROPOptimizer is the advisory agent: instead of a risk score it proposes
// WOB/RPM/flow-rate adjustments expected to improve the rate of
// penetration. Its training buffer and fitted model are explicit owned
// state injected at construction; the cycle driver triggers refits.
type ROPOptimizer struct {
	cfg ROPConfig
	buf *regression.SampleBuffer

	mu         sync.Mutex
	model      *regression.Model
	sinceRefit int
}

// NewROPOptimizer builds the agent. buf may be pre-populated from a
// persisted sample store.
func NewROPOptimizer(cfg ROPConfig, buf *regression.SampleBuffer) *ROPOptimizer {
	if cfg.FormationUCS <= 0 {
		cfg.FormationUCS = defaultFormationUCS
	}
	if cfg.Constraints == (ROPConstraints{}) {
		cfg.Constraints = DefaultROPConstraints()
	}
	if cfg.MinSamples < 5 {
		cfg.MinSamples = 5
	}
	if cfg.RefitEvery < 1 {
		cfg.RefitEvery = 10
	}
	if buf == nil {
		buf = regression.NewSampleBuffer(256)
	}
	return &ROPOptimizer{cfg: ROPConfig{
		Aggressiveness: stats.Clamp01(cfg.Aggressiveness),
		FormationUCS:   cfg.FormationUCS,
		Constraints:    cfg.Constraints,
		MinSamples:     cfg.MinSamples,
		RefitEvery:     cfg.RefitEvery,
	}, buf: buf}
}

func (a *ROPOptimizer) Kind() string { return KindROPOptimization }

// ropFeatures is the model feature vector for a reading:
// {WOB, RPM, Flow_Rate, Torque, SPP, ECD, MSE}.
func ropFeatures(r telemetry.Reading) []float64 {
	return []float64{r.WOB, r.RPM, r.FlowRate, r.Torque, r.SPP, r.ECD, r.MSE}
}

// Predict records the reading as a training sample and produces the
// optimization advisory. The model-based search runs once a fitted model
// is available; the physics heuristic covers the cold start.
func (a *ROPOptimizer) Predict(r telemetry.Reading) Result {
	return guard(a.Kind(), func() Result { return a.predict(r) })
}

func (a *ROPOptimizer) predict(r telemetry.Reading) Result {
	if r.ROP > 0 {
		a.buf.Add(regression.Sample{Features: ropFeatures(r), Target: r.ROP})
	}
	a.mu.Lock()
	a.sinceRefit++
	model := a.model
	a.mu.Unlock()

	if model != nil {
		if res, ok := a.modelSearch(model, r); ok {
			return res
		}
	}
	return a.heuristic(r)
}

// NeedsRefit reports whether enough cycles and samples have accumulated
// for a refit. The runner calls Refit off the scoring path.
func (a *ROPOptimizer) NeedsRefit() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sinceRefit >= a.cfg.RefitEvery && a.buf.Len() >= a.cfg.MinSamples
}

// Refit retrains the linear ROP model over the buffered samples.
func (a *ROPOptimizer) Refit() error {
	samples := a.buf.Snapshot()
	if len(samples) < a.cfg.MinSamples {
		return regression.ErrTooFewSamples
	}
	model, err := regression.Fit(samples, 0.1)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.sinceRefit = 0
	if err != nil {
		ropRefitFailures.Inc()
		return fmt.Errorf("rop model refit: %w", err)
	}
	a.model = model
	return nil
}

// Buffer exposes the owned sample buffer for persistence.
func (a *ROPOptimizer) Buffer() *regression.SampleBuffer { return a.buf }

// modelSearch evaluates bounded candidate adjustments of WOB, RPM, and
// flow rate against the fitted model and proposes the best one. Returns
// ok=false when the model gives no usable answer, which falls back to the
// heuristic.
func (a *ROPOptimizer) modelSearch(model *regression.Model, r telemetry.Reading) (Result, bool) {
	if r.ROP <= 0 {
		return Result{}, false
	}
	c := a.cfg.Constraints
	scale := 0.5 + 0.5*a.cfg.Aggressiveness
	steps := []float64{1 - 0.15*scale, 1, 1 + 0.15*scale}

	bestROP := r.ROP
	bestWOB, bestRPM, bestFlow := r.WOB, r.RPM, r.FlowRate
	found := false
	for _, fw := range steps {
		wob := stats.Clamp(c.MinWOB, c.MaxWOB, r.WOB*fw)
		for _, fr := range steps {
			rpm := stats.Clamp(c.MinRPM, c.MaxRPM, r.RPM*fr)
			for _, ff := range steps {
				flow := stats.Clamp(c.MinFlowRate, c.MaxFlowRate, r.FlowRate*ff)
				cand := []float64{wob, rpm, flow, r.Torque, r.SPP, r.ECD, r.MSE}
				pred, err := model.Predict(cand)
				if err != nil {
					return Result{}, false
				}
				if pred > bestROP {
					bestROP, bestWOB, bestRPM, bestFlow = pred, wob, rpm, flow
					found = true
				}
			}
		}
	}
	if !found {
		return Result{}, false
	}

	improvementPct := (bestROP/r.ROP - 1) * 100
	// An implausible extrapolation means the model is not trustworthy yet.
	if improvementPct <= 0 || improvementPct > 200 {
		return Result{}, false
	}

	params := map[string]float64{}
	var factors []Factor
	var recs []string
	if math.Abs(bestWOB-r.WOB) > 0.05*r.WOB {
		params["WOB"] = round1(bestWOB)
		factors = append(factors, Factor{Name: "WOB Adjustment", Value: fmt.Sprintf("%s to %.1f klbs", direction(bestWOB, r.WOB), bestWOB)})
		recs = append(recs, fmt.Sprintf("Gradually %s WOB to %.1f klbs", verb(bestWOB, r.WOB), bestWOB))
	}
	if math.Abs(bestRPM-r.RPM) > 0.05*r.RPM {
		params["RPM"] = math.Round(bestRPM)
		factors = append(factors, Factor{Name: "RPM Adjustment", Value: fmt.Sprintf("%s to %.0f rpm", direction(bestRPM, r.RPM), bestRPM)})
		recs = append(recs, fmt.Sprintf("Gradually %s RPM to %.0f", verb(bestRPM, r.RPM), bestRPM))
	}
	if math.Abs(bestFlow-r.FlowRate) > 0.05*r.FlowRate {
		params["Flow_Rate"] = math.Round(bestFlow)
		factors = append(factors, Factor{Name: "Flow Rate Adjustment", Value: fmt.Sprintf("%s to %.0f gpm", direction(bestFlow, r.FlowRate), bestFlow)})
		recs = append(recs, fmt.Sprintf("Gradually %s flow rate to %.0f gpm", verb(bestFlow, r.FlowRate), bestFlow))
	}
	if len(params) == 0 {
		return Result{}, false
	}
	factors = append(factors, Factor{Name: "Model-Based Search", Value: fmt.Sprintf("%d samples", a.buf.Len())})

	return Result{
		Timestamp:              time.Now(),
		Optimized:              true,
		CurrentROP:             r.ROP,
		ExpectedROPImprovement: round1(improvementPct),
		RecommendedParameters:  params,
		Factors:                factors,
		Recommendations:        recs,
	}, true
}

// heuristic is the physics-based search used before the model is trained.
func (a *ROPOptimizer) heuristic(r telemetry.Reading) Result {
	c := a.cfg.Constraints
	optimalMSE := 0.35 * a.cfg.FormationUCS

	efficiency := 1.0
	if r.MSE > 0 && optimalMSE > 0 {
		efficiency = stats.Clamp(0.1, 1.0, optimalMSE/r.MSE)
	}

	optimalWOB, wobAdjust := r.WOB, false
	optimalRPM, rpmAdjust := r.RPM, false
	optimalFlow, flowAdjust := r.FlowRate, false

	if efficiency < 0.7 {
		torquePerWOB := r.Torque / (r.WOB + 0.1)
		if torquePerWOB < 0.3 {
			optimalWOB, wobAdjust = r.WOB*1.2, true
		} else if torquePerWOB > 0.7 {
			optimalWOB, wobAdjust = r.WOB*0.85, true
		}

		if r.Torque > 0.8*c.MaxTorque {
			optimalRPM, rpmAdjust = r.RPM*0.85, true
		} else if r.Torque < 0.4*c.MaxTorque {
			optimalRPM, rpmAdjust = r.RPM*1.15, true
		}
	}
	if r.HoleCleaningIndex > 0 && r.HoleCleaningIndex < 0.7 {
		optimalFlow, flowAdjust = r.FlowRate*1.15, true
	}

	// Expected gains, discounted from the theoretical ratios.
	wobGain := 0.0
	if wobAdjust {
		if optimalWOB > r.WOB {
			wobGain = (optimalWOB/math.Max(r.WOB, 0.1) - 1) * 0.7
		} else {
			wobGain = -0.05
		}
	}
	rpmGain := 0.0
	if rpmAdjust {
		if optimalRPM > r.RPM {
			rpmGain = (optimalRPM/math.Max(r.RPM, 0.1) - 1) * 0.5
		} else {
			rpmGain = -0.03
		}
	}
	flowGain := 0.0
	if flowAdjust && optimalFlow > r.FlowRate {
		flowGain = 0.05
	}
	totalGain := (1+wobGain)*(1+rpmGain)*(1+flowGain) - 1

	scale := 0.5 + 0.5*a.cfg.Aggressiveness
	if wobAdjust {
		optimalWOB = stats.Clamp(c.MinWOB, c.MaxWOB, r.WOB+(optimalWOB-r.WOB)*scale)
	}
	if rpmAdjust {
		optimalRPM = stats.Clamp(c.MinRPM, c.MaxRPM, r.RPM+(optimalRPM-r.RPM)*scale)
	}
	if flowAdjust {
		optimalFlow = stats.Clamp(c.MinFlowRate, c.MaxFlowRate, r.FlowRate+(optimalFlow-r.FlowRate)*scale)
	}

	params := map[string]float64{}
	var factors []Factor
	var recs []string

	if efficiency < 0.7 {
		factors = append(factors, Factor{Name: "Low Drilling Efficiency", Value: fmt.Sprintf("%.2f ratio", efficiency)})
		if r.MSE > optimalMSE*1.5 {
			recs = append(recs, "Adjust parameters to reduce MSE and improve drilling efficiency")
		}
	}
	if wobAdjust {
		params["WOB"] = round1(optimalWOB)
		factors = append(factors, Factor{Name: "WOB Adjustment", Value: fmt.Sprintf("%s to %.1f klbs", direction(optimalWOB, r.WOB), optimalWOB)})
		recs = append(recs, fmt.Sprintf("Gradually %s WOB to %.1f klbs", verb(optimalWOB, r.WOB), optimalWOB))
	}
	if rpmAdjust {
		params["RPM"] = math.Round(optimalRPM)
		factors = append(factors, Factor{Name: "RPM Adjustment", Value: fmt.Sprintf("%s to %.0f rpm", direction(optimalRPM, r.RPM), optimalRPM)})
		recs = append(recs, fmt.Sprintf("Gradually %s RPM to %.0f", verb(optimalRPM, r.RPM), optimalRPM))
	}
	if flowAdjust {
		params["Flow_Rate"] = math.Round(optimalFlow)
		factors = append(factors, Factor{Name: "Flow Rate Adjustment", Value: fmt.Sprintf("Increase to %.0f gpm", optimalFlow)})
		recs = append(recs, fmt.Sprintf("Increase flow rate to %.0f gpm for better hole cleaning", optimalFlow))
	}

	return Result{
		Timestamp:              time.Now(),
		Optimized:              len(params) > 0,
		CurrentROP:             r.ROP,
		ExpectedROPImprovement: round1(totalGain * 100),
		RecommendedParameters:  params,
		Factors:                factors,
		Recommendations:        recs,
	}
}

func direction(proposed, current float64) string {
	if proposed > current {
		return "Increase"
	}
	return "Decrease"
}

func verb(proposed, current float64) string {
	if proposed > current {
		return "increase"
	}
	return "decrease"
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
