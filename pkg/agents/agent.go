// Package agents implements the five drilling risk scorers. Each agent is
// a stateless-per-call predictor: it consumes one enriched telemetry
// reading and produces a bounded probability, the contributing factors
// behind it, and operator recommendations. Agents never fail the caller;
// an internal fault degrades to a zero-probability result.
package agents

import (
	"fmt"
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"rigwatch/pkg/stats"
	"rigwatch/pkg/telemetry"
)

var (
	predictionPanics = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "rigwatch", Subsystem: "agents", Name: "prediction_panics_total",
			Help: "Predictions recovered from an internal fault, by agent."},
		[]string{"agent"},
	)
	ropRefitFailures = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "rigwatch", Subsystem: "rop", Name: "refit_failures_total",
			Help: "ROP model refits that failed to fit."},
	)
)

func init() {
	_ = prometheus.Register(predictionPanics)
	_ = prometheus.Register(ropRefitFailures)
}

// Agent kind names. These key threshold and sensitivity configuration and
// identify predictions in storage.
const (
	KindMechanicalSticking   = "mechanical_sticking"
	KindDifferentialSticking = "differential_sticking"
	KindHoleCleaning         = "hole_cleaning"
	KindWashoutMudLosses     = "washout_mud_losses"
	KindROPOptimization      = "rop_optimization"
)

// Kinds lists all agent kinds in evaluation order.
var Kinds = []string{
	KindMechanicalSticking,
	KindDifferentialSticking,
	KindHoleCleaning,
	KindWashoutMudLosses,
	KindROPOptimization,
}

// Factor is one contributing factor behind a prediction, with a formatted
// human-readable value.
type Factor struct {
	Name  string `json:"factor"`
	Value string `json:"value"`
}

// Result is the outcome of one agent prediction. Probability is always in
// [0, 1]. The optional fields are agent specific: IssueType for the
// washout/mud-losses agent, the optimization fields for the ROP agent.
type Result struct {
	Timestamp       time.Time `json:"timestamp"`
	Probability     float64   `json:"probability"`
	Factors         []Factor  `json:"contributing_factors"`
	Recommendations []string  `json:"recommendations"`

	IssueType string `json:"issue_type,omitempty"`

	Optimized              bool               `json:"optimized,omitempty"`
	CurrentROP             float64            `json:"current_rop,omitempty"`
	ExpectedROPImprovement float64            `json:"expected_rop_improvement,omitempty"`
	RecommendedParameters  map[string]float64 `json:"recommended_parameters,omitempty"`
}

// Agent scores one failure mode per reading cycle.
type Agent interface {
	Kind() string
	Predict(r telemetry.Reading) Result
}

// errResult is what every agent returns when its scoring path faults.
func errResult() Result {
	return Result{
		Timestamp:       time.Now(),
		Probability:     0,
		Factors:         []Factor{},
		Recommendations: []string{"Error in prediction model"},
	}
}

// guard runs fn and converts a panic into the degraded error result so a
// single agent fault never aborts the cycle.
func guard(kind string, fn func() Result) (res Result) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("[agents] %s prediction failed: %v", kind, rec)
			predictionPanics.WithLabelValues(kind).Inc()
			res = errResult()
		}
	}()
	return fn()
}

// sensitivityAdjust applies the configured sensitivity multiplier and
// re-clamps the probability. Sensitivity 0.5 is neutral; higher values
// flag risk more readily.
func sensitivityAdjust(p, sensitivity float64) float64 {
	return stats.Clamp01(p * (1.0 + (sensitivity - 0.5)))
}

func fmtFloat(v float64, prec int) string {
	return fmt.Sprintf("%.*f", prec, v)
}
