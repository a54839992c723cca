package pipeline

import "github.com/prometheus/client_golang/prometheus"

var (
	cycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{Namespace: "rigwatch", Subsystem: "pipeline", Name: "cycle_duration_seconds",
			Help:    "End-to-end processing time per telemetry cycle.",
			Buckets: prometheus.DefBuckets},
	)
	cycleFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "rigwatch", Subsystem: "pipeline", Name: "cycle_failures_total",
			Help: "Failed cycles by stage."},
		[]string{"stage"},
	)
	riskProbability = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Namespace: "rigwatch", Subsystem: "agents", Name: "risk_probability",
			Help: "Latest risk probability per agent."},
		[]string{"agent"},
	)
	alertsRaised = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "rigwatch", Subsystem: "alerts", Name: "raised_total",
			Help: "Alerts raised by severity."},
		[]string{"severity"},
	)
	ropRefits = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "rigwatch", Subsystem: "rop", Name: "refits_total",
			Help: "Completed ROP model refits."},
	)
)

func init() {
	_ = prometheus.Register(cycleDuration)
	_ = prometheus.Register(cycleFailures)
	_ = prometheus.Register(riskProbability)
	_ = prometheus.Register(alertsRaised)
	_ = prometheus.Register(ropRefits)
}
