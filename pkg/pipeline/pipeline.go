// Package pipeline drives the processing loop: fetch telemetry, derive
// features, run the risk and optimization agents, evaluate alerts, and
// persist the results. One Runner serves one rig feed.
package pipeline

import (
	"context"
	"log"
	"sync"
	"time"

	"rigwatch/pkg/agents"
	"rigwatch/pkg/config"
	"rigwatch/pkg/features"
	"rigwatch/pkg/ingest"
	"rigwatch/pkg/orchestrator"
	"rigwatch/pkg/regression"
	"rigwatch/pkg/store"
	"rigwatch/pkg/telemetry"
)

// CycleStore receives each completed cycle for durable persistence.
// *store.Repository implements it; nil disables persistence.
type CycleStore interface {
	SaveCycle(ctx context.Context, reading telemetry.Reading, p orchestrator.Predictions, alerts []orchestrator.Alert) error
}

// Snapshot is the latest pipeline state, safe to serve concurrently with
// the running loop.
type Snapshot struct {
	Reading         telemetry.Reading             `json:"reading"`
	Predictions     orchestrator.Predictions      `json:"predictions"`
	Alerts          []orchestrator.Alert          `json:"alerts"`
	Recommendations []orchestrator.Recommendation `json:"recommendations"`
	UpdatedAt       time.Time                     `json:"updated_at"`
	Cycles          uint64                        `json:"cycles"`
}

// Runner owns the agents and the rolling history for one telemetry feed.
type Runner struct {
	cfg    config.Config
	source ingest.Source

	history    *telemetry.History
	mechanical *agents.MechanicalSticking
	diff       *agents.DifferentialSticking
	cleaning   *agents.HoleCleaning
	washout    *agents.WashoutMudLosses
	rop        *agents.ROPOptimizer

	thresholds orchestrator.Thresholds
	alertLog   *store.AlertLog
	db         CycleStore

	mu       sync.RWMutex
	snapshot Snapshot

	refitMu   sync.Mutex
	refitting bool
}

// NewRunner wires the agents from configuration. ropBuf may carry
// persisted training samples; pass nil to start cold. db may be nil.
func NewRunner(cfg config.Config, source ingest.Source, ropBuf *regression.SampleBuffer, db CycleStore) *Runner {
	r := &Runner{
		cfg:        cfg,
		source:     source,
		history:    telemetry.NewHistory(cfg.WindowSize),
		thresholds: cfg.Thresholds(),
		alertLog:   store.NewAlertLog(cfg.MaxAlerts),
		db:         db,
	}
	if ac := cfg.Agent(agents.KindMechanicalSticking); ac.Enabled {
		r.mechanical = agents.NewMechanicalSticking(ac.Sensitivity)
	}
	if ac := cfg.Agent(agents.KindDifferentialSticking); ac.Enabled {
		r.diff = agents.NewDifferentialSticking(ac.Sensitivity)
	}
	if ac := cfg.Agent(agents.KindHoleCleaning); ac.Enabled {
		r.cleaning = agents.NewHoleCleaning(ac.Sensitivity)
	}
	if ac := cfg.Agent(agents.KindWashoutMudLosses); ac.Enabled {
		r.washout = agents.NewWashoutMudLosses(ac.Sensitivity)
	}
	if ac := cfg.Agent(agents.KindROPOptimization); ac.Enabled {
		r.rop = agents.NewROPOptimizer(agents.ROPConfig{
			Aggressiveness: ac.Aggressiveness,
		}, ropBuf)
	}
	return r
}

// Run executes cycles at the configured poll interval until ctx ends.
func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if err := r.RunCycle(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Printf("[pipeline] cycle failed: %v", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunCycle performs one fetch-derive-predict-evaluate pass.
func (r *Runner) RunCycle(ctx context.Context) error {
	start := time.Now()

	raw, err := r.source.Fetch(ctx)
	if err != nil {
		cycleFailures.WithLabelValues("fetch").Inc()
		return err
	}

	reading := r.history.Observe(features.Derive(raw))

	p := orchestrator.Predictions{}
	run := func(a agents.Agent) *agents.Result {
		res := a.Predict(reading)
		riskProbability.WithLabelValues(a.Kind()).Set(res.Probability)
		return &res
	}
	if r.mechanical != nil {
		p.MechanicalSticking = run(r.mechanical)
	}
	if r.diff != nil {
		p.DifferentialSticking = run(r.diff)
	}
	if r.cleaning != nil {
		p.HoleCleaning = run(r.cleaning)
	}
	if r.washout != nil {
		p.WashoutMudLosses = run(r.washout)
	}
	if r.rop != nil {
		p.ROPOptimization = run(r.rop)
	}

	alerts := orchestrator.Evaluate(p, r.thresholds)
	for _, a := range alerts {
		alertsRaised.WithLabelValues(string(a.Severity)).Inc()
	}
	r.alertLog.Append(alerts...)
	recs := orchestrator.Recommendations(p)

	r.mu.Lock()
	r.snapshot = Snapshot{
		Reading:         reading,
		Predictions:     p,
		Alerts:          alerts,
		Recommendations: recs,
		UpdatedAt:       time.Now(),
		Cycles:          r.snapshot.Cycles + 1,
	}
	r.mu.Unlock()

	if r.db != nil {
		if err := r.db.SaveCycle(ctx, reading, p, alerts); err != nil {
			cycleFailures.WithLabelValues("persist").Inc()
			log.Printf("[pipeline] persist failed: %v", err)
		}
	}

	r.maybeRefit()
	cycleDuration.Observe(time.Since(start).Seconds())
	return nil
}

// maybeRefit retrains the ROP model off the cycle path. At most one refit
// runs at a time; further cycles proceed on the previous model.
func (r *Runner) maybeRefit() {
	if r.rop == nil || !r.rop.NeedsRefit() {
		return
	}
	r.refitMu.Lock()
	if r.refitting {
		r.refitMu.Unlock()
		return
	}
	r.refitting = true
	r.refitMu.Unlock()

	go func() {
		defer func() {
			r.refitMu.Lock()
			r.refitting = false
			r.refitMu.Unlock()
		}()
		if err := r.rop.Refit(); err != nil {
			log.Printf("[pipeline] rop refit skipped: %v", err)
			return
		}
		ropRefits.Inc()
	}()
}

// Snapshot returns the latest pipeline state.
func (r *Runner) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshot
}

// Alerts exposes the in-memory alert log backing the API.
func (r *Runner) Alerts() *store.AlertLog { return r.alertLog }

// ROPBuffer exposes the training buffer for snapshot persistence. Nil
// when the ROP agent is disabled.
func (r *Runner) ROPBuffer() *regression.SampleBuffer {
	if r.rop == nil {
		return nil
	}
	return r.rop.Buffer()
}
