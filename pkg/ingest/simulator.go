package ingest

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"rigwatch/pkg/stats"
	"rigwatch/pkg/telemetry"
)

// Simulator generates plausible drilling telemetry: a slow sinusoidal
// drift per parameter plus seeded Gaussian noise, with depth advancing
// from the simulated ROP. Deterministic for a given seed.
type Simulator struct {
	mu         sync.Mutex
	rng        *rand.Rand
	volatility float64
	step       int
	depth      float64
}

// NewSimulator builds a simulator seeded for reproducibility. Volatility
// scales the noise term; 0.2 approximates a quiet well section.
func NewSimulator(seed int64, volatility float64) *Simulator {
	if volatility <= 0 {
		volatility = 0.2
	}
	return &Simulator{
		rng:        rand.New(rand.NewSource(seed)),
		volatility: volatility,
		depth:      10000,
	}
}

// baseline operating point for each simulated channel.
const (
	simWOB      = 25.0
	simROP      = 60.0
	simRPM      = 120.0
	simTorque   = 8.0
	simSPP      = 3500.0
	simFlowRate = 600.0
	simECD      = 12.5
	simHookLoad = 200.0
)

// Fetch returns the next simulated snapshot.
func (s *Simulator) Fetch(ctx context.Context) (telemetry.Reading, error) {
	if err := ctx.Err(); err != nil {
		return telemetry.Reading{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.step++
	phase := float64(s.step) / 20

	rop := s.channel(simROP, 10, phase)
	// ROP in ft/hr; one sample covers the poll interval, approximated
	// as five seconds of drilling.
	s.depth += rop * (5.0 / 3600.0)

	r := telemetry.Reading{
		Timestamp: time.Now(),
		Depth:     s.depth,
		WOB:       s.channel(simWOB, 5, phase),
		ROP:       rop,
		RPM:       s.channel(simRPM, 15, phase),
		Torque:    s.channel(simTorque, 1.5, phase),
		SPP:       s.channel(simSPP, 200, phase),
		FlowRate:  s.channel(simFlowRate, 50, phase),
		ECD:       s.channel(simECD, 0.4, phase),
		HookLoad:  s.channel(simHookLoad, 15, phase),
	}
	return r, nil
}

// channel produces base + sinusoidal drift + seeded noise, floored at a
// small positive value so downstream ratios stay defined.
func (s *Simulator) channel(base, swing, phase float64) float64 {
	drift := swing * math.Sin(phase)
	noise := s.rng.NormFloat64() * swing * s.volatility
	return stats.Clamp(base*0.05, math.Inf(1), base+drift+noise)
}
