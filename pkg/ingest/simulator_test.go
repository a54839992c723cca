package ingest

import (
	"context"
	"testing"
)

func TestSimulatorDeterministicPerSeed(t *testing.T) {
	ctx := context.Background()
	a := NewSimulator(42, 0.2)
	b := NewSimulator(42, 0.2)
	for i := 0; i < 10; i++ {
		ra, err := a.Fetch(ctx)
		if err != nil {
			t.Fatal(err)
		}
		rb, _ := b.Fetch(ctx)
		if ra.WOB != rb.WOB || ra.SPP != rb.SPP || ra.Depth != rb.Depth {
			t.Fatalf("sample %d diverged: %+v vs %+v", i, ra, rb)
		}
	}
}

func TestSimulatorStaysPositiveAndDeepens(t *testing.T) {
	ctx := context.Background()
	s := NewSimulator(7, 1.0) // high volatility stresses the floor
	prevDepth := 0.0
	for i := 0; i < 200; i++ {
		r, err := s.Fetch(ctx)
		if err != nil {
			t.Fatal(err)
		}
		for name, v := range map[string]float64{
			"wob": r.WOB, "rop": r.ROP, "rpm": r.RPM, "torque": r.Torque,
			"spp": r.SPP, "flow_rate": r.FlowRate, "ecd": r.ECD, "hook_load": r.HookLoad,
		} {
			if v <= 0 {
				t.Fatalf("sample %d: %s = %v, want positive", i, name, v)
			}
		}
		if r.Depth <= prevDepth {
			t.Fatalf("sample %d: depth %v did not advance past %v", i, r.Depth, prevDepth)
		}
		prevDepth = r.Depth
	}
}

func TestSimulatorHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewSimulator(1, 0.2).Fetch(ctx); err == nil {
		t.Fatal("expected context error after cancellation")
	}
}
