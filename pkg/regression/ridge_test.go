package regression

import (
	"math"
	"testing"
)

func TestFitRecoversLinearRelation(t *testing.T) {
	// y = 3 + 2*x0 - 0.5*x1
	var samples []Sample
	for i := 0; i < 20; i++ {
		x0 := float64(i)
		x1 := float64(i%5) * 2
		samples = append(samples, Sample{
			Features: []float64{x0, x1},
			Target:   3 + 2*x0 - 0.5*x1,
		})
	}

	m, err := Fit(samples, 1e-6)
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	if math.Abs(m.Intercept-3) > 0.01 {
		t.Errorf("intercept = %v, want 3", m.Intercept)
	}
	if math.Abs(m.Coef[0]-2) > 0.01 || math.Abs(m.Coef[1]+0.5) > 0.01 {
		t.Errorf("coef = %v, want [2 -0.5]", m.Coef)
	}

	y, err := m.Predict([]float64{10, 4})
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if math.Abs(y-21) > 0.1 {
		t.Errorf("predict = %v, want 21", y)
	}
}

func TestFitTooFewSamples(t *testing.T) {
	samples := []Sample{
		{Features: []float64{1, 2, 3}, Target: 1},
		{Features: []float64{2, 3, 4}, Target: 2},
	}
	if _, err := Fit(samples, 0.1); err == nil {
		t.Fatal("expected error for underdetermined fit")
	}
}

func TestPredictDimensionMismatch(t *testing.T) {
	m := &Model{Coef: []float64{1, 2}}
	if _, err := m.Predict([]float64{1}); err == nil {
		t.Fatal("expected dimension error")
	}
}

func TestSampleBufferBounded(t *testing.T) {
	b := NewSampleBuffer(3)
	for i := 0; i < 5; i++ {
		b.Add(Sample{Target: float64(i)})
	}
	if b.Len() != 3 {
		t.Fatalf("len = %d, want 3", b.Len())
	}
	snap := b.Snapshot()
	if snap[0].Target != 2 || snap[2].Target != 4 {
		t.Errorf("buffer should keep newest samples, got %v", snap)
	}
}

func TestSampleBufferRestore(t *testing.T) {
	b := NewSampleBuffer(2)
	b.Restore([]Sample{{Target: 1}, {Target: 2}, {Target: 3}})
	snap := b.Snapshot()
	if len(snap) != 2 || snap[0].Target != 2 {
		t.Errorf("restore should truncate to newest, got %v", snap)
	}
}
