package stats

import (
	"math"
	"testing"
)

func TestClamp(t *testing.T) {
	cases := []struct {
		lo, hi, x, want float64
	}{
		{0, 1, -0.5, 0},
		{0, 1, 0.5, 0.5},
		{0, 1, 1.5, 1},
		{0.1, 1.0, 0.1, 0.1},
		{0.1, 1.0, 3.2, 1.0},
	}
	for _, c := range cases {
		if got := Clamp(c.lo, c.hi, c.x); got != c.want {
			t.Errorf("Clamp(%v,%v,%v) = %v, want %v", c.lo, c.hi, c.x, got, c.want)
		}
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	if s.Count != 8 {
		t.Fatalf("count = %d", s.Count)
	}
	if s.Min != 2 || s.Max != 9 {
		t.Errorf("min/max = %v/%v", s.Min, s.Max)
	}
	if s.Avg != 5 {
		t.Errorf("avg = %v, want 5", s.Avg)
	}
	if math.Abs(s.Std-2) > 1e-9 {
		t.Errorf("std = %v, want 2", s.Std)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	if s := Summarize(nil); s != (Summary{}) {
		t.Errorf("empty series should yield zero summary, got %+v", s)
	}
}

func TestRate(t *testing.T) {
	if r := Rate([]float64{10, 20, 30}); r != 10 {
		t.Errorf("rate = %v, want 10", r)
	}
	if r := Rate([]float64{5}); r != 0 {
		t.Errorf("single sample rate = %v, want 0", r)
	}
}
