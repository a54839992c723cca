// Package regression provides the small ridge-regression fit the ROP
// optimization agent uses for its model-based parameter search, plus the
// bounded sample buffer it trains on.
package regression

import (
	"errors"
	"fmt"
	"math"
)

// ErrTooFewSamples is returned when a fit is requested below the minimum
// sample count.
var ErrTooFewSamples = errors.New("regression: too few samples")

// Sample is one observed (features, target) pair.
type Sample struct {
	Features []float64 `json:"features"`
	Target   float64   `json:"target"`
}

// Model is a fitted linear model: target ≈ Intercept + Coef · features.
type Model struct {
	Coef      []float64 `json:"coef"`
	Intercept float64   `json:"intercept"`
}

// Predict evaluates the model at features. Feature length must match the
// training dimension.
func (m *Model) Predict(features []float64) (float64, error) {
	if len(features) != len(m.Coef) {
		return 0, fmt.Errorf("regression: feature dimension %d, model expects %d", len(features), len(m.Coef))
	}
	y := m.Intercept
	for i, c := range m.Coef {
		y += c * features[i]
	}
	return y, nil
}

// Fit solves the ridge normal equations (XᵀX + λI)β = Xᵀy with an
// unpenalized intercept. lambda <= 0 falls back to a small default so the
// system stays well conditioned on near-collinear drilling parameters.
func Fit(samples []Sample, lambda float64) (*Model, error) {
	if len(samples) == 0 {
		return nil, ErrTooFewSamples
	}
	dim := len(samples[0].Features)
	if dim == 0 {
		return nil, errors.New("regression: empty feature vector")
	}
	if len(samples) < dim+1 {
		return nil, ErrTooFewSamples
	}
	if lambda <= 0 {
		lambda = 1e-3
	}

	// Augmented design: column 0 is the intercept.
	n := dim + 1
	ata := make([][]float64, n)
	for i := range ata {
		ata[i] = make([]float64, n)
	}
	aty := make([]float64, n)

	row := make([]float64, n)
	for _, s := range samples {
		if len(s.Features) != dim {
			return nil, fmt.Errorf("regression: inconsistent feature dimension %d", len(s.Features))
		}
		row[0] = 1
		copy(row[1:], s.Features)
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				ata[i][j] += row[i] * row[j]
			}
			aty[i] += row[i] * s.Target
		}
	}
	for i := 1; i < n; i++ {
		ata[i][i] += lambda
	}

	beta, err := solve(ata, aty)
	if err != nil {
		return nil, err
	}
	return &Model{Intercept: beta[0], Coef: beta[1:]}, nil
}

// solve runs Gaussian elimination with partial pivoting on a copy of the
// inputs.
func solve(a [][]float64, b []float64) ([]float64, error) {
	n := len(b)
	m := make([][]float64, n)
	for i := range m {
		m[i] = append(append([]float64{}, a[i]...), b[i])
	}

	for col := 0; col < n; col++ {
		pivot := col
		for r := col + 1; r < n; r++ {
			if math.Abs(m[r][col]) > math.Abs(m[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(m[pivot][col]) < 1e-12 {
			return nil, errors.New("regression: singular system")
		}
		m[col], m[pivot] = m[pivot], m[col]
		for r := col + 1; r < n; r++ {
			f := m[r][col] / m[col][col]
			for c := col; c <= n; c++ {
				m[r][c] -= f * m[col][c]
			}
		}
	}

	x := make([]float64, n)
	for i := n - 1; i >= 0; i-- {
		sum := m[i][n]
		for j := i + 1; j < n; j++ {
			sum -= m[i][j] * x[j]
		}
		x[i] = sum / m[i][i]
	}
	return x, nil
}
