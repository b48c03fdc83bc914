// Package matrix collects small gonum helpers shared by the optimizer's
// elite-rollout roughening step and its published-trajectory diagnostics.
package matrix

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Format returns matrix formatter for printing matrices
func Format(m mat.Matrix) fmt.Formatter {
	return mat.Formatted(m, mat.Prefix(""), mat.Squeeze())
}

// rowSums returns a slice containing m's row sums.
// It panics if m is nil.
func rowSums(m *mat.Dense) []float64 {
	rows, _ := m.Dims()
	sum := make([]float64, rows)

	for i := 0; i < rows; i++ {
		sum[i] = floats.Sum(m.RawRowView(i))
	}

	return sum
}

// ColsMean returns, for each row of m, its mean across columns. Used both
// as a published-trajectory diagnostic (mean control per dimension across
// the horizon) and as the per-rollout feature vector roughenKeptBest
// builds its elite covariance from (mean noise per control dimension
// across the rollout's steps).
// It panics if m is nil.
func ColsMean(m *mat.Dense) []float64 {
	_, cols := m.Dims()
	mean := rowSums(m)

	floats.Scale(1/float64(cols), mean)

	return mean
}

// Cov computes the covariance matrix across m's columns, treating each
// column as one independent observation and each row as one variable.
// Grounded in particle/bf/bf.go's post-resampling particle covariance
// estimate (cov, err := matrix.Cov(b.x, "cols")); adapted here for the
// optimizer's elite-rollout roughening, where the columns are kept-best
// rollouts' mean noise vectors rather than particle-filter particles.
// It returns an error if the result is not symmetric within tolerance.
func Cov(m *mat.Dense) (*mat.SymDense, error) {
	rows, cols := m.Dims()
	if cols < 2 {
		return nil, fmt.Errorf("matrix: need at least 2 columns to estimate a covariance, got %d", cols)
	}

	mean := ColsMean(m)
	x := mat.NewDense(rows, cols, nil)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			x.Set(r, c, m.At(r, c)-mean[r])
		}
	}

	cov := new(mat.Dense)
	cov.Mul(x, x.T())
	cov.Scale(1/(float64(cols)-1.0), cov)

	return ToSymDense(cov)
}

// ToSymDense converts m to SymDense (symmetric Dense matrix) if possible.
// It returns error if the provided Dense matrix is not symmetric.
func ToSymDense(m *mat.Dense) (*mat.SymDense, error) {
	r, c := m.Dims()
	if r != c {
		return nil, errors.New("matrix: matrix must be square")
	}

	mT := m.T()
	vals := make([]float64, r*c)
	idx := 0
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if i != j && !floats.EqualWithinAbsOrRel(mT.At(i, j), m.At(i, j), 1e-6, 1e-2) {
				return nil, fmt.Errorf("matrix: not symmetric (%d, %d): %.40f != %.40f\n%v",
					i, j, mT.At(i, j), m.At(i, j), Format(m))
			}
			vals[idx] = m.At(i, j)
			idx++
		}
	}

	return mat.NewSymDense(r, vals), nil
}
