// Package rnd centralizes how the sampler and optimizer packages build
// their pseudo-random sources: wall-clock seeded by default, or seeded
// reproducibly on request. Each call returns an independent source.
package rnd

import (
	"fmt"
	"math"
	"time"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

// NewSource returns a rand.Source seeded from the wall clock. Two calls in
// quick succession may share a seed; callers that need guaranteed
// independence across sources should use NewSeededSource with distinct
// seeds instead.
func NewSource() rand.Source {
	return rand.NewSource(uint64(time.Now().UnixNano()))
}

// NewSeededSource returns a rand.Source that reproduces the same draw
// sequence for the same seed, every process run.
func NewSeededSource(seed uint64) rand.Source {
	return rand.NewSource(seed)
}

// WithCovN draws n column samples from a zero-mean Normal distribution
// with covariance cov in a single batched matrix multiply and returns
// them as the columns of an (dim x n) matrix. It uses an SVD factorization
// rather than the eigen-decomposition sampler.Gaussian uses, since it is
// not on the optimizer's per-rollout hot path; the optimizer uses it for
// the kept-best roughening jitter. It fails if n is non-positive or the
// SVD factorization fails.
func WithCovN(cov mat.Symmetric, n int, src rand.Source) (*mat.Dense, error) {
	if n <= 0 {
		return nil, fmt.Errorf("rnd: invalid number of samples requested: %d", n)
	}

	var svd mat.SVD
	ok := svd.Factorize(cov, mat.SVDFull)
	if !ok {
		return nil, fmt.Errorf("rnd: SVD factorization failed")
	}

	U := new(mat.Dense)
	svd.UTo(U)
	vals := svd.Values(nil)
	for i := range vals {
		vals[i] = math.Sqrt(vals[i])
	}
	diag := mat.NewDiagDense(len(vals), vals)
	U.Mul(U, diag)

	if src == nil {
		src = NewSource()
	}
	r := rand.New(src)

	rows, _ := cov.Dims()
	data := make([]float64, rows*n)
	for i := range data {
		data[i] = r.NormFloat64()
	}
	samples := mat.NewDense(rows, n, data)
	samples.Mul(U, samples)

	return samples, nil
}
