// Package sampler draws correlated Gaussian control-noise vectors for the
// MPPI rollout bank (spec.md §4.A). Construction performs a self-adjoint
// eigen-decomposition of the covariance once; every subsequent Sample call
// is a single matrix-vector multiply against independent standard-normal
// draws.
package sampler

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/vantage-robotics/mppi/rnd"
)

// Gaussian draws independent samples from N(0, Sigma) for a fixed,
// symmetric positive-semidefinite covariance Sigma.
//
// Construction factorizes Sigma = V*Lambda*V^T via a self-adjoint
// eigen-decomposition and stores T = V*sqrt(Lambda); a draw is x = T*z
// where z's entries are independent standard normals. A zero covariance
// yields an all-zero T, so Sample deterministically returns the zero
// vector without any special-casing (spec.md §8, scenario S2).
type Gaussian struct {
	t    *mat.Dense
	dim  int
	cov  mat.Symmetric
	norm distuv.Normal
}

// NewGaussian creates a Gaussian sampler for the given covariance. It
// fails if cov is empty or its eigen-decomposition fails.
func NewGaussian(cov mat.Symmetric) (*Gaussian, error) {
	return newGaussian(cov, rnd.NewSource())
}

// NewGaussianSeeded creates a Gaussian sampler whose draws are
// reproducible: the same seed always yields the same sequence of draws.
// Used by warm-start/anti-optimum scenarios (spec.md §8, S3/S4) that need
// deterministic rollouts in tests.
func NewGaussianSeeded(cov mat.Symmetric, seed uint64) (*Gaussian, error) {
	return newGaussian(cov, rnd.NewSeededSource(seed))
}

func newGaussian(cov mat.Symmetric, src rand.Source) (*Gaussian, error) {
	n := cov.Symmetric()
	if n <= 0 {
		return nil, fmt.Errorf("sampler: covariance must be square and non-empty, got dim %d", n)
	}

	var eig mat.EigenSym
	ok := eig.Factorize(cov, true)
	if !ok {
		return nil, fmt.Errorf("sampler: eigen-decomposition of covariance failed")
	}

	vals := eig.Values(nil)
	var vecs mat.Dense
	eig.VectorsTo(&vecs)

	sqrtLambda := make([]float64, n)
	for i, v := range vals {
		if v < 0 {
			// guard against negative eigenvalues introduced by rounding
			// error on a covariance that is only approximately PSD.
			v = 0
		}
		sqrtLambda[i] = math.Sqrt(v)
	}
	diag := mat.NewDiagDense(n, sqrtLambda)

	t := new(mat.Dense)
	t.Mul(&vecs, diag)

	return &Gaussian{
		t:    t,
		dim:  n,
		cov:  cov,
		norm: distuv.Normal{Mu: 0, Sigma: 1, Src: src},
	}, nil
}

// Sample draws x = T*z, z standard normal, and returns it.
func (g *Gaussian) Sample() mat.Vector {
	z := make([]float64, g.dim)
	for i := range z {
		z[i] = g.norm.Rand()
	}
	x := mat.NewVecDense(g.dim, nil)
	x.MulVec(g.t, mat.NewVecDense(g.dim, z))
	return x
}

// SampleInto draws a sample and writes it into dst, which must have
// length Dim(). It avoids allocating a fresh vector on every draw, for use
// in the optimizer's tight per-rollout sampling loop.
func (g *Gaussian) SampleInto(dst []float64) {
	z := make([]float64, g.dim)
	for i := range z {
		z[i] = g.norm.Rand()
	}
	col := mat.NewVecDense(g.dim, dst)
	col.MulVec(g.t, mat.NewVecDense(g.dim, z))
}

// Dim returns the dimension of a drawn vector.
func (g *Gaussian) Dim() int {
	return g.dim
}

// Cov returns the covariance the sampler was constructed with.
func (g *Gaussian) Cov() mat.Symmetric {
	return g.cov
}

// String implements the Stringer interface.
func (g *Gaussian) String() string {
	return fmt.Sprintf("Gaussian{\nCov=%v\n}", mat.Formatted(g.cov, mat.Prefix("    "), mat.Squeeze()))
}
