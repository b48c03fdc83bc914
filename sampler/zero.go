package sampler

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Zero is a sampler that always draws the zero vector. It implements the
// same Sampler contract as Gaussian and is used directly by tests that
// exercise scenario S2 (zero-variance idempotence) without constructing a
// degenerate Gaussian covariance by hand.
type Zero struct {
	dim int
}

// NewZero creates a zero sampler of the given dimension. It returns an
// error if dim is negative.
func NewZero(dim int) (*Zero, error) {
	if dim < 0 {
		return nil, fmt.Errorf("sampler: invalid dimension: %d", dim)
	}
	return &Zero{dim: dim}, nil
}

// Sample returns a zero vector of length Dim().
func (z *Zero) Sample() mat.Vector {
	return mat.NewVecDense(z.dim, nil)
}

// SampleInto zeroes dst, which must have length Dim().
func (z *Zero) SampleInto(dst []float64) {
	for i := range dst {
		dst[i] = 0
	}
}

// Dim returns the dimension of a drawn vector.
func (z *Zero) Dim() int {
	return z.dim
}

// String implements the Stringer interface.
func (z *Zero) String() string {
	return fmt.Sprintf("Zero{Dim=%d}", z.dim)
}
