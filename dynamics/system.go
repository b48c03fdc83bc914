// Package dynamics provides concrete mppi.Dynamics implementations for the
// MPPI trajectory optimizer (spec.md §4.C), grounded on the teacher's
// control-theoretic System/BaseModel matrix conventions.
package dynamics

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// system defines a linear model of a plant using the traditional A/B/C/D
// matrices of modern control theory: state matrix A, input matrix B, output
// matrix C and feedthrough matrix D.
type system struct {
	// a is the state matrix.
	a *mat.Dense
	// b is the control matrix.
	b *mat.Dense
	// c is the output matrix.
	c *mat.Dense
	// d is the feedthrough matrix.
	d *mat.Dense
}

func newSystem(a, b, c, d mat.Matrix) system {
	sys := system{a: mat.DenseCopyOf(a)}
	if b != nil {
		sys.b = mat.DenseCopyOf(b)
	}
	if c != nil {
		sys.c = mat.DenseCopyOf(c)
	}
	if d != nil {
		sys.d = mat.DenseCopyOf(d)
	}
	return sys
}

func (s system) copy() system {
	out := system{a: mat.DenseCopyOf(s.a)}
	if s.b != nil {
		out.b = mat.DenseCopyOf(s.b)
	}
	if s.c != nil {
		out.c = mat.DenseCopyOf(s.c)
	}
	if s.d != nil {
		out.d = mat.DenseCopyOf(s.d)
	}
	return out
}

// dims returns internal state length (nx), input vector length (nu) and
// observed/output state length (ny).
func (s system) dims() (nx, nu, ny int) {
	nx, _ = s.a.Dims()
	if s.b != nil {
		_, nu = s.b.Dims()
	}
	if s.c != nil {
		ny, _ = s.c.Dims()
	} else {
		ny = nx
	}
	return nx, nu, ny
}

// observe returns the external/observable output given internal state x and
// input u. If no output matrix C was supplied, the state itself is the
// output (identity observation).
func (s system) observe(x, u mat.Vector) (mat.Vector, error) {
	nx, nu, _ := s.dims()
	if u != nil && u.Len() != nu {
		return nil, fmt.Errorf("dynamics: invalid input vector length %d, want %d", u.Len(), nu)
	}
	if x.Len() != nx {
		return nil, fmt.Errorf("dynamics: invalid state vector length %d, want %d", x.Len(), nx)
	}

	if s.c == nil {
		out := mat.NewVecDense(nx, nil)
		out.CopyVec(x)
		return out, nil
	}

	out := new(mat.Dense)
	out.Mul(s.c, x)
	if u != nil && s.d != nil {
		outU := new(mat.Dense)
		outU.Mul(s.d, u)
		out.Add(out, outU)
	}
	return out.ColView(0), nil
}
