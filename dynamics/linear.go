package dynamics

import (
	"fmt"

	"github.com/vantage-robotics/mppi"
	"gonum.org/v1/gonum/mat"
)

// Linear is a discrete-time linear dynamical system
//
//	xdot = A*x + B*u
//
// stepped forward by forward-Euler integration: x(t+dt) = x(t) + dt*xdot.
// It is grounded on the teacher's BaseModel.Propagate and Continuous's
// Euler-integration Propagate(x, u, wd, dt), generalized to satisfy
// mppi.Dynamics directly rather than a dedicated filter/model interface
// (spec.md §4.C).
type Linear struct {
	sys   system
	state *mat.VecDense
}

// NewLinear constructs a Linear dynamics model from state matrix A and
// control matrix B. C, if non-nil, is used by Observe; if nil, Observe
// returns the state unchanged. A must be square and non-nil.
func NewLinear(a, b, c *mat.Dense) (*Linear, error) {
	if a == nil {
		return nil, fmt.Errorf("dynamics: state matrix A must be defined")
	}
	r, cc := a.Dims()
	if r != cc {
		return nil, fmt.Errorf("dynamics: state matrix A must be square, got %dx%d", r, cc)
	}
	// pass untyped nils for absent matrices: a nil *mat.Dense wrapped in
	// mat.Matrix would not compare equal to nil inside newSystem.
	var bm, cm mat.Matrix
	if b != nil {
		bm = b
	}
	if c != nil {
		cm = c
	}
	sys := newSystem(a, bm, cm, nil)
	nx, _, _ := sys.dims()
	return &Linear{sys: sys, state: mat.NewVecDense(nx, nil)}, nil
}

// StateDim returns the dimension of the state vector.
func (l *Linear) StateDim() int {
	nx, _, _ := l.sys.dims()
	return nx
}

// ControlDim returns the dimension of the control vector.
func (l *Linear) ControlDim() int {
	_, nu, _ := l.sys.dims()
	return nu
}

// Set replaces the model's current internal state with state.
func (l *Linear) Set(state mat.Vector) {
	l.state.CloneFromVec(state)
}

// Step advances the internal state by dt using control, returning the new
// state. It fails if control's length does not match ControlDim.
func (l *Linear) Step(control mat.Vector, dt float64) (mat.Vector, error) {
	nu := l.ControlDim()
	if control != nil && control.Len() != nu {
		return nil, fmt.Errorf("dynamics: invalid control vector length %d, want %d", control.Len(), nu)
	}
	if dt <= 0 {
		return nil, fmt.Errorf("dynamics: dt must be > 0, got %f", dt)
	}

	xdot := new(mat.Dense)
	xdot.Mul(l.sys.a, l.state)
	if control != nil && l.sys.b != nil {
		bu := new(mat.Dense)
		bu.Mul(l.sys.b, control)
		xdot.Add(xdot, bu)
	}

	xdot.Scale(dt, xdot)
	xdot.Add(xdot, l.state)

	l.state.CopyVec(xdot.ColView(0))

	out := mat.NewVecDense(l.state.Len(), nil)
	out.CopyVec(l.state)
	return out, nil
}

// Observe returns the external output for the current state and control,
// per the model's output matrix C (identity if C was not supplied).
func (l *Linear) Observe(control mat.Vector) (mat.Vector, error) {
	return l.sys.observe(l.state, control)
}

// Copy returns an independent deep copy of l, suitable for handing to a
// rollout worker (spec.md §5).
func (l *Linear) Copy() mppi.Dynamics {
	state := mat.NewVecDense(l.state.Len(), nil)
	state.CopyVec(l.state)
	return &Linear{sys: l.sys.copy(), state: state}
}

var _ mppi.Dynamics = (*Linear)(nil)
