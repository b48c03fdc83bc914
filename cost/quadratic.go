// Package cost implements concrete mppi.Cost stage costs (spec.md §4.D):
// a quadratic state/control tracking cost, and a forecast-aware variant
// that additionally penalizes deviation from a predicted disturbance.
package cost

import (
	"fmt"

	"github.com/vantage-robotics/mppi"
	"gonum.org/v1/gonum/mat"
)

// Quadratic computes the stage cost
//
//	(x - xref)^T Q (x - xref) + u^T R u
//
// against a fixed reference state xref. It is deterministic given its
// inputs and copyable per spec.md §4.D. Q and R are expected to be positive
// semi-definite; NewQuadratic does not check this, and Get returns an error
// instead of a negative cost.
type Quadratic struct {
	q    mat.Symmetric
	r    mat.Symmetric
	xref *mat.VecDense
}

// NewQuadratic constructs a Quadratic cost. q must be stateDim x stateDim,
// r must be controlDim x controlDim, xref must have length stateDim.
func NewQuadratic(q, r mat.Symmetric, xref mat.Vector) (*Quadratic, error) {
	if q == nil || r == nil {
		return nil, fmt.Errorf("cost: q and r must both be non-nil")
	}
	if xref == nil || xref.Len() != q.Symmetric() {
		return nil, fmt.Errorf("cost: xref length must match q's dimension %d", q.Symmetric())
	}

	qc := mat.NewSymDense(q.Symmetric(), nil)
	qc.CopySym(q)
	rc := mat.NewSymDense(r.Symmetric(), nil)
	rc.CopySym(r)
	xr := mat.NewVecDense(xref.Len(), nil)
	xr.CloneFromVec(xref)

	return &Quadratic{q: qc, r: rc, xref: xr}, nil
}

// StateDim returns the dimension of the state this cost was built for.
func (c *Quadratic) StateDim() int { return c.xref.Len() }

// ControlDim returns the dimension of the control this cost was built for.
func (c *Quadratic) ControlDim() int { return c.r.Symmetric() }

// Get returns (x-xref)^T Q (x-xref) + u^T R u. The dynamics and t arguments
// are unused by Quadratic itself; they exist to satisfy mppi.Cost and are
// consulted by wrapping costs such as ForecastAware.
func (c *Quadratic) Get(state, control mat.Vector, dyn mppi.Dynamics, t float64) (float64, error) {
	if state.Len() != c.StateDim() {
		return 0, fmt.Errorf("cost: state length %d does not match %d", state.Len(), c.StateDim())
	}
	if control != nil && control.Len() != c.ControlDim() {
		return 0, fmt.Errorf("cost: control length %d does not match %d", control.Len(), c.ControlDim())
	}

	dx := mat.NewVecDense(state.Len(), nil)
	dx.SubVec(state, c.xref)

	stateCost := mat.Inner(dx, c.q, dx)

	controlCost := 0.0
	if control != nil {
		controlCost = mat.Inner(control, c.r, control)
	}

	total := stateCost + controlCost
	if total < 0 {
		return 0, fmt.Errorf("cost: computed negative cost %f", total)
	}
	return total, nil
}

// Copy returns an independent deep copy, for per-worker rollout replicas.
func (c *Quadratic) Copy() mppi.Cost {
	q := mat.NewSymDense(c.q.Symmetric(), nil)
	q.CopySym(c.q)
	r := mat.NewSymDense(c.r.Symmetric(), nil)
	r.CopySym(c.r)
	xref := mat.NewVecDense(c.xref.Len(), nil)
	xref.CloneFromVec(c.xref)
	return &Quadratic{q: q, r: r, xref: xref}
}

// Reset is a no-op: Quadratic carries no per-rollout mutable state.
func (c *Quadratic) Reset() {}

// SetReference replaces the reference state, e.g. when the caller's
// setpoint moves between update cycles.
func (c *Quadratic) SetReference(xref mat.Vector) error {
	if xref.Len() != c.xref.Len() {
		return fmt.Errorf("cost: new xref length %d does not match %d", xref.Len(), c.xref.Len())
	}
	c.xref.CloneFromVec(xref)
	return nil
}

var _ mppi.Cost = (*Quadratic)(nil)
