package dynamics

import "gonum.org/v1/gonum/mat"

// InitCond bundles an initial state and covariance. Neither Linear nor the
// Kalman forecaster takes an InitCond directly; its State and Cov can be
// passed to Linear.Set and to KalmanConfig's InitialState/InitialCov.
type InitCond struct {
	state *mat.VecDense
	cov   *mat.SymDense
}

// NewInitCond creates an InitCond holding independent copies of state and
// cov.
func NewInitCond(state mat.Vector, cov mat.Symmetric) *InitCond {
	s := mat.NewVecDense(state.Len(), nil)
	s.CloneFromVec(state)

	c := mat.NewSymDense(cov.Symmetric(), nil)
	c.CopySym(cov)

	return &InitCond{state: s, cov: c}
}

// State returns a copy of the initial state.
func (c *InitCond) State() mat.Vector {
	state := mat.NewVecDense(c.state.Len(), nil)
	state.CloneFromVec(c.state)
	return state
}

// Cov returns a copy of the initial covariance.
func (c *InitCond) Cov() mat.Symmetric {
	cov := mat.NewSymDense(c.cov.Symmetric(), nil)
	cov.CopySym(c.cov)
	return cov
}
