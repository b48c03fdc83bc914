// Package mppi implements a sampling-based model-predictive controller
// (MPPI). It repeatedly simulates randomly perturbed control sequences
// against a pluggable dynamics model, scores them with a pluggable cost
// functional, and refines a maintained nominal trajectory toward the
// exponentially-weighted mean of the best samples.
//
// This package only defines the capability contracts a dynamics model and
// a cost functional must satisfy. The trajectory optimizer itself lives
// in the optimizer subpackage, the Gaussian sampler in sampler, and the
// disturbance forecaster in forecast.
package mppi

import "gonum.org/v1/gonum/mat"

// Dynamics simulates one time-step of state evolution under a control
// input. Set reinitializes the dynamics to a given state at the start of
// every rollout; Step must leave the dynamics in the resulting state so
// that subsequent calls to Step chain.
//
// An implementation that cannot produce an independent replica of itself
// (Copy) cannot be used by the optimizer's parallel rollout workers; the
// optimizer treats a nil Copy as a hard construction failure.
type Dynamics interface {
	// StateDim returns the dimension of the state vector.
	StateDim() int
	// ControlDim returns the dimension of the control vector.
	ControlDim() int
	// Set reinitializes the dynamics to state.
	Set(state mat.Vector)
	// Step advances the dynamics by step dt under control and returns the
	// resulting state. The dynamics is left in the returned state.
	Step(control mat.Vector, dt float64) (mat.Vector, error)
	// Copy returns an independent replica of the dynamics, sharing no
	// mutable state with the receiver. Used to give each rollout worker
	// its own replica.
	Copy() Dynamics
}

// Cost scores a (state, control, dynamics, time) tuple with a nonnegative
// scalar. Get must be deterministic given its inputs and the dynamics'
// current state; it is free to read auxiliary quantities the dynamics
// exposes beyond the Dynamics interface (Jacobians, power, frame poses)
// via a type assertion on dyn.
//
// A negative return value is a contract violation: the optimizer's
// weighting step assumes every cost is nonnegative.
type Cost interface {
	// StateDim returns the dimension of the state vector the cost expects.
	StateDim() int
	// ControlDim returns the dimension of the control vector the cost expects.
	ControlDim() int
	// Get scores a state/control pair at time t, given the dynamics'
	// current (post-step) state.
	Get(state, control mat.Vector, dyn Dynamics, t float64) (float64, error)
	// Copy returns an independent replica of the cost, sharing no mutable
	// state with the receiver. Used to give each rollout worker its own
	// replica.
	Copy() Cost
	// Reset clears any accumulated per-cycle state the cost carries
	// between update cycles.
	Reset()
}

// Forecaster predicts a timestamped vector quantity over a future
// horizon. Implementations must be safe for concurrent use: readers take
// a shared lock, writers an exclusive one.
type Forecaster interface {
	// Update ingests a timestamped observation.
	Update(value mat.Vector, t float64) error
	// Advance moves the forecaster's internal time forward without a new
	// observation.
	Advance(t float64)
	// Forecast returns the predicted value at time t.
	Forecast(t float64) mat.Vector
	// LastUpdateTime returns the forecaster's current time, as set by
	// Update and, depending on the implementation, by Advance.
	LastUpdateTime() float64
}

// Sampler draws independent, zero-mean, correlated noise vectors from a
// fixed covariance.
type Sampler interface {
	// Sample draws a single noise vector.
	Sample() mat.Vector
	// Dim returns the dimension of a drawn vector.
	Dim() int
}
