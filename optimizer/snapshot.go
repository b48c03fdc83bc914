package optimizer

import "gonum.org/v1/gonum/mat"

// Snapshot is a read-only, copy-returning view of a single rollout's noise
// block and its accumulated cost, exposed by Optimizer.Rollout for
// introspection and logging. The copy-on-read convention is carried over
// from the teacher's estimate.Base, generalized from a single state/output
// pair to a rollout's noise matrix and scalar cost.
type Snapshot struct {
	noise *mat.Dense
	cost  float64
}

// Noise returns a copy of the rollout's noise block, shaped
// control_dof x steps.
func (s *Snapshot) Noise() *mat.Dense {
	out := new(mat.Dense)
	out.CloneFrom(s.noise)
	return out
}

// Cost returns the rollout's accumulated cost J_r.
func (s *Snapshot) Cost() float64 {
	return s.cost
}
