// Package forecast implements the external-disturbance forecasters used
// to predict a wrench (or any other observed vector quantity) applied to
// the controlled system over the MPPI receding horizon (spec.md §4.B):
// a locally-constant (LOCF) variant, a moving-average variant, and a
// Kalman-filter variant with a derivative-chained state transition.
//
// All three satisfy mppi.Forecaster and are safe for concurrent use:
// readers take a shared lock, writers an exclusive one.
package forecast

import (
	"github.com/vantage-robotics/mppi"
	"gonum.org/v1/gonum/mat"
)

// Null is a forecaster that predicts the zero vector at every time. It is
// the handle to give a forecast-reading cost such as cost.ForecastAware
// when no real forecaster is available, grounded on the teacher's
// noise.None: a capability object with empty effect rather than a nil a
// cost implementation has to special-case.
type Null struct {
	dim int
}

// NewNull creates a Null forecaster of the given observed dimension.
func NewNull(dim int) *Null {
	return &Null{dim: dim}
}

// Update is a no-op; Null never has anything to ingest.
func (n *Null) Update(value mat.Vector, t float64) error { return nil }

// Advance is a no-op.
func (n *Null) Advance(t float64) {}

// Forecast always returns the zero vector.
func (n *Null) Forecast(t float64) mat.Vector {
	return mat.NewVecDense(n.dim, nil)
}

// LastUpdateTime always returns zero: Null never observes anything.
func (n *Null) LastUpdateTime() float64 { return 0 }

var _ mppi.Forecaster = (*Null)(nil)
