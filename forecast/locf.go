package forecast

import (
	"sync"

	"github.com/vantage-robotics/mppi"
	"gonum.org/v1/gonum/mat"
)

// LOCF ("last observation carried forward") returns the most recent
// observation verbatim, regardless of the time it is asked to forecast.
// Observations with a timestamp at or before the last accepted one are
// ignored (spec.md §4.B).
type LOCF struct {
	mu   sync.RWMutex
	dim  int
	last *mat.VecDense
	t    float64
	has  bool
}

// NewLOCF creates a LOCF forecaster for observations of dimension dim.
func NewLOCF(dim int) *LOCF {
	return &LOCF{dim: dim}
}

// Update ingests value at time t. Observations with t <= the last accepted
// timestamp are silently ignored.
func (l *LOCF) Update(value mat.Vector, t float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.has && t <= l.t {
		return nil
	}
	v := mat.NewVecDense(l.dim, nil)
	v.CloneFromVec(value)
	l.last = v
	l.t = t
	l.has = true
	return nil
}

// Advance moves the forecaster's clock forward without a new observation.
// LOCF has nothing to propagate, so this only matters for LastUpdateTime
// bookkeeping when no observation has been seen yet.
func (l *LOCF) Advance(t float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.has {
		l.t = t
	}
}

// Forecast returns the last observed value, regardless of t.
func (l *LOCF) Forecast(t float64) mat.Vector {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if !l.has {
		return mat.NewVecDense(l.dim, nil)
	}
	out := mat.NewVecDense(l.dim, nil)
	out.CloneFromVec(l.last)
	return out
}

// LastUpdateTime returns the timestamp of the most recent accepted
// observation.
func (l *LOCF) LastUpdateTime() float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.t
}

var _ mppi.Forecaster = (*LOCF)(nil)
