package forecast

import (
	"fmt"
	"sync"

	"github.com/vantage-robotics/mppi"
	"gonum.org/v1/gonum/mat"
)

type averageSample struct {
	t float64
	v *mat.VecDense
}

// Average maintains a ring of timestamped observations and forecasts the
// arithmetic mean of whatever currently sits in the ring. Any sample older
// than (now - window) is evicted on the next Update/Advance, except the
// single most recent sample is always retained even if it falls outside
// the window (spec.md §4.B) — without that exception the buffer could go
// empty and Forecast would have nothing to average.
type Average struct {
	mu      sync.RWMutex
	dim     int
	window  float64
	samples []averageSample
	now     float64
	seen    bool
}

// NewAverage creates an Average forecaster for observations of dimension
// dim, retaining samples within window time units of the most recent
// Update/Advance call.
func NewAverage(dim int, window float64) (*Average, error) {
	if window <= 0 {
		return nil, fmt.Errorf("forecast: average window must be > 0, got %f", window)
	}
	return &Average{dim: dim, window: window}, nil
}

// Update ingests value at time t. It rejects observations strictly older
// than the newest sample currently in the buffer.
func (a *Average) Update(value mat.Vector, t float64) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.samples) > 0 && t < a.samples[len(a.samples)-1].t {
		return fmt.Errorf("forecast: observation at t=%f is older than newest buffered sample at t=%f", t, a.samples[len(a.samples)-1].t)
	}

	v := mat.NewVecDense(a.dim, nil)
	v.CloneFromVec(value)
	a.samples = append(a.samples, averageSample{t: t, v: v})
	a.now = t
	a.seen = true
	a.evict()
	return nil
}

// Advance moves the forecaster's clock forward without a new observation,
// evicting samples that have fallen outside the window.
func (a *Average) Advance(t float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.now = t
	a.seen = true
	a.evict()
}

// evict drops every sample older than (now - window), always keeping the
// most recent one. Caller must hold a.mu.
func (a *Average) evict() {
	if len(a.samples) <= 1 {
		return
	}
	cutoff := a.now - a.window
	kept := a.samples[:0]
	last := len(a.samples) - 1
	for i, s := range a.samples {
		if s.t >= cutoff || i == last {
			kept = append(kept, s)
		}
	}
	a.samples = kept
}

// Forecast returns the arithmetic mean of the samples currently retained
// in the buffer.
func (a *Average) Forecast(t float64) mat.Vector {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := mat.NewVecDense(a.dim, nil)
	if len(a.samples) == 0 {
		return out
	}
	for _, s := range a.samples {
		out.AddVec(out, s.v)
	}
	out.ScaleVec(1/float64(len(a.samples)), out)
	return out
}

// LastUpdateTime returns the timestamp of the most recent Update or
// Advance call.
func (a *Average) LastUpdateTime() float64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.now
}

// Len reports the number of samples currently retained; exposed for
// testing the eviction invariant of spec.md §8.
func (a *Average) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.samples)
}

var _ mppi.Forecaster = (*Average)(nil)
