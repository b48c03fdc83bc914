package cost

import (
	"fmt"

	"github.com/vantage-robotics/mppi"
	"gonum.org/v1/gonum/mat"
)

// ForecastAware wraps a Quadratic cost and adds a penalty term
//
//	weight * ||state[:observedDim] - forecaster.Forecast(t)||^2
//
// against an mppi.Forecaster handle, exercising the "weak handle"
// design described in spec.md §9: the cost only ever reads the forecaster
// through mppi.Forecaster, so a Null forecaster (zero prediction, always)
// degrades ForecastAware to plain tracking with no special-casing required
// on the cost's part.
type ForecastAware struct {
	base       *Quadratic
	forecaster mppi.Forecaster
	weight     float64
	observed   int
}

// NewForecastAware wraps base, penalizing deviation of the first
// observedDim state coordinates from forecaster's prediction, scaled by
// weight.
func NewForecastAware(base *Quadratic, forecaster mppi.Forecaster, observedDim int, weight float64) (*ForecastAware, error) {
	if base == nil {
		return nil, fmt.Errorf("cost: base quadratic cost must be non-nil")
	}
	if forecaster == nil {
		return nil, fmt.Errorf("cost: forecaster must be non-nil (use forecast.NewNull for a no-op handle)")
	}
	if observedDim <= 0 || observedDim > base.StateDim() {
		return nil, fmt.Errorf("cost: observed_dim %d must be in (0, %d]", observedDim, base.StateDim())
	}
	if weight < 0 {
		return nil, fmt.Errorf("cost: weight must be >= 0, got %f", weight)
	}
	return &ForecastAware{base: base, forecaster: forecaster, weight: weight, observed: observedDim}, nil
}

// StateDim returns the dimension of the wrapped state.
func (c *ForecastAware) StateDim() int { return c.base.StateDim() }

// ControlDim returns the dimension of the wrapped control.
func (c *ForecastAware) ControlDim() int { return c.base.ControlDim() }

// Get returns the base quadratic cost plus the forecast-deviation penalty.
func (c *ForecastAware) Get(state, control mat.Vector, dyn mppi.Dynamics, t float64) (float64, error) {
	base, err := c.base.Get(state, control, dyn, t)
	if err != nil {
		return 0, err
	}

	predicted := c.forecaster.Forecast(t)
	penalty := 0.0
	for i := 0; i < c.observed; i++ {
		d := state.AtVec(i) - predicted.AtVec(i)
		penalty += d * d
	}
	penalty *= c.weight

	return base + penalty, nil
}

// Copy returns an independent deep copy. The forecaster handle itself is
// shared, not copied: all rollout workers read the same disturbance
// prediction for a given cycle, they just each hold their own base cost
// state.
func (c *ForecastAware) Copy() mppi.Cost {
	return &ForecastAware{
		base:       c.base.Copy().(*Quadratic),
		forecaster: c.forecaster,
		weight:     c.weight,
		observed:   c.observed,
	}
}

// Reset delegates to the base cost.
func (c *ForecastAware) Reset() { c.base.Reset() }

var _ mppi.Cost = (*ForecastAware)(nil)
