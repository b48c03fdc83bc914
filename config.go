package mppi

import (
	"fmt"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
)

// Config is the frozen configuration an Optimizer is constructed from.
// Every field is validated at construction; invalid configurations fail
// construction and never surface once an optimizer is running.
type Config struct {
	// Rollouts is the total number of trajectories scored per cycle,
	// including the two reserved rollouts (zero-noise and anti-optimum).
	// Must be >= 2.
	Rollouts int
	// KeepBestRollouts is the number of best-scoring rollouts from the
	// previous cycle whose noise is warm-started into the next cycle.
	// Must be in [0, Rollouts-2].
	KeepBestRollouts int
	// StepSize is the time Delta between trajectory columns. Must be > 0.
	StepSize float64
	// Horizon is the total time each rollout covers. Must be > 0; the
	// number of trajectory columns is ceil(Horizon/StepSize).
	Horizon float64
	// GradientStep is the blending factor gradient_step in (0, 1] applied
	// to the weighted-mean update.
	GradientStep float64
	// GradientMinMax is the per-coordinate clamp applied to the update
	// increment before it is blended in. Must be > 0.
	GradientMinMax float64
	// CostScale is lambda in w_i ∝ exp(-(J_i - J_min)/lambda). Must be > 0.
	CostScale float64
	// CostDiscountFactor is gamma in (0, 1]; per-step cost k is multiplied
	// by gamma^k.
	CostDiscountFactor float64
	// Covariance is the covariance Sigma used to draw control-noise
	// columns for non-reserved rollouts.
	Covariance mat.Symmetric
	// ControlBound, if true, clamps every coordinate of the published
	// nominal trajectory to [ControlMin[i], ControlMax[i]].
	ControlBound bool
	// ControlMin, ControlMax are the per-coordinate clamp bounds used
	// when ControlBound is set. Their length must equal ControlDim.
	ControlMin, ControlMax []float64
	// ControlDefaultLast, if true, emits the trajectory's last column for
	// times past the horizon; otherwise ControlDefaultValue is emitted.
	ControlDefaultLast bool
	// ControlDefaultValue is the control emitted past the horizon when
	// ControlDefaultLast is false. Its length must equal ControlDim.
	ControlDefaultValue []float64
	// Workers is the size of the rollout worker pool. Defaults to 1 if
	// not set.
	Workers int
	// Smoothing, if non-nil, applies Savitzky-Golay post-smoothing to the
	// published trajectory before evaluation. See Smoothing.
	Smoothing *Smoothing
	// Roughening, if true, jitters the warm-started kept-best rollouts
	// each cycle with noise drawn from their own empirical covariance, the
	// way a bootstrap particle filter roughens particles after resampling
	// to avoid sample impoverishment. Has no effect when KeepBestRollouts
	// < 2 (a covariance needs at least two observations).
	Roughening bool
	// Logger is the injected structured log sink for warnings described
	// in spec §7. A zero-value Logger behaves like zerolog.Nop().
	Logger zerolog.Logger
}

// Smoothing configures the optional Savitzky-Golay post-smoothing pass
// (spec.md §1 Non-goals explicitly allows this as the one exception to
// "no smoothness guarantees beyond the weighted filter").
type Smoothing struct {
	// Window is the number of trajectory columns the smoothing kernel
	// spans. Must be odd and >= PolyOrder+2.
	Window int
	// PolyOrder is the degree of the local polynomial fit. Must be >= 1.
	PolyOrder int
}

// Validate checks c for the conditions listed in spec.md §6: mismatched
// dimensions, non-positive durations, KeepBestRollouts >= Rollouts-1, and
// control bounds mismatching control_dof are all construction failures.
func (c *Config) Validate(controlDim int) error {
	if c.Rollouts < 2 {
		return fmt.Errorf("mppi: rollouts must be >= 2, got %d", c.Rollouts)
	}
	if c.KeepBestRollouts < 0 || c.KeepBestRollouts > c.Rollouts-2 {
		return fmt.Errorf("mppi: keep_best_rollouts must be in [0, %d], got %d", c.Rollouts-2, c.KeepBestRollouts)
	}
	if c.StepSize <= 0 {
		return fmt.Errorf("mppi: step_size must be > 0, got %f", c.StepSize)
	}
	if c.Horizon <= 0 {
		return fmt.Errorf("mppi: horizon must be > 0, got %f", c.Horizon)
	}
	if c.GradientStep <= 0 || c.GradientStep > 1 {
		return fmt.Errorf("mppi: gradient_step must be in (0, 1], got %f", c.GradientStep)
	}
	if c.GradientMinMax <= 0 {
		return fmt.Errorf("mppi: gradient_minmax must be > 0, got %f", c.GradientMinMax)
	}
	if c.CostScale <= 0 {
		return fmt.Errorf("mppi: cost_scale must be > 0, got %f", c.CostScale)
	}
	if c.CostDiscountFactor <= 0 || c.CostDiscountFactor > 1 {
		return fmt.Errorf("mppi: cost_discount_factor must be in (0, 1], got %f", c.CostDiscountFactor)
	}
	if c.Covariance == nil {
		return fmt.Errorf("mppi: covariance must be set")
	}
	if c.Covariance.Symmetric() != controlDim {
		return fmt.Errorf("mppi: covariance dimension %d does not match control dimension %d", c.Covariance.Symmetric(), controlDim)
	}
	if c.ControlBound {
		if len(c.ControlMin) != controlDim || len(c.ControlMax) != controlDim {
			return fmt.Errorf("mppi: control_min/control_max must have length %d", controlDim)
		}
		for i := range c.ControlMin {
			if c.ControlMin[i] > c.ControlMax[i] {
				return fmt.Errorf("mppi: control_min[%d] (%f) > control_max[%d] (%f)", i, c.ControlMin[i], i, c.ControlMax[i])
			}
		}
	}
	if !c.ControlDefaultLast && len(c.ControlDefaultValue) != controlDim {
		return fmt.Errorf("mppi: control_default_value must have length %d", controlDim)
	}
	if c.Smoothing != nil {
		if c.Smoothing.PolyOrder < 1 {
			return fmt.Errorf("mppi: smoothing poly_order must be >= 1, got %d", c.Smoothing.PolyOrder)
		}
		if c.Smoothing.Window%2 == 0 || c.Smoothing.Window < c.Smoothing.PolyOrder+2 {
			return fmt.Errorf("mppi: smoothing window must be odd and >= poly_order+2, got window=%d poly_order=%d", c.Smoothing.Window, c.Smoothing.PolyOrder)
		}
	}
	if c.Workers < 0 {
		return fmt.Errorf("mppi: workers must be >= 0, got %d", c.Workers)
	}
	return nil
}

// Steps returns ceil(Horizon/StepSize), the number of trajectory columns.
func (c *Config) Steps() int {
	n := c.Horizon / c.StepSize
	steps := int(n)
	if n-float64(steps) > 1e-9 {
		steps++
	}
	if steps < 1 {
		steps = 1
	}
	return steps
}
