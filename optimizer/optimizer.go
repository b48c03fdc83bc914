// Package optimizer implements the MPPI trajectory optimizer (spec.md
// §4.E), the only stateful orchestrator in the module: it maintains the
// nominal control trajectory, schedules rollouts across a worker pool,
// computes the weighted-mean update, and exposes time-parameterized
// evaluation to concurrent callers.
package optimizer

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/rs/zerolog"
	"github.com/vantage-robotics/mppi"
	"github.com/vantage-robotics/mppi/matrix"
	"github.com/vantage-robotics/mppi/rnd"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

// Optimizer is the MPPI controller core. It is safe for concurrent use:
// Update and EvaluateAt may be called from different goroutines, subject to
// the ordering guarantee in spec.md §5 (an evaluator sees either cycle n's
// or cycle n+1's published trajectory, never a mixture).
type Optimizer struct {
	cfg mppi.Config

	dyn  mppi.Dynamics
	cst  mppi.Cost
	samp mppi.Sampler

	controlDim int
	steps      int

	// working is the orchestrator's private nominal trajectory, touched
	// only on the single thread that calls Update; it is never read
	// directly by evaluators.
	working     *mat.Dense // control_dim x steps
	workingTime float64

	// mu guards published and publishedTime, the trajectory exposed to
	// EvaluateAt/CurrentTrajectory. It is held only for the column copy in
	// publish(), never across a rollout cycle (spec.md §5).
	mu            sync.RWMutex
	published     *mat.Dense
	publishedTime float64

	// bank, costs, weights and keptBest are orchestrator-private: only
	// touched on the single thread that calls Update.
	bank     *mat.Dense // (rollouts*control_dim) x steps, noise
	costs    []float64
	weights  []float64
	keptBest []int // rollout indices carried forward as warm-started samples

	// prevPreUpdate is the nominal trajectory as it stood just before the
	// previous cycle's update() mutated it, carried across the cycle
	// boundary and time-shifted alongside working so rollout 1 (the
	// anti-optimum) can negate the gradient that update() actually applied
	// last cycle (spec.md §4.E step 2, scenario S4).
	prevPreUpdate *mat.Dense

	// roughSrc is the pseudo-random source roughenKeptBest draws from when
	// cfg.Roughening is set; nil (and unused) otherwise. Tests override it
	// directly for determinism.
	roughSrc rand.Source

	log zerolog.Logger
}

// New constructs an Optimizer. dyn and cst are the canonical (un-replicated)
// dynamics and cost; workers receive copies via their Copy() methods.
// rolloutTime is the time the initial, all-zero nominal trajectory is
// anchored at.
func New(cfg mppi.Config, dyn mppi.Dynamics, cst mppi.Cost, samp mppi.Sampler, rolloutTime float64) (*Optimizer, error) {
	if dyn.Copy() == nil {
		return nil, fmt.Errorf("optimizer: dynamics Copy returned nil")
	}
	controlDim := dyn.ControlDim()
	if err := cfg.Validate(controlDim); err != nil {
		return nil, fmt.Errorf("optimizer: invalid config: %w", err)
	}
	if cst.ControlDim() != controlDim {
		return nil, fmt.Errorf("optimizer: cost control dim %d does not match dynamics control dim %d", cst.ControlDim(), controlDim)
	}
	if samp.Dim() != controlDim {
		return nil, fmt.Errorf("optimizer: sampler dim %d does not match control dim %d", samp.Dim(), controlDim)
	}

	steps := cfg.Steps()
	rollouts := cfg.Rollouts

	log := cfg.Logger
	if log.GetLevel() == zerolog.Disabled {
		log = zerolog.Nop()
	}

	var roughSrc rand.Source
	if cfg.Roughening {
		roughSrc = rnd.NewSource()
	}

	return &Optimizer{
		cfg:           cfg,
		dyn:           dyn,
		cst:           cst,
		samp:          samp,
		controlDim:    controlDim,
		steps:         steps,
		working:       mat.NewDense(controlDim, steps, nil),
		prevPreUpdate: mat.NewDense(controlDim, steps, nil),
		workingTime:   rolloutTime,
		published:     mat.NewDense(controlDim, steps, nil),
		publishedTime: rolloutTime,
		bank:          mat.NewDense(rollouts*controlDim, steps, nil),
		costs:         make([]float64, rollouts),
		weights:       make([]float64, rollouts),
		roughSrc:      roughSrc,
		log:           log,
	}, nil
}

// RolloutTime returns the time at which the currently published trajectory
// was anchored.
func (o *Optimizer) RolloutTime() float64 {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.publishedTime
}

// CurrentTrajectory returns a copy of the published nominal control
// trajectory.
func (o *Optimizer) CurrentTrajectory() *mat.Dense {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := new(mat.Dense)
	out.CloneFrom(o.published)
	return out
}

// Rollout returns a Snapshot of the i'th rollout's noise block and cost
// from the most recently completed Update cycle.
func (o *Optimizer) Rollout(i int) (*Snapshot, error) {
	if i < 0 || i >= o.cfg.Rollouts {
		return nil, fmt.Errorf("optimizer: rollout index %d out of range [0,%d)", i, o.cfg.Rollouts)
	}
	block := o.bank.Slice(i*o.controlDim, (i+1)*o.controlDim, 0, o.steps).(*mat.Dense)
	noise := new(mat.Dense)
	noise.CloneFrom(block)
	return &Snapshot{noise: noise, cost: o.costs[i]}, nil
}

// EvaluateAt returns the control active at t. With
// k = floor((t-rolloutTime)/stepSize): before rolloutTime it returns column
// 0; for k >= steps (past the horizon) it returns the last column or
// ControlDefaultValue per ControlDefaultLast; for k = steps-1 it returns the
// last column; otherwise it linearly interpolates between columns k and
// k+1. The trajectory mutex is held only for the column copy.
func (o *Optimizer) EvaluateAt(t float64) mat.Vector {
	o.mu.RLock()
	defer o.mu.RUnlock()

	rel := (t - o.publishedTime) / o.cfg.StepSize
	out := mat.NewVecDense(o.controlDim, nil)

	if rel < 0 {
		out.CopyVec(o.published.ColView(0))
		return out
	}
	if rel >= float64(o.steps-1) && rel < float64(o.steps) {
		out.CopyVec(o.published.ColView(o.steps - 1))
		return out
	}
	if rel >= float64(o.steps) {
		if o.cfg.ControlDefaultLast {
			out.CopyVec(o.published.ColView(o.steps - 1))
		} else {
			for i := 0; i < o.controlDim; i++ {
				out.SetVec(i, o.cfg.ControlDefaultValue[i])
			}
		}
		return out
	}

	k := int(rel)
	frac := rel - float64(k)
	for i := 0; i < o.controlDim; i++ {
		a := o.published.At(i, k)
		b := o.published.At(i, k+1)
		out.SetVec(i, a+frac*(b-a))
	}
	return out
}

// Update runs one full MPPI cycle against state observed at callerTime,
// per spec.md §4.E steps 1-6.
func (o *Optimizer) Update(ctx context.Context, state mat.Vector, callerTime float64) error {
	if state.Len() != o.dyn.StateDim() {
		return fmt.Errorf("optimizer: state length %d does not match dynamics state dim %d", state.Len(), o.dyn.StateDim())
	}

	o.timeShift(callerTime)
	o.sample()

	if err := o.rolloutAndScore(ctx, state); err != nil {
		return err
	}

	o.weight()
	o.update()
	o.publish()

	return nil
}

// shiftColumns returns a copy of traj shifted shift columns to the left,
// filling the freed trailing columns with fill.
func shiftColumns(traj *mat.Dense, shift int, rows, steps int, fill []float64) *mat.Dense {
	shifted := mat.NewDense(rows, steps, nil)
	for k := 0; k < steps-shift; k++ {
		shifted.SetCol(k, mat.Col(nil, k+shift, traj))
	}
	for k := steps - shift; k < steps; k++ {
		shifted.SetCol(k, fill)
	}
	return shifted
}

// timeShift implements step 1: shift the nominal trajectory left to align
// with callerTime, filling freed columns on the right per
// control_default_last/control_default_value. prevPreUpdate, which holds
// the nominal as it stood before the previous cycle's update(), is shifted
// by the same amount so it stays time-aligned with working for use in
// sample()'s anti-optimum rollout.
func (o *Optimizer) timeShift(callerTime float64) {
	tau := callerTime - o.workingTime
	if tau < 0 {
		tau = 0
	}
	shift := int(tau / o.cfg.StepSize)
	if shift <= 0 {
		return
	}
	// the clock advances by the full shift even when more than steps
	// columns are dropped.
	advance := shift
	if shift > o.steps {
		shift = o.steps
	}

	fill := make([]float64, o.controlDim)
	if o.cfg.ControlDefaultLast {
		mat.Col(fill, o.steps-1, o.working)
	} else {
		copy(fill, o.cfg.ControlDefaultValue)
	}

	o.working = shiftColumns(o.working, shift, o.controlDim, o.steps, fill)
	o.prevPreUpdate = shiftColumns(o.prevPreUpdate, shift, o.controlDim, o.steps, fill)
	o.workingTime += float64(advance) * o.cfg.StepSize

	// apply the same shift to the kept-best rollouts' noise blocks; the
	// freed columns will be resampled in step 2.
	zeroFill := make([]float64, o.controlDim)
	for _, r := range o.keptBest {
		block := o.bank.Slice(r*o.controlDim, (r+1)*o.controlDim, 0, o.steps).(*mat.Dense)
		rowShifted := shiftColumns(block, shift, o.controlDim, o.steps, zeroFill)
		o.bank.Slice(r*o.controlDim, (r+1)*o.controlDim, 0, o.steps).(*mat.Dense).Copy(rowShifted)
	}
}

// columnSampler is satisfied by samplers that can draw directly into a
// caller-owned buffer (sampler.Gaussian and sampler.Zero both implement
// it), letting sample() reuse one buffer across every column instead of
// allocating a fresh vector per draw. Samplers that don't implement it
// fall back to Sample().
type columnSampler interface {
	SampleInto(dst []float64)
}

// sample implements step 2: draw fresh noise for every non-reserved,
// non-kept-best rollout; reset rollout 0 to zero; set rollout 1 to the
// negated previous optimum's noise.
func (o *Optimizer) sample() {
	kept := make(map[int]bool, len(o.keptBest))
	for _, r := range o.keptBest {
		kept[r] = true
	}

	// rollout 0: zero noise.
	zero := o.bank.Slice(0, o.controlDim, 0, o.steps).(*mat.Dense)
	zero.Zero()

	// rollout 1: negated previous-cycle gradient, i.e. anti-optimum.
	// prevPreUpdate holds the (time-shifted) nominal as it stood before the
	// previous update() call; working is that same update()'s result, also
	// shifted. Their difference is exactly the gradient update() applied
	// last cycle, negated here to hedge against a wrong-direction optimum.
	anti := o.bank.Slice(o.controlDim, 2*o.controlDim, 0, o.steps).(*mat.Dense)
	anti.Sub(o.prevPreUpdate, o.working)

	into, hasInto := o.samp.(columnSampler)
	buf := make([]float64, o.controlDim)

	for r := 2; r < o.cfg.Rollouts; r++ {
		block := o.bank.Slice(r*o.controlDim, (r+1)*o.controlDim, 0, o.steps).(*mat.Dense)
		startCol := 0
		if kept[r] {
			// only the freed columns (those zeroed by the time-shift) need
			// new samples; approximate by resampling any all-zero trailing
			// columns left behind by timeShift.
			startCol = o.steps
			for k := o.steps - 1; k >= 0; k-- {
				allZero := true
				for i := 0; i < o.controlDim; i++ {
					if block.At(i, k) != 0 {
						allZero = false
						break
					}
				}
				if !allZero {
					break
				}
				startCol = k
			}
		}
		for k := startCol; k < o.steps; k++ {
			if hasInto {
				into.SampleInto(buf)
			} else {
				col := o.samp.Sample()
				for i := 0; i < o.controlDim; i++ {
					buf[i] = col.AtVec(i)
				}
			}
			for i := 0; i < o.controlDim; i++ {
				block.Set(i, k, buf[i])
			}
		}
	}
}

// rolloutJob is one unit of work consumed by the worker pool.
type rolloutJob struct {
	index int
}

// rolloutAndScore implements step 3: roll every rollout forward through an
// independent (dynamics, cost) replica and accumulate its discounted cost.
// Rollouts execute across a fixed-size worker pool (spec.md §5); workers
// share only the read-only bank view and their own cost output slot.
func (o *Optimizer) rolloutAndScore(ctx context.Context, state mat.Vector) error {
	workers := o.cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	if workers > o.cfg.Rollouts {
		workers = o.cfg.Rollouts
	}

	jobs := make(chan rolloutJob, o.cfg.Rollouts)
	for r := 0; r < o.cfg.Rollouts; r++ {
		jobs <- rolloutJob{index: r}
	}
	close(jobs)

	var wg sync.WaitGroup
	errs := make([]error, o.cfg.Rollouts)

	for w := 0; w < workers; w++ {
		dyn := o.dyn.Copy()
		cst := o.cst.Copy()

		wg.Add(1)
		go func(dyn mppi.Dynamics, cst mppi.Cost) {
			defer wg.Done()
			for job := range jobs {
				select {
				case <-ctx.Done():
					errs[job.index] = ctx.Err()
					o.costs[job.index] = math.Inf(1)
					continue
				default:
				}
				cost, err := o.scoreRollout(dyn, cst, state, job.index)
				if err != nil {
					errs[job.index] = err
					o.costs[job.index] = math.Inf(1)
					continue
				}
				o.costs[job.index] = cost
			}
		}(dyn, cst)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			o.log.Debug().Err(err).Msg("rollout scoring error, treated as non-finite cost")
		}
	}
	return nil
}

// scoreRollout runs rollout r's control sequence through dyn/cst and
// returns its accumulated discounted cost J_r.
func (o *Optimizer) scoreRollout(dyn mppi.Dynamics, cst mppi.Cost, state mat.Vector, r int) (float64, error) {
	dyn.Set(state)
	cst.Reset()

	block := o.bank.Slice(r*o.controlDim, (r+1)*o.controlDim, 0, o.steps).(*mat.Dense)

	j := 0.0
	discount := 1.0
	cur := mat.NewVecDense(state.Len(), nil)
	cur.CloneFromVec(state)

	for k := 0; k < o.steps; k++ {
		u := mat.NewVecDense(o.controlDim, nil)
		for i := 0; i < o.controlDim; i++ {
			u.SetVec(i, o.working.At(i, k)+block.At(i, k))
		}
		if o.cfg.ControlBound {
			clampVec(u, o.cfg.ControlMin, o.cfg.ControlMax)
		}

		c, err := cst.Get(cur, u, dyn, o.workingTime+float64(k)*o.cfg.StepSize)
		if err != nil {
			return 0, fmt.Errorf("optimizer: rollout %d step %d: %w", r, k, err)
		}
		if c < 0 {
			return 0, fmt.Errorf("optimizer: rollout %d step %d produced negative cost %f", r, k, c)
		}
		j += discount * c
		discount *= o.cfg.CostDiscountFactor

		next, err := dyn.Step(u, o.cfg.StepSize)
		if err != nil {
			return 0, fmt.Errorf("optimizer: rollout %d step %d: %w", r, k, err)
		}
		cur = mat.NewVecDense(next.Len(), nil)
		cur.CloneFromVec(next)
	}
	return j, nil
}

// weight implements step 4: compute exponential costs weights, normalizing
// to sum 1; non-finite rollouts get zero weight; if the weights sum to
// zero, falls back to a uniform weight over finite rollouts. If no rollout
// is finite, every weight stays zero and a warning is logged, so update()
// leaves the nominal unchanged.
func (o *Optimizer) weight() {
	jMin := math.Inf(1)
	for _, j := range o.costs {
		if !math.IsInf(j, 0) && !math.IsNaN(j) && j < jMin {
			jMin = j
		}
	}

	sum := 0.0
	for r, j := range o.costs {
		if math.IsInf(j, 0) || math.IsNaN(j) {
			o.weights[r] = 0
			continue
		}
		w := math.Exp(-(j - jMin) / o.cfg.CostScale)
		o.weights[r] = w
		sum += w
	}

	if sum == 0 {
		finite := 0
		for _, j := range o.costs {
			if !math.IsInf(j, 0) && !math.IsNaN(j) {
				finite++
			}
		}
		if finite == 0 {
			o.log.Warn().Msg("all rollouts failed or produced non-finite cost, nominal left unchanged")
			return
		}
		u := 1.0 / float64(finite)
		for r, j := range o.costs {
			if !math.IsInf(j, 0) && !math.IsNaN(j) {
				o.weights[r] = u
			}
		}
		return
	}

	for r := range o.weights {
		o.weights[r] /= sum
	}
}

// update implements step 5: the weighted-mean noise update, clamped per
// coordinate to gradient_minmax, blended into the nominal by gradient_step.
// It snapshots working into prevPreUpdate before mutating it, so next
// cycle's sample() can recover the gradient this call applied.
func (o *Optimizer) update() {
	o.prevPreUpdate.CloneFrom(o.working)

	g := mat.NewDense(o.controlDim, o.steps, nil)
	for r := 0; r < o.cfg.Rollouts; r++ {
		w := o.weights[r]
		if w == 0 {
			continue
		}
		block := o.bank.Slice(r*o.controlDim, (r+1)*o.controlDim, 0, o.steps).(*mat.Dense)
		scaled := new(mat.Dense)
		scaled.Scale(w, block)
		g.Add(g, scaled)
	}

	for i := 0; i < o.controlDim; i++ {
		for k := 0; k < o.steps; k++ {
			gv := g.At(i, k)
			if gv > o.cfg.GradientMinMax {
				gv = o.cfg.GradientMinMax
			} else if gv < -o.cfg.GradientMinMax {
				gv = -o.cfg.GradientMinMax
			}
			o.working.Set(i, k, o.working.At(i, k)+o.cfg.GradientStep*gv)
		}
	}

	if o.cfg.ControlBound {
		for k := 0; k < o.steps; k++ {
			col := o.working.ColView(k)
			v := mat.NewVecDense(o.controlDim, nil)
			v.CopyVec(col)
			clampVec(v, o.cfg.ControlMin, o.cfg.ControlMax)
			o.working.SetCol(k, v.RawVector().Data)
		}
	}

	o.updateKeptBest()
	o.roughenKeptBest()
}

// updateKeptBest picks the cfg.KeepBestRollouts rollouts (excluding the two
// reserved indices) with the lowest cost, to be warm-started next cycle.
func (o *Optimizer) updateKeptBest() {
	if o.cfg.KeepBestRollouts == 0 {
		o.keptBest = nil
		return
	}
	candidates := make([]int, 0, o.cfg.Rollouts-2)
	for r := 2; r < o.cfg.Rollouts; r++ {
		candidates = append(candidates, r)
	}
	for i := 0; i < len(candidates); i++ {
		for j := i + 1; j < len(candidates); j++ {
			if o.costs[candidates[j]] < o.costs[candidates[i]] {
				candidates[i], candidates[j] = candidates[j], candidates[i]
			}
		}
	}
	n := o.cfg.KeepBestRollouts
	if n > len(candidates) {
		n = len(candidates)
	}
	o.keptBest = append([]int(nil), candidates[:n]...)
}

// roughenKeptBest perturbs the warm-started kept-best rollouts with noise
// drawn from their own empirical covariance, the way particle/bf.go
// roughens resampled particles to counteract sample impoverishment: a
// kept-best rollout's noise is otherwise carried forward cycle after
// cycle unchanged apart from the time shift, so repeatedly keeping the
// same handful of rollouts can collapse the bank's diversity. A no-op
// unless cfg.Roughening is set and at least two rollouts are kept (a
// covariance needs at least two observations).
func (o *Optimizer) roughenKeptBest() {
	n := len(o.keptBest)
	if !o.cfg.Roughening || n < 2 {
		return
	}

	elite := mat.NewDense(o.controlDim, n, nil)
	for c, r := range o.keptBest {
		block := o.bank.Slice(r*o.controlDim, (r+1)*o.controlDim, 0, o.steps).(*mat.Dense)
		elite.SetCol(c, matrix.ColsMean(block))
	}

	cov, err := matrix.Cov(elite)
	if err != nil {
		o.log.Debug().Err(err).Msg("roughening: elite covariance estimate failed, skipping")
		return
	}

	jitter, err := rnd.WithCovN(cov, n, o.roughSrc)
	if err != nil {
		o.log.Debug().Err(err).Msg("roughening: failed to draw perturbations, skipping")
		return
	}
	jitter.Scale(silvermanAlpha(o.controlDim, n), jitter)

	for c, r := range o.keptBest {
		block := o.bank.Slice(r*o.controlDim, (r+1)*o.controlDim, 0, o.steps).(*mat.Dense)
		for i := 0; i < o.controlDim; i++ {
			d := jitter.At(i, c)
			for k := 0; k < o.steps; k++ {
				block.Set(i, k, block.At(i, k)+d)
			}
		}
	}
}

// silvermanAlpha computes Silverman's rule-of-thumb Gaussian kernel
// bandwidth for n samples in dim dimensions (grounded in
// particle/bf/bf.go's AlphaGauss).
func silvermanAlpha(dim, n int) float64 {
	return math.Pow(4.0/(float64(n)*(float64(dim)+2.0)), 1/(float64(dim)+4.0))
}

// publish implements step 6: copy the updated working trajectory into the
// lock-guarded published trajectory that EvaluateAt/CurrentTrajectory read.
// The mutex is held only for this copy, never across a rollout cycle
// (spec.md §5).
func (o *Optimizer) publish() {
	toPublish := o.working
	if o.cfg.Smoothing != nil {
		smoothed, err := smoothTrajectory(o.working, o.cfg.Smoothing)
		if err != nil {
			o.log.Warn().Err(err).Msg("savitzky-golay smoothing failed, publishing raw trajectory")
		} else {
			toPublish = smoothed
		}
	}

	o.mu.Lock()
	o.published.CloneFrom(toPublish)
	o.publishedTime = o.workingTime
	o.mu.Unlock()

	o.log.Debug().
		Float64("rollout_time", o.workingTime).
		Floats64("control_mean_per_dim", matrix.ColsMean(toPublish)).
		Msg("published trajectory")
}

func clampVec(v *mat.VecDense, min, max []float64) {
	for i := 0; i < v.Len(); i++ {
		x := v.AtVec(i)
		if x < min[i] {
			x = min[i]
		} else if x > max[i] {
			x = max[i]
		}
		v.SetVec(i, x)
	}
}
