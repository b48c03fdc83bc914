package forecast

import (
	"fmt"
	"sync"

	"github.com/vantage-robotics/mppi"
	"gonum.org/v1/gonum/mat"
)

// Kalman forecasts a d-dimensional observed quantity by tracking its
// value and its first n derivatives in a state vector of size
// s = d*(n+1), laid out as [x, x', x'', ...] (spec.md §3/§4.B). The state
// transition matrix F implements the Taylor integration rule
//
//	x^(k)(t+Delta) = sum_j (Delta^j / j!) x^(k+j)(t)
//
// and the observation matrix is H = [I_d | 0]. Update runs the standard
// Kalman correct step (Joseph-form covariance update, grounded on
// kalman/kf's Predict/Update split) and then copies the corrected
// estimate into a second "predictor" copy that is iterated forward
// `steps` times to fill the prediction buffer Forecast interpolates
// against.
type Kalman struct {
	mu sync.RWMutex

	d     int
	n     int
	dt    float64
	steps int

	f *mat.Dense // state transition matrix, s x s
	h *mat.Dense // observation matrix, d x s
	q *mat.SymDense
	r *mat.SymDense

	x *mat.VecDense // filter state estimate, s
	p *mat.SymDense // filter covariance, s x s

	// buffer holds the zeroth-derivative prediction at
	// lastUpdate, lastUpdate+dt, ..., lastUpdate+steps*dt in its columns.
	buffer     *mat.Dense
	lastUpdate float64
	hasUpdate  bool
}

// KalmanConfig is the construction-time configuration for a Kalman
// forecaster.
type KalmanConfig struct {
	// ObservedDim is d, the dimension of the observed quantity.
	ObservedDim int
	// Order is n, the highest tracked derivative.
	Order int
	// TimeStep is Delta, the prediction buffer's column spacing.
	TimeStep float64
	// Horizon is the total time the prediction buffer covers; steps =
	// ceil(Horizon/TimeStep).
	Horizon float64
	// ProcessNoise is Q, the transition covariance, sized s x s where
	// s = ObservedDim*(Order+1).
	ProcessNoise mat.Symmetric
	// ObservationNoise is R, the observation covariance, sized
	// ObservedDim x ObservedDim.
	ObservationNoise mat.Symmetric
	// InitialState is the initial state estimate, length s. May be nil
	// for a zero initial state.
	InitialState mat.Vector
	// InitialCov is the initial state covariance, sized s x s. May be nil
	// for a zero initial covariance.
	InitialCov mat.Symmetric
}

// NewKalman constructs a Kalman forecaster from cfg. It fails construction
// if any matrix has the wrong shape (spec.md §4.B).
func NewKalman(cfg KalmanConfig) (*Kalman, error) {
	if cfg.ObservedDim <= 0 {
		return nil, fmt.Errorf("forecast: observed_dim must be > 0, got %d", cfg.ObservedDim)
	}
	if cfg.Order < 0 {
		return nil, fmt.Errorf("forecast: order must be >= 0, got %d", cfg.Order)
	}
	if cfg.TimeStep <= 0 {
		return nil, fmt.Errorf("forecast: time_step must be > 0, got %f", cfg.TimeStep)
	}
	if cfg.Horizon <= 0 {
		return nil, fmt.Errorf("forecast: horizon must be > 0, got %f", cfg.Horizon)
	}

	d, n := cfg.ObservedDim, cfg.Order
	s := d * (n + 1)

	if cfg.ProcessNoise != nil && cfg.ProcessNoise.Symmetric() != s {
		return nil, fmt.Errorf("forecast: process noise dimension %d does not match state dimension %d", cfg.ProcessNoise.Symmetric(), s)
	}
	if cfg.ObservationNoise != nil && cfg.ObservationNoise.Symmetric() != d {
		return nil, fmt.Errorf("forecast: observation noise dimension %d does not match observed_dim %d", cfg.ObservationNoise.Symmetric(), d)
	}
	if cfg.InitialState != nil && cfg.InitialState.Len() != s {
		return nil, fmt.Errorf("forecast: initial state length %d does not match state dimension %d", cfg.InitialState.Len(), s)
	}
	if cfg.InitialCov != nil && cfg.InitialCov.Symmetric() != s {
		return nil, fmt.Errorf("forecast: initial covariance dimension %d does not match state dimension %d", cfg.InitialCov.Symmetric(), s)
	}

	f := taylorTransition(d, n, cfg.TimeStep)
	h := observationMatrix(d, n)

	q := cfg.ProcessNoise
	if q == nil {
		q = mat.NewSymDense(s, nil)
	}
	r := cfg.ObservationNoise
	if r == nil {
		r = mat.NewSymDense(d, nil)
	}

	x := mat.NewVecDense(s, nil)
	if cfg.InitialState != nil {
		x.CloneFromVec(cfg.InitialState)
	}
	p := mat.NewSymDense(s, nil)
	if cfg.InitialCov != nil {
		p.CopySym(cfg.InitialCov)
	}

	steps := int(cfg.Horizon / cfg.TimeStep)
	if cfg.Horizon/cfg.TimeStep-float64(steps) > 1e-9 {
		steps++
	}
	if steps < 1 {
		steps = 1
	}

	qSym, err := toSymDense(q)
	if err != nil {
		return nil, fmt.Errorf("forecast: process noise: %w", err)
	}
	rSym, err := toSymDense(r)
	if err != nil {
		return nil, fmt.Errorf("forecast: observation noise: %w", err)
	}

	k := &Kalman{
		d:      d,
		n:      n,
		dt:     cfg.TimeStep,
		steps:  steps,
		f:      f,
		h:      h,
		q:      qSym,
		r:      rSym,
		x:      x,
		p:      p,
		buffer: mat.NewDense(d, steps+1, nil),
	}
	k.fillBuffer()
	return k, nil
}

// taylorTransition builds the s x s state transition matrix implementing
// x^(k)(t+Delta) = sum_j (Delta^j / j!) x^(k+j)(t) for k = 0..n.
func taylorTransition(d, n int, dt float64) *mat.Dense {
	s := d * (n + 1)
	f := mat.NewDense(s, s, nil)
	fact := 1.0
	for k := 0; k <= n; k++ {
		fact = 1.0
		for j := 0; j+k <= n; j++ {
			if j > 0 {
				fact *= dt / float64(j)
			}
			for i := 0; i < d; i++ {
				f.Set(k*d+i, (k+j)*d+i, fact)
			}
		}
	}
	return f
}

// observationMatrix builds H = [I_d | 0], d x s.
func observationMatrix(d, n int) *mat.Dense {
	s := d * (n + 1)
	h := mat.NewDense(d, s, nil)
	for i := 0; i < d; i++ {
		h.Set(i, i, 1)
	}
	return h
}

func toSymDense(m mat.Symmetric) (*mat.SymDense, error) {
	if sd, ok := m.(*mat.SymDense); ok {
		out := mat.NewSymDense(sd.Symmetric(), nil)
		out.CopySym(sd)
		return out, nil
	}
	n := m.Symmetric()
	out := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			out.SetSym(i, j, m.At(i, j))
		}
	}
	return out, nil
}

// Update runs the Kalman correct step against value observed at time t,
// then advances the internal predictor steps times to refill the
// prediction buffer. It fails if value's length does not match
// ObservedDim; the last good forecast is retained in that case (spec.md §7.5).
func (k *Kalman) Update(value mat.Vector, t float64) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if value.Len() != k.d {
		return fmt.Errorf("forecast: observation length %d does not match observed_dim %d", value.Len(), k.d)
	}

	if k.hasUpdate && t > k.lastUpdate {
		k.predictN(k.stepsBetween(t))
	}

	// innovation = value - H*x
	hx := mat.NewVecDense(k.d, nil)
	hx.MulVec(k.h, k.x)
	inn := mat.NewVecDense(k.d, nil)
	inn.SubVec(value, hx)

	// S = H*P*H^T + R
	ph := new(mat.Dense)
	ph.Mul(k.p, k.h.T())
	s := new(mat.Dense)
	s.Mul(k.h, ph)
	s.Add(s, k.r)

	var sInv mat.Dense
	if err := sInv.Inverse(s); err != nil {
		return fmt.Errorf("forecast: innovation covariance is not invertible: %w", err)
	}

	// K = P*H^T*S^-1
	gain := new(mat.Dense)
	gain.Mul(ph, &sInv)

	// x = x + K*innovation
	corr := new(mat.Dense)
	corr.Mul(gain, inn)
	k.x.AddVec(k.x, corr.ColView(0))

	// Joseph form: P = (I-KH)*P*(I-KH)^T + K*R*K^T
	sDim := k.x.Len()
	ikh := new(mat.Dense)
	ikh.Mul(gain, k.h)
	eye := mat.NewDiagDense(sDim, nil)
	for i := 0; i < sDim; i++ {
		eye.SetDiag(i, 1)
	}
	a := new(mat.Dense)
	a.Sub(eye, ikh)

	apat := new(mat.Dense)
	apat.Mul(a, k.p)
	apat.Mul(apat, a.T())

	krk := new(mat.Dense)
	kr := new(mat.Dense)
	kr.Mul(gain, k.r)
	krk.Mul(kr, gain.T())

	pNext := new(mat.Dense)
	pNext.Add(apat, krk)

	for i := 0; i < sDim; i++ {
		for j := i; j < sDim; j++ {
			k.p.SetSym(i, j, pNext.At(i, j))
		}
	}

	k.lastUpdate = t
	k.hasUpdate = true
	k.fillBuffer()
	return nil
}

// Advance moves the filter's internal time forward without a new
// observation, propagating the state estimate (but not correcting it) and
// refilling the prediction buffer from the advanced estimate.
func (k *Kalman) Advance(t float64) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if !k.hasUpdate {
		k.lastUpdate = t
		k.hasUpdate = true
		k.fillBuffer()
		return
	}
	if t <= k.lastUpdate {
		return
	}
	k.predictN(k.stepsBetween(t))
	k.lastUpdate = t
	k.fillBuffer()
}

// stepsBetween returns how many Delta-sized predict steps separate
// k.lastUpdate from t, rounded up (within 1e-9) and floored at 1.
func (k *Kalman) stepsBetween(t float64) int {
	n := int((t - k.lastUpdate) / k.dt)
	if float64(n)*k.dt < t-k.lastUpdate-1e-9 {
		n++
	}
	if n < 1 {
		n = 1
	}
	return n
}

// predictN propagates k.x, k.p forward by n Delta-steps: x = F*x,
// P = F*P*F^T + Q.
func (k *Kalman) predictN(n int) {
	for i := 0; i < n; i++ {
		xNext := new(mat.Dense)
		xNext.Mul(k.f, k.x)
		k.x.CopyVec(xNext.ColView(0))

		pNext := new(mat.Dense)
		pNext.Mul(k.f, k.p)
		pNext.Mul(pNext, k.f.T())
		pNext.Add(pNext, k.q)

		sDim := k.x.Len()
		for r := 0; r < sDim; r++ {
			for c := r; c < sDim; c++ {
				k.p.SetSym(r, c, pNext.At(r, c))
			}
		}
	}
}

// fillBuffer copies the current estimate to an independent predictor copy
// and iterates it forward k.steps times, recording the first d entries of
// each predicted state. Caller must hold k.mu.
func (k *Kalman) fillBuffer() {
	xPred := mat.NewVecDense(k.x.Len(), nil)
	xPred.CopyVec(k.x)

	for i := 0; i < k.d; i++ {
		k.buffer.Set(i, 0, xPred.AtVec(i))
	}
	for col := 1; col <= k.steps; col++ {
		next := new(mat.Dense)
		next.Mul(k.f, xPred)
		xPred.CopyVec(next.ColView(0))
		for i := 0; i < k.d; i++ {
			k.buffer.Set(i, col, xPred.AtVec(i))
		}
	}
}

// Forecast clamps t to [lastUpdate, lastUpdate+horizon], locates the two
// bracketing prediction-buffer columns and linearly interpolates between
// them.
func (k *Kalman) Forecast(t float64) mat.Vector {
	k.mu.RLock()
	defer k.mu.RUnlock()

	rel := (t - k.lastUpdate) / k.dt
	if rel < 0 {
		rel = 0
	}
	maxRel := float64(k.steps)
	if rel > maxRel {
		rel = maxRel
	}

	lo := int(rel)
	if lo >= k.steps {
		lo = k.steps - 1
		if lo < 0 {
			lo = 0
		}
	}
	hi := lo + 1
	if hi > k.steps {
		hi = k.steps
	}
	frac := rel - float64(lo)

	out := mat.NewVecDense(k.d, nil)
	for i := 0; i < k.d; i++ {
		a := k.buffer.At(i, lo)
		b := k.buffer.At(i, hi)
		out.SetVec(i, a+frac*(b-a))
	}
	return out
}

// LastUpdateTime returns the time of the most recent Update or Advance
// call.
func (k *Kalman) LastUpdateTime() float64 {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.lastUpdate
}

// State returns a copy of the filter's current state estimate, for
// introspection/logging.
func (k *Kalman) State() mat.Vector {
	k.mu.RLock()
	defer k.mu.RUnlock()
	out := mat.NewVecDense(k.x.Len(), nil)
	out.CopyVec(k.x)
	return out
}

// Cov returns a copy of the filter's current state covariance.
func (k *Kalman) Cov() mat.Symmetric {
	k.mu.RLock()
	defer k.mu.RUnlock()
	out := mat.NewSymDense(k.p.Symmetric(), nil)
	out.CopySym(k.p)
	return out
}

var _ mppi.Forecaster = (*Kalman)(nil)
