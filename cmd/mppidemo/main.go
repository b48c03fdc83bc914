// Command mppidemo drives scenario S1 from the command line: a
// single-integrator plant (xdot = u) tracked to the origin by the MPPI
// trajectory optimizer. It is a thin wiring exercise, grounded in shape on
// the teacher's examples/fall demo binary, swapping stdlib log for
// zerolog's console writer.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/vantage-robotics/mppi"
	"github.com/vantage-robotics/mppi/cost"
	"github.com/vantage-robotics/mppi/dynamics"
	"github.com/vantage-robotics/mppi/optimizer"
	"github.com/vantage-robotics/mppi/sampler"
	"gonum.org/v1/gonum/mat"
)

func main() {
	initial := flag.Float64("x0", 2.0, "initial state")
	cycles := flag.Int("cycles", 30, "number of update/step cycles to run")
	seed := flag.Uint64("seed", 1, "sampler seed")
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	if err := run(log, *initial, *cycles, *seed); err != nil {
		log.Fatal().Err(err).Msg("mppidemo failed")
	}
}

func run(log zerolog.Logger, x0 float64, cycles int, seed uint64) error {
	a := mat.NewDense(1, 1, []float64{0})
	b := mat.NewDense(1, 1, []float64{1})
	dyn, err := dynamics.NewLinear(a, b, nil)
	if err != nil {
		return err
	}

	q := mat.NewSymDense(1, []float64{1})
	r := mat.NewSymDense(1, []float64{0.1})
	xref := mat.NewVecDense(1, []float64{0})
	cst, err := cost.NewQuadratic(q, r, xref)
	if err != nil {
		return err
	}

	cov := mat.NewSymDense(1, []float64{0.25})
	samp, err := sampler.NewGaussianSeeded(cov, seed)
	if err != nil {
		return err
	}

	cfg := mppi.Config{
		Rollouts:           64,
		KeepBestRollouts:   8,
		StepSize:           0.05,
		Horizon:            1.0,
		GradientStep:       1.0,
		GradientMinMax:     10.0,
		CostScale:          1.0,
		CostDiscountFactor: 0.95,
		Covariance:         cov,
		ControlDefaultLast: true,
		Workers:            4,
		Logger:             log,
	}

	opt, err := optimizer.New(cfg, dyn, cst, samp, 0)
	if err != nil {
		return err
	}

	state := mat.NewVecDense(1, []float64{x0})
	ctx := context.Background()

	for i := 0; i < cycles; i++ {
		t := float64(i) * cfg.StepSize
		if err := opt.Update(ctx, state, t); err != nil {
			return err
		}

		u := opt.EvaluateAt(t)
		next, err := dyn.Step(u, cfg.StepSize)
		if err != nil {
			return err
		}
		state = mat.NewVecDense(1, []float64{next.AtVec(0)})

		log.Info().
			Float64("t", t).
			Float64("state", state.AtVec(0)).
			Float64("control", u.AtVec(0)).
			Msg("cycle")
	}

	return nil
}
