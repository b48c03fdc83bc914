package cost

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vantage-robotics/mppi/forecast"
	"gonum.org/v1/gonum/mat"
)

func newBase(t *testing.T) *Quadratic {
	t.Helper()
	q := mat.NewSymDense(1, []float64{1})
	r := mat.NewSymDense(1, []float64{1})
	base, err := NewQuadratic(q, r, mat.NewVecDense(1, []float64{0}))
	require.NoError(t, err)
	return base
}

func TestNewForecastAwareValidates(t *testing.T) {
	assert := assert.New(t)
	base := newBase(t)
	null := forecast.NewNull(1)

	_, err := NewForecastAware(nil, null, 1, 1.0)
	assert.Error(err)

	_, err = NewForecastAware(base, nil, 1, 1.0)
	assert.Error(err)

	_, err = NewForecastAware(base, null, 0, 1.0)
	assert.Error(err)

	_, err = NewForecastAware(base, null, 1, -1.0)
	assert.Error(err)
}

func TestForecastAwareWithNullDegradesToBase(t *testing.T) {
	assert := assert.New(t)
	base := newBase(t)
	null := forecast.NewNull(1)

	fa, err := NewForecastAware(base, null, 1, 10.0)
	require.NoError(t, err)

	state := mat.NewVecDense(1, []float64{2})
	control := mat.NewVecDense(1, []float64{0})

	got, err := fa.Get(state, control, nil, 0)
	require.NoError(t, err)

	want, err := base.Get(state, control, nil, 0)
	require.NoError(t, err)

	// Null always forecasts zero, matching the reference in this test, so
	// the penalty term vanishes and fa should equal the base cost exactly.
	assert.Equal(want, got)
}

func TestForecastAwarePenalizesDeviationFromForecast(t *testing.T) {
	assert := assert.New(t)
	base := newBase(t)
	locf := forecast.NewLOCF(1)
	require.NoError(t, locf.Update(mat.NewVecDense(1, []float64{5}), 0))

	fa, err := NewForecastAware(base, locf, 1, 2.0)
	require.NoError(t, err)

	got, err := fa.Get(mat.NewVecDense(1, []float64{0}), mat.NewVecDense(1, []float64{0}), nil, 1.0)
	require.NoError(t, err)

	// base cost is 0 (state == xref == 0), penalty is 2*(0-5)^2 = 50
	assert.Equal(50.0, got)
}

func TestForecastAwareCopySharesForecasterNotState(t *testing.T) {
	assert := assert.New(t)
	base := newBase(t)
	null := forecast.NewNull(1)

	fa, err := NewForecastAware(base, null, 1, 1.0)
	require.NoError(t, err)

	dup := fa.Copy().(*ForecastAware)
	assert.Same(fa.forecaster, dup.forecaster)
	assert.NotSame(fa.base, dup.base)
}
