package forecast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestLOCFForecastBeforeAnyUpdate(t *testing.T) {
	assert := assert.New(t)
	l := NewLOCF(2)

	f := l.Forecast(100.0)
	assert.Equal(0.0, f.AtVec(0))
	assert.Equal(0.0, f.AtVec(1))
	assert.Equal(0.0, l.LastUpdateTime())
}

func TestLOCFCarriesLastObservationForward(t *testing.T) {
	assert := assert.New(t)
	l := NewLOCF(1)

	require.NoError(t, l.Update(mat.NewVecDense(1, []float64{3.0}), 1.0))

	assert.Equal(3.0, l.Forecast(1.0).AtVec(0))
	assert.Equal(3.0, l.Forecast(1000.0).AtVec(0))
	assert.Equal(3.0, l.Forecast(-50.0).AtVec(0))
}

func TestLOCFIgnoresStaleObservations(t *testing.T) {
	assert := assert.New(t)
	l := NewLOCF(1)

	require.NoError(t, l.Update(mat.NewVecDense(1, []float64{5.0}), 2.0))
	require.NoError(t, l.Update(mat.NewVecDense(1, []float64{9.0}), 1.0))
	require.NoError(t, l.Update(mat.NewVecDense(1, []float64{9.0}), 2.0))

	assert.Equal(5.0, l.Forecast(10.0).AtVec(0))
	assert.Equal(2.0, l.LastUpdateTime())
}

func TestLOCFAdvanceOnlyAffectsClockBeforeFirstUpdate(t *testing.T) {
	assert := assert.New(t)
	l := NewLOCF(1)

	l.Advance(5.0)
	assert.Equal(5.0, l.LastUpdateTime())

	require.NoError(t, l.Update(mat.NewVecDense(1, []float64{1.0}), 6.0))
	l.Advance(100.0)
	assert.Equal(6.0, l.LastUpdateTime())
}
