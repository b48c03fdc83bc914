package forecast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestNewAverageRejectsNonPositiveWindow(t *testing.T) {
	assert := assert.New(t)

	_, err := NewAverage(1, 0)
	assert.Error(err)

	_, err = NewAverage(1, -1)
	assert.Error(err)
}

func TestAverageForecastsMeanOfWindow(t *testing.T) {
	assert := assert.New(t)
	a, err := NewAverage(1, 10.0)
	require.NoError(t, err)

	require.NoError(t, a.Update(mat.NewVecDense(1, []float64{2.0}), 0))
	require.NoError(t, a.Update(mat.NewVecDense(1, []float64{4.0}), 1))

	assert.InDelta(3.0, a.Forecast(1.0).AtVec(0), 1e-9)
}

func TestAverageRejectsOlderThanNewest(t *testing.T) {
	assert := assert.New(t)
	a, err := NewAverage(1, 10.0)
	require.NoError(t, err)

	require.NoError(t, a.Update(mat.NewVecDense(1, []float64{1.0}), 5.0))
	err = a.Update(mat.NewVecDense(1, []float64{1.0}), 4.0)
	assert.Error(err)
}

// TestAverageEvictionAlwaysKeepsNewest exercises the eviction invariant
// from spec.md §8: advancing the clock far past the window must not empty
// the buffer; the single most recent sample stays retained.
func TestAverageEvictionAlwaysKeepsNewest(t *testing.T) {
	assert := assert.New(t)
	a, err := NewAverage(1, 1.0)
	require.NoError(t, err)

	require.NoError(t, a.Update(mat.NewVecDense(1, []float64{7.0}), 0))
	a.Advance(1e9)

	assert.Equal(1, a.Len())
	assert.Equal(7.0, a.Forecast(1e9).AtVec(0))
}

func TestAverageEvictsStaleSamplesButKeepsRecentOnes(t *testing.T) {
	assert := assert.New(t)
	a, err := NewAverage(1, 1.0)
	require.NoError(t, err)

	require.NoError(t, a.Update(mat.NewVecDense(1, []float64{1.0}), 0))
	require.NoError(t, a.Update(mat.NewVecDense(1, []float64{2.0}), 0.5))
	require.NoError(t, a.Update(mat.NewVecDense(1, []float64{3.0}), 5.0))

	// at t=5.0, window=1.0: only the t=5.0 sample is within [4.0, 5.0].
	assert.Equal(1, a.Len())
	assert.Equal(3.0, a.Forecast(5.0).AtVec(0))
}

func TestAverageLastUpdateTime(t *testing.T) {
	assert := assert.New(t)
	a, err := NewAverage(1, 5.0)
	require.NoError(t, err)

	require.NoError(t, a.Update(mat.NewVecDense(1, []float64{1.0}), 2.0))
	assert.Equal(2.0, a.LastUpdateTime())

	a.Advance(10.0)
	assert.Equal(10.0, a.LastUpdateTime())
}
