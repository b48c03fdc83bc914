package optimizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vantage-robotics/mppi"
	"gonum.org/v1/gonum/mat"
)

func TestSavitzkyGolayCoeffsSumToOne(t *testing.T) {
	assert := assert.New(t)

	coeffs, err := savitzkyGolayCoeffs(5, 2)
	require.NoError(t, err)

	sum := 0.0
	for _, c := range coeffs {
		sum += c
	}
	assert.InDelta(1.0, sum, 1e-9)
}

func TestSmoothRowPreservesConstantSignal(t *testing.T) {
	assert := assert.New(t)

	row := make([]float64, 20)
	for i := range row {
		row[i] = 3.0
	}

	out, err := smoothRow(row, 5, 2)
	require.NoError(t, err)
	for i, v := range out {
		assert.InDelta(3.0, v, 1e-6, "index %d", i)
	}
}

func TestSmoothRowPreservesLength(t *testing.T) {
	assert := assert.New(t)

	row := make([]float64, 13)
	for i := range row {
		row[i] = float64(i)
	}
	out, err := smoothRow(row, 5, 1)
	require.NoError(t, err)
	assert.Len(out, len(row))
}

func TestSmoothTrajectoryShape(t *testing.T) {
	assert := assert.New(t)

	traj := mat.NewDense(2, 10, nil)
	for r := 0; r < 2; r++ {
		for c := 0; c < 10; c++ {
			traj.Set(r, c, float64(r*10+c))
		}
	}

	out, err := smoothTrajectory(traj, &mppi.Smoothing{Window: 5, PolyOrder: 2})
	require.NoError(t, err)

	rows, cols := out.Dims()
	assert.Equal(2, rows)
	assert.Equal(10, cols)
}
