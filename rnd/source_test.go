package rnd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func TestWithCovN(t *testing.T) {
	assert := assert.New(t)

	cov := mat.NewSymDense(2, []float64{1, 0, 0, 1})
	samples, err := WithCovN(cov, 5, NewSeededSource(1))
	assert.NoError(err)

	rows, cols := samples.Dims()
	assert.Equal(2, rows)
	assert.Equal(5, cols)
}

func TestWithCovNInvalidN(t *testing.T) {
	assert := assert.New(t)

	cov := mat.NewSymDense(2, []float64{1, 0, 0, 1})
	samples, err := WithCovN(cov, 0, NewSeededSource(1))
	assert.Nil(samples)
	assert.Error(err)
}

func TestSeededSourceReproducible(t *testing.T) {
	assert := assert.New(t)

	cov := mat.NewSymDense(2, []float64{2, 0, 0, 2})
	s1, err := WithCovN(cov, 3, NewSeededSource(99))
	assert.NoError(err)
	s2, err := WithCovN(cov, 3, NewSeededSource(99))
	assert.NoError(err)

	rows, cols := s1.Dims()
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			assert.InDelta(s1.At(r, c), s2.At(r, c), 1e-12)
		}
	}
}
