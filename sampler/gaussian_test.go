package sampler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func TestNewGaussian(t *testing.T) {
	assert := assert.New(t)

	cov := mat.NewSymDense(2, []float64{1, 0.1, 0.1, 1})
	g, err := NewGaussian(cov)
	assert.NotNil(g)
	assert.NoError(err)
	assert.Equal(2, g.Dim())
}

func TestNewGaussianInvalidCov(t *testing.T) {
	assert := assert.New(t)

	// mat.NewSymDense panics for n == 0, so build the empty matrix directly.
	g, err := NewGaussian(&mat.SymDense{})
	assert.Nil(g)
	assert.Error(err)
}

func TestGaussianCov(t *testing.T) {
	assert := assert.New(t)

	cov := mat.NewSymDense(2, []float64{1, 0.1, 0.1, 1})
	g, err := NewGaussian(cov)
	assert.NoError(err)

	gCov := g.Cov()
	assert.Equal(cov.Symmetric(), gCov.Symmetric())

	rows, cols := gCov.Dims()
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			assert.InDelta(cov.At(r, c), gCov.At(r, c), 1e-9)
		}
	}
}

func TestSample(t *testing.T) {
	assert := assert.New(t)

	cov := mat.NewSymDense(2, []float64{1, 0.1, 0.1, 1})
	g, err := NewGaussianSeeded(cov, 42)
	assert.NoError(err)

	sample := g.Sample()
	assert.Equal(2, sample.Len())
}

func TestSampleIntoMatchesDim(t *testing.T) {
	assert := assert.New(t)

	cov := mat.NewSymDense(3, []float64{
		2, 0, 0,
		0, 2, 0,
		0, 0, 2,
	})
	g, err := NewGaussianSeeded(cov, 7)
	assert.NoError(err)

	dst := make([]float64, 3)
	g.SampleInto(dst)
	assert.Len(dst, 3)
}

func TestSampleSeededReproducible(t *testing.T) {
	assert := assert.New(t)

	cov := mat.NewSymDense(2, []float64{1, 0, 0, 1})

	g1, err := NewGaussianSeeded(cov, 123)
	assert.NoError(err)
	g2, err := NewGaussianSeeded(cov, 123)
	assert.NoError(err)

	for i := 0; i < 5; i++ {
		s1 := g1.Sample()
		s2 := g2.Sample()
		assert.InDelta(s1.AtVec(0), s2.AtVec(0), 1e-12)
		assert.InDelta(s1.AtVec(1), s2.AtVec(1), 1e-12)
	}
}

func TestZeroCovarianceYieldsZeroSamples(t *testing.T) {
	assert := assert.New(t)

	cov := mat.NewSymDense(2, []float64{0, 0, 0, 0})
	g, err := NewGaussian(cov)
	assert.NoError(err)

	sample := g.Sample()
	assert.Equal(0.0, sample.AtVec(0))
	assert.Equal(0.0, sample.AtVec(1))
}
