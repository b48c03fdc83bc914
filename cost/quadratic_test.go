package cost

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestNewQuadraticValidates(t *testing.T) {
	assert := assert.New(t)

	q := mat.NewSymDense(1, []float64{1})
	r := mat.NewSymDense(1, []float64{1})

	_, err := NewQuadratic(nil, r, mat.NewVecDense(1, nil))
	assert.Error(err)

	_, err = NewQuadratic(q, r, mat.NewVecDense(2, nil))
	assert.Error(err)
}

func TestQuadraticGetAtReference(t *testing.T) {
	assert := assert.New(t)

	q := mat.NewSymDense(1, []float64{2})
	r := mat.NewSymDense(1, []float64{3})
	xref := mat.NewVecDense(1, []float64{5})

	qc, err := NewQuadratic(q, r, xref)
	require.NoError(t, err)

	c, err := qc.Get(mat.NewVecDense(1, []float64{5}), mat.NewVecDense(1, []float64{0}), nil, 0)
	assert.NoError(err)
	assert.Equal(0.0, c)
}

func TestQuadraticGetPenalizesDeviation(t *testing.T) {
	assert := assert.New(t)

	q := mat.NewSymDense(1, []float64{2})
	r := mat.NewSymDense(1, []float64{3})
	xref := mat.NewVecDense(1, []float64{0})

	qc, err := NewQuadratic(q, r, xref)
	require.NoError(t, err)

	c, err := qc.Get(mat.NewVecDense(1, []float64{1}), mat.NewVecDense(1, []float64{1}), nil, 0)
	assert.NoError(err)
	assert.Equal(5.0, c) // 2*1^2 + 3*1^2
}

func TestQuadraticGetRejectsWrongDims(t *testing.T) {
	assert := assert.New(t)

	q := mat.NewSymDense(1, []float64{1})
	r := mat.NewSymDense(1, []float64{1})
	qc, err := NewQuadratic(q, r, mat.NewVecDense(1, nil))
	require.NoError(t, err)

	_, err = qc.Get(mat.NewVecDense(2, nil), mat.NewVecDense(1, nil), nil, 0)
	assert.Error(err)

	_, err = qc.Get(mat.NewVecDense(1, nil), mat.NewVecDense(2, nil), nil, 0)
	assert.Error(err)
}

func TestQuadraticCopyIsIndependent(t *testing.T) {
	assert := assert.New(t)

	q := mat.NewSymDense(1, []float64{1})
	r := mat.NewSymDense(1, []float64{1})
	qc, err := NewQuadratic(q, r, mat.NewVecDense(1, []float64{0}))
	require.NoError(t, err)

	dup := qc.Copy().(*Quadratic)
	require.NoError(t, dup.SetReference(mat.NewVecDense(1, []float64{10})))

	c, err := qc.Get(mat.NewVecDense(1, []float64{0}), mat.NewVecDense(1, []float64{0}), nil, 0)
	assert.NoError(err)
	assert.Equal(0.0, c)
}

func TestQuadraticSetReferenceRejectsWrongLength(t *testing.T) {
	assert := assert.New(t)

	q := mat.NewSymDense(1, []float64{1})
	r := mat.NewSymDense(1, []float64{1})
	qc, err := NewQuadratic(q, r, mat.NewVecDense(1, []float64{0}))
	require.NoError(t, err)

	assert.Error(qc.SetReference(mat.NewVecDense(2, nil)))
}
