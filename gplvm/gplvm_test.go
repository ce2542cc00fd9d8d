package gplvm

import (
	"math"
	"math/rand"
	"testing"

	"github.com/rwcarlsen/gpopt"
	"github.com/rwcarlsen/gpopt/mapping"
	"github.com/rwcarlsen/gpopt/sgd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

func randY(rng *rand.Rand, n, d int) *mat.Dense {
	Y := mat.NewDense(n, d, nil)
	Y.Apply(func(i, j int, v float64) float64 { return rng.NormFloat64() }, Y)
	return Y
}

func checkGrad(t *testing.T, m *Model, x []float64, v gpopt.View) {
	t.Helper()
	_, got, err := m.ObjectiveGrad(x, v)
	require.NoError(t, err)

	want := fd.Gradient(nil, func(x []float64) float64 {
		f, _, err := m.ObjectiveGrad(x, v)
		if err != nil {
			t.Fatal(err)
		}
		return f
	}, x, &fd.Settings{Formula: fd.Central, Step: 1e-6})

	require.Len(t, got, len(want))
	for i := range got {
		if !scalar.EqualWithinAbsOrRel(got[i], want[i], 1e-4, 1e-4) {
			t.Errorf("grad[%v]: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestGradient(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	Y := randY(rng, 7, 3)
	m := New(Y, 2, Hyper(1.3, 0.4))
	checkGrad(t, m, m.Params(), gpopt.NewView(m.Latent(), Y, nil, nil))
	checkGrad(t, m, m.Params(), gpopt.NewView(m.Latent(), Y, nil, []int{2, 0}))
}

func TestGradientMeanBounded(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	Y := randY(rng, 6, 4)
	mean := mapping.NewAdditive(mapping.NewLinear(2, 4, rng.NormFloat64), mapping.NewConstant(2, 4, 0.3))
	m := New(Y, 2, Mean(mean))
	m.Constrain(-2, 2, 0, 3, 5)
	require.Len(t, m.Params(), 6*2+2+8+4)

	checkGrad(t, m, m.Params(), gpopt.NewView(m.Latent(), Y, nil, []int{1, 3}))
}

func TestSubsetEvaluation(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	n, q, d := 6, 2, 3
	Y := randY(rng, n, d)
	m := New(Y, q, Hyper(0.7, 0.2))
	m.Constrain(-3, 3, 0, 2, 5)

	keep := []bool{true, false, true, true, false, true}
	rows := gpopt.MaskRows(keep)
	subset, err := gpopt.SubsetIndices(len(m.Params()), keep, m.Layout())
	require.NoError(t, err)
	remapped, err := m.Constraints().Remap(subset)
	require.NoError(t, err)

	m.SetConstraints(remapped)
	f, grad, err := m.ObjectiveGrad(gpopt.Gather(m.Params(), subset), gpopt.NewView(m.Latent(), Y, rows, nil))
	require.NoError(t, err)

	// a model built from only the kept rows must agree
	Ysub := mat.NewDense(len(rows), d, nil)
	Xsub := mat.NewDense(len(rows), q, nil)
	for i, r := range rows {
		Ysub.SetRow(i, Y.RawRowView(r))
		Xsub.SetRow(i, m.Latent().RawRowView(r))
	}
	sub := New(Ysub, q, InitX(Xsub), Hyper(0.7, 0.2))
	sub.SetConstraints(remapped)
	want, wantgrad, err := sub.ObjectiveGrad(sub.Params(), gpopt.NewView(Xsub, Ysub, nil, nil))
	require.NoError(t, err)

	assert.InDelta(t, want, f, 1e-10)
	assert.InDeltaSlice(t, wantgrad, grad, 1e-10)
}

func TestObjectiveErrors(t *testing.T) {
	Y := randY(rand.New(rand.NewSource(5)), 4, 2)
	m := New(Y, 1)
	v := gpopt.NewView(m.Latent(), Y, nil, nil)

	_, _, err := m.ObjectiveGrad(m.Params()[1:], v)
	assert.ErrorIs(t, err, gpopt.ErrIndex)

	m.SetConstraints(gpopt.Constraints{Positive: []int{99}})
	_, _, err = m.ObjectiveGrad(m.Params(), v)
	assert.ErrorIs(t, err, gpopt.ErrIndex)

	f, grad, err := m.ObjectiveGrad([]float64{1, 2}, gpopt.NewView(m.Latent(), Y, []int{}, nil))
	require.NoError(t, err)
	assert.Equal(t, 0.0, f)
	assert.Equal(t, []float64{0, 0}, grad)
}

func TestHyper(t *testing.T) {
	m := New(randY(rand.New(rand.NewSource(6)), 5, 2), 1, Hyper(2, 0.5))
	variance, noise := m.Hyper()
	assert.InDelta(t, 2, variance, 1e-12)
	assert.InDelta(t, 0.5, noise, 1e-12)
	assert.Equal(t, gpopt.Constraints{Positive: []int{5, 6}}, m.Constraints())
}

func TestNewPanics(t *testing.T) {
	Y := mat.NewDense(4, 3, nil)
	assert.Panics(t, func() { New(Y, 2, InitX(mat.NewDense(3, 2, nil))) })
	assert.Panics(t, func() { New(Y, 2, Mean(mapping.NewLinear(2, 2, nil))) })
	assert.Panics(t, func() { New(Y, 2).SetParams([]float64{1}) })
}

func TestPCA(t *testing.T) {
	rng := rand.New(rand.NewSource(8))
	n := 20
	Y := randY(rng, n, 5)
	Y.Set(3, 1, math.NaN())

	X := PCA(Y, 2)
	for k := 0; k < 2; k++ {
		col := mat.Col(nil, k, X)
		assert.False(t, floats.HasNaN(col))
		assert.InDelta(t, float64(n), floats.Dot(col, col), 1e-8)
		assert.InDelta(t, 0, stat.Mean(col, nil), 1e-8)
	}
	assert.InDelta(t, 0, floats.Dot(mat.Col(nil, 0, X), mat.Col(nil, 1, X)), 1e-8)

	// more latent dims than the data's rank are zero
	X = PCA(mat.NewDense(3, 2, []float64{1, 2, 3, 4, 5, 6}), 4)
	assert.Equal(t, []float64{0, 0, 0}, mat.Col(nil, 3, X))
}

func TestTrain(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	n, q, d := 15, 2, 5
	Xtrue := randY(rng, n, q)
	W := randY(rng, q, d)
	var Y mat.Dense
	Y.Mul(Xtrue, W)
	Y.Add(&Y, randY(rng, n, d))

	m := New(&Y, q)
	before, err := m.LogLikelihood()
	require.NoError(t, err)

	o, err := sgd.New(m, 20, sgd.LearnRate(1e-5), sgd.Momentum(0), sgd.Rng(rng))
	require.NoError(t, err)
	require.NoError(t, o.Opt())

	after, err := m.LogLikelihood()
	require.NoError(t, err)
	assert.Greater(t, after, before)
	assert.Greater(t, o.Trace[len(o.Trace)-1], o.Trace[0])
}
