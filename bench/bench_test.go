package bench_test

import (
	"database/sql"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/rwcarlsen/gpopt"
	"github.com/rwcarlsen/gpopt/bench"
	"github.com/rwcarlsen/gpopt/gplvm"
	"github.com/rwcarlsen/gpopt/mapping"
	"github.com/rwcarlsen/gpopt/sgd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	_ "modernc.org/sqlite"
)

const seed = 7

func seedrng(seed int64) {
	if seed < 0 {
		seed = time.Now().Unix()
	}
	gpopt.Rand = rand.New(rand.NewSource(seed))
}

func TestGenerate(t *testing.T) {
	seedrng(seed)
	for _, s := range bench.AllSets {
		X, Y := s.Generate(gpopt.Rand)
		n, q := X.Dims()
		ny, d := Y.Dims()
		require.Equal(t, n, ny, s.Name())
		assert.Equal(t, s.LatentDim(), q, s.Name())
		assert.Greater(t, d, 0, s.Name())

		_, missing := s.(bench.Missing)
		assert.Equal(t, missing, gpopt.HasMissing(Y), s.Name())
	}
}

func TestMissingFraction(t *testing.T) {
	seedrng(seed)
	s := bench.Missing{Set: bench.Linear{N: 200, Q: 2, D: 10, Noise: 0.1}, Frac: 0.2}
	_, Y := s.Generate(gpopt.Rand)

	nan := 0
	for _, v := range Y.RawMatrix().Data {
		if math.IsNaN(v) {
			nan++
		}
	}
	frac := float64(nan) / 2000
	assert.InDelta(t, 0.2, frac, 0.05)
	assert.Equal(t, "Linear-200x10-missing", s.Name())
}

func TestBenchAllSets(t *testing.T) {
	seedrng(seed)

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	defer db.Close()
	db.SetMaxOpenConns(1)

	const niter = 5
	nrun := 0
	for _, s := range bench.AllSets {
		_, o, err := bench.Run(s, niter, nil,
			sgd.LearnRate(1e-5),
			sgd.Momentum(0.5),
			sgd.BatchSize(2),
			sgd.DB(db),
		)
		require.NoError(t, err, s.Name())
		require.Len(t, o.Trace, niter, s.Name())
		if floats.HasNaN(o.Trace) {
			t.Errorf("%v: trace has NaN: %v", s.Name(), o.Trace)
		}
		nrun++
		t.Logf("%v: f0=%.3f f=%.3f elapsed=%v", s.Name(), o.Trace[0], o.Fopt, o.Elapsed)
	}

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM "+sgd.TblTrace).Scan(&count))
	assert.Equal(t, nrun*niter, count)
}

func TestBenchMeanMissing(t *testing.T) {
	seedrng(seed)
	s := bench.Missing{Set: bench.Spiral{N: 30, D: 4, Noise: 0.05}, Frac: 0.05}

	opts := []gplvm.Option{gplvm.Hyper(1, 0.2), gplvm.Mean(mapping.NewConstant(1, 4, 0))}
	m, o, err := bench.Run(s, 3, opts, sgd.LearnRate(1e-5), sgd.SelfPaced(true), sgd.BatchSize(4))
	require.NoError(t, err)
	assert.Len(t, o.Trace, 3)

	variance, noise := m.Hyper()
	assert.Greater(t, variance, 0.0)
	assert.Greater(t, noise, 0.0)
}
