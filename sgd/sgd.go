// Package sgd trains GP latent variable models with stochastic gradient
// descent over batches of output features.
//
// Each iteration orders the output features (randomly, or by how well the
// model explained them last iteration when self-paced), splits them into
// BatchSize interleaved groups and takes one momentum step per group with
// the model's objective restricted to that group's columns.  If the data has
// missing outputs, each step only sees the rows fully observed in its group's
// columns and only moves the parameters tied to those rows.
package sgd

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"github.com/rwcarlsen/gpopt"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"
)

// Name is reported in the status summary.
const Name = "Stochastic Gradient Descent"

const (
	DefaultIterations = 10
	DefaultLearnRate  = 1e-4
	DefaultMomentum   = 0.9
	DefaultBatchSize  = 1
)

// Message levels.
const (
	Silent   = 0
	Summary  = 1
	Progress = 2
)

var (
	ErrBadMomentum  = errors.New("sgd: momentum must be in [0, 1)")
	ErrBadBatchSize = errors.New("sgd: batch size must be between 1 and the number of output features")
)

type Option func(*Optimizer)

// LearnRate sets the same learning rate for every parameter.
func LearnRate(lr float64) Option {
	return func(o *Optimizer) {
		o.scalarRate = lr
		o.LearnRate = nil
	}
}

// LearnRates sets one learning rate per parameter.  New panics if len(lr)
// doesn't match the model's parameter count.
func LearnRates(lr []float64) Option {
	return func(o *Optimizer) {
		o.LearnRate = append([]float64{}, lr...)
	}
}

func Momentum(m float64) Option {
	return func(o *Optimizer) {
		o.Momentum = m
	}
}

// BatchSize sets the number of feature groups each iteration is split into.
func BatchSize(n int) Option {
	return func(o *Optimizer) {
		o.BatchSize = n
	}
}

// SelfPaced orders features after the first iteration by descending
// per-feature log likelihood from the previous iteration instead of
// randomly.
func SelfPaced(on bool) Option {
	return func(o *Optimizer) {
		o.SelfPaced = on
	}
}

// Messages sets the progress text level (Silent, Summary or Progress) and
// where it is written.  A nil w means os.Stdout.
func Messages(level int, w io.Writer) Option {
	return func(o *Optimizer) {
		o.Messages = level
		if w != nil {
			o.Out = w
		}
	}
}

func Logger(l *zap.Logger) Option {
	return func(o *Optimizer) {
		o.log = l
	}
}

// DB records the loss trace and per-group losses into db.
func DB(db *sql.DB) Option {
	return func(o *Optimizer) {
		o.Db = db
	}
}

// Rng sets the source for random feature permutations.
func Rng(r gpopt.Rng) Option {
	return func(o *Optimizer) {
		o.Rng = r
	}
}

// Optimizer is a single-use stochastic gradient descent run over a model.
// It must not be run concurrently with anything else that evaluates or
// modifies the same model.
type Optimizer struct {
	Model      gpopt.Model
	Iterations int
	// LearnRate holds one learning rate per parameter.
	LearnRate []float64
	Momentum  float64
	BatchSize int
	SelfPaced bool
	Messages  int
	Out       io.Writer
	Db        *sql.DB
	Rng       gpopt.Rng

	// Xopt is the current (and after Opt, final) parameter vector.
	Xopt []float64
	// Fopt is the mean per-group log likelihood of the latest iteration.
	// Groups early in an iteration are scored before later groups have
	// updated the parameters, so this only approximates the full-data value.
	Fopt float64
	// Trace holds Fopt for every completed iteration.
	Trace   []float64
	Elapsed time.Duration
	Status  optimize.Status

	scalarRate float64
	log        *zap.Logger
	status     string
}

// New configures an optimizer for m.  It panics if a per-parameter learning
// rate vector has the wrong length.  Data with missing outputs requires a
// model with a row layout; ErrNotImplemented is returned otherwise.
func New(m gpopt.Model, iterations int, opts ...Option) (*Optimizer, error) {
	o := &Optimizer{
		Model:      m,
		Iterations: iterations,
		Momentum:   DefaultMomentum,
		BatchSize:  DefaultBatchSize,
		Out:        os.Stdout,
		Rng:        gpopt.Rand,
		scalarRate: DefaultLearnRate,
		log:        zap.NewNop(),
		Status:     optimize.NotTerminated,
	}
	for _, opt := range opts {
		opt(o)
	}

	nparams := len(m.Params())
	if o.LearnRate == nil {
		o.LearnRate = make([]float64, nparams)
		for i := range o.LearnRate {
			o.LearnRate[i] = o.scalarRate
		}
	}
	if len(o.LearnRate) != nparams {
		panic(fmt.Sprintf("sgd: there must be one learning rate per parameter: got %v for %v parameters", len(o.LearnRate), nparams))
	}

	if o.Momentum < 0 || o.Momentum >= 1 {
		return nil, fmt.Errorf("%w: got %v", ErrBadMomentum, o.Momentum)
	}

	X, Y := m.Data()
	n, _ := X.Dims()
	_, d := Y.Dims()
	if o.BatchSize < 1 || o.BatchSize > d {
		return nil, fmt.Errorf("%w: got %v for %v features", ErrBadBatchSize, o.BatchSize, d)
	}
	if d%o.BatchSize != 0 {
		o.log.Warn("batch size does not divide the number of features; groups will differ in size",
			zap.Int("features", d), zap.Int("batch_size", o.BatchSize))
	}

	if gpopt.HasMissing(Y) {
		if _, err := gpopt.SubsetIndices(nparams, make([]bool, n), m.Layout()); err != nil {
			return nil, fmt.Errorf("sgd: data has missing outputs: %w", err)
		}
	}

	if err := o.initdb(); err != nil {
		return nil, err
	}
	return o, nil
}

// Opt runs all iterations.  On return, with or without an error, the
// model's parameters equal Xopt.
func (o *Optimizer) Opt() (err error) {
	start := time.Now()
	defer func() {
		o.Elapsed = time.Since(start)
		o.Model.SetParams(o.Xopt)
		if err != nil {
			o.Status = optimize.Failure
		}
	}()

	o.Xopt = o.Model.Params()
	o.Trace = o.Trace[:0]
	X, Y := o.Model.Data()
	_, d := Y.Dims()

	missing := gpopt.HasMissing(Y)
	if missing {
		o.log.Info("missing outputs detected", zap.Int("complete_rows", len(gpopt.MaskRows(gpopt.NonNullRows(Y)))))
	}

	var featll []float64
	for it := 0; it < o.Iterations; it++ {
		var features []int
		if it == 0 || !o.SelfPaced {
			features = o.Rng.Perm(d)
		} else {
			features = orderByLL(featll)
		}
		groups := Partition(features, o.BatchSize)

		step := make([]float64, len(o.Xopt))
		lls := make([]float64, 0, len(groups))
		nrows := make([]int, 0, len(groups))
		featll = make([]float64, d)
		for g, group := range groups {
			var f float64
			var nj int
			if missing {
				f, nj, err = o.stepMissing(X, Y, group, step)
			} else {
				v := gpopt.NewView(X, Y, nil, group)
				nj = v.N()
				f, err = o.stepFull(v, step)
			}
			if err != nil {
				return fmt.Errorf("sgd: iteration %v group %v: %w", it, g, err)
			}

			if o.Messages == Progress {
				o.status = fmt.Sprintf("evaluating %5d/%5d \t f: % 2.3f \t non-missing: %4d\r", g+1, len(groups), -f, nj)
				fmt.Fprint(o.Out, o.status)
			}
			o.log.Debug("group step", zap.Int("iter", it), zap.Int("group", g),
				zap.Int("features", len(group)), zap.Int("rows", nj), zap.Float64("f", f))

			lls = append(lls, -f)
			nrows = append(nrows, nj)
			for _, ft := range group {
				featll[ft] = -f
			}
		}

		o.Fopt = stat.Mean(lls, nil)
		o.Trace = append(o.Trace, o.Fopt)
		o.Model.SetParams(o.Xopt)
		if err := o.updateDb(it, lls, nrows); err != nil {
			return err
		}

		if o.Messages != Silent {
			if o.status != "" {
				fmt.Fprint(o.Out, "\r"+strings.Repeat(" ", 2*len(o.status))+"  \r")
			}
			o.status = fmt.Sprintf("SGD Iteration: % 3d/% 3d  f: % 2.3f\n", it, o.Iterations, o.Fopt)
			fmt.Fprint(o.Out, o.status)
		}
		o.log.Info("iteration complete", zap.Int("iter", it), zap.Float64("f", o.Fopt))
	}

	o.Status = optimize.IterationLimit
	return nil
}

// stepFull takes one momentum step on every parameter.
func (o *Optimizer) stepFull(v gpopt.View, step []float64) (float64, error) {
	momentum := make([]float64, len(step))
	floats.ScaleTo(momentum, o.Momentum, step)

	f, grad, err := o.Model.ObjectiveGrad(o.Xopt, v)
	if err != nil {
		return 0, err
	} else if len(grad) != len(o.Xopt) {
		return 0, fmt.Errorf("%w: got %v, want %v", gpopt.ErrGradLen, len(grad), len(o.Xopt))
	}

	floats.MulTo(step, o.LearnRate, grad)
	floats.Add(momentum, step)
	floats.Sub(o.Xopt, momentum)
	return f, nil
}

// stepMissing takes one momentum step with the objective evaluated on the
// rows of Y that are complete in the group's columns, moving only the
// parameter positions tied to those rows.  The model's constraints are
// remapped onto the subset vector for the duration of the evaluation and are
// always restored before returning.
func (o *Optimizer) stepMissing(X, Y *mat.Dense, group []int, step []float64) (f float64, n int, err error) {
	keep := gpopt.NonNullRowsIn(Y, group)
	rows := gpopt.MaskRows(keep)
	if len(rows) == 0 {
		return 0, 0, nil
	}
	subset, err := gpopt.SubsetIndices(len(o.Xopt), keep, o.Model.Layout())
	if err != nil {
		return 0, len(rows), err
	}
	v := gpopt.NewView(X, Y, rows, group)

	snapshot := o.Model.Constraints().Clone()
	remapped, err := snapshot.Remap(subset)
	if err != nil {
		return 0, v.N(), err
	}
	o.Model.SetConstraints(remapped)
	defer o.Model.SetConstraints(snapshot)

	x := gpopt.Gather(o.Xopt, subset)
	momentum := gpopt.Gather(step, subset)
	floats.Scale(o.Momentum, momentum)

	f, grad, err := o.Model.ObjectiveGrad(x, v)
	if err != nil {
		return 0, v.N(), err
	} else if len(grad) != len(x) {
		return 0, v.N(), fmt.Errorf("%w: got %v, want %v", gpopt.ErrGradLen, len(grad), len(x))
	}

	for k, i := range subset {
		step[i] = o.LearnRate[i] * grad[k]
		o.Xopt[i] -= step[i] + momentum[k]
	}
	return f, v.N(), nil
}

// String summarizes the optimizer's settings and latest result.
func (o *Optimizer) String() string {
	lrmax, lrmin := math.NaN(), math.NaN()
	if len(o.LearnRate) > 0 {
		lrmax, lrmin = floats.Max(o.LearnRate), floats.Min(o.LearnRate)
	}

	s := fmt.Sprintf("\nOptimizer: \t\t\t %s\n", Name)
	s += fmt.Sprintf("f(x_opt): \t\t\t %.4f\n", o.Fopt)
	s += fmt.Sprintf("Number of iterations: \t\t %d\n", o.Iterations)
	s += fmt.Sprintf("Learning rate: \t\t\t max %.3f, min %.3f\n", lrmax, lrmin)
	s += fmt.Sprintf("Momentum: \t\t\t %.3f\n", o.Momentum)
	s += fmt.Sprintf("Batch size: \t\t\t %d\n", o.BatchSize)
	s += fmt.Sprintf("Time elapsed: \t\t\t %s\n", o.Elapsed)
	return s
}
