// Package gplvm implements a Gaussian process latent variable model with a
// linear kernel that satisfies gpopt.Model.
//
// The model explains each output column of Y (n x d) as an independent
// draw from a zero mean (or Mean-mapped) Gaussian process over latent
// inputs X (n x q) with covariance
//
//	K = Variance * X*X^T + Noise*I
//
// The parameter vector is laid out as X (row-major), then the variance and
// noise, then the mean mapping's parameters.  Positive and bounded
// constraints are enforced by reparameterization: a positive parameter is
// stored as t with value log(1+exp(t)), a bounded one as t with value
// lower + (upper-lower)/(1+exp(-t)).
package gplvm

import (
	"errors"
	"fmt"
	"math"

	"github.com/rwcarlsen/gpopt"
	"github.com/rwcarlsen/gpopt/mapping"
	"gonum.org/v1/gonum/mat"
)

var ErrNotPosDef = errors.New("gplvm: covariance is not positive definite")

const (
	DefaultVariance = 1.0
	DefaultNoise    = 0.1
	DefaultJitter   = 1e-6
)

type Option func(*Model)

// Mean adds a mean mapping from latent inputs to all d outputs.  Its
// parameters are appended to the parameter vector.
func Mean(m mapping.Mapping) Option {
	return func(mod *Model) {
		mod.mean = m
	}
}

// InitX sets the initial latent locations instead of the PCA projection of
// Y.
func InitX(X *mat.Dense) Option {
	return func(m *Model) {
		m.initX = X
	}
}

// Hyper sets the initial kernel variance and noise variance.
func Hyper(variance, noise float64) Option {
	return func(m *Model) {
		m.variance = variance
		m.noise = noise
	}
}

func Jitter(j float64) Option {
	return func(m *Model) {
		m.jitter = j
	}
}

type Model struct {
	Y      *mat.Dense
	q      int
	mean   mapping.Mapping
	params []float64
	constr gpopt.Constraints

	initX           *mat.Dense
	variance, noise float64
	jitter          float64
}

// New builds a model of the outputs Y with q latent dimensions.  NaN
// entries of Y are treated as missing.  The kernel variance and noise are
// constrained positive.
func New(Y *mat.Dense, q int, opts ...Option) *Model {
	n, d := Y.Dims()
	m := &Model{
		Y:        Y,
		q:        q,
		variance: DefaultVariance,
		noise:    DefaultNoise,
		jitter:   DefaultJitter,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.mean != nil && (m.mean.InputDim() != q || m.mean.OutputDim() != d) {
		panic(fmt.Sprintf("gplvm: mean mapping is %vx%v, want %vx%v", m.mean.InputDim(), m.mean.OutputDim(), q, d))
	}

	X := m.initX
	if X == nil {
		X = PCA(Y, q)
	} else if r, c := X.Dims(); r != n || c != q {
		panic(fmt.Sprintf("gplvm: initial X is %vx%v, want %vx%v", r, c, n, q))
	}

	m.params = make([]float64, 0, n*q+2+m.nmean())
	for i := 0; i < n; i++ {
		m.params = append(m.params, X.RawRowView(i)...)
	}
	m.params = append(m.params, invSoftplus(m.variance), invSoftplus(m.noise))
	if m.mean != nil {
		m.params = append(m.params, m.mean.Params()...)
	}
	m.constr = gpopt.Constraints{Positive: []int{n * q, n*q + 1}}
	return m
}

func (m *Model) nmean() int {
	if m.mean == nil {
		return 0
	}
	return mapping.NumParams(m.mean)
}

func (m *Model) Params() []float64 { return append([]float64{}, m.params...) }

func (m *Model) SetParams(x []float64) {
	if len(x) != len(m.params) {
		panic(fmt.Sprintf("gplvm: got %v parameters, want %v", len(x), len(m.params)))
	}
	copy(m.params, x)
}

// Latent returns the current latent locations.
func (m *Model) Latent() *mat.Dense {
	n, _ := m.Y.Dims()
	return mat.NewDense(n, m.q, append([]float64{}, m.params[:n*m.q]...))
}

// Hyper returns the current kernel variance and noise variance.
func (m *Model) Hyper() (variance, noise float64) {
	phi, _, err := transform(m.params, m.constr)
	if err != nil {
		panic(err.Error())
	}
	n, _ := m.Y.Dims()
	return phi[n*m.q], phi[n*m.q+1]
}

func (m *Model) Data() (X, Y *mat.Dense) { return m.Latent(), m.Y }

func (m *Model) Layout() gpopt.Layout {
	n, _ := m.Y.Dims()
	return gpopt.Layout{Blocks: []gpopt.Block{{Name: "X", Rows: n, Cols: m.q}}}
}

func (m *Model) Constraints() gpopt.Constraints     { return m.constr }
func (m *Model) SetConstraints(c gpopt.Constraints) { m.constr = c }

// Constrain adds a bounded constraint group over the given parameter
// positions.
func (m *Model) Constrain(lower, upper float64, indices ...int) {
	m.constr.Bounded = append(m.constr.Bounded, gpopt.Bounded{
		Indices: append([]int{}, indices...),
		Lower:   lower,
		Upper:   upper,
	})
}

// LogLikelihood returns the log marginal likelihood of all of Y at the
// current parameters.  Y must not have missing entries.
func (m *Model) LogLikelihood() (float64, error) {
	f, _, err := m.ObjectiveGrad(m.params, gpopt.NewView(m.Latent(), m.Y, nil, nil))
	return -f, err
}

// ObjectiveGrad returns the negative log marginal likelihood of the outputs
// in v and its gradient.  The latent block of x must hold one row per row of
// v.
func (m *Model) ObjectiveGrad(x []float64, v gpopt.View) (float64, []float64, error) {
	r, q, dv := v.N(), m.q, v.D()
	nlat := r * q
	if want := nlat + 2 + m.nmean(); len(x) != want {
		return 0, nil, fmt.Errorf("gplvm: got %v parameters for %v rows, want %v: %w", len(x), r, want, gpopt.ErrIndex)
	}
	if r == 0 || dv == 0 {
		return 0, make([]float64, len(x)), nil
	}

	phi, dphi, err := transform(x, m.constr)
	if err != nil {
		return 0, nil, err
	}
	X := mat.NewDense(r, q, append([]float64{}, phi[:nlat]...))
	variance, noise := phi[nlat], phi[nlat+1]

	// residual of the outputs against the mean
	R := mat.DenseCopyOf(v.Y)
	if m.mean != nil {
		m.mean.SetParams(phi[nlat+2:])
		F := m.mean.F(X)
		for i := 0; i < r; i++ {
			for j, c := range v.Features {
				R.Set(i, j, R.At(i, j)-F.At(i, c))
			}
		}
	}

	var K mat.SymDense
	K.SymOuterK(variance, X)
	for i := 0; i < r; i++ {
		K.SetSym(i, i, K.At(i, i)+noise+m.jitter)
	}
	var chol mat.Cholesky
	if ok := chol.Factorize(&K); !ok {
		return 0, nil, ErrNotPosDef
	}

	var A mat.Dense // K^-1 * R
	if err := chol.SolveTo(&A, R); err != nil {
		return 0, nil, fmt.Errorf("gplvm: %w", err)
	}
	var RA mat.Dense
	RA.MulElem(R, &A)
	ll := -0.5*float64(dv)*chol.LogDet() - 0.5*mat.Sum(&RA) - 0.5*float64(r*dv)*math.Log(2*math.Pi)

	// dL/dK = (A*A^T - dv*K^-1) / 2
	var Kinv mat.SymDense
	if err := chol.InverseTo(&Kinv); err != nil {
		return 0, nil, fmt.Errorf("gplvm: %w", err)
	}
	var G mat.Dense
	G.Mul(&A, A.T())
	var dvKinv mat.Dense
	dvKinv.Scale(float64(dv), &Kinv)
	G.Sub(&G, &dvKinv)
	G.Scale(0.5, &G)

	var dX mat.Dense
	dX.Mul(&G, X)
	dX.Scale(2*variance, &dX)

	var XXt, GXXt mat.Dense
	XXt.Mul(X, X.T())
	GXXt.MulElem(&G, &XXt)
	dvariance := mat.Sum(&GXXt)
	dnoise := mat.Trace(&G)

	var dmean []float64
	if m.mean != nil {
		_, d := m.Y.Dims()
		dLdF := mat.NewDense(r, d, nil)
		for i := 0; i < r; i++ {
			for j, c := range v.Features {
				dLdF.Set(i, c, A.At(i, j))
			}
		}
		m.mean.UpdateGradients(dLdF, X)
		dX.Add(&dX, m.mean.GradientsX(dLdF, X))
		dmean = m.mean.Gradient()
	}

	grad := make([]float64, 0, len(x))
	for i := 0; i < r; i++ {
		grad = append(grad, dX.RawRowView(i)...)
	}
	grad = append(grad, dvariance, dnoise)
	grad = append(grad, dmean...)
	for i := range grad {
		grad[i] *= -dphi[i]
	}
	return -ll, grad, nil
}

// transform maps stored parameters onto their constrained values and
// returns the derivative of each value with respect to its stored
// parameter.
func transform(x []float64, c gpopt.Constraints) (phi, dphi []float64, err error) {
	phi = append([]float64{}, x...)
	dphi = make([]float64, len(x))
	for i := range dphi {
		dphi[i] = 1
	}

	for _, i := range c.Positive {
		if i < 0 || i >= len(x) {
			return nil, nil, fmt.Errorf("gplvm: positive constraint on position %v of %v: %w", i, len(x), gpopt.ErrIndex)
		}
		phi[i] = softplus(x[i])
		dphi[i] = sigmoid(x[i])
	}
	for _, b := range c.Bounded {
		for _, i := range b.Indices {
			if i < 0 || i >= len(x) {
				return nil, nil, fmt.Errorf("gplvm: bounded constraint on position %v of %v: %w", i, len(x), gpopt.ErrIndex)
			}
			s := sigmoid(x[i])
			phi[i] = b.Lower + (b.Upper-b.Lower)*s
			dphi[i] = (b.Upper - b.Lower) * s * (1 - s)
		}
	}
	return phi, dphi, nil
}

func sigmoid(t float64) float64 { return 1 / (1 + math.Exp(-t)) }

func softplus(t float64) float64 {
	if t > 30 {
		return t
	}
	return math.Log1p(math.Exp(t))
}

func invSoftplus(v float64) float64 {
	if v > 30 {
		return v
	}
	return math.Log(math.Expm1(v))
}
