package mapping

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// RBF is the squared exponential kernel
//
//	k(x, z) = Variance * exp(-|x-z|^2 / (2*Lengthscale^2))
type RBF struct {
	Variance    float64
	Lengthscale float64
}

func (k RBF) K(x, z []float64) float64 {
	d := floats.Distance(x, z, 2)
	return k.Variance * math.Exp(-d*d/(2*k.Lengthscale*k.Lengthscale))
}

// Cross returns the n x m matrix of k(X[i], Z[j]).
func (k RBF) Cross(X, Z mat.Matrix) *mat.Dense {
	n, _ := X.Dims()
	m, _ := Z.Dims()
	xd, zd := mat.DenseCopyOf(X), mat.DenseCopyOf(Z)
	out := mat.NewDense(n, m, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < m; j++ {
			out.Set(i, j, k.K(xd.RawRowView(i), zd.RawRowView(j)))
		}
	}
	return out
}

// Kernel is F(X) = K(X, Z)*A for fixed centers Z and kernel Kern; A is
// the mapping's parameter.
type Kernel struct {
	Z    *mat.Dense
	A    *mat.Dense
	Kern RBF
	grad *mat.Dense
}

// NewKernel returns a kernel mapping centered on the rows of Z with zero
// weights for out outputs.
func NewKernel(Z *mat.Dense, out int, kern RBF) *Kernel {
	m, _ := Z.Dims()
	return &Kernel{
		Z:    mat.DenseCopyOf(Z),
		A:    mat.NewDense(m, out, nil),
		Kern: kern,
		grad: mat.NewDense(m, out, nil),
	}
}

func (m *Kernel) InputDim() int {
	_, c := m.Z.Dims()
	return c
}

func (m *Kernel) OutputDim() int {
	_, c := m.A.Dims()
	return c
}

func (m *Kernel) F(X mat.Matrix) *mat.Dense {
	checkDims(X, m.InputDim(), "input")
	var out mat.Dense
	out.Mul(m.Kern.Cross(X, m.Z), m.A)
	return &out
}

func (m *Kernel) UpdateGradients(dLdF, X mat.Matrix) {
	m.grad.Mul(m.Kern.Cross(X, m.Z).T(), dLdF)
}

func (m *Kernel) GradientsX(dLdF, X mat.Matrix) *mat.Dense {
	K := m.Kern.Cross(X, m.Z)
	var G mat.Dense
	G.Mul(dLdF, m.A.T())

	n, q := X.Dims()
	nz, _ := m.Z.Dims()
	l2 := m.Kern.Lengthscale * m.Kern.Lengthscale
	out := mat.NewDense(n, q, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < nz; j++ {
			w := -G.At(i, j) * K.At(i, j) / l2
			for c := 0; c < q; c++ {
				out.Set(i, c, out.At(i, c)+w*(X.At(i, c)-m.Z.At(j, c)))
			}
		}
	}
	return out
}

func (m *Kernel) Params() []float64     { return denseData(m.A) }
func (m *Kernel) SetParams(p []float64) { setDenseData(m.A, p) }
func (m *Kernel) Gradient() []float64   { return denseData(m.grad) }
