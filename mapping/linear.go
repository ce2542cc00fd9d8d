package mapping

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Linear is F(X) = X*A.
type Linear struct {
	A    *mat.Dense
	grad *mat.Dense
}

// NewLinear returns a linear mapping with weights drawn from rnd, or zero
// weights if rnd is nil.
func NewLinear(in, out int, rnd func() float64) *Linear {
	A := mat.NewDense(in, out, nil)
	if rnd != nil {
		A.Apply(func(i, j int, v float64) float64 { return rnd() }, A)
	}
	return &Linear{A: A, grad: mat.NewDense(in, out, nil)}
}

func (m *Linear) InputDim() int {
	r, _ := m.A.Dims()
	return r
}

func (m *Linear) OutputDim() int {
	_, c := m.A.Dims()
	return c
}

func (m *Linear) F(X mat.Matrix) *mat.Dense {
	checkDims(X, m.InputDim(), "input")
	var out mat.Dense
	out.Mul(X, m.A)
	return &out
}

func (m *Linear) UpdateGradients(dLdF, X mat.Matrix) {
	m.grad.Mul(X.T(), dLdF)
}

func (m *Linear) GradientsX(dLdF, X mat.Matrix) *mat.Dense {
	var out mat.Dense
	out.Mul(dLdF, m.A.T())
	return &out
}

func (m *Linear) Params() []float64     { return denseData(m.A) }
func (m *Linear) SetParams(p []float64) { setDenseData(m.A, p) }
func (m *Linear) Gradient() []float64   { return denseData(m.grad) }

// Constant is F(X) = C for every row of X.
type Constant struct {
	In   int
	C    []float64
	grad []float64
}

func NewConstant(in, out int, value float64) *Constant {
	c := make([]float64, out)
	for i := range c {
		c[i] = value
	}
	return &Constant{In: in, C: c, grad: make([]float64, out)}
}

func (m *Constant) InputDim() int  { return m.In }
func (m *Constant) OutputDim() int { return len(m.C) }

func (m *Constant) F(X mat.Matrix) *mat.Dense {
	n := checkDims(X, m.In, "input")
	out := mat.NewDense(n, len(m.C), nil)
	for i := 0; i < n; i++ {
		out.SetRow(i, m.C)
	}
	return out
}

func (m *Constant) UpdateGradients(dLdF, X mat.Matrix) {
	n, _ := dLdF.Dims()
	for j := range m.grad {
		m.grad[j] = 0
		for i := 0; i < n; i++ {
			m.grad[j] += dLdF.At(i, j)
		}
	}
}

func (m *Constant) GradientsX(dLdF, X mat.Matrix) *mat.Dense {
	n, _ := X.Dims()
	return mat.NewDense(n, m.In, nil)
}

func (m *Constant) Params() []float64 { return append([]float64{}, m.C...) }

func (m *Constant) SetParams(p []float64) {
	if len(p) != len(m.C) {
		panic(fmt.Sprintf("mapping: got %v parameters, want %v", len(p), len(m.C)))
	}
	copy(m.C, p)
}

func (m *Constant) Gradient() []float64 { return append([]float64{}, m.grad...) }

// Identity is F(X) = X.
type Identity struct {
	Dim int
}

func (m Identity) InputDim() int  { return m.Dim }
func (m Identity) OutputDim() int { return m.Dim }

func (m Identity) F(X mat.Matrix) *mat.Dense {
	checkDims(X, m.Dim, "input")
	return mat.DenseCopyOf(X)
}

func (m Identity) UpdateGradients(dLdF, X mat.Matrix) {}

func (m Identity) GradientsX(dLdF, X mat.Matrix) *mat.Dense { return mat.DenseCopyOf(dLdF) }

func (m Identity) Params() []float64 { return nil }

func (m Identity) SetParams(p []float64) {
	if len(p) != 0 {
		panic("mapping: identity has no parameters")
	}
}

func (m Identity) Gradient() []float64 { return nil }
