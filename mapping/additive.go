package mapping

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Additive is F(X) = M1.F(X) + M2.F(X).  Its parameters are M1's followed
// by M2's.
type Additive struct {
	M1, M2 Mapping
}

func NewAdditive(m1, m2 Mapping) *Additive {
	if m1.InputDim() != m2.InputDim() || m1.OutputDim() != m2.OutputDim() {
		panic(fmt.Sprintf("mapping: cannot add %vx%v and %vx%v mappings",
			m1.InputDim(), m1.OutputDim(), m2.InputDim(), m2.OutputDim()))
	}
	return &Additive{M1: m1, M2: m2}
}

func (m *Additive) InputDim() int  { return m.M1.InputDim() }
func (m *Additive) OutputDim() int { return m.M1.OutputDim() }

func (m *Additive) F(X mat.Matrix) *mat.Dense {
	f := m.M1.F(X)
	f.Add(f, m.M2.F(X))
	return f
}

func (m *Additive) UpdateGradients(dLdF, X mat.Matrix) {
	m.M1.UpdateGradients(dLdF, X)
	m.M2.UpdateGradients(dLdF, X)
}

func (m *Additive) GradientsX(dLdF, X mat.Matrix) *mat.Dense {
	g := m.M1.GradientsX(dLdF, X)
	g.Add(g, m.M2.GradientsX(dLdF, X))
	return g
}

func (m *Additive) Params() []float64     { return joinParams(m.M1, m.M2, Mapping.Params) }
func (m *Additive) SetParams(p []float64) { splitParams(m.M1, m.M2, p) }
func (m *Additive) Gradient() []float64   { return joinParams(m.M1, m.M2, Mapping.Gradient) }

// AdditiveActiveDims is F(X) = M1.F(X[:,Dims1]) + M2.F(X[:,Dims2]).  The
// input gradient is the column concatenation of the two sub-mappings'
// input gradients.
type AdditiveActiveDims struct {
	M1, M2       Mapping
	Dims1, Dims2 []int
}

func NewAdditiveActiveDims(m1, m2 Mapping, dims1, dims2 []int) *AdditiveActiveDims {
	if m1.InputDim() != len(dims1) || m2.InputDim() != len(dims2) {
		panic("mapping: active dims don't match sub-mapping input dims")
	} else if m1.OutputDim() != m2.OutputDim() {
		panic(fmt.Sprintf("mapping: cannot add mappings with %v and %v outputs", m1.OutputDim(), m2.OutputDim()))
	}
	return &AdditiveActiveDims{
		M1:    m1,
		M2:    m2,
		Dims1: append([]int{}, dims1...),
		Dims2: append([]int{}, dims2...),
	}
}

func (m *AdditiveActiveDims) InputDim() int  { return m.M1.InputDim() + m.M2.InputDim() }
func (m *AdditiveActiveDims) OutputDim() int { return m.M1.OutputDim() }

func (m *AdditiveActiveDims) activate(X mat.Matrix) (X1, X2 *mat.Dense) {
	return selectCols(X, m.Dims1), selectCols(X, m.Dims2)
}

func (m *AdditiveActiveDims) F(X mat.Matrix) *mat.Dense {
	X1, X2 := m.activate(X)
	f := m.M1.F(X1)
	f.Add(f, m.M2.F(X2))
	return f
}

func (m *AdditiveActiveDims) UpdateGradients(dLdF, X mat.Matrix) {
	X1, X2 := m.activate(X)
	m.M1.UpdateGradients(dLdF, X1)
	m.M2.UpdateGradients(dLdF, X2)
}

func (m *AdditiveActiveDims) GradientsX(dLdF, X mat.Matrix) *mat.Dense {
	X1, X2 := m.activate(X)
	var g mat.Dense
	g.Augment(m.M1.GradientsX(dLdF, X1), m.M2.GradientsX(dLdF, X2))
	return &g
}

func (m *AdditiveActiveDims) Params() []float64     { return joinParams(m.M1, m.M2, Mapping.Params) }
func (m *AdditiveActiveDims) SetParams(p []float64) { splitParams(m.M1, m.M2, p) }
func (m *AdditiveActiveDims) Gradient() []float64   { return joinParams(m.M1, m.M2, Mapping.Gradient) }

// Compound is F(X) = M2.F(M1.F(X)).
type Compound struct {
	M1, M2 Mapping
}

func NewCompound(m1, m2 Mapping) *Compound {
	if m1.OutputDim() != m2.InputDim() {
		panic(fmt.Sprintf("mapping: cannot feed %v outputs into %v inputs", m1.OutputDim(), m2.InputDim()))
	}
	return &Compound{M1: m1, M2: m2}
}

func (m *Compound) InputDim() int  { return m.M1.InputDim() }
func (m *Compound) OutputDim() int { return m.M2.OutputDim() }

func (m *Compound) F(X mat.Matrix) *mat.Dense { return m.M2.F(m.M1.F(X)) }

func (m *Compound) UpdateGradients(dLdF, X mat.Matrix) {
	H := m.M1.F(X)
	m.M2.UpdateGradients(dLdF, H)
	m.M1.UpdateGradients(m.M2.GradientsX(dLdF, H), X)
}

func (m *Compound) GradientsX(dLdF, X mat.Matrix) *mat.Dense {
	H := m.M1.F(X)
	return m.M1.GradientsX(m.M2.GradientsX(dLdF, H), X)
}

func (m *Compound) Params() []float64     { return joinParams(m.M1, m.M2, Mapping.Params) }
func (m *Compound) SetParams(p []float64) { splitParams(m.M1, m.M2, p) }
func (m *Compound) Gradient() []float64   { return joinParams(m.M1, m.M2, Mapping.Gradient) }

func joinParams(m1, m2 Mapping, get func(Mapping) []float64) []float64 {
	return append(append([]float64{}, get(m1)...), get(m2)...)
}

func splitParams(m1, m2 Mapping, p []float64) {
	n1 := NumParams(m1)
	if len(p) != n1+NumParams(m2) {
		panic(fmt.Sprintf("mapping: got %v parameters, want %v", len(p), n1+NumParams(m2)))
	}
	m1.SetParams(p[:n1])
	m2.SetParams(p[n1:])
}
