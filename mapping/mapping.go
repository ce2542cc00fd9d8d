// Package mapping implements parametric functions from model inputs to
// outputs that can be combined and used inside model likelihoods, e.g. as
// the mean of a latent variable model.
//
// A mapping takes an n x InputDim matrix and returns an n x OutputDim
// matrix.  Given the derivative of some objective with respect to its
// output, it can accumulate the gradient for its own parameters
// (UpdateGradients, then Gradient) and report the gradient with respect to
// its input (GradientsX).
package mapping

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

type Mapping interface {
	InputDim() int
	OutputDim() int

	F(X mat.Matrix) *mat.Dense

	// UpdateGradients stores dL/dparams given dL/dF at inputs X.
	UpdateGradients(dLdF, X mat.Matrix)
	// GradientsX returns dL/dX given dL/dF at inputs X.
	GradientsX(dLdF, X mat.Matrix) *mat.Dense

	Params() []float64
	SetParams(p []float64)
	// Gradient returns the gradient stored by the last UpdateGradients call
	// in the same order as Params.
	Gradient() []float64
}

// NumParams returns the number of parameters of m.
func NumParams(m Mapping) int { return len(m.Params()) }

func checkDims(X mat.Matrix, cols int, what string) int {
	n, c := X.Dims()
	if c != cols {
		panic(fmt.Sprintf("mapping: %v has %v columns, want %v", what, c, cols))
	}
	return n
}

func denseData(m *mat.Dense) []float64 {
	r, c := m.Dims()
	data := make([]float64, 0, r*c)
	for i := 0; i < r; i++ {
		data = append(data, m.RawRowView(i)...)
	}
	return data
}

func setDenseData(m *mat.Dense, p []float64) {
	r, c := m.Dims()
	if len(p) != r*c {
		panic(fmt.Sprintf("mapping: got %v parameters, want %v", len(p), r*c))
	}
	for i := 0; i < r; i++ {
		copy(m.RawRowView(i), p[i*c:(i+1)*c])
	}
}

func selectCols(X mat.Matrix, cols []int) *mat.Dense {
	n, _ := X.Dims()
	out := mat.NewDense(n, len(cols), nil)
	for i := 0; i < n; i++ {
		for j, c := range cols {
			out.Set(i, j, X.At(i, c))
		}
	}
	return out
}
