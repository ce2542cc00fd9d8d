// Package gpopt holds the contract between Gaussian process latent variable
// models and the optimizers that train them: the parameter/data/constraint
// surface a model exposes and the bookkeeping needed to evaluate it on a
// subset of its data rows.
package gpopt

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Model is the narrow view of a latent variable model that an optimizer
// needs.  Params and Data are owned by the model - Params returns a copy,
// and Data must not be mutated by callers.
type Model interface {
	Params() []float64
	SetParams(x []float64)

	// Data returns the full input (rows x latent dim) and output (rows x
	// features) matrices.  Missing outputs are NaN.
	Data() (X, Y *mat.Dense)

	// Layout describes how rows of the data map onto positions in the
	// parameter vector.  An empty layout means the model can't be evaluated
	// on a row subset.
	Layout() Layout

	Constraints() Constraints
	SetConstraints(c Constraints)

	// ObjectiveGrad evaluates the negative log likelihood and its gradient
	// at x for the data in v.  x is either the full parameter vector or, if
	// v covers a subset of the rows, the vector selected by SubsetIndices
	// for those rows.  The returned gradient has len(x) entries.
	ObjectiveGrad(x []float64, v View) (f float64, grad []float64, err error)
}

// View is a read-only working window onto a model's data: the rows and
// output features a single objective evaluation sees.  Rows and Features
// index into the full data set.
type View struct {
	X        *mat.Dense
	Y        *mat.Dense
	Rows     []int
	Features []int
}

// NewView copies the given rows and feature columns out of X and Y.  A nil
// rows or features slice selects everything.
func NewView(X, Y *mat.Dense, rows, features []int) View {
	nx, q := X.Dims()
	ny, d := Y.Dims()
	if nx != ny {
		panic(fmt.Sprintf("gpopt: X has %v rows but Y has %v", nx, ny))
	}
	if rows == nil {
		rows = seq(nx)
	}
	if features == nil {
		features = seq(d)
	}

	v := View{
		Rows:     append([]int{}, rows...),
		Features: append([]int{}, features...),
	}
	if len(rows) == 0 {
		return v
	}

	v.X = mat.NewDense(len(rows), q, nil)
	v.Y = mat.NewDense(len(rows), max(len(features), 1), nil)
	for i, r := range rows {
		v.X.SetRow(i, X.RawRowView(r))
		for j, c := range features {
			v.Y.Set(i, j, Y.At(r, c))
		}
	}
	if len(features) == 0 {
		v.Y = nil
	}
	return v
}

// N returns the number of data rows in the view.
func (v View) N() int { return len(v.Rows) }

// D returns the number of output features in the view.
func (v View) D() int { return len(v.Features) }

func seq(n int) []int {
	s := make([]int, n)
	for i := range s {
		s[i] = i
	}
	return s
}
