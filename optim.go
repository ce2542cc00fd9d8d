package gpopt

import (
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
)

var (
	// ErrNotImplemented marks model/data combinations the row subsetting
	// machinery does not handle.
	ErrNotImplemented = errors.New("gpopt: not implemented")
	// ErrIndex is returned when a parameter position can't be found after a
	// row subset.
	ErrIndex = errors.New("gpopt: index out of range")
	// ErrGradLen is returned when a model's gradient doesn't match the
	// length of the vector it was evaluated at.
	ErrGradLen = errors.New("gpopt: gradient length mismatch")
)

type Rng interface {
	Perm(n int) []int
	Float64() float64
	NormFloat64() float64
}

// Rand is the default source of randomness for feature orderings and
// synthetic data.  Reassign it to reseed.
var Rand Rng = rand.New(rand.NewSource(1))

// ObjectivePrinter wraps a Model and prints every objective evaluation.
type ObjectivePrinter struct {
	Model
	W     io.Writer
	Count int
}

func NewObjectivePrinter(m Model) *ObjectivePrinter {
	return &ObjectivePrinter{Model: m, W: os.Stdout}
}

func (op *ObjectivePrinter) ObjectiveGrad(x []float64, v View) (float64, []float64, error) {
	f, grad, err := op.Model.ObjectiveGrad(x, v)

	op.Count++
	fmt.Fprintf(op.W, "%v rows=%v features=%v nparams=%v     %v\n", op.Count, v.N(), v.D(), len(x), f)
	return f, grad, err
}
