package gpopt

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Block is a named, row-indexed section of a parameter vector: Rows*Cols
// consecutive entries stored row-major, one row of Cols entries per data
// row (e.g. the latent input locations of a GPLVM).
type Block struct {
	Name string
	Rows int
	Cols int
}

func (b Block) Len() int { return b.Rows * b.Cols }

// Layout lists the row-indexed blocks at the front of a parameter vector in
// order.  Everything after the last block (kernel hyperparameters and the
// like) is the remainder and is kept whole by SubsetIndices.
type Layout struct {
	Blocks []Block
}

// Supported reports whether the layout can be used to subset a parameter
// vector by data rows.
func (l Layout) Supported() bool { return len(l.Blocks) > 0 }

// Len returns the number of parameter positions covered by the blocks.
func (l Layout) Len() int {
	n := 0
	for _, b := range l.Blocks {
		n += b.Len()
	}
	return n
}

// HasMissing reports whether any entry of Y is NaN.
func HasMissing(Y mat.Matrix) bool {
	r, c := Y.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if math.IsNaN(Y.At(i, j)) {
				return true
			}
		}
	}
	return false
}

// NonNullRows returns a row mask that is true for every row of Y without a
// single NaN entry.
func NonNullRows(Y mat.Matrix) []bool {
	_, c := Y.Dims()
	return NonNullRowsIn(Y, seq(c))
}

// NonNullRowsIn is like NonNullRows but only looks at the given columns of Y.
func NonNullRowsIn(Y mat.Matrix, cols []int) []bool {
	r, _ := Y.Dims()
	keep := make([]bool, r)
	for i := range keep {
		keep[i] = true
		for _, j := range cols {
			if math.IsNaN(Y.At(i, j)) {
				keep[i] = false
				break
			}
		}
	}
	return keep
}

// MaskRows returns the indices of the true entries of keep.
func MaskRows(keep []bool) []int {
	rows := make([]int, 0, len(keep))
	for i, ok := range keep {
		if ok {
			rows = append(rows, i)
		}
	}
	return rows
}

// SubsetIndices returns the positions of an n-long parameter vector that
// survive dropping the rows of each layout block for which keep is false.
// Positions are returned in their original order, so entry k of the result
// is the original position of entry k of the subset vector.  Remainder
// positions always survive.
func SubsetIndices(n int, keep []bool, l Layout) ([]int, error) {
	if !l.Supported() {
		return nil, fmt.Errorf("gpopt: no row layout for parameter subset: %w", ErrNotImplemented)
	}
	if tot := l.Len(); tot > n {
		return nil, fmt.Errorf("gpopt: layout covers %v positions but parameter vector has %v: %w", tot, n, ErrIndex)
	}

	subset := make([]int, 0, n)
	i := 0
	for _, b := range l.Blocks {
		if b.Rows != len(keep) {
			return nil, fmt.Errorf("gpopt: block %q has %v rows, row mask has %v: %w", b.Name, b.Rows, len(keep), ErrIndex)
		}
		for r := 0; r < b.Rows; r++ {
			if !keep[r] {
				continue
			}
			for c := 0; c < b.Cols; c++ {
				subset = append(subset, i+r*b.Cols+c)
			}
		}
		i += b.Len()
	}

	for ; i < n; i++ {
		subset = append(subset, i)
	}
	return subset, nil
}

// Gather returns x[subset[0]], x[subset[1]], ...
func Gather(x []float64, subset []int) []float64 {
	dst := make([]float64, len(subset))
	for k, i := range subset {
		dst[k] = x[i]
	}
	return dst
}
