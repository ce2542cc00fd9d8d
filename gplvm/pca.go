package gplvm

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// PCA projects the column-centered Y onto its first q principal directions
// and scales the result to unit variance per latent dimension.  Missing
// entries are replaced by their column mean first.  Dimensions beyond the
// rank of Y are zero.
func PCA(Y *mat.Dense, q int) *mat.Dense {
	n, d := Y.Dims()
	Yc := mat.NewDense(n, d, nil)
	col := make([]float64, 0, n)
	for j := 0; j < d; j++ {
		col = col[:0]
		for i := 0; i < n; i++ {
			if v := Y.At(i, j); !math.IsNaN(v) {
				col = append(col, v)
			}
		}
		mean := 0.0
		if len(col) > 0 {
			mean = stat.Mean(col, nil)
		}
		for i := 0; i < n; i++ {
			if v := Y.At(i, j); !math.IsNaN(v) {
				Yc.Set(i, j, v-mean)
			}
		}
	}

	X := mat.NewDense(n, q, nil)
	var svd mat.SVD
	if ok := svd.Factorize(Yc, mat.SVDThin); !ok {
		return X
	}
	var U mat.Dense
	svd.UTo(&U)
	_, rank := U.Dims()
	for k := 0; k < q && k < rank; k++ {
		for i := 0; i < n; i++ {
			X.Set(i, k, U.At(i, k)*math.Sqrt(float64(n)))
		}
	}
	return X
}
