// Package bench provides synthetic latent variable data sets for exercising
// the gplvm model and sgd optimizer, and a helper that trains a model on one
// of them.
package bench

import (
	"fmt"
	"math"

	"github.com/rwcarlsen/gpopt"
	"github.com/rwcarlsen/gpopt/gplvm"
	"github.com/rwcarlsen/gpopt/sgd"
	"gonum.org/v1/gonum/mat"
)

var (
	sin = math.Sin
	cos = math.Cos
)

var AllSets = []Set{
	Linear{N: 30, Q: 2, D: 6, Noise: 0.05},
	Linear{N: 50, Q: 3, D: 12, Noise: 0.1},
	Spiral{N: 40, D: 8, Noise: 0.05},
	Missing{Set: Linear{N: 30, Q: 2, D: 6, Noise: 0.05}, Frac: 0.1},
	Missing{Set: Spiral{N: 40, D: 8, Noise: 0.05}, Frac: 0.05},
}

// Set is a synthetic data set generated from known latent locations.
type Set interface {
	Name() string
	// Generate returns the true latent locations (N x LatentDim) and the
	// outputs (N x D).  Missing outputs are NaN.
	Generate(rng gpopt.Rng) (X, Y *mat.Dense)
	LatentDim() int
}

// Linear maps Gaussian latent points through a random linear map plus noise.
type Linear struct {
	N, Q, D int
	Noise   float64
}

func (s Linear) Name() string   { return fmt.Sprintf("Linear-%vx%v", s.N, s.D) }
func (s Linear) LatentDim() int { return s.Q }

func (s Linear) Generate(rng gpopt.Rng) (X, Y *mat.Dense) {
	X = randn(rng, s.N, s.Q, 1)
	W := randn(rng, s.Q, s.D, 1)
	Y = &mat.Dense{}
	Y.Mul(X, W)
	Y.Add(Y, randn(rng, s.N, s.D, s.Noise))
	return X, Y
}

// Spiral places points along a one dimensional curve and embeds it
// nonlinearly into D outputs.
type Spiral struct {
	N, D  int
	Noise float64
}

func (s Spiral) Name() string   { return fmt.Sprintf("Spiral-%vx%v", s.N, s.D) }
func (s Spiral) LatentDim() int { return 1 }

func (s Spiral) Generate(rng gpopt.Rng) (X, Y *mat.Dense) {
	X = mat.NewDense(s.N, 1, nil)
	Y = mat.NewDense(s.N, s.D, nil)
	for i := 0; i < s.N; i++ {
		t := 4 * math.Pi * float64(i) / float64(s.N)
		X.Set(i, 0, t)
		for j := 0; j < s.D; j++ {
			freq := float64(j/2 + 1)
			v := sin(freq * t / 4)
			if j%2 == 1 {
				v = cos(freq * t / 4)
			}
			Y.Set(i, j, t/(4*math.Pi)*v+s.Noise*rng.NormFloat64())
		}
	}
	return X, Y
}

// Missing knocks out a fraction of the outputs of another set.
type Missing struct {
	Set
	Frac float64
}

func (s Missing) Name() string { return s.Set.Name() + "-missing" }

func (s Missing) Generate(rng gpopt.Rng) (X, Y *mat.Dense) {
	X, Y = s.Set.Generate(rng)
	r, c := Y.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if rng.Float64() < s.Frac {
				Y.Set(i, j, math.NaN())
			}
		}
	}
	return X, Y
}

// Run trains a fresh gplvm model of s's outputs and returns the finished
// optimizer.
func Run(s Set, iterations int, opts []gplvm.Option, sgdopts ...sgd.Option) (*gplvm.Model, *sgd.Optimizer, error) {
	_, Y := s.Generate(gpopt.Rand)
	m := gplvm.New(Y, s.LatentDim(), opts...)
	o, err := sgd.New(m, iterations, sgdopts...)
	if err != nil {
		return m, nil, err
	}
	return m, o, o.Opt()
}

func randn(rng gpopt.Rng, r, c int, scale float64) *mat.Dense {
	m := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			m.Set(i, j, scale*rng.NormFloat64())
		}
	}
	return m
}
