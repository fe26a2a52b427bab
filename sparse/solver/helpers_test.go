package solver

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

func gaussianDesign(n, p int, seed uint64) *mat.Dense {
	norm := distuv.Normal{Mu: 0, Sigma: 1, Src: rand.NewPCG(seed, seed+1)}
	data := make([]float64, n*p)
	for i := range data {
		data[i] = norm.Rand()
	}
	return mat.NewDense(n, p, data)
}

// linearResponse returns X·beta + b + sigma·noise.
func linearResponse(X *mat.Dense, beta []float64, b, sigma float64, seed uint64) []float64 {
	n, _ := X.Dims()
	noise := distuv.Normal{Mu: 0, Sigma: 1, Src: rand.NewPCG(seed, seed+7)}
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		y[i] = b + mat.Dot(X.RowView(i), mat.NewVecDense(len(beta), beta)) + sigma*noise.Rand()
	}
	return y
}

func binaryResponse(X *mat.Dense, beta []float64, seed uint64) []float64 {
	eta := linearResponse(X, beta, 0.3, 0.5, seed)
	y := make([]float64, len(eta))
	for i, v := range eta {
		if v > 0 {
			y[i] = 1
		}
	}
	return y
}
