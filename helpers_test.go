package l0learn

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

func sparseResponse(X *mat.Dense, beta []float64, b, sigma float64, seed uint64) []float64 {
	n, _ := X.Dims()
	noise := distuv.Normal{Mu: 0, Sigma: 1, Src: rand.NewPCG(seed, seed+7)}
	y := make([]float64, n)
	for i := range y {
		v := b + sigma*noise.Rand()
		for j, bj := range beta {
			v += bj * X.At(i, j)
		}
		y[i] = v
	}
	return y
}
