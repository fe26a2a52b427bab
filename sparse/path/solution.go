package path

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/l0learn/pkg/errors"
	"github.com/YuminosukeSato/l0learn/sparse/penalty"
)

// Point is one solved grid point, on the original feature scale.
type Point struct {
	AuxIndex     int     `json:"aux_index" msgpack:"aux_index"`
	Aux          float64 `json:"aux" msgpack:"aux"`
	Lambda0Index int     `json:"lambda0_index" msgpack:"lambda0_index"`
	Lambda0      float64 `json:"lambda0" msgpack:"lambda0"`

	Support   []int     `json:"support" msgpack:"support"`
	Coefs     []float64 `json:"coefs" msgpack:"coefs"`
	Intercept float64   `json:"intercept" msgpack:"intercept"`
	Nnz       int       `json:"nnz" msgpack:"nnz"`

	Iterations int     `json:"iterations" msgpack:"iterations"`
	Converged  bool    `json:"converged" msgpack:"converged"`
	Swaps      int     `json:"swaps" msgpack:"swaps"`
	Objective  float64 `json:"objective" msgpack:"objective"`
	// Saturated marks a point where NnzStopNum was binding; it ends its column.
	Saturated bool `json:"saturated" msgpack:"saturated"`
}

// Predict returns the linear predictor X·β + b. X must have nFeatures columns.
func (p *Point) Predict(X mat.Matrix) []float64 {
	n, _ := X.Dims()
	eta := make([]float64, n)
	for i := range eta {
		v := p.Intercept
		for k, j := range p.Support {
			v += p.Coefs[k] * X.At(i, j)
		}
		eta[i] = v
	}
	return eta
}

// Dense expands the coefficients to length nFeatures.
func (p *Point) Dense(nFeatures int) []float64 {
	out := make([]float64, nFeatures)
	for k, j := range p.Support {
		out[j] = p.Coefs[k]
	}
	return out
}

// Solution is the ordered list of solved points. Points appear in traversal
// order: by aux index, then by decreasing λ0.
type Solution struct {
	Loss      penalty.Loss    `json:"loss" msgpack:"loss"`
	Penalty   penalty.Penalty `json:"penalty" msgpack:"penalty"`
	NFeatures int             `json:"n_features" msgpack:"n_features"`
	Aux       []float64       `json:"aux" msgpack:"aux"`
	Points    []Point         `json:"points" msgpack:"points"`
}

func (s *Solution) Len() int { return len(s.Points) }

// At returns point i.
func (s *Solution) At(i int) *Point { return &s.Points[i] }

// Index finds the point at (auxIndex, lambda0Index).
func (s *Solution) Index(auxIndex, lambda0Index int) (int, bool) {
	for i := range s.Points {
		p := &s.Points[i]
		if p.AuxIndex == auxIndex && p.Lambda0Index == lambda0Index {
			return i, true
		}
		if p.AuxIndex > auxIndex {
			break
		}
	}
	return 0, false
}

// Column returns the points of one auxiliary strength.
func (s *Solution) Column(auxIndex int) []Point {
	var out []Point
	for _, p := range s.Points {
		if p.AuxIndex == auxIndex {
			out = append(out, p)
		}
	}
	return out
}

// Grid returns the λ0 values actually solved, one list per auxiliary
// strength, so another fit can traverse exactly the same points.
func (s *Solution) Grid() *Grid {
	g := &Grid{
		Aux:     append([]float64(nil), s.Aux...),
		Lambda0: make([][]float64, len(s.Aux)),
	}
	for _, p := range s.Points {
		g.Lambda0[p.AuxIndex] = append(g.Lambda0[p.AuxIndex], p.Lambda0)
	}
	return g
}

// Predict evaluates point i on X.
func (s *Solution) Predict(X mat.Matrix, i int) ([]float64, error) {
	if i < 0 || i >= len(s.Points) {
		return nil, errors.NewValueError("Solution.Predict", "grid point index out of range")
	}
	if _, p := X.Dims(); p != s.NFeatures {
		return nil, errors.NewDimensionError("Solution.Predict", s.NFeatures, p, 1)
	}
	return s.Points[i].Predict(X), nil
}

// Coefficients returns the dense coefficient vector of point i.
func (s *Solution) Coefficients(i int) ([]float64, error) {
	if i < 0 || i >= len(s.Points) {
		return nil, errors.NewValueError("Solution.Coefficients", "grid point index out of range")
	}
	return s.Points[i].Dense(s.NFeatures), nil
}
