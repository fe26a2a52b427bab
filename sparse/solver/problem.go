// Package solver minimizes an L0-penalized loss at one grid point by cyclic
// coordinate descent over an active set, optionally followed by pairwise
// swap local search.
//
// A Problem holds the preprocessed design: one direction column per feature
// such that moving coefficient j by δ shifts the accumulator R by
// Sign·δ·dir_j. FitState owns R and the sparse coefficients; Solver.Solve
// takes a warm start by value and returns a new state.
package solver

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/l0learn/pkg/errors"
	"github.com/YuminosukeSato/l0learn/sparse/penalty"
)

// Problem is the immutable preprocessed input of a fit.
//
// Square: columns and y are centered and columns scaled to unit norm; the
// intercept is recovered on unscaling. Classification: labels are mapped to
// {-1,+1}, columns scaled to unit norm and multiplied by the label, and the
// intercept is an explicit unpenalized coordinate.
type Problem struct {
	loss  penalty.Loss
	n, p  int
	y     []float64
	yMean float64
	dirs  [][]float64
	scale []float64
	xMean []float64
	curv  []float64
}

// NewProblem validates and preprocesses X (n×p) and y (length n).
func NewProblem(X mat.Matrix, y []float64, loss penalty.Loss) (*Problem, error) {
	if !loss.Valid() {
		return nil, errors.NewConfigError("Loss", "must be one of Square, Logistic, SquaredHinge", int(loss))
	}
	n, p := X.Dims()
	if n == 0 || p == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "solver.NewProblem")
	}
	if len(y) != n {
		return nil, errors.NewDimensionError("solver.NewProblem", n, len(y), 0)
	}
	if err := errors.CheckMatrixFinite("solver.NewProblem: X", X, n, p); err != nil {
		return nil, err
	}
	if err := errors.CheckFinite("solver.NewProblem: y", y); err != nil {
		return nil, err
	}

	pr := &Problem{
		loss:  loss,
		n:     n,
		p:     p,
		dirs:  make([][]float64, p),
		scale: make([]float64, p),
		xMean: make([]float64, p),
		curv:  make([]float64, p),
	}

	if loss.Classification() {
		enc, _, err := EncodeLabels(y)
		if err != nil {
			return nil, err
		}
		pr.y = enc
	} else {
		pr.y = make([]float64, n)
		copy(pr.y, y)
		pr.yMean = floats.Sum(pr.y) / float64(n)
		floats.AddConst(-pr.yMean, pr.y)
	}

	kappa := loss.Curvature()
	for j := 0; j < p; j++ {
		col := mat.Col(nil, j, X)
		raw := floats.Norm(col, 2)
		if !loss.Classification() {
			pr.xMean[j] = floats.Sum(col) / float64(n)
			floats.AddConst(-pr.xMean[j], col)
		}
		norm := floats.Norm(col, 2)
		if norm <= 1e-10*math.Max(1, raw) {
			continue
		}
		floats.Scale(1/norm, col)
		if loss.Classification() {
			floats.Mul(col, pr.y)
		}
		pr.dirs[j] = col
		pr.scale[j] = norm
		pr.curv[j] = kappa * floats.Dot(col, col)
	}
	return pr, nil
}

// EncodeLabels maps binary labels to {-1,+1}. {0,1} is mapped with 0 → -1;
// {-1,1} is kept. converted reports whether any label changed.
func EncodeLabels(y []float64) (enc []float64, converted bool, err error) {
	zeroOne, signed := true, true
	for _, v := range y {
		switch v {
		case 0:
			signed = false
		case 1:
		case -1:
			zeroOne = false
		default:
			return nil, false, errors.NewConfigError("y",
				"must be binary with labels {0,1} or {-1,1} for classification losses", v)
		}
	}
	if !zeroOne && !signed {
		return nil, false, errors.NewConfigError("y",
			"mixes labels from {0,1} and {-1,1}", "{-1,0,1}")
	}
	enc = make([]float64, len(y))
	for i, v := range y {
		if v == 0 {
			enc[i] = -1
			converted = true
			continue
		}
		enc[i] = v
	}
	return enc, converted, nil
}

func (pr *Problem) Loss() penalty.Loss { return pr.loss }
func (pr *Problem) N() int             { return pr.n }
func (pr *Problem) P() int             { return pr.p }

// Response is the preprocessed y: centered for Square, ±1 otherwise.
func (pr *Problem) Response() []float64 { return pr.y }

// Degenerate reports whether feature j has zero norm after preprocessing.
func (pr *Problem) Degenerate(j int) bool {
	return !(pr.curv[j] > penalty.MinCurvature)
}

// Curvature is κ‖dir_j‖².
func (pr *Problem) Curvature(j int) float64 { return pr.curv[j] }

// Dir returns the direction column of feature j; nil when degenerate.
func (pr *Problem) Dir(j int) []float64 { return pr.dirs[j] }

// interceptCurvature is κ‖y‖² = κn for classification and 0 for Square.
func (pr *Problem) interceptCurvature() float64 {
	if !pr.loss.Classification() {
		return 0
	}
	return pr.loss.Curvature() * float64(pr.n)
}

// Accumulator recomputes R from scratch for the given coefficients on the
// processed scale.
func (pr *Problem) Accumulator(coef map[int]float64, intercept float64) []float64 {
	R := make([]float64, pr.n)
	sign := pr.loss.Sign()
	if pr.loss.Classification() {
		floats.AddScaled(R, intercept, pr.y)
	} else {
		copy(R, pr.y)
	}
	for j, b := range coef {
		floats.AddScaled(R, sign*b, pr.dirs[j])
	}
	return R
}

// Unscale converts a state to the original feature scale. support is sorted.
func (pr *Problem) Unscale(st *FitState) (support []int, coefs []float64, intercept float64) {
	support = st.Support()
	coefs = make([]float64, len(support))
	intercept = st.Intercept
	if !pr.loss.Classification() {
		intercept = pr.yMean
	}
	for k, j := range support {
		coefs[k] = st.Coef[j] / pr.scale[j]
		if !pr.loss.Classification() {
			intercept -= coefs[k] * pr.xMean[j]
		}
	}
	return support, coefs, intercept
}
