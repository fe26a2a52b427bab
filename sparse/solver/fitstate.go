package solver

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
)

// FitState is the working state of one solve. Coef holds processed-scale
// coefficients; zero entries are never stored. R is the residual (Square)
// or margin (classification) accumulator for Coef and Intercept.
type FitState struct {
	Coef      map[int]float64
	Intercept float64
	// Active is sorted and never larger than NnzStopNum.
	Active []int
	R      []float64

	Iterations int
	Converged  bool
	Swaps      int
	Objective  float64
	// Saturated is set when the support is at NnzStopNum and the final
	// cycle or sweep still found an improving coordinate it could not add.
	Saturated bool
}

// NewFitState returns the cold start: no coefficients, zero intercept.
func NewFitState(pr *Problem) FitState {
	return FitState{
		Coef: map[int]float64{},
		R:    pr.Accumulator(nil, 0),
	}
}

// Clone deep-copies the state.
func (s FitState) Clone() FitState {
	out := s
	out.Coef = make(map[int]float64, len(s.Coef))
	for j, b := range s.Coef {
		out.Coef[j] = b
	}
	out.Active = slices.Clone(s.Active)
	out.R = slices.Clone(s.R)
	return out
}

// Support returns the sorted indices of nonzero coefficients.
func (s *FitState) Support() []int {
	sup := make([]int, 0, len(s.Coef))
	for j := range s.Coef {
		sup = append(sup, j)
	}
	slices.Sort(sup)
	return sup
}

// Nnz is the support size.
func (s *FitState) Nnz() int { return len(s.Coef) }

// ResidualDrift is the largest absolute difference between R and a
// from-scratch recompute.
func (s *FitState) ResidualDrift(pr *Problem) float64 {
	fresh := pr.Accumulator(s.Coef, s.Intercept)
	var drift float64
	for i, r := range s.R {
		drift = math.Max(drift, math.Abs(r-fresh[i]))
	}
	return drift
}

// move sets coefficient j to b and shifts R by the change.
func (s *FitState) move(pr *Problem, j int, b float64) {
	old := s.Coef[j]
	if b == old {
		return
	}
	floats.AddScaled(s.R, pr.loss.Sign()*(b-old), pr.dirs[j])
	if b == 0 {
		delete(s.Coef, j)
		return
	}
	s.Coef[j] = b
}

// shiftIntercept moves the classification intercept by delta.
func (s *FitState) shiftIntercept(pr *Problem, delta float64) {
	if delta == 0 {
		return
	}
	s.Intercept += delta
	floats.AddScaled(s.R, delta, pr.y)
}
