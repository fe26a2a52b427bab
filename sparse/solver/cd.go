package solver

import (
	"context"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/YuminosukeSato/l0learn/pkg/log"
	"github.com/YuminosukeSato/l0learn/sparse/penalty"
)

// Solver runs coordinate descent for one Problem and penalty kind. It keeps
// scratch buffers and is not safe for concurrent use; fold workers each own
// their own Solver.
type Solver struct {
	prob     *Problem
	penalty  penalty.Penalty
	settings Settings
	logger   log.Logger

	deriv []float64
	gains []float64
	inSet []bool
}

// New creates a solver. settings are assumed valid.
func New(prob *Problem, pen penalty.Penalty, settings Settings) *Solver {
	return &Solver{
		prob:     prob,
		penalty:  pen,
		settings: settings,
		logger:   log.GetLoggerWithName("solver"),
		deriv:    make([]float64, prob.n),
		gains:    make([]float64, prob.p),
		inSet:    make([]bool, prob.p),
	}
}

// SetLogger replaces the solver's logger.
func (s *Solver) SetLogger(l log.Logger) {
	if l != nil {
		s.logger = l
	}
}

func (s *Solver) Problem() *Problem        { return s.prob }
func (s *Solver) Settings() Settings       { return s.settings }
func (s *Solver) Penalty() penalty.Penalty { return s.penalty }

// Objective is the penalized objective of st under params.
func (s *Solver) Objective(params penalty.Params, st *FitState) float64 {
	obj := s.prob.loss.Value(st.R)
	for _, b := range st.Coef {
		obj += penalty.Cost(s.penalty, params, b)
	}
	return obj
}

// Solve minimizes the objective at params starting from init. init is not
// modified; the returned state owns fresh buffers. The objective of the
// result never exceeds the objective of init.
func (s *Solver) Solve(params penalty.Params, init FitState) FitState {
	st := init.Clone()
	st.Iterations, st.Swaps = 0, 0
	st.Converged, st.Saturated = false, false
	st.Objective = s.Objective(params, &st)

	if s.settings.ActiveSet {
		st.Active = s.screen(params, &st)
	} else {
		st.Active = st.Support()
	}

	s.descend(params, &st)

	if s.settings.Algorithm == CDPSI {
		for st.Converged && st.Swaps < s.settings.MaxNumSwaps {
			if !s.swap(params, &st) {
				break
			}
			st.Swaps++
			s.descend(params, &st)
		}
	}
	return st
}

// descend cycles until convergence or MaxIters cycles. With the active set
// enabled, a full sweep runs every ActiveSetNum cycles and whenever the
// restricted problem converges. Saturated describes the last cycle and its
// sweep only, so a cap hit on an intermediate state does not outlive it.
func (s *Solver) descend(params penalty.Params, st *FitState) {
	st.Converged = false
	visitAll := s.allCoordinates()
	for it := 0; it < s.settings.MaxIters; it++ {
		st.Saturated = false
		prevObj := st.Objective
		prevNorm := coefNorm(st)

		visit := st.Active
		if !s.settings.ActiveSet {
			visit = visitAll
		}
		d2 := s.cycle(params, st, visit)
		if s.prob.loss.Classification() {
			d2 += s.updateIntercept(st)
		}
		st.Active = st.Support()
		st.Iterations++
		st.Objective = s.Objective(params, st)

		conv := s.converged(prevObj, st.Objective, prevNorm, d2)
		if s.settings.ActiveSet && (conv || st.Iterations%s.settings.ActiveSetNum == 0) {
			if s.sweep(params, st) > 0 {
				continue
			}
		}
		if conv {
			st.Converged = true
			return
		}
	}
	// coordinates added by a final sweep were never visited
	st.Active = st.Support()
}

// cycle visits coordinates in ascending order and returns the squared norm
// of the coefficient change.
func (s *Solver) cycle(params penalty.Params, st *FitState, visit []int) float64 {
	pr := s.prob
	var d2 float64
	for _, j := range visit {
		c := pr.curv[j]
		if !(c > penalty.MinCurvature) {
			continue
		}
		old := st.Coef[j]
		z := old - s.gradient(st.R, j)/c
		b, keep := penalty.Threshold(s.penalty, params, z, c)
		if !keep {
			b = 0
		}
		if old == 0 && b != 0 && len(st.Coef) >= s.settings.NnzStopNum {
			st.Saturated = true
			continue
		}
		if b == old {
			continue
		}
		st.move(pr, j, b)
		d2 += (b - old) * (b - old)
	}
	return d2
}

// gradient is dF/dβ_j = Sign·Σ ℓ'(R_i)·dir_j[i].
func (s *Solver) gradient(R []float64, j int) float64 {
	pr := s.prob
	dir := pr.dirs[j]
	if pr.loss == penalty.Square {
		return -floats.Dot(R, dir)
	}
	var g float64
	for i, r := range R {
		g += pr.loss.Deriv(r) * dir[i]
	}
	return pr.loss.Sign() * g
}

// updateIntercept takes one majorized step on the classification intercept
// and returns its squared change.
func (s *Solver) updateIntercept(st *FitState) float64 {
	pr := s.prob
	var g float64
	for i, r := range st.R {
		g += pr.loss.Deriv(r) * pr.y[i]
	}
	delta := -g / pr.interceptCurvature()
	st.shiftIntercept(pr, delta)
	return delta * delta
}

func (s *Solver) converged(prevObj, obj, prevNorm, d2 float64) bool {
	tol := s.settings.Tol
	if s.settings.Criterion == CriterionCoefficients {
		change := math.Sqrt(d2)
		return change == 0 || change < tol*prevNorm
	}
	delta := math.Abs(prevObj - obj)
	return delta == 0 || delta < tol*math.Abs(prevObj)
}

func coefNorm(st *FitState) float64 {
	sq := st.Intercept * st.Intercept
	for _, b := range st.Coef {
		sq += b * b
	}
	return math.Sqrt(sq)
}

func (s *Solver) allCoordinates() []int {
	all := make([]int, 0, s.prob.p)
	for j := 0; j < s.prob.p; j++ {
		if !s.prob.Degenerate(j) {
			all = append(all, j)
		}
	}
	return all
}

func (s *Solver) debugEnabled() bool {
	return s.logger.Enabled(context.Background(), log.LevelDebug)
}
