package solver

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/YuminosukeSato/l0learn/core/parallel"
	"github.com/YuminosukeSato/l0learn/pkg/log"
	"github.com/YuminosukeSato/l0learn/sparse/penalty"
)

type swapMove struct {
	out, in int
	value   float64
	improve float64
}

// swap searches every (i in support, j inactive) pair for the exchange that
// most decreases the exact objective, and applies it when the decrease
// exceeds Tol·max(1, |F|). Ties go to the lowest (i, j). It reports whether
// a swap was applied.
func (s *Solver) swap(params penalty.Params, st *FitState) bool {
	pr := s.prob
	support := st.Support()
	if len(support) == 0 {
		return false
	}

	F := st.Objective
	best := swapMove{improve: s.settings.Tol * math.Max(1, math.Abs(F))}
	found := false

	var baseCost float64
	for _, b := range st.Coef {
		baseCost += penalty.Cost(s.penalty, params, b)
	}
	inSupport := make([]bool, pr.p)
	for _, j := range support {
		inSupport[j] = true
	}

	without := make([]float64, pr.n)
	improve := make([]float64, pr.p)
	values := make([]float64, pr.p)
	sign := pr.loss.Sign()
	threshold := parallelWork / max(pr.n*len(support), 1)

	for _, i := range support {
		bi := st.Coef[i]
		copy(without, st.R)
		floats.AddScaled(without, -sign*bi, pr.dirs[i])
		costWithout := baseCost - penalty.Cost(s.penalty, params, bi)
		deriv := pr.loss.DerivInto(s.deriv, without)
		s.deriv = deriv

		parallel.ParallelizeWithThreshold(pr.p, threshold, s.settings.Workers, func(start, end int) {
			for j := start; j < end; j++ {
				improve[j] = math.Inf(-1)
				c := pr.curv[j]
				if inSupport[j] || !(c > penalty.MinCurvature) {
					continue
				}
				z := -sign * floats.Dot(deriv, pr.dirs[j]) / c
				b, keep := penalty.Threshold(s.penalty, params, z, c)
				if !keep {
					continue
				}
				fNew := pr.loss.ValueShifted(without, pr.dirs[j], b) +
					costWithout + penalty.Cost(s.penalty, params, b)
				improve[j] = F - fNew
				values[j] = b
			}
		})

		for j, imp := range improve {
			if imp > best.improve {
				best = swapMove{out: i, in: j, value: values[j], improve: imp}
				found = true
			}
		}
	}
	if !found {
		return false
	}

	st.move(pr, best.out, 0)
	st.move(pr, best.in, best.value)
	st.Active = st.Support()
	st.Objective = s.Objective(params, st)

	if s.debugEnabled() {
		s.logger.Debug("swap accepted",
			"swap.out", best.out,
			"swap.in", best.in,
			log.ObjectiveKey, st.Objective,
			log.SwapsKey, st.Swaps+1,
		)
	}
	return true
}
