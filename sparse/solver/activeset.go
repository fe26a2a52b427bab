package solver

import (
	"container/heap"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"

	"github.com/YuminosukeSato/l0learn/core/parallel"
	"github.com/YuminosukeSato/l0learn/pkg/log"
	"github.com/YuminosukeSato/l0learn/sparse/penalty"
)

// parallelWork is the n·p size above which sweeps fan out over goroutines.
const parallelWork = 1 << 16

// screen builds the active set for a new grid point: the warm-start support
// plus the best ScreenSize improving coordinates, capped at NnzStopNum.
// Trimming here does not mark the state saturated.
func (s *Solver) screen(params penalty.Params, st *FitState) []int {
	support := st.Support()
	gains := s.inactiveGains(params, st)
	cands := improving(gains)

	top := s.rank(cands, gains, min(len(cands), s.settings.ScreenSize))
	room := max(s.settings.NnzStopNum-len(support), 0)
	if len(top) > room {
		top = top[:room]
	}
	return mergeSorted(support, top)
}

// sweep scans every inactive coordinate and adds the improving ones, best
// first, while the active set stays within NnzStopNum. It returns the number
// added.
func (s *Solver) sweep(params penalty.Params, st *FitState) int {
	gains := s.inactiveGains(params, st)
	cands := improving(gains)
	if len(cands) == 0 {
		return 0
	}
	room := max(s.settings.NnzStopNum-len(st.Active), 0)
	if room == 0 {
		st.Saturated = true
		return 0
	}
	top := s.rank(cands, gains, min(len(cands), room))
	st.Active = mergeSorted(st.Active, top)
	if s.debugEnabled() {
		s.logger.Debug("sweep added coordinates",
			log.NnzKey, len(st.Active),
			log.IterationKey, st.Iterations,
		)
	}
	return len(top)
}

// MaxGain is the largest zero-λ0 gain over inactive, non-degenerate
// coordinates at st, or 0 when there is none. It is the smallest λ0 at
// which no coordinate would enter.
func (s *Solver) MaxGain(st FitState, aux float64) float64 {
	gains := s.inactiveGains(penalty.For(s.penalty, 0, aux), &st)
	best := 0.0
	for _, g := range gains {
		if !math.IsNaN(g) && g > best {
			best = g
		}
	}
	return best
}

// inactiveGains fills s.gains with the Gain of every coordinate that is
// neither active nor degenerate, and NaN for the rest.
func (s *Solver) inactiveGains(params penalty.Params, st *FitState) []float64 {
	pr := s.prob
	for j := range s.inSet {
		s.inSet[j] = false
	}
	for _, j := range st.Active {
		s.inSet[j] = true
	}
	for j := range st.Coef {
		s.inSet[j] = true
	}

	deriv := pr.loss.DerivInto(s.deriv, st.R)
	s.deriv = deriv
	sign := pr.loss.Sign()
	gains := s.gains

	threshold := parallelWork / max(pr.n, 1)
	parallel.ParallelizeWithThreshold(pr.p, threshold, s.settings.Workers, func(start, end int) {
		for j := start; j < end; j++ {
			c := pr.curv[j]
			if s.inSet[j] || !(c > penalty.MinCurvature) {
				gains[j] = math.NaN()
				continue
			}
			z := -sign * floats.Dot(deriv, pr.dirs[j]) / c
			gains[j] = penalty.Gain(s.penalty, params, z, c)
		}
	})
	return gains
}

func improving(gains []float64) []int {
	var out []int
	for j, g := range gains {
		if g > 0 {
			out = append(out, j)
		}
	}
	return out
}

// better orders candidates by gain, then by lower index.
func better(gains []float64, a, b int) bool {
	if gains[a] != gains[b] {
		return gains[a] > gains[b]
	}
	return a < b
}

// rank returns the k best candidates in rank order. With PartialSort a
// bounded heap replaces the full sort; both give the same result.
func (s *Solver) rank(cands []int, gains []float64, k int) []int {
	if k <= 0 {
		return nil
	}
	if !s.settings.PartialSort || k >= len(cands) {
		sorted := slices.Clone(cands)
		slices.SortFunc(sorted, func(a, b int) int {
			if better(gains, a, b) {
				return -1
			}
			if better(gains, b, a) {
				return 1
			}
			return 0
		})
		return sorted[:k]
	}

	h := &worstFirst{gains: gains}
	for _, j := range cands {
		if h.Len() < k {
			heap.Push(h, j)
			continue
		}
		if better(gains, j, h.idx[0]) {
			h.idx[0] = j
			heap.Fix(h, 0)
		}
	}
	out := make([]int, h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(h).(int)
	}
	return out
}

// worstFirst is a heap whose root is the worst kept candidate.
type worstFirst struct {
	gains []float64
	idx   []int
}

func (h *worstFirst) Len() int           { return len(h.idx) }
func (h *worstFirst) Less(a, b int) bool { return better(h.gains, h.idx[b], h.idx[a]) }
func (h *worstFirst) Swap(a, b int)      { h.idx[a], h.idx[b] = h.idx[b], h.idx[a] }
func (h *worstFirst) Push(x any)         { h.idx = append(h.idx, x.(int)) }
func (h *worstFirst) Pop() any {
	last := h.idx[len(h.idx)-1]
	h.idx = h.idx[:len(h.idx)-1]
	return last
}

// mergeSorted returns the sorted union of a sorted slice and extra indices.
func mergeSorted(sorted, extra []int) []int {
	out := make([]int, 0, len(sorted)+len(extra))
	out = append(out, sorted...)
	out = append(out, extra...)
	slices.Sort(out)
	return slices.Compact(out)
}
