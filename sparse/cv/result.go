package cv

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/l0learn/sparse/path"
)

// PointStats aggregates the held-out losses of one full-path point.
type PointStats struct {
	AuxIndex     int     `json:"aux_index" msgpack:"aux_index"`
	Aux          float64 `json:"aux" msgpack:"aux"`
	Lambda0Index int     `json:"lambda0_index" msgpack:"lambda0_index"`
	Lambda0      float64 `json:"lambda0" msgpack:"lambda0"`
	Nnz          int     `json:"nnz" msgpack:"nnz"`

	// FoldLoss is NaN for folds whose path did not reach this point.
	FoldLoss []float64 `json:"-" msgpack:"fold_loss"`
	Solved   int       `json:"solved" msgpack:"solved"`
	// Complete is true when every fold solved the point. Mean and StdErr
	// are NaN otherwise.
	Complete bool    `json:"complete" msgpack:"complete"`
	Mean     float64 `json:"-" msgpack:"mean"`
	StdErr   float64 `json:"-" msgpack:"std_err"`
}

// Result holds per-point cross-validation statistics aligned with the
// full-data path, plus each fold's own path.
type Result struct {
	NFolds int              `msgpack:"nfolds"`
	Seed   uint64           `msgpack:"seed"`
	Points []PointStats     `msgpack:"points"`
	Folds  []*path.Solution `msgpack:"folds"`
}

// aggregate builds the statistics for every point of full from per-fold
// losses. losses[f] maps fold-path point index to held-out loss.
func aggregate(full *path.Solution, folds []*path.Solution, losses [][]float64) []PointStats {
	k := len(folds)
	out := make([]PointStats, full.Len())
	for i := range full.Points {
		p := full.At(i)
		ps := PointStats{
			AuxIndex:     p.AuxIndex,
			Aux:          p.Aux,
			Lambda0Index: p.Lambda0Index,
			Lambda0:      p.Lambda0,
			Nnz:          p.Nnz,
			FoldLoss:     make([]float64, k),
		}
		for f, fs := range folds {
			ps.FoldLoss[f] = math.NaN()
			if j, ok := fs.Index(p.AuxIndex, p.Lambda0Index); ok {
				ps.FoldLoss[f] = losses[f][j]
				ps.Solved++
			}
		}
		ps.Complete = ps.Solved == k
		ps.Mean, ps.StdErr = math.NaN(), math.NaN()
		if ps.Complete {
			ps.Mean = stat.Mean(ps.FoldLoss, nil)
			ps.StdErr = stat.StdDev(ps.FoldLoss, nil) / math.Sqrt(float64(k))
		}
		out[i] = ps
	}
	return out
}

// Best returns the complete point with the smallest mean held-out loss.
// Ties go to the earlier point in traversal order.
func (r *Result) Best() (int, bool) {
	best, found := 0, false
	for i := range r.Points {
		ps := &r.Points[i]
		if !ps.Complete {
			continue
		}
		if !found || ps.Mean < r.Points[best].Mean {
			best, found = i, true
		}
	}
	return best, found
}

// BestOneSE returns the sparsest complete point whose mean is within one
// standard error of the best mean. Ties go to the earlier point.
func (r *Result) BestOneSE() (int, bool) {
	best, ok := r.Best()
	if !ok {
		return 0, false
	}
	limit := r.Points[best].Mean + r.Points[best].StdErr
	pick := best
	for i := range r.Points {
		ps := &r.Points[i]
		if !ps.Complete || ps.Mean > limit {
			continue
		}
		if ps.Nnz < r.Points[pick].Nnz || (ps.Nnz == r.Points[pick].Nnz && i < pick) {
			pick = i
		}
	}
	return pick, true
}

// Partial returns the indices of points not solved in every fold.
func (r *Result) Partial() []int {
	var out []int
	for i := range r.Points {
		if !r.Points[i].Complete {
			out = append(out, i)
		}
	}
	return out
}
