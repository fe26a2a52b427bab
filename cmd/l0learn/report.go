package main

import (
	"encoding/json"
	"io"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/l0learn"
	"github.com/YuminosukeSato/l0learn/metrics"
	"github.com/YuminosukeSato/l0learn/pkg/errors"
	"github.com/YuminosukeSato/l0learn/sparse/solver"
)

type pointReport struct {
	Aux        float64   `json:"aux"`
	Lambda0    float64   `json:"lambda0"`
	Nnz        int       `json:"nnz"`
	Support    []int     `json:"support"`
	Features   []string  `json:"features,omitempty"`
	Coefs      []float64 `json:"coefs"`
	Intercept  float64   `json:"intercept"`
	Converged  bool      `json:"converged"`
	Iterations int       `json:"iterations"`
	Swaps      int       `json:"swaps"`
	Saturated  bool      `json:"saturated,omitempty"`

	Train *trainStats `json:"train,omitempty"`

	// nil when some fold did not reach the point
	CVMean   *float64 `json:"cv_mean,omitempty"`
	CVStdErr *float64 `json:"cv_std_err,omitempty"`
	CVSolved *int     `json:"cv_solved_folds,omitempty"`
}

// trainStats scores a point on the data it was fitted on.
type trainStats struct {
	Loss     float64  `json:"loss"`
	R2       *float64 `json:"r2,omitempty"`
	Accuracy *float64 `json:"accuracy,omitempty"`
}

type report struct {
	Loss      string        `json:"loss"`
	Penalty   string        `json:"penalty"`
	NFeatures int           `json:"n_features"`
	Points    []pointReport `json:"points"`

	NFolds    int  `json:"nfolds,omitempty"`
	Best      *int `json:"cv_best,omitempty"`
	BestOneSE *int `json:"cv_best_one_se,omitempty"`
}

func newReport(est *l0learn.Estimator, features []string) *report {
	sol := est.Solution()
	rep := &report{
		Loss:      sol.Loss.String(),
		Penalty:   sol.Penalty.String(),
		NFeatures: sol.NFeatures,
		Points:    make([]pointReport, sol.Len()),
	}
	for i := range sol.Points {
		p := sol.At(i)
		pr := pointReport{
			Aux:        p.Aux,
			Lambda0:    p.Lambda0,
			Nnz:        p.Nnz,
			Support:    p.Support,
			Coefs:      p.Coefs,
			Intercept:  p.Intercept,
			Converged:  p.Converged,
			Iterations: p.Iterations,
			Swaps:      p.Swaps,
			Saturated:  p.Saturated,
		}
		if len(features) == sol.NFeatures {
			for _, j := range p.Support {
				pr.Features = append(pr.Features, features[j])
			}
		}
		rep.Points[i] = pr
	}

	res := est.CVResult()
	if res == nil {
		return rep
	}
	rep.NFolds = res.NFolds
	for i := range res.Points {
		ps := &res.Points[i]
		solved := ps.Solved
		rep.Points[i].CVSolved = &solved
		if ps.Complete && !math.IsNaN(ps.Mean) {
			mean, se := ps.Mean, ps.StdErr
			rep.Points[i].CVMean = &mean
			rep.Points[i].CVStdErr = &se
		}
	}
	if best, ok := res.Best(); ok {
		rep.Best = &best
	}
	if oneSE, ok := res.BestOneSE(); ok {
		rep.BestOneSE = &oneSE
	}
	return rep
}

// addTrainStats fills the training loss of every point, with R² for Square
// and accuracy for the classification losses.
func (r *report) addTrainStats(est *l0learn.Estimator, ds *dataset) error {
	sol := est.Solution()
	y := ds.y
	if sol.Loss.Classification() {
		enc, _, err := solver.EncodeLabels(ds.y)
		if err != nil {
			return err
		}
		y = enc
	}
	yv := mat.NewVecDense(len(y), y)
	for i := range r.Points {
		eta, err := sol.Predict(ds.X, i)
		if err != nil {
			return err
		}
		st := &trainStats{}
		if st.Loss, err = metrics.HeldOutLoss(sol.Loss, y, eta); err != nil {
			return err
		}
		ev := mat.NewVecDense(len(eta), eta)
		if sol.Loss.Classification() {
			acc, err := metrics.Accuracy(yv, ev)
			if err != nil {
				return err
			}
			st.Accuracy = &acc
		} else if r2, err := metrics.R2Score(yv, ev); err == nil {
			// constant responses have no R²
			st.R2 = &r2
		}
		r.Points[i].Train = st
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(v), "failed to encode report")
}
