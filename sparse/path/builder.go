package path

import (
	"fmt"
	"math"

	"github.com/YuminosukeSato/l0learn/pkg/errors"
	"github.com/YuminosukeSato/l0learn/pkg/log"
	"github.com/YuminosukeSato/l0learn/sparse/penalty"
	"github.com/YuminosukeSato/l0learn/sparse/solver"
)

// Builder runs the solver over a grid. With Grid nil the λ0 values are
// generated from Auto; otherwise exactly the listed values are solved.
type Builder struct {
	Penalty  penalty.Penalty
	Settings solver.Settings
	Auto     AutoGrid
	Grid     *Grid
	Logger   log.Logger
}

// Validate checks settings and the grid before any solving.
func (b *Builder) Validate() error {
	if !b.Penalty.Valid() {
		return errors.NewConfigError("Penalty", "must be one of L0, L0L1, L0L2", int(b.Penalty))
	}
	if err := b.Settings.Validate(); err != nil {
		return err
	}
	if b.Grid != nil {
		return b.Grid.Validate(b.Penalty)
	}
	return b.Auto.Validate(b.Penalty)
}

// Run solves the path for pr. Points within a column are solved
// sequentially, each warm-started from the previous one; every column
// starts cold.
func (b *Builder) Run(pr *solver.Problem) (*Solution, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	logger := b.Logger
	if logger == nil {
		logger = log.GetLoggerWithName("path")
	}
	sv := solver.New(pr, b.Penalty, b.Settings)
	sv.SetLogger(logger)

	aux := b.Auto.AuxValues(b.Penalty)
	if b.Grid != nil {
		aux = b.Grid.Aux
	}
	sol := &Solution{
		Loss:      pr.Loss(),
		Penalty:   b.Penalty,
		NFeatures: pr.P(),
		Aux:       append([]float64(nil), aux...),
	}

	r := &run{b: b, sv: sv, sol: sol, logger: logger}
	for a, auxValue := range aux {
		var n int
		if b.Grid != nil {
			n = r.fixed(a, auxValue, b.Grid.Lambda0[a])
		} else {
			n = r.auto(a, auxValue)
		}
		logger.Debug("column finished",
			log.AuxIndexKey, a,
			log.AuxKey, auxValue,
			log.PointsKey, n,
		)
	}
	return sol, nil
}

// negligibleGain is the fraction of the first λ0 below which a zero-λ0
// gain counts as rounding noise and ends the column.
const negligibleGain = 1e-12

// run carries the per-call state of Builder.Run.
type run struct {
	b      *Builder
	sv     *solver.Solver
	sol    *Solution
	logger log.Logger
}

// start is the cold start of a column: λ0 = +Inf admits no coordinate,
// leaving the intercept-only fit.
func (r *run) start(auxValue float64) solver.FitState {
	return r.sv.Solve(penalty.For(r.b.Penalty, math.Inf(1), auxValue), solver.NewFitState(r.sv.Problem()))
}

func (r *run) auto(a int, auxValue float64) int {
	b, sv := r.b, r.sv
	st := r.start(auxValue)

	lambdaMax := sv.MaxGain(st, auxValue)
	lambda := math.Max(lambdaMax, 0)
	count := 0
	for k := 0; k < b.Auto.NumLambda0; k++ {
		st = sv.Solve(penalty.For(b.Penalty, lambda, auxValue), st)
		r.record(&st, a, auxValue, k, lambda)
		count++
		if st.Saturated || lambda == 0 {
			break
		}
		gmax := sv.MaxGain(st, auxValue)
		if gmax <= negligibleGain*lambdaMax {
			break
		}
		lambda = math.Min(b.Auto.ScaleDownFactor*lambda, 0.99*gmax)
	}
	return count
}

func (r *run) fixed(a int, auxValue float64, lambdas []float64) int {
	b, sv := r.b, r.sv
	st := r.start(auxValue)
	count := 0
	for k, lambda := range lambdas {
		st = sv.Solve(penalty.For(b.Penalty, lambda, auxValue), st)
		r.record(&st, a, auxValue, k, lambda)
		count++
		if st.Saturated {
			break
		}
	}
	return count
}

func (r *run) record(st *solver.FitState, a int, auxValue float64, k int, lambda float64) {
	sv := r.sv
	support, coefs, intercept := sv.Problem().Unscale(st)
	r.sol.Points = append(r.sol.Points, Point{
		AuxIndex:     a,
		Aux:          auxValue,
		Lambda0Index: k,
		Lambda0:      lambda,
		Support:      support,
		Coefs:        coefs,
		Intercept:    intercept,
		Nnz:          len(support),
		Iterations:   st.Iterations,
		Converged:    st.Converged,
		Swaps:        st.Swaps,
		Objective:    st.Objective,
		Saturated:    st.Saturated,
	})

	if !st.Converged {
		errors.Warn(errors.NewConvergenceWarning(sv.Settings().Algorithm.String(), st.Iterations,
			fmt.Sprintf("aux=%g lambda0=%g", auxValue, lambda)))
	}
	r.logger.Debug("grid point solved",
		log.AuxIndexKey, a,
		log.Lambda0Key, lambda,
		log.NnzKey, len(support),
		log.IterationKey, st.Iterations,
		log.ConvergedKey, st.Converged,
		log.SaturatedKey, st.Saturated,
	)
}
