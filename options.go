package l0learn

import (
	"github.com/YuminosukeSato/l0learn/pkg/log"
	"github.com/YuminosukeSato/l0learn/sparse/path"
	"github.com/YuminosukeSato/l0learn/sparse/penalty"
	"github.com/YuminosukeSato/l0learn/sparse/solver"
)

// Option is a function that configures an Estimator
type Option func(*Estimator)

// WithConfig replaces the whole configuration. Options after it still apply.
func WithConfig(cfg Config) Option {
	return func(e *Estimator) {
		e.config = cfg
	}
}

// WithLoss sets the loss function
func WithLoss(loss penalty.Loss) Option {
	return func(e *Estimator) {
		e.config.Loss = loss
	}
}

// WithPenalty sets the penalty family
func WithPenalty(pen penalty.Penalty) Option {
	return func(e *Estimator) {
		e.config.Penalty = pen
	}
}

// WithAlgorithm selects plain coordinate descent or CD with swaps
func WithAlgorithm(alg solver.Algorithm) Option {
	return func(e *Estimator) {
		e.config.Algorithm = alg
	}
}

// WithNnzStopNum caps the support size of every solution
func WithNnzStopNum(n int) Option {
	return func(e *Estimator) {
		e.config.NnzStopNum = n
	}
}

// WithAutoGrid sets the grid generation parameters
func WithAutoGrid(grid path.AutoGrid) Option {
	return func(e *Estimator) {
		e.config.Grid = grid
	}
}

// WithNumLambda0 sets the maximum number of λ0 values per column
func WithNumLambda0(n int) Option {
	return func(e *Estimator) {
		e.config.Grid.NumLambda0 = n
	}
}

// WithAux sets the number and range of auxiliary strengths
func WithAux(n int, hi, lo float64) Option {
	return func(e *Estimator) {
		e.config.Grid.NumAux = n
		e.config.Grid.AuxMax = hi
		e.config.Grid.AuxMin = lo
	}
}

// WithScaleDownFactor sets the ratio between consecutive generated λ0 values
func WithScaleDownFactor(f float64) Option {
	return func(e *Estimator) {
		e.config.Grid.ScaleDownFactor = f
	}
}

// WithLambdas supplies the λ0 grid explicitly. L0 takes one list; L0L1 and
// L0L2 take one list per aux strength, and the list count replaces the
// grid's NumAux.
func WithLambdas(lambdas [][]float64) Option {
	return func(e *Estimator) {
		e.config.Lambdas = lambdas
	}
}

// WithMaxIters sets the coordinate descent cycle limit per grid point
func WithMaxIters(n int) Option {
	return func(e *Estimator) {
		e.config.MaxIters = n
	}
}

// WithTol sets the tolerance for the optimization
func WithTol(tol float64) Option {
	return func(e *Estimator) {
		e.config.Tol = tol
	}
}

// WithCriterion sets the convergence criterion
func WithCriterion(c solver.Criterion) Option {
	return func(e *Estimator) {
		e.config.Criterion = c
	}
}

// WithActiveSet toggles active-set screening and its sweep period
func WithActiveSet(enabled bool, sweepEvery int) Option {
	return func(e *Estimator) {
		e.config.ActiveSet = enabled
		e.config.ActiveSetNum = sweepEvery
	}
}

// WithMaxNumSwaps bounds the swap moves per grid point
func WithMaxNumSwaps(n int) Option {
	return func(e *Estimator) {
		e.config.MaxNumSwaps = n
	}
}

// WithScreenSize sets how many candidates screening keeps
func WithScreenSize(n int) Option {
	return func(e *Estimator) {
		e.config.ScreenSize = n
	}
}

// WithPartialSort toggles heap-based top-k selection
func WithPartialSort(enabled bool) Option {
	return func(e *Estimator) {
		e.config.PartialSort = enabled
	}
}

// WithWorkers sets the number of goroutines used by full sweeps
func WithWorkers(n int) Option {
	return func(e *Estimator) {
		e.config.Workers = n
	}
}

// WithFoldWorkers sets the number of folds solved concurrently
func WithFoldWorkers(n int) Option {
	return func(e *Estimator) {
		e.config.FoldWorkers = n
	}
}

// WithLogger replaces the estimator's logger
func WithLogger(logger log.Logger) Option {
	return func(e *Estimator) {
		e.logger = logger
	}
}
