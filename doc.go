// Package l0learn fits L0-regularized generalized linear models over a whole
// regularization path.
//
// The estimator minimizes a per-sample loss (squared error, logistic or
// squared hinge) plus λ0·‖β‖₀, optionally combined with an L1 or L2 term.
// Each grid point is solved by cyclic coordinate descent with active-set
// screening, optionally followed by single-coordinate swaps (CDPSI) that
// escape the local minima plain coordinate descent settles in.
//
// # Quick Start
//
//	est := l0learn.New(
//	    l0learn.WithPenalty(penalty.L0L2),
//	    l0learn.WithAlgorithm(solver.CDPSI),
//	    l0learn.WithNnzStopNum(20),
//	)
//	sol, cvr, err := est.CrossValidate(X, y, 5, 1)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	best, _ := cvr.BestOneSE()
//	coefs, _ := est.Coefficients(best)
//
// # Packages
//
//   - sparse/penalty: losses, penalties and the closed-form coordinate update
//   - sparse/solver: coordinate descent, active sets and swaps for one grid point
//   - sparse/path: grid generation and warm-started traversal
//   - sparse/cv: deterministic k-fold cross-validation over a path
//   - core/model: fitted state, archives and weight export
//
// Configuration errors are reported as *errors.ConfigError before any
// solving starts. Non-convergence is recorded per grid point and reported
// through errors.Warn; it never fails a fit.
package l0learn
