// Package log defines standard attribute keys for fitting operations.
//
// Keys follow a hierarchical naming convention ("data.samples",
// "path.lambda0") so records from the solver, the path builder and the
// cross-validation workers can be filtered together.

package log

// Model and Operation Context
const (
	// ModelNameKey identifies the estimator type.
	ModelNameKey = "model.name"

	// OperationKey specifies the operation being performed.
	// Standard values: "fit", "cross_validate", "predict"
	OperationKey = "ml.operation"

	// ComponentKey identifies which package is logging.
	// Examples: "solver", "path", "cv"
	ComponentKey = "ml.component"

	// PhaseKey indicates the phase of the fit.
	PhaseKey = "ml.phase"
)

// Data Shape
const (
	// SamplesKey indicates the number of samples (rows).
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of features (columns).
	FeaturesKey = "data.features"
)

// Problem Definition
const (
	LossKey      = "problem.loss"
	PenaltyKey   = "problem.penalty"
	AlgorithmKey = "problem.algorithm"
)

// Regularization Path
// These attributes describe one grid point of the path.
const (
	// AuxIndexKey is the position of the L1/L2 strength in the outer grid.
	AuxIndexKey = "path.aux_index"

	// AuxKey is the L1 or L2 strength of the current column.
	AuxKey = "path.aux"

	// Lambda0Key is the L0 strength of the grid point.
	Lambda0Key = "path.lambda0"

	// NnzKey is the support size of a solution.
	NnzKey = "path.nnz"

	// PointsKey is the number of grid points solved.
	PointsKey = "path.points"

	// SaturatedKey is true when NnzStopNum limited the support.
	SaturatedKey = "path.saturated"
)

// Solver Progress
const (
	// IterationKey records coordinate descent cycles.
	IterationKey = "solver.iterations"

	// ObjectiveKey records the penalized objective value.
	ObjectiveKey = "solver.objective"

	// ConvergedKey records whether a solve met its tolerance.
	ConvergedKey = "solver.converged"

	// SwapsKey records accepted swap moves.
	SwapsKey = "solver.swaps"
)

// Cross Validation
const (
	FoldKey   = "cv.fold"
	NFoldsKey = "cv.nfolds"

	// RandomSeedKey records the fold shuffling seed.
	RandomSeedKey = "cv.seed"

	// HeldOutLossKey records a held-out loss value.
	HeldOutLossKey = "cv.held_out_loss"
)

// Performance
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"
)

// Error Context
const (
	ErrorCodeKey  = "error.code"
	SuggestionKey = "error.suggestion"
)

// Standard attribute values.
const (
	OperationFit           = "fit"
	OperationCrossValidate = "cross_validate"
	OperationPredict       = "predict"

	PhaseTraining   = "training"
	PhaseValidation = "validation"

	ErrorConvergence = "CONVERGENCE_FAILURE"
	ErrorConfig      = "INVALID_CONFIG"
)
