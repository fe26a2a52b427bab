package l0learn

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/l0learn/core/model"
	"github.com/YuminosukeSato/l0learn/pkg/errors"
	"github.com/YuminosukeSato/l0learn/pkg/log"
	"github.com/YuminosukeSato/l0learn/sparse/cv"
	"github.com/YuminosukeSato/l0learn/sparse/path"
	"github.com/YuminosukeSato/l0learn/sparse/solver"
)

const modelName = "L0Learn"

var _ model.PathModel = (*Estimator)(nil)

// Estimator fits L0-regularized paths.
//
// An Estimator is not safe for concurrent Fit calls. Predict and
// Coefficients may run concurrently once fitting has finished.
type Estimator struct {
	State *model.StateManager

	config   Config
	solution *path.Solution
	cvResult *cv.Result
	logger   log.Logger
}

// New creates an unfitted estimator with DefaultConfig adjusted by opts.
//
// Example:
//
//	est := l0learn.New(
//	    l0learn.WithLoss(penalty.Logistic),
//	    l0learn.WithPenalty(penalty.L0L2),
//	    l0learn.WithAlgorithm(solver.CDPSI),
//	)
//	sol, err := est.Fit(X, y)
func New(opts ...Option) *Estimator {
	e := &Estimator{
		State:  model.NewStateManager(),
		config: DefaultConfig(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = log.GetLoggerWithName("l0learn")
	}
	e.logger = e.logger.With(
		log.ModelNameKey, modelName,
		log.ComponentKey, "l0learn",
	)
	return e
}

// Config returns a copy of the configuration.
func (e *Estimator) Config() Config { return e.config }

// Solution returns the path of the last Fit or CrossValidate.
func (e *Estimator) Solution() *path.Solution { return e.solution }

// CVResult returns the statistics of the last CrossValidate; nil after Fit.
func (e *Estimator) CVResult() *cv.Result { return e.cvResult }

// Fit solves the whole regularization path on X (n×p) and y.
func (e *Estimator) Fit(X mat.Matrix, y []float64) (*path.Solution, error) {
	return e.FitContext(context.Background(), X, y)
}

// FitContext is Fit with a context for tracing and cancellation. The
// context is checked before solving starts.
func (e *Estimator) FitContext(ctx context.Context, X mat.Matrix, y []float64) (sol *path.Solution, err error) {
	defer errors.Recover(&err, "Estimator.Fit")

	n, p := X.Dims()
	ctx, span := tracer.Start(ctx, "l0learn.Fit", trace.WithAttributes(
		attribute.Int(log.SamplesKey, n),
		attribute.Int(log.FeaturesKey, p),
		attribute.String(log.LossKey, e.config.Loss.String()),
		attribute.String(log.PenaltyKey, e.config.Penalty.String()),
	))
	defer span.End()

	startTime := time.Now()
	defer func() {
		recordFitMetrics(ctx, log.OperationFit, sol, time.Since(startTime), err == nil)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	logger := e.logger.With(log.OperationKey, log.OperationFit)
	logger.Info("Training started",
		log.PhaseKey, log.PhaseTraining,
		log.SamplesKey, n,
		log.FeaturesKey, p,
		log.LossKey, e.config.Loss.String(),
		log.PenaltyKey, e.config.Penalty.String(),
		log.AlgorithmKey, e.config.Algorithm.String(),
	)

	b, labels, err := e.prepare(X, y)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pr, err := solver.NewProblem(X, labels, e.config.Loss)
	if err != nil {
		return nil, err
	}
	b.Logger = logger
	sol, err = b.Run(pr)
	if err != nil {
		return nil, err
	}

	e.commit(sol, nil, n, p)
	span.SetAttributes(attribute.Int(log.PointsKey, sol.Len()))
	logger.Info("Training completed",
		log.PhaseKey, log.PhaseTraining,
		log.PointsKey, sol.Len(),
		log.DurationMsKey, time.Since(startTime).Milliseconds(),
	)
	return sol, nil
}

// CrossValidate fits the full path and then every training fold on the
// full path's grid. Folds are assigned deterministically from seed.
func (e *Estimator) CrossValidate(X mat.Matrix, y []float64, nfolds int, seed uint64) (*path.Solution, *cv.Result, error) {
	return e.CrossValidateContext(context.Background(), X, y, nfolds, seed)
}

// CrossValidateContext is CrossValidate with a context. Cancelling it
// stops folds that have not started.
func (e *Estimator) CrossValidateContext(ctx context.Context, X mat.Matrix, y []float64, nfolds int, seed uint64) (sol *path.Solution, res *cv.Result, err error) {
	defer errors.Recover(&err, "Estimator.CrossValidate")

	n, p := X.Dims()
	ctx, span := tracer.Start(ctx, "l0learn.CrossValidate", trace.WithAttributes(
		attribute.Int(log.SamplesKey, n),
		attribute.Int(log.FeaturesKey, p),
		attribute.Int(log.NFoldsKey, nfolds),
		attribute.Int64(log.RandomSeedKey, int64(seed)),
	))
	defer span.End()

	startTime := time.Now()
	defer func() {
		recordFitMetrics(ctx, log.OperationCrossValidate, sol, time.Since(startTime), err == nil)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	logger := e.logger.With(log.OperationKey, log.OperationCrossValidate)
	logger.Info("Cross-validation started",
		log.PhaseKey, log.PhaseValidation,
		log.SamplesKey, n,
		log.FeaturesKey, p,
		log.NFoldsKey, nfolds,
		log.RandomSeedKey, seed,
	)

	b, labels, err := e.prepare(X, y)
	if err != nil {
		return nil, nil, err
	}
	b.Logger = logger
	sol, res, err = cv.Run(ctx, X, labels, e.config.Loss, b, cv.Options{
		NFolds:  nfolds,
		Seed:    seed,
		Workers: e.config.FoldWorkers,
		Logger:  logger,
	})
	if err != nil {
		return nil, nil, err
	}

	e.commit(sol, res, n, p)
	attrs := []any{
		log.PhaseKey, log.PhaseValidation,
		log.PointsKey, sol.Len(),
		log.DurationMsKey, time.Since(startTime).Milliseconds(),
	}
	if best, ok := res.Best(); ok {
		attrs = append(attrs, log.Lambda0Key, res.Points[best].Lambda0, log.HeldOutLossKey, res.Points[best].Mean)
	}
	logger.Info("Cross-validation completed", attrs...)
	return sol, res, nil
}

// prepare validates the configuration and shapes before any solving and
// encodes classification labels, warning when {0,1} labels were mapped.
func (e *Estimator) prepare(X mat.Matrix, y []float64) (path.Builder, []float64, error) {
	if err := e.config.Validate(); err != nil {
		return path.Builder{}, nil, err
	}
	b, err := e.config.Builder()
	if err != nil {
		return b, nil, err
	}
	n, p := X.Dims()
	if n == 0 || p == 0 {
		return b, nil, errors.NewModelError("Estimator.Fit", "empty data", errors.ErrEmptyData)
	}
	if len(y) != n {
		return b, nil, errors.NewDimensionError("Estimator.Fit", n, len(y), 0)
	}
	if !e.config.Loss.Classification() {
		return b, y, nil
	}
	labels, converted, err := solver.EncodeLabels(y)
	if err != nil {
		return b, nil, err
	}
	if converted {
		errors.Warn(errors.NewDataConversionWarning("{0,1}", "{-1,+1}", "classification labels"))
	}
	return b, labels, nil
}

func (e *Estimator) commit(sol *path.Solution, res *cv.Result, n, p int) {
	e.solution = sol
	e.cvResult = res
	e.State.SetDimensions(p, n)
	e.State.SetFitted()
}

// Predict returns the linear predictor of grid point i on X. For
// classification losses this is the margin before the sign.
func (e *Estimator) Predict(X mat.Matrix, i int) (_ []float64, err error) {
	defer errors.Recover(&err, "Estimator.Predict")
	if err := e.State.RequireFitted(modelName, "Predict"); err != nil {
		return nil, err
	}
	r, c := X.Dims()
	e.logger.Debug("Prediction started",
		log.OperationKey, log.OperationPredict,
		log.SamplesKey, r,
		log.FeaturesKey, c,
	)
	return e.solution.Predict(X, i)
}

// Coefficients returns the dense coefficient vector of grid point i on the
// original feature scale.
func (e *Estimator) Coefficients(i int) ([]float64, error) {
	if err := e.State.RequireFitted(modelName, "Coefficients"); err != nil {
		return nil, err
	}
	return e.solution.Coefficients(i)
}

// Intercept returns the intercept of grid point i.
func (e *Estimator) Intercept(i int) (float64, error) {
	if err := e.State.RequireFitted(modelName, "Intercept"); err != nil {
		return 0, err
	}
	if i < 0 || i >= e.solution.Len() {
		return 0, errors.NewValueError("Estimator.Intercept", "grid point index out of range")
	}
	return e.solution.At(i).Intercept, nil
}

// Weights exports grid point i for use outside this package.
func (e *Estimator) Weights(i int, features []string) (*model.ModelWeights, error) {
	if err := e.State.RequireFitted(modelName, "Weights"); err != nil {
		return nil, err
	}
	return model.WeightsFromPoint(e.solution, i, features)
}

// Archive packages the configuration, path and CV statistics.
func (e *Estimator) Archive() (*model.PathArchive, error) {
	if err := e.State.RequireFitted(modelName, "Archive"); err != nil {
		return nil, err
	}
	cfg, err := e.config.Marshal()
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode config")
	}
	return &model.PathArchive{
		Config:   cfg,
		State:    e.State.GetState(),
		Solution: e.solution,
		CV:       e.cvResult,
	}, nil
}

// Save writes the fitted estimator as a compressed archive.
func (e *Estimator) Save(filename string) error {
	a, err := e.Archive()
	if err != nil {
		return err
	}
	return model.SaveArchive(a, filename)
}

// Load restores an estimator written by Save, replacing its configuration.
func (e *Estimator) Load(filename string) error {
	a, err := model.LoadArchive(filename)
	if err != nil {
		return err
	}
	return e.restore(a)
}

func (e *Estimator) restore(a *model.PathArchive) error {
	cfg := DefaultConfig()
	if err := ParseConfig(a.Config, &cfg); err != nil {
		return err
	}
	if a.Solution == nil {
		return errors.NewValueError("Estimator.Load", "archive has no solution")
	}
	e.config = cfg
	e.solution = a.Solution
	e.cvResult = a.CV
	e.State.SetState(a.State)
	return nil
}
