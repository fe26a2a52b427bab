package cv

import (
	"context"
	"runtime"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/l0learn/metrics"
	"github.com/YuminosukeSato/l0learn/pkg/errors"
	"github.com/YuminosukeSato/l0learn/pkg/log"
	"github.com/YuminosukeSato/l0learn/sparse/path"
	"github.com/YuminosukeSato/l0learn/sparse/penalty"
	"github.com/YuminosukeSato/l0learn/sparse/solver"
)

var tracer = otel.Tracer("github.com/YuminosukeSato/l0learn/sparse/cv")

// Options controls fold assignment and scheduling.
type Options struct {
	NFolds int
	Seed   uint64
	// Workers bounds the folds solved concurrently; 0 means NumCPU.
	Workers int
	Logger  log.Logger
}

type foldOutcome struct {
	fold   int
	sol    *path.Solution
	losses []float64
}

// Run fits the full-data path, then every training fold on the full path's
// realized grid, and scores each fold's points on its held-out samples
// with the fitting loss. Configuration problems are reported before any
// solving starts.
func Run(ctx context.Context, X mat.Matrix, y []float64, loss penalty.Loss, b path.Builder, opts Options) (*path.Solution, *Result, error) {
	n, _ := X.Dims()
	if err := b.Validate(); err != nil {
		return nil, nil, err
	}
	fa, err := NewFoldAssignment(n, opts.NFolds, opts.Seed)
	if err != nil {
		return nil, nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.GetLoggerWithName("cv")
	}
	logger = logger.With(log.NFoldsKey, opts.NFolds, log.RandomSeedKey, opts.Seed)

	labels := y
	if loss.Classification() {
		if labels, _, err = solver.EncodeLabels(y); err != nil {
			return nil, nil, err
		}
	}
	pr, err := solver.NewProblem(X, labels, loss)
	if err != nil {
		return nil, nil, err
	}

	start := time.Now()
	if b.Logger == nil {
		b.Logger = logger
	}
	full, err := b.Run(pr)
	if err != nil {
		return nil, nil, err
	}

	foldBuilder := b
	foldBuilder.Grid = full.Grid()

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	results := make(chan foldOutcome, fa.NFolds())
	for k := 0; k < fa.NFolds(); k++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fb := foldBuilder
			fb.Logger = logger.With(log.FoldKey, k)
			var out foldOutcome
			err := errors.SafeExecute("cv.fold", func() (err error) {
				out, err = runFold(gctx, X, labels, loss, &fb, fa, k)
				return err
			})
			if err != nil {
				return errors.Wrapf(err, "cv fold %d", k)
			}
			results <- out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	close(results)

	folds := make([]*path.Solution, fa.NFolds())
	losses := make([][]float64, fa.NFolds())
	for out := range results {
		folds[out.fold] = out.sol
		losses[out.fold] = out.losses
	}

	res := &Result{
		NFolds: fa.NFolds(),
		Seed:   opts.Seed,
		Points: aggregate(full, folds, losses),
		Folds:  folds,
	}
	logger.Info("cross-validation finished",
		log.PointsKey, full.Len(),
		"cv.partial_points", len(res.Partial()),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return full, res, nil
}

func runFold(ctx context.Context, X mat.Matrix, y []float64, loss penalty.Loss, b *path.Builder, fa *FoldAssignment, k int) (foldOutcome, error) {
	_, span := tracer.Start(ctx, "cv.fold", trace.WithAttributes(attribute.Int(log.FoldKey, k)))
	defer span.End()

	train, test := fa.Train(k), fa.Test(k)
	Xtr, ytr := subsetRows(X, y, train)
	pr, err := solver.NewProblem(Xtr, ytr, loss)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return foldOutcome{}, err
	}
	sol, err := b.Run(pr)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return foldOutcome{}, err
	}

	Xte, yte := subsetRows(X, y, test)
	losses := make([]float64, sol.Len())
	for i := range sol.Points {
		eta := sol.At(i).Predict(Xte)
		if losses[i], err = metrics.HeldOutLoss(loss, yte, eta); err != nil {
			span.SetStatus(codes.Error, err.Error())
			return foldOutcome{}, err
		}
	}

	span.SetAttributes(
		attribute.Int(log.PointsKey, sol.Len()),
		attribute.Int("cv.train_size", len(train)),
		attribute.Int("cv.test_size", len(test)),
	)
	b.Logger.Debug("fold finished", log.PointsKey, sol.Len())
	return foldOutcome{fold: k, sol: sol, losses: losses}, nil
}

// subsetRows copies the selected rows of X and y.
func subsetRows(X mat.Matrix, y []float64, rows []int) (*mat.Dense, []float64) {
	_, p := X.Dims()
	Xs := mat.NewDense(len(rows), p, nil)
	ys := make([]float64, len(rows))
	for k, i := range rows {
		Xs.SetRow(k, mat.Row(nil, i, X))
		ys[k] = y[i]
	}
	return Xs, ys
}
