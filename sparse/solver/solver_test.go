package solver

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/l0learn/pkg/errors"
	"github.com/YuminosukeSato/l0learn/sparse/penalty"
)

func TestNewProblemPreprocessing(t *testing.T) {
	X := gaussianDesign(50, 4, 1)
	for i := 0; i < 50; i++ {
		X.Set(i, 3, 2.5) // constant column
	}
	y := linearResponse(X, []float64{1, 0, -2, 0}, 4, 0.1, 2)

	pr, err := NewProblem(X, y, penalty.Square)
	require.NoError(t, err)
	assert.Equal(t, 50, pr.N())
	assert.Equal(t, 4, pr.P())
	assert.InDelta(t, 0, floats.Sum(pr.Response()), 1e-9)

	for j := 0; j < 3; j++ {
		assert.InDelta(t, 1, floats.Norm(pr.Dir(j), 2), 1e-12)
		assert.InDelta(t, 0, floats.Sum(pr.Dir(j)), 1e-9)
		assert.InDelta(t, 1, pr.Curvature(j), 1e-12)
	}
	assert.True(t, pr.Degenerate(3))
	assert.Nil(t, pr.Dir(3))
}

func TestNewProblemErrors(t *testing.T) {
	X := gaussianDesign(10, 2, 3)

	_, err := NewProblem(X, make([]float64, 9), penalty.Square)
	var dimErr *errors.DimensionError
	assert.True(t, errors.As(err, &dimErr))

	y := make([]float64, 10)
	y[3] = 2
	_, err = NewProblem(X, y, penalty.Logistic)
	assert.True(t, errors.IsConfigError(err))

	y[3] = math.NaN()
	_, err = NewProblem(X, y, penalty.Square)
	assert.Error(t, err)

	_, err = NewProblem(X, make([]float64, 10), penalty.Loss(7))
	assert.True(t, errors.IsConfigError(err))
}

func TestEncodeLabels(t *testing.T) {
	enc, converted, err := EncodeLabels([]float64{0, 1, 1, 0})
	require.NoError(t, err)
	assert.True(t, converted)
	assert.Equal(t, []float64{-1, 1, 1, -1}, enc)

	enc, converted, err = EncodeLabels([]float64{-1, 1})
	require.NoError(t, err)
	assert.False(t, converted)
	assert.Equal(t, []float64{-1, 1}, enc)

	_, _, err = EncodeLabels([]float64{-1, 0, 1})
	assert.True(t, errors.IsConfigError(err))
}

func TestUnscaleRecoversOriginalScale(t *testing.T) {
	X := gaussianDesign(40, 3, 5)
	X.Apply(func(i, j int, v float64) float64 { return 10*v + float64(j) }, X)
	y := linearResponse(X, []float64{0.5, 0, 0}, -1, 0, 6)

	pr, err := NewProblem(X, y, penalty.Square)
	require.NoError(t, err)

	st := NewFitState(pr)
	// exact fit on feature 0 in processed units
	st.move(pr, 0, 0.5*pr.scale[0])
	support, coefs, intercept := pr.Unscale(&st)
	assert.Equal(t, []int{0}, support)
	assert.InDelta(t, 0.5, coefs[0], 1e-12)
	assert.InDelta(t, -1, intercept, 1e-9)
	assert.InDelta(t, 0, floats.Norm(st.R, 2), 1e-9)
}

func newSolver(t *testing.T, X *mat.Dense, y []float64, loss penalty.Loss, pen penalty.Penalty, mutate func(*Settings)) *Solver {
	t.Helper()
	pr, err := NewProblem(X, y, loss)
	require.NoError(t, err)
	set := DefaultSettings()
	if mutate != nil {
		mutate(&set)
	}
	require.NoError(t, set.Validate())
	return New(pr, pen, set)
}

func TestSolveObjectiveNeverIncreases(t *testing.T) {
	X := gaussianDesign(80, 12, 11)
	beta := []float64{2, 0, 0, -1.5, 0, 0, 0, 1, 0, 0, 0, 0}
	yReg := linearResponse(X, beta, 1, 0.5, 12)
	yCls := binaryResponse(X, beta, 13)

	cases := []struct {
		name string
		loss penalty.Loss
		y    []float64
	}{
		{"square", penalty.Square, yReg},
		{"logistic", penalty.Logistic, yCls},
		{"squared hinge", penalty.SquaredHinge, yCls},
	}
	for _, tc := range cases {
		for _, pen := range []penalty.Penalty{penalty.L0, penalty.L0L1, penalty.L0L2} {
			for _, alg := range []Algorithm{CD, CDPSI} {
				s := newSolver(t, X, tc.y, tc.loss, pen, func(set *Settings) { set.Algorithm = alg })
				st := NewFitState(s.Problem())
				for _, lambda := range []float64{5, 1, 0.2, 0.05} {
					params := penalty.For(pen, lambda, 0.01)
					before := s.Objective(params, &st)
					next := s.Solve(params, st)
					assert.LessOrEqual(t, next.Objective, before+1e-12,
						"%s %v %v lambda=%v", tc.name, pen, alg, lambda)
					assert.InDelta(t, s.Objective(params, &next), next.Objective, 1e-9)
					assert.Less(t, next.ResidualDrift(s.Problem()), 1e-9)
					assert.Equal(t, next.Support(), next.Active)
					st = next
				}
			}
		}
	}
}

func TestSolveDoesNotMutateWarmStart(t *testing.T) {
	X := gaussianDesign(30, 5, 21)
	y := linearResponse(X, []float64{1, 1, 0, 0, 0}, 0, 0.1, 22)
	s := newSolver(t, X, y, penalty.Square, penalty.L0, nil)

	init := s.Solve(penalty.For(penalty.L0, 1, 0), NewFitState(s.Problem()))
	snapshot := init.Clone()
	_ = s.Solve(penalty.For(penalty.L0, 0.01, 0), init)
	assert.Equal(t, snapshot.Coef, init.Coef)
	assert.Equal(t, snapshot.R, init.R)
}

func TestSolveRecoversProportionalFeature(t *testing.T) {
	X := gaussianDesign(100, 20, 31)
	y := make([]float64, 100)
	for i := range y {
		y[i] = 3 * X.At(i, 7)
	}
	s := newSolver(t, X, y, penalty.Square, penalty.L0, nil)
	st := s.Solve(penalty.For(penalty.L0, 50, 0), NewFitState(s.Problem()))

	require.True(t, st.Converged)
	support, coefs, intercept := s.Problem().Unscale(&st)
	assert.Equal(t, []int{7}, support)
	assert.InDelta(t, 3, coefs[0], 1e-9)
	assert.InDelta(t, 0, intercept, 1e-9)
}

func TestNnzStopNumZeroKeepsEmptySupport(t *testing.T) {
	X := gaussianDesign(40, 6, 41)
	y := linearResponse(X, []float64{3, 0, 0, 0, 0, 0}, 2, 0.1, 42)

	for _, active := range []bool{true, false} {
		s := newSolver(t, X, y, penalty.Square, penalty.L0, func(set *Settings) {
			set.NnzStopNum = 0
			set.ActiveSet = active
		})
		st := s.Solve(penalty.For(penalty.L0, 0.01, 0), NewFitState(s.Problem()))
		assert.Empty(t, st.Coef)
		assert.True(t, st.Saturated, "active=%v", active)
		_, _, intercept := s.Problem().Unscale(&st)
		assert.InDelta(t, floats.Sum(y)/40, intercept, 1e-12)
	}
}

func TestNnzStopNumCapsSupport(t *testing.T) {
	X := gaussianDesign(60, 10, 51)
	y := linearResponse(X, []float64{3, -2, 1.5, 1, 0.8, 0, 0, 0, 0, 0}, 0, 0.1, 52)
	s := newSolver(t, X, y, penalty.Square, penalty.L0, func(set *Settings) { set.NnzStopNum = 2 })
	st := s.Solve(penalty.For(penalty.L0, 1e-4, 0), NewFitState(s.Problem()))
	assert.LessOrEqual(t, st.Nnz(), 2)
	assert.LessOrEqual(t, len(st.Active), 2)
	assert.True(t, st.Saturated)
}

func TestSaturatedOnlyWhenConvergedSupportIsFull(t *testing.T) {
	X := gaussianDesign(80, 12, 55)
	y := linearResponse(X, []float64{4, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}, 0, 0.1, 56)

	// a large λ0 keeps one coordinate although the cold start screens many
	for _, active := range []bool{true, false} {
		s := newSolver(t, X, y, penalty.Square, penalty.L0, func(set *Settings) {
			set.NnzStopNum = 3
			set.ScreenSize = 12
			set.ActiveSet = active
		})
		st := s.Solve(penalty.For(penalty.L0, 1, 0), NewFitState(s.Problem()))
		require.True(t, st.Converged)
		assert.Equal(t, []int{0}, st.Support(), "active=%v", active)
		assert.False(t, st.Saturated, "active=%v", active)
	}
}

func TestWarmAndColdStartAgree(t *testing.T) {
	X := gaussianDesign(120, 15, 61)
	beta := make([]float64, 15)
	beta[2], beta[5], beta[11] = 3, -2, 1.5
	y := linearResponse(X, beta, 0.5, 0.2, 62)
	s := newSolver(t, X, y, penalty.Square, penalty.L0, func(set *Settings) { set.Tol = 1e-10 })

	params := penalty.For(penalty.L0, 2, 0)
	cold := s.Solve(params, NewFitState(s.Problem()))
	warm := s.Solve(params, s.Solve(penalty.For(penalty.L0, 50, 0), NewFitState(s.Problem())))

	require.True(t, cold.Converged)
	require.True(t, warm.Converged)
	assert.Equal(t, []int{2, 5, 11}, cold.Support())
	assert.Equal(t, cold.Support(), warm.Support())
	assert.InEpsilon(t, cold.Objective, warm.Objective, 1e-6)
}

func TestDenseAndActiveSetModesAgree(t *testing.T) {
	X := gaussianDesign(90, 8, 71)
	y := linearResponse(X, []float64{0, 2, 0, 0, -1, 0, 0, 0}, 0, 0.1, 72)
	params := penalty.For(penalty.L0L2, 0.5, 0.1)

	active := newSolver(t, X, y, penalty.Square, penalty.L0L2, func(set *Settings) { set.Tol = 1e-10 })
	dense := newSolver(t, X, y, penalty.Square, penalty.L0L2, func(set *Settings) {
		set.Tol = 1e-10
		set.ActiveSet = false
	})
	a := active.Solve(params, NewFitState(active.Problem()))
	d := dense.Solve(params, NewFitState(dense.Problem()))
	assert.Equal(t, a.Support(), d.Support())
	assert.InEpsilon(t, a.Objective, d.Objective, 1e-6)
}

func TestMaxIterationsReportsNonConvergence(t *testing.T) {
	X := gaussianDesign(50, 6, 81)
	y := binaryResponse(X, []float64{2, -2, 1, 0, 0, 0}, 82)
	s := newSolver(t, X, y, penalty.Logistic, penalty.L0L2, func(set *Settings) {
		set.MaxIters = 1
		set.Tol = 1e-12
	})
	st := s.Solve(penalty.For(penalty.L0L2, 0.01, 0.01), NewFitState(s.Problem()))
	assert.False(t, st.Converged)
	assert.Equal(t, 1, st.Iterations)
}

func TestClassificationFitsIntercept(t *testing.T) {
	X := gaussianDesign(200, 3, 91)
	y := make([]float64, 200)
	for i := range y {
		if i%4 != 0 {
			y[i] = 1
		}
	}
	s := newSolver(t, X, y, penalty.Logistic, penalty.L0, func(set *Settings) { set.Tol = 1e-12 })
	st := s.Solve(penalty.For(penalty.L0, math.Inf(1), 0), NewFitState(s.Problem()))
	assert.Empty(t, st.Coef)
	// intercept-only logistic fit: logit(3/4)
	assert.InDelta(t, math.Log(3), st.Intercept, 1e-3)
}

func TestMaxGainIsEntryThreshold(t *testing.T) {
	X := gaussianDesign(70, 9, 101)
	y := linearResponse(X, []float64{0, 0, 4, 0, 0, 0, 1, 0, 0}, 0, 0.3, 102)
	s := newSolver(t, X, y, penalty.Square, penalty.L0, nil)
	cold := NewFitState(s.Problem())

	g := s.MaxGain(cold, 0)
	require.Greater(t, g, 0.0)
	at := s.Solve(penalty.For(penalty.L0, g, 0), cold)
	assert.Empty(t, at.Coef)
	below := s.Solve(penalty.For(penalty.L0, 0.99*g, 0), cold)
	assert.NotEmpty(t, below.Coef)
}

func TestSwapEscapesWrongSupport(t *testing.T) {
	X := gaussianDesign(60, 5, 111)
	y := make([]float64, 60)
	for i := range y {
		y[i] = 2 * X.At(i, 3)
	}
	s := newSolver(t, X, y, penalty.Square, penalty.L0, func(set *Settings) { set.Algorithm = CDPSI })
	pr := s.Problem()
	params := penalty.For(penalty.L0, 0.5, 0)

	st := NewFitState(pr)
	st.move(pr, 1, 0.3)
	st.Active = st.Support()
	st.Objective = s.Objective(params, &st)
	before := st.Objective

	require.True(t, s.swap(params, &st))
	assert.Equal(t, []int{3}, st.Support())
	assert.Less(t, st.Objective, before)
	assert.Less(t, st.ResidualDrift(pr), 1e-9)
}

func TestCDPSINotWorseThanCD(t *testing.T) {
	X := gaussianDesign(50, 25, 121)
	// correlated pair to create coordinate-wise local optima
	for i := 0; i < 50; i++ {
		X.Set(i, 1, 0.9*X.At(i, 0)+0.1*X.At(i, 1))
	}
	beta := make([]float64, 25)
	beta[1], beta[4], beta[9] = 2, 2, -1
	y := linearResponse(X, beta, 0, 0.3, 122)

	cd := newSolver(t, X, y, penalty.Square, penalty.L0, nil)
	psi := newSolver(t, X, y, penalty.Square, penalty.L0, func(set *Settings) { set.Algorithm = CDPSI })
	for _, lambda := range []float64{10, 3, 1} {
		params := penalty.For(penalty.L0, lambda, 0)
		a := cd.Solve(params, NewFitState(cd.Problem()))
		b := psi.Solve(params, NewFitState(psi.Problem()))
		assert.LessOrEqual(t, b.Objective, a.Objective+1e-9, "lambda=%v", lambda)
		assert.LessOrEqual(t, b.Swaps, psi.Settings().MaxNumSwaps)
	}
}

func TestRankPartialMatchesFullSort(t *testing.T) {
	gains := []float64{0.5, 2, 2, 0.1, 3, 0.5, 2}
	cands := []int{0, 1, 2, 3, 4, 5, 6}

	full := &Solver{settings: Settings{PartialSort: false}}
	part := &Solver{settings: Settings{PartialSort: true}}
	for k := 1; k <= len(cands); k++ {
		assert.Equal(t, full.rank(cands, gains, k), part.rank(cands, gains, k), "k=%d", k)
	}
	assert.Equal(t, []int{4, 1, 2, 6}, full.rank(cands, gains, 4))
	assert.Nil(t, full.rank(cands, gains, 0))
}

func TestScreenRespectsScreenSizeAndCap(t *testing.T) {
	X := gaussianDesign(80, 30, 131)
	beta := make([]float64, 30)
	for j := 0; j < 10; j++ {
		beta[j] = 1 + float64(j)/4
	}
	y := linearResponse(X, beta, 0, 0.1, 132)

	s := newSolver(t, X, y, penalty.Square, penalty.L0, func(set *Settings) {
		set.ScreenSize = 4
		set.NnzStopNum = 20
	})
	st := NewFitState(s.Problem())
	active := s.screen(penalty.For(penalty.L0, 1e-3, 0), &st)
	assert.Len(t, active, 4)
	assert.False(t, st.Saturated)

	capped := newSolver(t, X, y, penalty.Square, penalty.L0, func(set *Settings) {
		set.ScreenSize = 10
		set.NnzStopNum = 3
	})
	st = NewFitState(capped.Problem())
	active = capped.screen(penalty.For(penalty.L0, 1e-3, 0), &st)
	assert.Len(t, active, 3)
	assert.False(t, st.Saturated, "screening trims without judging the converged support")
}

func TestSettingsValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Settings)
		param  string
	}{
		{"max iters", func(s *Settings) { s.MaxIters = 0 }, "MaxIters"},
		{"tol", func(s *Settings) { s.Tol = 0 }, "Tol"},
		{"tol nan", func(s *Settings) { s.Tol = math.NaN() }, "Tol"},
		{"active set num", func(s *Settings) { s.ActiveSetNum = 0 }, "ActiveSetNum"},
		{"swaps", func(s *Settings) { s.MaxNumSwaps = -1 }, "MaxNumSwaps"},
		{"screen", func(s *Settings) { s.ScreenSize = 0 }, "ScreenSize"},
		{"nnz", func(s *Settings) { s.NnzStopNum = -1 }, "NnzStopNum"},
		{"algorithm", func(s *Settings) { s.Algorithm = 5 }, "Algorithm"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			tt.mutate(&s)
			err := s.Validate()
			var ce *errors.ConfigError
			require.True(t, errors.As(err, &ce))
			assert.Equal(t, tt.param, ce.Param)
		})
	}
	assert.NoError(t, DefaultSettings().Validate())
}

func TestParseAlgorithmAndCriterion(t *testing.T) {
	a, err := ParseAlgorithm("CoordinateDescentWithSwaps")
	require.NoError(t, err)
	assert.Equal(t, CDPSI, a)
	_, err = ParseAlgorithm("IHT")
	assert.True(t, errors.IsConfigError(err))

	c, err := ParseCriterion("coefficients")
	require.NoError(t, err)
	assert.Equal(t, CriterionCoefficients, c)
}
