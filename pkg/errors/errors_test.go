package errors

import (
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigError(t *testing.T) {
	tests := []struct {
		name    string
		param   string
		reason  string
		value   interface{}
		wantMsg string
	}{
		{
			name:    "unknown loss",
			param:   "Loss",
			reason:  "must be one of Square, Logistic, SquaredHinge",
			value:   "Huber",
			wantMsg: "l0learn: invalid configuration for 'Loss': must be one of Square, Logistic, SquaredHinge (got: Huber)",
		},
		{
			name:    "nfolds too small",
			param:   "nfolds",
			reason:  "must be at least 2",
			value:   1,
			wantMsg: "l0learn: invalid configuration for 'nfolds': must be at least 2 (got: 1)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewConfigError(tt.param, tt.reason, tt.value)
			assert.Equal(t, tt.wantMsg, err.Error())
			assert.True(t, IsConfigError(err))

			// スタックトレースの存在確認
			formatted := fmt.Sprintf("%+v", err)
			assert.True(t, strings.Contains(formatted, "errors_test.go"), "expected stack trace in %q", formatted)

			var ce *ConfigError
			require.True(t, As(err, &ce))
			assert.Equal(t, tt.param, ce.Param)
		})
	}
}

func TestIsConfigErrorThroughWrap(t *testing.T) {
	err := Wrap(NewConfigError("Tol", "must be positive", -1.0), "fit")
	assert.True(t, IsConfigError(err))
	assert.False(t, IsConfigError(NewValueError("Fit", "bad")))
	assert.False(t, IsConfigError(nil))
}

func TestNewDimensionError(t *testing.T) {
	err := NewDimensionError("Estimator.Fit", 10, 9, 0)
	want := "l0learn: Estimator.Fit: dimension mismatch on axis 0 (rows). Expected 10, got 9"
	assert.Equal(t, want, err.Error())

	var dimErr *DimensionError
	assert.True(t, As(err, &dimErr))
}

func TestNewNotFittedError(t *testing.T) {
	err := NewNotFittedError("Estimator", "Predict")
	want := "l0learn: Estimator: this model is not fitted yet. Call Fit() before using Predict()"
	assert.Equal(t, want, err.Error())
}

func TestNewModelErrorUnwrap(t *testing.T) {
	inner := fmt.Errorf("inner")
	err := NewModelError("Fit", "fold failed", inner)
	assert.Equal(t, "l0learn: Fit: fold failed: inner", err.Error())
	assert.True(t, Is(err, inner))
}

func TestConvergenceWarningMessage(t *testing.T) {
	w := NewConvergenceWarning("CD", 200, "")
	assert.Contains(t, w.Error(), "CD failed to converge after 200 iterations")

	w = NewConvergenceWarning("CD", 5, "lambda0=0.1")
	assert.Equal(t, "CD failed to converge after 5 iterations: lambda0=0.1", w.Error())
}

func TestWarnRouting(t *testing.T) {
	var got []error
	SetZerologWarnFunc(func(w error) { got = append(got, w) })
	defer SetZerologWarnFunc(nil)

	Warn(NewConvergenceWarning("CD", 1, ""))
	require.Len(t, got, 1)

	SetZerologWarnFunc(nil)
	var fallback []error
	SetWarningHandler(func(w error) { fallback = append(fallback, w) })
	Warn(NewDataConversionWarning("{0,1}", "{-1,+1}", "classification labels"))
	assert.Len(t, fallback, 1)
	assert.Len(t, got, 1)
}

func TestCheckFinite(t *testing.T) {
	assert.NoError(t, CheckFinite("y", []float64{1, 2, 3}))

	err := CheckFinite("y", []float64{1, math.NaN(), math.Inf(1)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NaN")
	assert.Contains(t, err.Error(), "+Inf")
}

func TestLog1pExp(t *testing.T) {
	assert.InDelta(t, math.Log(2), Log1pExp(0), 1e-12)
	assert.InDelta(t, 100.0, Log1pExp(100), 1e-12)
	assert.InDelta(t, math.Exp(-50), Log1pExp(-50), 1e-30)
}
