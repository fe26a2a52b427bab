package errors

import (
	"fmt"
	"math"
)

// CheckFinite reports whether every value is finite. The returned error
// names the operation and the first offending values.
func CheckFinite(operation string, values []float64) error {
	var bad []float64
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			bad = append(bad, v)
			if len(bad) >= 5 {
				break
			}
		}
	}
	if len(bad) == 0 {
		return nil
	}
	return NewValueError(operation, fmtNonFinite(bad))
}

// CheckMatrixFinite checks every entry of a matrix for NaN or Inf.
func CheckMatrixFinite(operation string, matrix interface{ At(int, int) float64 }, rows, cols int) error {
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := matrix.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return NewValueError(operation, fmtNonFinite([]float64{v}))
			}
		}
	}
	return nil
}

func fmtNonFinite(values []float64) string {
	s := "non-finite values:"
	for _, v := range values {
		s += " " + formatFloat(v)
	}
	return s
}

func formatFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "+Inf"
	case math.IsInf(v, -1):
		return "-Inf"
	}
	return fmt.Sprintf("%.6g", v)
}

// Log1pExp computes log(1+exp(x)) without overflow for large x.
func Log1pExp(x float64) float64 {
	if x > 35 {
		return x
	}
	if x < -35 {
		return math.Exp(x)
	}
	return math.Log1p(math.Exp(x))
}
