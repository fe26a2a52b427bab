// Package path traverses a two-level penalty grid (auxiliary L1/L2 strength
// outside, L0 strength inside) and records one Point per solved grid point,
// warm-starting each solve from the previous point of the same column.
package path

import (
	"math"

	"github.com/YuminosukeSato/l0learn/pkg/errors"
	"github.com/YuminosukeSato/l0learn/sparse/penalty"
)

// AutoGrid parameterizes the generated grid.
type AutoGrid struct {
	// NumLambda0 is the maximum number of λ0 values per column.
	NumLambda0 int `yaml:"num_lambda0" json:"num_lambda0" msgpack:"num_lambda0"`
	// NumAux is the number of auxiliary strengths; ignored for L0.
	NumAux int     `yaml:"num_aux" json:"num_aux" msgpack:"num_aux"`
	AuxMax float64 `yaml:"aux_max" json:"aux_max" msgpack:"aux_max"`
	AuxMin float64 `yaml:"aux_min" json:"aux_min" msgpack:"aux_min"`
	// ScaleDownFactor is the ratio between consecutive λ0 values, in (0,1).
	ScaleDownFactor float64 `yaml:"scale_down_factor" json:"scale_down_factor" msgpack:"scale_down_factor"`
}

// DefaultAutoGrid returns 100 λ0 values by 10 auxiliary strengths between
// 10 and 1e-4, decaying by 0.8.
func DefaultAutoGrid() AutoGrid {
	return AutoGrid{
		NumLambda0:      100,
		NumAux:          10,
		AuxMax:          10,
		AuxMin:          1e-4,
		ScaleDownFactor: 0.8,
	}
}

// Validate checks the generation parameters for the given penalty.
func (a AutoGrid) Validate(pen penalty.Penalty) error {
	switch {
	case a.NumLambda0 <= 0:
		return errors.NewConfigError("NumLambda0", "must be positive", a.NumLambda0)
	case !(a.ScaleDownFactor > 0 && a.ScaleDownFactor < 1):
		return errors.NewConfigError("ScaleDownFactor", "must be in (0, 1)", a.ScaleDownFactor)
	}
	if !pen.HasAux() {
		return nil
	}
	switch {
	case a.NumAux <= 0:
		return errors.NewConfigError("NumAux", "must be positive", a.NumAux)
	case !(a.AuxMin >= 0) || math.IsInf(a.AuxMin, 0):
		return errors.NewConfigError("AuxMin", "must be a non-negative finite number", a.AuxMin)
	case !(a.AuxMax >= 0) || math.IsInf(a.AuxMax, 0):
		return errors.NewConfigError("AuxMax", "must be a non-negative finite number", a.AuxMax)
	case a.AuxMin > a.AuxMax:
		return errors.NewConfigError("AuxMin", "must not exceed AuxMax", a.AuxMin)
	case a.NumAux > 1 && a.AuxMin == 0:
		return errors.NewConfigError("AuxMin", "must be positive for a geometric sequence", a.AuxMin)
	}
	return nil
}

// AuxValues returns the auxiliary strengths in traversal order: a single 0
// for L0, otherwise NumAux values spaced geometrically from AuxMax down to
// AuxMin.
func (a AutoGrid) AuxValues(pen penalty.Penalty) []float64 {
	if !pen.HasAux() {
		return []float64{0}
	}
	if a.NumAux == 1 {
		return []float64{a.AuxMax}
	}
	out := make([]float64, a.NumAux)
	ratio := math.Pow(a.AuxMin/a.AuxMax, 1/float64(a.NumAux-1))
	out[0] = a.AuxMax
	for i := 1; i < a.NumAux; i++ {
		out[i] = out[i-1] * ratio
	}
	out[a.NumAux-1] = a.AuxMin
	return out
}

// Grid is an explicit list of λ0 values per auxiliary strength. Aux[k] is
// the strength of column Lambda0[k].
type Grid struct {
	Aux     []float64   `json:"aux" msgpack:"aux"`
	Lambda0 [][]float64 `json:"lambda0" msgpack:"lambda0"`
}

// NewUserGrid builds a grid from user λ0 lists of equal length: one list for
// L0, one per aux strength otherwise. The number of lists overrides
// auto.NumAux; AuxMax and AuxMin still place the strengths.
func NewUserGrid(pen penalty.Penalty, auto AutoGrid, lambdas [][]float64) (*Grid, error) {
	if len(lambdas) == 0 {
		return nil, errors.NewConfigError("Lambdas", "must contain at least one list", 0)
	}
	if !pen.HasAux() && len(lambdas) != 1 {
		return nil, errors.NewConfigError("Lambdas", "must contain exactly one list for L0", len(lambdas))
	}
	if pen.HasAux() {
		auto.NumAux = len(lambdas)
		if err := auto.Validate(pen); err != nil {
			return nil, err
		}
	}
	for k := 1; k < len(lambdas); k++ {
		if len(lambdas[k]) != len(lambdas[0]) {
			return nil, errors.NewConfigError("Lambdas", "lists must have equal lengths", len(lambdas[k]))
		}
	}
	g := &Grid{Aux: auto.AuxValues(pen), Lambda0: cloneLists(lambdas)}
	if err := g.Validate(pen); err != nil {
		return nil, err
	}
	return g, nil
}

// Validate checks that every column is non-empty, non-negative and strictly
// decreasing. Columns may have different lengths.
func (g *Grid) Validate(pen penalty.Penalty) error {
	if len(g.Aux) != len(g.Lambda0) || len(g.Aux) == 0 {
		return errors.NewConfigError("Lambdas", "needs one list per auxiliary strength", len(g.Lambda0))
	}
	if !pen.HasAux() && len(g.Aux) != 1 {
		return errors.NewConfigError("Lambdas", "must contain exactly one list for L0", len(g.Aux))
	}
	for _, col := range g.Lambda0 {
		if len(col) == 0 {
			return errors.NewConfigError("Lambdas", "lists must not be empty", 0)
		}
		for i, v := range col {
			if !(v >= 0) || math.IsInf(v, 0) {
				return errors.NewConfigError("Lambdas", "values must be non-negative and finite", v)
			}
			if i > 0 && !(v < col[i-1]) {
				return errors.NewConfigError("Lambdas", "lists must be strictly decreasing", v)
			}
		}
	}
	return nil
}

// Size is the number of grid points.
func (g *Grid) Size() int {
	n := 0
	for _, col := range g.Lambda0 {
		n += len(col)
	}
	return n
}

func cloneLists(in [][]float64) [][]float64 {
	out := make([][]float64, len(in))
	for i, l := range in {
		out[i] = append([]float64(nil), l...)
	}
	return out
}
