package penalty

import (
	"math"
	"strconv"

	"github.com/YuminosukeSato/l0learn/pkg/errors"
)

// MinCurvature is the smallest coordinate curvature treated as usable.
// Coordinates at or below it are skipped: never updated, never selected.
const MinCurvature = 1e-12

// Penalty selects the regularizer added to the loss.
type Penalty int

const (
	L0 Penalty = iota
	L0L1
	L0L2
)

var penaltyNames = [...]string{"L0", "L0L1", "L0L2"}

func (p Penalty) String() string {
	if p < 0 || int(p) >= len(penaltyNames) {
		return "Penalty(" + strconv.Itoa(int(p)) + ")"
	}
	return penaltyNames[p]
}

// Valid reports whether p is one of the enumerated penalties.
func (p Penalty) Valid() bool {
	return p >= L0 && p <= L0L2
}

// HasAux reports whether the penalty has an auxiliary L1 or L2 strength.
func (p Penalty) HasAux() bool {
	return p == L0L1 || p == L0L2
}

// ParsePenalty accepts the names used by String, case-insensitively.
func ParsePenalty(s string) (Penalty, error) {
	switch normalizeName(s) {
	case "l0":
		return L0, nil
	case "l0l1":
		return L0L1, nil
	case "l0l2":
		return L0L2, nil
	}
	return 0, errors.NewConfigError("Penalty", "must be one of L0, L0L1, L0L2", s)
}

func (p Penalty) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, errors.NewConfigError("Penalty", "must be one of L0, L0L1, L0L2", int(p))
	}
	return []byte(p.String()), nil
}

func (p *Penalty) UnmarshalText(text []byte) error {
	v, err := ParsePenalty(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Params are the strengths of one grid point.
type Params struct {
	Lambda0 float64
	Lambda1 float64
	Lambda2 float64
}

// For builds the parameters of a grid point, routing aux to the L1 or L2
// strength according to the penalty. aux is ignored for L0.
func For(p Penalty, lambda0, aux float64) Params {
	switch p {
	case L0L1:
		return Params{Lambda0: lambda0, Lambda1: aux}
	case L0L2:
		return Params{Lambda0: lambda0, Lambda2: aux}
	default:
		return Params{Lambda0: lambda0}
	}
}

// Threshold minimizes
//
//	c/2 (b - z)² + λ0·1[b≠0] + λ1|b| + λ2 b²
//
// over b. keep is false when the minimizer is b = 0, including ties.
func Threshold(p Penalty, params Params, z, c float64) (b float64, keep bool) {
	if !(c > MinCurvature) {
		return 0, false
	}
	switch p {
	case L0L1:
		w := softThreshold(z, params.Lambda1/c)
		if w != 0 && math.Abs(w) > math.Sqrt(2*params.Lambda0/c) {
			return w, true
		}
	case L0L2:
		d := c + 2*params.Lambda2
		if math.Abs(z) > math.Sqrt(2*params.Lambda0*d)/c {
			return c * z / d, true
		}
	default:
		if math.Abs(z) > math.Sqrt(2*params.Lambda0/c) {
			return z, true
		}
	}
	return 0, false
}

// Gain is the decrease of the same surrogate when a zero coordinate moves to
// its best nonzero value, net of λ0. Gain > 0 exactly when Threshold keeps.
// Degenerate curvature yields 0.
func Gain(p Penalty, params Params, z, c float64) float64 {
	if !(c > MinCurvature) {
		return 0
	}
	switch p {
	case L0L1:
		w := softThreshold(z, params.Lambda1/c)
		if w == 0 {
			return -params.Lambda0
		}
		return 0.5*c*w*w - params.Lambda0
	case L0L2:
		return c*c*z*z/(2*(c+2*params.Lambda2)) - params.Lambda0
	default:
		return 0.5*c*z*z - params.Lambda0
	}
}

// Cost is the penalty contribution of one coefficient.
func Cost(p Penalty, params Params, b float64) float64 {
	if b == 0 {
		return 0
	}
	v := params.Lambda0
	switch p {
	case L0L1:
		v += params.Lambda1 * math.Abs(b)
	case L0L2:
		v += params.Lambda2 * b * b
	}
	return v
}

func softThreshold(z, t float64) float64 {
	switch {
	case z > t:
		return z - t
	case z < -t:
		return z + t
	default:
		return 0
	}
}
