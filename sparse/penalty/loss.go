// Package penalty holds the stateless pieces of an L0-penalized objective:
// the per-sample losses with their derivatives and curvature bounds, and the
// closed-form single-coordinate thresholding rules for L0, L0L1 and L0L2.
//
// Losses operate on an accumulator R that is affine in the coefficients.
// For Square, R is the residual y - Xβ - b and the loss is R²/2. For the
// classification losses, R is the margin y∘(Xβ + b) with labels in {-1,+1}.
package penalty

import (
	"math"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/l0learn/pkg/errors"
)

// Loss selects the data-fit term of the objective.
type Loss int

const (
	Square Loss = iota
	Logistic
	SquaredHinge
)

var lossNames = [...]string{"Square", "Logistic", "SquaredHinge"}

func (l Loss) String() string {
	if l < 0 || int(l) >= len(lossNames) {
		return "Loss(" + strconv.Itoa(int(l)) + ")"
	}
	return lossNames[l]
}

// Valid reports whether l is one of the enumerated losses.
func (l Loss) Valid() bool {
	return l >= Square && l <= SquaredHinge
}

// Classification reports whether the loss expects labels in {-1,+1}.
func (l Loss) Classification() bool {
	return l == Logistic || l == SquaredHinge
}

// ParseLoss accepts the names used by String, case-insensitively.
func ParseLoss(s string) (Loss, error) {
	switch normalizeName(s) {
	case "square", "squared", "gaussian":
		return Square, nil
	case "logistic":
		return Logistic, nil
	case "squaredhinge":
		return SquaredHinge, nil
	}
	return 0, errors.NewConfigError("Loss", "must be one of Square, Logistic, SquaredHinge", s)
}

// MarshalText implements encoding.TextMarshaler so configs carry names.
func (l Loss) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, errors.NewConfigError("Loss", "must be one of Square, Logistic, SquaredHinge", int(l))
	}
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Loss) UnmarshalText(text []byte) error {
	v, err := ParseLoss(string(text))
	if err != nil {
		return err
	}
	*l = v
	return nil
}

// Point is the loss of one sample with accumulator value r.
func (l Loss) Point(r float64) float64 {
	switch l {
	case Logistic:
		return errors.Log1pExp(-r)
	case SquaredHinge:
		h := 1 - r
		if h <= 0 {
			return 0
		}
		return h * h
	default:
		return 0.5 * r * r
	}
}

// Deriv is d Point / dr.
func (l Loss) Deriv(r float64) float64 {
	switch l {
	case Logistic:
		// -1/(1+e^r), split by sign to avoid overflow
		if r >= 0 {
			e := math.Exp(-r)
			return -e / (1 + e)
		}
		return -1 / (1 + math.Exp(r))
	case SquaredHinge:
		h := 1 - r
		if h <= 0 {
			return 0
		}
		return -2 * h
	default:
		return r
	}
}

// Curvature is an upper bound on the second derivative of Point. It is
// exact for Square.
func (l Loss) Curvature() float64 {
	switch l {
	case Logistic:
		return 0.25
	case SquaredHinge:
		return 2
	default:
		return 1
	}
}

// Sign is how R moves when a coefficient grows along its direction column:
// the residual shrinks, the margin grows.
func (l Loss) Sign() float64 {
	if l.Classification() {
		return 1
	}
	return -1
}

// Value sums Point over R.
func (l Loss) Value(R []float64) float64 {
	var s float64
	for _, r := range R {
		s += l.Point(r)
	}
	return s
}

// ValueShifted is the loss after moving one coefficient by delta along dir,
// computed without touching R.
func (l Loss) ValueShifted(R, dir []float64, delta float64) float64 {
	step := l.Sign() * delta
	var s float64
	for i, r := range R {
		s += l.Point(r + step*dir[i])
	}
	return s
}

// DerivInto writes Deriv(R[i]) into dst and returns it.
func (l Loss) DerivInto(dst, R []float64) []float64 {
	if cap(dst) < len(R) {
		dst = make([]float64, len(R))
	}
	dst = dst[:len(R)]
	if l == Square {
		copy(dst, R)
		return dst
	}
	for i, r := range R {
		dst[i] = l.Deriv(r)
	}
	return dst
}

func normalizeName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer("_", "", "-", "", " ", "").Replace(s)
}
