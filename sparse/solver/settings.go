package solver

import (
	"math"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/l0learn/pkg/errors"
)

// Algorithm selects plain coordinate descent or coordinate descent followed
// by pairwise swap search.
type Algorithm int

const (
	CD Algorithm = iota
	CDPSI
)

func (a Algorithm) String() string {
	switch a {
	case CD:
		return "CD"
	case CDPSI:
		return "CDPSI"
	}
	return "Algorithm(" + strconv.Itoa(int(a)) + ")"
}

// ParseAlgorithm accepts "CD", "CDPSI" and the long names
// "CoordinateDescent" / "CoordinateDescentWithSwaps".
func ParseAlgorithm(s string) (Algorithm, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cd", "coordinatedescent":
		return CD, nil
	case "cdpsi", "coordinatedescentwithswaps":
		return CDPSI, nil
	}
	return 0, errors.NewConfigError("Algorithm", "must be one of CD, CDPSI", s)
}

func (a Algorithm) MarshalText() ([]byte, error) {
	if a != CD && a != CDPSI {
		return nil, errors.NewConfigError("Algorithm", "must be one of CD, CDPSI", int(a))
	}
	return []byte(a.String()), nil
}

func (a *Algorithm) UnmarshalText(text []byte) error {
	v, err := ParseAlgorithm(string(text))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// Criterion selects what the convergence test compares between cycles.
type Criterion int

const (
	// CriterionObjective stops when the relative objective change is below Tol.
	CriterionObjective Criterion = iota
	// CriterionCoefficients stops when the relative coefficient change is below Tol.
	CriterionCoefficients
)

func (c Criterion) String() string {
	switch c {
	case CriterionObjective:
		return "objective"
	case CriterionCoefficients:
		return "coefficients"
	}
	return "Criterion(" + strconv.Itoa(int(c)) + ")"
}

func ParseCriterion(s string) (Criterion, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "objective", "":
		return CriterionObjective, nil
	case "coefficients", "coef":
		return CriterionCoefficients, nil
	}
	return 0, errors.NewConfigError("Criterion", "must be one of objective, coefficients", s)
}

func (c Criterion) MarshalText() ([]byte, error) {
	if c != CriterionObjective && c != CriterionCoefficients {
		return nil, errors.NewConfigError("Criterion", "must be one of objective, coefficients", int(c))
	}
	return []byte(c.String()), nil
}

func (c *Criterion) UnmarshalText(text []byte) error {
	v, err := ParseCriterion(string(text))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// Settings are the per-point solver knobs.
type Settings struct {
	Algorithm    Algorithm
	MaxIters     int
	Tol          float64
	Criterion    Criterion
	ActiveSet    bool
	ActiveSetNum int
	MaxNumSwaps  int
	ScreenSize   int
	PartialSort  bool
	NnzStopNum   int
	// Workers bounds the goroutines used by full sweeps; 0 means NumCPU.
	Workers int
}

// DefaultSettings mirrors the defaults of the reference L0 path solver.
func DefaultSettings() Settings {
	return Settings{
		Algorithm:    CD,
		MaxIters:     200,
		Tol:          1e-6,
		Criterion:    CriterionObjective,
		ActiveSet:    true,
		ActiveSetNum: 3,
		MaxNumSwaps:  100,
		ScreenSize:   1000,
		PartialSort:  true,
		NnzStopNum:   200,
	}
}

// Validate reports the first invalid knob as a ConfigError.
func (s Settings) Validate() error {
	switch {
	case s.Algorithm != CD && s.Algorithm != CDPSI:
		return errors.NewConfigError("Algorithm", "must be one of CD, CDPSI", int(s.Algorithm))
	case s.Criterion != CriterionObjective && s.Criterion != CriterionCoefficients:
		return errors.NewConfigError("Criterion", "must be one of objective, coefficients", int(s.Criterion))
	case s.MaxIters <= 0:
		return errors.NewConfigError("MaxIters", "must be positive", s.MaxIters)
	case !(s.Tol > 0) || math.IsInf(s.Tol, 0):
		return errors.NewConfigError("Tol", "must be a positive finite number", s.Tol)
	case s.ActiveSetNum <= 0:
		return errors.NewConfigError("ActiveSetNum", "must be positive", s.ActiveSetNum)
	case s.MaxNumSwaps < 0:
		return errors.NewConfigError("MaxNumSwaps", "must be non-negative", s.MaxNumSwaps)
	case s.ScreenSize <= 0:
		return errors.NewConfigError("ScreenSize", "must be positive", s.ScreenSize)
	case s.NnzStopNum < 0:
		return errors.NewConfigError("NnzStopNum", "must be non-negative", s.NnzStopNum)
	case s.Workers < 0:
		return errors.NewConfigError("Workers", "must be non-negative", s.Workers)
	}
	return nil
}
