package l0learn

import (
	"encoding/json"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/l0learn/pkg/errors"
	"github.com/YuminosukeSato/l0learn/sparse/path"
	"github.com/YuminosukeSato/l0learn/sparse/penalty"
	"github.com/YuminosukeSato/l0learn/sparse/solver"
)

// Config contains every knob of a path fit.
//
// Thread Safety: Safe to read concurrently. Not safe to modify after Fit starts.
type Config struct {
	Loss      penalty.Loss     `json:"loss" yaml:"loss"`
	Penalty   penalty.Penalty  `json:"penalty" yaml:"penalty"`
	Algorithm solver.Algorithm `json:"algorithm" yaml:"algorithm"`
	Criterion solver.Criterion `json:"criterion" yaml:"criterion"`

	// NnzStopNum stops a column once the support would exceed it.
	NnzStopNum int `json:"nnz_stop_num" yaml:"nnz_stop_num"`

	// Grid generates λ0 values and auxiliary strengths.
	Grid path.AutoGrid `json:"grid" yaml:"grid"`

	// Lambdas is a user-supplied λ0 grid, one decreasing list per auxiliary
	// strength. When set it replaces the generated λ0 values.
	Lambdas [][]float64 `json:"lambdas,omitempty" yaml:"lambdas,omitempty"`

	MaxIters     int     `json:"max_iters" yaml:"max_iters"`
	Tol          float64 `json:"tol" yaml:"tol"`
	ActiveSet    bool    `json:"active_set" yaml:"active_set"`
	ActiveSetNum int     `json:"active_set_num" yaml:"active_set_num"`
	MaxNumSwaps  int     `json:"max_num_swaps" yaml:"max_num_swaps"`
	ScreenSize   int     `json:"screen_size" yaml:"screen_size"`
	PartialSort  bool    `json:"partial_sort" yaml:"partial_sort"`

	// Workers bounds goroutines inside a single solve; 0 means NumCPU.
	Workers int `json:"workers" yaml:"workers"`
	// FoldWorkers bounds the folds solved concurrently; 0 means NumCPU.
	FoldWorkers int `json:"fold_workers" yaml:"fold_workers"`
}

// DefaultConfig returns squared-error regression with an L0 penalty solved
// by plain coordinate descent.
func DefaultConfig() Config {
	set := solver.DefaultSettings()
	return Config{
		Loss:         penalty.Square,
		Penalty:      penalty.L0,
		Algorithm:    set.Algorithm,
		Criterion:    set.Criterion,
		NnzStopNum:   set.NnzStopNum,
		Grid:         path.DefaultAutoGrid(),
		MaxIters:     set.MaxIters,
		Tol:          set.Tol,
		ActiveSet:    set.ActiveSet,
		ActiveSetNum: set.ActiveSetNum,
		MaxNumSwaps:  set.MaxNumSwaps,
		ScreenSize:   set.ScreenSize,
		PartialSort:  set.PartialSort,
	}
}

// LoadConfig reads a YAML (or JSON) file on top of DefaultConfig and
// validates the result.
func LoadConfig(configPath string) (Config, error) {
	config := DefaultConfig()
	if configPath == "" {
		return config, nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		return config, errors.Wrap(err, "read config file")
	}
	if err := ParseConfig(data, &config); err != nil {
		return config, err
	}
	if err := config.Validate(); err != nil {
		return config, err
	}
	return config, nil
}

// ParseConfig decodes YAML, falling back to JSON, into config.
func ParseConfig(data []byte, config *Config) error {
	if err := yaml.Unmarshal(data, config); err != nil {
		if errors.IsConfigError(err) {
			return err
		}
		if jsonErr := json.Unmarshal(data, config); jsonErr != nil {
			return errors.Wrapf(jsonErr, "parse config (tried YAML and JSON): YAML error: %v", err)
		}
	}
	return nil
}

// Marshal renders the config as YAML.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// Settings returns the per-point solver settings.
func (c Config) Settings() solver.Settings {
	return solver.Settings{
		Algorithm:    c.Algorithm,
		MaxIters:     c.MaxIters,
		Tol:          c.Tol,
		Criterion:    c.Criterion,
		ActiveSet:    c.ActiveSet,
		ActiveSetNum: c.ActiveSetNum,
		MaxNumSwaps:  c.MaxNumSwaps,
		ScreenSize:   c.ScreenSize,
		PartialSort:  c.PartialSort,
		NnzStopNum:   c.NnzStopNum,
		Workers:      c.Workers,
	}
}

// Builder assembles the path builder, converting Lambdas into a fixed grid.
func (c Config) Builder() (path.Builder, error) {
	b := path.Builder{
		Penalty:  c.Penalty,
		Settings: c.Settings(),
		Auto:     c.Grid,
	}
	if len(c.Lambdas) > 0 {
		g, err := path.NewUserGrid(c.Penalty, c.Grid, c.Lambdas)
		if err != nil {
			return b, err
		}
		b.Grid = g
	}
	return b, nil
}

// Validate reports the first invalid setting as a ConfigError.
func (c Config) Validate() error {
	if !c.Loss.Valid() {
		return errors.NewConfigError("Loss", "must be one of Square, Logistic, SquaredHinge", int(c.Loss))
	}
	if c.FoldWorkers < 0 {
		return errors.NewConfigError("FoldWorkers", "must be non-negative", c.FoldWorkers)
	}
	b, err := c.Builder()
	if err != nil {
		return err
	}
	return b.Validate()
}
