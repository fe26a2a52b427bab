package model

import (
	"encoding/json"
	"maps"
	"slices"

	"github.com/YuminosukeSato/l0learn/pkg/errors"
	"github.com/YuminosukeSato/l0learn/sparse/path"
)

// ModelType is recorded in every weights export.
const ModelType = "L0Learn"

// WeightsVersion はエクスポート形式のバージョン
const WeightsVersion = "1"

// ModelWeights はパス上の1点を他の環境へ渡すための重み表現（JSON）
type ModelWeights struct {
	ModelType string `json:"model_type"`
	Version   string `json:"version"`

	Loss    string  `json:"loss"`
	Penalty string  `json:"penalty"`
	Lambda0 float64 `json:"lambda0"`
	// Aux は L0L1 では λ1、L0L2 では λ2
	Aux float64 `json:"aux"`

	// Coefficients は元のスケールの密な係数
	Coefficients []float64 `json:"coefficients"`
	Intercept    float64   `json:"intercept"`
	Support      []int     `json:"support"`

	Features []string `json:"features,omitempty"`

	// Metadata は学習時の統計（反復回数、目的関数値など）
	Metadata map[string]interface{} `json:"metadata,omitempty"`

	IsFitted bool `json:"is_fitted"`
}

// WeightsFromPoint はパスの i 番目の点から ModelWeights を作る
func WeightsFromPoint(sol *path.Solution, i int, features []string) (*ModelWeights, error) {
	coefs, err := sol.Coefficients(i)
	if err != nil {
		return nil, err
	}
	if features != nil && len(features) != sol.NFeatures {
		return nil, errors.NewDimensionError("WeightsFromPoint", sol.NFeatures, len(features), 1)
	}
	p := sol.At(i)
	return &ModelWeights{
		ModelType:    ModelType,
		Version:      WeightsVersion,
		Loss:         sol.Loss.String(),
		Penalty:      sol.Penalty.String(),
		Lambda0:      p.Lambda0,
		Aux:          p.Aux,
		Coefficients: coefs,
		Intercept:    p.Intercept,
		Support:      slices.Clone(p.Support),
		Features:     slices.Clone(features),
		Metadata: map[string]interface{}{
			"nnz":        p.Nnz,
			"iterations": p.Iterations,
			"converged":  p.Converged,
			"swaps":      p.Swaps,
			"objective":  p.Objective,
		},
		IsFitted: true,
	}, nil
}

// ToJSON はModelWeightsをJSON形式にシリアライズ
func (mw *ModelWeights) ToJSON() ([]byte, error) {
	return json.MarshalIndent(mw, "", "  ")
}

// FromJSON はJSON形式からModelWeightsをデシリアライズ
func (mw *ModelWeights) FromJSON(data []byte) error {
	return json.Unmarshal(data, mw)
}

// Validate はModelWeightsの妥当性を検証
func (mw *ModelWeights) Validate() error {
	if mw.ModelType == "" {
		return errors.NewValueError("ModelWeights", "model_type is required")
	}
	if mw.Version == "" {
		return errors.NewValueError("ModelWeights", "version is required")
	}
	if !mw.IsFitted && len(mw.Coefficients) > 0 {
		return errors.NewValueError("ModelWeights", "unfitted model should not have coefficients")
	}
	if mw.IsFitted && len(mw.Coefficients) == 0 {
		return errors.NewValueError("ModelWeights", "fitted model must have coefficients")
	}
	for _, j := range mw.Support {
		if j < 0 || j >= len(mw.Coefficients) {
			return errors.NewValueError("ModelWeights", "support index out of range")
		}
	}
	return nil
}

// Clone はModelWeightsのディープコピーを作成
func (mw *ModelWeights) Clone() *ModelWeights {
	clone := *mw
	clone.Coefficients = slices.Clone(mw.Coefficients)
	clone.Support = slices.Clone(mw.Support)
	clone.Features = slices.Clone(mw.Features)
	clone.Metadata = maps.Clone(mw.Metadata)
	return &clone
}
