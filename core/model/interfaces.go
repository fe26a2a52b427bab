// Package model は学習済み状態の管理、正則化パスのアーカイブ、
// 単一グリッド点の重みエクスポートを提供します。
package model

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/l0learn/sparse/cv"
	"github.com/YuminosukeSato/l0learn/sparse/path"
)

// PathFitter は正則化パス全体を学習するモデルのインターフェース
type PathFitter interface {
	// Fit はグリッド全体を解き、パスを返す
	Fit(X mat.Matrix, y []float64) (*path.Solution, error)
}

// CrossValidator は交差検証付きでパスを学習するモデルのインターフェース
type CrossValidator interface {
	CrossValidate(X mat.Matrix, y []float64, nfolds int, seed uint64) (*path.Solution, *cv.Result, error)
}

// PathPredictor はパス上の1点で予測するモデルのインターフェース
type PathPredictor interface {
	// Predict はグリッド点 i の線形予測子を返す
	Predict(X mat.Matrix, i int) ([]float64, error)

	// Coefficients は元のスケールの密な係数ベクトルを返す
	Coefficients(i int) ([]float64, error)
}

// Persistable is the interface for models that can be saved and loaded.
type Persistable interface {
	Save(filename string) error
	Load(filename string) error
}

// PathModel combines fitting, prediction and persistence.
type PathModel interface {
	PathFitter
	CrossValidator
	PathPredictor
	Persistable
}
