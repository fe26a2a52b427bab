package metrics

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/l0learn/pkg/errors"
	"github.com/YuminosukeSato/l0learn/sparse/penalty"
)

// LogisticLoss は平均ロジスティック損失 mean(log(1+exp(-y·η))) を計算する。
// yTrue は {-1,+1}、yScore は線形予測子 η。
func LogisticLoss(yTrue, yScore *mat.VecDense) (float64, error) {
	return marginLoss("LogisticLoss", penalty.Logistic, yTrue, yScore)
}

// SquaredHingeLoss は平均二乗ヒンジ損失 mean(max(0, 1-y·η)²) を計算する。
func SquaredHingeLoss(yTrue, yScore *mat.VecDense) (float64, error) {
	return marginLoss("SquaredHingeLoss", penalty.SquaredHinge, yTrue, yScore)
}

// Accuracy は sign(η) とラベルの一致率を計算する。η=0 は +1 とみなす。
func Accuracy(yTrue, yScore *mat.VecDense) (float64, error) {
	n, err := checkPair("Accuracy", yTrue, yScore)
	if err != nil {
		return 0, err
	}
	hit := 0
	for i := 0; i < n; i++ {
		pred := 1.0
		if yScore.AtVec(i) < 0 {
			pred = -1
		}
		if pred == yTrue.AtVec(i) {
			hit++
		}
	}
	return float64(hit) / float64(n), nil
}

func marginLoss(op string, loss penalty.Loss, yTrue, yScore *mat.VecDense) (float64, error) {
	n, err := checkPair(op, yTrue, yScore)
	if err != nil {
		return 0, err
	}
	var sum float64
	for i := 0; i < n; i++ {
		y := yTrue.AtVec(i)
		if y != 1 && y != -1 {
			return 0, errors.NewValueError(op, "labels must be -1 or +1")
		}
		sum += loss.Point(y * yScore.AtVec(i))
	}
	return sum / float64(n), nil
}

// HeldOutLoss は交差検証で使う保留データ損失。
// Square は MSE、分類損失はマージン損失の平均。
// 分類の場合 y は {-1,+1} に変換済みであること。
func HeldOutLoss(loss penalty.Loss, y, eta []float64) (float64, error) {
	if len(y) == 0 {
		return 0, errors.NewValueError("HeldOutLoss", "empty vector")
	}
	if len(eta) != len(y) {
		return 0, errors.NewDimensionError("HeldOutLoss", len(y), len(eta), 0)
	}
	yv := mat.NewVecDense(len(y), y)
	ev := mat.NewVecDense(len(eta), eta)
	switch loss {
	case penalty.Logistic:
		return LogisticLoss(yv, ev)
	case penalty.SquaredHinge:
		return SquaredHingeLoss(yv, ev)
	default:
		return MSE(yv, ev)
	}
}
