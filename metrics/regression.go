package metrics

import (
	"math"

	"github.com/YuminosukeSato/ranklib/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

// MSE は平均二乗誤差（Mean Squared Error）を計算する
func MSE(yTrue, yPred []float64) (float64, error) {
	n := len(yTrue)
	if n == 0 {
		return 0, errors.NewEmptyDataError("MSE", "empty vector")
	}
	if len(yPred) != n {
		return 0, errors.NewValueError("MSE", "length mismatch between labels and predictions")
	}

	// MSE = (1/n) * Σ(yTrue - yPred)²
	diff := make([]float64, n)
	floats.SubTo(diff, yTrue, yPred)
	return floats.Dot(diff, diff) / float64(n), nil
}

// RMSE は二乗平均平方根誤差を計算する。MART の残差の診断に使われる。
func RMSE(yTrue, yPred []float64) (float64, error) {
	mse, err := MSE(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse), nil
}
