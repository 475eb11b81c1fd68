package errors

import (
	"fmt"
	"math"
)

// CheckNumericalStability checks if values contain NaN or Inf
// and returns an error if numerical instability is detected.
func CheckNumericalStability(operation string, values []float64, iteration int) error {
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return NewNumericalInstabilityError(operation, values[i:min(i+5, len(values))], iteration)
		}
	}
	return nil
}

// SafeDivide returns numerator/denominator, or 0 when the denominator is exactly zero.
func SafeDivide(numerator, denominator float64) float64 {
	if denominator == 0 {
		return 0
	}
	return numerator / denominator
}

// NumericalInstabilityError は数値計算が不安定になった場合のエラーです。
// 擬似応答（lambda）に NaN や Inf が含まれる場合などに検出されます。
type NumericalInstabilityError struct {
	Operation string    // 発生した操作（例: "pseudo_response"）
	Values    []float64 // 問題のある値
	Iteration int       // 発生したイテレーション番号
}

func (e *NumericalInstabilityError) Error() string {
	return fmt.Sprintf("ranklib: numerical instability detected in %s at iteration %d. Values: %v",
		e.Operation, e.Iteration, e.Values)
}

// NewNumericalInstabilityError は新しいNumericalInstabilityErrorを作成します。
func NewNumericalInstabilityError(operation string, values []float64, iteration int) error {
	vals := make([]float64, len(values))
	copy(vals, values)
	return WithStack(&NumericalInstabilityError{Operation: operation, Values: vals, Iteration: iteration})
}
