package metrics

import (
	"math"
	"testing"
)

func TestRMSE(t *testing.T) {
	tests := []struct {
		name    string
		yTrue   []float64
		yPred   []float64
		want    float64
		wantErr bool
	}{
		{"perfect prediction", []float64{1, 2, 3, 4, 5}, []float64{1, 2, 3, 4, 5}, 0.0, false},
		{"simple case", []float64{0, 0, 0, 0}, []float64{1, 1, 1, 1}, 1.0, false},
		{"larger errors", []float64{10, 20, 30}, []float64{12, 18, 33}, math.Sqrt(17.0 / 3.0), false},
		{"dimension mismatch", []float64{1, 2, 3}, []float64{1, 2}, 0, true},
		{"empty vectors", nil, nil, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RMSE(tt.yTrue, tt.yPred)
			if (err != nil) != tt.wantErr {
				t.Errorf("RMSE() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && math.Abs(got-tt.want) > 1e-10 {
				t.Errorf("RMSE() = %v, want %v", got, tt.want)
			}
		})
	}
}
