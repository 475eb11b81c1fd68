package errors

import (
	"math"
	"strconv"
	"strings"
	"testing"
)

func TestNewModelError(t *testing.T) {
	tests := []struct {
		name     string
		op       string
		kind     string
		err      error
		expected string
	}{
		{
			name:     "with underlying error",
			op:       "Ensemble.Add",
			kind:     "invalid tree",
			err:      New("nil root"),
			expected: "ranklib: Ensemble.Add: invalid tree: nil root",
		},
		{
			name:     "without underlying error",
			op:       "Trainer.Fit",
			kind:     "no features",
			expected: "ranklib: Trainer.Fit: no features",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewModelError(tt.op, tt.kind, tt.err)
			if err.Error() != tt.expected {
				t.Errorf("Error() = %q, want %q", err.Error(), tt.expected)
			}
			var modelErr *ModelError
			if !As(err, &modelErr) {
				t.Fatal("expected ModelError in chain")
			}
			if tt.err != nil && !Is(err, tt.err) {
				t.Error("expected underlying error in chain")
			}
		})
	}
}

func TestNewNotFittedError(t *testing.T) {
	err := NewNotFittedError("LambdaMART", "Eval")
	if !strings.Contains(err.Error(), "LambdaMART") || !strings.Contains(err.Error(), "Eval()") {
		t.Errorf("unexpected message: %s", err)
	}
}

func TestNewEmptyDataError(t *testing.T) {
	err := NewEmptyDataError("Trainer.Fit", "rank list 3 is empty")
	if !Is(err, ErrEmptyData) {
		t.Error("expected ErrEmptyData mark")
	}
	var ve *ValueError
	if !As(err, &ve) {
		t.Fatal("expected ValueError")
	}
	if ve.Op != "Trainer.Fit" {
		t.Errorf("Op = %q", ve.Op)
	}
}

func TestNewParseError(t *testing.T) {
	_, cause := strconv.ParseFloat("abc", 64)
	err := NewParseError("model", 12, "threshold", cause)

	var pe *ParseError
	if !As(err, &pe) {
		t.Fatal("expected ParseError")
	}
	if pe.Line != 12 || pe.Element != "threshold" {
		t.Errorf("unexpected fields: %+v", pe)
	}
	if !Is(err, cause) {
		t.Error("strconv error should be wrapped")
	}
	if !strings.Contains(err.Error(), "model:12") {
		t.Errorf("message should carry location: %s", err)
	}
}

func TestNewFeatureRangeError(t *testing.T) {
	err := NewFeatureRangeError(7, 5)
	var fe *FeatureRangeError
	if !As(err, &fe) || fe.FeatureID != 7 || fe.NumFeatures != 5 {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestWrapAndIs(t *testing.T) {
	base := New("base")
	wrapped := Wrapf(Wrap(base, "layer one"), "layer %d", 2)
	if !Is(wrapped, base) {
		t.Error("Is should see through wrapping")
	}
	if !strings.HasPrefix(wrapped.Error(), "layer 2: layer one") {
		t.Errorf("unexpected message: %s", wrapped)
	}
}

func TestStackTrace(t *testing.T) {
	if StackTrace(WithStack(New("x"))) == "" {
		t.Error("expected a stack trace")
	}
}

func TestCheckNumericalStability(t *testing.T) {
	if err := CheckNumericalStability("pseudo_response", []float64{1, 2, 3}, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := CheckNumericalStability("pseudo_response", []float64{1, math.NaN()}, 4)
	var ne *NumericalInstabilityError
	if !As(err, &ne) {
		t.Fatalf("expected NumericalInstabilityError, got %v", err)
	}
	if ne.Iteration != 4 {
		t.Errorf("Iteration = %d", ne.Iteration)
	}
}

func TestSafeDivide(t *testing.T) {
	if got := SafeDivide(3, 0); got != 0 {
		t.Errorf("SafeDivide(3, 0) = %v", got)
	}
	if got := SafeDivide(3, 2); got != 1.5 {
		t.Errorf("SafeDivide(3, 2) = %v", got)
	}
}

func TestWarn(t *testing.T) {
	var got error
	SetWarningHandler(func(w error) { got = w })
	defer SetWarningHandler(nil)

	w := NewUndefinedMetricWarning("NDCG@10", "no relevant documents", 0)
	Warn(w)
	if got != w {
		t.Errorf("handler did not receive warning")
	}
}
