package trees

import (
	"slices"
	"sync"
	"testing"

	"github.com/YuminosukeSato/ranklib/core/data"
)

func stump(feature int, threshold float64) *RegressionTree {
	return NewRegressionTree(&Split{featureID: feature, threshold: threshold, left: &Split{output: -1}, right: &Split{output: 1}})
}

func TestEnsembleFeatureIndex(t *testing.T) {
	e := NewEnsemble()
	if got := e.Features(); len(got) != 0 || e.MaxFeatureID() != 0 {
		t.Fatalf("empty ensemble: features %v, max %d", got, e.MaxFeatureID())
	}

	e.Add(stump(4, 0), 1)
	e.Add(stump(2, 0), 1)
	e.Add(stump(4, 1), 1)
	e.Add(stump(7, 0), 1)

	tests := []struct {
		name     string
		mutate   func()
		features []int
		max      int
	}{
		{"after add", func() {}, []int{2, 4, 7}, 7},
		{"remove last use of 7", func() { e.Remove(3) }, []int{2, 4}, 4},
		{"remove one of two uses of 4", func() { e.Remove(0) }, []int{2, 4}, 4},
		{"truncate", func() { e.Truncate(1) }, []int{2}, 2},
		{"truncate beyond length", func() { e.Truncate(5) }, []int{2}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mutate()
			if got := e.Features(); !slices.Equal(got, tt.features) {
				t.Errorf("Features = %v, want %v", got, tt.features)
			}
			if got := e.MaxFeatureID(); got != tt.max {
				t.Errorf("MaxFeatureID = %d, want %d", got, tt.max)
			}
		})
	}
}

func TestEnsembleFeaturesReturnsCopy(t *testing.T) {
	e := NewEnsemble()
	e.Add(stump(3, 0), 1)
	e.Features()[0] = 99
	if got := e.Features(); got[0] != 3 {
		t.Errorf("Features leaked internal storage: %v", got)
	}
}

// Scoring is read-only, so one trained ensemble can serve many goroutines.
// Run with -race to check the feature index is never written here.
func TestEnsembleConcurrentScoring(t *testing.T) {
	e := NewEnsemble()
	for f := 1; f <= 6; f++ {
		e.Add(stump(f, 0.5), 0.1*float64(f))
	}
	e.SetFeaturePolicy(data.PolicyStrict)
	lists := randomLists(t, 11, "c", 4, 10, 6)

	want := make([][]float64, len(lists))
	for i, rl := range lists {
		s, err := e.ScoreList(rl)
		if err != nil {
			t.Fatal(err)
		}
		want[i] = s
	}

	var wg sync.WaitGroup
	errs := make(chan string, 8*len(lists))
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i, rl := range lists {
				got, err := e.ScoreList(rl)
				if err != nil {
					errs <- err.Error()
					continue
				}
				if !slices.Equal(got, want[i]) {
					errs <- "scores differ between goroutines"
				}
				_ = e.MaxFeatureID()
				_ = e.Features()
			}
		}()
	}
	wg.Wait()
	close(errs)
	for msg := range errs {
		t.Error(msg)
	}
}
