package trees

import "testing"

func TestEarlyStopping(t *testing.T) {
	es := NewEarlyStopping(2)
	scores := []float64{0.1, 0.3, 0.2, 0.3, 0.25}
	var stoppedAt int
	for i, s := range scores {
		if es.Update(i+1, s) {
			stoppedAt = i + 1
			break
		}
	}
	if stoppedAt != 4 {
		t.Errorf("stopped at %d, want 4", stoppedAt)
	}
	if es.GetBestIteration() != 2 || es.BestScore != 0.3 {
		t.Errorf("best = %d (%v), want 2 (0.3)", es.GetBestIteration(), es.BestScore)
	}
}

func TestEarlyStoppingDisabled(t *testing.T) {
	es := NewEarlyStopping(0)
	if es.GetBestIteration() != 0 {
		t.Errorf("GetBestIteration() before any update = %d, want 0", es.GetBestIteration())
	}
	scores := []float64{0.1, 0.5, 0.2, 0.2, 0.4, 0.3, 0.1, 0.1, 0.0, 0.2}
	for i, s := range scores {
		if es.Update(i+1, s) {
			t.Fatal("disabled early stopping must never stop")
		}
	}
	if es.GetBestIteration() != 2 || es.BestScore != 0.5 {
		t.Errorf("best = %d (%v), want 2 (0.5)", es.GetBestIteration(), es.BestScore)
	}
}
