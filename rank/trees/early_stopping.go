package trees

import "math"

// EarlyStopping tracks the best validation score of a boosting run. IR
// metrics are maximized. The best round is always tracked; Rounds only
// decides when to stop.
type EarlyStopping struct {
	Rounds          int     // Number of rounds without improvement to stop
	BestScore       float64 // Best validation score so far
	BestIteration   int     // 1-based iteration with best score, 0 before any update
	RoundsNoImprove int     // Current rounds without improvement
	Enabled         bool    // Whether Rounds can stop training
}

// NewEarlyStopping creates a new early stopping handler. rounds <= 0
// never stops but still tracks the best iteration.
func NewEarlyStopping(rounds int) *EarlyStopping {
	return &EarlyStopping{
		Rounds:    max(rounds, 0),
		BestScore: math.Inf(-1),
		Enabled:   rounds > 0,
	}
}

// Update records the score of a 1-based iteration and reports whether
// training should stop: iteration - BestIteration has reached Rounds.
func (es *EarlyStopping) Update(iteration int, score float64) bool {
	if score > es.BestScore {
		es.BestScore = score
		es.BestIteration = iteration
		es.RoundsNoImprove = 0
	} else {
		es.RoundsNoImprove = iteration - es.BestIteration
	}
	return es.ShouldStop()
}

// ShouldStop returns whether training should stop
func (es *EarlyStopping) ShouldStop() bool {
	if !es.Enabled {
		return false
	}
	return es.RoundsNoImprove >= es.Rounds
}

// GetBestIteration returns the best iteration, or 0 before any update.
func (es *EarlyStopping) GetBestIteration() int {
	return es.BestIteration
}
