package trees

import (
	"time"

	"github.com/YuminosukeSato/ranklib/pkg/log"
)

// CallbackEnv describes the state after one boosting round.
type CallbackEnv struct {
	RunID     string
	Ranker    string
	Bag       int // 1-based bag of a Random Forests run, 0 otherwise
	Iteration int // 1-based
	Trees     int
	Leaves    int // leaves of the tree added this round

	TrainScore      float64
	ValidationScore float64
	HasValidation   bool
	BestIteration   int
	Elapsed         time.Duration

	// StopTraining ends training after this round when set by a callback.
	StopTraining bool
}

// Callback is a function that can be called after every boosting round.
// A non-nil error aborts training.
type Callback func(env *CallbackEnv) error

// EvaluationHistory holds per-round metric values.
type EvaluationHistory struct {
	Metric     string
	Train      []float64
	Validation []float64
}

// RecordEvaluation records evaluation history
func RecordEvaluation(history *EvaluationHistory) Callback {
	return func(env *CallbackEnv) error {
		history.Train = append(history.Train, env.TrainScore)
		if env.HasValidation {
			history.Validation = append(history.Validation, env.ValidationScore)
		}
		return nil
	}
}

// LogEvaluation logs the metric values every period rounds.
func LogEvaluation(logger log.Logger, period int) Callback {
	if period < 1 {
		period = 1
	}
	return func(env *CallbackEnv) error {
		if env.Iteration%period != 0 {
			return nil
		}
		fields := []any{
			log.IterationKey, env.Iteration,
			log.TreesKey, env.Trees,
			log.LeavesKey, env.Leaves,
			log.MetricValueKey, env.TrainScore,
		}
		if env.HasValidation {
			fields = append(fields, log.ValidationValueKey, env.ValidationScore)
		}
		logger.Info("boosting round", fields...)
		return nil
	}
}

// TimeLimit stops training once the elapsed time exceeds maxDuration.
func TimeLimit(maxDuration time.Duration) Callback {
	return func(env *CallbackEnv) error {
		if env.Elapsed > maxDuration {
			env.StopTraining = true
		}
		return nil
	}
}
