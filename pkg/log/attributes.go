// Package log defines standard attribute keys for ranking operations.
//
// Using these keys across trainers, scorers and the CLI keeps log lines
// filterable by run, iteration and metric. Keys follow a hierarchical naming
// convention (e.g. "model.name", "train.iteration").

package log

// Model and Operation Context
const (
	// ModelNameKey identifies the ranker. Examples: "LambdaMART", "MART", "RandomForests"
	ModelNameKey = "model.name"

	// RunIDKey uniquely identifies one training run (a UUID).
	RunIDKey = "run.id"

	// OperationKey specifies the operation being performed.
	// Standard values: "fit", "score", "rank", "save", "load"
	OperationKey = "ml.operation"

	// ComponentKey identifies which component emitted the record.
	ComponentKey = "ml.component"

	// PhaseKey indicates the phase of the model lifecycle.
	PhaseKey = "ml.phase"
)

// Data Shape
const (
	// SamplesKey is the number of documents (data points).
	SamplesKey = "data.samples"

	// FeaturesKey is the number of features used for training.
	FeaturesKey = "data.features"

	// QueriesKey is the number of rank lists (queries).
	QueriesKey = "data.queries"

	// OOBQueriesKey is the number of rank lists left out of a bootstrap bag.
	OOBQueriesKey = "data.oob_queries"
)

// Training Progress
const (
	// IterationKey is the 1-based boosting round.
	IterationKey = "train.iteration"

	// TreesKey is the number of trees currently in the ensemble.
	TreesKey = "train.trees"

	// LeavesKey is the number of leaves of the most recent tree.
	LeavesKey = "train.leaves"

	// BagKey is the 1-based bag index of a Random Forests run.
	BagKey = "train.bag"

	// BestIterationKey records the iteration with the best validation score.
	BestIterationKey = "train.best_iteration"

	// WorkersKey records the worker budget of a fan-out.
	WorkersKey = "train.workers"
)

// Metrics
const (
	// MetricNameKey names the IR metric, e.g. "NDCG@10".
	MetricNameKey = "metric.name"

	// MetricValueKey is the metric value on the training data.
	MetricValueKey = "metric.value"

	// ValidationValueKey is the metric value on the validation data.
	ValidationValueKey = "metric.validation"

	// LossKey records a regression loss such as the residual RMSE of MART.
	LossKey = "metric.loss"
)

// Performance
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"
)

// Errors
const (
	// ErrorKey holds the error value. Errors logged under this key get a stack trace.
	ErrorKey = "error"

	// StacktraceKey contains the stack trace extracted from cockroachdb/errors.
	StacktraceKey = "stacktrace"
)

// Hyperparameters
const (
	LearningRateKey = "hyperparams.learning_rate"
	NumTreesKey     = "hyperparams.num_trees"
	NumLeavesKey    = "hyperparams.num_leaves"
	RandomSeedKey   = "config.random_seed"
)

// Standard attribute values.
const (
	OperationFit   = "fit"
	OperationScore = "score"
	OperationRank  = "rank"
	OperationSave  = "save"
	OperationLoad  = "load"

	PhaseTraining   = "training"
	PhaseValidation = "validation"
	PhaseTesting    = "testing"
)
