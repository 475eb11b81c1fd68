// Package telemetry exposes Prometheus collectors for training runs.
//
// Collectors are created per Metrics value and registered explicitly, so
// several independent runs (or tests) can use separate registries.
package telemetry

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/YuminosukeSato/ranklib/rank/trees"
)

// Metric names.
const (
	MetricRoundsTotal     = "ranklib_boosting_rounds_total"
	MetricRoundDuration   = "ranklib_boosting_round_duration_seconds"
	MetricEnsembleTrees   = "ranklib_ensemble_trees"
	MetricTreeLeaves      = "ranklib_tree_leaves"
	MetricTrainScore      = "ranklib_train_metric"
	MetricValidationScore = "ranklib_validation_metric"
	MetricBestIteration   = "ranklib_best_iteration"
	MetricRunsTotal       = "ranklib_training_runs_total"
	MetricRunDuration     = "ranklib_training_run_duration_seconds"
)

const (
	labelRanker = "ranker"
	labelBag    = "bag"
	labelStatus = "status"
)

// Run status label values.
const (
	StatusSuccess  = "success"
	StatusFailure  = "failure"
	StatusCanceled = "canceled"
)

// Metrics holds the Prometheus collectors for training runs.
type Metrics struct {
	roundsTotal     *prometheus.CounterVec
	roundDuration   *prometheus.HistogramVec
	trees           *prometheus.GaugeVec
	leaves          *prometheus.HistogramVec
	trainScore      *prometheus.GaugeVec
	validationScore *prometheus.GaugeVec
	bestIteration   *prometheus.GaugeVec
	runsTotal       *prometheus.CounterVec
	runDuration     *prometheus.HistogramVec
}

// NewMetrics creates the training collectors. They must be registered with
// Register before they are scraped.
func NewMetrics() *Metrics {
	return &Metrics{
		roundsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricRoundsTotal,
				Help: "Total number of completed boosting rounds",
			},
			[]string{labelRanker},
		),
		roundDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricRoundDuration,
				Help:    "Wall time of one boosting round in seconds",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
			},
			[]string{labelRanker},
		),
		trees: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: MetricEnsembleTrees,
				Help: "Number of trees in the ensemble being trained",
			},
			[]string{labelRanker, labelBag},
		),
		leaves: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricTreeLeaves,
				Help:    "Leaves of each grown regression tree",
				Buckets: prometheus.ExponentialBuckets(1, 2, 10),
			},
			[]string{labelRanker},
		),
		trainScore: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: MetricTrainScore,
				Help: "Latest metric value on the training data",
			},
			[]string{labelRanker, labelBag},
		),
		validationScore: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: MetricValidationScore,
				Help: "Latest metric value on the validation data",
			},
			[]string{labelRanker, labelBag},
		),
		bestIteration: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: MetricBestIteration,
				Help: "Iteration with the best validation score so far",
			},
			[]string{labelRanker, labelBag},
		),
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricRunsTotal,
				Help: "Total number of training runs by status",
			},
			[]string{labelRanker, labelStatus},
		),
		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricRunDuration,
				Help:    "Wall time of a whole training run in seconds",
				Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
			},
			[]string{labelRanker},
		),
	}
}

// Register registers all collectors with the given registerer.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Collectors returns every collector owned by m.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.roundsTotal,
		m.roundDuration,
		m.trees,
		m.leaves,
		m.trainScore,
		m.validationScore,
		m.bestIteration,
		m.runsTotal,
		m.runDuration,
	}
}

// Callback returns a boosting callback that records every round.
// Round durations are derived from the elapsed time reported by the trainer.
func (m *Metrics) Callback() trees.Callback {
	var last time.Duration
	lastBag := -1
	return func(env *trees.CallbackEnv) error {
		if env.Bag != lastBag {
			last, lastBag = 0, env.Bag
		}
		round := env.Elapsed - last
		last = env.Elapsed

		bag := strconv.Itoa(env.Bag)
		m.roundsTotal.WithLabelValues(env.Ranker).Inc()
		m.roundDuration.WithLabelValues(env.Ranker).Observe(round.Seconds())
		m.trees.WithLabelValues(env.Ranker, bag).Set(float64(env.Trees))
		m.leaves.WithLabelValues(env.Ranker).Observe(float64(env.Leaves))
		m.trainScore.WithLabelValues(env.Ranker, bag).Set(env.TrainScore)
		if env.HasValidation {
			m.validationScore.WithLabelValues(env.Ranker, bag).Set(env.ValidationScore)
			m.bestIteration.WithLabelValues(env.Ranker, bag).Set(float64(env.BestIteration))
		}
		return nil
	}
}

// ObserveRun records the outcome of a finished training run.
func (m *Metrics) ObserveRun(ranker, status string, d time.Duration) {
	m.runsTotal.WithLabelValues(ranker, status).Inc()
	m.runDuration.WithLabelValues(ranker).Observe(d.Seconds())
}
