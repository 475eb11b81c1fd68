package trees

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/YuminosukeSato/ranklib/core/data"
	"github.com/YuminosukeSato/ranklib/metrics"
	"github.com/YuminosukeSato/ranklib/pkg/errors"
	"github.com/YuminosukeSato/ranklib/pkg/log"
)

// Trainer runs LambdaMART or MART boosting.
//
// Each round computes pseudo-responses from the current model scores,
// updates the root histogram, grows one tree, sets its leaf outputs by a
// Newton step and adds it to the ensemble with weight LearningRate. With
// validation data and EarlyStoppingRounds > 0 the ensemble is truncated to
// the best validation round when training ends.
type Trainer struct {
	params    TrainingParams
	scorer    metrics.Scorer
	strategy  strategy
	policy    data.FeaturePolicy
	callbacks []Callback
	logger    log.Logger
	bag       int

	runID         string
	iterations    int
	bestIteration int
}

// Option configures a Trainer.
type Option func(*Trainer)

// WithScorer overrides the metric named by TrainingParams.Metric.
func WithScorer(s metrics.Scorer) Option {
	return func(t *Trainer) { t.scorer = s }
}

// WithCallbacks appends callbacks run after every round.
func WithCallbacks(cb ...Callback) Option {
	return func(t *Trainer) { t.callbacks = append(t.callbacks, cb...) }
}

// WithLogger sets the logger. The default is the "trees" component logger.
func WithLogger(l log.Logger) Option {
	return func(t *Trainer) { t.logger = l }
}

func withBag(bag int) Option {
	return func(t *Trainer) { t.bag = bag }
}

// NewTrainer validates params and returns a Trainer.
func NewTrainer(params TrainingParams, opts ...Option) (*Trainer, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	algorithm, _ := ParseAlgorithm(string(params.Algorithm))
	params.Algorithm = algorithm
	policy, _ := data.ParseFeaturePolicy(params.FeaturePolicy)

	t := &Trainer{params: params, policy: policy}
	for _, opt := range opts {
		opt(t)
	}
	if t.scorer == nil {
		s, err := metrics.NewScorer(params.Metric)
		if err != nil {
			return nil, err
		}
		t.scorer = s
	}
	if t.logger == nil {
		t.logger = log.GetLoggerWithName("trees")
	}
	s, err := newStrategy(algorithm, t.scorer)
	if err != nil {
		return nil, err
	}
	t.strategy = s
	return t, nil
}

// Params returns the validated parameters.
func (t *Trainer) Params() TrainingParams { return t.params }

// Scorer returns the training metric.
func (t *Trainer) Scorer() metrics.Scorer { return t.scorer }

// RunID identifies the most recent Fit call.
func (t *Trainer) RunID() string { return t.runID }

// Iterations returns the number of rounds run by the most recent Fit.
func (t *Trainer) Iterations() int { return t.iterations }

// BestIteration returns the 1-based round with the best validation score,
// or 0 when early stopping was not active.
func (t *Trainer) BestIteration() int { return t.bestIteration }

// Header describes the trainer for the model file.
func (t *Trainer) Header() Header {
	h := Header{Ranker: t.strategy.name()}
	h.Set(HeaderTrees, strconv.Itoa(t.params.NumTrees))
	h.Set(HeaderLeaves, strconv.Itoa(t.params.NumLeaves))
	h.Set(HeaderThresholds, strconv.Itoa(t.params.NumThresholds))
	h.Set(HeaderLearningRate, FormatFloat(t.params.LearningRate))
	h.Set(HeaderStopEarly, strconv.Itoa(t.params.EarlyStoppingRounds))
	h.Set(HeaderFeaturePolicy, t.policy.String())
	return h
}

// Fit trains an ensemble on train. validation may be empty. ctx is checked
// before every round; a canceled context stops training between rounds.
func (t *Trainer) Fit(ctx context.Context, train, validation []*data.RankList) (ens *Ensemble, err error) {
	defer errors.Recover(&err, "Trainer.Fit")

	if err := data.ValidateLists("Trainer.Fit", train); err != nil {
		return nil, err
	}
	if len(validation) > 0 {
		if err := data.ValidateLists("Trainer.Fit", validation); err != nil {
			return nil, err
		}
	}

	p := t.params
	t.runID = uuid.NewString()
	t.iterations, t.bestIteration = 0, 0
	logger := t.logger.With(
		log.RunIDKey, t.runID,
		log.ModelNameKey, t.strategy.name(),
		log.OperationKey, log.OperationFit,
	)
	if t.bag > 0 {
		logger = logger.With(log.BagKey, t.bag)
	}
	start := time.Now()

	set := newSampleSet(train)
	numFeatures := data.MaxFeatureID(train)
	if numFeatures == 0 {
		return nil, errors.NewValueError("Trainer.Fit", "training data has no features")
	}
	x := set.matrix(numFeatures)
	sorted, err := sortByFeature(x, p.Workers)
	if err != nil {
		return nil, err
	}
	thresholds := buildThresholds(x, sorted, p.NumThresholds)

	n := len(set.points)
	scores := make([]float64, n)
	responses := make([]float64, n)
	weights := make([]float64, n)
	hist, err := newRootHistogram(x, sorted, thresholds, responses, p.Workers)
	if err != nil {
		return nil, err
	}
	all := make([]int, n)
	for i := range all {
		all[i] = i
	}
	g := &grower{
		thresholds:     thresholds,
		responses:      responses,
		numLeaves:      p.NumLeaves,
		minLeafSupport: p.MinLeafSupport,
		samplingRate:   p.FeatureSamplingRate,
		workers:        p.Workers,
		rng:            data.NewRand(p.Seed),
	}

	var (
		valSet    *sampleSet
		valScores []float64
		es        = NewEarlyStopping(0)
	)
	if len(validation) > 0 {
		valSet = newSampleSet(validation)
		valScores = make([]float64, len(valSet.points))
		es = NewEarlyStopping(p.EarlyStoppingRounds)
	}

	logger.Info("training started",
		log.SamplesKey, n,
		log.FeaturesKey, numFeatures,
		log.QueriesKey, len(train),
		log.NumTreesKey, p.NumTrees,
		log.NumLeavesKey, p.NumLeaves,
		log.LearningRateKey, p.LearningRate,
		log.WorkersKey, p.Workers,
		log.MetricNameKey, t.scorer.Name(),
	)

	ens = NewEnsemble()
	ens.policy = t.policy
	for m := 1; m <= p.NumTrees; m++ {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrapf(err, "training stopped after %d rounds", m-1)
		}

		if err := t.strategy.computePseudoResponses(set, scores, responses, weights, p.Workers); err != nil {
			return nil, err
		}
		if err := errors.CheckNumericalStability("pseudo_response", responses, m); err != nil {
			return nil, err
		}
		if err := hist.Update(responses, p.Workers); err != nil {
			return nil, err
		}
		tree, err := g.fit(all, hist)
		if err != nil {
			return nil, errors.Wrapf(err, "fit tree %d", m)
		}

		for _, leaf := range tree.Leaves() {
			leaf.output = t.strategy.leafOutput(leaf.samples, responses, weights)
			step := p.LearningRate * leaf.output
			for _, j := range leaf.samples {
				scores[j] += step
			}
		}
		tree.ClearSamples()
		ens.Add(tree, p.LearningRate)
		t.iterations = m

		env := &CallbackEnv{
			RunID:      t.runID,
			Ranker:     t.strategy.name(),
			Bag:        t.bag,
			Iteration:  m,
			Trees:      ens.Len(),
			Leaves:     tree.NumLeaves(),
			TrainScore: t.meanScore(set, scores),
			Elapsed:    time.Since(start),
		}
		stop := false
		if valSet != nil {
			for i, pt := range valSet.points {
				valScores[i] += p.LearningRate * tree.Eval(pt)
			}
			env.HasValidation = true
			env.ValidationScore = t.meanScore(valSet, valScores)
			stop = es.Update(m, env.ValidationScore)
			env.BestIteration = es.BestIteration
		}

		logger.Debug("boosting round",
			log.IterationKey, m,
			log.LeavesKey, env.Leaves,
			log.MetricValueKey, env.TrainScore,
			log.ValidationValueKey, env.ValidationScore,
		)
		for _, cb := range t.callbacks {
			if err := cb(env); err != nil {
				return nil, errors.Wrapf(err, "callback at round %d", m)
			}
		}
		if stop || env.StopTraining {
			break
		}
	}

	if valSet != nil && es.BestIteration > 0 {
		ens.Truncate(es.BestIteration)
		t.bestIteration = es.BestIteration
	}

	fields := []any{
		log.IterationKey, t.iterations,
		log.TreesKey, ens.Len(),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	}
	if t.bestIteration > 0 {
		fields = append(fields, log.BestIterationKey, t.bestIteration, log.ValidationValueKey, es.BestScore)
	}
	logger.Info("training finished", fields...)
	return ens, nil
}

// meanScore ranks every list by scores and averages the metric.
func (t *Trainer) meanScore(set *sampleSet, scores []float64) float64 {
	var total float64
	for q, l := range set.lists {
		start, end := set.offsets[q], set.offsets[q+1]
		total += t.scorer.Score(l.RankBy(scores[start:end]))
	}
	return total / float64(len(set.lists))
}
