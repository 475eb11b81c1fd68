package trees

import (
	"bufio"
	"context"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/YuminosukeSato/ranklib/core/data"
	"github.com/YuminosukeSato/ranklib/pkg/errors"
	"github.com/YuminosukeSato/ranklib/pkg/log"
)

// RandomForestsName is the ranker name of forest model files.
const RandomForestsName = "Random Forests"

// RandomForests trains one boosted ensemble per bootstrap bag and averages
// them. Bags are trained one after another; each bag parallelizes its own
// tree growth. Early stopping is always off inside bags.
type RandomForests struct {
	params ForestParams
	opts   []Option
}

// NewRandomForests validates params. opts are passed to every bag trainer.
func NewRandomForests(params ForestParams, opts ...Option) (*RandomForests, error) {
	params.Boosting.EarlyStoppingRounds = 0
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &RandomForests{params: params, opts: opts}, nil
}

// Params returns the validated parameters.
func (rf *RandomForests) Params() ForestParams { return rf.params }

// Header describes the forest for the model file.
func (rf *RandomForests) Header() Header {
	b := rf.params.Boosting
	policy, _ := data.ParseFeaturePolicy(b.FeaturePolicy)
	h := Header{Ranker: RandomForestsName}
	h.Set(HeaderBags, strconv.Itoa(rf.params.NumBags))
	h.Set(HeaderSubSampling, FormatFloat(rf.params.SubSamplingRate))
	h.Set(HeaderFeatureSample, FormatFloat(b.FeatureSamplingRate))
	h.Set(HeaderInnerRanker, b.Algorithm.DisplayName())
	h.Set(HeaderTrees, strconv.Itoa(b.NumTrees))
	h.Set(HeaderLeaves, strconv.Itoa(b.NumLeaves))
	h.Set(HeaderThresholds, strconv.Itoa(b.NumThresholds))
	h.Set(HeaderLearningRate, FormatFloat(b.LearningRate))
	h.Set(HeaderFeaturePolicy, policy.String())
	return h
}

// Fit trains NumBags ensembles. validation is only used to report the
// averaged model's score.
func (rf *RandomForests) Fit(ctx context.Context, train, validation []*data.RankList) (*Forest, error) {
	if err := data.ValidateLists("RandomForests.Fit", train); err != nil {
		return nil, err
	}
	start := time.Now()
	rng := data.NewRand(rf.params.Boosting.Seed)
	forest := &Forest{}

	var last *Trainer
	for b := 1; b <= rf.params.NumBags; b++ {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrapf(err, "random forests stopped after %d bags", b-1)
		}
		bag, oob := data.Bootstrap(train, rf.params.SubSamplingRate, rng)

		params := rf.params.Boosting
		params.Seed = rf.params.Boosting.Seed + uint64(b)
		trainer, err := NewTrainer(params, append(rf.opts, withBag(b))...)
		if err != nil {
			return nil, err
		}
		ens, err := trainer.Fit(ctx, bag, nil)
		if err != nil {
			return nil, errors.Wrapf(err, "bag %d", b)
		}
		forest.Add(ens)
		forest.policy = ens.policy
		last = trainer

		trainer.logger.Debug("bag trained",
			log.BagKey, b,
			log.RunIDKey, trainer.RunID(),
			log.QueriesKey, len(bag),
			log.OOBQueriesKey, len(oob),
		)
	}

	fields := []any{
		log.ModelNameKey, RandomForestsName,
		log.OperationKey, log.OperationFit,
		log.TreesKey, forest.NumTrees(),
		log.DurationMsKey, time.Since(start).Milliseconds(),
		log.MetricNameKey, last.scorer.Name(),
	}
	if s, err := forest.meanScore(last, train); err == nil {
		fields = append(fields, log.MetricValueKey, s)
	}
	if len(validation) > 0 {
		if s, err := forest.meanScore(last, validation); err == nil {
			fields = append(fields, log.ValidationValueKey, s)
		}
	}
	last.logger.Info("random forests trained", fields...)
	return forest, nil
}

// Forest is the averaged model produced by RandomForests.
type Forest struct {
	ensembles []*Ensemble
	policy    data.FeaturePolicy
}

// Add appends an ensemble.
func (f *Forest) Add(e *Ensemble) { f.ensembles = append(f.ensembles, e) }

// Len returns the number of bags.
func (f *Forest) Len() int { return len(f.ensembles) }

// Ensemble returns the ensemble of the i-th bag.
func (f *Forest) Ensemble(i int) *Ensemble { return f.ensembles[i] }

// NumTrees returns the total number of trees over all bags.
func (f *Forest) NumTrees() int {
	n := 0
	for _, e := range f.ensembles {
		n += e.Len()
	}
	return n
}

// SetFeaturePolicy sets the policy of the forest and every bag.
func (f *Forest) SetFeaturePolicy(p data.FeaturePolicy) {
	f.policy = p
	for _, e := range f.ensembles {
		e.policy = p
	}
}

// MaxFeatureID returns the largest feature id used by any bag.
func (f *Forest) MaxFeatureID() int {
	m := 0
	for _, e := range f.ensembles {
		m = max(m, e.MaxFeatureID())
	}
	return m
}

// Eval returns the mean output of the bag ensembles.
func (f *Forest) Eval(p *data.DataPoint) float64 {
	if len(f.ensembles) == 0 {
		return 0
	}
	var s float64
	for _, e := range f.ensembles {
		s += e.Eval(p)
	}
	return s / float64(len(f.ensembles))
}

// Score is Eval after applying the feature policy.
func (f *Forest) Score(p *data.DataPoint) (float64, error) {
	if err := f.policy.CheckFeatures(p, f.MaxFeatureID()); err != nil {
		return 0, err
	}
	return f.Eval(p), nil
}

// ScoreList scores every document of rl in list order.
func (f *Forest) ScoreList(rl *data.RankList) ([]float64, error) { return scoreList(f, rl) }

// Rank returns a new list ordered by descending score.
func (f *Forest) Rank(rl *data.RankList) (*data.RankList, error) { return rankList(f, rl) }

// FeatureImportance sums the split counts of every bag.
func (f *Forest) FeatureImportance() map[int]int {
	counts := map[int]int{}
	for _, e := range f.ensembles {
		for id, c := range e.FeatureImportance() {
			counts[id] += c
		}
	}
	return counts
}

func (f *Forest) meanScore(t *Trainer, lists []*data.RankList) (float64, error) {
	var total float64
	for _, l := range lists {
		ranked, err := f.Rank(l)
		if err != nil {
			return 0, err
		}
		total += t.scorer.Score(ranked)
	}
	return total / float64(len(lists)), nil
}

// WriteForest writes a header followed by one ensemble block per bag.
func WriteForest(w io.Writer, h Header, f *Forest) error {
	if f == nil || len(f.ensembles) == 0 {
		return errors.NewNotFittedError(RandomForestsName, "WriteForest")
	}
	for _, e := range f.ensembles {
		if e.Len() == 0 {
			return errors.NewNotFittedError(RandomForestsName, "WriteForest")
		}
	}
	bw := bufio.NewWriter(w)
	writeHeader(bw, h)
	for _, e := range f.ensembles {
		writeEnsemble(bw, e)
	}
	return errors.Wrap(bw.Flush(), "write forest")
}

// ParseForest reads a model written by WriteForest.
func ParseForest(r io.Reader) (Header, *Forest, error) {
	h, ensembles, err := parseDocument(r)
	if err != nil {
		return Header{}, nil, err
	}
	if h.Ranker != "" && h.Ranker != RandomForestsName {
		return Header{}, nil, errors.NewParseError("model", 1, "ranker",
			errors.Newf("expected %q, found %q", RandomForestsName, h.Ranker))
	}
	if v, ok := h.Get(HeaderBags); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return Header{}, nil, errors.NewParseError("model", 0, "bag count", err)
		}
		if n != len(ensembles) {
			return Header{}, nil, errors.NewParseError("model", 0, "bag count",
				errors.Newf("header declares %d bags, found %d ensembles", n, len(ensembles)))
		}
	}
	f := &Forest{ensembles: ensembles, policy: ensembles[0].policy}
	return h, f, nil
}
