package trees

import (
	"strings"

	"github.com/YuminosukeSato/ranklib/core/data"
	"github.com/YuminosukeSato/ranklib/core/parallel"
	"github.com/YuminosukeSato/ranklib/metrics"
	"github.com/YuminosukeSato/ranklib/pkg/errors"
)

// Algorithm selects how pseudo-responses and leaf outputs are computed.
type Algorithm string

const (
	// AlgorithmLambdaMART fits trees to metric-weighted pairwise gradients.
	AlgorithmLambdaMART Algorithm = "lambdamart"
	// AlgorithmMART fits trees to plain regression residuals.
	AlgorithmMART Algorithm = "mart"
)

// ParseAlgorithm parses an algorithm name case-insensitively.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch a := Algorithm(strings.ToLower(strings.TrimSpace(s))); a {
	case AlgorithmLambdaMART, AlgorithmMART:
		return a, nil
	case "":
		return AlgorithmLambdaMART, nil
	default:
		return "", errors.NewValidationError("algorithm", "must be 'lambdamart' or 'mart'", s)
	}
}

// DisplayName returns the ranker name written to model headers.
func (a Algorithm) DisplayName() string {
	if a == AlgorithmMART {
		return "MART"
	}
	return "LambdaMART"
}

// TrainingParams contains all boosting hyperparameters.
type TrainingParams struct {
	Algorithm           Algorithm `json:"algorithm" koanf:"algorithm" yaml:"algorithm"`
	NumTrees            int       `json:"num_trees" koanf:"num_trees" yaml:"num_trees"`
	NumLeaves           int       `json:"num_leaves" koanf:"num_leaves" yaml:"num_leaves"` // -1: bounded only by MinLeafSupport
	LearningRate        float64   `json:"learning_rate" koanf:"learning_rate" yaml:"learning_rate"`
	NumThresholds       int       `json:"num_thresholds" koanf:"num_thresholds" yaml:"num_thresholds"` // -1: every unique value
	MinLeafSupport      int       `json:"min_leaf_support" koanf:"min_leaf_support" yaml:"min_leaf_support"`
	EarlyStoppingRounds int       `json:"early_stopping_rounds" koanf:"early_stopping_rounds" yaml:"early_stopping_rounds"` // 0 never stops early
	FeatureSamplingRate float64   `json:"feature_sampling_rate" koanf:"feature_sampling_rate" yaml:"feature_sampling_rate"`

	Workers       int    `json:"workers" koanf:"workers" yaml:"workers"`
	Seed          uint64 `json:"seed" koanf:"seed" yaml:"seed"`
	Metric        string `json:"metric" koanf:"metric" yaml:"metric"`
	FeaturePolicy string `json:"feature_policy" koanf:"feature_policy" yaml:"feature_policy"`
}

// DefaultTrainingParams returns the LambdaMART defaults.
func DefaultTrainingParams() TrainingParams {
	return TrainingParams{
		Algorithm:           AlgorithmLambdaMART,
		NumTrees:            1000,
		NumLeaves:           10,
		LearningRate:        0.1,
		NumThresholds:       256,
		MinLeafSupport:      1,
		EarlyStoppingRounds: 100,
		FeatureSamplingRate: 1.0,
		Workers:             parallel.DefaultWorkers(),
		Seed:                1,
		Metric:              "NDCG@10",
		FeaturePolicy:       data.PolicyZero.String(),
	}
}

// Validate checks parameter ranges.
func (p TrainingParams) Validate() error {
	if _, err := ParseAlgorithm(string(p.Algorithm)); err != nil {
		return err
	}
	if p.NumTrees < 1 {
		return errors.NewValidationError("num_trees", "must be at least 1", p.NumTrees)
	}
	if p.NumLeaves != -1 && p.NumLeaves < 2 {
		return errors.NewValidationError("num_leaves", "must be -1 or at least 2", p.NumLeaves)
	}
	if !(p.LearningRate > 0) {
		return errors.NewValidationError("learning_rate", "must be positive", p.LearningRate)
	}
	if p.NumThresholds != -1 && p.NumThresholds < 1 {
		return errors.NewValidationError("num_thresholds", "must be -1 or at least 1", p.NumThresholds)
	}
	if p.MinLeafSupport < 1 {
		return errors.NewValidationError("min_leaf_support", "must be at least 1", p.MinLeafSupport)
	}
	if p.EarlyStoppingRounds < 0 {
		return errors.NewValidationError("early_stopping_rounds", "must not be negative", p.EarlyStoppingRounds)
	}
	if !(p.FeatureSamplingRate > 0 && p.FeatureSamplingRate <= 1) {
		return errors.NewValidationError("feature_sampling_rate", "must be in (0, 1]", p.FeatureSamplingRate)
	}
	if p.Workers < 1 {
		return errors.NewValidationError("workers", "must be at least 1", p.Workers)
	}
	if _, err := metrics.NewScorer(p.Metric); err != nil {
		return err
	}
	if _, err := data.ParseFeaturePolicy(p.FeaturePolicy); err != nil {
		return err
	}
	return nil
}

// ForestParams configures Random Forests. Boosting holds the parameters of
// the ranker trained on every bag.
type ForestParams struct {
	NumBags         int            `json:"num_bags" koanf:"num_bags" yaml:"num_bags"`
	SubSamplingRate float64        `json:"sub_sampling_rate" koanf:"sub_sampling_rate" yaml:"sub_sampling_rate"`
	Boosting        TrainingParams `json:"boosting" koanf:"boosting" yaml:"boosting"`
}

// DefaultForestParams returns 300 bags of single-tree MART with 100 leaves
// and 30% feature sampling.
func DefaultForestParams() ForestParams {
	b := DefaultTrainingParams()
	b.Algorithm = AlgorithmMART
	b.NumTrees = 1
	b.NumLeaves = 100
	b.MinLeafSupport = 1
	b.EarlyStoppingRounds = 0
	b.FeatureSamplingRate = 0.3
	return ForestParams{
		NumBags:         300,
		SubSamplingRate: 1.0,
		Boosting:        b,
	}
}

// Validate checks parameter ranges.
func (p ForestParams) Validate() error {
	if p.NumBags < 1 {
		return errors.NewValidationError("num_bags", "must be at least 1", p.NumBags)
	}
	if !(p.SubSamplingRate > 0 && p.SubSamplingRate <= 1) {
		return errors.NewValidationError("sub_sampling_rate", "must be in (0, 1]", p.SubSamplingRate)
	}
	return p.Boosting.Validate()
}
