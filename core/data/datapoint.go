// Package data holds the ranking data model: documents (DataPoint) grouped by
// query into RankLists, plus a LETOR text reader and bootstrap sampling.
package data

import (
	"strings"

	"github.com/YuminosukeSato/ranklib/pkg/errors"
)

// DataPoint is one judged document: a relevance label, the query it belongs
// to and a dense feature vector addressed by 1-based feature id.
type DataPoint struct {
	Label       float64
	QueryID     string
	Description string

	// Cached is a scratch score for callers; the tree rankers never read it.
	Cached float64

	features []float64
}

// NewDataPoint creates a DataPoint. features[0] is feature id 1.
func NewDataPoint(label float64, queryID string, features []float64) *DataPoint {
	f := make([]float64, len(features))
	copy(f, features)
	return &DataPoint{Label: label, QueryID: queryID, features: f}
}

// FeatureValue returns the value of a 1-based feature id, or 0 when the id is
// outside the vector.
func (p *DataPoint) FeatureValue(id int) float64 {
	if id < 1 || id > len(p.features) {
		return 0
	}
	return p.features[id-1]
}

// NumFeatures returns the highest feature id stored in the point.
func (p *DataPoint) NumFeatures() int { return len(p.features) }

// Features returns a copy of the dense feature vector.
func (p *DataPoint) Features() []float64 {
	f := make([]float64, len(p.features))
	copy(f, p.features)
	return f
}

// FeaturePolicy decides what evaluation does with feature ids the data point
// does not carry. One policy applies to a whole model.
type FeaturePolicy int

const (
	// PolicyZero reads missing features as 0.
	PolicyZero FeaturePolicy = iota
	// PolicyStrict fails evaluation with a FeatureRangeError.
	PolicyStrict
)

// String implements fmt.Stringer.
func (p FeaturePolicy) String() string {
	if p == PolicyStrict {
		return "strict"
	}
	return "zero"
}

// ParseFeaturePolicy parses "zero" or "strict".
func ParseFeaturePolicy(s string) (FeaturePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "zero":
		return PolicyZero, nil
	case "strict":
		return PolicyStrict, nil
	default:
		return PolicyZero, errors.NewValidationError("feature_policy", "must be 'zero' or 'strict'", s)
	}
}

// CheckFeatures applies the policy to a point given the highest feature id a
// model references.
func (p FeaturePolicy) CheckFeatures(dp *DataPoint, maxFeatureID int) error {
	if p == PolicyStrict && maxFeatureID > dp.NumFeatures() {
		return errors.NewFeatureRangeError(maxFeatureID, dp.NumFeatures())
	}
	return nil
}
