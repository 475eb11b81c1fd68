package trees

import (
	"math"

	"github.com/YuminosukeSato/ranklib/core/data"
	"github.com/YuminosukeSato/ranklib/core/parallel"
	"github.com/YuminosukeSato/ranklib/metrics"
	"github.com/YuminosukeSato/ranklib/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// sampleSet is the training data of one run flattened into sample order:
// the documents of lists[i] occupy indices offsets[i]..offsets[i+1]-1.
type sampleSet struct {
	lists   []*data.RankList
	offsets []int
	points  []*data.DataPoint
	labels  []float64
}

func newSampleSet(lists []*data.RankList) *sampleSet {
	s := &sampleSet{lists: lists, offsets: make([]int, len(lists)+1)}
	for i, l := range lists {
		s.offsets[i] = len(s.points)
		for j := 0; j < l.Len(); j++ {
			p := l.At(j)
			s.points = append(s.points, p)
			s.labels = append(s.labels, p.Label)
		}
	}
	s.offsets[len(lists)] = len(s.points)
	return s
}

// matrix returns the samples × features training matrix. Column f holds
// feature id f+1.
func (s *sampleSet) matrix(numFeatures int) *mat.Dense {
	x := mat.NewDense(len(s.points), numFeatures, nil)
	for i, p := range s.points {
		row := x.RawRowView(i)
		for f := range row {
			row[f] = p.FeatureValue(f + 1)
		}
	}
	return x
}

// strategy is the part of boosting that differs between LambdaMART and
// MART. Everything else (histograms, tree growth, ensemble assembly) is
// shared.
type strategy interface {
	name() string
	// computePseudoResponses fills responses (and weights, when used) from
	// the current model scores.
	computePseudoResponses(set *sampleSet, scores, responses, weights []float64, workers int) error
	// leafOutput is the Newton step of a leaf covering samples.
	leafOutput(samples []int, responses, weights []float64) float64
}

func newStrategy(a Algorithm, scorer metrics.Scorer) (strategy, error) {
	switch a {
	case AlgorithmLambdaMART:
		return lambdaMART{scorer: scorer}, nil
	case AlgorithmMART:
		return mart{}, nil
	default:
		return nil, errors.NewValidationError("algorithm", "unknown algorithm", string(a))
	}
}

type lambdaMART struct {
	scorer metrics.Scorer
}

func (lambdaMART) name() string { return AlgorithmLambdaMART.DisplayName() }

// computePseudoResponses accumulates, per query, the lambda gradient of
// every document pair whose labels differ. Lists are processed in parallel;
// each list writes only its own sample range.
func (l lambdaMART) computePseudoResponses(set *sampleSet, scores, responses, weights []float64, workers int) error {
	return parallel.ForEach(workers, len(set.lists), "pseudo_responses", func(q int) error {
		start, end := set.offsets[q], set.offsets[q+1]
		clear(responses[start:end])
		clear(weights[start:end])

		order := data.SortedIndices(scores[start:end])
		ranked := set.lists[q].Reorder(order)
		changes := l.scorer.SwapChange(ranked)

		n := end - start
		for j := 0; j < n; j++ {
			mj := start + order[j]
			lj := ranked.At(j).Label
			for k := 0; k < n; k++ {
				if j == k || lj <= ranked.At(k).Label {
					continue
				}
				delta := math.Abs(changes[j][k])
				if delta == 0 {
					continue
				}
				mk := start + order[k]
				rho := 1 / (1 + math.Exp(scores[mj]-scores[mk]))
				lambda := rho * delta
				w := rho * (1 - rho) * delta
				responses[mj] += lambda
				responses[mk] -= lambda
				weights[mj] += w
				weights[mk] += w
			}
		}
		return nil
	})
}

func (lambdaMART) leafOutput(samples []int, responses, weights []float64) float64 {
	var s1, s2 float64
	for _, j := range samples {
		s1 += responses[j]
		s2 += weights[j]
	}
	return errors.SafeDivide(s1, s2)
}

type mart struct{}

func (mart) name() string { return AlgorithmMART.DisplayName() }

// computePseudoResponses sets each response to the residual label - score.
func (mart) computePseudoResponses(set *sampleSet, scores, responses, _ []float64, _ int) error {
	for i, y := range set.labels {
		responses[i] = y - scores[i]
	}
	return nil
}

func (mart) leafOutput(samples []int, responses, _ []float64) float64 {
	var s float64
	for _, j := range samples {
		s += responses[j]
	}
	return errors.SafeDivide(s, float64(len(samples)))
}
