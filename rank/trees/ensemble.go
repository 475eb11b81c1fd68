package trees

import (
	"slices"

	"github.com/YuminosukeSato/ranklib/core/data"
	"github.com/YuminosukeSato/ranklib/pkg/errors"
)

// Ensemble is an ordered list of weighted regression trees. Its output for a
// point is Σ weight_i · tree_i(point).
type Ensemble struct {
	trees   []*RegressionTree
	weights []float64
	policy  data.FeaturePolicy

	// Kept current by every mutator so scoring only reads it.
	features     []int // sorted feature ids referenced by any split
	maxFeatureID int
}

// NewEnsemble returns an empty ensemble using the zero feature policy.
func NewEnsemble() *Ensemble { return &Ensemble{features: []int{}} }

// Add appends a tree with its weight.
func (e *Ensemble) Add(t *RegressionTree, weight float64) {
	e.trees = append(e.trees, t)
	e.weights = append(e.weights, weight)
	e.addFeatures(t)
}

// Remove deletes the k-th tree.
func (e *Ensemble) Remove(k int) {
	e.trees = append(e.trees[:k], e.trees[k+1:]...)
	e.weights = append(e.weights[:k], e.weights[k+1:]...)
	e.indexFeatures()
}

// Truncate keeps the first n trees.
func (e *Ensemble) Truncate(n int) {
	if n < len(e.trees) {
		e.trees = e.trees[:n]
		e.weights = e.weights[:n]
		e.indexFeatures()
	}
}

// Len returns the number of trees.
func (e *Ensemble) Len() int { return len(e.trees) }

// Tree returns the i-th tree.
func (e *Ensemble) Tree(i int) *RegressionTree { return e.trees[i] }

// Weight returns the weight of the i-th tree.
func (e *Ensemble) Weight(i int) float64 { return e.weights[i] }

// FeaturePolicy returns how out-of-range feature ids are handled.
func (e *Ensemble) FeaturePolicy() data.FeaturePolicy { return e.policy }

// SetFeaturePolicy sets how Score treats feature ids a point does not carry.
func (e *Ensemble) SetFeaturePolicy(p data.FeaturePolicy) { e.policy = p }

// Eval returns the ensemble output for p. Missing features read as 0.
func (e *Ensemble) Eval(p *data.DataPoint) float64 {
	var s float64
	for i, t := range e.trees {
		s += e.weights[i] * t.Eval(p)
	}
	return s
}

// Score is Eval after applying the feature policy.
func (e *Ensemble) Score(p *data.DataPoint) (float64, error) {
	if err := e.policy.CheckFeatures(p, e.MaxFeatureID()); err != nil {
		return 0, err
	}
	return e.Eval(p), nil
}

// ScoreList scores every document of rl in list order.
func (e *Ensemble) ScoreList(rl *data.RankList) ([]float64, error) {
	return scoreList(e, rl)
}

// Rank returns a new list ordered by descending score. Ties keep list order.
func (e *Ensemble) Rank(rl *data.RankList) (*data.RankList, error) {
	return rankList(e, rl)
}

type pointScorer interface {
	Score(p *data.DataPoint) (float64, error)
}

func scoreList(s pointScorer, rl *data.RankList) ([]float64, error) {
	if rl == nil || rl.Len() == 0 {
		return nil, errors.NewEmptyDataError("ScoreList", "rank list has no documents")
	}
	scores := make([]float64, rl.Len())
	for i := range scores {
		v, err := s.Score(rl.At(i))
		if err != nil {
			return nil, errors.Wrapf(err, "query %s document %d", rl.QueryID(), i)
		}
		scores[i] = v
	}
	return scores, nil
}

func rankList(s pointScorer, rl *data.RankList) (*data.RankList, error) {
	scores, err := scoreList(s, rl)
	if err != nil {
		return nil, err
	}
	return rl.RankBy(scores), nil
}

// Features returns the sorted ids of the features used by any split.
func (e *Ensemble) Features() []int {
	out := make([]int, len(e.features))
	copy(out, e.features)
	return out
}

// MaxFeatureID returns the largest feature id used by any split, or 0.
func (e *Ensemble) MaxFeatureID() int { return e.maxFeatureID }

func (e *Ensemble) indexFeatures() {
	e.features = []int{}
	e.maxFeatureID = 0
	for _, t := range e.trees {
		e.addFeatures(t)
	}
}

// addFeatures merges the split features of t into the sorted index.
func (e *Ensemble) addFeatures(t *RegressionTree) {
	walk(t.root, func(s *Split) {
		if s.IsLeaf() {
			return
		}
		i, found := slices.BinarySearch(e.features, s.featureID)
		if found {
			return
		}
		e.features = slices.Insert(e.features, i, s.featureID)
		e.maxFeatureID = max(e.maxFeatureID, s.featureID)
	})
}

// FeatureImportance returns the number of splits on each feature id.
func (e *Ensemble) FeatureImportance() map[int]int {
	counts := map[int]int{}
	for _, t := range e.trees {
		walk(t.root, func(s *Split) {
			if !s.IsLeaf() {
				counts[s.featureID]++
			}
		})
	}
	return counts
}

func walk(s *Split, fn func(*Split)) {
	fn(s)
	if !s.IsLeaf() {
		walk(s.left, fn)
		walk(s.right, fn)
	}
}
