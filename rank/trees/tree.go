package trees

import (
	"math/rand/v2"
	"sort"

	"github.com/YuminosukeSato/ranklib/core/data"
	"gonum.org/v1/gonum/stat/sampleuv"
)

// minDeviance is the deviance below which a node is treated as pure.
const minDeviance = 1e-10

// RegressionTree is a binary regression tree grown leaf-wise by deviance.
type RegressionTree struct {
	root   *Split
	leaves []*Split
}

// NewRegressionTree wraps an existing root, e.g. one read from model text.
func NewRegressionTree(root *Split) *RegressionTree {
	return &RegressionTree{root: root, leaves: root.leaves(nil)}
}

// Root returns the root node.
func (t *RegressionTree) Root() *Split { return t.root }

// Leaves returns the leaves from left to right.
func (t *RegressionTree) Leaves() []*Split { return t.leaves }

// NumLeaves returns the number of leaves.
func (t *RegressionTree) NumLeaves() int { return len(t.leaves) }

// Eval returns the output of the leaf p falls into.
func (t *RegressionTree) Eval(p *data.DataPoint) float64 { return t.root.eval(p) }

// ClearSamples releases the training sample sets and histograms of every
// node. Only featureID, threshold, output and children remain.
func (t *RegressionTree) ClearSamples() { t.root.clearSamples() }

// grower carries the per-run state shared by every tree fit in one training
// call.
type grower struct {
	thresholds     [][]float64
	responses      []float64
	numLeaves      int
	minLeafSupport int
	samplingRate   float64
	workers        int
	rng            *rand.Rand
}

// candidates returns the feature columns a split may use, in column order.
// With sampling enabled a uniform subset is drawn without replacement.
func (g *grower) candidates() []int {
	n := len(g.thresholds)
	if g.samplingRate >= 1 {
		all := make([]int, n)
		for i := range all {
			all[i] = i
		}
		return all
	}
	k := max(1, int(g.samplingRate*float64(n)))
	idx := make([]int, k)
	sampleuv.WithoutReplacement(idx, n, g.rng)
	sort.Ints(idx)
	return idx
}

// fit grows a tree over samples starting from the histogram that covers
// them. The root histogram is never consumed, so the caller may keep
// updating it across rounds.
func (g *grower) fit(samples []int, hist *FeatureHistogram) (*RegressionTree, error) {
	root := newLeaf(samples, hist)
	var queue leafQueue

	ok, err := g.split(root, true)
	if err != nil {
		return nil, err
	}
	if ok {
		queue.push(root.left)
		queue.push(root.right)
	}

	taken := 0
	for (g.numLeaves == -1 || taken+queue.Len() < g.numLeaves) && queue.Len() > 0 {
		leaf := queue.pop()
		if len(leaf.samples) < 2*g.minLeafSupport {
			taken++
			continue
		}
		ok, err := g.split(leaf, false)
		if err != nil {
			return nil, err
		}
		if !ok {
			taken++
			continue
		}
		queue.push(leaf.left)
		queue.push(leaf.right)
	}
	return NewRegressionTree(root), nil
}

// split tries to turn leaf s into an internal node. It reports false when
// the node is pure or no bin satisfies the leaf support constraint.
func (g *grower) split(s *Split, isRoot bool) (bool, error) {
	if s.deviance < minDeviance {
		return false, nil
	}
	best, ok, err := s.hist.FindBestSplit(g.candidates(), g.minLeafSupport, g.workers)
	if err != nil || !ok {
		return false, err
	}

	bin := s.hist.bins[best.feature]
	left := make([]int, 0, s.hist.count[best.feature][best.bin])
	right := make([]int, 0, len(s.samples)-cap(left))
	for _, j := range s.samples {
		if bin[j] <= best.bin {
			left = append(left, j)
		} else {
			right = append(right, j)
		}
	}

	lh, err := s.hist.subset(left, g.responses, g.workers)
	if err != nil {
		return false, err
	}
	var rh *FeatureHistogram
	if isRoot {
		rh, err = s.hist.Subtract(lh)
	} else {
		rh, err = s.hist.Consume(lh)
	}
	if err != nil {
		return false, err
	}

	s.featureID = best.feature + 1
	s.threshold = g.thresholds[best.feature][best.bin]
	s.left = newLeaf(left, lh)
	s.right = newLeaf(right, rh)
	s.samples = nil
	s.hist = nil
	return true, nil
}
