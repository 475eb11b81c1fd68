package trees

import (
	"container/heap"

	"github.com/YuminosukeSato/ranklib/core/data"
)

// Split is one tree node: a leaf carrying an output, or an internal node
// sending a point left iff point[FeatureID] <= Threshold.
type Split struct {
	featureID int // 1-based; 0 for a leaf
	threshold float64
	output    float64
	left      *Split
	right     *Split

	// Training only; released by clearSamples.
	samples  []int
	hist     *FeatureHistogram
	deviance float64
}

func newLeaf(samples []int, hist *FeatureHistogram) *Split {
	return &Split{samples: samples, hist: hist, deviance: hist.Deviance()}
}

// IsLeaf reports whether the node has no children.
func (s *Split) IsLeaf() bool { return s.left == nil }

// FeatureID returns the 1-based feature id tested by an internal node.
func (s *Split) FeatureID() int { return s.featureID }

// Threshold returns the split threshold of an internal node.
func (s *Split) Threshold() float64 { return s.threshold }

// Output returns the value of a leaf.
func (s *Split) Output() float64 { return s.output }

// Left returns the child taken when the feature value is <= Threshold.
func (s *Split) Left() *Split { return s.left }

// Right returns the other child.
func (s *Split) Right() *Split { return s.right }

// Samples returns the training sample indices of a leaf. It is nil once the
// tree has been finalized.
func (s *Split) Samples() []int { return s.samples }

// Deviance returns the training deviance recorded for the node.
func (s *Split) Deviance() float64 { return s.deviance }

func (s *Split) eval(p *data.DataPoint) float64 {
	n := s
	for !n.IsLeaf() {
		if p.FeatureValue(n.featureID) <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.output
}

// leaves appends the leaves under s from left to right.
func (s *Split) leaves(dst []*Split) []*Split {
	if s.IsLeaf() {
		return append(dst, s)
	}
	dst = s.left.leaves(dst)
	return s.right.leaves(dst)
}

func (s *Split) clearSamples() {
	s.samples = nil
	s.hist = nil
	if !s.IsLeaf() {
		s.left.clearSamples()
		s.right.clearSamples()
	}
}

// leafQueue orders leaves awaiting expansion by descending deviance; equal
// deviances pop in insertion order.
type leafQueue struct {
	items []queued
	seq   int
}

type queued struct {
	split *Split
	seq   int
}

func (q *leafQueue) Len() int { return len(q.items) }

func (q *leafQueue) Less(i, j int) bool {
	a, b := q.items[i], q.items[j]
	if a.split.deviance != b.split.deviance {
		return a.split.deviance > b.split.deviance
	}
	return a.seq < b.seq
}

func (q *leafQueue) Swap(i, j int) { q.items[i], q.items[j] = q.items[j], q.items[i] }

func (q *leafQueue) Push(x any) { q.items = append(q.items, x.(queued)) }

func (q *leafQueue) Pop() any {
	old := q.items
	n := len(old)
	item := old[n-1]
	q.items = old[:n-1]
	return item
}

func (q *leafQueue) push(s *Split) {
	heap.Push(q, queued{split: s, seq: q.seq})
	q.seq++
}

func (q *leafQueue) pop() *Split {
	return heap.Pop(q).(queued).split
}
