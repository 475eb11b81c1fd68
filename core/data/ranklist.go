package data

import (
	"sort"
	"strconv"

	"github.com/YuminosukeSato/ranklib/pkg/errors"
)

// RankList is an ordered, non-empty group of documents for one query.
// The list owns its slice; derived lists never alias it.
type RankList struct {
	points []*DataPoint
}

// NewRankList copies points into a new RankList. Empty lists are rejected.
func NewRankList(points []*DataPoint) (*RankList, error) {
	if len(points) == 0 {
		return nil, errors.NewEmptyDataError("NewRankList", "rank list has no documents")
	}
	p := make([]*DataPoint, len(points))
	copy(p, points)
	return &RankList{points: p}, nil
}

// QueryID returns the query id of the first document.
func (r *RankList) QueryID() string { return r.points[0].QueryID }

// Len returns the number of documents.
func (r *RankList) Len() int { return len(r.points) }

// At returns the i-th document.
func (r *RankList) At(i int) *DataPoint { return r.points[i] }

// Points returns a copy of the document slice.
func (r *RankList) Points() []*DataPoint {
	p := make([]*DataPoint, len(r.points))
	copy(p, r.points)
	return p
}

// Reorder returns a new list whose i-th document is r.At(order[i]).
func (r *RankList) Reorder(order []int) *RankList {
	p := make([]*DataPoint, len(order))
	for i, idx := range order {
		p[i] = r.points[idx]
	}
	return &RankList{points: p}
}

// SortedIndices returns document indices ordered by descending score, ties
// kept in list order.
func SortedIndices(scores []float64) []int {
	idx := make([]int, len(scores))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return scores[idx[a]] > scores[idx[b]] })
	return idx
}

// RankBy returns a new list ordered by descending scores (one per document).
func (r *RankList) RankBy(scores []float64) *RankList {
	return r.Reorder(SortedIndices(scores))
}

// Labels returns the relevance labels in list order.
func (r *RankList) Labels() []float64 {
	l := make([]float64, len(r.points))
	for i, p := range r.points {
		l[i] = p.Label
	}
	return l
}

// CountPoints returns the total number of documents across lists.
func CountPoints(lists []*RankList) int {
	n := 0
	for _, l := range lists {
		n += l.Len()
	}
	return n
}

// MaxFeatureID returns the largest feature id carried by any document.
func MaxFeatureID(lists []*RankList) int {
	m := 0
	for _, l := range lists {
		for _, p := range l.points {
			m = max(m, p.NumFeatures())
		}
	}
	return m
}

// ValidateLists rejects nil or empty input and nil/empty lists.
func ValidateLists(op string, lists []*RankList) error {
	if len(lists) == 0 {
		return errors.NewEmptyDataError(op, "no rank lists")
	}
	for i, l := range lists {
		if l == nil || l.Len() == 0 {
			return errors.NewEmptyDataError(op, "rank list "+strconv.Itoa(i)+" is empty")
		}
	}
	return nil
}
