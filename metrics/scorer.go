// Package metrics provides the information-retrieval metrics used to train
// and evaluate rankers.
//
// Every metric implements Scorer. Score evaluates a RankList in its current
// order; SwapChange returns, for each pair of positions (i, j), the exact
// change in Score that swapping the documents at i and j would cause. The
// LambdaMART gradient is built from the absolute values of that matrix.
package metrics

import (
	"strconv"
	"strings"

	"github.com/YuminosukeSato/ranklib/core/data"
	"github.com/YuminosukeSato/ranklib/pkg/errors"
)

// Scorer is a ranking metric over one RankList.
type Scorer interface {
	// Score evaluates the list in its current order.
	Score(rl *data.RankList) float64
	// SwapChange returns a symmetric n×n matrix whose (i, j) entry is the
	// change in Score from swapping positions i and j.
	SwapChange(rl *data.RankList) [][]float64
	// Name returns the metric name, e.g. "NDCG@10".
	Name() string
	// K returns the cutoff depth; 0 means the whole list.
	K() int
}

// DefaultK is used when a metric name carries no "@k" suffix.
const DefaultK = 10

// NewScorer builds a Scorer from a name such as "NDCG@10", "DCG@5", "P@10",
// "MAP" or "ERR@10". Names are case-insensitive.
func NewScorer(name string) (Scorer, error) {
	base, kStr, hasK := strings.Cut(strings.ToUpper(strings.TrimSpace(name)), "@")
	k := DefaultK
	if hasK {
		v, err := strconv.Atoi(kStr)
		if err != nil || v < 0 {
			return nil, errors.NewValidationError("metric", "cutoff must be a non-negative integer", name)
		}
		k = v
	}

	switch base {
	case "NDCG":
		return NewNDCG(k), nil
	case "DCG":
		return NewDCG(k), nil
	case "P", "PRECISION":
		return NewPrecision(k), nil
	case "MAP", "AP":
		return NewAveragePrecision(), nil
	case "ERR":
		return NewERR(k), nil
	default:
		return nil, errors.NewValidationError("metric", "unknown metric", name)
	}
}

// Evaluate returns the mean Score over lists, each already in ranked order.
// Lists without any relevant document are counted with their Score and
// reported once through an UndefinedMetricWarning.
func Evaluate(s Scorer, lists []*data.RankList) (float64, error) {
	if err := data.ValidateLists("Evaluate", lists); err != nil {
		return 0, err
	}
	var total float64
	undefined := 0
	for _, l := range lists {
		if !hasRelevant(l) {
			undefined++
		}
		total += s.Score(l)
	}
	mean := total / float64(len(lists))
	if undefined > 0 {
		errors.Warn(errors.NewUndefinedMetricWarning(s.Name(),
			strconv.Itoa(undefined)+" of "+strconv.Itoa(len(lists))+" lists have no relevant documents", mean))
	}
	return mean, nil
}

func hasRelevant(l *data.RankList) bool {
	for i := 0; i < l.Len(); i++ {
		if l.At(i).Label > 0 {
			return true
		}
	}
	return false
}

// depth returns the number of positions that count towards a metric with
// cutoff k on a list of n documents.
func depth(k, n int) int {
	if k <= 0 || k > n {
		return n
	}
	return k
}

func newMatrix(n int) [][]float64 {
	backing := make([]float64, n*n)
	m := make([][]float64, n)
	for i := range m {
		m[i] = backing[i*n : (i+1)*n]
	}
	return m
}

func metricName(base string, k int) string {
	if k <= 0 {
		return base
	}
	return base + "@" + strconv.Itoa(k)
}
