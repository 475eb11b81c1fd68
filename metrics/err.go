package metrics

import (
	"math"

	"github.com/YuminosukeSato/ranklib/core/data"
)

// DefaultMaxGrade is the highest relevance grade assumed by ERR (labels 0..4).
const DefaultMaxGrade = 4

// ERR is Expected Reciprocal Rank@k under the cascade model. The stopping
// probability of a document with grade g is (2^g - 1) / 2^maxGrade.
type ERR struct {
	k        int
	maxGrade float64
}

// NewERR creates ERR@k with DefaultMaxGrade.
func NewERR(k int) *ERR { return &ERR{k: k, maxGrade: DefaultMaxGrade} }

func (e *ERR) Name() string { return metricName("ERR", e.k) }
func (e *ERR) K() int       { return e.k }

func (e *ERR) stop(label float64) float64 {
	return (math.Exp2(label) - 1) / math.Exp2(e.maxGrade)
}

func (e *ERR) Score(rl *data.RankList) float64 {
	size := depth(e.k, rl.Len())
	var s float64
	p := 1.0
	for i := 0; i < size; i++ {
		r := e.stop(rl.At(i).Label)
		s += p * r / float64(i+1)
		p *= 1 - r
	}
	return s
}

// SwapChange re-accumulates only the positions between i and min(j, k-1);
// terms before i and after j see the same product of continuation
// probabilities in either order.
func (e *ERR) SwapChange(rl *data.RankList) [][]float64 {
	n := rl.Len()
	size := depth(e.k, n)
	changes := newMatrix(n)

	r := make([]float64, n)
	for i := range r {
		r[i] = e.stop(rl.At(i).Label)
	}
	// prefix[i] is the product of (1 - r[q]) for q < i.
	prefix := make([]float64, size+1)
	prefix[0] = 1
	for i := 0; i < size; i++ {
		prefix[i+1] = prefix[i] * (1 - r[i])
	}

	for i := 0; i < size; i++ {
		for j := i + 1; j < n; j++ {
			if r[i] == r[j] {
				continue
			}
			end := min(j, size-1)
			pOld, pNew := prefix[i], prefix[i]
			var delta float64
			for q := i; q <= end; q++ {
				rq := r[q]
				switch q {
				case i:
					rq = r[j]
				case j:
					rq = r[i]
				}
				delta += (pNew*rq - pOld*r[q]) / float64(q+1)
				pOld *= 1 - r[q]
				pNew *= 1 - rq
			}
			changes[i][j] = delta
			changes[j][i] = delta
		}
	}
	return changes
}
