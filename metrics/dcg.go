package metrics

import (
	"math"
	"sort"

	"github.com/YuminosukeSato/ranklib/core/data"
)

// gain は関連度ラベルの利得 2^rel - 1 を返します。
func gain(label float64) float64 {
	return math.Exp2(label) - 1
}

// discount は0始まりの順位 pos に対する割引 1/log2(pos+2) を返します。
func discount(pos int) float64 {
	return 1 / math.Log2(float64(pos)+2)
}

// DCG は割引累積利得（Discounted Cumulative Gain）@k です。
type DCG struct {
	k int
}

// NewDCG は DCG@k を作成します。k=0 はリスト全体を意味します。
func NewDCG(k int) *DCG { return &DCG{k: k} }

func (d *DCG) Name() string { return metricName("DCG", d.k) }
func (d *DCG) K() int       { return d.k }

// Score は現在の順序での DCG@k を返します。
func (d *DCG) Score(rl *data.RankList) float64 {
	return dcgAt(rl.Labels(), d.k)
}

// SwapChange は位置 i, j の入れ替えによる DCG@k の変化量を返します。
func (d *DCG) SwapChange(rl *data.RankList) [][]float64 {
	return dcgSwap(rl.Labels(), d.k, 1)
}

func dcgAt(labels []float64, k int) float64 {
	size := depth(k, len(labels))
	var s float64
	for i := 0; i < size; i++ {
		s += gain(labels[i]) * discount(i)
	}
	return s
}

// dcgSwap computes the swap deltas of DCG@k scaled by norm. Positions at or
// beyond the cutoff carry a zero discount.
func dcgSwap(labels []float64, k int, norm float64) [][]float64 {
	n := len(labels)
	size := depth(k, n)
	changes := newMatrix(n)
	if norm == 0 {
		return changes
	}
	for i := 0; i < size; i++ {
		di := discount(i)
		gi := gain(labels[i])
		for j := i + 1; j < n; j++ {
			var dj float64
			if j < size {
				dj = discount(j)
			}
			c := (di - dj) * (gain(labels[j]) - gi) / norm
			changes[i][j] = c
			changes[j][i] = c
		}
	}
	return changes
}

// NDCG is DCG@k normalised by the DCG@k of the ideal ordering of the same
// list. A list whose ideal DCG is zero scores 0.
type NDCG struct {
	k int
}

// NewNDCG creates NDCG@k. k=0 means the whole list.
func NewNDCG(k int) *NDCG { return &NDCG{k: k} }

func (s *NDCG) Name() string { return metricName("NDCG", s.k) }
func (s *NDCG) K() int       { return s.k }

func (s *NDCG) Score(rl *data.RankList) float64 {
	labels := rl.Labels()
	ideal := idealDCG(labels, s.k)
	if ideal <= 0 {
		return 0
	}
	return dcgAt(labels, s.k) / ideal
}

func (s *NDCG) SwapChange(rl *data.RankList) [][]float64 {
	labels := rl.Labels()
	return dcgSwap(labels, s.k, idealDCG(labels, s.k))
}

func idealDCG(labels []float64, k int) float64 {
	sorted := make([]float64, len(labels))
	copy(sorted, labels)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))
	return dcgAt(sorted, k)
}
