package metrics

import "github.com/YuminosukeSato/ranklib/core/data"

func relevant(label float64) bool { return label > 0 }

// Precision is the fraction of relevant documents in the top k positions.
// Any positive label counts as relevant.
type Precision struct {
	k int
}

func NewPrecision(k int) *Precision { return &Precision{k: k} }

func (p *Precision) Name() string { return metricName("P", p.k) }
func (p *Precision) K() int       { return p.k }

func (p *Precision) Score(rl *data.RankList) float64 {
	size := depth(p.k, rl.Len())
	count := 0
	for i := 0; i < size; i++ {
		if relevant(rl.At(i).Label) {
			count++
		}
	}
	return float64(count) / float64(size)
}

func (p *Precision) SwapChange(rl *data.RankList) [][]float64 {
	n := rl.Len()
	size := depth(p.k, n)
	changes := newMatrix(n)
	for i := 0; i < size; i++ {
		for j := size; j < n; j++ {
			ri, rj := relevant(rl.At(i).Label), relevant(rl.At(j).Label)
			if ri == rj {
				continue
			}
			c := 1 / float64(size)
			if ri {
				c = -c
			}
			changes[i][j] = c
			changes[j][i] = c
		}
	}
	return changes
}

// AveragePrecision は適合文書ごとの precision の平均（AP）です。
// 複数リストに対する平均（Evaluate）が MAP になります。
type AveragePrecision struct{}

func NewAveragePrecision() *AveragePrecision { return &AveragePrecision{} }

func (*AveragePrecision) Name() string { return "MAP" }
func (*AveragePrecision) K() int       { return 0 }

func (*AveragePrecision) Score(rl *data.RankList) float64 {
	var sum float64
	count := 0
	for i := 0; i < rl.Len(); i++ {
		if relevant(rl.At(i).Label) {
			count++
			sum += float64(count) / float64(i+1)
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

// SwapChange uses prefix counts so each entry is O(1).
// For positions i < j with exactly one relevant document, moving a relevant
// document from i down to j lowers the precision term of every relevant
// document strictly between them by 1/(p+1).
func (*AveragePrecision) SwapChange(rl *data.RankList) [][]float64 {
	n := rl.Len()
	changes := newMatrix(n)

	rel := make([]bool, n)
	// count[p] is the number of relevant documents in positions [0, p].
	count := make([]int, n)
	// inv[p] is the sum of 1/(q+1) over relevant q < p.
	inv := make([]float64, n+1)
	c := 0
	for p := 0; p < n; p++ {
		rel[p] = relevant(rl.At(p).Label)
		inv[p+1] = inv[p]
		if rel[p] {
			c++
			inv[p+1] += 1 / float64(p+1)
		}
		count[p] = c
	}
	if c == 0 {
		return changes
	}
	total := float64(c)

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if rel[i] == rel[j] {
				continue
			}
			between := inv[j] - inv[i+1]
			var delta float64
			if rel[i] {
				delta = float64(count[j])/float64(j+1) - float64(count[i])/float64(i+1) - between
			} else {
				delta = float64(count[i]+1)/float64(i+1) - float64(count[j])/float64(j+1) + between
			}
			delta /= total
			changes[i][j] = delta
			changes[j][i] = delta
		}
	}
	return changes
}
