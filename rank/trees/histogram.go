package trees

import (
	"github.com/YuminosukeSato/ranklib/core/parallel"
	"github.com/YuminosukeSato/ranklib/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// FeatureHistogram holds, for every feature and threshold bin, the
// cumulative sum and count of pseudo-responses of the samples whose feature
// value is at most that threshold.
//
// The sample→bin assignment is computed once from the training matrix and
// shared by every histogram derived in the same run.
type FeatureHistogram struct {
	thresholds [][]float64 // per feature, read-only
	bins       [][]int     // per feature, sample index -> threshold bin

	sum   [][]float64
	count [][]int

	total         int
	sumResponse   float64
	sqSumResponse float64

	full     bool // covers every training sample
	consumed bool
}

// newRootHistogram bins every sample of x and accumulates responses.
func newRootHistogram(x *mat.Dense, sorted [][]int, thresholds [][]float64, responses []float64, workers int) (*FeatureHistogram, error) {
	rows, cols := x.Dims()
	h := &FeatureHistogram{
		thresholds: thresholds,
		bins:       make([][]int, cols),
		sum:        make([][]float64, cols),
		count:      make([][]int, cols),
		total:      rows,
		full:       true,
	}

	err := parallel.ForEach(workers, cols, "histogram_construct", func(f int) error {
		idx, th := sorted[f], thresholds[f]
		sum := make([]float64, len(th))
		count := make([]int, len(th))
		bin := make([]int, rows)

		last := 0
		var s float64
		for t, v := range th {
			for last < len(idx) {
				j := idx[last]
				if t < len(th)-1 && x.At(j, f) > v {
					break
				}
				s += responses[j]
				bin[j] = t
				last++
			}
			sum[t] = s
			count[t] = last
		}
		h.sum[f], h.count[f], h.bins[f] = sum, count, bin
		return nil
	})
	if err != nil {
		return nil, err
	}
	h.sumResponse = floats.Sum(responses)
	h.sqSumResponse = floats.Dot(responses, responses)
	return h, nil
}

func (h *FeatureHistogram) live(op string) error {
	if h.consumed {
		return errors.NewModelError(op, "histogram storage was transferred to a child", nil)
	}
	return nil
}

// Update recomputes the cumulative sums for new responses, reusing the
// fixed sample→bin assignment. Counts do not change. Only a histogram that
// covers every training sample can be updated.
func (h *FeatureHistogram) Update(responses []float64, workers int) error {
	if err := h.live("FeatureHistogram.Update"); err != nil {
		return err
	}
	if !h.full {
		return errors.NewModelError("FeatureHistogram.Update", "histogram covers a subset of samples", nil)
	}
	err := parallel.ForEach(workers, len(h.sum), "histogram_update", func(f int) error {
		sum, bin := h.sum[f], h.bins[f]
		clear(sum)
		for j, r := range responses {
			sum[bin[j]] += r
		}
		for t := 1; t < len(sum); t++ {
			sum[t] += sum[t-1]
		}
		return nil
	})
	if err != nil {
		return err
	}
	h.sumResponse = floats.Sum(responses)
	h.sqSumResponse = floats.Dot(responses, responses)
	return nil
}

// subset builds the histogram of a sample subset by scanning only those
// samples through the shared bin assignment.
func (h *FeatureHistogram) subset(samples []int, responses []float64, workers int) (*FeatureHistogram, error) {
	if err := h.live("FeatureHistogram.subset"); err != nil {
		return nil, err
	}
	c := &FeatureHistogram{
		thresholds: h.thresholds,
		bins:       h.bins,
		sum:        make([][]float64, len(h.sum)),
		count:      make([][]int, len(h.count)),
		total:      len(samples),
	}
	err := parallel.ForEach(workers, len(h.sum), "histogram_subset", func(f int) error {
		sum := make([]float64, len(h.thresholds[f]))
		count := make([]int, len(h.thresholds[f]))
		bin := h.bins[f]
		for _, j := range samples {
			sum[bin[j]] += responses[j]
			count[bin[j]]++
		}
		for t := 1; t < len(sum); t++ {
			sum[t] += sum[t-1]
			count[t] += count[t-1]
		}
		c.sum[f], c.count[f] = sum, count
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, j := range samples {
		r := responses[j]
		c.sumResponse += r
		c.sqSumResponse += r * r
	}
	return c, nil
}

// Subtract returns a new histogram equal to h minus left, bin by bin. h is
// left intact.
func (h *FeatureHistogram) Subtract(left *FeatureHistogram) (*FeatureHistogram, error) {
	if err := h.live("FeatureHistogram.Subtract"); err != nil {
		return nil, err
	}
	if err := left.live("FeatureHistogram.Subtract"); err != nil {
		return nil, err
	}
	r := &FeatureHistogram{
		thresholds: h.thresholds,
		bins:       h.bins,
		sum:        make([][]float64, len(h.sum)),
		count:      make([][]int, len(h.count)),
	}
	for f := range h.sum {
		r.sum[f] = make([]float64, len(h.sum[f]))
		r.count[f] = make([]int, len(h.count[f]))
	}
	r.subtractFrom(h, left)
	return r, nil
}

// Consume is Subtract that writes the result into h's storage. The returned
// histogram owns that storage; every later call on h fails.
func (h *FeatureHistogram) Consume(left *FeatureHistogram) (*FeatureHistogram, error) {
	if err := h.live("FeatureHistogram.Consume"); err != nil {
		return nil, err
	}
	if err := left.live("FeatureHistogram.Consume"); err != nil {
		return nil, err
	}
	r := &FeatureHistogram{
		thresholds: h.thresholds,
		bins:       h.bins,
		sum:        h.sum,
		count:      h.count,
	}
	r.subtractFrom(h, left)
	*h = FeatureHistogram{consumed: true}
	return r, nil
}

// subtractFrom sets h = parent - left. h may share storage with parent.
func (h *FeatureHistogram) subtractFrom(parent, left *FeatureHistogram) {
	for f := range parent.sum {
		ps, pc := parent.sum[f], parent.count[f]
		ls, lc := left.sum[f], left.count[f]
		hs, hc := h.sum[f], h.count[f]
		for t := range ps {
			hs[t] = ps[t] - ls[t]
			hc[t] = pc[t] - lc[t]
		}
	}
	h.total = parent.total - left.total
	h.sumResponse = parent.sumResponse - left.sumResponse
	h.sqSumResponse = parent.sqSumResponse - left.sqSumResponse
}

// Deviance returns the sum of squared deviations of the covered responses
// from their mean.
func (h *FeatureHistogram) Deviance() float64 {
	if h.total == 0 {
		return 0
	}
	return h.sqSumResponse - h.sumResponse*h.sumResponse/float64(h.total)
}

// Total returns the number of covered samples.
func (h *FeatureHistogram) Total() int { return h.total }

// candidateSplit is the best (feature, bin) pair found by FindBestSplit.
type candidateSplit struct {
	feature int // column index
	bin     int
	score   float64
}

// FindBestSplit scores every bin of the candidate features (column indices,
// scanned in the given order) and returns the one maximizing
//
//	sumLeft²/countLeft + sumRight²/countRight
//
// among bins that leave at least minLeafSupport samples on both sides. Ties
// go to the earlier candidate. ok is false when no bin qualifies.
func (h *FeatureHistogram) FindBestSplit(candidates []int, minLeafSupport, workers int) (best candidateSplit, ok bool, err error) {
	if err := h.live("FeatureHistogram.FindBestSplit"); err != nil {
		return candidateSplit{}, false, err
	}
	chunks := parallel.Partition(len(candidates), workers)
	results := make([]candidateSplit, len(chunks))
	found := make([]bool, len(chunks))

	err = parallel.ForEach(workers, len(chunks), "find_best_split", func(c int) error {
		r := chunks[c]
		for _, f := range candidates[r.Start:r.End] {
			sum, count := h.sum[f], h.count[f]
			for t := range sum {
				cl := count[t]
				cr := h.total - cl
				if cl < minLeafSupport || cr < minLeafSupport {
					continue
				}
				sl := sum[t]
				sr := h.sumResponse - sl
				s := sl*sl/float64(cl) + sr*sr/float64(cr)
				if !found[c] || s > results[c].score {
					results[c] = candidateSplit{feature: f, bin: t, score: s}
					found[c] = true
				}
			}
		}
		return nil
	})
	if err != nil {
		return candidateSplit{}, false, err
	}

	for c := range results {
		if found[c] && (!ok || results[c].score > best.score) {
			best, ok = results[c], true
		}
	}
	return best, ok, nil
}
