package trees

import (
	"math"
	"sort"

	"github.com/YuminosukeSato/ranklib/core/parallel"
	"gonum.org/v1/gonum/mat"
)

// thresholdSentinel closes every threshold table so that each sample falls
// into some bin. A split on it would leave the right child empty.
const thresholdSentinel = math.MaxFloat64

// sortByFeature returns, for every column of x, the row indices ordered by
// ascending feature value. Ties keep row order.
func sortByFeature(x *mat.Dense, workers int) ([][]int, error) {
	rows, cols := x.Dims()
	sorted := make([][]int, cols)
	err := parallel.ForEach(workers, cols, "sort_features", func(f int) error {
		idx := make([]int, rows)
		for i := range idx {
			idx[i] = i
		}
		sort.SliceStable(idx, func(a, b int) bool { return x.At(idx[a], f) < x.At(idx[b], f) })
		sorted[f] = idx
		return nil
	})
	return sorted, err
}

// buildThresholds computes the candidate threshold table of every feature.
// A feature with at most limit unique values (or limit == -1) uses all of
// them; otherwise limit+1 evenly spaced cutoffs from min to max are used.
// Each table ends with thresholdSentinel.
func buildThresholds(x *mat.Dense, sorted [][]int, limit int) [][]float64 {
	tables := make([][]float64, len(sorted))
	for f, idx := range sorted {
		var uniques []float64
		for _, row := range idx {
			v := x.At(row, f)
			if len(uniques) == 0 || v != uniques[len(uniques)-1] {
				uniques = append(uniques, v)
			}
		}

		var th []float64
		if limit == -1 || len(uniques) <= limit {
			th = append(uniques, thresholdSentinel)
		} else {
			lo, hi := uniques[0], uniques[len(uniques)-1]
			step := math.Abs(hi-lo) / float64(limit)
			th = make([]float64, 0, limit+2)
			for i := 0; i < limit; i++ {
				th = append(th, lo+float64(i)*step)
			}
			th = append(th, hi, thresholdSentinel)
		}
		tables[f] = th
	}
	return tables
}
