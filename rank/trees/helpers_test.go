package trees

import (
	"math/rand/v2"
	"strconv"
	"testing"

	"github.com/YuminosukeSato/ranklib/core/data"
	"gonum.org/v1/gonum/mat"
)

// randomLists builds lists whose graded labels (0..2) correlate with
// feature 1; the other features are noise.
func randomLists(t testing.TB, seed uint64, prefix string, nLists, docs, features int) []*data.RankList {
	t.Helper()
	rng := rand.New(rand.NewPCG(seed, 99))
	lists := make([]*data.RankList, nLists)
	for q := range lists {
		qid := prefix + "-" + strconv.Itoa(q)
		points := make([]*data.DataPoint, docs)
		for d := range points {
			fv := make([]float64, features)
			for f := range fv {
				fv[f] = float64(rng.IntN(20)) / 4
			}
			label := 0.0
			switch {
			case fv[0] > 3.5:
				label = 2
			case fv[0] > 2:
				label = 1
			}
			points[d] = data.NewDataPoint(label, qid, fv)
		}
		rl, err := data.NewRankList(points)
		if err != nil {
			t.Fatal(err)
		}
		lists[q] = rl
	}
	return lists
}

// separableLists builds two-document lists where feature 1 of the relevant
// document is always higher and feature 2 is noise. The irrelevant document
// comes first.
func separableLists(t testing.TB, seed uint64, n int) []*data.RankList {
	t.Helper()
	rng := rand.New(rand.NewPCG(seed, 7))
	lists := make([]*data.RankList, n)
	for q := range lists {
		qid := "sep-" + strconv.Itoa(q)
		irrelevant := data.NewDataPoint(0, qid, []float64{0.45 * rng.Float64(), rng.Float64()})
		relevant := data.NewDataPoint(1, qid, []float64{0.55 + 0.45*rng.Float64(), rng.Float64()})
		rl, err := data.NewRankList([]*data.DataPoint{irrelevant, relevant})
		if err != nil {
			t.Fatal(err)
		}
		lists[q] = rl
	}
	return lists
}

// trainingFixture prepares the per-run structures Fit builds internally.
type trainingFixture struct {
	x          *mat.Dense
	sorted     [][]int
	thresholds [][]float64
	responses  []float64
	samples    []int
}

func newTrainingFixture(t testing.TB, seed uint64, rows, cols, limit int) *trainingFixture {
	t.Helper()
	rng := rand.New(rand.NewPCG(seed, 11))
	x := mat.NewDense(rows, cols, nil)
	responses := make([]float64, rows)
	for i := 0; i < rows; i++ {
		for f := 0; f < cols; f++ {
			x.Set(i, f, float64(rng.IntN(50))/10)
		}
		responses[i] = x.At(i, 0) - 2.5 + rng.NormFloat64()*0.3
	}
	sorted, err := sortByFeature(x, 4)
	if err != nil {
		t.Fatal(err)
	}
	samples := make([]int, rows)
	for i := range samples {
		samples[i] = i
	}
	return &trainingFixture{
		x:          x,
		sorted:     sorted,
		thresholds: buildThresholds(x, sorted, limit),
		responses:  responses,
		samples:    samples,
	}
}

func (fx *trainingFixture) root(t testing.TB, workers int) *FeatureHistogram {
	t.Helper()
	h, err := newRootHistogram(fx.x, fx.sorted, fx.thresholds, fx.responses, workers)
	if err != nil {
		t.Fatal(err)
	}
	return h
}

func (fx *trainingFixture) grower(numLeaves, minLeafSupport, workers int) *grower {
	return &grower{
		thresholds:     fx.thresholds,
		responses:      fx.responses,
		numLeaves:      numLeaves,
		minLeafSupport: minLeafSupport,
		samplingRate:   1,
		workers:        workers,
		rng:            data.NewRand(1),
	}
}

func quietParams() TrainingParams {
	p := DefaultTrainingParams()
	p.NumTrees = 10
	p.NumLeaves = 4
	p.EarlyStoppingRounds = 0
	p.Workers = 2
	return p
}
