package data

import "math/rand/v2"

// NewRand returns a deterministic generator for a seed.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Bootstrap draws int(rate*len(lists)) lists uniformly with replacement. It
// also returns the out-of-bag lists (never drawn), in their original order.
func Bootstrap(lists []*RankList, rate float64, rng *rand.Rand) (bag, oob []*RankList) {
	size := int(rate * float64(len(lists)))
	if size < 1 && len(lists) > 0 {
		size = 1
	}
	used := make([]bool, len(lists))
	bag = make([]*RankList, size)
	for i := range bag {
		k := rng.IntN(len(lists))
		used[k] = true
		bag[i] = lists[k]
	}
	for i, l := range lists {
		if !used[i] {
			oob = append(oob, l)
		}
	}
	return bag, oob
}
