package qsim

import (
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/floats"
)

/*
distribution samples basis indices from a fixed probability vector. It is
built once from the final state of a circuit whose measurements are all
terminal, then shared read-only by every batch.
*/
type distribution struct {
	cumulative []float64
}

func newDistribution(probs []float64) *distribution {
	cum := make([]float64, len(probs))
	floats.CumSum(cum, probs)

	// Pin the tail to exactly 1 so rounding never leaves r past the end.
	if total := cum[len(cum)-1]; total > 0 {
		floats.Scale(1/total, cum)
	}
	cum[len(cum)-1] = 1

	return &distribution{cumulative: cum}
}

// sample draws one basis index.
func (d *distribution) sample(rng *rand.Rand) int {
	r := rng.Float64()
	i := sort.Search(len(d.cumulative), func(i int) bool {
		return r < d.cumulative[i]
	})
	if i == len(d.cumulative) {
		i--
	}
	return i
}
