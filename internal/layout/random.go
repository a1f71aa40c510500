package layout

import (
	"fmt"
	"hash/fnv"
	"math/rand/v2"
)

// seededRNG builds a deterministic PCG source from a user-visible seed.
// Non-cryptographic randomness is intentional; the layout only needs
// reproducibility, not unpredictability.
func seededRNG(seed int64) *rand.Rand {
	return rand.New(rand.NewPCG(seedWord(seed, "x"), seedWord(seed, "y")))
}

func seedWord(seed int64, salt string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(fmt.Sprintf("%d:%s", seed, salt)))
	return h.Sum64()
}

// weightedIndex draws an index with probability proportional to its weight.
// Non-positive weights are never selected; when every weight is non-positive
// the first index with any remaining weight semantics falls back to 0.
func weightedIndex(rng *rand.Rand, weights []float64) int {
	sum := 0.0
	for _, w := range weights {
		if w > 0 {
			sum += w
		}
	}
	if sum <= 0 {
		for i, w := range weights {
			if w != 0 {
				return i
			}
		}
		return 0
	}

	r := rng.Float64() * sum
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		r -= w
		if r < 0 {
			return i
		}
	}
	// Floating-point underflow on the final subtraction: return the last
	// positive-weight index.
	for i := len(weights) - 1; i >= 0; i-- {
		if weights[i] > 0 {
			return i
		}
	}
	return 0
}
