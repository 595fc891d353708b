// Package split partitions a stream of batches into persisted bins
// (train/test/validation slices) and reads them back. Bin assignment is
// probabilistic per batch, so split proportions are approximate and improve
// with the number of batches.
package split

import (
	"errors"
	"fmt"
	"math/rand"
)

// ErrInvalidSplits is returned when a split probability vector is not a
// sequence of values in [0,1) summing to strictly less than 1.
var ErrInvalidSplits = errors.New("invalid splits")

// Pick selects a bin index in [0, len(splits)] for one batch. splits holds
// the probabilities for the first len(splits) bins; the final bin implicitly
// receives 1-sum(splits). The caller's slice is never modified.
func Pick(rng *rand.Rand, splits []float64) (int, error) {
	cutoffs, err := cumulativeCutoffs(splits)
	if err != nil {
		return 0, err
	}
	draw := rng.Float64()
	for bin, cutoff := range cutoffs {
		if draw < cutoff {
			return bin, nil
		}
	}
	// Cutoffs end at 1.0 and draw is in [0,1); rounding can still land us
	// here, in which case the last bin takes it.
	return len(cutoffs) - 1, nil
}

// cumulativeCutoffs validates splits and returns the strictly increasing
// cutoffs for all len(splits)+1 bins, the last being 1.
func cumulativeCutoffs(splits []float64) ([]float64, error) {
	sum := 0.0
	for _, p := range splits {
		if p < 0 || p >= 1 {
			return nil, fmt.Errorf("%w: probability %v outside [0,1)", ErrInvalidSplits, p)
		}
		sum += p
	}
	if sum >= 1 {
		return nil, fmt.Errorf("%w: probabilities sum to %v, must be < 1", ErrInvalidSplits, sum)
	}
	cutoffs := make([]float64, 0, len(splits)+1)
	acc := 0.0
	for _, p := range splits {
		acc += p
		cutoffs = append(cutoffs, acc)
	}
	return append(cutoffs, 1.0), nil
}
