package split

import (
	"fmt"

	"github.com/minibatch-io/minibatch/batch"
	"github.com/minibatch-io/minibatch/store"
)

// Pipeline configures SplitAndBatch.
type Pipeline struct {
	// BatchSize applies to both the splitting pass and the returned
	// re-batchers.
	BatchSize int

	// Splits are the bin probabilities; the final bin gets the remainder.
	Splits []float64

	// Normalizer is applied once, during the splitting pass. Stored
	// records are already normalized.
	Normalizer batch.Normalizer

	// Transformer is applied by the returned re-batchers, with flattening.
	Transformer batch.Transformer

	// MaxRecords caps the splitting pass. Zero means unlimited.
	MaxRecords int

	// BalanceLabels/NumLabels apply to the splitting pass.
	BalanceLabels bool
	NumLabels     int

	// Seed drives bin picking and shuffling.
	Seed int64

	// Shuffle makes the per-bin readers iterate in shuffled order.
	Shuffle bool
}

// SplitAndBatch runs the most common workflow in one call: batch src with
// the pipeline's normalizer, persist the batches into st split across bins,
// then return one re-batcher per bin that applies the transformer with
// flattening. If st already holds data it is reused without recomputation.
// The returned size vector counts records per bin.
func SplitAndBatch(src batch.Source, st store.Store, p Pipeline) ([]*batch.Batcher, []int, error) {
	var batches BatchSource
	if !st.Exists() {
		b, err := batch.New(src, batch.Config{
			BatchSize:     p.BatchSize,
			Normalizer:    p.Normalizer,
			MaxRecords:    p.MaxRecords,
			BalanceLabels: p.BalanceLabels,
			NumLabels:     p.NumLabels,
		})
		if err != nil {
			return nil, nil, err
		}
		batches = b
	}

	readers, sizes, err := Split(batches, st, p.Splits, WithSeed(p.Seed), WithShuffle(p.Shuffle))
	if err != nil {
		return nil, nil, err
	}

	rebatchers := make([]*batch.Batcher, len(readers))
	for i, r := range readers {
		rb, err := batch.New(r, batch.Config{
			BatchSize:   p.BatchSize,
			Transformer: p.Transformer,
			Flatten:     true,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("build re-batcher for bin %d: %w", i, err)
		}
		rebatchers[i] = rb
	}
	return rebatchers, sizes, nil
}
