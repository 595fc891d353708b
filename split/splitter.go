package split

import (
	"errors"
	"fmt"
	"io"
	"math/rand"

	"github.com/rs/zerolog"

	"github.com/minibatch-io/minibatch/batch"
	"github.com/minibatch-io/minibatch/store"
)

// BatchSource yields batches until io.EOF. *batch.Batcher implements it.
type BatchSource interface {
	Next() (*batch.Batch, error)
}

// Option configures optional behavior of Split.
type Option func(*options)

type options struct {
	seed      int64
	seeded    bool
	overwrite bool
	shuffle   bool
	logger    zerolog.Logger
}

// WithSeed fixes the random number generator seed used for bin picking and
// reader shuffling, making the split reproducible.
func WithSeed(seed int64) Option {
	return func(o *options) {
		o.seed = seed
		o.seeded = true
	}
}

// WithOverwrite re-splits into the store even when it already holds data.
func WithOverwrite(overwrite bool) Option {
	return func(o *options) { o.overwrite = overwrite }
}

// WithShuffle makes the returned readers iterate in shuffled order,
// re-drawn on every pass.
func WithShuffle(shuffle bool) Option {
	return func(o *options) { o.shuffle = shuffle }
}

// WithLogger sets a logger for split progress. Defaults to a no-op logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// Split partitions batches into len(splits)+1 persisted bins in st and
// returns one Reader per bin plus the per-bin record counts.
//
// When st already holds data and overwriting was not requested, batches may
// be nil: the existing bins are reused untouched and their sizes recovered
// from the datasets' lengths. Otherwise every incoming batch is assigned a
// bin by Pick and appended via WriteBatch; the per-bin datasets are created
// from the first batch's shape.
func Split(batches BatchSource, st store.Store, splits []float64, opts ...Option) ([]*Reader, []int, error) {
	if _, err := cumulativeCutoffs(splits); err != nil {
		return nil, nil, err
	}
	o := options{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	var rng *rand.Rand
	if o.seeded {
		rng = rand.New(rand.NewSource(o.seed))
	} else {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}

	nbSlices := len(splits) + 1
	sizes := make([]int, nbSlices)

	if o.overwrite || !st.Exists() {
		if batches == nil {
			return nil, nil, errors.New("nil batch source with no existing store to reuse")
		}
		// A fresh split must not inherit bins from a previous run, which
		// may have used different split proportions.
		if err := st.Clear(); err != nil {
			return nil, nil, fmt.Errorf("clear store: %w", err)
		}
		if err := writeAll(batches, st, splits, sizes, rng, o.logger); err != nil {
			return nil, nil, err
		}
	} else {
		for bin := 0; bin < nbSlices; bin++ {
			ds, err := st.Open(dataName(bin))
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			if err != nil {
				return nil, nil, err
			}
			sizes[bin] = ds.Len()
		}
		o.logger.Debug().Ints("sizes", sizes).Msg("recovered existing bins")
	}

	readers := make([]*Reader, nbSlices)
	for bin := 0; bin < nbSlices; bin++ {
		r, err := NewReader(st, bin, o.shuffle, rng)
		if err != nil {
			return nil, nil, fmt.Errorf("open reader for bin %d: %w", bin, err)
		}
		readers[bin] = r
	}
	return readers, sizes, nil
}

// writeAll drains batches into st, updating sizes in place.
func writeAll(batches BatchSource, st store.Store, splits []float64, sizes []int, rng *rand.Rand, logger zerolog.Logger) error {
	initialized := false
	for {
		b, err := batches.Next()
		if errors.Is(err, io.EOF) {
			logger.Debug().Ints("sizes", sizes).Msg("split complete")
			return nil
		}
		if err != nil {
			return fmt.Errorf("pull batch: %w", err)
		}
		if !initialized {
			if err := createBinDatasets(st, len(sizes), b); err != nil {
				return err
			}
			initialized = true
		}
		bin, err := Pick(rng, splits)
		if err != nil {
			return err
		}
		updated, err := WriteBatch(st, sizes, bin, b)
		if err != nil {
			return fmt.Errorf("write batch to bin %d: %w", bin, err)
		}
		copy(sizes, updated)
	}
}
