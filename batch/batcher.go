package batch

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/rs/zerolog"
)

// Config holds the batching parameters.
type Config struct {
	// BatchSize is the exact number of records per emitted batch.
	BatchSize int

	// Normalizer maps raw values to normalized ones; nil means Identity.
	Normalizer Normalizer

	// Transformer maps normalized values to numeric records; nil means
	// AsValues.
	Transformer Transformer

	// Flatten collapses all non-leading record dimensions, so batches come
	// out with shape (BatchSize, flatSize).
	Flatten bool

	// MaxRecords caps the total number of records yielded across all
	// batches. Zero means unlimited. The cap is never exceeded: a batch
	// that would cross it is not emitted.
	MaxRecords int

	// BalanceLabels makes every batch carry BatchSize/NumLabels records of
	// each label, interleaved in sorted label order.
	BalanceLabels bool

	// NumLabels is the number of distinct labels expected in the stream.
	// Required when BalanceLabels is set; BatchSize must be divisible by it.
	NumLabels int

	// Logger receives debug output. Defaults to a no-op logger.
	Logger zerolog.Logger
}

type pending struct {
	values []float32
	label  float32
}

// Batcher accumulates records from a Source and emits fixed-size batches.
// It pulls lazily: records are consumed only while a caller is inside Next.
// Records left over when the source is exhausted are dropped; no partial
// batch is ever emitted.
type Batcher struct {
	src Source
	cfg Config
	log zerolog.Logger

	recordShape []int
	flatSize    int

	queue   []pending             // unbalanced mode
	byLabel map[float32][]pending // balanced mode
	yielded int
	done    bool
}

// New validates cfg and returns a Batcher over src.
func New(src Source, cfg Config) (*Batcher, error) {
	if src == nil {
		return nil, errors.New("nil source")
	}
	if cfg.BatchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", cfg.BatchSize)
	}
	if cfg.BalanceLabels {
		if cfg.NumLabels <= 0 {
			return nil, errors.New("balancing labels requires NumLabels")
		}
		if cfg.BatchSize%cfg.NumLabels != 0 {
			return nil, fmt.Errorf("batch size %d is not divisible by %d labels", cfg.BatchSize, cfg.NumLabels)
		}
	}
	if cfg.Normalizer == nil {
		cfg.Normalizer = Identity
	}
	if cfg.Transformer == nil {
		cfg.Transformer = AsValues
	}
	b := &Batcher{src: src, cfg: cfg, log: cfg.Logger}
	b.clear()
	return b, nil
}

// BatchSize returns the configured batch size.
func (b *Batcher) BatchSize() int { return b.cfg.BatchSize }

func (b *Batcher) clear() {
	b.queue = nil
	b.byLabel = make(map[float32][]pending)
	b.yielded = 0
	b.done = false
	b.recordShape = nil
	b.flatSize = 0
}

// Reset restarts the batcher and its source, discarding any accumulated
// records and the yielded-record count.
func (b *Batcher) Reset() error {
	if err := b.src.Reset(); err != nil {
		return fmt.Errorf("reset source: %w", err)
	}
	b.clear()
	return nil
}

// Next returns the next full batch, or io.EOF once the source is exhausted
// or emitting another batch would exceed MaxRecords.
func (b *Batcher) Next() (*Batch, error) {
	if b.done {
		return nil, io.EOF
	}
	for {
		if b.dispatchReady() {
			if b.cfg.MaxRecords > 0 && b.yielded+b.cfg.BatchSize > b.cfg.MaxRecords {
				b.done = true
				return nil, io.EOF
			}
			batch, err := b.assemble()
			if err != nil {
				return nil, err
			}
			b.yielded += batch.Len()
			b.log.Debug().
				Int("yielded", b.yielded).
				Ints("shape", batch.Shape).
				Msg("batch dispatched")
			return batch, nil
		}

		raw, label, err := b.src.Next()
		if errors.Is(err, io.EOF) {
			// Anything still queued is below a full batch; drop it.
			b.done = true
			return nil, io.EOF
		}
		if err != nil {
			return nil, fmt.Errorf("read record: %w", err)
		}
		if err := b.accumulate(raw, label); err != nil {
			return nil, err
		}
	}
}

// accumulate normalizes and transforms one record and appends it to the
// appropriate queue. Rejected records are skipped.
func (b *Batcher) accumulate(raw any, label float32) error {
	normalized, err := b.cfg.Normalizer(raw)
	if errors.Is(err, ErrRejected) {
		b.log.Debug().Err(err).Msg("record skipped")
		return nil
	}
	if err != nil {
		return fmt.Errorf("normalize record: %w", err)
	}
	values, shape, err := b.cfg.Transformer(normalized)
	if err != nil {
		return fmt.Errorf("transform record: %w", err)
	}
	if b.recordShape == nil {
		b.recordShape = append([]int(nil), shape...)
		b.flatSize = len(values)
	} else if !shapeEqual(shape, b.recordShape) {
		return fmt.Errorf("record shape %v does not match first record's shape %v", shape, b.recordShape)
	}
	p := pending{values: values, label: label}
	if b.cfg.BalanceLabels {
		b.byLabel[label] = append(b.byLabel[label], p)
	} else {
		b.queue = append(b.queue, p)
	}
	return nil
}

// dispatchReady reports whether a full batch can be assembled from the
// queued records.
func (b *Batcher) dispatchReady() bool {
	if b.cfg.BalanceLabels {
		if len(b.byLabel) != b.cfg.NumLabels {
			return false
		}
		perLabel := b.cfg.BatchSize / b.cfg.NumLabels
		for _, q := range b.byLabel {
			if len(q) < perLabel {
				return false
			}
		}
		return true
	}
	return len(b.queue) >= b.cfg.BatchSize
}

// assemble pops queued records into a batch of exactly BatchSize records.
// Balanced batches cycle through labels in sorted order, popping one record
// per label; a temporarily empty label queue is skipped.
func (b *Batcher) assemble() (*Batch, error) {
	picked := make([]pending, 0, b.cfg.BatchSize)
	if b.cfg.BalanceLabels {
		labels := make([]float32, 0, len(b.byLabel))
		for l := range b.byLabel {
			labels = append(labels, l)
		}
		sort.Slice(labels, func(i, j int) bool { return labels[i] < labels[j] })

		idx := 0
		popped := 0
		for len(picked) < b.cfg.BatchSize {
			label := labels[idx]
			if q := b.byLabel[label]; len(q) > 0 {
				picked = append(picked, q[0])
				b.byLabel[label] = q[1:]
				popped++
			}
			idx++
			if idx == len(labels) {
				if popped == 0 {
					return nil, errors.New("not enough queued records to fill a balanced batch")
				}
				idx = 0
				popped = 0
			}
		}
	} else {
		picked = append(picked, b.queue[:b.cfg.BatchSize]...)
		b.queue = b.queue[b.cfg.BatchSize:]
	}

	data := make([]float32, 0, b.cfg.BatchSize*b.flatSize)
	labels := make([]float32, 0, b.cfg.BatchSize)
	for _, p := range picked {
		data = append(data, p.values...)
		labels = append(labels, p.label)
	}

	var shape []int
	if b.cfg.Flatten {
		shape = []int{b.cfg.BatchSize, b.flatSize}
	} else {
		shape = append([]int{b.cfg.BatchSize}, b.recordShape...)
	}
	return &Batch{Data: data, Shape: shape, Labels: labels}, nil
}

func shapeEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
