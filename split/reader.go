package split

import (
	"errors"
	"fmt"
	"io"
	"math/rand"

	"github.com/minibatch-io/minibatch/store"
)

// Reader iterates over one persisted bin, yielding individual records. It
// implements batch.Source, so its output can be fed straight back into a
// Batcher. When shuffling is enabled a fresh permutation is drawn on every
// iteration pass.
type Reader struct {
	data    store.Dataset
	labels  store.Dataset
	shuffle bool
	rng     *rand.Rand
	order   []int
	pos     int
}

// NewReader opens bin's datasets in st. A bin whose datasets are absent is
// treated as empty.
func NewReader(st store.Store, bin int, shuffle bool, rng *rand.Rand) (*Reader, error) {
	data, err := st.Open(dataName(bin))
	if errors.Is(err, store.ErrNotFound) {
		return &Reader{shuffle: shuffle, rng: rng}, nil
	}
	if err != nil {
		return nil, err
	}
	labels, err := st.Open(labelsName(bin))
	if err != nil {
		return nil, err
	}
	r := &Reader{data: data, labels: labels, shuffle: shuffle, rng: rng}
	r.reorder()
	return r, nil
}

// Len returns the number of records in the bin.
func (r *Reader) Len() int {
	if r.data == nil {
		return 0
	}
	return r.data.Len()
}

func (r *Reader) reorder() {
	n := r.Len()
	r.order = make([]int, n)
	for i := range r.order {
		r.order[i] = i
	}
	if r.shuffle {
		r.rng.Shuffle(n, func(i, j int) {
			r.order[i], r.order[j] = r.order[j], r.order[i]
		})
	}
	r.pos = 0
}

// Next implements batch.Source. Records with a singleton per-record shape
// (1,) are unwrapped to a scalar float32; everything else comes out as a
// []float32 copy. Labels are always unwrapped to scalars.
func (r *Reader) Next() (raw any, label float32, err error) {
	if r.pos >= len(r.order) {
		return nil, 0, io.EOF
	}
	idx := r.order[r.pos]
	r.pos++

	values, err := r.data.ReadSlice(idx, 1)
	if err != nil {
		return nil, 0, fmt.Errorf("read record %d: %w", idx, err)
	}
	lab, err := r.labels.ReadSlice(idx, 1)
	if err != nil {
		return nil, 0, fmt.Errorf("read label %d: %w", idx, err)
	}

	shape := r.data.RecordShape()
	if len(shape) == 1 && shape[0] == 1 {
		return values[0], lab[0], nil
	}
	return values, lab[0], nil
}

// Reset implements batch.Source, restarting the pass and re-drawing the
// shuffle order.
func (r *Reader) Reset() error {
	r.reorder()
	return nil
}
