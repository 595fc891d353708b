package split

import (
	"errors"
	"fmt"

	"github.com/minibatch-io/minibatch/batch"
	"github.com/minibatch-io/minibatch/store"
)

// dataName and labelsName build the per-bin dataset names.
func dataName(bin int) string   { return fmt.Sprintf("data_%d", bin) }
func labelsName(bin int) string { return fmt.Sprintf("labels_%d", bin) }

// WriteBatch appends b into bin's data and labels datasets, growing their
// leading dimension by the batch length, and returns an updated copy of the
// per-bin size vector. The caller's sizes slice is not modified.
func WriteBatch(st store.Store, sizes []int, bin int, b *batch.Batch) ([]int, error) {
	if bin < 0 || bin >= len(sizes) {
		return nil, fmt.Errorf("bin %d out of range for %d bins", bin, len(sizes))
	}
	if b.Len() != len(b.Labels) {
		return nil, fmt.Errorf("data batch of %d records does not match %d labels", b.Len(), len(b.Labels))
	}

	data, err := st.Open(dataName(bin))
	if err != nil {
		return nil, err
	}
	labels, err := st.Open(labelsName(bin))
	if err != nil {
		return nil, err
	}

	start := sizes[bin]
	end := start + b.Len()
	if err := data.Resize(end); err != nil {
		return nil, err
	}
	if err := labels.Resize(end); err != nil {
		return nil, err
	}
	if err := data.WriteSlice(start, b.Data); err != nil {
		return nil, err
	}
	if err := labels.WriteSlice(start, b.Labels); err != nil {
		return nil, err
	}

	updated := append([]int(nil), sizes...)
	updated[bin] = end
	return updated, nil
}

// Sizes probes st for consecutive bins and returns their record counts
// without needing the original split probabilities. Probing stops at the
// first bin whose data dataset is absent.
func Sizes(st store.Store) ([]int, error) {
	var sizes []int
	for bin := 0; ; bin++ {
		ds, err := st.Open(dataName(bin))
		if errors.Is(err, store.ErrNotFound) {
			return sizes, nil
		}
		if err != nil {
			return nil, err
		}
		sizes = append(sizes, ds.Len())
	}
}

// createBinDatasets creates empty data/labels datasets for every bin, typed
// and shaped from the first observed batch. Leading dimensions start at
// zero so recovered sizes always match written counts.
func createBinDatasets(st store.Store, nbSlices int, first *batch.Batch) error {
	recordShape := first.RecordShape()
	for bin := 0; bin < nbSlices; bin++ {
		if _, err := st.Create(dataName(bin), store.Float32, recordShape); err != nil {
			return fmt.Errorf("create bin %d data: %w", bin, err)
		}
		if _, err := st.Create(labelsName(bin), store.Float32, []int{1}); err != nil {
			return fmt.Errorf("create bin %d labels: %w", bin, err)
		}
	}
	return nil
}
