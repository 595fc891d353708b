package batch

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sliceSource is a restartable in-memory source for tests.
type sliceSource struct {
	raws   []any
	labels []float32
	pos    int
}

func (s *sliceSource) Next() (any, float32, error) {
	if s.pos >= len(s.raws) {
		return nil, 0, io.EOF
	}
	raw, label := s.raws[s.pos], s.labels[s.pos]
	s.pos++
	return raw, label, nil
}

func (s *sliceSource) Reset() error {
	s.pos = 0
	return nil
}

// labeledRecords builds n records of the given label, each a distinct
// 1-D record of width w.
func labeledRecords(n int, label float32, w int) (raws []any, labels []float32) {
	for i := 0; i < n; i++ {
		rec := make([]float32, w)
		for j := range rec {
			rec[j] = label*1000 + float32(i)
		}
		raws = append(raws, rec)
		labels = append(labels, label)
	}
	return raws, labels
}

func drain(t *testing.T, b *Batcher) []*Batch {
	t.Helper()
	var out []*Batch
	for {
		batch, err := b.Next()
		if errors.Is(err, io.EOF) {
			return out
		}
		require.NoError(t, err)
		out = append(out, batch)
	}
}

func TestBatcherExactSizeAndLeftoverDrop(t *testing.T) {
	raws, labels := labeledRecords(10, 1, 4)
	b, err := New(&sliceSource{raws: raws, labels: labels}, Config{BatchSize: 4})
	require.NoError(t, err)

	batches := drain(t, b)
	// 10 records at batch size 4: two full batches, two leftovers dropped.
	require.Len(t, batches, 2)
	for _, batch := range batches {
		assert.Equal(t, 4, batch.Len())
		assert.Equal(t, []int{4, 4}, batch.Shape)
		assert.Len(t, batch.Labels, 4)
	}

	// Exhausted batchers stay exhausted.
	_, err = b.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestBatcherBalancedInterleaving(t *testing.T) {
	// 5 records of label 0 and 5 of label 1, arriving label-0 first.
	rawsA, labelsA := labeledRecords(5, 0, 2)
	rawsB, labelsB := labeledRecords(5, 1, 2)
	src := &sliceSource{raws: append(rawsA, rawsB...), labels: append(labelsA, labelsB...)}

	b, err := New(src, Config{BatchSize: 4, BalanceLabels: true, NumLabels: 2})
	require.NoError(t, err)

	batch, err := b.Next()
	require.NoError(t, err)
	require.Equal(t, 4, batch.Len())
	// Round-robin over sorted labels: 0,1,0,1.
	assert.Equal(t, []float32{0, 1, 0, 1}, batch.Labels)
	// Records pop in arrival order within each label.
	assert.Equal(t, []float32{0, 0}, batch.Record(0))
	assert.Equal(t, []float32{1000, 1000}, batch.Record(1))
	assert.Equal(t, []float32{1, 1}, batch.Record(2))
	assert.Equal(t, []float32{1001, 1001}, batch.Record(3))

	// 3 of each label remain: exactly one more balanced batch.
	batch, err = b.Next()
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 1, 0, 1}, batch.Labels)
	_, err = b.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestBatcherBalancedComposition(t *testing.T) {
	raws, labels := labeledRecords(12, 0, 1)
	rawsB, labelsB := labeledRecords(12, 2, 1)
	rawsC, labelsC := labeledRecords(12, 1, 1)
	src := &sliceSource{
		raws:   append(append(raws, rawsB...), rawsC...),
		labels: append(append(labels, labelsB...), labelsC...),
	}

	b, err := New(src, Config{BatchSize: 6, BalanceLabels: true, NumLabels: 3})
	require.NoError(t, err)

	for _, batch := range drain(t, b) {
		counts := map[float32]int{}
		for _, l := range batch.Labels {
			counts[l]++
		}
		assert.Equal(t, map[float32]int{0: 2, 1: 2, 2: 2}, counts)
	}
}

func TestBatcherMaxRecords(t *testing.T) {
	raws, labels := labeledRecords(100, 1, 3)
	b, err := New(&sliceSource{raws: raws, labels: labels}, Config{BatchSize: 8, MaxRecords: 30})
	require.NoError(t, err)

	batches := drain(t, b)
	total := 0
	for _, batch := range batches {
		total += batch.Len()
	}
	// Never exceeds the cap and is always a whole number of batches.
	assert.LessOrEqual(t, total, 30)
	assert.Equal(t, 0, total%8)
	assert.Equal(t, 24, total)
}

func TestBatcherRejectionSkips(t *testing.T) {
	raws, labels := labeledRecords(8, 1, 2)
	src := &sliceSource{raws: raws, labels: labels}

	rejectOdd := func(raw any) (any, error) {
		rec := raw.([]float32)
		if int(rec[0])%2 == 1 {
			return nil, Rejectf("odd record")
		}
		return raw, nil
	}
	b, err := New(src, Config{BatchSize: 4, Normalizer: rejectOdd})
	require.NoError(t, err)

	batch, err := b.Next()
	require.NoError(t, err)
	assert.Equal(t, 4, batch.Len())
	// Only the even records survive.
	assert.Equal(t, []float32{1000, 1000}, batch.Record(0))
	assert.Equal(t, []float32{1002, 1002}, batch.Record(1))

	_, err = b.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestBatcherNormalizerErrorIsFatal(t *testing.T) {
	raws, labels := labeledRecords(4, 1, 2)
	boom := errors.New("boom")
	b, err := New(&sliceSource{raws: raws, labels: labels}, Config{
		BatchSize:  2,
		Normalizer: func(any) (any, error) { return nil, boom },
	})
	require.NoError(t, err)
	_, err = b.Next()
	assert.ErrorIs(t, err, boom)
}

func TestBatcherFlatten(t *testing.T) {
	// Records of shape (10, 5).
	rec := make([][]float32, 10)
	for i := range rec {
		rec[i] = make([]float32, 5)
	}
	var raws []any
	var labels []float32
	for i := 0; i < 6; i++ {
		raws = append(raws, rec)
		labels = append(labels, 1)
	}

	flat, err := New(&sliceSource{raws: raws, labels: labels}, Config{BatchSize: 3, Flatten: true})
	require.NoError(t, err)
	batch, err := flat.Next()
	require.NoError(t, err)
	assert.Equal(t, []int{3, 50}, batch.Shape)

	stacked, err := New(&sliceSource{raws: raws, labels: labels}, Config{BatchSize: 3})
	require.NoError(t, err)
	batch, err = stacked.Next()
	require.NoError(t, err)
	assert.Equal(t, []int{3, 10, 5}, batch.Shape)
}

func TestBatcherShapeMismatch(t *testing.T) {
	src := &sliceSource{
		raws:   []any{[]float32{1, 2}, []float32{1, 2, 3}},
		labels: []float32{0, 1},
	}
	b, err := New(src, Config{BatchSize: 2})
	require.NoError(t, err)
	_, err = b.Next()
	assert.Error(t, err)
}

func TestBatcherReset(t *testing.T) {
	raws, labels := labeledRecords(8, 1, 2)
	b, err := New(&sliceSource{raws: raws, labels: labels}, Config{BatchSize: 4})
	require.NoError(t, err)

	assert.Len(t, drain(t, b), 2)
	require.NoError(t, b.Reset())
	assert.Len(t, drain(t, b), 2)
}

func TestNewValidatesConfig(t *testing.T) {
	src := &sliceSource{}

	_, err := New(src, Config{BatchSize: 0})
	assert.Error(t, err)

	_, err = New(src, Config{BatchSize: 4, BalanceLabels: true})
	assert.Error(t, err)

	_, err = New(src, Config{BatchSize: 4, BalanceLabels: true, NumLabels: 3})
	assert.Error(t, err)

	_, err = New(nil, Config{BatchSize: 4})
	assert.Error(t, err)
}

func TestAsValuesCoercions(t *testing.T) {
	values, shape, err := AsValues([]float64{1, 2})
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2}, values)
	assert.Equal(t, []int{2}, shape)

	values, shape, err = AsValues(float64(7))
	require.NoError(t, err)
	assert.Equal(t, []float32{7}, values)
	assert.Equal(t, []int{1}, shape)

	_, _, err = AsValues([][]float32{{1, 2}, {3}})
	assert.Error(t, err)

	_, _, err = AsValues("text needs a transformer")
	assert.Error(t, err)
}

func TestBatchRecordAccess(t *testing.T) {
	b := &Batch{
		Data:   []float32{1, 2, 3, 4, 5, 6},
		Shape:  []int{2, 3},
		Labels: []float32{0, 1},
	}
	assert.Equal(t, []float32{1, 2, 3}, b.Record(0))
	assert.Equal(t, []float32{4, 5, 6}, b.Record(1))

	// An empty batch has no records to return.
	empty := &Batch{}
	assert.Nil(t, empty.Record(0))
	zero := &Batch{Shape: []int{0, 3}}
	assert.Nil(t, zero.Record(0))
}
