// Package batch turns a stream of labeled records into fixed-size numeric
// batches. Records are normalized, transformed into fixed-shape float32
// arrays, and accumulated until a full batch can be dispatched; batches can
// optionally be balanced so every label contributes an equal share.
package batch

import (
	"errors"
	"fmt"
)

// ErrRejected marks a record that normalization deemed unusable (too short,
// unusable rating, and so on). The batcher drops such records and keeps
// consuming; any other normalization error is fatal.
var ErrRejected = errors.New("record rejected")

// Rejectf builds a rejection error carrying ErrRejected, for use by
// Normalizer implementations.
func Rejectf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrRejected, fmt.Sprintf(format, args...))
}

// Source yields one labeled record at a time. Next returns io.EOF once the
// stream is exhausted; Reset restarts it from the beginning where the
// underlying source supports that.
type Source interface {
	Next() (raw any, label float32, err error)
	Reset() error
}

// Normalizer maps a raw record value to a normalized one. It returns an
// error wrapping ErrRejected to drop the record.
type Normalizer func(raw any) (any, error)

// Transformer maps a normalized record value to a flat float32 array plus
// its shape. The shape must be identical for every record in one run.
type Transformer func(normalized any) (values []float32, shape []int, err error)

// Batch is a fixed-size group of transformed records. Data is a flat
// row-major buffer of Shape; Shape always has the batch size as its leading
// dimension. Labels holds one label per record and is materialized with
// shape (len(Labels), 1).
type Batch struct {
	Data   []float32
	Shape  []int
	Labels []float32
}

// Len returns the number of records in the batch.
func (b *Batch) Len() int {
	if len(b.Shape) == 0 {
		return 0
	}
	return b.Shape[0]
}

// RecordShape returns the per-record trailing dimensions.
func (b *Batch) RecordShape() []int {
	if len(b.Shape) == 0 {
		return nil
	}
	return append([]int(nil), b.Shape[1:]...)
}

// Record returns a copy of the i-th record's values, or nil for an empty
// batch.
func (b *Batch) Record(i int) []float32 {
	if b.Len() == 0 {
		return nil
	}
	n := len(b.Data) / b.Len()
	out := make([]float32, n)
	copy(out, b.Data[i*n:(i+1)*n])
	return out
}

// AsValues is the default Transformer. It coerces common numeric shapes the
// way an array constructor would: flat float slices become 1-D records,
// nested slices become 2-D records (rows must be equally sized), and scalars
// become single-element records.
func AsValues(normalized any) ([]float32, []int, error) {
	switch v := normalized.(type) {
	case []float32:
		out := make([]float32, len(v))
		copy(out, v)
		return out, []int{len(v)}, nil
	case []float64:
		out := make([]float32, len(v))
		for i, x := range v {
			out[i] = float32(x)
		}
		return out, []int{len(v)}, nil
	case [][]float32:
		if len(v) == 0 {
			return nil, nil, errors.New("empty nested record")
		}
		cols := len(v[0])
		out := make([]float32, 0, len(v)*cols)
		for i, row := range v {
			if len(row) != cols {
				return nil, nil, fmt.Errorf("ragged record: row %d has %d values, expected %d", i, len(row), cols)
			}
			out = append(out, row...)
		}
		return out, []int{len(v), cols}, nil
	case float32:
		return []float32{v}, []int{1}, nil
	case float64:
		return []float32{float32(v)}, []int{1}, nil
	case int:
		return []float32{float32(v)}, []int{1}, nil
	default:
		return nil, nil, fmt.Errorf("cannot coerce %T to a numeric record; provide a Transformer", normalized)
	}
}

// Identity is the default Normalizer.
func Identity(raw any) (any, error) { return raw, nil }
