// Package store provides random-access storage of named, resizable, typed
// array datasets. A dataset is a dense array whose leading dimension (the
// record count) can grow or shrink, while its trailing per-record shape and
// element type are fixed at creation. Slices of records can be read and
// written at arbitrary offsets.
package store

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by Open when a named dataset does not exist.
var ErrNotFound = errors.New("dataset not found")

// DType identifies the element type of a dataset.
type DType uint8

const (
	// Float32 is a little-endian IEEE 754 32-bit float.
	Float32 DType = iota + 1
)

// Size returns the element size in bytes.
func (d DType) Size() int {
	switch d {
	case Float32:
		return 4
	default:
		return 0
	}
}

func (d DType) String() string {
	switch d {
	case Float32:
		return "float32"
	default:
		return fmt.Sprintf("dtype(%d)", uint8(d))
	}
}

// Dataset is one named resizable array. The leading dimension is the record
// count; RecordShape describes the fixed trailing dimensions.
type Dataset interface {
	// Name returns the dataset name within its store.
	Name() string

	// DType returns the element type fixed at creation.
	DType() DType

	// RecordShape returns the per-record trailing dimensions fixed at
	// creation. A copy is returned; callers may modify it freely.
	RecordShape() []int

	// Len returns the current leading-dimension length (record count).
	Len() int

	// Resize grows or shrinks the leading dimension to n records. Newly
	// exposed records read as zero.
	Resize(n int) error

	// WriteSlice writes whole records starting at record offset start.
	// len(flat) must be a multiple of the per-record size and the target
	// range must lie within the current length.
	WriteSlice(start int, flat []float32) error

	// ReadSlice reads count whole records starting at record offset start.
	ReadSlice(start, count int) ([]float32, error)
}

// Store is a container of named datasets.
type Store interface {
	// Create makes a new dataset with zero records, replacing any dataset
	// with the same name.
	Create(name string, dtype DType, recordShape []int) (Dataset, error)

	// Open returns an existing dataset, or ErrNotFound.
	Open(name string) (Dataset, error)

	// Exists reports whether the store held any datasets when it was
	// opened or has had any created since.
	Exists() bool

	// Clear removes every dataset, leaving an empty store.
	Clear() error

	// Close releases any resources held by the store.
	Close() error
}

// recordSize returns the number of elements in one record.
func recordSize(recordShape []int) int {
	n := 1
	for _, d := range recordShape {
		n *= d
	}
	return n
}

func validateShape(dtype DType, recordShape []int) error {
	if dtype.Size() == 0 {
		return fmt.Errorf("unsupported dtype %d", uint8(dtype))
	}
	if len(recordShape) == 0 {
		return errors.New("record shape must have at least one dimension")
	}
	for _, d := range recordShape {
		if d <= 0 {
			return fmt.Errorf("invalid record shape %v", recordShape)
		}
	}
	return nil
}

func checkSliceBounds(ds Dataset, start, count int) error {
	if start < 0 || count < 0 {
		return fmt.Errorf("negative slice bounds [%d:%d]", start, start+count)
	}
	if start+count > ds.Len() {
		return fmt.Errorf("slice [%d:%d] out of range for dataset %q of length %d",
			start, start+count, ds.Name(), ds.Len())
	}
	return nil
}
