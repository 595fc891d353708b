// Package source provides record sources for the batch package: in-memory
// slices, reopenable generator functions, gzipped JSON-lines review files and
// labeled CSV files. Every type implements batch.Source.
package source

import (
	"errors"
	"io"
)

// Record is one labeled record.
type Record struct {
	Raw   any
	Label float32
}

// Slice yields records from an in-memory slice. Reset rewinds it.
type Slice struct {
	records []Record
	pos     int
}

// NewSlice builds a Slice over records. The slice is not copied.
func NewSlice(records []Record) *Slice {
	return &Slice{records: records}
}

func (s *Slice) Next() (any, float32, error) {
	if s.pos >= len(s.records) {
		return nil, 0, io.EOF
	}
	r := s.records[s.pos]
	s.pos++
	return r.Raw, r.Label, nil
}

func (s *Slice) Reset() error {
	s.pos = 0
	return nil
}

// NextFunc pulls one record, returning io.EOF at the end of the stream.
type NextFunc func() (raw any, label float32, err error)

// Func wraps a generator constructor so a one-shot record stream becomes
// restartable: Reset calls the constructor again for a fresh stream.
type Func struct {
	open func() (NextFunc, error)
	next NextFunc
}

// NewFunc builds a Func from open and immediately opens the first stream.
func NewFunc(open func() (NextFunc, error)) (*Func, error) {
	if open == nil {
		return nil, errors.New("nil open function")
	}
	f := &Func{open: open}
	if err := f.Reset(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *Func) Next() (any, float32, error) {
	return f.next()
}

func (f *Func) Reset() error {
	next, err := f.open()
	if err != nil {
		return err
	}
	f.next = next
	return nil
}
