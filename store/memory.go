package store

import "fmt"

// Memory is an in-memory Store implementation, mainly for tests. It has the
// same semantics as File without any filesystem dependency.
type Memory struct {
	datasets map[string]*memDataset
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{datasets: make(map[string]*memDataset)}
}

// Exists implements Store.
func (m *Memory) Exists() bool { return len(m.datasets) > 0 }

// Clear implements Store.
func (m *Memory) Clear() error {
	m.datasets = make(map[string]*memDataset)
	return nil
}

// Create implements Store.
func (m *Memory) Create(name string, dtype DType, recordShape []int) (Dataset, error) {
	if err := validateShape(dtype, recordShape); err != nil {
		return nil, err
	}
	ds := &memDataset{
		name:  name,
		dtype: dtype,
		shape: append([]int(nil), recordShape...),
	}
	m.datasets[name] = ds
	return ds, nil
}

// Open implements Store.
func (m *Memory) Open(name string) (Dataset, error) {
	ds, ok := m.datasets[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return ds, nil
}

// Close implements Store.
func (m *Memory) Close() error { return nil }

type memDataset struct {
	name  string
	dtype DType
	shape []int
	flat  []float32
}

func (d *memDataset) Name() string       { return d.name }
func (d *memDataset) DType() DType       { return d.dtype }
func (d *memDataset) RecordShape() []int { return append([]int(nil), d.shape...) }

func (d *memDataset) Len() int { return len(d.flat) / recordSize(d.shape) }

func (d *memDataset) Resize(n int) error {
	if n < 0 {
		return fmt.Errorf("negative size %d for dataset %q", n, d.name)
	}
	want := n * recordSize(d.shape)
	if want <= len(d.flat) {
		d.flat = d.flat[:want]
		return nil
	}
	grown := make([]float32, want)
	copy(grown, d.flat)
	d.flat = grown
	return nil
}

func (d *memDataset) WriteSlice(start int, flat []float32) error {
	rs := recordSize(d.shape)
	if len(flat)%rs != 0 {
		return fmt.Errorf("write of %d elements is not a whole number of %d-element records", len(flat), rs)
	}
	if err := checkSliceBounds(d, start, len(flat)/rs); err != nil {
		return err
	}
	copy(d.flat[start*rs:], flat)
	return nil
}

func (d *memDataset) ReadSlice(start, count int) ([]float32, error) {
	if err := checkSliceBounds(d, start, count); err != nil {
		return nil, err
	}
	rs := recordSize(d.shape)
	out := make([]float32, count*rs)
	copy(out, d.flat[start*rs:])
	return out, nil
}
