package store

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
)

func floatBits(v float32) uint32     { return math.Float32bits(v) }
func floatFromBits(b uint32) float32 { return math.Float32frombits(b) }

// File is a directory-backed Store. Every dataset is a single file named
// "<name>.arr" holding a fixed header followed by the raw little-endian
// element data. The record count is derived from the file size, so growing
// or shrinking a dataset is a truncate call and writes never rewrite
// existing data.
//
// A File opened for writing should not be read concurrently; multiple
// independent readers are safe once no writer is active.
type File struct {
	dir     string
	existed bool
	open    map[string]*fileDataset
}

const (
	fileExt         = ".arr"
	fileHeaderFixed = 16 // magic(8) + version(1) + dtype(1) + ndims(1) + reserved(5)
	maxDims         = 8
)

var fileMagic = [8]byte{'M', 'B', 'A', 'R', 'R', '1', 0, 0}

// OpenFile opens (creating if necessary) a file store rooted at dir.
func OpenFile(dir string) (*File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir %s: %w", dir, err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read store dir %s: %w", dir, err)
	}
	existed := false
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), fileExt) {
			existed = true
			break
		}
	}
	return &File{
		dir:     dir,
		existed: existed,
		open:    make(map[string]*fileDataset),
	}, nil
}

// Dir returns the directory the store is rooted at.
func (s *File) Dir() string { return s.dir }

// Exists implements Store.
func (s *File) Exists() bool { return s.existed || len(s.open) > 0 }

// Clear implements Store. It closes any open datasets and deletes every
// dataset file in the store directory.
func (s *File) Clear() error {
	for name, ds := range s.open {
		ds.f.Close()
		delete(s.open, name)
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("read store dir %s: %w", s.dir, err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), fileExt) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, e.Name())); err != nil {
			return fmt.Errorf("remove dataset file %s: %w", e.Name(), err)
		}
	}
	s.existed = false
	return nil
}

// Create implements Store. Any existing dataset file with the same name is
// truncated.
func (s *File) Create(name string, dtype DType, recordShape []int) (Dataset, error) {
	if err := validateShape(dtype, recordShape); err != nil {
		return nil, err
	}
	if len(recordShape) > maxDims {
		return nil, fmt.Errorf("record shape %v exceeds %d dimensions", recordShape, maxDims)
	}
	if prev, ok := s.open[name]; ok {
		prev.f.Close()
		delete(s.open, name)
	}

	f, err := os.OpenFile(s.path(name), os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create dataset %q: %w", name, err)
	}
	if err := writeHeader(f, dtype, recordShape); err != nil {
		f.Close()
		return nil, fmt.Errorf("write dataset header %q: %w", name, err)
	}

	ds := &fileDataset{
		name:   name,
		f:      f,
		dtype:  dtype,
		shape:  append([]int(nil), recordShape...),
		header: int64(fileHeaderFixed + 8*len(recordShape)),
	}
	s.open[name] = ds
	return ds, nil
}

// Open implements Store.
func (s *File) Open(name string) (Dataset, error) {
	if ds, ok := s.open[name]; ok {
		return ds, nil
	}
	f, err := os.OpenFile(s.path(name), os.O_RDWR, 0)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("open dataset %q: %w", name, err)
	}
	dtype, shape, err := readHeader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("read dataset header %q: %w", name, err)
	}
	ds := &fileDataset{
		name:   name,
		f:      f,
		dtype:  dtype,
		shape:  shape,
		header: int64(fileHeaderFixed + 8*len(shape)),
	}
	s.open[name] = ds
	return ds, nil
}

// Close implements Store.
func (s *File) Close() error {
	var firstErr error
	for name, ds := range s.open {
		if err := ds.f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(s.open, name)
	}
	return firstErr
}

func (s *File) path(name string) string {
	return filepath.Join(s.dir, name+fileExt)
}

func writeHeader(w io.Writer, dtype DType, shape []int) error {
	buf := make([]byte, fileHeaderFixed+8*len(shape))
	copy(buf, fileMagic[:])
	buf[8] = 1 // version
	buf[9] = byte(dtype)
	buf[10] = byte(len(shape))
	for i, d := range shape {
		binary.LittleEndian.PutUint64(buf[fileHeaderFixed+8*i:], uint64(d))
	}
	_, err := w.Write(buf)
	return err
}

func readHeader(r io.ReaderAt) (DType, []int, error) {
	fixed := make([]byte, fileHeaderFixed)
	if _, err := r.ReadAt(fixed, 0); err != nil {
		return 0, nil, err
	}
	if [8]byte(fixed[:8]) != fileMagic {
		return 0, nil, errors.New("bad magic")
	}
	if fixed[8] != 1 {
		return 0, nil, fmt.Errorf("unsupported version %d", fixed[8])
	}
	dtype := DType(fixed[9])
	ndims := int(fixed[10])
	if ndims == 0 || ndims > maxDims {
		return 0, nil, fmt.Errorf("invalid dimension count %d", ndims)
	}
	dims := make([]byte, 8*ndims)
	if _, err := r.ReadAt(dims, fileHeaderFixed); err != nil {
		return 0, nil, err
	}
	shape := make([]int, ndims)
	for i := range shape {
		shape[i] = int(binary.LittleEndian.Uint64(dims[8*i:]))
	}
	if err := validateShape(dtype, shape); err != nil {
		return 0, nil, err
	}
	return dtype, shape, nil
}

type fileDataset struct {
	name   string
	f      *os.File
	dtype  DType
	shape  []int
	header int64
}

func (d *fileDataset) Name() string       { return d.name }
func (d *fileDataset) DType() DType       { return d.dtype }
func (d *fileDataset) RecordShape() []int { return append([]int(nil), d.shape...) }

func (d *fileDataset) recordBytes() int64 {
	return int64(recordSize(d.shape)) * int64(d.dtype.Size())
}

func (d *fileDataset) Len() int {
	info, err := d.f.Stat()
	if err != nil {
		return 0
	}
	size := info.Size() - d.header
	if size <= 0 {
		return 0
	}
	return int(size / d.recordBytes())
}

func (d *fileDataset) Resize(n int) error {
	if n < 0 {
		return fmt.Errorf("negative size %d for dataset %q", n, d.name)
	}
	if err := d.f.Truncate(d.header + int64(n)*d.recordBytes()); err != nil {
		return fmt.Errorf("resize dataset %q to %d: %w", d.name, n, err)
	}
	return nil
}

func (d *fileDataset) WriteSlice(start int, flat []float32) error {
	rs := recordSize(d.shape)
	if len(flat)%rs != 0 {
		return fmt.Errorf("write of %d elements is not a whole number of %d-element records", len(flat), rs)
	}
	if err := checkSliceBounds(d, start, len(flat)/rs); err != nil {
		return err
	}
	buf := make([]byte, 4*len(flat))
	for i, v := range flat {
		binary.LittleEndian.PutUint32(buf[4*i:], floatBits(v))
	}
	if _, err := d.f.WriteAt(buf, d.header+int64(start)*d.recordBytes()); err != nil {
		return fmt.Errorf("write dataset %q at %d: %w", d.name, start, err)
	}
	return nil
}

func (d *fileDataset) ReadSlice(start, count int) ([]float32, error) {
	if err := checkSliceBounds(d, start, count); err != nil {
		return nil, err
	}
	rs := recordSize(d.shape)
	buf := make([]byte, 4*rs*count)
	if _, err := d.f.ReadAt(buf, d.header+int64(start)*d.recordBytes()); err != nil {
		return nil, fmt.Errorf("read dataset %q at %d: %w", d.name, start, err)
	}
	flat := make([]float32, rs*count)
	for i := range flat {
		flat[i] = floatFromBits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return flat, nil
}
