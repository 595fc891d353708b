package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStoreRoundTrip(t *testing.T, s Store) {
	t.Helper()

	ds, err := s.Create("data_0", Float32, []int{2, 3})
	require.NoError(t, err)
	assert.Equal(t, 0, ds.Len())
	assert.Equal(t, []int{2, 3}, ds.RecordShape())
	assert.Equal(t, Float32, ds.DType())

	// Grow and write two records.
	require.NoError(t, ds.Resize(2))
	first := []float32{1, 2, 3, 4, 5, 6}
	second := []float32{7, 8, 9, 10, 11, 12}
	require.NoError(t, ds.WriteSlice(0, first))
	require.NoError(t, ds.WriteSlice(1, second))
	assert.Equal(t, 2, ds.Len())

	got, err := ds.ReadSlice(0, 2)
	require.NoError(t, err)
	assert.Equal(t, append(append([]float32{}, first...), second...), got)

	// Grow again; the new record reads as zero until written.
	require.NoError(t, ds.Resize(3))
	got, err = ds.ReadSlice(2, 1)
	require.NoError(t, err)
	assert.Equal(t, make([]float32, 6), got)

	// Out-of-range access is rejected.
	_, err = ds.ReadSlice(2, 2)
	assert.Error(t, err)
	assert.Error(t, ds.WriteSlice(3, first))

	// Partial records are rejected.
	assert.Error(t, ds.WriteSlice(0, []float32{1, 2}))
}

func TestMemoryStore(t *testing.T) {
	s := NewMemory()
	assert.False(t, s.Exists())
	testStoreRoundTrip(t, s)
	assert.True(t, s.Exists())

	_, err := s.Open("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "bins")
	s, err := OpenFile(dir)
	require.NoError(t, err)
	assert.False(t, s.Exists())

	testStoreRoundTrip(t, s)
	assert.True(t, s.Exists())

	_, err = s.Open("nope")
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, s.Close())

	// Reopen from disk and verify header and contents survived.
	s2, err := OpenFile(dir)
	require.NoError(t, err)
	defer s2.Close()
	assert.True(t, s2.Exists())

	ds, err := s2.Open("data_0")
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, ds.RecordShape())
	assert.Equal(t, Float32, ds.DType())
	assert.Equal(t, 3, ds.Len())

	got, err := ds.ReadSlice(1, 1)
	require.NoError(t, err)
	assert.Equal(t, []float32{7, 8, 9, 10, 11, 12}, got)
}

func TestFileStoreCreateTruncates(t *testing.T) {
	s, err := OpenFile(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	ds, err := s.Create("labels_0", Float32, []int{1})
	require.NoError(t, err)
	require.NoError(t, ds.Resize(4))
	require.NoError(t, ds.WriteSlice(0, []float32{1, 0, 1, 0}))

	ds, err = s.Create("labels_0", Float32, []int{1})
	require.NoError(t, err)
	assert.Equal(t, 0, ds.Len())
}

func testStoreClear(t *testing.T, s Store) {
	t.Helper()

	_, err := s.Create("data_0", Float32, []int{2})
	require.NoError(t, err)
	_, err = s.Create("labels_0", Float32, []int{1})
	require.NoError(t, err)
	require.True(t, s.Exists())

	require.NoError(t, s.Clear())
	assert.False(t, s.Exists())
	_, err = s.Open("data_0")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Open("labels_0")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreClear(t *testing.T) {
	testStoreClear(t, NewMemory())
}

func TestFileStoreClear(t *testing.T) {
	dir := t.TempDir()
	s, err := OpenFile(dir)
	require.NoError(t, err)
	testStoreClear(t, s)
	require.NoError(t, s.Close())

	// A reopened handle sees an empty store, not leftover files.
	s2, err := OpenFile(dir)
	require.NoError(t, err)
	defer s2.Close()
	assert.False(t, s2.Exists())
}

func TestStoreRejectsBadShapes(t *testing.T) {
	s := NewMemory()
	_, err := s.Create("d", Float32, nil)
	assert.Error(t, err)
	_, err = s.Create("d", Float32, []int{0})
	assert.Error(t, err)
	_, err = s.Create("d", DType(9), []int{1})
	assert.Error(t, err)
}
