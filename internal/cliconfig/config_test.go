package cliconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StoreDir = "/tmp/bins"
	require.NoError(t, cfg.Validate())

	missing := DefaultConfig()
	assert.Error(t, missing.Validate())

	badFormat := cfg
	badFormat.Format = "parquet"
	assert.Error(t, badFormat.Validate())

	csv := cfg
	csv.Format = FormatCSV
	assert.Error(t, csv.Validate())
	csv.Features = []string{"x", "y"}
	csv.Label = "sentiment"
	assert.NoError(t, csv.Validate())

	badBalance := cfg
	badBalance.Balance = true
	badBalance.NumLabels = 0
	assert.Error(t, badBalance.Validate())
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestApplyFileConfigRespectsFlags(t *testing.T) {
	path := writeConfigFile(t, `
store = "/data/bins"
batch_size = 64
splits = [0.7, 0.2]
shuffle = true
seed = 42
`)
	fc, err := LoadFileConfig(path)
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.BatchSize = 32

	// batch-size was set on the command line; the file must not override it.
	ApplyFileConfig(&cfg, fc, map[string]bool{"batch-size": true})

	assert.Equal(t, "/data/bins", cfg.StoreDir)
	assert.Equal(t, 32, cfg.BatchSize)
	assert.Equal(t, []float64{0.7, 0.2}, cfg.Splits)
	assert.True(t, cfg.Shuffle)
	assert.Equal(t, int64(42), cfg.Seed)
}

func TestApplyFileConfigIgnoresAbsentFields(t *testing.T) {
	fc, err := LoadFileConfig(writeConfigFile(t, `store = "/data/bins"`))
	require.NoError(t, err)

	cfg := DefaultConfig()
	ApplyFileConfig(&cfg, fc, nil)

	want := DefaultConfig()
	assert.Equal(t, want.BatchSize, cfg.BatchSize)
	assert.Equal(t, want.Splits, cfg.Splits)
	assert.Equal(t, want.Seed, cfg.Seed)
	assert.False(t, cfg.Shuffle)
}

func TestLoadFileConfigErrors(t *testing.T) {
	_, err := LoadFileConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)

	_, err = LoadFileConfig(writeConfigFile(t, "not = [valid"))
	assert.Error(t, err)
}
