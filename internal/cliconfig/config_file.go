package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config with TOML field names. Pointer fields
// distinguish "absent" from zero values.
type FileConfig struct {
	StoreDir string `toml:"store"`
	Input    string `toml:"input"`
	Format   string `toml:"format"`

	Features []string `toml:"features"`
	Label    string   `toml:"label"`

	BatchSize  int       `toml:"batch_size"`
	Splits     []float64 `toml:"splits"`
	MaxRecords int       `toml:"max_records"`

	Balance   *bool `toml:"balance"`
	NumLabels int   `toml:"num_labels"`

	MinLength    int   `toml:"min_length"`
	MaxLength    int   `toml:"max_length"`
	TruncateLeft *bool `toml:"truncate_left"`

	Seed      *int64 `toml:"seed"`
	Shuffle   *bool  `toml:"shuffle"`
	Overwrite *bool  `toml:"overwrite"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns ~/.minibatch/config.toml when the user home
// directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".minibatch", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies file values to cfg, skipping any field whose flag
// was explicitly set (changed map keyed by flag name).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) {
	s := configSetter{changed: changed}

	s.setString("store", fc.StoreDir, &cfg.StoreDir)
	s.setString("input", fc.Input, &cfg.Input)
	s.setString("format", fc.Format, &cfg.Format)
	s.setString("label", fc.Label, &cfg.Label)

	if len(fc.Features) > 0 && !changed["features"] {
		cfg.Features = fc.Features
	}
	if len(fc.Splits) > 0 && !changed["splits"] {
		cfg.Splits = fc.Splits
	}

	s.setInt("batch-size", fc.BatchSize, &cfg.BatchSize)
	s.setInt("max-records", fc.MaxRecords, &cfg.MaxRecords)
	s.setInt("num-labels", fc.NumLabels, &cfg.NumLabels)
	s.setInt("min-length", fc.MinLength, &cfg.MinLength)
	s.setInt("max-length", fc.MaxLength, &cfg.MaxLength)

	s.setBool("balance", fc.Balance, &cfg.Balance)
	s.setBool("truncate-left", fc.TruncateLeft, &cfg.TruncateLeft)
	s.setBool("shuffle", fc.Shuffle, &cfg.Shuffle)
	s.setBool("overwrite", fc.Overwrite, &cfg.Overwrite)

	if fc.Seed != nil && !changed["seed"] {
		cfg.Seed = *fc.Seed
	}
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

// configSetter applies file values only when the matching flag was not
// explicitly set on the command line.
type configSetter struct {
	changed map[string]bool
}

func (s configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

func (s configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

func (s configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}
