// Package cliconfig holds the CLI configuration for minibatch: defaults,
// validation, and TOML config file loading with explicit-flag precedence.
package cliconfig

import (
	"fmt"
)

// Input formats the CLI can read.
const (
	FormatReviews = "reviews"
	FormatCSV     = "csv"
)

// Config holds CLI configuration for minibatch.
type Config struct {
	StoreDir string
	Input    string
	Format   string

	// CSV column selection, used when Format is "csv".
	Features []string
	Label    string

	BatchSize  int
	Splits     []float64
	MaxRecords int

	Balance   bool
	NumLabels int

	// Text normalization, used when Format is "reviews".
	MinLength    int
	MaxLength    int
	TruncateLeft bool

	Seed      int64
	Shuffle   bool
	Overwrite bool
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Format:    FormatReviews,
		BatchSize: 128,
		Splits:    []float64{0.8},
		NumLabels: 2,
		MinLength: 10,
		MaxLength: 300,
		Seed:      888,
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.StoreDir == "" {
		return fmt.Errorf("store is required")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive")
	}
	switch c.Format {
	case FormatReviews:
		if c.MaxLength <= 0 {
			return fmt.Errorf("max length must be positive")
		}
		if c.MinLength < 0 || c.MinLength > c.MaxLength {
			return fmt.Errorf("min length must be within [0, max length]")
		}
	case FormatCSV:
		if len(c.Features) == 0 {
			return fmt.Errorf("csv input requires feature columns")
		}
		if c.Label == "" {
			return fmt.Errorf("csv input requires a label column")
		}
	default:
		return fmt.Errorf("unknown input format %q", c.Format)
	}
	if c.Balance && c.NumLabels <= 0 {
		return fmt.Errorf("balancing requires a positive label count")
	}
	return nil
}
