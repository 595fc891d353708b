package source

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// CSV streams labeled records from a CSV file with a header row. Feature
// columns are read into a []float32 record in the order given; the label
// column is read as a float32. Column positions are discovered from the
// header, matched case-insensitively. Reset reopens the file.
type CSV struct {
	path     string
	features []string
	label    string

	file     *os.File
	reader   *csv.Reader
	colIndex map[string]int
}

// OpenCSV opens path and verifies the header holds every requested column.
func OpenCSV(path string, features []string, label string) (*CSV, error) {
	if len(features) == 0 {
		return nil, fmt.Errorf("no feature columns requested")
	}
	// Requested names are normalized the same way the header is, so the
	// case-insensitive match holds from both sides.
	normalized := make([]string, len(features))
	for i, col := range features {
		normalized[i] = strings.TrimSpace(strings.ToLower(col))
	}
	c := &CSV{path: path, features: normalized, label: strings.TrimSpace(strings.ToLower(label))}
	if err := c.Reset(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *CSV) Next() (any, float32, error) {
	row, err := c.reader.Read()
	if err == io.EOF {
		return nil, 0, io.EOF
	}
	if err != nil {
		return nil, 0, fmt.Errorf("read CSV row: %w", err)
	}

	values := make([]float32, len(c.features))
	for i, col := range c.features {
		v, err := parseFloat32(row[c.colIndex[col]])
		if err != nil {
			return nil, 0, fmt.Errorf("parse column %q: %w", col, err)
		}
		values[i] = v
	}
	label, err := parseFloat32(row[c.colIndex[c.label]])
	if err != nil {
		return nil, 0, fmt.Errorf("parse label column %q: %w", c.label, err)
	}
	return values, label, nil
}

// Reset reopens the file and re-reads the header.
func (c *CSV) Reset() error {
	if err := c.Close(); err != nil {
		return err
	}
	file, err := os.Open(c.path)
	if err != nil {
		return fmt.Errorf("open CSV %s: %w", c.path, err)
	}
	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		file.Close()
		return fmt.Errorf("read CSV header: %w", err)
	}

	colIndex := make(map[string]int, len(header))
	for i, col := range header {
		colIndex[strings.TrimSpace(strings.ToLower(col))] = i
	}
	for _, col := range append(append([]string(nil), c.features...), c.label) {
		if _, ok := colIndex[col]; !ok {
			file.Close()
			return fmt.Errorf("required column %q not found in %s", col, c.path)
		}
	}

	c.file, c.reader, c.colIndex = file, reader, colIndex
	return nil
}

// Close releases the underlying file. The source is unusable until Reset.
func (c *CSV) Close() error {
	if c.file == nil {
		return nil
	}
	err := c.file.Close()
	c.file, c.reader = nil, nil
	return err
}

func parseFloat32(s string) (float32, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty value")
	}
	v, err := strconv.ParseFloat(s, 32)
	if err != nil {
		return 0, err
	}
	return float32(v), nil
}

// CountRows counts the data rows in a CSV file, excluding the header.
func CountRows(path string) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	if _, err := reader.Read(); err != nil {
		return 0, err
	}

	count := 0
	for {
		_, err := reader.Read()
		if err == io.EOF {
			return count, nil
		}
		if err != nil {
			return 0, err
		}
		count++
	}
}
