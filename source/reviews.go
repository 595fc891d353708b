package source

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
)

// review is one line of an Amazon-style review dump.
type review struct {
	ReviewText string  `json:"reviewText"`
	Overall    float64 `json:"overall"`
}

// Reviews streams labeled review texts from a gzipped JSON-lines file.
// Ratings of 4 and above label as 1, ratings of 2 and below as 0; neutral
// 3-star reviews are skipped. Reset reopens the file from the start.
type Reviews struct {
	path    string
	file    *os.File
	gz      *gzip.Reader
	scanner *bufio.Scanner
}

// OpenReviews opens a gzipped JSON-lines review file.
func OpenReviews(path string) (*Reviews, error) {
	r := &Reviews{path: path}
	if err := r.Reset(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Reviews) Next() (any, float32, error) {
	for r.scanner.Scan() {
		var rev review
		if err := json.Unmarshal(r.scanner.Bytes(), &rev); err != nil {
			return nil, 0, fmt.Errorf("parse review line: %w", err)
		}
		switch {
		case rev.Overall >= 4:
			return rev.ReviewText, 1, nil
		case rev.Overall <= 2:
			return rev.ReviewText, 0, nil
		}
		// 3-star reviews carry no usable sentiment.
	}
	if err := r.scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("scan reviews: %w", err)
	}
	return nil, 0, io.EOF
}

// Reset reopens the file for another pass.
func (r *Reviews) Reset() error {
	if err := r.Close(); err != nil {
		return err
	}
	file, err := os.Open(r.path)
	if err != nil {
		return fmt.Errorf("open reviews %s: %w", r.path, err)
	}
	gz, err := gzip.NewReader(file)
	if err != nil {
		file.Close()
		return fmt.Errorf("open gzip stream in %s: %w", r.path, err)
	}
	scanner := bufio.NewScanner(gz)
	// Review texts can be long; allow lines up to 1 MiB.
	scanner.Buffer(make([]byte, 64*1024), 1<<20)
	r.file, r.gz, r.scanner = file, gz, scanner
	return nil
}

// Close releases the underlying file. The source is unusable until Reset.
func (r *Reviews) Close() error {
	if r.file == nil {
		return nil
	}
	gzErr := r.gz.Close()
	fileErr := r.file.Close()
	r.file, r.gz, r.scanner = nil, nil, nil
	if gzErr != nil {
		return gzErr
	}
	return fileErr
}
