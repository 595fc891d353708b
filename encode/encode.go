// Package encode provides character-level text preparation: normalization
// (lowercasing, whitespace squashing, padding/truncation) and one-hot
// encoding over a fixed alphabet. Its constructors produce batch.Normalizer
// and batch.Transformer functions, so text sources plug straight into a
// Batcher.
package encode

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/minibatch-io/minibatch/batch"
)

// Alphabet is the set of characters the one-hot encoding covers: lowercase
// letters, digits, punctuation and newline. Characters outside the alphabet
// encode as an all-zero column.
const Alphabet = "abcdefghijklmnopqrstuvwxyz0123456789-,;.!?:'\"/\\|_@#$%^&*~`+=<>()[]{}\n"

// AlphabetSize is the number of rows in a one-hot encoded record.
const AlphabetSize = len(Alphabet)

var alphabetIndex = buildAlphabetIndex()

func buildAlphabetIndex() map[byte]int {
	idx := make(map[byte]int, AlphabetSize)
	for i := 0; i < AlphabetSize; i++ {
		idx[Alphabet[i]] = i
	}
	return idx
}

// Normalize lowercases text, squashes runs of whitespace into single spaces,
// trims the result, and forces it to exactly length characters: shorter text
// is right-padded with spaces, longer text is truncated. With truncateLeft
// the tail of the text is kept instead of the head. Length is measured in
// runes, so multi-byte input is never split mid-character.
func Normalize(text string, length int, truncateLeft bool) string {
	runes := []rune(squash(text))
	if len(runes) > length {
		if truncateLeft {
			return string(runes[len(runes)-length:])
		}
		return string(runes[:length])
	}
	return string(runes) + strings.Repeat(" ", length-len(runes))
}

// squash lowercases and collapses whitespace runs into single spaces.
func squash(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	inSpace := false
	for _, r := range strings.ToLower(text) {
		if unicode.IsSpace(r) {
			inSpace = true
			continue
		}
		if inSpace && b.Len() > 0 {
			b.WriteByte(' ')
		}
		inSpace = false
		b.WriteRune(r)
	}
	return b.String()
}

// NewNormalizer builds a batch.Normalizer that normalizes string records to
// exactly maxLen characters, rejecting any record whose squashed length is
// below minLen.
func NewNormalizer(minLen, maxLen int, truncateLeft bool) batch.Normalizer {
	return func(raw any) (any, error) {
		text, err := asString(raw)
		if err != nil {
			return nil, err
		}
		squashed := squash(text)
		if n := utf8.RuneCountInString(squashed); n < minLen {
			return nil, batch.Rejectf("text of %d characters is below the %d minimum", n, minLen)
		}
		return Normalize(squashed, maxLen, truncateLeft), nil
	}
}

// OneHot encodes text as a one-hot float32 matrix of shape
// (AlphabetSize, len(text)), one column per character. Characters outside
// the alphabet leave their column all zero.
func OneHot(text string) (values []float32, shape []int) {
	cols := len(text)
	values = make([]float32, AlphabetSize*cols)
	for col := 0; col < cols; col++ {
		if row, ok := alphabetIndex[text[col]]; ok {
			values[row*cols+col] = 1
		}
	}
	return values, []int{AlphabetSize, cols}
}

// FromOneHot inverts OneHot, mapping each column back to its alphabet
// character. All-zero columns decode to a space.
func FromOneHot(values []float32, shape []int) (string, error) {
	if len(shape) != 2 || shape[0] != AlphabetSize {
		return "", fmt.Errorf("expected shape (%d, n), got %v", AlphabetSize, shape)
	}
	cols := shape[1]
	if len(values) != AlphabetSize*cols {
		return "", fmt.Errorf("%d values do not fill shape %v", len(values), shape)
	}
	out := make([]byte, cols)
	for col := 0; col < cols; col++ {
		out[col] = ' '
		best := float32(0)
		for row := 0; row < AlphabetSize; row++ {
			if v := values[row*cols+col]; v > best {
				best = v
				out[col] = Alphabet[row]
			}
		}
	}
	return string(out), nil
}

// NewTransformer builds a batch.Transformer that one-hot encodes string
// records. Pair it with NewNormalizer so every record has the same length.
func NewTransformer() batch.Transformer {
	return func(normalized any) ([]float32, []int, error) {
		text, err := asString(normalized)
		if err != nil {
			return nil, nil, err
		}
		values, shape := OneHot(text)
		return values, shape, nil
	}
}

func asString(v any) (string, error) {
	switch s := v.(type) {
	case string:
		return s, nil
	case []byte:
		return string(s), nil
	default:
		return "", fmt.Errorf("expected a string record, got %T", v)
	}
}
