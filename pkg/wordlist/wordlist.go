// Package wordlist holds the fixed 512-entry PGP word table used to render
// seed bytes as words.
//
// The table interleaves two 256-word vocabularies. Lookups use 1-based
// indices because that is how the reference device walks the table; index 0
// selects the final entry.
package wordlist

import (
	"errors"
	"fmt"
	"strings"
)

// Size is the number of entries in the table.
const Size = 512

// ErrIndexOutOfRange is returned for lookups outside the table.
var ErrIndexOutOfRange = errors.New("word index out of range")

// byWord maps the lower-cased word to its 0-based table position.
var byWord = func() map[string]int {
	m := make(map[string]int, Size)
	for i, w := range words {
		m[strings.ToLower(w)] = i
	}
	return m
}()

// Word returns the word at the given 1-based table index.
// Index 0 wraps to the last entry.
func Word(index int) (string, error) {
	if index < 0 || index > Size {
		return "", fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	if index == 0 {
		return words[Size-1], nil
	}
	return words[index-1], nil
}

// MustWord is like Word but panics on an out-of-range index.
func MustWord(index int) string {
	w, err := Word(index)
	if err != nil {
		panic(err)
	}
	return w
}

// Index returns the 1-based table index of word, using the same wrap as Word:
// the last entry reports index 0. Matching is case-insensitive.
func Index(word string) (int, bool) {
	pos, ok := Position(word)
	if !ok {
		return 0, false
	}
	index := pos + 1
	if index == Size {
		index = 0
	}
	return index, true
}

// Entry returns the word at the given 0-based position, the way the
// published PGP word list is numbered.
func Entry(pos int) (string, error) {
	if pos < 0 || pos >= Size {
		return "", fmt.Errorf("%w: %d", ErrIndexOutOfRange, pos)
	}
	return words[pos], nil
}

// Position returns the 0-based position of word. Matching is
// case-insensitive.
func Position(word string) (int, bool) {
	pos, ok := byWord[strings.ToLower(strings.TrimSpace(word))]
	return pos, ok
}

// Words returns a copy of the table in canonical order.
func Words() []string {
	out := make([]string, Size)
	copy(out, words[:])
	return out
}
