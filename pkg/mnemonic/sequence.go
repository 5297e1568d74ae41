package mnemonic

import "strings"

// Sequence is an ordered list of mnemonic words.
type Sequence []string

// Parse splits a space-separated mnemonic into a Sequence.
func Parse(s string) Sequence {
	return Sequence(strings.Fields(s))
}

// String joins the words with single spaces.
func (s Sequence) String() string {
	return strings.Join(s, " ")
}

// Equal reports whether both sequences hold the same words in the same order.
func (s Sequence) Equal(other Sequence) bool {
	_, ok := s.FirstMismatch(other)
	return ok
}

// FirstMismatch returns the index of the first differing word and false, or
// -1 and true if the sequences are identical. When one sequence is a prefix
// of the other the mismatch index is the shorter length.
func (s Sequence) FirstMismatch(other Sequence) (int, bool) {
	n := min(len(s), len(other))
	for i := 0; i < n; i++ {
		if s[i] != other[i] {
			return i, false
		}
	}
	if len(s) != len(other) {
		return n, false
	}
	return -1, true
}

// At returns the word at index, or "" if index is out of range.
func (s Sequence) At(index int) string {
	if index < 0 || index >= len(s) {
		return ""
	}
	return s[index]
}

// Clone returns a copy of the sequence.
func (s Sequence) Clone() Sequence {
	if s == nil {
		return nil
	}
	out := make(Sequence, len(s))
	copy(out, s)
	return out
}
