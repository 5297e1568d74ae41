// Package mnemonic renders a reset seed as a PGP word sequence and back.
//
// Each seed byte b at position i selects the word index 2*b + (i mod 2).
// After the seed, a checksum byte (first byte of SHA-256(SHA-256(seed))) is
// encoded with the next position's parity, so a 32-byte seed yields 33
// words. The device display looks the index up 1-based (DisplayWords);
// backups loaded onto a device use the published 0-based numbering
// (PGPWords).
package mnemonic

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/mash-protocol/devreset-go/pkg/wordlist"
)

// Encoding errors.
var (
	ErrEmptySeed        = errors.New("seed is empty")
	ErrTooShort         = errors.New("mnemonic too short")
	ErrUnknownWord      = errors.New("unknown word")
	ErrWordParity       = errors.New("word used at wrong position parity")
	ErrChecksumMismatch = errors.New("checksum word mismatch")
)

// Checksum returns the verification byte for seed: the first byte of the
// double SHA-256 digest. It is always computed over the seed as given.
func Checksum(seed []byte) byte {
	first := sha256.Sum256(seed)
	second := sha256.Sum256(first[:])
	return second[0]
}

// WordList selects how a byte and its position map onto the PGP table.
type WordList uint8

const (
	// DisplayWords is what a device shows while confirming a fresh seed:
	// index 2*b + (i mod 2) looked up 1-based, 0 wrapping to the last entry.
	DisplayWords WordList = iota

	// PGPWords is the published PGP word list numbering, 0-based. Backups
	// installed with LoadDevice use it.
	PGPWords
)

// String returns the name used in state files and flags.
func (l WordList) String() string {
	switch l {
	case DisplayWords:
		return "display"
	case PGPWords:
		return "pgp"
	default:
		return fmt.Sprintf("WordList(%d)", uint8(l))
	}
}

// ParseWordList parses a WordList name. The empty string is DisplayWords.
func ParseWordList(s string) (WordList, error) {
	switch s {
	case "", "display":
		return DisplayWords, nil
	case "pgp":
		return PGPWords, nil
	default:
		return 0, fmt.Errorf("unknown word list %q", s)
	}
}

// Word returns the word that encodes b at the zero-based position.
func (l WordList) Word(b byte, position int) string {
	index := 2*int(b) + position%2
	if l == PGPWords {
		w, _ := wordlist.Entry(index)
		return w
	}
	return wordlist.MustWord(index)
}

func (l WordList) index(w string) (int, bool) {
	if l == PGPWords {
		return wordlist.Position(w)
	}
	return wordlist.Index(w)
}

// Encode returns the word sequence for seed, including the trailing checksum
// word. The result always has len(seed)+1 words.
func (l WordList) Encode(seed []byte) (Sequence, error) {
	if len(seed) == 0 {
		return nil, ErrEmptySeed
	}

	seq := make(Sequence, 0, len(seed)+1)
	for i, b := range seed {
		seq = append(seq, l.Word(b, i))
	}
	seq = append(seq, l.Word(Checksum(seed), len(seed)))
	return seq, nil
}

// Decode inverts Encode. Every word must belong to the table and carry the
// parity of its position, and the last word must match the checksum of the
// decoded seed.
func (l WordList) Decode(words Sequence) ([]byte, error) {
	if len(words) < 2 {
		return nil, fmt.Errorf("%w: %d words", ErrTooShort, len(words))
	}

	decoded := make([]byte, len(words))
	for i, w := range words {
		index, ok := l.index(w)
		if !ok {
			return nil, fmt.Errorf("%w: %q at position %d", ErrUnknownWord, w, i)
		}
		if index%2 != i%2 {
			return nil, fmt.Errorf("%w: %q at position %d", ErrWordParity, w, i)
		}
		decoded[i] = byte((index - i%2) / 2)
	}

	seed := decoded[:len(decoded)-1]
	if want := Checksum(seed); decoded[len(decoded)-1] != want {
		return nil, fmt.Errorf("%w: got %q, want %q", ErrChecksumMismatch,
			words[len(words)-1], l.Word(want, len(seed)))
	}
	return seed, nil
}

// WordFor returns the display word that encodes b at the zero-based position.
func WordFor(b byte, position int) string {
	return DisplayWords.Word(b, position)
}

// Encode renders seed the way the device displays it during reset.
func Encode(seed []byte) (Sequence, error) {
	return DisplayWords.Encode(seed)
}

// Decode inverts Encode.
func Decode(words Sequence) ([]byte, error) {
	return DisplayWords.Decode(words)
}
