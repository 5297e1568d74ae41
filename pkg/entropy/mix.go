// Package entropy mixes device and caller entropy into a reset seed.
//
// Neither party controls the result alone: the seed is the leading
// strength/8 bytes of SHA-256(internal || external).
package entropy

import (
	"crypto/sha256"
	"fmt"
)

// MinSourceSize is the minimum length of each entropy source in bytes.
const MinSourceSize = 32

// Strength is the requested seed strength in bits.
type Strength uint16

// Supported strengths.
const (
	Strength128 Strength = 128
	Strength192 Strength = 192
	Strength256 Strength = 256
)

// Valid reports whether s is one of the supported strengths.
func (s Strength) Valid() bool {
	switch s {
	case Strength128, Strength192, Strength256:
		return true
	default:
		return false
	}
}

// Bytes returns the seed length in bytes.
func (s Strength) Bytes() int {
	return int(s) / 8
}

// Words returns the mnemonic length for the strength: one word per seed byte
// plus the checksum word.
func (s Strength) Words() int {
	return s.Bytes() + 1
}

// String returns the strength in bits.
func (s Strength) String() string {
	return fmt.Sprintf("%d", uint16(s))
}

// ParseStrength parses a strength given in bits.
func ParseStrength(v int) (Strength, error) {
	s := Strength(v)
	if v < 0 || v > 0xFFFF || !s.Valid() {
		return 0, &InvalidStrengthError{Strength: v}
	}
	return s, nil
}

// Source names used in validation errors.
const (
	SourceInternal = "internal"
	SourceExternal = "external"
)

// Mix derives the seed from the device's internal entropy and the caller's
// external entropy. Internal comes first in the hash input. The digest is
// truncated only after hashing.
func Mix(internal, external []byte, strength Strength) ([]byte, error) {
	if !strength.Valid() {
		return nil, &InvalidStrengthError{Strength: int(strength)}
	}
	if err := checkSource(SourceInternal, internal); err != nil {
		return nil, err
	}
	if err := checkSource(SourceExternal, external); err != nil {
		return nil, err
	}

	h := sha256.New()
	h.Write(internal)
	h.Write(external)
	digest := h.Sum(nil)

	seed := digest[:strength.Bytes()]
	if len(seed)*8 != int(strength) {
		return nil, &EntropyLengthMismatchError{Strength: strength, Got: len(seed)}
	}
	return seed, nil
}

func checkSource(name string, data []byte) error {
	if len(data) == 0 {
		return &MissingEntropyError{Source: name}
	}
	if len(data) < MinSourceSize {
		return &InsufficientEntropyError{Source: name, Got: len(data), Min: MinSourceSize}
	}
	return nil
}
