package entropy

import (
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is checks against the typed errors below.
var (
	ErrInvalidStrength       = errors.New("invalid strength")
	ErrMissingEntropy        = errors.New("entropy is not provided")
	ErrInsufficientEntropy   = errors.New("entropy too short")
	ErrEntropyLengthMismatch = errors.New("entropy length mismatch")
)

// InvalidStrengthError reports a strength outside {128, 192, 256}.
type InvalidStrengthError struct {
	Strength int
}

func (e *InvalidStrengthError) Error() string {
	return fmt.Sprintf("strength: %v: %d (want 128, 192 or 256)", ErrInvalidStrength, e.Strength)
}

func (e *InvalidStrengthError) Unwrap() error { return ErrInvalidStrength }

// MissingEntropyError reports an empty entropy source.
type MissingEntropyError struct {
	Source string
}

func (e *MissingEntropyError) Error() string {
	return fmt.Sprintf("%s entropy: %v", e.Source, ErrMissingEntropy)
}

func (e *MissingEntropyError) Unwrap() error { return ErrMissingEntropy }

// InsufficientEntropyError reports an entropy source below MinSourceSize.
type InsufficientEntropyError struct {
	Source string
	Got    int
	Min    int
}

func (e *InsufficientEntropyError) Error() string {
	return fmt.Sprintf("%s entropy: %v: %d bytes, need at least %d", e.Source, ErrInsufficientEntropy, e.Got, e.Min)
}

func (e *InsufficientEntropyError) Unwrap() error { return ErrInsufficientEntropy }

// EntropyLengthMismatchError is an invariant failure: the derived seed does
// not have strength/8 bytes. It indicates a bug, not bad input.
type EntropyLengthMismatchError struct {
	Strength Strength
	Got      int
}

func (e *EntropyLengthMismatchError) Error() string {
	return fmt.Sprintf("%v: got %d bytes for strength %d", ErrEntropyLengthMismatch, e.Got, e.Strength)
}

func (e *EntropyLengthMismatchError) Unwrap() error { return ErrEntropyLengthMismatch }
