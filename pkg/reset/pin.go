package reset

import (
	"context"

	"github.com/mash-protocol/devreset-go/pkg/wire"
)

// PinProvider supplies the matrix-encoded PIN for a PIN challenge. The
// handshake passes the value through without inspecting it.
type PinProvider interface {
	Pin(ctx context.Context, kind wire.PinMatrixRequestType) (string, error)
}

// PinFunc adapts a function to PinProvider.
type PinFunc func(ctx context.Context, kind wire.PinMatrixRequestType) (string, error)

// Pin calls f.
func (f PinFunc) Pin(ctx context.Context, kind wire.PinMatrixRequestType) (string, error) {
	return f(ctx, kind)
}

// StaticPin answers every challenge with the same encoded PIN.
type StaticPin string

// Pin returns p.
func (p StaticPin) Pin(context.Context, wire.PinMatrixRequestType) (string, error) {
	return string(p), nil
}
