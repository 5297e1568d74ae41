package transport

import (
	"context"

	"github.com/mash-protocol/devreset-go/pkg/wire"
)

// Caller sends a request and returns the peer's reply.
// Implemented by Link and Endpoint.
type Caller interface {
	Call(ctx context.Context, msg wire.Message) (wire.Message, error)
}

// FrameReadWriter provides length-prefixed frame I/O.
// Implemented by Framer.
type FrameReadWriter interface {
	ReadFrame() ([]byte, error)
	WriteFrame(data []byte) error
}

// Compile-time interface satisfaction checks.
var (
	_ Caller          = (*Link)(nil)
	_ Caller          = (*Endpoint)(nil)
	_ FrameReadWriter = (*Framer)(nil)
	_ Handler         = HandlerFunc(nil)
)
