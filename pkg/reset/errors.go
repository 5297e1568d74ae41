package reset

import (
	"errors"
	"fmt"

	"github.com/mash-protocol/devreset-go/pkg/wire"
)

// Handshake errors.
var (
	// ErrConformance marks a device that deviated from the protocol.
	ErrConformance = errors.New("protocol conformance failure")

	// ErrTransport marks a link failure. The session is aborted.
	ErrTransport = errors.New("transport failure")

	// ErrDeviceFailure marks a Failure reply from the device.
	ErrDeviceFailure = errors.New("device failure")

	ErrSessionRetired = errors.New("session retired")
	ErrCancelled      = errors.New("handshake cancelled")
	ErrNoExchanger    = errors.New("exchanger is required")
	ErrNoDebugLink    = errors.New("debug link is required")
	ErrNoPinProvider  = errors.New("pin provider is required for pin protection")
)

// ConformanceError reports the first word that diverged. Pass 1 is
// compared with the host's reference mnemonic, pass 2 with pass 1 (which by
// then equals the reference).
type ConformanceError struct {
	Pass  int
	Index int
	Want  string
	Got   string
}

func (e *ConformanceError) Error() string {
	if e.Got == "" && e.Want == "" {
		return fmt.Sprintf("%v: pass %d: word %d missing", ErrConformance, e.Pass, e.Index)
	}
	return fmt.Sprintf("%v: pass %d: word %d: expected %q, got %q", ErrConformance, e.Pass, e.Index, e.Want, e.Got)
}

func (e *ConformanceError) Unwrap() error { return ErrConformance }

// UnexpectedMessageError reports a device message that does not fit the
// current state.
type UnexpectedMessageError struct {
	State State
	Want  wire.MessageType
	Got   wire.Message
}

func (e *UnexpectedMessageError) Error() string {
	return fmt.Sprintf("%v: unexpected message type in %s: expected %s, got %s", ErrConformance, e.State, e.Want, wire.Name(e.Got))
}

func (e *UnexpectedMessageError) Unwrap() error { return ErrConformance }

// DeviceFailureError wraps a Failure reply. During PIN setup it is the
// device's verdict on mismatched PIN entries.
type DeviceFailureError struct {
	State   State
	Code    wire.FailureCode
	Message string
}

func (e *DeviceFailureError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%v in %s: %s", ErrDeviceFailure, e.State, e.Code)
	}
	return fmt.Sprintf("%v in %s: %s: %s", ErrDeviceFailure, e.State, e.Code, e.Message)
}

func (e *DeviceFailureError) Unwrap() error { return ErrDeviceFailure }

// PinSetup reports whether the failure happened while setting the PIN.
func (e *DeviceFailureError) PinSetup() bool {
	return e.State == StateAwaitPinFirst || e.State == StateAwaitPinSecond
}
