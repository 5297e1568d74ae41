package emulator

import (
	"github.com/mash-protocol/devreset-go/pkg/log"
	"github.com/mash-protocol/devreset-go/pkg/persistence"
)

// DefaultVendor is reported in Features.
const DefaultVendor = "devreset-emulator"

// Options configures a Device.
type Options struct {
	Vendor   string
	DeviceID string

	// EntropySeed makes internal entropy reproducible. Nil uses crypto/rand.
	EntropySeed []byte

	// AutoConfirm presses "yes" for any button request that has no debug
	// decision. Without it such a ButtonAck fails with BUTTON_EXPECTED.
	AutoConfirm bool

	Faults Faults

	// Store persists settings across restarts (optional).
	Store StateStore

	// Logger receives device-side state events (optional).
	Logger log.Logger
}

// StateStore loads and saves device settings. persistence.DeviceStateStore
// implements it.
type StateStore interface {
	Load() (*persistence.DeviceState, error)
	Save(state *persistence.DeviceState) error
}

// Faults makes the device deviate from the protocol.
type Faults struct {
	// TamperPass (1 or 2) and TamperWord select a displayed word to alter.
	TamperPass int
	TamperWord int

	// SwapEntropyOrder mixes external entropy before internal.
	SwapEntropyOrder bool

	// SkipSecondPin asks for the new PIN only once.
	SkipSecondPin bool

	// RejectPin fails PIN setup as if the two entries differed.
	RejectPin bool

	// WrongFinalResponse answers the last word with Features, not Success.
	WrongFinalResponse bool

	// IgnorePassphrase never enables passphrase protection.
	IgnorePassphrase bool
}

// Any reports whether any fault is enabled.
func (f Faults) Any() bool {
	return f != Faults{}
}
