package reset

// State is a handshake state.
type State uint8

const (
	// StateIdle is the state before ResetDevice is sent.
	StateIdle State = iota

	// StateAwaitRandomDisplayConfirm waits for the operator to confirm the
	// random pattern shown on the device.
	StateAwaitRandomDisplayConfirm

	// StateAwaitPinFirst and StateAwaitPinSecond are the two PIN entries.
	StateAwaitPinFirst
	StateAwaitPinSecond

	// StateAwaitEntropy waits for the device to request external entropy.
	StateAwaitEntropy

	// StateAwaitFirstPassWords and StateAwaitSecondPassWords read back the
	// displayed mnemonic.
	StateAwaitFirstPassWords
	StateAwaitSecondPassWords

	// StateSettled is terminal: both passes matched the reference.
	StateSettled

	// StateAborted is terminal: cancelled, failed or non-conformant.
	StateAborted
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateAwaitRandomDisplayConfirm:
		return "AWAIT_RANDOM_DISPLAY_CONFIRM"
	case StateAwaitPinFirst:
		return "AWAIT_PIN_FIRST"
	case StateAwaitPinSecond:
		return "AWAIT_PIN_SECOND"
	case StateAwaitEntropy:
		return "AWAIT_ENTROPY"
	case StateAwaitFirstPassWords:
		return "AWAIT_FIRST_PASS_WORDS"
	case StateAwaitSecondPassWords:
		return "AWAIT_SECOND_PASS_WORDS"
	case StateSettled:
		return "SETTLED"
	case StateAborted:
		return "ABORTED"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether s ends the session.
func (s State) Terminal() bool {
	return s == StateSettled || s == StateAborted
}

// AwaitingInput reports whether the device is waiting on the host in s,
// which is when a Cancel is meaningful.
func (s State) AwaitingInput() bool {
	return s > StateIdle && s < StateSettled
}

// Pass returns the read-back pass (1 or 2) for the word states, else 0.
func (s State) Pass() int {
	switch s {
	case StateAwaitFirstPassWords:
		return 1
	case StateAwaitSecondPassWords:
		return 2
	default:
		return 0
	}
}
