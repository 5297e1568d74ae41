package reset

import "testing"

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateIdle, "IDLE"},
		{StateAwaitRandomDisplayConfirm, "AWAIT_RANDOM_DISPLAY_CONFIRM"},
		{StateAwaitPinFirst, "AWAIT_PIN_FIRST"},
		{StateAwaitPinSecond, "AWAIT_PIN_SECOND"},
		{StateAwaitEntropy, "AWAIT_ENTROPY"},
		{StateAwaitFirstPassWords, "AWAIT_FIRST_PASS_WORDS"},
		{StateAwaitSecondPassWords, "AWAIT_SECOND_PASS_WORDS"},
		{StateSettled, "SETTLED"},
		{StateAborted, "ABORTED"},
		{State(99), "UNKNOWN"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}

func TestStatePredicates(t *testing.T) {
	for s := StateIdle; s <= StateAborted; s++ {
		terminal := s == StateSettled || s == StateAborted
		if s.Terminal() != terminal {
			t.Errorf("%s.Terminal() = %v", s, s.Terminal())
		}
		awaiting := s != StateIdle && !terminal
		if s.AwaitingInput() != awaiting {
			t.Errorf("%s.AwaitingInput() = %v", s, s.AwaitingInput())
		}
	}

	if StateAwaitFirstPassWords.Pass() != 1 || StateAwaitSecondPassWords.Pass() != 2 || StateAwaitEntropy.Pass() != 0 {
		t.Error("Pass() mismatch")
	}
}

func TestDeviceFailureErrorPinSetup(t *testing.T) {
	if !(&DeviceFailureError{State: StateAwaitPinFirst}).PinSetup() {
		t.Error("AWAIT_PIN_FIRST should be PIN setup")
	}
	if (&DeviceFailureError{State: StateAwaitEntropy}).PinSetup() {
		t.Error("AWAIT_ENTROPY should not be PIN setup")
	}
}
