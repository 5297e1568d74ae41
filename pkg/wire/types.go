package wire

// MessageType identifies a message in the envelope.
type MessageType uint16

// Message types.
const (
	TypeInitialize        MessageType = 0
	TypePing              MessageType = 1
	TypeSuccess           MessageType = 2
	TypeFailure           MessageType = 3
	TypeWipeDevice        MessageType = 5
	TypeLoadDevice        MessageType = 13
	TypeResetDevice       MessageType = 14
	TypeFeatures          MessageType = 17
	TypePinMatrixRequest  MessageType = 18
	TypePinMatrixAck      MessageType = 19
	TypeCancel            MessageType = 20
	TypeButtonRequest     MessageType = 26
	TypeButtonAck         MessageType = 27
	TypeGetAddress        MessageType = 29
	TypeAddress           MessageType = 30
	TypeEntropyRequest    MessageType = 35
	TypeEntropyAck        MessageType = 36
	TypeSignMessage       MessageType = 38
	TypeVerifyMessage     MessageType = 39
	TypeMessageSignature  MessageType = 40
	TypePassphraseRequest MessageType = 41
	TypePassphraseAck     MessageType = 42

	TypeDebugLinkDecision MessageType = 100
	TypeDebugLinkGetState MessageType = 101
	TypeDebugLinkState    MessageType = 102
)

var typeNames = map[MessageType]string{
	TypeInitialize:        "Initialize",
	TypePing:              "Ping",
	TypeSuccess:           "Success",
	TypeFailure:           "Failure",
	TypeWipeDevice:        "WipeDevice",
	TypeLoadDevice:        "LoadDevice",
	TypeResetDevice:       "ResetDevice",
	TypeFeatures:          "Features",
	TypePinMatrixRequest:  "PinMatrixRequest",
	TypePinMatrixAck:      "PinMatrixAck",
	TypeCancel:            "Cancel",
	TypeButtonRequest:     "ButtonRequest",
	TypeButtonAck:         "ButtonAck",
	TypeGetAddress:        "GetAddress",
	TypeAddress:           "Address",
	TypeEntropyRequest:    "EntropyRequest",
	TypeEntropyAck:        "EntropyAck",
	TypeSignMessage:       "SignMessage",
	TypeVerifyMessage:     "VerifyMessage",
	TypeMessageSignature:  "MessageSignature",
	TypePassphraseRequest: "PassphraseRequest",
	TypePassphraseAck:     "PassphraseAck",
	TypeDebugLinkDecision: "DebugLinkDecision",
	TypeDebugLinkGetState: "DebugLinkGetState",
	TypeDebugLinkState:    "DebugLinkState",
}

// String returns the message name.
func (t MessageType) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return "UNKNOWN"
}

// IsDebug reports whether t belongs to the debug link.
func (t MessageType) IsDebug() bool {
	return t >= TypeDebugLinkDecision
}

// FailureCode classifies a Failure message.
type FailureCode uint8

// Failure codes.
const (
	FailureUnexpectedMessage FailureCode = 1
	FailureButtonExpected    FailureCode = 2
	FailureDataError         FailureCode = 3
	FailureActionCancelled   FailureCode = 4
	FailurePinExpected       FailureCode = 5
	FailurePinCancelled      FailureCode = 6
	FailurePinInvalid        FailureCode = 7
	FailureInvalidSignature  FailureCode = 8
	FailureProcessError      FailureCode = 9
	FailureNotInitialized    FailureCode = 11
	FailurePinMismatch       FailureCode = 12
	FailureFirmwareError     FailureCode = 99
)

// String returns the failure code name.
func (c FailureCode) String() string {
	switch c {
	case FailureUnexpectedMessage:
		return "UNEXPECTED_MESSAGE"
	case FailureButtonExpected:
		return "BUTTON_EXPECTED"
	case FailureDataError:
		return "DATA_ERROR"
	case FailureActionCancelled:
		return "ACTION_CANCELLED"
	case FailurePinExpected:
		return "PIN_EXPECTED"
	case FailurePinCancelled:
		return "PIN_CANCELLED"
	case FailurePinInvalid:
		return "PIN_INVALID"
	case FailureInvalidSignature:
		return "INVALID_SIGNATURE"
	case FailureProcessError:
		return "PROCESS_ERROR"
	case FailureNotInitialized:
		return "NOT_INITIALIZED"
	case FailurePinMismatch:
		return "PIN_MISMATCH"
	case FailureFirmwareError:
		return "FIRMWARE_ERROR"
	default:
		return "UNKNOWN"
	}
}

// ButtonRequestCode tells the host why the device wants a button press.
type ButtonRequestCode uint8

// Button request codes.
const (
	ButtonOther       ButtonRequestCode = 1
	ButtonResetDevice ButtonRequestCode = 4
	ButtonConfirmWord ButtonRequestCode = 5
	ButtonWipeDevice  ButtonRequestCode = 6
	ButtonProtectCall ButtonRequestCode = 7
	ButtonAddress     ButtonRequestCode = 10
)

// PinMatrixRequestType tells the host which PIN the device is asking for.
type PinMatrixRequestType uint8

// PIN request types.
const (
	PinCurrent   PinMatrixRequestType = 1
	PinNewFirst  PinMatrixRequestType = 2
	PinNewSecond PinMatrixRequestType = 3
)

// String returns the PIN request type name.
func (p PinMatrixRequestType) String() string {
	switch p {
	case PinCurrent:
		return "CURRENT"
	case PinNewFirst:
		return "NEW_FIRST"
	case PinNewSecond:
		return "NEW_SECOND"
	default:
		return "UNKNOWN"
	}
}
