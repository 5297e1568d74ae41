package wire

// Message is implemented by every wire message.
type Message interface {
	// Type returns the envelope type of the message.
	Type() MessageType
}

// Initialize asks the device for its Features.
type Initialize struct{}

// Ping asks the device to answer with Success. The protection flags make the
// device run the corresponding challenge first.
type Ping struct {
	Message              string `cbor:"1,keyasint,omitempty"`
	ButtonProtection     bool   `cbor:"2,keyasint,omitempty"`
	PinProtection        bool   `cbor:"3,keyasint,omitempty"`
	PassphraseProtection bool   `cbor:"4,keyasint,omitempty"`
}

// Success ends an exchange successfully.
type Success struct {
	Message string `cbor:"1,keyasint,omitempty"`
}

// Failure ends an exchange with an error.
type Failure struct {
	Code    FailureCode `cbor:"1,keyasint"`
	Message string      `cbor:"2,keyasint,omitempty"`
}

// WipeDevice erases the device.
type WipeDevice struct{}

// LoadDevice installs a known mnemonic (test and recovery use only).
type LoadDevice struct {
	Mnemonic             string `cbor:"1,keyasint"`
	Pin                  string `cbor:"2,keyasint,omitempty"`
	PassphraseProtection bool   `cbor:"3,keyasint,omitempty"`
	Language             string `cbor:"4,keyasint,omitempty"`
	Label                string `cbor:"5,keyasint,omitempty"`
}

// ResetDevice starts device initialization with a freshly mixed seed.
type ResetDevice struct {
	DisplayRandom        bool   `cbor:"1,keyasint,omitempty"`
	Strength             uint16 `cbor:"2,keyasint"`
	PassphraseProtection bool   `cbor:"3,keyasint,omitempty"`
	PinProtection        bool   `cbor:"4,keyasint,omitempty"`
	Language             string `cbor:"5,keyasint,omitempty"`
	Label                string `cbor:"6,keyasint,omitempty"`
}

// Features describes the device configuration.
type Features struct {
	Vendor               string `cbor:"1,keyasint,omitempty"`
	DeviceID             string `cbor:"2,keyasint,omitempty"`
	Initialized          bool   `cbor:"3,keyasint,omitempty"`
	PinProtection        bool   `cbor:"4,keyasint,omitempty"`
	PassphraseProtection bool   `cbor:"5,keyasint,omitempty"`
	Label                string `cbor:"6,keyasint,omitempty"`
	Language             string `cbor:"7,keyasint,omitempty"`
}

// PinMatrixRequest asks the host for a matrix-encoded PIN.
type PinMatrixRequest struct {
	Kind PinMatrixRequestType `cbor:"1,keyasint"`
}

// PinMatrixAck carries a matrix-encoded PIN.
type PinMatrixAck struct {
	Pin string `cbor:"1,keyasint"`
}

// Cancel aborts the exchange in progress.
type Cancel struct{}

// ButtonRequest asks the host to acknowledge a pending button press.
type ButtonRequest struct {
	Code ButtonRequestCode `cbor:"1,keyasint,omitempty"`
}

// ButtonAck acknowledges a ButtonRequest.
type ButtonAck struct{}

// GetAddress asks the device for the address at a derivation path.
type GetAddress struct {
	AddressN    []uint32 `cbor:"1,keyasint,omitempty"`
	CoinName    string   `cbor:"2,keyasint,omitempty"`
	ShowDisplay bool     `cbor:"3,keyasint,omitempty"`
	Segwit      bool     `cbor:"4,keyasint,omitempty"`
}

// Address answers GetAddress.
type Address struct {
	Address string `cbor:"1,keyasint"`
}

// EntropyRequest asks the host for external entropy.
type EntropyRequest struct{}

// EntropyAck carries the host's external entropy.
type EntropyAck struct {
	Entropy []byte `cbor:"1,keyasint"`
}

// SignMessage asks the device to sign a message with the key at AddressN.
type SignMessage struct {
	AddressN []uint32 `cbor:"1,keyasint,omitempty"`
	Message  []byte   `cbor:"2,keyasint"`
	CoinName string   `cbor:"3,keyasint,omitempty"`
	Segwit   bool     `cbor:"4,keyasint,omitempty"`
}

// VerifyMessage asks the device to verify a message signature.
type VerifyMessage struct {
	Address   string `cbor:"1,keyasint"`
	Signature []byte `cbor:"2,keyasint"`
	Message   []byte `cbor:"3,keyasint"`
	CoinName  string `cbor:"4,keyasint,omitempty"`
}

// MessageSignature answers SignMessage.
type MessageSignature struct {
	Address   string `cbor:"1,keyasint"`
	Signature []byte `cbor:"2,keyasint"`
}

// PassphraseRequest asks the host for the passphrase.
type PassphraseRequest struct{}

// PassphraseAck carries the passphrase.
type PassphraseAck struct {
	Passphrase string `cbor:"1,keyasint"`
}

// DebugLinkDecision presses a button on the device. The device answers
// with Success once the decision is recorded.
type DebugLinkDecision struct {
	YesNo bool `cbor:"1,keyasint"`
}

// DebugLinkGetState asks the device for its debug state.
type DebugLinkGetState struct{}

// DebugLinkState exposes device internals for verification.
type DebugLinkState struct {
	ResetEntropy []byte `cbor:"1,keyasint,omitempty"`
	ResetWord    string `cbor:"2,keyasint,omitempty"`
	Pin          string `cbor:"3,keyasint,omitempty"`
	Matrix       string `cbor:"4,keyasint,omitempty"`
	Mnemonic     string `cbor:"5,keyasint,omitempty"`
}

func (*Initialize) Type() MessageType        { return TypeInitialize }
func (*Ping) Type() MessageType              { return TypePing }
func (*Success) Type() MessageType           { return TypeSuccess }
func (*Failure) Type() MessageType           { return TypeFailure }
func (*WipeDevice) Type() MessageType        { return TypeWipeDevice }
func (*LoadDevice) Type() MessageType        { return TypeLoadDevice }
func (*ResetDevice) Type() MessageType       { return TypeResetDevice }
func (*Features) Type() MessageType          { return TypeFeatures }
func (*PinMatrixRequest) Type() MessageType  { return TypePinMatrixRequest }
func (*PinMatrixAck) Type() MessageType      { return TypePinMatrixAck }
func (*Cancel) Type() MessageType            { return TypeCancel }
func (*ButtonRequest) Type() MessageType     { return TypeButtonRequest }
func (*ButtonAck) Type() MessageType         { return TypeButtonAck }
func (*GetAddress) Type() MessageType        { return TypeGetAddress }
func (*Address) Type() MessageType           { return TypeAddress }
func (*EntropyRequest) Type() MessageType    { return TypeEntropyRequest }
func (*EntropyAck) Type() MessageType        { return TypeEntropyAck }
func (*SignMessage) Type() MessageType       { return TypeSignMessage }
func (*VerifyMessage) Type() MessageType     { return TypeVerifyMessage }
func (*MessageSignature) Type() MessageType  { return TypeMessageSignature }
func (*PassphraseRequest) Type() MessageType { return TypePassphraseRequest }
func (*PassphraseAck) Type() MessageType     { return TypePassphraseAck }
func (*DebugLinkDecision) Type() MessageType { return TypeDebugLinkDecision }
func (*DebugLinkGetState) Type() MessageType { return TypeDebugLinkGetState }
func (*DebugLinkState) Type() MessageType    { return TypeDebugLinkState }

// newMessage returns an empty message for t, or nil if t is unknown.
func newMessage(t MessageType) Message {
	switch t {
	case TypeInitialize:
		return &Initialize{}
	case TypePing:
		return &Ping{}
	case TypeSuccess:
		return &Success{}
	case TypeFailure:
		return &Failure{}
	case TypeWipeDevice:
		return &WipeDevice{}
	case TypeLoadDevice:
		return &LoadDevice{}
	case TypeResetDevice:
		return &ResetDevice{}
	case TypeFeatures:
		return &Features{}
	case TypePinMatrixRequest:
		return &PinMatrixRequest{}
	case TypePinMatrixAck:
		return &PinMatrixAck{}
	case TypeCancel:
		return &Cancel{}
	case TypeButtonRequest:
		return &ButtonRequest{}
	case TypeButtonAck:
		return &ButtonAck{}
	case TypeGetAddress:
		return &GetAddress{}
	case TypeAddress:
		return &Address{}
	case TypeEntropyRequest:
		return &EntropyRequest{}
	case TypeEntropyAck:
		return &EntropyAck{}
	case TypeSignMessage:
		return &SignMessage{}
	case TypeVerifyMessage:
		return &VerifyMessage{}
	case TypeMessageSignature:
		return &MessageSignature{}
	case TypePassphraseRequest:
		return &PassphraseRequest{}
	case TypePassphraseAck:
		return &PassphraseAck{}
	case TypeDebugLinkDecision:
		return &DebugLinkDecision{}
	case TypeDebugLinkGetState:
		return &DebugLinkGetState{}
	case TypeDebugLinkState:
		return &DebugLinkState{}
	default:
		return nil
	}
}
