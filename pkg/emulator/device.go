package emulator

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/hkdf"

	"github.com/mash-protocol/devreset-go/pkg/log"
	"github.com/mash-protocol/devreset-go/pkg/mnemonic"
	"github.com/mash-protocol/devreset-go/pkg/persistence"
	"github.com/mash-protocol/devreset-go/pkg/wire"
)

// identityMatrix is the PIN matrix layout reported on the debug link. The
// emulator does not scramble, so matrix positions are the digits.
const identityMatrix = "123456789"

// entropyInfo labels the deterministic entropy stream.
var entropyInfo = []byte("devreset emulator entropy")

// settings is what an initialized device holds.
type settings struct {
	initialized          bool
	words                mnemonic.Sequence
	wordList             mnemonic.WordList
	seed                 []byte
	pin                  string
	passphraseProtection bool
	label                string
	language             string
}

func (s settings) String() string {
	if s.initialized {
		return "INITIALIZED"
	}
	return "UNINITIALIZED"
}

// prompt is a device request awaiting its ack. next runs once the matching
// ack arrives and returns the following device message.
type prompt struct {
	want wire.MessageType
	next func(msg wire.Message) wire.Message
}

// Device is an emulated hardware wallet. It is safe for concurrent use by
// one main link and one debug link.
type Device struct {
	opts    Options
	entropy io.Reader
	logger  log.Logger

	mu       sync.Mutex
	settings settings
	pending  *prompt
	decision *bool

	// Debug-visible reset progress.
	resetEntropy []byte
	resetWord    string
}

// New creates a device. When opts.Store holds saved settings they are
// restored.
func New(opts Options) (*Device, error) {
	if opts.Vendor == "" {
		opts.Vendor = DefaultVendor
	}

	d := &Device{
		opts:    opts,
		entropy: rand.Reader,
		logger:  log.OrNoop(opts.Logger),
	}
	if opts.EntropySeed != nil {
		d.entropy = hkdf.New(sha256.New, opts.EntropySeed, nil, entropyInfo)
	}

	if opts.Store != nil {
		state, err := opts.Store.Load()
		if err != nil {
			return nil, fmt.Errorf("failed to load device state: %w", err)
		}
		if state != nil {
			if err := d.restore(state); err != nil {
				return nil, err
			}
		}
	}
	if d.opts.DeviceID == "" {
		d.opts.DeviceID = uuid.NewString()
	}
	return d, nil
}

func (d *Device) restore(state *persistence.DeviceState) error {
	if d.opts.DeviceID == "" {
		d.opts.DeviceID = state.DeviceID
	}
	if !state.Initialized {
		return nil
	}

	wordList, err := mnemonic.ParseWordList(state.WordList)
	if err != nil {
		return fmt.Errorf("saved mnemonic is invalid: %w", err)
	}
	words := mnemonic.Parse(state.Mnemonic)
	seed, err := wordList.Decode(words)
	if err != nil {
		return fmt.Errorf("saved mnemonic is invalid: %w", err)
	}
	d.settings = settings{
		initialized:          true,
		words:                words,
		wordList:             wordList,
		seed:                 seed,
		pin:                  state.Pin,
		passphraseProtection: state.PassphraseProtection,
		label:                state.Label,
		language:             state.Language,
	}
	return nil
}

// ID returns the device ID reported in Features.
func (d *Device) ID() string { return d.opts.DeviceID }

// Vendor returns the vendor reported in Features.
func (d *Device) Vendor() string { return d.opts.Vendor }

// Initialized reports whether the device holds a seed.
func (d *Device) Initialized() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.settings.initialized
}

// Mnemonic returns the installed mnemonic, or nil.
func (d *Device) Mnemonic() mnemonic.Sequence {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.settings.words.Clone()
}

// Call handles a main-link message. It never fails on its own; protocol
// errors are answered with Failure.
func (d *Device) Call(ctx context.Context, msg wire.Message) (wire.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	return d.handle(msg), nil
}

// Handle is Call under the transport handler signature.
func (d *Device) Handle(ctx context.Context, msg wire.Message) (wire.Message, error) {
	return d.Call(ctx, msg)
}

func (d *Device) handle(msg wire.Message) wire.Message {
	switch msg.(type) {
	case nil:
		return failure(wire.FailureDataError, "empty message")
	case *wire.Initialize:
		d.clearPending()
		return d.features()
	case *wire.Cancel:
		d.clearPending()
		return failure(wire.FailureActionCancelled, "cancelled")
	case *wire.DebugLinkDecision, *wire.DebugLinkGetState:
		return failure(wire.FailureUnexpectedMessage, "debug message on main link")
	}

	if isAck(msg.Type()) {
		p := d.pending
		d.pending = nil
		if p == nil || p.want != msg.Type() {
			d.clearPending()
			return failure(wire.FailureUnexpectedMessage,
				fmt.Sprintf("unexpected %s", wire.Name(msg)))
		}
		if _, ok := msg.(*wire.ButtonAck); ok {
			if reply := d.takeButton(); reply != nil {
				d.clearPending()
				return reply
			}
		}
		return p.next(msg)
	}

	// A new request abandons whatever flow was in progress.
	d.clearPending()

	switch m := msg.(type) {
	case *wire.Ping:
		return d.ping(m)
	case *wire.ResetDevice:
		return d.reset(m)
	case *wire.LoadDevice:
		return d.load(m)
	case *wire.WipeDevice:
		return d.wipe()
	case *wire.GetAddress:
		return d.getAddress(m)
	case *wire.SignMessage:
		return d.signMessage(m)
	case *wire.VerifyMessage:
		return d.verifyMessage(m)
	default:
		return failure(wire.FailureUnexpectedMessage,
			fmt.Sprintf("unexpected %s", wire.Name(msg)))
	}
}

// takeButton applies the pending button decision. It returns a Failure
// when the press was refused or never made, and nil to proceed.
func (d *Device) takeButton() wire.Message {
	yes := d.opts.AutoConfirm
	if d.decision != nil {
		yes = *d.decision
		d.decision = nil
	} else if !d.opts.AutoConfirm {
		return failure(wire.FailureButtonExpected, "button was not pressed")
	}
	if !yes {
		return failure(wire.FailureActionCancelled, "action cancelled by user")
	}
	return nil
}

// ask records what ack the device now waits for and returns the request.
func (d *Device) ask(req wire.Message, want wire.MessageType, next func(wire.Message) wire.Message) wire.Message {
	d.pending = &prompt{want: want, next: next}
	return req
}

// confirm asks for a button press, then runs then.
func (d *Device) confirm(code wire.ButtonRequestCode, then func() wire.Message) wire.Message {
	return d.ask(&wire.ButtonRequest{Code: code}, wire.TypeButtonAck, func(wire.Message) wire.Message {
		return then()
	})
}

// unlock asks for the current PIN when one is set, then runs then.
func (d *Device) unlock(then func() wire.Message) wire.Message {
	if d.settings.pin == "" {
		return then()
	}
	return d.ask(&wire.PinMatrixRequest{Kind: wire.PinCurrent}, wire.TypePinMatrixAck, func(msg wire.Message) wire.Message {
		if msg.(*wire.PinMatrixAck).Pin != d.settings.pin {
			return failure(wire.FailurePinInvalid, "invalid PIN")
		}
		return then()
	})
}

// passphrase asks for the passphrase when protection is on, then runs then
// with it.
func (d *Device) passphrase(then func(passphrase string) wire.Message) wire.Message {
	if !d.settings.passphraseProtection {
		return then("")
	}
	return d.ask(&wire.PassphraseRequest{}, wire.TypePassphraseAck, func(msg wire.Message) wire.Message {
		return then(msg.(*wire.PassphraseAck).Passphrase)
	})
}

func (d *Device) clearPending() {
	d.pending = nil
	d.decision = nil
	clear(d.resetEntropy)
	d.resetEntropy = nil
	d.resetWord = ""
}

func (d *Device) features() *wire.Features {
	return &wire.Features{
		Vendor:               d.opts.Vendor,
		DeviceID:             d.opts.DeviceID,
		Initialized:          d.settings.initialized,
		PinProtection:        d.settings.pin != "",
		PassphraseProtection: d.settings.passphraseProtection,
		Label:                d.settings.label,
		Language:             d.settings.language,
	}
}

func (d *Device) ping(msg *wire.Ping) wire.Message {
	done := func() wire.Message {
		return &wire.Success{Message: msg.Message}
	}
	withPassphrase := done
	if msg.PassphraseProtection {
		withPassphrase = func() wire.Message {
			return d.passphrase(func(string) wire.Message { return done() })
		}
	}
	withPin := withPassphrase
	if msg.PinProtection {
		withPin = func() wire.Message { return d.unlock(withPassphrase) }
	}
	if msg.ButtonProtection {
		return d.confirm(wire.ButtonProtectCall, withPin)
	}
	return withPin()
}

func (d *Device) wipe() wire.Message {
	return d.confirm(wire.ButtonWipeDevice, func() wire.Message {
		seed := d.settings.seed
		if err := d.install(settings{}, "wipe"); err != nil {
			return failure(wire.FailureFirmwareError, err.Error())
		}
		clear(seed)
		return &wire.Success{Message: "device wiped"}
	})
}

func (d *Device) load(msg *wire.LoadDevice) wire.Message {
	if d.settings.initialized {
		return failure(wire.FailureUnexpectedMessage, "device is already initialized")
	}
	// Loaded backups use standard PGP word positions.
	words := mnemonic.Parse(msg.Mnemonic)
	seed, err := mnemonic.PGPWords.Decode(words)
	if err != nil {
		return failure(wire.FailureDataError, err.Error())
	}

	return d.confirm(wire.ButtonProtectCall, func() wire.Message {
		err := d.install(settings{
			initialized:          true,
			words:                words,
			wordList:             mnemonic.PGPWords,
			seed:                 seed,
			pin:                  msg.Pin,
			passphraseProtection: msg.PassphraseProtection,
			label:                msg.Label,
			language:             msg.Language,
		}, "load")
		if err != nil {
			return failure(wire.FailureFirmwareError, err.Error())
		}
		return &wire.Success{Message: "device loaded"}
	})
}

// install replaces the settings and saves them. The previous settings stay
// in place when saving fails.
func (d *Device) install(s settings, reason string) error {
	old := d.settings
	d.settings = s
	if err := d.persist(); err != nil {
		d.settings = old
		return err
	}
	d.logSettings(old, reason)
	return nil
}

func (d *Device) persist() error {
	if d.opts.Store == nil {
		return nil
	}
	state := &persistence.DeviceState{
		DeviceID:    d.opts.DeviceID,
		Initialized: d.settings.initialized,
	}
	if d.settings.initialized {
		state.Mnemonic = d.settings.words.String()
		state.WordList = d.settings.wordList.String()
		state.Pin = d.settings.pin
		state.PassphraseProtection = d.settings.passphraseProtection
		state.Label = d.settings.label
		state.Language = d.settings.language
	}
	if err := d.opts.Store.Save(state); err != nil {
		return fmt.Errorf("failed to save device state: %w", err)
	}
	return nil
}

func (d *Device) logSettings(old settings, reason string) {
	d.logger.Log(log.Event{
		Timestamp: time.Now(),
		Layer:     log.LayerHandshake,
		Category:  log.CategoryState,
		LocalRole: log.RoleDevice,
		DeviceID:  d.opts.DeviceID,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntitySettings,
			OldState: old.String(),
			NewState: d.settings.String(),
			Reason:   reason,
		},
	})
}

func isAck(t wire.MessageType) bool {
	switch t {
	case wire.TypeButtonAck, wire.TypePinMatrixAck, wire.TypePassphraseAck, wire.TypeEntropyAck:
		return true
	default:
		return false
	}
}

func failure(code wire.FailureCode, message string) *wire.Failure {
	return &wire.Failure{Code: code, Message: message}
}
