package reset

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mash-protocol/devreset-go/pkg/entropy"
	"github.com/mash-protocol/devreset-go/pkg/log"
	"github.com/mash-protocol/devreset-go/pkg/mnemonic"
	"github.com/mash-protocol/devreset-go/pkg/wire"
)

// ExternalEntropySize is how much host entropy is drawn when the caller
// does not supply it.
const ExternalEntropySize = entropy.MinSourceSize

// cancelTimeout bounds the best-effort Cancel sent while aborting.
const cancelTimeout = 5 * time.Second

// Exchanger sends a request to the device and returns its reply.
type Exchanger interface {
	Call(ctx context.Context, msg wire.Message) (wire.Message, error)
}

// DebugLink reads device internals that only test devices expose.
type DebugLink interface {
	ReadResetEntropy(ctx context.Context) ([]byte, error)
	ReadResetWord(ctx context.Context) (string, error)
	PressButton(ctx context.Context, yes bool) error
}

// Request is what the host asks the device to set up.
type Request struct {
	Strength             entropy.Strength
	DisplayRandom        bool
	PinProtection        bool
	PassphraseProtection bool
	Label                string
	Language             string
}

func (r Request) message() *wire.ResetDevice {
	return &wire.ResetDevice{
		DisplayRandom:        r.DisplayRandom,
		Strength:             uint16(r.Strength),
		PassphraseProtection: r.PassphraseProtection,
		PinProtection:        r.PinProtection,
		Language:             r.Language,
		Label:                r.Label,
	}
}

// Config injects the session's collaborators.
type Config struct {
	Exchanger Exchanger
	Debug     DebugLink

	// Pins is required when the request asks for PIN protection.
	Pins PinProvider

	// External is the host entropy. When nil, ExternalEntropySize bytes are
	// read from EntropySource (default crypto/rand).
	External      []byte
	EntropySource io.Reader

	// Logger receives state and error events (optional).
	Logger log.Logger

	// OnStateChange is called after every transition (optional).
	OnStateChange func(from, to State)
}

// Session is one reset handshake. It is single-use: once Settled or
// Aborted it is retired.
type Session struct {
	id     string
	req    Request
	config Config

	// stepMu serializes Step and Cancel.
	stepMu sync.Mutex

	stateMu sync.RWMutex
	state   State
	err     error

	seed      []byte
	reference mnemonic.Sequence
	passes    [2]mnemonic.Sequence
}

// NewSession validates the request and collaborators.
func NewSession(req Request, config Config) (*Session, error) {
	if !req.Strength.Valid() {
		return nil, &entropy.InvalidStrengthError{Strength: int(req.Strength)}
	}
	if config.Exchanger == nil {
		return nil, ErrNoExchanger
	}
	if config.Debug == nil {
		return nil, ErrNoDebugLink
	}
	if req.PinProtection && config.Pins == nil {
		return nil, ErrNoPinProvider
	}
	if config.External != nil {
		if len(config.External) == 0 {
			return nil, &entropy.MissingEntropyError{Source: entropy.SourceExternal}
		}
		if len(config.External) < entropy.MinSourceSize {
			return nil, &entropy.InsufficientEntropyError{
				Source: entropy.SourceExternal,
				Got:    len(config.External),
				Min:    entropy.MinSourceSize,
			}
		}
	}
	if config.EntropySource == nil {
		config.EntropySource = rand.Reader
	}
	config.Logger = log.OrNoop(config.Logger)

	return &Session{
		id:     uuid.NewString(),
		req:    req,
		config: config,
		state:  StateIdle,
	}, nil
}

// ID returns the session ID recorded in protocol capture.
func (s *Session) ID() string { return s.id }

// Request returns the settings the session asked for.
func (s *Session) Request() Request { return s.req }

// State returns the current state. Safe for concurrent use.
func (s *Session) State() State {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state
}

// Err returns the error that aborted the session, if any.
func (s *Session) Err() error {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.err
}

// Reference returns the mnemonic the host computed from the mixed seed.
// It is nil before the entropy exchange and after the session is retired.
func (s *Session) Reference() mnemonic.Sequence {
	s.stepMu.Lock()
	defer s.stepMu.Unlock()
	return s.reference.Clone()
}

// Run steps the handshake until it settles or aborts. If ctx ends while
// the device awaits input, a Cancel is sent before returning.
func (s *Session) Run(ctx context.Context) error {
	for {
		if err := s.Step(ctx); err != nil {
			return err
		}
		if s.State() == StateSettled {
			return nil
		}
	}
}

// Step performs one request/reply exchange and advances the state.
func (s *Session) Step(ctx context.Context) error {
	s.stepMu.Lock()
	defer s.stepMu.Unlock()

	state := s.State()
	if state.Terminal() {
		return ErrSessionRetired
	}

	var (
		reply wire.Message
		err   error
	)
	switch state {
	case StateIdle:
		reply, err = s.call(ctx, "send reset request", s.req.message())
	case StateAwaitRandomDisplayConfirm:
		reply, err = s.confirmButton(ctx)
	case StateAwaitPinFirst, StateAwaitPinSecond:
		reply, err = s.enterPin(ctx, state)
	case StateAwaitEntropy:
		reply, err = s.supplyEntropy(ctx)
	case StateAwaitFirstPassWords, StateAwaitSecondPassWords:
		reply, err = s.readWord(ctx, state.Pass())
	}
	if err == nil {
		err = s.advance(state, reply)
	}
	if err != nil {
		return s.abort(ctx, state, err)
	}
	return nil
}

// Cancel aborts a session that is waiting on the host. The device is told
// with a Cancel message; an Idle session aborts without contacting it.
func (s *Session) Cancel(ctx context.Context) error {
	s.stepMu.Lock()
	defer s.stepMu.Unlock()

	state := s.State()
	switch {
	case state.Terminal():
		return ErrSessionRetired
	case state == StateIdle:
		s.retire(StateAborted, ErrCancelled, "cancelled before start")
		return nil
	}

	reply, err := s.config.Exchanger.Call(ctx, &wire.Cancel{})
	s.retire(StateAborted, ErrCancelled, "cancelled by host")
	if err != nil {
		return fmt.Errorf("%w: failed to send cancel: %w", ErrTransport, err)
	}
	if _, ok := reply.(*wire.Failure); !ok {
		return &UnexpectedMessageError{State: state, Want: wire.TypeFailure, Got: reply}
	}
	return nil
}

func (s *Session) confirmButton(ctx context.Context) (wire.Message, error) {
	if err := s.config.Debug.PressButton(ctx, true); err != nil {
		return nil, s.linkError(ctx, "press button", err)
	}
	return s.call(ctx, "acknowledge button", &wire.ButtonAck{})
}

func (s *Session) enterPin(ctx context.Context, state State) (wire.Message, error) {
	kind := wire.PinNewFirst
	if state == StateAwaitPinSecond {
		kind = wire.PinNewSecond
	}
	pin, err := s.config.Pins.Pin(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to get pin: %w", err)
	}
	return s.call(ctx, "send pin", &wire.PinMatrixAck{Pin: pin})
}

// supplyEntropy mixes the device's internal entropy with the host's and
// fixes the reference mnemonic before the device displays anything.
func (s *Session) supplyEntropy(ctx context.Context) (wire.Message, error) {
	internal, err := s.config.Debug.ReadResetEntropy(ctx)
	if err != nil {
		return nil, s.linkError(ctx, "read internal entropy", err)
	}

	external := s.config.External
	if external == nil {
		external = make([]byte, ExternalEntropySize)
		if _, err := io.ReadFull(s.config.EntropySource, external); err != nil {
			return nil, fmt.Errorf("failed to generate external entropy: %w", err)
		}
	}

	seed, err := entropy.Mix(internal, external, s.req.Strength)
	if err != nil {
		return nil, err
	}
	reference, err := mnemonic.Encode(seed)
	if err != nil {
		return nil, err
	}
	s.seed = seed
	s.reference = reference

	return s.call(ctx, "send external entropy", &wire.EntropyAck{Entropy: external})
}

// readWord reads the displayed word and confirms it only if it matches.
func (s *Session) readWord(ctx context.Context, pass int) (wire.Message, error) {
	word, err := s.config.Debug.ReadResetWord(ctx)
	if err != nil {
		return nil, s.linkError(ctx, "read displayed word", err)
	}

	index := len(s.passes[pass-1])
	want := s.reference.At(index)
	if pass == 2 {
		want = s.passes[0].At(index)
	}
	if word != want {
		return nil, &ConformanceError{Pass: pass, Index: index, Want: want, Got: word}
	}
	s.passes[pass-1] = append(s.passes[pass-1], word)

	if err := s.config.Debug.PressButton(ctx, true); err != nil {
		return nil, s.linkError(ctx, "press button", err)
	}
	return s.call(ctx, "acknowledge word", &wire.ButtonAck{})
}

// advance validates reply against what state allows and transitions.
func (s *Session) advance(state State, reply wire.Message) error {
	if f, ok := reply.(*wire.Failure); ok {
		return &DeviceFailureError{State: state, Code: f.Code, Message: f.Message}
	}

	next, want := s.expected(state)
	if reply == nil || reply.Type() != want {
		return &UnexpectedMessageError{State: state, Want: want, Got: reply}
	}

	if next == StateSettled {
		if err := s.checkPasses(); err != nil {
			return err
		}
		s.retire(StateSettled, nil, "")
		return nil
	}

	s.transition(next, "")
	return nil
}

// expected returns the next state and the device message that leads to it.
func (s *Session) expected(state State) (State, wire.MessageType) {
	words := s.req.Strength.Words()

	switch state {
	case StateIdle:
		if s.req.DisplayRandom {
			return StateAwaitRandomDisplayConfirm, wire.TypeButtonRequest
		}
		return s.expected(StateAwaitRandomDisplayConfirm)
	case StateAwaitRandomDisplayConfirm:
		if s.req.PinProtection {
			return StateAwaitPinFirst, wire.TypePinMatrixRequest
		}
		return StateAwaitEntropy, wire.TypeEntropyRequest
	case StateAwaitPinFirst:
		return StateAwaitPinSecond, wire.TypePinMatrixRequest
	case StateAwaitPinSecond:
		return StateAwaitEntropy, wire.TypeEntropyRequest
	case StateAwaitEntropy:
		return StateAwaitFirstPassWords, wire.TypeButtonRequest
	case StateAwaitFirstPassWords:
		if len(s.passes[0]) < words {
			return StateAwaitFirstPassWords, wire.TypeButtonRequest
		}
		return StateAwaitSecondPassWords, wire.TypeButtonRequest
	case StateAwaitSecondPassWords:
		if len(s.passes[1]) < words {
			return StateAwaitSecondPassWords, wire.TypeButtonRequest
		}
		return StateSettled, wire.TypeSuccess
	}
	return StateAborted, wire.TypeFailure
}

// checkPasses is the settle condition: pass 1 == pass 2 == reference.
func (s *Session) checkPasses() error {
	if i, equal := s.passes[0].FirstMismatch(s.reference); !equal {
		return &ConformanceError{Pass: 1, Index: i, Want: s.reference.At(i), Got: s.passes[0].At(i)}
	}
	if i, equal := s.passes[1].FirstMismatch(s.passes[0]); !equal {
		return &ConformanceError{Pass: 2, Index: i, Want: s.passes[0].At(i), Got: s.passes[1].At(i)}
	}
	return nil
}

func (s *Session) call(ctx context.Context, op string, msg wire.Message) (wire.Message, error) {
	reply, err := s.config.Exchanger.Call(ctx, msg)
	if err != nil {
		return nil, s.linkError(ctx, op, err)
	}
	return reply, nil
}

// linkError classifies a collaborator error as cancellation or transport.
func (s *Session) linkError(ctx context.Context, op string, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("%w: failed to %s: %w", ErrCancelled, op, err)
	}
	return fmt.Errorf("%w: failed to %s: %w", ErrTransport, op, err)
}

// abort retires the session. The device is sent a Cancel when it is still
// waiting on the host and the link is usable, so it never settles on a
// mnemonic the host rejected.
func (s *Session) abort(ctx context.Context, state State, err error) error {
	var failure *DeviceFailureError
	deviceEnded := errors.As(err, &failure)
	if state.AwaitingInput() && !deviceEnded && !errors.Is(err, ErrTransport) {
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cancelTimeout)
		_, _ = s.config.Exchanger.Call(cctx, &wire.Cancel{})
		cancel()
	}

	s.config.Logger.Log(log.Event{
		Timestamp: time.Now(),
		Layer:     log.LayerHandshake,
		Category:  log.CategoryError,
		SessionID: s.id,
		Error: &log.ErrorEventData{
			Layer:   log.LayerHandshake,
			Message: err.Error(),
			Code:    failureCode(failure),
			Context: state.String(),
		},
	})

	s.retire(StateAborted, err, err.Error())
	return err
}

// retire moves to a terminal state and drops seed material.
func (s *Session) retire(to State, err error, reason string) {
	clear(s.seed)
	s.seed = nil
	s.reference = nil
	s.passes = [2]mnemonic.Sequence{}

	s.stateMu.Lock()
	s.err = err
	s.stateMu.Unlock()
	s.transition(to, reason)
}

func (s *Session) transition(to State, reason string) {
	s.stateMu.Lock()
	from := s.state
	s.state = to
	s.stateMu.Unlock()

	if from == to {
		return
	}

	s.config.Logger.Log(log.Event{
		Timestamp: time.Now(),
		Layer:     log.LayerHandshake,
		Category:  log.CategoryState,
		SessionID: s.id,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityHandshake,
			OldState: from.String(),
			NewState: to.String(),
			Reason:   reason,
		},
	})
	if s.config.OnStateChange != nil {
		s.config.OnStateChange(from, to)
	}
}

func failureCode(f *DeviceFailureError) *int {
	if f == nil {
		return nil
	}
	code := int(f.Code)
	return &code
}
