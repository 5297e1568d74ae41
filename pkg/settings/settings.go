package settings

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/mash-protocol/devreset-go/pkg/log"
	"github.com/mash-protocol/devreset-go/pkg/reset"
	"github.com/mash-protocol/devreset-go/pkg/wire"
)

// Verification errors.
var (
	ErrNotSettled      = errors.New("session is not settled")
	ErrMismatch        = errors.New("settings mismatch")
	ErrUnexpectedReply = errors.New("unexpected reply")
	ErrNoExchanger     = errors.New("exchanger is required")
)

// Check names.
const (
	CheckInitialized         = "initialized"
	CheckPinProtection       = "pin_protection"
	CheckPassphrase          = "passphrase_protection"
	CheckLabel               = "label"
	CheckLanguage            = "language"
	CheckPinChallenge        = "pin_challenge"
	CheckPassphraseChallenge = "passphrase_challenge"
	CheckUnchanged           = "settings_unchanged"
)

// DeviceSettings is the configuration a device reports after a reset.
type DeviceSettings struct {
	Initialized          bool
	PinProtection        bool
	PassphraseProtection bool
	Label                string
	Language             string
}

// Query reads the current settings with Initialize.
func Query(ctx context.Context, ex reset.Exchanger) (DeviceSettings, error) {
	reply, err := ex.Call(ctx, &wire.Initialize{})
	if err != nil {
		return DeviceSettings{}, fmt.Errorf("failed to query settings: %w", err)
	}
	f, ok := reply.(*wire.Features)
	if !ok {
		return DeviceSettings{}, fmt.Errorf("%w: expected Features, got %s", ErrUnexpectedReply, wire.Name(reply))
	}
	return DeviceSettings{
		Initialized:          f.Initialized,
		PinProtection:        f.PinProtection,
		PassphraseProtection: f.PassphraseProtection,
		Label:                f.Label,
		Language:             f.Language,
	}, nil
}

// Check is one verified property.
type Check struct {
	Name string
	Want string
	Got  string
	OK   bool
}

func boolCheck(name string, want, got bool) Check {
	return Check{
		Name: name,
		Want: strconv.FormatBool(want),
		Got:  strconv.FormatBool(got),
		OK:   want == got,
	}
}

func stringCheck(name, want, got string) Check {
	return Check{Name: name, Want: want, Got: got, OK: want == got}
}

// Report lists every check in the order it ran.
type Report struct {
	SessionID string
	Settings  DeviceSettings
	Checks    []Check
}

// OK reports whether every check passed.
func (r *Report) OK() bool {
	return len(r.Failed()) == 0
}

// Failed returns the failing checks.
func (r *Report) Failed() []Check {
	var failed []Check
	for _, c := range r.Checks {
		if !c.OK {
			failed = append(failed, c)
		}
	}
	return failed
}

// MismatchError names the first failing check.
type MismatchError struct {
	Check Check
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("%v: %s: expected %s, got %s", ErrMismatch, e.Check.Name, e.Check.Want, e.Check.Got)
}

func (e *MismatchError) Unwrap() error { return ErrMismatch }

// Compare checks reported settings against the request. Label and language
// are only compared when the request sets them.
func Compare(req reset.Request, got DeviceSettings) []Check {
	checks := []Check{
		boolCheck(CheckInitialized, true, got.Initialized),
		boolCheck(CheckPinProtection, req.PinProtection, got.PinProtection),
		boolCheck(CheckPassphrase, req.PassphraseProtection, got.PassphraseProtection),
	}
	if req.Label != "" {
		checks = append(checks, stringCheck(CheckLabel, req.Label, got.Label))
	}
	if req.Language != "" {
		checks = append(checks, stringCheck(CheckLanguage, req.Language, got.Language))
	}
	return checks
}

// Config configures a Verifier.
type Config struct {
	Exchanger reset.Exchanger

	// Logger receives the verification outcome (optional).
	Logger log.Logger
}

// Verifier checks post-reset device settings.
type Verifier struct {
	config Config
}

// NewVerifier creates a verifier.
func NewVerifier(config Config) (*Verifier, error) {
	if config.Exchanger == nil {
		return nil, ErrNoExchanger
	}
	config.Logger = log.OrNoop(config.Logger)
	return &Verifier{config: config}, nil
}

// Verify checks the device against the request of a settled session. The
// report is returned even when a check fails, together with a
// *MismatchError.
func (v *Verifier) Verify(ctx context.Context, session *reset.Session) (*Report, error) {
	if session.State() != reset.StateSettled {
		return nil, fmt.Errorf("%w: %s", ErrNotSettled, session.State())
	}
	req := session.Request()

	before, err := Query(ctx, v.config.Exchanger)
	if err != nil {
		return nil, err
	}
	report := &Report{
		SessionID: session.ID(),
		Settings:  before,
		Checks:    Compare(req, before),
	}

	pin, err := v.expectChallenge(ctx, CheckPinChallenge, &wire.Ping{PinProtection: true}, wire.TypePinMatrixRequest, req.PinProtection)
	if err != nil {
		return nil, err
	}
	passphrase, err := v.expectChallenge(ctx, CheckPassphraseChallenge, &wire.Ping{PassphraseProtection: true}, wire.TypePassphraseRequest, req.PassphraseProtection)
	if err != nil {
		return nil, err
	}
	report.Checks = append(report.Checks, pin, passphrase)

	after, err := Query(ctx, v.config.Exchanger)
	if err != nil {
		return nil, err
	}
	report.Checks = append(report.Checks, Check{
		Name: CheckUnchanged,
		Want: fmt.Sprintf("%+v", before),
		Got:  fmt.Sprintf("%+v", after),
		OK:   before == after,
	})

	v.logOutcome(report)
	if failed := report.Failed(); len(failed) > 0 {
		return report, &MismatchError{Check: failed[0]}
	}
	return report, nil
}

// expectChallenge sends ping and reports whether the device answered with the
// challenge. A raised challenge is cancelled.
func (v *Verifier) expectChallenge(ctx context.Context, name string, ping *wire.Ping, challenge wire.MessageType, want bool) (Check, error) {
	reply, err := v.config.Exchanger.Call(ctx, ping)
	if err != nil {
		return Check{}, fmt.Errorf("failed to check %s: %w", name, err)
	}
	if reply == nil {
		return Check{}, fmt.Errorf("%w: probing %s: no reply", ErrUnexpectedReply, name)
	}

	switch reply.Type() {
	case wire.TypeSuccess:
		return boolCheck(name, want, false), nil
	case challenge:
		if err := v.cancel(ctx, name); err != nil {
			return Check{}, err
		}
		return boolCheck(name, want, true), nil
	default:
		return Check{}, fmt.Errorf("%w: probing %s: got %s", ErrUnexpectedReply, name, wire.Name(reply))
	}
}

func (v *Verifier) cancel(ctx context.Context, name string) error {
	reply, err := v.config.Exchanger.Call(ctx, &wire.Cancel{})
	if err != nil {
		return fmt.Errorf("failed to cancel %s: %w", name, err)
	}
	if _, ok := reply.(*wire.Failure); !ok {
		return fmt.Errorf("%w: cancelling %s: expected Failure, got %s", ErrUnexpectedReply, name, wire.Name(reply))
	}
	return nil
}

func (v *Verifier) logOutcome(report *Report) {
	outcome := "VERIFIED"
	reason := ""
	if failed := report.Failed(); len(failed) > 0 {
		outcome = "MISMATCH"
		reason = failed[0].Name
	}
	v.config.Logger.Log(log.Event{
		Timestamp: time.Now(),
		Layer:     log.LayerHandshake,
		Category:  log.CategoryState,
		SessionID: report.SessionID,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntitySettings,
			OldState: reset.StateSettled.String(),
			NewState: outcome,
			Reason:   reason,
		},
	})
}
