package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"

	"github.com/mash-protocol/devreset-go/pkg/reset"
	"github.com/mash-protocol/devreset-go/pkg/transport"
	"github.com/mash-protocol/devreset-go/pkg/wire"
)

// errAborted is returned when the operator interrupts a prompt.
var errAborted = errors.New("aborted at prompt")

// terminal reads PINs and passphrases without echo.
type terminal struct {
	rl *readline.Instance
}

func newTerminal(stdout, stderr io.Writer) (*terminal, error) {
	rl, err := readline.NewEx(&readline.Config{
		InterruptPrompt: "^C",
		Stdout:          stdout,
		Stderr:          stderr,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return &terminal{rl: rl}, nil
}

func (t *terminal) Close() error { return t.rl.Close() }

func (t *terminal) secret(prompt string) (string, error) {
	b, err := t.rl.ReadPassword(prompt)
	if err != nil {
		if err == readline.ErrInterrupt || err == io.EOF {
			return "", errAborted
		}
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

// Pin prompts for matrix positions. The device shows the scrambled matrix;
// the operator types the positions of the digits.
func (t *terminal) Pin(ctx context.Context, kind wire.PinMatrixRequestType) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var prompt string
	switch kind {
	case wire.PinNewFirst:
		prompt = "New PIN (matrix positions): "
	case wire.PinNewSecond:
		prompt = "Repeat new PIN: "
	default:
		prompt = "PIN: "
	}
	return t.secret(prompt)
}

// Passphrase prompts for the wallet passphrase.
func (t *terminal) Passphrase(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return t.secret("Passphrase: ")
}

var _ reset.PinProvider = (*terminal)(nil)

// answerer supplies what the device asks for while an operation runs.
type answerer struct {
	pins       reset.PinProvider
	passphrase func(ctx context.Context) (string, error)
}

// drive answers device prompts until the device sends a final reply.
// Button requests are confirmed through the debug link.
func drive(ctx context.Context, ep *transport.Endpoint, req wire.Message, a answerer) (wire.Message, error) {
	reply, err := ep.Call(ctx, req)
	for err == nil {
		var ack wire.Message
		switch m := reply.(type) {
		case *wire.ButtonRequest:
			if ep.Debug == nil {
				return nil, fmt.Errorf("device asks for a button press (code %d) and no debug link is connected", m.Code)
			}
			if err := ep.Debug.PressButton(ctx, true); err != nil {
				return nil, err
			}
			ack = &wire.ButtonAck{}
		case *wire.PinMatrixRequest:
			if a.pins == nil {
				return nil, errors.New("device asks for a PIN and none was given")
			}
			pin, err := a.pins.Pin(ctx, m.Kind)
			if err != nil {
				return nil, err
			}
			ack = &wire.PinMatrixAck{Pin: pin}
		case *wire.PassphraseRequest:
			passphrase := ""
			if a.passphrase != nil {
				if passphrase, err = a.passphrase(ctx); err != nil {
					return nil, err
				}
			}
			ack = &wire.PassphraseAck{Passphrase: passphrase}
		case *wire.Failure:
			return nil, fmt.Errorf("device failure: %s: %s", m.Code, m.Message)
		default:
			return reply, nil
		}
		reply, err = ep.Call(ctx, ack)
	}
	return nil, err
}
