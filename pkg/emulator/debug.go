package emulator

import (
	"context"
	"fmt"

	"github.com/mash-protocol/devreset-go/pkg/wire"
)

// DebugCall handles a debug-link message.
func (d *Device) DebugCall(ctx context.Context, msg wire.Message) (wire.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	switch m := msg.(type) {
	case *wire.DebugLinkGetState:
		return d.debugState(), nil
	case *wire.DebugLinkDecision:
		yes := m.YesNo
		d.decision = &yes
		return &wire.Success{}, nil
	default:
		return failure(wire.FailureUnexpectedMessage,
			fmt.Sprintf("unexpected %s on debug link", wire.Name(msg))), nil
	}
}

// DebugHandle is DebugCall under the transport handler signature.
func (d *Device) DebugHandle(ctx context.Context, msg wire.Message) (wire.Message, error) {
	return d.DebugCall(ctx, msg)
}

func (d *Device) debugState() *wire.DebugLinkState {
	return &wire.DebugLinkState{
		ResetEntropy: append([]byte(nil), d.resetEntropy...),
		ResetWord:    d.resetWord,
		Pin:          d.settings.pin,
		Matrix:       identityMatrix,
		Mnemonic:     d.settings.words.String(),
	}
}

// ReadResetEntropy returns the internal entropy of the reset in progress.
func (d *Device) ReadResetEntropy(ctx context.Context) ([]byte, error) {
	state, err := d.state(ctx)
	if err != nil {
		return nil, err
	}
	return state.ResetEntropy, nil
}

// ReadResetWord returns the word on display.
func (d *Device) ReadResetWord(ctx context.Context) (string, error) {
	state, err := d.state(ctx)
	if err != nil {
		return "", err
	}
	return state.ResetWord, nil
}

// PressButton records a decision for the next ButtonAck.
func (d *Device) PressButton(ctx context.Context, yes bool) error {
	_, err := d.DebugCall(ctx, &wire.DebugLinkDecision{YesNo: yes})
	return err
}

func (d *Device) state(ctx context.Context) (*wire.DebugLinkState, error) {
	reply, err := d.DebugCall(ctx, &wire.DebugLinkGetState{})
	if err != nil {
		return nil, err
	}
	return reply.(*wire.DebugLinkState), nil
}
