package transport

import (
	"context"
	"fmt"

	"github.com/mash-protocol/devreset-go/pkg/wire"
)

// DebugClient reads device internals and drives the confirm button over a
// debug link. It must only be pointed at a test device or an emulator.
type DebugClient struct {
	link *Link
}

// NewDebugClient wraps a debug link.
func NewDebugClient(link *Link) *DebugClient {
	return &DebugClient{link: link}
}

// State fetches the device debug state.
func (d *DebugClient) State(ctx context.Context) (*wire.DebugLinkState, error) {
	reply, err := d.link.Call(ctx, &wire.DebugLinkGetState{})
	if err != nil {
		return nil, err
	}
	state, ok := reply.(*wire.DebugLinkState)
	if !ok {
		return nil, fmt.Errorf("%w: expected DebugLinkState, got %T", ErrUnexpectedReply, reply)
	}
	return state, nil
}

// ReadResetEntropy returns the internal entropy the device generated for
// the reset in progress.
func (d *DebugClient) ReadResetEntropy(ctx context.Context) ([]byte, error) {
	state, err := d.State(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read reset entropy: %w", err)
	}
	return state.ResetEntropy, nil
}

// ReadResetWord returns the word currently shown on the device display.
func (d *DebugClient) ReadResetWord(ctx context.Context) (string, error) {
	state, err := d.State(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to read reset word: %w", err)
	}
	return state.ResetWord, nil
}

// PressButton records a yes/no decision for the pending button request.
// The device acknowledges with Success so the decision is in place before
// the host sends ButtonAck on the main link.
func (d *DebugClient) PressButton(ctx context.Context, yes bool) error {
	reply, err := d.link.Call(ctx, &wire.DebugLinkDecision{YesNo: yes})
	if err != nil {
		return fmt.Errorf("failed to press button: %w", err)
	}
	if _, ok := reply.(*wire.Success); !ok {
		return fmt.Errorf("%w: expected Success, got %T", ErrUnexpectedReply, reply)
	}
	return nil
}

// Close closes the debug link.
func (d *DebugClient) Close() error {
	return d.link.Close()
}
