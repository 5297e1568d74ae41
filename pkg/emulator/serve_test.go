package emulator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mash-protocol/devreset-go/pkg/transport"
	"github.com/mash-protocol/devreset-go/pkg/wire"
)

func TestServe(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	d := newDevice(t, Options{DeviceID: "EMU-NET"})
	servers, err := Serve(ctx, d, ServeConfig{
		Address:      "127.0.0.1:0",
		DebugAddress: "127.0.0.1:0",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = servers.Stop() })

	ep, err := transport.Dial(ctx, transport.DialConfig{
		Address:      servers.Addr().String(),
		DebugAddress: servers.DebugAddr().String(),
	})
	require.NoError(t, err)
	defer ep.Close()

	reply, err := ep.Call(ctx, &wire.Initialize{})
	require.NoError(t, err)
	require.IsType(t, &wire.Features{}, reply)
	assert.Equal(t, "EMU-NET", reply.(*wire.Features).DeviceID)

	reply, err = ep.Call(ctx, &wire.Ping{ButtonProtection: true})
	require.NoError(t, err)
	require.IsType(t, &wire.ButtonRequest{}, reply)

	require.NoError(t, ep.Debug.PressButton(ctx, true))
	reply, err = ep.Call(ctx, &wire.ButtonAck{})
	require.NoError(t, err)
	assert.IsType(t, &wire.Success{}, reply)
}

func TestServeWithoutDebugLink(t *testing.T) {
	d := newDevice(t, Options{})
	servers, err := Serve(context.Background(), d, ServeConfig{Address: "127.0.0.1:0"})
	require.NoError(t, err)
	defer servers.Stop()

	assert.NotNil(t, servers.Addr())
	assert.Nil(t, servers.DebugAddr())
	assert.Nil(t, servers.Debug)
}
