package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/mash-protocol/devreset-go/pkg/config"
	"github.com/mash-protocol/devreset-go/pkg/discovery"
	"github.com/mash-protocol/devreset-go/pkg/log"
)

func parseFlags(t *testing.T, args ...string) (*config.Config, error) {
	t.Helper()
	var (
		cfg *config.Config
		err error
	)
	a := app()
	a.Action = func(_ context.Context, cmd *cli.Command) error {
		cfg, err = loadConfig(cmd)
		return nil
	}
	require.NoError(t, a.Run(context.Background(), append([]string{"devreset-emulator"}, args...)))
	return cfg, err
}

func TestLoadConfigFlags(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "emu.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
emulator:
  vendor: acme
  faults:
    reject_pin: true
`), 0600))

	cfg, err := parseFlags(t,
		"--config", path,
		"--address", "127.0.0.1:0",
		"--no-debug",
		"--tamper-pass", "2", "--tamper-word", "4",
		"--ignore-passphrase",
		"--entropy-seed", "fixed",
	)
	require.NoError(t, err)

	e := cfg.Emulator
	assert.Equal(t, "acme", e.Vendor)
	assert.Equal(t, "127.0.0.1:0", e.Address)
	assert.Empty(t, e.DebugAddress)
	assert.True(t, e.Faults.RejectPin)
	assert.True(t, e.Faults.IgnorePassphrase)
	assert.Equal(t, 2, e.Faults.TamperPass)
	assert.Equal(t, 4, e.Faults.TamperWord)

	opts := deviceOptions(cfg, log.NoopLogger{})
	assert.Equal(t, []byte("fixed"), opts.EntropySeed)
	assert.True(t, opts.Faults.Any())
	assert.Nil(t, opts.Store)
}

func TestLoadConfigRejectsBadFault(t *testing.T) {
	_, err := parseFlags(t, "--tamper-pass", "3")
	assert.ErrorIs(t, err, config.ErrInvalid)
}

type recordingAdvertiser struct {
	updates []discovery.DeviceInfo
}

func (r *recordingAdvertiser) Advertise(context.Context, *discovery.DeviceInfo) error { return nil }
func (r *recordingAdvertiser) Stop() error                                            { return nil }
func (r *recordingAdvertiser) Update(info *discovery.DeviceInfo) error {
	r.updates = append(r.updates, *info)
	return nil
}

func TestSettingsWatcher(t *testing.T) {
	w := &settingsWatcher{}
	settingsEvent := func(state string) log.Event {
		return log.Event{StateChange: &log.StateChangeEvent{Entity: log.StateEntitySettings, NewState: state}}
	}

	// Not attached yet.
	w.Log(settingsEvent("INITIALIZED"))

	adv := &recordingAdvertiser{}
	w.attach(adv, &discovery.DeviceInfo{DeviceID: "d1", Vendor: "emu"}, nil)

	w.Log(log.Event{StateChange: &log.StateChangeEvent{Entity: log.StateEntityHandshake, NewState: "SETTLED"}})
	w.Log(settingsEvent("INITIALIZED"))
	w.Log(settingsEvent("UNINITIALIZED"))

	require.Len(t, adv.updates, 2)
	assert.True(t, adv.updates[0].Initialized)
	assert.False(t, adv.updates[1].Initialized)
	assert.Equal(t, "d1", adv.updates[1].DeviceID)
}
