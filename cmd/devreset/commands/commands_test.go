package commands

import (
	"bytes"
	"context"
	"encoding/hex"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mash-protocol/devreset-go/pkg/emulator"
	"github.com/mash-protocol/devreset-go/pkg/log"
	"github.com/mash-protocol/devreset-go/pkg/mnemonic"
	"github.com/mash-protocol/devreset-go/pkg/persistence"
	"github.com/mash-protocol/devreset-go/pkg/reset"
	"github.com/mash-protocol/devreset-go/pkg/signing"
	"github.com/mash-protocol/devreset-go/pkg/wire"
)

const goldenSeed = "5c85955f709283ecce2b74f1b1552918819f390911816e7bb466805a38ab87f3"

// run executes the app and returns stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := App()
	app.Writer = &out
	app.ErrWriter = io.Discard

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := app.Run(ctx, append([]string{"devreset", "--log-level", "error"}, args...))
	return out.String(), err
}

// serve starts an emulator with a debug link.
func serve(t *testing.T, opts emulator.Options) (*emulator.Device, []string) {
	t.Helper()
	opts.EntropySeed = []byte(t.Name())
	d, err := emulator.New(opts)
	require.NoError(t, err)

	servers, err := emulator.Serve(context.Background(), d, emulator.ServeConfig{
		Address:      "127.0.0.1:0",
		DebugAddress: "127.0.0.1:0",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = servers.Stop() })

	return d, []string{
		"--address", servers.Addr().String(),
		"--debug-address", servers.DebugAddr().String(),
	}
}

func TestAppCommands(t *testing.T) {
	app := App()
	var names []string
	for _, c := range app.Commands {
		names = append(names, c.Name)
	}
	assert.ElementsMatch(t, []string{
		"reset", "encode", "mix", "discover", "log", "verify-message",
		"address", "sign-message", "wipe", "load",
	}, names)
	require.Len(t, LogCommand().Commands, 3)
}

func TestEncodeDecode(t *testing.T) {
	out, err := run(t, "encode", goldenSeed)
	require.NoError(t, err)

	words := strings.Fields(out)
	require.Len(t, words, 33)

	want, err := hex.DecodeString(goldenSeed)
	require.NoError(t, err)
	encoded, err := mnemonic.Encode(want)
	require.NoError(t, err)
	assert.Equal(t, encoded.String(), strings.TrimSpace(out))

	out, err = run(t, append([]string{"encode", "--decode"}, words...)...)
	require.NoError(t, err)
	assert.Equal(t, goldenSeed, strings.TrimSpace(out))

	words[0] = "notaword"
	_, err = run(t, append([]string{"encode", "--decode"}, words...)...)
	assert.Error(t, err)

	_, err = run(t, "encode", "zz")
	assert.Error(t, err)
}

func TestEncodePGPNumbering(t *testing.T) {
	out, err := run(t, "encode", "--pgp", goldenSeed)
	require.NoError(t, err)

	want, err := hex.DecodeString(goldenSeed)
	require.NoError(t, err)
	encoded, err := mnemonic.PGPWords.Encode(want)
	require.NoError(t, err)
	assert.Equal(t, encoded.String(), strings.TrimSpace(out))

	words := strings.Fields(out)
	out, err = run(t, append([]string{"encode", "--decode", "--pgp"}, words...)...)
	require.NoError(t, err)
	assert.Equal(t, goldenSeed, strings.TrimSpace(out))

	_, err = run(t, append([]string{"encode", "--decode"}, words...)...)
	assert.Error(t, err)
}

func TestMix(t *testing.T) {
	out, err := run(t, "mix",
		"--internal", strings.Repeat("00", 32),
		"--external", strings.Repeat("01", 32),
	)
	require.NoError(t, err)
	assert.Contains(t, out, "seed: "+goldenSeed)

	out, err = run(t, "mix",
		"--internal", strings.Repeat("00", 32),
		"--external", strings.Repeat("01", 32),
		"--strength", "128", "--numbered",
	)
	require.NoError(t, err)
	assert.Contains(t, out, "seed: "+goldenSeed[:32]+"\n")
	assert.Contains(t, out, "17. ")

	_, err = run(t, "mix", "--internal", "00", "--external", strings.Repeat("01", 32))
	assert.Error(t, err, "short internal entropy")

	_, err = run(t, "mix", "--internal", strings.Repeat("00", 32), "--external", strings.Repeat("01", 32), "--strength", "160")
	assert.Error(t, err)
}

func TestResetCommand(t *testing.T) {
	d, conn := serve(t, emulator.Options{})
	dir := t.TempDir()
	stateFile := filepath.Join(dir, "host.json")
	capture := filepath.Join(dir, "reset.dlog")

	args := append([]string{"--protocol-log", capture, "reset"}, conn...)
	args = append(args,
		"--strength", "128",
		"--pin-protection", "--pin", "1470",
		"--label", "vault",
		"--state-file", stateFile,
	)
	out, err := run(t, args...)
	require.NoError(t, err)

	assert.Contains(t, out, "State:   SETTLED")
	assert.Contains(t, out, "pin_challenge")
	assert.NotContains(t, out, "FAIL")
	assert.True(t, d.Initialized())
	assert.Len(t, d.Mnemonic(), 17)

	state, err := persistence.NewHostStateStore(stateFile).Load()
	require.NoError(t, err)
	require.Len(t, state.Sessions, 1)
	assert.Equal(t, reset.StateSettled.String(), state.Sessions[0].State)
	assert.Equal(t, d.ID(), state.Sessions[0].DeviceID)

	stats, err := CollectStats(capture)
	require.NoError(t, err)
	require.Len(t, stats.Sessions, 1)
	for _, s := range stats.Sessions {
		assert.Equal(t, "SETTLED", s.FinalState)
	}

	// A second reset needs --wipe.
	_, err = run(t, append([]string{"reset"}, conn...)...)
	assert.ErrorContains(t, err, "already initialized")

	out, err = run(t, append(append([]string{"reset"}, conn...), "--wipe", "--pin", "1470", "--strength", "192")...)
	require.NoError(t, err)
	assert.Contains(t, out, "SETTLED")
	assert.Len(t, d.Mnemonic(), 25)
}

func TestResetCommandReportsTampering(t *testing.T) {
	d, conn := serve(t, emulator.Options{Faults: emulator.Faults{TamperPass: 2, TamperWord: 3}})

	out, err := run(t, append(append([]string{"reset"}, conn...), "--strength", "128")...)
	require.Error(t, err)

	var conformance *reset.ConformanceError
	require.ErrorAs(t, err, &conformance)
	assert.Equal(t, 3, conformance.Index)
	assert.Contains(t, out, "State:   ABORTED")
	assert.False(t, d.Initialized())
}

func TestResetCommandRequiresDebugLink(t *testing.T) {
	d, err := emulator.New(emulator.Options{})
	require.NoError(t, err)
	servers, err := emulator.Serve(context.Background(), d, emulator.ServeConfig{Address: "127.0.0.1:0"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = servers.Stop() })

	_, err = run(t, "reset", "--address", servers.Addr().String(), "--debug-address", "")
	assert.ErrorContains(t, err, "--debug-address")
	assert.False(t, d.Initialized())
}

func TestSigningCommands(t *testing.T) {
	_, conn := serve(t, emulator.Options{})

	seed, err := hex.DecodeString(goldenSeed)
	require.NoError(t, err)
	_, err = run(t, append(append([]string{"load"}, conn...), "--mnemonic", mustEncode(t, mnemonic.DisplayWords, seed))...)
	assert.Error(t, err, "display numbering is not a load backup")

	out, err := run(t, append(append([]string{"load"}, conn...), "--mnemonic", mustEncode(t, mnemonic.PGPWords, seed))...)
	require.NoError(t, err)
	assert.Contains(t, out, "Device loaded.")

	out, err = run(t, append([]string{"address"}, conn...)...)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(strings.TrimSpace(out), "Ds"), out)

	out, err = run(t, append(append([]string{"address"}, conn...), "--coin", "regtest")...)
	require.NoError(t, err)
	address := strings.TrimSpace(out)
	assert.True(t, strings.HasPrefix(address, "m") || strings.HasPrefix(address, "n"), address)

	out, err = run(t, append(append([]string{"sign-message"}, conn...), "--coin", "regtest", "--message", "hello")...)
	require.NoError(t, err)
	assert.Contains(t, out, "address:   "+address)

	var sig string
	for _, line := range strings.Split(out, "\n") {
		if rest, ok := strings.CutPrefix(line, "signature: "); ok {
			sig = rest
		}
	}
	require.NotEmpty(t, sig)

	verify := []string{"verify-message", "--coin", "regtest", "--signer", address, "--signature", sig}
	out, err = run(t, append(verify, "--message", "hello")...)
	require.NoError(t, err)
	assert.Contains(t, out, "Signature is valid.")

	_, err = run(t, append(verify, "--message", "goodbye")...)
	assert.Error(t, err)

	out, err = run(t, append(append(verify, conn...), "--message", "hello", "--on-device")...)
	require.NoError(t, err)
	assert.Contains(t, out, "Device reports")

	out, err = run(t, append([]string{"wipe"}, conn...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Device wiped.")
}

func mustEncode(t *testing.T, list mnemonic.WordList, seed []byte) string {
	t.Helper()
	words, err := list.Encode(seed)
	require.NoError(t, err)
	return words.String()
}

func TestVerifyDecredMessage(t *testing.T) {
	verify := []string{"verify-message",
		"--signer", "DspDtjHb9aMymZzZjheNUjoPax3eWtrqaQf",
		"--signature", "H1WVReAsbaacfm/ZHDVoXhZrj6rXz5p17VmP8CR9cz1FHpi8b63XOBs+9ldzgIlzb4DJg3w8q6FmBpVKW8boS3I=",
	}
	out, err := run(t, append(verify, "--message", "Waldo was here")...)
	require.NoError(t, err)
	assert.Contains(t, out, "Signature is valid.")

	_, err = run(t, append(verify, "--message", "Waldo was INVALID")...)
	assert.ErrorIs(t, err, signing.ErrInvalidSignature)

	_, err = run(t, append(verify, "--message", "Waldo was here", "--coin", "bitcoin")...)
	assert.ErrorIs(t, err, signing.ErrInvalidAddress)
}

func TestParsePath(t *testing.T) {
	path, err := ParsePath(DefaultPath)
	require.NoError(t, err)
	assert.Equal(t, []uint32{44 + hardened, 42 + hardened, hardened, 0, 0}, path)

	path, err = ParsePath("m/1h/2")
	require.NoError(t, err)
	assert.Equal(t, []uint32{1 + hardened, 2}, path)

	path, err = ParsePath("m")
	require.NoError(t, err)
	assert.Empty(t, path)

	_, err = ParsePath("m/x")
	assert.Error(t, err)
	_, err = ParsePath("m/2147483648")
	assert.Error(t, err)
}

func writeCapture(t *testing.T, events ...log.Event) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "capture.dlog")
	fl, err := log.NewFileLogger(path)
	require.NoError(t, err)
	for _, e := range events {
		fl.Log(e)
	}
	require.NoError(t, fl.Close())
	return path
}

func TestLogCommands(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rtt := 2 * time.Millisecond
	path := writeCapture(t,
		log.Event{
			Timestamp: ts, ConnectionID: "conn-0001-abcdef", Direction: log.DirectionOut,
			Layer: log.LayerWire, Category: log.CategoryMessage,
			Message: &log.MessageEvent{Type: wire.TypeResetDevice, Size: 12},
		},
		log.Event{
			Timestamp: ts.Add(rtt), ConnectionID: "conn-0001-abcdef", Direction: log.DirectionIn,
			Layer: log.LayerWire, Category: log.CategoryMessage,
			Message: &log.MessageEvent{Type: wire.TypeEntropyRequest, RoundTrip: &rtt},
		},
		log.Event{
			Timestamp: ts.Add(time.Second), Layer: log.LayerHandshake, Category: log.CategoryState,
			SessionID: "session-1",
			StateChange: &log.StateChangeEvent{
				Entity: log.StateEntityHandshake, OldState: "AWAIT_SECOND_PASS_WORDS", NewState: "ABORTED",
				Reason: "word mismatch",
			},
		},
		log.Event{
			Timestamp: ts.Add(time.Second), Layer: log.LayerHandshake, Category: log.CategoryError,
			SessionID: "session-1",
			Error:     &log.ErrorEventData{Layer: log.LayerHandshake, Message: "word mismatch", Context: "AWAIT_SECOND_PASS_WORDS"},
		},
	)

	out, err := run(t, "log", "view", path)
	require.NoError(t, err)
	assert.Contains(t, out, "[conn:conn-000]")
	assert.Contains(t, out, "Round trip: 2.000ms")
	assert.Contains(t, out, "AWAIT_SECOND_PASS_WORDS -> ABORTED")

	out, err = run(t, "log", "view", "--category", "error", path)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out, "HANDSHAKE Error"))
	assert.NotContains(t, out, "WIRE")

	out, err = run(t, "log", "view", "--direction", "in", path)
	require.NoError(t, err)
	assert.Contains(t, out, "EntropyRequest")
	assert.NotContains(t, out, "ResetDevice")
	assert.NotContains(t, out, "HANDSHAKE")

	_, err = run(t, "log", "view", "--layer", "bogus", path)
	assert.Error(t, err)

	out, err = run(t, "log", "stats", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Total Events: 4")
	assert.Contains(t, out, "final state ABORTED")
	assert.Contains(t, out, "Errors: 1")

	out, err = run(t, "log", "export", "--format", "csv", path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 5)
	assert.True(t, strings.HasPrefix(lines[0], "timestamp,"))

	out, err = run(t, "log", "export", path)
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 4)

	_, err = run(t, "log", "export", "--format", "xml", path)
	assert.Error(t, err)
}
