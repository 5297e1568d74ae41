package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/mash-protocol/devreset-go/pkg/config"
	"github.com/mash-protocol/devreset-go/pkg/entropy"
	"github.com/mash-protocol/devreset-go/pkg/log"
	"github.com/mash-protocol/devreset-go/pkg/persistence"
	"github.com/mash-protocol/devreset-go/pkg/reset"
	"github.com/mash-protocol/devreset-go/pkg/settings"
	"github.com/mash-protocol/devreset-go/pkg/transport"
	"github.com/mash-protocol/devreset-go/pkg/wire"
)

// sessionHistory bounds the host state file.
const sessionHistory = 100

// ResetCommand creates the reset command.
func ResetCommand() *cli.Command {
	flags := append(connectionFlags(),
		&cli.IntFlag{
			Name:  "strength",
			Usage: "Seed strength in bits (128, 192, 256)",
		},
		&cli.BoolFlag{
			Name:  "display-random",
			Usage: "Ask the device to show its internal entropy first",
		},
		&cli.BoolFlag{
			Name:  "pin-protection",
			Usage: "Set a PIN during the reset",
		},
		&cli.StringFlag{
			Name:  "pin",
			Usage: "Matrix-encoded PIN (prompted when omitted)",
		},
		&cli.BoolFlag{
			Name:  "passphrase-protection",
			Usage: "Enable passphrase protection",
		},
		&cli.StringFlag{
			Name:  "label",
			Usage: "Device label",
		},
		&cli.StringFlag{
			Name:  "language",
			Usage: "Device language",
		},
		&cli.BoolFlag{
			Name:  "wipe",
			Usage: "Wipe an initialized device before resetting it",
		},
		&cli.BoolFlag{
			Name:  "no-verify",
			Usage: "Skip the settings check after the handshake",
		},
		&cli.StringFlag{
			Name:  "state-file",
			Usage: "Append a record of the session to this JSON file",
		},
	)

	return &cli.Command{
		Name:   "reset",
		Usage:  "Reset the device with mixed entropy and verify its settings",
		Flags:  flags,
		Action: runReset,
	}
}

func runReset(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := applyResetFlags(cmd, cfg); err != nil {
		return err
	}

	root := cmd.Root()
	logger := newLogger(cfg, root.ErrWriter)
	protoLog, closeLog, err := protocolLogger(cfg, logger)
	if err != nil {
		return err
	}
	defer closeLog()

	if err := resolveDevice(ctx, cmd, cfg, logger); err != nil {
		return err
	}
	ep, err := connect(ctx, cfg, protoLog)
	if err != nil {
		return err
	}
	defer ep.Close()

	if ep.Debug == nil {
		return errors.New("the handshake reads device words over the debug link: set --debug-address")
	}

	features, err := identify(ctx, ep)
	if err != nil {
		return err
	}
	logger.Info("connected", "vendor", features.Vendor, "device_id", features.DeviceID, "initialized", features.Initialized)

	req := cfg.Request()
	var pins reset.PinProvider
	if cmd.IsSet("pin") {
		pins = reset.StaticPin(cmd.String("pin"))
	}

	if features.Initialized {
		if !cmd.Bool("wipe") {
			return errors.New("device is already initialized: use --wipe to wipe it first")
		}
		if _, err := drive(ctx, ep, &wire.WipeDevice{}, answerer{pins: pins}); err != nil {
			return fmt.Errorf("wipe failed: %w", err)
		}
		logger.Info("device wiped", "device_id", features.DeviceID)
	}

	if req.PinProtection && pins == nil {
		term, err := newTerminal(root.Writer, root.ErrWriter)
		if err != nil {
			return err
		}
		defer term.Close()
		pins = term
	}

	session, err := reset.NewSession(req, reset.Config{
		Exchanger: ep,
		Debug:     ep.Debug,
		Pins:      pins,
		Logger:    protoLog,
		OnStateChange: func(from, to reset.State) {
			logger.Debug("handshake state", "from", from, "to", to)
		},
	})
	if err != nil {
		return err
	}

	started := time.Now()
	report, runErr := runHandshake(ctx, session, ep, protoLog, !cmd.Bool("no-verify"))

	if path := cfg.Host.StateFile; path != "" {
		rec := sessionRecord(session, features.DeviceID, runErr, started)
		if err := persistence.NewHostStateStore(path).Append(rec, sessionHistory); err != nil {
			logger.Warn("failed to record session", "path", path, "error", err)
		}
	}

	printResult(root.Writer, session, features.DeviceID, report)
	return runErr
}

// applyResetFlags overrides the host request defaults.
func applyResetFlags(cmd *cli.Command, cfg *config.Config) error {
	if cmd.IsSet("strength") {
		cfg.Host.Strength = int(cmd.Int("strength"))
	}
	if cmd.IsSet("display-random") {
		cfg.Host.DisplayRandom = cmd.Bool("display-random")
	}
	if cmd.IsSet("pin-protection") {
		cfg.Host.PinProtection = cmd.Bool("pin-protection")
	}
	if cmd.IsSet("passphrase-protection") {
		cfg.Host.PassphraseProtection = cmd.Bool("passphrase-protection")
	}
	if cmd.IsSet("label") {
		cfg.Host.Label = cmd.String("label")
	}
	if cmd.IsSet("language") {
		cfg.Host.Language = cmd.String("language")
	}
	if cmd.IsSet("state-file") {
		cfg.Host.StateFile = cmd.String("state-file")
	}
	if _, err := entropy.ParseStrength(cfg.Host.Strength); err != nil {
		return err
	}
	return nil
}

// identify reads Features before the handshake starts.
func identify(ctx context.Context, ep *transport.Endpoint) (*wire.Features, error) {
	reply, err := ep.Call(ctx, &wire.Initialize{})
	if err != nil {
		return nil, err
	}
	features, ok := reply.(*wire.Features)
	if !ok {
		return nil, fmt.Errorf("%w: expected Features, got %s", settings.ErrUnexpectedReply, wire.Name(reply))
	}
	return features, nil
}

// runHandshake runs the session and, once it settles, checks the device
// settings.
func runHandshake(ctx context.Context, session *reset.Session, ep reset.Exchanger, protoLog log.Logger, verify bool) (*settings.Report, error) {
	if err := session.Run(ctx); err != nil {
		return nil, err
	}
	if !verify {
		return nil, nil
	}
	verifier, err := settings.NewVerifier(settings.Config{Exchanger: ep, Logger: protoLog})
	if err != nil {
		return nil, err
	}
	return verifier.Verify(ctx, session)
}

func sessionRecord(session *reset.Session, deviceID string, err error, started time.Time) persistence.SessionRecord {
	req := session.Request()
	rec := persistence.SessionRecord{
		SessionID:            session.ID(),
		DeviceID:             deviceID,
		Strength:             int(req.Strength),
		PinProtection:        req.PinProtection,
		PassphraseProtection: req.PassphraseProtection,
		State:                session.State().String(),
		StartedAt:            started,
		FinishedAt:           time.Now(),
	}
	if err != nil {
		rec.Error = err.Error()
	}
	return rec
}

func printResult(w io.Writer, session *reset.Session, deviceID string, report *settings.Report) {
	fmt.Fprintf(w, "Session: %s\n", session.ID())
	fmt.Fprintf(w, "Device:  %s\n", deviceID)
	fmt.Fprintf(w, "State:   %s\n", session.State())
	if err := session.Err(); err != nil {
		fmt.Fprintf(w, "Error:   %v\n", err)
	}
	if report == nil {
		return
	}

	fmt.Fprintln(w, "Settings:")
	for _, c := range report.Checks {
		if c.OK {
			fmt.Fprintf(w, "  %-22s ok (%s)\n", c.Name, c.Got)
		} else {
			fmt.Fprintf(w, "  %-22s FAIL (expected %s, got %s)\n", c.Name, c.Want, c.Got)
		}
	}
}
