// Package commands implements the devreset CLI commands.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/mash-protocol/devreset-go/pkg/config"
	"github.com/mash-protocol/devreset-go/pkg/discovery"
	"github.com/mash-protocol/devreset-go/pkg/log"
	"github.com/mash-protocol/devreset-go/pkg/transport"
)

// dialAttempts bounds connection retries to a device that is starting up.
const dialAttempts = 5

// App returns the root command.
func App() *cli.Command {
	return &cli.Command{
		Name:  "devreset",
		Usage: "Seed-mixing device reset handshake",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML configuration file",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level (debug, info, warn, error)",
			},
			&cli.StringFlag{
				Name:  "protocol-log",
				Usage: "Write a protocol capture (.dlog) to this file",
			},
		},
		Commands: []*cli.Command{
			ResetCommand(),
			EncodeCommand(),
			MixCommand(),
			DiscoverCommand(),
			LogCommand(),
			VerifyMessageCommand(),
			AddressCommand(),
			SignMessageCommand(),
			WipeCommand(),
			LoadCommand(),
		},
	}
}

// connectionFlags select the device. Shared by commands that talk to one.
func connectionFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "address",
			Aliases: []string{"a"},
			Usage:   "Device main link (host:port)",
		},
		&cli.StringFlag{
			Name:  "debug-address",
			Usage: "Device debug link (host:port)",
		},
		&cli.BoolFlag{
			Name:  "discover",
			Usage: "Find the device with mDNS instead of using --address",
		},
		&cli.StringFlag{
			Name:  "device-id",
			Usage: "With --discover, pick the device with this ID",
		},
		&cli.DurationFlag{
			Name:  "connect-timeout",
			Usage: "Per-attempt connect timeout",
		},
	}
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, err
	}

	if cmd.IsSet("log-level") {
		cfg.Log.Level = cmd.String("log-level")
	}
	if cmd.IsSet("protocol-log") {
		cfg.Log.ProtocolLog = cmd.String("protocol-log")
	}
	if cmd.IsSet("address") {
		cfg.Host.Address = cmd.String("address")
	}
	if cmd.IsSet("debug-address") {
		cfg.Host.DebugAddress = cmd.String("debug-address")
	}
	if cmd.IsSet("discover") {
		cfg.Host.Discover = cmd.Bool("discover")
	}
	if cmd.IsSet("connect-timeout") {
		cfg.Host.ConnectTimeout = cmd.Duration("connect-timeout")
	}
	return cfg, cfg.Validate()
}

// newLogger builds the operational logger.
func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	level, err := config.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// protocolLogger fans protocol events out to the capture file and, at debug
// level, to the operational log. The returned close func is never nil.
func protocolLogger(cfg *config.Config, logger *slog.Logger) (log.Logger, func() error, error) {
	var loggers []log.Logger
	closeFn := func() error { return nil }

	if logger.Enabled(context.Background(), slog.LevelDebug) {
		loggers = append(loggers, log.NewSlogAdapter(logger))
	}
	if cfg.Log.ProtocolLog != "" {
		fl, err := log.NewFileLogger(cfg.Log.ProtocolLog, log.WithErrorLog(logger))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open protocol log: %w", err)
		}
		loggers = append(loggers, fl)
		closeFn = fl.Close
	}
	return log.Combine(loggers...), closeFn, nil
}

// resolveDevice fills in the device addresses from mDNS when discovery is
// on.
func resolveDevice(ctx context.Context, cmd *cli.Command, cfg *config.Config, logger *slog.Logger) error {
	if !cfg.Host.Discover {
		if cfg.Host.Address == "" {
			return errors.New("no device address: set --address or use --discover")
		}
		return nil
	}

	browser := discovery.NewMDNSBrowser(discovery.DefaultBrowserConfig())
	defer browser.Stop()

	var svc *discovery.DeviceService
	if id := cmd.String("device-id"); id != "" {
		found, err := browser.FindByDeviceID(ctx, id)
		if err != nil {
			return fmt.Errorf("device %s: %w", id, err)
		}
		svc = found
	} else {
		devices, err := discovery.CollectDevices(ctx, browser, discovery.BrowseTimeout)
		if err != nil {
			return err
		}
		if len(devices) == 0 {
			return fmt.Errorf("no device found: %w", discovery.ErrNotFound)
		}
		svc = devices[0]
	}

	cfg.Host.Address = svc.Address()
	cfg.Host.DebugAddress = svc.DebugAddress()
	logger.Info("discovered device", "device_id", svc.DeviceID, "address", cfg.Host.Address, "debug_address", cfg.Host.DebugAddress)
	return nil
}

// connect dials the configured device.
func connect(ctx context.Context, cfg *config.Config, protoLog log.Logger) (*transport.Endpoint, error) {
	backoff := transport.NewBackoffWithConfig(transport.BackoffConfig{
		Initial:    200 * time.Millisecond,
		Max:        2 * time.Second,
		Multiplier: 2,
		Jitter:     transport.JitterFactor,
	})
	return transport.DialWithRetry(ctx, transport.DialConfig{
		Address:        cfg.Host.Address,
		DebugAddress:   cfg.Host.DebugAddress,
		ConnectTimeout: cfg.Host.ConnectTimeout,
		Logger:         protoLog,
	}, backoff, dialAttempts)
}
