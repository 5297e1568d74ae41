package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/urfave/cli/v3"

	"github.com/mash-protocol/devreset-go/pkg/config"
	"github.com/mash-protocol/devreset-go/pkg/discovery"
	"github.com/mash-protocol/devreset-go/pkg/emulator"
	"github.com/mash-protocol/devreset-go/pkg/log"
	"github.com/mash-protocol/devreset-go/pkg/persistence"
)

func app() *cli.Command {
	return &cli.Command{
		Name:  "devreset-emulator",
		Usage: "Emulated hardware wallet for the seed-mixing reset handshake",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "Path to YAML configuration file"},
			&cli.StringFlag{Name: "log-level", Usage: "Log level (debug, info, warn, error)"},
			&cli.StringFlag{Name: "protocol-log", Usage: "Write a protocol capture (.dlog) to this file"},
			&cli.StringFlag{Name: "address", Aliases: []string{"a"}, Usage: "Main link listen address"},
			&cli.StringFlag{Name: "debug-address", Usage: "Debug link listen address"},
			&cli.BoolFlag{Name: "no-debug", Usage: "Serve without a debug link, like a production device"},
			&cli.StringFlag{Name: "state-file", Usage: "Persist device settings to this JSON file"},
			&cli.StringFlag{Name: "vendor", Usage: "Vendor reported in Features"},
			&cli.StringFlag{Name: "device-id", Usage: "Device ID (default: saved or random)"},
			&cli.BoolFlag{Name: "auto-confirm", Usage: "Press the button without a debug link decision"},
			&cli.StringFlag{Name: "entropy-seed", Usage: "Derive device entropy from this seed (reproducible runs)"},
			&cli.BoolFlag{Name: "advertise", Usage: "Advertise the device with mDNS"},
			&cli.StringFlag{Name: "interface", Usage: "Network interface for mDNS"},
			&cli.IntFlag{Name: "tamper-pass", Usage: "Fault: show a wrong word in this pass (1 or 2)"},
			&cli.IntFlag{Name: "tamper-word", Usage: "Fault: index of the wrong word"},
			&cli.BoolFlag{Name: "swap-entropy", Usage: "Fault: mix external before internal entropy"},
			&cli.BoolFlag{Name: "skip-second-pin", Usage: "Fault: skip the second PIN entry"},
			&cli.BoolFlag{Name: "reject-pin", Usage: "Fault: always fail PIN setup"},
			&cli.BoolFlag{Name: "wrong-final-response", Usage: "Fault: answer the last word with Features"},
			&cli.BoolFlag{Name: "ignore-passphrase", Usage: "Fault: do not enable passphrase protection"},
		},
		Action: runEmulator,
	}
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, err
	}

	e := &cfg.Emulator
	stringFlags := map[string]*string{
		"log-level":     &cfg.Log.Level,
		"protocol-log":  &cfg.Log.ProtocolLog,
		"address":       &e.Address,
		"debug-address": &e.DebugAddress,
		"state-file":    &e.StateFile,
		"vendor":        &e.Vendor,
		"device-id":     &e.DeviceID,
		"entropy-seed":  &e.EntropySeed,
		"interface":     &e.Interface,
	}
	for name, dst := range stringFlags {
		if cmd.IsSet(name) {
			*dst = cmd.String(name)
		}
	}
	boolFlags := map[string]*bool{
		"auto-confirm":         &e.AutoConfirm,
		"advertise":            &e.Advertise,
		"swap-entropy":         &e.Faults.SwapEntropyOrder,
		"skip-second-pin":      &e.Faults.SkipSecondPin,
		"reject-pin":           &e.Faults.RejectPin,
		"wrong-final-response": &e.Faults.WrongFinalResponse,
		"ignore-passphrase":    &e.Faults.IgnorePassphrase,
	}
	for name, dst := range boolFlags {
		if cmd.IsSet(name) {
			*dst = cmd.Bool(name)
		}
	}
	if cmd.IsSet("tamper-pass") {
		e.Faults.TamperPass = int(cmd.Int("tamper-pass"))
	}
	if cmd.IsSet("tamper-word") {
		e.Faults.TamperWord = int(cmd.Int("tamper-word"))
	}
	if cmd.Bool("no-debug") {
		e.DebugAddress = ""
	}
	return cfg, cfg.Validate()
}

// deviceOptions maps the emulator section to device options.
func deviceOptions(cfg *config.Config, logger log.Logger) emulator.Options {
	e := cfg.Emulator
	opts := emulator.Options{
		Vendor:      e.Vendor,
		DeviceID:    e.DeviceID,
		AutoConfirm: e.AutoConfirm,
		Faults:      cfg.Faults(),
		Logger:      logger,
	}
	if e.EntropySeed != "" {
		opts.EntropySeed = []byte(e.EntropySeed)
	}
	if e.StateFile != "" {
		opts.Store = persistence.NewDeviceStateStore(e.StateFile)
	}
	return opts
}

func runEmulator(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	level, _ := config.ParseLevel(cfg.Log.Level)
	logger := slog.New(slog.NewTextHandler(cmd.Root().ErrWriter, &slog.HandlerOptions{Level: level}))

	var loggers []log.Logger
	if cfg.Log.ProtocolLog != "" {
		fl, err := log.NewFileLogger(cfg.Log.ProtocolLog, log.WithErrorLog(logger))
		if err != nil {
			return fmt.Errorf("failed to open protocol log: %w", err)
		}
		defer fl.Close()
		loggers = append(loggers, fl)
	}
	if level <= slog.LevelDebug {
		loggers = append(loggers, log.NewSlogAdapter(logger))
	}

	// The advertiser is attached after the listeners are up; settings
	// changes before that have nothing to update.
	watcher := &settingsWatcher{}
	loggers = append(loggers, watcher)
	protoLog := log.Combine(loggers...)

	device, err := emulator.New(deviceOptions(cfg, protoLog))
	if err != nil {
		return err
	}

	servers, err := emulator.Serve(ctx, device, emulator.ServeConfig{
		Address:      cfg.Emulator.Address,
		DebugAddress: cfg.Emulator.DebugAddress,
		Logger:       protoLog,
		OnError: func(err error) {
			logger.Warn("connection error", "error", err)
		},
	})
	if err != nil {
		return err
	}
	defer servers.Stop()

	attrs := []any{"device_id", device.ID(), "address", servers.Addr(), "initialized", device.Initialized()}
	if dbg := servers.DebugAddr(); dbg != nil {
		attrs = append(attrs, "debug_address", dbg)
	}
	if cfg.Emulator.Faults != (config.FaultConfig{}) {
		attrs = append(attrs, "faults", fmt.Sprintf("%+v", cfg.Emulator.Faults))
	}
	logger.Info("emulator listening", attrs...)

	if cfg.Emulator.Advertise {
		adv := discovery.NewMDNSAdvertiser(discovery.AdvertiserConfig{
			Interface: cfg.Emulator.Interface,
			TTL:       discovery.DefaultTTL,
		})
		info := advertisedInfo(device, servers)
		if err := adv.Advertise(ctx, info); err != nil {
			return err
		}
		defer adv.Stop()
		watcher.attach(adv, info, logger)
		logger.Info("advertising", "service", discovery.ServiceType, "instance", info.InstanceName())
	}

	<-ctx.Done()
	logger.Info("shutting down")
	return nil
}

func advertisedInfo(d *emulator.Device, s *emulator.Servers) *discovery.DeviceInfo {
	info := &discovery.DeviceInfo{
		DeviceID:    d.ID(),
		Vendor:      d.Vendor(),
		Port:        port(s.Addr()),
		Initialized: d.Initialized(),
	}
	if dbg := s.DebugAddr(); dbg != nil {
		info.DebugPort = port(dbg)
	}
	return info
}

func port(addr net.Addr) uint16 {
	if tcp, ok := addr.(*net.TCPAddr); ok {
		return uint16(tcp.Port)
	}
	return 0
}

// settingsWatcher refreshes the mDNS TXT records when the device is reset,
// loaded or wiped.
type settingsWatcher struct {
	mu     sync.Mutex
	adv    discovery.Advertiser
	info   *discovery.DeviceInfo
	logger *slog.Logger
}

func (w *settingsWatcher) attach(adv discovery.Advertiser, info *discovery.DeviceInfo, logger *slog.Logger) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.adv, w.info, w.logger = adv, info, logger
}

func (w *settingsWatcher) Log(event log.Event) {
	sc := event.StateChange
	if sc == nil || sc.Entity != log.StateEntitySettings {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.adv == nil {
		return
	}
	w.info.Initialized = sc.NewState == "INITIALIZED"
	if err := w.adv.Update(w.info); err != nil && !errors.Is(err, discovery.ErrNotAdvertising) {
		w.logger.Warn("failed to update advertisement", "error", err)
	}
}
