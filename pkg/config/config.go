// Package config loads the YAML configuration shared by the devreset host
// and emulator binaries. Command-line flags override file values.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mash-protocol/devreset-go/pkg/emulator"
	"github.com/mash-protocol/devreset-go/pkg/entropy"
	"github.com/mash-protocol/devreset-go/pkg/reset"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// ValidationError names the offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrInvalid }

// LoadError reports a file that could not be read or parsed.
type LoadError struct {
	File    string
	Message string
	Cause   error
}

func (e *LoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.File, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.File, e.Message)
}

func (e *LoadError) Unwrap() error { return e.Cause }

// Config is the top-level configuration file.
type Config struct {
	Host     HostConfig     `yaml:"host"`
	Emulator EmulatorConfig `yaml:"emulator"`
	Log      LogConfig      `yaml:"log"`
}

// HostConfig holds the defaults of a reset request and how to reach the
// device.
type HostConfig struct {
	Address        string        `yaml:"address"`
	DebugAddress   string        `yaml:"debug_address"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`

	// Discover browses mDNS for a device when no address is set.
	Discover bool `yaml:"discover"`

	Strength             int    `yaml:"strength"`
	DisplayRandom        bool   `yaml:"display_random"`
	PinProtection        bool   `yaml:"pin_protection"`
	PassphraseProtection bool   `yaml:"passphrase_protection"`
	Label                string `yaml:"label"`
	Language             string `yaml:"language"`

	// StateFile records finished sessions (optional).
	StateFile string `yaml:"state_file"`
}

// EmulatorConfig configures devreset-emulator.
type EmulatorConfig struct {
	Address      string `yaml:"address"`
	DebugAddress string `yaml:"debug_address"`
	Vendor       string `yaml:"vendor"`
	DeviceID     string `yaml:"device_id"`
	StateFile    string `yaml:"state_file"`
	AutoConfirm  bool   `yaml:"auto_confirm"`

	// EntropySeed makes the device entropy reproducible.
	EntropySeed string `yaml:"entropy_seed"`

	Advertise bool   `yaml:"advertise"`
	Interface string `yaml:"interface"`

	Faults FaultConfig `yaml:"faults"`
}

// FaultConfig mirrors emulator.Faults.
type FaultConfig struct {
	TamperPass         int  `yaml:"tamper_pass"`
	TamperWord         int  `yaml:"tamper_word"`
	SwapEntropyOrder   bool `yaml:"swap_entropy_order"`
	SkipSecondPin      bool `yaml:"skip_second_pin"`
	RejectPin          bool `yaml:"reject_pin"`
	WrongFinalResponse bool `yaml:"wrong_final_response"`
	IgnorePassphrase   bool `yaml:"ignore_passphrase"`
}

// LogConfig selects the operational log level and the protocol capture
// file.
type LogConfig struct {
	Level       string `yaml:"level"`
	ProtocolLog string `yaml:"protocol_log"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Host: HostConfig{
			Address:        emulator.DefaultAddress,
			DebugAddress:   emulator.DefaultDebugAddress,
			ConnectTimeout: 10 * time.Second,
			Strength:       int(entropy.Strength256),
			Language:       "english",
		},
		Emulator: EmulatorConfig{
			Address:      emulator.DefaultAddress,
			DebugAddress: emulator.DefaultDebugAddress,
			Vendor:       emulator.DefaultVendor,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads a config file over the defaults. An empty path returns the
// defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{File: path, Message: "failed to read file", Cause: err}
	}
	cfg, err := Parse(data)
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			le.File = path
		}
		return nil, err
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, &LoadError{File: "<config>", Message: "failed to parse YAML", Cause: err}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field ranges.
func (c *Config) Validate() error {
	if !entropy.Strength(c.Host.Strength).Valid() {
		return &ValidationError{Field: "host.strength", Message: fmt.Sprintf("%d is not 128, 192 or 256", c.Host.Strength)}
	}
	if c.Host.ConnectTimeout < 0 {
		return &ValidationError{Field: "host.connect_timeout", Message: "must not be negative"}
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return &ValidationError{Field: "log.level", Message: err.Error()}
	}

	f := c.Emulator.Faults
	if f.TamperPass < 0 || f.TamperPass > 2 {
		return &ValidationError{Field: "emulator.faults.tamper_pass", Message: "must be 0, 1 or 2"}
	}
	if f.TamperWord < 0 {
		return &ValidationError{Field: "emulator.faults.tamper_word", Message: "must not be negative"}
	}
	if c.Emulator.Address == "" {
		return &ValidationError{Field: "emulator.address", Message: "required"}
	}
	return nil
}

// Request builds the reset request from the host defaults.
func (c *Config) Request() reset.Request {
	return reset.Request{
		Strength:             entropy.Strength(c.Host.Strength),
		DisplayRandom:        c.Host.DisplayRandom,
		PinProtection:        c.Host.PinProtection,
		PassphraseProtection: c.Host.PassphraseProtection,
		Label:                c.Host.Label,
		Language:             c.Host.Language,
	}
}

// Faults converts the fault section.
func (c *Config) Faults() emulator.Faults {
	f := c.Emulator.Faults
	return emulator.Faults{
		TamperPass:         f.TamperPass,
		TamperWord:         f.TamperWord,
		SwapEntropyOrder:   f.SwapEntropyOrder,
		SkipSecondPin:      f.SkipSecondPin,
		RejectPin:          f.RejectPin,
		WrongFinalResponse: f.WrongFinalResponse,
		IgnorePassphrase:   f.IgnorePassphrase,
	}
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown level %q", s)
	}
}
