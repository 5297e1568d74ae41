package emulator

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/mash-protocol/devreset-go/pkg/log"
	"github.com/mash-protocol/devreset-go/pkg/transport"
)

// Default listen addresses.
const (
	DefaultAddress      = "127.0.0.1:21324"
	DefaultDebugAddress = "127.0.0.1:21325"
)

// ServeConfig configures the device's TCP listeners.
type ServeConfig struct {
	Address string

	// DebugAddress enables the debug link. Empty means no debug link.
	DebugAddress string

	MaxMessageSize uint32
	Logger         log.Logger
	OnError        func(err error)
}

// Servers are the running listeners of a served device.
type Servers struct {
	Main  *transport.Server
	Debug *transport.Server
}

// Serve starts the main listener and, if configured, the debug listener.
func Serve(ctx context.Context, d *Device, config ServeConfig) (*Servers, error) {
	main, err := transport.NewServer(transport.ServerConfig{
		Address:        config.Address,
		Handler:        transport.HandlerFunc(d.Handle),
		MaxMessageSize: config.MaxMessageSize,
		Logger:         config.Logger,
		OnError:        config.OnError,
	})
	if err != nil {
		return nil, err
	}
	if err := main.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start main link: %w", err)
	}

	s := &Servers{Main: main}
	if config.DebugAddress == "" {
		return s, nil
	}

	debug, err := transport.NewServer(transport.ServerConfig{
		Address:        config.DebugAddress,
		Handler:        transport.HandlerFunc(d.DebugHandle),
		Debug:          true,
		MaxMessageSize: config.MaxMessageSize,
		Logger:         config.Logger,
		OnError:        config.OnError,
	})
	if err == nil {
		err = debug.Start(ctx)
	}
	if err != nil {
		main.Stop()
		return nil, fmt.Errorf("failed to start debug link: %w", err)
	}
	s.Debug = debug
	return s, nil
}

// Addr returns the main listen address.
func (s *Servers) Addr() net.Addr { return s.Main.Addr() }

// DebugAddr returns the debug listen address, or nil without a debug link.
func (s *Servers) DebugAddr() net.Addr {
	if s.Debug == nil {
		return nil
	}
	return s.Debug.Addr()
}

// Stop stops both listeners.
func (s *Servers) Stop() error {
	var errs []error
	errs = append(errs, s.Main.Stop())
	if s.Debug != nil {
		errs = append(errs, s.Debug.Stop())
	}
	return errors.Join(errs...)
}
