package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/mash-protocol/devreset-go/pkg/log"
)

// DefaultConnectTimeout applies when the context carries no deadline.
const DefaultConnectTimeout = 10 * time.Second

// DialConfig selects the device to connect to.
type DialConfig struct {
	// Address is the main link (host:port).
	Address string

	// DebugAddress is the debug link. Empty disables it.
	DebugAddress string

	// ConnectTimeout bounds each dial attempt (default: 10s).
	ConnectTimeout time.Duration

	MaxMessageSize uint32

	// Logger receives protocol events for both links (optional).
	Logger log.Logger
}

// Endpoint is a connected device: the main link plus an optional debug link.
type Endpoint struct {
	*Link

	// Debug is nil when no debug address was configured.
	Debug *DebugClient
}

// Close closes both links.
func (e *Endpoint) Close() error {
	err := e.Link.Close()
	if e.Debug != nil {
		err = errors.Join(err, e.Debug.Close())
	}
	return err
}

// Dial connects the main link and, if configured, the debug link.
func Dial(ctx context.Context, config DialConfig) (*Endpoint, error) {
	if config.Address == "" {
		return nil, errors.New("address is required")
	}
	if config.ConnectTimeout == 0 {
		config.ConnectTimeout = DefaultConnectTimeout
	}

	conn, err := dialTCP(ctx, config.Address, config.ConnectTimeout)
	if err != nil {
		return nil, err
	}
	ep := &Endpoint{Link: NewLink(conn, LinkConfig{
		MaxMessageSize: config.MaxMessageSize,
		Logger:         config.Logger,
		Role:           log.RoleHost,
	})}

	if config.DebugAddress != "" {
		dconn, err := dialTCP(ctx, config.DebugAddress, config.ConnectTimeout)
		if err != nil {
			ep.Link.Close()
			return nil, err
		}
		ep.Debug = NewDebugClient(NewLink(dconn, LinkConfig{
			MaxMessageSize: config.MaxMessageSize,
			Logger:         config.Logger,
			Role:           log.RoleHost,
			Debug:          true,
		}))
	}
	return ep, nil
}

// DialWithRetry calls Dial until it succeeds, the context ends, or
// attempts is exhausted (0 means unlimited).
func DialWithRetry(ctx context.Context, config DialConfig, backoff *Backoff, attempts int) (*Endpoint, error) {
	if backoff == nil {
		backoff = NewBackoff()
	}
	for {
		ep, err := Dial(ctx, config)
		if err == nil {
			backoff.Reset()
			return ep, nil
		}
		if attempts > 0 && backoff.Attempts()+1 >= attempts {
			return nil, err
		}

		delay := backoff.Next()
		slog.Debug("dial failed, retrying", "address", config.Address, "attempt", backoff.Attempts(), "delay", delay, "error", err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("failed to connect to %s: %w", config.Address, ctx.Err())
		case <-timer.C:
		}
	}
}

func dialTCP(ctx context.Context, address string, timeout time.Duration) (net.Conn, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	dialer := &net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("dial failed: %w", err)
	}
	return conn, nil
}
