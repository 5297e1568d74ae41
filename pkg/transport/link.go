package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mash-protocol/devreset-go/pkg/log"
	"github.com/mash-protocol/devreset-go/pkg/wire"
)

// Link errors.
var (
	ErrLinkClosed      = errors.New("link closed")
	ErrUnexpectedReply = errors.New("unexpected reply")
)

// aLongTimeAgo is a deadline in the past used to unblock pending I/O.
var aLongTimeAgo = time.Unix(1, 0)

// LinkConfig configures a Link.
type LinkConfig struct {
	// MaxMessageSize bounds a single frame (default: DefaultMaxMessageSize).
	MaxMessageSize uint32

	// Logger receives frame and message events (optional).
	Logger log.Logger

	// Role is recorded on every logged event.
	Role log.Role

	// Debug marks this link as a debug link in logged message events.
	Debug bool
}

// Link carries framed wire messages over a stream connection.
// Call is serialized: one request is in flight at a time.
type Link struct {
	conn   net.Conn
	framer *Framer
	config LinkConfig
	id     string

	callMu    sync.Mutex
	closeOnce sync.Once
	closeCh   chan struct{}
}

// NewLink wraps conn. The Link owns conn and closes it on Close.
func NewLink(conn net.Conn, config LinkConfig) *Link {
	if config.MaxMessageSize == 0 {
		config.MaxMessageSize = DefaultMaxMessageSize
	}
	l := &Link{
		conn:    conn,
		framer:  NewFramerWithMaxSize(conn, config.MaxMessageSize),
		config:  config,
		id:      uuid.NewString(),
		closeCh: make(chan struct{}),
	}
	if config.Logger != nil {
		l.framer.SetLogger(config.Logger, l.id, config.Role)
	}
	return l
}

// ID returns the connection ID used in protocol capture.
func (l *Link) ID() string { return l.id }

// RemoteAddr returns the peer address.
func (l *Link) RemoteAddr() net.Addr { return l.conn.RemoteAddr() }

// Call sends msg and waits for the peer's reply.
// The context deadline and cancellation apply to both directions.
func (l *Link) Call(ctx context.Context, msg wire.Message) (wire.Message, error) {
	l.callMu.Lock()
	defer l.callMu.Unlock()

	release, err := l.bind(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	start := time.Now()
	if err := l.send(msg); err != nil {
		return nil, l.failure(ctx, "send", err)
	}
	reply, size, err := l.receive()
	if err != nil {
		return nil, l.failure(ctx, "receive", err)
	}
	rtt := time.Since(start)
	l.logMessage(reply, log.DirectionIn, size, &rtt)
	return reply, nil
}

// Send writes one message without waiting for a reply.
func (l *Link) Send(ctx context.Context, msg wire.Message) error {
	release, err := l.bind(ctx)
	if err != nil {
		return err
	}
	defer release()

	if err := l.send(msg); err != nil {
		return l.failure(ctx, "send", err)
	}
	return nil
}

// Receive reads one message.
func (l *Link) Receive(ctx context.Context) (wire.Message, error) {
	release, err := l.bind(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	msg, size, err := l.receive()
	if err != nil {
		return nil, l.failure(ctx, "receive", err)
	}
	l.logMessage(msg, log.DirectionIn, size, nil)
	return msg, nil
}

// Close closes the underlying connection. Safe to call more than once.
func (l *Link) Close() error {
	var err error
	l.closeOnce.Do(func() {
		close(l.closeCh)
		err = l.conn.Close()
	})
	return err
}

func (l *Link) send(msg wire.Message) error {
	data, err := wire.Encode(msg)
	if err != nil {
		return err
	}
	if err := l.framer.WriteFrame(data); err != nil {
		return err
	}
	l.logMessage(msg, log.DirectionOut, len(data), nil)
	return nil
}

func (l *Link) receive() (wire.Message, int, error) {
	data, err := l.framer.ReadFrame()
	if err != nil {
		return nil, 0, err
	}
	msg, err := wire.Decode(data)
	if err != nil {
		return nil, len(data), err
	}
	return msg, len(data), nil
}

// bind applies the context to the connection deadlines until release.
func (l *Link) bind(ctx context.Context) (release func(), err error) {
	select {
	case <-l.closeCh:
		return nil, ErrLinkClosed
	default:
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// The deadline is only moved once ctx is done, so an I/O timeout always
	// coincides with a non-nil ctx.Err().
	expired := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		_ = l.conn.SetDeadline(aLongTimeAgo)
		close(expired)
	})
	return func() {
		// A callback already running must finish before the deadline is
		// cleared, or it would poison the next call.
		if !stop() {
			<-expired
		}
		_ = l.conn.SetDeadline(time.Time{})
	}, nil
}

// failure maps an I/O error to the most useful cause.
func (l *Link) failure(ctx context.Context, op string, err error) error {
	select {
	case <-l.closeCh:
		return fmt.Errorf("failed to %s: %w", op, ErrLinkClosed)
	default:
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("failed to %s: %w", op, ctxErr)
	}
	if errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("failed to %s: %w", op, ErrLinkClosed)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

func (l *Link) logMessage(msg wire.Message, dir log.Direction, size int, rtt *time.Duration) {
	if l.config.Logger == nil {
		return
	}
	l.config.Logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: l.id,
		Direction:    dir,
		Layer:        log.LayerWire,
		Category:     log.CategoryMessage,
		LocalRole:    l.config.Role,
		RemoteAddr:   l.conn.RemoteAddr().String(),
		Message: &log.MessageEvent{
			Type:      msg.Type(),
			Debug:     l.config.Debug,
			Size:      size,
			RoundTrip: rtt,
		},
	})
}
