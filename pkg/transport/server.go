package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mash-protocol/devreset-go/pkg/log"
	"github.com/mash-protocol/devreset-go/pkg/wire"
)

// Handler answers one request. A nil reply sends nothing; an error closes
// the connection.
type Handler interface {
	Handle(ctx context.Context, msg wire.Message) (wire.Message, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, msg wire.Message) (wire.Message, error)

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, msg wire.Message) (wire.Message, error) {
	return f(ctx, msg)
}

// ServerConfig configures a device-side server.
type ServerConfig struct {
	// Address to listen on (e.g. "127.0.0.1:21324"; port 0 picks one).
	Address string

	Handler Handler

	// Debug marks connections as debug links in protocol capture.
	Debug bool

	MaxMessageSize uint32

	// Logger for protocol logging (optional).
	Logger log.Logger

	// OnError is called for connection errors other than a clean close.
	OnError func(err error)
}

// Server accepts host connections and answers each request with the
// configured Handler.
type Server struct {
	config   ServerConfig
	listener net.Listener

	conns   map[*Link]struct{}
	connsMu sync.Mutex

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewServer creates a server. Start begins listening.
func NewServer(config ServerConfig) (*Server, error) {
	if config.Handler == nil {
		return nil, errors.New("handler is required")
	}
	if config.MaxMessageSize == 0 {
		config.MaxMessageSize = DefaultMaxMessageSize
	}
	return &Server{
		config: config,
		conns:  make(map[*Link]struct{}),
	}, nil
}

// Start listens and begins accepting connections.
func (s *Server) Start(ctx context.Context) error {
	if s.running.Load() {
		return fmt.Errorf("server already running")
	}

	listener, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	s.listener = listener
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.running.Store(true)

	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

// Stop closes the listener and every open connection, then waits for
// handlers to return.
func (s *Server) Stop() error {
	if !s.running.Swap(false) {
		return nil
	}
	s.cancel()
	s.listener.Close()

	s.connsMu.Lock()
	for l := range s.conns {
		l.Close()
	}
	s.connsMu.Unlock()

	s.wg.Wait()
	return nil
}

// Addr returns the listen address, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.listener != nil {
		return s.listener.Addr()
	}
	return nil
}

// ConnectionCount returns the number of active connections.
func (s *Server) ConnectionCount() int {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	return len(s.conns)
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if !s.running.Load() {
				return
			}
			s.reportError(fmt.Errorf("accept error: %w", err))
			continue
		}

		s.wg.Add(1)
		go s.serve(conn)
	}
}

func (s *Server) serve(conn net.Conn) {
	defer s.wg.Done()

	link := NewLink(conn, LinkConfig{
		MaxMessageSize: s.config.MaxMessageSize,
		Logger:         s.config.Logger,
		Role:           log.RoleDevice,
		Debug:          s.config.Debug,
	})

	s.connsMu.Lock()
	s.conns[link] = struct{}{}
	s.connsMu.Unlock()
	s.logState(link, "", "CONNECTED")

	defer func() {
		link.Close()
		s.connsMu.Lock()
		delete(s.conns, link)
		s.connsMu.Unlock()
		s.logState(link, "CONNECTED", "DISCONNECTED")
	}()

	for {
		msg, err := link.Receive(s.ctx)
		if err != nil {
			if !isClosed(err) && s.running.Load() {
				s.reportError(err)
			}
			return
		}

		reply, err := s.config.Handler.Handle(s.ctx, msg)
		if err != nil {
			s.reportError(fmt.Errorf("handler failed on %s: %w", msg.Type(), err))
			return
		}
		if reply == nil {
			continue
		}
		if err := link.Send(s.ctx, reply); err != nil {
			if !isClosed(err) {
				s.reportError(err)
			}
			return
		}
	}
}

func (s *Server) reportError(err error) {
	if s.config.OnError != nil {
		s.config.OnError(err)
	}
}

func (s *Server) logState(link *Link, from, to string) {
	if s.config.Logger == nil {
		return
	}
	s.config.Logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: link.ID(),
		Layer:        log.LayerTransport,
		Category:     log.CategoryState,
		LocalRole:    log.RoleDevice,
		RemoteAddr:   link.RemoteAddr().String(),
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityConnection,
			OldState: from,
			NewState: to,
		},
	})
}

func isClosed(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, ErrLinkClosed) ||
		errors.Is(err, context.Canceled) || errors.Is(err, net.ErrClosed)
}
