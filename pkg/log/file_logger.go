package log

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/fxamacker/cbor/v2"
)

// FileLogger appends events to a .dlog capture file.
//
// A failed write never reaches the caller of Log; the handshake must not
// stop because the capture disk is full. Failures are counted instead and
// reported through the error log set with WithErrorLog: the first one when
// it happens, the total on Close.
type FileLogger struct {
	mu      sync.Mutex
	file    *os.File
	enc     *cbor.Encoder
	errLog  *slog.Logger
	dropped int
	closed  bool
}

// FileOption configures a FileLogger.
type FileOption func(*FileLogger)

// WithErrorLog reports dropped events to logger.
func WithErrorLog(logger *slog.Logger) FileOption {
	return func(l *FileLogger) { l.errLog = logger }
}

// NewFileLogger opens path for appending, creating it when missing.
func NewFileLogger(path string, opts ...FileOption) (*FileLogger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture: %w", err)
	}
	l := &FileLogger{file: f, enc: NewEncoder(f)}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Path returns the capture file path.
func (l *FileLogger) Path() string { return l.file.Name() }

// Log appends event. Events logged after Close are ignored.
func (l *FileLogger) Log(event Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}
	if err := l.enc.Encode(event); err != nil {
		l.dropped++
		if l.dropped == 1 && l.errLog != nil {
			l.errLog.Warn("failed to write protocol capture",
				"path", l.file.Name(), "error", err)
		}
	}
}

// Dropped returns how many events could not be written.
func (l *FileLogger) Dropped() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dropped
}

// Close flushes and closes the capture. Calling it again is a no-op.
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true

	if l.dropped > 0 && l.errLog != nil {
		l.errLog.Warn("protocol capture is incomplete",
			"path", l.file.Name(), "dropped", l.dropped)
	}
	syncErr := l.file.Sync()
	if err := l.file.Close(); err != nil {
		return err
	}
	return syncErr
}
