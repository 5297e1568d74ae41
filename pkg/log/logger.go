package log

// Logger receives protocol events. Implementations must be safe for
// concurrent use: the main link and the debug link log from different
// goroutines.
type Logger interface {
	Log(event Event)
}

// NoopLogger discards events.
type NoopLogger struct{}

// Log does nothing.
func (NoopLogger) Log(Event) {}

// OrNoop returns l, or a NoopLogger when l is nil.
func OrNoop(l Logger) Logger {
	if l == nil {
		return NoopLogger{}
	}
	return l
}

// Combine returns a Logger that forwards each event to every non-nil,
// non-noop logger in order. With nothing left it returns a NoopLogger and
// with one logger it returns that logger unwrapped.
func Combine(loggers ...Logger) Logger {
	var live multiLogger
	for _, l := range loggers {
		switch l.(type) {
		case nil, NoopLogger, *NoopLogger:
			continue
		}
		live = append(live, l)
	}
	switch len(live) {
	case 0:
		return NoopLogger{}
	case 1:
		return live[0]
	default:
		return live
	}
}

type multiLogger []Logger

func (m multiLogger) Log(event Event) {
	for _, l := range m {
		l.Log(event)
	}
}
