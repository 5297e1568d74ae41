package transport

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/mash-protocol/devreset-go/pkg/log"
)

type captureLogger struct {
	mu     sync.Mutex
	events []log.Event
}

func (c *captureLogger) Log(e log.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func (c *captureLogger) snapshot() []log.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]log.Event(nil), c.events...)
}

func TestFrameRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
	}{
		{"single byte", []byte{0x42}},
		{"entropy ack", append([]byte{0xa2, 0x01, 0x18, 0x24, 0x02}, bytes.Repeat([]byte{0x01}, 40)...)},
		{"max size", bytes.Repeat([]byte("y"), DefaultMaxMessageSize)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := NewFrameWriter(&buf).WriteFrame(tt.payload); err != nil {
				t.Fatalf("WriteFrame failed: %v", err)
			}
			if buf.Len() != FrameSize(len(tt.payload)) {
				t.Errorf("frame size = %d, want %d", buf.Len(), FrameSize(len(tt.payload)))
			}
			if got := binary.BigEndian.Uint32(buf.Bytes()[:4]); got != uint32(len(tt.payload)) {
				t.Errorf("length prefix = %d, want %d", got, len(tt.payload))
			}

			got, err := NewFrameReader(&buf).ReadFrame()
			if err != nil {
				t.Fatalf("ReadFrame failed: %v", err)
			}
			if !bytes.Equal(got, tt.payload) {
				t.Errorf("payload mismatch: got %d bytes, want %d", len(got), len(tt.payload))
			}
		})
	}
}

func TestFrameErrors(t *testing.T) {
	prefix := func(n uint32) []byte {
		b := make([]byte, 4)
		binary.BigEndian.PutUint32(b, n)
		return b
	}

	tests := []struct {
		name  string
		input []byte
		want  error
	}{
		{"empty stream", nil, io.EOF},
		{"zero length", prefix(0), ErrMessageEmpty},
		{"too large", prefix(DefaultMaxMessageSize + 1), ErrMessageTooLarge},
		{"short prefix", []byte{0x00, 0x00}, ErrFrameTruncated},
		{"short payload", append(prefix(10), 1, 2, 3), ErrFrameTruncated},
		{"missing payload", prefix(3), ErrFrameTruncated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFrameReader(bytes.NewReader(tt.input)).ReadFrame()
			if !errors.Is(err, tt.want) {
				t.Errorf("ReadFrame error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestFrameWriterRejects(t *testing.T) {
	var buf bytes.Buffer
	w := NewFrameWriterWithMaxSize(&buf, 8)

	if err := w.WriteFrame(nil); !errors.Is(err, ErrMessageEmpty) {
		t.Errorf("empty: got %v", err)
	}
	if err := w.WriteFrame(make([]byte, 9)); !errors.Is(err, ErrMessageTooLarge) {
		t.Errorf("oversize: got %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("rejected frames wrote %d bytes", buf.Len())
	}
}

func TestFramerSequence(t *testing.T) {
	var buf bytes.Buffer
	f := NewFramer(&buf)

	msgs := [][]byte{[]byte("initialize"), []byte("features"), []byte("reset")}
	for _, m := range msgs {
		if err := f.WriteFrame(m); err != nil {
			t.Fatal(err)
		}
	}
	for i, want := range msgs {
		got, err := f.ReadFrame()
		if err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("frame %d = %q, want %q", i, got, want)
		}
	}
	if _, err := f.ReadFrame(); err != io.EOF {
		t.Errorf("expected io.EOF after last frame, got %v", err)
	}
}

func TestFramerConcurrentWriters(t *testing.T) {
	var buf bytes.Buffer
	w := NewFrameWriter(&buf)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(b byte) {
			defer wg.Done()
			_ = w.WriteFrame(bytes.Repeat([]byte{b}, 32))
		}(byte(i + 1))
	}
	wg.Wait()

	r := NewFrameReader(&buf)
	for i := 0; i < 16; i++ {
		p, err := r.ReadFrame()
		if err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
		if !bytes.Equal(p, bytes.Repeat(p[:1], 32)) {
			t.Fatalf("frame %d interleaved", i)
		}
	}
}

func TestFramerLogsSizesOnly(t *testing.T) {
	var buf bytes.Buffer
	logger := &captureLogger{}
	f := NewFramer(&buf)
	f.SetLogger(logger, "conn-1", log.RoleHost)

	secret := bytes.Repeat([]byte{0xAB}, 32)
	if err := f.WriteFrame(secret); err != nil {
		t.Fatal(err)
	}
	if _, err := f.ReadFrame(); err != nil {
		t.Fatal(err)
	}

	events := logger.snapshot()
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].Direction != log.DirectionOut || events[1].Direction != log.DirectionIn {
		t.Errorf("directions = %v, %v", events[0].Direction, events[1].Direction)
	}
	for _, e := range events {
		if e.ConnectionID != "conn-1" || e.Layer != log.LayerTransport || e.LocalRole != log.RoleHost {
			t.Errorf("event = %+v", e)
		}
		if e.Frame == nil || e.Frame.Size != FrameSize(32) {
			t.Errorf("Frame = %+v", e.Frame)
		}
	}
}

func TestFramerWithoutLogger(t *testing.T) {
	var buf bytes.Buffer
	f := NewFramer(&buf)
	f.SetLogger(nil, "", log.RoleHost)
	if err := f.WriteFrame([]byte{1}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.ReadFrame(); err != nil {
		t.Fatal(err)
	}
}
