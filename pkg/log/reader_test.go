package log

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mash-protocol/devreset-go/pkg/wire"
)

func writeCapture(t *testing.T, events []Event) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "capture"+CaptureExt)
	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("failed to create capture: %v", err)
	}
	for _, e := range events {
		logger.Log(e)
	}
	logger.Close()
	return path
}

func collect(t *testing.T, path string, filter Filter) []Event {
	t.Helper()
	r, err := NewFilteredReader(path, filter)
	if err != nil {
		t.Fatalf("NewFilteredReader failed: %v", err)
	}
	defer r.Close()

	var out []Event
	for {
		e, err := r.Next()
		if err == io.EOF {
			return out
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		out = append(out, e)
	}
}

func TestReaderFilters(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	button := wire.TypeButtonRequest
	in, out := DirectionIn, DirectionOut
	handshake := LayerHandshake
	state := CategoryState
	start, end := base.Add(time.Second), base.Add(3*time.Second)

	events := []Event{
		{Timestamp: base, ConnectionID: "c1", Direction: DirectionOut, Layer: LayerWire, SessionID: "s1", Message: &MessageEvent{Type: wire.TypeResetDevice}},
		{Timestamp: base.Add(1 * time.Second), ConnectionID: "c1", Direction: DirectionIn, Layer: LayerWire, SessionID: "s1", Message: &MessageEvent{Type: wire.TypeButtonRequest}},
		{Timestamp: base.Add(2 * time.Second), ConnectionID: "c1", Layer: LayerHandshake, Category: CategoryState, SessionID: "s1", StateChange: &StateChangeEvent{NewState: "AWAIT_ENTROPY"}},
		{Timestamp: base.Add(3 * time.Second), ConnectionID: "c2", Direction: DirectionIn, Layer: LayerTransport, Frame: &FrameEvent{Size: 8}},
	}
	path := writeCapture(t, events)

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"all", Filter{}, 4},
		{"connection", Filter{ConnectionID: "c2"}, 1},
		{"direction in", Filter{Direction: &in}, 2},
		{"direction out", Filter{Direction: &out}, 1},
		{"layer", Filter{Layer: &handshake}, 1},
		{"category", Filter{Category: &state}, 1},
		{"session", Filter{SessionID: "s1"}, 3},
		{"message type", Filter{MessageType: &button}, 1},
		{"time range", Filter{TimeStart: &start, TimeEnd: &end}, 2},
		{"combined", Filter{ConnectionID: "c1", Direction: &in, Layer: &handshake}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := len(collect(t, path, tt.filter)); got != tt.want {
				t.Errorf("got %d events, want %d", got, tt.want)
			}
		})
	}
}

func TestReaderDirectionSkipsUndirectedEvents(t *testing.T) {
	in := DirectionIn
	path := writeCapture(t, []Event{
		{Layer: LayerHandshake, Category: CategoryState, StateChange: &StateChangeEvent{NewState: "ABORTED"}},
		{Layer: LayerHandshake, Category: CategoryError, Error: &ErrorEventData{Message: "word mismatch"}},
		{Direction: DirectionIn, Layer: LayerWire, Message: &MessageEvent{Type: wire.TypeFailure}},
	})

	got := collect(t, path, Filter{Direction: &in})
	if len(got) != 1 {
		t.Fatalf("got %d events, want 1", len(got))
	}
	if got[0].Message == nil || got[0].Message.Type != wire.TypeFailure {
		t.Errorf("event = %+v", got[0])
	}
}

func TestEach(t *testing.T) {
	path := writeCapture(t, []Event{{SessionID: "s1"}, {SessionID: "s2"}, {SessionID: "s1"}})

	var n int
	err := Each(path, Filter{SessionID: "s1"}, func(e Event) error {
		n++
		return nil
	})
	if err != nil {
		t.Fatalf("Each failed: %v", err)
	}
	if n != 2 {
		t.Errorf("visited %d events, want 2", n)
	}

	stop := errors.New("stop")
	n = 0
	err = Each(path, Filter{}, func(Event) error {
		n++
		return stop
	})
	if !errors.Is(err, stop) || n != 1 {
		t.Errorf("Each = %v after %d events, want stop after 1", err, n)
	}

	if err := Each(filepath.Join(t.TempDir(), "nope.dlog"), Filter{}, func(Event) error { return nil }); err == nil {
		t.Error("expected error for missing capture")
	}
}

func TestReaderPreservesOrder(t *testing.T) {
	path := writeCapture(t, []Event{{ConnectionID: "a"}, {ConnectionID: "b"}, {ConnectionID: "c"}})
	got := collect(t, path, Filter{})
	if len(got) != 3 || got[0].ConnectionID != "a" || got[2].ConnectionID != "c" {
		t.Errorf("events = %+v", got)
	}
}

func TestReaderEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.dlog")
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatal(err)
	}
	if got := collect(t, path, Filter{}); len(got) != 0 {
		t.Errorf("got %d events from empty file", len(got))
	}
}

func TestReaderTruncatedFile(t *testing.T) {
	path := writeCapture(t, []Event{{ConnectionID: "whole"}})
	data, _ := os.ReadFile(path)
	data = append(data, 0xa5, 0x01) // partial map header
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	r, err := NewReader(path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	if _, err := r.Next(); err != nil {
		t.Fatalf("first event: %v", err)
	}
	if _, err := r.Next(); err == nil || err == io.EOF {
		t.Errorf("expected decode error for truncated tail, got %v", err)
	}
}

func TestNewReaderMissingFile(t *testing.T) {
	if _, err := NewReader(filepath.Join(t.TempDir(), "nope.dlog")); err == nil {
		t.Error("expected error")
	}
}
