package log

import (
	"bytes"
	"testing"
	"time"

	"github.com/mash-protocol/devreset-go/pkg/wire"
)

func TestEventCBORRoundTrip(t *testing.T) {
	rtt := 3 * time.Millisecond
	code := 9
	ts := time.Date(2026, 3, 14, 15, 9, 26, 535897932, time.UTC)

	tests := []struct {
		name  string
		event Event
	}{
		{
			name: "frame",
			event: Event{
				Timestamp:    ts,
				ConnectionID: "conn-1",
				Direction:    DirectionOut,
				Layer:        LayerTransport,
				Category:     CategoryMessage,
				LocalRole:    RoleHost,
				RemoteAddr:   "127.0.0.1:21324",
				Frame:        &FrameEvent{Size: 12},
			},
		},
		{
			name: "message",
			event: Event{
				Timestamp:    ts,
				ConnectionID: "conn-1",
				Direction:    DirectionIn,
				Layer:        LayerWire,
				Category:     CategoryMessage,
				SessionID:    "sess-7",
				DeviceID:     "EMU-0001",
				Message:      &MessageEvent{Type: wire.TypeEntropyRequest, Size: 1, RoundTrip: &rtt},
			},
		},
		{
			name: "state",
			event: Event{
				Timestamp:    ts,
				ConnectionID: "conn-2",
				Layer:        LayerHandshake,
				Category:     CategoryState,
				StateChange: &StateChangeEvent{
					Entity:   StateEntityHandshake,
					OldState: "AWAIT_ENTROPY",
					NewState: "AWAIT_FIRST_PASS_WORDS",
				},
			},
		},
		{
			name: "error",
			event: Event{
				Timestamp:    ts,
				ConnectionID: "conn-3",
				Layer:        LayerHandshake,
				Category:     CategoryError,
				Error:        &ErrorEventData{Layer: LayerHandshake, Message: "word mismatch", Code: &code, Context: "first pass"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := EncodeEvent(tt.event)
			if err != nil {
				t.Fatalf("EncodeEvent failed: %v", err)
			}
			got, err := DecodeEvent(data)
			if err != nil {
				t.Fatalf("DecodeEvent failed: %v", err)
			}

			if !got.Timestamp.Equal(tt.event.Timestamp) {
				t.Errorf("Timestamp = %v, want %v", got.Timestamp, tt.event.Timestamp)
			}
			if got.ConnectionID != tt.event.ConnectionID || got.SessionID != tt.event.SessionID || got.DeviceID != tt.event.DeviceID {
				t.Errorf("identifiers = %q/%q/%q", got.ConnectionID, got.SessionID, got.DeviceID)
			}
			if got.Layer != tt.event.Layer || got.Category != tt.event.Category || got.Direction != tt.event.Direction {
				t.Errorf("classification = %v/%v/%v", got.Layer, got.Category, got.Direction)
			}

			switch {
			case tt.event.Frame != nil:
				if got.Frame == nil || got.Frame.Size != tt.event.Frame.Size {
					t.Errorf("Frame = %+v", got.Frame)
				}
			case tt.event.Message != nil:
				if got.Message == nil || got.Message.Type != wire.TypeEntropyRequest {
					t.Fatalf("Message = %+v", got.Message)
				}
				if got.Message.RoundTrip == nil || *got.Message.RoundTrip != rtt {
					t.Errorf("RoundTrip = %v", got.Message.RoundTrip)
				}
			case tt.event.StateChange != nil:
				if got.StateChange == nil || *got.StateChange != *tt.event.StateChange {
					t.Errorf("StateChange = %+v", got.StateChange)
				}
			case tt.event.Error != nil:
				if got.Error == nil || got.Error.Message != "word mismatch" || got.Error.Code == nil || *got.Error.Code != 9 {
					t.Errorf("Error = %+v", got.Error)
				}
			}
		})
	}
}

func TestEncodeEventIsDeterministic(t *testing.T) {
	event := Event{
		Timestamp:    time.Unix(1700000000, 0).UTC(),
		ConnectionID: "conn-1",
		Layer:        LayerWire,
		Message:      &MessageEvent{Type: wire.TypeButtonRequest},
	}

	a, err := EncodeEvent(event)
	if err != nil {
		t.Fatal(err)
	}
	b, err := EncodeEvent(event)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Error("encoding is not deterministic")
	}
}

func TestEncodeEventOmitsEmptyPayloads(t *testing.T) {
	data, err := EncodeEvent(Event{ConnectionID: "c"})
	if err != nil {
		t.Fatal(err)
	}
	got, err := DecodeEvent(data)
	if err != nil {
		t.Fatal(err)
	}
	if got.Frame != nil || got.Message != nil || got.StateChange != nil || got.Error != nil {
		t.Errorf("unexpected payload after round trip: %+v", got)
	}
}

func TestDecodeEventRejectsGarbage(t *testing.T) {
	if _, err := DecodeEvent([]byte{0xff, 0x00, 0x13}); err == nil {
		t.Error("expected error for invalid CBOR")
	}
}

func TestStreamEncoderDecoder(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	for _, id := range []string{"a", "b", "c"} {
		if err := enc.Encode(Event{ConnectionID: id}); err != nil {
			t.Fatal(err)
		}
	}

	dec := NewDecoder(&buf)
	var ids []string
	for {
		var e Event
		if err := dec.Decode(&e); err != nil {
			break
		}
		ids = append(ids, e.ConnectionID)
	}
	if len(ids) != 3 || ids[0] != "a" || ids[2] != "c" {
		t.Errorf("decoded ids = %v", ids)
	}
}
