package network

import (
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestFrameRoundTrip(t *testing.T) {
	payload := []byte(`{"target":"UserJoined","arguments":["alice","c1"]}`)

	frame, err := EncodeFrame(MsgTypeEvent, payload)
	if err != nil {
		t.Fatalf("EncodeFrame failed: %v", err)
	}

	packet, err := DecodeFrame(frame)
	if err != nil {
		t.Fatalf("DecodeFrame failed: %v", err)
	}
	if packet.MsgID != MsgTypeEvent {
		t.Errorf("Expected msg id %d, got %d", MsgTypeEvent, packet.MsgID)
	}
	if string(packet.Data) != string(payload) {
		t.Errorf("Payload mismatch: %s", packet.Data)
	}
}

func TestDecodeFrame_Short(t *testing.T) {
	if _, err := DecodeFrame([]byte{0, 1}); !errors.Is(err, io.ErrShortBuffer) {
		t.Errorf("Expected ErrShortBuffer for truncated header, got %v", err)
	}
	// header claims 10 bytes, only 2 present
	if _, err := DecodeFrame([]byte{0, 2, 0, 10, 'a', 'b'}); !errors.Is(err, io.ErrShortBuffer) {
		t.Errorf("Expected ErrShortBuffer for truncated payload, got %v", err)
	}
}

func TestEncodeFrame_TooLarge(t *testing.T) {
	big := []byte(strings.Repeat("x", 1<<16))
	if _, err := EncodeFrame(MsgTypeEvent, big); !errors.Is(err, ErrPayloadTooLarge) {
		t.Errorf("Expected ErrPayloadTooLarge, got %v", err)
	}
}

func TestEncodeEvent(t *testing.T) {
	data, err := EncodeEvent("GameStarting", int64(1700000000000))
	if err != nil {
		t.Fatalf("EncodeEvent failed: %v", err)
	}

	var ev struct {
		Target    string            `json:"target"`
		Arguments []json.RawMessage `json:"arguments"`
	}
	if err := json.Unmarshal(data, &ev); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if ev.Target != "GameStarting" || len(ev.Arguments) != 1 || string(ev.Arguments[0]) != "1700000000000" {
		t.Errorf("Unexpected event: %s", data)
	}

	empty, _ := EncodeEvent("Ping")
	if !strings.Contains(string(empty), `"arguments":[]`) {
		t.Errorf("Expected empty argument list, got %s", empty)
	}

	if _, err := EncodeEvent("UserJoined", strings.Repeat("a", MaxPayloadSize)); !errors.Is(err, ErrPayloadTooLarge) {
		t.Errorf("Expected ErrPayloadTooLarge for an oversized event, got %v", err)
	}
}
