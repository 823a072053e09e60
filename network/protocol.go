package network

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
)

const (
	MsgTypeHeartbeat  = 1
	MsgTypeInvocation = 2
	MsgTypeCompletion = 3
	MsgTypeEvent      = 4
)

const headerSize = 4

// MaxPayloadSize is the largest payload the 16-bit length field can carry.
const MaxPayloadSize = math.MaxUint16

var ErrPayloadTooLarge = errors.New("payload exceeds frame size")

type Packet struct {
	MsgID  uint16
	Data   []byte
	Length uint16
}

// Invocation is a client call, e.g. Join("G1", "alice").
type Invocation struct {
	InvocationID string            `json:"invocationId"`
	Target       string            `json:"target"`
	Arguments    []json.RawMessage `json:"arguments"`
}

// Completion answers one Invocation with either Result or Error.
type Completion struct {
	InvocationID string      `json:"invocationId"`
	Result       interface{} `json:"result,omitempty"`
	Error        *Fault      `json:"error,omitempty"`
}

// Fault is the wire form of a failed invocation.
type Fault struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Event is a server-pushed notification, e.g. UserJoined("alice", "c1").
type Event struct {
	Target    string        `json:"target"`
	Arguments []interface{} `json:"arguments"`
}

// EncodeFrame lays out 2 bytes message id, 2 bytes length, then data.
func EncodeFrame(msgID uint16, data []byte) ([]byte, error) {
	if len(data) > MaxPayloadSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, len(data))
	}
	packet := make([]byte, headerSize+len(data))
	binary.BigEndian.PutUint16(packet[0:2], msgID)
	binary.BigEndian.PutUint16(packet[2:4], uint16(len(data)))
	copy(packet[headerSize:], data)
	return packet, nil
}

func DecodeFrame(data []byte) (*Packet, error) {
	if len(data) < headerSize {
		return nil, io.ErrShortBuffer
	}

	msgID := binary.BigEndian.Uint16(data[0:2])
	length := binary.BigEndian.Uint16(data[2:4])

	if len(data) < headerSize+int(length) {
		return nil, io.ErrShortBuffer
	}

	return &Packet{
		MsgID:  msgID,
		Length: length,
		Data:   data[headerSize : headerSize+int(length)],
	}, nil
}

// EncodeEvent marshals an event payload.
func EncodeEvent(target string, args ...interface{}) ([]byte, error) {
	if args == nil {
		args = []interface{}{}
	}
	data, err := json.Marshal(Event{Target: target, Arguments: args})
	if err != nil {
		return nil, err
	}
	if len(data) > MaxPayloadSize {
		return nil, ErrPayloadTooLarge
	}
	return data, nil
}
