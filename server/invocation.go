package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/wfunc/vocabversus/coordinator"
	"github.com/wfunc/vocabversus/logger"
	"github.com/wfunc/vocabversus/network"
	"github.com/wfunc/vocabversus/session"
)

// Transport-level fault codes. The coordinator never produces these.
const (
	CodeInvalidInvocation = "InvalidInvocation"
	CodeMethodNotFound    = "MethodNotFound"
	CodeResultTooLarge    = "ResultTooLarge"
)

type invocationError struct {
	code    string
	message string
}

func (e *invocationError) Error() string {
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func invalidArguments(target string, want int, got int) error {
	return &invocationError{
		code:    CodeInvalidInvocation,
		message: fmt.Sprintf("%s expects %d arguments, got %d", target, want, got),
	}
}

type invocationHandler func(ctx context.Context, sess *session.Session, args []json.RawMessage) (interface{}, error)

func (s *GameServer) invocationHandlers() map[string]invocationHandler {
	return map[string]invocationHandler{
		"CheckGame": func(ctx context.Context, sess *session.Session, args []json.RawMessage) (interface{}, error) {
			var gameID string
			if err := decodeArgs("CheckGame", args, &gameID); err != nil {
				return nil, err
			}
			return s.coordinator.CheckAvailability(ctx, gameID)
		},
		"Join": func(ctx context.Context, sess *session.Session, args []json.RawMessage) (interface{}, error) {
			var gameID, username string
			if err := decodeArgs("Join", args, &gameID, &username); err != nil {
				return nil, err
			}
			return s.coordinator.Join(ctx, gameID, sess.GetID(), username)
		},
		"Kick": func(ctx context.Context, sess *session.Session, args []json.RawMessage) (interface{}, error) {
			var gameID, userIdentifier string
			if err := decodeArgs("Kick", args, &gameID, &userIdentifier); err != nil {
				return nil, err
			}
			return nil, s.coordinator.Kick(ctx, gameID, sess.GetID(), userIdentifier)
		},
		"Ready": func(ctx context.Context, sess *session.Session, args []json.RawMessage) (interface{}, error) {
			var gameID string
			var ready bool
			if err := decodeArgs("Ready", args, &gameID, &ready); err != nil {
				return nil, err
			}
			return nil, s.coordinator.SetReady(ctx, gameID, sess.GetID(), ready)
		},
	}
}

// decodeArgs unmarshals positional arguments into dst in order.
func decodeArgs(target string, args []json.RawMessage, dst ...interface{}) error {
	if len(args) != len(dst) {
		return invalidArguments(target, len(dst), len(args))
	}
	for i, raw := range args {
		if err := json.Unmarshal(raw, dst[i]); err != nil {
			return &invocationError{
				code:    CodeInvalidInvocation,
				message: fmt.Sprintf("%s argument %d: %v", target, i, err),
			}
		}
	}
	return nil
}

func (s *GameServer) handleInvocation(sess *session.Session, data []byte) {
	var inv network.Invocation
	if err := json.Unmarshal(data, &inv); err != nil {
		s.complete(sess, "", nil, &invocationError{code: CodeInvalidInvocation, message: "malformed invocation"})
		return
	}

	handler, ok := s.handlers[inv.Target]
	if !ok {
		s.complete(sess, inv.InvocationID, nil, &invocationError{
			code:    CodeMethodNotFound,
			message: fmt.Sprintf("unknown target %q", inv.Target),
		})
		return
	}

	result, err := handler(context.Background(), sess, inv.Arguments)
	if err != nil {
		logger.Log.Infof("%s from %s failed: %v", inv.Target, sess.GetID(), err)
	}
	s.complete(sess, inv.InvocationID, result, err)
}

func (s *GameServer) complete(sess *session.Session, invocationID string, result interface{}, err error) {
	completion := network.Completion{InvocationID: invocationID}
	if err != nil {
		completion.Error = toWireFault(err)
	} else {
		completion.Result = result
	}

	sendErr := sendCompletion(sess, completion)
	if sendErr == nil {
		return
	}
	logger.Log.Warnf("Completion %s to %s dropped: %v", invocationID, sess.GetID(), sendErr)
	if errors.Is(sendErr, network.ErrConnectionClosed) || errors.Is(sendErr, network.ErrSendQueueFull) {
		return
	}

	// the reply itself could not be framed; the caller still gets a coded answer
	fallback := network.Completion{
		InvocationID: invocationID,
		Error:        &network.Fault{Code: CodeResultTooLarge, Message: "reply does not fit in a frame"},
	}
	if err := sendCompletion(sess, fallback); err != nil {
		logger.Log.Warnf("Fallback completion %s to %s dropped: %v", invocationID, sess.GetID(), err)
	}
}

func sendCompletion(sess *session.Session, completion network.Completion) error {
	data, err := json.Marshal(completion)
	if err != nil {
		return err
	}
	if len(data) > network.MaxPayloadSize {
		return fmt.Errorf("%w: %d bytes", network.ErrPayloadTooLarge, len(data))
	}
	return sess.Send(network.MsgTypeCompletion, data)
}

func toWireFault(err error) *network.Fault {
	var ie *invocationError
	if errors.As(err, &ie) {
		return &network.Fault{Code: ie.code, Message: ie.message}
	}
	f := coordinator.AsFault(err)
	return &network.Fault{Code: string(f.Code), Message: f.Message}
}
