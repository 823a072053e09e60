package coordinator

import (
	"errors"
	"fmt"

	"github.com/wfunc/vocabversus/room"
)

// FaultCode is the machine-checkable reason a client operation failed.
type FaultCode string

const (
	CodeIdentifierError  FaultCode = "IdentifierError"
	CodeUserAddFailed    FaultCode = "UserAddFailed"
	CodeActionNotAllowed FaultCode = "ActionNotAllowed"
	CodeUserEditFailed   FaultCode = "UserEditFailed"
)

// Fault is the only error type the coordinator returns to callers. Err keeps
// the underlying domain error for errors.Is checks (e.g. room.ErrRosterFull
// behind a UserAddFailed).
type Fault struct {
	Code    FaultCode
	Message string
	Err     error
}

func (f *Fault) Error() string {
	return fmt.Sprintf("%s: %s", f.Code, f.Message)
}

func (f *Fault) Unwrap() error {
	return f.Err
}

var (
	ErrInvalidGame      = errors.New("invalid game settings")
	ErrUsernameTooLong  = errors.New("username too long")
	ErrUsernameRequired = errors.New("username required")
)

func identifierError(gameID string) *Fault {
	return &Fault{
		Code:    CodeIdentifierError,
		Message: fmt.Sprintf("no game instance found for identifier %q", gameID),
	}
}

func notAllowed(format string, args ...interface{}) *Fault {
	return &Fault{Code: CodeActionNotAllowed, Message: fmt.Sprintf(format, args...)}
}

// AsFault converts any error into a Fault. Unknown errors become
// UserEditFailed so no caller ever sees an uncoded failure.
func AsFault(err error) *Fault {
	if err == nil {
		return nil
	}
	var f *Fault
	if errors.As(err, &f) {
		return f
	}
	return &Fault{Code: CodeUserEditFailed, Message: "operation failed", Err: err}
}

// translate maps an error that came out of a room's Exclusive section.
func translate(gameID string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, room.ErrRoomClosed) {
		f := identifierError(gameID)
		f.Err = err
		return f
	}
	return AsFault(err)
}

// result is the metrics label for an operation outcome.
func result(err error) string {
	if err == nil {
		return "ok"
	}
	return string(AsFault(err).Code)
}
