package protocol

import (
	"errors"
	"fmt"
)

const (
	// Request referenced an entity that does not exist.
	ErrNotFound = "E_NOT_FOUND"
	// Request was well formed but violates a business rule.
	ErrValidation = "E_VALIDATION"
	// Persistence read/write failed.
	ErrIO = "E_IO"
	// Username directory lookup failed (not a plain miss).
	ErrDirectory = "E_DIRECTORY"
	// Counterparty terminated before replying.
	ErrClosed = "E_CHANNEL_CLOSED"
	// Session adapter refused or failed an instruction.
	ErrSession = "E_SESSION"
)

var knownCodes = map[string]struct{}{
	ErrNotFound:   {},
	ErrValidation: {},
	ErrIO:         {},
	ErrDirectory:  {},
	ErrClosed:     {},
	ErrSession:    {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}

// Error is the failure value carried on reply channels.
type Error struct {
	Code string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return e.Msg + ": " + e.Err.Error()
	case e.Msg != "":
		return e.Msg
	case e.Err != nil:
		return e.Err.Error()
	}
	return e.Code
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by code so errors.Is(err, ErrChannelClosed) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code && t.Msg == "" && t.Err == nil
}

// ErrChannelClosed is returned to requesters when the store or adapter stopped without replying.
var ErrChannelClosed = &Error{Code: ErrClosed}

func NotFound(format string, args ...any) error {
	return &Error{Code: ErrNotFound, Msg: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) error {
	return &Error{Code: ErrValidation, Msg: fmt.Sprintf(format, args...)}
}

func IOFailure(msg string, err error) error {
	return &Error{Code: ErrIO, Msg: msg, Err: err}
}

func DirectoryFailure(name string, err error) error {
	return &Error{Code: ErrDirectory, Msg: "lookup " + name, Err: err}
}

func SessionFailure(msg string, err error) error {
	return &Error{Code: ErrSession, Msg: msg, Err: err}
}

// CodeOf returns the code of the first *Error in err's chain, or "" for nil and plain errors.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
