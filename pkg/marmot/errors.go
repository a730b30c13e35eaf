package marmot

import "fmt"

// Code classifies adapter and engine failures.
type Code int

const (
	// CodeInvalidInput is a caller-supplied argument violating a stated
	// constraint.
	CodeInvalidInput Code = iota + 1
	// CodeInvalidHex is a hex string of the wrong length or charset.
	CodeInvalidHex
	// CodeStorage is a failure in the underlying storage.
	CodeStorage
	// CodeProtocol is a decoded payload violating an MLS protocol rule.
	CodeProtocol
	// CodeCancelled means the operation's context was cancelled before or
	// during execution.
	CodeCancelled
)

var codeNames = map[Code]string{
	CodeInvalidInput: "invalid input",
	CodeInvalidHex:   "invalid hex",
	CodeStorage:      "storage error",
	CodeProtocol:     "protocol error",
	CodeCancelled:    "cancelled",
}

// Error carries a Code alongside the message so callers can branch on the
// family without parsing strings.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", codeNames[e.Code], e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", codeNames[e.Code], e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches errors of the same code so errors.Is can branch on the
// family.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

func errf(code Code, format string, a ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, a...)}
}

func wrapErr(code Code, msg string, err error) *Error {
	return &Error{Code: code, Message: msg, Err: err}
}
