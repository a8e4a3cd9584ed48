package vm

import (
	"fmt"

	"github.com/iotaledger/hive.go/ierrors"
)

// CodedError is a rejection that carries the numeric exit code a script terminates with.
type CodedError struct {
	code    int8
	message string
}

// NewCodedError creates a new sentinel with the given exit code.
func NewCodedError(code int8, message string) *CodedError {
	return &CodedError{code: code, message: message}
}

func (c *CodedError) Error() string {
	return c.message
}

// ExitCode returns the exit code of the error.
func (c *CodedError) ExitCode() int8 {
	return c.code
}

// Errors raised by the Context when a query cannot be answered.
var (
	ErrIndexOutOfBound  = NewCodedError(1, "index out of bound")
	ErrItemMissing      = NewCodedError(2, "item missing")
	ErrLengthNotEnough  = NewCodedError(3, "length not enough")
	ErrEncoding         = NewCodedError(4, "encoding error")
	ErrProgramNotFound  = ierrors.New("no program registered for code hash")
	ErrUnknownExitState = ierrors.New("script failed without exit code")
)

// ExitCode extracts the exit code from an error chain. A nil error exits with 0 and an error without
// a CodedError in its chain exits with -1.
func ExitCode(err error) int8 {
	if err == nil {
		return 0
	}

	var codedErr *CodedError
	if ierrors.As(err, &codedErr) {
		return codedErr.ExitCode()
	}

	return -1
}

// ScriptError is returned by the Verifier when a script group rejects a transaction.
type ScriptError struct {
	Group *ScriptGroup
	Err   error
}

func (s *ScriptError) Error() string {
	return fmt.Sprintf("ValidationFailure(%d) by %s: %s", ExitCode(s.Err), s.Group, s.Err)
}

func (s *ScriptError) Unwrap() error {
	return s.Err
}
