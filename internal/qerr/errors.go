package qerr

import (
	"fmt"
)

// A TransportError is a connection error defined by RFC 9000.
type TransportError struct {
	Remote       bool
	FrameType    uint64
	ErrorCode    TransportErrorCode
	ErrorMessage string
}

var _ error = &TransportError{}

func (e *TransportError) Error() string {
	str := fmt.Sprintf("%s (%s)", e.ErrorCode.String(), getRole(e.Remote))
	if e.FrameType != 0 {
		str += fmt.Sprintf(" (frame type: %#x)", e.FrameType)
	}
	msg := e.ErrorMessage
	if len(msg) == 0 {
		return str
	}
	return str + ": " + msg
}

func (e *TransportError) Is(target error) bool {
	t, ok := target.(*TransportError)
	return ok && e.ErrorCode == t.ErrorCode
}

// CloseSource says which endpoint initiated the close.
type CloseSource uint8

const (
	CloseSourceSelf CloseSource = iota
	CloseSourceFromPeer
)

func (s CloseSource) String() string {
	if s == CloseSourceFromPeer {
		return "remote"
	}
	return "local"
}

// A ConnectionError is the terminal error of a connection.
type ConnectionError struct {
	Code    ErrorCode
	Details string
	Source  CloseSource
	// WireCode is the code carried in (or received in) the CONNECTION_CLOSE frame.
	WireCode TransportErrorCode
}

var _ error = &ConnectionError{}

// NewError creates a locally initiated connection error.
func NewError(code ErrorCode, details string) *ConnectionError {
	return &ConnectionError{Code: code, Details: details, WireCode: code.TransportErrorCode()}
}

// Errorf creates a locally initiated connection error with a formatted detail string.
func Errorf(code ErrorCode, format string, args ...any) *ConnectionError {
	return NewError(code, fmt.Sprintf(format, args...))
}

func (e *ConnectionError) Error() string {
	str := fmt.Sprintf("%s (%s)", e.Code.String(), e.Source)
	if e.Details == "" {
		return str
	}
	return str + ": " + e.Details
}

// Is matches connection errors with the same code.
func (e *ConnectionError) Is(target error) bool {
	switch t := target.(type) {
	case *ConnectionError:
		return e.Code == t.Code
	case ErrorCode:
		return e.Code == t
	}
	return false
}

func getRole(remote bool) string {
	if remote {
		return "remote"
	}
	return "local"
}
