package tapo

import (
	"errors"
	"fmt"
)

var ErrMissingCredentials = errors.New("tapo: ip, email and password are required")

var errorCodes = map[int]string{
	0:     "Success",
	-1010: "Invalid Public Key Length",
	-1012: "Invalid terminalUUID",
	-1501: "Invalid Request or Credentials",
	1002:  "Incorrect Request",
	-1003: "JSON formatting error",
	1003:  "Communication error",
	9999:  "Session timeout",
}

// Describe returns the message for a device error code. Codes the device
// may send but we do not know about still get a stable message.
func Describe(code int) string {
	if msg, ok := errorCodes[code]; ok {
		return msg
	}

	return fmt.Sprintf("unknown error code %d", code)
}

// TransportError means no interpretable response was received.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("tapo: %s: transport: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ProtocolError is a non-zero error_code reported by the device. Inner is
// set when the code came from the decrypted payload rather than the
// outer envelope.
type ProtocolError struct {
	Op      string
	Code    int
	Message string
	Inner   bool
}

func newProtocolError(op string, code int, inner bool) *ProtocolError {
	return &ProtocolError{Op: op, Code: code, Message: Describe(code), Inner: inner}
}

func (e *ProtocolError) Error() string {
	layer := "outer"
	if e.Inner {
		layer = "inner"
	}

	return fmt.Sprintf("tapo: %s: error code %d (%s): %s", e.Op, e.Code, layer, e.Message)
}

// CryptoError means a response that should have decoded with the current
// session state did not.
type CryptoError struct {
	Op  string
	Err error
}

func (e *CryptoError) Error() string {
	return fmt.Sprintf("tapo: %s: crypto: %v", e.Op, e.Err)
}

func (e *CryptoError) Unwrap() error {
	return e.Err
}

// StateError is returned when an operation is called in a lifecycle
// state where it has no meaning.
type StateError struct {
	Op    string
	State State
}

func (e *StateError) Error() string {
	return fmt.Sprintf("tapo: %s not allowed in state %s", e.Op, e.State)
}
