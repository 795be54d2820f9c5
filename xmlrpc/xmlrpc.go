// Package xmlrpc implements a codec between the value model of package
// model and the XML-RPC wire format. The Encoder produces complete
// method calls, responses, faults and system.multicall requests; the
// Decoder parses them back. Transport of the documents is out of scope.
package xmlrpc

import (
	"fmt"

	"github.com/mdzio/go-logging"
)

var codecLog = logging.Get("xmlrpc")

// EncodeError indicates a value that cannot be represented in the
// XML-RPC wire format. No partial output is produced.
type EncodeError struct {
	Message string
}

// Error implements the error interface.
func (e *EncodeError) Error() string {
	return fmt.Sprintf("XML-RPC encoding failed: %s", e.Message)
}

func encodeErrorf(format string, args ...interface{}) *EncodeError {
	return &EncodeError{Message: fmt.Sprintf(format, args...)}
}

// DecodeError indicates a malformed or unrecognized XML-RPC document.
type DecodeError struct {
	Message string
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("XML-RPC decoding failed: %s", e.Message)
}

func decodeErrorf(format string, args ...interface{}) *DecodeError {
	return &DecodeError{Message: fmt.Sprintf(format, args...)}
}

// MethodError encapsulates an XML-RPC fault response. A fault is data
// carried by a well-formed response, not a codec failure.
type MethodError struct {
	Code    int
	Message string
}

// Error implements the error interface.
func (f *MethodError) Error() string {
	return fmt.Sprintf("XML-RPC fault (code: %d, message: %s)", f.Code, f.Message)
}
