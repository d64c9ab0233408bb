package huskoll

import "fmt"

// ResponseError is the domain-level error class: the server answered
// with a well-formed payload that signals a failure (an explicit
// `error` field, a nak, or an unrecognised acknowledgment).  Transport
// and JSON decode failures are NOT wrapped in a ResponseError; they
// propagate as-is so callers can tell the two classes apart.
type ResponseError struct {
	Message string
}

func (e *ResponseError) Error() string {
	return e.Message
}

func newResponseErrorf(format string, args ...interface{}) *ResponseError {
	return &ResponseError{Message: fmt.Sprintf(format, args...)}
}
