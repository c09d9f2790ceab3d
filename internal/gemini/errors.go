package gemini

import (
	"errors"
	"net/url"
)

// TransportError reports a request that never produced a response body:
// connection, TLS, timeout or read failures. Its message excludes the
// request URL so the credential never leaks into descriptions or logs.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func newTransportError(op string, err error) *TransportError {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return &TransportError{Op: urlErr.Op, Err: urlErr.Err}
	}
	return &TransportError{Op: op, Err: err}
}

// APIError is an error reported by the service in the response body.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}
