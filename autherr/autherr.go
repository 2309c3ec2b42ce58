// Package autherr defines the error kinds surfaced by the client. Every
// failure returned from a login flow or a pipeline call is exactly one of
// these, possibly wrapped.
package autherr

import (
	"errors"
	"fmt"
	"strconv"
)

// Default display messages.
const (
	MessageNetwork        = "network error"
	MessageRequestFailed  = "request failed"
	MessageSessionExpired = "session expired"
)

// ValidationError reports local input rejected before any network call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// PlatformError reports a failure of a host capability.
type PlatformError struct {
	Op  string
	Err error
}

func (e *PlatformError) Error() string {
	if e.Err == nil {
		return "platform " + e.Op + " failed"
	}
	return "platform " + e.Op + ": " + e.Err.Error()
}

func (e *PlatformError) Unwrap() error { return e.Err }

// TransportError reports a request that produced no usable response: a
// connection failure, a timeout, or a non-2xx HTTP status.
type TransportError struct {
	Method  string
	Path    string
	Status  int
	Timeout bool
	Err     error
}

func (e *TransportError) Error() string {
	switch {
	case e.Status != 0:
		return "HTTP error: " + strconv.Itoa(e.Status)
	case e.Timeout:
		return fmt.Sprintf("%s %s: request timed out", e.Method, e.Path)
	case e.Err != nil:
		return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
	default:
		return MessageNetwork
	}
}

func (e *TransportError) Unwrap() error { return e.Err }

// BusinessError reports a response envelope whose code is neither success
// nor session expiry.
type BusinessError struct {
	Code    string
	Message string
}

func (e *BusinessError) Error() string {
	if e.Message == "" {
		return MessageRequestFailed
	}
	return e.Message
}

// SessionExpiredError reports that the server invalidated the session. The
// local session has already been cleared when this is returned.
type SessionExpiredError struct {
	Message string
}

func (e *SessionExpiredError) Error() string {
	if e.Message == "" {
		return MessageSessionExpired
	}
	return e.Message
}

// IsValidation reports whether err is a [ValidationError].
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsPlatform reports whether err is a [PlatformError].
func IsPlatform(err error) bool {
	var target *PlatformError
	return errors.As(err, &target)
}

// IsTransport reports whether err is a [TransportError].
func IsTransport(err error) bool {
	var target *TransportError
	return errors.As(err, &target)
}

// IsBusiness reports whether err is a [BusinessError].
func IsBusiness(err error) bool {
	var target *BusinessError
	return errors.As(err, &target)
}

// IsSessionExpired reports whether err is a [SessionExpiredError].
func IsSessionExpired(err error) bool {
	var target *SessionExpiredError
	return errors.As(err, &target)
}

// Message returns the user-facing text for err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var (
		v *ValidationError
		b *BusinessError
		s *SessionExpiredError
		t *TransportError
	)
	switch {
	case errors.As(err, &v):
		return v.Message
	case errors.As(err, &b):
		return b.Error()
	case errors.As(err, &s):
		return s.Error()
	case errors.As(err, &t):
		if t.Status != 0 {
			return t.Error()
		}
		return MessageNetwork
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return MessageNetwork
}
