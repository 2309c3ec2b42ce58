package glazeAuth

import (
	"errors"

	"github.com/MrEthical07/glazeAuth/autherr"
)

var (
	// ErrInvalidConfig wraps configuration problems found by LoadConfig.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrBuilderUsed is returned by a second call to Builder.Build.
	ErrBuilderUsed = errors.New("builder already used")
	// ErrClientClosed is returned by calls made after Client.Close.
	ErrClientClosed = errors.New("client closed")
	// ErrNotLoggedIn is returned by calls that need a stored session.
	ErrNotLoggedIn = errors.New("not logged in")
)

// LoginError is the uniform failure of both login flows. Message is ready to
// show to the user; Err carries the underlying autherr kind.
type LoginError struct {
	Message string
	Err     error
}

func (e *LoginError) Error() string {
	if e.Message == "" {
		return "login failed"
	}
	return "login failed: " + e.Message
}

func (e *LoginError) Unwrap() error { return e.Err }

func newLoginError(err error) *LoginError {
	return &LoginError{Message: autherr.Message(err), Err: err}
}
