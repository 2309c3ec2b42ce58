// Package state holds the in-memory authentication state shared with the UI
// and the pure transition function that evolves it.
package state

import (
	"github.com/MrEthical07/glazeAuth/session"
)

// LoginStatus is the coarse authentication status.
type LoginStatus string

const (
	NotLoggedIn  LoginStatus = "NOT_LOGGED_IN"
	LoggedIn     LoginStatus = "LOGGED_IN"
	TokenExpired LoginStatus = "TOKEN_EXPIRED"
	NeedRelogin  LoginStatus = "NEED_RELOGIN"
)

// State is a snapshot of the authentication state. UserInfo is never shared
// between snapshots. TokenExpired and NeedRelogin gate the UI like
// NotLoggedIn and exist for diagnostics; no event produces them.
type State struct {
	LoginStatus  LoginStatus   `json:"loginStatus"`
	UserInfo     *session.User `json:"userInfo"`
	Token        string        `json:"token,omitempty"`
	RefreshToken string        `json:"refreshToken,omitempty"`
	Loading      bool          `json:"loading"`
	Error        string        `json:"error,omitempty"`
}

// Initial returns the logged-out state.
func Initial() State {
	return State{LoginStatus: NotLoggedIn}
}

func (s State) clone() State {
	if s.UserInfo != nil {
		u := *s.UserInfo
		s.UserInfo = &u
	}
	return s
}

// Event is a state transition request. The set of events is closed.
type Event interface {
	event()
}

// LoginRequested marks the start of a login attempt.
type LoginRequested struct{}

// LoginSucceeded carries a freshly issued session.
type LoginSucceeded struct {
	Token        string
	RefreshToken string
	User         session.User
}

// LoginFailed carries the display message of a failed login.
type LoginFailed struct {
	Message string
}

// Logout ends the session locally.
type Logout struct{}

// ProfileUpdated merges a partial profile into the current user.
type ProfileUpdated struct {
	Patch session.UserPatch
}

// UserReplaced swaps the whole current user, identity fields included. It is
// ignored when nobody is signed in.
type UserReplaced struct {
	User session.User
}

// SessionCleared reports that the server invalidated the session. It resets
// the state like [Logout].
type SessionCleared struct{}

func (LoginRequested) event() {}
func (LoginSucceeded) event() {}
func (LoginFailed) event()    {}
func (Logout) event()         {}
func (ProfileUpdated) event() {}
func (UserReplaced) event()   {}
func (SessionCleared) event() {}

// Reduce returns the state that follows s after e. It does not modify s.
func Reduce(s State, e Event) State {
	next := s.clone()
	switch ev := e.(type) {
	case LoginRequested:
		next.Loading = true
		next.Error = ""
	case LoginSucceeded:
		u := ev.User
		next = State{
			LoginStatus:  LoggedIn,
			UserInfo:     &u,
			Token:        ev.Token,
			RefreshToken: ev.RefreshToken,
		}
	case LoginFailed:
		next.Loading = false
		next.Error = ev.Message
		next.LoginStatus = NotLoggedIn
	case Logout, SessionCleared:
		next = Initial()
	case ProfileUpdated:
		if next.UserInfo != nil {
			merged := next.UserInfo.Apply(ev.Patch)
			next.UserInfo = &merged
		}
	case UserReplaced:
		if next.UserInfo != nil {
			u := ev.User
			next.UserInfo = &u
		}
	}
	return next
}

// Authenticated reports whether the UI should treat the user as signed in.
func (s State) Authenticated() bool {
	return s.LoginStatus == LoggedIn
}
