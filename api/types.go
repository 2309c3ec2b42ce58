// Package api binds the auth endpoints of the glaze server to typed Go calls
// over the request pipeline.
package api

import (
	"encoding/json"

	"github.com/MrEthical07/glazeAuth/platform"
	"github.com/MrEthical07/glazeAuth/session"
)

// Bind types accepted by the server.
const (
	BindTypeWx    = "wx"
	BindTypeEmail = "email"
)

// Credential is the sealed union of login credentials.
type Credential interface {
	Type() string
	isCredential()
}

// ProviderCredential logs in with a one-time provider authorization code.
type ProviderCredential struct {
	Code     string
	UserInfo *platform.ProviderProfile
}

// Type returns "wx".
func (ProviderCredential) Type() string { return BindTypeWx }

func (ProviderCredential) isCredential() {}

// MarshalJSON encodes the login request body.
func (c ProviderCredential) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type     string                    `json:"type"`
		Code     string                    `json:"code"`
		UserInfo *platform.ProviderProfile `json:"userInfo,omitempty"`
	}{BindTypeWx, c.Code, c.UserInfo})
}

// EmailCredential logs in with an email and password.
type EmailCredential struct {
	Email    string
	Password string
}

// Type returns "email".
func (EmailCredential) Type() string { return BindTypeEmail }

func (EmailCredential) isCredential() {}

// MarshalJSON encodes the login request body.
func (c EmailCredential) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type     string `json:"type"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}{BindTypeEmail, c.Email, c.Password})
}

// LoginResponse is the payload of a successful login.
type LoginResponse struct {
	Token        string       `json:"token"`
	RefreshToken string       `json:"refreshToken,omitempty"`
	User         session.User `json:"user"`
	NeedBind     bool         `json:"needBind,omitempty"`
	BindType     string       `json:"bindType,omitempty"`
	ExpiresIn    int64        `json:"expiresIn,omitempty"`
}

// RefreshTokenResponse is the payload of a refresh exchange.
type RefreshTokenResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken,omitempty"`
	ExpiresIn    int64  `json:"expiresIn,omitempty"`
}

// BindResponse is the payload of a bind or unbind call.
type BindResponse struct {
	Success bool          `json:"success"`
	Message string        `json:"message,omitempty"`
	User    *session.User `json:"user,omitempty"`
}
