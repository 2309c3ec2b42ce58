package api

import (
	"context"

	"github.com/MrEthical07/glazeAuth/autherr"
	"github.com/MrEthical07/glazeAuth/request"
	"github.com/MrEthical07/glazeAuth/session"
)

// Endpoint paths.
const (
	PathLogin        = "/auth/login"
	PathRefreshToken = "/auth/refresh-token"
	PathLogout       = "/auth/logout"
	PathProfile      = "/auth/profile"
	PathBindWx       = "/auth/bind-wx"
	PathBindEmail    = "/auth/bind-email"
	PathUnbind       = "/auth/unbind"
)

// Doer executes one pipeline call. *request.Pipeline satisfies it.
type Doer interface {
	Do(ctx context.Context, req request.Request, out any, opts request.Options) error
}

// Auth issues auth endpoint calls.
type Auth struct {
	doer Doer
}

// NewAuth creates an [Auth] over doer.
func NewAuth(doer Doer) *Auth {
	return &Auth{doer: doer}
}

func (a *Auth) post(ctx context.Context, path string, body, out any, opts request.Options) error {
	return a.doer.Do(ctx, request.Request{Method: "POST", Path: path, Body: body}, out, opts)
}

// Login exchanges cred for a session. It is sent without any stored token.
// A response without token or user is reported as a business error.
func (a *Auth) Login(ctx context.Context, cred Credential, opts request.Options) (*LoginResponse, error) {
	if cred == nil {
		return nil, &autherr.ValidationError{Field: "credential", Message: "credential is required"}
	}
	opts.SkipAuth = true
	var resp LoginResponse
	if err := a.post(ctx, PathLogin, cred, &resp, opts); err != nil {
		return nil, err
	}
	if resp.Token == "" || resp.User.UserID == "" {
		return nil, &autherr.BusinessError{Code: request.CodeSuccess, Message: "login response incomplete"}
	}
	return &resp, nil
}

// RefreshToken exchanges a refresh token for a new bearer token.
func (a *Auth) RefreshToken(ctx context.Context, refreshToken string, opts request.Options) (*RefreshTokenResponse, error) {
	if refreshToken == "" {
		return nil, &autherr.ValidationError{Field: "refreshToken", Message: "refresh token is required"}
	}
	opts.SkipAuth = true
	var resp RefreshTokenResponse
	body := map[string]string{"refreshToken": refreshToken}
	if err := a.post(ctx, PathRefreshToken, body, &resp, opts); err != nil {
		return nil, err
	}
	if resp.Token == "" {
		return nil, &autherr.BusinessError{Code: request.CodeSuccess, Message: "refresh response incomplete"}
	}
	return &resp, nil
}

// Logout tells the server to end the session.
func (a *Auth) Logout(ctx context.Context, opts request.Options) error {
	return a.post(ctx, PathLogout, nil, nil, opts)
}

// Profile fetches the current user.
func (a *Auth) Profile(ctx context.Context, opts request.Options) (*session.User, error) {
	var u session.User
	if err := a.doer.Do(ctx, request.Request{Method: "GET", Path: PathProfile}, &u, opts); err != nil {
		return nil, err
	}
	return &u, nil
}

// BindWx links a provider account using a fresh authorization code.
func (a *Auth) BindWx(ctx context.Context, code string, opts request.Options) (*BindResponse, error) {
	if code == "" {
		return nil, &autherr.ValidationError{Field: "code", Message: "authorization code is required"}
	}
	var resp BindResponse
	if err := a.post(ctx, PathBindWx, map[string]string{"code": code}, &resp, opts); err != nil {
		return nil, err
	}
	return &resp, nil
}

// BindEmail links an email account.
func (a *Auth) BindEmail(ctx context.Context, email, password string, opts request.Options) (*BindResponse, error) {
	var resp BindResponse
	body := map[string]string{"email": email, "password": password}
	if err := a.post(ctx, PathBindEmail, body, &resp, opts); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Unbind removes the link of bindType ("wx" or "email").
func (a *Auth) Unbind(ctx context.Context, bindType string, opts request.Options) (*BindResponse, error) {
	if bindType != BindTypeWx && bindType != BindTypeEmail {
		return nil, &autherr.ValidationError{Field: "type", Message: "bind type must be wx or email"}
	}
	var resp BindResponse
	if err := a.post(ctx, PathUnbind, map[string]string{"type": bindType}, &resp, opts); err != nil {
		return nil, err
	}
	return &resp, nil
}
