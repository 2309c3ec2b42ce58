package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/glazeAuth/api"
	"github.com/MrEthical07/glazeAuth/autherr"
	"github.com/MrEthical07/glazeAuth/platform"
	"github.com/MrEthical07/glazeAuth/request"
	"github.com/MrEthical07/glazeAuth/session"
	"github.com/MrEthical07/glazeAuth/state"
	"go.uber.org/zap"
)

// AccountMetrics carries metric IDs needed by account flows.
type AccountMetrics struct {
	RefreshSuccess int
	RefreshFailure int
	BindSuccess    int
	BindFailure    int
}

// AccountEvents carries audit event names used by account flows.
type AccountEvents struct {
	Refresh string
	Bind    string
	Unbind  string
}

// AccountDeps captures bind, unbind, profile and refresh dependencies.
type AccountDeps struct {
	Store          SessionStore
	API            AuthAPI
	Provider       platform.ProviderHost
	Dispatch       func(state.Event)
	Validate       func(email, password string) error
	RequestOptions request.Options

	Metrics   AccountMetrics
	Events    AccountEvents
	IncMetric IncFunc
	Emit      EmitFunc
	Logger    *zap.Logger
}

var errNoRefreshToken = errors.New("no refresh token stored")

// RunBindProvider links the provider account using a fresh authorization code.
func RunBindProvider(ctx context.Context, deps AccountDeps) (*api.BindResponse, error) {
	if deps.Provider == nil {
		return nil, &autherr.PlatformError{Op: "bind", Err: errNoProvider}
	}
	code, err := deps.Provider.LoginCode(ctx)
	if err == nil && code == "" {
		err = errors.New("empty authorization code")
	}
	if err != nil {
		return nil, &autherr.PlatformError{Op: "bind", Err: err}
	}
	resp, err := deps.API.BindWx(ctx, code, deps.RequestOptions)
	return finishBind(ctx, deps.Events.Bind, api.BindTypeWx, resp, err, deps)
}

// RunBindEmail links an email credential after local validation.
func RunBindEmail(ctx context.Context, email, password string, deps AccountDeps) (*api.BindResponse, error) {
	if deps.Validate != nil {
		if err := deps.Validate(email, password); err != nil {
			return nil, err
		}
	}
	resp, err := deps.API.BindEmail(ctx, email, password, deps.RequestOptions)
	return finishBind(ctx, deps.Events.Bind, api.BindTypeEmail, resp, err, deps)
}

// RunUnbind removes a linked credential.
func RunUnbind(ctx context.Context, bindType string, deps AccountDeps) (*api.BindResponse, error) {
	resp, err := deps.API.Unbind(ctx, bindType, deps.RequestOptions)
	return finishBind(ctx, deps.Events.Unbind, bindType, resp, err, deps)
}

func finishBind(ctx context.Context, event, bindType string, resp *api.BindResponse, err error, deps AccountDeps) (*api.BindResponse, error) {
	rec := AuditRecord{EventType: event, Metadata: map[string]string{"type": bindType}}
	if u := deps.Store.User(ctx); u != nil {
		rec.UserID = u.UserID
	}
	if err != nil {
		inc(deps.IncMetric, deps.Metrics.BindFailure)
		rec.Err = err
		emit(ctx, deps.Emit, rec)
		return nil, err
	}
	if resp.User != nil {
		ApplyUser(ctx, *resp.User, deps.Store, deps.Dispatch)
	}
	inc(deps.IncMetric, deps.Metrics.BindSuccess)
	rec.Success = resp.Success
	emit(ctx, deps.Emit, rec)
	return resp, nil
}

// ApplyUser replaces the cached user and publishes the change. It is a no-op
// for the state machine when no user is signed in.
func ApplyUser(ctx context.Context, u session.User, store SessionStore, dispatchFn func(state.Event)) {
	if store.User(ctx) == nil {
		return
	}
	store.SetUser(ctx, u)
	dispatch(dispatchFn, state.UserReplaced{User: u})
}

// RunUpdateProfile merges patch into the cached user and publishes it. It
// returns nil when no user is cached.
func RunUpdateProfile(ctx context.Context, patch session.UserPatch, store SessionStore, dispatchFn func(state.Event)) *session.User {
	u, ok := store.UpdateUser(ctx, patch)
	if !ok {
		return nil
	}
	dispatch(dispatchFn, state.ProfileUpdated{Patch: patch})
	return u
}

// RunRefresh exchanges the stored refresh token for a new bearer token. It is
// only ever called explicitly.
func RunRefresh(ctx context.Context, deps AccountDeps) error {
	refresh := deps.Store.RefreshToken(ctx)
	if refresh == "" {
		inc(deps.IncMetric, deps.Metrics.RefreshFailure)
		return &autherr.ValidationError{Field: "refreshToken", Message: errNoRefreshToken.Error()}
	}
	resp, err := deps.API.RefreshToken(ctx, refresh, deps.RequestOptions)
	rec := AuditRecord{EventType: deps.Events.Refresh}
	user := deps.Store.User(ctx)
	if user != nil {
		rec.UserID = user.UserID
	}
	if err != nil {
		inc(deps.IncMetric, deps.Metrics.RefreshFailure)
		rec.Err = err
		emit(ctx, deps.Emit, rec)
		return err
	}

	next := resp.RefreshToken
	if next == "" {
		next = refresh
	}
	deps.Store.SetToken(ctx, resp.Token)
	deps.Store.SetRefreshToken(ctx, next)
	if user != nil {
		dispatch(deps.Dispatch, state.LoginSucceeded{Token: resp.Token, RefreshToken: next, User: *user})
	}
	inc(deps.IncMetric, deps.Metrics.RefreshSuccess)
	rec.Success = true
	emit(ctx, deps.Emit, rec)
	return nil
}
