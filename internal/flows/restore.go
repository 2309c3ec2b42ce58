package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/glazeAuth/request"
	"github.com/MrEthical07/glazeAuth/session"
	"github.com/MrEthical07/glazeAuth/state"
	"go.uber.org/zap"
)

// RestoreMetrics carries metric IDs needed by restore flows.
type RestoreMetrics struct {
	Restored int
}

// RestoreDeps captures cold-start and token-check dependencies.
type RestoreDeps struct {
	Store          SessionStore
	API            AuthAPI
	Dispatch       func(state.Event)
	Now            func() time.Time
	RequestOptions request.Options

	Metrics   RestoreMetrics
	IncMetric IncFunc
	Logger    *zap.Logger
}

// RunRestore moves the state machine to LoggedIn from the cached session,
// without a network round trip. It reports whether a session was restored.
// Staleness is discovered later by the request pipeline.
func RunRestore(ctx context.Context, deps RestoreDeps) bool {
	token := deps.Store.Token(ctx)
	user := deps.Store.User(ctx)
	if token == "" || user == nil {
		return false
	}

	if info, err := session.InspectToken(token); err == nil {
		now := time.Now
		if deps.Now != nil {
			now = deps.Now
		}
		if info.Expired(now()) {
			logger(deps.Logger).Debug("cached token carries a past expiry",
				zap.String("user_id", user.UserID), zap.Time("expires_at", info.ExpiresAt))
		}
	}

	dispatch(deps.Dispatch, state.LoginSucceeded{
		Token:        token,
		RefreshToken: deps.Store.RefreshToken(ctx),
		User:         *user,
	})
	inc(deps.IncMetric, deps.Metrics.Restored)
	return true
}

var (
	errNoSession    = errors.New("no stored session")
	errEmptyProfile = errors.New("empty profile response")
)

// RunCheckLogin validates the stored token against the profile endpoint. On
// success the cached user is refreshed and nil returned. On failure the
// session is cleared and the cause returned; a server-reported expiry comes
// back as *autherr.SessionExpiredError.
func RunCheckLogin(ctx context.Context, deps RestoreDeps) error {
	token := deps.Store.Token(ctx)
	if token == "" {
		return errNoSession
	}

	user, err := deps.API.Profile(ctx, deps.RequestOptions)
	if err == nil && user == nil {
		err = errEmptyProfile
	}
	if err != nil {
		logger(deps.Logger).Info("stored session rejected", zap.Error(err))
		deps.Store.ClearSession(context.WithoutCancel(ctx))
		dispatch(deps.Dispatch, state.Logout{})
		return err
	}

	deps.Store.SetUser(ctx, *user)
	dispatch(deps.Dispatch, state.LoginSucceeded{
		Token:        token,
		RefreshToken: deps.Store.RefreshToken(ctx),
		User:         *user,
	})
	return nil
}
