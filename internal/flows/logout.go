package flows

import (
	"context"

	"github.com/MrEthical07/glazeAuth/request"
	"github.com/MrEthical07/glazeAuth/state"
	"go.uber.org/zap"
)

// LogoutMetrics carries metric IDs needed by the logout flow.
type LogoutMetrics struct {
	Logout              int
	LogoutRemoteFailure int
}

// LogoutEvents carries audit event names used by the logout flow.
type LogoutEvents struct {
	Logout string
}

// LogoutDeps captures logout dependencies.
type LogoutDeps struct {
	Store      SessionStore
	API        AuthAPI
	Dispatch   func(state.Event)
	Navigate   func(route string)
	LoginRoute string

	Metrics   LogoutMetrics
	Events    LogoutEvents
	IncMetric IncFunc
	Emit      EmitFunc
	Logger    *zap.Logger
}

// LogoutResult reports the remote call outcome. Local logout always happens.
type LogoutResult struct {
	RemoteAttempted bool
	RemoteErr       error
}

// RunLogout ends the session. The remote call is always attempted, with or
// without a stored token, and its failure is logged, never returned. The
// store is cleared, the state reset and the login screen shown regardless.
func RunLogout(ctx context.Context, deps LogoutDeps) LogoutResult {
	var res LogoutResult
	var userID string
	if u := deps.Store.User(ctx); u != nil {
		userID = u.UserID
	}

	if deps.API != nil {
		res.RemoteAttempted = true
		res.RemoteErr = deps.API.Logout(ctx, request.Options{SuppressNotice: true, KeepSession: true})
		if res.RemoteErr != nil {
			inc(deps.IncMetric, deps.Metrics.LogoutRemoteFailure)
			logger(deps.Logger).Warn("remote logout failed", zap.Error(res.RemoteErr))
		}
	}

	if !deps.Store.ClearSession(context.WithoutCancel(ctx)) {
		logger(deps.Logger).Warn("session not fully cleared on logout")
	}
	dispatch(deps.Dispatch, state.Logout{})
	if deps.Navigate != nil {
		deps.Navigate(deps.LoginRoute)
	}

	inc(deps.IncMetric, deps.Metrics.Logout)
	emit(ctx, deps.Emit, AuditRecord{
		EventType: deps.Events.Logout,
		UserID:    userID,
		Success:   true,
		Err:       res.RemoteErr,
	})
	return res
}
