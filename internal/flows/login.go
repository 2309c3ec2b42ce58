package flows

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/MrEthical07/glazeAuth/api"
	"github.com/MrEthical07/glazeAuth/autherr"
	"github.com/MrEthical07/glazeAuth/platform"
	"github.com/MrEthical07/glazeAuth/request"
	"github.com/MrEthical07/glazeAuth/state"
	"go.uber.org/zap"
)

// LoginMetrics carries metric IDs needed by login flows. Negative IDs are skipped.
type LoginMetrics struct {
	LoginSuccess       int
	LoginFailure       int
	BindOfferScheduled int
}

// LoginEvents carries audit event names used by login flows.
type LoginEvents struct {
	LoginSuccess string
	LoginFailure string
}

// LoginDeps captures login dependencies.
type LoginDeps struct {
	Store               SessionStore
	API                 AuthAPI
	Provider            platform.ProviderHost
	CanUseProviderLogin func() bool
	Schedule            func(time.Duration, platform.Command) platform.Handle
	Dispatch            func(state.Event)
	Validate            func(email, password string) error
	BindOfferDelay      time.Duration
	// BindRoute is the page an accepted bind offer opens, with the credential
	// type appended as ?type=.
	BindRoute           string
	RequestOptions      request.Options

	Metrics   LoginMetrics
	Events    LoginEvents
	IncMetric IncFunc
	Emit      EmitFunc
	Logger    *zap.Logger
}

// LoginResult is the flow-local login outcome.
type LoginResult struct {
	Response  *api.LoginResponse
	BindType  string
	BindOffer platform.Handle
}

var errNoProvider = errors.New("provider host not configured")

// RunProviderLogin performs provider login: obtain a one-time code from the
// host, ask for the optional profile, exchange both with the server, persist
// the session, and schedule an email-bind offer when the server asks for one.
func RunProviderLogin(ctx context.Context, deps LoginDeps) (*LoginResult, error) {
	dispatch(deps.Dispatch, state.LoginRequested{})

	if deps.Provider == nil {
		return nil, failLogin(ctx, "wx", &autherr.PlatformError{Op: "login", Err: errNoProvider}, deps)
	}
	code, err := deps.Provider.LoginCode(ctx)
	if err == nil && code == "" {
		err = errors.New("empty authorization code")
	}
	if err != nil {
		return nil, failLogin(ctx, "wx", &autherr.PlatformError{Op: "login", Err: err}, deps)
	}

	profile, err := deps.Provider.Profile(ctx)
	if err != nil {
		logger(deps.Logger).Debug("provider profile not released", zap.Error(err))
		profile = nil
	}

	resp, err := deps.API.Login(ctx, api.ProviderCredential{Code: code, UserInfo: profile}, deps.RequestOptions)
	if err != nil {
		return nil, failLogin(ctx, "wx", err, deps)
	}

	res := completeLogin(ctx, "wx", resp, deps)
	if resp.NeedBind && resp.BindType == api.BindTypeEmail {
		res.BindType = api.BindTypeEmail
		res.BindOffer = scheduleBindOffer(api.BindTypeEmail, deps)
	}
	return res, nil
}

// RunCredentialLogin performs email login. Invalid input fails with a
// *autherr.ValidationError before any network call. After success, a
// provider-bind offer is scheduled when the account has no provider link and
// provider login is available here.
func RunCredentialLogin(ctx context.Context, email, password string, deps LoginDeps) (*LoginResult, error) {
	dispatch(deps.Dispatch, state.LoginRequested{})

	email = strings.TrimSpace(email)
	if deps.Validate != nil {
		if err := deps.Validate(email, password); err != nil {
			return nil, failLogin(ctx, "email", err, deps)
		}
	}

	resp, err := deps.API.Login(ctx, api.EmailCredential{Email: email, Password: password}, deps.RequestOptions)
	if err != nil {
		return nil, failLogin(ctx, "email", err, deps)
	}

	res := completeLogin(ctx, "email", resp, deps)
	if !resp.User.HasWxBind && deps.CanUseProviderLogin != nil && deps.CanUseProviderLogin() {
		res.BindType = api.BindTypeWx
		res.BindOffer = scheduleBindOffer(api.BindTypeWx, deps)
	}
	return res, nil
}

func completeLogin(ctx context.Context, method string, resp *api.LoginResponse, deps LoginDeps) *LoginResult {
	if !deps.Store.SaveSession(ctx, resp.Token, resp.User, resp.RefreshToken) {
		logger(deps.Logger).Warn("session not fully persisted after login",
			zap.String("user_id", resp.User.UserID))
	}
	dispatch(deps.Dispatch, state.LoginSucceeded{
		Token:        resp.Token,
		RefreshToken: resp.RefreshToken,
		User:         resp.User,
	})
	inc(deps.IncMetric, deps.Metrics.LoginSuccess)
	emit(ctx, deps.Emit, AuditRecord{
		EventType: deps.Events.LoginSuccess,
		UserID:    resp.User.UserID,
		Success:   true,
		Metadata:  map[string]string{"method": method},
	})
	return &LoginResult{Response: resp}
}

func failLogin(ctx context.Context, method string, err error, deps LoginDeps) error {
	dispatch(deps.Dispatch, state.LoginFailed{Message: autherr.Message(err)})
	if autherr.IsValidation(err) {
		return err
	}
	inc(deps.IncMetric, deps.Metrics.LoginFailure)
	logger(deps.Logger).Warn("login failed", zap.String("method", method), zap.Error(err))
	emit(ctx, deps.Emit, AuditRecord{
		EventType: deps.Events.LoginFailure,
		Success:   false,
		Err:       err,
		Metadata:  map[string]string{"method": method},
	})
	return err
}

func scheduleBindOffer(bindType string, deps LoginDeps) platform.Handle {
	if deps.Schedule == nil {
		return nil
	}
	inc(deps.IncMetric, deps.Metrics.BindOfferScheduled)
	cmd := platform.Command{Kind: platform.CommandOfferBind, BindType: bindType}
	if deps.BindRoute != "" {
		cmd.Route = deps.BindRoute + "?type=" + url.QueryEscape(bindType)
	}
	return deps.Schedule(deps.BindOfferDelay, cmd)
}

func dispatch(fn func(state.Event), e state.Event) {
	if fn != nil {
		fn(e)
	}
}

func logger(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
