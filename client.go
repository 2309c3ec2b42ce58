package glazeAuth

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/glazeAuth/api"
	"github.com/MrEthical07/glazeAuth/autherr"
	"github.com/MrEthical07/glazeAuth/internal/audit"
	"github.com/MrEthical07/glazeAuth/internal/flows"
	"github.com/MrEthical07/glazeAuth/platform"
	"github.com/MrEthical07/glazeAuth/request"
	"github.com/MrEthical07/glazeAuth/session"
	"github.com/MrEthical07/glazeAuth/state"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Client is the session and request layer of the glaze app. It owns the
// session store, the request pipeline and the session state machine, and
// runs the login, logout and restore flows over them.
//
// Client methods are safe to call from multiple goroutines after [Builder.Build].
type Client struct {
	config    Config
	store     *session.Store
	machine   *state.Machine
	resolver  *platform.Resolver
	pipeline  *request.Pipeline
	auth      *api.Auth
	flows     flows.Service
	presenter platform.Presenter
	scheduler platform.Scheduler
	audit     *audit.Dispatcher
	metrics   *Metrics
	logger    *zap.Logger

	ownedRedis *redis.Client
	closed     atomic.Bool
	closeOnce  sync.Once
}

type clientDeps struct {
	backend    session.Backend
	provider   platform.ProviderHost
	presenter  platform.Presenter
	probe      platform.Probe
	scheduler  platform.Scheduler
	logger     *zap.Logger
	auditSink  AuditSink
	httpClient *http.Client
	clock      func() time.Time
}

// LoginResult describes a completed login.
type LoginResult struct {
	Token        string
	RefreshToken string
	User         session.User
	// NeedBind and BindType echo the server's request to link a credential.
	NeedBind bool
	BindType string
	// OfferedBind is the credential type of the scheduled bind offer, empty
	// when none was scheduled. BindOffer cancels it.
	OfferedBind string
	BindOffer   platform.Handle
}

func newClient(cfg Config, deps clientDeps) *Client {
	c := &Client{
		config:    cfg,
		machine:   state.NewMachine(),
		resolver:  platform.NewResolver(deps.probe),
		presenter: deps.presenter,
		scheduler: deps.scheduler,
		metrics:   NewMetrics(cfg.Metrics),
		logger:    deps.logger,
	}
	if c.presenter == nil {
		c.presenter = platform.NopPresenter{}
	}
	if c.scheduler == nil {
		c.scheduler = platform.NewTimerScheduler(c.presenter)
	}

	c.store = session.NewStore(deps.backend,
		session.WithLogger(c.logger.Named("session")),
		session.WithClock(deps.clock),
	)
	c.audit = audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
		Now:        deps.clock,
		Platform:   func() string { return string(c.resolver.CurrentPlatform()) },
	}, deps.auditSink)

	c.pipeline = request.New(request.Config{
		BaseURL:       cfg.Server.BaseURL,
		Timeout:       cfg.Server.Timeout,
		LoadingText:   cfg.UI.LoadingText,
		ExpiredNotice: cfg.UI.ExpiredNotice,
		LoginRoute:    cfg.UI.LoginRoute,
		RedirectDelay: cfg.UI.RedirectDelay,
		RateLimit:     cfg.Server.RateLimit,
		RateBurst:     cfg.Server.RateBurst,
	}, request.Deps{
		HTTPClient: deps.httpClient,
		Session:    c.store,
		Presenter:  c.presenter,
		Scheduler:  c.scheduler,
		Logger:     c.logger.Named("request"),
		Hooks: request.Hooks{
			OnSessionExpired: c.onSessionExpired,
			OnResult:         c.onResult,
		},
	})
	c.auth = api.NewAuth(c.pipeline)

	validate := flows.NewCredentialValidator().Validate
	flowLogger := c.logger.Named("auth")
	loginOpts := request.Options{ShowLoading: cfg.UI.LoginLoading}

	c.flows = flows.New(flows.Deps{
		Login: flows.LoginDeps{
			Store:               c.store,
			API:                 c.auth,
			Provider:            deps.provider,
			CanUseProviderLogin: c.resolver.CanUseProviderLogin,
			Schedule:            c.scheduler.Schedule,
			Dispatch:            c.dispatch,
			Validate:            validate,
			BindOfferDelay:      cfg.UI.BindOfferDelay,
			BindRoute:           cfg.UI.BindRoute,
			RequestOptions:      loginOpts,
			Metrics: flows.LoginMetrics{
				LoginSuccess:       int(MetricLoginSuccess),
				LoginFailure:       int(MetricLoginFailure),
				BindOfferScheduled: int(MetricBindOfferScheduled),
			},
			Events: flows.LoginEvents{
				LoginSuccess: AuditLoginSuccess,
				LoginFailure: AuditLoginFailure,
			},
			IncMetric: c.incMetric,
			Emit:      c.emitFlowRecord,
			Logger:    flowLogger,
		},
		Logout: flows.LogoutDeps{
			Store:      c.store,
			API:        c.auth,
			Dispatch:   c.dispatch,
			Navigate:   c.presenter.Navigate,
			LoginRoute: cfg.UI.LoginRoute,
			Metrics: flows.LogoutMetrics{
				Logout:              int(MetricLogout),
				LogoutRemoteFailure: int(MetricLogoutRemoteFailure),
			},
			Events:    flows.LogoutEvents{Logout: AuditLogout},
			IncMetric: c.incMetric,
			Emit:      c.emitFlowRecord,
			Logger:    flowLogger,
		},
		Restore: flows.RestoreDeps{
			Store:          c.store,
			API:            c.auth,
			Dispatch:       c.dispatch,
			Now:            deps.clock,
			RequestOptions: request.Options{SuppressNotice: true},
			Metrics:        flows.RestoreMetrics{Restored: int(MetricSessionRestored)},
			IncMetric:      c.incMetric,
			Logger:         flowLogger,
		},
		Account: flows.AccountDeps{
			Store:    c.store,
			API:      c.auth,
			Provider: deps.provider,
			Dispatch: c.dispatch,
			Validate: validate,
			Metrics: flows.AccountMetrics{
				RefreshSuccess: int(MetricRefreshSuccess),
				RefreshFailure: int(MetricRefreshFailure),
				BindSuccess:    int(MetricBindSuccess),
				BindFailure:    int(MetricBindFailure),
			},
			Events: flows.AccountEvents{
				Refresh: AuditRefresh,
				Bind:    AuditBind,
				Unbind:  AuditUnbind,
			},
			IncMetric: c.incMetric,
			Emit:      c.emitFlowRecord,
			Logger:    flowLogger,
		},
	})

	return c
}

// Close stops the audit dispatcher after draining it and closes a Redis
// connection the builder opened. Calls made after Close fail with
// [ErrClientClosed]. Close is idempotent.
func (c *Client) Close() {
	if c == nil {
		return
	}
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		if c.audit != nil {
			c.audit.Close()
		}
		if c.ownedRedis != nil {
			if err := c.ownedRedis.Close(); err != nil {
				c.logger.Warn("redis close failed", zap.Error(err))
			}
		}
	})
}

// AuditDropped returns how many audit events were dropped because the buffer
// was full.
func (c *Client) AuditDropped() uint64 {
	if c == nil || c.audit == nil {
		return 0
	}
	return c.audit.Dropped()
}

// MetricsSnapshot returns a copy of the in-process metrics.
func (c *Client) MetricsSnapshot() MetricsSnapshot {
	if c == nil || c.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return c.metrics.Snapshot()
}

// Config returns the configuration the client was built with.
func (c *Client) Config() Config {
	return cloneConfig(c.config)
}

// LoginWithProvider runs provider login. Any failure, including a host that
// refuses to issue a code, is returned as a *LoginError and leaves the stored
// session untouched. When the server asks for an email link, an offer is
// scheduled after Config.UI.BindOfferDelay.
func (c *Client) LoginWithProvider(ctx context.Context) (*LoginResult, error) {
	if c.closed.Load() {
		return nil, ErrClientClosed
	}
	res, err := c.flows.ProviderLogin(ctx)
	if err != nil {
		return nil, newLoginError(err)
	}
	return toLoginResult(res), nil
}

// LoginWithEmail runs credential login. Invalid input fails locally with a
// *LoginError wrapping *autherr.ValidationError and makes no server call.
// When the account has no provider link and provider login is available, an
// offer to link one is scheduled.
func (c *Client) LoginWithEmail(ctx context.Context, email, password string) (*LoginResult, error) {
	if c.closed.Load() {
		return nil, ErrClientClosed
	}
	res, err := c.flows.CredentialLogin(ctx, email, password)
	if err != nil {
		return nil, newLoginError(err)
	}
	return toLoginResult(res), nil
}

func toLoginResult(res *flows.LoginResult) *LoginResult {
	out := &LoginResult{
		Token:        res.Response.Token,
		RefreshToken: res.Response.RefreshToken,
		User:         res.Response.User,
		NeedBind:     res.Response.NeedBind,
		BindType:     res.Response.BindType,
		OfferedBind:  res.BindType,
		BindOffer:    res.BindOffer,
	}
	return out
}

// Logout ends the session. It never fails: the server is told best-effort,
// then the store is cleared, the state reset and the login screen shown.
func (c *Client) Logout(ctx context.Context) {
	res := c.flows.Logout(ctx)
	if res.RemoteErr != nil {
		c.logger.Debug("logout completed locally", zap.Error(res.RemoteErr))
	}
}

// Restore rebuilds the logged-in state from the stored session without a
// server call. It reports whether a session was found.
func (c *Client) Restore(ctx context.Context) bool {
	return c.flows.Restore(ctx)
}

// CheckLogin asks the server whether the stored token is still valid. A valid
// token refreshes the cached user; anything else clears the session.
func (c *Client) CheckLogin(ctx context.Context) bool {
	return c.checkLogin(ctx) == nil
}

func (c *Client) checkLogin(ctx context.Context) error {
	if c.closed.Load() {
		return ErrClientClosed
	}
	return c.flows.CheckLogin(ctx)
}

// RequireLogin runs CheckLogin and shows the login screen when it fails. When
// the server reported the session expired, the delayed redirect scheduled by
// the request pipeline is left to do the navigation.
func (c *Client) RequireLogin(ctx context.Context) bool {
	err := c.checkLogin(ctx)
	if err == nil {
		return true
	}
	if !autherr.IsSessionExpired(err) {
		c.presenter.Navigate(c.config.UI.LoginRoute)
	}
	return false
}

// CurrentUser returns the cached user, or nil.
func (c *Client) CurrentUser(ctx context.Context) *session.User {
	return c.store.User(ctx)
}

// UpdateProfile merges patch into the cached user. It fails with
// [ErrNotLoggedIn] when no user is cached.
func (c *Client) UpdateProfile(ctx context.Context, patch session.UserPatch) (*session.User, error) {
	u := flows.RunUpdateProfile(ctx, patch, c.store, c.dispatch)
	if u == nil {
		return nil, ErrNotLoggedIn
	}
	return u, nil
}

// IsSessionExpired reports whether the stored login is older than
// Config.Session.MaxAge, or missing.
func (c *Client) IsSessionExpired(ctx context.Context) bool {
	return c.store.IsExpired(ctx, c.config.Session.MaxAge)
}

// RefreshSession exchanges the stored refresh token for a new token. It is
// never called automatically.
func (c *Client) RefreshSession(ctx context.Context) error {
	if c.closed.Load() {
		return ErrClientClosed
	}
	return c.flows.Refresh(ctx)
}

// BindProvider links the provider account of this device to the signed-in user.
func (c *Client) BindProvider(ctx context.Context) (*api.BindResponse, error) {
	if c.closed.Load() {
		return nil, ErrClientClosed
	}
	return c.flows.BindProvider(ctx)
}

// BindEmail links an email credential to the signed-in user.
func (c *Client) BindEmail(ctx context.Context, email, password string) (*api.BindResponse, error) {
	if c.closed.Load() {
		return nil, ErrClientClosed
	}
	return c.flows.BindEmail(ctx, email, password)
}

// Unbind removes a linked credential, "wx" or "email".
func (c *Client) Unbind(ctx context.Context, bindType string) (*api.BindResponse, error) {
	if c.closed.Load() {
		return nil, ErrClientClosed
	}
	return c.flows.Unbind(ctx, bindType)
}

// Request performs an application call through the pipeline, with the
// stored token attached unless opts.SkipAuth is set.
func (c *Client) Request(ctx context.Context, req request.Request, out any, opts request.Options) error {
	if c.closed.Load() {
		return ErrClientClosed
	}
	return c.pipeline.Do(ctx, req, out, opts)
}

// State returns the current session state.
func (c *Client) State() state.State {
	return c.machine.State()
}

// Subscribe registers l for state changes and returns its cancel func. l runs
// on the goroutine that changed the state and must not call back into
// operations that change it.
func (c *Client) Subscribe(l state.Listener) func() {
	return c.machine.Subscribe(l)
}

// CanUseProviderLogin reports whether provider login is available here.
func (c *Client) CanUseProviderLogin() bool {
	return c.resolver.CanUseProviderLogin()
}

// CurrentPlatform returns the detected host platform.
func (c *Client) CurrentPlatform() platform.Platform {
	return c.resolver.CurrentPlatform()
}

// SessionKeys lists the keys currently held by the session backend.
func (c *Client) SessionKeys(ctx context.Context) []string {
	return c.store.Keys(ctx)
}

func (c *Client) dispatch(e state.Event) {
	c.machine.Dispatch(e)
}

func (c *Client) incMetric(id int) {
	c.metrics.Inc(MetricID(id))
}

func (c *Client) onSessionExpired(ctx context.Context) {
	c.machine.Dispatch(state.SessionCleared{})
	c.metrics.Inc(MetricSessionExpired)
	c.emitAudit(ctx, AuditEvent{EventType: AuditSessionExpired, Success: true})
}

func (c *Client) onResult(r request.Result) {
	c.metrics.Observe(MetricRequestLatency, r.Elapsed)

	switch r.Outcome {
	case request.OutcomeSuccess:
		c.metrics.Inc(MetricRequestSuccess)
		return
	case request.OutcomeTransport, request.OutcomeHTTPStatus:
		c.metrics.Inc(MetricRequestTransportError)
	case request.OutcomeTimeout:
		c.metrics.Inc(MetricRequestTimeout)
	case request.OutcomeBusiness:
		c.metrics.Inc(MetricRequestBusinessError)
	case request.OutcomeSessionExpired:
		return
	}

	event := AuditEvent{
		EventType: AuditRequestFailure,
		RequestID: r.RequestID,
		Metadata: map[string]string{
			"method":  r.Method,
			"path":    r.Path,
			"outcome": string(r.Outcome),
		},
	}
	if r.Status != 0 {
		event.Metadata["status"] = strconv.Itoa(r.Status)
	}
	if r.Err != nil {
		event.Error = r.Err.Error()
	}
	c.emitAudit(context.Background(), event)
}
