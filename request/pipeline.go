package request

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/MrEthical07/glazeAuth/autherr"
	"github.com/MrEthical07/glazeAuth/platform"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	headerAuthorization = "Authorization"
	headerContentType   = "Content-Type"
	headerRequestID     = "X-Request-ID"
	contentTypeJSON     = "application/json"

	maxResponseBytes = 4 << 20
)

// Session is the slice of the session store the pipeline needs.
type Session interface {
	Token(ctx context.Context) string
	ClearSession(ctx context.Context) bool
}

// Hooks receive pipeline events. Nil hooks are skipped.
type Hooks struct {
	// OnSessionExpired runs after the local session has been cleared because
	// the server answered with the session-expired code.
	OnSessionExpired func(ctx context.Context)
	// OnResult runs once per call after classification.
	OnResult func(Result)
}

// Config holds pipeline settings. Zero values take the documented defaults.
type Config struct {
	BaseURL       string
	Timeout       time.Duration
	LoadingText   string
	ExpiredNotice string
	LoginRoute    string
	RedirectDelay time.Duration
	// RateLimit caps outbound calls per second; zero disables limiting.
	RateLimit float64
	RateBurst int
}

// Deps are the collaborators of a [Pipeline].
type Deps struct {
	HTTPClient *http.Client
	Session    Session
	Presenter  platform.Presenter
	Scheduler  platform.Scheduler
	Logger     *zap.Logger
	Hooks      Hooks
}

// Pipeline executes server calls. It is safe for concurrent use.
type Pipeline struct {
	cfg     Config
	http    *http.Client
	session Session
	ui      platform.Presenter
	sched   platform.Scheduler
	logger  *zap.Logger
	hooks   Hooks
	limiter *rate.Limiter
}

// New creates a [Pipeline].
func New(cfg Config, deps Deps) *Pipeline {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.LoadingText == "" {
		cfg.LoadingText = "Loading..."
	}
	if cfg.ExpiredNotice == "" {
		cfg.ExpiredNotice = "Your session has expired, please sign in again"
	}
	if cfg.LoginRoute == "" {
		cfg.LoginRoute = "/pages/login/index"
	}
	if cfg.RedirectDelay <= 0 {
		cfg.RedirectDelay = 1500 * time.Millisecond
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	p := &Pipeline{
		cfg:     cfg,
		http:    deps.HTTPClient,
		session: deps.Session,
		ui:      deps.Presenter,
		sched:   deps.Scheduler,
		logger:  deps.Logger,
		hooks:   deps.Hooks,
	}
	if p.http == nil {
		p.http = &http.Client{}
	}
	if p.ui == nil {
		p.ui = platform.NopPresenter{}
	}
	if p.sched == nil {
		p.sched = platform.NewTimerScheduler(p.ui)
	}
	if p.logger == nil {
		p.logger = zap.NewNop()
	}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		p.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return p
}

// Get issues a GET with query parameters.
func (p *Pipeline) Get(ctx context.Context, path string, query map[string][]string, out any, opts Options) error {
	return p.Do(ctx, Request{Method: http.MethodGet, Path: path, Query: query}, out, opts)
}

// Post issues a POST with a JSON body.
func (p *Pipeline) Post(ctx context.Context, path string, body, out any, opts Options) error {
	return p.Do(ctx, Request{Method: http.MethodPost, Path: path, Body: body}, out, opts)
}

// Put issues a PUT with a JSON body.
func (p *Pipeline) Put(ctx context.Context, path string, body, out any, opts Options) error {
	return p.Do(ctx, Request{Method: http.MethodPut, Path: path, Body: body}, out, opts)
}

// Delete issues a DELETE with a JSON body.
func (p *Pipeline) Delete(ctx context.Context, path string, body, out any, opts Options) error {
	return p.Do(ctx, Request{Method: http.MethodDelete, Path: path, Body: body}, out, opts)
}

// Do executes req and decodes the envelope payload into out (which may be
// nil). The returned error is nil or one of the autherr kinds.
//
// The loading indicator, when requested, is hidden before any notice is
// shown. Failures other than session expiry are toasted unless
// Options.SuppressNotice is set; session expiry shows its own notice once.
func (p *Pipeline) Do(ctx context.Context, req Request, out any, opts Options) error {
	start := time.Now()
	reqID := uuid.NewString()
	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}

	if opts.ShowLoading {
		text := opts.LoadingText
		if text == "" {
			text = p.cfg.LoadingText
		}
		p.ui.ShowLoading(text)
	}

	status, outcome, err := p.execute(ctx, reqID, method, req, out, opts)

	if opts.ShowLoading {
		p.ui.HideLoading()
	}

	if outcome == OutcomeSessionExpired {
		if !opts.KeepSession {
			p.expire(ctx)
		}
	} else if err != nil {
		p.logger.Error("request failed",
			zap.String("request_id", reqID),
			zap.String("method", method),
			zap.String("path", req.Path),
			zap.String("outcome", string(outcome)),
			zap.Error(err),
		)
		if !opts.SuppressNotice {
			p.ui.Toast(autherr.Message(err))
		}
	}

	if p.hooks.OnResult != nil {
		p.hooks.OnResult(Result{
			RequestID: reqID,
			Method:    method,
			Path:      req.Path,
			Status:    status,
			Outcome:   outcome,
			Elapsed:   time.Since(start),
			Err:       err,
		})
	}
	return err
}

func (p *Pipeline) execute(ctx context.Context, reqID, method string, req Request, out any, opts Options) (int, Outcome, error) {
	switch method {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete:
	default:
		return 0, OutcomeTransport, &autherr.TransportError{
			Method: method, Path: req.Path, Err: fmt.Errorf("unsupported method %q", method),
		}
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = p.cfg.Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return 0, OutcomeTransport, &autherr.TransportError{Method: method, Path: req.Path, Err: err}
		}
	}

	httpReq, err := p.build(ctx, reqID, method, req, opts)
	if err != nil {
		return 0, OutcomeTransport, &autherr.TransportError{Method: method, Path: req.Path, Err: err}
	}

	resp, err := p.http.Do(httpReq)
	if err != nil {
		timedOut := isTimeout(err)
		outcome := OutcomeTransport
		if timedOut {
			outcome = OutcomeTimeout
		}
		return 0, outcome, &autherr.TransportError{Method: method, Path: req.Path, Timeout: timedOut, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return resp.StatusCode, OutcomeHTTPStatus, &autherr.TransportError{
			Method: method, Path: req.Path, Status: resp.StatusCode,
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		timedOut := isTimeout(err)
		outcome := OutcomeTransport
		if timedOut {
			outcome = OutcomeTimeout
		}
		return resp.StatusCode, outcome, &autherr.TransportError{Method: method, Path: req.Path, Timeout: timedOut, Err: err}
	}

	env, err := decodeEnvelope(body)
	if err != nil {
		p.logger.Warn("undecodable response envelope",
			zap.String("request_id", reqID), zap.String("path", req.Path), zap.Error(err))
		return resp.StatusCode, OutcomeBusiness, &autherr.BusinessError{}
	}

	switch string(env.Code) {
	case CodeSuccess:
		if out != nil && len(env.Data) > 0 && !bytes.Equal(env.Data, []byte("null")) {
			if err := json.Unmarshal(env.Data, out); err != nil {
				p.logger.Warn("undecodable response payload",
					zap.String("request_id", reqID), zap.String("path", req.Path), zap.Error(err))
				return resp.StatusCode, OutcomeBusiness, &autherr.BusinessError{Code: CodeSuccess}
			}
		}
		return resp.StatusCode, OutcomeSuccess, nil
	case CodeSessionExpired:
		return resp.StatusCode, OutcomeSessionExpired, &autherr.SessionExpiredError{}
	default:
		return resp.StatusCode, OutcomeBusiness, &autherr.BusinessError{Code: string(env.Code), Message: env.Message}
	}
}

func (p *Pipeline) build(ctx context.Context, reqID, method string, req Request, opts Options) (*http.Request, error) {
	target := p.cfg.BaseURL + req.Path
	if len(req.Query) > 0 {
		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		target += sep + req.Query.Encode()
	}

	var body io.Reader
	if method != http.MethodGet && req.Body != nil {
		raw, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encode body: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	for k, vs := range opts.Headers {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	httpReq.Header.Set(headerContentType, contentTypeJSON)
	httpReq.Header.Set(headerRequestID, reqID)
	if !opts.SkipAuth && p.session != nil {
		if token := p.session.Token(ctx); token != "" {
			httpReq.Header.Set(headerAuthorization, "Bearer "+token)
		}
	}
	return httpReq, nil
}

// expire runs the session-expiry reaction. It is detached from the caller's
// cancellation so an abandoned call still leaves a consistent session.
func (p *Pipeline) expire(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	if p.session != nil && !p.session.ClearSession(ctx) {
		p.logger.Warn("session clear after expiry was incomplete")
	}
	p.ui.Toast(p.cfg.ExpiredNotice)
	if p.hooks.OnSessionExpired != nil {
		p.hooks.OnSessionExpired(ctx)
	}
	p.sched.Schedule(p.cfg.RedirectDelay, platform.Command{Kind: platform.CommandNavigate, Route: p.cfg.LoginRoute})
	p.logger.Info("session expired by server")
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
