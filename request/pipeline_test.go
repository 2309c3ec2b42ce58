package request

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/glazeAuth/autherr"
	"github.com/MrEthical07/glazeAuth/internal/authtest"
	"github.com/MrEthical07/glazeAuth/platform"
	"github.com/MrEthical07/glazeAuth/session"
)

type pipelineHarness struct {
	srv     *authtest.Server
	store   *session.Store
	ui      *authtest.Presenter
	sched   *platform.ManualScheduler
	p       *Pipeline
	mu      sync.Mutex
	results []Result
	expired int
}

func newPipelineTest(t *testing.T, cfg Config) (*pipelineHarness, func()) {
	t.Helper()
	h := &pipelineHarness{
		srv: authtest.NewServer(authtest.Account{
			User:     session.User{ID: "1", UserID: "u_1", Email: "a@b.co"},
			Password: "secret1",
		}),
		store: session.NewStore(nil),
		ui:    &authtest.Presenter{},
	}
	h.sched = platform.NewManualScheduler(h.ui)
	cfg.BaseURL = h.srv.URL
	h.p = New(cfg, Deps{
		HTTPClient: h.srv.Client(),
		Session:    h.store,
		Presenter:  h.ui,
		Scheduler:  h.sched,
		Hooks: Hooks{
			OnSessionExpired: func(context.Context) {
				h.mu.Lock()
				h.expired++
				h.mu.Unlock()
			},
			OnResult: func(r Result) {
				h.mu.Lock()
				h.results = append(h.results, r)
				h.mu.Unlock()
			},
		},
	})
	return h, h.srv.Close
}

func (h *pipelineHarness) lastResult(t *testing.T) Result {
	t.Helper()
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.results) == 0 {
		t.Fatal("expected a reported result")
	}
	return h.results[len(h.results)-1]
}

func TestGetWithoutTokenSendsNoAuthorization(t *testing.T) {
	h, done := newPipelineTest(t, Config{})
	defer done()

	var out struct {
		Items []string `json:"items"`
		Cone  string   `json:"cone"`
	}
	h.srv.Override("/formulas", func(w http.ResponseWriter, r *http.Request) {
		authtest.WriteEnvelope(w, 200, "ok", map[string]any{"items": []string{"shino"}, "cone": r.URL.Query().Get("cone")})
	})
	if err := h.p.Get(context.Background(), "/formulas", url.Values{"cone": {"6"}}, &out, Options{}); err != nil {
		t.Fatalf("get: %v", err)
	}
	if out.Cone != "6" || len(out.Items) != 1 {
		t.Fatalf("unexpected payload %#v", out)
	}

	reqs := h.srv.Requests()
	if len(reqs) != 1 {
		t.Fatalf("expected 1 request, got %d", len(reqs))
	}
	hdr := reqs[0].Header
	if v := hdr.Get("Authorization"); v != "" {
		t.Fatalf("expected no Authorization header, got %q", v)
	}
	if v := hdr.Get("Content-Type"); v != "application/json" {
		t.Fatalf("expected JSON content type, got %q", v)
	}
	if hdr.Get("X-Request-ID") == "" {
		t.Fatal("expected request id header")
	}
	if len(reqs[0].Body) != 0 {
		t.Fatalf("expected GET without body, got %q", reqs[0].Body)
	}
}

func TestBearerInjectionAndSkipAuth(t *testing.T) {
	h, done := newPipelineTest(t, Config{})
	defer done()
	ctx := context.Background()

	token := h.srv.Issue("u_1")
	h.store.SaveSession(ctx, token, session.User{UserID: "u_1"}, "")

	if err := h.p.Get(ctx, "/formulas", nil, nil, Options{}); err != nil {
		t.Fatalf("authed get: %v", err)
	}
	if err := h.p.Post(ctx, "/auth/login", map[string]string{"type": "email"}, nil, Options{SkipAuth: true, SuppressNotice: true}); err == nil {
		t.Fatal("expected invalid credentials to fail")
	}

	reqs := h.srv.Requests()
	if got := reqs[0].Header.Get("Authorization"); got != "Bearer "+token {
		t.Fatalf("expected bearer token, got %q", got)
	}
	if got := reqs[1].Header.Get("Authorization"); got != "" {
		t.Fatalf("expected SkipAuth to omit token, got %q", got)
	}
}

func TestSessionExpiredEnvelope(t *testing.T) {
	for _, code := range []any{"401", 401, json.RawMessage(`401.0`), json.RawMessage(`4.01e2`)} {
		t.Run(jsonString(code), func(t *testing.T) {
			h, done := newPipelineTest(t, Config{ExpiredNotice: "expired!", LoginRoute: "/login"})
			defer done()
			ctx := context.Background()

			h.store.SaveSession(ctx, "T", session.User{UserID: "u_1"}, "R")
			h.srv.Override("/formulas", func(w http.ResponseWriter, _ *http.Request) {
				authtest.WriteEnvelope(w, code, "token expired", nil)
			})

			err := h.p.Get(ctx, "/formulas", nil, nil, Options{ShowLoading: true})
			if !autherr.IsSessionExpired(err) {
				t.Fatalf("expected session expired error, got %v", err)
			}
			if h.store.IsAuthenticated(ctx) || h.store.RefreshToken(ctx) != "" {
				t.Fatal("expected session cleared")
			}
			if toasts := h.ui.Toasts(); len(toasts) != 1 || toasts[0] != "expired!" {
				t.Fatalf("expected exactly one expiry notice, got %v", toasts)
			}
			if h.expired != 1 {
				t.Fatalf("expected expiry hook once, got %d", h.expired)
			}
			pending := h.sched.Pending()
			if len(pending) != 1 || pending[0].Delay != 1500*time.Millisecond || pending[0].Command.Route != "/login" {
				t.Fatalf("unexpected scheduled commands %#v", pending)
			}
			if len(h.ui.Routes()) != 0 {
				t.Fatal("expected navigation to wait for the delay")
			}
			h.sched.Flush()
			if routes := h.ui.Routes(); len(routes) != 1 || routes[0] != "/login" {
				t.Fatalf("expected redirect to login, got %v", routes)
			}
			if r := h.lastResult(t); r.Outcome != OutcomeSessionExpired {
				t.Fatalf("expected session expired outcome, got %q", r.Outcome)
			}
			if h.ui.LoadingVisible() {
				t.Fatal("expected loading released")
			}
		})
	}
}

func jsonString(v any) string {
	raw, _ := json.Marshal(v)
	return string(raw)
}

func TestBusinessErrorMessages(t *testing.T) {
	h, done := newPipelineTest(t, Config{})
	defer done()
	ctx := context.Background()

	h.srv.Override("/formulas", func(w http.ResponseWriter, _ *http.Request) {
		authtest.WriteEnvelope(w, 4001, "formula locked", nil)
	})
	err := h.p.Get(ctx, "/formulas", nil, nil, Options{ShowLoading: true, LoadingText: "wait"})
	var be *autherr.BusinessError
	if !errors.As(err, &be) || be.Code != "4001" || be.Message != "formula locked" {
		t.Fatalf("unexpected error %#v", err)
	}
	events := h.ui.Events()
	want := []string{"loading:wait", "hide", "toast:formula locked"}
	if strings.Join(events, "|") != strings.Join(want, "|") {
		t.Fatalf("expected %v, got %v", want, events)
	}

	h.srv.Override("/formulas", func(w http.ResponseWriter, _ *http.Request) {
		authtest.WriteEnvelope(w, "500", "", nil)
	})
	err = h.p.Get(ctx, "/formulas", nil, nil, Options{SuppressNotice: true})
	if autherr.Message(err) != autherr.MessageRequestFailed {
		t.Fatalf("expected fallback message, got %q", autherr.Message(err))
	}
	if n := len(h.ui.Toasts()); n != 1 {
		t.Fatalf("expected suppressed notice, got %d toasts", n)
	}
}

func TestNon2xxIsTransportError(t *testing.T) {
	h, done := newPipelineTest(t, Config{})
	defer done()

	h.srv.Override("/formulas", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	err := h.p.Get(context.Background(), "/formulas", nil, nil, Options{})
	var te *autherr.TransportError
	if !errors.As(err, &te) || te.Status != http.StatusBadGateway {
		t.Fatalf("expected transport error with status, got %#v", err)
	}
	if toasts := h.ui.Toasts(); len(toasts) != 1 || toasts[0] != "HTTP error: 502" {
		t.Fatalf("unexpected toasts %v", toasts)
	}
	if r := h.lastResult(t); r.Outcome != OutcomeHTTPStatus || r.Status != http.StatusBadGateway {
		t.Fatalf("unexpected result %#v", r)
	}
}

func TestTimeoutIsTransportError(t *testing.T) {
	h, done := newPipelineTest(t, Config{})
	defer done()

	h.srv.Override("/formulas", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	err := h.p.Get(context.Background(), "/formulas", nil, nil, Options{Timeout: 50 * time.Millisecond, ShowLoading: true})
	var te *autherr.TransportError
	if !errors.As(err, &te) || !te.Timeout {
		t.Fatalf("expected timeout transport error, got %#v", err)
	}
	if h.ui.LoadingVisible() {
		t.Fatal("expected loading released after timeout")
	}
	if toasts := h.ui.Toasts(); len(toasts) != 1 || toasts[0] != autherr.MessageNetwork {
		t.Fatalf("expected network notice, got %v", toasts)
	}
}

func TestUnsupportedMethodFailsBeforeIO(t *testing.T) {
	h, done := newPipelineTest(t, Config{})
	defer done()

	err := h.p.Do(context.Background(), Request{Method: http.MethodPatch, Path: "/formulas"}, nil, Options{SuppressNotice: true})
	if !autherr.IsTransport(err) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if n := len(h.srv.Requests()); n != 0 {
		t.Fatalf("expected no request, got %d", n)
	}
}

func TestRateLimiterBoundedByTimeout(t *testing.T) {
	h, done := newPipelineTest(t, Config{RateLimit: 0.1, RateBurst: 1})
	defer done()
	ctx := context.Background()
	token := h.srv.Issue("u_1")
	h.store.SaveSession(ctx, token, session.User{UserID: "u_1"}, "")

	if err := h.p.Get(ctx, "/formulas", nil, nil, Options{}); err != nil {
		t.Fatalf("first call: %v", err)
	}
	err := h.p.Get(ctx, "/formulas", nil, nil, Options{Timeout: 20 * time.Millisecond, SuppressNotice: true})
	if !autherr.IsTransport(err) {
		t.Fatalf("expected limiter to fail the second call, got %v", err)
	}
	if n := h.srv.Count("/formulas"); n != 1 {
		t.Fatalf("expected only one request on the wire, got %d", n)
	}
}

func TestCodeAcceptsStringAndNumber(t *testing.T) {
	for raw, want := range map[string]Code{
		`"200"`: "200", `200`: "200", `401`: "401", `"E1"`: "E1",
		`200.0`: "200", `2e2`: "200", `4.01E2`: "401", `200.5`: "200.5", `"200.0"`: "200.0",
	} {
		var c Code
		if err := json.Unmarshal([]byte(raw), &c); err != nil {
			t.Fatalf("unmarshal %s: %v", raw, err)
		}
		if c != want {
			t.Fatalf("unmarshal %s: expected %q, got %q", raw, want, c)
		}
	}
}

func TestKeepSessionSkipsExpiryReaction(t *testing.T) {
	h, done := newPipelineTest(t, Config{ExpiredNotice: "expired!", LoginRoute: "/login"})
	defer done()
	ctx := context.Background()

	h.store.SaveSession(ctx, "T", session.User{UserID: "u_1"}, "R")
	h.srv.Override("/formulas", func(w http.ResponseWriter, _ *http.Request) {
		authtest.WriteEnvelope(w, 401, "token expired", nil)
	})

	err := h.p.Get(ctx, "/formulas", nil, nil, Options{KeepSession: true, SuppressNotice: true})
	if !autherr.IsSessionExpired(err) {
		t.Fatalf("expected session expired error, got %v", err)
	}
	if h.store.Token(ctx) != "T" {
		t.Fatal("expected session kept")
	}
	if len(h.ui.Toasts()) != 0 || len(h.sched.Pending()) != 0 || h.expired != 0 {
		t.Fatalf("expected no expiry reaction, toasts=%v pending=%v hooks=%d", h.ui.Toasts(), h.sched.Pending(), h.expired)
	}
}
