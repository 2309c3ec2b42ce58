package request

import (
	"net/http"
	"net/url"
	"time"
)

// DefaultTimeout bounds a call when neither the call nor the pipeline sets one.
const DefaultTimeout = 30 * time.Second

// Request describes one server call. Query is sent as the URL query string;
// Body, when non-nil, is JSON-encoded. GET requests never carry a body.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
}

// Options are per-call flags.
type Options struct {
	Timeout        time.Duration
	SkipAuth       bool
	ShowLoading    bool
	LoadingText    string
	SuppressNotice bool
	// KeepSession returns a session-expired envelope as
	// *autherr.SessionExpiredError but skips the expiry reaction.
	KeepSession    bool
	Headers        http.Header
}

// Outcome classifies a finished call.
type Outcome string

const (
	OutcomeSuccess        Outcome = "success"
	OutcomeTransport      Outcome = "transport"
	OutcomeTimeout        Outcome = "timeout"
	OutcomeHTTPStatus     Outcome = "http_status"
	OutcomeBusiness       Outcome = "business"
	OutcomeSessionExpired Outcome = "session_expired"
)

// Result is reported to [Hooks.OnResult] once per call.
type Result struct {
	RequestID string
	Method    string
	Path      string
	Status    int
	Outcome   Outcome
	Elapsed   time.Duration
	Err       error
}
