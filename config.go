package glazeAuth

import (
	"errors"
	"net/url"
	"strings"
	"time"
)

// Config is the full client configuration.
//
// Config instances are intended to be configured during initialization and then treated as immutable.
type Config struct {
	Server  ServerConfig
	Session SessionConfig
	UI      UIConfig
	Audit   AuditConfig
	Metrics MetricsConfig
	Log     LogConfig
}

// ServerConfig describes the remote API the client talks to.
type ServerConfig struct {
	// BaseURL is prefixed to every endpoint path.
	BaseURL string
	// Timeout bounds each call that does not set its own.
	Timeout time.Duration
	// RateLimit caps outbound calls per second. Zero disables limiting.
	RateLimit float64
	RateBurst int
}

// Session backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
)

// SessionConfig selects and tunes session persistence.
type SessionConfig struct {
	// Backend is one of "memory", "file" or "redis". Ignored when the builder
	// receives an explicit backend.
	Backend   string
	FilePath  string
	RedisAddr string
	RedisDB   int
	KeyPrefix string
	// MaxAge is used by IsSessionExpired.
	MaxAge time.Duration
}

// UIConfig holds routes, texts and delays used when driving the presenter.
type UIConfig struct {
	LoginRoute     string
	// BindRoute is opened with ?type=<bind type> when the user accepts a
	// scheduled bind offer.
	BindRoute      string
	LoadingText    string
	ExpiredNotice  string
	RedirectDelay  time.Duration
	BindOfferDelay time.Duration
	// LoginLoading shows the loading indicator during login exchanges.
	LoginLoading bool
}

// AuditConfig controls audit dispatching.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process metrics.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// LogConfig selects the logger built by NewLogger.
type LogConfig struct {
	// Env is "prod" or "dev".
	Env   string
	Level string
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Timeout:   30 * time.Second,
			RateBurst: 1,
		},
		Session: SessionConfig{
			Backend:   BackendMemory,
			KeyPrefix: "glaze",
			MaxAge:    7 * 24 * time.Hour,
		},
		UI: UIConfig{
			LoginRoute:     "/pages/login/index",
			BindRoute:      "/pages/bind-account/index",
			LoadingText:    "Loading...",
			ExpiredNotice:  "Your session has expired, please sign in again",
			RedirectDelay:  1500 * time.Millisecond,
			BindOfferDelay: time.Second,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
		Log: LogConfig{
			Env:   "prod",
			Level: "info",
		},
	}
}

// DefaultConfig returns the configuration used when none is supplied.
func DefaultConfig() Config {
	return defaultConfig()
}

func cloneConfig(cfg Config) Config {
	return cfg
}

// Validate checks the configuration for values the client cannot run with.
func (c *Config) Validate() error {
	// Server
	if strings.TrimSpace(c.Server.BaseURL) == "" {
		return errors.New("Server BaseURL must be set")
	}
	u, err := url.Parse(c.Server.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("Server BaseURL must be an absolute http(s) URL")
	}
	if c.Server.Timeout <= 0 {
		return errors.New("Server Timeout must be > 0")
	}
	if c.Server.RateLimit < 0 {
		return errors.New("Server RateLimit must be >= 0")
	}
	if c.Server.RateLimit > 0 && c.Server.RateBurst < 1 {
		return errors.New("Server RateBurst must be >= 1 when RateLimit is set")
	}

	// Session
	switch c.Session.Backend {
	case BackendMemory:
	case BackendFile:
		if strings.TrimSpace(c.Session.FilePath) == "" {
			return errors.New("Session FilePath must be set for the file backend")
		}
	case BackendRedis:
		if strings.TrimSpace(c.Session.RedisAddr) == "" {
			return errors.New("Session RedisAddr must be set for the redis backend")
		}
		if c.Session.RedisDB < 0 {
			return errors.New("Session RedisDB must be >= 0")
		}
	default:
		return errors.New("Session Backend must be 'memory', 'file' or 'redis'")
	}
	if c.Session.MaxAge <= 0 {
		return errors.New("Session MaxAge must be > 0")
	}

	// UI
	if !strings.HasPrefix(c.UI.LoginRoute, "/") {
		return errors.New("UI LoginRoute must be an absolute route")
	}
	if c.UI.BindRoute != "" && !strings.HasPrefix(c.UI.BindRoute, "/") {
		return errors.New("UI BindRoute must be an absolute route")
	}
	if c.UI.RedirectDelay < 0 {
		return errors.New("UI RedirectDelay must be >= 0")
	}
	if c.UI.BindOfferDelay < 0 {
		return errors.New("UI BindOfferDelay must be >= 0")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	// Metrics
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	// Log
	if c.Log.Env != "prod" && c.Log.Env != "dev" {
		return errors.New("Log Env must be 'prod' or 'dev'")
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}

	return nil
}
