package glazeAuth

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/MrEthical07/glazeAuth/platform"
	"github.com/MrEthical07/glazeAuth/session"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Builder assembles a [Client]. It is the composition root: every
// collaborator is injected here and nowhere else.
//
// Builder instances are not safe for concurrent use and build exactly once.
type Builder struct {
	config Config

	backend    session.Backend
	redis      redis.UniversalClient
	provider   platform.ProviderHost
	presenter  platform.Presenter
	probe      platform.Probe
	scheduler  platform.Scheduler
	logger     *zap.Logger
	auditSink  AuditSink
	httpClient *http.Client
	clock      func() time.Time

	built bool
}

// New returns a Builder holding [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithBaseURL sets Config.Server.BaseURL.
func (b *Builder) WithBaseURL(baseURL string) *Builder {
	b.config.Server.BaseURL = baseURL
	return b
}

// WithBackend injects the session backend, overriding Config.Session.Backend.
func (b *Builder) WithBackend(backend session.Backend) *Builder {
	b.backend = backend
	return b
}

// WithRedis injects the Redis client used when Config.Session.Backend is
// "redis". Without it, Build dials Config.Session.RedisAddr and the client
// closes that connection on Close.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithProviderHost injects the host that issues provider authorization codes.
func (b *Builder) WithProviderHost(host platform.ProviderHost) *Builder {
	b.provider = host
	return b
}

// WithPresenter injects the UI side-effect sink.
func (b *Builder) WithPresenter(p platform.Presenter) *Builder {
	b.presenter = p
	return b
}

// WithProbe injects the host capability probe.
func (b *Builder) WithProbe(p platform.Probe) *Builder {
	b.probe = p
	return b
}

// WithScheduler injects the scheduler for deferred navigation and bind
// offers. The default runs commands on timers against the presenter.
func (b *Builder) WithScheduler(s platform.Scheduler) *Builder {
	b.scheduler = s
	return b
}

// WithLogger injects the logger. The default discards everything.
func (b *Builder) WithLogger(l *zap.Logger) *Builder {
	b.logger = l
	return b
}

// WithAuditSink injects the audit sink and enables auditing.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	b.config.Audit.Enabled = sink != nil
	return b
}

// WithHTTPClient injects the HTTP client used by the request pipeline.
func (b *Builder) WithHTTPClient(c *http.Client) *Builder {
	b.httpClient = c
	return b
}

// WithClock injects the time source used for session age checks.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.clock = now
	return b
}

// WithMetricsEnabled toggles in-process metrics.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the request latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the client. It performs no
// network I/O except pinging a Redis server it dialled itself.
func (b *Builder) Build() (*Client, error) {
	if b.built {
		return nil, ErrBuilderUsed
	}

	cfg := cloneConfig(b.config)
	if b.backend != nil {
		// injected backend wins
		cfg.Session.Backend = BackendMemory
	}
	if rc, ok := b.redis.(*redis.Client); ok && cfg.Session.RedisAddr == "" {
		cfg.Session.RedisAddr = rc.Options().Addr
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	backend, owned, err := b.openBackend(cfg)
	if err != nil {
		return nil, err
	}

	c := newClient(cfg, clientDeps{
		backend:    backend,
		provider:   b.provider,
		presenter:  b.presenter,
		probe:      b.probe,
		scheduler:  b.scheduler,
		logger:     logger,
		auditSink:  b.auditSink,
		httpClient: b.httpClient,
		clock:      b.clock,
	})
	c.ownedRedis = owned

	b.built = true

	return c, nil
}

func (b *Builder) openBackend(cfg Config) (session.Backend, *redis.Client, error) {
	if b.backend != nil {
		return b.backend, nil, nil
	}

	switch cfg.Session.Backend {
	case BackendFile:
		return session.NewFileBackend(cfg.Session.FilePath), nil, nil
	case BackendRedis:
		if b.redis != nil {
			return session.NewRedisBackend(b.redis, cfg.Session.KeyPrefix), nil, nil
		}
		client := redis.NewClient(&redis.Options{
			Addr: cfg.Session.RedisAddr,
			DB:   cfg.Session.RedisDB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.Timeout)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("%w: %v", session.ErrBackendUnavailable, err)
		}
		return session.NewRedisBackend(client, cfg.Session.KeyPrefix), client, nil
	default:
		return session.NewMemoryBackend(), nil, nil
	}
}
