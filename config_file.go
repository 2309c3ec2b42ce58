package glazeAuth

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config file keys.
const (
	keyServerBaseURL       = "server.base_url"
	keyServerTimeout       = "server.timeout"
	keyServerRateLimit     = "server.rate_limit"
	keyServerRateBurst     = "server.rate_burst"
	keySessionBackend      = "session.backend"
	keySessionFilePath     = "session.file_path"
	keySessionRedisAddr    = "session.redis_addr"
	keySessionRedisDB      = "session.redis_db"
	keySessionKeyPrefix    = "session.key_prefix"
	keySessionMaxAge       = "session.max_age"
	keyUILoginRoute        = "ui.login_route"
	keyUIBindRoute         = "ui.bind_route"
	keyUILoadingText       = "ui.loading_text"
	keyUIExpiredNotice     = "ui.expired_notice"
	keyUIRedirectDelay     = "ui.redirect_delay"
	keyUIBindOfferDelay    = "ui.bind_offer_delay"
	keyUILoginLoading      = "ui.login_loading"
	keyAuditEnabled        = "audit.enabled"
	keyAuditBufferSize     = "audit.buffer_size"
	keyAuditDropIfFull     = "audit.drop_if_full"
	keyMetricsEnabled      = "metrics.enabled"
	keyMetricsLatencyHisto = "metrics.latency_histograms"
	keyLogEnv              = "log.env"
	keyLogLevel            = "log.level"
)

type fileConfig struct {
	Server  fileServer  `mapstructure:"server" validate:"required"`
	Session fileSession `mapstructure:"session" validate:"required"`
	UI      fileUI      `mapstructure:"ui"`
	Audit   fileAudit   `mapstructure:"audit"`
	Metrics fileMetrics `mapstructure:"metrics"`
	Log     fileLog     `mapstructure:"log"`
}

type fileServer struct {
	BaseURL   string        `mapstructure:"base_url" validate:"required,url"`
	Timeout   time.Duration `mapstructure:"timeout" validate:"gt=0"`
	RateLimit float64       `mapstructure:"rate_limit" validate:"gte=0"`
	RateBurst int           `mapstructure:"rate_burst" validate:"gte=0"`
}

type fileSession struct {
	Backend   string        `mapstructure:"backend" validate:"required,oneof=memory file redis"`
	FilePath  string        `mapstructure:"file_path" validate:"required_if=Backend file"`
	RedisAddr string        `mapstructure:"redis_addr" validate:"required_if=Backend redis"`
	RedisDB   int           `mapstructure:"redis_db" validate:"gte=0"`
	KeyPrefix string        `mapstructure:"key_prefix"`
	MaxAge    time.Duration `mapstructure:"max_age" validate:"gt=0"`
}

type fileUI struct {
	LoginRoute     string        `mapstructure:"login_route" validate:"required,startswith=/"`
	BindRoute      string        `mapstructure:"bind_route" validate:"omitempty,startswith=/"`
	LoadingText    string        `mapstructure:"loading_text"`
	ExpiredNotice  string        `mapstructure:"expired_notice"`
	RedirectDelay  time.Duration `mapstructure:"redirect_delay" validate:"gte=0"`
	BindOfferDelay time.Duration `mapstructure:"bind_offer_delay" validate:"gte=0"`
	LoginLoading   bool          `mapstructure:"login_loading"`
}

type fileAudit struct {
	Enabled    bool `mapstructure:"enabled"`
	BufferSize int  `mapstructure:"buffer_size" validate:"gte=0"`
	DropIfFull bool `mapstructure:"drop_if_full"`
}

type fileMetrics struct {
	Enabled           bool `mapstructure:"enabled"`
	LatencyHistograms bool `mapstructure:"latency_histograms"`
}

type fileLog struct {
	Env   string `mapstructure:"env" validate:"required,oneof=prod dev"`
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
}

// envBindings maps config keys to environment variables.
func envBindings() map[string]string {
	return map[string]string{
		keyServerBaseURL:    "GLAZE_BASE_URL",
		keyServerTimeout:    "GLAZE_TIMEOUT",
		keySessionBackend:   "GLAZE_SESSION_BACKEND",
		keySessionFilePath:  "GLAZE_SESSION_FILE",
		keySessionRedisAddr: "GLAZE_REDIS_ADDR",
		keySessionRedisDB:   "GLAZE_REDIS_DB",
		keyLogEnv:           "GLAZE_LOG_ENV",
		keyLogLevel:         "GLAZE_LOG_LEVEL",
	}
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault(keyServerTimeout, d.Server.Timeout)
	v.SetDefault(keyServerRateLimit, d.Server.RateLimit)
	v.SetDefault(keyServerRateBurst, d.Server.RateBurst)
	v.SetDefault(keySessionBackend, d.Session.Backend)
	v.SetDefault(keySessionKeyPrefix, d.Session.KeyPrefix)
	v.SetDefault(keySessionMaxAge, d.Session.MaxAge)
	v.SetDefault(keyUILoginRoute, d.UI.LoginRoute)
	v.SetDefault(keyUIBindRoute, d.UI.BindRoute)
	v.SetDefault(keyUILoadingText, d.UI.LoadingText)
	v.SetDefault(keyUIExpiredNotice, d.UI.ExpiredNotice)
	v.SetDefault(keyUIRedirectDelay, d.UI.RedirectDelay)
	v.SetDefault(keyUIBindOfferDelay, d.UI.BindOfferDelay)
	v.SetDefault(keyUILoginLoading, d.UI.LoginLoading)
	v.SetDefault(keyAuditEnabled, d.Audit.Enabled)
	v.SetDefault(keyAuditBufferSize, d.Audit.BufferSize)
	v.SetDefault(keyAuditDropIfFull, d.Audit.DropIfFull)
	v.SetDefault(keyMetricsEnabled, d.Metrics.Enabled)
	v.SetDefault(keyMetricsLatencyHisto, d.Metrics.EnableLatencyHistograms)
	v.SetDefault(keyLogEnv, d.Log.Env)
	v.SetDefault(keyLogLevel, d.Log.Level)
}

// LoadConfig reads a YAML configuration file and GLAZE_* environment
// overrides on top of the defaults. An empty path reads the environment only.
// The result has passed both struct-tag validation and [Config.Validate].
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	setDefaults(v, defaultConfig())
	v.SetConfigType("yaml")

	for configKey, envVar := range envBindings() {
		if err := v.BindEnv(configKey, envVar); err != nil {
			return Config{}, fmt.Errorf("bind env %s: %w", envVar, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var fc fileConfig
	if err := v.Unmarshal(&fc); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(fc); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	cfg := fc.toConfig()
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return cfg, nil
}

func (fc fileConfig) toConfig() Config {
	return Config{
		Server: ServerConfig{
			BaseURL:   fc.Server.BaseURL,
			Timeout:   fc.Server.Timeout,
			RateLimit: fc.Server.RateLimit,
			RateBurst: fc.Server.RateBurst,
		},
		Session: SessionConfig{
			Backend:   fc.Session.Backend,
			FilePath:  fc.Session.FilePath,
			RedisAddr: fc.Session.RedisAddr,
			RedisDB:   fc.Session.RedisDB,
			KeyPrefix: fc.Session.KeyPrefix,
			MaxAge:    fc.Session.MaxAge,
		},
		UI: UIConfig{
			LoginRoute:     fc.UI.LoginRoute,
			BindRoute:      fc.UI.BindRoute,
			LoadingText:    fc.UI.LoadingText,
			ExpiredNotice:  fc.UI.ExpiredNotice,
			RedirectDelay:  fc.UI.RedirectDelay,
			BindOfferDelay: fc.UI.BindOfferDelay,
			LoginLoading:   fc.UI.LoginLoading,
		},
		Audit: AuditConfig{
			Enabled:    fc.Audit.Enabled,
			BufferSize: fc.Audit.BufferSize,
			DropIfFull: fc.Audit.DropIfFull,
		},
		Metrics: MetricsConfig{
			Enabled:                 fc.Metrics.Enabled,
			EnableLatencyHistograms: fc.Metrics.LatencyHistograms,
		},
		Log: LogConfig{
			Env:   fc.Log.Env,
			Level: fc.Log.Level,
		},
	}
}
