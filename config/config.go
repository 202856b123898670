package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Log        LogConfig        `toml:"log"`
	Server     ServerConfig     `toml:"server"`
	DB         DBConfig         `toml:"database"`
	Identity   IdentityConfig   `toml:"identity"`
	Captcha    CaptchaConfig    `toml:"captcha"`
	RateLimit  RateLimitConfig  `toml:"rate_limit"`
	Moderation ModerationConfig `toml:"moderation"`
	Audit      AuditConfig      `toml:"audit"`
}

type LogLevel string

const (
	DebugLevel LogLevel = "debug"
	InfoLevel  LogLevel = "info"
	WarnLevel  LogLevel = "warn"
	ErrorLevel LogLevel = "error"
)

func (l *LogLevel) UnmarshalText(text []byte) error {
	v := string(text)
	switch LogLevel(v) {
	case DebugLevel, InfoLevel, WarnLevel, ErrorLevel:
		*l = LogLevel(v)
		return nil
	default:
		return fmt.Errorf("invalid log.level: %q (must be debug, info, warn, error)", v)
	}
}

func (l LogLevel) String() string { return string(l) }

func (l LogLevel) ToSlogLevel() slog.Level {
	switch l {
	case DebugLevel:
		return slog.LevelDebug
	case WarnLevel:
		return slog.LevelWarn
	case ErrorLevel:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type LogConfig struct {
	Level LogLevel `toml:"level"`
	// RejectionLevels overrides the log level used when a named gate
	// rejects a submission, e.g. rate_limit = "info".
	RejectionLevels map[string]LogLevel `toml:"rejection_levels"`
}

type ServerConfig struct {
	ListenAddr      string        `toml:"listen_addr"`
	ReadTimeout     time.Duration `toml:"read_timeout"`
	WriteTimeout    time.Duration `toml:"write_timeout"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout"`
}

type DBConfig struct {
	Path string `toml:"path"`
	// SenderHourlyCap is the storage-level backstop: the maximum number of
	// messages a single hashed sender may insert per hour, enforced inside
	// the store independently of the in-process rate limiter. 0 disables it.
	SenderHourlyCap int `toml:"sender_hourly_cap"`
	// SeedRecipients are profile IDs registered at startup. The recipient
	// registry is normally synced from the account system; seeding exists
	// for development and staging.
	SeedRecipients []string `toml:"seed_recipients"`
}

type IdentityConfig struct {
	// HeaderOrder is the proxy-header precedence used to pick the client
	// address; the first non-empty header wins. Which headers can be
	// trusted depends on the deployment in front of this service, so the
	// order is deployment policy, not something the code infers.
	HeaderOrder []string `toml:"header_order"`
	HashSalt    string   `toml:"hash_salt"`
}

type CaptchaConfig struct {
	// Secret is the Turnstile shared secret. Falls back to the
	// TURNSTILE_SECRET_KEY environment variable when empty.
	Secret    string        `toml:"secret"`
	VerifyURL string        `toml:"verify_url"`
	Timeout   time.Duration `toml:"timeout"`
}

type RateLimitConfig struct {
	MaxRequests int           `toml:"max_requests"`
	Window      time.Duration `toml:"window"`
	GCInterval  time.Duration `toml:"gc_interval"`
	CacheSize   int           `toml:"cache_size"`
}

type ModerationConfig struct {
	Perspective PerspectiveConfig `toml:"perspective"`
}

type PerspectiveConfig struct {
	// APIKey falls back to the PERSPECTIVE_API_KEY environment variable
	// when empty. With no key at all the scorer reports unavailable and
	// only the local blocklist protects the inbox.
	APIKey   string        `toml:"api_key"`
	Endpoint string        `toml:"endpoint"`
	Timeout  time.Duration `toml:"timeout"`
	// QPS/Burst bound outgoing scorer calls; the free tier allows ~1 QPS.
	QPS   float64 `toml:"qps"`
	Burst int     `toml:"burst"`
	// DetectLanguage switches the request language from the fixed "en" to
	// the detected content language when the detector is confident.
	DetectLanguage bool               `toml:"detect_language"`
	Thresholds     map[string]float64 `toml:"thresholds"`
}

type AuditConfig struct {
	QueueSize   int           `toml:"queue_size"`
	MaxAttempts int           `toml:"max_attempts"`
	Retention   time.Duration `toml:"retention"`
}

// DefaultThresholds are the per-attribute Perspective block thresholds.
// If ANY attribute score meets or exceeds its threshold the message is blocked.
var DefaultThresholds = map[string]float64{
	"TOXICITY":        0.55,
	"SEVERE_TOXICITY": 0.60,
	"THREAT":          0.50,
	"INSULT":          0.55,
	"IDENTITY_ATTACK": 0.60,
	"PROFANITY":       0.70,
}

func defaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Level: InfoLevel,
		},
		Server: ServerConfig{
			ListenAddr:      ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		DB: DBConfig{
			Path:            "./gate-db",
			SenderHourlyCap: 20,
		},
		Identity: IdentityConfig{
			HeaderOrder: []string{"CF-Connecting-IP", "X-Forwarded-For", "X-Real-IP"},
			HashSalt:    "_whatupb_rate_limit",
		},
		Captcha: CaptchaConfig{
			VerifyURL: "https://challenges.cloudflare.com/turnstile/v0/siteverify",
			Timeout:   10 * time.Second,
		},
		RateLimit: RateLimitConfig{
			MaxRequests: 5,
			Window:      time.Minute,
			GCInterval:  time.Minute,
			CacheSize:   65536,
		},
		Moderation: ModerationConfig{
			Perspective: PerspectiveConfig{
				Endpoint:   "https://commentanalyzer.googleapis.com/v1alpha1/comments:analyze",
				Timeout:    8 * time.Second,
				QPS:        1.0,
				Burst:      1,
				Thresholds: maps.Clone(DefaultThresholds),
			},
		},
		Audit: AuditConfig{
			QueueSize:   256,
			MaxAttempts: 3,
			Retention:   30 * 24 * time.Hour,
		},
	}
}

func (c *Config) validate() error {
	// --- [server] ---
	if c.Server.ListenAddr == "" {
		return errors.New("server.listen_addr must not be empty")
	}
	if c.Server.ShutdownTimeout < 0 {
		return errors.New("server.shutdown_timeout must not be negative")
	}

	// --- [database] ---
	if c.DB.Path == "" {
		return errors.New("database.path must not be empty")
	}
	if c.DB.SenderHourlyCap < 0 {
		return errors.New("database.sender_hourly_cap must not be negative")
	}

	// --- [identity] ---
	if len(c.Identity.HeaderOrder) == 0 {
		return errors.New("identity.header_order must not be empty")
	}

	// --- [captcha] ---
	if c.Captcha.VerifyURL == "" {
		return errors.New("captcha.verify_url must not be empty")
	}
	if c.Captcha.Timeout <= 0 {
		return errors.New("captcha.timeout must be a positive duration")
	}

	// --- [rate_limit] ---
	rl := c.RateLimit
	if rl.MaxRequests <= 0 {
		return errors.New("rate_limit.max_requests must be > 0")
	}
	if rl.Window <= 0 {
		return errors.New("rate_limit.window must be a positive duration")
	}
	if rl.GCInterval <= 0 {
		return errors.New("rate_limit.gc_interval must be a positive duration")
	}
	if rl.CacheSize <= 0 {
		return errors.New("rate_limit.cache_size must be positive")
	}

	// --- [moderation.perspective] ---
	p := c.Moderation.Perspective
	if p.Endpoint == "" {
		return errors.New("moderation.perspective.endpoint must not be empty")
	}
	if p.Timeout <= 0 {
		return errors.New("moderation.perspective.timeout must be a positive duration")
	}
	if p.QPS <= 0 {
		return errors.New("moderation.perspective.qps must be > 0")
	}
	if p.Burst <= 0 {
		return errors.New("moderation.perspective.burst must be > 0")
	}
	if len(p.Thresholds) == 0 {
		return errors.New("moderation.perspective.thresholds must not be empty")
	}
	for attr, threshold := range p.Thresholds {
		if threshold < 0.0 || threshold > 1.0 {
			return fmt.Errorf("moderation.perspective.thresholds['%s'] is out of range [0.0, 1.0], got %f", attr, threshold)
		}
	}

	// --- [audit] ---
	if c.Audit.QueueSize <= 0 {
		return errors.New("audit.queue_size must be > 0")
	}
	if c.Audit.MaxAttempts <= 0 {
		return errors.New("audit.max_attempts must be > 0")
	}
	if c.Audit.Retention < 0 {
		return errors.New("audit.retention must not be negative")
	}

	return nil
}

// applyEnv fills secrets from the environment when the file left them empty.
func (c *Config) applyEnv() {
	if c.Captcha.Secret == "" {
		c.Captcha.Secret = os.Getenv("TURNSTILE_SECRET_KEY")
	}
	if c.Moderation.Perspective.APIKey == "" {
		c.Moderation.Perspective.APIKey = os.Getenv("PERSPECTIVE_API_KEY")
	}
}

func Load(path string, useDefaults bool) (*Config, bool, error) {
	cfg := defaultConfig()
	defaultsUsed := false

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			if useDefaults {
				defaultsUsed = true
				cfg.applyEnv()
				if err := cfg.validate(); err != nil {
					return nil, true, err
				}
				return cfg, defaultsUsed, nil
			}
			return nil, false, fmt.Errorf("config file not found at %s", path)
		}
		return nil, false, fmt.Errorf("failed to load config file %s: %w", path, err)
	}

	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return nil, false, err
	}
	return cfg, defaultsUsed, nil
}
