package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Config represents the runtime configuration of the notifier service.
type Config struct {
	Server        ServerConfig       `mapstructure:"server"`
	Database      DatabaseConfig     `mapstructure:"database"`
	Cache         CacheConfig        `mapstructure:"cache"`
	Auth          AuthConfig         `mapstructure:"auth"`
	Email         EmailConfig        `mapstructure:"email"`
	Push          PushConfig         `mapstructure:"push"`
	Realtime      RealtimeConfig     `mapstructure:"realtime"`
	Notifications NotificationConfig `mapstructure:"notifications"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	LogLevel        string        `mapstructure:"log_level"`
	LogFormat       string        `mapstructure:"log_format"`
	InternalAPIKey  string        `mapstructure:"internal_api_key"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	RateLimit       int           `mapstructure:"rate_limit"`
	RateWindow      time.Duration `mapstructure:"rate_window"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig describes the connection to the notification store.
type DatabaseConfig struct {
	Driver          string            `mapstructure:"driver"`
	Path            string            `mapstructure:"path"`
	DSN             string            `mapstructure:"dsn"`
	Host            string            `mapstructure:"host"`
	Port            int               `mapstructure:"port"`
	User            string            `mapstructure:"user"`
	Password        string            `mapstructure:"password"`
	Name            string            `mapstructure:"name"`
	Options         map[string]string `mapstructure:"options"`
	MaxOpenConns    int               `mapstructure:"max_open_conns"`
	MaxIdleConns    int               `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration     `mapstructure:"conn_max_lifetime"`
}

// CacheConfig describes cache backends.
type CacheConfig struct {
	Redis RedisCacheConfig `mapstructure:"redis"`
}

// RedisCacheConfig holds Redis connection options.
type RedisCacheConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	URL           string        `mapstructure:"url"`
	Timeout       time.Duration `mapstructure:"timeout"`
	RetryAttempts int           `mapstructure:"retry_attempts"`
	RetryInterval time.Duration `mapstructure:"retry_interval"`
}

// AuthConfig captures how bearer tokens are verified.
type AuthConfig struct {
	JWT JWTSettings `mapstructure:"jwt"`
}

// JWTSettings configures access token verification.
type JWTSettings struct {
	Secret   string        `mapstructure:"secret"`
	Issuer   string        `mapstructure:"issuer"`
	Audience string        `mapstructure:"audience"`
	TTL      time.Duration `mapstructure:"access_token_ttl"`
	Leeway   time.Duration `mapstructure:"leeway"`
}

// EmailConfig captures outbound email settings.
type EmailConfig struct {
	Provider string         `mapstructure:"provider"`
	From     string         `mapstructure:"from"`
	ReplyTo  string         `mapstructure:"reply_to"`
	SMTP     SMTPConfig     `mapstructure:"smtp"`
	Postmark PostmarkConfig `mapstructure:"postmark"`
}

// SMTPConfig defines SMTP dialer settings for sending email.
type SMTPConfig struct {
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	UseTLS   bool          `mapstructure:"use_tls"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// PostmarkConfig holds Postmark API tokens.
type PostmarkConfig struct {
	ServerToken  string `mapstructure:"server_token"`
	AccountToken string `mapstructure:"account_token"`
	TrackOpens   bool   `mapstructure:"track_opens"`
}

// PushConfig holds the firebase service account used for push delivery.
type PushConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	ProjectID       string `mapstructure:"project_id"`
	CredentialsFile string `mapstructure:"credentials_file"`
	CredentialsJSON string `mapstructure:"credentials_json"`
	ClientEmail     string `mapstructure:"client_email"`
	PrivateKey      string `mapstructure:"private_key"`
	PrivateKeyID    string `mapstructure:"private_key_id"`
	ClientID        string `mapstructure:"client_id"`
}

// RealtimeConfig controls cross-instance realtime delivery.
type RealtimeConfig struct {
	RedisFanout bool   `mapstructure:"redis_fanout"`
	Channel     string `mapstructure:"channel"`
}

// NotificationConfig tunes the delivery engine and inbox endpoints.
type NotificationConfig struct {
	SpamWindow           time.Duration `mapstructure:"spam_window"`
	ChannelTimeout       time.Duration `mapstructure:"channel_timeout"`
	FrontendURL          string        `mapstructure:"frontend_url"`
	DefaultListLimit     int           `mapstructure:"default_list_limit"`
	MaxListLimit         int           `mapstructure:"max_list_limit"`
	ArchiveRateLimit     int           `mapstructure:"archive_rate_limit"`
	ArchiveRateWindow    time.Duration `mapstructure:"archive_rate_window"`
	ReconcileSchedule    string        `mapstructure:"reconcile_schedule"`
	CacheCleanupSchedule string        `mapstructure:"cache_cleanup_schedule"`
}

// LoadConfig reads config/config.yaml (or config.yaml in any of paths) and
// overlays NOTIFIER_* environment variables on top of the defaults.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.NewWithOptions(viper.ExperimentalBindStruct())
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("./config")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	v.SetEnvPrefix("NOTIFIER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgErr) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config, decodeHook()); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate rejects configurations the service cannot start with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Auth.JWT.Secret) == "" {
		return errors.New("config: auth.jwt.secret is required")
	}

	switch strings.ToLower(c.Database.Driver) {
	case "sqlite", "postgres", "mysql":
	default:
		return fmt.Errorf("config: unsupported database driver %q", c.Database.Driver)
	}

	switch strings.ToLower(strings.TrimSpace(c.Email.Provider)) {
	case "", "none", "smtp", "postmark":
	default:
		return fmt.Errorf("config: unsupported email provider %q", c.Email.Provider)
	}

	if c.Realtime.RedisFanout && !c.Cache.Redis.Enabled {
		return errors.New("config: realtime.redis_fanout requires cache.redis.enabled")
	}
	if c.Notifications.MaxListLimit < c.Notifications.DefaultListLimit {
		return errors.New("config: notifications.max_list_limit must not be below default_list_limit")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.log_format", "json")
	v.SetDefault("server.internal_api_key", "")
	v.SetDefault("server.allowed_origins", []string{})
	v.SetDefault("server.rate_limit", 120)
	v.SetDefault("server.rate_window", "1m")
	v.SetDefault("server.shutdown_timeout", "15s")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/notifier.sqlite")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")

	v.SetDefault("cache.redis.enabled", false)
	v.SetDefault("cache.redis.url", "redis://127.0.0.1:6379/0")
	v.SetDefault("cache.redis.timeout", "5s")
	v.SetDefault("cache.redis.retry_attempts", 5)
	v.SetDefault("cache.redis.retry_interval", "1s")

	v.SetDefault("auth.jwt.secret", "")
	v.SetDefault("auth.jwt.issuer", "")
	v.SetDefault("auth.jwt.audience", "")
	v.SetDefault("auth.jwt.access_token_ttl", "15m")
	v.SetDefault("auth.jwt.leeway", "30s")

	v.SetDefault("email.provider", "none")
	v.SetDefault("email.from", "")
	v.SetDefault("email.reply_to", "")
	v.SetDefault("email.smtp.host", "")
	v.SetDefault("email.smtp.port", 587)
	v.SetDefault("email.smtp.username", "")
	v.SetDefault("email.smtp.password", "")
	v.SetDefault("email.smtp.use_tls", true)
	v.SetDefault("email.smtp.timeout", "10s")
	v.SetDefault("email.postmark.server_token", "")
	v.SetDefault("email.postmark.account_token", "")
	v.SetDefault("email.postmark.track_opens", false)

	v.SetDefault("push.enabled", false)
	v.SetDefault("push.project_id", "")
	v.SetDefault("push.credentials_file", "")
	v.SetDefault("push.credentials_json", "")
	v.SetDefault("push.client_email", "")
	v.SetDefault("push.private_key", "")
	v.SetDefault("push.private_key_id", "")
	v.SetDefault("push.client_id", "")

	v.SetDefault("realtime.redis_fanout", false)
	v.SetDefault("realtime.channel", "notifier:realtime")

	v.SetDefault("notifications.spam_window", "5m")
	v.SetDefault("notifications.channel_timeout", "10s")
	v.SetDefault("notifications.frontend_url", "http://localhost:3000")
	v.SetDefault("notifications.default_list_limit", 20)
	v.SetDefault("notifications.max_list_limit", 100)
	v.SetDefault("notifications.archive_rate_limit", 2)
	v.SetDefault("notifications.archive_rate_window", "1m")
	v.SetDefault("notifications.reconcile_schedule", "@every 1h")
	v.SetDefault("notifications.cache_cleanup_schedule", "@every 10m")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
