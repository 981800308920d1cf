package app

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/notifier/pkg/mail"
)

func TestLoadConfigFromFile(t *testing.T) {
	cfg, err := LoadConfig("testdata")
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "debug", cfg.Server.LogLevel)
	require.Equal(t, "internal-secret", cfg.Server.InternalAPIKey)
	require.Equal(t, []string{"app.example.com", "admin.example.com"}, cfg.Server.AllowedOrigins)
	require.Equal(t, 30*time.Second, cfg.Server.RateWindow)
	require.Equal(t, 120, cfg.Server.RateLimit)

	require.Equal(t, "postgres", cfg.Database.Driver)
	require.Equal(t, "db.example.com", cfg.Database.Host)
	require.Equal(t, "require", cfg.Database.Options["sslmode"])

	require.True(t, cfg.Cache.Redis.Enabled)
	require.Equal(t, 2*time.Second, cfg.Cache.Redis.Timeout)
	require.Equal(t, 5, cfg.Cache.Redis.RetryAttempts)

	require.Equal(t, "jwt-secret", cfg.Auth.JWT.Secret)
	require.Equal(t, 30*time.Minute, cfg.Auth.JWT.TTL)
	require.Equal(t, 30*time.Second, cfg.Auth.JWT.Leeway)

	require.Equal(t, "postmark", cfg.Email.Provider)
	require.True(t, cfg.Email.Postmark.TrackOpens)
	require.Equal(t, 587, cfg.Email.SMTP.Port)

	require.True(t, cfg.Push.Enabled)
	require.Equal(t, "notifier-prod", cfg.Push.ProjectID)

	require.True(t, cfg.Realtime.RedisFanout)
	require.Equal(t, "notifier:events", cfg.Realtime.Channel)

	require.Equal(t, 10*time.Minute, cfg.Notifications.SpamWindow)
	require.Equal(t, 10*time.Second, cfg.Notifications.ChannelTimeout)
	require.Equal(t, 20, cfg.Notifications.DefaultListLimit)
	require.Equal(t, 50, cfg.Notifications.MaxListLimit)
	require.Equal(t, 3, cfg.Notifications.ArchiveRateLimit)
	require.Equal(t, time.Minute, cfg.Notifications.ArchiveRateWindow)
	require.Equal(t, "@every 1h", cfg.Notifications.ReconcileSchedule)
}

func TestLoadConfigEnvironmentOverrides(t *testing.T) {
	t.Setenv("NOTIFIER_AUTH_JWT_SECRET", "from-env")
	t.Setenv("NOTIFIER_SERVER_PORT", "7070")
	t.Setenv("NOTIFIER_NOTIFICATIONS_SPAM_WINDOW", "90s")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)
	require.Equal(t, "from-env", cfg.Auth.JWT.Secret)
	require.Equal(t, 7070, cfg.Server.Port)
	require.Equal(t, 90*time.Second, cfg.Notifications.SpamWindow)
	require.Equal(t, "sqlite", cfg.Database.Driver)
	require.Equal(t, "none", cfg.Email.Provider)
	require.False(t, cfg.Realtime.RedisFanout)
}

func TestLoadConfigRequiresSecret(t *testing.T) {
	_, err := LoadConfig(t.TempDir())
	require.ErrorContains(t, err, "auth.jwt.secret")
}

func TestConfigValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Database:      DatabaseConfig{Driver: "sqlite"},
			Auth:          AuthConfig{JWT: JWTSettings{Secret: "s"}},
			Notifications: NotificationConfig{DefaultListLimit: 20, MaxListLimit: 100},
		}
	}

	cfg := valid()
	require.NoError(t, cfg.Validate())

	cfg = valid()
	cfg.Database.Driver = "oracle"
	require.ErrorContains(t, cfg.Validate(), "unsupported database driver")

	cfg = valid()
	cfg.Email.Provider = "sendgrid"
	require.ErrorContains(t, cfg.Validate(), "unsupported email provider")

	cfg = valid()
	cfg.Realtime.RedisFanout = true
	require.ErrorContains(t, cfg.Validate(), "redis_fanout")

	cfg = valid()
	cfg.Notifications.MaxListLimit = 5
	require.ErrorContains(t, cfg.Validate(), "max_list_limit")
}

func TestEmailTransport(t *testing.T) {
	_, err := EmailConfig{Provider: "none"}.Transport()()
	require.True(t, errors.Is(err, mail.ErrNotConfigured))

	_, err = EmailConfig{Provider: "smtp"}.Transport()()
	require.True(t, errors.Is(err, mail.ErrNotConfigured))

	_, err = EmailConfig{Provider: "postmark", From: "alerts@example.com"}.Transport()()
	require.True(t, errors.Is(err, mail.ErrNotConfigured))

	mailer, err := EmailConfig{
		Provider: "postmark",
		From:     "alerts@example.com",
		Postmark: PostmarkConfig{ServerToken: "token"},
	}.Transport()()
	require.NoError(t, err)
	require.NotNil(t, mailer)
}

func TestAdapters(t *testing.T) {
	cfg := Config{
		Auth:     AuthConfig{JWT: JWTSettings{Secret: "s", Issuer: "identity", TTL: time.Hour}},
		Cache:    CacheConfig{Redis: RedisCacheConfig{URL: " redis://localhost:6379/1 ", RetryAttempts: 3}},
		Database: DatabaseConfig{Driver: " Postgres ", Host: "db", Port: 5432},
		Push:     PushConfig{ProjectID: "p", ClientEmail: " fcm@p.iam "},
	}

	tokens := cfg.Auth.TokenConfig()
	require.Equal(t, "identity", tokens.Issuer)
	require.Equal(t, time.Hour, tokens.AccessTokenTTL)

	redisCfg := cfg.Cache.RedisOptions()
	require.Equal(t, "redis://localhost:6379/1", redisCfg.URL)
	require.Equal(t, 3, redisCfg.RetryAttempts)

	require.Equal(t, "postgres", cfg.Database.ConnectionConfig().Driver)

	require.False(t, cfg.Push.Credentials().Configured())
	cfg.Push.Enabled = true
	creds := cfg.Push.Credentials()
	require.Equal(t, "fcm@p.iam", creds.ClientEmail)
}
