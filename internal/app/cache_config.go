package app

import (
	"strings"

	"github.com/charlesng35/notifier/internal/cache"
	"github.com/charlesng35/notifier/internal/database"
)

// RedisOptions converts the cache configuration into the cache package representation.
func (c CacheConfig) RedisOptions() cache.RedisConfig {
	return cache.RedisConfig{
		URL:           strings.TrimSpace(c.Redis.URL),
		Timeout:       c.Redis.Timeout,
		RetryAttempts: c.Redis.RetryAttempts,
		RetryInterval: c.Redis.RetryInterval,
	}
}

// ConnectionConfig converts the database section into database.Config.
func (c DatabaseConfig) ConnectionConfig() database.Config {
	return database.Config{
		Driver:          strings.ToLower(strings.TrimSpace(c.Driver)),
		Path:            c.Path,
		DSN:             c.DSN,
		Host:            c.Host,
		Port:            c.Port,
		User:            c.User,
		Password:        c.Password,
		Name:            c.Name,
		Options:         c.Options,
		MaxOpenConns:    c.MaxOpenConns,
		MaxIdleConns:    c.MaxIdleConns,
		ConnMaxLifetime: c.ConnMaxLifetime,
	}
}
