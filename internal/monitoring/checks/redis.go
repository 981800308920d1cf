package checks

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/charlesng35/notifier/internal/monitoring"
)

// Redis pings the shared Redis client. A nil client means Redis is disabled,
// which is reported as up. Losing Redis only degrades the service: rate limits
// and realtime fan-out fall back to local behaviour.
func Redis(client redis.Cmdable) monitoring.Check {
	return monitoring.NewCheck("redis", func(ctx context.Context) monitoring.ProbeResult {
		if client == nil {
			return monitoring.ProbeResult{Status: monitoring.StatusUp, Details: "redis disabled"}
		}

		start := time.Now()
		result := monitoring.ResultFromError("redis", client.Ping(ctx).Err(), time.Since(start))
		if result.Status == monitoring.StatusDown {
			result.Status = monitoring.StatusDegraded
		}
		return result
	})
}
