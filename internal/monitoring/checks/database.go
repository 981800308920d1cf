// Package checks provides the notifier's health probes.
package checks

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/charlesng35/notifier/internal/monitoring"
)

// Database pings the database handle backing the notification store.
func Database(db *gorm.DB) monitoring.Check {
	return monitoring.NewCheck("database", func(ctx context.Context) monitoring.ProbeResult {
		start := time.Now()
		if db == nil {
			return monitoring.ProbeResult{Status: monitoring.StatusDown, Details: "database not configured"}
		}

		sqlDB, err := db.DB()
		if err != nil {
			return monitoring.ResultFromError("database", err, time.Since(start))
		}
		return monitoring.ResultFromError("database", sqlDB.PingContext(ctx), time.Since(start))
	})
}
