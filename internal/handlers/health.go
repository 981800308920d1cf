package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/notifier/internal/monitoring"
)

// Health reports the state of the notifier's dependencies. A degraded
// dependency still answers 200; only a down one fails the probe.
func Health(manager *monitoring.HealthManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if manager == nil {
			c.JSON(http.StatusOK, monitoring.HealthReport{Success: true, Status: monitoring.StatusUp, Checks: []monitoring.ProbeResult{}})
			return
		}

		report := manager.Evaluate(requestContext(c))
		status := http.StatusOK
		if report.Status == monitoring.StatusDown {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, report)
	}
}
