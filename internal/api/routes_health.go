package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/charlesng35/notifier/internal/handlers"
	"github.com/charlesng35/notifier/internal/monitoring"
)

func registerHealthRoutes(r *gin.Engine, manager *monitoring.HealthManager) {
	r.GET("/health", handlers.Health(manager))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
