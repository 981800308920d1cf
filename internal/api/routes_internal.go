package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/notifier/internal/handlers"
	"github.com/charlesng35/notifier/internal/middleware"
)

// registerInternalRoutes mounts service-to-service endpoints behind the shared internal key.
func registerInternalRoutes(r *gin.Engine, handler *handlers.NotificationHandler, key string) {
	internal := r.Group("/internal", middleware.InternalKey(key))
	internal.POST("/notifications", handler.Send)
}
