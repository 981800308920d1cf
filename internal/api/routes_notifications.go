package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/notifier/internal/handlers"
)

func registerNotificationRoutes(api *gin.RouterGroup, handler *handlers.NotificationHandler, archiveLimit gin.HandlerFunc) {
	group := api.Group("/notifications")
	{
		group.GET("", handler.List)
		group.GET("/unread-count", handler.UnreadCount)
		group.PUT("/read-all", handler.MarkAllRead)
		group.PUT("/archive-all", archiveLimit, handler.ArchiveAll)
		group.PUT("/:id/read", handler.MarkRead)
	}
}
