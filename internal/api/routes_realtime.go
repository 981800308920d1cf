package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/notifier/internal/handlers"
	"github.com/charlesng35/notifier/internal/middleware"
)

func registerRealtimeRoutes(r *gin.Engine, handler *handlers.RealtimeHandler, tokens middleware.TokenVerifier) {
	if handler == nil {
		return
	}
	r.GET("/ws", middleware.QueryAuth(tokens, "token"), handler.Stream)
}
