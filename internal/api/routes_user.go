package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/notifier/internal/handlers"
)

func registerUserRoutes(api *gin.RouterGroup, prefs *handlers.PreferenceHandler, devices *handlers.DeviceTokenHandler) {
	user := api.Group("/user")
	{
		user.GET("/notifications/preferences", prefs.Get)
		user.PUT("/notifications/preferences", prefs.Update)
		user.POST("/device-token", devices.Register)
		user.DELETE("/device-token", devices.Unregister)
	}
}
