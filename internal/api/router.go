package api

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/notifier/internal/app"
	"github.com/charlesng35/notifier/internal/handlers"
	"github.com/charlesng35/notifier/internal/middleware"
	"github.com/charlesng35/notifier/internal/monitoring"
)

// Dependencies are the collaborators mounted by NewRouter.
type Dependencies struct {
	Config        *app.Config
	Tokens        middleware.TokenVerifier
	RateStore     middleware.RateStore
	Health        *monitoring.HealthManager
	Notifications *handlers.NotificationHandler
	Preferences   *handlers.PreferenceHandler
	DeviceTokens  *handlers.DeviceTokenHandler
	Realtime      *handlers.RealtimeHandler
}

func (d Dependencies) validate() error {
	switch {
	case d.Config == nil:
		return errors.New("router: config must be provided")
	case d.Tokens == nil:
		return errors.New("router: token verifier must be provided")
	case d.Notifications == nil || d.Preferences == nil || d.DeviceTokens == nil:
		return errors.New("router: notification handlers must be provided")
	}
	return nil
}

// NewRouter builds the Gin engine, wires middleware and registers every route.
func NewRouter(deps Dependencies) (*gin.Engine, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	cfg := deps.Config
	if deps.RateStore == nil {
		deps.RateStore = middleware.NewMemoryRateStore()
	}

	r := gin.New()

	r.Use(middleware.Recovery())
	r.Use(middleware.Logger("/health", "/metrics"))
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.AllowedOrigins...))
	r.Use(middleware.RateLimit(deps.RateStore, cfg.Server.RateLimit, cfg.Server.RateWindow, middleware.ByClientIP))

	registerHealthRoutes(r, deps.Health)
	registerInternalRoutes(r, deps.Notifications, cfg.Server.InternalAPIKey)
	registerRealtimeRoutes(r, deps.Realtime, deps.Tokens)

	api := r.Group("/api")
	api.Use(middleware.Auth(deps.Tokens))

	archiveLimit := middleware.RateLimit(
		deps.RateStore,
		cfg.Notifications.ArchiveRateLimit,
		cfg.Notifications.ArchiveRateWindow,
		middleware.ByUser,
	)
	registerNotificationRoutes(api, deps.Notifications, archiveLimit)
	registerUserRoutes(api, deps.Preferences, deps.DeviceTokens)

	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}
