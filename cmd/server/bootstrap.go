package main

import (
	"context"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sourcegraph/conc"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/notifier/internal/api"
	"github.com/charlesng35/notifier/internal/app"
	"github.com/charlesng35/notifier/internal/app/maintenance"
	"github.com/charlesng35/notifier/internal/auth"
	"github.com/charlesng35/notifier/internal/cache"
	"github.com/charlesng35/notifier/internal/database"
	"github.com/charlesng35/notifier/internal/handlers"
	"github.com/charlesng35/notifier/internal/middleware"
	"github.com/charlesng35/notifier/internal/monitoring"
	"github.com/charlesng35/notifier/internal/monitoring/checks"
	"github.com/charlesng35/notifier/internal/notifications"
	"github.com/charlesng35/notifier/internal/push"
	"github.com/charlesng35/notifier/internal/realtime"
	"github.com/charlesng35/notifier/internal/services"
	"github.com/charlesng35/notifier/internal/store"
	"github.com/charlesng35/notifier/pkg/logger"
)

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB         *gorm.DB
	Redis      *redis.Client
	Hub        *realtime.Hub
	Reconciler *maintenance.Reconciler
	Router     *gin.Engine

	background conc.WaitGroup
	cancel     context.CancelFunc
}

// bootstrapRuntime initialises the database, cache, delivery engine and HTTP router.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	success := false
	defer func() {
		if !success {
			stack.Shutdown(context.Background(), log)
		}
	}()

	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	var err error
	stack.DB, err = initialiseDatabase(cfg)
	if err != nil {
		return nil, err
	}

	dbCache, err := cache.NewDatabaseStore(stack.DB)
	if err != nil {
		return nil, err
	}
	var rateCache cache.Store = dbCache

	if cfg.Cache.Redis.Enabled {
		client, redisErr := cache.Connect(ctx, cfg.Cache.RedisOptions())
		if redisErr != nil {
			log.Warn("redis unavailable; falling back to database-backed rate limits", zap.Error(redisErr))
		} else {
			stack.Redis = client
			if rateCache, err = cache.NewRedisStore(client); err != nil {
				return nil, err
			}
			log.Info("redis connected")
		}
	}

	tokens, err := auth.NewTokenService(cfg.Auth.TokenConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise token service: %w", err)
	}

	bgCtx, cancel := context.WithCancel(context.Background())
	stack.cancel = cancel

	stack.Hub = realtime.NewHub(
		realtime.WithLogger(logger.WithModule("realtime")),
		realtime.WithAllowedOrigins(cfg.Server.AllowedOrigins...),
	)
	var publisher notifications.Publisher = stack.Hub
	if cfg.Realtime.RedisFanout && stack.Redis != nil {
		fanout, err := realtime.NewRedisFanout(stack.Redis, cfg.Realtime.Channel, stack.Hub)
		if err != nil {
			return nil, err
		}
		publisher = fanout
		stack.background.Go(func() {
			if err := fanout.Run(bgCtx); err != nil {
				log.Error("realtime fanout stopped", zap.Error(err))
			}
		})
	}

	st, err := store.New(stack.DB)
	if err != nil {
		return nil, err
	}

	engineLog := logger.WithModule("notifications")
	opts := []notifications.Option{
		notifications.WithSpamWindow(cfg.Notifications.SpamWindow),
		notifications.WithChannelTimeout(cfg.Notifications.ChannelTimeout),
		notifications.WithListLimits(cfg.Notifications.DefaultListLimit, cfg.Notifications.MaxListLimit),
		notifications.WithLogger(engineLog),
	}

	if cfg.Push.Enabled {
		provider := push.NewFCMProvider(cfg.Push.Credentials(), logger.WithModule("push"))
		pushChannel, err := notifications.NewPushChannel(provider, st, engineLog)
		if err != nil {
			return nil, err
		}
		opts = append(opts, notifications.WithPushChannel(pushChannel))
	}

	emailChannel, err := notifications.NewEmailChannel(cfg.Email.Transport(), cfg.Notifications.FrontendURL, engineLog)
	if err != nil {
		return nil, err
	}
	opts = append(opts, notifications.WithEmailChannel(emailChannel))

	dispatcher, err := notifications.NewDispatcher(st, publisher, opts...)
	if err != nil {
		return nil, fmt.Errorf("initialise dispatcher: %w", err)
	}
	lifecycle, err := notifications.NewLifecycle(st, publisher, opts...)
	if err != nil {
		return nil, fmt.Errorf("initialise lifecycle: %w", err)
	}

	prefs, err := services.NewPreferenceService(stack.DB)
	if err != nil {
		return nil, err
	}
	devices, err := services.NewDeviceTokenService(stack.DB)
	if err != nil {
		return nil, err
	}

	stack.Reconciler = maintenance.NewReconciler(
		maintenance.WithArchiveReconciliation(st, cfg.Notifications.ReconcileSchedule),
		maintenance.WithCachePurge(dbCache, cfg.Notifications.CacheCleanupSchedule),
	)
	if err := stack.Reconciler.Start(); err != nil {
		return nil, fmt.Errorf("start maintenance jobs: %w", err)
	}

	health := monitoring.NewHealthManager(0)
	var redisProbe redis.Cmdable
	if stack.Redis != nil {
		redisProbe = stack.Redis
	}
	health.Register(
		checks.Database(stack.DB),
		checks.Redis(redisProbe),
		checks.Maintenance(stack.Reconciler.Runs, 0, nil),
	)

	stack.Router, err = api.NewRouter(api.Dependencies{
		Config:        cfg,
		Tokens:        tokens,
		RateStore:     middleware.NewCacheRateStore(rateCache),
		Health:        health,
		Notifications: handlers.NewNotificationHandler(lifecycle, dispatcher),
		Preferences:   handlers.NewPreferenceHandler(prefs),
		DeviceTokens:  handlers.NewDeviceTokenHandler(devices),
		Realtime:      handlers.NewRealtimeHandler(stack.Hub, realtime.StreamNotifications),
	})
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

// Shutdown stops background work and releases connections.
func (s *runtimeStack) Shutdown(ctx context.Context, log *zap.Logger) {
	if s == nil {
		return
	}

	if s.Reconciler != nil {
		select {
		case <-s.Reconciler.Stop().Done():
		case <-ctx.Done():
			log.Warn("maintenance jobs still running at shutdown")
		}
	}

	if s.cancel != nil {
		s.cancel()
	}
	s.background.Wait()

	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			log.Warn("failed to close redis", zap.Error(err))
		}
	}

	closeDatabase(s.DB, log)
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := cfg.Database.ConnectionConfig()
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.Migrate(db); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	logger.WithModule("database").Info("database connected", zap.String("driver", dbCfg.Driver))
	return db, nil
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	if db == nil {
		return
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Warn("failed to obtain underlying sql DB for closing", zap.Error(err))
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Warn("failed to close database", zap.Error(err))
	}
}
