package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"callroom/internal/core/ports"
	"callroom/internal/core/services"
	httphandlers "callroom/internal/handlers/http"
	"callroom/internal/infrastructure/distributed"
	"callroom/internal/infrastructure/middleware"
	"callroom/internal/infrastructure/monitoring"
	"callroom/internal/infrastructure/repositories"
	signalinfra "callroom/internal/infrastructure/signal"
	"callroom/pkg/config"
	"callroom/pkg/logger"
	"callroom/pkg/tracing"
	"callroom/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func loadConfig() (*config.Config, string, error) {
	configPaths := []string{
		"configs/config.yaml",
		"./configs/config.yaml",
		"/etc/callroom/config.yaml",
		"config.yaml",
	}
	if path := os.Getenv("CALLROOM_CONFIG"); path != "" {
		configPaths = []string{path}
	}

	var lastErr error
	for _, path := range configPaths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		cfg, err := config.Load(path)
		if err != nil {
			lastErr = err
			continue
		}
		return cfg, path, nil
	}
	if lastErr != nil {
		return nil, "", lastErr
	}

	// No file found: defaults plus environment overrides.
	cfg, err := config.Load("")
	return cfg, "", err
}

func main() {
	cfg, configPath, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	zapLogger := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLogger.Sync()
	log := zapLogger.Sugar()
	log.Infow("configuration loaded", "path", configPath)

	tp, err := tracing.Init(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
		JaegerURL:   cfg.Tracing.JaegerURL,
		Environment: cfg.Tracing.Environment,
		SampleRate:  cfg.Tracing.SampleRate,
	})
	if err != nil {
		log.Fatalw("failed to initialize tracing", "error", err)
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	repoFactory, err := repositories.NewRepositoryFactory(ctx, cfg, log)
	if err != nil {
		log.Fatalw("failed to create repository factory", "error", err)
	}

	collector := monitoring.NewPrometheusCollector(prometheus.DefaultRegisterer)
	hub := signalinfra.NewHub()

	var events ports.RoomEventPublisher
	var eventBus *distributed.EventBus
	if repoFactory.UsingRedis() {
		eventBus = distributed.NewEventBus(repoFactory.RedisClient(), utils.GenerateInstanceID(), distributed.DefaultChannel, log)
		events = eventBus
		go func() {
			err := eventBus.Subscribe(ctx, func(e distributed.Event) error {
				collector.RemoteRoomEvent(e.RoomEvent)
				log.Debugw("remote room event",
					"type", e.Type,
					"room_code", e.RoomCode,
					"user_id", e.UserID,
					"instance_id", e.InstanceID,
				)
				return nil
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				log.Errorw("event bus subscription ended", "error", err)
			}
		}()
		log.Infow("room event feed enabled", "instance_id", eventBus.InstanceID())
	}

	authService := services.NewAuthService(
		cfg.Auth.JWTSecret,
		cfg.RefreshSigningSecret(),
		cfg.Auth.Issuer,
		cfg.Auth.AccessTokenTTL,
		cfg.Auth.RefreshTokenTTL,
	)

	deps := services.Dependencies{
		Presence: repoFactory.CreatePresenceRepository(),
		Members:  repoFactory.CreateMembershipRepository(),
		Waiting:  repoFactory.CreateWaitingRepository(),
		Notifier: hub,
		Events:   events,
		Metrics:  collector,
		Logger:   log,
	}
	rooms := services.NewRoomService(deps)
	admission := services.NewAdmissionService(deps, rooms)

	wsServer := signalinfra.NewWebSocketServer(hub, signalinfra.Services{
		Lifecycle: services.NewLifecycleService(deps, authService, rooms, admission),
		Rooms:     rooms,
		Admission: admission,
		Relay:     services.NewSignalRelay(deps),
		Calls:     services.NewCallService(deps, cfg.Room.ChatMaxLength),
	}, signalinfra.ConfigFrom(cfg), collector, log)

	health := monitoring.NewHealthChecker()
	health.AddStoreCheck(repoFactory.Store(), 2*time.Second)

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.TracingMiddleware(log))
	router.Use(middleware.ErrorHandlerMiddleware(log))

	router.GET(cfg.Signal.Path, middleware.NewWebSocketRateLimitMiddleware(cfg), gin.WrapF(wsServer.HandleWebSocket))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, health.Liveness(hub.ConnectionCount(), hub.RoomCount()))
	})

	router.GET("/ready", func(c *gin.Context) {
		status := health.CheckAll(c.Request.Context())
		code := http.StatusOK
		if status.Status != monitoring.StatusHealthy {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, status)
	})

	if cfg.Monitoring.PrometheusEnabled {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
		log.Info("Prometheus metrics enabled")
	}

	httpLimit := middleware.NewHTTPRateLimitMiddleware(cfg)
	httphandlers.NewAuthHandler(authService).SetupRoutes(router)
	api := router.Group("/api/v1")
	api.Use(httpLimit, middleware.AuthMiddleware(authService))
	httphandlers.NewRoomHandler(rooms).SetupRoutes(api)

	// WriteTimeout stays unset: it would cut long-lived sockets.
	srv := &http.Server{
		Addr:        cfg.Server.Address,
		Handler:     router,
		ReadTimeout: cfg.Server.ReadTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Infow("starting callroom signaling server",
			"address", cfg.Server.Address,
			"path", cfg.Signal.Path,
			"redis", repoFactory.UsingRedis(),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		log.Errorw("server failed", "error", err)
	case sig := <-sigChan:
		log.Infow("received shutdown signal", "signal", sig)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("error during server shutdown", "error", err)
		if closeErr := srv.Close(); closeErr != nil {
			log.Errorw("error force closing server", "error", closeErr)
		}
	}

	// Shutdown does not wait for hijacked sockets; close them and let their
	// disconnect cleanup run before the store goes away.
	hub.CloseAll()
	for hub.ConnectionCount() > 0 && shutdownCtx.Err() == nil {
		time.Sleep(50 * time.Millisecond)
	}

	stop()
	if eventBus != nil {
		if err := eventBus.Close(); err != nil {
			log.Warnw("error closing event bus", "error", err)
		}
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		log.Warnw("error shutting down tracer provider", "error", err)
	}
	if err := repoFactory.Close(); err != nil {
		log.Errorw("error closing repository factory", "error", err)
	}

	log.Info("callroom signaling server stopped")
}
