package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"streamcast/internal/core/ports"
	"streamcast/internal/core/services"
	httphandlers "streamcast/internal/handlers/http"
	"streamcast/internal/infrastructure/encoder"
	"streamcast/internal/infrastructure/middleware"
	"streamcast/internal/infrastructure/monitoring"
	"streamcast/internal/infrastructure/notify"
	"streamcast/internal/infrastructure/platform/youtube"
	"streamcast/internal/infrastructure/repositories/memory"
	"streamcast/internal/infrastructure/schedule"
	"streamcast/pkg/config"
	"streamcast/pkg/logger"
	"streamcast/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

func main() {
	startTime := time.Now()

	configPath := os.Getenv("STREAMCAST_CONFIG")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		cfg = config.FromEnv()
	}

	zapLogger := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLogger.Sync()
	log := zapLogger.Sugar()

	if err != nil {
		log.Warnw("could not load config file, using defaults", "path", configPath, "error", err)
	}

	tracerCfg := tracing.DefaultConfig()
	tracerCfg.Enabled = cfg.Tracing.Enabled
	tracerCfg.JaegerURL = cfg.Tracing.JaegerURL
	tracerCfg.SampleRate = cfg.Tracing.SampleRate
	tracer, err := tracing.Init(tracerCfg)
	if err != nil {
		log.Fatalw("failed to initialize tracing", "error", err)
	}

	// Notification transports are optional and composable.
	var notifiers []ports.Notifier
	if cfg.Notifier.WebhookURL != "" {
		notifiers = append(notifiers, notify.NewWebhookNotifier(cfg.Notifier.WebhookURL, log))
	}
	if cfg.Notifier.SMTP.Host != "" && cfg.Notifier.SMTP.From != "" && cfg.Notifier.SMTP.To != "" {
		notifiers = append(notifiers, notify.NewEmailNotifier(notify.SMTPConfig{
			Host:     cfg.Notifier.SMTP.Host,
			Port:     cfg.Notifier.SMTP.Port,
			Username: cfg.Notifier.SMTP.Username,
			Password: cfg.Notifier.SMTP.Password,
			From:     cfg.Notifier.SMTP.From,
			To:       cfg.Notifier.SMTP.To,
		}, log))
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := redisClient.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			log.Warnw("redis unavailable, event publishing disabled", "error", err)
			redisClient = nil
		} else {
			notifiers = append(notifiers, notify.NewRedisPublisher(redisClient, cfg.Redis.EventsChannel, log))
		}
	}

	gateway := youtube.NewClient(youtube.Config{
		APIBaseURL: cfg.Platform.APIBaseURL,
		OAuth: youtube.OAuthConfig{
			ClientID:     cfg.Platform.OAuth.ClientID,
			ClientSecret: cfg.Platform.OAuth.ClientSecret,
			RefreshToken: cfg.Platform.OAuth.RefreshToken,
			TokenURL:     cfg.Platform.OAuth.TokenURL,
		},
	}, log)

	registry := memory.NewSessionRegistry()
	runner := encoder.NewRunner(cfg.Encoder.Binary, log)
	deferred := schedule.NewTimerRunner(log)
	collector := monitoring.NewPrometheusCollector()
	hub := services.NewEventHub()

	orchestrator := services.NewOrchestrator(
		services.Config{
			MonitorInterval:      cfg.Monitor.Interval,
			MaxReconnectAttempts: cfg.Monitor.MaxReconnectAttempts,
			ReconnectBackoff:     cfg.Monitor.ReconnectBackoff,
			ReconnectBackoffMax:  cfg.Monitor.ReconnectBackoffMax,
			DefaultPrivacyStatus: cfg.Defaults.PrivacyStatus,
			DefaultResolution:    cfg.Defaults.Resolution,
			DefaultBitrate:       cfg.Defaults.Bitrate,
		},
		registry,
		gateway,
		runner,
		notify.NewMulti(notifiers...),
		deferred,
		collector,
		hub,
		log,
	)

	streamHandler := httphandlers.NewStreamHandler(orchestrator)
	eventsHandler := httphandlers.NewEventsHandler(registry, hub, log)

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	router.Use(middleware.NewHTTPRateLimitMiddleware(cfg))
	if cfg.Tracing.Enabled {
		router.Use(middleware.TracingMiddleware())
	}

	streamHandler.SetupRoutes(router)
	eventsHandler.SetupRoutes(router)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
			"uptime":    time.Since(startTime).String(),
		})
	})

	router.GET("/ready", func(c *gin.Context) {
		if redisClient != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := redisClient.Ping(ctx).Err(); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"status": "not_ready",
					"error":  err.Error(),
				})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	if cfg.Monitoring.PrometheusEnabled {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
		log.Info("Prometheus metrics enabled")
	}

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Infof("Starting streamcast server on %s", cfg.Server.Address)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		log.Fatalw("Server failed", "error", err)
	case sig := <-sigChan:
		log.Infow("Received shutdown signal", "signal", sig)
	}

	log.Info("Shutting down streamcast server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("HTTP server shutdown failed", "error", err)
	}

	deferred.Close()
	orchestrator.Close()

	if err := tracer.Shutdown(shutdownCtx); err != nil {
		log.Errorw("tracer shutdown failed", "error", err)
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Errorw("redis close failed", "error", err)
		}
	}

	log.Info("Shutdown complete")
}
