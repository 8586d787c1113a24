package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"norelock.dev/listenify/gateway/internal/api"
	"norelock.dev/listenify/gateway/internal/bridge"
	"norelock.dev/listenify/gateway/internal/config"
	"norelock.dev/listenify/gateway/internal/db/redis"
	"norelock.dev/listenify/gateway/internal/extractor"
	"norelock.dev/listenify/gateway/internal/rpc"
	"norelock.dev/listenify/gateway/internal/services/media"
	"norelock.dev/listenify/gateway/internal/services/system"
	"norelock.dev/listenify/gateway/internal/transport"
	"norelock.dev/listenify/gateway/internal/utils"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	// Create a context that will be canceled on interrupt signal
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("Received shutdown signal")
		cancel()
	}()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := config.NewLogger(cfg)
	utils.SetLogger(logger)
	defer logger.Sync()

	for _, warning := range config.ValidateAndFixConfig(cfg) {
		logger.Warn("Configuration adjusted", "detail", warning)
	}
	logger.Info("Starting media gateway", "environment", cfg.Environment, "version", version)
	logger.Debug("Effective configuration", "config", config.GetConfigString(cfg))

	metrics := system.NewMetricsService(logger)

	// Resolution pipeline: transport -> extractor -> resolver -> bridge
	downloader := transport.NewDownloader(
		transport.WithLogger(logger),
		transport.WithRecorder(metrics),
		transport.WithUserAgent(cfg.Extractor.UserAgent),
	)

	client, err := extractor.New(ctx, cfg.Extractor, downloader, logger)
	if err != nil {
		logger.Fatal("Failed to create extraction client", err)
	}

	resolver := media.NewResolver(client, logger)
	dispatcher := bridge.New(resolver, bridge.Options{
		Workers:   cfg.Bridge.Workers,
		QueueSize: cfg.Bridge.QueueSize,
	}, logger, metrics)

	checks := []system.Check{
		system.UpstreamCheck("piped", cfg.Extractor.PipedBaseURL+"/healthcheck", downloader),
	}

	// Redis is optional and only backs the shared rate limiter
	var redisClient *redis.Client
	if cfg.Database.Redis.Enabled {
		redisClient, err = redis.NewClient(ctx, cfg.Database.Redis, logger)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", err)
		}
		checks = append(checks, system.PingCheck("redis", false, redisClient))
	}

	var limiter utils.Limiter
	if cfg.RateLimit.Enabled {
		switch cfg.RateLimit.Store {
		case config.RateLimitStoreRedis:
			limiter = redis.NewRateLimiter(redisClient, cfg.RateLimit.Requests, cfg.RateLimit.Window)
		default:
			memory := utils.NewRateLimiter(cfg.RateLimit.Window, cfg.RateLimit.Requests)
			go memory.CleanupLoop(ctx, cfg.RateLimit.Window)
			limiter = memory
		}
		logger.Info("Rate limiting enabled", "store", cfg.RateLimit.Store,
			"requests", cfg.RateLimit.Requests, "window", cfg.RateLimit.Window.String())
	}

	healthService := system.NewHealthService(logger, system.HealthServiceConfig{
		Version:     version,
		Environment: cfg.Environment,
	}, checks...)
	healthService.Start(ctx)

	// JSON-RPC surfaces share one router
	rpcRouter := rpc.NewRouter(dispatcher, logger)
	rpcServer := rpc.NewServer(rpcRouter, cfg.WebSocket, logger, metrics)

	router := api.NewRouter(api.Dependencies{
		Caller:    dispatcher,
		Health:    healthService,
		Metrics:   metrics.Handler(),
		WebSocket: rpcServer.HandleWebSocket,
		RPC:       rpc.NewHTTPHandler(rpcRouter, logger),
		Limiter:   limiter,
		Recorder:  metrics,
	}, logger)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("Starting HTTP server", "address", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", err)
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	logger.Info("Shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	// Stop taking requests before draining the bridge
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", err)
	}

	if err := rpcServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("RPC server shutdown error", err)
	}

	if err := dispatcher.Shutdown(shutdownCtx); err != nil {
		logger.Error("Bridge shutdown error", err)
	}

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error("Failed to close Redis connection", err)
		}
	}

	logger.Info("Server shutdown complete")
}
