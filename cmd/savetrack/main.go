package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"savetrack/internal/backend"
	"savetrack/internal/cache"
	"savetrack/internal/cli"
	apphttp "savetrack/internal/http"
	applog "savetrack/internal/log"
	"savetrack/internal/services"
)

func main() {
	logger := cli.SetupLogger(applog.ComponentApp)
	cli.LoadEnvFile(logger)
	cfg := cli.LoadAndValidateConfig(logger)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}

	res, err := backend.NewFactory(logger.Logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	svc := services.NewSavingsService(res.Store, res.Publisher,
		services.WithScale(cfg.Tracker.Scale()),
		services.WithDefaults(services.TrackerDefaults{
			Currency:      cfg.Tracker.Currency,
			Goal:          cfg.Tracker.DefaultGoal,
			MonthlyTarget: cfg.Tracker.DefaultMonthlyTarget,
			Step:          cfg.Tracker.InputStep,
		}))

	srv, err := apphttp.NewServer(":"+cfg.Port, svc, apphttp.Options{
		Logger:             logger.WithComponent(applog.ComponentHTTP),
		SessionCookieName:  cfg.SessionCookieName,
		SessionSecure:      cfg.SessionCookieSecure,
		SessionMaxAge:      cfg.SessionMaxAge,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		MaxUploadBytes:     cfg.MaxUploadBytes,
		Ready:              res.Ready,
		Cache:              res.Cache,
	})
	if err != nil {
		logger.Error("Failed to build HTTP server", "error", err)
		os.Exit(1)
	}
	srv.MaxHeaderBytes = 1 << 16

	caches := cache.NewManager()
	caches.Register(res.Cache.Cache())

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		caches.Stop()
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", "error", err)
		}
	})
	caches.StartCleanup(ctx, time.Minute)

	logger.Info("Starting savetrack server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"currency", cfg.Tracker.Currency,
		"amqp", res.Publisher != nil)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", "error", err, "port", cfg.Port)
			os.Exit(1)
		}
	}()

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
