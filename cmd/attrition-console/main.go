package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/technova/attrition-console/internal/api"
	"github.com/technova/attrition-console/internal/cache"
	"github.com/technova/attrition-console/internal/client"
	"github.com/technova/attrition-console/internal/config"
	"github.com/technova/attrition-console/internal/errnorm"
	"github.com/technova/attrition-console/internal/metrics"
	"github.com/technova/attrition-console/internal/risk"
	"github.com/technova/attrition-console/internal/services"
	"github.com/technova/attrition-console/internal/utils"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("path", configPath), slog.Any("error", err))
		os.Exit(1)
	}

	logger := utils.NewLogger(nil, cfg.Logging.Level, cfg.Logging.JSON)
	logger.Info("starting attrition-console",
		slog.String("address", cfg.Server.Address),
		slog.String("scoring_url", cfg.Scoring.BaseURL),
	)

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cacheProvider := newCacheProvider(ctx, cfg.Cache, logger)
	defer cacheProvider.Close()

	normalizer := errnorm.New(nil)
	scoring, err := client.New(client.Options{
		BaseURL:    cfg.Scoring.BaseURL,
		Timeout:    cfg.Scoring.Timeout,
		Normalizer: normalizer,
		Logger:     logger,
		Paths:      cfg.Scoring.Paths,
		Cache:      cacheProvider,
		CacheTTL:   cfg.Cache.TTL,
	})
	if err != nil {
		logger.Error("failed to create scoring client", slog.Any("error", err))
		os.Exit(1)
	}

	classifier, err := risk.NewClassifier(cfg.Risk.Thresholds())
	if err != nil {
		logger.Error("invalid risk thresholds", slog.Any("error", err))
		os.Exit(1)
	}
	profiles, err := risk.LoadProfiles(cfg.Risk.ProfilesPath, logger)
	if err != nil {
		logger.Error("failed to load risk profiles", slog.Any("error", err))
		os.Exit(1)
	}
	presenter, err := risk.NewPresenter(classifier, profiles)
	if err != nil {
		logger.Error("invalid risk profiles", slog.Any("error", err))
		os.Exit(1)
	}

	describe := func(err error) []string { return client.DescribeWith(normalizer.Translator(), err) }
	sessions := api.NewSessionStore(cfg.Sessions.MaxSessions, cfg.Sessions.IdleTTL, func() *services.Console {
		return services.NewConsole(logger, scoring, presenter, describe)
	})

	gin.SetMode(gin.ReleaseMode)
	handler := api.NewHandler(api.HandlerOptions{
		Logger:      logger,
		Sessions:    sessions,
		History:     scoring,
		Presenter:   presenter,
		Translator:  normalizer.Translator(),
		PageSize:    cfg.Roster.PageSize,
		MaxPageSize: cfg.Roster.MaxPageSize,
		Bootstrap:   cfg.Scoring.Timeout,
	})

	server, err := api.NewServer(cfg.Server, api.NewRouter(handler, cfg.Server.AllowedOrigins))
	if err != nil {
		logger.Error("failed to create HTTP server", slog.Any("error", err))
		os.Exit(1)
	}

	var metricsServer *http.Server
	if cfg.Server.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		go func() {
			logger.Info("metrics server listening", slog.String("address", cfg.Server.MetricsAddress))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server exited", slog.Any("error", err))
				stop()
			}
		}()
	}

	if cfg.Sessions.IdleTTL > 0 {
		go func() {
			ticker := time.NewTicker(cfg.Sessions.IdleTTL / 2)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if removed := sessions.Sweep(); removed > 0 {
						logger.Debug("idle sessions evicted", slog.Int("count", removed))
					}
				}
			}
		}()
	}

	go func() {
		logger.Info("gateway listening", slog.String("address", server.Address()))
		if serveErr := server.Start(); serveErr != nil {
			logger.Error("HTTP server exited", slog.Any("error", serveErr))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), server.GracefulTimeout())
	defer cancel()
	server.Shutdown(shutdownCtx)

	if metricsServer != nil {
		metricsCtx, cancelMetrics := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(metricsCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server shutdown", slog.Any("error", err))
		}
		cancelMetrics()
	}

	logger.Info("attrition-console stopped", slog.Duration("scoring_p95", scoring.LatencyP95()))
}

func newCacheProvider(ctx context.Context, cfg config.CacheConfig, logger *slog.Logger) cache.Provider {
	switch cfg.Backend {
	case config.CacheMemory:
		return cache.NewMemoryProvider()
	case config.CacheValkey:
		provider, err := cache.NewValkeyProvider(ctx, cache.ValkeyConfig{
			Addr:         cfg.Addr,
			Username:     cfg.Username,
			Password:     cfg.Password,
			DB:           cfg.DB,
			DialTimeout:  cfg.DialTimeout,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			MaxRetries:   cfg.MaxRetries,
			TLS:          cfg.TLS,
		})
		if err != nil {
			logger.Warn("valkey cache unavailable, falling back to memory", slog.Any("error", err))
			return cache.NewMemoryProvider()
		}
		return provider
	default:
		return cache.NoopProvider{}
	}
}
