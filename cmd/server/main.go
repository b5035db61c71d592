// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in the internal packages.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"registra/internal/platform/config"
	"registra/internal/platform/health"
	"registra/internal/platform/httpserver"
	"registra/internal/platform/logger"
	platformredis "registra/internal/platform/redis"
	"registra/internal/registry/authority"
	"registra/internal/registry/authority/ibanapi"
	"registra/internal/registry/authority/mf"
	"registra/internal/registry/authority/nbp"
	"registra/internal/registry/authority/regon"
	"registra/internal/registry/authority/vies"
	"registra/internal/registry/handler"
	"registra/internal/registry/metrics"
	"registra/internal/registry/service"
	"registra/internal/registry/store"
	"registra/internal/registry/tracer"
	"registra/pkg/middleware/request"
)

const maxBodyBytes = 1 << 16 // lookup requests are tiny

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	log.Info("initializing registra",
		"addr", cfg.Addr,
		"environment", cfg.Environment,
	)

	cache, redisClient, err := buildCache(cfg)
	if err != nil {
		log.Error("cache init failed", "error", err)
		os.Exit(1)
	}

	connectors := []authority.Connector{
		mf.New(cfg.Authorities.MFBaseURL, cfg.Authorities.CallTimeout),
		regon.New(cfg.Authorities.BIRBaseURL, cfg.Authorities.BIRAPIKey, cfg.Authorities.CallTimeout),
		vies.New(cfg.Authorities.VIESBaseURL, cfg.Authorities.CallTimeout),
		nbp.New(cfg.Authorities.NBPBaseURL, cfg.Authorities.CallTimeout),
		ibanapi.New(cfg.Authorities.IBANAPIBaseURL, cfg.Authorities.IBANAPIKey, cfg.Authorities.CallTimeout),
	}

	svc := service.New(cache, connectors,
		service.WithLogger(log),
		service.WithMetrics(metrics.New(nil)),
		service.WithTracer(tracer.NewOTel()),
		service.WithTTLs(cfg.Cache.FoundTTL, cfg.Cache.NotFoundTTL, cfg.Cache.RateTTL),
	)

	healthHandler := health.New(cfg.Environment)
	if redisClient != nil {
		healthHandler.RegisterCheck("redis", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return redisClient.Health(ctx)
		})
	}

	router := chi.NewRouter()
	router.Use(request.RequestID)
	router.Use(request.Recovery(log))
	router.Use(request.Logger(log))
	router.Use(request.BodyLimit(maxBodyBytes))
	router.Use(request.ContentTypeJSON)

	healthHandler.Register(router)
	router.Handle("/metrics", promhttp.Handler())
	router.Route("/v1", func(r chi.Router) {
		handler.New(svc, log).Register(r)
	})

	srv := httpserver.New(cfg.Addr, router)

	if redisClient != nil {
		go recordPoolStats(redisClient)
	}
	if memory, ok := cache.(*store.InMemoryCache); ok {
		go cleanupLoop(memory)
	}

	log.Info("starting http server", "addr", cfg.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server gracefully")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}

	log.Info("server stopped")
}

// buildCache selects the Redis cache when configured, in-memory otherwise.
func buildCache(cfg config.Config) (store.Cache, *platformredis.Client, error) {
	client, err := platformredis.New(cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	if client == nil {
		return store.NewInMemoryCache(store.WithMaxSize(cfg.Cache.MaxEntries)), nil, nil
	}
	return store.NewRedisCache(client.Client), client, nil
}

func recordPoolStats(client *platformredis.Client) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		client.RecordPoolStats()
	}
}

func cleanupLoop(cache *store.InMemoryCache) {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		cache.CleanupExpired()
	}
}
