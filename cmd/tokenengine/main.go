// Command tokenengine runs the session and token lifecycle service: JWT
// issuance, refresh-token rotation with reuse detection, and session
// revocation, behind a small HTTP surface.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wardenauth/tokenengine/internal/applog"
	"github.com/wardenauth/tokenengine/internal/httpapi"
	"github.com/wardenauth/tokenengine/internal/ports"
	"github.com/wardenauth/tokenengine/internal/refreshstore"
	"github.com/wardenauth/tokenengine/internal/token"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := token.LoadConfigFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := applog.New(cfg.LogLevel, cfg.LogFormat)

	keys, err := token.NewKeyStore(cfg.JWTKeys, cfg.ActiveKid)
	if err != nil {
		return fmt.Errorf("build key store: %w", err)
	}

	store, closeStore, err := buildRefreshStore(cfg, log)
	if err != nil {
		return fmt.Errorf("build refresh store: %w", err)
	}
	defer closeStore()

	metrics := token.NewMetrics()
	reg := prometheus.NewRegistry()
	metrics.MustRegister(reg)

	svc, err := token.NewService(cfg, keys, store, metrics, log)
	if err != nil {
		return fmt.Errorf("build token service: %w", err)
	}

	users := ports.NewMemoryUserStore()

	handler := httpapi.New(log, svc, users, cfg.AccessCookieName, cfg.RefreshCookieName, cfg.AccessTTL, cfg.RefreshTTL)

	mux := http.NewServeMux()
	handler.Register(mux)
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	addr := httpAddr()

	srv := &http.Server{
		Addr:              addr,
		Handler:           httpapi.WithRequestID(httpapi.WithRequestLogging(httpapi.WithSecurityHeaders(mux), log)),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("server.start", "addr", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		log.Error("server.fail", "err", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server.shutdown.fail", "err", err)
		return err
	}

	log.Info("server.stopped")
	return nil
}

func httpAddr() string {
	if addr := strings.TrimSpace(os.Getenv("HTTP_ADDR")); addr != "" {
		return addr
	}
	return ":8080"
}

// buildRefreshStore selects the in-memory or Redis-backed refresh store
// based on REFRESH_STORE_BACKEND ("memory", the default, or "redis").
func buildRefreshStore(cfg token.Config, log *slog.Logger) (refreshstore.Store, func(), error) {
	backend := strings.ToLower(strings.TrimSpace(os.Getenv("REFRESH_STORE_BACKEND")))
	switch backend {
	case "", "memory":
		mem := refreshstore.NewMemoryStore(time.Minute)
		log.Info("refreshstore.backend", "backend", "memory")
		return mem, mem.Close, nil
	case "redis":
		addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
		if addr == "" {
			return nil, func() {}, errors.New("REDIS_ADDR is required when REFRESH_STORE_BACKEND=redis")
		}
		rdb := redis.NewClient(&redis.Options{Addr: addr})
		store := refreshstore.NewRedisStore(rdb, cfg.RevokedSessionTTL())
		log.Info("refreshstore.backend", "backend", "redis", "addr", addr)
		return store, func() { _ = rdb.Close() }, nil
	default:
		return nil, func() {}, fmt.Errorf("unknown REFRESH_STORE_BACKEND %q", backend)
	}
}
