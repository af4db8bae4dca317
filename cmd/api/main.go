package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/followerscart/backend/internal/config"
	"github.com/followerscart/backend/internal/db"
	httpx "github.com/followerscart/backend/internal/http"
	"github.com/followerscart/backend/internal/notifications"
	"github.com/followerscart/backend/internal/observability"
	"github.com/followerscart/backend/internal/ratelimit"
	"github.com/followerscart/backend/internal/uploads"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	// Load the config set up
	cfg := config.Load()

	// start up the observability logger
	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	ctx := context.Background()

	// tracing
	shutdownTracer, err := observability.InitTracer(ctx, "followerscart-api", cfg.OTLPEndpoint)

	if err != nil {
		log.Warn("tracing disabled", "err", err)
		shutdownTracer = func(context.Context) error { return nil }
	}

	pool, err := db.NewPool(cfg.DBURL)

	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}

	defer pool.Close()

	if err := db.EnsureAdminUser(ctx, pool, cfg); err != nil {
		log.Error("admin seed failed", "err", err)
		os.Exit(1)
	}

	prom := observability.NewProm(prometheus.DefaultRegisterer)

	limiter := ratelimit.New(ratelimit.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		Limit:    cfg.RateLimitPerMinute,
		Window:   time.Minute,
	})
	defer limiter.Close()

	if err := limiter.Ping(ctx); err != nil {
		log.Warn("redis unreachable, rate limiting will fail open", "err", err)
	}

	notifier := buildNotifier(cfg, log)

	var presigner *uploads.Presigner

	if cfg.S3Bucket != "" {
		presigner, err = uploads.NewPresigner(ctx, uploads.Config{
			Bucket:        cfg.S3Bucket,
			Region:        cfg.S3Region,
			Endpoint:      cfg.S3Endpoint,
			AccessKey:     cfg.S3AccessKey,
			SecretKey:     cfg.S3SecretKey,
			PublicBaseURL: cfg.S3PublicBaseURL,
		})

		if err != nil {
			log.Error("s3 presigner init failed", "err", err)
			os.Exit(1)
		}
	} else {
		log.Warn("S3_BUCKET not set, image uploads disabled")
	}

	// set up routers with the dependencies
	router := httpx.NewRouter(httpx.Deps{
		Log:       log,
		Cfg:       cfg,
		Pool:      pool,
		Prom:      prom,
		Notifier:  notifier,
		Presigner: presigner,
		Limiter:   limiter,
	})

	// server set up
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// start server using a concurrent go-routine driven anonymous function.

	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env)
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("server shutting down")

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		ctxTimeOut := 10 * time.Second

		sctx, cancel := config.WithTimeout(ctxTimeOut)

		defer cancel()

		if err := srv.Shutdown(sctx); err != nil {
			log.Error("graceful shutdown failed", "err", err)
			return
		}

		if err := shutdownTracer(sctx); err != nil {
			log.Error("tracer shutdown failed", "err", err)
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}

// buildNotifier picks real SMTP when configured, a log-only notifier
// otherwise, and wraps either in the circuit breaker. Reset emails are sent
// from request handlers, so a dead provider must fail fast.
func buildNotifier(cfg config.Config, log *slog.Logger) notifications.Notifier {
	var inner notifications.Notifier

	if cfg.SMTPHost != "" {
		inner = notifications.NewSMTPNotifier(notifications.SMTPConfig{
			Host:      cfg.SMTPHost,
			Port:      cfg.SMTPPort,
			Username:  cfg.SMTPUsername,
			Password:  cfg.SMTPPassword,
			FromEmail: cfg.SMTPFromEmail,
			FromName:  cfg.SMTPFromName,
		})
	} else {
		log.Warn("SMTP_HOST not set, emails are logged instead of sent")
		inner = notifications.NewLogNotifier(log)
	}

	return notifications.NewProtectedNotifier(inner, notifications.ProtectedNotifierConfig{
		Timeout:          8 * time.Second,
		FailureThreshold: 5,
		Cooldown:         30 * time.Second,
		HalfOpenMaxCalls: 1,
	})
}
