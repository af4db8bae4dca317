package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/followerscart/backend/internal/config"
	"github.com/followerscart/backend/internal/db"
	"github.com/followerscart/backend/internal/notifications"
	"github.com/followerscart/backend/internal/observability"
	"github.com/followerscart/backend/internal/queue/worker"
	"github.com/followerscart/backend/internal/repo/postgres"
	"github.com/prometheus/client_golang/prometheus"
)

// Jobs stuck in processing longer than this are assumed orphaned by a dead
// worker and put back in the queue.
const staleLockTTL = 5 * time.Minute

func main() {
	cfg := config.Load()

	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)

	defer stop()

	pool, err := db.NewPool(cfg.DBURL)

	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}

	defer pool.Close()

	prom := observability.NewProm(prometheus.DefaultRegisterer)
	jobsRepo := postgres.NewJobsRepo(pool, prom)

	notifier := buildNotifier(cfg, log)

	host, _ := os.Hostname()
	workerID := host + "-" + strconv.Itoa(os.Getpid())

	w := worker.New(worker.Config{
		PollInterval:  time.Second,
		WorkerID:      workerID,
		ShutdownGrace: 10 * time.Second,
	}, jobsRepo, notifier, prom, log)

	var shuttingDown atomic.Bool

	// probe endpoints
	probeSrv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Port),
		Handler:           worker.HealthHandler(pool, shuttingDown.Load),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := probeSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("probe server failed", "err", err)
		}
	}()

	// periodic sweep for jobs orphaned mid-processing
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := jobsRepo.RequeueStaleProcessing(ctx, staleLockTTL)
				if err != nil {
					log.Error("stale job sweep failed", "err", err)
					continue
				}
				if n > 0 {
					log.Warn("requeued stale jobs", "count", n)
				}
			}
		}
	}()

	log.Info("worker started", "worker_id", workerID)

	if err := w.Run(ctx); err != nil {
		log.Error("worker stopped with error", "err", err)
	}

	shuttingDown.Store(true)

	sctx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()
	_ = probeSrv.Shutdown(sctx)

	log.Info("worker shutdown complete")
}

// The worker sends from the queue with retries of its own, so the circuit
// breaker is skipped here; a failed send is rescheduled, not dropped.
func buildNotifier(cfg config.Config, log *slog.Logger) notifications.Notifier {
	if cfg.SMTPHost != "" {
		return notifications.NewSMTPNotifier(notifications.SMTPConfig{
			Host:      cfg.SMTPHost,
			Port:      cfg.SMTPPort,
			Username:  cfg.SMTPUsername,
			Password:  cfg.SMTPPassword,
			FromEmail: cfg.SMTPFromEmail,
			FromName:  cfg.SMTPFromName,
		})
	}

	log.Warn("SMTP_HOST not set, emails are logged instead of sent")
	return notifications.NewLogNotifier(log)
}
