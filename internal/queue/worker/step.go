package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/followerscart/backend/internal/domain/job"
	"github.com/followerscart/backend/internal/notifications"
)

// ProcessOne claims and runs a single job. The bool reports whether a job was
// claimed at all, so the caller knows when the queue is drained.
func (w *Worker) ProcessOne(ctx context.Context) (bool, error) {
	claimCtx, cancel := context.WithTimeout(ctx, 2*time.Second)

	j, err := w.repo.ClaimNext(claimCtx, w.cfg.WorkerID)
	cancel()

	if err != nil {
		if errors.Is(err, job.ErrJobNotFound) {
			return false, nil
		}

		return false, err
	}

	// A claimed job gets to finish even when the worker is shutting down.
	execCtx := ctx
	if w.cfg.ShutdownGrace > 0 {
		var execCancel context.CancelFunc
		execCtx, execCancel = context.WithTimeout(context.WithoutCancel(ctx), w.cfg.ShutdownGrace)
		defer execCancel()
	}

	start := time.Now()
	err = w.execute(execCtx, j)
	w.observeJob(j.Type, err, time.Since(start), j)

	if err != nil {
		w.handleFailure(execCtx, j, err)
		return true, nil
	}

	err = w.repo.MarkDone(execCtx, j.ID)

	if err != nil {
		_ = w.repo.MarkFailed(execCtx, j.ID, "mark_done_failed: "+err.Error())
		return true, err
	}

	return true, nil
}

func (w *Worker) execute(ctx context.Context, j job.Job) error {
	decoded, err := job.DecodePayload(j)

	if err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}

	switch p := decoded.(type) {
	case job.RefundReceivedPayload:
		body, err := notifications.RefundReceivedBody(p.ClientName, p.OrderID, p.Amount)
		if err != nil {
			return fmt.Errorf("render refund received email: %w", err)
		}
		return w.notifier.Send(ctx, p.ClientEmail, notifications.SubjectRefundReceived, body)

	case job.RefundStatusChangedPayload:
		body, err := notifications.RefundStatusBody(p.ClientName, p.OrderID, p.Status)
		if err != nil {
			return fmt.Errorf("render refund status email: %w", err)
		}
		return w.notifier.Send(ctx, p.ClientEmail, notifications.SubjectRefundStatus, body)

	default:
		return fmt.Errorf("%w: %s", job.ErrInvalidJobType, j.Type)
	}
}

func (w *Worker) handleFailure(ctx context.Context, j job.Job, execErr error) {
	// Attempts counts finished retries; this execution is attempt+1. The
	// last allowed one must go straight to failed, a reschedule at the cap
	// would never be claimed again.
	if j.Attempts+1 >= j.MaxAttempts {
		w.log.Error("job exhausted retries", "job_id", j.ID, "type", j.Type, "attempts", j.Attempts, "err", execErr)

		if err := w.repo.MarkFailed(ctx, j.ID, execErr.Error()); err != nil {
			w.log.Error("mark failed error", "job_id", j.ID, "err", err)
		}
		return
	}

	delay := ExponentialBackoff(j.Attempts)
	runAt := time.Now().UTC().Add(delay)

	w.log.Warn("job failed, retrying", "job_id", j.ID, "type", j.Type, "attempts", j.Attempts, "retry_in", delay, "err", execErr)

	if err := w.repo.Reschedule(ctx, j.ID, runAt, execErr.Error()); err != nil {
		w.log.Error("reschedule error", "job_id", j.ID, "err", err)
	}
}

func (w *Worker) observeJob(jobType string, err error, elapsed time.Duration, j job.Job) {
	if w.prom == nil {
		return
	}

	result := "done"
	if err != nil {
		result = "retry"
		if j.Attempts+1 >= j.MaxAttempts {
			result = "failed"
		}
	}

	w.prom.JobDuration.WithLabelValues(jobType, result).Observe(elapsed.Seconds())
	w.prom.JobResults.WithLabelValues(jobType, result).Inc()
}
