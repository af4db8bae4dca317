package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/followerscart/backend/internal/config"
	"github.com/followerscart/backend/internal/domain/job"
	"github.com/followerscart/backend/internal/domain/refund"
	"github.com/gin-gonic/gin"
)

type RefundStore interface {
	Create(ctx context.Context, req refund.CreateRefundRequest) (refund.Refund, error)
	GetByID(ctx context.Context, id string) (refund.Refund, error)
	List(ctx context.Context) ([]refund.Refund, error)
	UpdateStatus(ctx context.Context, id string, status refund.Status) (refund.Refund, error)
}

// JobEnqueuer hides the queue table behind the single call the handler needs.
type JobEnqueuer interface {
	Create(ctx context.Context, req job.CreateRequest) (job.Job, error)
}

type RefundsHandler struct {
	store RefundStore
	jobs  JobEnqueuer
	log   *slog.Logger
}

func NewRefundsHandler(store RefundStore, jobs JobEnqueuer, log *slog.Logger) *RefundsHandler {
	if log == nil {
		log = slog.Default()
	}
	return &RefundsHandler{store: store, jobs: jobs, log: log}
}

// Create accepts a refund request from the storefront. The confirmation
// email goes through the job queue: a mail outage must not lose or reject
// the refund itself.
func (h *RefundsHandler) Create(ctx *gin.Context) {
	var req refund.CreateRefundRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	r, err := h.store.Create(cctx, req)

	if err != nil {
		RespondInternal(ctx, "Could not submit refund request")
		return
	}

	h.enqueueReceived(cctx, r)

	ctx.JSON(http.StatusCreated, gin.H{
		"msg":    "Refund request submitted successfully.",
		"refund": r,
	})
}

func (h *RefundsHandler) List(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	refunds, err := h.store.List(cctx)

	if err != nil {
		RespondInternal(ctx, "Could not fetch refund requests")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"refunds": refunds})
}

func (h *RefundsHandler) GetByID(ctx *gin.Context) {
	id := ctx.Param("id")

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	r, err := h.store.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, refund.ErrNotFound) {
			RespondNotFound(ctx, "Refund request not found.")
			return
		}
		RespondInternal(ctx, "Could not fetch refund request")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"refund": r})
}

func (h *RefundsHandler) UpdateStatus(ctx *gin.Context) {
	id := ctx.Param("id")

	var req refund.UpdateStatusRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	r, err := h.store.UpdateStatus(cctx, id, req.Status)

	if err != nil {
		if errors.Is(err, refund.ErrNotFound) {
			RespondNotFound(ctx, "Refund request not found.")
			return
		}
		RespondInternal(ctx, "Could not update refund status")
		return
	}

	h.enqueueStatusChanged(cctx, r)

	ctx.JSON(http.StatusOK, gin.H{"refund": r})
}

// Enqueue failures are logged, never surfaced: the state change already
// happened and the stale-job sweep plus idempotency keys keep retries safe.

func (h *RefundsHandler) enqueueReceived(ctx context.Context, r refund.Refund) {
	payload, err := job.EncodePayload(job.TypeRefundReceived, job.RefundReceivedPayload{
		RefundID:    r.ID,
		OrderID:     r.OrderID,
		ClientName:  r.ClientName,
		ClientEmail: r.ClientEmail,
		Amount:      r.Amount,
		RequestedAt: r.RequestedAt,
	})

	if err != nil {
		h.log.ErrorContext(ctx, "encode refund.received payload failed", "refund_id", r.ID, "err", err)
		return
	}

	key := job.TypeRefundReceived + ":" + r.ID

	_, err = h.jobs.Create(ctx, job.CreateRequest{
		Type:           job.TypeRefundReceived,
		Payload:        payload,
		IdempotencyKey: &key,
	})

	if err != nil {
		h.log.ErrorContext(ctx, "enqueue refund.received failed", "refund_id", r.ID, "err", err)
	}
}

func (h *RefundsHandler) enqueueStatusChanged(ctx context.Context, r refund.Refund) {
	payload, err := job.EncodePayload(job.TypeRefundStatusChanged, job.RefundStatusChangedPayload{
		RefundID:    r.ID,
		OrderID:     r.OrderID,
		ClientName:  r.ClientName,
		ClientEmail: r.ClientEmail,
		Status:      string(r.Status),
		ChangedAt:   r.UpdatedAt,
	})

	if err != nil {
		h.log.ErrorContext(ctx, "encode refund.status_changed payload failed", "refund_id", r.ID, "err", err)
		return
	}

	// One email per refund per status value.
	key := job.TypeRefundStatusChanged + ":" + r.ID + ":" + string(r.Status)

	_, err = h.jobs.Create(ctx, job.CreateRequest{
		Type:           job.TypeRefundStatusChanged,
		Payload:        payload,
		IdempotencyKey: &key,
	})

	if err != nil {
		h.log.ErrorContext(ctx, "enqueue refund.status_changed failed", "refund_id", r.ID, "err", err)
	}
}
