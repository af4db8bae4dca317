package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/followerscart/backend/internal/domain/refund"
	"github.com/followerscart/backend/internal/observability"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RefundsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewRefundsRepo(pool *pgxpool.Pool, prom *observability.Prom) *RefundsRepo {
	return &RefundsRepo{pool: pool, prom: prom}
}

func (r *RefundsRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

const refundColumns = `id, order_id, client_name, client_email, amount, reason, status, requested_at, created_at, updated_at`

func scanRefund(row pgx.Row) (refund.Refund, error) {
	var rf refund.Refund

	err := row.Scan(
		&rf.ID,
		&rf.OrderID,
		&rf.ClientName,
		&rf.ClientEmail,
		&rf.Amount,
		&rf.Reason,
		&rf.Status,
		&rf.RequestedAt,
		&rf.CreatedAt,
		&rf.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return refund.Refund{}, refund.ErrNotFound
		}
		return refund.Refund{}, err
	}
	return rf, nil
}

func (r *RefundsRepo) Create(ctx context.Context, req refund.CreateRefundRequest) (refund.Refund, error) {
	now := time.Now().UTC()

	rf := refund.Refund{
		ID:          uuid.NewString(),
		OrderID:     req.OrderID,
		ClientName:  req.ClientName,
		ClientEmail: req.ClientEmail,
		Amount:      req.Amount,
		Reason:      req.Reason,
		Status:      refund.StatusPending,
		RequestedAt: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := r.observe("refunds.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO refunds (id, order_id, client_name, client_email, amount, reason, status, requested_at, created_at, updated_at)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			rf.ID, rf.OrderID, rf.ClientName, rf.ClientEmail, rf.Amount, rf.Reason, string(rf.Status), rf.RequestedAt, rf.CreatedAt, rf.UpdatedAt,
		)
		return err
	})

	if err != nil {
		return refund.Refund{}, err
	}

	return rf, nil
}

func (r *RefundsRepo) GetByID(ctx context.Context, id string) (refund.Refund, error) {
	var rf refund.Refund
	var err error

	err = r.observe("refunds.get_by_id", func() error {
		rf, err = scanRefund(r.pool.QueryRow(ctx,
			`SELECT `+refundColumns+` FROM refunds WHERE id = $1`, id))
		return err
	})

	return rf, err
}

func (r *RefundsRepo) List(ctx context.Context) ([]refund.Refund, error) {
	var out []refund.Refund

	err := r.observe("refunds.list", func() error {
		rows, err := r.pool.Query(ctx,
			`SELECT `+refundColumns+` FROM refunds ORDER BY requested_at DESC`)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			rf, err := scanRefund(rows)
			if err != nil {
				return err
			}
			out = append(out, rf)
		}
		return rows.Err()
	})

	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []refund.Refund{}
	}
	return out, nil
}

func (r *RefundsRepo) UpdateStatus(ctx context.Context, id string, status refund.Status) (refund.Refund, error) {
	if !status.IsValid() {
		return refund.Refund{}, refund.ErrInvalidStatus
	}

	var rf refund.Refund
	var err error

	err = r.observe("refunds.update_status", func() error {
		rf, err = scanRefund(r.pool.QueryRow(ctx,
			`UPDATE refunds
         SET status = $2, updated_at = NOW()
         WHERE id = $1
         RETURNING `+refundColumns,
			id, string(status),
		))
		return err
	})

	return rf, err
}
