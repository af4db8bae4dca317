package refund

import (
	"errors"
	"time"
)

type Status string

const (
	StatusPending  Status = "Pending"
	StatusApproved Status = "Approved"
	StatusRejected Status = "Rejected"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	default:
		return false
	}
}

var (
	ErrNotFound      = errors.New("refund request not found")
	ErrInvalidStatus = errors.New("invalid refund status")
)

type Refund struct {
	ID          string    `json:"id"`
	OrderID     string    `json:"orderId"`
	ClientName  string    `json:"clientName"`
	ClientEmail string    `json:"clientEmail"`
	Amount      float64   `json:"amount"`
	Reason      string    `json:"reason"`
	Status      Status    `json:"status"`
	RequestedAt time.Time `json:"requestedAt"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type CreateRefundRequest struct {
	OrderID     string  `json:"orderId" binding:"required"`
	ClientName  string  `json:"clientName" binding:"required,min=2"`
	ClientEmail string  `json:"clientEmail" binding:"required,email"`
	Amount      float64 `json:"amount" binding:"required,gt=0"`
	Reason      string  `json:"reason" binding:"required"`
}

type UpdateStatusRequest struct {
	Status Status `json:"status" binding:"required,oneof=Pending Approved Rejected"`
}
