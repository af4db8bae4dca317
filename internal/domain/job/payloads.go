package job

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const (
	TypeRefundReceived      = "refund.received"
	TypeRefundStatusChanged = "refund.status_changed"
)

var (
	ErrInvalidJobType      = errors.New("invalid job type")
	ErrInvalidJobPayload   = errors.New("invalid job payload")
	ErrPayloadTypeMismatch = errors.New("payload type mismatch for job type")
)

func IsKnownType(t string) bool {
	switch t {
	case TypeRefundReceived, TypeRefundStatusChanged:
		return true
	default:
		return false
	}
}

type RefundReceivedPayload struct {
	RefundID    string    `json:"refundId"`
	OrderID     string    `json:"orderId"`
	ClientName  string    `json:"clientName"`
	ClientEmail string    `json:"clientEmail"`
	Amount      float64   `json:"amount"`
	RequestedAt time.Time `json:"requestedAt"`
}

type RefundStatusChangedPayload struct {
	RefundID    string    `json:"refundId"`
	OrderID     string    `json:"orderId"`
	ClientName  string    `json:"clientName"`
	ClientEmail string    `json:"clientEmail"`
	Status      string    `json:"status"`
	ChangedAt   time.Time `json:"changedAt"`
}

// EncodePayload marshals a typed payload after checking it matches the job type.
func EncodePayload(t string, payload any) (json.RawMessage, error) {
	if !IsKnownType(t) {
		return nil, ErrInvalidJobType
	}

	switch t {
	case TypeRefundReceived:
		switch payload.(type) {
		case RefundReceivedPayload, *RefundReceivedPayload:
		default:
			return nil, ErrPayloadTypeMismatch
		}
	case TypeRefundStatusChanged:
		switch payload.(type) {
		case RefundStatusChangedPayload, *RefundStatusChangedPayload:
		default:
			return nil, ErrPayloadTypeMismatch
		}
	}

	b, err := json.Marshal(payload)

	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJobPayload, err)
	}

	return b, nil
}

// DecodePayload unmarshals job.Payload into the typed payload for its type.
func DecodePayload(j Job) (any, error) {
	if !IsKnownType(j.Type) {
		return nil, ErrInvalidJobType
	}
	if len(j.Payload) == 0 {
		return nil, ErrInvalidJobPayload
	}

	switch j.Type {
	case TypeRefundReceived:
		var p RefundReceivedPayload
		if err := json.Unmarshal(j.Payload, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidJobPayload, err)
		}
		return p, nil

	case TypeRefundStatusChanged:
		var p RefundStatusChangedPayload
		if err := json.Unmarshal(j.Payload, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidJobPayload, err)
		}
		return p, nil

	default:
		return nil, ErrInvalidJobType
	}
}
