package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentStatus represents the lifecycle state of a payment intent.
type PaymentStatus string

const (
	PaymentStatusCreated           PaymentStatus = "CREATED"
	PaymentStatusPendingApproval   PaymentStatus = "PENDING_APPROVAL"
	PaymentStatusApproved          PaymentStatus = "APPROVED"
	PaymentStatusPendingCompletion PaymentStatus = "PENDING_COMPLETION"
	PaymentStatusCompleted         PaymentStatus = "COMPLETED"
	PaymentStatusFailed            PaymentStatus = "FAILED"
	PaymentStatusCancelled         PaymentStatus = "CANCELLED"
)

// PaymentIntent is the locally recorded side of one wallet payment.
// Created before any blockchain interaction; mutated only by handshake
// transitions; never deleted.
type PaymentIntent struct {
	ID         uuid.UUID         `json:"id"`
	MerchantID uuid.UUID         `json:"merchant_id"`
	// GrossAmount is the customer-facing charge including the platform
	// fee; BaseAmount is what the merchant is credited on completion.
	GrossAmount       decimal.Decimal `json:"gross_amount"`
	BaseAmount        decimal.Decimal `json:"base_amount"`
	FeeAmount         decimal.Decimal `json:"fee_amount"`
	Currency          string          `json:"currency"`
	Memo              string          `json:"memo"`
	Metadata          map[string]string `json:"metadata,omitempty"`
	Payer             *string         `json:"payer,omitempty"` // nil = anonymous
	Status            PaymentStatus   `json:"status"`
	ExternalPaymentID *string         `json:"external_payment_id,omitempty"` // wallet-SDK assigned
	ExternalTxHash    *string         `json:"external_tx_hash,omitempty"`    // set iff COMPLETED
	FailureReason     *string         `json:"failure_reason,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	ApprovedAt        *time.Time      `json:"approved_at,omitempty"`
	CompletedAt       *time.Time      `json:"completed_at,omitempty"`
	CancelledAt       *time.Time      `json:"cancelled_at,omitempty"`
	FailedAt          *time.Time      `json:"failed_at,omitempty"`
}

// IsTerminal returns true once no further transition is allowed.
func (p *PaymentIntent) IsTerminal() bool {
	return p.Status == PaymentStatusCompleted ||
		p.Status == PaymentStatusFailed ||
		p.Status == PaymentStatusCancelled
}

// IsCancellable reports whether the user/client may still abort.
func (p *PaymentIntent) IsCancellable() bool {
	switch p.Status {
	case PaymentStatusCreated, PaymentStatusPendingApproval, PaymentStatusApproved:
		return true
	}
	return false
}

// HandshakeEvent is one of the tagged events driving the payment state
// machine. The wallet SDK's callback bag maps onto these variants so
// transitions are checked in one place.
type HandshakeEvent interface {
	eventName() string
}

// EventSubmitted fires when the client SDK submits the payment and
// assigns the external payment identifier.
type EventSubmitted struct {
	ExternalPaymentID string
}

// EventApproved fires when server-side validation of the intent passes.
type EventApproved struct{}

// EventBroadcast fires when the SDK reports a broadcast transaction hash.
type EventBroadcast struct {
	TxHash string
}

// EventVerified fires when the server accepts the broadcast hash
// (synchronously verified or provisionally accepted).
type EventVerified struct{}

// EventCancelled fires when the user or client aborts.
type EventCancelled struct{}

// EventFailed fires on SDK error or failed validation.
type EventFailed struct {
	Reason string
}

func (EventSubmitted) eventName() string { return "submitted" }
func (EventApproved) eventName() string  { return "approved" }
func (EventBroadcast) eventName() string { return "broadcast" }
func (EventVerified) eventName() string  { return "verified" }
func (EventCancelled) eventName() string { return "cancelled" }
func (EventFailed) eventName() string    { return "failed" }

// NextStatus returns the state reached by applying ev in state current.
// Transitions within one intent are strictly ordered; anything not in
// the table is rejected.
func NextStatus(current PaymentStatus, ev HandshakeEvent) (PaymentStatus, error) {
	switch ev.(type) {
	case EventSubmitted:
		if current == PaymentStatusCreated {
			return PaymentStatusPendingApproval, nil
		}
	case EventApproved:
		if current == PaymentStatusPendingApproval {
			return PaymentStatusApproved, nil
		}
	case EventBroadcast:
		if current == PaymentStatusApproved {
			return PaymentStatusPendingCompletion, nil
		}
	case EventVerified:
		if current == PaymentStatusPendingCompletion {
			return PaymentStatusCompleted, nil
		}
	case EventCancelled:
		switch current {
		case PaymentStatusCreated, PaymentStatusPendingApproval, PaymentStatusApproved:
			return PaymentStatusCancelled, nil
		}
	case EventFailed:
		switch current {
		case PaymentStatusPendingApproval, PaymentStatusPendingCompletion, PaymentStatusApproved:
			return PaymentStatusFailed, nil
		}
	}
	return current, fmt.Errorf("event %q not allowed in state %s", ev.eventName(), current)
}
