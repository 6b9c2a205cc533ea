package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionStatus represents the settlement state of a persisted transaction.
type TransactionStatus string

const (
	TransactionStatusCompleted TransactionStatus = "COMPLETED"
	TransactionStatusFailed    TransactionStatus = "FAILED"
)

// Transaction is the persisted record of a settled or attempted payment.
// Exactly one Transaction exists per PaymentIntent once persisted.
type Transaction struct {
	ID              uuid.UUID         `json:"id"`
	PaymentIntentID uuid.UUID         `json:"payment_intent_id"`
	MerchantID      uuid.UUID         `json:"merchant_id"`
	Amount          decimal.Decimal   `json:"amount"` // merchant-facing base amount
	Status          TransactionStatus `json:"status"`
	Payer           *string           `json:"payer,omitempty"` // nil = anonymous
	Memo            string            `json:"memo"`
	Metadata        map[string]string `json:"metadata,omitempty"`
	TxHash          string            `json:"tx_hash"`
	CreatedAt       time.Time         `json:"created_at"`
}
