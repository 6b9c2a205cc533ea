// Package dto defines the HTTP request and response shapes. Amounts
// cross the wire as decimal strings; parsing happens at the handler
// boundary so services only ever see decimal.Decimal.
package dto

import (
	"time"

	"chainpay-gateway/internal/core/domain"
	"chainpay-gateway/internal/core/ports"
)

// LoginRequest is the login payload.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse carries the issued token.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CreateIntentRequest is the payment intent creation payload.
type CreateIntentRequest struct {
	Amount   string            `json:"amount" binding:"required"`
	Currency string            `json:"currency"`
	Memo     string            `json:"memo"`
	Metadata map[string]string `json:"metadata"`
	Payer    *string           `json:"payer"`
}

// ApprovePaymentRequest is the wallet-SDK server-approval callback
// payload.
type ApprovePaymentRequest struct {
	PaymentID string  `json:"payment_id" binding:"required"` // wallet-SDK external id
	IntentID  string  `json:"intent_id" binding:"required"`
	Amount    string  `json:"amount" binding:"required"` // SDK-reported gross
	Payer     *string `json:"payer"`
}

// CompletePaymentRequest is the wallet-SDK server-completion callback
// payload.
type CompletePaymentRequest struct {
	PaymentID string `json:"payment_id" binding:"required"`
	TxHash    string `json:"tx_hash" binding:"required"`
}

// FailPaymentRequest is the wallet-SDK error callback payload.
type FailPaymentRequest struct {
	PaymentID string `json:"payment_id" binding:"required"`
	Reason    string `json:"reason"`
}

// PaymentIntentResponse is the API view of a payment intent.
type PaymentIntentResponse struct {
	ID                string            `json:"id"`
	MerchantID        string            `json:"merchant_id"`
	GrossAmount       string            `json:"gross_amount"`
	BaseAmount        string            `json:"base_amount"`
	FeeAmount         string            `json:"fee_amount"`
	Currency          string            `json:"currency,omitempty"`
	Memo              string            `json:"memo,omitempty"`
	Metadata          map[string]string `json:"metadata,omitempty"`
	Payer             *string           `json:"payer,omitempty"`
	Status            string            `json:"status"`
	ExternalPaymentID *string           `json:"external_payment_id,omitempty"`
	ExternalTxHash    *string           `json:"external_tx_hash,omitempty"`
	FailureReason     *string           `json:"failure_reason,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	CompletedAt       *time.Time        `json:"completed_at,omitempty"`
}

// FromPaymentIntent maps a domain intent to its API view.
func FromPaymentIntent(p *domain.PaymentIntent) PaymentIntentResponse {
	return PaymentIntentResponse{
		ID:                p.ID.String(),
		MerchantID:        p.MerchantID.String(),
		GrossAmount:       p.GrossAmount.String(),
		BaseAmount:        p.BaseAmount.String(),
		FeeAmount:         p.FeeAmount.String(),
		Currency:          p.Currency,
		Memo:              p.Memo,
		Metadata:          p.Metadata,
		Payer:             p.Payer,
		Status:            string(p.Status),
		ExternalPaymentID: p.ExternalPaymentID,
		ExternalTxHash:    p.ExternalTxHash,
		FailureReason:     p.FailureReason,
		CreatedAt:         p.CreatedAt,
		CompletedAt:       p.CompletedAt,
	}
}

// WithdrawalRequest is the payout request payload.
type WithdrawalRequest struct {
	Amount      string `json:"amount" binding:"required"`
	Destination string `json:"destination" binding:"required"`
}

// ApproveWithdrawalRequest is the admin approval payload.
type ApproveWithdrawalRequest struct {
	ExternalTxRef *string `json:"external_tx_ref"`
}

// RejectWithdrawalRequest is the admin rejection payload.
type RejectWithdrawalRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// WithdrawalResponse is the API view of a withdrawal.
type WithdrawalResponse struct {
	ID            string     `json:"id"`
	MerchantID    string     `json:"merchant_id"`
	Amount        string     `json:"amount"`
	Status        string     `json:"status"`
	Destination   string     `json:"destination"`
	ExternalTxRef *string    `json:"external_tx_ref,omitempty"`
	Note          string     `json:"note,omitempty"`
	FeeAmount     string     `json:"fee_amount,omitempty"`
	NetAmount     string     `json:"net_amount,omitempty"`
	RequestedAt   time.Time  `json:"requested_at"`
	ProcessedAt   *time.Time `json:"processed_at,omitempty"`
}

// FromWithdrawal maps a domain withdrawal to its API view.
func FromWithdrawal(w *domain.Withdrawal) WithdrawalResponse {
	return WithdrawalResponse{
		ID:            w.ID.String(),
		MerchantID:    w.MerchantID.String(),
		Amount:        w.Amount.String(),
		Status:        string(w.Status),
		Destination:   w.Destination,
		ExternalTxRef: w.ExternalTxRef,
		Note:          w.Note,
		RequestedAt:   w.RequestedAt,
		ProcessedAt:   w.ProcessedAt,
	}
}

// FromApprovalResult maps an approval result to its API view.
func FromApprovalResult(r *ports.ApprovalResult) WithdrawalResponse {
	out := FromWithdrawal(r.Withdrawal)
	out.FeeAmount = r.FeeAmount.String()
	out.NetAmount = r.NetAmount.String()
	return out
}

// LedgerOperationResponse is the API view of one ledger operation.
type LedgerOperationResponse struct {
	ID            string     `json:"id"`
	Type          string     `json:"type"`
	SourceAccount string     `json:"source_account,omitempty"`
	From          string     `json:"from,omitempty"`
	To            string     `json:"to,omitempty"`
	Amount        string     `json:"amount"`
	Asset         string     `json:"asset,omitempty"`
	TxHash        string     `json:"tx_hash"`
	CreatedAt     *time.Time `json:"created_at,omitempty"`
}

// LedgerSyncResponse is the reconciliation view payload. Partial means
// the walk stopped early; LastCursor lets the caller resume.
type LedgerSyncResponse struct {
	Operations []LedgerOperationResponse `json:"operations"`
	LastCursor string                    `json:"last_cursor,omitempty"`
	Pages      int                       `json:"pages"`
	Partial    bool                      `json:"partial"`
}

// FromSyncResult maps a sync result to its API view.
func FromSyncResult(r *ports.SyncResult) LedgerSyncResponse {
	out := LedgerSyncResponse{
		LastCursor: r.LastCursor,
		Pages:      r.Pages,
		Partial:    r.Partial,
	}
	for _, op := range r.Operations {
		view := LedgerOperationResponse{
			ID:            op.ID,
			Type:          op.Type,
			SourceAccount: op.SourceAccount,
			From:          op.From,
			To:            op.To,
			Amount:        op.Amount.String(),
			Asset:         op.Asset,
			TxHash:        op.TxHash,
		}
		if !op.CreatedAt.IsZero() {
			t := op.CreatedAt
			view.CreatedAt = &t
		}
		out.Operations = append(out.Operations, view)
	}
	return out
}

// TransactionResponse is the API view of a settled transaction.
type TransactionResponse struct {
	ID              string    `json:"id"`
	PaymentIntentID string    `json:"payment_intent_id"`
	Amount          string    `json:"amount"`
	Status          string    `json:"status"`
	Payer           *string   `json:"payer,omitempty"`
	Memo            string    `json:"memo,omitempty"`
	TxHash          string    `json:"tx_hash"`
	CreatedAt       time.Time `json:"created_at"`
}

// FromTransaction maps a domain transaction to its API view.
func FromTransaction(t *domain.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:              t.ID.String(),
		PaymentIntentID: t.PaymentIntentID.String(),
		Amount:          t.Amount.String(),
		Status:          string(t.Status),
		Payer:           t.Payer,
		Memo:            t.Memo,
		TxHash:          t.TxHash,
		CreatedAt:       t.CreatedAt,
	}
}
