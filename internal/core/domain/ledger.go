package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// LedgerOperation is one operation read from the remote blockchain
// ledger. Read-only and never persisted as authoritative; used solely
// for reconciliation against locally recorded transactions.
type LedgerOperation struct {
	ID            string          `json:"id"` // ledger paging token / cursor
	Type          string          `json:"type"`
	SourceAccount string          `json:"source_account"`
	From          string          `json:"from"`
	To            string          `json:"to"`
	Amount        decimal.Decimal `json:"amount"`
	Asset         string          `json:"asset"`
	TxHash        string          `json:"tx_hash"`
	CreatedAt     time.Time       `json:"created_at"`
}
