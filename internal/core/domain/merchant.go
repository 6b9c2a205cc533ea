package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MerchantStatus represents the state of a merchant account.
type MerchantStatus string

const (
	MerchantStatusActive    MerchantStatus = "ACTIVE"
	MerchantStatusSuspended MerchantStatus = "SUSPENDED"
)

// MerchantRole separates regular merchants from platform administrators
// who operate the manual withdrawal approval path.
type MerchantRole string

const (
	MerchantRoleMerchant MerchantRole = "MERCHANT"
	MerchantRoleAdmin    MerchantRole = "ADMIN"
)

// MerchantTier selects the fee policy applied to the merchant's payments.
type MerchantTier string

const (
	MerchantTierFree       MerchantTier = "FREE"
	MerchantTierStandard   MerchantTier = "STANDARD"
	MerchantTierEnterprise MerchantTier = "ENTERPRISE"
)

// Merchant represents a registered merchant in the system. The balance
// fields are the single piece of mutable shared state; every mutation
// goes through a conditional UPDATE, never a blind overwrite.
type Merchant struct {
	ID           uuid.UUID      `json:"id"`
	Username     string         `json:"username"`
	PasswordHash string         `json:"-"` // Never expose
	MerchantName string         `json:"merchant_name"`
	Role         MerchantRole   `json:"role"`
	Tier         MerchantTier   `json:"tier"`
	Status       MerchantStatus `json:"status"`
	// AvailableBalance is credited on payment completion and debited
	// (gross) on withdrawal approval. Invariant: never negative.
	AvailableBalance decimal.Decimal `json:"available_balance"`
	TotalWithdrawn   decimal.Decimal `json:"total_withdrawn"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// IsActive returns true if the merchant account is active.
func (m *Merchant) IsActive() bool {
	return m.Status == MerchantStatusActive
}

// IsAdmin returns true for platform administrator accounts.
func (m *Merchant) IsAdmin() bool {
	return m.Role == MerchantRoleAdmin
}

// FeePolicyFor maps a merchant tier onto the fee policy for incoming
// payments. standardRate comes from configuration.
func FeePolicyFor(tier MerchantTier, standardRate decimal.Decimal) FeePolicy {
	switch tier {
	case MerchantTierFree:
		return FeePolicy{Type: FeePolicyFree}
	case MerchantTierEnterprise:
		return FeePolicy{Type: FeePolicyZero}
	default:
		return FeePolicy{Type: FeePolicyFlatPercent, Rate: standardRate}
	}
}
