package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Wallet is a balance-holding account scoped to one owner and one currency.
type Wallet struct {
	ID           uuid.UUID        `json:"id"`
	OwnerID      uuid.UUID        `json:"owner_id"`
	Currency     string           `json:"currency"`
	Balance      decimal.Decimal  `json:"balance"`
	IsActive     bool             `json:"is_active"`
	DailyLimit   *decimal.Decimal `json:"daily_limit,omitempty"`
	MonthlyLimit *decimal.Decimal `json:"monthly_limit,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// CanCover reports whether the balance is at least amount.
func (w *Wallet) CanCover(amount decimal.Decimal) bool {
	return w.Balance.GreaterThanOrEqual(amount)
}
