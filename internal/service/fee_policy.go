package service

import (
	"nfc-wallet/internal/core/domain"

	"github.com/shopspring/decimal"
)

// PercentageFeePolicy implements ports.FeePolicy: payments pay rate*amount
// plus a fixed part, transfers are free.
type PercentageFeePolicy struct {
	PaymentRate  decimal.Decimal
	PaymentFixed decimal.Decimal
}

// NewPercentageFeePolicy creates a fee policy for payments.
func NewPercentageFeePolicy(rate, fixed decimal.Decimal) *PercentageFeePolicy {
	return &PercentageFeePolicy{PaymentRate: rate, PaymentFixed: fixed}
}

// Fee returns the fee rounded half away from zero to cents.
func (p *PercentageFeePolicy) Fee(txType domain.TransactionType, amount decimal.Decimal) decimal.Decimal {
	if txType != domain.TransactionTypePayment {
		return decimal.Zero
	}
	return domain.RoundMoney(amount.Mul(p.PaymentRate).Add(p.PaymentFixed))
}
