package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// MoneyScale is the number of fraction digits kept for every amount.
const MoneyScale = 2

// ValidAmount reports whether amount is strictly positive and carries no
// more than MoneyScale fraction digits.
func ValidAmount(amount decimal.Decimal) bool {
	if !amount.IsPositive() {
		return false
	}
	return amount.Equal(amount.Truncate(MoneyScale))
}

// RoundMoney rounds half away from zero to MoneyScale digits.
func RoundMoney(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(MoneyScale)
}

// NormalizeCurrency upper-cases a currency code.
func NormalizeCurrency(currency string) string {
	return strings.ToUpper(strings.TrimSpace(currency))
}

// ValidCurrency reports whether currency looks like an ISO 4217 code.
func ValidCurrency(currency string) bool {
	if len(currency) != 3 {
		return false
	}
	for _, r := range currency {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
