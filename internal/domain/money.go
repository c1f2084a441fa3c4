// internal/domain/money.go
package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ValidAmount reports whether a is a positive amount with at most two decimal
// places, the fixed scale every persisted monetary field uses.
func ValidAmount(a decimal.Decimal) bool {
	return a.IsPositive() && a.Equal(a.Round(2))
}

// NormalizeCurrency upper-cases and trims a currency code. An empty result or
// a length other than 3 means the code is unusable.
func NormalizeCurrency(code string) (string, bool) {
	c := strings.ToUpper(strings.TrimSpace(code))
	return c, len(c) == 3
}
