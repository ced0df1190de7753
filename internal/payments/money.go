package payments

import "github.com/shopspring/decimal"

// FormatBRL renders an amount as "R$ 123.40".
func FormatBRL(amount decimal.Decimal) string {
	return "R$ " + amount.StringFixed(2)
}
