// README: Common money value object used across modules.
package types

import "github.com/shopspring/decimal"

// Money holds an amount in minor units (cents) to keep stored fares exact.
type Money struct {
	Amount   int64  `json:"amount_cents"`
	Currency string `json:"currency"`
}

// MoneyFromFloat converts a major-unit amount (e.g. 65.50) into Money,
// rounding the decimal value half away from zero.
func MoneyFromFloat(v float64, currency string) Money {
	return Money{Amount: decimal.NewFromFloat(v).Shift(2).Round(0).IntPart(), Currency: currency}
}

// Float returns the amount in major units.
func (m Money) Float() float64 {
	return float64(m.Amount) / 100
}
