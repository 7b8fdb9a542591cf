package costing

import "github.com/shopspring/decimal"

var half = decimal.NewFromFloat(0.5)

// RoundGBP rounds half up to pence: floor(x*100 + 0.5) / 100.
func RoundGBP(d decimal.Decimal) decimal.Decimal {
	return d.Shift(2).Add(half).Floor().Shift(-2)
}

// RoundBDT rounds half up to a whole taka: floor(x + 0.5).
func RoundBDT(d decimal.Decimal) int64 {
	return d.Add(half).Floor().IntPart()
}
