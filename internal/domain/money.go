package domain

import "github.com/shopspring/decimal"

// RoundCents rounds an amount to 2 decimal places, half away from zero.
// The decimal conversion uses the shortest representation of v, so 2.675 rounds to 2.68.
func RoundCents(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

func roundedPtr(v float64) *float64 {
	r := RoundCents(v)
	return &r
}

func floatPtr(v float64) *float64 {
	return &v
}

func centsEqual(a, b float64) bool {
	return decimal.NewFromFloat(a).Round(2).Equal(decimal.NewFromFloat(b).Round(2))
}
