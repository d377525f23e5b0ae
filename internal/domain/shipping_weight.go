package domain

import "math"

const (
	// DimensionalWeightDivisor converts cubic inches to pounds
	DimensionalWeightDivisor = 139.0

	minimumSideInches = 2.0

	ounceStepLb   = 1.0 / 16
	quarterStepLb = 0.25
	poundStepLb   = 1.0

	roundingTolerance = 1e-9
)

// DimensionalWeight is longest × median × shortest / 139 in inches.
// Bulky, extra-large and overmax tiers floor median and shortest at 2 in first.
func DimensionalWeight(p Package, tier SizeTier) float64 {
	median, shortest := p.Median, p.Shortest
	if tier.usesMinimumSides() {
		median = math.Max(median, minimumSideInches)
		shortest = math.Max(shortest, minimumSideInches)
	}
	return p.Longest * median * shortest / DimensionalWeightDivisor
}

// ChargeableWeight is the greater of unit and dimensional weight, except for
// Small Standard-Size and Extra-Large 150+ lb which charge unit weight only.
func ChargeableWeight(p Package, tier SizeTier) (float64, bool) {
	if !tier.IsValid() {
		return 0, false
	}
	if tier.ignoresDimensionalWeight() {
		return p.WeightLb, true
	}
	return math.Max(p.WeightLb, DimensionalWeight(p, tier)), true
}

// RoundShippingWeight rounds a chargeable weight up to the tier's billing increment:
// 1/16 lb below one pound, whole pounds for bulky and larger tiers, quarter pounds otherwise.
func RoundShippingWeight(weightLb float64, tier SizeTier) float64 {
	switch {
	case weightLb < 1:
		return roundUpTo(weightLb, ounceStepLb)
	case tier.roundsToWholePound():
		return roundUpTo(weightLb, poundStepLb)
	default:
		return roundUpTo(weightLb, quarterStepLb)
	}
}

// ShippingWeight is the rounded chargeable weight used as the fee-table key
func ShippingWeight(p Package, tier SizeTier) (float64, bool) {
	w, ok := ChargeableWeight(p, tier)
	if !ok {
		return 0, false
	}
	return RoundShippingWeight(w, tier), true
}

// roundUpTo rounds v up to a multiple of step. The tolerance keeps values that
// are already on a step, give or take float error, where they are.
func roundUpTo(v, step float64) float64 {
	if v <= 0 {
		return 0
	}
	r := math.Ceil(v/step-roundingTolerance) * step
	if r < step {
		r = step
	}
	return r
}
