package domain

import "github.com/shopspring/decimal"

func (p Package) valid() bool {
	return isPositiveValue(p.Longest) && isPositiveValue(p.Median) &&
		isPositiveValue(p.Shortest) && isPositiveValue(p.WeightLb)
}

// FulfillmentFee prices one unit of p listed at price in the given tier.
// The fee is the matching row's price-band fee plus any per-pound overage,
// looked up by the rounded shipping weight. It returns nil when an input is
// unusable or the card has no table for the tier.
func (c *RateCard) FulfillmentFee(p Package, price float64, tier SizeTier) *float64 {
	if !p.valid() || !isPositiveValue(price) {
		return nil
	}
	rows, ok := c.fulfillment[tier]
	if !ok {
		return nil
	}
	weight, ok := ShippingWeight(p, tier)
	if !ok {
		return nil
	}

	for _, row := range rows {
		if !row.covers(weight) {
			continue
		}
		fee := row.Fees[PriceBandFor(price)]
		if row.Overage.PerLb.IsPositive() {
			excess := decimal.NewFromFloat(weight).Sub(row.Overage.AboveLb)
			if excess.IsPositive() {
				fee = fee.Add(row.Overage.PerLb.Mul(excess))
			}
		}
		amount, _ := fee.Round(2).Float64()
		return &amount
	}
	return nil
}

// FulfillmentFee prices p against the US card
func FulfillmentFee(p Package, price float64, tier SizeTier) *float64 {
	card, err := RateCardFor(RegionUS)
	if err != nil {
		return nil
	}
	return card.FulfillmentFee(p, price, tier)
}
