package domain

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// percentFor walks the breakpoints and returns the first that covers price,
// falling back to the last breakpoint when price exceeds them all.
func (rc ReferralCategory) percentFor(price float64) float64 {
	for _, bp := range rc.Breakpoints {
		if bp.covers(price) {
			return bp.Percent
		}
	}
	return rc.Breakpoints[len(rc.Breakpoints)-1].Percent
}

// fee is price × percent, floored at the category minimum
func (rc ReferralCategory) fee(price float64) decimal.Decimal {
	amount := decimal.NewFromFloat(price).Mul(decimal.NewFromFloat(rc.percentFor(price))).Div(hundred)
	if amount.LessThan(rc.MinimumFee) {
		return rc.MinimumFee
	}
	return amount
}

// ReferralFeePercent returns the referral percentage for category at price.
// When the category minimum fee exceeds the percentage amount, the minimum
// is expressed as a percentage of price instead, capped at 100. Unknown
// categories and unusable prices yield nil.
func (c *RateCard) ReferralFeePercent(category string, price float64) *float64 {
	cat, ok := c.referral[normaliseName(category)]
	if !ok || !isPositiveValue(price) {
		return nil
	}

	pct := cat.percentFor(price)
	p := decimal.NewFromFloat(price)
	if p.Mul(decimal.NewFromFloat(pct)).Div(hundred).LessThan(cat.MinimumFee) {
		pct, _ = decimal.Min(cat.MinimumFee.Div(p).Mul(hundred), hundred).Float64()
	}
	return &pct
}

// ReferralFee returns the referral fee amount in the card's currency, rounded to cents
func (c *RateCard) ReferralFee(category string, price float64) *float64 {
	cat, ok := c.referral[normaliseName(category)]
	if !ok || !isPositiveValue(price) {
		return nil
	}
	amount, _ := cat.fee(price).Round(2).Float64()
	return &amount
}

// ReferralFeePercent looks category up on the US card
func ReferralFeePercent(category string, price float64) *float64 {
	card, err := RateCardFor(RegionUS)
	if err != nil {
		return nil
	}
	return card.ReferralFeePercent(category, price)
}

// ReferralFee prices category at price on the US card
func ReferralFee(category string, price float64) *float64 {
	card, err := RateCardFor(RegionUS)
	if err != nil {
		return nil
	}
	return card.ReferralFee(category, price)
}

// ReferralFeePercentForTenant picks the tenant's regional card and applies the
// same breakpoint walk. Tenants without a region use the default region.
func ReferralFeePercentForTenant(tenant TenantProfile, category string, price float64) *float64 {
	region := tenant.Region
	if region == "" {
		region = DefaultRegion
	}
	card, err := RateCardFor(region)
	if err != nil {
		return nil
	}
	return card.ReferralFeePercent(category, price)
}
