package domain

// FeeEstimateInput is everything a caller may know about a listing.
// Any field may be absent; the estimate reports what could not be computed.
type FeeEstimateInput struct {
	Package  PackageInput `bson:"package" json:"package"`
	Price    *float64     `bson:"price,omitempty" json:"price"`
	Category string       `bson:"category,omitempty" json:"category,omitempty"`
	// SizeTier overrides classification when set, e.g. with a tier Amazon reported
	SizeTier string `bson:"sizeTier,omitempty" json:"sizeTier,omitempty"`
}

// FeeEstimate is the engine output for one listing. Nil values mean "cannot compute".
type FeeEstimate struct {
	Region              Region    `bson:"region" json:"region"`
	Currency            string    `bson:"currency" json:"currency"`
	RateCardVersion     string    `bson:"rateCardVersion" json:"rateCardVersion"`
	SizeTier            *SizeTier `bson:"sizeTier,omitempty" json:"sizeTier"`
	DimensionalWeightLb *float64  `bson:"dimensionalWeightLb,omitempty" json:"dimensionalWeightLb"`
	ShippingWeightLb    *float64  `bson:"shippingWeightLb,omitempty" json:"shippingWeightLb"`
	FulfillmentFee      *float64  `bson:"fulfillmentFee,omitempty" json:"fulfillmentFee"`
	ReferralFeePercent  *float64  `bson:"referralFeePercent,omitempty" json:"referralFeePercent"`
	ReferralFee         *float64  `bson:"referralFee,omitempty" json:"referralFee"`
	TotalFees           *float64  `bson:"totalFees,omitempty" json:"totalFees"`
	MissingFields       []string  `bson:"missingFields,omitempty" json:"missingFields"`
}

// Complete reports whether every fee was computed
func (e FeeEstimate) Complete() bool {
	return len(e.MissingFields) == 0
}

// FeeCalculator runs the fee engine against one regional rate card
type FeeCalculator struct {
	card *RateCard
}

// NewFeeCalculator creates a calculator for card
func NewFeeCalculator(card *RateCard) *FeeCalculator {
	return &FeeCalculator{card: card}
}

// NewFeeCalculatorForRegion creates a calculator for the embedded card of region
func NewFeeCalculatorForRegion(region Region) (*FeeCalculator, error) {
	card, err := RateCardFor(region)
	if err != nil {
		return nil, err
	}
	return NewFeeCalculator(card), nil
}

// RateCard returns the card the calculator prices against
func (c *FeeCalculator) RateCard() *RateCard {
	return c.card
}

// ClassifySizeTier classifies the input's package, or returns nil when a measurement is unusable
func (c *FeeCalculator) ClassifySizeTier(in PackageInput) (*SizeTier, []string) {
	pkg, missing := in.Resolve()
	if len(missing) > 0 {
		return nil, missing
	}
	tier := ClassifySizeTier(pkg)
	return &tier, nil
}

// Estimate classifies the package and computes every fee it can.
// Missing or unusable inputs never cause an error; the fees depending on
// them stay nil and the inputs are listed in MissingFields.
func (c *FeeCalculator) Estimate(in FeeEstimateInput) FeeEstimate {
	est := FeeEstimate{
		Region:          c.card.Region(),
		Currency:        c.card.Currency(),
		RateCardVersion: c.card.Version(),
	}

	pkg, missing := in.Package.Resolve()
	packageOK := len(missing) == 0

	priceOK := isPositive(in.Price)
	if !priceOK {
		missing = append(missing, "price")
	}

	var tier SizeTier
	tierOK := false
	switch {
	case in.SizeTier != "":
		tier, tierOK = ParseSizeTier(in.SizeTier)
		if !tierOK {
			missing = append(missing, "sizeTier")
		}
	case packageOK:
		tier, tierOK = ClassifySizeTier(pkg), true
	}
	if tierOK {
		est.SizeTier = &tier
	}

	if packageOK && tierOK {
		est.DimensionalWeightLb = floatPtr(DimensionalWeight(pkg, tier))
		if w, ok := ShippingWeight(pkg, tier); ok {
			est.ShippingWeightLb = floatPtr(w)
		}
		if priceOK {
			est.FulfillmentFee = c.card.FulfillmentFee(pkg, *in.Price, tier)
			if est.FulfillmentFee == nil {
				missing = append(missing, "fulfillmentRates")
			}
		}
	}

	if normaliseName(in.Category) == "" {
		missing = append(missing, "category")
	} else if priceOK {
		est.ReferralFeePercent = c.card.ReferralFeePercent(in.Category, *in.Price)
		est.ReferralFee = c.card.ReferralFee(in.Category, *in.Price)
		if est.ReferralFeePercent == nil {
			missing = append(missing, "category")
		}
	}

	if est.FulfillmentFee != nil && est.ReferralFee != nil {
		est.TotalFees = roundedPtr(*est.FulfillmentFee + *est.ReferralFee)
	}
	if missing == nil {
		missing = []string{}
	}
	est.MissingFields = missing
	return est
}
