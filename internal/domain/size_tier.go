package domain

import "strings"

// SizeTier is the FBA package classification that selects a fee table
type SizeTier string

const (
	SizeTierSmallStandard     SizeTier = "Small Standard-Size"
	SizeTierLargeStandard     SizeTier = "Large Standard-Size"
	SizeTierSmallBulky        SizeTier = "Small Bulky"
	SizeTierLargeBulky        SizeTier = "Large Bulky"
	SizeTierExtraLarge0To50   SizeTier = "Extra-Large 0 to 50 lb"
	SizeTierExtraLarge50To70  SizeTier = "Extra-Large 50+ to 70 lb"
	SizeTierExtraLarge70To150 SizeTier = "Extra-Large 70+ to 150 lb"
	SizeTierExtraLarge150Plus SizeTier = "Extra-Large 150+ lb"
	SizeTierOvermax           SizeTier = "Overmax"
)

// sizeTierOrder lists tiers smallest first. Overmax predates the
// extra-large bands and is only ever parsed from stored data.
var sizeTierOrder = [...]SizeTier{
	SizeTierSmallStandard,
	SizeTierLargeStandard,
	SizeTierSmallBulky,
	SizeTierLargeBulky,
	SizeTierExtraLarge0To50,
	SizeTierExtraLarge50To70,
	SizeTierExtraLarge70To150,
	SizeTierExtraLarge150Plus,
	SizeTierOvermax,
}

// SizeTiers returns every known tier, smallest first
func SizeTiers() []SizeTier {
	out := make([]SizeTier, len(sizeTierOrder))
	copy(out, sizeTierOrder[:])
	return out
}

// ParseSizeTier matches s against the known tier names ignoring case and whitespace
func ParseSizeTier(s string) (SizeTier, bool) {
	key := normaliseName(s)
	for _, t := range sizeTierOrder {
		if normaliseName(string(t)) == key {
			return t, true
		}
	}
	return "", false
}

// IsValid reports whether t is a known tier
func (t SizeTier) IsValid() bool {
	return t.Rank() >= 0
}

// Rank is the tier's position, smallest first, or -1 when unknown
func (t SizeTier) Rank() int {
	for i, known := range sizeTierOrder {
		if known == t {
			return i
		}
	}
	return -1
}

// IsExtraLarge reports whether t is one of the weight-banded extra-large tiers
func (t SizeTier) IsExtraLarge() bool {
	switch t {
	case SizeTierExtraLarge0To50, SizeTierExtraLarge50To70, SizeTierExtraLarge70To150, SizeTierExtraLarge150Plus:
		return true
	}
	return false
}

// usesMinimumSides reports whether median and shortest are floored at 2 in
// before dimensional weight is computed
func (t SizeTier) usesMinimumSides() bool {
	return t == SizeTierSmallBulky || t == SizeTierLargeBulky || t == SizeTierOvermax || t.IsExtraLarge()
}

// roundsToWholePound reports whether shipping weight of 1 lb or more rounds up to whole pounds
func (t SizeTier) roundsToWholePound() bool {
	return t.usesMinimumSides()
}

// ignoresDimensionalWeight reports whether only unit weight is chargeable
func (t SizeTier) ignoresDimensionalWeight() bool {
	return t == SizeTierSmallStandard || t == SizeTierExtraLarge150Plus
}

// tierLimits are inclusive maxima in inches and pounds. Zero means unchecked.
type tierLimits struct {
	tier           SizeTier
	maxWeightLb    float64
	maxLongest     float64
	maxMedian      float64
	maxShortest    float64
	maxLengthGirth float64
}

func (l tierLimits) admits(p Package) bool {
	within := func(v, limit float64) bool { return limit == 0 || v <= limit }
	return within(p.WeightLb, l.maxWeightLb) &&
		within(p.Longest, l.maxLongest) &&
		within(p.Median, l.maxMedian) &&
		within(p.Shortest, l.maxShortest) &&
		within(p.LengthPlusGirth(), l.maxLengthGirth)
}

var dimensionalTiers = [...]tierLimits{
	{tier: SizeTierSmallStandard, maxWeightLb: 1, maxLongest: 15, maxMedian: 12, maxShortest: 0.75},
	{tier: SizeTierLargeStandard, maxWeightLb: 20, maxLongest: 18, maxMedian: 14, maxShortest: 8},
	{tier: SizeTierSmallBulky, maxWeightLb: 50, maxLongest: 37, maxMedian: 28, maxShortest: 20, maxLengthGirth: 130},
	{tier: SizeTierLargeBulky, maxWeightLb: 50, maxLongest: 59, maxMedian: 33, maxShortest: 33, maxLengthGirth: 130},
}

var extraLargeBands = [...]struct {
	tier        SizeTier
	maxWeightLb float64
}{
	{SizeTierExtraLarge0To50, 50},
	{SizeTierExtraLarge50To70, 70},
	{SizeTierExtraLarge70To150, 150},
}

// ClassifySizeTier returns the smallest tier whose limits all admit p.
// Limits are inclusive, so a package exactly on a limit stays in the smaller tier.
// Anything larger than Large Bulky falls into an extra-large band chosen by weight.
func ClassifySizeTier(p Package) SizeTier {
	for _, limits := range dimensionalTiers {
		if limits.admits(p) {
			return limits.tier
		}
	}
	for _, band := range extraLargeBands {
		if p.WeightLb <= band.maxWeightLb {
			return band.tier
		}
	}
	return SizeTierExtraLarge150Plus
}

func normaliseName(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
