package domain

import (
	"embed"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

//go:embed ratecards/*.yaml
var rateCardFiles embed.FS

var rateCardFileNames = map[Region]string{
	RegionUS: "ratecards/us_2026.yaml",
	RegionUK: "ratecards/uk_2026.yaml",
}

// PriceBand is the listing-price column of a fulfillment fee table
type PriceBand int

const (
	PriceBandUnder10 PriceBand = iota
	PriceBand10To50
	PriceBandOver50
)

// PriceBandFor places a price in its band: under 10, 10 to 50 inclusive, over 50
func PriceBandFor(price float64) PriceBand {
	switch {
	case price < 10:
		return PriceBandUnder10
	case price <= 50:
		return PriceBand10To50
	default:
		return PriceBandOver50
	}
}

func (b PriceBand) String() string {
	switch b {
	case PriceBandUnder10:
		return "under_10"
	case PriceBand10To50:
		return "10_to_50"
	default:
		return "over_50"
	}
}

// Overage is a per-pound charge on shipping weight above a threshold
type Overage struct {
	AboveLb decimal.Decimal `json:"aboveLb"`
	PerLb   decimal.Decimal `json:"perLb"`
}

// FeeRow is one weight band of a fulfillment table.
// MaxWeightLb of zero means the band has no upper bound.
type FeeRow struct {
	MaxWeightLb float64            `json:"maxWeightLb"`
	Fees        [3]decimal.Decimal `json:"fees"`
	Overage     Overage            `json:"overage"`
}

func (r FeeRow) covers(weightLb float64) bool {
	return r.MaxWeightLb == 0 || weightLb <= r.MaxWeightLb
}

// ReferralBreakpoint applies Percent to prices up to and including UpTo, or
// strictly below Below. A breakpoint with neither bound covers every higher price.
type ReferralBreakpoint struct {
	UpTo    float64 `json:"upTo,omitempty"`
	Below   float64 `json:"below,omitempty"`
	Percent float64 `json:"percent"`
}

func (bp ReferralBreakpoint) bound() float64 {
	if bp.Below > 0 {
		return bp.Below
	}
	return bp.UpTo
}

func (bp ReferralBreakpoint) covers(price float64) bool {
	switch {
	case bp.Below > 0:
		return price < bp.Below
	case bp.UpTo > 0:
		return price <= bp.UpTo
	default:
		return true
	}
}

// ReferralCategory is a canonical category with its ordered breakpoints
type ReferralCategory struct {
	Name        string               `json:"name"`
	MinimumFee  decimal.Decimal      `json:"minimumFee"`
	Breakpoints []ReferralBreakpoint `json:"breakpoints"`
}

// RateCard is the immutable fee data for one marketplace region.
// Accessors hand out copies; nothing can modify a loaded card.
type RateCard struct {
	region        Region
	currency      string
	version       string
	effectiveFrom string
	fulfillment   map[SizeTier][]FeeRow
	referral      map[string]ReferralCategory
	categoryOrder []string
}

func (c *RateCard) Region() Region { return c.region }

func (c *RateCard) Currency() string { return c.currency }

func (c *RateCard) Version() string { return c.version }

func (c *RateCard) EffectiveFrom() string { return c.effectiveFrom }

// FulfillmentTable returns a copy of the tier's rows
func (c *RateCard) FulfillmentTable(tier SizeTier) ([]FeeRow, bool) {
	rows, ok := c.fulfillment[tier]
	if !ok {
		return nil, false
	}
	out := make([]FeeRow, len(rows))
	copy(out, rows)
	return out, true
}

// FulfillmentTiers lists the tiers this card prices, smallest first
func (c *RateCard) FulfillmentTiers() []SizeTier {
	var tiers []SizeTier
	for _, t := range sizeTierOrder {
		if _, ok := c.fulfillment[t]; ok {
			tiers = append(tiers, t)
		}
	}
	return tiers
}

// ReferralCategories returns copies of every category in published order
func (c *RateCard) ReferralCategories() []ReferralCategory {
	out := make([]ReferralCategory, 0, len(c.categoryOrder))
	for _, key := range c.categoryOrder {
		out = append(out, c.referral[key].clone())
	}
	return out
}

// ReferralCategory looks a category up by name, ignoring case and whitespace
func (c *RateCard) ReferralCategory(name string) (ReferralCategory, bool) {
	cat, ok := c.referral[normaliseName(name)]
	if !ok {
		return ReferralCategory{}, false
	}
	return cat.clone(), true
}

func (rc ReferralCategory) clone() ReferralCategory {
	bps := make([]ReferralBreakpoint, len(rc.Breakpoints))
	copy(bps, rc.Breakpoints)
	rc.Breakpoints = bps
	return rc
}

type rateCardDocument struct {
	Region        string                 `yaml:"region"`
	Currency      string                 `yaml:"currency"`
	Version       string                 `yaml:"version"`
	EffectiveFrom string                 `yaml:"effectiveFrom"`
	Fulfillment   []fulfillmentTableSpec `yaml:"fulfillment"`
	Referral      referralSpec           `yaml:"referral"`
}

type fulfillmentTableSpec struct {
	Tier string       `yaml:"tier"`
	Rows []feeRowSpec `yaml:"rows"`
}

type feeRowSpec struct {
	MaxWeightLb float64      `yaml:"maxWeightLb"`
	Fees        []float64    `yaml:"fees"`
	Overage     *overageSpec `yaml:"overage"`
}

type overageSpec struct {
	AboveLb float64 `yaml:"aboveLb"`
	PerLb   float64 `yaml:"perLb"`
}

type referralSpec struct {
	DefaultMinimumFee float64                `yaml:"defaultMinimumFee"`
	Categories        []referralCategorySpec `yaml:"categories"`
}

type referralCategorySpec struct {
	Name        string                   `yaml:"name"`
	MinimumFee  *float64                 `yaml:"minimumFee"`
	Breakpoints []referralBreakpointSpec `yaml:"breakpoints"`
}

type referralBreakpointSpec struct {
	UpTo    float64 `yaml:"upTo"`
	Below   float64 `yaml:"below"`
	Percent float64 `yaml:"percent"`
}

// ParseRateCard decodes and validates a YAML rate card
func ParseRateCard(data []byte) (*RateCard, error) {
	var doc rateCardDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode rate card: %w", err)
	}

	region, ok := ParseRegion(doc.Region)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRegion, doc.Region)
	}

	card := &RateCard{
		region:        region,
		currency:      doc.Currency,
		version:       doc.Version,
		effectiveFrom: doc.EffectiveFrom,
		fulfillment:   make(map[SizeTier][]FeeRow),
		referral:      make(map[string]ReferralCategory),
	}

	for _, table := range doc.Fulfillment {
		tier, ok := ParseSizeTier(table.Tier)
		if !ok {
			return nil, fmt.Errorf("rate card %s: unknown size tier %q", region, table.Tier)
		}
		if _, dup := card.fulfillment[tier]; dup {
			return nil, fmt.Errorf("rate card %s: duplicate table for %s", region, tier)
		}
		rows, err := buildFeeRows(table.Rows)
		if err != nil {
			return nil, fmt.Errorf("rate card %s, %s: %w", region, tier, err)
		}
		card.fulfillment[tier] = rows
	}

	for _, spec := range doc.Referral.Categories {
		cat, err := buildReferralCategory(spec, doc.Referral.DefaultMinimumFee)
		if err != nil {
			return nil, fmt.Errorf("rate card %s: %w", region, err)
		}
		key := normaliseName(cat.Name)
		if _, dup := card.referral[key]; dup {
			return nil, fmt.Errorf("rate card %s: duplicate referral category %q", region, cat.Name)
		}
		card.referral[key] = cat
		card.categoryOrder = append(card.categoryOrder, key)
	}

	return card, nil
}

func buildFeeRows(specs []feeRowSpec) ([]FeeRow, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("table has no rows")
	}

	rows := make([]FeeRow, 0, len(specs))
	for i, spec := range specs {
		if len(spec.Fees) != 3 {
			return nil, fmt.Errorf("row %d: want 3 price-band fees, got %d", i, len(spec.Fees))
		}
		if spec.MaxWeightLb == 0 && i != len(specs)-1 {
			return nil, fmt.Errorf("row %d: only the last row may be unbounded", i)
		}

		row := FeeRow{MaxWeightLb: spec.MaxWeightLb}
		for band, fee := range spec.Fees {
			if fee < 0 {
				return nil, fmt.Errorf("row %d: negative fee", i)
			}
			row.Fees[band] = decimal.NewFromFloat(fee)
		}
		if spec.Overage != nil {
			row.Overage = Overage{
				AboveLb: decimal.NewFromFloat(spec.Overage.AboveLb),
				PerLb:   decimal.NewFromFloat(spec.Overage.PerLb),
			}
		}

		if i > 0 {
			prev := rows[i-1]
			if row.MaxWeightLb != 0 && row.MaxWeightLb <= prev.MaxWeightLb {
				return nil, fmt.Errorf("row %d: weight bounds must ascend", i)
			}
			for band := range row.Fees {
				if row.Fees[band].LessThan(prev.Fees[band]) {
					return nil, fmt.Errorf("row %d: fees must not decrease with weight", i)
				}
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func buildReferralCategory(spec referralCategorySpec, defaultMinimum float64) (ReferralCategory, error) {
	if normaliseName(spec.Name) == "" {
		return ReferralCategory{}, fmt.Errorf("referral category without a name")
	}
	if len(spec.Breakpoints) == 0 {
		return ReferralCategory{}, fmt.Errorf("referral category %q has no breakpoints", spec.Name)
	}

	minimum := defaultMinimum
	if spec.MinimumFee != nil {
		minimum = *spec.MinimumFee
	}

	cat := ReferralCategory{
		Name:       spec.Name,
		MinimumFee: decimal.NewFromFloat(minimum),
	}
	for i, raw := range spec.Breakpoints {
		bp := ReferralBreakpoint{UpTo: raw.UpTo, Below: raw.Below, Percent: raw.Percent}
		if bp.Percent < 0 || bp.Percent > 100 {
			return ReferralCategory{}, fmt.Errorf("referral category %q: percent %v out of range", spec.Name, bp.Percent)
		}
		if bp.UpTo < 0 || bp.Below < 0 || (bp.UpTo > 0 && bp.Below > 0) {
			return ReferralCategory{}, fmt.Errorf("referral category %q: breakpoint %d needs one positive bound, upTo or below", spec.Name, i)
		}
		if bp.bound() == 0 && i != len(spec.Breakpoints)-1 {
			return ReferralCategory{}, fmt.Errorf("referral category %q: only the last breakpoint may be open", spec.Name)
		}
		if i > 0 && bp.bound() != 0 && bp.bound() <= cat.Breakpoints[i-1].bound() {
			return ReferralCategory{}, fmt.Errorf("referral category %q: breakpoints must ascend", spec.Name)
		}
		cat.Breakpoints = append(cat.Breakpoints, bp)
	}
	return cat, nil
}

var (
	rateCardsOnce sync.Once
	rateCards     map[Region]*RateCard
	rateCardsErr  error
)

func loadRateCards() {
	cards := make(map[Region]*RateCard, len(rateCardFileNames))
	for region, name := range rateCardFileNames {
		data, err := rateCardFiles.ReadFile(name)
		if err != nil {
			rateCardsErr = fmt.Errorf("failed to read rate card %s: %w", name, err)
			return
		}
		card, err := ParseRateCard(data)
		if err != nil {
			rateCardsErr = err
			return
		}
		if card.region != region {
			rateCardsErr = fmt.Errorf("rate card %s declares region %s", name, card.region)
			return
		}
		cards[region] = card
	}
	rateCards = cards
}

// RateCardFor returns the embedded card for region. Cards are loaded once per process.
func RateCardFor(region Region) (*RateCard, error) {
	rateCardsOnce.Do(loadRateCards)
	if rateCardsErr != nil {
		return nil, rateCardsErr
	}
	card, ok := rateCards[region]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRateCardNotFound, region)
	}
	return card, nil
}
