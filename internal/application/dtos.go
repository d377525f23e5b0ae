package application

import (
	"time"

	"github.com/sellerops/fba-fees/internal/domain"
)

// PackageDTO carries parcel measurements. Sides may be given discretely or,
// for older clients, as a single "L x W x H unit" string in Dimensions.
type PackageDTO struct {
	Length     domain.FlexNumber `json:"length"`
	Width      domain.FlexNumber `json:"width"`
	Height     domain.FlexNumber `json:"height"`
	LengthUnit string            `json:"lengthUnit" binding:"length_unit"`
	Dimensions string            `json:"dimensions,omitempty"`
	Weight     domain.FlexNumber `json:"weight"`
	WeightUnit string            `json:"weightUnit" binding:"weight_unit"`
}

// FeeInputDTO is everything a caller may know about a listing
type FeeInputDTO struct {
	Package  PackageDTO        `json:"package"`
	Price    domain.FlexNumber `json:"price"`
	Category string            `json:"category"`
	SizeTier string            `json:"sizeTier,omitempty"`
}

// EstimateFeesCommand requests a full fee estimate
type EstimateFeesCommand struct {
	FeeInputDTO
}

// ClassifySizeTierCommand requests size tier classification only
type ClassifySizeTierCommand struct {
	Package PackageDTO `json:"package"`
}

// ReferralFeeQuery requests the referral fee of a category at a price
type ReferralFeeQuery struct {
	Category string `form:"category"`
	Price    string `form:"price"`
}

// SaveSKUFeeProfileCommand recomputes and stores the fee profile of a SKU
type SaveSKUFeeProfileCommand struct {
	FeeInputDTO
}

// CreateDiscrepancyCommand compares reference data with Amazon-reported data
type CreateDiscrepancyCommand struct {
	SKU       string      `json:"sku" binding:"required,sku"`
	Reference FeeInputDTO `json:"reference"`
	Reported  FeeInputDTO `json:"reported"`
}

// ListDiscrepanciesQuery pages through the reports of a SKU
type ListDiscrepanciesQuery struct {
	SKU      string
	Page     int64 `form:"page"`
	PageSize int64 `form:"pageSize"`
}

// UpdateTenantSettingsCommand changes the tenant marketplace
type UpdateTenantSettingsCommand struct {
	Region string `json:"region" binding:"required,region"`
}

// FeeEstimateDTO is a fee estimate returned to callers
type FeeEstimateDTO struct {
	domain.FeeEstimate
}

// SizeTierDTO is the classification of one package
type SizeTierDTO struct {
	SizeTier            *domain.SizeTier `json:"sizeTier"`
	DimensionalWeightLb *float64         `json:"dimensionalWeightLb"`
	ShippingWeightLb    *float64         `json:"shippingWeightLb"`
	MissingFields       []string         `json:"missingFields"`
}

// ReferralFeeDTO is the referral fee of a category at a price
type ReferralFeeDTO struct {
	Region        domain.Region `json:"region"`
	Currency      string        `json:"currency"`
	Category      string        `json:"category"`
	Price         *float64      `json:"price"`
	Percent       *float64      `json:"percent"`
	Fee           *float64      `json:"fee"`
	MissingFields []string      `json:"missingFields"`
}

// RateCardDTO renders a regional rate card
type RateCardDTO struct {
	Region        domain.Region         `json:"region"`
	Currency      string                `json:"currency"`
	Version       string                `json:"version"`
	EffectiveFrom string                `json:"effectiveFrom"`
	PriceBands    []string              `json:"priceBands"`
	Fulfillment   []FulfillmentTableDTO `json:"fulfillment"`
	Referral      []ReferralCategoryDTO `json:"referral"`
}

// FulfillmentTableDTO is the weight bands of one size tier
type FulfillmentTableDTO struct {
	SizeTier domain.SizeTier `json:"sizeTier"`
	Rows     []FeeRowDTO     `json:"rows"`
}

// FeeRowDTO is one weight band. A nil MaxWeightLb is unbounded.
type FeeRowDTO struct {
	MaxWeightLb    *float64   `json:"maxWeightLb"`
	Fees           [3]float64 `json:"fees"`
	OverageAboveLb *float64   `json:"overageAboveLb,omitempty"`
	OveragePerLb   *float64   `json:"overagePerLb,omitempty"`
}

// ReferralCategoryDTO is one referral category
type ReferralCategoryDTO struct {
	Name        string                      `json:"name"`
	MinimumFee  float64                     `json:"minimumFee"`
	Breakpoints []domain.ReferralBreakpoint `json:"breakpoints"`
}

// SKUFeeProfileDTO is a stored SKU fee profile
type SKUFeeProfileDTO struct {
	ProfileID       string                  `json:"profileId"`
	TenantID        string                  `json:"tenantId"`
	SellerID        string                  `json:"sellerId,omitempty"`
	SKU             string                  `json:"sku"`
	Input           domain.FeeEstimateInput `json:"input"`
	Fees            domain.FeeEstimate      `json:"fees"`
	Region          domain.Region           `json:"region"`
	RateCardVersion string                  `json:"rateCardVersion"`
	CalculatedAt    time.Time               `json:"calculatedAt"`
	CreatedAt       time.Time               `json:"createdAt"`
	UpdatedAt       time.Time               `json:"updatedAt"`
}

// DiscrepancyReportDTO is a stored discrepancy report
type DiscrepancyReportDTO struct {
	ReportID      string                   `json:"reportId"`
	TenantID      string                   `json:"tenantId"`
	SellerID      string                   `json:"sellerId,omitempty"`
	SKU           string                   `json:"sku"`
	Status        domain.ComparisonStatus  `json:"status"`
	Comparisons   []domain.FieldComparison `json:"comparisons"`
	ReferenceFees domain.FeeEstimate       `json:"referenceFees"`
	ReportedFees  domain.FeeEstimate       `json:"reportedFees"`
	CreatedAt     time.Time                `json:"createdAt"`
}

// DiscrepancyListResponse is one page of discrepancy reports
type DiscrepancyListResponse struct {
	Data     []DiscrepancyReportDTO `json:"data"`
	Total    int64                  `json:"total"`
	Page     int64                  `json:"page"`
	PageSize int64                  `json:"pageSize"`
}

// TenantSettingsDTO is the tenant marketplace configuration.
// Stored is false when the tenant still runs on the service default.
type TenantSettingsDTO struct {
	TenantID  string        `json:"tenantId"`
	Region    domain.Region `json:"region"`
	Stored    bool          `json:"stored"`
	UpdatedAt *time.Time    `json:"updatedAt,omitempty"`
}

// StageDTO is one purchase order stage
type StageDTO struct {
	Stage    domain.PurchaseOrderStage  `json:"stage"`
	Position int                        `json:"position"`
	Next     *domain.PurchaseOrderStage `json:"next"`
}

// ToSKUFeeProfileDTO converts a domain SKUFeeProfile to DTO
func ToSKUFeeProfileDTO(p *domain.SKUFeeProfile) *SKUFeeProfileDTO {
	return &SKUFeeProfileDTO{
		ProfileID:       p.ProfileID,
		TenantID:        p.TenantID,
		SellerID:        p.SellerID,
		SKU:             p.SKU,
		Input:           p.Input,
		Fees:            p.Fees,
		Region:          p.Region,
		RateCardVersion: p.RateCardVersion,
		CalculatedAt:    p.CalculatedAt,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

// ToDiscrepancyReportDTO converts a domain DiscrepancyReport to DTO
func ToDiscrepancyReportDTO(r *domain.DiscrepancyReport) *DiscrepancyReportDTO {
	return &DiscrepancyReportDTO{
		ReportID:      r.ReportID,
		TenantID:      r.TenantID,
		SellerID:      r.SellerID,
		SKU:           r.SKU,
		Status:        r.Result.Status,
		Comparisons:   r.Result.Comparisons,
		ReferenceFees: r.ReferenceFees,
		ReportedFees:  r.ReportedFees,
		CreatedAt:     r.CreatedAt,
	}
}

// ToTenantSettingsDTO converts domain TenantSettings to DTO
func ToTenantSettingsDTO(s *domain.TenantSettings) *TenantSettingsDTO {
	updated := s.UpdatedAt
	return &TenantSettingsDTO{
		TenantID:  s.TenantID,
		Region:    s.Region,
		Stored:    true,
		UpdatedAt: &updated,
	}
}

// ToRateCardDTO renders a rate card
func ToRateCardDTO(card *domain.RateCard) *RateCardDTO {
	dto := &RateCardDTO{
		Region:        card.Region(),
		Currency:      card.Currency(),
		Version:       card.Version(),
		EffectiveFrom: card.EffectiveFrom(),
		PriceBands: []string{
			domain.PriceBandUnder10.String(),
			domain.PriceBand10To50.String(),
			domain.PriceBandOver50.String(),
		},
		Fulfillment: make([]FulfillmentTableDTO, 0),
		Referral:    make([]ReferralCategoryDTO, 0),
	}

	for _, tier := range card.FulfillmentTiers() {
		rows, _ := card.FulfillmentTable(tier)
		table := FulfillmentTableDTO{SizeTier: tier, Rows: make([]FeeRowDTO, 0, len(rows))}
		for _, row := range rows {
			table.Rows = append(table.Rows, toFeeRowDTO(row))
		}
		dto.Fulfillment = append(dto.Fulfillment, table)
	}

	for _, cat := range card.ReferralCategories() {
		minimum, _ := cat.MinimumFee.Float64()
		dto.Referral = append(dto.Referral, ReferralCategoryDTO{
			Name:        cat.Name,
			MinimumFee:  minimum,
			Breakpoints: cat.Breakpoints,
		})
	}
	return dto
}

func toFeeRowDTO(row domain.FeeRow) FeeRowDTO {
	var dto FeeRowDTO
	if row.MaxWeightLb > 0 {
		maxWeight := row.MaxWeightLb
		dto.MaxWeightLb = &maxWeight
	}
	for i, fee := range row.Fees {
		dto.Fees[i], _ = fee.Float64()
	}
	if row.Overage.PerLb.IsPositive() {
		above, _ := row.Overage.AboveLb.Float64()
		perLb, _ := row.Overage.PerLb.Float64()
		dto.OverageAboveLb = &above
		dto.OveragePerLb = &perLb
	}
	return dto
}
