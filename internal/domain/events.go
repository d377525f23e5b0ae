package domain

import "time"

// DomainEvent is the base interface for all domain events
type DomainEvent interface {
	EventType() string
	OccurredAt() time.Time
}

// SKUFeesCalculatedEvent is emitted when a SKU fee profile is (re)computed
type SKUFeesCalculatedEvent struct {
	ProfileID       string    `json:"profileId"`
	TenantID        string    `json:"tenantId"`
	SellerID        string    `json:"sellerId,omitempty"`
	SKU             string    `json:"sku"`
	Region          Region    `json:"region"`
	RateCardVersion string    `json:"rateCardVersion"`
	SizeTier        *SizeTier `json:"sizeTier"`
	ShippingWeight  *float64  `json:"shippingWeightLb"`
	FulfillmentFee  *float64  `json:"fulfillmentFee"`
	ReferralFee     *float64  `json:"referralFee"`
	TotalFees       *float64  `json:"totalFees"`
	MissingFields   []string  `json:"missingFields"`
	CalculatedAt    time.Time `json:"calculatedAt"`
}

func (e *SKUFeesCalculatedEvent) EventType() string    { return "fba.sku.fees-calculated" }
func (e *SKUFeesCalculatedEvent) OccurredAt() time.Time { return e.CalculatedAt }

// FeeDiscrepancyDetectedEvent is emitted when reported fees differ from the reference
type FeeDiscrepancyDetectedEvent struct {
	ReportID         string           `json:"reportId"`
	TenantID         string           `json:"tenantId"`
	SellerID         string           `json:"sellerId,omitempty"`
	SKU              string           `json:"sku"`
	Region           Region           `json:"region"`
	Status           ComparisonStatus `json:"status"`
	MismatchedFields []string         `json:"mismatchedFields"`
	DetectedAt       time.Time        `json:"detectedAt"`
}

func (e *FeeDiscrepancyDetectedEvent) EventType() string    { return "fba.fee.discrepancy-detected" }
func (e *FeeDiscrepancyDetectedEvent) OccurredAt() time.Time { return e.DetectedAt }

// TenantRegionChangedEvent is emitted when a tenant switches marketplace
type TenantRegionChangedEvent struct {
	TenantID  string    `json:"tenantId"`
	OldRegion Region    `json:"oldRegion"`
	NewRegion Region    `json:"newRegion"`
	ChangedAt time.Time `json:"changedAt"`
}

func (e *TenantRegionChangedEvent) EventType() string    { return "fba.tenant.region-changed" }
func (e *TenantRegionChangedEvent) OccurredAt() time.Time { return e.ChangedAt }
