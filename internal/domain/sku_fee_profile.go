package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SKUFeeProfile is the stored fee autofill for one seller SKU
type SKUFeeProfile struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	ProfileID       string             `bson:"profileId" json:"profileId"`
	TenantID        string             `bson:"tenantId" json:"tenantId"`
	SellerID        string             `bson:"sellerId,omitempty" json:"sellerId,omitempty"`
	SKU             string             `bson:"sku" json:"sku"`
	Input           FeeEstimateInput   `bson:"input" json:"input"`
	Fees            FeeEstimate        `bson:"fees" json:"fees"`
	Region          Region             `bson:"region" json:"region"`
	RateCardVersion string             `bson:"rateCardVersion" json:"rateCardVersion"`
	CalculatedAt    time.Time          `bson:"calculatedAt" json:"calculatedAt"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt" json:"updatedAt"`

	domainEvents []DomainEvent `bson:"-" json:"-"`
}

// NewSKUFeeProfile creates an empty profile for sku
func NewSKUFeeProfile(tenantID, sellerID, sku string) (*SKUFeeProfile, error) {
	if tenantID == "" {
		return nil, ErrTenantRequired
	}
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return nil, ErrInvalidSKU
	}

	now := time.Now().UTC()
	return &SKUFeeProfile{
		ProfileID:    "SFP-" + uuid.New().String()[:8],
		TenantID:     tenantID,
		SellerID:     sellerID,
		SKU:          sku,
		CreatedAt:    now,
		UpdatedAt:    now,
		domainEvents: make([]DomainEvent, 0),
	}, nil
}

// ApplyEstimate replaces the stored inputs and fee snapshot
func (p *SKUFeeProfile) ApplyEstimate(input FeeEstimateInput, fees FeeEstimate) {
	now := time.Now().UTC()
	p.Input = input
	p.Fees = fees
	p.Region = fees.Region
	p.RateCardVersion = fees.RateCardVersion
	p.CalculatedAt = now
	p.UpdatedAt = now

	p.addDomainEvent(&SKUFeesCalculatedEvent{
		ProfileID:       p.ProfileID,
		TenantID:        p.TenantID,
		SellerID:        p.SellerID,
		SKU:             p.SKU,
		Region:          fees.Region,
		RateCardVersion: fees.RateCardVersion,
		SizeTier:        fees.SizeTier,
		ShippingWeight:  fees.ShippingWeightLb,
		FulfillmentFee:  fees.FulfillmentFee,
		ReferralFee:     fees.ReferralFee,
		TotalFees:       fees.TotalFees,
		MissingFields:   fees.MissingFields,
		CalculatedAt:    now,
	})
}

func (p *SKUFeeProfile) addDomainEvent(event DomainEvent) {
	p.domainEvents = append(p.domainEvents, event)
}

// DomainEvents returns all pending domain events
func (p *SKUFeeProfile) DomainEvents() []DomainEvent {
	return p.domainEvents
}

// ClearDomainEvents clears all pending domain events
func (p *SKUFeeProfile) ClearDomainEvents() {
	p.domainEvents = make([]DomainEvent, 0)
}
