package domain

import (
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ComparisonStatus is the outcome of comparing one fee field, or a whole report
type ComparisonStatus string

const (
	ComparisonMatch      ComparisonStatus = "match"
	ComparisonMismatch   ComparisonStatus = "mismatch"
	ComparisonIncomplete ComparisonStatus = "incomplete"
)

// IsValid checks if the status is known
func (s ComparisonStatus) IsValid() bool {
	switch s {
	case ComparisonMatch, ComparisonMismatch, ComparisonIncomplete:
		return true
	}
	return false
}

// Compared fee fields
const (
	FieldSizeTier           = "sizeTier"
	FieldShippingWeight     = "shippingWeightLb"
	FieldFulfillmentFee     = "fulfillmentFee"
	FieldReferralFeePercent = "referralFeePercent"
	FieldReferralFee        = "referralFee"
)

// FieldComparison is the reference and reported value of one fee field.
// Values are rendered as text, numbers to 2 decimal places; empty means not computed.
type FieldComparison struct {
	Field     string           `bson:"field" json:"field"`
	Reference string           `bson:"reference" json:"reference"`
	Reported  string           `bson:"reported" json:"reported"`
	Delta     *float64         `bson:"delta,omitempty" json:"delta,omitempty"`
	Status    ComparisonStatus `bson:"status" json:"status"`
}

// DiscrepancyResult is the field-by-field diff of two estimates
type DiscrepancyResult struct {
	Status      ComparisonStatus  `bson:"status" json:"status"`
	Comparisons []FieldComparison `bson:"comparisons" json:"comparisons"`
}

// MismatchedFields lists the fields whose values differ
func (r DiscrepancyResult) MismatchedFields() []string {
	var fields []string
	for _, c := range r.Comparisons {
		if c.Status == ComparisonMismatch {
			fields = append(fields, c.Field)
		}
	}
	return fields
}

// CompareFees diffs the estimate computed from reference data against the one
// computed from Amazon-reported data. Numbers are rounded to 2 decimal places
// before comparing. A field missing on either side cannot be compared and is
// reported as incomplete rather than as a mismatch.
func CompareFees(reference, reported FeeEstimate) DiscrepancyResult {
	comparisons := []FieldComparison{
		compareTier(reference.SizeTier, reported.SizeTier),
		compareAmount(FieldShippingWeight, reference.ShippingWeightLb, reported.ShippingWeightLb),
		compareAmount(FieldFulfillmentFee, reference.FulfillmentFee, reported.FulfillmentFee),
		compareAmount(FieldReferralFeePercent, reference.ReferralFeePercent, reported.ReferralFeePercent),
		compareAmount(FieldReferralFee, reference.ReferralFee, reported.ReferralFee),
	}

	status := ComparisonMatch
	for _, c := range comparisons {
		if c.Status == ComparisonMismatch {
			status = ComparisonMismatch
			break
		}
		if c.Status == ComparisonIncomplete {
			status = ComparisonIncomplete
		}
	}

	return DiscrepancyResult{Status: status, Comparisons: comparisons}
}

func compareTier(reference, reported *SizeTier) FieldComparison {
	c := FieldComparison{Field: FieldSizeTier}
	if reference != nil {
		c.Reference = string(*reference)
	}
	if reported != nil {
		c.Reported = string(*reported)
	}

	switch {
	case reference == nil || reported == nil:
		c.Status = ComparisonIncomplete
	case *reference == *reported:
		c.Status = ComparisonMatch
	default:
		c.Status = ComparisonMismatch
	}
	return c
}

func compareAmount(field string, reference, reported *float64) FieldComparison {
	c := FieldComparison{Field: field}
	if reference != nil {
		c.Reference = formatAmount(*reference)
	}
	if reported != nil {
		c.Reported = formatAmount(*reported)
	}

	if reference == nil || reported == nil {
		c.Status = ComparisonIncomplete
		return c
	}

	c.Delta = roundedPtr(RoundCents(*reported) - RoundCents(*reference))
	if centsEqual(*reference, *reported) {
		c.Status = ComparisonMatch
	} else {
		c.Status = ComparisonMismatch
	}
	return c
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(RoundCents(v), 'f', 2, 64)
}

// DiscrepancyReport records one reference-versus-reported comparison for a SKU
type DiscrepancyReport struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	ReportID      string             `bson:"reportId" json:"reportId"`
	TenantID      string             `bson:"tenantId" json:"tenantId"`
	SellerID      string             `bson:"sellerId,omitempty" json:"sellerId,omitempty"`
	SKU           string             `bson:"sku" json:"sku"`
	Reference     FeeEstimateInput   `bson:"reference" json:"reference"`
	Reported      FeeEstimateInput   `bson:"reported" json:"reported"`
	ReferenceFees FeeEstimate        `bson:"referenceFees" json:"referenceFees"`
	ReportedFees  FeeEstimate        `bson:"reportedFees" json:"reportedFees"`
	Result        DiscrepancyResult  `bson:"result" json:"result"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`

	domainEvents []DomainEvent `bson:"-" json:"-"`
}

// NewDiscrepancyReport compares two estimates for sku and records a
// FeeDiscrepancyDetectedEvent when they disagree
func NewDiscrepancyReport(tenantID, sellerID, sku string, reference, reported FeeEstimateInput, referenceFees, reportedFees FeeEstimate) (*DiscrepancyReport, error) {
	if tenantID == "" {
		return nil, ErrTenantRequired
	}
	if sku == "" {
		return nil, ErrInvalidSKU
	}

	report := &DiscrepancyReport{
		ReportID:      "DSC-" + uuid.New().String()[:8],
		TenantID:      tenantID,
		SellerID:      sellerID,
		SKU:           sku,
		Reference:     reference,
		Reported:      reported,
		ReferenceFees: referenceFees,
		ReportedFees:  reportedFees,
		Result:        CompareFees(referenceFees, reportedFees),
		CreatedAt:     time.Now().UTC(),
	}

	if report.Result.Status == ComparisonMismatch {
		report.addDomainEvent(&FeeDiscrepancyDetectedEvent{
			ReportID:         report.ReportID,
			TenantID:         tenantID,
			SellerID:         sellerID,
			SKU:              sku,
			Region:           referenceFees.Region,
			Status:           report.Result.Status,
			MismatchedFields: report.Result.MismatchedFields(),
			DetectedAt:       report.CreatedAt,
		})
	}
	return report, nil
}

func (r *DiscrepancyReport) addDomainEvent(event DomainEvent) {
	r.domainEvents = append(r.domainEvents, event)
}

// DomainEvents returns all pending domain events
func (r *DiscrepancyReport) DomainEvents() []DomainEvent {
	return r.domainEvents
}

// ClearDomainEvents clears all pending domain events
func (r *DiscrepancyReport) ClearDomainEvents() {
	r.domainEvents = make([]DomainEvent, 0)
}
