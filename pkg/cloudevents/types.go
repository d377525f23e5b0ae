package cloudevents

import (
	"errors"
	"time"
)

// Event types published by the fee service
const (
	SKUFeesCalculated      = "fba.sku.fees-calculated"
	FeeDiscrepancyDetected = "fba.fee.discrepancy-detected"
	TenantRegionChanged    = "fba.tenant.region-changed"
)

// SourceFeeService is the CloudEvents source of every fee service event
const SourceFeeService = "/fba/fee-service"

// SpecVersion is the CloudEvents version produced
const SpecVersion = "1.0"

// FeeCloudEvent is a CloudEvents v1.0 structured-mode event
type FeeCloudEvent struct {
	SpecVersion     string                 `json:"specversion"`
	Type            string                 `json:"type"`
	Source          string                 `json:"source"`
	Subject         string                 `json:"subject,omitempty"`
	ID              string                 `json:"id"`
	Time            time.Time              `json:"time"`
	DataContentType string                 `json:"datacontenttype"`
	Data            interface{}            `json:"data"`
	Extensions      map[string]interface{} `json:"-"`

	// Extensions
	CorrelationID string `json:"fbacorrelationid,omitempty"`
	TenantID      string `json:"fbatenantid,omitempty"`
	SellerID      string `json:"fbasellerid,omitempty"`
}

// Validate checks the required CloudEvents attributes
func (e *FeeCloudEvent) Validate() error {
	switch {
	case e.SpecVersion != SpecVersion:
		return errors.New("cloudevent: unsupported specversion " + e.SpecVersion)
	case e.ID == "":
		return errors.New("cloudevent: id is required")
	case e.Source == "":
		return errors.New("cloudevent: source is required")
	case e.Type == "":
		return errors.New("cloudevent: type is required")
	}
	return nil
}
