package cloudevents

import (
	"github.com/sellerops/fba-fees/pkg/tenant"
)

// Extension attribute names, also used as Kafka header keys with a "ce-" prefix
const (
	ExtCorrelationID = "fbacorrelationid"
	ExtTenantID      = "fbatenantid"
	ExtSellerID      = "fbasellerid"
)

// SetTenantContext copies tenant and seller onto the event
func (e *FeeCloudEvent) SetTenantContext(tc *tenant.Context) {
	if tc == nil {
		return
	}
	e.TenantID = tc.TenantID
	e.SellerID = tc.SellerID
}

// GetTenantContext returns the tenant the event was raised for
func (e *FeeCloudEvent) GetTenantContext() *tenant.Context {
	return &tenant.Context{
		TenantID: e.TenantID,
		SellerID: e.SellerID,
	}
}

// WithTenant sets tenant and seller and returns the event
func (e *FeeCloudEvent) WithTenant(tenantID, sellerID string) *FeeCloudEvent {
	e.TenantID = tenantID
	e.SellerID = sellerID
	return e
}

// HasTenantContext reports whether a tenant is set
func (e *FeeCloudEvent) HasTenantContext() bool {
	return e.TenantID != ""
}

// ExtensionHeaders returns the extension attributes as message headers
func (e *FeeCloudEvent) ExtensionHeaders() map[string]string {
	headers := map[string]string{}
	if e.CorrelationID != "" {
		headers["ce-"+ExtCorrelationID] = e.CorrelationID
	}
	if e.TenantID != "" {
		headers["ce-"+ExtTenantID] = e.TenantID
	}
	if e.SellerID != "" {
		headers["ce-"+ExtSellerID] = e.SellerID
	}
	for k, v := range e.Extensions {
		if s, ok := v.(string); ok {
			headers["ce-"+k] = s
		}
	}
	return headers
}
