package domain

import "context"

// SKUFeeProfileRepository defines the interface for SKU fee profile persistence
type SKUFeeProfileRepository interface {
	// Save upserts a profile and stores its pending events
	Save(ctx context.Context, profile *SKUFeeProfile) error

	// FindBySKU retrieves the profile of a tenant SKU
	FindBySKU(ctx context.Context, tenantID, sku string) (*SKUFeeProfile, error)

	// FindByTenant retrieves profiles for a tenant
	FindByTenant(ctx context.Context, tenantID string, pagination Pagination) ([]*SKUFeeProfile, error)
}

// DiscrepancyReportRepository defines the interface for discrepancy report persistence
type DiscrepancyReportRepository interface {
	// Save persists a report and stores its pending events
	Save(ctx context.Context, report *DiscrepancyReport) error

	// FindByID retrieves a report by ID
	FindByID(ctx context.Context, reportID string) (*DiscrepancyReport, error)

	// FindBySKU retrieves reports for a tenant SKU, newest first. A non-empty
	// sellerID narrows them to that seller and reports without a seller.
	FindBySKU(ctx context.Context, tenantID, sellerID, sku string, pagination Pagination) ([]*DiscrepancyReport, error)

	// CountBySKU counts the reports FindBySKU pages through
	CountBySKU(ctx context.Context, tenantID, sellerID, sku string) (int64, error)
}

// TenantSettingsRepository defines the interface for tenant settings persistence
type TenantSettingsRepository interface {
	// Save upserts settings and stores their pending events
	Save(ctx context.Context, settings *TenantSettings) error

	// FindByTenantID retrieves settings for a tenant
	FindByTenantID(ctx context.Context, tenantID string) (*TenantSettings, error)
}

// Pagination represents pagination options
type Pagination struct {
	Page     int64
	PageSize int64
}

// DefaultPagination returns default pagination options
func DefaultPagination() Pagination {
	return Pagination{
		Page:     1,
		PageSize: 20,
	}
}

// Skip returns the number of documents to skip
func (p Pagination) Skip() int64 {
	return (p.Page - 1) * p.PageSize
}

// Limit returns the maximum number of documents to return
func (p Pagination) Limit() int64 {
	return p.PageSize
}
