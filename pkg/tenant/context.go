package tenant

import (
	"context"
	"errors"
	"strings"
)

type contextKey string

const (
	tenantIDKey contextKey = "tenantId"
	sellerIDKey contextKey = "sellerId"
	regionKey   contextKey = "marketplaceRegion"
)

var (
	ErrMissingTenantContext = errors.New("tenant context is required")
	ErrUnauthorizedAccess   = errors.New("unauthorized access to tenant resource")
	ErrMissingSellerID      = errors.New("sellerId is required for this operation")
)

// DefaultTenantID scopes data written without a tenant header
const DefaultTenantID = "DEFAULT_TENANT"

// Context identifies the seller account a fee request is made for.
type Context struct {
	// TenantID is the organisation that owns the SKU catalogue
	TenantID string `json:"tenantId"`

	// SellerID is the marketplace seller account within the tenant
	SellerID string `json:"sellerId"`

	// Region is an explicit marketplace override (US, UK). Empty means
	// the tenant's stored setting applies.
	Region string `json:"region,omitempty"`
}

// FromContext extracts the tenant context, failing when no tenant is set
func FromContext(ctx context.Context) (*Context, error) {
	tc := &Context{
		TenantID: stringValue(ctx, tenantIDKey),
		SellerID: stringValue(ctx, sellerIDKey),
		Region:   stringValue(ctx, regionKey),
	}
	if tc.TenantID == "" {
		return nil, ErrMissingTenantContext
	}
	return tc, nil
}

// FromContextOptional returns the tenant context or an empty one
func FromContextOptional(ctx context.Context) *Context {
	return &Context{
		TenantID: stringValue(ctx, tenantIDKey),
		SellerID: stringValue(ctx, sellerIDKey),
		Region:   stringValue(ctx, regionKey),
	}
}

// ToContext stores the non-empty tenant fields on ctx
func ToContext(ctx context.Context, tc *Context) context.Context {
	if tc == nil {
		return ctx
	}
	if tc.TenantID != "" {
		ctx = context.WithValue(ctx, tenantIDKey, tc.TenantID)
	}
	if tc.SellerID != "" {
		ctx = context.WithValue(ctx, sellerIDKey, tc.SellerID)
	}
	if tc.Region != "" {
		ctx = context.WithValue(ctx, regionKey, strings.ToUpper(tc.Region))
	}
	return ctx
}

// WithTenantID returns a new context with the tenant ID set
func WithTenantID(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, tenantIDKey, tenantID)
}

// WithSellerID returns a new context with the seller ID set
func WithSellerID(ctx context.Context, sellerID string) context.Context {
	return context.WithValue(ctx, sellerIDKey, sellerID)
}

// WithRegion returns a new context with a marketplace region override
func WithRegion(ctx context.Context, region string) context.Context {
	return context.WithValue(ctx, regionKey, strings.ToUpper(region))
}

// GetTenantID extracts tenant ID from context
func GetTenantID(ctx context.Context) string {
	return stringValue(ctx, tenantIDKey)
}

// GetSellerID extracts seller ID from context
func GetSellerID(ctx context.Context) string {
	return stringValue(ctx, sellerIDKey)
}

// GetRegion extracts the marketplace region override from context
func GetRegion(ctx context.Context) string {
	return stringValue(ctx, regionKey)
}

func stringValue(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

// HasTenant returns true if a tenant ID is set
func (tc *Context) HasTenant() bool {
	return tc.TenantID != ""
}

// HasSeller returns true if a seller ID is set
func (tc *Context) HasSeller() bool {
	return tc.SellerID != ""
}

// ValidateOwnership rejects resources that belong to another tenant or seller
func (tc *Context) ValidateOwnership(resourceTenantID, resourceSellerID string) error {
	if tc.TenantID != "" && resourceTenantID != "" && tc.TenantID != resourceTenantID {
		return ErrUnauthorizedAccess
	}
	if tc.SellerID != "" && resourceSellerID != "" && tc.SellerID != resourceSellerID {
		return ErrUnauthorizedAccess
	}
	return nil
}
