package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/sellerops/fba-fees/pkg/errors"
	"github.com/sellerops/fba-fees/pkg/logging"
	"github.com/sellerops/fba-fees/pkg/tenant"
)

// Tenant header names
const (
	HeaderTenantID          = "X-Tenant-ID"
	HeaderSellerID          = "X-Seller-ID"
	HeaderMarketplaceRegion = "X-Marketplace-Region"
)

// TenantAuthConfig holds configuration for tenant middleware
type TenantAuthConfig struct {
	// Required rejects requests without a tenant header
	Required bool

	// DefaultTenantID is used when no tenant header is provided and Required is false
	DefaultTenantID string

	// AllowedRegions limits the marketplace override header. Empty allows any value.
	AllowedRegions []string
}

// DefaultTenantAuthConfig returns the permissive configuration
func DefaultTenantAuthConfig() *TenantAuthConfig {
	return &TenantAuthConfig{
		Required:        false,
		DefaultTenantID: tenant.DefaultTenantID,
	}
}

// TenantAuth extracts tenant, seller and marketplace headers into the request context
func TenantAuth(config *TenantAuthConfig) gin.HandlerFunc {
	if config == nil {
		config = DefaultTenantAuthConfig()
	}
	allowed := make(map[string]bool, len(config.AllowedRegions))
	for _, r := range config.AllowedRegions {
		allowed[strings.ToUpper(r)] = true
	}

	return func(c *gin.Context) {
		tenantID := strings.TrimSpace(c.GetHeader(HeaderTenantID))
		sellerID := strings.TrimSpace(c.GetHeader(HeaderSellerID))
		region := strings.ToUpper(strings.TrimSpace(c.GetHeader(HeaderMarketplaceRegion)))

		if tenantID == "" {
			if config.Required {
				appErr := errors.ErrTenantRequired()
				appErr.HTTPStatus = http.StatusUnauthorized
				AbortWithAppError(c, appErr)
				return
			}
			tenantID = config.DefaultTenantID
		}

		if region != "" && len(allowed) > 0 && !allowed[region] {
			AbortWithAppError(c, errors.ErrUnsupportedRegion(region))
			return
		}

		tc := &tenant.Context{
			TenantID: tenantID,
			SellerID: sellerID,
			Region:   region,
		}

		ctx := tenant.ToContext(c.Request.Context(), tc)
		c.Request = c.Request.WithContext(logging.ContextWithTenantID(ctx, tenantID))
		trace.SpanFromContext(ctx).SetAttributes(attribute.String("fba.tenant_id", tenantID))

		c.Next()
	}
}
