package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sellerops/fba-fees/internal/application"
	"github.com/sellerops/fba-fees/internal/domain"
	"github.com/sellerops/fba-fees/pkg/logging"
	"github.com/sellerops/fba-fees/pkg/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.InitValidator()
}

type mockProfileRepo struct {
	saved       []*domain.SKUFeeProfile
	findBySKUFn func(ctx context.Context, tenantID, sku string) (*domain.SKUFeeProfile, error)
}

func (m *mockProfileRepo) Save(ctx context.Context, profile *domain.SKUFeeProfile) error {
	m.saved = append(m.saved, profile)
	return nil
}

func (m *mockProfileRepo) FindBySKU(ctx context.Context, tenantID, sku string) (*domain.SKUFeeProfile, error) {
	if m.findBySKUFn != nil {
		return m.findBySKUFn(ctx, tenantID, sku)
	}
	return nil, nil
}

func (m *mockProfileRepo) FindByTenant(ctx context.Context, tenantID string, pagination domain.Pagination) ([]*domain.SKUFeeProfile, error) {
	return nil, nil
}

type mockReportRepo struct {
	reports map[string]*domain.DiscrepancyReport
}

func (m *mockReportRepo) Save(ctx context.Context, report *domain.DiscrepancyReport) error {
	m.reports[report.ReportID] = report
	return nil
}

func (m *mockReportRepo) FindByID(ctx context.Context, reportID string) (*domain.DiscrepancyReport, error) {
	return m.reports[reportID], nil
}

func (m *mockReportRepo) FindBySKU(ctx context.Context, tenantID, sellerID, sku string, pagination domain.Pagination) ([]*domain.DiscrepancyReport, error) {
	var out []*domain.DiscrepancyReport
	for _, r := range m.reports {
		if sellerID != "" && r.SellerID != "" && r.SellerID != sellerID {
			continue
		}
		if r.TenantID == tenantID && r.SKU == sku {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockReportRepo) CountBySKU(ctx context.Context, tenantID, sellerID, sku string) (int64, error) {
	reports, _ := m.FindBySKU(ctx, tenantID, sellerID, sku, domain.DefaultPagination())
	return int64(len(reports)), nil
}

type mockSettingsRepo struct {
	settings map[string]*domain.TenantSettings
	err      error
}

func (m *mockSettingsRepo) Save(ctx context.Context, settings *domain.TenantSettings) error {
	if m.err != nil {
		return m.err
	}
	m.settings[settings.TenantID] = settings
	return nil
}

func (m *mockSettingsRepo) FindByTenantID(ctx context.Context, tenantID string) (*domain.TenantSettings, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.settings[tenantID], nil
}

type testEnv struct {
	router   *gin.Engine
	profiles *mockProfileRepo
	reports  *mockReportRepo
	settings *mockSettingsRepo
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		profiles: &mockProfileRepo{},
		reports:  &mockReportRepo{reports: map[string]*domain.DiscrepancyReport{}},
		settings: &mockSettingsRepo{settings: map[string]*domain.TenantSettings{}},
	}

	logger := logging.New(&logging.Config{Level: logging.LevelError, ServiceName: "handler-test", Output: io.Discard})
	service := application.NewFeeService(env.profiles, env.reports, env.settings, domain.RegionUS, logger, nil)
	handler := NewFeeHandler(service, logger)

	env.router = gin.New()
	env.router.Use(middleware.TenantAuth(middleware.DefaultTenantAuthConfig()))
	handler.RegisterRoutes(env.router.Group("/api/v1"))
	return env
}

func (e *testEnv) do(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

var tenantHeaders = map[string]string{
	middleware.HeaderTenantID: "TNT-001",
	middleware.HeaderSellerID: "SLR-001",
}

// referenceBody is 16 oz, 15 x 12 x 0.75 in, listed at $8
const referenceBody = `{
	"package": {"length": 15, "width": 12, "height": "0.75", "lengthUnit": "in", "weight": 16, "weightUnit": "oz"},
	"price": 8,
	"category": "Baby Products"
}`

type envelope struct {
	Data json.RawMessage `json:"data"`
}

type errorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details"`
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.NoError(t, json.Unmarshal(env.Data, v))
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestEstimateFees(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/v1/fees/estimate", referenceBody, tenantHeaders)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var est application.FeeEstimateDTO
	decodeData(t, rec, &est)
	assert.Equal(t, domain.RegionUS, est.Region)
	assert.Equal(t, "USD", est.Currency)
	require.NotNil(t, est.TotalFees)
	assert.Equal(t, 3.59, *est.TotalFees)
	assert.Empty(t, est.MissingFields)
}

func TestEstimateFees_RegionHeader(t *testing.T) {
	env := newTestEnv(t)

	headers := map[string]string{middleware.HeaderMarketplaceRegion: "uk"}
	rec := env.do(http.MethodPost, "/api/v1/fees/estimate", referenceBody, headers)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var est application.FeeEstimateDTO
	decodeData(t, rec, &est)
	assert.Equal(t, domain.RegionUK, est.Region)
	assert.Equal(t, "GBP", est.Currency)
	assert.Nil(t, est.FulfillmentFee)
	assert.Contains(t, est.MissingFields, "fulfillmentRates")
}

func TestEstimateFees_UnknownRegionHeader(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/v1/fees/estimate", referenceBody, map[string]string{middleware.HeaderMarketplaceRegion: "DE"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "UNSUPPORTED_REGION", decodeError(t, rec).Code)
}

func TestEstimateFees_BadRequests(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		code    string
		details map[string]string
	}{
		{
			name: "malformed json",
			body: `{"package":`,
			code: "BAD_REQUEST",
		},
		{
			name:    "unknown weight unit",
			body:    `{"package": {"weight": 1, "weightUnit": "stone"}}`,
			code:    "VALIDATION_ERROR",
			details: map[string]string{"weightUnit": "must be one of: kg, g, lb, oz"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)

			rec := env.do(http.MethodPost, "/api/v1/fees/estimate", tt.body, tenantHeaders)
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			body := decodeError(t, rec)
			assert.Equal(t, tt.code, body.Code)
			if tt.details != nil {
				assert.Equal(t, tt.details, body.Details)
			}
		})
	}
}

func TestEstimateFees_EmptyInputIsPartial(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/v1/fees/estimate", `{}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var est application.FeeEstimateDTO
	decodeData(t, rec, &est)
	assert.Nil(t, est.SizeTier)
	assert.Nil(t, est.TotalFees)
	assert.Equal(t, []string{"length", "width", "height", "weight", "price", "category"}, est.MissingFields)
}

func TestClassifySizeTier(t *testing.T) {
	env := newTestEnv(t)

	body := `{"package": {"dimensions": "15 x 12 x 0.75 in", "weight": 1, "weightUnit": "lb"}}`
	rec := env.do(http.MethodPost, "/api/v1/fees/size-tier", body, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var dto application.SizeTierDTO
	decodeData(t, rec, &dto)
	require.NotNil(t, dto.SizeTier)
	assert.Equal(t, domain.SizeTierSmallStandard, *dto.SizeTier)
	assert.Empty(t, dto.MissingFields)
}

func TestGetReferralFee(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/api/v1/fees/referral?category=Baby%20Products&price=8", "", tenantHeaders)
	require.Equal(t, http.StatusOK, rec.Code)

	var dto application.ReferralFeeDTO
	decodeData(t, rec, &dto)
	require.NotNil(t, dto.Percent)
	assert.Equal(t, 8.0, *dto.Percent)
	require.NotNil(t, dto.Fee)
	assert.Equal(t, 0.64, *dto.Fee)

	rec = env.do(http.MethodGet, "/api/v1/fees/referral?category=Baby%20Products", "", tenantHeaders)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeData(t, rec, &dto)
	assert.Equal(t, []string{"price"}, dto.MissingFields)
}

func TestGetRateCard(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/api/v1/rate-cards/uk", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var card application.RateCardDTO
	decodeData(t, rec, &card)
	assert.Equal(t, domain.RegionUK, card.Region)
	assert.Equal(t, "GBP", card.Currency)
	assert.NotEmpty(t, card.Referral)

	rec = env.do(http.MethodGet, "/api/v1/rate-cards/jp", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "UNSUPPORTED_REGION", decodeError(t, rec).Code)
}

func TestSKUFeeProfile(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPut, "/api/v1/skus/SKU-1/fee-profile", referenceBody, tenantHeaders)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var dto application.SKUFeeProfileDTO
	decodeData(t, rec, &dto)
	assert.Equal(t, "TNT-001", dto.TenantID)
	assert.Equal(t, "SKU-1", dto.SKU)
	require.NotNil(t, dto.Fees.TotalFees)
	assert.Equal(t, 3.59, *dto.Fees.TotalFees)
	require.Len(t, env.profiles.saved, 1)

	saved := env.profiles.saved[0]
	env.profiles.findBySKUFn = func(ctx context.Context, tenantID, sku string) (*domain.SKUFeeProfile, error) {
		if tenantID == "TNT-001" && sku == "SKU-1" {
			return saved, nil
		}
		return nil, nil
	}

	rec = env.do(http.MethodGet, "/api/v1/skus/SKU-1/fee-profile", "", tenantHeaders)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeData(t, rec, &dto)
	assert.Equal(t, saved.ProfileID, dto.ProfileID)

	rec = env.do(http.MethodGet, "/api/v1/skus/SKU-2/fee-profile", "", tenantHeaders)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "RESOURCE_NOT_FOUND", decodeError(t, rec).Code)
}

func TestSKUFeeProfile_InvalidSKU(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPut, "/api/v1/skus/-bad/fee-profile", referenceBody, tenantHeaders)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body := decodeError(t, rec)
	assert.Equal(t, "VALIDATION_ERROR", body.Code)
	assert.Contains(t, body.Details, "sku")
	assert.Empty(t, env.profiles.saved)
}

func TestDiscrepancyReports(t *testing.T) {
	env := newTestEnv(t)

	body := `{"sku": "SKU-1", "reference": ` + referenceBody + `, "reported": ` + referenceBody + `}`
	rec := env.do(http.MethodPost, "/api/v1/discrepancies", body, tenantHeaders)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var report application.DiscrepancyReportDTO
	decodeData(t, rec, &report)
	assert.Equal(t, domain.ComparisonMatch, report.Status)
	assert.Equal(t, "SKU-1", report.SKU)

	rec = env.do(http.MethodGet, "/api/v1/discrepancies/"+report.ReportID, "", tenantHeaders)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(http.MethodGet, "/api/v1/discrepancies/"+report.ReportID, "", map[string]string{middleware.HeaderTenantID: "TNT-002"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(http.MethodGet, "/api/v1/skus/SKU-1/discrepancies?page=1&pageSize=500", "", tenantHeaders)
	require.Equal(t, http.StatusOK, rec.Code)

	var list application.DiscrepancyListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, int64(1), list.Total)
	assert.Equal(t, int64(100), list.PageSize)
	require.Len(t, list.Data, 1)
	assert.Equal(t, report.ReportID, list.Data[0].ReportID)
}

func TestSellerScoping(t *testing.T) {
	env := newTestEnv(t)
	otherSeller := map[string]string{
		middleware.HeaderTenantID: "TNT-001",
		middleware.HeaderSellerID: "SLR-002",
	}

	rec := env.do(http.MethodPut, "/api/v1/skus/SKU-1/fee-profile", referenceBody, tenantHeaders)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	owned := env.profiles.saved[0]
	env.profiles.findBySKUFn = func(context.Context, string, string) (*domain.SKUFeeProfile, error) {
		return owned, nil
	}

	rec = env.do(http.MethodGet, "/api/v1/skus/SKU-1/fee-profile", "", otherSeller)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(http.MethodPut, "/api/v1/skus/SKU-1/fee-profile", referenceBody, otherSeller)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "CONFLICT", decodeError(t, rec).Code)
	assert.Len(t, env.profiles.saved, 1)
	assert.Equal(t, "SLR-001", owned.SellerID)

	body := `{"sku": "SKU-1", "reference": ` + referenceBody + `, "reported": ` + referenceBody + `}`
	rec = env.do(http.MethodPost, "/api/v1/discrepancies", body, tenantHeaders)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var report application.DiscrepancyReportDTO
	decodeData(t, rec, &report)

	rec = env.do(http.MethodGet, "/api/v1/discrepancies/"+report.ReportID, "", otherSeller)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(http.MethodGet, "/api/v1/skus/SKU-1/discrepancies", "", otherSeller)
	require.Equal(t, http.StatusOK, rec.Code)
	var list application.DiscrepancyListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, int64(0), list.Total)
	assert.Empty(t, list.Data)
}

func TestCreateDiscrepancy_RequiresSKU(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/v1/discrepancies", `{"reference": {}, "reported": {}}`, tenantHeaders)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, map[string]string{"sku": "is required"}, decodeError(t, rec).Details)
}

func TestTenantSettings(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/api/v1/tenant/settings", "", tenantHeaders)
	require.Equal(t, http.StatusOK, rec.Code)

	var dto application.TenantSettingsDTO
	decodeData(t, rec, &dto)
	assert.Equal(t, domain.RegionUS, dto.Region)
	assert.False(t, dto.Stored)

	rec = env.do(http.MethodPut, "/api/v1/tenant/settings", `{"region": "gb"}`, tenantHeaders)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decodeData(t, rec, &dto)
	assert.Equal(t, domain.RegionUK, dto.Region)
	assert.True(t, dto.Stored)

	// stored region now drives estimates without a header
	rec = env.do(http.MethodPost, "/api/v1/fees/estimate", referenceBody, tenantHeaders)
	require.Equal(t, http.StatusOK, rec.Code)
	var est application.FeeEstimateDTO
	decodeData(t, rec, &est)
	assert.Equal(t, domain.RegionUK, est.Region)

	rec = env.do(http.MethodPut, "/api/v1/tenant/settings", `{"region": "DE"}`, tenantHeaders)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeError(t, rec).Code)
}

func TestTenantSettings_RepositoryFailure(t *testing.T) {
	env := newTestEnv(t)
	env.settings.err = errors.New("connection refused")

	rec := env.do(http.MethodGet, "/api/v1/tenant/settings", "", tenantHeaders)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "INTERNAL_ERROR", decodeError(t, rec).Code)
}

func TestListPurchaseOrderStages(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/api/v1/purchase-orders/stages", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var stages []application.StageDTO
	decodeData(t, rec, &stages)
	require.Len(t, stages, 7)
	assert.Equal(t, domain.StageDraft, stages[0].Stage)
	require.NotNil(t, stages[0].Next)
	assert.Equal(t, domain.StageSubmitted, *stages[0].Next)
	assert.Nil(t, stages[6].Next)
}
