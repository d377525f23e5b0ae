package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"

	"github.com/sellerops/fba-fees/internal/application"
	"github.com/sellerops/fba-fees/pkg/errors"
	"github.com/sellerops/fba-fees/pkg/logging"
	"github.com/sellerops/fba-fees/pkg/middleware"
)

// FeeHandler handles HTTP requests for fee estimates and fee records
type FeeHandler struct {
	service *application.FeeService
	logger  *logging.Logger
}

// NewFeeHandler creates a new FeeHandler
func NewFeeHandler(service *application.FeeService, logger *logging.Logger) *FeeHandler {
	return &FeeHandler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes mounts every endpoint on an /api/v1 group
func (h *FeeHandler) RegisterRoutes(api *gin.RouterGroup) {
	fees := api.Group("/fees")
	{
		fees.POST("/estimate", h.EstimateFees)
		fees.POST("/size-tier", h.ClassifySizeTier)
		fees.GET("/referral", h.GetReferralFee)
	}

	api.GET("/rate-cards/:region", h.GetRateCard)

	skus := api.Group("/skus/:sku")
	{
		skus.PUT("/fee-profile", h.SaveSKUFeeProfile)
		skus.GET("/fee-profile", h.GetSKUFeeProfile)
		skus.GET("/discrepancies", h.ListDiscrepancyReports)
	}

	discrepancies := api.Group("/discrepancies")
	{
		discrepancies.POST("", h.CreateDiscrepancyReport)
		discrepancies.GET("/:reportId", h.GetDiscrepancyReport)
	}

	api.GET("/tenant/settings", h.GetTenantSettings)
	api.PUT("/tenant/settings", h.UpdateTenantSettings)

	api.GET("/purchase-orders/stages", h.ListPurchaseOrderStages)
}

// EstimateFees handles POST /api/v1/fees/estimate
func (h *FeeHandler) EstimateFees(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger)

	var cmd application.EstimateFeesCommand
	if appErr := middleware.BindAndValidate(c, &cmd); appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}

	middleware.SetSpanAttributes(c, attribute.String("fee.category", cmd.Category))

	result, err := h.service.EstimateFees(c.Request.Context(), cmd)
	if err != nil {
		responder.Respond(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

// ClassifySizeTier handles POST /api/v1/fees/size-tier
func (h *FeeHandler) ClassifySizeTier(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger)

	var cmd application.ClassifySizeTierCommand
	if appErr := middleware.BindAndValidate(c, &cmd); appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}

	result, err := h.service.ClassifySizeTier(c.Request.Context(), cmd)
	if err != nil {
		responder.Respond(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

// GetReferralFee handles GET /api/v1/fees/referral
func (h *FeeHandler) GetReferralFee(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger)

	query := application.ReferralFeeQuery{
		Category: c.Query("category"),
		Price:    c.Query("price"),
	}

	middleware.SetSpanAttributes(c, attribute.String("fee.category", query.Category))

	result, err := h.service.ReferralFee(c.Request.Context(), query)
	if err != nil {
		responder.Respond(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

// GetRateCard handles GET /api/v1/rate-cards/:region
func (h *FeeHandler) GetRateCard(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger)

	result, err := h.service.GetRateCard(c.Request.Context(), c.Param("region"))
	if err != nil {
		responder.Respond(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

// SaveSKUFeeProfile handles PUT /api/v1/skus/:sku/fee-profile
func (h *FeeHandler) SaveSKUFeeProfile(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger)

	sku, ok := skuParam(c, responder)
	if !ok {
		return
	}

	var cmd application.SaveSKUFeeProfileCommand
	if appErr := middleware.BindAndValidate(c, &cmd); appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}

	middleware.SetSpanAttributes(c, attribute.String("fba.sku", sku))

	result, err := h.service.SaveSKUFeeProfile(c.Request.Context(), sku, cmd)
	if err != nil {
		responder.Respond(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

// GetSKUFeeProfile handles GET /api/v1/skus/:sku/fee-profile
func (h *FeeHandler) GetSKUFeeProfile(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger)

	sku, ok := skuParam(c, responder)
	if !ok {
		return
	}

	result, err := h.service.GetSKUFeeProfile(c.Request.Context(), sku)
	if err != nil {
		responder.Respond(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

// CreateDiscrepancyReport handles POST /api/v1/discrepancies
func (h *FeeHandler) CreateDiscrepancyReport(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger)

	var cmd application.CreateDiscrepancyCommand
	if appErr := middleware.BindAndValidate(c, &cmd); appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}

	middleware.SetSpanAttributes(c, attribute.String("fba.sku", cmd.SKU))

	result, err := h.service.CreateDiscrepancyReport(c.Request.Context(), cmd)
	if err != nil {
		responder.Respond(err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": result})
}

// GetDiscrepancyReport handles GET /api/v1/discrepancies/:reportId
func (h *FeeHandler) GetDiscrepancyReport(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger)

	reportID := c.Param("reportId")

	middleware.SetSpanAttributes(c, attribute.String("fba.report_id", reportID))

	result, err := h.service.GetDiscrepancyReport(c.Request.Context(), reportID)
	if err != nil {
		responder.Respond(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

// ListDiscrepancyReports handles GET /api/v1/skus/:sku/discrepancies
func (h *FeeHandler) ListDiscrepancyReports(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger)

	sku, ok := skuParam(c, responder)
	if !ok {
		return
	}

	page, _ := strconv.ParseInt(c.DefaultQuery("page", "1"), 10, 64)
	pageSize, _ := strconv.ParseInt(c.DefaultQuery("pageSize", "20"), 10, 64)

	result, err := h.service.ListDiscrepancyReports(c.Request.Context(), application.ListDiscrepanciesQuery{
		SKU:      sku,
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		responder.Respond(err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetTenantSettings handles GET /api/v1/tenant/settings
func (h *FeeHandler) GetTenantSettings(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger)

	result, err := h.service.GetTenantSettings(c.Request.Context())
	if err != nil {
		responder.Respond(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

// UpdateTenantSettings handles PUT /api/v1/tenant/settings
func (h *FeeHandler) UpdateTenantSettings(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger)

	var cmd application.UpdateTenantSettingsCommand
	if appErr := middleware.BindAndValidate(c, &cmd); appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}

	result, err := h.service.UpdateTenantSettings(c.Request.Context(), cmd)
	if err != nil {
		responder.Respond(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

// ListPurchaseOrderStages handles GET /api/v1/purchase-orders/stages
func (h *FeeHandler) ListPurchaseOrderStages(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": h.service.PurchaseOrderStages()})
}

func skuParam(c *gin.Context, responder *middleware.ErrorResponder) (string, bool) {
	sku := c.Param("sku")
	if appErr := middleware.ValidateVar(sku, "sku"); appErr != nil {
		responder.RespondWithAppError(errors.ErrValidationWithFields("invalid sku", map[string]string{"sku": appErr.Message}))
		return "", false
	}
	return sku, true
}
