package application

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/sellerops/fba-fees/internal/domain"
	"github.com/sellerops/fba-fees/pkg/errors"
	"github.com/sellerops/fba-fees/pkg/logging"
	"github.com/sellerops/fba-fees/pkg/metrics"
	"github.com/sellerops/fba-fees/pkg/tenant"
	"github.com/sellerops/fba-fees/pkg/tracing"
)

const tracerName = "github.com/sellerops/fba-fees/internal/application"

const maxPageSize = 100

var (
	errInvalidLengthUnit = stderrors.New("lengthUnit must be cm or in")
	errInvalidWeightUnit = stderrors.New("weightUnit must be kg, g, lb or oz")
)

// FeeService handles fee estimation and the records built on it
type FeeService struct {
	profileRepo   domain.SKUFeeProfileRepository
	reportRepo    domain.DiscrepancyReportRepository
	settingsRepo  domain.TenantSettingsRepository
	defaultRegion domain.Region
	logger        *logging.Logger
	metrics       *metrics.Metrics
	tracer        trace.Tracer
}

// NewFeeService creates a new FeeService. m may be nil.
func NewFeeService(
	profileRepo domain.SKUFeeProfileRepository,
	reportRepo domain.DiscrepancyReportRepository,
	settingsRepo domain.TenantSettingsRepository,
	defaultRegion domain.Region,
	logger *logging.Logger,
	m *metrics.Metrics,
) *FeeService {
	if !defaultRegion.IsValid() {
		defaultRegion = domain.DefaultRegion
	}
	return &FeeService{
		profileRepo:   profileRepo,
		reportRepo:    reportRepo,
		settingsRepo:  settingsRepo,
		defaultRegion: defaultRegion,
		logger:        logger.WithComponent("fee-service"),
		metrics:       m,
		tracer:        otel.Tracer(tracerName),
	}
}

// ResolveRegion picks the marketplace for the request: an explicit
// X-Marketplace-Region header, then the tenant's stored setting, then the
// service default.
func (s *FeeService) ResolveRegion(ctx context.Context) (domain.Region, error) {
	tc := tenant.FromContextOptional(ctx)

	if tc.Region != "" {
		region, ok := domain.ParseRegion(tc.Region)
		if !ok {
			return "", errors.ErrUnsupportedRegion(tc.Region)
		}
		return region, nil
	}

	if tc.TenantID == "" {
		return s.defaultRegion, nil
	}

	settings, err := s.settingsRepo.FindByTenantID(ctx, tc.TenantID)
	if err != nil {
		return "", fmt.Errorf("failed to load tenant settings: %w", err)
	}
	if settings == nil || !settings.Region.IsValid() {
		return s.defaultRegion, nil
	}
	return settings.Region, nil
}

func (s *FeeService) calculator(ctx context.Context) (*domain.FeeCalculator, error) {
	region, err := s.ResolveRegion(ctx)
	if err != nil {
		return nil, err
	}
	calc, err := domain.NewFeeCalculatorForRegion(region)
	if err != nil {
		return nil, errors.ErrUnsupportedRegion(string(region)).Wrap(err)
	}
	return calc, nil
}

// EstimateFees runs the full engine on one listing
func (s *FeeService) EstimateFees(ctx context.Context, cmd EstimateFeesCommand) (*FeeEstimateDTO, error) {
	input, err := toEngineInput(cmd.FeeInputDTO)
	if err != nil {
		return nil, err
	}

	calc, err := s.calculator(ctx)
	if err != nil {
		return nil, err
	}

	est := s.estimate(ctx, "estimate", "", calc, input)
	return &FeeEstimateDTO{FeeEstimate: est}, nil
}

// ClassifySizeTier classifies a package without pricing it
func (s *FeeService) ClassifySizeTier(ctx context.Context, cmd ClassifySizeTierCommand) (*SizeTierDTO, error) {
	in, err := cmd.Package.toPackageInput()
	if err != nil {
		return nil, errors.ErrValidation(err.Error()).Wrap(err)
	}

	_, span := s.tracer.Start(ctx, "fees.size_tier")
	defer span.End()

	start := time.Now()
	dto := &SizeTierDTO{MissingFields: []string{}}
	pkg, missing := in.Resolve()
	if len(missing) > 0 {
		dto.MissingFields = missing
	} else {
		tier := domain.ClassifySizeTier(pkg)
		dim := domain.DimensionalWeight(pkg, tier)
		dto.SizeTier = &tier
		dto.DimensionalWeightLb = &dim
		if w, ok := domain.ShippingWeight(pkg, tier); ok {
			dto.ShippingWeightLb = &w
		}
	}

	tierName := ""
	if dto.SizeTier != nil {
		tierName = string(*dto.SizeTier)
	}
	s.logger.FeeCalculation(ctx, "size_tier", "", tierName, dto.MissingFields)
	if s.metrics != nil {
		s.metrics.RecordFeeCalculation("size_tier", "any", len(dto.MissingFields) == 0, time.Since(start))
	}
	return dto, nil
}

// ReferralFee looks up the referral percent and amount on the tenant's card
func (s *FeeService) ReferralFee(ctx context.Context, query ReferralFeeQuery) (*ReferralFeeDTO, error) {
	region, err := s.ResolveRegion(ctx)
	if err != nil {
		return nil, err
	}
	card, err := domain.RateCardFor(region)
	if err != nil {
		return nil, errors.ErrUnsupportedRegion(string(region)).Wrap(err)
	}

	start := time.Now()
	category := strings.TrimSpace(query.Category)
	dto := &ReferralFeeDTO{
		Region:        region,
		Currency:      card.Currency(),
		Category:      category,
		Price:         domain.ParsePositive(query.Price),
		MissingFields: []string{},
	}
	if dto.Price == nil {
		dto.MissingFields = append(dto.MissingFields, "price")
	}
	if category == "" {
		dto.MissingFields = append(dto.MissingFields, "category")
	}

	if dto.Price != nil && category != "" {
		profile := domain.TenantProfile{TenantID: tenant.GetTenantID(ctx), Region: region}
		dto.Percent = domain.ReferralFeePercentForTenant(profile, category, *dto.Price)
		dto.Fee = card.ReferralFee(category, *dto.Price)
		if dto.Percent == nil {
			dto.MissingFields = append(dto.MissingFields, "category")
		}
	}

	s.logger.FeeCalculation(ctx, "referral", string(region), "", dto.MissingFields)
	if s.metrics != nil {
		s.metrics.RecordFeeCalculation("referral", string(region), len(dto.MissingFields) == 0, time.Since(start))
	}
	return dto, nil
}

// GetRateCard renders the card of a region
func (s *FeeService) GetRateCard(ctx context.Context, region string) (*RateCardDTO, error) {
	r, ok := domain.ParseRegion(region)
	if !ok {
		return nil, errors.ErrUnsupportedRegion(region)
	}
	card, err := domain.RateCardFor(r)
	if err != nil {
		return nil, errors.ErrUnsupportedRegion(region).Wrap(err)
	}
	return ToRateCardDTO(card), nil
}

// SaveSKUFeeProfile recomputes the fees of a SKU and stores them as its autofill profile
func (s *FeeService) SaveSKUFeeProfile(ctx context.Context, sku string, cmd SaveSKUFeeProfileCommand) (*SKUFeeProfileDTO, error) {
	tc, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, errors.ErrTenantRequired().Wrap(err)
	}

	input, err := toEngineInput(cmd.FeeInputDTO)
	if err != nil {
		return nil, err
	}

	calc, err := s.calculator(ctx)
	if err != nil {
		return nil, err
	}

	profile, err := s.profileRepo.FindBySKU(ctx, tc.TenantID, sku)
	if err != nil {
		return nil, fmt.Errorf("failed to get fee profile: %w", err)
	}
	if profile != nil && tc.ValidateOwnership(profile.TenantID, profile.SellerID) != nil {
		return nil, errors.ErrConflict("SKU fee profile is owned by another seller").WithDetails(map[string]string{"sku": sku})
	}
	if profile == nil {
		profile, err = domain.NewSKUFeeProfile(tc.TenantID, tc.SellerID, sku)
		if err != nil {
			return nil, errors.ErrValidation(err.Error()).Wrap(err)
		}
	}

	profile.ApplyEstimate(input, s.estimate(ctx, "sku_profile", sku, calc, input))

	if err := s.profileRepo.Save(ctx, profile); err != nil {
		s.logger.WithError(err).Error("Failed to save fee profile", "sku", sku)
		return nil, fmt.Errorf("failed to save fee profile: %w", err)
	}

	s.logger.Audit(ctx, "upsert", "sku_fee_profile", profile.ProfileID, map[string]any{
		"sku":             sku,
		"region":          profile.Region,
		"rateCardVersion": profile.RateCardVersion,
	})
	return ToSKUFeeProfileDTO(profile), nil
}

// GetSKUFeeProfile retrieves the stored profile of a SKU
func (s *FeeService) GetSKUFeeProfile(ctx context.Context, sku string) (*SKUFeeProfileDTO, error) {
	tc, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, errors.ErrTenantRequired().Wrap(err)
	}

	profile, err := s.profileRepo.FindBySKU(ctx, tc.TenantID, sku)
	if err != nil {
		return nil, fmt.Errorf("failed to get fee profile: %w", err)
	}
	// profiles of other sellers are indistinguishable from missing ones
	if profile == nil || tc.ValidateOwnership(profile.TenantID, profile.SellerID) != nil {
		return nil, errors.ErrNotFoundWithID("fee profile", sku)
	}
	return ToSKUFeeProfileDTO(profile), nil
}

// CreateDiscrepancyReport prices the reference and the Amazon-reported data on
// the same card and stores the field-by-field comparison
func (s *FeeService) CreateDiscrepancyReport(ctx context.Context, cmd CreateDiscrepancyCommand) (*DiscrepancyReportDTO, error) {
	tc, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, errors.ErrTenantRequired().Wrap(err)
	}

	reference, err := toEngineInput(cmd.Reference)
	if err != nil {
		return nil, err
	}
	reported, err := toEngineInput(cmd.Reported)
	if err != nil {
		return nil, err
	}

	calc, err := s.calculator(ctx)
	if err != nil {
		return nil, err
	}

	report, err := domain.NewDiscrepancyReport(
		tc.TenantID,
		tc.SellerID,
		cmd.SKU,
		reference,
		reported,
		s.estimate(ctx, "discrepancy_reference", cmd.SKU, calc, reference),
		s.estimate(ctx, "discrepancy_reported", cmd.SKU, calc, reported),
	)
	if err != nil {
		return nil, errors.ErrValidation(err.Error()).Wrap(err)
	}

	if err := s.reportRepo.Save(ctx, report); err != nil {
		s.logger.WithError(err).Error("Failed to save discrepancy report", "sku", cmd.SKU)
		return nil, fmt.Errorf("failed to save discrepancy report: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordDiscrepancyReport(string(report.Result.Status))
	}
	s.logger.Info("Discrepancy report created",
		"reportId", report.ReportID,
		"sku", cmd.SKU,
		"status", report.Result.Status,
		"mismatchedFields", report.Result.MismatchedFields(),
	)

	return ToDiscrepancyReportDTO(report), nil
}

// GetDiscrepancyReport retrieves a report of the calling tenant
func (s *FeeService) GetDiscrepancyReport(ctx context.Context, reportID string) (*DiscrepancyReportDTO, error) {
	tc, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, errors.ErrTenantRequired().Wrap(err)
	}

	report, err := s.reportRepo.FindByID(ctx, reportID)
	if err != nil {
		return nil, fmt.Errorf("failed to get discrepancy report: %w", err)
	}
	// reports of other tenants or sellers are indistinguishable from missing ones
	if report == nil || tc.ValidateOwnership(report.TenantID, report.SellerID) != nil {
		return nil, errors.ErrNotFoundWithID("discrepancy report", reportID)
	}
	return ToDiscrepancyReportDTO(report), nil
}

// ListDiscrepancyReports lists the reports of a SKU, newest first
func (s *FeeService) ListDiscrepancyReports(ctx context.Context, query ListDiscrepanciesQuery) (*DiscrepancyListResponse, error) {
	tc, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, errors.ErrTenantRequired().Wrap(err)
	}

	pagination := normalisePagination(query.Page, query.PageSize)

	reports, err := s.reportRepo.FindBySKU(ctx, tc.TenantID, tc.SellerID, query.SKU, pagination)
	if err != nil {
		return nil, fmt.Errorf("failed to list discrepancy reports: %w", err)
	}
	total, err := s.reportRepo.CountBySKU(ctx, tc.TenantID, tc.SellerID, query.SKU)
	if err != nil {
		return nil, fmt.Errorf("failed to count discrepancy reports: %w", err)
	}

	dtos := make([]DiscrepancyReportDTO, len(reports))
	for i, r := range reports {
		dtos[i] = *ToDiscrepancyReportDTO(r)
	}

	return &DiscrepancyListResponse{
		Data:     dtos,
		Total:    total,
		Page:     pagination.Page,
		PageSize: pagination.PageSize,
	}, nil
}

// GetTenantSettings returns the stored settings, or the service default
func (s *FeeService) GetTenantSettings(ctx context.Context) (*TenantSettingsDTO, error) {
	tc, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, errors.ErrTenantRequired().Wrap(err)
	}

	settings, err := s.settingsRepo.FindByTenantID(ctx, tc.TenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to get tenant settings: %w", err)
	}
	if settings == nil {
		return &TenantSettingsDTO{TenantID: tc.TenantID, Region: s.defaultRegion}, nil
	}
	return ToTenantSettingsDTO(settings), nil
}

// UpdateTenantSettings switches the tenant's marketplace region
func (s *FeeService) UpdateTenantSettings(ctx context.Context, cmd UpdateTenantSettingsCommand) (*TenantSettingsDTO, error) {
	tc, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, errors.ErrTenantRequired().Wrap(err)
	}

	region, ok := domain.ParseRegion(cmd.Region)
	if !ok {
		return nil, errors.ErrUnsupportedRegion(cmd.Region)
	}

	settings, err := s.settingsRepo.FindByTenantID(ctx, tc.TenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to get tenant settings: %w", err)
	}

	if settings == nil {
		settings, err = domain.NewTenantSettings(tc.TenantID, s.defaultRegion)
		if err != nil {
			return nil, errors.ErrValidation(err.Error()).Wrap(err)
		}
	}
	if err := settings.ChangeRegion(region); err != nil {
		return nil, errors.ErrValidation(err.Error()).Wrap(err)
	}

	if err := s.settingsRepo.Save(ctx, settings); err != nil {
		s.logger.WithError(err).Error("Failed to save tenant settings", "tenantId", tc.TenantID)
		return nil, fmt.Errorf("failed to save tenant settings: %w", err)
	}

	s.logger.Audit(ctx, "update", "tenant_settings", tc.TenantID, map[string]any{"region": region})
	return ToTenantSettingsDTO(settings), nil
}

// PurchaseOrderStages lists the purchase order lifecycle in order
func (s *FeeService) PurchaseOrderStages() []StageDTO {
	stages := domain.PurchaseOrderStages()
	dtos := make([]StageDTO, len(stages))
	for i, stage := range stages {
		dtos[i] = StageDTO{Stage: stage, Position: stage.Position()}
		if next, ok := stage.Next(); ok {
			dtos[i].Next = &next
		}
	}
	return dtos
}

func (s *FeeService) estimate(ctx context.Context, operation, sku string, calc *domain.FeeCalculator, input domain.FeeEstimateInput) domain.FeeEstimate {
	region := string(calc.RateCard().Region())
	start := time.Now()

	est, _ := tracing.TracedOperation(ctx, s.tracer, "fees."+operation,
		func(context.Context) (domain.FeeEstimate, error) {
			return calc.Estimate(input), nil
		},
		tracing.FeeSpanAttributes(operation, region, sku)...,
	)

	tierName := ""
	if est.SizeTier != nil {
		tierName = string(*est.SizeTier)
	}
	s.logger.FeeCalculation(ctx, operation, region, tierName, est.MissingFields)
	if s.metrics != nil {
		s.metrics.RecordFeeCalculation(operation, region, est.Complete(), time.Since(start))
	}
	return est
}

func toEngineInput(dto FeeInputDTO) (domain.FeeEstimateInput, error) {
	input, err := dto.toFeeEstimateInput()
	if err != nil {
		return domain.FeeEstimateInput{}, errors.ErrValidation(err.Error()).Wrap(err)
	}
	return input, nil
}

func normalisePagination(page, pageSize int64) domain.Pagination {
	p := domain.DefaultPagination()
	if page > 0 {
		p.Page = page
	}
	if pageSize > 0 {
		p.PageSize = pageSize
	}
	if p.PageSize > maxPageSize {
		p.PageSize = maxPageSize
	}
	return p
}
