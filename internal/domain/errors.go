package domain

import "errors"

// Domain errors
var (
	ErrInvalidRegion          = errors.New("invalid region")
	ErrRateCardNotFound       = errors.New("rate card not found")
	ErrInvalidSKU             = errors.New("sku is required")
	ErrTenantRequired         = errors.New("tenant id is required")
	ErrInvalidStage           = errors.New("invalid purchase order stage")
	ErrInvalidStageTransition = errors.New("invalid purchase order stage transition")
)
