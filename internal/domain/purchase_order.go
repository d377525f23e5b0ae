package domain

import "strings"

// PurchaseOrderStage is a step in the supplier purchase order lifecycle
type PurchaseOrderStage string

const (
	StageDraft        PurchaseOrderStage = "draft"
	StageSubmitted    PurchaseOrderStage = "submitted"
	StageApproved     PurchaseOrderStage = "approved"
	StageInProduction PurchaseOrderStage = "in_production"
	StageShipped      PurchaseOrderStage = "shipped"
	StageReceived     PurchaseOrderStage = "received"
	StageClosed       PurchaseOrderStage = "closed"
)

var purchaseOrderStages = []PurchaseOrderStage{
	StageDraft,
	StageSubmitted,
	StageApproved,
	StageInProduction,
	StageShipped,
	StageReceived,
	StageClosed,
}

// PurchaseOrderStages returns every stage in lifecycle order
func PurchaseOrderStages() []PurchaseOrderStage {
	stages := make([]PurchaseOrderStage, len(purchaseOrderStages))
	copy(stages, purchaseOrderStages)
	return stages
}

// ParsePurchaseOrderStage accepts a stage name in any case
func ParsePurchaseOrderStage(s string) (PurchaseOrderStage, error) {
	stage := PurchaseOrderStage(strings.ToLower(strings.TrimSpace(s)))
	if !stage.IsValid() {
		return "", ErrInvalidStage
	}
	return stage, nil
}

// IsValid checks if the stage is known
func (s PurchaseOrderStage) IsValid() bool {
	return s.Position() >= 0
}

// Position returns the zero-based lifecycle index, or -1 for unknown stages
func (s PurchaseOrderStage) Position() int {
	for i, stage := range purchaseOrderStages {
		if stage == s {
			return i
		}
	}
	return -1
}

// Next returns the following stage; closed and unknown stages have none
func (s PurchaseOrderStage) Next() (PurchaseOrderStage, bool) {
	pos := s.Position()
	if pos < 0 || pos == len(purchaseOrderStages)-1 {
		return "", false
	}
	return purchaseOrderStages[pos+1], true
}

// CanAdvanceTo reports whether target lies strictly ahead of s
func (s PurchaseOrderStage) CanAdvanceTo(target PurchaseOrderStage) bool {
	from, to := s.Position(), target.Position()
	return from >= 0 && to > from
}

// ValidateTransition returns ErrInvalidStageTransition unless target lies ahead of s
func (s PurchaseOrderStage) ValidateTransition(target PurchaseOrderStage) error {
	if !s.IsValid() || !target.IsValid() {
		return ErrInvalidStage
	}
	if !s.CanAdvanceTo(target) {
		return ErrInvalidStageTransition
	}
	return nil
}
