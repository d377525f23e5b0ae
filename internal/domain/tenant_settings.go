package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TenantSettings holds the per-tenant choices the fee engine depends on
type TenantSettings struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	TenantID  string             `bson:"tenantId" json:"tenantId"`
	Region    Region             `bson:"region" json:"region"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`

	domainEvents []DomainEvent `bson:"-" json:"-"`
}

// NewTenantSettings creates settings for tenantID in region
func NewTenantSettings(tenantID string, region Region) (*TenantSettings, error) {
	if tenantID == "" {
		return nil, ErrTenantRequired
	}
	if !region.IsValid() {
		return nil, ErrInvalidRegion
	}

	now := time.Now().UTC()
	return &TenantSettings{
		TenantID:     tenantID,
		Region:       region,
		CreatedAt:    now,
		UpdatedAt:    now,
		domainEvents: make([]DomainEvent, 0),
	}, nil
}

// ChangeRegion switches the tenant's marketplace. Setting the current region is a no-op.
func (s *TenantSettings) ChangeRegion(region Region) error {
	if !region.IsValid() {
		return ErrInvalidRegion
	}
	if region == s.Region {
		return nil
	}

	old := s.Region
	s.Region = region
	s.UpdatedAt = time.Now().UTC()

	s.addDomainEvent(&TenantRegionChangedEvent{
		TenantID:  s.TenantID,
		OldRegion: old,
		NewRegion: region,
		ChangedAt: s.UpdatedAt,
	})
	return nil
}

// Profile returns the engine view of the tenant
func (s *TenantSettings) Profile() TenantProfile {
	return TenantProfile{TenantID: s.TenantID, Region: s.Region}
}

func (s *TenantSettings) addDomainEvent(event DomainEvent) {
	s.domainEvents = append(s.domainEvents, event)
}

// DomainEvents returns all pending domain events
func (s *TenantSettings) DomainEvents() []DomainEvent {
	return s.domainEvents
}

// ClearDomainEvents clears all pending domain events
func (s *TenantSettings) ClearDomainEvents() {
	s.domainEvents = make([]DomainEvent, 0)
}
