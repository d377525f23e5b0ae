package domain

import "strings"

// Region is the Amazon marketplace whose rate card applies
type Region string

const (
	RegionUS Region = "US"
	RegionUK Region = "UK"
)

// DefaultRegion applies when a tenant has no stored region
const DefaultRegion = RegionUS

// ParseRegion accepts region codes in any case. GB is an alias for UK.
func ParseRegion(s string) (Region, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "US", "USA":
		return RegionUS, true
	case "UK", "GB":
		return RegionUK, true
	}
	return "", false
}

// IsValid reports whether r has a rate card
func (r Region) IsValid() bool {
	return r == RegionUS || r == RegionUK
}

// Regions returns every supported region
func Regions() []Region {
	return []Region{RegionUS, RegionUK}
}

// TenantProfile is the part of a tenant the fee engine needs
type TenantProfile struct {
	TenantID string
	Region   Region
}
