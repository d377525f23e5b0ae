package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func ptr(v float64) *float64 { return &v }

func TestNewPackageSortsSides(t *testing.T) {
	orders := [][3]float64{
		{15, 12, 0.75},
		{0.75, 15, 12},
		{12, 0.75, 15},
	}
	for _, o := range orders {
		p := NewPackage(o[0], o[1], o[2], 1, UnitInches, UnitPounds)
		assert.Equal(t, 15.0, p.Longest)
		assert.Equal(t, 12.0, p.Median)
		assert.Equal(t, 0.75, p.Shortest)
	}
}

func TestUnitConversion(t *testing.T) {
	assert.Equal(t, 1.0, UnitCentimeters.ToInches(2.54))
	assert.Equal(t, 15.0, UnitCentimeters.ToInches(38.1))
	assert.Equal(t, 7.0, UnitInches.ToInches(7))

	assert.Equal(t, 1.0, UnitOunces.ToPounds(16))
	assert.Equal(t, 1.0, UnitKilograms.ToPounds(0.45359237))
	assert.Equal(t, 1.0, UnitGrams.ToPounds(453.59237))
	assert.Equal(t, 2.5, UnitPounds.ToPounds(2.5))
}

func TestParseUnits(t *testing.T) {
	lu, ok := ParseLengthUnit("")
	assert.True(t, ok)
	assert.Equal(t, UnitCentimeters, lu)

	lu, ok = ParseLengthUnit(" IN ")
	assert.True(t, ok)
	assert.Equal(t, UnitInches, lu)

	_, ok = ParseLengthUnit("furlong")
	assert.False(t, ok)

	wu, ok := ParseWeightUnit("")
	assert.True(t, ok)
	assert.Equal(t, UnitKilograms, wu)

	wu, ok = ParseWeightUnit("Oz")
	assert.True(t, ok)
	assert.Equal(t, UnitOunces, wu)

	_, ok = ParseWeightUnit("stone")
	assert.False(t, ok)
}

func TestPackageGirth(t *testing.T) {
	p := NewPackage(40, 20, 10, 30, UnitInches, UnitPounds)
	assert.Equal(t, 60.0, p.Girth())
	assert.Equal(t, 100.0, p.LengthPlusGirth())
}

func TestPackageInputResolve(t *testing.T) {
	tests := []struct {
		name    string
		input   PackageInput
		missing []string
	}{
		{
			name:  "complete",
			input: PackageInput{Length: ptr(10), Width: ptr(5), Height: ptr(2), Weight: ptr(1)},
		},
		{
			name:    "missing height",
			input:   PackageInput{Length: ptr(10), Width: ptr(5), Weight: ptr(1)},
			missing: []string{"height"},
		},
		{
			name:    "non-positive values",
			input:   PackageInput{Length: ptr(0), Width: ptr(-5), Height: ptr(2)},
			missing: []string{"length", "width", "weight"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, missing := tt.input.Resolve()
			assert.Equal(t, tt.missing, missing)
		})
	}
}

func TestPackageInputResolveDefaultsToMetric(t *testing.T) {
	in := PackageInput{Length: ptr(2.54), Width: ptr(2.54), Height: ptr(2.54), Weight: ptr(0.45359237)}
	p, missing := in.Resolve()
	assert.Empty(t, missing)
	assert.Equal(t, Package{Longest: 1, Median: 1, Shortest: 1, WeightLb: 1}, p)
}
