package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifySizeTier(t *testing.T) {
	tests := []struct {
		name     string
		pkg      Package
		expected SizeTier
	}{
		{"reference case", NewPackage(15, 12, 0.75, 16, UnitInches, UnitOunces), SizeTierSmallStandard},
		{"just over small standard length", NewPackage(15.01, 12, 0.75, 1, UnitInches, UnitPounds), SizeTierLargeStandard},
		{"just over small standard weight", NewPackage(15, 12, 0.75, 1.01, UnitInches, UnitPounds), SizeTierLargeStandard},
		{"large standard limits", NewPackage(18, 14, 8, 20, UnitInches, UnitPounds), SizeTierLargeStandard},
		{"over large standard weight", NewPackage(18, 14, 8, 20.01, UnitInches, UnitPounds), SizeTierSmallBulky},
		{"small bulky", NewPackage(20, 15, 10, 5, UnitInches, UnitPounds), SizeTierSmallBulky},
		{"large bulky by length", NewPackage(40, 20, 10, 30, UnitInches, UnitPounds), SizeTierLargeBulky},
		{"length plus girth exactly 130", NewPackage(50, 20, 20, 30, UnitInches, UnitPounds), SizeTierLargeBulky},
		{"length plus girth over 130", NewPackage(50, 20, 20.01, 30, UnitInches, UnitPounds), SizeTierExtraLarge0To50},
		{"extra-large 0 to 50", NewPackage(100, 1, 1, 1, UnitInches, UnitPounds), SizeTierExtraLarge0To50},
		{"extra-large exactly 50", NewPackage(60, 30, 30, 50, UnitInches, UnitPounds), SizeTierExtraLarge0To50},
		{"extra-large 50+ to 70", NewPackage(60, 30, 30, 60, UnitInches, UnitPounds), SizeTierExtraLarge50To70},
		{"extra-large 70+ to 150", NewPackage(60, 30, 30, 150, UnitInches, UnitPounds), SizeTierExtraLarge70To150},
		{"extra-large 150+", NewPackage(60, 30, 30, 150.5, UnitInches, UnitPounds), SizeTierExtraLarge150Plus},
		{"metric boundary", NewPackage(38.1, 30.48, 1.905, 0.45359237, UnitCentimeters, UnitKilograms), SizeTierSmallStandard},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ClassifySizeTier(tt.pkg))
		})
	}
}

func TestClassifySizeTierMonotonicInWeight(t *testing.T) {
	prev := -1
	for w := 0.1; w <= 200; w += 0.7 {
		rank := ClassifySizeTier(NewPackage(14, 11, 0.5, w, UnitInches, UnitPounds)).Rank()
		assert.GreaterOrEqual(t, rank, prev, "weight %.2f", w)
		prev = rank
	}
}

func TestClassifySizeTierNeverOvermax(t *testing.T) {
	for _, w := range []float64{1, 100, 1000, 10000} {
		assert.NotEqual(t, SizeTierOvermax, ClassifySizeTier(NewPackage(500, 300, 300, w, UnitInches, UnitPounds)))
	}
}

func TestParseSizeTier(t *testing.T) {
	tier, ok := ParseSizeTier("  small   STANDARD-size ")
	assert.True(t, ok)
	assert.Equal(t, SizeTierSmallStandard, tier)

	tier, ok = ParseSizeTier("overmax")
	assert.True(t, ok)
	assert.Equal(t, SizeTierOvermax, tier)

	_, ok = ParseSizeTier("Medium")
	assert.False(t, ok)
}

func TestSizeTierHelpers(t *testing.T) {
	assert.Len(t, SizeTiers(), 9)
	assert.Equal(t, 0, SizeTierSmallStandard.Rank())
	assert.Equal(t, -1, SizeTier("Medium").Rank())
	assert.False(t, SizeTier("Medium").IsValid())
	assert.True(t, SizeTierExtraLarge70To150.IsExtraLarge())
	assert.False(t, SizeTierLargeBulky.IsExtraLarge())
}
