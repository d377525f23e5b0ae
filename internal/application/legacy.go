package application

import (
	"strings"
	"unicode"

	"github.com/sellerops/fba-fees/internal/domain"
)

var dimensionSeparators = strings.NewReplacer("×", "x", "*", "x")

// ParseLegacyDimensions reads the single-string format older clients send.
// The grammar is three sides joined by "x", "×" or "*", where each side is a
// number optionally followed by a length unit accepted by
// domain.ParseLengthUnit ("in", "inch", "inches", "cm", "centimeters"...):
//
//	12 x 10 x 3 in
//	12in x 10in x 3in
//	30×20×5 centimeters
//
// A unit written on any side applies to all three; no unit means
// centimetres. Sides that cannot be read come back nil, as do all three when
// the string does not have exactly three sides or names two different units.
func ParseLegacyDimensions(s string) (length, width, height *float64, unit domain.LengthUnit) {
	unit = domain.UnitCentimeters
	parts := strings.Split(dimensionSeparators.Replace(strings.ToLower(strings.TrimSpace(s))), "x")
	if len(parts) != 3 {
		return nil, nil, nil, unit
	}

	var sides [3]*float64
	var named domain.LengthUnit
	for i, part := range parts {
		number, suffix := splitUnitSuffix(part)
		if suffix != "" {
			u, ok := domain.ParseLengthUnit(suffix)
			if !ok {
				continue
			}
			if named != "" && named != u {
				return nil, nil, nil, unit
			}
			named = u
		}
		sides[i] = domain.ParsePositive(number)
	}
	if named != "" {
		unit = named
	}
	return sides[0], sides[1], sides[2], unit
}

// splitUnitSuffix cuts "3.5 inches" into "3.5" and "inches".
func splitUnitSuffix(side string) (number, suffix string) {
	side = strings.TrimSpace(side)
	i := strings.IndexFunc(side, unicode.IsLetter)
	if i < 0 {
		return side, ""
	}
	return strings.TrimSpace(side[:i]), strings.TrimSpace(side[i:])
}

// toPackageInput resolves units and falls back to the legacy dimensions
// string when no discrete side was supplied
func (p PackageDTO) toPackageInput() (domain.PackageInput, error) {
	lengthUnit, ok := domain.ParseLengthUnit(p.LengthUnit)
	if !ok {
		return domain.PackageInput{}, errInvalidLengthUnit
	}
	weightUnit, ok := domain.ParseWeightUnit(p.WeightUnit)
	if !ok {
		return domain.PackageInput{}, errInvalidWeightUnit
	}

	in := domain.PackageInput{
		Length:     p.Length.Ptr(),
		Width:      p.Width.Ptr(),
		Height:     p.Height.Ptr(),
		LengthUnit: lengthUnit,
		Weight:     p.Weight.Ptr(),
		WeightUnit: weightUnit,
	}

	if in.Length == nil && in.Width == nil && in.Height == nil && strings.TrimSpace(p.Dimensions) != "" {
		var legacyUnit domain.LengthUnit
		in.Length, in.Width, in.Height, legacyUnit = ParseLegacyDimensions(p.Dimensions)
		if p.LengthUnit == "" {
			in.LengthUnit = legacyUnit
		}
	}
	return in, nil
}

func (f FeeInputDTO) toFeeEstimateInput() (domain.FeeEstimateInput, error) {
	pkg, err := f.Package.toPackageInput()
	if err != nil {
		return domain.FeeEstimateInput{}, err
	}
	return domain.FeeEstimateInput{
		Package:  pkg,
		Price:    f.Price.Ptr(),
		Category: strings.TrimSpace(f.Category),
		SizeTier: strings.TrimSpace(f.SizeTier),
	}, nil
}
