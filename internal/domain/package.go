package domain

import (
	"math"
	"sort"
	"strings"
)

// LengthUnit is the unit package sides are supplied in
type LengthUnit string

const (
	UnitCentimeters LengthUnit = "cm"
	UnitInches      LengthUnit = "in"
)

// WeightUnit is the unit package weight is supplied in
type WeightUnit string

const (
	UnitKilograms WeightUnit = "kg"
	UnitGrams     WeightUnit = "g"
	UnitPounds    WeightUnit = "lb"
	UnitOunces    WeightUnit = "oz"
)

const (
	centimetersPerInch = 2.54
	kilogramsPerPound  = 0.45359237
	ouncesPerPound     = 16.0

	// conversions are normalised to this many decimal places so that a value
	// sitting exactly on a tier limit in cm or kg stays on it after conversion
	conversionPrecision = 1e6
)

// ParseLengthUnit accepts cm/in in any case; empty defaults to cm
func ParseLengthUnit(s string) (LengthUnit, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "cm", "centimeter", "centimeters":
		return UnitCentimeters, true
	case "in", "inch", "inches":
		return UnitInches, true
	}
	return "", false
}

// ParseWeightUnit accepts kg/g/lb/oz in any case; empty defaults to kg
func ParseWeightUnit(s string) (WeightUnit, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "kg", "kgs", "kilogram", "kilograms":
		return UnitKilograms, true
	case "g", "gram", "grams":
		return UnitGrams, true
	case "lb", "lbs", "pound", "pounds":
		return UnitPounds, true
	case "oz", "ounce", "ounces":
		return UnitOunces, true
	}
	return "", false
}

// ToInches converts a length in u to inches
func (u LengthUnit) ToInches(v float64) float64 {
	if u == UnitInches {
		return v
	}
	return normalise(v / centimetersPerInch)
}

// ToPounds converts a weight in u to pounds
func (u WeightUnit) ToPounds(v float64) float64 {
	switch u {
	case UnitPounds:
		return v
	case UnitOunces:
		return v / ouncesPerPound
	case UnitGrams:
		return normalise(v / 1000 / kilogramsPerPound)
	default:
		return normalise(v / kilogramsPerPound)
	}
}

func normalise(v float64) float64 {
	return math.Round(v*conversionPrecision) / conversionPrecision
}

// Package is a parcel in inches and pounds with its sides sorted longest first.
type Package struct {
	Longest  float64 `bson:"longestIn" json:"longestIn"`
	Median   float64 `bson:"medianIn" json:"medianIn"`
	Shortest float64 `bson:"shortestIn" json:"shortestIn"`
	WeightLb float64 `bson:"weightLb" json:"weightLb"`
}

// NewPackage sorts the three sides and converts everything to inches and pounds.
// Input order of the sides does not matter.
func NewPackage(side1, side2, side3, weight float64, lengthUnit LengthUnit, weightUnit WeightUnit) Package {
	sides := []float64{
		lengthUnit.ToInches(side1),
		lengthUnit.ToInches(side2),
		lengthUnit.ToInches(side3),
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(sides)))

	return Package{
		Longest:  sides[0],
		Median:   sides[1],
		Shortest: sides[2],
		WeightLb: weightUnit.ToPounds(weight),
	}
}

// Girth is 2 × (median + shortest)
func (p Package) Girth() float64 {
	return 2 * (p.Median + p.Shortest)
}

// LengthPlusGirth is longest + girth
func (p Package) LengthPlusGirth() float64 {
	return p.Longest + p.Girth()
}

// PackageInput carries the optional, caller-supplied measurements of a parcel.
type PackageInput struct {
	Length     *float64   `bson:"length,omitempty" json:"length"`
	Width      *float64   `bson:"width,omitempty" json:"width"`
	Height     *float64   `bson:"height,omitempty" json:"height"`
	LengthUnit LengthUnit `bson:"lengthUnit" json:"lengthUnit"`
	Weight     *float64   `bson:"weight,omitempty" json:"weight"`
	WeightUnit WeightUnit `bson:"weightUnit" json:"weightUnit"`
}

// Resolve builds a Package when every measurement is present and positive.
// Otherwise it reports the names of the unusable fields.
func (in PackageInput) Resolve() (Package, []string) {
	var missing []string
	check := func(name string, v *float64) {
		if !isPositive(v) {
			missing = append(missing, name)
		}
	}
	check("length", in.Length)
	check("width", in.Width)
	check("height", in.Height)
	check("weight", in.Weight)
	if len(missing) > 0 {
		return Package{}, missing
	}

	lengthUnit := in.LengthUnit
	if lengthUnit == "" {
		lengthUnit = UnitCentimeters
	}
	weightUnit := in.WeightUnit
	if weightUnit == "" {
		weightUnit = UnitKilograms
	}

	return NewPackage(*in.Length, *in.Width, *in.Height, *in.Weight, lengthUnit, weightUnit), nil
}

func isPositive(v *float64) bool {
	return v != nil && isPositiveValue(*v)
}

func isPositiveValue(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}
