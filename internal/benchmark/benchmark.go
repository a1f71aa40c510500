// Package benchmark estimates whether a planned allocation reaches a published
// colony-density range once the assumed survival rate is applied. The range and
// survival rate are configuration data, not derived here.
package benchmark

import (
	"github.com/coralworks/reefplan/internal/allocator"
)

// Compliance classifies an estimated density against the acceptable range.
type Compliance string

const (
	ComplianceBelow  Compliance = "below"
	ComplianceWithin Compliance = "within"
	ComplianceAbove  Compliance = "above"
)

// Range is the acceptable colony density window in colonies per 100 m².
type Range struct {
	Low  float64 `json:"low" yaml:"low"`
	High float64 `json:"high" yaml:"high"`
}

// DefaultRange is the published 13-50 colonies / 100 m² window.
func DefaultRange() Range {
	return Range{Low: 13, High: 50}
}

// Result holds the density estimate for a set of allocated fragments.
type Result struct {
	AllocatedUnits   int        `json:"allocatedUnits"`
	SurvivingUnits   float64    `json:"survivingUnits"`
	ColoniesPer100M2 float64    `json:"coloniesPer100m2"`
	Compliance       Compliance `json:"compliance"`
}

// FormResult is a per-growth-form density row.
type FormResult struct {
	Name string `json:"name"`
	Result
}

// Evaluate computes the expected surviving colonies and their density for the
// whole allocation. Identical inputs always yield the identical classification.
func Evaluate(totalAllocated int, survivalRate, siteAreaM2 float64, r Range) (Result, error) {
	if err := validate(totalAllocated, survivalRate, siteAreaM2, r); err != nil {
		return Result{}, err
	}

	surviving := float64(totalAllocated) * survivalRate
	density := surviving / siteAreaM2 * 100

	return Result{
		AllocatedUnits:   totalAllocated,
		SurvivingUnits:   surviving,
		ColoniesPer100M2: density,
		Compliance:       classify(density, r),
	}, nil
}

// EvaluateForms computes one density row per enabled growth form, in form
// order, each classified against the same range.
func EvaluateForms(forms []allocator.GrowthForm, allocations map[string]int, survivalRate, siteAreaM2 float64, r Range) ([]FormResult, error) {
	enabled := allocator.EnabledForms(forms)
	rows := make([]FormResult, 0, len(enabled))
	for _, f := range enabled {
		res, err := Evaluate(allocations[f.Name], survivalRate, siteAreaM2, r)
		if err != nil {
			return nil, err
		}
		rows = append(rows, FormResult{Name: f.Name, Result: res})
	}
	return rows, nil
}

func validate(totalAllocated int, survivalRate, siteAreaM2 float64, r Range) error {
	if totalAllocated < 0 {
		return &allocator.ConfigurationError{Field: "allocated units", Reason: "must be non-negative"}
	}
	if survivalRate <= 0 || survivalRate > 1 {
		return &allocator.ConfigurationError{Field: "survival rate", Reason: "must be in (0,1]"}
	}
	// Rejecting a non-positive area up front keeps Inf and NaN out of the
	// density arithmetic entirely.
	if siteAreaM2 <= 0 {
		return &allocator.ConfigurationError{Field: "site area", Reason: "must be positive"}
	}
	if r.Low < 0 || r.High < r.Low {
		return &allocator.ConfigurationError{Field: "benchmark range", Reason: "must satisfy 0 <= low <= high"}
	}
	return nil
}

func classify(density float64, r Range) Compliance {
	switch {
	case density < r.Low:
		return ComplianceBelow
	case density > r.High:
		return ComplianceAbove
	default:
		return ComplianceWithin
	}
}
