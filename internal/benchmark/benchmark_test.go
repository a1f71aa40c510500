package benchmark

import (
	"errors"
	"math"
	"testing"

	"github.com/coralworks/reefplan/internal/allocator"
)

func TestEvaluate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		allocated      int
		survival       float64
		areaM2         float64
		wantDensity    float64
		wantCompliance Compliance
	}{
		{
			name:      "WithinRange",
			allocated: 50, survival: 0.6, areaM2: 100,
			wantDensity:    30,
			wantCompliance: ComplianceWithin,
		},
		{
			name:      "BelowRange",
			allocated: 10, survival: 0.6, areaM2: 100,
			wantDensity:    6,
			wantCompliance: ComplianceBelow,
		},
		{
			name:      "AboveRange",
			allocated: 200, survival: 0.6, areaM2: 100,
			wantDensity:    120,
			wantCompliance: ComplianceAbove,
		},
		{
			name:      "ZeroAllocationIsBelow",
			allocated: 0, survival: 0.6, areaM2: 100,
			wantDensity:    0,
			wantCompliance: ComplianceBelow,
		},
		{
			name:      "BoundaryLowIsWithin",
			allocated: 13, survival: 1.0, areaM2: 100,
			wantDensity:    13,
			wantCompliance: ComplianceWithin,
		},
		{
			name:      "BoundaryHighIsWithin",
			allocated: 50, survival: 1.0, areaM2: 100,
			wantDensity:    50,
			wantCompliance: ComplianceWithin,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := Evaluate(tc.allocated, tc.survival, tc.areaM2, DefaultRange())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if math.Abs(got.ColoniesPer100M2-tc.wantDensity) > 1e-9 {
				t.Fatalf("expected density %g, got %g", tc.wantDensity, got.ColoniesPer100M2)
			}
			if got.Compliance != tc.wantCompliance {
				t.Fatalf("expected %s, got %s", tc.wantCompliance, got.Compliance)
			}
		})
	}
}

func TestEvaluateDeterministic(t *testing.T) {
	t.Parallel()

	first, err := Evaluate(42, 0.6, 120, DefaultRange())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := Evaluate(42, 0.6, 120, DefaultRange())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != second {
		t.Fatalf("expected identical results, got %+v vs %+v", first, second)
	}
}

func TestEvaluateInvalidInput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		allocated int
		survival  float64
		areaM2    float64
		rng       Range
	}{
		{name: "ZeroArea", allocated: 10, survival: 0.6, areaM2: 0, rng: DefaultRange()},
		{name: "NegativeArea", allocated: 10, survival: 0.6, areaM2: -5, rng: DefaultRange()},
		{name: "ZeroSurvival", allocated: 10, survival: 0, areaM2: 100, rng: DefaultRange()},
		{name: "SurvivalAboveOne", allocated: 10, survival: 1.1, areaM2: 100, rng: DefaultRange()},
		{name: "NegativeAllocated", allocated: -1, survival: 0.6, areaM2: 100, rng: DefaultRange()},
		{name: "InvertedRange", allocated: 10, survival: 0.6, areaM2: 100, rng: Range{Low: 50, High: 13}},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := Evaluate(tc.allocated, tc.survival, tc.areaM2, tc.rng)
			var cfgErr *allocator.ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected ConfigurationError, got %v", err)
			}
		})
	}
}

func TestEvaluateForms(t *testing.T) {
	t.Parallel()

	forms := []allocator.GrowthForm{
		{Name: "branching", Enabled: true, Available: 100},
		{Name: "massive", Enabled: true, Available: 50},
		{Name: "encrusting", Enabled: false, Available: 20},
	}
	allocations := map[string]int{"branching": 100, "massive": 10}

	rows, err := EvaluateForms(forms, allocations, 0.6, 100, DefaultRange())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected rows for enabled forms only, got %d", len(rows))
	}
	if rows[0].Name != "branching" || rows[0].Compliance != ComplianceAbove {
		t.Fatalf("unexpected first row: %+v", rows[0])
	}
	if rows[1].Name != "massive" || rows[1].Compliance != ComplianceBelow {
		t.Fatalf("unexpected second row: %+v", rows[1])
	}
}
