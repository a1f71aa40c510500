package allocator

import (
	"errors"
	"math"
	"testing"
)

func baseRunConfig() RunConfig {
	return RunConfig{
		SurvivalRate: 0.6,
		Tolerance:    0.05,
		Normalize:    true,
		UseWeights:   false,
		SiteAreaM2:   100,
		ClusterSize:  14,
	}
}

func TestAllocate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		forms      []GrowthForm
		cfg        func() RunConfig
		want       map[string]int
		wantStatus Status
	}{
		{
			name: "BranchingMassiveWorkedExample",
			forms: []GrowthForm{
				{Name: "branching", Enabled: true, Available: 100, TargetProportion: 0.7},
				{Name: "massive", Enabled: true, Available: 50, TargetProportion: 0.3},
			},
			cfg:        baseRunConfig,
			want:       map[string]int{"branching": 100, "massive": 50},
			wantStatus: StatusOptimal,
		},
		{
			name: "SingleFormZeroSupply",
			forms: []GrowthForm{
				{Name: "branching", Enabled: true, Available: 0, TargetProportion: 1},
			},
			cfg:        baseRunConfig,
			want:       map[string]int{"branching": 0},
			wantStatus: StatusOptimal,
		},
		{
			name: "AllFormsDisabled",
			forms: []GrowthForm{
				{Name: "branching", Available: 100, TargetProportion: 0.5},
				{Name: "massive", Available: 100, TargetProportion: 0.5},
			},
			cfg:        baseRunConfig,
			want:       map[string]int{},
			wantStatus: StatusOptimal,
		},
		{
			name: "InfeasibleStrictProportions",
			forms: []GrowthForm{
				// With normalize off, floors sum above any achievable total.
				{Name: "branching", Enabled: true, Available: 10, TargetProportion: 0.9},
				{Name: "massive", Enabled: true, Available: 10, TargetProportion: 0.9},
			},
			cfg: func() RunConfig {
				cfg := baseRunConfig()
				cfg.Normalize = false
				cfg.Tolerance = 0
				return cfg
			},
			want:       map[string]int{"branching": 0, "massive": 0},
			wantStatus: StatusInfeasible,
		},
		{
			name: "ScarceSupplyShrinksTotal",
			forms: []GrowthForm{
				{Name: "branching", Enabled: true, Available: 5, TargetProportion: 0.5},
				{Name: "massive", Enabled: true, Available: 100, TargetProportion: 0.5},
			},
			cfg: func() RunConfig {
				cfg := baseRunConfig()
				cfg.Tolerance = 0
				return cfg
			},
			// branching caps its own floor at 5, so the best total is 10.
			want:       map[string]int{"branching": 5, "massive": 5},
			wantStatus: StatusOptimal,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := New().Allocate(tc.forms, tc.cfg())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Status != tc.wantStatus {
				t.Fatalf("expected status %s, got %s", tc.wantStatus, got.Status)
			}
			if len(got.Allocations) != len(tc.want) {
				t.Fatalf("unexpected allocation keys: got %v want %v", got.Allocations, tc.want)
			}
			for name, want := range tc.want {
				if got.Allocations[name] != want {
					t.Fatalf("form %s: got %d want %d (full result %v)", name, got.Allocations[name], want, got.Allocations)
				}
			}
		})
	}
}

func TestAllocateRespectsSupplyAndFloors(t *testing.T) {
	t.Parallel()

	forms := []GrowthForm{
		{Name: "Branching", Enabled: true, Available: 120, TargetProportion: 0.234, EcoWeight: 0.3, ClusterWeight: 0.3},
		{Name: "Massive/Sub-massive", Enabled: true, Available: 300, TargetProportion: 0.429, EcoWeight: 0.9, ClusterWeight: 1.0},
		{Name: "Columnar", Enabled: true, Available: 80, TargetProportion: 0.124, EcoWeight: 0.56, ClusterWeight: 0.3},
		{Name: "Table/Plate", Enabled: true, Available: 90, TargetProportion: 0.162, EcoWeight: 0.45, ClusterWeight: 0.6},
		{Name: "Encrusting", Enabled: true, Available: 40, TargetProportion: 0.051, EcoWeight: 0.45, ClusterWeight: 0.6},
	}
	cfg := baseRunConfig()
	cfg.UseWeights = true

	res, err := New().Allocate(forms, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != StatusOptimal {
		t.Fatalf("expected OPTIMAL, got %s", res.Status)
	}

	total := res.TotalAllocated()
	if total == 0 {
		t.Fatalf("expected a positive allocation")
	}
	targets := EffectiveTargets(forms, cfg.Normalize)
	for i, f := range forms {
		got := res.Allocations[f.Name]
		if got > f.Available {
			t.Fatalf("form %s allocated %d above supply %d", f.Name, got, f.Available)
		}
		achieved := float64(got) / float64(total)
		if achieved < targets[i]-cfg.Tolerance-1e-6 {
			t.Fatalf("form %s achieved %g below floor %g", f.Name, achieved, targets[i]-cfg.Tolerance)
		}
	}
}

func TestAllocateObjectiveMonotonicInSupply(t *testing.T) {
	t.Parallel()

	forms := []GrowthForm{
		{Name: "branching", Enabled: true, Available: 60, TargetProportion: 0.6},
		{Name: "massive", Enabled: true, Available: 40, TargetProportion: 0.4},
	}
	cfg := baseRunConfig()

	prev := -1
	for extra := 0; extra <= 50; extra += 10 {
		grown := []GrowthForm{forms[0], forms[1]}
		grown[1].Available += extra

		res, err := New().Allocate(grown, cfg)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Status != StatusOptimal {
			t.Fatalf("expected OPTIMAL, got %s", res.Status)
		}
		total := res.TotalAllocated()
		if total < prev {
			t.Fatalf("objective decreased from %d to %d when supply grew", prev, total)
		}
		prev = total
	}
}

func TestAllocateEqualWeightsMatchesUnweighted(t *testing.T) {
	t.Parallel()

	forms := []GrowthForm{
		{Name: "branching", Enabled: true, Available: 70, TargetProportion: 0.5, EcoWeight: 0.8},
		{Name: "massive", Enabled: true, Available: 90, TargetProportion: 0.5, EcoWeight: 0.8},
	}

	unweightedCfg := baseRunConfig()
	weightedCfg := baseRunConfig()
	weightedCfg.UseWeights = true

	unweighted, err := New().Allocate(forms, unweightedCfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	weighted, err := New().Allocate(forms, weightedCfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if unweighted.TotalAllocated() != weighted.TotalAllocated() {
		t.Fatalf("equal weights: totals differ, unweighted=%d weighted=%d",
			unweighted.TotalAllocated(), weighted.TotalAllocated())
	}
}

func TestAllocateValidation(t *testing.T) {
	t.Parallel()

	valid := []GrowthForm{{Name: "branching", Enabled: true, Available: 10, TargetProportion: 0.5}}

	tests := []struct {
		name  string
		forms []GrowthForm
		cfg   func() RunConfig
	}{
		{
			name:  "NoForms",
			forms: nil,
			cfg:   baseRunConfig,
		},
		{
			name:  "NegativeSupply",
			forms: []GrowthForm{{Name: "branching", Enabled: true, Available: -1, TargetProportion: 0.5}},
			cfg:   baseRunConfig,
		},
		{
			name:  "ProportionAboveOne",
			forms: []GrowthForm{{Name: "branching", Enabled: true, Available: 1, TargetProportion: 1.2}},
			cfg:   baseRunConfig,
		},
		{
			name: "DuplicateNames",
			forms: []GrowthForm{
				{Name: "branching", Enabled: true, Available: 1, TargetProportion: 0.5},
				{Name: "branching", Enabled: true, Available: 1, TargetProportion: 0.5},
			},
			cfg: baseRunConfig,
		},
		{
			name:  "ZeroSiteArea",
			forms: valid,
			cfg: func() RunConfig {
				cfg := baseRunConfig()
				cfg.SiteAreaM2 = 0
				return cfg
			},
		},
		{
			name:  "SurvivalRateAboveOne",
			forms: valid,
			cfg: func() RunConfig {
				cfg := baseRunConfig()
				cfg.SurvivalRate = 1.5
				return cfg
			},
		},
		{
			name:  "NegativeTolerance",
			forms: valid,
			cfg: func() RunConfig {
				cfg := baseRunConfig()
				cfg.Tolerance = -0.1
				return cfg
			},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := New().Allocate(tc.forms, tc.cfg())
			var cfgErr *ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected ConfigurationError, got %v", err)
			}
		})
	}
}

func TestEffectiveTargetsNormalizationIdempotent(t *testing.T) {
	t.Parallel()

	forms := []GrowthForm{
		{Name: "a", Enabled: true, TargetProportion: 0.3},
		{Name: "b", Enabled: true, TargetProportion: 0.9},
	}

	once := EffectiveTargets(forms, true)
	again := make([]GrowthForm, len(forms))
	copy(again, forms)
	for i := range again {
		again[i].TargetProportion = once[i]
	}
	twice := EffectiveTargets(again, true)

	sum := 0.0
	for i := range once {
		if math.Abs(once[i]-twice[i]) > 1e-12 {
			t.Fatalf("normalization not idempotent: %v vs %v", once, twice)
		}
		sum += once[i]
	}
	if math.Abs(sum-1) > 1e-12 {
		t.Fatalf("normalized targets sum to %g, want 1", sum)
	}
}

func TestEffectiveTargetsWithoutNormalization(t *testing.T) {
	t.Parallel()

	forms := []GrowthForm{
		{Name: "a", Enabled: true, TargetProportion: 0.3},
		{Name: "b", Enabled: true, TargetProportion: 0.9},
	}
	got := EffectiveTargets(forms, false)
	if got[0] != 0.3 || got[1] != 0.9 {
		t.Fatalf("expected targets unchanged, got %v", got)
	}
}

func TestAllocateWeightedPrefersHighValueForms(t *testing.T) {
	t.Parallel()

	forms := []GrowthForm{
		{Name: "low", Enabled: true, Available: 100, TargetProportion: 0.2, EcoWeight: 0.1},
		{Name: "high", Enabled: true, Available: 100, TargetProportion: 0.2, EcoWeight: 0.9},
	}
	cfg := baseRunConfig()
	cfg.Normalize = false
	cfg.UseWeights = true
	cfg.Tolerance = 0

	res, err := New().Allocate(forms, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != StatusOptimal {
		t.Fatalf("expected OPTIMAL, got %s", res.Status)
	}
	if res.Allocations["high"] < res.Allocations["low"] {
		t.Fatalf("expected the high-value form to dominate, got %v", res.Allocations)
	}
	if res.Allocations["high"] != 100 {
		t.Fatalf("expected the high-value form at its supply cap, got %v", res.Allocations)
	}
}

func BenchmarkAllocateUnweighted(b *testing.B) {
	forms := []GrowthForm{
		{Name: "Branching", Enabled: true, Available: 2000, TargetProportion: 0.234},
		{Name: "Massive/Sub-massive", Enabled: true, Available: 4000, TargetProportion: 0.429},
		{Name: "Columnar", Enabled: true, Available: 1200, TargetProportion: 0.124},
		{Name: "Table/Plate", Enabled: true, Available: 1600, TargetProportion: 0.162},
		{Name: "Encrusting", Enabled: true, Available: 500, TargetProportion: 0.051},
	}
	cfg := baseRunConfig()
	opt := New()
	for i := 0; i < b.N; i++ {
		if _, err := opt.Allocate(forms, cfg); err != nil {
			b.Fatalf("unexpected error: %v", err)
		}
	}
}

func BenchmarkAllocateWeighted(b *testing.B) {
	forms := []GrowthForm{
		{Name: "Branching", Enabled: true, Available: 2000, TargetProportion: 0.234, EcoWeight: 0.3},
		{Name: "Massive/Sub-massive", Enabled: true, Available: 4000, TargetProportion: 0.429, EcoWeight: 0.9},
		{Name: "Columnar", Enabled: true, Available: 1200, TargetProportion: 0.124, EcoWeight: 0.56},
		{Name: "Table/Plate", Enabled: true, Available: 1600, TargetProportion: 0.162, EcoWeight: 0.45},
		{Name: "Encrusting", Enabled: true, Available: 500, TargetProportion: 0.051, EcoWeight: 0.45},
	}
	cfg := baseRunConfig()
	cfg.UseWeights = true
	opt := New()
	for i := 0; i < b.N; i++ {
		if _, err := opt.Allocate(forms, cfg); err != nil {
			b.Fatalf("unexpected error: %v", err)
		}
	}
}
