package allocator

import (
	"math"
	"sort"
)

const (
	maxGrowthForms = 16
	maxTotalSupply = 1_000_000

	// floorEpsilon absorbs floating-point noise when turning a fractional
	// proportion floor into an integer lower bound.
	floorEpsilon = 1e-9
)

type scanOptimizer struct{}

// New creates an Optimizer that solves the allocation program exactly by
// scanning candidate totals. For a fixed total T every proportion floor is a
// fixed integer, so feasibility and the best weighted fill are both closed
// form; the scan over T is bounded by the total supply.
func New() Optimizer {
	return &scanOptimizer{}
}

func (o *scanOptimizer) Allocate(forms []GrowthForm, cfg RunConfig) (Result, error) {
	if err := Validate(forms, cfg); err != nil {
		return Result{}, err
	}

	enabled := EnabledForms(forms)
	targets := EffectiveTargets(enabled, cfg.Normalize)

	allocations := make(map[string]int, len(enabled))
	for _, f := range enabled {
		allocations[f.Name] = 0
	}

	totalSupply := 0
	for _, f := range enabled {
		totalSupply += f.Available
	}
	if len(enabled) == 0 || totalSupply == 0 {
		return Result{Allocations: allocations, Status: StatusOptimal}, nil
	}

	var best []int
	if cfg.UseWeights {
		best = solveWeighted(enabled, targets, cfg.Tolerance, totalSupply)
	} else {
		best = solveUnweighted(enabled, targets, cfg.Tolerance, totalSupply)
	}
	if best == nil {
		return Result{Allocations: allocations, Status: StatusInfeasible}, nil
	}

	for i, f := range enabled {
		allocations[f.Name] = best[i]
	}
	return Result{Allocations: allocations, Status: StatusOptimal}, nil
}

// Validate checks the growth forms and run scalars before any solve. Every
// violation is reported as a ConfigurationError.
func Validate(forms []GrowthForm, cfg RunConfig) error {
	if len(forms) == 0 {
		return configErr("growth forms", "at least one growth form is required")
	}
	if len(forms) > maxGrowthForms {
		return configErr("growth forms", "at most %d growth forms are supported, got %d", maxGrowthForms, len(forms))
	}

	seen := make(map[string]struct{}, len(forms))
	totalSupply := 0
	for _, f := range forms {
		if f.Name == "" {
			return configErr("growth forms", "growth form name must not be empty")
		}
		if _, dup := seen[f.Name]; dup {
			return configErr(f.Name, "duplicate growth form name")
		}
		seen[f.Name] = struct{}{}

		if f.Available < 0 {
			return configErr(f.Name, "available fragments must be non-negative, got %d", f.Available)
		}
		if f.TargetProportion < 0 || f.TargetProportion > 1 {
			return configErr(f.Name, "target proportion must be in [0,1], got %g", f.TargetProportion)
		}
		if f.EcoWeight < 0 {
			return configErr(f.Name, "ecological weight must be non-negative, got %g", f.EcoWeight)
		}
		if f.ClusterWeight < 0 || f.ClusterWeight > 1 {
			return configErr(f.Name, "clustering weight must be in [0,1], got %g", f.ClusterWeight)
		}
		if f.Enabled {
			totalSupply += f.Available
		}
	}
	if totalSupply > maxTotalSupply {
		return configErr("growth forms", "total enabled supply must not exceed %d fragments", maxTotalSupply)
	}

	if cfg.SurvivalRate <= 0 || cfg.SurvivalRate > 1 {
		return configErr("survival rate", "must be in (0,1], got %g", cfg.SurvivalRate)
	}
	if cfg.Tolerance < 0 {
		return configErr("tolerance", "must be non-negative, got %g", cfg.Tolerance)
	}
	if cfg.SiteAreaM2 <= 0 {
		return configErr("site area", "must be positive, got %g", cfg.SiteAreaM2)
	}
	if cfg.ClusterSize < 1 {
		return configErr("cluster size", "must be at least 1, got %d", cfg.ClusterSize)
	}
	return nil
}

// EnabledForms returns the enabled subset in input order.
func EnabledForms(forms []GrowthForm) []GrowthForm {
	enabled := make([]GrowthForm, 0, len(forms))
	for _, f := range forms {
		if f.Enabled {
			enabled = append(enabled, f)
		}
	}
	return enabled
}

// EffectiveTargets returns the target proportions actually used for constraint
// construction, aligned with forms by index. With normalize set the targets are
// rescaled to sum to exactly 1; rescaling an already-normalized set is a no-op.
func EffectiveTargets(forms []GrowthForm, normalize bool) []float64 {
	targets := make([]float64, len(forms))
	sum := 0.0
	for i, f := range forms {
		targets[i] = f.TargetProportion
		sum += f.TargetProportion
	}
	if normalize && sum > 0 {
		for i := range targets {
			targets[i] /= sum
		}
	}
	return targets
}

// proportionFloors computes the integer lower bounds implied by the proportion
// constraints at total T: x_i >= ceil((target_i - tolerance) * T). A negative
// effective proportion makes the constraint vacuous.
func proportionFloors(targets []float64, tolerance float64, total int, out []int) []int {
	if out == nil {
		out = make([]int, len(targets))
	}
	for i, p := range targets {
		bound := (p - tolerance) * float64(total)
		if bound <= 0 {
			out[i] = 0
			continue
		}
		out[i] = int(math.Ceil(bound - floorEpsilon))
	}
	return out
}

// feasibleAt reports whether total T admits any allocation, given floors.
func feasibleAt(forms []GrowthForm, floors []int, total int) bool {
	sum := 0
	for i, f := range forms {
		if floors[i] > f.Available {
			return false
		}
		sum += floors[i]
	}
	return sum <= total
}

// solveUnweighted finds the largest feasible total and fills spare capacity in
// entry order. Returns nil when no total in [1, totalSupply] is feasible.
func solveUnweighted(forms []GrowthForm, targets []float64, tolerance float64, totalSupply int) []int {
	floors := make([]int, len(forms))
	for total := totalSupply; total >= 1; total-- {
		proportionFloors(targets, tolerance, total, floors)
		if !feasibleAt(forms, floors, total) {
			continue
		}
		x := make([]int, len(forms))
		spare := total
		for i := range forms {
			x[i] = floors[i]
			spare -= floors[i]
		}
		for i, f := range forms {
			if spare == 0 {
				break
			}
			take := f.Available - x[i]
			if take > spare {
				take = spare
			}
			x[i] += take
			spare -= take
		}
		return x
	}
	return nil
}

// solveWeighted maximizes the weighted ecological score over all feasible
// totals. For a fixed total the optimum is the greedy fill: floors first, then
// spare units to the highest-weight forms. Score ties break toward the larger
// total. Returns nil when no total in [1, totalSupply] is feasible.
func solveWeighted(forms []GrowthForm, targets []float64, tolerance float64, totalSupply int) []int {
	// Forms ordered by descending eco weight, stable on input order, so the
	// greedy fill and its tie-breaking are deterministic.
	order := make([]int, len(forms))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return forms[order[a]].EcoWeight > forms[order[b]].EcoWeight
	})

	floors := make([]int, len(forms))
	var best []int
	bestScore := math.Inf(-1)

	for total := 1; total <= totalSupply; total++ {
		proportionFloors(targets, tolerance, total, floors)
		if !feasibleAt(forms, floors, total) {
			continue
		}

		x := make([]int, len(forms))
		spare := total
		for i := range forms {
			x[i] = floors[i]
			spare -= floors[i]
		}
		for _, i := range order {
			if spare == 0 {
				break
			}
			take := forms[i].Available - x[i]
			if take > spare {
				take = spare
			}
			x[i] += take
			spare -= take
		}

		score := 0.0
		for i, f := range forms {
			score += f.EcoWeight * float64(x[i])
		}
		if score >= bestScore {
			bestScore = score
			best = x
		}
	}
	return best
}
