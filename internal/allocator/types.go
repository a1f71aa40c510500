package allocator

// GrowthForm describes one coral morphology category available for outplanting.
// Disabled forms are excluded from optimization but keep their identity so the
// presentation layer can still display them.
type GrowthForm struct {
	Name             string  `json:"name" yaml:"name"`
	Enabled          bool    `json:"enabled" yaml:"enabled"`
	Available        int     `json:"available" yaml:"available"`
	TargetProportion float64 `json:"targetProportion" yaml:"target_proportion"`
	EcoWeight        float64 `json:"ecoWeight" yaml:"eco_weight"`
	ClusterWeight    float64 `json:"clusterWeight" yaml:"cluster_weight"`
}

// RunConfig carries the scalars for a single optimization run. A fresh value is
// built per call; nothing in this package retains it.
type RunConfig struct {
	SurvivalRate float64
	Tolerance    float64
	Normalize    bool
	UseWeights   bool
	SiteAreaM2   float64
	ClusterSize  int
}

// Status reports how a solve terminated.
type Status string

const (
	// StatusOptimal means an optimal allocation was found (possibly all-zero).
	StatusOptimal Status = "OPTIMAL"
	// StatusInfeasible means the supply and proportion constraints cannot be
	// satisfied together for any positive total.
	StatusInfeasible Status = "INFEASIBLE"
	// StatusUnbounded is kept for completeness; supply ceilings bound every
	// variable, so the solver never actually returns it.
	StatusUnbounded Status = "UNBOUNDED"
)

// Result is the immutable outcome of one optimizer invocation. Allocations is
// keyed by growth-form name and covers every enabled form. Callers must check
// Status before using the allocation values.
type Result struct {
	Allocations map[string]int
	Status      Status
}

// TotalAllocated sums the allocated units across all forms.
func (r Result) TotalAllocated() int {
	total := 0
	for _, n := range r.Allocations {
		total += n
	}
	return total
}

// Optimizer describes the behaviour required from an allocation optimizer.
type Optimizer interface {
	Allocate(forms []GrowthForm, cfg RunConfig) (Result, error)
}
