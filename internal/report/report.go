// Package report derives display-ready figures from an optimal allocation:
// achieved proportions, ecological score contributions, and summary totals.
// Everything here is pure arithmetic over its inputs.
package report

import (
	"github.com/coralworks/reefplan/internal/allocator"
)

// Row summarises one growth form. Disabled forms are retained with a zero
// allocation so the presentation layer keeps a stable identity for them.
type Row struct {
	Name               string  `json:"name"`
	Enabled            bool    `json:"enabled"`
	Available          int     `json:"available"`
	Allocated          int     `json:"allocated"`
	TargetProportion   float64 `json:"targetProportion"`
	AchievedProportion float64 `json:"achievedProportion"`
	Deviation          float64 `json:"deviation"`
	EcoWeight          float64 `json:"ecoWeight"`
	ScoreContribution  float64 `json:"scoreContribution"`
}

// Report is the immutable summary of one allocation run.
type Report struct {
	Rows           []Row   `json:"rows"`
	TotalAllocated int     `json:"totalAllocated"`
	TotalAvailable int     `json:"totalAvailable"`
	TotalScore     float64 `json:"totalScore"`
}

// Build computes the report for an optimal allocation. The result must carry
// status OPTIMAL; anything else is returned as a SolverError so callers cannot
// accidentally report figures from an infeasible run. Build is idempotent:
// identical inputs always produce an identical report.
func Build(forms []allocator.GrowthForm, cfg allocator.RunConfig, res allocator.Result) (Report, error) {
	if res.Status != allocator.StatusOptimal {
		return Report{}, &allocator.SolverError{
			Status: res.Status,
			Reason: "a report requires an optimal allocation",
		}
	}

	enabled := allocator.EnabledForms(forms)
	targets := allocator.EffectiveTargets(enabled, cfg.Normalize)
	targetByName := make(map[string]float64, len(enabled))
	for i, f := range enabled {
		targetByName[f.Name] = targets[i]
	}

	total := res.TotalAllocated()

	rep := Report{Rows: make([]Row, 0, len(forms))}
	for _, f := range forms {
		row := Row{
			Name:             f.Name,
			Enabled:          f.Enabled,
			Available:        f.Available,
			TargetProportion: f.TargetProportion,
			EcoWeight:        f.EcoWeight,
		}
		rep.TotalAvailable += f.Available

		if f.Enabled {
			row.TargetProportion = targetByName[f.Name]
			row.Allocated = res.Allocations[f.Name]
			// Guard the zero-total case so no NaN ever reaches a consumer.
			if total > 0 {
				row.AchievedProportion = float64(row.Allocated) / float64(total)
			}
			row.Deviation = row.AchievedProportion - row.TargetProportion
			row.ScoreContribution = f.EcoWeight * float64(row.Allocated)
			rep.TotalAllocated += row.Allocated
			rep.TotalScore += row.ScoreContribution
		}

		rep.Rows = append(rep.Rows, row)
	}
	return rep, nil
}
