// Package layout turns an allocation into an illustrative clustered placement:
// fragments are grouped into reef stars of a nominal size and each star gets a
// random position inside the site rectangle. The scatter is weighted, not a
// physical packing simulation; drawing it is the caller's concern.
package layout

import (
	"math"

	"github.com/coralworks/reefplan/internal/allocator"
)

// dominantBoost scales how strongly a cluster's dominant form attracts the
// remaining slots. The bias grows monotonically with the form's cluster weight.
const dominantBoost = 4.0

// Form is one growth form's share of the layout, in display order.
type Form struct {
	Name          string
	Allocated     int
	ClusterWeight float64
}

// Spec describes a single sampling run. The same Spec always produces the same
// Layout; a shuffle is simply a re-run with a fresh seed.
type Spec struct {
	Forms       []Form
	ClusterSize int
	SiteAreaM2  float64
	// Aspect is the site's width-to-height ratio (1 square, 4 very wide).
	Aspect float64
	Seed   int64
}

// Point is a 2-D position in metres within the site rectangle.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Cluster is one reef star: a dominant growth form, its member counts, and a
// position inside the site.
type Cluster struct {
	Dominant string         `json:"dominant"`
	Members  map[string]int `json:"members"`
	Position Point          `json:"position"`
}

// Layout is the immutable outcome of one sampling run.
type Layout struct {
	Clusters   []Cluster `json:"clusters"`
	WidthM     float64   `json:"widthM"`
	HeightM    float64   `json:"heightM"`
	CellAreaM2 float64   `json:"cellAreaM2"`
	Seed       int64     `json:"seed"`
}

// Sample partitions the allocated fragments into clusters of nominal size and
// places each cluster uniformly at random in the site rectangle. For every
// cluster a dominant form is drawn with probability proportional to its
// remaining allocation biased by its cluster weight; the remaining slots are
// drawn from all forms proportionally to remaining allocation, with an extra
// pull toward the dominant form scaled by that form's cluster weight.
func Sample(spec Spec) (Layout, error) {
	if err := validate(spec); err != nil {
		return Layout{}, err
	}

	width := math.Sqrt(spec.SiteAreaM2 * spec.Aspect)
	height := math.Sqrt(spec.SiteAreaM2 / spec.Aspect)

	remaining := make([]int, len(spec.Forms))
	total := 0
	for i, f := range spec.Forms {
		remaining[i] = f.Allocated
		total += f.Allocated
	}

	rng := seededRNG(spec.Seed)
	weights := make([]float64, len(spec.Forms))

	var clusters []Cluster
	for total > 0 {
		// Dominant draw: remaining stock scaled by cluster weight, with a
		// small base so a zero-weight form can still lead a cluster.
		for i, f := range spec.Forms {
			weights[i] = float64(remaining[i]) * (0.25 + f.ClusterWeight)
		}
		dominant := weightedIndex(rng, weights)

		slots := spec.ClusterSize
		if slots > total {
			slots = total
		}

		members := make(map[string]int, len(spec.Forms))
		for s := 0; s < slots; s++ {
			for i, f := range spec.Forms {
				w := float64(remaining[i])
				if i == dominant {
					w *= 1 + dominantBoost*f.ClusterWeight
				}
				weights[i] = w
			}
			pick := weightedIndex(rng, weights)
			members[spec.Forms[pick].Name]++
			remaining[pick]--
			total--
		}

		clusters = append(clusters, Cluster{
			Dominant: spec.Forms[dominant].Name,
			Members:  members,
			Position: Point{
				X: rng.Float64() * width,
				Y: rng.Float64() * height,
			},
		})
	}

	lay := Layout{
		Clusters: clusters,
		WidthM:   width,
		HeightM:  height,
		Seed:     spec.Seed,
	}
	if len(clusters) > 0 {
		lay.CellAreaM2 = spec.SiteAreaM2 / float64(len(clusters))
	}
	return lay, nil
}

func validate(spec Spec) error {
	if spec.ClusterSize < 1 {
		return &allocator.ConfigurationError{Field: "cluster size", Reason: "must be at least 1"}
	}
	if spec.SiteAreaM2 <= 0 {
		return &allocator.ConfigurationError{Field: "site area", Reason: "must be positive"}
	}
	if spec.Aspect <= 0 {
		return &allocator.ConfigurationError{Field: "site aspect", Reason: "must be positive"}
	}
	seen := make(map[string]struct{}, len(spec.Forms))
	for _, f := range spec.Forms {
		if f.Allocated < 0 {
			return &allocator.ConfigurationError{Field: f.Name, Reason: "allocated fragments must be non-negative"}
		}
		if f.ClusterWeight < 0 || f.ClusterWeight > 1 {
			return &allocator.ConfigurationError{Field: f.Name, Reason: "clustering weight must be in [0,1]"}
		}
		if _, dup := seen[f.Name]; dup {
			return &allocator.ConfigurationError{Field: f.Name, Reason: "duplicate growth form name"}
		}
		seen[f.Name] = struct{}{}
	}
	return nil
}
