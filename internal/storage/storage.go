package storage

import (
	"errors"
	"sync"

	"github.com/coralworks/reefplan/internal/allocator"
)

const maxGrowthForms = 16

var (
	// ErrInvalidGrowthForms indicates the provided catalog violates validation rules.
	ErrInvalidGrowthForms = errors.New("growth forms must contain between 1 and 16 uniquely named entries with valid proportions and weights")
)

// Default targets come from literature-derived Indian Ocean growth-form
// proportions; eco and clustering weights are the illustrative defaults users
// are expected to adapt to their own site.
var defaultGrowthForms = []allocator.GrowthForm{
	{Name: "Branching", Enabled: true, TargetProportion: 0.234, EcoWeight: 0.3, ClusterWeight: 0.3},
	{Name: "Massive/Sub-massive", Enabled: true, TargetProportion: 0.429, EcoWeight: 0.9, ClusterWeight: 1.0},
	{Name: "Columnar", Enabled: true, TargetProportion: 0.124, EcoWeight: 0.56, ClusterWeight: 0.3},
	{Name: "Table/Plate", Enabled: true, TargetProportion: 0.162, EcoWeight: 0.45, ClusterWeight: 0.6},
	{Name: "Encrusting", Enabled: true, TargetProportion: 0.051, EcoWeight: 0.45, ClusterWeight: 0.6},
}

// Storage provides access to the growth-form catalog used as plan defaults.
type Storage interface {
	GetGrowthForms() ([]allocator.GrowthForm, error)
	SetGrowthForms(forms []allocator.GrowthForm) error
}

// MemoryStorage keeps the catalog in-memory and guards access with a RWMutex.
type MemoryStorage struct {
	mu    sync.RWMutex
	forms []allocator.GrowthForm
}

// NewMemoryStorage initialises storage with a copy of the default catalog.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		forms: clone(defaultGrowthForms),
	}
}

// DefaultGrowthForms returns a copy of the default catalog.
func DefaultGrowthForms() []allocator.GrowthForm {
	return clone(defaultGrowthForms)
}

// GetGrowthForms returns a defensive copy of the current catalog.
func (s *MemoryStorage) GetGrowthForms() ([]allocator.GrowthForm, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return clone(s.forms), nil
}

// SetGrowthForms validates and stores the provided catalog.
func (s *MemoryStorage) SetGrowthForms(forms []allocator.GrowthForm) error {
	if err := validateCatalog(forms); err != nil {
		return err
	}

	s.mu.Lock()
	s.forms = clone(forms)
	s.mu.Unlock()

	return nil
}

func clone(src []allocator.GrowthForm) []allocator.GrowthForm {
	out := make([]allocator.GrowthForm, len(src))
	copy(out, src)
	return out
}

func validateCatalog(forms []allocator.GrowthForm) error {
	if len(forms) == 0 || len(forms) > maxGrowthForms {
		return ErrInvalidGrowthForms
	}

	seen := make(map[string]struct{}, len(forms))
	for _, f := range forms {
		if f.Name == "" {
			return ErrInvalidGrowthForms
		}
		if _, dup := seen[f.Name]; dup {
			return ErrInvalidGrowthForms
		}
		seen[f.Name] = struct{}{}

		if f.Available < 0 {
			return ErrInvalidGrowthForms
		}
		if f.TargetProportion < 0 || f.TargetProportion > 1 {
			return ErrInvalidGrowthForms
		}
		if f.EcoWeight < 0 {
			return ErrInvalidGrowthForms
		}
		if f.ClusterWeight < 0 || f.ClusterWeight > 1 {
			return ErrInvalidGrowthForms
		}
	}
	return nil
}
