package api

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand/v2"
	"net/http"
	"sync"
	"time"

	"github.com/coralworks/reefplan/internal/allocator"
	"github.com/coralworks/reefplan/internal/benchmark"
	"github.com/coralworks/reefplan/internal/config"
	"github.com/coralworks/reefplan/internal/layout"
	"github.com/coralworks/reefplan/internal/report"
	"github.com/coralworks/reefplan/internal/storage"
)

type contextKey string

const requestIDContextKey contextKey = "requestID"

// Handler wires the optimizer, catalog storage, and run defaults into HTTP
// handlers. The planning pipeline itself is stateless; the catalog is the only
// shared state and lives behind the storage interface.
type Handler struct {
	optimizer allocator.Optimizer
	storage   storage.Storage
	defaults  config.RunDefaults

	clock   func() time.Time
	newSeed func() int64

	mu               sync.RWMutex
	catalogUpdatedAt time.Time
}

// HandlerOption configures Handler behaviour.
type HandlerOption func(*Handler)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) HandlerOption {
	return func(h *Handler) {
		h.clock = clock
	}
}

// WithSeedSource overrides how layout seeds are generated when a request does
// not pin one, primarily for tests.
func WithSeedSource(newSeed func() int64) HandlerOption {
	return func(h *Handler) {
		h.newSeed = newSeed
	}
}

// NewHandler constructs a Handler with the provided dependencies.
func NewHandler(opt allocator.Optimizer, store storage.Storage, defaults config.RunDefaults, opts ...HandlerOption) *Handler {
	h := &Handler{
		optimizer: opt,
		storage:   store,
		defaults:  defaults,
		clock: func() time.Time {
			return time.Now().UTC()
		},
		newSeed: rand.Int64,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.catalogUpdatedAt = h.clock()
	return h
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	_ = r
	resp := healthResponse{
		Status:    "ok",
		Timestamp: h.clock(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetGrowthForms(w http.ResponseWriter, r *http.Request) {
	_ = r
	forms, err := h.storage.GetGrowthForms()
	if err != nil {
		writeInternalError(w, err)
		return
	}

	resp := growthFormsResponse{
		GrowthForms: forms,
		UpdatedAt:   h.currentCatalogUpdatedAt(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handlePutGrowthForms(w http.ResponseWriter, r *http.Request) {
	var req growthFormsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", "unable to parse JSON payload")
		return
	}

	if len(req.GrowthForms) == 0 {
		writeError(w, http.StatusBadRequest, "Invalid growth forms", "growthForms must contain at least one entry")
		return
	}

	if err := h.storage.SetGrowthForms(req.GrowthForms); err != nil {
		if errors.Is(err, storage.ErrInvalidGrowthForms) {
			writeError(w, http.StatusBadRequest, "Invalid growth forms", err.Error())
			return
		}
		writeInternalError(w, err)
		return
	}

	h.markCatalogUpdated()

	forms, err := h.storage.GetGrowthForms()
	if err != nil {
		writeInternalError(w, err)
		return
	}

	resp := growthFormsResponse{
		GrowthForms: forms,
		UpdatedAt:   h.currentCatalogUpdatedAt(),
		Message:     "Growth forms updated successfully",
	}
	writeJSON(w, http.StatusOK, resp)
}

// handlePlan runs the full pipeline: validate, optimize, report, benchmark,
// layout. A shuffle is requested by re-posting the same plan with a new seed;
// the seed actually used is echoed in the response.
func (h *Handler) handlePlan(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", "unable to parse JSON payload")
		return
	}

	if len(req.GrowthForms) == 0 {
		writeError(w, http.StatusBadRequest, "Invalid request", "growthForms must contain at least one entry")
		return
	}

	catalog, err := h.storage.GetGrowthForms()
	if err != nil {
		writeInternalError(w, err)
		return
	}

	forms := mergeForms(req.GrowthForms, catalog)
	runCfg := h.runConfig(req)

	seed := h.newSeed()
	if req.Seed != nil {
		seed = *req.Seed
	}

	start := time.Now()
	result, err := h.optimizer.Allocate(forms, runCfg)
	if err != nil {
		var cfgErr *allocator.ConfigurationError
		if errors.As(err, &cfgErr) {
			writeError(w, http.StatusBadRequest, "Invalid configuration", cfgErr.Error())
			return
		}
		writeInternalError(w, err)
		return
	}

	if result.Status != allocator.StatusOptimal {
		suggestion := "Relax the proportion tolerance or lower the target proportions to make the constraints satisfiable"
		writeError(w, http.StatusUnprocessableEntity, "No feasible allocation",
			"supply and proportion constraints cannot be satisfied together", suggestion)
		return
	}

	rep, err := report.Build(forms, runCfg, result)
	if err != nil {
		writeInternalError(w, err)
		return
	}

	overall, err := benchmark.Evaluate(rep.TotalAllocated, runCfg.SurvivalRate, runCfg.SiteAreaM2, h.benchmarkRange(req))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid configuration", err.Error())
		return
	}
	perForm, err := benchmark.EvaluateForms(forms, result.Allocations, runCfg.SurvivalRate, runCfg.SiteAreaM2, h.benchmarkRange(req))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid configuration", err.Error())
		return
	}

	lay, err := layout.Sample(layoutSpec(forms, result, runCfg, h.siteAspect(req), seed))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid configuration", err.Error())
		return
	}
	elapsed := time.Since(start)

	resp := planResponse{
		Status:            string(result.Status),
		Allocations:       result.Allocations,
		Report:            rep,
		Benchmark:         overall,
		FormBenchmarks:    perForm,
		Layout:            lay,
		Seed:              seed,
		CalculationTimeMs: elapsed.Milliseconds(),
	}
	writeJSON(w, http.StatusOK, resp)
}

// runConfig merges request scalars over the configured defaults.
func (h *Handler) runConfig(req planRequest) allocator.RunConfig {
	cfg := allocator.RunConfig{
		SurvivalRate: h.defaults.SurvivalRate,
		Tolerance:    h.defaults.Tolerance,
		Normalize:    h.defaults.Normalize,
		UseWeights:   h.defaults.UseWeights,
		SiteAreaM2:   h.defaults.SiteAreaM2,
		ClusterSize:  h.defaults.ClusterSize,
	}
	if req.SurvivalRate != nil {
		cfg.SurvivalRate = *req.SurvivalRate
	}
	if req.Tolerance != nil {
		cfg.Tolerance = *req.Tolerance
	}
	if req.Normalize != nil {
		cfg.Normalize = *req.Normalize
	}
	if req.UseWeights != nil {
		cfg.UseWeights = *req.UseWeights
	}
	if req.SiteAreaM2 != nil {
		cfg.SiteAreaM2 = *req.SiteAreaM2
	}
	if req.ClusterSize != nil {
		cfg.ClusterSize = *req.ClusterSize
	}
	return cfg
}

func (h *Handler) siteAspect(req planRequest) float64 {
	if req.SiteAspect != nil {
		return *req.SiteAspect
	}
	return h.defaults.SiteAspect
}

func (h *Handler) benchmarkRange(req planRequest) benchmark.Range {
	r := h.defaults.Benchmark
	if req.BenchmarkLow != nil {
		r.Low = *req.BenchmarkLow
	}
	if req.BenchmarkHigh != nil {
		r.High = *req.BenchmarkHigh
	}
	return r
}

// mergeForms fills the request's growth forms from the stored catalog: a form
// known to the catalog inherits any proportion or weight the request omitted;
// unknown forms fall back to neutral weights.
func mergeForms(payload []growthFormPayload, catalog []allocator.GrowthForm) []allocator.GrowthForm {
	byName := make(map[string]allocator.GrowthForm, len(catalog))
	for _, f := range catalog {
		byName[f.Name] = f
	}

	forms := make([]allocator.GrowthForm, 0, len(payload))
	for _, p := range payload {
		base, known := byName[p.Name]
		if !known {
			base = allocator.GrowthForm{Name: p.Name, EcoWeight: 1.0, ClusterWeight: 0.5}
		}

		form := allocator.GrowthForm{
			Name:             p.Name,
			Enabled:          true,
			Available:        p.Available,
			TargetProportion: base.TargetProportion,
			EcoWeight:        base.EcoWeight,
			ClusterWeight:    base.ClusterWeight,
		}
		if p.Enabled != nil {
			form.Enabled = *p.Enabled
		}
		if p.TargetProportion != nil {
			form.TargetProportion = *p.TargetProportion
		}
		if p.EcoWeight != nil {
			form.EcoWeight = *p.EcoWeight
		}
		if p.ClusterWeight != nil {
			form.ClusterWeight = *p.ClusterWeight
		}
		forms = append(forms, form)
	}
	return forms
}

func layoutSpec(forms []allocator.GrowthForm, result allocator.Result, cfg allocator.RunConfig, aspect float64, seed int64) layout.Spec {
	enabled := allocator.EnabledForms(forms)
	layoutForms := make([]layout.Form, 0, len(enabled))
	for _, f := range enabled {
		layoutForms = append(layoutForms, layout.Form{
			Name:          f.Name,
			Allocated:     result.Allocations[f.Name],
			ClusterWeight: f.ClusterWeight,
		})
	}
	return layout.Spec{
		Forms:       layoutForms,
		ClusterSize: cfg.ClusterSize,
		SiteAreaM2:  cfg.SiteAreaM2,
		Aspect:      aspect,
		Seed:        seed,
	}
}

func (h *Handler) currentCatalogUpdatedAt() time.Time {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.catalogUpdatedAt
}

func (h *Handler) markCatalogUpdated() {
	h.mu.Lock()
	h.catalogUpdatedAt = h.clock()
	h.mu.Unlock()
}

func requestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDContextKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

type growthFormsRequest struct {
	GrowthForms []allocator.GrowthForm `json:"growthForms"`
}

type growthFormPayload struct {
	Name             string   `json:"name"`
	Enabled          *bool    `json:"enabled,omitempty"`
	Available        int      `json:"available"`
	TargetProportion *float64 `json:"targetProportion,omitempty"`
	EcoWeight        *float64 `json:"ecoWeight,omitempty"`
	ClusterWeight    *float64 `json:"clusterWeight,omitempty"`
}

type planRequest struct {
	GrowthForms   []growthFormPayload `json:"growthForms"`
	SurvivalRate  *float64            `json:"survivalRate,omitempty"`
	Tolerance     *float64            `json:"tolerance,omitempty"`
	Normalize     *bool               `json:"normalize,omitempty"`
	UseWeights    *bool               `json:"useWeights,omitempty"`
	SiteAreaM2    *float64            `json:"siteAreaM2,omitempty"`
	SiteAspect    *float64            `json:"siteAspect,omitempty"`
	ClusterSize   *int                `json:"clusterSize,omitempty"`
	BenchmarkLow  *float64            `json:"benchmarkLow,omitempty"`
	BenchmarkHigh *float64            `json:"benchmarkHigh,omitempty"`
	Seed          *int64              `json:"seed,omitempty"`
}

type planResponse struct {
	Status            string                 `json:"status"`
	Allocations       map[string]int         `json:"allocations"`
	Report            report.Report          `json:"report"`
	Benchmark         benchmark.Result       `json:"benchmark"`
	FormBenchmarks    []benchmark.FormResult `json:"formBenchmarks"`
	Layout            layout.Layout          `json:"layout"`
	Seed              int64                  `json:"seed"`
	CalculationTimeMs int64                  `json:"calculationTimeMs"`
}

type growthFormsResponse struct {
	GrowthForms []allocator.GrowthForm `json:"growthForms"`
	UpdatedAt   time.Time              `json:"updatedAt"`
	Message     string                 `json:"message,omitempty"`
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type errorResponse struct {
	Error      string `json:"error"`
	Details    string `json:"details,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message, details string, suggestion ...string) {
	resp := errorResponse{
		Error:   message,
		Details: details,
	}
	if len(suggestion) > 0 {
		resp.Suggestion = suggestion[0]
	}
	writeJSON(w, status, resp)
}

func writeInternalError(w http.ResponseWriter, err error) {
	writeError(w, http.StatusInternalServerError, "Internal error", err.Error())
}
