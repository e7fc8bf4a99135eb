package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/mmrzaf/cqlstress/internal/app"
	"github.com/mmrzaf/cqlstress/internal/domain"
	"github.com/mmrzaf/cqlstress/internal/infra/repos/profiles"
	"github.com/mmrzaf/cqlstress/internal/infra/repos/runs"
	"github.com/mmrzaf/cqlstress/internal/infra/repos/targets"
	"github.com/mmrzaf/cqlstress/internal/registry"
)

type Handler struct {
	profileRepo  profiles.Repository
	targetRepo   targets.Repository
	runService   *app.RunService
	distRegistry *registry.DistributionRegistry
}

func NewHandler(profileRepo profiles.Repository, targetRepo targets.Repository, runService *app.RunService) *Handler {
	return &Handler{
		profileRepo:  profileRepo,
		targetRepo:   targetRepo,
		runService:   runService,
		distRegistry: registry.DefaultDistributionRegistry(),
	}
}

// Register mounts every API route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/profiles", h.ListProfiles)
	mux.HandleFunc("GET /api/v1/profiles/{id}", h.GetProfile)

	mux.HandleFunc("GET /api/v1/targets", h.ListTargets)
	mux.HandleFunc("GET /api/v1/targets/{id}", h.GetTarget)
	mux.HandleFunc("POST /api/v1/targets/{id}/check", h.CheckTarget)

	mux.HandleFunc("GET /api/v1/distributions/describe", h.DescribeDistribution)

	mux.HandleFunc("POST /api/v1/runs", h.CreateRun)
	mux.HandleFunc("POST /api/v1/runs/plan", h.PlanRun)
	mux.HandleFunc("GET /api/v1/runs", h.ListRuns)
	mux.HandleFunc("GET /api/v1/runs/{id}", h.GetRun)
}

func (h *Handler) ListProfiles(w http.ResponseWriter, r *http.Request) {
	list, err := h.profileRepo.List()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, list)
}

func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := h.profileRepo.Get(r.PathValue("id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	// Show the effective values a run would use.
	eff := p.WithDefaults(nil)
	writeJSON(w, eff)
}

// Targets are read-only here and never leave with credentials.

func (h *Handler) ListTargets(w http.ResponseWriter, r *http.Request) {
	list, err := h.targetRepo.List()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, targets.RedactTargets(list))
}

func (h *Handler) GetTarget(w http.ResponseWriter, r *http.Request) {
	t, err := h.targetRepo.Get(r.PathValue("id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, targets.RedactTarget(t))
}

func (h *Handler) CheckTarget(w http.ResponseWriter, r *http.Request) {
	t, err := h.targetRepo.Get(r.PathValue("id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	var profile *domain.Profile
	if pid := r.URL.Query().Get("profile"); pid != "" {
		profile, err = h.profileRepo.Get(pid)
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
	}
	check, _ := app.CheckTarget(r.Context(), t, profile, profile != nil)
	writeJSON(w, check)
}

type distributionView struct {
	Spec          string `json:"spec"`
	Description   string `json:"description"`
	Deterministic bool   `json:"deterministic"`
	Min           *int64 `json:"min,omitempty"`
	Max           *int64 `json:"max,omitempty"`
}

func (h *Handler) DescribeDistribution(w http.ResponseWriter, r *http.Request) {
	spec := r.URL.Query().Get("spec")
	d, err := h.distRegistry.Parse(spec)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, describe(spec, d))
}

// Runs

type planView struct {
	Command    domain.Command       `json:"command"`
	Profile    domain.Profile       `json:"profile"`
	Target     *domain.TargetConfig `json:"target"`
	Population distributionView     `json:"population"`
	Operations *uint64              `json:"operations,omitempty"`
	Duration   string               `json:"duration,omitempty"`
	Threads    int                  `json:"threads"`
	Rate       float64              `json:"rate,omitempty"`
	ConfigHash string               `json:"config_hash"`
	Warning    string               `json:"warning,omitempty"`
}

func (h *Handler) PlanRun(w http.ResponseWriter, r *http.Request) {
	var req domain.RunRequest
	if err := decodeJSONStrict(r, &req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	plan, err := h.runService.Plan(&req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	view := planView{
		Command:    plan.Command,
		Profile:    plan.Profile,
		Target:     targets.RedactTarget(plan.Target),
		Population: describe(plan.Profile.Population, plan.Population),
		Operations: plan.Operations,
		Threads:    plan.Threads,
		Rate:       plan.Rate,
		ConfigHash: plan.ConfigHash,
		Warning:    plan.Warning,
	}
	if plan.Duration > 0 {
		view.Duration = plan.Duration.String()
	}
	writeJSON(w, view)
}

func (h *Handler) CreateRun(w http.ResponseWriter, r *http.Request) {
	var req domain.RunRequest
	if err := decodeJSONStrict(r, &req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	run, err := h.runService.StartRun(&req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(run)
}

func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if q := r.URL.Query().Get("limit"); q != "" {
		if n, err := strconv.Atoi(q); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}
	list, err := h.runService.ListRuns(limit, r.URL.Query().Get("status"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, list)
}

func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.runService.GetRun(r.PathValue("id"))
	if errors.Is(err, runs.ErrNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, run)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSONStrict(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(out)
}
