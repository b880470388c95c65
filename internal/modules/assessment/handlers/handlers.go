// Package handlers provides HTTP handlers for the assessment reports.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/dkaragia/nautilus/internal/modules/assessment"
	"github.com/dkaragia/nautilus/internal/modules/optimization"
)

// Handler handles assessment HTTP requests.
type Handler struct {
	service *assessment.Service
	log     zerolog.Logger
}

// NewHandler creates a new assessment handler.
func NewHandler(service *assessment.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "assessment").Logger(),
	}
}

// userID resolves the portfolio owner from the query string. A missing
// parameter falls back to the single-tenant default.
func userID(r *http.Request) string {
	if id := r.URL.Query().Get("user_id"); id != "" {
		return id
	}
	return "default"
}

// boolParam reads an optional boolean query parameter.
func boolParam(r *http.Request, name string, fallback bool) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	return strconv.ParseBool(raw)
}

// HandleRiskAnalysis returns the portfolio risk metrics report.
func (h *Handler) HandleRiskAnalysis(w http.ResponseWriter, r *http.Request) {
	report := h.service.RiskAnalysis(r.Context(), userID(r))
	h.writeJSON(w, http.StatusOK, report)
}

type optimizeRequest struct {
	Strategy    string                    `json:"strategy"`
	Constraints *optimization.Constraints `json:"constraints,omitempty"`
}

// HandleOptimize runs one optimization strategy. The strategy comes from
// the JSON body or, for GET convenience, the query string; it defaults to
// adaptive.
func (h *Handler) HandleOptimize(w http.ResponseWriter, r *http.Request) {
	req := optimizeRequest{Strategy: r.URL.Query().Get("strategy")}
	if r.Body != nil && r.Method == http.MethodPost {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			h.writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}
	if req.Strategy == "" {
		req.Strategy = string(optimization.StrategyAdaptive)
	}

	strategy, err := optimization.ParseStrategy(req.Strategy)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	report := h.service.OptimizeAllocation(r.Context(), userID(r), strategy, req.Constraints)
	h.writeJSON(w, http.StatusOK, report)
}

// HandleCorrelation returns the pairwise correlation report. The window
// comes from the lookback_days query parameter, defaulting to the risk
// lookback.
func (h *Handler) HandleCorrelation(w http.ResponseWriter, r *http.Request) {
	lookbackDays := 0
	if raw := r.URL.Query().Get("lookback_days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 2 {
			h.writeError(w, http.StatusBadRequest, "lookback_days must be an integer of at least 2")
			return
		}
		lookbackDays = n
	}

	report := h.service.CorrelationAnalysis(r.Context(), userID(r), lookbackDays)
	h.writeJSON(w, http.StatusOK, report)
}

type stressRequest struct {
	Scenarios []assessment.StressScenario `json:"scenarios,omitempty"`
}

// HandleStressTest applies stress scenarios to the portfolio. Custom
// scenarios can be supplied in the POST body; without them the default
// set runs.
func (h *Handler) HandleStressTest(w http.ResponseWriter, r *http.Request) {
	var req stressRequest
	if r.Body != nil && r.Method == http.MethodPost {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			h.writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	report := h.service.StressTest(r.Context(), userID(r), req.Scenarios)
	h.writeJSON(w, http.StatusOK, report)
}

// HandleCompleteAssessment runs the composed assessment and the health
// score. The include_optimization and include_stress_test query parameters
// (default true) control whether those sections are attached.
func (h *Handler) HandleCompleteAssessment(w http.ResponseWriter, r *http.Request) {
	includeOpt, err := boolParam(r, "include_optimization", true)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "include_optimization must be a boolean")
		return
	}
	includeStress, err := boolParam(r, "include_stress_test", true)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "include_stress_test must be a boolean")
		return
	}

	report := h.service.CompleteAssessment(r.Context(), userID(r), includeOpt, includeStress)
	h.writeJSON(w, http.StatusOK, report)
}

// HandleStrategies lists the supported optimization strategies.
func (h *Handler) HandleStrategies(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"strategies": optimization.Strategies(),
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
