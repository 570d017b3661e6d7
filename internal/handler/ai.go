package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/SBP-techno/CEP-backend/internal/service"
)

// RecommendationResponse represents AI (or fallback) advice for a user
type RecommendationResponse struct {
	Recommendations        []string            `json:"recommendations"`
	EnergySavingsPotential *float64            `json:"energySavingsPotential,omitempty"`
	CostSavingsPotential   *float64            `json:"costSavingsPotential,omitempty"`
	EfficiencyScore        *float64            `json:"efficiencyScore,omitempty"`
	DeviceTips             map[string][]string `json:"deviceTips,omitempty"`
	Source                 string              `json:"source"`
	GeneratedAt            time.Time           `json:"generatedAt"`
}

// AnalysisResponse represents a usage-pattern analysis
type AnalysisResponse struct {
	Patterns        []string  `json:"patterns"`
	PeakUsageTimes  []string  `json:"peakUsageTimes"`
	EfficiencyScore *float64  `json:"efficiencyScore,omitempty"`
	Trend           string    `json:"trend"`
	Insights        []string  `json:"insights"`
	Source          string    `json:"source"`
	GeneratedAt     time.Time `json:"generatedAt"`
}

// DeviceTipsResponse represents device-specific optimization advice
type DeviceTipsResponse struct {
	Assessment           string    `json:"assessment"`
	Tips                 []string  `json:"tips"`
	MaintenanceReminders []string  `json:"maintenanceReminders"`
	Source               string    `json:"source"`
	GeneratedAt          time.Time `json:"generatedAt"`
}

// AIStatusResponse reports the recommender's configuration and health
type AIStatusResponse struct {
	Configured bool   `json:"configured"`
	Model      string `json:"model,omitempty"`
	State      string `json:"state"`
}

// AIHandler serves the recommendation endpoints
type AIHandler struct {
	recommendations *service.RecommendationService
	logger          *slog.Logger
}

// NewAIHandler creates a new AI handler
func NewAIHandler(recommendations *service.RecommendationService, logger *slog.Logger) *AIHandler {
	return &AIHandler{recommendations: recommendations, logger: logger}
}

// Recommendations handles GET /api/v1/users/{id}/recommendations
func (h *AIHandler) Recommendations(w http.ResponseWriter, r *http.Request) {
	result, err := h.recommendations.Recommendations(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, RecommendationResponse{
		Recommendations:        result.Recommendations,
		EnergySavingsPotential: result.EnergySavingsPotential,
		CostSavingsPotential:   result.CostSavingsPotential,
		EfficiencyScore:        result.EfficiencyScore,
		DeviceTips:             result.DeviceTips,
		Source:                 string(result.Source),
		GeneratedAt:            result.GeneratedAt,
	})
}

// AnalyzeUsage handles GET /api/v1/users/{id}/analyze-usage
func (h *AIHandler) AnalyzeUsage(w http.ResponseWriter, r *http.Request) {
	result, err := h.recommendations.AnalyzeUsage(r.Context(), r.PathValue("id"), r.URL.Query().Get("period"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, AnalysisResponse{
		Patterns:        result.Patterns,
		PeakUsageTimes:  result.PeakUsageTimes,
		EfficiencyScore: result.EfficiencyScore,
		Trend:           result.Trend,
		Insights:        result.Insights,
		Source:          string(result.Source),
		GeneratedAt:     result.GeneratedAt,
	})
}

// DeviceTips handles GET /api/v1/devices/{id}/optimization-tips
func (h *AIHandler) DeviceTips(w http.ResponseWriter, r *http.Request) {
	result, err := h.recommendations.DeviceTips(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, DeviceTipsResponse{
		Assessment:           result.Assessment,
		Tips:                 result.Tips,
		MaintenanceReminders: result.MaintenanceReminders,
		Source:               string(result.Source),
		GeneratedAt:          result.GeneratedAt,
	})
}

// Status handles GET /api/v1/ai-status
func (h *AIHandler) Status(w http.ResponseWriter, r *http.Request) {
	status := h.recommendations.Status()
	writeJSON(w, http.StatusOK, AIStatusResponse{
		Configured: status.Configured,
		Model:      status.Model,
		State:      status.State,
	})
}
