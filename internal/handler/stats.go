package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/SBP-techno/CEP-backend/internal/aggregate"
	"github.com/SBP-techno/CEP-backend/internal/domain"
	"github.com/SBP-techno/CEP-backend/internal/service"
)

// SummaryResponse represents period statistics in API responses.
// AveragePowerWatts and PeakPowerWatts are null, not zero, when no reading
// in the period carried a power value.
type SummaryResponse struct {
	TotalConsumptionKWh float64   `json:"totalConsumptionKwh"`
	TotalProductionKWh  float64   `json:"totalProductionKwh"`
	TotalCostUSD        float64   `json:"totalCostUsd"`
	AveragePowerWatts   *float64  `json:"averagePowerWatts"`
	PeakPowerWatts      *float64  `json:"peakPowerWatts"`
	DeviceCount         int       `json:"deviceCount"`
	ReadingCount        int       `json:"readingCount"`
	PeriodStart         time.Time `json:"periodStart"`
	PeriodEnd           time.Time `json:"periodEnd"`
}

func toSummaryResponse(s *aggregate.Summary) SummaryResponse {
	return SummaryResponse{
		TotalConsumptionKWh: s.TotalConsumptionKWh,
		TotalProductionKWh:  s.TotalProductionKWh,
		TotalCostUSD:        s.TotalCostUSD,
		AveragePowerWatts:   s.AveragePowerWatts,
		PeakPowerWatts:      s.PeakPowerWatts,
		DeviceCount:         s.DeviceCount,
		ReadingCount:        s.ReadingCount,
		PeriodStart:         s.PeriodStart,
		PeriodEnd:           s.PeriodEnd,
	}
}

// DailyStatResponse represents one calendar-day bucket
type DailyStatResponse struct {
	Date                string   `json:"date"`
	TotalConsumptionKWh float64  `json:"totalConsumptionKwh"`
	TotalProductionKWh  float64  `json:"totalProductionKwh"`
	TotalCostUSD        float64  `json:"totalCostUsd"`
	AveragePowerWatts   *float64 `json:"averagePowerWatts"`
	PeakPowerWatts      *float64 `json:"peakPowerWatts"`
	AverageTemperature  *float64 `json:"averageTemperature,omitempty"`
	ReadingCount        int      `json:"readingCount"`
}

// ComparisonResponse represents the period-over-period block. It is omitted
// entirely when the prior period holds no readings.
type ComparisonResponse struct {
	ConsumptionChangePercent float64 `json:"consumptionChangePercent"`
	CostChangePercent        float64 `json:"costChangePercent"`
	PowerChangePercent       float64 `json:"powerChangePercent"`
	EnergySavingsKWh         float64 `json:"energySavingsKwh"`
	CostSavingsUSD           float64 `json:"costSavingsUsd"`
}

// CompareUsageResponse pairs the two period summaries with the deltas
type CompareUsageResponse struct {
	Recent     SummaryResponse     `json:"recent"`
	Prior      SummaryResponse     `json:"prior"`
	Comparison *ComparisonResponse `json:"comparison,omitempty"`
}

// StatsHandler serves the aggregation endpoints
type StatsHandler struct {
	stats  *service.StatsService
	logger *slog.Logger
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(stats *service.StatsService, logger *slog.Logger) *StatsHandler {
	return &StatsHandler{stats: stats, logger: logger}
}

// UserEnergyStats handles GET /api/v1/users/{id}/energy-stats
func (h *StatsHandler) UserEnergyStats(w http.ResponseWriter, r *http.Request) {
	h.energyStats(w, r, domain.SubjectUser)
}

// DeviceEnergyStats handles GET /api/v1/devices/{id}/energy-stats
func (h *StatsHandler) DeviceEnergyStats(w http.ResponseWriter, r *http.Request) {
	h.energyStats(w, r, domain.SubjectDevice)
}

func (h *StatsHandler) energyStats(w http.ResponseWriter, r *http.Request, subject domain.SubjectType) {
	start, err := queryTime(r, "start")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	end, err := queryTime(r, "end")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	summary, err := h.stats.EnergyStats(r.Context(), subject, r.PathValue("id"), start, end)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryResponse(summary))
}

// UserDailyStats handles GET /api/v1/users/{id}/daily-stats
func (h *StatsHandler) UserDailyStats(w http.ResponseWriter, r *http.Request) {
	h.dailyStats(w, r, domain.SubjectUser)
}

// DeviceDailyStats handles GET /api/v1/devices/{id}/daily-stats
func (h *StatsHandler) DeviceDailyStats(w http.ResponseWriter, r *http.Request) {
	h.dailyStats(w, r, domain.SubjectDevice)
}

func (h *StatsHandler) dailyStats(w http.ResponseWriter, r *http.Request, subject domain.SubjectType) {
	stats, err := h.stats.DailyStats(r.Context(), subject, r.PathValue("id"), queryInt(r, "days", 0))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	out := make([]DailyStatResponse, 0, len(stats))
	for _, d := range stats {
		out = append(out, DailyStatResponse{
			Date:                d.Date,
			TotalConsumptionKWh: d.TotalConsumptionKWh,
			TotalProductionKWh:  d.TotalProductionKWh,
			TotalCostUSD:        d.TotalCostUSD,
			AveragePowerWatts:   d.AveragePowerWatts,
			PeakPowerWatts:      d.PeakPowerWatts,
			AverageTemperature:  d.AverageTemperature,
			ReadingCount:        d.ReadingCount,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// UserCompareUsage handles GET /api/v1/users/{id}/compare-usage
func (h *StatsHandler) UserCompareUsage(w http.ResponseWriter, r *http.Request) {
	cmp, recent, prior, err := h.stats.CompareUsage(r.Context(), domain.SubjectUser, r.PathValue("id"), queryInt(r, "period", 0))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	resp := CompareUsageResponse{
		Recent: toSummaryResponse(recent),
		Prior:  toSummaryResponse(prior),
	}
	if cmp != nil {
		resp.Comparison = &ComparisonResponse{
			ConsumptionChangePercent: cmp.ConsumptionChangePercent,
			CostChangePercent:        cmp.CostChangePercent,
			PowerChangePercent:       cmp.PowerChangePercent,
			EnergySavingsKWh:         cmp.EnergySavingsKWh,
			CostSavingsUSD:           cmp.CostSavingsUSD,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
