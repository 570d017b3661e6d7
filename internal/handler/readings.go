package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/SBP-techno/CEP-backend/internal/domain"
	"github.com/SBP-techno/CEP-backend/internal/service"
)

// CreateReadingRequest represents one measurement submission
type CreateReadingRequest struct {
	DeviceID           string     `json:"deviceId"`
	ConsumptionKWh     float64    `json:"consumptionKwh"`
	ProductionKWh      float64    `json:"productionKwh,omitempty"`
	PowerWatts         *float64   `json:"powerWatts,omitempty"`
	Voltage            *float64   `json:"voltage,omitempty"`
	CurrentAmps        *float64   `json:"currentAmps,omitempty"`
	TemperatureCelsius *float64   `json:"temperatureCelsius,omitempty"`
	HumidityPercent    *float64   `json:"humidityPercent,omitempty"`
	CostUSD            *float64   `json:"costUsd,omitempty"`
	Timestamp          *time.Time `json:"timestamp,omitempty"`
}

// ReadingResponse represents a reading in API responses
type ReadingResponse struct {
	ID                 string     `json:"id"`
	UserID             string     `json:"userId"`
	DeviceID           string     `json:"deviceId"`
	ConsumptionKWh     float64    `json:"consumptionKwh"`
	ProductionKWh      float64    `json:"productionKwh"`
	PowerWatts         *float64   `json:"powerWatts,omitempty"`
	Voltage            *float64   `json:"voltage,omitempty"`
	CurrentAmps        *float64   `json:"currentAmps,omitempty"`
	TemperatureCelsius *float64   `json:"temperatureCelsius,omitempty"`
	HumidityPercent    *float64   `json:"humidityPercent,omitempty"`
	CostUSD            *float64   `json:"costUsd,omitempty"`
	Timestamp          time.Time  `json:"timestamp"`
	CreatedAt          time.Time  `json:"createdAt"`
}

func toReadingResponse(rd *domain.Reading) ReadingResponse {
	return ReadingResponse{
		ID:                 rd.ID,
		UserID:             rd.UserID,
		DeviceID:           rd.DeviceID,
		ConsumptionKWh:     rd.ConsumptionKWh,
		ProductionKWh:      rd.ProductionKWh,
		PowerWatts:         rd.PowerWatts,
		Voltage:            rd.Voltage,
		CurrentAmps:        rd.CurrentAmps,
		TemperatureCelsius: rd.TemperatureCelsius,
		HumidityPercent:    rd.HumidityPercent,
		CostUSD:            rd.CostUSD,
		Timestamp:          rd.Timestamp,
		CreatedAt:          rd.CreatedAt,
	}
}

// ReadingsHandler handles reading ingestion and listing
type ReadingsHandler struct {
	readings *service.ReadingService
	logger   *slog.Logger
}

// NewReadingsHandler creates a new readings handler
func NewReadingsHandler(readings *service.ReadingService, logger *slog.Logger) *ReadingsHandler {
	return &ReadingsHandler{readings: readings, logger: logger}
}

// Create handles POST /api/v1/readings
func (h *ReadingsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateReadingRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	reading, err := h.readings.CreateReading(r.Context(), service.CreateReadingInput{
		DeviceID:           req.DeviceID,
		ConsumptionKWh:     req.ConsumptionKWh,
		ProductionKWh:      req.ProductionKWh,
		PowerWatts:         req.PowerWatts,
		Voltage:            req.Voltage,
		CurrentAmps:        req.CurrentAmps,
		TemperatureCelsius: req.TemperatureCelsius,
		HumidityPercent:    req.HumidityPercent,
		CostUSD:            req.CostUSD,
		Timestamp:          req.Timestamp,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, toReadingResponse(reading))
}

// ListByUser handles GET /api/v1/users/{id}/readings
func (h *ReadingsHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, domain.SubjectUser)
}

// ListByDevice handles GET /api/v1/devices/{id}/readings
func (h *ReadingsHandler) ListByDevice(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, domain.SubjectDevice)
}

func (h *ReadingsHandler) list(w http.ResponseWriter, r *http.Request, subject domain.SubjectType) {
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

	readings, err := h.readings.ListReadings(r.Context(), subject, r.PathValue("id"),
		start, end, queryInt(r, "skip", 0), queryInt(r, "limit", 0))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	out := make([]ReadingResponse, 0, len(readings))
	for _, rd := range readings {
		out = append(out, toReadingResponse(rd))
	}
	writeJSON(w, http.StatusOK, out)
}
