package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/SBP-techno/CEP-backend/internal/domain"
	"github.com/SBP-techno/CEP-backend/internal/service"
)

// CreateDeviceRequest represents a device registration request
type CreateDeviceRequest struct {
	UserID          string   `json:"userId"`
	Name            string   `json:"name"`
	DeviceType      string   `json:"deviceType"`
	Model           string   `json:"model,omitempty"`
	Manufacturer    string   `json:"manufacturer,omitempty"`
	Location        string   `json:"location,omitempty"`
	RatedPowerWatts *float64 `json:"ratedPowerWatts,omitempty"`
	IsSmartDevice   bool     `json:"isSmartDevice,omitempty"`
}

// UpdateDeviceRequest represents a partial update; absent fields are untouched
type UpdateDeviceRequest struct {
	Name            *string  `json:"name,omitempty"`
	DeviceType      *string  `json:"deviceType,omitempty"`
	Model           *string  `json:"model,omitempty"`
	Manufacturer    *string  `json:"manufacturer,omitempty"`
	Location        *string  `json:"location,omitempty"`
	RatedPowerWatts *float64 `json:"ratedPowerWatts,omitempty"`
	IsSmartDevice   *bool    `json:"isSmartDevice,omitempty"`
}

// DeviceResponse represents a device in API responses
type DeviceResponse struct {
	ID                string     `json:"id"`
	UserID            string     `json:"userId"`
	Name              string     `json:"name"`
	DeviceType        string     `json:"deviceType"`
	Model             string     `json:"model,omitempty"`
	Manufacturer      string     `json:"manufacturer,omitempty"`
	Location          string     `json:"location,omitempty"`
	RatedPowerWatts   *float64   `json:"ratedPowerWatts,omitempty"`
	IsSmartDevice     bool       `json:"isSmartDevice"`
	IsActive          bool       `json:"isActive"`
	TotalConsumedKWh  float64    `json:"totalConsumedKwh"`
	TotalProducedKWh  float64    `json:"totalProducedKwh"`
	CurrentPowerWatts *float64   `json:"currentPowerWatts,omitempty"`
	LastReadingAt     *time.Time `json:"lastReadingAt,omitempty"`
	LastSeen          *time.Time `json:"lastSeen,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

func toDeviceResponse(d *domain.Device) DeviceResponse {
	return DeviceResponse{
		ID:                d.ID,
		UserID:            d.UserID,
		Name:              d.Name,
		DeviceType:        string(d.DeviceType),
		Model:             d.Model,
		Manufacturer:      d.Manufacturer,
		Location:          d.Location,
		RatedPowerWatts:   d.RatedPowerWatts,
		IsSmartDevice:     d.IsSmartDevice,
		IsActive:          d.IsActive,
		TotalConsumedKWh:  d.TotalConsumedKWh,
		TotalProducedKWh:  d.TotalProducedKWh,
		CurrentPowerWatts: d.CurrentPowerWatts,
		LastReadingAt:     d.LastReadingAt,
		LastSeen:          d.LastSeen,
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
	}
}

// DevicesHandler handles device CRUD requests
type DevicesHandler struct {
	devices *service.DeviceService
	logger  *slog.Logger
}

// NewDevicesHandler creates a new devices handler
func NewDevicesHandler(devices *service.DeviceService, logger *slog.Logger) *DevicesHandler {
	return &DevicesHandler{devices: devices, logger: logger}
}

// Create handles POST /api/v1/devices
func (h *DevicesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateDeviceRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	device, err := h.devices.CreateDevice(r.Context(), service.CreateDeviceInput{
		UserID:          req.UserID,
		Name:            req.Name,
		DeviceType:      domain.DeviceType(req.DeviceType),
		Model:           req.Model,
		Manufacturer:    req.Manufacturer,
		Location:        req.Location,
		RatedPowerWatts: req.RatedPowerWatts,
		IsSmartDevice:   req.IsSmartDevice,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, toDeviceResponse(device))
}

// Get handles GET /api/v1/devices/{id}
func (h *DevicesHandler) Get(w http.ResponseWriter, r *http.Request) {
	device, err := h.devices.GetDevice(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toDeviceResponse(device))
}

// ListByUser handles GET /api/v1/users/{id}/devices
func (h *DevicesHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	includeInactive := r.URL.Query().Get("includeInactive") == "true"
	devices, err := h.devices.ListDevices(r.Context(), r.PathValue("id"), includeInactive)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	out := make([]DeviceResponse, 0, len(devices))
	for _, d := range devices {
		out = append(out, toDeviceResponse(d))
	}
	writeJSON(w, http.StatusOK, out)
}

// Update handles PUT /api/v1/devices/{id}
func (h *DevicesHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateDeviceRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	var deviceType *domain.DeviceType
	if req.DeviceType != nil {
		dt := domain.DeviceType(*req.DeviceType)
		deviceType = &dt
	}

	device, err := h.devices.UpdateDevice(r.Context(), r.PathValue("id"), domain.DeviceUpdate{
		Name:            req.Name,
		DeviceType:      deviceType,
		Model:           req.Model,
		Manufacturer:    req.Manufacturer,
		Location:        req.Location,
		RatedPowerWatts: req.RatedPowerWatts,
		IsSmartDevice:   req.IsSmartDevice,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, toDeviceResponse(device))
}

// Delete handles DELETE /api/v1/devices/{id}
func (h *DevicesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.devices.DeleteDevice(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "device deactivated"})
}
