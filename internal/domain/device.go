package domain

import (
	"context"
	"time"
)

// DeviceType enumerates the supported device categories
type DeviceType string

const (
	DeviceTypeHVAC       DeviceType = "hvac"
	DeviceTypeLighting   DeviceType = "lighting"
	DeviceTypeAppliance  DeviceType = "appliance"
	DeviceTypeWaterHeater DeviceType = "water_heater"
	DeviceTypeSolarPanel DeviceType = "solar_panel"
	DeviceTypeSmartMeter DeviceType = "smart_meter"
	DeviceTypeOther      DeviceType = "other"
)

// ValidDeviceType reports whether t is one of the known categories
func ValidDeviceType(t DeviceType) bool {
	switch t {
	case DeviceTypeHVAC, DeviceTypeLighting, DeviceTypeAppliance, DeviceTypeWaterHeater,
		DeviceTypeSolarPanel, DeviceTypeSmartMeter, DeviceTypeOther:
		return true
	}
	return false
}

// Device represents a single energy-consuming or producing appliance owned by a user
type Device struct {
	ID              string // UUID
	UserID          string // Owning user, exactly one
	Name            string
	DeviceType      DeviceType
	Model           string
	Manufacturer    string
	Location        string
	RatedPowerWatts *float64 // Nameplate power in watts, nil if unknown
	IsSmartDevice   bool     // Remotely controllable
	IsActive        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
	LastSeen        *time.Time

	// Rolling counters maintained incrementally as readings arrive. These cache
	// the append-only reading log and are updated with atomic increments, never
	// read-modify-write.
	TotalConsumedKWh  float64
	TotalProducedKWh  float64
	CurrentPowerWatts *float64
	LastReadingAt     *time.Time
}

// DeviceUpdate carries the fields a PUT may change. Nil means "leave as is".
type DeviceUpdate struct {
	Name            *string
	DeviceType      *DeviceType
	Model           *string
	Manufacturer    *string
	Location        *string
	RatedPowerWatts *float64
	IsSmartDevice   *bool
}

// DeviceRepository defines data access for devices
type DeviceRepository interface {
	Create(ctx context.Context, device *Device) error
	GetByID(ctx context.Context, id string) (*Device, error)
	ListByUser(ctx context.Context, userID string, includeInactive bool) ([]*Device, error)
	Update(ctx context.Context, device *Device) error
	Delete(ctx context.Context, id string) error
	RecordReading(ctx context.Context, id string, consumedKWh, producedKWh float64, powerWatts *float64, at time.Time) error
}
