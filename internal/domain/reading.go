package domain

import (
	"context"
	"time"
)

// Reading is a single timestamped energy measurement for one device. Readings
// are append-only: once stored they are never updated or deleted, and every
// statistic the API serves derives from them.
type Reading struct {
	ID                 string // UUID
	UserID             string // Denormalized owner of the device
	DeviceID           string
	ConsumptionKWh     float64
	ProductionKWh      float64 // Nonzero only meaningful for generating devices
	PowerWatts         *float64
	Voltage            *float64
	CurrentAmps        *float64
	TemperatureCelsius *float64
	HumidityPercent    *float64
	CostUSD            *float64
	Timestamp          time.Time // When the measurement was taken
	CreatedAt          time.Time // When the record was stored
}

// SubjectType scopes a reading query to a user (all their devices) or a single device
type SubjectType string

const (
	SubjectUser   SubjectType = "user"
	SubjectDevice SubjectType = "device"
)

// ReadingFilter bounds a reading fetch. Start/End are inclusive.
type ReadingFilter struct {
	Subject   SubjectType
	SubjectID string
	Start     time.Time
	End       time.Time
	Skip      int
	Limit     int // Capped by the service layer
}

// ReadingRepository defines data access for readings. Ordering of FetchRange
// results is not guaranteed; callers re-sort where chronology matters.
type ReadingRepository interface {
	Create(ctx context.Context, reading *Reading) error
	FetchRange(ctx context.Context, filter ReadingFilter) ([]*Reading, error)
	ListRecent(ctx context.Context, filter ReadingFilter) ([]*Reading, error)
}
