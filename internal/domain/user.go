package domain

import (
	"context"
	"time"
)

// User represents a household account tracking energy devices
type User struct {
	ID                   string // UUID
	Email                string // Unique email address
	Username             string // Unique username
	FullName             string
	EnergyGoalKWh        *float64 // Monthly conservation goal in kWh, nil if unset
	PreferredTemperature *float64 // Preferred room temperature in Celsius, nil if unset
	TotalConsumedKWh     float64  // Rolling total across all devices, maintained at ingestion
	TotalProducedKWh     float64
	CreatedAt            time.Time
	UpdatedAt            time.Time
	IsActive             bool
}

// UserUpdate carries the fields a PUT may change. Nil means "leave as is".
type UserUpdate struct {
	Email                *string
	Username             *string
	FullName             *string
	EnergyGoalKWh        *float64
	PreferredTemperature *float64
}

// UserRepository defines data access for users
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmailOrUsername(ctx context.Context, email, username string) (*User, error)
	List(ctx context.Context, skip, limit int) ([]*User, error)
	Update(ctx context.Context, user *User) error
	Delete(ctx context.Context, id string) error
	AddTotals(ctx context.Context, id string, consumedKWh, producedKWh float64) error
}
