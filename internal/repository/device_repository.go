package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SBP-techno/CEP-backend/internal/domain"
)

// PostgresDeviceRepository implements domain.DeviceRepository using PostgreSQL
type PostgresDeviceRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresDeviceRepository creates a new device repository
func NewPostgresDeviceRepository(db *sql.DB, logger *slog.Logger) *PostgresDeviceRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresDeviceRepository{
		db:     db,
		logger: logger,
	}
}

const deviceColumns = `id, user_id, name, device_type, model, manufacturer, location,
	rated_power_watts, is_smart_device, is_active, last_seen,
	total_consumed_kwh, total_produced_kwh, current_power_watts, last_reading_at,
	created_at, updated_at`

func scanDevice(row interface{ Scan(...any) error }) (*domain.Device, error) {
	device := &domain.Device{}
	err := row.Scan(
		&device.ID,
		&device.UserID,
		&device.Name,
		&device.DeviceType,
		&device.Model,
		&device.Manufacturer,
		&device.Location,
		&device.RatedPowerWatts,
		&device.IsSmartDevice,
		&device.IsActive,
		&device.LastSeen,
		&device.TotalConsumedKWh,
		&device.TotalProducedKWh,
		&device.CurrentPowerWatts,
		&device.LastReadingAt,
		&device.CreatedAt,
		&device.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return device, nil
}

// Create inserts a new device
func (r *PostgresDeviceRepository) Create(ctx context.Context, device *domain.Device) error {
	query := `
		INSERT INTO devices (id, user_id, name, device_type, model, manufacturer, location,
			rated_power_watts, is_smart_device, is_active, last_seen,
			total_consumed_kwh, total_produced_kwh, current_power_watts, last_reading_at,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`

	_, err := r.db.ExecContext(ctx, query,
		device.ID,
		device.UserID,
		device.Name,
		device.DeviceType,
		device.Model,
		device.Manufacturer,
		device.Location,
		device.RatedPowerWatts,
		device.IsSmartDevice,
		device.IsActive,
		device.LastSeen,
		device.TotalConsumedKWh,
		device.TotalProducedKWh,
		device.CurrentPowerWatts,
		device.LastReadingAt,
		device.CreatedAt,
		device.UpdatedAt,
	)

	if err != nil {
		r.logger.Error("failed to create device",
			slog.String("user_id", device.UserID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create device: %w", err)
	}

	return nil
}

// GetByID retrieves a device by ID regardless of active state; callers decide
// whether inactive devices are acceptable.
func (r *PostgresDeviceRepository) GetByID(ctx context.Context, id string) (*domain.Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices WHERE id = $1`

	device, err := scanDevice(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: device %s", domain.ErrNotFound, id)
		}
		r.logger.Error("failed to get device by id",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to get device: %w", err)
	}

	return device, nil
}

// ListByUser returns a user's devices, optionally including soft-deleted ones
func (r *PostgresDeviceRepository) ListByUser(ctx context.Context, userID string, includeInactive bool) ([]*domain.Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices WHERE user_id = $1`
	if !includeInactive {
		query += ` AND is_active = true`
	}
	query += ` ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	defer rows.Close()

	var devices []*domain.Device
	for rows.Next() {
		device, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan device: %w", err)
		}
		devices = append(devices, device)
	}

	return devices, rows.Err()
}

// Update persists mutable device fields
func (r *PostgresDeviceRepository) Update(ctx context.Context, device *domain.Device) error {
	query := `
		UPDATE devices
		SET name = $2, device_type = $3, model = $4, manufacturer = $5, location = $6,
			rated_power_watts = $7, is_smart_device = $8, updated_at = $9
		WHERE id = $1 AND is_active = true
	`

	res, err := r.db.ExecContext(ctx, query,
		device.ID,
		device.Name,
		device.DeviceType,
		device.Model,
		device.Manufacturer,
		device.Location,
		device.RatedPowerWatts,
		device.IsSmartDevice,
		device.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update device: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update device: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: device %s", domain.ErrNotFound, device.ID)
	}

	return nil
}

// Delete soft-deletes a device
func (r *PostgresDeviceRepository) Delete(ctx context.Context, id string) error {
	query := `UPDATE devices SET is_active = false, updated_at = NOW() WHERE id = $1 AND is_active = true`

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete device: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete device: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: device %s", domain.ErrNotFound, id)
	}

	return nil
}

// RecordReading atomically folds one reading into the device's rolling
// counters and marks the device as seen.
func (r *PostgresDeviceRepository) RecordReading(ctx context.Context, id string, consumedKWh, producedKWh float64, powerWatts *float64, at time.Time) error {
	query := `
		UPDATE devices
		SET total_consumed_kwh = total_consumed_kwh + $2,
			total_produced_kwh = total_produced_kwh + $3,
			current_power_watts = COALESCE($4, current_power_watts),
			last_reading_at = $5,
			last_seen = $5,
			updated_at = NOW()
		WHERE id = $1 AND is_active = true
	`

	res, err := r.db.ExecContext(ctx, query, id, consumedKWh, producedKWh, powerWatts, at)
	if err != nil {
		return fmt.Errorf("failed to record device reading: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to record device reading: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: device %s", domain.ErrNotFound, id)
	}

	return nil
}
