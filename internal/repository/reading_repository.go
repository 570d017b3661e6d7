package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/SBP-techno/CEP-backend/internal/domain"
)

// PostgresReadingRepository implements domain.ReadingRepository using PostgreSQL
type PostgresReadingRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresReadingRepository creates a new reading repository
func NewPostgresReadingRepository(db *sql.DB, logger *slog.Logger) *PostgresReadingRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresReadingRepository{
		db:     db,
		logger: logger,
	}
}

const readingColumns = `id, user_id, device_id, consumption_kwh, production_kwh,
	power_watts, voltage, current_amps, temperature_celsius, humidity_percent,
	cost_usd, ts, created_at`

func scanReading(row interface{ Scan(...any) error }) (*domain.Reading, error) {
	reading := &domain.Reading{}
	err := row.Scan(
		&reading.ID,
		&reading.UserID,
		&reading.DeviceID,
		&reading.ConsumptionKWh,
		&reading.ProductionKWh,
		&reading.PowerWatts,
		&reading.Voltage,
		&reading.CurrentAmps,
		&reading.TemperatureCelsius,
		&reading.HumidityPercent,
		&reading.CostUSD,
		&reading.Timestamp,
		&reading.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return reading, nil
}

// Create appends one reading
func (r *PostgresReadingRepository) Create(ctx context.Context, reading *domain.Reading) error {
	query := `
		INSERT INTO energy_readings (id, user_id, device_id, consumption_kwh, production_kwh,
			power_watts, voltage, current_amps, temperature_celsius, humidity_percent,
			cost_usd, ts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.db.ExecContext(ctx, query,
		reading.ID,
		reading.UserID,
		reading.DeviceID,
		reading.ConsumptionKWh,
		reading.ProductionKWh,
		reading.PowerWatts,
		reading.Voltage,
		reading.CurrentAmps,
		reading.TemperatureCelsius,
		reading.HumidityPercent,
		reading.CostUSD,
		reading.Timestamp,
		reading.CreatedAt,
	)

	if err != nil {
		r.logger.Error("failed to create reading",
			slog.String("device_id", reading.DeviceID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create reading: %w", err)
	}

	return nil
}

func subjectColumn(subject domain.SubjectType) (string, error) {
	switch subject {
	case domain.SubjectUser:
		return "user_id", nil
	case domain.SubjectDevice:
		return "device_id", nil
	}
	return "", fmt.Errorf("%w: unknown reading subject %q", domain.ErrValidation, subject)
}

// FetchRange returns readings for the filter's subject within [Start, End]
func (r *PostgresReadingRepository) FetchRange(ctx context.Context, filter domain.ReadingFilter) ([]*domain.Reading, error) {
	col, err := subjectColumn(filter.Subject)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + readingColumns + ` FROM energy_readings
		WHERE ` + col + ` = $1 AND ts >= $2 AND ts <= $3
		ORDER BY ts OFFSET $4 LIMIT $5`

	rows, err := r.db.QueryContext(ctx, query, filter.SubjectID, filter.Start, filter.End, filter.Skip, filter.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch readings: %w", err)
	}
	defer rows.Close()

	return collectReadings(rows)
}

// ListRecent returns the newest readings first. Zero Start/End bounds are
// not applied.
func (r *PostgresReadingRepository) ListRecent(ctx context.Context, filter domain.ReadingFilter) ([]*domain.Reading, error) {
	col, err := subjectColumn(filter.Subject)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + readingColumns + ` FROM energy_readings WHERE ` + col + ` = $1`
	args := []any{filter.SubjectID}

	if !filter.Start.IsZero() {
		args = append(args, filter.Start)
		query += fmt.Sprintf(" AND ts >= $%d", len(args))
	}
	if !filter.End.IsZero() {
		args = append(args, filter.End)
		query += fmt.Sprintf(" AND ts <= $%d", len(args))
	}

	args = append(args, filter.Skip, filter.Limit)
	query += fmt.Sprintf(" ORDER BY ts DESC OFFSET $%d LIMIT $%d", len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent readings: %w", err)
	}
	defer rows.Close()

	return collectReadings(rows)
}

func collectReadings(rows *sql.Rows) ([]*domain.Reading, error) {
	var readings []*domain.Reading
	for rows.Next() {
		reading, err := scanReading(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reading: %w", err)
		}
		readings = append(readings, reading)
	}
	return readings, rows.Err()
}
