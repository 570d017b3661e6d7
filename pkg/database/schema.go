package database

import (
	"context"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		username TEXT NOT NULL UNIQUE,
		full_name TEXT NOT NULL DEFAULT '',
		energy_goal_kwh DOUBLE PRECISION,
		preferred_temperature DOUBLE PRECISION,
		total_consumed_kwh DOUBLE PRECISION NOT NULL DEFAULT 0,
		total_produced_kwh DOUBLE PRECISION NOT NULL DEFAULT 0,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS devices (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users(id),
		name TEXT NOT NULL,
		device_type TEXT NOT NULL,
		model TEXT NOT NULL DEFAULT '',
		manufacturer TEXT NOT NULL DEFAULT '',
		location TEXT NOT NULL DEFAULT '',
		rated_power_watts DOUBLE PRECISION,
		is_smart_device BOOLEAN NOT NULL DEFAULT FALSE,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		last_seen TIMESTAMPTZ,
		total_consumed_kwh DOUBLE PRECISION NOT NULL DEFAULT 0,
		total_produced_kwh DOUBLE PRECISION NOT NULL DEFAULT 0,
		current_power_watts DOUBLE PRECISION,
		last_reading_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS energy_readings (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users(id),
		device_id UUID NOT NULL REFERENCES devices(id),
		consumption_kwh DOUBLE PRECISION NOT NULL DEFAULT 0,
		production_kwh DOUBLE PRECISION NOT NULL DEFAULT 0,
		power_watts DOUBLE PRECISION,
		voltage DOUBLE PRECISION,
		current_amps DOUBLE PRECISION,
		temperature_celsius DOUBLE PRECISION,
		humidity_percent DOUBLE PRECISION,
		cost_usd DOUBLE PRECISION,
		ts TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_devices_user_id ON devices(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_readings_user_ts ON energy_readings(user_id, ts)`,
	`CREATE INDEX IF NOT EXISTS idx_readings_device_ts ON energy_readings(device_id, ts)`,
}

// EnsureSchema creates the tables and indexes used by the service if they
// do not already exist. Statements are idempotent so this is safe to run
// on every startup.
func (cp *ConnectionPool) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := cp.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	cp.logger.Info("database schema ensured")
	return nil
}
