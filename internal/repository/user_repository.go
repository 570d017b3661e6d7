package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"github.com/SBP-techno/CEP-backend/internal/domain"
)

// PostgresUserRepository implements domain.UserRepository using PostgreSQL
type PostgresUserRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresUserRepository creates a new user repository
func NewPostgresUserRepository(db *sql.DB, logger *slog.Logger) *PostgresUserRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresUserRepository{
		db:     db,
		logger: logger,
	}
}

const userColumns = `id, email, username, full_name, energy_goal_kwh, preferred_temperature,
	total_consumed_kwh, total_produced_kwh, is_active, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*domain.User, error) {
	user := &domain.User{}
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Username,
		&user.FullName,
		&user.EnergyGoalKWh,
		&user.PreferredTemperature,
		&user.TotalConsumedKWh,
		&user.TotalProducedKWh,
		&user.IsActive,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Create inserts a new user
func (r *PostgresUserRepository) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (id, email, username, full_name, energy_goal_kwh, preferred_temperature,
			total_consumed_kwh, total_produced_kwh, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.Email,
		user.Username,
		user.FullName,
		user.EnergyGoalKWh,
		user.PreferredTemperature,
		user.TotalConsumedKWh,
		user.TotalProducedKWh,
		user.IsActive,
		user.CreatedAt,
		user.UpdatedAt,
	)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return fmt.Errorf("%w: email or username already registered", domain.ErrConflict)
		}
		r.logger.Error("failed to create user",
			slog.String("email", user.Email),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetByID retrieves an active user by ID
func (r *PostgresUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 AND is_active = true`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: user %s", domain.ErrNotFound, id)
		}
		r.logger.Error("failed to get user by id",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// GetByEmailOrUsername retrieves an active user matching either identity field
func (r *PostgresUserRepository) GetByEmailOrUsername(ctx context.Context, email, username string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE (email = $1 OR username = $2) AND is_active = true`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, email, username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: user", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user by identity: %w", err)
	}

	return user, nil
}

// List returns active users ordered by creation time
func (r *PostgresUserRepository) List(ctx context.Context, skip, limit int) ([]*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE is_active = true ORDER BY created_at OFFSET $1 LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	return users, rows.Err()
}

// Update persists mutable user fields
func (r *PostgresUserRepository) Update(ctx context.Context, user *domain.User) error {
	query := `
		UPDATE users
		SET email = $2, username = $3, full_name = $4, energy_goal_kwh = $5,
			preferred_temperature = $6, updated_at = $7
		WHERE id = $1 AND is_active = true
	`

	res, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.Email,
		user.Username,
		user.FullName,
		user.EnergyGoalKWh,
		user.PreferredTemperature,
		user.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return fmt.Errorf("%w: email or username already registered", domain.ErrConflict)
		}
		return fmt.Errorf("failed to update user: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: user %s", domain.ErrNotFound, user.ID)
	}

	return nil
}

// Delete soft-deletes a user
func (r *PostgresUserRepository) Delete(ctx context.Context, id string) error {
	query := `UPDATE users SET is_active = false, updated_at = NOW() WHERE id = $1 AND is_active = true`

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: user %s", domain.ErrNotFound, id)
	}

	return nil
}

// AddTotals atomically increments the rolling consumption and production totals
func (r *PostgresUserRepository) AddTotals(ctx context.Context, id string, consumedKWh, producedKWh float64) error {
	query := `
		UPDATE users
		SET total_consumed_kwh = total_consumed_kwh + $2,
			total_produced_kwh = total_produced_kwh + $3,
			updated_at = NOW()
		WHERE id = $1 AND is_active = true
	`

	res, err := r.db.ExecContext(ctx, query, id, consumedKWh, producedKWh)
	if err != nil {
		return fmt.Errorf("failed to add user totals: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to add user totals: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: user %s", domain.ErrNotFound, id)
	}

	return nil
}
