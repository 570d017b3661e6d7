package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/SBP-techno/CEP-backend/internal/domain"
	"github.com/SBP-techno/CEP-backend/pkg/config"
)

// UserService handles user account logic
type UserService struct {
	users  domain.UserRepository
	logger *slog.Logger
	config *config.Config
}

// NewUserService creates a new user service
func NewUserService(users domain.UserRepository, logger *slog.Logger, cfg *config.Config) *UserService {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserService{
		users:  users,
		logger: logger,
		config: cfg,
	}
}

// CreateUserInput captures a registration request
type CreateUserInput struct {
	Email                string
	Username             string
	FullName             string
	EnergyGoalKWh        *float64
	PreferredTemperature *float64
}

// CreateUser registers a new user after validating identity fields
func (s *UserService) CreateUser(ctx context.Context, in CreateUserInput) (*domain.User, error) {
	email := strings.TrimSpace(strings.ToLower(in.Email))
	username := strings.TrimSpace(in.Username)

	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: a valid email is required", domain.ErrValidation)
	}
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", domain.ErrValidation)
	}
	if in.EnergyGoalKWh != nil && *in.EnergyGoalKWh < 0 {
		return nil, fmt.Errorf("%w: energy goal must not be negative", domain.ErrValidation)
	}

	if existing, err := s.users.GetByEmailOrUsername(ctx, email, username); err == nil && existing != nil {
		return nil, fmt.Errorf("%w: email or username already registered", domain.ErrConflict)
	} else if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:                   uuid.NewString(),
		Email:                email,
		Username:             username,
		FullName:             strings.TrimSpace(in.FullName),
		EnergyGoalKWh:        in.EnergyGoalKWh,
		PreferredTemperature: in.PreferredTemperature,
		IsActive:             true,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user created",
		slog.String("user_id", user.ID),
		slog.String("username", user.Username),
	)
	return user, nil
}

// GetUser returns one active user
func (s *UserService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return s.users.GetByID(ctx, id)
}

// ListUsers returns a page of active users. Limit is defaulted and capped.
func (s *UserService) ListUsers(ctx context.Context, skip, limit int) ([]*domain.User, error) {
	if skip < 0 {
		skip = 0
	}
	limit = s.clampLimit(limit)
	return s.users.List(ctx, skip, limit)
}

// UpdateUser applies the provided fields and returns the updated user
func (s *UserService) UpdateUser(ctx context.Context, id string, update domain.UserUpdate) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if update.Email != nil {
		email := strings.TrimSpace(strings.ToLower(*update.Email))
		if email == "" || !strings.Contains(email, "@") {
			return nil, fmt.Errorf("%w: a valid email is required", domain.ErrValidation)
		}
		user.Email = email
	}
	if update.Username != nil {
		username := strings.TrimSpace(*update.Username)
		if username == "" {
			return nil, fmt.Errorf("%w: username must not be empty", domain.ErrValidation)
		}
		user.Username = username
	}
	if update.FullName != nil {
		user.FullName = strings.TrimSpace(*update.FullName)
	}
	if update.EnergyGoalKWh != nil {
		if *update.EnergyGoalKWh < 0 {
			return nil, fmt.Errorf("%w: energy goal must not be negative", domain.ErrValidation)
		}
		user.EnergyGoalKWh = update.EnergyGoalKWh
	}
	if update.PreferredTemperature != nil {
		user.PreferredTemperature = update.PreferredTemperature
	}

	user.UpdatedAt = time.Now().UTC()
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// DeleteUser soft-deletes a user. Their devices and readings are retained.
func (s *UserService) DeleteUser(ctx context.Context, id string) error {
	if err := s.users.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("user deactivated", slog.String("user_id", id))
	return nil
}

func (s *UserService) clampLimit(limit int) int {
	if limit <= 0 {
		return s.config.DefaultPageLimit
	}
	if limit > s.config.MaxPageLimit {
		return s.config.MaxPageLimit
	}
	return limit
}
