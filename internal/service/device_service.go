package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/SBP-techno/CEP-backend/internal/domain"
	"github.com/SBP-techno/CEP-backend/pkg/config"
)

// DeviceService handles device registration and lifecycle
type DeviceService struct {
	devices domain.DeviceRepository
	users   domain.UserRepository
	logger  *slog.Logger
	config  *config.Config
}

// NewDeviceService creates a new device service
func NewDeviceService(devices domain.DeviceRepository, users domain.UserRepository, logger *slog.Logger, cfg *config.Config) *DeviceService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DeviceService{
		devices: devices,
		users:   users,
		logger:  logger,
		config:  cfg,
	}
}

// CreateDeviceInput captures a device registration request
type CreateDeviceInput struct {
	UserID          string
	Name            string
	DeviceType      domain.DeviceType
	Model           string
	Manufacturer    string
	Location        string
	RatedPowerWatts *float64
	IsSmartDevice   bool
}

// CreateDevice registers a device under an existing active user
func (s *DeviceService) CreateDevice(ctx context.Context, in CreateDeviceInput) (*domain.Device, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: device name is required", domain.ErrValidation)
	}
	if !domain.ValidDeviceType(in.DeviceType) {
		return nil, fmt.Errorf("%w: unknown device type %q", domain.ErrValidation, in.DeviceType)
	}
	if in.RatedPowerWatts != nil && *in.RatedPowerWatts < 0 {
		return nil, fmt.Errorf("%w: rated power must not be negative", domain.ErrValidation)
	}

	// Owner must exist and be active.
	if _, err := s.users.GetByID(ctx, in.UserID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	device := &domain.Device{
		ID:              uuid.NewString(),
		UserID:          in.UserID,
		Name:            name,
		DeviceType:      in.DeviceType,
		Model:           strings.TrimSpace(in.Model),
		Manufacturer:    strings.TrimSpace(in.Manufacturer),
		Location:        strings.TrimSpace(in.Location),
		RatedPowerWatts: in.RatedPowerWatts,
		IsSmartDevice:   in.IsSmartDevice,
		IsActive:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.devices.Create(ctx, device); err != nil {
		return nil, err
	}

	s.logger.Info("device created",
		slog.String("device_id", device.ID),
		slog.String("user_id", device.UserID),
		slog.String("device_type", string(device.DeviceType)),
	)
	return device, nil
}

// GetDevice returns one device, active or not
func (s *DeviceService) GetDevice(ctx context.Context, id string) (*domain.Device, error) {
	return s.devices.GetByID(ctx, id)
}

// ListDevices returns a user's devices
func (s *DeviceService) ListDevices(ctx context.Context, userID string, includeInactive bool) ([]*domain.Device, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.devices.ListByUser(ctx, userID, includeInactive)
}

// UpdateDevice applies the provided fields and returns the updated device
func (s *DeviceService) UpdateDevice(ctx context.Context, id string, update domain.DeviceUpdate) (*domain.Device, error) {
	device, err := s.devices.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !device.IsActive {
		return nil, fmt.Errorf("%w: device %s", domain.ErrNotFound, id)
	}

	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: device name must not be empty", domain.ErrValidation)
		}
		device.Name = name
	}
	if update.DeviceType != nil {
		if !domain.ValidDeviceType(*update.DeviceType) {
			return nil, fmt.Errorf("%w: unknown device type %q", domain.ErrValidation, *update.DeviceType)
		}
		device.DeviceType = *update.DeviceType
	}
	if update.Model != nil {
		device.Model = strings.TrimSpace(*update.Model)
	}
	if update.Manufacturer != nil {
		device.Manufacturer = strings.TrimSpace(*update.Manufacturer)
	}
	if update.Location != nil {
		device.Location = strings.TrimSpace(*update.Location)
	}
	if update.RatedPowerWatts != nil {
		if *update.RatedPowerWatts < 0 {
			return nil, fmt.Errorf("%w: rated power must not be negative", domain.ErrValidation)
		}
		device.RatedPowerWatts = update.RatedPowerWatts
	}
	if update.IsSmartDevice != nil {
		device.IsSmartDevice = *update.IsSmartDevice
	}

	device.UpdatedAt = time.Now().UTC()
	if err := s.devices.Update(ctx, device); err != nil {
		return nil, err
	}

	return device, nil
}

// DeleteDevice soft-deletes a device. Its readings remain queryable.
func (s *DeviceService) DeleteDevice(ctx context.Context, id string) error {
	if err := s.devices.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("device deactivated", slog.String("device_id", id))
	return nil
}
