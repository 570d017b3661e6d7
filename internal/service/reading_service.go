package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/SBP-techno/CEP-backend/internal/domain"
	"github.com/SBP-techno/CEP-backend/internal/observability/metrics"
	"github.com/SBP-techno/CEP-backend/pkg/config"
)

// ReadingService handles reading ingestion and queries. Ingestion also folds
// each reading into the device and user rolling counters so list endpoints
// never have to re-scan the log.
type ReadingService struct {
	readings domain.ReadingRepository
	devices  domain.DeviceRepository
	users    domain.UserRepository
	cache    StatsCache
	logger   *slog.Logger
	config   *config.Config
}

// NewReadingService creates a new reading service. cache may be nil.
func NewReadingService(
	readings domain.ReadingRepository,
	devices domain.DeviceRepository,
	users domain.UserRepository,
	cache StatsCache,
	logger *slog.Logger,
	cfg *config.Config,
) *ReadingService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReadingService{
		readings: readings,
		devices:  devices,
		users:    users,
		cache:    cache,
		logger:   logger,
		config:   cfg,
	}
}

// CreateReadingInput captures one measurement submission
type CreateReadingInput struct {
	DeviceID           string
	ConsumptionKWh     float64
	ProductionKWh      float64
	PowerWatts         *float64
	Voltage            *float64
	CurrentAmps        *float64
	TemperatureCelsius *float64
	HumidityPercent    *float64
	CostUSD            *float64
	Timestamp          *time.Time // Nil means "now"
}

// CreateReading validates and stores a measurement, then updates the owning
// device's and user's rolling totals.
func (s *ReadingService) CreateReading(ctx context.Context, in CreateReadingInput) (*domain.Reading, error) {
	if in.ConsumptionKWh < 0 {
		return nil, fmt.Errorf("%w: consumption must not be negative", domain.ErrValidation)
	}
	if in.ProductionKWh < 0 {
		return nil, fmt.Errorf("%w: production must not be negative", domain.ErrValidation)
	}
	if in.CostUSD != nil && *in.CostUSD < 0 {
		return nil, fmt.Errorf("%w: cost must not be negative", domain.ErrValidation)
	}
	if in.HumidityPercent != nil && (*in.HumidityPercent < 0 || *in.HumidityPercent > 100) {
		return nil, fmt.Errorf("%w: humidity must be between 0 and 100", domain.ErrValidation)
	}

	device, err := s.devices.GetByID(ctx, in.DeviceID)
	if err != nil {
		return nil, err
	}
	if !device.IsActive {
		return nil, fmt.Errorf("%w: device %s is inactive", domain.ErrValidation, in.DeviceID)
	}

	now := time.Now().UTC()
	ts := now
	if in.Timestamp != nil {
		ts = in.Timestamp.UTC()
	}

	reading := &domain.Reading{
		ID:                 uuid.NewString(),
		UserID:             device.UserID,
		DeviceID:           device.ID,
		ConsumptionKWh:     in.ConsumptionKWh,
		ProductionKWh:      in.ProductionKWh,
		PowerWatts:         in.PowerWatts,
		Voltage:            in.Voltage,
		CurrentAmps:        in.CurrentAmps,
		TemperatureCelsius: in.TemperatureCelsius,
		HumidityPercent:    in.HumidityPercent,
		CostUSD:            in.CostUSD,
		Timestamp:          ts,
		CreatedAt:          now,
	}

	if err := s.readings.Create(ctx, reading); err != nil {
		return nil, err
	}

	// Counter updates are best-effort after the append: a failure leaves the
	// log authoritative and is logged rather than surfaced to the caller.
	if err := s.devices.RecordReading(ctx, device.ID, reading.ConsumptionKWh, reading.ProductionKWh, reading.PowerWatts, ts); err != nil {
		s.logger.Error("failed to update device counters",
			slog.String("device_id", device.ID),
			slog.String("error", err.Error()),
		)
	}
	if err := s.users.AddTotals(ctx, device.UserID, reading.ConsumptionKWh, reading.ProductionKWh); err != nil {
		s.logger.Error("failed to update user totals",
			slog.String("user_id", device.UserID),
			slog.String("error", err.Error()),
		)
	}

	metrics.ObserveReadingIngested(string(device.DeviceType))
	s.invalidateStats(ctx, device.UserID, device.ID)

	return reading, nil
}

// ListReadings returns readings for a user or device, newest first
func (s *ReadingService) ListReadings(ctx context.Context, subject domain.SubjectType, subjectID string, start, end time.Time, skip, limit int) ([]*domain.Reading, error) {
	if err := s.checkSubject(ctx, subject, subjectID); err != nil {
		return nil, err
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return nil, fmt.Errorf("%w: end must not precede start", domain.ErrValidation)
	}
	if skip < 0 {
		skip = 0
	}
	filter := domain.ReadingFilter{
		Subject:   subject,
		SubjectID: subjectID,
		Start:     start,
		End:       end,
		Skip:      skip,
		Limit:     s.clampLimit(limit),
	}
	return s.readings.ListRecent(ctx, filter)
}

func (s *ReadingService) checkSubject(ctx context.Context, subject domain.SubjectType, subjectID string) error {
	switch subject {
	case domain.SubjectUser:
		_, err := s.users.GetByID(ctx, subjectID)
		return err
	case domain.SubjectDevice:
		_, err := s.devices.GetByID(ctx, subjectID)
		return err
	}
	return fmt.Errorf("%w: unknown reading subject %q", domain.ErrValidation, subject)
}

func (s *ReadingService) invalidateStats(ctx context.Context, userID, deviceID string) {
	if s.cache == nil {
		return
	}
	for _, prefix := range []string{
		"stats:user:" + userID,
		"stats:device:" + deviceID,
	} {
		if err := s.cache.DeletePrefix(ctx, prefix); err != nil {
			s.logger.Warn("failed to invalidate stats cache",
				slog.String("prefix", prefix),
				slog.String("error", err.Error()),
			)
		}
	}
}

func (s *ReadingService) clampLimit(limit int) int {
	if limit <= 0 {
		return s.config.DefaultPageLimit
	}
	if limit > s.config.MaxPageLimit {
		return s.config.MaxPageLimit
	}
	return limit
}
