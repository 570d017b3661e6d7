package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/SBP-techno/CEP-backend/internal/aggregate"
	"github.com/SBP-techno/CEP-backend/internal/domain"
	"github.com/SBP-techno/CEP-backend/internal/recommend"
	"github.com/SBP-techno/CEP-backend/pkg/cache"
	"github.com/SBP-techno/CEP-backend/pkg/config"
)

// recommendationCacheTTL bounds how long AI output is reused before a fresh
// call is made. Fallback results are never cached so recovery is immediate.
const recommendationCacheTTL = 10 * time.Minute

// RecommendationService assembles bounded context from the stores and hands
// it to the recommender. All repository access happens here; the recommender
// only ever sees pre-built context values.
type RecommendationService struct {
	recommender domain.Recommender
	users       domain.UserRepository
	devices     domain.DeviceRepository
	readings    domain.ReadingRepository
	local       *cache.Cache
	logger      *slog.Logger
	config      *config.Config
}

// NewRecommendationService creates a new recommendation service
func NewRecommendationService(
	recommender domain.Recommender,
	users domain.UserRepository,
	devices domain.DeviceRepository,
	readings domain.ReadingRepository,
	logger *slog.Logger,
	cfg *config.Config,
) *RecommendationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecommendationService{
		recommender: recommender,
		users:       users,
		devices:     devices,
		readings:    readings,
		local:       cache.New(),
		logger:      logger,
		config:      cfg,
	}
}

// Recommendations returns energy-saving advice for a user based on their
// trailing 30 days of usage.
func (s *RecommendationService) Recommendations(ctx context.Context, userID string) (*domain.RecommendationResult, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	start, end := aggregate.DefaultWindow(time.Now().UTC())
	readings, err := s.fetchRange(ctx, domain.SubjectUser, userID, start, end)
	if err != nil {
		return nil, err
	}

	// The memoization key carries a fingerprint of the reading log, so newly
	// ingested readings bypass advice computed from the older window.
	key := fmt.Sprintf("recommendation:%s:%d:%d", userID, len(readings), latestTimestamp(readings))
	if cached, ok := s.local.Get(key); ok {
		return cached.(*domain.RecommendationResult), nil
	}

	summary, err := aggregate.Summarize(readings, start, end)
	if err != nil {
		return nil, err
	}

	devices, err := s.devices.ListByUser(ctx, userID, false)
	if err != nil {
		return nil, err
	}

	recent, err := s.readings.ListRecent(ctx, domain.ReadingFilter{
		Subject:   domain.SubjectUser,
		SubjectID: userID,
		Limit:     s.config.DefaultPageLimit,
	})
	if err != nil {
		return nil, err
	}

	rc := recommend.BuildRecommendationContext(user, summary, devices, recent)
	result, err := s.recommender.Recommendations(ctx, rc)
	if err != nil {
		return nil, err
	}

	if result.Source == domain.SourceAI {
		s.local.Set(key, result, recommendationCacheTTL)
	}
	return result, nil
}

// latestTimestamp returns the newest reading timestamp as Unix seconds, or
// zero for an empty set.
func latestTimestamp(readings []*domain.Reading) int64 {
	var latest time.Time
	for _, r := range readings {
		if r.Timestamp.After(latest) {
			latest = r.Timestamp
		}
	}
	if latest.IsZero() {
		return 0
	}
	return latest.Unix()
}

// AnalyzeUsage characterizes a user's consumption pattern over a named period
func (s *RecommendationService) AnalyzeUsage(ctx context.Context, userID, period string) (*domain.AnalysisResult, error) {
	days, err := periodDays(period)
	if err != nil {
		return nil, err
	}

	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}

	end := time.Now().UTC()
	start := end.AddDate(0, 0, -days)
	readings, err := s.fetchRange(ctx, domain.SubjectUser, userID, start, end)
	if err != nil {
		return nil, err
	}

	daily, err := aggregate.DailyBuckets(readings, start, end, false)
	if err != nil {
		return nil, err
	}

	ac := recommend.BuildAnalysisContext(period, daily, len(readings))
	return s.recommender.AnalyzeUsage(ctx, ac)
}

// DeviceTips returns optimization advice for a single device
func (s *RecommendationService) DeviceTips(ctx context.Context, deviceID string) (*domain.DeviceTipsResult, error) {
	device, err := s.devices.GetByID(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	recent, err := s.readings.ListRecent(ctx, domain.ReadingFilter{
		Subject:   domain.SubjectDevice,
		SubjectID: deviceID,
		Limit:     s.config.DefaultPageLimit,
	})
	if err != nil {
		return nil, err
	}

	dc := recommend.BuildDeviceTipsContext(device, recent)
	return s.recommender.DeviceTips(ctx, dc)
}

// Status reports whether the AI function is configured and healthy
func (s *RecommendationService) Status() domain.RecommenderStatus {
	return s.recommender.Status()
}

func (s *RecommendationService) fetchRange(ctx context.Context, subject domain.SubjectType, subjectID string, start, end time.Time) ([]*domain.Reading, error) {
	var all []*domain.Reading
	skip := 0
	for {
		page, err := s.readings.FetchRange(ctx, domain.ReadingFilter{
			Subject:   subject,
			SubjectID: subjectID,
			Start:     start,
			End:       end,
			Skip:      skip,
			Limit:     aggregationPageSize,
		})
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < aggregationPageSize {
			return all, nil
		}
		skip += aggregationPageSize
	}
}

func periodDays(period string) (int, error) {
	switch period {
	case "", "week":
		return 7, nil
	case "month":
		return 30, nil
	case "quarter":
		return 90, nil
	}
	return 0, fmt.Errorf("%w: period must be week, month or quarter", domain.ErrValidation)
}
