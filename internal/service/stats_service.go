package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/SBP-techno/CEP-backend/internal/aggregate"
	"github.com/SBP-techno/CEP-backend/internal/domain"
	"github.com/SBP-techno/CEP-backend/internal/featureflags"
	"github.com/SBP-techno/CEP-backend/internal/observability/metrics"
	"github.com/SBP-techno/CEP-backend/pkg/config"
)

// StatsCache is the subset of the Redis client the stats layer needs.
type StatsCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeletePrefix(ctx context.Context, prefix string) error
}

// aggregationPageSize bounds each repository fetch while aggregating.
const aggregationPageSize = 5000

// StatsService computes energy statistics from the reading log. Results are
// cached in Redis keyed by subject and window; ingestion invalidates them.
type StatsService struct {
	readings domain.ReadingRepository
	users    domain.UserRepository
	devices  domain.DeviceRepository
	cache    StatsCache
	logger   *slog.Logger
	config   *config.Config
}

// NewStatsService creates a new stats service. cache may be nil, in which
// case every request recomputes.
func NewStatsService(
	readings domain.ReadingRepository,
	users domain.UserRepository,
	devices domain.DeviceRepository,
	cache StatsCache,
	logger *slog.Logger,
	cfg *config.Config,
) *StatsService {
	if logger == nil {
		logger = slog.Default()
	}
	return &StatsService{
		readings: readings,
		users:    users,
		devices:  devices,
		cache:    cache,
		logger:   logger,
		config:   cfg,
	}
}

// EnergyStats summarizes a subject's readings over [start, end]. Each zero
// bound defaults independently: a zero end becomes now, a zero start becomes
// 30 days before the end.
func (s *StatsService) EnergyStats(ctx context.Context, subject domain.SubjectType, subjectID string, start, end time.Time) (*aggregate.Summary, error) {
	if err := s.checkSubject(ctx, subject, subjectID); err != nil {
		return nil, err
	}
	if end.IsZero() {
		end = time.Now().UTC()
	}
	if start.IsZero() {
		start = end.AddDate(0, 0, -aggregate.DefaultWindowDays)
	}

	key := fmt.Sprintf("stats:%s:%s:summary:%d:%d", subject, subjectID, start.Unix(), end.Unix())
	var cached aggregate.Summary
	if s.cacheGet(ctx, key, &cached) {
		return &cached, nil
	}

	began := time.Now()
	readings, err := s.fetchAll(ctx, subject, subjectID, start, end)
	if err != nil {
		return nil, err
	}

	summary, err := aggregate.Summarize(readings, start, end)
	if err != nil {
		return nil, err
	}
	metrics.ObserveAggregation("summary", time.Since(began))

	s.cacheSet(ctx, key, summary)
	return summary, nil
}

// DailyStats buckets a subject's readings into calendar days over the
// trailing N days. Empty days are omitted unless the fill flag is on.
func (s *StatsService) DailyStats(ctx context.Context, subject domain.SubjectType, subjectID string, days int) ([]aggregate.DailyStat, error) {
	if err := s.checkSubject(ctx, subject, subjectID); err != nil {
		return nil, err
	}
	if days <= 0 {
		days = aggregate.DefaultWindowDays
	}
	if days > 365 {
		return nil, fmt.Errorf("%w: days must be at most 365", domain.ErrValidation)
	}

	end := time.Now().UTC()
	start := end.AddDate(0, 0, -days)
	fill := featureflags.FillEmptyDays()

	key := fmt.Sprintf("stats:%s:%s:daily:%d:%t", subject, subjectID, days, fill)
	var cached []aggregate.DailyStat
	if s.cacheGet(ctx, key, &cached) {
		return cached, nil
	}

	began := time.Now()
	readings, err := s.fetchAll(ctx, subject, subjectID, start, end)
	if err != nil {
		return nil, err
	}

	stats, err := aggregate.DailyBuckets(readings, start, end, fill)
	if err != nil {
		return nil, err
	}
	metrics.ObserveAggregation("daily", time.Since(began))

	s.cacheSet(ctx, key, stats)
	return stats, nil
}

// CompareUsage compares the trailing period of N days against the N days
// before it. The comparison block is nil when the prior period is empty.
func (s *StatsService) CompareUsage(ctx context.Context, subject domain.SubjectType, subjectID string, periodDays int) (*aggregate.Comparison, *aggregate.Summary, *aggregate.Summary, error) {
	if err := s.checkSubject(ctx, subject, subjectID); err != nil {
		return nil, nil, nil, err
	}
	if periodDays <= 0 {
		periodDays = aggregate.DefaultWindowDays
	}
	if periodDays > 365 {
		return nil, nil, nil, fmt.Errorf("%w: period must be at most 365 days", domain.ErrValidation)
	}

	now := time.Now().UTC()
	recentStart := now.AddDate(0, 0, -periodDays)
	priorStart := recentStart.AddDate(0, 0, -periodDays)

	began := time.Now()
	recentReadings, err := s.fetchAll(ctx, subject, subjectID, recentStart, now)
	if err != nil {
		return nil, nil, nil, err
	}
	priorReadings, err := s.fetchAll(ctx, subject, subjectID, priorStart, recentStart)
	if err != nil {
		return nil, nil, nil, err
	}

	recent, err := aggregate.Summarize(recentReadings, recentStart, now)
	if err != nil {
		return nil, nil, nil, err
	}
	prior, err := aggregate.Summarize(priorReadings, priorStart, recentStart)
	if err != nil {
		return nil, nil, nil, err
	}

	var cmp *aggregate.Comparison
	if prior.ReadingCount > 0 {
		cmp = aggregate.Compare(recent, prior)
	}
	metrics.ObserveAggregation("compare", time.Since(began))

	return cmp, recent, prior, nil
}

func (s *StatsService) checkSubject(ctx context.Context, subject domain.SubjectType, subjectID string) error {
	switch subject {
	case domain.SubjectUser:
		_, err := s.users.GetByID(ctx, subjectID)
		return err
	case domain.SubjectDevice:
		_, err := s.devices.GetByID(ctx, subjectID)
		return err
	}
	return fmt.Errorf("%w: unknown stats subject %q", domain.ErrValidation, subject)
}

// fetchAll pages through the reading log until the window is exhausted.
func (s *StatsService) fetchAll(ctx context.Context, subject domain.SubjectType, subjectID string, start, end time.Time) ([]*domain.Reading, error) {
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

func (s *StatsService) cacheGet(ctx context.Context, key string, out any) bool {
	if s.cache == nil {
		return false
	}
	raw, err := s.cache.Get(ctx, key)
	if err != nil || raw == "" {
		metrics.ObserveStatsCache("miss")
		return false
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		metrics.ObserveStatsCache("miss")
		return false
	}
	metrics.ObserveStatsCache("hit")
	return true
}

func (s *StatsService) cacheSet(ctx context.Context, key string, value any) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, string(raw), s.config.StatsCacheTTL); err != nil {
		s.logger.Warn("failed to cache stats",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}
