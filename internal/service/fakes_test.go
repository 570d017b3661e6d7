package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/SBP-techno/CEP-backend/internal/domain"
	"github.com/SBP-techno/CEP-backend/pkg/config"
)

func testConfig() *config.Config {
	return &config.Config{
		DefaultPageLimit: 100,
		MaxPageLimit:     1000,
		StatsCacheTTL:    time.Minute,
	}
}

type memUserRepo struct {
	byID map[string]*domain.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{byID: map[string]*domain.User{}}
}

func (m *memUserRepo) Create(_ context.Context, u *domain.User) error {
	m.byID[u.ID] = u
	return nil
}

func (m *memUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	if u, ok := m.byID[id]; ok && u.IsActive {
		return u, nil
	}
	return nil, fmt.Errorf("%w: user %s", domain.ErrNotFound, id)
}

func (m *memUserRepo) GetByEmailOrUsername(_ context.Context, email, username string) (*domain.User, error) {
	for _, u := range m.byID {
		if u.IsActive && (u.Email == email || u.Username == username) {
			return u, nil
		}
	}
	return nil, fmt.Errorf("%w: user", domain.ErrNotFound)
}

func (m *memUserRepo) List(_ context.Context, skip, limit int) ([]*domain.User, error) {
	var out []*domain.User
	for _, u := range m.byID {
		if u.IsActive {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if skip >= len(out) {
		return nil, nil
	}
	out = out[skip:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memUserRepo) Update(_ context.Context, u *domain.User) error {
	if existing, ok := m.byID[u.ID]; !ok || !existing.IsActive {
		return fmt.Errorf("%w: user %s", domain.ErrNotFound, u.ID)
	}
	m.byID[u.ID] = u
	return nil
}

func (m *memUserRepo) Delete(_ context.Context, id string) error {
	u, ok := m.byID[id]
	if !ok || !u.IsActive {
		return fmt.Errorf("%w: user %s", domain.ErrNotFound, id)
	}
	u.IsActive = false
	return nil
}

func (m *memUserRepo) AddTotals(_ context.Context, id string, consumedKWh, producedKWh float64) error {
	u, ok := m.byID[id]
	if !ok || !u.IsActive {
		return fmt.Errorf("%w: user %s", domain.ErrNotFound, id)
	}
	u.TotalConsumedKWh += consumedKWh
	u.TotalProducedKWh += producedKWh
	return nil
}

type memDeviceRepo struct {
	byID map[string]*domain.Device
}

func newMemDeviceRepo() *memDeviceRepo {
	return &memDeviceRepo{byID: map[string]*domain.Device{}}
}

func (m *memDeviceRepo) Create(_ context.Context, d *domain.Device) error {
	m.byID[d.ID] = d
	return nil
}

func (m *memDeviceRepo) GetByID(_ context.Context, id string) (*domain.Device, error) {
	if d, ok := m.byID[id]; ok {
		return d, nil
	}
	return nil, fmt.Errorf("%w: device %s", domain.ErrNotFound, id)
}

func (m *memDeviceRepo) ListByUser(_ context.Context, userID string, includeInactive bool) ([]*domain.Device, error) {
	var out []*domain.Device
	for _, d := range m.byID {
		if d.UserID != userID {
			continue
		}
		if !d.IsActive && !includeInactive {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *memDeviceRepo) Update(_ context.Context, d *domain.Device) error {
	if existing, ok := m.byID[d.ID]; !ok || !existing.IsActive {
		return fmt.Errorf("%w: device %s", domain.ErrNotFound, d.ID)
	}
	m.byID[d.ID] = d
	return nil
}

func (m *memDeviceRepo) Delete(_ context.Context, id string) error {
	d, ok := m.byID[id]
	if !ok || !d.IsActive {
		return fmt.Errorf("%w: device %s", domain.ErrNotFound, id)
	}
	d.IsActive = false
	return nil
}

func (m *memDeviceRepo) RecordReading(_ context.Context, id string, consumedKWh, producedKWh float64, powerWatts *float64, at time.Time) error {
	d, ok := m.byID[id]
	if !ok || !d.IsActive {
		return fmt.Errorf("%w: device %s", domain.ErrNotFound, id)
	}
	d.TotalConsumedKWh += consumedKWh
	d.TotalProducedKWh += producedKWh
	if powerWatts != nil {
		d.CurrentPowerWatts = powerWatts
	}
	t := at
	d.LastReadingAt = &t
	d.LastSeen = &t
	return nil
}

type memReadingRepo struct {
	readings []*domain.Reading
}

func newMemReadingRepo() *memReadingRepo {
	return &memReadingRepo{}
}

func (m *memReadingRepo) Create(_ context.Context, r *domain.Reading) error {
	m.readings = append(m.readings, r)
	return nil
}

func (m *memReadingRepo) matches(r *domain.Reading, f domain.ReadingFilter) bool {
	switch f.Subject {
	case domain.SubjectUser:
		return r.UserID == f.SubjectID
	case domain.SubjectDevice:
		return r.DeviceID == f.SubjectID
	}
	return false
}

func (m *memReadingRepo) FetchRange(_ context.Context, f domain.ReadingFilter) ([]*domain.Reading, error) {
	var out []*domain.Reading
	for _, r := range m.readings {
		if !m.matches(r, f) {
			continue
		}
		if r.Timestamp.Before(f.Start) || r.Timestamp.After(f.End) {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return page(out, f.Skip, f.Limit), nil
}

func (m *memReadingRepo) ListRecent(_ context.Context, f domain.ReadingFilter) ([]*domain.Reading, error) {
	var out []*domain.Reading
	for _, r := range m.readings {
		if !m.matches(r, f) {
			continue
		}
		if !f.Start.IsZero() && r.Timestamp.Before(f.Start) {
			continue
		}
		if !f.End.IsZero() && r.Timestamp.After(f.End) {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return page(out, f.Skip, f.Limit), nil
}

func page(in []*domain.Reading, skip, limit int) []*domain.Reading {
	if skip >= len(in) {
		return nil
	}
	in = in[skip:]
	if limit > 0 && len(in) > limit {
		in = in[:limit]
	}
	return in
}

type memStatsCache struct {
	mu    sync.Mutex
	items map[string]string
}

func newMemStatsCache() *memStatsCache {
	return &memStatsCache{items: map[string]string{}}
}

func (m *memStatsCache) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.items[key]; ok {
		return v, nil
	}
	return "", fmt.Errorf("missing key %s", key)
}

func (m *memStatsCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = value.(string)
	return nil
}

func (m *memStatsCache) DeletePrefix(_ context.Context, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.items {
		if strings.HasPrefix(k, prefix) {
			delete(m.items, k)
		}
	}
	return nil
}

type stubRecommender struct {
	calls int
}

func (s *stubRecommender) Recommendations(_ context.Context, rc domain.RecommendationContext) (*domain.RecommendationResult, error) {
	s.calls++
	return &domain.RecommendationResult{
		Recommendations: []string{fmt.Sprintf("advice for %d devices", len(rc.Devices))},
		Source:          domain.SourceAI,
		GeneratedAt:     time.Now().UTC(),
	}, nil
}

func (s *stubRecommender) AnalyzeUsage(_ context.Context, ac domain.AnalysisContext) (*domain.AnalysisResult, error) {
	s.calls++
	return &domain.AnalysisResult{
		Patterns:    []string{fmt.Sprintf("%d days analyzed", len(ac.DailyTotals))},
		Trend:       "stable",
		Source:      domain.SourceAI,
		GeneratedAt: time.Now().UTC(),
	}, nil
}

func (s *stubRecommender) DeviceTips(_ context.Context, dc domain.DeviceTipsContext) (*domain.DeviceTipsResult, error) {
	s.calls++
	return &domain.DeviceTipsResult{
		Assessment:  "assessed " + dc.Device.Name,
		Tips:        []string{"tip"},
		Source:      domain.SourceAI,
		GeneratedAt: time.Now().UTC(),
	}, nil
}

func (s *stubRecommender) Status() domain.RecommenderStatus {
	return domain.RecommenderStatus{Configured: true, Model: "stub", State: "ready"}
}
