package test

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/SBP-techno/CEP-backend/internal/domain"
	"github.com/SBP-techno/CEP-backend/internal/handler"
	"github.com/SBP-techno/CEP-backend/internal/infrastructure/logger"
	"github.com/SBP-techno/CEP-backend/internal/recommend"
	"github.com/SBP-techno/CEP-backend/internal/service"
	"github.com/SBP-techno/CEP-backend/pkg/config"
)

// TestServerHelper runs the full API surface over in-memory repositories so
// endpoint behavior can be exercised without Postgres, Redis or an AI key.
type TestServerHelper struct {
	Server *httptest.Server
	Logger *slog.Logger
	Mux    *http.ServeMux
}

func NewTestServer(t *testing.T) *TestServerHelper {
	t.Helper()

	log := logger.New("debug", "test")
	cfg := &config.Config{
		Environment:      "test",
		DefaultPageLimit: 100,
		MaxPageLimit:     1000,
		StatsCacheTTL:    time.Minute,
	}

	users := &mockUserRepository{byID: map[string]*domain.User{}}
	devices := &mockDeviceRepository{byID: map[string]*domain.Device{}}
	readings := &mockReadingRepository{}
	statsCache := newMockStatsCache()

	// No API key configured: the recommender serves the static fallback set.
	recommender := recommend.NewClient(recommend.Config{}, log)

	userService := service.NewUserService(users, log, cfg)
	deviceService := service.NewDeviceService(devices, users, log, cfg)
	readingService := service.NewReadingService(readings, devices, users, statsCache, log, cfg)
	statsService := service.NewStatsService(readings, users, devices, statsCache, log, cfg)
	recommendationService := service.NewRecommendationService(recommender, users, devices, readings, log, cfg)

	usersHandler := handler.NewUsersHandler(userService, log)
	devicesHandler := handler.NewDevicesHandler(deviceService, log)
	readingsHandler := handler.NewReadingsHandler(readingService, log)
	statsHandler := handler.NewStatsHandler(statsService, log)
	aiHandler := handler.NewAIHandler(recommendationService, log)

	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/users", usersHandler.Create)
	mux.HandleFunc("GET /api/v1/users", usersHandler.List)
	mux.HandleFunc("GET /api/v1/users/{id}", usersHandler.Get)
	mux.HandleFunc("PUT /api/v1/users/{id}", usersHandler.Update)
	mux.HandleFunc("DELETE /api/v1/users/{id}", usersHandler.Delete)

	mux.HandleFunc("POST /api/v1/devices", devicesHandler.Create)
	mux.HandleFunc("GET /api/v1/devices/{id}", devicesHandler.Get)
	mux.HandleFunc("PUT /api/v1/devices/{id}", devicesHandler.Update)
	mux.HandleFunc("DELETE /api/v1/devices/{id}", devicesHandler.Delete)
	mux.HandleFunc("GET /api/v1/users/{id}/devices", devicesHandler.ListByUser)

	mux.HandleFunc("POST /api/v1/readings", readingsHandler.Create)
	mux.HandleFunc("GET /api/v1/users/{id}/readings", readingsHandler.ListByUser)
	mux.HandleFunc("GET /api/v1/devices/{id}/readings", readingsHandler.ListByDevice)

	mux.HandleFunc("GET /api/v1/users/{id}/energy-stats", statsHandler.UserEnergyStats)
	mux.HandleFunc("GET /api/v1/devices/{id}/energy-stats", statsHandler.DeviceEnergyStats)
	mux.HandleFunc("GET /api/v1/users/{id}/daily-stats", statsHandler.UserDailyStats)
	mux.HandleFunc("GET /api/v1/devices/{id}/daily-stats", statsHandler.DeviceDailyStats)
	mux.HandleFunc("GET /api/v1/users/{id}/compare-usage", statsHandler.UserCompareUsage)

	mux.HandleFunc("GET /api/v1/users/{id}/recommendations", aiHandler.Recommendations)
	mux.HandleFunc("GET /api/v1/users/{id}/analyze-usage", aiHandler.AnalyzeUsage)
	mux.HandleFunc("GET /api/v1/devices/{id}/optimization-tips", aiHandler.DeviceTips)
	mux.HandleFunc("GET /api/v1/ai-status", aiHandler.Status)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	mux.Handle("/metrics", promhttp.Handler())

	server := httptest.NewServer(mux)

	return &TestServerHelper{
		Server: server,
		Logger: log,
		Mux:    mux,
	}
}

func (h *TestServerHelper) Close() {
	h.Server.Close()
}

func (h *TestServerHelper) URL() string {
	return h.Server.URL
}

// AssertStatusCode helper function
func AssertStatusCode(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("Expected status %d, got %d", expected, resp.StatusCode)
	}
}

// AssertContentType helper function
func AssertContentType(t *testing.T, resp *http.Response, expected string) {
	t.Helper()
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, expected) {
		t.Errorf("Expected Content-Type %s, got %s", expected, ct)
	}
}

// In-memory repository implementations backing the test server.

type mockUserRepository struct {
	mu   sync.Mutex
	byID map[string]*domain.User
}

func (m *mockUserRepository) Create(_ context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[u.ID] = u
	return nil
}

func (m *mockUserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.byID[id]; ok && u.IsActive {
		return u, nil
	}
	return nil, fmt.Errorf("%w: user %s", domain.ErrNotFound, id)
}

func (m *mockUserRepository) GetByEmailOrUsername(_ context.Context, email, username string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.IsActive && (u.Email == email || u.Username == username) {
			return u, nil
		}
	}
	return nil, fmt.Errorf("%w: user", domain.ErrNotFound)
}

func (m *mockUserRepository) List(_ context.Context, skip, limit int) ([]*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
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

func (m *mockUserRepository) Update(_ context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.byID[u.ID]; !ok || !existing.IsActive {
		return fmt.Errorf("%w: user %s", domain.ErrNotFound, u.ID)
	}
	m.byID[u.ID] = u
	return nil
}

func (m *mockUserRepository) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.byID[id]; ok && u.IsActive {
		u.IsActive = false
		return nil
	}
	return fmt.Errorf("%w: user %s", domain.ErrNotFound, id)
}

func (m *mockUserRepository) AddTotals(_ context.Context, id string, consumedKWh, producedKWh float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.byID[id]; ok {
		u.TotalConsumedKWh += consumedKWh
		u.TotalProducedKWh += producedKWh
		return nil
	}
	return fmt.Errorf("%w: user %s", domain.ErrNotFound, id)
}

type mockDeviceRepository struct {
	mu   sync.Mutex
	byID map[string]*domain.Device
}

func (m *mockDeviceRepository) Create(_ context.Context, d *domain.Device) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[d.ID] = d
	return nil
}

func (m *mockDeviceRepository) GetByID(_ context.Context, id string) (*domain.Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.byID[id]; ok {
		return d, nil
	}
	return nil, fmt.Errorf("%w: device %s", domain.ErrNotFound, id)
}

func (m *mockDeviceRepository) ListByUser(_ context.Context, userID string, includeInactive bool) ([]*domain.Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Device
	for _, d := range m.byID {
		if d.UserID == userID && (includeInactive || d.IsActive) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *mockDeviceRepository) Update(_ context.Context, d *domain.Device) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[d.ID]; !ok {
		return fmt.Errorf("%w: device %s", domain.ErrNotFound, d.ID)
	}
	m.byID[d.ID] = d
	return nil
}

func (m *mockDeviceRepository) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.byID[id]; ok && d.IsActive {
		d.IsActive = false
		return nil
	}
	return fmt.Errorf("%w: device %s", domain.ErrNotFound, id)
}

func (m *mockDeviceRepository) RecordReading(_ context.Context, id string, consumedKWh, producedKWh float64, powerWatts *float64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
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

type mockReadingRepository struct {
	mu       sync.Mutex
	readings []*domain.Reading
}

func (m *mockReadingRepository) Create(_ context.Context, rd *domain.Reading) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readings = append(m.readings, rd)
	return nil
}

func (m *mockReadingRepository) matches(rd *domain.Reading, f domain.ReadingFilter) bool {
	switch f.Subject {
	case domain.SubjectUser:
		if rd.UserID != f.SubjectID {
			return false
		}
	case domain.SubjectDevice:
		if rd.DeviceID != f.SubjectID {
			return false
		}
	}
	if !f.Start.IsZero() && rd.Timestamp.Before(f.Start) {
		return false
	}
	if !f.End.IsZero() && rd.Timestamp.After(f.End) {
		return false
	}
	return true
}

func (m *mockReadingRepository) FetchRange(_ context.Context, f domain.ReadingFilter) ([]*domain.Reading, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Reading
	for _, rd := range m.readings {
		if m.matches(rd, f) {
			out = append(out, rd)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return page(out, f.Skip, f.Limit), nil
}

func (m *mockReadingRepository) ListRecent(_ context.Context, f domain.ReadingFilter) ([]*domain.Reading, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Reading
	for _, rd := range m.readings {
		if m.matches(rd, f) {
			out = append(out, rd)
		}
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

type mockStatsCache struct {
	mu      sync.Mutex
	entries map[string]string
}

func newMockStatsCache() *mockStatsCache {
	return &mockStatsCache{entries: map[string]string{}}
}

func (m *mockStatsCache) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.entries[key]; ok {
		return v, nil
	}
	return "", fmt.Errorf("cache miss: %s", key)
}

func (m *mockStatsCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := value.(string); ok {
		m.entries[key] = s
	}
	return nil
}

func (m *mockStatsCache) DeletePrefix(_ context.Context, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.entries {
		if strings.HasPrefix(k, prefix) {
			delete(m.entries, k)
		}
	}
	return nil
}
