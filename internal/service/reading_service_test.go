package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/SBP-techno/CEP-backend/internal/domain"
)

func seedUserAndDevice(t *testing.T, users *memUserRepo, devices *memDeviceRepo) (*domain.User, *domain.Device) {
	t.Helper()
	now := time.Now().UTC()
	user := &domain.User{ID: "u1", Email: "a@b.c", Username: "alice", IsActive: true, CreatedAt: now, UpdatedAt: now}
	users.byID[user.ID] = user
	device := &domain.Device{ID: "d1", UserID: "u1", Name: "Heat pump", DeviceType: domain.DeviceTypeHVAC, IsActive: true, CreatedAt: now, UpdatedAt: now}
	devices.byID[device.ID] = device
	return user, device
}

func TestCreateReadingUpdatesCounters(t *testing.T) {
	users := newMemUserRepo()
	devices := newMemDeviceRepo()
	readings := newMemReadingRepo()
	user, device := seedUserAndDevice(t, users, devices)

	s := NewReadingService(readings, devices, users, nil, nil, testConfig())
	ctx := context.Background()

	power := 1500.0
	reading, err := s.CreateReading(ctx, CreateReadingInput{
		DeviceID:       device.ID,
		ConsumptionKWh: 2.5,
		ProductionKWh:  0.5,
		PowerWatts:     &power,
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if reading.UserID != user.ID {
		t.Fatalf("expected reading to carry the device owner, got %s", reading.UserID)
	}
	if reading.Timestamp.IsZero() {
		t.Fatalf("expected defaulted timestamp")
	}

	if device.TotalConsumedKWh != 2.5 || device.TotalProducedKWh != 0.5 {
		t.Fatalf("device counters not updated: %v / %v", device.TotalConsumedKWh, device.TotalProducedKWh)
	}
	if device.CurrentPowerWatts == nil || *device.CurrentPowerWatts != 1500.0 {
		t.Fatalf("device power not updated: %v", device.CurrentPowerWatts)
	}
	if device.LastReadingAt == nil || device.LastSeen == nil {
		t.Fatalf("device last seen not updated")
	}
	if user.TotalConsumedKWh != 2.5 || user.TotalProducedKWh != 0.5 {
		t.Fatalf("user totals not updated: %v / %v", user.TotalConsumedKWh, user.TotalProducedKWh)
	}
}

func TestCreateReadingValidation(t *testing.T) {
	users := newMemUserRepo()
	devices := newMemDeviceRepo()
	readings := newMemReadingRepo()
	_, device := seedUserAndDevice(t, users, devices)

	s := NewReadingService(readings, devices, users, nil, nil, testConfig())
	ctx := context.Background()

	negCost := -1.0
	badHumidity := 120.0
	cases := []CreateReadingInput{
		{DeviceID: device.ID, ConsumptionKWh: -1},
		{DeviceID: device.ID, ProductionKWh: -1},
		{DeviceID: device.ID, CostUSD: &negCost},
		{DeviceID: device.ID, HumidityPercent: &badHumidity},
	}
	for _, in := range cases {
		if _, err := s.CreateReading(ctx, in); !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("expected validation error for %+v, got %v", in, err)
		}
	}

	if _, err := s.CreateReading(ctx, CreateReadingInput{DeviceID: "missing", ConsumptionKWh: 1}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for unknown device, got %v", err)
	}

	device.IsActive = false
	if _, err := s.CreateReading(ctx, CreateReadingInput{DeviceID: device.ID, ConsumptionKWh: 1}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for inactive device, got %v", err)
	}
}

func TestCreateReadingInvalidatesStatsCache(t *testing.T) {
	users := newMemUserRepo()
	devices := newMemDeviceRepo()
	readings := newMemReadingRepo()
	cache := newMemStatsCache()
	user, device := seedUserAndDevice(t, users, devices)

	ctx := context.Background()
	cache.Set(ctx, "stats:user:"+user.ID+":summary:0:1", "stale", time.Minute)
	cache.Set(ctx, "stats:device:"+device.ID+":daily:7:false", "stale", time.Minute)
	cache.Set(ctx, "stats:user:other:summary:0:1", "keep", time.Minute)

	s := NewReadingService(readings, devices, users, cache, nil, testConfig())
	if _, err := s.CreateReading(ctx, CreateReadingInput{DeviceID: device.ID, ConsumptionKWh: 1}); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if _, err := cache.Get(ctx, "stats:user:"+user.ID+":summary:0:1"); err == nil {
		t.Fatalf("expected user stats to be invalidated")
	}
	if _, err := cache.Get(ctx, "stats:device:"+device.ID+":daily:7:false"); err == nil {
		t.Fatalf("expected device stats to be invalidated")
	}
	if _, err := cache.Get(ctx, "stats:user:other:summary:0:1"); err != nil {
		t.Fatalf("expected unrelated entries to survive")
	}
}

func TestListReadingsNewestFirstAndCapped(t *testing.T) {
	users := newMemUserRepo()
	devices := newMemDeviceRepo()
	readings := newMemReadingRepo()
	_, device := seedUserAndDevice(t, users, devices)

	s := NewReadingService(readings, devices, users, nil, nil, testConfig())
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 150; i++ {
		ts := base.Add(time.Duration(i) * time.Second)
		if _, err := s.CreateReading(ctx, CreateReadingInput{DeviceID: device.ID, ConsumptionKWh: 0.1, Timestamp: &ts}); err != nil {
			t.Fatalf("create failed: %v", err)
		}
	}

	// Default limit caps at 100.
	got, err := s.ListReadings(ctx, domain.SubjectDevice, device.ID, time.Time{}, time.Time{}, 0, 0)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(got) != 100 {
		t.Fatalf("expected default cap of 100, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].Timestamp.After(got[i-1].Timestamp) {
			t.Fatalf("expected newest-first ordering")
		}
	}

	// An inclusive start bound narrows the listing.
	got, err = s.ListReadings(ctx, domain.SubjectDevice, device.ID, base.Add(100*time.Second), time.Time{}, 0, 0)
	if err != nil {
		t.Fatalf("bounded list failed: %v", err)
	}
	if len(got) != 50 {
		t.Fatalf("expected 50 readings from the start bound, got %d", len(got))
	}

	if _, err := s.ListReadings(ctx, domain.SubjectUser, "missing", time.Time{}, time.Time{}, 0, 0); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for unknown user, got %v", err)
	}
}
