package aggregate

import (
	"math"
	"testing"
	"time"

	"github.com/SBP-techno/CEP-backend/internal/domain"
)

func f64(v float64) *float64 { return &v }

func reading(device string, ts time.Time, consumption float64, power *float64) *domain.Reading {
	return &domain.Reading{
		ID:             "r-" + ts.Format(time.RFC3339),
		DeviceID:       device,
		UserID:         "u-1",
		ConsumptionKWh: consumption,
		PowerWatts:     power,
		Timestamp:      ts,
	}
}

func TestSummarizeTotalsExact(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 7)

	vals := []float64{0.1, 0.2, 0.3, 1.25, 2.5}
	var readings []*domain.Reading
	var want float64
	for i, v := range vals {
		readings = append(readings, reading("d-1", start.Add(time.Duration(i)*time.Hour), v, nil))
		want += v
	}

	s, err := Summarize(readings, start, end)
	if err != nil {
		t.Fatalf("summarize failed: %v", err)
	}
	if math.Abs(s.TotalConsumptionKWh-want) > 1e-9 {
		t.Fatalf("expected total %v, got %v", want, s.TotalConsumptionKWh)
	}
	if s.ReadingCount != len(vals) {
		t.Fatalf("expected %d readings, got %d", len(vals), s.ReadingCount)
	}
}

func TestSummarizeEmptySet(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s, err := Summarize(nil, start, start.AddDate(0, 0, 30))
	if err != nil {
		t.Fatalf("summarize failed: %v", err)
	}
	if s.TotalConsumptionKWh != 0 || s.TotalProductionKWh != 0 || s.TotalCostUSD != 0 {
		t.Fatalf("expected zero sums, got %+v", s)
	}
	if s.AveragePowerWatts != nil {
		t.Fatalf("expected nil average power on empty set, got %v", *s.AveragePowerWatts)
	}
	if s.PeakPowerWatts != nil {
		t.Fatalf("expected nil peak power on empty set, got %v", *s.PeakPowerWatts)
	}
	if s.DeviceCount != 0 || s.ReadingCount != 0 {
		t.Fatalf("expected zero counts, got devices=%d readings=%d", s.DeviceCount, s.ReadingCount)
	}
}

func TestSummarizeSingleReading(t *testing.T) {
	start := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	readings := []*domain.Reading{reading("d-1", start.Add(10*time.Hour), 1.25, f64(1800))}

	s, err := Summarize(readings, start, start.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("summarize failed: %v", err)
	}
	if s.TotalConsumptionKWh != 1.25 {
		t.Fatalf("expected consumption 1.25, got %v", s.TotalConsumptionKWh)
	}
	if s.AveragePowerWatts == nil || *s.AveragePowerWatts != 1800 {
		t.Fatalf("expected average power 1800, got %v", s.AveragePowerWatts)
	}
	if s.PeakPowerWatts == nil || *s.PeakPowerWatts != 1800 {
		t.Fatalf("expected peak power 1800, got %v", s.PeakPowerWatts)
	}
	if s.DeviceCount != 1 {
		t.Fatalf("expected device count 1, got %d", s.DeviceCount)
	}
}

func TestSummarizeDistinctDevicesAndPeak(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	readings := []*domain.Reading{
		reading("d-1", start.Add(1*time.Hour), 1.0, f64(500)),
		reading("d-2", start.Add(2*time.Hour), 2.0, f64(2200)),
		reading("d-1", start.Add(3*time.Hour), 0.5, nil),
	}

	s, err := Summarize(readings, start, start.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("summarize failed: %v", err)
	}
	if s.DeviceCount != 2 {
		t.Fatalf("expected 2 distinct devices, got %d", s.DeviceCount)
	}
	if s.PeakPowerWatts == nil || *s.PeakPowerWatts != 2200 {
		t.Fatalf("expected peak 2200, got %v", s.PeakPowerWatts)
	}
	// Average ignores the nil-power reading
	if s.AveragePowerWatts == nil || math.Abs(*s.AveragePowerWatts-1350) > 1e-9 {
		t.Fatalf("expected average 1350, got %v", s.AveragePowerWatts)
	}
}

func TestSummarizeExcludesOutOfRange(t *testing.T) {
	start := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1)
	readings := []*domain.Reading{
		reading("d-1", start.Add(-time.Second), 10, nil), // before
		reading("d-1", start, 1, nil),                    // inclusive lower bound
		reading("d-1", end, 2, nil),                      // inclusive upper bound
		reading("d-1", end.Add(time.Second), 10, nil),    // after
	}

	s, err := Summarize(readings, start, end)
	if err != nil {
		t.Fatalf("summarize failed: %v", err)
	}
	if s.TotalConsumptionKWh != 3 {
		t.Fatalf("expected inclusive-bound total 3, got %v", s.TotalConsumptionKWh)
	}
}

func TestSummarizeRejectsMalformedInterval(t *testing.T) {
	end := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if _, err := Summarize(nil, end.AddDate(0, 0, 1), end); err == nil {
		t.Fatalf("expected error for start after end")
	}
}

func TestSummarizeIdempotent(t *testing.T) {
	start := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	readings := []*domain.Reading{
		reading("d-1", start.Add(time.Hour), 1.5, f64(900)),
		reading("d-2", start.Add(2*time.Hour), 0.75, f64(1100)),
	}
	end := start.AddDate(0, 0, 7)

	first, err := Summarize(readings, start, end)
	if err != nil {
		t.Fatalf("first summarize failed: %v", err)
	}
	second, err := Summarize(readings, start, end)
	if err != nil {
		t.Fatalf("second summarize failed: %v", err)
	}
	if first.TotalConsumptionKWh != second.TotalConsumptionKWh ||
		first.ReadingCount != second.ReadingCount ||
		*first.AveragePowerWatts != *second.AveragePowerWatts ||
		*first.PeakPowerWatts != *second.PeakPowerWatts {
		t.Fatalf("expected identical output on identical input: %+v vs %+v", first, second)
	}
}
