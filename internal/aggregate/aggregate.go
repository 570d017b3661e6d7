// Package aggregate turns a bounded set of readings into period statistics,
// daily breakdowns and period-over-period comparisons. Everything here is a
// pure computation over an already-fetched in-memory set: no I/O, no clocks
// beyond the caller-supplied interval, identical output for identical input.
package aggregate

import (
	"fmt"
	"time"

	"github.com/SBP-techno/CEP-backend/internal/domain"
)

// DefaultWindowDays is the trailing window applied when a caller supplies no
// explicit interval.
const DefaultWindowDays = 30

// ErrInvalidInterval is returned when an interval's start is after its end.
var ErrInvalidInterval = fmt.Errorf("%w: interval start after end", domain.ErrValidation)

// Summary holds the period statistics for one subject over one interval.
// AveragePowerWatts and PeakPowerWatts are nil when no reading in range
// carried a power value; a zero there would falsely claim a zero-power
// reading existed.
type Summary struct {
	TotalConsumptionKWh float64
	TotalProductionKWh  float64
	TotalCostUSD        float64
	AveragePowerWatts   *float64
	PeakPowerWatts      *float64
	DeviceCount         int
	ReadingCount        int
	PeriodStart         time.Time
	PeriodEnd           time.Time
}

// DefaultWindow returns the trailing 30-day interval ending at now.
func DefaultWindow(now time.Time) (start, end time.Time) {
	return now.AddDate(0, 0, -DefaultWindowDays), now
}

// Summarize computes period statistics over readings falling inside the
// inclusive interval [start, end]. Absent cost values count as zero. Readings
// outside the interval are ignored.
func Summarize(readings []*domain.Reading, start, end time.Time) (*Summary, error) {
	if start.After(end) {
		return nil, ErrInvalidInterval
	}

	s := &Summary{PeriodStart: start, PeriodEnd: end}

	var powerSum float64
	var powerCount int
	var peak float64
	devices := map[string]struct{}{}

	for _, r := range readings {
		if !inRange(r.Timestamp, start, end) {
			continue
		}
		s.TotalConsumptionKWh += r.ConsumptionKWh
		s.TotalProductionKWh += r.ProductionKWh
		if r.CostUSD != nil {
			s.TotalCostUSD += *r.CostUSD
		}
		if r.PowerWatts != nil {
			powerSum += *r.PowerWatts
			powerCount++
			if *r.PowerWatts > peak || powerCount == 1 {
				peak = *r.PowerWatts
			}
		}
		if r.DeviceID != "" {
			devices[r.DeviceID] = struct{}{}
		}
		s.ReadingCount++
	}

	if powerCount > 0 {
		avg := powerSum / float64(powerCount)
		s.AveragePowerWatts = &avg
		p := peak
		s.PeakPowerWatts = &p
	}
	s.DeviceCount = len(devices)

	return s, nil
}

func inRange(t, start, end time.Time) bool {
	return !t.Before(start) && !t.After(end)
}
