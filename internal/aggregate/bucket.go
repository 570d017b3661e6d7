package aggregate

import (
	"sort"
	"time"

	"github.com/SBP-techno/CEP-backend/internal/domain"
)

// DailyStat is one calendar-day bucket of the breakdown. Pointer fields are
// nil when the bucket holds no reading carrying that value.
type DailyStat struct {
	Date                string // YYYY-MM-DD in UTC
	TotalConsumptionKWh float64
	TotalProductionKWh  float64
	TotalCostUSD        float64
	AveragePowerWatts   *float64
	PeakPowerWatts      *float64
	AverageTemperature  *float64
	ReadingCount        int
}

// DailyBuckets groups readings inside [start, end] by UTC calendar day and
// computes per-day statistics, ordered ascending by date. Clients render the
// result as a trend line, so the ordering is part of the contract.
//
// When fillEmpty is false, days without readings are omitted. When true,
// every day from start through end appears, with zero sums and nil
// average/peak/temperature for empty days.
func DailyBuckets(readings []*domain.Reading, start, end time.Time, fillEmpty bool) ([]DailyStat, error) {
	if start.After(end) {
		return nil, ErrInvalidInterval
	}

	type acc struct {
		consumption float64
		production  float64
		cost        float64
		powerSum    float64
		powerCount  int
		peak        float64
		tempSum     float64
		tempCount   int
		count       int
	}

	days := map[string]*acc{}
	for _, r := range readings {
		if !inRange(r.Timestamp, start, end) {
			continue
		}
		key := r.Timestamp.UTC().Format("2006-01-02")
		a, ok := days[key]
		if !ok {
			a = &acc{}
			days[key] = a
		}
		a.consumption += r.ConsumptionKWh
		a.production += r.ProductionKWh
		if r.CostUSD != nil {
			a.cost += *r.CostUSD
		}
		if r.PowerWatts != nil {
			a.powerSum += *r.PowerWatts
			a.powerCount++
			if *r.PowerWatts > a.peak || a.powerCount == 1 {
				a.peak = *r.PowerWatts
			}
		}
		if r.TemperatureCelsius != nil {
			a.tempSum += *r.TemperatureCelsius
			a.tempCount++
		}
		a.count++
	}

	var keys []string
	if fillEmpty {
		for d := startOfDay(start); !d.After(end); d = d.AddDate(0, 0, 1) {
			keys = append(keys, d.Format("2006-01-02"))
		}
	} else {
		for k := range days {
			keys = append(keys, k)
		}
		sort.Strings(keys)
	}

	out := make([]DailyStat, 0, len(keys))
	for _, k := range keys {
		stat := DailyStat{Date: k}
		if a, ok := days[k]; ok {
			stat.TotalConsumptionKWh = a.consumption
			stat.TotalProductionKWh = a.production
			stat.TotalCostUSD = a.cost
			stat.ReadingCount = a.count
			if a.powerCount > 0 {
				avg := a.powerSum / float64(a.powerCount)
				stat.AveragePowerWatts = &avg
				peak := a.peak
				stat.PeakPowerWatts = &peak
			}
			if a.tempCount > 0 {
				avgTemp := a.tempSum / float64(a.tempCount)
				stat.AverageTemperature = &avgTemp
			}
		}
		out = append(out, stat)
	}

	return out, nil
}

func startOfDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
