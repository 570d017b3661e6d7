// Package recommend adapts the external AI completion API behind the
// domain.Recommender interface. The adapter owns timeout, retry, circuit
// breaking and the static fallback; callers never see an upstream failure.
package recommend

import (
	"fmt"
	"strings"
	"time"

	"github.com/SBP-techno/CEP-backend/internal/aggregate"
	"github.com/SBP-techno/CEP-backend/internal/domain"
)

// Sample caps keep the upstream request bounded regardless of how much data
// a subject has accumulated.
const (
	maxUserSampleReadings   = 5
	maxDeviceSampleReadings = 10
	maxContextDevices       = 25
)

// BuildRecommendationContext packages a user's profile, devices, period stats
// and a capped recent-reading sample for the AI call. Pure and deterministic.
func BuildRecommendationContext(user *domain.User, summary *aggregate.Summary, devices []*domain.Device, recent []*domain.Reading) domain.RecommendationContext {
	rc := domain.RecommendationContext{
		EnergyGoalKWh:        user.EnergyGoalKWh,
		PreferredTemperature: user.PreferredTemperature,
		Stats: domain.ContextStats{
			TotalConsumptionKWh: summary.TotalConsumptionKWh,
			TotalProductionKWh:  summary.TotalProductionKWh,
			TotalCostUSD:        summary.TotalCostUSD,
			AveragePowerWatts:   summary.AveragePowerWatts,
			PeakPowerWatts:      summary.PeakPowerWatts,
			PeriodStart:         summary.PeriodStart,
			PeriodEnd:           summary.PeriodEnd,
			DeviceCount:         summary.DeviceCount,
		},
	}

	for i, d := range devices {
		if i == maxContextDevices {
			break
		}
		rc.Devices = append(rc.Devices, domain.ContextDevice{
			Name:            d.Name,
			DeviceType:      d.DeviceType,
			Location:        d.Location,
			RatedPowerWatts: d.RatedPowerWatts,
			IsSmartDevice:   d.IsSmartDevice,
		})
	}

	rc.RecentReadings = sampleReadings(recent, maxUserSampleReadings)
	return rc
}

// BuildAnalysisContext packages daily totals for pattern analysis
func BuildAnalysisContext(period string, daily []aggregate.DailyStat, readingCount int) domain.AnalysisContext {
	ac := domain.AnalysisContext{Period: period, ReadingCount: readingCount}
	for _, d := range daily {
		ac.DailyTotals = append(ac.DailyTotals, domain.ContextDailyTotal{
			Date:              d.Date,
			ConsumptionKWh:    d.TotalConsumptionKWh,
			AveragePowerWatts: d.AveragePowerWatts,
		})
	}
	return ac
}

// BuildDeviceTipsContext packages one device and its capped recent readings
func BuildDeviceTipsContext(device *domain.Device, recent []*domain.Reading) domain.DeviceTipsContext {
	return domain.DeviceTipsContext{
		Device: domain.ContextDevice{
			Name:            device.Name,
			DeviceType:      device.DeviceType,
			Location:        device.Location,
			RatedPowerWatts: device.RatedPowerWatts,
			IsSmartDevice:   device.IsSmartDevice,
		},
		Model:          device.Model,
		Manufacturer:   device.Manufacturer,
		LastSeen:       device.LastSeen,
		RecentReadings: sampleReadings(recent, maxDeviceSampleReadings),
	}
}

// sampleReadings keeps the most recent n points, ordered oldest first for the
// prompt. Input arrives newest first from the repository.
func sampleReadings(recent []*domain.Reading, n int) []domain.ContextReading {
	if len(recent) > n {
		recent = recent[:n]
	}
	out := make([]domain.ContextReading, 0, len(recent))
	for i := len(recent) - 1; i >= 0; i-- {
		r := recent[i]
		out = append(out, domain.ContextReading{
			Timestamp:          r.Timestamp,
			ConsumptionKWh:     r.ConsumptionKWh,
			PowerWatts:         r.PowerWatts,
			TemperatureCelsius: r.TemperatureCelsius,
		})
	}
	return out
}

// renderRecommendationPrompt formats the context as the user message for the
// completion call.
func renderRecommendationPrompt(rc domain.RecommendationContext) string {
	var b strings.Builder

	b.WriteString("USER PROFILE:\n")
	fmt.Fprintf(&b, "- Monthly energy goal: %s kWh\n", orUnset(rc.EnergyGoalKWh))
	fmt.Fprintf(&b, "- Preferred temperature: %s C\n\n", orUnset(rc.PreferredTemperature))

	st := rc.Stats
	b.WriteString("PERIOD STATISTICS:\n")
	fmt.Fprintf(&b, "- Total consumption: %.2f kWh\n", st.TotalConsumptionKWh)
	fmt.Fprintf(&b, "- Total production: %.2f kWh\n", st.TotalProductionKWh)
	fmt.Fprintf(&b, "- Total cost: $%.2f\n", st.TotalCostUSD)
	fmt.Fprintf(&b, "- Average power: %s W\n", orUnset(st.AveragePowerWatts))
	fmt.Fprintf(&b, "- Peak power: %s W\n", orUnset(st.PeakPowerWatts))
	fmt.Fprintf(&b, "- Period: %s to %s\n\n", st.PeriodStart.Format(time.RFC3339), st.PeriodEnd.Format(time.RFC3339))

	fmt.Fprintf(&b, "DEVICES (%d):\n", len(rc.Devices))
	for _, d := range rc.Devices {
		fmt.Fprintf(&b, "- %s (%s), location: %s, rated: %s W, smart: %t\n",
			d.Name, d.DeviceType, orDash(d.Location), orUnset(d.RatedPowerWatts), d.IsSmartDevice)
	}

	if len(rc.RecentReadings) > 0 {
		fmt.Fprintf(&b, "\nRECENT READINGS (last %d):\n", len(rc.RecentReadings))
		for _, r := range rc.RecentReadings {
			fmt.Fprintf(&b, "- %s: %.3f kWh, %s W\n", r.Timestamp.Format(time.RFC3339), r.ConsumptionKWh, orUnset(r.PowerWatts))
		}
	}

	return b.String()
}

func renderAnalysisPrompt(ac domain.AnalysisContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Energy consumption for %s analysis (%d data points):\n\n", ac.Period, ac.ReadingCount)
	b.WriteString("Daily consumption:\n")
	for _, d := range ac.DailyTotals {
		fmt.Fprintf(&b, "- %s: %.2f kWh, avg power %s W\n", d.Date, d.ConsumptionKWh, orUnset(d.AveragePowerWatts))
	}
	return b.String()
}

func renderDeviceTipsPrompt(dc domain.DeviceTipsContext) string {
	var b strings.Builder
	b.WriteString("DEVICE:\n")
	fmt.Fprintf(&b, "- Name: %s\n", dc.Device.Name)
	fmt.Fprintf(&b, "- Type: %s\n", dc.Device.DeviceType)
	fmt.Fprintf(&b, "- Model: %s\n", orDash(dc.Model))
	fmt.Fprintf(&b, "- Manufacturer: %s\n", orDash(dc.Manufacturer))
	fmt.Fprintf(&b, "- Location: %s\n", orDash(dc.Device.Location))
	fmt.Fprintf(&b, "- Rated power: %s W\n", orUnset(dc.Device.RatedPowerWatts))
	fmt.Fprintf(&b, "- Smart device: %t\n", dc.Device.IsSmartDevice)
	if dc.LastSeen != nil {
		fmt.Fprintf(&b, "- Last seen: %s\n", dc.LastSeen.Format(time.RFC3339))
	}

	if len(dc.RecentReadings) > 0 {
		b.WriteString("\nRECENT READINGS:\n")
		for _, r := range dc.RecentReadings {
			fmt.Fprintf(&b, "- %s: %.3f kWh, %s W", r.Timestamp.Format(time.RFC3339), r.ConsumptionKWh, orUnset(r.PowerWatts))
			if r.TemperatureCelsius != nil {
				fmt.Fprintf(&b, ", %.1f C", *r.TemperatureCelsius)
			}
			b.WriteString("\n")
		}
	} else {
		b.WriteString("\nNo recent readings for this device.\n")
	}

	return b.String()
}

func orUnset(v *float64) string {
	if v == nil {
		return "unset"
	}
	return fmt.Sprintf("%g", *v)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
