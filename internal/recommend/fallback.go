package recommend

import (
	"time"

	"github.com/SBP-techno/CEP-backend/internal/domain"
)

// Hand-authored advice served whenever the AI function is unconfigured,
// unreachable or returns unusable output. The call still succeeds; callers
// can tell the two apart only through the source field.

const fallbackEfficiencyScore = 70.0

var generalFallbackTips = []string{
	"Shift heavy appliance use (laundry, dishwasher) to off-peak hours.",
	"Lower your thermostat by 1-2 degrees in winter and raise it in summer.",
	"Unplug chargers and electronics that draw standby power when idle.",
	"Replace the most-used incandescent bulbs with LED equivalents.",
	"Review the highest-consuming devices in your daily breakdown and set usage schedules for them.",
}

var categoryFallbackTips = map[domain.DeviceType][]string{
	domain.DeviceTypeHVAC: {
		"Replace or clean HVAC filters every 1-3 months.",
		"Use a programmable schedule to avoid conditioning an empty home.",
		"Seal duct leaks and close vents in unused rooms.",
	},
	domain.DeviceTypeLighting: {
		"Switch remaining bulbs to LEDs; they use about 75% less energy.",
		"Use motion sensors or timers in hallways and outdoor areas.",
	},
	domain.DeviceTypeAppliance: {
		"Run dishwashers and washing machines only with full loads.",
		"Use cold-water cycles for laundry where possible.",
	},
	domain.DeviceTypeWaterHeater: {
		"Set the water heater to 49 C (120 F); higher settings waste energy.",
		"Insulate the tank and the first meter of hot-water pipe.",
	},
	domain.DeviceTypeSolarPanel: {
		"Keep panels clean and unshaded; check inverter output monthly.",
		"Shift flexible loads to midday to consume your own production.",
	},
	domain.DeviceTypeSmartMeter: {
		"Review the meter's interval data to find always-on baseline load.",
	},
	domain.DeviceTypeOther: {
		"Measure this device with a plug-in meter to find its real draw.",
	},
}

func fallbackRecommendations(rc domain.RecommendationContext) *domain.RecommendationResult {
	score := fallbackEfficiencyScore
	result := &domain.RecommendationResult{
		Recommendations: append([]string(nil), generalFallbackTips...),
		EfficiencyScore: &score,
		Source:          domain.SourceFallback,
		GeneratedAt:     time.Now().UTC(),
	}

	for _, d := range rc.Devices {
		if tips, ok := categoryFallbackTips[d.DeviceType]; ok {
			if result.DeviceTips == nil {
				result.DeviceTips = map[string][]string{}
			}
			result.DeviceTips[d.Name] = append([]string(nil), tips...)
		}
	}

	return result
}

func fallbackAnalysis(ac domain.AnalysisContext) *domain.AnalysisResult {
	score := fallbackEfficiencyScore
	return &domain.AnalysisResult{
		Patterns: []string{
			"Not enough signal for a detailed pattern analysis; totals are shown in the daily breakdown.",
		},
		Insights: []string{
			"Compare weekday and weekend days in your daily breakdown to spot schedule-driven usage.",
		},
		EfficiencyScore: &score,
		Trend:           "stable",
		Source:          domain.SourceFallback,
		GeneratedAt:     time.Now().UTC(),
	}
}

func fallbackDeviceTips(dc domain.DeviceTipsContext) *domain.DeviceTipsResult {
	tips, ok := categoryFallbackTips[dc.Device.DeviceType]
	if !ok {
		tips = categoryFallbackTips[domain.DeviceTypeOther]
	}
	return &domain.DeviceTipsResult{
		Assessment: "No live assessment available; showing standing guidance for this device category.",
		Tips:       append([]string(nil), tips...),
		MaintenanceReminders: []string{
			"Check the manufacturer's maintenance schedule for this model.",
		},
		Source:      domain.SourceFallback,
		GeneratedAt: time.Now().UTC(),
	}
}
