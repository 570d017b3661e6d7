package domain

import (
	"context"
	"time"
)

// RecommendationSource distinguishes live AI output from the static fallback set
type RecommendationSource string

const (
	SourceAI       RecommendationSource = "ai"
	SourceFallback RecommendationSource = "fallback"
)

// RecommendationResult is the structured advice returned to API callers.
// EfficiencyScore, when present, is in [0, 100].
type RecommendationResult struct {
	Recommendations        []string
	EnergySavingsPotential *float64 // Estimated monthly kWh
	CostSavingsPotential   *float64 // Estimated monthly USD
	EfficiencyScore        *float64
	DeviceTips             map[string][]string // Per-device tips keyed by device name
	Source                 RecommendationSource
	GeneratedAt            time.Time
}

// AnalysisResult is the structured output of a usage-pattern analysis
type AnalysisResult struct {
	Patterns        []string
	PeakUsageTimes  []string
	EfficiencyScore *float64
	Trend           string // increasing, decreasing or stable
	Insights        []string
	Source          RecommendationSource
	GeneratedAt     time.Time
}

// DeviceTipsResult is device-specific optimization advice
type DeviceTipsResult struct {
	Assessment           string
	Tips                 []string
	MaintenanceReminders []string
	Source               RecommendationSource
	GeneratedAt          time.Time
}

// RecommenderStatus describes whether the external AI function is usable
type RecommenderStatus struct {
	Configured bool
	Model      string
	State      string // ready, not_configured or degraded
}

// Recommender is the single narrow capability interface over the external AI
// function. Implementations must absorb upstream failures and degrade to a
// fallback result rather than returning an error for unavailability; an error
// return is reserved for programming mistakes (nil context input).
type Recommender interface {
	Recommendations(ctx context.Context, rc RecommendationContext) (*RecommendationResult, error)
	AnalyzeUsage(ctx context.Context, ac AnalysisContext) (*AnalysisResult, error)
	DeviceTips(ctx context.Context, dc DeviceTipsContext) (*DeviceTipsResult, error)
	Status() RecommenderStatus
}

// DeviceTipsContext is the bounded input for device-specific optimization tips
type DeviceTipsContext struct {
	Device         ContextDevice
	Model          string
	Manufacturer   string
	LastSeen       *time.Time
	RecentReadings []ContextReading // Capped sample, newest last
}

// RecommendationContext is the bounded, pre-aggregated input handed to the AI
// function. It is built by a pure formatter; no repository access happens
// past this point.
type RecommendationContext struct {
	EnergyGoalKWh        *float64
	PreferredTemperature *float64
	Stats                ContextStats
	Devices              []ContextDevice
	RecentReadings       []ContextReading // Capped sample, newest last
}

// AnalysisContext is the bounded input for pattern analysis
type AnalysisContext struct {
	Period       string // week, month or quarter
	DailyTotals  []ContextDailyTotal
	ReadingCount int
}

// ContextStats mirrors the aggregate summary fields the AI prompt needs
type ContextStats struct {
	TotalConsumptionKWh float64
	TotalProductionKWh  float64
	TotalCostUSD        float64
	AveragePowerWatts   *float64
	PeakPowerWatts      *float64
	PeriodStart         time.Time
	PeriodEnd           time.Time
	DeviceCount         int
}

// ContextDevice is the bounded device metadata included in a prompt
type ContextDevice struct {
	Name            string
	DeviceType      DeviceType
	Location        string
	RatedPowerWatts *float64
	IsSmartDevice   bool
}

// ContextReading is one sampled data point included in a prompt
type ContextReading struct {
	Timestamp          time.Time
	ConsumptionKWh     float64
	PowerWatts         *float64
	TemperatureCelsius *float64
}

// ContextDailyTotal is one day's consumption used for pattern analysis
type ContextDailyTotal struct {
	Date              string // YYYY-MM-DD
	ConsumptionKWh    float64
	AveragePowerWatts *float64
}
