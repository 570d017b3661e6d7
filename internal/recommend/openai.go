package recommend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/SBP-techno/CEP-backend/internal/domain"
	"github.com/SBP-techno/CEP-backend/internal/observability/metrics"
	"github.com/SBP-techno/CEP-backend/internal/reliability/circuitbreaker"
	"github.com/SBP-techno/CEP-backend/internal/reliability/retry"
)

// Config holds the OpenAI adapter configuration
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// Client implements domain.Recommender against the OpenAI chat-completions
// API. Every public method degrades to the static fallback set instead of
// returning an upstream error.
type Client struct {
	cfg     Config
	http    *http.Client
	logger  *slog.Logger
	policy  *retry.Policy
	breaker *circuitbreaker.Breaker
}

// NewClient creates a recommendation client. An empty API key is allowed and
// puts the client permanently in fallback mode.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}

	breaker := circuitbreaker.New(5, 2, 30*time.Second)
	breaker.OnStateChange(func(from, to circuitbreaker.State) {
		logger.Warn("ai circuit breaker state changed",
			slog.String("from", from.String()),
			slog.String("to", to.String()),
		)
		metrics.SetAIBreakerState(to.String())
	})

	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		logger:  logger,
		policy:  retry.DefaultPolicy(),
		breaker: breaker,
	}
}

// Status reports whether live recommendations are possible right now
func (c *Client) Status() domain.RecommenderStatus {
	if c.cfg.APIKey == "" {
		return domain.RecommenderStatus{Configured: false, State: "not_configured"}
	}
	state := "ready"
	if c.breaker.CurrentState() != circuitbreaker.StateClosed {
		state = "degraded"
	}
	return domain.RecommenderStatus{Configured: true, Model: c.cfg.Model, State: state}
}

const recommendationSystemPrompt = `You are an expert energy conservation advisor. Analyze the user's
energy data and respond with JSON only, in this exact shape:
{
  "recommendations": ["..."],
  "energy_savings_potential_kwh": number or null,
  "cost_savings_potential_usd": number or null,
  "efficiency_score": number between 0 and 100,
  "device_tips": {"device name": ["..."]}
}`

const analysisSystemPrompt = `You are an energy analyst. Analyze the consumption pattern and respond
with JSON only, in this exact shape:
{
  "patterns": ["..."],
  "peak_usage_times": ["..."],
  "efficiency_score": number between 0 and 100,
  "trend": "increasing" | "decreasing" | "stable",
  "insights": ["..."]
}`

const deviceTipsSystemPrompt = `You are an expert on household device energy optimization. Respond
with JSON only, in this exact shape:
{
  "assessment": "...",
  "tips": ["..."],
  "maintenance_reminders": ["..."]
}`

// Recommendations returns personalized conservation advice, falling back to
// the static set on any upstream problem.
func (c *Client) Recommendations(ctx context.Context, rc domain.RecommendationContext) (*domain.RecommendationResult, error) {
	var payload struct {
		Recommendations           []string            `json:"recommendations"`
		EnergySavingsPotentialKWh *float64            `json:"energy_savings_potential_kwh"`
		CostSavingsPotentialUSD   *float64            `json:"cost_savings_potential_usd"`
		EfficiencyScore           *float64            `json:"efficiency_score"`
		DeviceTips                map[string][]string `json:"device_tips"`
	}

	err := c.complete(ctx, "recommendations", recommendationSystemPrompt, renderRecommendationPrompt(rc), &payload)
	if err != nil || len(payload.Recommendations) == 0 || !scoreValid(payload.EfficiencyScore) {
		c.logDegraded("recommendations", err)
		metrics.ObserveRecommendation(string(domain.SourceFallback))
		return fallbackRecommendations(rc), nil
	}

	metrics.ObserveRecommendation(string(domain.SourceAI))
	return &domain.RecommendationResult{
		Recommendations:        payload.Recommendations,
		EnergySavingsPotential: payload.EnergySavingsPotentialKWh,
		CostSavingsPotential:   payload.CostSavingsPotentialUSD,
		EfficiencyScore:        payload.EfficiencyScore,
		DeviceTips:             payload.DeviceTips,
		Source:                 domain.SourceAI,
		GeneratedAt:            time.Now().UTC(),
	}, nil
}

// AnalyzeUsage returns a pattern analysis over daily totals
func (c *Client) AnalyzeUsage(ctx context.Context, ac domain.AnalysisContext) (*domain.AnalysisResult, error) {
	var payload struct {
		Patterns        []string `json:"patterns"`
		PeakUsageTimes  []string `json:"peak_usage_times"`
		EfficiencyScore *float64 `json:"efficiency_score"`
		Trend           string   `json:"trend"`
		Insights        []string `json:"insights"`
	}

	err := c.complete(ctx, "energy_analysis", analysisSystemPrompt, renderAnalysisPrompt(ac), &payload)
	if err != nil || len(payload.Patterns) == 0 || !scoreValid(payload.EfficiencyScore) {
		c.logDegraded("energy_analysis", err)
		metrics.ObserveRecommendation(string(domain.SourceFallback))
		return fallbackAnalysis(ac), nil
	}

	metrics.ObserveRecommendation(string(domain.SourceAI))
	return &domain.AnalysisResult{
		Patterns:        payload.Patterns,
		PeakUsageTimes:  payload.PeakUsageTimes,
		EfficiencyScore: payload.EfficiencyScore,
		Trend:           payload.Trend,
		Insights:        payload.Insights,
		Source:          domain.SourceAI,
		GeneratedAt:     time.Now().UTC(),
	}, nil
}

// DeviceTips returns optimization advice for one device
func (c *Client) DeviceTips(ctx context.Context, dc domain.DeviceTipsContext) (*domain.DeviceTipsResult, error) {
	var payload struct {
		Assessment           string   `json:"assessment"`
		Tips                 []string `json:"tips"`
		MaintenanceReminders []string `json:"maintenance_reminders"`
	}

	err := c.complete(ctx, "device_tips", deviceTipsSystemPrompt, renderDeviceTipsPrompt(dc), &payload)
	if err != nil || len(payload.Tips) == 0 {
		c.logDegraded("device_tips", err)
		metrics.ObserveRecommendation(string(domain.SourceFallback))
		return fallbackDeviceTips(dc), nil
	}

	metrics.ObserveRecommendation(string(domain.SourceAI))
	return &domain.DeviceTipsResult{
		Assessment:           payload.Assessment,
		Tips:                 payload.Tips,
		MaintenanceReminders: payload.MaintenanceReminders,
		Source:               domain.SourceAI,
		GeneratedAt:          time.Now().UTC(),
	}, nil
}

// complete performs one chat completion guarded by the breaker and retry
// policy, parsing the assistant message content as JSON into out.
func (c *Client) complete(ctx context.Context, op, system, user string, out any) error {
	if c.cfg.APIKey == "" {
		return fmt.Errorf("ai service not configured")
	}
	if !c.breaker.Allow() {
		return fmt.Errorf("ai service temporarily unavailable (circuit breaker open)")
	}

	content, err := retry.Do(ctx, c.policy, c.logger, op, func(ctx context.Context) (string, error) {
		return c.chatCompletion(ctx, system, user)
	})
	if err != nil {
		c.breaker.RecordFailure()
		return err
	}

	if err := json.Unmarshal([]byte(content), out); err != nil {
		// A malformed body counts against the breaker the same as a
		// transport failure: the upstream is not usable either way.
		c.breaker.RecordFailure()
		return fmt.Errorf("unparsable ai response: %w", err)
	}

	c.breaker.RecordSuccess()
	return nil
}

func (c *Client) chatCompletion(ctx context.Context, system, user string) (string, error) {
	reqBody := map[string]any{
		"model": c.cfg.Model,
		"messages": []map[string]string{
			{"role": "system", "content": system},
			{"role": "user", "content": user},
		},
		"temperature":     0.5,
		"max_tokens":      2000,
		"response_format": map[string]string{"type": "json_object"},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("completion request returned %d: %s", resp.StatusCode, snippet)
	}

	var completion struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return "", fmt.Errorf("failed to decode completion response: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("completion response has no choices")
	}

	return completion.Choices[0].Message.Content, nil
}

func (c *Client) logDegraded(op string, err error) {
	if err == nil {
		err = fmt.Errorf("ai response missing required fields")
	}
	c.logger.Warn("ai call degraded to fallback",
		slog.String("operation", op),
		slog.String("error", err.Error()),
	)
}

func scoreValid(score *float64) bool {
	return score == nil || (*score >= 0 && *score <= 100)
}
