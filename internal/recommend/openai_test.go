package recommend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/SBP-techno/CEP-backend/internal/domain"
	"github.com/SBP-techno/CEP-backend/internal/reliability/retry"
)

func fastClient(baseURL, apiKey string) *Client {
	c := NewClient(Config{APIKey: apiKey, BaseURL: baseURL, Timeout: 2 * time.Second}, nil)
	c.policy = &retry.Policy{MaxAttempts: 1, BaseBackoff: time.Millisecond, MaxBackoff: time.Millisecond, Multiplier: 1}
	return c
}

func completionResponse(t *testing.T, content any) string {
	t.Helper()
	inner, err := json.Marshal(content)
	if err != nil {
		t.Fatalf("marshal content: %v", err)
	}
	outer, err := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"content": string(inner)}},
		},
	})
	if err != nil {
		t.Fatalf("marshal completion: %v", err)
	}
	return string(outer)
}

func sampleContext() domain.RecommendationContext {
	return domain.RecommendationContext{
		Devices: []domain.ContextDevice{
			{Name: "Heat pump", DeviceType: domain.DeviceTypeHVAC},
		},
	}
}

func TestRecommendationsParsesAIResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("missing bearer token")
		}
		w.Write([]byte(completionResponse(t, map[string]any{
			"recommendations":              []string{"use less heating"},
			"energy_savings_potential_kwh": 42.0,
			"efficiency_score":             88.0,
			"device_tips":                  map[string][]string{"Heat pump": {"clean the filter"}},
		})))
	}))
	defer srv.Close()

	c := fastClient(srv.URL, "test-key")
	result, err := c.Recommendations(context.Background(), sampleContext())
	if err != nil {
		t.Fatalf("recommendations failed: %v", err)
	}
	if result.Source != domain.SourceAI {
		t.Fatalf("expected ai source, got %s", result.Source)
	}
	if len(result.Recommendations) != 1 || result.Recommendations[0] != "use less heating" {
		t.Fatalf("unexpected recommendations: %v", result.Recommendations)
	}
	if result.EnergySavingsPotential == nil || *result.EnergySavingsPotential != 42.0 {
		t.Fatalf("unexpected savings: %v", result.EnergySavingsPotential)
	}
	if result.EfficiencyScore == nil || *result.EfficiencyScore != 88.0 {
		t.Fatalf("unexpected score: %v", result.EfficiencyScore)
	}
	if len(result.DeviceTips["Heat pump"]) != 1 {
		t.Fatalf("unexpected device tips: %v", result.DeviceTips)
	}
}

func TestRecommendationsFallsBackOnUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := fastClient(srv.URL, "test-key")
	result, err := c.Recommendations(context.Background(), sampleContext())
	if err != nil {
		t.Fatalf("expected degraded success, got error: %v", err)
	}
	if result.Source != domain.SourceFallback {
		t.Fatalf("expected fallback source, got %s", result.Source)
	}
	if len(result.Recommendations) == 0 {
		t.Fatalf("expected non-empty fallback recommendations")
	}
	if tips := result.DeviceTips["Heat pump"]; len(tips) == 0 {
		t.Fatalf("expected hvac fallback tips keyed by device name")
	}
}

func TestRecommendationsFallsBackOnMalformedContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"content":"not json at all"}}]}`))
	}))
	defer srv.Close()

	c := fastClient(srv.URL, "test-key")
	result, err := c.Recommendations(context.Background(), sampleContext())
	if err != nil {
		t.Fatalf("expected degraded success, got error: %v", err)
	}
	if result.Source != domain.SourceFallback {
		t.Fatalf("expected fallback source, got %s", result.Source)
	}
}

func TestRecommendationsFallsBackOnOutOfRangeScore(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(completionResponse(t, map[string]any{
			"recommendations":  []string{"x"},
			"efficiency_score": 250.0,
		})))
	}))
	defer srv.Close()

	c := fastClient(srv.URL, "test-key")
	result, err := c.Recommendations(context.Background(), sampleContext())
	if err != nil {
		t.Fatalf("expected degraded success, got error: %v", err)
	}
	if result.Source != domain.SourceFallback {
		t.Fatalf("expected fallback for out-of-range score, got %s", result.Source)
	}
}

func TestUnconfiguredClientAlwaysFallsBack(t *testing.T) {
	c := fastClient("http://127.0.0.1:0", "")

	status := c.Status()
	if status.Configured || status.State != "not_configured" {
		t.Fatalf("unexpected status: %+v", status)
	}

	result, err := c.Recommendations(context.Background(), sampleContext())
	if err != nil {
		t.Fatalf("expected fallback success, got error: %v", err)
	}
	if result.Source != domain.SourceFallback {
		t.Fatalf("expected fallback source, got %s", result.Source)
	}
}

func TestBreakerOpensAfterRepeatedFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := fastClient(srv.URL, "test-key")
	ctx := context.Background()
	for i := 0; i < 6; i++ {
		if _, err := c.DeviceTips(ctx, domain.DeviceTipsContext{Device: domain.ContextDevice{Name: "x", DeviceType: domain.DeviceTypeOther}}); err != nil {
			t.Fatalf("expected fallback success, got error: %v", err)
		}
	}

	status := c.Status()
	if status.State != "degraded" {
		t.Fatalf("expected degraded state after repeated failures, got %s", status.State)
	}
}

func TestAnalyzeUsageParsesAIResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(completionResponse(t, map[string]any{
			"patterns":         []string{"evening peak"},
			"peak_usage_times": []string{"18:00-21:00"},
			"efficiency_score": 64.0,
			"trend":            "decreasing",
			"insights":         []string{"weekends run higher"},
		})))
	}))
	defer srv.Close()

	c := fastClient(srv.URL, "test-key")
	result, err := c.AnalyzeUsage(context.Background(), domain.AnalysisContext{Period: "week"})
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}
	if result.Source != domain.SourceAI || result.Trend != "decreasing" {
		t.Fatalf("unexpected result: %+v", result)
	}
}
