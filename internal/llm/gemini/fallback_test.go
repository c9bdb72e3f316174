package gemini

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/linnemanlabs/go-core/log"
)

func decodeFallback(t *testing.T, raw string) fallbackResponse {
	t.Helper()
	var resp fallbackResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		t.Fatalf("fallback output is not valid JSON: %v\n%s", err, raw)
	}
	return resp
}

func TestFallback_Deterministic(t *testing.T) {
	t.Parallel()

	prompt := "symptoms: mild headache after working late"
	if Fallback(prompt) != Fallback(prompt) {
		t.Error("identical prompts must yield identical fallback output")
	}
}

func TestFallback_CriticalTerm(t *testing.T) {
	t.Parallel()

	resp := decodeFallback(t, Fallback("symptoms: sudden chest pain while resting"))
	if resp.Category != "emergency" {
		t.Errorf("category = %q, want emergency", resp.Category)
	}
	if resp.Urgency != "high" {
		t.Errorf("urgency = %q, want high", resp.Urgency)
	}
	if resp.RecommendedAction != "go_to_er" {
		t.Errorf("action = %q, want go_to_er", resp.RecommendedAction)
	}
}

func TestFallback_CategoryRouting(t *testing.T) {
	t.Parallel()

	tests := []struct {
		prompt   string
		category string
	}{
		{"symptoms: mild headache after working late", "neurological"},
		{"symptoms: itchy rash on both arms", "dermatological"},
		{"symptoms: dry cough for two days", "respiratory"},
		{"symptoms: sore knee after running", "general"},
	}
	for _, tc := range tests {
		resp := decodeFallback(t, Fallback(tc.prompt))
		if resp.Category != tc.category {
			t.Errorf("Fallback(%q) category = %q, want %q", tc.prompt, resp.Category, tc.category)
		}
		if resp.Urgency != "moderate" {
			t.Errorf("Fallback(%q) urgency = %q, want moderate", tc.prompt, resp.Urgency)
		}
		if resp.RecommendedAction != "primary_care" {
			t.Errorf("Fallback(%q) action = %q, want primary_care", tc.prompt, resp.RecommendedAction)
		}
	}
}

func TestOfflineClient(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c, err := New(ctx, "", "", log.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer func() { _ = c.Close() }()

	if !c.Offline() {
		t.Error("client without api key must be offline")
	}

	prompt := "symptoms: trouble breathing and wheezing"
	got, err := c.Complete(ctx, prompt)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != Fallback(prompt) {
		t.Errorf("offline Complete = %q, want fallback output", got)
	}
	resp := decodeFallback(t, got)
	if resp.Category != "emergency" {
		t.Errorf("category = %q, want emergency", resp.Category)
	}
}
