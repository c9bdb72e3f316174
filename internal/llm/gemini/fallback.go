package gemini

import (
	"encoding/json"
	"strings"
)

// fallbackCriticalTerms force an emergency fallback verdict. This is a
// coarser net than the triage package's full critical vocabulary; the
// engine's deterministic scan has already run before any prompt reaches
// this code, so the terms here only matter for unscanned prompt text.
var fallbackCriticalTerms = []string{
	"chest pain",
	"trouble breathing",
	"suicidal",
	"stroke",
	"bleeding",
	"severe headache",
}

var fallbackCategories = []struct {
	category string
	terms    []string
}{
	{"dermatological", []string{"rash"}},
	{"neurological", []string{"headache", "vision", "dizzy"}},
	{"respiratory", []string{"breath", "cough", "lung"}},
}

type fallbackResponse struct {
	Category          string   `json:"category"`
	Urgency           string   `json:"urgency"`
	RecommendedAction string   `json:"recommended_action"`
	RedFlags          []string `json:"red_flags"`
	Reasoning         string   `json:"reasoning"`
}

// Fallback returns the deterministic heuristic response used when the
// backend is unconfigured, blocked, or persistently failing. Stable
// input always yields byte-identical output.
func Fallback(prompt string) string {
	lowered := strings.ToLower(prompt)

	resp := fallbackResponse{
		Category:          "general",
		Urgency:           "moderate",
		RecommendedAction: "primary_care",
		RedFlags:          []string{},
		Reasoning:         "Fallback heuristic response when LLM is unavailable.",
	}

	for _, term := range fallbackCriticalTerms {
		if strings.Contains(lowered, term) {
			resp.Category = "emergency"
			resp.Urgency = "high"
			resp.RecommendedAction = "go_to_er"
			out, _ := json.Marshal(resp)
			return string(out)
		}
	}

	for _, fc := range fallbackCategories {
		if containsAny(lowered, fc.terms) {
			resp.Category = fc.category
			break
		}
	}

	out, _ := json.Marshal(resp)
	return string(out)
}

func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}
