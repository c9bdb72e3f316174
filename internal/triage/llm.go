package triage

import (
	"context"
	"encoding/json"
	"strings"
)

// Provider is the interface for any reasoning backend. Implementations
// are expected to degrade to a deterministic fallback rather than fail:
// a returned error is treated by the engine like unparsable output.
type Provider interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// ModelOutput is a reasoning response parsed into the verdict schema,
// with per-field defaults already applied. Reconciliation never touches
// raw JSON.
type ModelOutput struct {
	Category          Category
	Urgency           Urgency
	RecommendedAction Action
	RedFlags          []string
	Reasoning         string
}

// ParseModelOutput extracts a JSON object from raw model text, which may
// be surrounded by prose or markdown fences, and decodes it into a
// ModelOutput. Missing fields default to general/moderate/primary_care
// with a fixed reasoning placeholder. Returns ok=false when no object
// could be decoded.
func ParseModelOutput(raw string) (*ModelOutput, bool) {
	payload := strings.TrimSpace(raw)
	if payload == "" {
		return nil, false
	}

	if payload[0] != '{' {
		first := strings.Index(payload, "{")
		last := strings.LastIndex(payload, "}")
		if first == -1 || last == -1 || last < first {
			return nil, false
		}
		payload = payload[first : last+1]
	}

	var wire struct {
		Category          string   `json:"category"`
		Urgency           string   `json:"urgency"`
		RecommendedAction string   `json:"recommended_action"`
		RedFlags          []string `json:"red_flags"`
		Reasoning         string   `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(payload), &wire); err != nil {
		return nil, false
	}

	out := &ModelOutput{
		Category:          CategoryGeneral,
		Urgency:           UrgencyModerate,
		RecommendedAction: ActionPrimaryCare,
		RedFlags:          wire.RedFlags,
		Reasoning:         "LLM reasoning unavailable.",
	}
	if wire.Category != "" {
		out.Category = Category(wire.Category)
	}
	if wire.Urgency != "" {
		out.Urgency = Urgency(wire.Urgency)
	}
	if wire.RecommendedAction != "" {
		out.RecommendedAction = Action(wire.RecommendedAction)
	}
	if wire.Reasoning != "" {
		out.Reasoning = wire.Reasoning
	}
	return out, true
}
