package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// DefaultLookupEndpoint is the NLM Clinical Tables search API.
const DefaultLookupEndpoint = "https://clinicaltables.nlm.nih.gov/api"

const maxLookupResults = 5

// MedicalLookup queries the NLM Clinical Tables API for condition and
// drug name matches. Used by the triage engine to enrich prompts with
// related conditions.
type MedicalLookup struct {
	endpoint   string
	httpClient *http.Client
}

// NewMedicalLookup creates a lookup tool against the given API base URL.
// An empty endpoint selects the public NLM instance.
func NewMedicalLookup(endpoint string) *MedicalLookup {
	if endpoint == "" {
		endpoint = DefaultLookupEndpoint
	}
	return &MedicalLookup{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

func (m *MedicalLookup) Name() string { return "medical_lookup" }

func (m *MedicalLookup) Description() string {
	return "Look up medical conditions and drug names related to a free-text query."
}

func (m *MedicalLookup) Parameters() json.RawMessage {
	return json.RawMessage(`{
        "type": "object",
        "properties": {
            "query": {
                "type": "string",
                "description": "Free-text search terms"
            },
            "kind": {
                "type": "string",
                "enum": ["conditions", "drugs"],
                "description": "Which vocabulary to search. Defaults to conditions."
            }
        },
        "required": ["query"]
    }`)
}

// Execute performs the lookup. The response is always the same shape:
// {"success": bool, "results": [string], "query": string, "kind": string}.
func (m *MedicalLookup) Execute(ctx context.Context, params json.RawMessage) (json.RawMessage, error) {
	var input struct {
		Query string `json:"query"`
		Kind  string `json:"kind,omitempty"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	if input.Query == "" {
		return nil, fmt.Errorf("query is required")
	}
	if input.Kind == "" {
		input.Kind = "conditions"
	}

	var path string
	switch input.Kind {
	case "conditions":
		path = "/conditions/v3/search"
	case "drugs":
		path = "/rxterms/v3/search"
	default:
		return nil, fmt.Errorf("unknown lookup kind %q", input.Kind)
	}

	u, err := url.Parse(m.endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint: %w", err)
	}
	u.Path += path

	q := u.Query()
	q.Set("terms", input.Query)
	q.Set("maxList", fmt.Sprint(maxLookupResults))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("lookup request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("lookup returned %d: %s", resp.StatusCode, string(body))
	}

	results, err := parseClinicalTables(body)
	if err != nil {
		return nil, err
	}

	return json.Marshal(map[string]any{
		"success": true,
		"results": results,
		"query":   input.Query,
		"kind":    input.Kind,
	})
}

// parseClinicalTables extracts display strings from the Clinical Tables
// array response: [total, codes, extra, [[display, ...], ...]]. The
// fourth element holds one display tuple per match.
func parseClinicalTables(body []byte) ([]string, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("unexpected response shape: %w", err)
	}
	if len(raw) < 4 {
		return []string{}, nil
	}

	var tuples [][]string
	if err := json.Unmarshal(raw[3], &tuples); err != nil {
		// some vocabularies return a flat string list instead
		var flat []string
		if err := json.Unmarshal(raw[3], &flat); err != nil {
			return nil, fmt.Errorf("unexpected result element: %w", err)
		}
		return capResults(flat), nil
	}

	out := make([]string, 0, len(tuples))
	for _, t := range tuples {
		if len(t) > 0 && t[0] != "" {
			out = append(out, t[0])
		}
	}
	return capResults(out), nil
}

func capResults(in []string) []string {
	if len(in) > maxLookupResults {
		return in[:maxLookupResults]
	}
	return in
}
