// Package medication implements the rule-based medication safety
// checker: duplicate-dose detection and pairwise interaction lookup over
// a fixed table of known dangerous combinations.
package medication

// Severity orders medication risk: low < moderate < high.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityModerate Severity = "moderate"
	SeverityHigh     Severity = "high"
)

// Rank orders severities for max-severity aggregation.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityModerate:
		return 2
	case SeverityHigh:
		return 3
	}
	return 0
}

// CheckRequest is the input to one medication safety check.
type CheckRequest struct {
	UserID      string   `json:"user_id"`
	Medications []string `json:"medications"`
}

// Conflict is one detected problem: either a duplicated medication
// (single name) or a known dangerous pair (two names, sorted).
type Conflict struct {
	Medications []string `json:"medications"`
	Severity    Severity `json:"severity"`
	Reason      string   `json:"reason"`
}

// Verdict is the outcome of a check.
//
// Invariant: RiskLevel equals the maximum severity across Conflicts, or
// low when none were found.
type Verdict struct {
	RiskLevel Severity   `json:"risk_level"`
	Conflicts []Conflict `json:"conflicts"`
	Guidance  string     `json:"guidance"`
}
