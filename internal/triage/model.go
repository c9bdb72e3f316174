package triage

// Category is the broad symptom classification attached to a verdict.
type Category string

const (
	CategoryRespiratory      Category = "respiratory"
	CategoryCardiovascular   Category = "cardiovascular"
	CategoryNeurological     Category = "neurological"
	CategoryGastrointestinal Category = "gastrointestinal"
	CategoryMusculoskeletal  Category = "musculoskeletal"
	CategoryDermatological   Category = "dermatological"
	CategoryGeneral          Category = "general"
	CategoryEmergency        Category = "emergency"
)

// Urgency is how quickly the user should act on a verdict.
type Urgency string

const (
	UrgencyLow      Urgency = "low"
	UrgencyModerate Urgency = "moderate"
	UrgencyHigh     Urgency = "high"
)

// Rank orders urgencies for floor comparisons. Unknown values rank below
// low so guardrails always raise them.
func (u Urgency) Rank() int {
	switch u {
	case UrgencyLow:
		return 1
	case UrgencyModerate:
		return 2
	case UrgencyHigh:
		return 3
	}
	return 0
}

// Action is the recommended course of action for a verdict.
type Action string

const (
	ActionSelfCare    Action = "self_care"
	ActionPrimaryCare Action = "primary_care"
	ActionGoToER      Action = "go_to_er"
)

// Rank orders actions by escalation level.
func (a Action) Rank() int {
	switch a {
	case ActionSelfCare:
		return 1
	case ActionPrimaryCare:
		return 2
	case ActionGoToER:
		return 3
	}
	return 0
}

// Request is the immutable input to one triage decision.
type Request struct {
	UserID   string `json:"user_id"`
	Symptoms string `json:"symptoms"`
	Context  string `json:"context,omitempty"`
}

// Verdict is the outcome of one triage decision. Produced fresh per
// request, never mutated after construction. RedFlags only ever holds
// phrases from the critical vocabulary.
type Verdict struct {
	Category          Category `json:"category"`
	Urgency           Urgency  `json:"urgency"`
	RecommendedAction Action   `json:"recommended_action"`
	RedFlags          []string `json:"red_flags"`
	Reasoning         string   `json:"reasoning"`
}

// FlagScan is the result of a deterministic red-flag scan over input
// text. Matched phrases appear in vocabulary declaration order.
type FlagScan struct {
	Critical []string
	Urgent   []string
}

// HasCritical reports whether any critical phrase matched.
func (f FlagScan) HasCritical() bool { return len(f.Critical) > 0 }

// HasUrgent reports whether any urgent phrase matched.
func (f FlagScan) HasUrgent() bool { return len(f.Urgent) > 0 }
