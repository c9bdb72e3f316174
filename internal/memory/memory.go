// Package memory derives long-term health context from stored
// assessment history: per-user summaries and a one-line historical
// context string fed into the triage prompt.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/linnemanlabs/go-core/log"

	"github.com/Chethan-Regala/MedAssist/internal/history"
	"github.com/Chethan-Regala/MedAssist/internal/triage"
)

const (
	// DefaultSummaryWindowDays bounds how far back a health summary looks.
	DefaultSummaryWindowDays = 30

	contextualLookback = 10
)

// Patterns describes trends detected over a user's recent history.
type Patterns struct {
	Trend              string `json:"trend"`
	MostCommonCategory string `json:"most_common_category,omitempty"`
	HighUrgencyEvents  int    `json:"high_urgency_events"`
	TotalEvents        int    `json:"total_events"`
}

// HealthSummary aggregates a user's activity over a period.
type HealthSummary struct {
	UserID           string            `json:"user_id"`
	PeriodDays       int               `json:"period_days"`
	SymptomEvents    int               `json:"symptom_events"`
	MedicationChecks int               `json:"medication_checks"`
	RecentCategories []triage.Category `json:"recent_categories"`
	RiskLevels       []string          `json:"risk_levels"`
	LastActivity     *time.Time        `json:"last_activity,omitempty"`
	Patterns         Patterns          `json:"patterns"`
}

// Bank reads assessment history and condenses it into prompt-sized context.
type Bank struct {
	store  history.Store
	logger log.Logger
}

// NewBank returns a Bank over the given store.
func NewBank(store history.Store, logger log.Logger) *Bank {
	if logger == nil {
		logger = log.Nop()
	}
	return &Bank{store: store, logger: logger}
}

// Summary builds a health summary for the user over the last `days` days.
// days <= 0 selects the default window.
func (b *Bank) Summary(ctx context.Context, userID string, days int) (*HealthSummary, error) {
	if days <= 0 {
		days = DefaultSummaryWindowDays
	}
	cutoff := time.Now().AddDate(0, 0, -days)

	triages, err := b.store.TriagesByUser(ctx, userID, cutoff, 0)
	if err != nil {
		return nil, fmt.Errorf("load triages: %w", err)
	}
	checks, err := b.store.MedicationsByUser(ctx, userID, cutoff, 0)
	if err != nil {
		return nil, fmt.Errorf("load medication checks: %w", err)
	}

	s := &HealthSummary{
		UserID:           userID,
		PeriodDays:       days,
		SymptomEvents:    len(triages),
		MedicationChecks: len(checks),
		Patterns:         analyzePatterns(triages),
	}

	seen := make(map[triage.Category]bool)
	for _, r := range firstN(triages, 5) {
		if !seen[r.Verdict.Category] {
			seen[r.Verdict.Category] = true
			s.RecentCategories = append(s.RecentCategories, r.Verdict.Category)
		}
	}
	for _, c := range checks[:min(3, len(checks))] {
		s.RiskLevels = append(s.RiskLevels, string(c.Verdict.RiskLevel))
	}
	if len(triages) > 0 {
		t := triages[0].CreatedAt
		s.LastActivity = &t
	}

	return s, nil
}

// ContextualHistory returns a one-line summary of the most relevant
// past event for the given symptoms, based on keyword overlap against
// the user's recent records.
func (b *Bank) ContextualHistory(ctx context.Context, userID, currentSymptoms string) (string, error) {
	past, err := b.store.TriagesByUser(ctx, userID, time.Time{}, contextualLookback)
	if err != nil {
		return "", fmt.Errorf("load triages: %w", err)
	}
	if len(past) == 0 {
		return "No previous health history available.", nil
	}

	keywords := strings.Fields(strings.ToLower(currentSymptoms))
	for _, r := range past {
		text := strings.ToLower(r.Symptoms + " " + r.Context)
		for _, kw := range keywords {
			if strings.Contains(text, kw) {
				return fmt.Sprintf("Similar symptoms on %s: %s (%s urgency)",
					r.CreatedAt.Format("2006-01-02"), r.Verdict.Category, r.Verdict.Urgency), nil
			}
		}
	}

	latest := past[0]
	return fmt.Sprintf("Last health check: %s - %s",
		latest.CreatedAt.Format("2006-01-02"), latest.Verdict.Category), nil
}

// analyzePatterns marks the trend concerning when at least two of the
// five most recent events were high urgency.
func analyzePatterns(triages []*history.TriageRecord) Patterns {
	if len(triages) == 0 {
		return Patterns{Trend: "insufficient_data"}
	}

	high := 0
	for _, r := range firstN(triages, 5) {
		if r.Verdict.Urgency == triage.UrgencyHigh {
			high++
		}
	}

	counts := make(map[triage.Category]int)
	for _, r := range triages {
		counts[r.Verdict.Category]++
	}
	categories := make([]triage.Category, 0, len(counts))
	for c := range counts {
		categories = append(categories, c)
	}
	sort.Slice(categories, func(i, j int) bool {
		if counts[categories[i]] != counts[categories[j]] {
			return counts[categories[i]] > counts[categories[j]]
		}
		return categories[i] < categories[j]
	})

	trend := "stable"
	if high >= 2 {
		trend = "concerning"
	}
	return Patterns{
		Trend:              trend,
		MostCommonCategory: string(categories[0]),
		HighUrgencyEvents:  high,
		TotalEvents:        len(triages),
	}
}

func firstN(triages []*history.TriageRecord, n int) []*history.TriageRecord {
	if len(triages) < n {
		return triages
	}
	return triages[:n]
}
