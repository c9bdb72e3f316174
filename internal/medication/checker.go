package medication

import (
	"context"
	"sort"
	"strings"

	"github.com/linnemanlabs/go-core/log"
)

const duplicateReason = "Medication listed multiple times; verify dosing frequency."

// Checker runs the two rule passes over a medication list. Stateless
// over the fixed interaction table; safe for concurrent use.
type Checker struct {
	logger log.Logger
}

// NewChecker creates a medication safety checker.
func NewChecker(logger log.Logger) *Checker {
	if logger == nil {
		logger = log.Nop()
	}
	return &Checker{logger: logger}
}

// Check normalizes the medication list and runs both rule passes:
// duplicate detection, then pairwise interaction lookup. Both always
// run; RiskLevel is the maximum severity seen.
func (c *Checker) Check(ctx context.Context, req *CheckRequest) *Verdict {
	normalized := make([]string, 0, len(req.Medications))
	for _, med := range req.Medications {
		med = strings.ToLower(strings.TrimSpace(med))
		if med != "" {
			normalized = append(normalized, med)
		}
	}

	conflicts := []Conflict{}
	highest := SeverityLow

	// Pass 1: same drug listed more than once (double dosing).
	counts := make(map[string]int, len(normalized))
	order := make([]string, 0, len(normalized))
	for _, med := range normalized {
		if counts[med] == 0 {
			order = append(order, med)
		}
		counts[med]++
	}
	for _, med := range order {
		if counts[med] > 1 {
			conflicts = append(conflicts, Conflict{
				Medications: []string{med},
				Severity:    SeverityModerate,
				Reason:      duplicateReason,
			})
			if SeverityModerate.Rank() > highest.Rank() {
				highest = SeverityModerate
			}
		}
	}

	// Pass 2: every unordered pair of distinct names against the table.
	for i := 0; i < len(normalized); i++ {
		for j := i + 1; j < len(normalized); j++ {
			if normalized[i] == normalized[j] {
				continue
			}
			rule, ok := interactionRules[pairKey(normalized[i], normalized[j])]
			if !ok {
				continue
			}
			pair := []string{normalized[i], normalized[j]}
			sort.Strings(pair)
			conflicts = append(conflicts, Conflict{
				Medications: pair,
				Severity:    rule.severity,
				Reason:      rule.reason,
			})
			if rule.severity.Rank() > highest.Rank() {
				highest = rule.severity
			}
		}
	}

	var guidance string
	switch highest {
	case SeverityHigh:
		guidance = "High-risk combination detected; seek medical guidance immediately."
	case SeverityModerate:
		guidance = "Potential interactions detected; consult primary care before combining."
	default:
		guidance = "No known critical conflicts based on the current rule set."
	}

	if highest == SeverityHigh {
		c.logger.Warn(ctx, "high-risk medication combination detected",
			"user_id", req.UserID,
			"conflicts", len(conflicts),
		)
	}

	return &Verdict{
		RiskLevel: highest,
		Conflicts: conflicts,
		Guidance:  guidance,
	}
}
