package triage

// OverrideVerdict is the deterministic escalation emitted when critical
// red flags are present. The reasoning text is fixed; RedFlags carries
// the matched phrases in vocabulary order.
func OverrideVerdict(critical []string) *Verdict {
	return &Verdict{
		Category:          CategoryEmergency,
		Urgency:           UrgencyHigh,
		RecommendedAction: ActionGoToER,
		RedFlags:          critical,
		Reasoning:         "Deterministic critical red-flag rule forced escalation.",
	}
}

// Reconcile merges deterministic flag findings with parsed model output
// into the final verdict. A nil out means the reasoning response could
// not be parsed and yields the fixed safe default. Critical flags are
// handled before any reasoning call by the engine and never reach here.
func Reconcile(flags FlagScan, out *ModelOutput) *Verdict {
	if out == nil {
		return &Verdict{
			Category:          CategoryGeneral,
			Urgency:           UrgencyModerate,
			RecommendedAction: ActionPrimaryCare,
			RedFlags:          []string{},
			Reasoning:         "Fallback response due to parsing failure.",
		}
	}

	// The model's claimed red flags are not trusted verbatim: only
	// phrases from the critical vocabulary survive.
	filtered := make([]string, 0, len(out.RedFlags))
	for _, rf := range out.RedFlags {
		if IsCriticalPhrase(rf) {
			filtered = append(filtered, rf)
		}
	}

	verdict := &Verdict{
		Category:          out.Category,
		Urgency:           out.Urgency,
		RecommendedAction: out.RecommendedAction,
		RedFlags:          filtered,
		Reasoning:         out.Reasoning,
	}

	// Urgent flags set a floor, never a ceiling: the model's own higher
	// assessment is kept.
	if flags.HasUrgent() {
		if verdict.Urgency.Rank() < UrgencyModerate.Rank() {
			verdict.Urgency = UrgencyModerate
		}
		if verdict.RecommendedAction.Rank() < ActionPrimaryCare.Rank() {
			verdict.RecommendedAction = ActionPrimaryCare
		}
	}

	return verdict
}
