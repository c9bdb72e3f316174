package triage

import "testing"

func TestOverrideVerdict(t *testing.T) {
	t.Parallel()

	v := OverrideVerdict([]string{"chest pain", "trouble breathing"})

	if v.Category != CategoryEmergency {
		t.Errorf("category = %q, want %q", v.Category, CategoryEmergency)
	}
	if v.Urgency != UrgencyHigh {
		t.Errorf("urgency = %q, want %q", v.Urgency, UrgencyHigh)
	}
	if v.RecommendedAction != ActionGoToER {
		t.Errorf("action = %q, want %q", v.RecommendedAction, ActionGoToER)
	}
	if len(v.RedFlags) != 2 || v.RedFlags[0] != "chest pain" {
		t.Errorf("red flags = %v, want matched phrases in order", v.RedFlags)
	}
}

func TestReconcile_Unparsable(t *testing.T) {
	t.Parallel()

	v := Reconcile(FlagScan{}, nil)

	if v.Category != CategoryGeneral || v.Urgency != UrgencyModerate || v.RecommendedAction != ActionPrimaryCare {
		t.Errorf("got %s/%s/%s, want general/moderate/primary_care", v.Category, v.Urgency, v.RecommendedAction)
	}
	if v.Reasoning != "Fallback response due to parsing failure." {
		t.Errorf("reasoning = %q", v.Reasoning)
	}
	if len(v.RedFlags) != 0 {
		t.Errorf("red flags = %v, want empty", v.RedFlags)
	}
}

func TestReconcile_FiltersInventedRedFlags(t *testing.T) {
	t.Parallel()

	out := &ModelOutput{
		Category:          CategoryCardiovascular,
		Urgency:           UrgencyHigh,
		RecommendedAction: ActionGoToER,
		RedFlags:          []string{"chest pain", "spooky aura", "vomiting blood"},
		Reasoning:         "model text",
	}
	v := Reconcile(FlagScan{}, out)

	want := []string{"chest pain", "vomiting blood"}
	if len(v.RedFlags) != len(want) {
		t.Fatalf("red flags = %v, want %v", v.RedFlags, want)
	}
	for i, w := range want {
		if v.RedFlags[i] != w {
			t.Errorf("red flags[%d] = %q, want %q", i, v.RedFlags[i], w)
		}
	}
}

func TestReconcile_UrgentFloorRaises(t *testing.T) {
	t.Parallel()

	out := &ModelOutput{
		Category:          CategoryGeneral,
		Urgency:           UrgencyLow,
		RecommendedAction: ActionSelfCare,
		Reasoning:         "model thinks it is minor",
	}
	v := Reconcile(FlagScan{Urgent: []string{"fainting"}}, out)

	if v.Urgency != UrgencyModerate {
		t.Errorf("urgency = %q, want %q", v.Urgency, UrgencyModerate)
	}
	if v.RecommendedAction != ActionPrimaryCare {
		t.Errorf("action = %q, want %q", v.RecommendedAction, ActionPrimaryCare)
	}
}

func TestReconcile_UrgentFloorNeverLowers(t *testing.T) {
	t.Parallel()

	out := &ModelOutput{
		Category:          CategoryCardiovascular,
		Urgency:           UrgencyHigh,
		RecommendedAction: ActionGoToER,
		Reasoning:         "model already escalated",
	}
	v := Reconcile(FlagScan{Urgent: []string{"fainting"}}, out)

	if v.Urgency != UrgencyHigh {
		t.Errorf("urgency = %q, want %q", v.Urgency, UrgencyHigh)
	}
	if v.RecommendedAction != ActionGoToER {
		t.Errorf("action = %q, want %q", v.RecommendedAction, ActionGoToER)
	}
}
