package coordinator

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/linnemanlabs/go-core/log"

	"github.com/Chethan-Regala/MedAssist/internal/history"
	"github.com/Chethan-Regala/MedAssist/internal/history/memstore"
	"github.com/Chethan-Regala/MedAssist/internal/medication"
	"github.com/Chethan-Regala/MedAssist/internal/memory"
	"github.com/Chethan-Regala/MedAssist/internal/session"
	"github.com/Chethan-Regala/MedAssist/internal/triage"
)

// stubProvider returns a fixed response, optionally panicking, and
// records the last prompt it saw.
type stubProvider struct {
	mu         sync.Mutex
	response   string
	panicMsg   string
	lastPrompt string
}

func (p *stubProvider) Complete(_ context.Context, prompt string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.panicMsg != "" {
		panic(p.panicMsg)
	}
	p.lastPrompt = prompt
	return p.response, nil
}

func (p *stubProvider) prompt() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastPrompt
}

// stubNotifier records alerts.
type stubNotifier struct {
	mu     sync.Mutex
	alerts []string
	users  []string
}

func (n *stubNotifier) SendAlert(_ context.Context, userID, alert string, _ *triage.Verdict, _ *medication.Verdict) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, alert)
	n.users = append(n.users, userID)
	return nil
}

type agentRun struct {
	agent   string
	success bool
}

// testHooks collects hook invocations behind a mutex; the agent
// branches run concurrently.
type testHooks struct {
	mu     sync.Mutex
	runs   []agentRun
	alerts []string
}

func (h *testHooks) hooks() Hooks {
	return Hooks{
		OnAgentRun: func(agent string, _ float64, success bool) {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.runs = append(h.runs, agentRun{agent: agent, success: success})
		},
		OnAlert: func(level string) {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.alerts = append(h.alerts, level)
		},
	}
}

func newTestCoordinator(provider triage.Provider, store history.Store, notifier Notifier, hooks Hooks) (*Coordinator, session.Store) {
	engine := triage.NewEngine(provider, triage.NewDetector(), nil, log.Nop(), triage.EngineHooks{})
	checker := medication.NewChecker(nil)
	sessions := session.NewMemoryStore(0, 0)
	var bank *memory.Bank
	if store != nil {
		bank = memory.NewBank(store, nil)
	}
	return New(engine, checker, sessions, bank, store, notifier, log.Nop(), hooks), sessions
}

func TestAssess_BothHighRaisesCriticalAlert(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	provider := &stubProvider{
		response: `{"category":"cardiovascular","urgency":"high","recommended_action":"go_to_er","reasoning":"Serious presentation."}`,
	}
	store := memstore.New()
	notifier := &stubNotifier{}
	observed := &testHooks{}
	coord, _ := newTestCoordinator(provider, store, notifier, observed.hooks())

	res, err := coord.Assess(ctx, &AssessRequest{
		UserID:      "u-1",
		Symptoms:    "general malaise and palpitations",
		Medications: []string{"warfarin", "aspirin"},
	})
	if err != nil {
		t.Fatalf("Assess: %v", err)
	}

	if res.Triage == nil || res.Triage.Urgency != triage.UrgencyHigh {
		t.Fatalf("triage verdict = %+v, want high urgency", res.Triage)
	}
	if res.Medication == nil || res.Medication.RiskLevel != medication.SeverityHigh {
		t.Fatalf("medication verdict = %+v, want high risk", res.Medication)
	}
	if res.Coordination.Alert != AlertBothHigh {
		t.Errorf("alert = %q, want %q", res.Coordination.Alert, AlertBothHigh)
	}
	if len(res.Coordination.AgentsExecuted) != 2 {
		t.Errorf("agents = %v, want both", res.Coordination.AgentsExecuted)
	}
	if res.Coordination.PrimaryConcern != "cardiovascular (high urgency)" {
		t.Errorf("primary concern = %q", res.Coordination.PrimaryConcern)
	}
	if res.Coordination.MedicationRisk != "high" {
		t.Errorf("medication risk = %q", res.Coordination.MedicationRisk)
	}

	if len(notifier.alerts) != 1 || notifier.alerts[0] != AlertBothHigh {
		t.Errorf("notifier alerts = %v", notifier.alerts)
	}
	if notifier.users[0] != "u-1" {
		t.Errorf("notifier user = %q", notifier.users[0])
	}

	// Both records persisted.
	triages, err := store.TriagesByUser(ctx, "u-1", time.Time{}, 0)
	if err != nil || len(triages) != 1 {
		t.Errorf("persisted triages = %d (err %v), want 1", len(triages), err)
	}
	if triages[0].ID != res.TriageID {
		t.Errorf("persisted triage ID = %q, want %q", triages[0].ID, res.TriageID)
	}
	meds, err := store.MedicationsByUser(ctx, "u-1", time.Time{}, 0)
	if err != nil || len(meds) != 1 {
		t.Errorf("persisted medication checks = %d (err %v), want 1", len(meds), err)
	}

	observed.mu.Lock()
	defer observed.mu.Unlock()
	if len(observed.runs) != 2 {
		t.Fatalf("agent runs = %v, want 2", observed.runs)
	}
	for _, run := range observed.runs {
		if !run.success {
			t.Errorf("agent %s reported failure", run.agent)
		}
	}
	if len(observed.alerts) != 1 || observed.alerts[0] != "critical" {
		t.Errorf("alert hook = %v, want [critical]", observed.alerts)
	}
}

func TestAssess_OneHighRaisesElevatedAlert(t *testing.T) {
	t.Parallel()

	provider := &stubProvider{
		response: `{"category":"general","urgency":"moderate","recommended_action":"primary_care","reasoning":"Routine."}`,
	}
	observed := &testHooks{}
	coord, _ := newTestCoordinator(provider, memstore.New(), nil, observed.hooks())

	res, err := coord.Assess(context.Background(), &AssessRequest{
		UserID:      "u-2",
		Symptoms:    "general malaise",
		Medications: []string{"warfarin", "aspirin"},
	})
	if err != nil {
		t.Fatalf("Assess: %v", err)
	}

	if res.Coordination.Alert != AlertElevated {
		t.Errorf("alert = %q, want %q", res.Coordination.Alert, AlertElevated)
	}
	observed.mu.Lock()
	defer observed.mu.Unlock()
	if len(observed.alerts) != 1 || observed.alerts[0] != "elevated" {
		t.Errorf("alert hook = %v, want [elevated]", observed.alerts)
	}
}

func TestAssess_TriageOnly(t *testing.T) {
	t.Parallel()

	provider := &stubProvider{
		response: `{"category":"general","urgency":"high","recommended_action":"go_to_er","reasoning":"Serious."}`,
	}
	coord, _ := newTestCoordinator(provider, memstore.New(), nil, Hooks{})

	res, err := coord.Assess(context.Background(), &AssessRequest{
		UserID:   "u-3",
		Symptoms: "general malaise",
	})
	if err != nil {
		t.Fatalf("Assess: %v", err)
	}

	if res.Medication != nil {
		t.Error("medication agent must not run without medications")
	}
	if len(res.Coordination.AgentsExecuted) != 1 || res.Coordination.AgentsExecuted[0] != "triage" {
		t.Errorf("agents = %v, want [triage]", res.Coordination.AgentsExecuted)
	}
	// Alerts require both verdicts, even with high triage urgency.
	if res.Coordination.Alert != "" {
		t.Errorf("alert = %q, want none", res.Coordination.Alert)
	}
}

func TestAssess_FailedBranchOmitted(t *testing.T) {
	t.Parallel()

	provider := &stubProvider{panicMsg: "reasoning backend blew up"}
	observed := &testHooks{}
	coord, _ := newTestCoordinator(provider, memstore.New(), nil, observed.hooks())

	res, err := coord.Assess(context.Background(), &AssessRequest{
		UserID:      "u-4",
		Symptoms:    "general malaise",
		Medications: []string{"ibuprofen", "aspirin"},
	})
	if err != nil {
		t.Fatalf("Assess: %v", err)
	}

	if res.Triage != nil {
		t.Error("panicked triage branch must be omitted")
	}
	if res.Medication == nil || res.Medication.RiskLevel != medication.SeverityHigh {
		t.Fatalf("medication verdict = %+v, want high risk despite triage failure", res.Medication)
	}
	if len(res.Coordination.AgentsExecuted) != 1 || res.Coordination.AgentsExecuted[0] != "medication_safety" {
		t.Errorf("agents = %v, want [medication_safety]", res.Coordination.AgentsExecuted)
	}
	if res.Coordination.Alert != "" {
		t.Errorf("alert = %q, want none with a missing verdict", res.Coordination.Alert)
	}

	observed.mu.Lock()
	defer observed.mu.Unlock()
	var triageSuccess *bool
	for _, run := range observed.runs {
		if run.agent == "triage" {
			s := run.success
			triageSuccess = &s
		}
	}
	if triageSuccess == nil || *triageSuccess {
		t.Errorf("triage agent run = %v, want recorded failure", observed.runs)
	}
}

func TestAssess_SessionLifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	provider := &stubProvider{
		response: `{"category":"general","urgency":"moderate","recommended_action":"primary_care","reasoning":"Routine."}`,
	}
	coord, sessions := newTestCoordinator(provider, memstore.New(), nil, Hooks{})

	first, err := coord.Assess(ctx, &AssessRequest{UserID: "u-5", Symptoms: "general malaise"})
	if err != nil {
		t.Fatalf("Assess: %v", err)
	}
	if first.SessionID == "" {
		t.Fatal("expected a session to be created")
	}

	second, err := coord.Assess(ctx, &AssessRequest{
		UserID:    "u-5",
		Symptoms:  "still feeling off",
		SessionID: first.SessionID,
	})
	if err != nil {
		t.Fatalf("Assess: %v", err)
	}
	if second.SessionID != first.SessionID {
		t.Errorf("session = %q, want reused %q", second.SessionID, first.SessionID)
	}

	msgs, err := sessions.RecentMessages(ctx, first.SessionID, 0)
	if err != nil {
		t.Fatalf("RecentMessages: %v", err)
	}
	// Two assessments, each a user report plus an assistant result.
	if len(msgs) != 4 {
		t.Fatalf("messages = %d, want 4", len(msgs))
	}
	if msgs[0].Role != "user" || msgs[0].Metadata["type"] != "symptom_report" {
		t.Errorf("first message = %+v", msgs[0])
	}
	if msgs[1].Role != "assistant" || msgs[1].Metadata["type"] != "triage_result" {
		t.Errorf("second message = %+v", msgs[1])
	}
	if !strings.HasPrefix(msgs[1].Content, "Triage: ") {
		t.Errorf("assistant message = %q", msgs[1].Content)
	}
}

func TestAssess_EnrichesContextFromHistory(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memstore.New()
	err := store.PutTriage(ctx, &history.TriageRecord{
		ID:       "t-prior",
		UserID:   "u-6",
		Symptoms: "pounding headache",
		Verdict: triage.Verdict{
			Category: triage.CategoryNeurological,
			Urgency:  triage.UrgencyModerate,
		},
		CreatedAt: time.Now().Add(-24 * time.Hour),
	})
	if err != nil {
		t.Fatalf("PutTriage: %v", err)
	}

	provider := &stubProvider{
		response: `{"category":"neurological","urgency":"moderate","recommended_action":"primary_care","reasoning":"Recurring."}`,
	}
	coord, _ := newTestCoordinator(provider, store, nil, Hooks{})

	if _, err := coord.Assess(ctx, &AssessRequest{UserID: "u-6", Symptoms: "headache again"}); err != nil {
		t.Fatalf("Assess: %v", err)
	}

	prompt := provider.prompt()
	if !strings.Contains(prompt, "History: Similar symptoms on") {
		t.Errorf("prompt missing enriched history:\n%s", prompt)
	}
}

func TestTriage_Standalone(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memstore.New()
	provider := &stubProvider{
		response: `{"category":"respiratory","urgency":"moderate","recommended_action":"primary_care","reasoning":"Likely viral."}`,
	}
	coord, _ := newTestCoordinator(provider, store, nil, Hooks{})

	rec, err := coord.Triage(ctx, &triage.Request{UserID: "u-7", Symptoms: "dry cough"})
	if err != nil {
		t.Fatalf("Triage: %v", err)
	}
	if rec.ID == "" {
		t.Error("expected a record ID")
	}
	if rec.Verdict.Category != triage.CategoryRespiratory {
		t.Errorf("category = %q", rec.Verdict.Category)
	}

	got, ok, err := store.GetTriage(ctx, rec.ID)
	if err != nil || !ok {
		t.Fatalf("GetTriage: ok=%v err=%v", ok, err)
	}
	if got.Symptoms != "dry cough" {
		t.Errorf("persisted symptoms = %q", got.Symptoms)
	}
}

func TestCheckMedications_Standalone(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memstore.New()
	coord, _ := newTestCoordinator(&stubProvider{}, store, nil, Hooks{})

	rec, err := coord.CheckMedications(ctx, &medication.CheckRequest{
		UserID:      "u-8",
		Medications: []string{"metformin", "contrast dye"},
	})
	if err != nil {
		t.Fatalf("CheckMedications: %v", err)
	}
	if rec.Verdict.RiskLevel != medication.SeverityModerate {
		t.Errorf("risk = %q, want moderate", rec.Verdict.RiskLevel)
	}

	meds, err := store.MedicationsByUser(ctx, "u-8", time.Time{}, 0)
	if err != nil || len(meds) != 1 {
		t.Fatalf("persisted = %d (err %v), want 1", len(meds), err)
	}
}
