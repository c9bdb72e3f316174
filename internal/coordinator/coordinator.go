// Package coordinator orchestrates the specialist agents: it fans a
// combined assessment out to the triage engine and the medication
// checker, merges their verdicts, raises cross-agent alerts, and
// persists what each agent produced.
package coordinator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/linnemanlabs/go-core/log"

	"github.com/Chethan-Regala/MedAssist/internal/history"
	"github.com/Chethan-Regala/MedAssist/internal/medication"
	"github.com/Chethan-Regala/MedAssist/internal/memory"
	"github.com/Chethan-Regala/MedAssist/internal/session"
	"github.com/Chethan-Regala/MedAssist/internal/triage"
)

var tracer = otel.Tracer("github.com/Chethan-Regala/MedAssist/internal/coordinator")

const (
	// AlertBothHigh fires when both agents report their top severity.
	AlertBothHigh = "Both symptom urgency and medication risk are high - immediate medical attention recommended"

	// AlertElevated fires when exactly one agent reports its top severity.
	AlertElevated = "Elevated concern detected - consider medical consultation"
)

// Notifier delivers cross-agent alerts to an external channel.
type Notifier interface {
	SendAlert(ctx context.Context, userID, alert string, tv *triage.Verdict, mv *medication.Verdict) error
}

// Hooks are optional instrumentation callbacks for agent orchestration.
type Hooks struct {
	OnAgentRun func(agent string, duration float64, success bool)
	OnAlert    func(level string)
}

// AssessRequest asks for a combined health assessment.
type AssessRequest struct {
	UserID      string   `json:"user_id"`
	Symptoms    string   `json:"symptoms"`
	Context     string   `json:"context,omitempty"`
	Medications []string `json:"medications,omitempty"`
	SessionID   string   `json:"session_id,omitempty"`
}

// Summary describes which agents ran and what they concluded together.
type Summary struct {
	AgentsExecuted []string `json:"agents_executed"`
	PrimaryConcern string   `json:"primary_concern,omitempty"`
	MedicationRisk string   `json:"medication_risk,omitempty"`
	Alert          string   `json:"coordination_alert,omitempty"`
}

// Result carries the merged outcome of a combined assessment. A nil
// branch verdict means that agent did not run or failed; the other
// branch is still delivered.
type Result struct {
	SessionID    string              `json:"session_id"`
	Triage       *triage.Verdict     `json:"triage,omitempty"`
	TriageID     string              `json:"triage_id,omitempty"`
	Medication   *medication.Verdict `json:"medication_safety,omitempty"`
	MedicationID string              `json:"medication_check_id,omitempty"`
	Coordination Summary             `json:"coordination"`
}

// Coordinator fans requests out to the agents and owns persistence of
// their results.
type Coordinator struct {
	engine   *triage.Engine
	checker  *medication.Checker
	sessions session.Store
	bank     *memory.Bank
	store    history.Store
	notifier Notifier
	logger   log.Logger
	hooks    Hooks
}

// New wires a Coordinator. bank, store, and notifier may be nil; the
// corresponding behavior is skipped.
func New(engine *triage.Engine, checker *medication.Checker, sessions session.Store,
	bank *memory.Bank, store history.Store, notifier Notifier, logger log.Logger, hooks Hooks) *Coordinator {
	if logger == nil {
		logger = log.Nop()
	}
	return &Coordinator{
		engine:   engine,
		checker:  checker,
		sessions: sessions,
		bank:     bank,
		store:    store,
		notifier: notifier,
		logger:   logger,
		hooks:    hooks,
	}
}

// Assess runs the triage and medication agents concurrently and merges
// their verdicts. A failing branch is omitted from the result; the
// assessment as a whole only fails when no session can be established.
func (c *Coordinator) Assess(ctx context.Context, req *AssessRequest) (*Result, error) {
	ctx, span := tracer.Start(ctx, "coordinator.assess")
	defer span.End()

	span.SetAttributes(
		attribute.String("medassist.user.id", req.UserID),
		attribute.Int("medassist.medications.count", len(req.Medications)),
	)

	sess, err := c.session(ctx, req)
	if err != nil {
		return nil, err
	}

	res := &Result{SessionID: sess.ID}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		rec := c.runTriage(ctx, req, sess.ID)
		if rec != nil {
			res.Triage = &rec.Verdict
			res.TriageID = rec.ID
		}
	}()

	if len(req.Medications) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec := c.runMedicationCheck(ctx, req, sess.ID)
			if rec != nil {
				res.Medication = &rec.Verdict
				res.MedicationID = rec.ID
			}
		}()
	}
	wg.Wait()

	res.Coordination = c.summarize(ctx, req.UserID, res)

	span.SetAttributes(attribute.StringSlice("medassist.agents", res.Coordination.AgentsExecuted))
	if res.Coordination.Alert != "" {
		span.SetAttributes(attribute.String("medassist.alert", res.Coordination.Alert))
	}
	return res, nil
}

// Triage runs the triage agent alone and persists the outcome.
func (c *Coordinator) Triage(ctx context.Context, req *triage.Request) (*history.TriageRecord, error) {
	ctx, span := tracer.Start(ctx, "coordinator.triage")
	defer span.End()

	start := time.Now()
	verdict := c.engine.Run(ctx, req)

	rec := &history.TriageRecord{
		ID:        ulid.Make().String(),
		UserID:    req.UserID,
		Symptoms:  req.Symptoms,
		Context:   req.Context,
		Verdict:   *verdict,
		Duration:  time.Since(start).Seconds(),
		CreatedAt: time.Now().UTC(),
	}
	c.persistTriage(ctx, rec)
	return rec, nil
}

// CheckMedications runs the medication agent alone and persists the outcome.
func (c *Coordinator) CheckMedications(ctx context.Context, req *medication.CheckRequest) (*history.MedicationRecord, error) {
	ctx, span := tracer.Start(ctx, "coordinator.check_medications")
	defer span.End()

	verdict := c.checker.Check(ctx, req)

	rec := &history.MedicationRecord{
		ID:          ulid.Make().String(),
		UserID:      req.UserID,
		Medications: req.Medications,
		Verdict:     *verdict,
		CreatedAt:   time.Now().UTC(),
	}
	c.persistMedication(ctx, rec)
	return rec, nil
}

func (c *Coordinator) session(ctx context.Context, req *AssessRequest) (*session.Session, error) {
	if req.SessionID != "" {
		sess, ok, err := c.sessions.Get(ctx, req.SessionID)
		if err != nil {
			return nil, fmt.Errorf("load session: %w", err)
		}
		if ok {
			return sess, nil
		}
	}
	sess, err := c.sessions.Create(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return sess, nil
}

// runTriage executes the triage branch. A panic inside the branch is
// contained here so the other agent's verdict still gets delivered.
func (c *Coordinator) runTriage(ctx context.Context, req *AssessRequest, sessionID string) (rec *history.TriageRecord) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			rec = nil
			c.logger.Error(ctx, fmt.Errorf("panic: %v", r), "triage agent failed", "user_id", req.UserID)
			c.observeAgent("triage", start, false)
		}
	}()

	_ = c.sessions.AppendMessage(ctx, sessionID, session.Message{
		Role:     "user",
		Content:  req.Symptoms,
		Metadata: map[string]string{"type": "symptom_report"},
	})

	rec, err := c.Triage(ctx, &triage.Request{
		UserID:   req.UserID,
		Symptoms: req.Symptoms,
		Context:  c.enrichContext(ctx, req, sessionID),
	})
	if err != nil {
		c.observeAgent("triage", start, false)
		return nil
	}

	_ = c.sessions.AppendMessage(ctx, sessionID, session.Message{
		Role:     "assistant",
		Content:  fmt.Sprintf("Triage: %s (%s)", rec.Verdict.Category, rec.Verdict.Urgency),
		Metadata: map[string]string{"type": "triage_result"},
	})

	c.observeAgent("triage", start, true)
	return rec
}

func (c *Coordinator) runMedicationCheck(ctx context.Context, req *AssessRequest, sessionID string) (rec *history.MedicationRecord) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			rec = nil
			c.logger.Error(ctx, fmt.Errorf("panic: %v", r), "medication agent failed", "user_id", req.UserID)
			c.observeAgent("medication", start, false)
		}
	}()

	rec, err := c.CheckMedications(ctx, &medication.CheckRequest{
		UserID:      req.UserID,
		Medications: req.Medications,
	})
	if err != nil {
		c.observeAgent("medication", start, false)
		return nil
	}

	_ = c.sessions.AppendMessage(ctx, sessionID, session.Message{
		Role:     "assistant",
		Content:  fmt.Sprintf("Medication check: %s risk", rec.Verdict.RiskLevel),
		Metadata: map[string]string{"type": "medication_result"},
	})

	c.observeAgent("medication", start, true)
	return rec
}

// enrichContext folds the user's historical context into the request
// context so the reasoning prompt can see it.
func (c *Coordinator) enrichContext(ctx context.Context, req *AssessRequest, sessionID string) string {
	if c.bank == nil {
		return req.Context
	}

	hist, err := c.bank.ContextualHistory(ctx, req.UserID, req.Symptoms)
	if err != nil {
		c.logger.Warn(ctx, "contextual history unavailable", "user_id", req.UserID, "error", err)
		return req.Context
	}

	_ = c.sessions.SetContext(ctx, sessionID, "contextual_history", hist)

	if req.Context == "" {
		return "History: " + hist
	}
	return req.Context + "\nHistory: " + hist
}

// summarize builds the coordination summary and fires the cross-agent
// alert when both verdicts are present.
func (c *Coordinator) summarize(ctx context.Context, userID string, res *Result) Summary {
	var s Summary

	if res.Triage != nil {
		s.AgentsExecuted = append(s.AgentsExecuted, "triage")
		s.PrimaryConcern = fmt.Sprintf("%s (%s urgency)", res.Triage.Category, res.Triage.Urgency)
	}
	if res.Medication != nil {
		s.AgentsExecuted = append(s.AgentsExecuted, "medication_safety")
		s.MedicationRisk = string(res.Medication.RiskLevel)
	}

	if res.Triage == nil || res.Medication == nil {
		return s
	}

	triageHigh := res.Triage.Urgency == triage.UrgencyHigh
	medHigh := res.Medication.RiskLevel == medication.SeverityHigh

	switch {
	case triageHigh && medHigh:
		s.Alert = AlertBothHigh
		c.observeAlert("critical")
	case triageHigh || medHigh:
		s.Alert = AlertElevated
		c.observeAlert("elevated")
	}

	if s.Alert != "" {
		c.logger.Warn(ctx, "coordination alert raised",
			"user_id", userID,
			"alert", s.Alert,
			"triage_urgency", string(res.Triage.Urgency),
			"medication_risk", string(res.Medication.RiskLevel),
		)
		if c.notifier != nil {
			if err := c.notifier.SendAlert(ctx, userID, s.Alert, res.Triage, res.Medication); err != nil {
				c.logger.Warn(ctx, "alert notification failed", "error", err)
			}
		}
	}
	return s
}

// persistTriage writes best-effort: a storage failure is logged, not
// surfaced, because the verdict has already been decided.
func (c *Coordinator) persistTriage(ctx context.Context, rec *history.TriageRecord) {
	if c.store == nil {
		return
	}
	if err := c.store.PutTriage(ctx, rec); err != nil {
		c.logger.Error(ctx, err, "persist triage failed", "triage_id", rec.ID)
	}
}

func (c *Coordinator) persistMedication(ctx context.Context, rec *history.MedicationRecord) {
	if c.store == nil {
		return
	}
	if err := c.store.PutMedication(ctx, rec); err != nil {
		c.logger.Error(ctx, err, "persist medication check failed", "check_id", rec.ID)
	}
}

func (c *Coordinator) observeAgent(agent string, start time.Time, success bool) {
	if c.hooks.OnAgentRun != nil {
		c.hooks.OnAgentRun(agent, time.Since(start).Seconds(), success)
	}
}

func (c *Coordinator) observeAlert(level string) {
	if c.hooks.OnAlert != nil {
		c.hooks.OnAlert(level)
	}
}
