package triage

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Chethan-Regala/MedAssist/internal/tools"
	"github.com/linnemanlabs/go-core/log"
)

var tracer = otel.Tracer("github.com/Chethan-Regala/MedAssist/internal/triage")

const (
	// LookupToolName is the registry key of the medical-context tool the
	// engine consults before calling the reasoning backend.
	LookupToolName = "medical_lookup"

	// lookupTimeout bounds one context-enrichment call so a slow lookup
	// can never delay the triage decision past this budget.
	lookupTimeout = 5 * time.Second

	// lookupQueryLimit caps the symptom text embedded in a lookup query.
	lookupQueryLimit = 50

	// lookupResultLimit caps how many lookup results reach the prompt.
	lookupResultLimit = 3
)

// CompleteEvent describes one finished engine run for instrumentation.
type CompleteEvent struct {
	Urgency       Urgency
	Action        Action
	ShortCircuit  bool
	CriticalFlags int
	UrgentFlags   int
	Duration      float64
}

// EngineHooks are optional instrumentation callbacks invoked during a
// run. Nil hooks are skipped.
type EngineHooks struct {
	OnLLMCall  func(duration float64, parsed bool)
	OnToolCall func(name string, duration float64, isError bool)
	OnComplete func(e *CompleteEvent)
}

// Engine composes the deterministic red-flag scan, the reasoning
// backend, and guardrail reconciliation into one triage decision. It is
// stateless across requests; the only shared data are the fixed phrase
// vocabularies and the injected dependencies.
type Engine struct {
	provider Provider
	detector *Detector
	registry *tools.Registry
	logger   log.Logger
	hooks    EngineHooks
}

// NewEngine creates a triage engine with the given dependencies. A nil
// registry disables context enrichment.
func NewEngine(provider Provider, detector *Detector, registry *tools.Registry, logger log.Logger, hooks EngineHooks) *Engine {
	if logger == nil {
		logger = log.Nop()
	}
	return &Engine{
		provider: provider,
		detector: detector,
		registry: registry,
		logger:   logger,
		hooks:    hooks,
	}
}

// Run executes one triage decision. It never returns an error: every
// failure path inside (reasoning, parsing, context lookup) degrades to a
// safe verdict. The flag scan always completes before any reasoning call
// so a known critical symptom can never be left to the model.
func (e *Engine) Run(ctx context.Context, req *Request) *Verdict {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "triage.run", trace.WithAttributes(
		attribute.String("medassist.user.id", req.UserID),
		attribute.Int("medassist.symptoms.length", len(req.Symptoms)),
	))
	defer span.End()

	scanText := req.Symptoms
	if req.Context != "" {
		scanText += " " + req.Context
	}
	flags := e.detector.Detect(scanText)
	span.SetAttributes(
		attribute.Int("medassist.flags.critical", len(flags.Critical)),
		attribute.Int("medassist.flags.urgent", len(flags.Urgent)),
	)

	var verdict *Verdict
	shortCircuit := flags.HasCritical()

	if shortCircuit {
		// Terminal state: no network call, retry, or model failure can
		// prevent a known critical symptom from producing go_to_er.
		span.SetAttributes(attribute.Bool("medassist.redflag.override", true))
		span.AddEvent("redflag.override", trace.WithAttributes(
			attribute.StringSlice("medassist.flags", flags.Critical),
		))
		e.logger.Info(ctx, "critical red-flag override triggered", "flags", strings.Join(flags.Critical, ","))
		verdict = OverrideVerdict(flags.Critical)
	} else {
		verdict = e.reason(ctx, span, req, flags)
	}

	span.SetAttributes(
		attribute.String("medassist.verdict.urgency", string(verdict.Urgency)),
		attribute.String("medassist.verdict.action", string(verdict.RecommendedAction)),
	)

	if e.hooks.OnComplete != nil {
		e.hooks.OnComplete(&CompleteEvent{
			Urgency:       verdict.Urgency,
			Action:        verdict.RecommendedAction,
			ShortCircuit:  shortCircuit,
			CriticalFlags: len(flags.Critical),
			UrgentFlags:   len(flags.Urgent),
			Duration:      time.Since(start).Seconds(),
		})
	}
	return verdict
}

// reason runs the ReasoningCall and Reconcile states: enrich, prompt,
// parse, reconcile. Reached only when no critical flag matched.
func (e *Engine) reason(ctx context.Context, span trace.Span, req *Request, flags FlagScan) *Verdict {
	span.AddEvent("gathering medical context")
	medicalContext := e.gatherMedicalContext(ctx, req.Symptoms)
	span.SetAttributes(attribute.Bool("medassist.context.available", medicalContext != contextUnavailable))

	prompt := buildPrompt(req, medicalContext)

	span.AddEvent("calling reasoning backend")
	llmStart := time.Now()
	raw, err := e.provider.Complete(ctx, prompt)
	if err != nil {
		// Providers fall back internally; a surfaced error is treated
		// like unusable output, never propagated.
		e.logger.Error(ctx, err, "reasoning call failed, reconciling with empty output")
		raw = ""
	}

	out, parsed := ParseModelOutput(raw)
	if e.hooks.OnLLMCall != nil {
		e.hooks.OnLLMCall(time.Since(llmStart).Seconds(), parsed)
	}
	span.SetAttributes(attribute.Bool("medassist.llm.parsed", parsed))
	if !parsed {
		e.logger.Warn(ctx, "reasoning output unparsable, using safe default")
	}

	return Reconcile(flags, out)
}

const contextUnavailable = "Medical context lookup unavailable."

// gatherMedicalContext consults the medical-lookup tool for related
// conditions. Every failure mode degrades to a fixed placeholder string;
// nothing here can fail the enclosing decision.
func (e *Engine) gatherMedicalContext(ctx context.Context, symptoms string) string {
	if e.registry == nil {
		return "No additional medical context available."
	}
	tool, ok := e.registry.Get(LookupToolName)
	if !ok {
		return "No additional medical context available."
	}

	query := symptoms
	if len(query) > lookupQueryLimit {
		query = query[:lookupQueryLimit]
	}
	params, err := json.Marshal(map[string]string{
		"query": query,
		"kind":  "conditions",
	})
	if err != nil {
		return contextUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	toolStart := time.Now()
	output, err := tool.Execute(ctx, params)
	if e.hooks.OnToolCall != nil {
		e.hooks.OnToolCall(LookupToolName, time.Since(toolStart).Seconds(), err != nil)
	}
	if err != nil {
		e.logger.Warn(ctx, "medical context lookup failed", "error", err.Error())
		return contextUnavailable
	}

	var result struct {
		Success bool     `json:"success"`
		Results []string `json:"results"`
	}
	if err := json.Unmarshal(output, &result); err != nil || !result.Success {
		return "No additional medical context available."
	}

	conditions := make([]string, 0, lookupResultLimit)
	for _, c := range result.Results {
		if c == "" {
			continue
		}
		conditions = append(conditions, c)
		if len(conditions) == lookupResultLimit {
			break
		}
	}
	if len(conditions) == 0 {
		return "No related conditions found."
	}
	return "Related conditions: " + strings.Join(conditions, ", ")
}
