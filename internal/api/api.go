// Package api exposes the assessment HTTP endpoints.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/Chethan-Regala/MedAssist/internal/coordinator"
	"github.com/Chethan-Regala/MedAssist/internal/history"
	"github.com/Chethan-Regala/MedAssist/internal/medication"
	"github.com/Chethan-Regala/MedAssist/internal/memory"
	"github.com/Chethan-Regala/MedAssist/internal/session"
	"github.com/Chethan-Regala/MedAssist/internal/tools"
	"github.com/Chethan-Regala/MedAssist/internal/triage"
)

// Assessor defines the orchestration operations the API needs.
type Assessor interface {
	Assess(ctx context.Context, req *coordinator.AssessRequest) (*coordinator.Result, error)
	Triage(ctx context.Context, req *triage.Request) (*history.TriageRecord, error)
	CheckMedications(ctx context.Context, req *medication.CheckRequest) (*history.MedicationRecord, error)
}

// API holds dependencies for HTTP handlers.
type API struct {
	logger   log.Logger
	coord    Assessor
	store    history.Store
	sessions session.Store
	bank     *memory.Bank
	registry *tools.Registry
}

// New creates a new API handler. bank may be nil; the summary endpoint
// then returns 404.
func New(logger log.Logger, coord Assessor, store history.Store, sessions session.Store,
	bank *memory.Bank, registry *tools.Registry) *API {
	if logger == nil {
		logger = log.Nop()
	}
	if coord == nil {
		panic(xerrors.New("coordinator is required"))
	}
	return &API{
		logger:   logger,
		coord:    coord,
		store:    store,
		sessions: sessions,
		bank:     bank,
		registry: registry,
	}
}

// RegisterRoutes attaches API endpoints to the router.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/triage", a.handleTriage)
		r.Get("/triage/{id}", a.handleGetTriage)
		r.Post("/medications/check", a.handleCheckMedications)
		r.Post("/assess", a.handleAssess)
		r.Get("/sessions/{id}", a.handleGetSession)
		r.Get("/users/{id}/summary", a.handleHealthSummary)
		r.Get("/tools", a.handleListTools)
	})
}

func (a *API) handleTriage(w http.ResponseWriter, r *http.Request) {
	var req triage.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid payload")
		return
	}
	req.Symptoms = strings.TrimSpace(req.Symptoms)
	if req.UserID == "" || req.Symptoms == "" {
		badRequest(w, "user_id and symptoms are required")
		return
	}

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("medassist.user.id", req.UserID))

	rec, err := a.coord.Triage(r.Context(), &req)
	if err != nil {
		a.internalError(w, r, err, "triage failed")
		return
	}

	span.SetAttributes(attribute.String("medassist.triage.id", rec.ID))
	writeJSON(w, http.StatusOK, rec)
}

func (a *API) handleGetTriage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("medassist.triage.id", id))

	rec, ok, err := a.store.GetTriage(r.Context(), id)
	if err != nil {
		a.internalError(w, r, err, "failed to get triage record")
		return
	}
	if !ok {
		notFound(w)
		return
	}

	span.SetAttributes(attribute.String("medassist.verdict.urgency", string(rec.Verdict.Urgency)))
	writeJSON(w, http.StatusOK, rec)
}

func (a *API) handleCheckMedications(w http.ResponseWriter, r *http.Request) {
	var req medication.CheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid payload")
		return
	}
	if req.UserID == "" || len(req.Medications) == 0 {
		badRequest(w, "user_id and medications are required")
		return
	}

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(
		attribute.String("medassist.user.id", req.UserID),
		attribute.Int("medassist.medications.count", len(req.Medications)),
	)

	rec, err := a.coord.CheckMedications(r.Context(), &req)
	if err != nil {
		a.internalError(w, r, err, "medication check failed")
		return
	}

	span.SetAttributes(attribute.String("medassist.medication.risk", string(rec.Verdict.RiskLevel)))
	writeJSON(w, http.StatusOK, rec)
}

func (a *API) handleAssess(w http.ResponseWriter, r *http.Request) {
	var req coordinator.AssessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid payload")
		return
	}
	req.Symptoms = strings.TrimSpace(req.Symptoms)
	if req.UserID == "" || req.Symptoms == "" {
		badRequest(w, "user_id and symptoms are required")
		return
	}

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("medassist.user.id", req.UserID))

	res, err := a.coord.Assess(r.Context(), &req)
	if err != nil {
		a.internalError(w, r, err, "assessment failed")
		return
	}

	span.SetAttributes(attribute.String("medassist.session.id", res.SessionID))
	writeJSON(w, http.StatusOK, res)
}

func (a *API) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	sess, ok, err := a.sessions.Get(r.Context(), id)
	if err != nil {
		a.internalError(w, r, err, "failed to get session")
		return
	}
	if !ok {
		notFound(w)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (a *API) handleHealthSummary(w http.ResponseWriter, r *http.Request) {
	if a.bank == nil {
		notFound(w)
		return
	}
	id := chi.URLParam(r, "id")

	days := 0
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			badRequest(w, "days must be a non-negative integer")
			return
		}
		days = n
	}

	summary, err := a.bank.Summary(r.Context(), id, days)
	if err != nil {
		a.internalError(w, r, err, "failed to build health summary")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (a *API) handleListTools(w http.ResponseWriter, r *http.Request) {
	var defs []tools.ToolDef
	if a.registry != nil {
		defs = a.registry.Defs()
	}
	writeJSON(w, http.StatusOK, map[string]any{"tools": defs})
}

func (a *API) internalError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	a.logger.Error(r.Context(), err, msg)
	http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
}

func notFound(w http.ResponseWriter) {
	http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
