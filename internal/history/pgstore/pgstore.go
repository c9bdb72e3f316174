// Package pgstore provides a PostgreSQL implementation of history.Store.
package pgstore

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Chethan-Regala/MedAssist/internal/history"
	"github.com/Chethan-Regala/MedAssist/internal/medication"
	"github.com/Chethan-Regala/MedAssist/internal/triage"
)

var tracer = otel.Tracer("github.com/Chethan-Regala/MedAssist/internal/history/pgstore")

//go:embed schema.sql
var schema string

// Store persists assessment history in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New applies the schema on an existing pool and returns a ready Store.
// The pool stays owned by the caller.
func New(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

const triageColumns = `id, user_id, symptoms, context, category, urgency,
	recommended_action, red_flags, reasoning, duration_s, created_at`

// PutTriage inserts or updates a triage record.
func (s *Store) PutTriage(ctx context.Context, r *history.TriageRecord) error {
	ctx, span := tracer.Start(ctx, "pgstore.PutTriage", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "UPSERT"),
	))
	defer span.End()

	flagsJSON, err := json.Marshal(r.Verdict.RedFlags)
	if err != nil {
		return recordErr(span, fmt.Errorf("marshal red flags: %w", err))
	}

	query := `INSERT INTO triage_events (
		id, user_id, symptoms, context, category, urgency,
		recommended_action, red_flags, reasoning, duration_s, created_at
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	ON CONFLICT (id) DO UPDATE SET
		category           = EXCLUDED.category,
		urgency            = EXCLUDED.urgency,
		recommended_action = EXCLUDED.recommended_action,
		red_flags          = EXCLUDED.red_flags,
		reasoning          = EXCLUDED.reasoning,
		duration_s         = EXCLUDED.duration_s`

	_, err = s.pool.Exec(ctx, query,
		r.ID, r.UserID, r.Symptoms, r.Context,
		string(r.Verdict.Category), string(r.Verdict.Urgency), string(r.Verdict.RecommendedAction),
		flagsJSON, r.Verdict.Reasoning, r.Duration, r.CreatedAt,
	)
	if err != nil {
		return recordErr(span, fmt.Errorf("upsert triage: %w", err))
	}
	return nil
}

// GetTriage retrieves a triage record by ID.
func (s *Store) GetTriage(ctx context.Context, id string) (*history.TriageRecord, bool, error) {
	ctx, span := tracer.Start(ctx, "pgstore.GetTriage", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	query := `SELECT ` + triageColumns + ` FROM triage_events WHERE id = $1`
	r, err := scanTriageRow(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, false, recordErr(span, err)
	}
	if r == nil {
		return nil, false, nil
	}
	return r, true, nil
}

// TriagesByUser returns a user's triage records since the cutoff, newest first.
// A limit of 0 means no cap.
func (s *Store) TriagesByUser(ctx context.Context, userID string, since time.Time, limit int) ([]*history.TriageRecord, error) {
	ctx, span := tracer.Start(ctx, "pgstore.TriagesByUser", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	query := `SELECT ` + triageColumns + ` FROM triage_events
		WHERE user_id = $1 AND created_at >= $2 ORDER BY created_at DESC`
	args := []any{userID, since}
	if limit > 0 {
		query += ` LIMIT $3`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, recordErr(span, fmt.Errorf("query triages: %w", err))
	}
	defer rows.Close()

	var out []*history.TriageRecord
	for rows.Next() {
		r, err := scanTriageRow(rows)
		if err != nil {
			return nil, recordErr(span, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, recordErr(span, fmt.Errorf("iterate triages: %w", err))
	}
	return out, nil
}

// PutMedication inserts or updates a medication check record.
func (s *Store) PutMedication(ctx context.Context, r *history.MedicationRecord) error {
	ctx, span := tracer.Start(ctx, "pgstore.PutMedication", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "UPSERT"),
	))
	defer span.End()

	medsJSON, err := json.Marshal(r.Medications)
	if err != nil {
		return recordErr(span, fmt.Errorf("marshal medications: %w", err))
	}
	conflictsJSON, err := json.Marshal(r.Verdict.Conflicts)
	if err != nil {
		return recordErr(span, fmt.Errorf("marshal conflicts: %w", err))
	}

	query := `INSERT INTO medication_checks (
		id, user_id, medications, risk_level, conflicts, guidance, created_at
	) VALUES ($1,$2,$3,$4,$5,$6,$7)
	ON CONFLICT (id) DO UPDATE SET
		medications = EXCLUDED.medications,
		risk_level  = EXCLUDED.risk_level,
		conflicts   = EXCLUDED.conflicts,
		guidance    = EXCLUDED.guidance`

	_, err = s.pool.Exec(ctx, query,
		r.ID, r.UserID, medsJSON, string(r.Verdict.RiskLevel), conflictsJSON,
		r.Verdict.Guidance, r.CreatedAt,
	)
	if err != nil {
		return recordErr(span, fmt.Errorf("upsert medication check: %w", err))
	}
	return nil
}

// MedicationsByUser returns a user's medication checks since the cutoff,
// newest first. A limit of 0 means no cap.
func (s *Store) MedicationsByUser(ctx context.Context, userID string, since time.Time, limit int) ([]*history.MedicationRecord, error) {
	ctx, span := tracer.Start(ctx, "pgstore.MedicationsByUser", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	query := `SELECT id, user_id, medications, risk_level, conflicts, guidance, created_at
		FROM medication_checks
		WHERE user_id = $1 AND created_at >= $2 ORDER BY created_at DESC`
	args := []any{userID, since}
	if limit > 0 {
		query += ` LIMIT $3`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, recordErr(span, fmt.Errorf("query medication checks: %w", err))
	}
	defer rows.Close()

	var out []*history.MedicationRecord
	for rows.Next() {
		r, err := scanMedicationRow(rows)
		if err != nil {
			return nil, recordErr(span, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, recordErr(span, fmt.Errorf("iterate medication checks: %w", err))
	}
	return out, nil
}

// Users returns the distinct user IDs present in either table, sorted.
func (s *Store) Users(ctx context.Context) ([]string, error) {
	ctx, span := tracer.Start(ctx, "pgstore.Users", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	query := `SELECT DISTINCT user_id FROM (
		SELECT user_id FROM triage_events
		UNION SELECT user_id FROM medication_checks
	) u ORDER BY user_id`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, recordErr(span, fmt.Errorf("query users: %w", err))
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, recordErr(span, fmt.Errorf("scan user: %w", err))
		}
		users = append(users, id)
	}
	if err := rows.Err(); err != nil {
		return nil, recordErr(span, fmt.Errorf("iterate users: %w", err))
	}
	return users, nil
}

func scanTriageRow(row pgx.Row) (*history.TriageRecord, error) {
	var (
		r         history.TriageRecord
		category  string
		urgency   string
		action    string
		flagsJSON []byte
	)

	err := row.Scan(
		&r.ID, &r.UserID, &r.Symptoms, &r.Context, &category, &urgency,
		&action, &flagsJSON, &r.Verdict.Reasoning, &r.Duration, &r.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan triage: %w", err)
	}

	r.Verdict.Category = triage.Category(category)
	r.Verdict.Urgency = triage.Urgency(urgency)
	r.Verdict.RecommendedAction = triage.Action(action)

	if err := json.Unmarshal(flagsJSON, &r.Verdict.RedFlags); err != nil {
		return nil, fmt.Errorf("unmarshal red flags: %w", err)
	}
	return &r, nil
}

func scanMedicationRow(row pgx.Row) (*history.MedicationRecord, error) {
	var (
		r             history.MedicationRecord
		riskLevel     string
		medsJSON      []byte
		conflictsJSON []byte
	)

	err := row.Scan(
		&r.ID, &r.UserID, &medsJSON, &riskLevel, &conflictsJSON,
		&r.Verdict.Guidance, &r.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan medication check: %w", err)
	}

	r.Verdict.RiskLevel = medication.Severity(riskLevel)

	if err := json.Unmarshal(medsJSON, &r.Medications); err != nil {
		return nil, fmt.Errorf("unmarshal medications: %w", err)
	}
	if err := json.Unmarshal(conflictsJSON, &r.Verdict.Conflicts); err != nil {
		return nil, fmt.Errorf("unmarshal conflicts: %w", err)
	}
	return &r, nil
}

func recordErr(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
