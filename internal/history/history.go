// Package history defines persistence for finished assessment results.
// The decision pipeline only ever writes here; nothing in this package
// feeds back into a current decision except as the opaque context string
// the memory bank assembles.
package history

import (
	"context"
	"time"

	"github.com/Chethan-Regala/MedAssist/internal/medication"
	"github.com/Chethan-Regala/MedAssist/internal/triage"
)

// TriageRecord is one stored triage decision.
type TriageRecord struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	Symptoms  string         `json:"symptoms"`
	Context   string         `json:"context,omitempty"`
	Verdict   triage.Verdict `json:"verdict"`
	Duration  float64        `json:"duration_seconds"`
	CreatedAt time.Time      `json:"created_at"`
}

// MedicationRecord is one stored medication safety check.
type MedicationRecord struct {
	ID          string             `json:"id"`
	UserID      string             `json:"user_id"`
	Medications []string           `json:"medications"`
	Verdict     medication.Verdict `json:"verdict"`
	CreatedAt   time.Time          `json:"created_at"`
}

// Store is the persistence interface for assessment history.
type Store interface {
	PutTriage(ctx context.Context, r *TriageRecord) error
	GetTriage(ctx context.Context, id string) (*TriageRecord, bool, error)
	TriagesByUser(ctx context.Context, userID string, since time.Time, limit int) ([]*TriageRecord, error)
	PutMedication(ctx context.Context, r *MedicationRecord) error
	MedicationsByUser(ctx context.Context, userID string, since time.Time, limit int) ([]*MedicationRecord, error)
	Users(ctx context.Context) ([]string, error)
}
