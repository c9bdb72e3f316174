package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/Chethan-Regala/MedAssist/internal/history"
	"github.com/Chethan-Regala/MedAssist/internal/medication"
	"github.com/Chethan-Regala/MedAssist/internal/triage"
)

func triageRecord(id, userID string, createdAt time.Time) *history.TriageRecord {
	return &history.TriageRecord{
		ID:       id,
		UserID:   userID,
		Symptoms: "headache",
		Verdict: triage.Verdict{
			Category:          triage.CategoryNeurological,
			Urgency:           triage.UrgencyModerate,
			RecommendedAction: triage.ActionPrimaryCare,
		},
		CreatedAt: createdAt,
	}
}

func TestPutGetTriage(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := New()
	rec := triageRecord("t-1", "u-1", time.Now())
	if err := s.PutTriage(ctx, rec); err != nil {
		t.Fatalf("PutTriage: %v", err)
	}

	// Mutating the original must not affect the stored copy.
	rec.Symptoms = "changed"

	got, ok, err := s.GetTriage(ctx, "t-1")
	if err != nil {
		t.Fatalf("GetTriage: %v", err)
	}
	if !ok {
		t.Fatal("expected record to exist")
	}
	if got.Symptoms != "headache" {
		t.Errorf("symptoms = %q, want stored copy unaffected by caller mutation", got.Symptoms)
	}

	if _, ok, err := s.GetTriage(ctx, "missing"); err != nil || ok {
		t.Errorf("GetTriage(missing) = ok=%v err=%v, want false, nil", ok, err)
	}
}

func TestTriagesByUser_OrderSinceLimit(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := New()
	base := time.Now().Add(-3 * time.Hour)
	for i, id := range []string{"t-1", "t-2", "t-3"} {
		rec := triageRecord(id, "u-1", base.Add(time.Duration(i)*time.Hour))
		if err := s.PutTriage(ctx, rec); err != nil {
			t.Fatalf("PutTriage: %v", err)
		}
	}

	all, err := s.TriagesByUser(ctx, "u-1", time.Time{}, 0)
	if err != nil {
		t.Fatalf("TriagesByUser: %v", err)
	}
	if len(all) != 3 || all[0].ID != "t-3" || all[2].ID != "t-1" {
		ids := make([]string, len(all))
		for i, r := range all {
			ids[i] = r.ID
		}
		t.Errorf("order = %v, want newest first [t-3 t-2 t-1]", ids)
	}

	recent, err := s.TriagesByUser(ctx, "u-1", base.Add(30*time.Minute), 0)
	if err != nil {
		t.Fatalf("TriagesByUser: %v", err)
	}
	if len(recent) != 2 {
		t.Errorf("since cutoff returned %d records, want 2", len(recent))
	}

	capped, err := s.TriagesByUser(ctx, "u-1", time.Time{}, 1)
	if err != nil {
		t.Fatalf("TriagesByUser: %v", err)
	}
	if len(capped) != 1 || capped[0].ID != "t-3" {
		t.Errorf("limit 1 returned %v, want just t-3", capped)
	}

	none, err := s.TriagesByUser(ctx, "nobody", time.Time{}, 0)
	if err != nil {
		t.Fatalf("TriagesByUser: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("unknown user returned %d records", len(none))
	}
}

func TestMedicationsByUser(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := New()
	now := time.Now()
	for i, id := range []string{"m-1", "m-2"} {
		rec := &history.MedicationRecord{
			ID:          id,
			UserID:      "u-1",
			Medications: []string{"aspirin"},
			Verdict:     medication.Verdict{RiskLevel: medication.SeverityLow},
			CreatedAt:   now.Add(time.Duration(i) * time.Minute),
		}
		if err := s.PutMedication(ctx, rec); err != nil {
			t.Fatalf("PutMedication: %v", err)
		}
	}

	got, err := s.MedicationsByUser(ctx, "u-1", time.Time{}, 0)
	if err != nil {
		t.Fatalf("MedicationsByUser: %v", err)
	}
	if len(got) != 2 || got[0].ID != "m-2" {
		t.Errorf("records = %v, want newest first", got)
	}

	latest, err := s.MedicationsByUser(ctx, "u-1", time.Time{}, 1)
	if err != nil {
		t.Fatalf("MedicationsByUser: %v", err)
	}
	if len(latest) != 1 || latest[0].ID != "m-2" {
		t.Errorf("limit 1 = %v, want just m-2", latest)
	}
}

func TestUsers(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := New()
	if err := s.PutTriage(ctx, triageRecord("t-1", "charlie", time.Now())); err != nil {
		t.Fatalf("PutTriage: %v", err)
	}
	if err := s.PutMedication(ctx, &history.MedicationRecord{ID: "m-1", UserID: "alice", CreatedAt: time.Now()}); err != nil {
		t.Fatalf("PutMedication: %v", err)
	}
	if err := s.PutMedication(ctx, &history.MedicationRecord{ID: "m-2", UserID: "charlie", CreatedAt: time.Now()}); err != nil {
		t.Fatalf("PutMedication: %v", err)
	}

	users, err := s.Users(ctx)
	if err != nil {
		t.Fatalf("Users: %v", err)
	}
	if len(users) != 2 || users[0] != "alice" || users[1] != "charlie" {
		t.Errorf("users = %v, want [alice charlie]", users)
	}
}
