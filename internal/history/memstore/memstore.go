// Package memstore provides an in-memory implementation of
// history.Store. Suitable for dev/testing.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Chethan-Regala/MedAssist/internal/history"
)

// Store holds assessment records in memory.
type Store struct {
	mu          sync.RWMutex
	triages     map[string]*history.TriageRecord
	byUser      map[string][]string // user ID -> triage IDs, insertion order
	medications map[string][]*history.MedicationRecord
}

// New initializes an empty in-memory Store.
func New() *Store {
	return &Store{
		triages:     make(map[string]*history.TriageRecord),
		byUser:      make(map[string][]string),
		medications: make(map[string][]*history.MedicationRecord),
	}
}

// PutTriage stores a copy of the record.
func (s *Store) PutTriage(_ context.Context, r *history.TriageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	if _, seen := s.triages[r.ID]; !seen {
		s.byUser[r.UserID] = append(s.byUser[r.UserID], r.ID)
	}
	s.triages[r.ID] = &cp
	return nil
}

// GetTriage retrieves a triage record by ID. Returns a copy.
func (s *Store) GetTriage(_ context.Context, id string) (*history.TriageRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.triages[id]
	if !ok {
		return nil, false, nil
	}
	cp := *r
	return &cp, true, nil
}

// TriagesByUser returns the user's records since the cutoff, newest
// first, capped at limit (0 = no cap).
func (s *Store) TriagesByUser(_ context.Context, userID string, since time.Time, limit int) ([]*history.TriageRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*history.TriageRecord
	for _, id := range s.byUser[userID] {
		r := s.triages[id]
		if r.CreatedAt.Before(since) {
			continue
		}
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// PutMedication stores a copy of the record.
func (s *Store) PutMedication(_ context.Context, r *history.MedicationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.medications[r.UserID] = append(s.medications[r.UserID], &cp)
	return nil
}

// MedicationsByUser returns the user's medication checks since the
// cutoff, newest first, capped at limit (0 = no cap).
func (s *Store) MedicationsByUser(_ context.Context, userID string, since time.Time, limit int) ([]*history.MedicationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*history.MedicationRecord
	for _, r := range s.medications[userID] {
		if r.CreatedAt.Before(since) {
			continue
		}
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Users returns every user ID with at least one stored record.
func (s *Store) Users(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]bool)
	var out []string
	for userID := range s.byUser {
		if !seen[userID] {
			seen[userID] = true
			out = append(out, userID)
		}
	}
	for userID := range s.medications {
		if !seen[userID] {
			seen[userID] = true
			out = append(out, userID)
		}
	}
	sort.Strings(out)
	return out, nil
}
