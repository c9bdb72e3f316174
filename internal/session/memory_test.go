package session

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStore_CreateAndGet(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewMemoryStore(0, 0)

	sess, err := s.Create(ctx, "u-1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if sess.ID == "" {
		t.Fatal("expected non-empty session ID")
	}
	if sess.UserID != "u-1" {
		t.Errorf("user = %q, want u-1", sess.UserID)
	}

	got, ok, err := s.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("expected session to exist")
	}
	if got.ID != sess.ID {
		t.Errorf("got session %q, want %q", got.ID, sess.ID)
	}

	if _, ok, err := s.Get(ctx, "missing"); err != nil || ok {
		t.Errorf("Get(missing) = ok=%v err=%v, want false, nil", ok, err)
	}
}

func TestMemoryStore_TTLEviction(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewMemoryStore(0, time.Hour)
	current := time.Now()
	s.now = func() time.Time { return current }

	old, err := s.Create(ctx, "u-1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// The next Create runs cleanup with the clock past the TTL.
	current = current.Add(2 * time.Hour)
	fresh, err := s.Create(ctx, "u-1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, ok, _ := s.Get(ctx, old.ID); ok {
		t.Error("expected expired session to be evicted")
	}
	if _, ok, _ := s.Get(ctx, fresh.ID); !ok {
		t.Error("expected fresh session to survive")
	}
}

func TestMemoryStore_CapEviction(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewMemoryStore(2, time.Hour)
	current := time.Now()
	s.now = func() time.Time { return current }

	first, err := s.Create(ctx, "u-1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	current = current.Add(time.Minute)
	second, err := s.Create(ctx, "u-1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	current = current.Add(time.Minute)
	third, err := s.Create(ctx, "u-1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, ok, _ := s.Get(ctx, first.ID); ok {
		t.Error("expected least recently used session to be evicted")
	}
	for _, id := range []string{second.ID, third.ID} {
		if _, ok, _ := s.Get(ctx, id); !ok {
			t.Errorf("expected session %s to survive", id)
		}
	}
}

func TestMemoryStore_Messages(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewMemoryStore(0, 0)
	sess, err := s.Create(ctx, "u-1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	for _, content := range []string{"one", "two", "three"} {
		if err := s.AppendMessage(ctx, sess.ID, Message{Role: "user", Content: content}); err != nil {
			t.Fatalf("AppendMessage: %v", err)
		}
	}

	recent, err := s.RecentMessages(ctx, sess.ID, 2)
	if err != nil {
		t.Fatalf("RecentMessages: %v", err)
	}
	if len(recent) != 2 || recent[0].Content != "two" || recent[1].Content != "three" {
		t.Errorf("recent = %v, want [two three] oldest first", recent)
	}
	if recent[0].Timestamp.IsZero() {
		t.Error("expected timestamp to be filled on append")
	}

	// Unknown session is a silent no-op.
	if err := s.AppendMessage(ctx, "missing", Message{Role: "user", Content: "x"}); err != nil {
		t.Errorf("AppendMessage(missing) = %v, want nil", err)
	}
}

func TestMemoryStore_Context(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewMemoryStore(0, 0)
	sess, err := s.Create(ctx, "u-1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := s.SetContext(ctx, sess.ID, "contextual_history", "prior rash"); err != nil {
		t.Fatalf("SetContext: %v", err)
	}

	got, ok, err := s.Get(ctx, sess.ID)
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if got.Context["contextual_history"] != "prior rash" {
		t.Errorf("context = %v", got.Context)
	}

	// Returned session is a copy.
	got.Context["contextual_history"] = "mutated"
	again, _, _ := s.Get(ctx, sess.ID)
	if again.Context["contextual_history"] != "prior rash" {
		t.Error("stored session mutated through returned copy")
	}
}
