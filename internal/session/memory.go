package session

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultMaxSessions caps how many live sessions the in-memory
	// store keeps before evicting the least recently used ones.
	DefaultMaxSessions = 1000

	// DefaultTTL is how long an idle session survives.
	DefaultTTL = 24 * time.Hour
)

// MemoryStore keeps sessions in process memory. Expired and
// over-the-cap sessions are evicted on Create.
type MemoryStore struct {
	mu          sync.Mutex
	sessions    map[string]*Session
	maxSessions int
	ttl         time.Duration
	now         func() time.Time
}

// NewMemoryStore returns an empty in-memory store. Zero values for
// maxSessions and ttl select the defaults.
func NewMemoryStore(maxSessions int, ttl time.Duration) *MemoryStore {
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		sessions:    make(map[string]*Session),
		maxSessions: maxSessions,
		ttl:         ttl,
		now:         time.Now,
	}
}

// Create starts a new session for the user and evicts stale ones.
func (s *MemoryStore) Create(_ context.Context, userID string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	sess := &Session{
		ID:           uuid.NewString(),
		UserID:       userID,
		CreatedAt:    now,
		LastAccessed: now,
		Context:      make(map[string]string),
	}
	s.sessions[sess.ID] = sess
	s.cleanupLocked(now)

	return copySession(sess), nil
}

// Get returns a copy of the session and refreshes its last-accessed time.
func (s *MemoryStore) Get(_ context.Context, id string) (*Session, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, false, nil
	}
	sess.LastAccessed = s.now()
	return copySession(sess), true, nil
}

// AppendMessage adds a conversation turn to the session. Unknown
// session IDs are a silent no-op, matching expired-session behavior.
func (s *MemoryStore) AppendMessage(_ context.Context, id string, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = s.now()
	}
	sess.Messages = append(sess.Messages, msg)
	sess.LastAccessed = s.now()
	return nil
}

// SetContext stores a key/value pair on the session context map.
func (s *MemoryStore) SetContext(_ context.Context, id, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil
	}
	sess.Context[key] = value
	sess.LastAccessed = s.now()
	return nil
}

// RecentMessages returns up to limit of the newest messages, oldest first.
func (s *MemoryStore) RecentMessages(_ context.Context, id string, limit int) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, nil
	}
	sess.LastAccessed = s.now()

	msgs := sess.Messages
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

// cleanupLocked drops expired sessions, then trims the oldest
// sessions down to the cap. Caller must hold the lock.
func (s *MemoryStore) cleanupLocked(now time.Time) {
	cutoff := now.Add(-s.ttl)
	for id, sess := range s.sessions {
		if sess.LastAccessed.Before(cutoff) {
			delete(s.sessions, id)
		}
	}

	if len(s.sessions) <= s.maxSessions {
		return
	}

	type entry struct {
		id       string
		accessed time.Time
	}
	all := make([]entry, 0, len(s.sessions))
	for id, sess := range s.sessions {
		all = append(all, entry{id: id, accessed: sess.LastAccessed})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].accessed.Before(all[j].accessed) })

	for _, e := range all[:len(s.sessions)-s.maxSessions] {
		delete(s.sessions, e.id)
	}
}

func copySession(sess *Session) *Session {
	out := *sess
	out.Messages = make([]Message, len(sess.Messages))
	copy(out.Messages, sess.Messages)
	out.Context = make(map[string]string, len(sess.Context))
	for k, v := range sess.Context {
		out.Context[k] = v
	}
	return &out
}
