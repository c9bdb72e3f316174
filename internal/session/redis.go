package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// RedisStore keeps sessions in Redis so multiple instances can share
// conversation state. Expiry is delegated to key TTLs; every write
// and read refreshes the TTL.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	tracer trace.Tracer
}

// NewRedisStore wraps the given client. A zero ttl selects DefaultTTL.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{
		client: client,
		ttl:    ttl,
		tracer: otel.Tracer("github.com/Chethan-Regala/MedAssist/internal/session"),
	}
}

func sessionKey(id string) string {
	return "medassist:session:" + id
}

// Create starts a new session for the user.
func (s *RedisStore) Create(ctx context.Context, userID string) (*Session, error) {
	ctx, span := s.tracer.Start(ctx, "session.create")
	defer span.End()

	now := time.Now().UTC()
	sess := &Session{
		ID:           uuid.NewString(),
		UserID:       userID,
		CreatedAt:    now,
		LastAccessed: now,
		Context:      make(map[string]string),
	}
	if err := s.save(ctx, sess); err != nil {
		span.RecordError(err)
		return nil, err
	}
	return sess, nil
}

// Get loads a session and refreshes its TTL. Missing keys are
// reported as not found, not as errors.
func (s *RedisStore) Get(ctx context.Context, id string) (*Session, bool, error) {
	ctx, span := s.tracer.Start(ctx, "session.get")
	defer span.End()

	sess, err := s.load(ctx, id)
	if err != nil {
		span.RecordError(err)
		return nil, false, err
	}
	if sess == nil {
		return nil, false, nil
	}

	sess.LastAccessed = time.Now().UTC()
	if err := s.save(ctx, sess); err != nil {
		span.RecordError(err)
		return nil, false, err
	}
	return sess, true, nil
}

// AppendMessage adds a conversation turn. Expired or unknown
// sessions are a silent no-op.
func (s *RedisStore) AppendMessage(ctx context.Context, id string, msg Message) error {
	ctx, span := s.tracer.Start(ctx, "session.append_message")
	defer span.End()

	sess, err := s.load(ctx, id)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if sess == nil {
		return nil
	}

	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	sess.Messages = append(sess.Messages, msg)
	sess.LastAccessed = time.Now().UTC()
	if err := s.save(ctx, sess); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

// SetContext stores a key/value pair on the session context map.
func (s *RedisStore) SetContext(ctx context.Context, id, key, value string) error {
	ctx, span := s.tracer.Start(ctx, "session.set_context")
	defer span.End()

	sess, err := s.load(ctx, id)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if sess == nil {
		return nil
	}

	if sess.Context == nil {
		sess.Context = make(map[string]string)
	}
	sess.Context[key] = value
	sess.LastAccessed = time.Now().UTC()
	if err := s.save(ctx, sess); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

// RecentMessages returns up to limit of the newest messages, oldest first.
func (s *RedisStore) RecentMessages(ctx context.Context, id string, limit int) ([]Message, error) {
	ctx, span := s.tracer.Start(ctx, "session.recent_messages")
	defer span.End()

	sess, err := s.load(ctx, id)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if sess == nil {
		return nil, nil
	}

	msgs := sess.Messages
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return msgs, nil
}

func (s *RedisStore) save(ctx context.Context, sess *Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := s.client.Set(ctx, sessionKey(sess.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	return nil
}

// load returns (nil, nil) when the key does not exist.
func (s *RedisStore) load(ctx context.Context, id string) (*Session, error) {
	data, err := s.client.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("load session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &sess, nil
}
