package intake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// ErrSessionNotFound means the session expired or never existed.
var ErrSessionNotFound = errors.New("intake: session not found")

const defaultSessionTTL = 24 * time.Hour

// SessionStore persists intake sessions in Redis between messages.
// Sessions expire after the TTL; an expired session simply starts over.
type SessionStore struct {
	redis  *redis.Client
	ttl    time.Duration
	tracer trace.Tracer
}

// NewSessionStore creates a Redis-backed session store.
func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	if client == nil {
		panic("intake: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &SessionStore{
		redis:  client,
		ttl:    ttl,
		tracer: otel.Tracer("garage.internal.intake.sessions"),
	}
}

// Save persists the session, refreshing its TTL.
func (s *SessionStore) Save(ctx context.Context, session *Session) error {
	ctx, span := s.tracer.Start(ctx, "intake.save_session")
	defer span.End()

	data, err := json.Marshal(session)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("intake: failed to marshal session: %w", err)
	}
	if err := s.redis.Set(ctx, sessionKey(session.ID), data, s.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("intake: failed to persist session: %w", err)
	}
	return nil
}

// Load retrieves a session by id.
func (s *SessionStore) Load(ctx context.Context, id string) (*Session, error) {
	ctx, span := s.tracer.Start(ctx, "intake.load_session")
	defer span.End()

	data, err := s.redis.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		span.RecordError(err)
		return nil, fmt.Errorf("intake: failed to load session: %w", err)
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("intake: failed to decode session: %w", err)
	}
	return &session, nil
}

// Delete removes a session.
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	if err := s.redis.Del(ctx, sessionKey(id)).Err(); err != nil {
		return fmt.Errorf("intake: failed to delete session: %w", err)
	}
	return nil
}

func sessionKey(id string) string {
	return fmt.Sprintf("intake:session:%s", id)
}

func estimateKey(id string) string {
	return fmt.Sprintf("intake:estimate:%s", id)
}

// SaveEstimate persists the two-step estimator state for a session.
// A nil state deletes the key.
func (s *SessionStore) SaveEstimate(ctx context.Context, id string, state *EstimateState) error {
	ctx, span := s.tracer.Start(ctx, "intake.save_estimate")
	defer span.End()

	if state == nil {
		if err := s.redis.Del(ctx, estimateKey(id)).Err(); err != nil {
			span.RecordError(err)
			return fmt.Errorf("intake: failed to delete estimate state: %w", err)
		}
		return nil
	}

	data, err := json.Marshal(state)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("intake: failed to marshal estimate state: %w", err)
	}
	if err := s.redis.Set(ctx, estimateKey(id), data, s.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("intake: failed to persist estimate state: %w", err)
	}
	return nil
}

// LoadEstimate retrieves the estimator state for a session. Returns nil
// with no error when no state is stored.
func (s *SessionStore) LoadEstimate(ctx context.Context, id string) (*EstimateState, error) {
	ctx, span := s.tracer.Start(ctx, "intake.load_estimate")
	defer span.End()

	data, err := s.redis.Get(ctx, estimateKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("intake: failed to load estimate state: %w", err)
	}

	var state EstimateState
	if err := json.Unmarshal(data, &state); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("intake: failed to decode estimate state: %w", err)
	}
	return &state, nil
}
