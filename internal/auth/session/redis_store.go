package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/firekit-dev/firekit/internal/auth/domain"
)

const (
	sessionKeyPrefix = "auth:session:" // Session data: auth:session:{session_id}
	userSessionsKey  = "auth:user:"    // Set of session IDs for a user: auth:user:{uid}:sessions
	stateKeyPrefix   = "auth:state:"   // Pending OAuth state: auth:state:{state}
	StateTTL         = 5 * time.Minute
)

// RedisStore keeps signed-in sessions and pending OAuth states in Redis.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// Create stores s under a fresh session ID and returns the stored session.
func (r *RedisStore) Create(ctx context.Context, s domain.Session) (*domain.Session, error) {
	if s.UID == "" {
		return nil, fmt.Errorf("session: missing uid")
	}
	s.SessionID = uuid.New().String()
	s.ExpiresAt = time.Now().Add(r.ttl)

	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("session: failed to marshal: %w", err)
	}

	pipe := r.client.Pipeline()
	pipe.Set(ctx, r.sessionKey(s.SessionID), data, r.ttl)
	pipe.SAdd(ctx, r.userSessionsKey(s.UID), s.SessionID)
	pipe.Expire(ctx, r.userSessionsKey(s.UID), r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("session: failed to create: %w", err)
	}

	return &s, nil
}

// Get returns domain.ErrSessionNotFound for unknown or expired sessions.
func (r *RedisStore) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	val, err := r.client.Get(ctx, r.sessionKey(sessionID)).Result()
	if err == redis.Nil {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("session: failed to get: %w", err)
	}

	var s domain.Session
	if err := json.Unmarshal([]byte(val), &s); err != nil {
		return nil, fmt.Errorf("session: failed to unmarshal: %w", err)
	}
	return &s, nil
}

// UpdateTokens replaces the token pair of an existing session, keeping the
// session's own expiry.
func (r *RedisStore) UpdateTokens(ctx context.Context, sessionID, idToken, refreshToken string, idTokenExpiresAt time.Time) error {
	s, err := r.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	s.IDToken = idToken
	s.IDTokenExpiresAt = idTokenExpiresAt
	if refreshToken != "" {
		s.RefreshToken = refreshToken
	}

	ttl := time.Until(s.ExpiresAt)
	if ttl <= 0 {
		return r.Delete(ctx, sessionID)
	}

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("session: failed to marshal: %w", err)
	}
	return r.client.Set(ctx, r.sessionKey(sessionID), data, ttl).Err()
}

func (r *RedisStore) Delete(ctx context.Context, sessionID string) error {
	s, err := r.Get(ctx, sessionID)
	if err == domain.ErrSessionNotFound {
		return nil
	}
	if err != nil {
		return err
	}

	pipe := r.client.Pipeline()
	pipe.Del(ctx, r.sessionKey(sessionID))
	pipe.SRem(ctx, r.userSessionsKey(s.UID), sessionID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("session: failed to delete: %w", err)
	}
	return nil
}

// DeleteAllForUser removes every session of uid, e.g. after tokens were revoked.
func (r *RedisStore) DeleteAllForUser(ctx context.Context, uid string) error {
	ids, err := r.client.SMembers(ctx, r.userSessionsKey(uid)).Result()
	if err != nil {
		return fmt.Errorf("session: failed to list sessions: %w", err)
	}

	pipe := r.client.Pipeline()
	for _, id := range ids {
		pipe.Del(ctx, r.sessionKey(id))
	}
	pipe.Del(ctx, r.userSessionsKey(uid))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("session: failed to delete sessions: %w", err)
	}
	return nil
}

// SaveState records a pending OAuth state and the path to return to.
func (r *RedisStore) SaveState(ctx context.Context, state, returnTo string) error {
	return r.client.Set(ctx, stateKeyPrefix+state, returnTo, StateTTL).Err()
}

// ConsumeState deletes a pending OAuth state and returns its return path.
func (r *RedisStore) ConsumeState(ctx context.Context, state string) (string, error) {
	if state == "" {
		return "", domain.ErrInvalidOAuthState
	}
	returnTo, err := r.client.GetDel(ctx, stateKeyPrefix+state).Result()
	if err == redis.Nil {
		return "", domain.ErrInvalidOAuthState
	}
	if err != nil {
		return "", fmt.Errorf("session: failed to consume state: %w", err)
	}
	return returnTo, nil
}

func (r *RedisStore) sessionKey(sessionID string) string {
	return fmt.Sprintf("%s%s", sessionKeyPrefix, sessionID)
}

func (r *RedisStore) userSessionsKey(uid string) string {
	return fmt.Sprintf("%s%s:sessions", userSessionsKey, uid)
}
