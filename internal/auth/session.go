package auth

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	SessionTTL    = 24 * time.Hour
	SessionCookie = "session_id"
)

// Sessions is the session persistence used by the auth handlers and
// the RequireAuth middleware.
type Sessions interface {
	Create(ctx context.Context, userID int64) (string, error)
	Get(ctx context.Context, sessionID string) (int64, bool, error)
	Delete(ctx context.Context, sessionID string) error
}

// SessionStore wraps Redis for session management.
type SessionStore struct {
	rdb *redis.Client
}

func NewSessionStore(rdb *redis.Client) *SessionStore {
	return &SessionStore{rdb: rdb}
}

// Create stores a new session mapping sessionID -> userID.
func (s *SessionStore) Create(ctx context.Context, userID int64) (string, error) {
	sid := uuid.New().String()
	err := s.rdb.Set(ctx, "session:"+sid, strconv.FormatInt(userID, 10), SessionTTL).Err()
	return sid, err
}

// Get returns the userID for a session, with ok=false if the session
// is missing or expired.
func (s *SessionStore) Get(ctx context.Context, sessionID string) (int64, bool, error) {
	val, err := s.rdb.Get(ctx, "session:"+sessionID).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	userID, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, err
	}
	return userID, true, nil
}

// Delete removes a session.
func (s *SessionStore) Delete(ctx context.Context, sessionID string) error {
	return s.rdb.Del(ctx, "session:"+sessionID).Err()
}

type principalKey struct{}

// WithPrincipal stores the authenticated user's id in the context.
func WithPrincipal(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, principalKey{}, userID)
}

// PrincipalFrom returns the authenticated user's id from the context.
func PrincipalFrom(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(principalKey{}).(int64)
	return id, ok
}
