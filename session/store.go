package session

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// Store is the typed session store used by the client. Every accessor swallows
// backend and decode failures: reads report "absent" and writes report false,
// with the cause logged.
type Store struct {
	backend Backend
	logger  *zap.Logger
	now     func() time.Time
}

// Option configures a [Store].
type Option func(*Store)

// WithLogger sets the logger used for swallowed failures.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source used for login timestamps and expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore creates a [Store] over backend. A nil backend uses a fresh
// [MemoryBackend].
func NewStore(backend Backend, opts ...Option) *Store {
	if backend == nil {
		backend = NewMemoryBackend()
	}
	s := &Store{
		backend: backend,
		logger:  zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Backend returns the underlying backend.
func (s *Store) Backend() Backend {
	return s.backend
}

// Get decodes the JSON value stored under key into out. It returns false when
// the key is missing, the backend fails, or the value does not decode.
func (s *Store) Get(ctx context.Context, key string, out any) bool {
	raw, err := s.backend.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.Warn("session read failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		s.logger.Warn("session value undecodable", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// Get is the generic form of [Store.Get].
func Get[T any](ctx context.Context, s *Store, key string) (T, bool) {
	var v T
	if !s.Get(ctx, key, &v) {
		var zero T
		return zero, false
	}
	return v, true
}

// Set JSON-encodes value and stores it under key.
func (s *Store) Set(ctx context.Context, key string, value any) bool {
	raw, err := json.Marshal(value)
	if err != nil {
		s.logger.Warn("session value unencodable", zap.String("key", key), zap.Error(err))
		return false
	}
	if err := s.backend.Set(ctx, key, raw); err != nil {
		s.logger.Warn("session write failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// Remove deletes key. Removing an absent key succeeds.
func (s *Store) Remove(ctx context.Context, key string) bool {
	if err := s.backend.Delete(ctx, key); err != nil {
		s.logger.Warn("session delete failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// Clear removes every key held by the backend.
func (s *Store) Clear(ctx context.Context) bool {
	if err := s.backend.Clear(ctx); err != nil {
		s.logger.Warn("session clear failed", zap.Error(err))
		return false
	}
	return true
}

// Keys lists the keys currently held by the backend. Failures yield nil.
func (s *Store) Keys(ctx context.Context) []string {
	keys, err := s.backend.Keys(ctx)
	if err != nil {
		s.logger.Warn("session key listing failed", zap.Error(err))
		return nil
	}
	return keys
}

// Token returns the stored bearer token, or "" when absent.
func (s *Store) Token(ctx context.Context) string {
	token, _ := Get[string](ctx, s, KeyToken)
	return token
}

// SetToken stores the bearer token.
func (s *Store) SetToken(ctx context.Context, token string) bool {
	return s.Set(ctx, KeyToken, token)
}

// User returns the cached user, or nil when absent.
func (s *Store) User(ctx context.Context) *User {
	u, ok := Get[User](ctx, s, KeyUser)
	if !ok {
		return nil
	}
	return &u
}

// SetUser replaces the cached user.
func (s *Store) SetUser(ctx context.Context, u User) bool {
	return s.Set(ctx, KeyUser, u)
}

// RefreshToken returns the stored refresh token, or "" when absent.
func (s *Store) RefreshToken(ctx context.Context) string {
	token, _ := Get[string](ctx, s, KeyRefreshToken)
	return token
}

// SetRefreshToken stores the refresh token.
func (s *Store) SetRefreshToken(ctx context.Context, token string) bool {
	return s.Set(ctx, KeyRefreshToken, token)
}

// LoginTime returns the recorded login time and whether one exists.
func (s *Store) LoginTime(ctx context.Context) (time.Time, bool) {
	ms, ok := Get[int64](ctx, s, KeyLoginTime)
	if !ok {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}

// SaveSession persists a freshly issued session. Token, user and login time
// are always written; the refresh token is written when non-empty and removed
// otherwise so a stale one never survives a new login.
//
// Backends implementing [Batcher] receive the whole plan in one call. Other
// backends are written key by key in the order token, user, login time,
// refresh token; a failure part way leaves the earlier keys in place and the
// result is false.
func (s *Store) SaveSession(ctx context.Context, token string, user User, refreshToken string) bool {
	sets, deletes, err := s.plan(token, user, refreshToken)
	if err != nil {
		s.logger.Warn("session plan failed", zap.Error(err))
		return false
	}

	if b, ok := s.backend.(Batcher); ok {
		if err := b.Apply(ctx, sets, deletes); err != nil {
			s.logger.Warn("session save failed", zap.Error(err))
			return false
		}
		return true
	}

	ok := true
	for _, k := range SessionKeys {
		v, set := sets[k]
		if !set {
			continue
		}
		if err := s.backend.Set(ctx, k, v); err != nil {
			s.logger.Warn("session save failed", zap.String("key", k), zap.Error(err))
			ok = false
		}
	}
	for _, k := range deletes {
		if !s.Remove(ctx, k) {
			ok = false
		}
	}
	return ok
}

func (s *Store) plan(token string, user User, refreshToken string) (map[string][]byte, []string, error) {
	sets := make(map[string][]byte, len(SessionKeys))
	var deletes []string

	rawToken, err := json.Marshal(token)
	if err != nil {
		return nil, nil, err
	}
	rawUser, err := json.Marshal(user)
	if err != nil {
		return nil, nil, err
	}
	sets[KeyToken] = rawToken
	sets[KeyUser] = rawUser
	sets[KeyLoginTime] = []byte(strconv.FormatInt(s.now().UnixMilli(), 10))

	if refreshToken != "" {
		rawRefresh, err := json.Marshal(refreshToken)
		if err != nil {
			return nil, nil, err
		}
		sets[KeyRefreshToken] = rawRefresh
	} else {
		deletes = append(deletes, KeyRefreshToken)
	}
	return sets, deletes, nil
}

// ClearSession removes all four session keys. It returns true only when every
// removal succeeded.
func (s *Store) ClearSession(ctx context.Context) bool {
	if b, ok := s.backend.(Batcher); ok {
		if err := b.Apply(ctx, nil, SessionKeys); err != nil {
			s.logger.Warn("session clear failed", zap.Error(err))
			return false
		}
		return true
	}
	ok := true
	for _, k := range SessionKeys {
		if !s.Remove(ctx, k) {
			ok = false
		}
	}
	return ok
}

// IsExpired reports whether the session is older than maxAge, or has no login
// timestamp at all. A non-positive maxAge uses [DefaultMaxAge].
func (s *Store) IsExpired(ctx context.Context, maxAge time.Duration) bool {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	loginAt, ok := s.LoginTime(ctx)
	if !ok {
		return true
	}
	return s.now().Sub(loginAt) > maxAge
}

// IsAuthenticated reports whether both a token and a user are stored.
func (s *Store) IsAuthenticated(ctx context.Context) bool {
	return s.Token(ctx) != "" && s.User(ctx) != nil
}

// UpdateUser merges patch into the cached user and returns the result. It
// returns nil, false when no user is cached; nothing is written in that case.
func (s *Store) UpdateUser(ctx context.Context, patch UserPatch) (*User, bool) {
	current := s.User(ctx)
	if current == nil {
		return nil, false
	}
	merged := current.Apply(patch)
	if !s.SetUser(ctx, merged) {
		return nil, false
	}
	return &merged, true
}
