package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
)

func newRedisBackendTest(t *testing.T) (*RedisBackend, *redis.Client, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRedisBackend(rdb, "gz"), rdb, func() {
		rdb.Close()
		mr.Close()
	}
}

func TestRedisBackendSaveSessionIsTransactional(t *testing.T) {
	backend, rdb, done := newRedisBackendTest(t)
	defer done()
	ctx := context.Background()
	store := NewStore(backend)

	if !store.SaveSession(ctx, "T", testUser(), "R") {
		t.Fatal("expected save to succeed")
	}
	raw, err := rdb.Get(ctx, "gz:token").Result()
	if err != nil {
		t.Fatalf("read prefixed token: %v", err)
	}
	if raw != `"T"` {
		t.Fatalf("expected JSON-encoded token, got %q", raw)
	}
	keys := store.Keys(ctx)
	if len(keys) != 4 {
		t.Fatalf("expected four session keys, got %v", keys)
	}
}

func TestRedisBackendClearLeavesOtherPrefixes(t *testing.T) {
	backend, rdb, done := newRedisBackendTest(t)
	defer done()
	ctx := context.Background()
	store := NewStore(backend)

	if err := rdb.Set(ctx, "other:token", "keep", 0).Err(); err != nil {
		t.Fatalf("seed: %v", err)
	}
	store.SaveSession(ctx, "T", testUser(), "")
	if !store.Clear(ctx) {
		t.Fatal("expected clear to succeed")
	}
	if store.Token(ctx) != "" {
		t.Fatal("expected token cleared")
	}
	if v, err := rdb.Get(ctx, "other:token").Result(); err != nil || v != "keep" {
		t.Fatalf("expected foreign key untouched, got %q %v", v, err)
	}
}

func TestRedisBackendMissingKeyAndOutage(t *testing.T) {
	backend, _, done := newRedisBackendTest(t)
	ctx := context.Background()

	if _, err := backend.Get(ctx, KeyToken); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	done()
	if _, err := backend.Get(ctx, KeyToken); !errors.Is(err, ErrBackendUnavailable) {
		t.Fatalf("expected ErrBackendUnavailable after shutdown, got %v", err)
	}
	if NewStore(backend).SaveSession(ctx, "T", testUser(), "") {
		t.Fatal("expected save to fail against unavailable backend")
	}
}

func TestFileBackendPersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.json")

	first := NewStore(NewFileBackend(path))
	if !first.SaveSession(ctx, "T", testUser(), "R") {
		t.Fatal("expected save to succeed")
	}

	second := NewStore(NewFileBackend(path))
	if second.Token(ctx) != "T" || second.RefreshToken(ctx) != "R" {
		t.Fatal("expected session to survive reopen")
	}
	if u := second.User(ctx); u == nil || u.UserID != "u_7" {
		t.Fatalf("unexpected user after reopen %#v", u)
	}

	if !second.ClearSession(ctx) {
		t.Fatal("expected clear to succeed")
	}
	if first.IsAuthenticated(ctx) {
		t.Fatal("expected clear to be visible to other instance")
	}
}

func TestFileBackendCorruptFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(path, []byte("garbage"), 0o600); err != nil {
		t.Fatalf("seed: %v", err)
	}
	backend := NewFileBackend(path)
	if _, err := backend.Get(ctx, KeyToken); !errors.Is(err, ErrBackendUnavailable) {
		t.Fatalf("expected corrupt file to surface as unavailable, got %v", err)
	}
	store := NewStore(backend)
	if store.Token(ctx) != "" {
		t.Fatal("expected corrupt file to read as absent")
	}
	if !store.Clear(ctx) {
		t.Fatal("expected clear to remove corrupt file")
	}
	if !store.SaveSession(ctx, "T", testUser(), "") {
		t.Fatal("expected save after clear to succeed")
	}
}

func TestInspectToken(t *testing.T) {
	exp := time.Now().Add(-time.Minute).Truncate(time.Second)
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "u_7",
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	signed, err := tok.SignedString([]byte("k"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	info, err := InspectToken(signed)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if info.Subject != "u_7" || !info.ExpiresAt.Equal(exp) {
		t.Fatalf("unexpected info %#v", info)
	}
	if !info.Expired(time.Now()) {
		t.Fatal("expected expired token")
	}

	if _, err := InspectToken("opaque-token"); !errors.Is(err, ErrOpaqueToken) {
		t.Fatalf("expected ErrOpaqueToken, got %v", err)
	}
}
