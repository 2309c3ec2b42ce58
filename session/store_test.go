package session

import (
	"context"
	"sync"
	"testing"
	"time"
)

func testUser() User {
	return User{ID: "7", UserID: "u_7", Nickname: "potter", Email: "a@b.co", HasEmailBind: true, CreatedAt: "2024-01-01"}
}

// flakyBackend is a non-batching backend that fails writes for selected keys.
type flakyBackend struct {
	mu      sync.Mutex
	inner   *MemoryBackend
	failSet map[string]bool
	writes  []string
}

func newFlakyBackend(failKeys ...string) *flakyBackend {
	f := &flakyBackend{inner: NewMemoryBackend(), failSet: map[string]bool{}}
	for _, k := range failKeys {
		f.failSet[k] = true
	}
	return f
}

func (f *flakyBackend) Get(ctx context.Context, key string) ([]byte, error) {
	return f.inner.Get(ctx, key)
}

func (f *flakyBackend) Set(ctx context.Context, key string, value []byte) error {
	f.mu.Lock()
	f.writes = append(f.writes, key)
	fail := f.failSet[key]
	f.mu.Unlock()
	if fail {
		return ErrBackendUnavailable
	}
	return f.inner.Set(ctx, key, value)
}

func (f *flakyBackend) Delete(ctx context.Context, key string) error {
	return f.inner.Delete(ctx, key)
}

func (f *flakyBackend) Clear(ctx context.Context) error {
	return f.inner.Clear(ctx)
}

func (f *flakyBackend) Keys(ctx context.Context) ([]string, error) {
	return f.inner.Keys(ctx)
}

func TestSaveSessionRoundTrip(t *testing.T) {
	ctx := context.Background()
	now := time.UnixMilli(1_700_000_000_000)
	store := NewStore(NewMemoryBackend(), WithClock(func() time.Time { return now }))

	if !store.SaveSession(ctx, "T", testUser(), "R") {
		t.Fatal("expected save to succeed")
	}
	if got := store.Token(ctx); got != "T" {
		t.Fatalf("expected token T, got %q", got)
	}
	if got := store.RefreshToken(ctx); got != "R" {
		t.Fatalf("expected refresh token R, got %q", got)
	}
	u := store.User(ctx)
	if u == nil || *u != testUser() {
		t.Fatalf("unexpected user %#v", u)
	}
	at, ok := store.LoginTime(ctx)
	if !ok || !at.Equal(now) {
		t.Fatalf("expected login time %v, got %v (%v)", now, at, ok)
	}
	if !store.IsAuthenticated(ctx) {
		t.Fatal("expected authenticated session")
	}

	if !store.ClearSession(ctx) {
		t.Fatal("expected clear to succeed")
	}
	if store.IsAuthenticated(ctx) {
		t.Fatal("expected no session after clear")
	}
	if keys := store.Keys(ctx); len(keys) != 0 {
		t.Fatalf("expected no keys after clear, got %v", keys)
	}
}

func TestSaveSessionWithoutRefreshRemovesStaleOne(t *testing.T) {
	ctx := context.Background()
	store := NewStore(nil)

	store.SetRefreshToken(ctx, "old")
	if !store.SaveSession(ctx, "T", testUser(), "") {
		t.Fatal("expected save to succeed")
	}
	if got := store.RefreshToken(ctx); got != "" {
		t.Fatalf("expected stale refresh token removed, got %q", got)
	}
}

func TestSaveSessionSequentialOrderAndPartialFailure(t *testing.T) {
	ctx := context.Background()
	backend := newFlakyBackend(KeyLoginTime)
	store := NewStore(backend)

	if store.SaveSession(ctx, "T", testUser(), "R") {
		t.Fatal("expected partial failure to report false")
	}
	want := []string{KeyToken, KeyUser, KeyLoginTime, KeyRefreshToken}
	if len(backend.writes) != len(want) {
		t.Fatalf("expected writes %v, got %v", want, backend.writes)
	}
	for i := range want {
		if backend.writes[i] != want[i] {
			t.Fatalf("expected writes %v, got %v", want, backend.writes)
		}
	}
	if store.Token(ctx) != "T" || store.User(ctx) == nil {
		t.Fatal("expected earlier keys to remain after partial failure")
	}
	if !store.IsExpired(ctx, time.Hour) {
		t.Fatal("expected missing timestamp to count as expired")
	}
}

func TestIsExpired(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	store := NewStore(nil, WithClock(func() time.Time { return now }))

	if !store.IsExpired(ctx, 0) {
		t.Fatal("expected absent timestamp to be expired")
	}

	store.Set(ctx, KeyLoginTime, now.Add(-8*24*time.Hour).UnixMilli())
	if !store.IsExpired(ctx, 0) {
		t.Fatal("expected 8 day old session to exceed default max age")
	}
	if store.IsExpired(ctx, 10*24*time.Hour) {
		t.Fatal("expected 8 day old session within 10 day max age")
	}

	store.Set(ctx, KeyLoginTime, now.Add(-time.Minute).UnixMilli())
	if store.IsExpired(ctx, 0) {
		t.Fatal("expected fresh session not expired")
	}
}

func TestGetSwallowsDecodeFailure(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	store := NewStore(backend)

	if err := backend.Set(ctx, KeyUser, []byte("{not json")); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if u := store.User(ctx); u != nil {
		t.Fatalf("expected nil user for undecodable value, got %#v", u)
	}
	if _, ok := Get[User](ctx, store, "missing"); ok {
		t.Fatal("expected missing key to report absent")
	}
}

func TestUpdateUserMergesOnlyWhenPresent(t *testing.T) {
	ctx := context.Background()
	store := NewStore(nil)
	nick := "glazer"

	if _, ok := store.UpdateUser(ctx, UserPatch{Nickname: &nick}); ok {
		t.Fatal("expected update without a cached user to be a no-op")
	}
	if store.User(ctx) != nil {
		t.Fatal("expected no user to be created by update")
	}

	store.SetUser(ctx, testUser())
	merged, ok := store.UpdateUser(ctx, UserPatch{Nickname: &nick})
	if !ok {
		t.Fatal("expected update to succeed")
	}
	if merged.Nickname != "glazer" || merged.Email != "a@b.co" {
		t.Fatalf("unexpected merge result %#v", merged)
	}
	if got := store.User(ctx); got.Nickname != "glazer" {
		t.Fatalf("expected persisted nickname, got %q", got.Nickname)
	}
}

func TestConcurrentSavesLastWriteWins(t *testing.T) {
	ctx := context.Background()
	store := NewStore(nil)

	var wg sync.WaitGroup
	for _, tok := range []string{"A", "B"} {
		wg.Add(1)
		go func(tok string) {
			defer wg.Done()
			u := testUser()
			u.UserID = "user_" + tok
			store.SaveSession(ctx, tok, u, "")
		}(tok)
	}
	wg.Wait()

	token := store.Token(ctx)
	u := store.User(ctx)
	if token != "A" && token != "B" {
		t.Fatalf("unexpected token %q", token)
	}
	if u == nil || u.UserID != "user_"+token {
		t.Fatalf("expected batched save to keep token and user paired, got %q / %#v", token, u)
	}
}

func TestRemoveMissingKeySucceeds(t *testing.T) {
	store := NewStore(nil)
	if !store.Remove(context.Background(), "nope") {
		t.Fatal("expected removal of absent key to succeed")
	}
}
