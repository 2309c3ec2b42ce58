//go:build integration
// +build integration

package test

import (
	"context"
	"os"
	"testing"

	glazeAuth "github.com/MrEthical07/glazeAuth"
	"github.com/MrEthical07/glazeAuth/internal/authtest"
	"github.com/MrEthical07/glazeAuth/platform"
	"github.com/MrEthical07/glazeAuth/session"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// redisMode describes which Redis backend the compatibility suite is running against.
type redisMode struct {
	name  string
	setup func(t *testing.T) (redis.UniversalClient, func())
}

// redisModes returns the set of Redis backends to test.
// miniredis is always available.
// Real Redis standalone is used when REDIS_ADDR is set (e.g. "127.0.0.1:6379").
func redisModes(t *testing.T) []redisMode {
	t.Helper()
	modes := []redisMode{
		{
			name: "miniredis",
			setup: func(t *testing.T) (redis.UniversalClient, func()) {
				t.Helper()
				mr, err := miniredis.Run()
				if err != nil {
					t.Fatalf("miniredis: %v", err)
				}
				rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
				return rdb, func() { _ = rdb.Close(); mr.Close() }
			},
		},
	}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		modes = append(modes, redisMode{
			name: "standalone:" + addr,
			setup: func(t *testing.T) (redis.UniversalClient, func()) {
				t.Helper()
				rdb := redis.NewClient(&redis.Options{Addr: addr})
				if err := rdb.FlushDB(context.Background()).Err(); err != nil {
					t.Skipf("redis %s unavailable: %v", addr, err)
				}
				return rdb, func() { _ = rdb.Close() }
			},
		})
	}
	return modes
}

var compatAccount = authtest.Account{
	User: session.User{
		ID:       "3",
		UserID:   "u3",
		Nickname: "Glazer",
		Email:    "glazer@example.com",
	},
	Password: "tenmoku",
	WxCode:   "wx-3",
}

func newRedisClient(t *testing.T, rdb redis.UniversalClient, baseURL string) *glazeAuth.Client {
	t.Helper()
	cfg := glazeAuth.DefaultConfig()
	cfg.Server.BaseURL = baseURL
	cfg.Session.Backend = glazeAuth.BackendRedis
	cfg.Session.KeyPrefix = "compat"

	presenter := &authtest.Presenter{}
	client, err := glazeAuth.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithPresenter(presenter).
		WithScheduler(platform.NewManualScheduler(presenter)).
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return client
}

func TestRedisSessionSharedAcrossClients(t *testing.T) {
	for _, mode := range redisModes(t) {
		t.Run(mode.name, func(t *testing.T) {
			rdb, done := mode.setup(t)
			defer done()
			srv := authtest.NewServer(compatAccount)
			defer srv.Close()
			ctx := context.Background()

			first := newRedisClient(t, rdb, srv.URL)
			defer first.Close()
			if _, err := first.LoginWithEmail(ctx, compatAccount.User.Email, compatAccount.Password); err != nil {
				t.Fatalf("login: %v", err)
			}

			second := newRedisClient(t, rdb, srv.URL)
			defer second.Close()
			if !second.Restore(ctx) {
				t.Fatal("expected second client to restore the shared session")
			}
			u := second.CurrentUser(ctx)
			if u == nil || u.UserID != compatAccount.User.UserID {
				t.Fatalf("unexpected restored user: %+v", u)
			}

			second.Logout(ctx)
			if first.CheckLogin(ctx) {
				t.Fatal("expected first client to observe the shared logout")
			}
			if keys := first.SessionKeys(ctx); len(keys) != 0 {
				t.Fatalf("expected no session keys after logout, got %v", keys)
			}
		})
	}
}

func TestRedisClearKeepsForeignKeys(t *testing.T) {
	for _, mode := range redisModes(t) {
		t.Run(mode.name, func(t *testing.T) {
			rdb, done := mode.setup(t)
			defer done()
			ctx := context.Background()

			if err := rdb.Set(ctx, "other:token", "keep", 0).Err(); err != nil {
				t.Fatalf("seed: %v", err)
			}
			store := session.NewStore(session.NewRedisBackend(rdb, "compat"))
			if !store.SaveSession(ctx, "T", compatAccount.User, "R") {
				t.Fatal("save failed")
			}
			if !store.ClearSession(ctx) {
				t.Fatal("clear failed")
			}
			if store.IsAuthenticated(ctx) {
				t.Fatal("expected cleared session")
			}
			if v, err := rdb.Get(ctx, "other:token").Result(); err != nil || v != "keep" {
				t.Fatalf("foreign key disturbed: %q %v", v, err)
			}
		})
	}
}
