package glazeAuth

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/glazeAuth/internal/authtest"
	"github.com/MrEthical07/glazeAuth/platform"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestAuditJSONSinkReceivesLoginFailure(t *testing.T) {
	srv := authtest.NewServer(testAccount)
	defer srv.Close()

	out := &syncBuffer{}
	client, err := New().
		WithBaseURL(srv.URL).
		WithScheduler(platform.NewManualScheduler(nil)).
		WithAuditSink(NewJSONWriterSink(out)).
		Build()
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	if _, err := client.LoginWithEmail(context.Background(), "potter@example.com", "wrong-password"); err == nil {
		t.Fatal("expected login failure")
	}
	client.Close()

	var found bool
	for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		var ev AuditEvent
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			t.Fatalf("invalid JSON line %q: %v", line, err)
		}
		if ev.EventType == AuditLoginFailure {
			found = true
			if ev.Success || ev.Error == "" || ev.ID == "" || ev.Timestamp.IsZero() {
				t.Fatalf("unexpected failure event %+v", ev)
			}
		}
	}
	if !found {
		t.Fatalf("login_failure not written, got %q", out.String())
	}
}

func TestAuditZapSinkLogsThroughClient(t *testing.T) {
	srv := authtest.NewServer(testAccount)
	defer srv.Close()

	core, logs := observer.New(zap.InfoLevel)
	client, err := New().
		WithBaseURL(srv.URL).
		WithScheduler(platform.NewManualScheduler(nil)).
		WithAuditSink(NewZapSink(zap.New(core))).
		Build()
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	if _, err := client.LoginWithEmail(context.Background(), "potter@example.com", "kiln-secret"); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	client.Close()

	if logs.FilterMessage(AuditLoginSuccess).Len() != 1 {
		t.Fatalf("expected one login_success log, got %v", logs.All())
	}
}

func TestAuditDisabledByDefault(t *testing.T) {
	client, err := New().WithBaseURL("https://api.example.com").Build()
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	defer client.Close()

	if client.audit != nil {
		t.Fatal("audit dispatcher must be nil when disabled")
	}
	if client.AuditDropped() != 0 {
		t.Fatal("expected zero drops")
	}
}

func TestAuditEventsStampedWithClockAndPlatform(t *testing.T) {
	srv := authtest.NewServer(testAccount)
	defer srv.Close()

	at := time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)
	sink := NewChannelSink(16)
	client, err := New().
		WithBaseURL(srv.URL).
		WithScheduler(platform.NewManualScheduler(nil)).
		WithProbe(platform.StaticProbe{Env: platform.PlatformWeb}).
		WithClock(func() time.Time { return at }).
		WithAuditSink(sink).
		Build()
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	if _, err := client.LoginWithEmail(context.Background(), "potter@example.com", "kiln-secret"); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	client.Close()

	ev := <-sink.Events()
	if ev.EventType != AuditLoginSuccess {
		t.Fatalf("expected login_success first, got %+v", ev)
	}
	if ev.Platform != string(platform.PlatformWeb) || !ev.Timestamp.Equal(at) {
		t.Fatalf("expected event stamped from client clock and platform, got %+v", ev)
	}
}
