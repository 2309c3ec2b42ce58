package platform

import (
	"errors"
	"testing"
	"time"
)

func TestCanUseProviderLogin(t *testing.T) {
	cases := []struct {
		name  string
		probe Probe
		want  bool
	}{
		{"app", StaticProbe{Env: PlatformApp}, true},
		{"web in provider browser", StaticProbe{Env: PlatformWeb, UA: "Mozilla/5.0 MicroMessenger/8.0"}, true},
		{"plain web", StaticProbe{Env: PlatformWeb, UA: "Mozilla/5.0 Safari"}, false},
		{"unknown platform", StaticProbe{Env: "tt"}, false},
		{"probe failure", StaticProbe{Err: ErrProbeUnavailable}, false},
		{"nil probe", nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NewResolver(tc.probe).CanUseProviderLogin(); got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

type uaFailProbe struct{}

func (uaFailProbe) Platform() (Platform, error) { return PlatformWeb, nil }
func (uaFailProbe) UserAgent() (string, error)  { return "", errors.New("navigator missing") }

func TestCanUseProviderLoginUserAgentFailure(t *testing.T) {
	if NewResolver(uaFailProbe{}).CanUseProviderLogin() {
		t.Fatal("expected user agent failure to disable provider login")
	}
}

func TestCurrentPlatformDefaultsToWeb(t *testing.T) {
	if got := NewResolver(StaticProbe{Err: ErrProbeUnavailable}).CurrentPlatform(); got != PlatformWeb {
		t.Fatalf("expected web fallback, got %q", got)
	}
	if got := NewResolver(StaticProbe{Env: PlatformApp}).CurrentPlatform(); got != PlatformApp {
		t.Fatalf("expected app, got %q", got)
	}
}

type recordingPresenter struct {
	NopPresenter
	accept bool
	routes []string
	binds  []string
}

func (p *recordingPresenter) Navigate(route string) { p.routes = append(p.routes, route) }
func (p *recordingPresenter) OfferBind(kind string) bool {
	p.binds = append(p.binds, kind)
	return p.accept
}

func TestManualSchedulerFlushAndCancel(t *testing.T) {
	p := &recordingPresenter{}
	s := NewManualScheduler(p)

	s.Schedule(1500*time.Millisecond, Command{Kind: CommandNavigate, Route: "/login"})
	h := s.Schedule(time.Second, Command{Kind: CommandOfferBind, BindType: "wx"})

	if n := len(s.Pending()); n != 2 {
		t.Fatalf("expected 2 pending, got %d", n)
	}
	if !h.Cancel() {
		t.Fatal("expected cancel of pending command to succeed")
	}
	if h.Cancel() {
		t.Fatal("expected second cancel to report false")
	}
	if ran := s.Flush(); ran != 1 {
		t.Fatalf("expected 1 command run, got %d", ran)
	}
	if len(p.routes) != 1 || p.routes[0] != "/login" {
		t.Fatalf("unexpected navigations %v", p.routes)
	}
	if len(p.binds) != 0 {
		t.Fatalf("expected canceled bind offer not to run, got %v", p.binds)
	}
}

func TestExecutorBindOfferNavigatesOnAccept(t *testing.T) {
	cmd := Command{Kind: CommandOfferBind, BindType: "email", Route: "/pages/bind-account/index?type=email"}

	declined := &recordingPresenter{}
	Executor{Presenter: declined}.Run(cmd)
	if len(declined.binds) != 1 || len(declined.routes) != 0 {
		t.Fatalf("declined offer must not navigate, got binds=%v routes=%v", declined.binds, declined.routes)
	}

	accepted := &recordingPresenter{accept: true}
	Executor{Presenter: accepted}.Run(cmd)
	if len(accepted.routes) != 1 || accepted.routes[0] != cmd.Route {
		t.Fatalf("expected navigation to %q, got %v", cmd.Route, accepted.routes)
	}
}

func TestTimerSchedulerCancel(t *testing.T) {
	p := &recordingPresenter{}
	s := NewTimerScheduler(p)
	h := s.Schedule(time.Hour, Command{Kind: CommandNavigate, Route: "/x"})
	if !h.Cancel() {
		t.Fatal("expected timer cancel to succeed")
	}
}
