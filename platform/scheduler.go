package platform

import (
	"sync"
	"time"
)

// CommandKind enumerates deferred host actions.
type CommandKind string

const (
	// CommandNavigate replaces the navigation stack with Route.
	CommandNavigate CommandKind = "navigate"
	// CommandOfferBind prompts the user to link an account of BindType and
	// navigates to Route when they accept.
	CommandOfferBind CommandKind = "offer_bind"
)

// Command is a deferred host action.
type Command struct {
	Kind     CommandKind
	Route    string
	BindType string
}

// Handle cancels a scheduled command. Cancel reports whether the command was
// stopped before it ran.
type Handle interface {
	Cancel() bool
}

// Scheduler runs commands after a delay.
type Scheduler interface {
	Schedule(delay time.Duration, cmd Command) Handle
}

// Executor performs a [Command] against a [Presenter].
type Executor struct {
	Presenter Presenter
}

// Run performs cmd.
func (e Executor) Run(cmd Command) {
	p := e.Presenter
	if p == nil {
		return
	}
	switch cmd.Kind {
	case CommandNavigate:
		p.Navigate(cmd.Route)
	case CommandOfferBind:
		if p.OfferBind(cmd.BindType) && cmd.Route != "" {
			p.Navigate(cmd.Route)
		}
	}
}

// TimerScheduler runs commands on wall-clock timers.
type TimerScheduler struct {
	exec Executor
}

// NewTimerScheduler creates a [TimerScheduler] delivering to presenter.
func NewTimerScheduler(presenter Presenter) *TimerScheduler {
	return &TimerScheduler{exec: Executor{Presenter: presenter}}
}

// Schedule runs cmd after delay on its own goroutine.
func (s *TimerScheduler) Schedule(delay time.Duration, cmd Command) Handle {
	t := time.AfterFunc(delay, func() { s.exec.Run(cmd) })
	return timerHandle{t: t}
}

type timerHandle struct {
	t *time.Timer
}

func (h timerHandle) Cancel() bool {
	return h.t.Stop()
}

// Scheduled is one entry recorded by [ManualScheduler].
type Scheduled struct {
	Delay    time.Duration
	Command  Command
	canceled bool
	ran      bool
}

// ManualScheduler records commands and runs them only when Flush is called.
// It is intended for tests and for hosts driving their own event loop.
type ManualScheduler struct {
	mu      sync.Mutex
	exec    Executor
	pending []*Scheduled
}

// NewManualScheduler creates a [ManualScheduler]. presenter may be nil.
func NewManualScheduler(presenter Presenter) *ManualScheduler {
	return &ManualScheduler{exec: Executor{Presenter: presenter}}
}

// Schedule records cmd.
func (s *ManualScheduler) Schedule(delay time.Duration, cmd Command) Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := &Scheduled{Delay: delay, Command: cmd}
	s.pending = append(s.pending, e)
	return manualHandle{s: s, e: e}
}

// Pending returns copies of the commands that are neither run nor canceled.
func (s *ManualScheduler) Pending() []Scheduled {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Scheduled, 0, len(s.pending))
	for _, e := range s.pending {
		if !e.canceled && !e.ran {
			out = append(out, *e)
		}
	}
	return out
}

// Flush runs every pending command in scheduling order and returns how many ran.
func (s *ManualScheduler) Flush() int {
	s.mu.Lock()
	var run []Command
	for _, e := range s.pending {
		if !e.canceled && !e.ran {
			e.ran = true
			run = append(run, e.Command)
		}
	}
	s.pending = nil
	s.mu.Unlock()

	for _, cmd := range run {
		s.exec.Run(cmd)
	}
	return len(run)
}

type manualHandle struct {
	s *ManualScheduler
	e *Scheduled
}

func (h manualHandle) Cancel() bool {
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	if h.e.ran || h.e.canceled {
		return false
	}
	h.e.canceled = true
	return true
}
