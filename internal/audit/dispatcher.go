package audit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Config controls queueing and stamping.
type Config struct {
	Enabled    bool
	BufferSize int
	// DropIfFull evicts the oldest queued event when the queue is full, so the
	// latest activity (typically a session expiry after a burst of failures)
	// is the one that survives. Without it Emit waits for room.
	DropIfFull bool
	// Now stamps events that carry no timestamp. Defaults to time.Now.
	Now func() time.Time
	// Platform, when set, fills Event.Platform for events that carry none.
	Platform func() string
}

// Dispatcher queues audit events and delivers them to a sink from a single
// goroutine, in emission order. A nil *Dispatcher is valid and discards
// everything.
type Dispatcher struct {
	cfg  Config
	sink Sink

	mu     sync.Mutex
	queue  []Event
	closed bool

	ready   chan struct{}
	room    chan struct{}
	stopped chan struct{}
	dropped atomic.Uint64
}

// NewDispatcher starts the delivery goroutine. It returns nil when cfg is
// disabled.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &Dispatcher{
		cfg:     cfg,
		sink:    sink,
		queue:   make([]Event, 0, cfg.BufferSize),
		ready:   make(chan struct{}, 1),
		room:    make(chan struct{}, 1),
		stopped: make(chan struct{}),
	}
	go d.deliver()
	return d
}

func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

func (d *Dispatcher) stamp(e *Event) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = d.cfg.Now().UTC()
	}
	if e.Platform == "" && d.cfg.Platform != nil {
		e.Platform = d.cfg.Platform()
	}
}

// Emit stamps event and queues it. Events emitted after Close are discarded.
// Without DropIfFull, Emit waits for room until ctx is done.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	d.stamp(&event)

	for {
		d.mu.Lock()
		if d.closed {
			d.mu.Unlock()
			return
		}
		if len(d.queue) < d.cfg.BufferSize {
			d.queue = append(d.queue, event)
			more := len(d.queue) < d.cfg.BufferSize
			d.mu.Unlock()
			notify(d.ready)
			if more {
				// pass the freed slot on to another waiting emitter
				notify(d.room)
			}
			return
		}
		if d.cfg.DropIfFull {
			d.queue = append(d.queue[1:], event)
			d.mu.Unlock()
			d.dropped.Add(1)
			notify(d.ready)
			return
		}
		d.mu.Unlock()

		select {
		case <-d.room:
		case <-ctx.Done():
			return
		case <-d.stopped:
			return
		}
	}
}

func (d *Dispatcher) deliver() {
	defer close(d.stopped)
	for {
		d.mu.Lock()
		batch := d.queue
		closed := d.closed
		if len(batch) > 0 {
			d.queue = make([]Event, 0, d.cfg.BufferSize)
		}
		d.mu.Unlock()

		if len(batch) == 0 {
			if closed {
				return
			}
			<-d.ready
			continue
		}
		notify(d.room)
		for _, e := range batch {
			d.sink.Emit(context.Background(), e)
		}
	}
}

// Close stops accepting events, delivers what is queued and waits for the
// sink to finish. It is idempotent.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	notify(d.ready)
	<-d.stopped
}

// Dropped returns how many queued events were evicted because the queue was
// full.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
