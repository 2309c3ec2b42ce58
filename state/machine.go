package state

import "sync"

// Listener receives every state published by a [Machine].
type Listener func(State)

// Machine holds the current [State] and applies events to it one at a time.
//
// Listeners see states in the order events were applied. A listener must not
// call Dispatch on the same machine.
type Machine struct {
	// deliver serializes reduce and notify; mu guards the fields below.
	deliver   sync.Mutex
	mu        sync.Mutex
	current   State
	nextID    int
	listeners map[int]Listener
}

// NewMachine creates a [Machine] in the initial state.
func NewMachine() *Machine {
	return &Machine{current: Initial(), listeners: make(map[int]Listener)}
}

// State returns a copy of the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current.clone()
}

// Dispatch applies e and notifies listeners with the resulting state.
// Listeners run on the dispatching goroutine; a concurrent Dispatch waits until
// they return, so the last state a listener sees is the machine's state.
func (m *Machine) Dispatch(e Event) State {
	m.deliver.Lock()
	defer m.deliver.Unlock()

	m.mu.Lock()
	m.current = Reduce(m.current, e)
	next := m.current.clone()
	listeners := make([]Listener, 0, len(m.listeners))
	for _, l := range m.listeners {
		listeners = append(listeners, l)
	}
	m.mu.Unlock()

	for _, l := range listeners {
		l(next.clone())
	}
	return next
}

// Subscribe registers l and returns a function that removes it.
func (m *Machine) Subscribe(l Listener) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = l
	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}
