package songs

import "slices"

// Listener is notified after the song collection changes.
// DatabaseChanged runs synchronously while the Manager's lock is held, so
// implementations must not call back into the Manager.
type Listener interface {
	DatabaseChanged()
}

type funcListener struct {
	fn func()
}

func (l *funcListener) DatabaseChanged() { l.fn() }

// ListenerFunc adapts fn to a Listener. Each call returns a distinct
// handle; keep it to Unregister later.
func ListenerFunc(fn func()) Listener {
	return &funcListener{fn: fn}
}

// Register adds l to the listener set. Registering the same handle again
// has no effect. Handles must be comparable.
func (m *Manager) Register(l Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if slices.Contains(m.listeners, l) {
		return
	}
	m.listeners = append(m.listeners, l)
}

// Unregister removes l. Unknown handles are ignored.
func (m *Manager) Unregister(l Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, existing := range m.listeners {
		if existing == l {
			m.listeners = slices.Delete(m.listeners, i, i+1)
			return
		}
	}
}

// FireUpdate notifies every registered listener.
func (m *Manager) FireUpdate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fireLocked()
}

func (m *Manager) fireLocked() {
	for _, l := range m.listeners {
		l.DatabaseChanged()
	}
}
