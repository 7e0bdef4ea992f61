// Package live streams composed frames over gRPC and mirrors them into a
// local model on the client side.
package live

import (
	"sync"
)

// Mirror holds the most recent frame received from a server, with ordering
// by sequence number and pub/sub for local renderers.
type Mirror struct {
	mu       sync.RWMutex
	latest   FrameMessage
	have     bool
	received int
	stale    int

	subsMu    sync.Mutex
	nextSubID int
	subs      map[int]chan FrameMessage
}

// NewMirror creates an empty mirror.
func NewMirror() *Mirror {
	return &Mirror{subs: make(map[int]chan FrameMessage)}
}

// Add records msg and notifies subscribers. Messages from the same session
// that are not newer than the latest are dropped and reported as false. A
// message from a different session (a reconnect) always replaces the
// latest.
func (m *Mirror) Add(msg FrameMessage) bool {
	m.mu.Lock()
	if m.have && msg.Session == m.latest.Session && msg.Seq <= m.latest.Seq {
		m.stale++
		m.mu.Unlock()
		return false
	}
	if msg.Fit == nil && m.have && msg.Session == m.latest.Session {
		msg.Fit = m.latest.Fit
	}
	m.latest = msg
	m.have = true
	m.received++
	m.mu.Unlock()

	m.subsMu.Lock()
	for _, ch := range m.subs {
		select {
		case ch <- msg:
		default:
			// Slow subscriber, drop frame.
		}
	}
	m.subsMu.Unlock()
	return true
}

// Latest returns the newest frame and whether one has arrived.
func (m *Mirror) Latest() (FrameMessage, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.latest, m.have
}

// Counts returns how many messages were accepted and how many were dropped
// as out of order.
func (m *Mirror) Counts() (received, stale int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.received, m.stale
}

// Reset forgets the latest frame so the next stream starts clean.
func (m *Mirror) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latest = FrameMessage{}
	m.have = false
}

// Subscribe creates a new subscription channel for incoming frames.
func (m *Mirror) Subscribe(bufSize int) (id int, ch <-chan FrameMessage) {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()
	id = m.nextSubID
	m.nextSubID++
	c := make(chan FrameMessage, bufSize)
	m.subs[id] = c
	return id, c
}

// Unsubscribe removes a subscription and closes its channel.
func (m *Mirror) Unsubscribe(id int) {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()
	if ch, ok := m.subs[id]; ok {
		close(ch)
		delete(m.subs, id)
	}
}
