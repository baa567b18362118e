// Package dutycycle enforces a per-node regulatory duty-cycle limit: a node
// that has just transmitted is not allowed to transmit again until enough
// silent time has passed to keep its on-air fraction at or below the
// configured limit.
package dutycycle

import "github.com/lorasim/lora-ns/types"

// Manager tracks, per node, the earliest time at which it may next
// transmit. Unlike the simulator's global event queue, duty-cycle lookups
// need no cross-node ordering, so a map of per-node deadlines is sufficient
// -- there is no heap to maintain.
type Manager struct {
	fraction float64 // e.g. 0.01 for 1%; zero disables enforcement
	nextTx   map[types.NodeId]float64
}

// NewManager creates a Manager enforcing the given duty-cycle fraction.
// A fraction of 0 disables enforcement entirely.
func NewManager(fraction float64) *Manager {
	return &Manager{fraction: fraction, nextTx: map[types.NodeId]float64{}}
}

// Enabled reports whether duty-cycle enforcement is active.
func (m *Manager) Enabled() bool {
	return m.fraction > 0
}

// Enforce checks whether node may transmit at time t. If enforcement is
// disabled or the node is clear to transmit, it returns (t, false). If the
// node must wait, it returns the earliest allowed time and true.
func (m *Manager) Enforce(node types.NodeId, t float64) (allowedAt float64, deferred bool) {
	if !m.Enabled() {
		return t, false
	}
	if next, ok := m.nextTx[node]; ok && t < next {
		return next, true
	}
	return t, false
}

// RecordTransmission registers that node transmitted for duration seconds
// starting at start, pushing its next allowed transmission time out by
// duration / fraction.
func (m *Manager) RecordTransmission(node types.NodeId, start, duration float64) {
	if !m.Enabled() {
		return
	}
	m.nextTx[node] = start + duration/m.fraction
}
