package simulator

import "github.com/lorasim/lora-ns/types"

// Kind is the tagged variant of the four event kinds the engine dispatches.
// Its numeric value is also its scheduling priority: lower values are
// served first among events at the same simulation time.
type Kind int

const (
	KindTxEnd         Kind = 0
	KindTxStart       Kind = 1
	KindMobility      Kind = 2
	KindReceiveWindow Kind = 3
)

// Event is a single scheduled occurrence: (time, priority, sequence,
// node-ref). Priority is intrinsic to Kind; Seq is a strictly increasing
// tiebreaker assigned at insertion so that FIFO order among equal
// (time, priority) events is preserved.
type Event struct {
	Time   float64
	Kind   Kind
	Seq    uint64
	NodeID types.NodeId

	// EventID identifies the transmission this event belongs to, for
	// TxEnd and RX1/RX2 ReceiveWindow events. Zero for TxStart events (the
	// id is assigned when the transmission starts), for Mobility events and
	// for re-polled class B/C receive windows.
	EventID types.EventId

	// RXWindow is 1 or 2 for ReceiveWindow events, identifying RX1 vs RX2.
	RXWindow int

	index int // heap bookkeeping
}
