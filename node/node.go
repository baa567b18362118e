// Package node models a single LoRaWAN end-device: its radio/MAC state,
// battery, mobility, and the uplink/downlink frame logic of §4.5.
package node

import (
	"math"

	"github.com/lorasim/lora-ns/channel"
	"github.com/lorasim/lora-ns/energy"
	"github.com/lorasim/lora-ns/lorawan"
	"github.com/lorasim/lora-ns/mobility"
	"github.com/lorasim/lora-ns/prng"
	"github.com/lorasim/lora-ns/types"
)

const (
	DefaultAdrAckLimit = 64
	DefaultAdrAckDelay = 32
	HistorySize        = 20
)

// HistorySample is one rolling-history entry of a past uplink's outcome.
type HistorySample struct {
	SNR       float64
	Delivered bool
}

// Node is a single simulated LoRaWAN end-device.
type Node struct {
	ID types.NodeId

	X, Y               float64
	InitialX, InitialY float64

	SF                  int
	InitialSF           int
	TxPowerIndex        int
	InitialTxPowerIndex int

	Channel *channel.Channel
	Class   types.Class
	DevAddr uint32

	FCntUp   uint16
	FCntDown uint16

	PendingMAC []lorawan.MACCommand

	ADREnabled  bool
	NbTrans     int
	ChMask      uint16
	AdrAckCnt   int
	AdrAckLimit int
	AdrAckDelay int

	AwaitingAck     bool
	NeedDownlinkAck bool
	DownlinkPending int
	AcksReceived    int

	history []HistorySample

	Battery *energy.Tracker

	Alive           bool
	RadioState      types.RadioState
	RadioStateSince float64

	Mobility mobility.State

	PacketsSent      int
	PacketsSuccess   int
	PacketsCollision int

	rng *prng.Source
}

// Config holds the construction-time parameters for a Node.
type Config struct {
	ID           types.NodeId
	X, Y         float64
	SF           int
	TxPowerIndex int
	Channel      *channel.Channel
	Class        types.Class
	DevAddr      uint32
	ADREnabled   bool
	NbTrans      int
	Battery      *energy.Tracker
	RNG          *prng.Source
}

// New creates a Node from cfg.
func New(cfg Config) *Node {
	nbTrans := cfg.NbTrans
	if nbTrans < 1 {
		nbTrans = 1
	}
	return &Node{
		ID:                  cfg.ID,
		X:                   cfg.X,
		Y:                   cfg.Y,
		InitialX:            cfg.X,
		InitialY:            cfg.Y,
		SF:                  cfg.SF,
		InitialSF:           cfg.SF,
		TxPowerIndex:        cfg.TxPowerIndex,
		InitialTxPowerIndex: cfg.TxPowerIndex,
		Channel:             cfg.Channel,
		Class:               cfg.Class,
		DevAddr:             cfg.DevAddr,
		ADREnabled:          cfg.ADREnabled,
		NbTrans:             nbTrans,
		ChMask:              0xFFFF,
		AdrAckLimit:         DefaultAdrAckLimit,
		AdrAckDelay:         DefaultAdrAckDelay,
		Battery:             cfg.Battery,
		Alive:               true,
		RadioState:          types.RadioSleep,
		rng:                 cfg.RNG,
	}
}

// TxPowerDBm returns the node's current transmit power in dBm.
func (n *Node) TxPowerDBm() float64 {
	dbm, _ := lorawan.TxPowerIndexToDBm(n.TxPowerIndex)
	return dbm
}

// InitialTxPowerDBm returns the node's transmit power in dBm at construction.
func (n *Node) InitialTxPowerDBm() float64 {
	dbm, _ := lorawan.TxPowerIndexToDBm(n.InitialTxPowerIndex)
	return dbm
}

// DistanceTo returns the Euclidean distance from the node's current position
// to (x, y).
func (n *Node) DistanceTo(x, y float64) float64 {
	dx, dy := n.X-x, n.Y-y
	return math.Sqrt(dx*dx + dy*dy)
}

// PDR returns the lifetime packet-delivery ratio; 0 if no packets were sent.
func (n *Node) PDR() float64 {
	if n.PacketsSent == 0 {
		return 0
	}
	return float64(n.PacketsSuccess) / float64(n.PacketsSent)
}

// RecentPDR returns the delivery ratio over the rolling history window.
func (n *Node) RecentPDR() float64 {
	if len(n.history) == 0 {
		return 0
	}
	delivered := 0
	for _, h := range n.history {
		if h.Delivered {
			delivered++
		}
	}
	return float64(delivered) / float64(len(n.history))
}

// AppendHistory records an uplink outcome in the rolling 20-sample history,
// dropping the oldest sample once full.
func (n *Node) AppendHistory(snr float64, delivered bool) {
	n.history = append(n.history, HistorySample{SNR: snr, Delivered: delivered})
	if len(n.history) > HistorySize {
		n.history = n.history[len(n.history)-HistorySize:]
	}
}

// History returns a copy of the current rolling history.
func (n *Node) History() []HistorySample {
	out := make([]HistorySample, len(n.history))
	copy(out, n.history)
	return out
}

// ClearHistory empties the rolling history, e.g. after a node-side ADR
// adjustment.
func (n *Node) ClearHistory() {
	n.history = nil
}

// SetRadioState charges energy for the time spent in the previous state and
// switches to the new one.
func (n *Node) SetRadioState(state types.RadioState, now float64) {
	if n.Battery != nil && now > n.RadioStateSince {
		n.Battery.Charge(n.RadioState, now-n.RadioStateSince)
		if n.Battery.Depleted() {
			n.Alive = false
		}
	}
	n.RadioState = state
	n.RadioStateSince = now
}

// IncrementSent records that the node started a transmission.
func (n *Node) IncrementSent() {
	n.PacketsSent++
}

// IncrementSuccess records that a transmission was delivered.
func (n *Node) IncrementSuccess() {
	n.PacketsSuccess++
}

// IncrementCollision records that a transmission was lost to collision.
func (n *Node) IncrementCollision() {
	n.PacketsCollision++
}

// PrepareUplink builds the next uplink frame: prepends any pending MAC
// response, sets the ADR/ack-req bits, increments fcnt_up, and runs the
// device-side ADR back-off rule.
func (n *Node) PrepareUplink(payload []byte, confirmed bool) lorawan.Frame {
	fullPayload := payload
	if len(n.PendingMAC) > 0 {
		fullPayload = append(lorawan.EncodeMACCommands(n.PendingMAC), payload...)
		n.PendingMAC = nil
	}

	mhdr := byte(lorawan.MHDRUnconfirmedUp)
	if confirmed {
		mhdr = lorawan.MHDRConfirmedUp
	}

	var fctrl byte
	if n.NeedDownlinkAck {
		fctrl |= lorawan.FCtrlDownlinkAck
		n.NeedDownlinkAck = false
	}

	if n.ADREnabled {
		fctrl |= lorawan.FCtrlADR
		n.AdrAckCnt++
		if n.AdrAckCnt >= n.AdrAckLimit {
			fctrl |= lorawan.FCtrlADRAckReq
		}
		n.runADRBackoff()
	}

	n.FCntUp++

	return lorawan.Frame{
		MHDR:      mhdr,
		FCtrl:     fctrl,
		FCnt:      n.FCntUp,
		Payload:   fullPayload,
		Confirmed: confirmed,
	}
}

// runADRBackoff implements the device-side ADR back-off rule: once acks have
// been missing for adr_ack_limit + adr_ack_delay uplinks, the device
// robustifies its own link by raising SF, and once at SF12, by raising
// power (lowering the tx-power index).
func (n *Node) runADRBackoff() {
	if n.AdrAckCnt <= n.AdrAckLimit+n.AdrAckDelay {
		return
	}
	if n.SF < 12 {
		n.SF++
	} else if n.TxPowerIndex > 0 {
		n.TxPowerIndex--
	}
}

// HandleDownlink applies a received downlink frame: fcnt bookkeeping, ack
// handling, and MAC command dispatch.
func (n *Node) HandleDownlink(frame lorawan.Frame) {
	n.FCntDown = frame.FCnt + 1

	if n.ADREnabled {
		n.AdrAckCnt = 0
	}

	if frame.FCtrl&lorawan.FCtrlACK != 0 {
		n.AwaitingAck = false
		n.AcksReceived++
	}
	if frame.Confirmed {
		n.NeedDownlinkAck = true
	}
	if n.DownlinkPending > 0 {
		n.DownlinkPending--
	}

	cmds, err := lorawan.ParseMACCommands(false, frame.Payload)
	if err != nil {
		return
	}
	for _, cmd := range cmds {
		switch c := cmd.(type) {
		case lorawan.LinkADRReq:
			n.applyLinkADRReq(c)
			n.PendingMAC = append(n.PendingMAC, lorawan.LinkADRAns{Status: 0x07})
		case lorawan.LinkCheckReq:
			n.PendingMAC = append(n.PendingMAC, lorawan.LinkCheckAns{MarginDB: 20, GwCount: 1})
		case lorawan.DeviceTimeReq:
			n.PendingMAC = append(n.PendingMAC, lorawan.DeviceTimeAns{})
		}
	}
}

func (n *Node) applyLinkADRReq(req lorawan.LinkADRReq) {
	if sf, ok := lorawan.DRToSF(req.DR); ok {
		n.SF = sf
	}
	if _, ok := lorawan.TxPowerIndexToDBm(req.TxPowerIndex); ok {
		n.TxPowerIndex = req.TxPowerIndex
	}
	n.ChMask = req.ChMask
}

// ScheduleReceiveWindows returns the RX1 and RX2 opening times for a
// transmission ending at endTime.
func (n *Node) ScheduleReceiveWindows(endTime float64) (rx1, rx2 float64) {
	return lorawan.ComputeRX1(endTime), lorawan.ComputeRX2(endTime)
}

// Snapshot is a point-in-time view of a node's state, used for metrics and
// the tabular event-log export.
type Snapshot struct {
	ID                 types.NodeId
	InitialX, InitialY float64
	FinalX, FinalY     float64
	InitialSF, FinalSF int
	InitialTxPowerDBm  float64
	FinalTxPowerDBm    float64
	PacketsSent        int
	PacketsSuccess     int
	PacketsCollision   int
	BatteryCapacityJ   float64
	BatteryRemainingJ  float64
	DownlinkPending    int
	AcksReceived       int
}

// Snapshot captures the node's current state for reporting.
func (n *Node) Snapshot() Snapshot {
	s := Snapshot{
		ID:                n.ID,
		InitialX:          n.InitialX,
		InitialY:          n.InitialY,
		FinalX:            n.X,
		FinalY:            n.Y,
		InitialSF:         n.InitialSF,
		FinalSF:           n.SF,
		InitialTxPowerDBm: n.InitialTxPowerDBm(),
		FinalTxPowerDBm:   n.TxPowerDBm(),
		PacketsSent:       n.PacketsSent,
		PacketsSuccess:    n.PacketsSuccess,
		PacketsCollision:  n.PacketsCollision,
		DownlinkPending:   n.DownlinkPending,
		AcksReceived:      n.AcksReceived,
	}
	if n.Battery != nil {
		s.BatteryCapacityJ = n.Battery.Capacity()
		s.BatteryRemainingJ = n.Battery.Remaining()
	}
	return s
}
