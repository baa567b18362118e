// Package simulator implements the discrete-event loop that drives Nodes,
// Gateways, and the NetworkServer through the LoRaWAN uplink/downlink cycle
// of §4.6, and exposes the metrics and event-log export of §6.
package simulator

import (
	"github.com/lorasim/lora-ns/channel"
	"github.com/lorasim/lora-ns/dutycycle"
	"github.com/lorasim/lora-ns/energy"
	"github.com/lorasim/lora-ns/gateway"
	"github.com/lorasim/lora-ns/lorawan"
	"github.com/lorasim/lora-ns/mobility"
	"github.com/lorasim/lora-ns/networkserver"
	"github.com/lorasim/lora-ns/node"
	"github.com/lorasim/lora-ns/prng"
	"github.com/lorasim/lora-ns/types"
)

// Result classifies the outcome of one uplink transmission.
type Result int

const (
	ResultPending Result = iota
	ResultSuccess
	ResultCollisionLoss
	ResultNoCoverage
	ResultMobility
)

func (r Result) String() string {
	switch r {
	case ResultSuccess:
		return "Success"
	case ResultCollisionLoss:
		return "CollisionLoss"
	case ResultNoCoverage:
		return "NoCoverage"
	case ResultMobility:
		return "Mobility"
	default:
		return "Pending"
	}
}

// LogEntry is one row of the append-only event log, per §6's tabular
// export column set.
type LogEntry struct {
	EventID    types.EventId
	NodeID     types.NodeId
	StartTime  float64
	EndTime    float64
	SF         int
	TxPowerDBm float64
	EnergyJ    float64
	RSSIDBm    float64
	SNRDB      float64
	Result     Result
	GatewayID  types.GatewayId

	NodeSnapshot node.Snapshot
}

// txInfo is the bookkeeping the simulator keeps for an in-flight
// transmission, from tx-start until tx-end.
type txInfo struct {
	NodeID     types.NodeId
	StartTime  float64
	EndTime    float64
	SF         int
	TxPowerDBm float64

	heardGateways []types.GatewayId
	gatewayRSSI   map[types.GatewayId]float64
	gatewaySNR    map[types.GatewayId]float64
	bestRSSI      float64
	bestSNR       float64
	anyHeard      bool

	logIndex int
}

// Simulator owns the event queue and every Node, Gateway, and the
// NetworkServer for the duration of one run.
type Simulator struct {
	cfg *Config

	queue       *eventQueue
	currentTime float64
	seq         uint64
	nextEventID types.EventId
	stopped     bool

	nodes         []*node.Node
	gateways      []*gateway.Gateway
	multiChannel  *channel.MultiChannel
	duty          *dutycycle.Manager
	server        *networkserver.Server
	mobilityModel *mobility.Model

	rng *prng.Source

	txState         map[types.EventId]*txInfo
	nodeActiveTxEnd map[types.NodeId]float64

	eventsLog []*LogEntry

	packetsSent          int
	packetsDelivered     int
	packetsLostCollision int
	packetsLostNoSignal  int
	totalEnergyJ         float64
	totalDelaySec        float64
}

// New constructs a Simulator from cfg, placing gateways and nodes and
// scheduling each node's initial uplink. Returns InvalidConfig if cfg
// cannot construct a valid run.
func New(cfg *Config) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	rng := prng.NewSource(cfg.Seed)

	chans := make([]*channel.Channel, 0, len(cfg.Channels))
	for _, ccfg := range cfg.Channels {
		chans = append(chans, channel.New(ccfg, rng.Derive()))
	}
	dist := channel.RoundRobin
	if cfg.ChannelDistribution == DistRandom {
		dist = channel.Random
	}
	mc, err := channel.NewMultiChannel(chans, dist, rng.Derive())
	if err != nil {
		return nil, err
	}

	s := &Simulator{
		cfg:             cfg,
		queue:           newEventQueue(),
		multiChannel:    mc,
		duty:            dutycycle.NewManager(cfg.DutyCycle),
		server:          networkserver.New(cfg.ADRServer),
		rng:             rng,
		txState:         map[types.EventId]*txInfo{},
		nodeActiveTxEnd: map[types.NodeId]float64{},
		nextEventID:     1,
	}

	s.placeGateways()
	s.placeNodes()

	if cfg.Mobility {
		s.mobilityModel = mobility.NewModel(cfg.AreaSize, cfg.MobilitySpeedMin, cfg.MobilitySpeedMax, cfg.MobilityStep, rng.Derive())
		for _, n := range s.nodes {
			st := s.mobilityModel.Assign(n.X, n.Y)
			n.Mobility = st
			s.scheduleEvent(cfg.MobilityStep, KindMobility, n.ID, 0, 0)
		}
	}

	for _, n := range s.nodes {
		offset := s.initialOffset()
		s.scheduleEvent(offset, KindTxStart, n.ID, 0, 0)
	}

	return s, nil
}

func (s *Simulator) placeGateways() {
	n := s.cfg.NumGateways
	s.gateways = make([]*gateway.Gateway, 0, n)
	if n == 1 {
		s.gateways = append(s.gateways, gateway.New(1, s.cfg.AreaSize/2, s.cfg.AreaSize/2))
		return
	}
	for i := 0; i < n; i++ {
		x := s.rng.Float64() * s.cfg.AreaSize
		y := s.rng.Float64() * s.cfg.AreaSize
		s.gateways = append(s.gateways, gateway.New(types.GatewayId(i+1), x, y))
	}
}

func (s *Simulator) placeNodes() {
	s.nodes = make([]*node.Node, 0, s.cfg.NumNodes)
	for i := 0; i < s.cfg.NumNodes; i++ {
		x := s.rng.Float64() * s.cfg.AreaSize
		y := s.rng.Float64() * s.cfg.AreaSize

		sf := s.cfg.FixedSF
		if sf == 0 {
			sf = 7 + s.rng.Intn(6)
		}
		txIdx := s.cfg.FixedTxPowerIdx

		ch := s.multiChannel.Select()
		bat := energy.NewTracker(energy.DefaultProfile(), s.cfg.BatteryCapacityJ)

		n := node.New(node.Config{
			ID:           types.NodeId(i + 1),
			X:            x,
			Y:            y,
			SF:           sf,
			TxPowerIndex: txIdx,
			Channel:      ch,
			Class:        types.ClassA,
			ADREnabled:   s.cfg.ADRNode,
			NbTrans:      1,
			Battery:      bat,
			RNG:          s.rng.Derive(),
		})
		s.nodes = append(s.nodes, n)
	}
}

// initialOffset draws a node's first uplink offset: Exp(1/interval) in
// random mode, Uniform[0, interval) in periodic mode.
func (s *Simulator) initialOffset() float64 {
	if s.cfg.TransmissionMode == ModeRandom {
		return s.rng.Exponential(1.0 / s.cfg.PacketInterval)
	}
	return s.rng.Float64() * s.cfg.PacketInterval
}

func (s *Simulator) scheduleEvent(t float64, kind Kind, nodeID types.NodeId, eventID types.EventId, rxWindow int) {
	e := &Event{Time: t, Kind: kind, Seq: s.seq, NodeID: nodeID, EventID: eventID, RXWindow: rxWindow}
	s.seq++
	s.queue.push(e)
}

// Stop halts the run; Run() exits before dispatching the next event and
// any remaining queued events are discarded.
func (s *Simulator) Stop() {
	s.stopped = true
}

// CurrentTime returns the simulator's current logical time.
func (s *Simulator) CurrentTime() float64 {
	return s.currentTime
}

// Step pops and dispatches the earliest queued event. Returns false if the
// simulator has been stopped or the queue is empty.
func (s *Simulator) Step() bool {
	if s.stopped {
		return false
	}
	if s.queue.len() == 0 {
		return false
	}
	e := s.queue.pop()
	s.currentTime = e.Time

	switch e.Kind {
	case KindTxStart:
		s.handleTxStart(e)
	case KindTxEnd:
		s.handleTxEnd(e)
	case KindReceiveWindow:
		s.handleReceiveWindow(e)
	case KindMobility:
		s.handleMobility(e)
	}
	return true
}

// Run drives Step until the queue is drained or Stop is called.
func (s *Simulator) Run() {
	for !s.stopped {
		if !s.Step() {
			return
		}
	}
}

func (s *Simulator) nodeByID(id types.NodeId) *node.Node {
	return s.nodes[id-1]
}

func (s *Simulator) handleTxStart(e *Event) {
	n := s.nodeByID(e.NodeID)
	if !n.Alive {
		return
	}

	if allowedAt, deferred := s.duty.Enforce(n.ID, e.Time); deferred {
		s.scheduleEvent(allowedAt, KindTxStart, n.ID, 0, 0)
		return
	}

	const uplinkPayloadLen = 20
	frame := n.PrepareUplink(make([]byte, uplinkPayloadLen), false)

	duration := n.Channel.Airtime(n.SF, len(frame.Payload))
	endTime := e.Time + duration

	n.SetRadioState(types.RadioTx, e.Time)
	var energyJ float64
	if n.Battery != nil {
		energyJ = n.Battery.ChargeTx(n.TxPowerDBm(), duration)
	}
	s.totalEnergyJ += energyJ

	n.IncrementSent()
	s.packetsSent++

	eventID := s.nextEventID
	s.nextEventID++

	info := &txInfo{
		NodeID:      n.ID,
		StartTime:   e.Time,
		EndTime:     endTime,
		SF:          n.SF,
		TxPowerDBm:  n.TxPowerDBm(),
		gatewayRSSI: map[types.GatewayId]float64{},
		gatewaySNR:  map[types.GatewayId]float64{},
	}

	freq := n.Channel.Config().FrequencyHz
	requiredSNR := channel.Sensitivity(n.SF) - n.Channel.NoiseFloor()
	for _, gw := range s.gateways {
		dist := n.DistanceTo(gw.X, gw.Y)
		rssi, snr := n.Channel.ComputeRSSI(n.TxPowerDBm(), dist)
		if snr < requiredSNR {
			continue
		}
		rec := &gateway.ReceptionRecord{
			EventID: eventID, NodeID: n.ID, SF: n.SF, Frequency: freq, RSSI: rssi, EndTime: endTime,
		}
		gw.StartReception(rec, n.Channel.Config().CaptureThresholdDB)

		info.heardGateways = append(info.heardGateways, gw.ID)
		info.gatewayRSSI[gw.ID] = rssi
		info.gatewaySNR[gw.ID] = snr
		if !info.anyHeard || rssi > info.bestRSSI {
			info.bestRSSI, info.bestSNR, info.anyHeard = rssi, snr, true
		}
	}
	s.txState[eventID] = info

	s.scheduleEvent(endTime, KindTxEnd, n.ID, eventID, 0)
	rx1, rx2 := n.ScheduleReceiveWindows(endTime)
	s.scheduleEvent(rx1, KindReceiveWindow, n.ID, eventID, 1)
	s.scheduleEvent(rx2, KindReceiveWindow, n.ID, eventID, 2)

	s.duty.RecordTransmission(n.ID, e.Time, duration)
	s.nodeActiveTxEnd[n.ID] = endTime

	if s.cfg.PacketsToSend == 0 || n.PacketsSent < s.cfg.PacketsToSend {
		var next float64
		if s.cfg.TransmissionMode == ModeRandom {
			next = e.Time + s.rng.Exponential(1.0/s.cfg.PacketInterval)
		} else {
			next = e.Time + s.cfg.PacketInterval
		}
		s.scheduleEvent(next, KindTxStart, n.ID, 0, 0)
	} else {
		nodeID := n.ID
		s.queue.removeMatching(func(ev *Event) bool {
			return ev.Kind == KindTxStart && ev.NodeID == nodeID
		})
	}

	entry := &LogEntry{
		EventID:    eventID,
		NodeID:     n.ID,
		StartTime:  e.Time,
		SF:         n.SF,
		TxPowerDBm: n.TxPowerDBm(),
		EnergyJ:    energyJ,
		RSSIDBm:    info.bestRSSI,
		SNRDB:      info.bestSNR,
		Result:     ResultPending,
	}
	info.logIndex = len(s.eventsLog)
	s.eventsLog = append(s.eventsLog, entry)
}

func (s *Simulator) handleTxEnd(e *Event) {
	info, ok := s.txState[e.EventID]
	if !ok {
		return
	}
	delete(s.txState, e.EventID)
	delete(s.nodeActiveTxEnd, e.NodeID)

	n := s.nodeByID(e.NodeID)
	n.SetRadioState(types.RadioProcessing, e.Time)

	var deliveringGW types.GatewayId
	for _, gw := range s.gateways {
		gw.EndReception(e.EventID, func(eventID types.EventId, nodeID types.NodeId, gatewayID types.GatewayId, rssi float64) {
			if s.server.Delivered(eventID) {
				return // another gateway already claimed provenance this round
			}
			snr := info.gatewaySNR[gatewayID]
			delivered, adr := s.server.Receive(eventID, nodeID, gatewayID, rssi, rssi-snr, n.SF, n.TxPowerIndex)
			if delivered {
				deliveringGW = gatewayID
				if adr.Changed {
					s.queueADRDownlink(n, gatewayID, adr)
				}
			}
		})
	}

	entry := s.eventsLog[info.logIndex]
	entry.EndTime = e.Time
	entry.GatewayID = deliveringGW

	if s.server.Delivered(e.EventID) {
		n.IncrementSuccess()
		s.packetsDelivered++
		delay := e.Time - info.StartTime
		s.totalDelaySec += delay
		entry.Result = ResultSuccess
	} else if info.anyHeard {
		n.IncrementCollision()
		s.packetsLostCollision++
		entry.Result = ResultCollisionLoss
	} else {
		s.packetsLostNoSignal++
		entry.Result = ResultNoCoverage
	}
	entry.NodeSnapshot = n.Snapshot()

	s.runNodeSideADRFallback(n, info, entry.Result == ResultSuccess)
}

// runNodeSideADRFallback implements the §4.6 tx-end fallback: when both
// server-side and node-side ADR are enabled, a poor or abundant link margin
// nudges SF/power locally instead of waiting for the server's own ADR
// downlink.
func (s *Simulator) runNodeSideADRFallback(n *node.Node, info *txInfo, delivered bool) {
	if !s.cfg.ADRNode {
		return
	}
	n.AppendHistory(info.bestSNR, delivered)

	if !s.cfg.ADRServer {
		return
	}
	per := 1 - n.RecentPDR()
	margin := info.bestSNR - networkserver.RequiredSNR(n.SF) - 10

	if per <= 0.1 && margin <= 0 {
		return
	}
	if margin <= 0 {
		if n.SF < 12 {
			n.SF++
		} else if n.TxPowerIndex > 0 {
			n.TxPowerIndex-- // +3 dB: tx-power indices are spaced 3 dB apart
		}
	} else {
		if n.SF > 7 {
			n.SF--
		}
		if n.TxPowerIndex > lorawan.MaxTxPowerIndex {
			n.TxPowerIndex = lorawan.MaxTxPowerIndex
		}
	}
	n.ClearHistory()
}

func (s *Simulator) queueADRDownlink(n *node.Node, gatewayID types.GatewayId, adr networkserver.ADRResult) {
	req := networkserver.BuildLinkADRReq(adr, n.ChMask, byte(n.NbTrans))
	frame := networkserver.SendDownlink(n.FCntDown, false, nil, req)
	n.DownlinkPending++
	for _, gw := range s.gateways {
		if gw.ID == gatewayID {
			gw.BufferDownlink(n.ID, frame)
			return
		}
	}
}

func (s *Simulator) handleReceiveWindow(e *Event) {
	n := s.nodeByID(e.NodeID)
	if !n.Alive {
		return
	}

	for _, gw := range s.gateways {
		frame, ok := gw.PopDownlink(n.ID)
		if !ok {
			continue
		}
		dist := n.DistanceTo(gw.X, gw.Y)
		rssi, snr := n.Channel.ComputeRSSI(n.TxPowerDBm(), dist)
		_ = rssi
		requiredSNR := channel.Sensitivity(n.SF) - n.Channel.NoiseFloor()
		if snr >= requiredSNR {
			n.HandleDownlink(frame)
		}
		break // one downlink consumed per window, matching the FIFO's pop semantics
	}

	switch n.Class {
	case types.ClassB:
		s.scheduleEvent(e.Time+30, KindReceiveWindow, n.ID, 0, e.RXWindow)
	case types.ClassC:
		if s.anyGatewayHasPending(n.ID) {
			s.scheduleEvent(e.Time+1, KindReceiveWindow, n.ID, 0, e.RXWindow)
		}
	}
}

func (s *Simulator) anyGatewayHasPending(id types.NodeId) bool {
	for _, gw := range s.gateways {
		if gw.HasPendingDownlink(id) {
			return true
		}
	}
	return false
}

func (s *Simulator) handleMobility(e *Event) {
	n := s.nodeByID(e.NodeID)
	if endTime, transmitting := s.nodeActiveTxEnd[n.ID]; transmitting {
		s.scheduleEvent(endTime, KindMobility, n.ID, 0, 0)
		return
	}

	pos := s.mobilityModel.Move(&n.Mobility, e.Time)
	n.X, n.Y = pos.X, pos.Y

	s.scheduleEvent(e.Time+s.cfg.MobilityStep, KindMobility, n.ID, 0, 0)
}

// Nodes returns the simulator's node arena, indexed by NodeId-1.
func (s *Simulator) Nodes() []*node.Node {
	return s.nodes
}

// Gateways returns the simulator's gateway arena.
func (s *Simulator) Gateways() []*gateway.Gateway {
	return s.gateways
}

// EventsLog returns the append-only event log accumulated so far.
func (s *Simulator) EventsLog() []*LogEntry {
	return s.eventsLog
}
