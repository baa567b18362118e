package simulator

import "github.com/lorasim/lora-ns/types"

// Metrics is the aggregate run report produced once a simulator has finished
// (or been stopped), matching the scenario report of §6.
type Metrics struct {
	PacketsSent          int
	PacketsDelivered     int
	PacketsLostCollision int
	PacketsLostNoSignal  int

	PDR float64

	EnergyConsumedJ float64
	AvgDelaySec     float64

	SFDistribution map[int]int

	PDRByNode       map[types.NodeId]float64
	RecentPDRByNode map[types.NodeId]float64
	PDRBySF         map[int]float64
	PDRByGateway    map[types.GatewayId]float64

	Retransmissions int
}

// Metrics computes the aggregate report over the simulator's current state.
// It can be called mid-run; figures simply reflect events processed so far.
func (s *Simulator) Metrics() Metrics {
	m := Metrics{
		PacketsSent:          s.packetsSent,
		PacketsDelivered:     s.packetsDelivered,
		PacketsLostCollision: s.packetsLostCollision,
		PacketsLostNoSignal:  s.packetsLostNoSignal,
		EnergyConsumedJ:      s.totalEnergyJ,
		SFDistribution:       map[int]int{},
		PDRByNode:            map[types.NodeId]float64{},
		RecentPDRByNode:      map[types.NodeId]float64{},
		PDRBySF:              map[int]float64{},
		PDRByGateway:         map[types.GatewayId]float64{},
	}

	if s.packetsSent > 0 {
		m.PDR = float64(s.packetsDelivered) / float64(s.packetsSent)
	}
	if s.packetsDelivered > 0 {
		m.AvgDelaySec = s.totalDelaySec / float64(s.packetsDelivered)
	}

	sfSent := map[int]int{}
	sfDelivered := map[int]int{}

	for _, n := range s.nodes {
		m.SFDistribution[n.SF]++
		m.PDRByNode[n.ID] = n.PDR()
		m.RecentPDRByNode[n.ID] = n.RecentPDR()

		sfSent[n.InitialSF] += n.PacketsSent
		sfDelivered[n.InitialSF] += n.PacketsSuccess

		if n.PacketsSent > n.PacketsSuccess+n.PacketsCollision {
			m.Retransmissions += n.PacketsSent - n.PacketsSuccess - n.PacketsCollision
		}
	}
	for sf, sent := range sfSent {
		if sent == 0 {
			continue
		}
		m.PDRBySF[sf] = float64(sfDelivered[sf]) / float64(sent)
	}

	gwSent := map[types.GatewayId]int{}
	gwDelivered := map[types.GatewayId]int{}
	for _, entry := range s.eventsLog {
		if entry.Result != ResultSuccess {
			continue
		}
		gwDelivered[entry.GatewayID]++
	}
	for _, gw := range s.gateways {
		gwSent[gw.ID] = s.packetsSent // denominator is every packet sent, whether or not this gateway heard it
	}
	for _, gw := range s.gateways {
		if gwSent[gw.ID] == 0 {
			continue
		}
		m.PDRByGateway[gw.ID] = float64(gwDelivered[gw.ID]) / float64(gwSent[gw.ID])
	}

	return m
}
