// Package networkserver deduplicates uplink deliveries across gateways and
// runs the server-side ADR control loop of §4.4.
package networkserver

import (
	"github.com/lorasim/lora-ns/lorawan"
	"github.com/lorasim/lora-ns/types"
)

// snrRequired is the minimum demodulation SNR per spreading factor, used by
// the ADR margin calculation.
var snrRequired = map[int]float64{
	7:  -7.5,
	8:  -10,
	9:  -12.5,
	10: -15,
	11: -17.5,
	12: -20,
}

// RequiredSNR returns the minimum demodulation SNR for sf, the same table
// the server-side ADR margin calculation uses, exposed for the node-side
// ADR fallback's own margin estimate.
func RequiredSNR(sf int) float64 {
	return snrRequired[sf]
}

const historySize = 20

// NodeADRState is the per-node SNR history the server-side ADR loop
// accumulates before it runs.
type NodeADRState struct {
	SNRHistory []float64
}

// DownlinkFrame is a frame the server has decided to deliver, paired with
// the gateway it was queued through.
type DownlinkFrame struct {
	Node    types.NodeId
	Gateway types.GatewayId
	Frame   lorawan.Frame
}

// Server deduplicates uplink deliveries and runs server-side ADR.
type Server struct {
	delivered map[types.EventId]bool
	gatewayOf map[types.EventId]types.GatewayId
	adrState  map[types.NodeId]*NodeADRState
	adrOn     bool
}

// New creates a Server; adrServerEnabled toggles the ADR control loop.
func New(adrServerEnabled bool) *Server {
	return &Server{
		delivered: map[types.EventId]bool{},
		gatewayOf: map[types.EventId]types.GatewayId{},
		adrState:  map[types.NodeId]*NodeADRState{},
		adrOn:     adrServerEnabled,
	}
}

// Delivered reports whether eventID has already been recorded as delivered.
func (s *Server) Delivered(eventID types.EventId) bool {
	return s.delivered[eventID]
}

// GatewayOf returns the provenance gateway for a delivered event id.
func (s *Server) GatewayOf(eventID types.EventId) (types.GatewayId, bool) {
	gw, ok := s.gatewayOf[eventID]
	return gw, ok
}

// ADRResult is the outcome of a server-side ADR evaluation: whether the
// device's SF/tx-power index should change, and to what.
type ADRResult struct {
	Changed      bool
	NewSF        int
	NewTxPowerIx int
}

// Receive records an uplink delivery. Duplicate event ids (already seen from
// another gateway) are ignored. When ADR is enabled, the reception's SNR is
// appended to the node's rolling history; once the history reaches 20
// samples the ADR algorithm evaluates a new SF/tx-power for currentSF /
// currentTxPowerIx, and the history is cleared regardless of outcome.
func (s *Server) Receive(eventID types.EventId, node types.NodeId, gateway types.GatewayId, rssi, noiseFloor float64,
	currentSF, currentTxPowerIx int) (delivered bool, adr ADRResult) {
	if s.delivered[eventID] {
		return false, ADRResult{}
	}
	s.delivered[eventID] = true
	s.gatewayOf[eventID] = gateway

	if !s.adrOn {
		return true, ADRResult{}
	}

	st, ok := s.adrState[node]
	if !ok {
		st = &NodeADRState{}
		s.adrState[node] = st
	}
	snr := rssi - noiseFloor
	st.SNRHistory = append(st.SNRHistory, snr)
	if len(st.SNRHistory) > historySize {
		st.SNRHistory = st.SNRHistory[len(st.SNRHistory)-historySize:]
	}
	if len(st.SNRHistory) < historySize {
		return true, ADRResult{}
	}

	result := evaluateADR(st.SNRHistory, currentSF, currentTxPowerIx)
	st.SNRHistory = nil
	return true, result
}

// evaluateADR implements the margin/nstep algorithm of §4.4.
func evaluateADR(history []float64, sf, txPowerIx int) ADRResult {
	snrMax := history[0]
	for _, v := range history[1:] {
		if v > snrMax {
			snrMax = v
		}
	}
	margin := snrMax - snrRequired[sf] - 10
	nstep := roundToInt(margin / 3)

	origSF, origTxPowerIx := sf, txPowerIx
	for nstep > 0 {
		if sf > 7 {
			sf--
		} else if txPowerIx < lorawan.MaxTxPowerIndex {
			txPowerIx++
		} else {
			break // already at SF7 and minimum power, nothing left to trade
		}
		nstep--
	}
	for nstep < 0 {
		if txPowerIx > 0 {
			txPowerIx--
		} else if sf < 12 {
			sf++
		} else {
			break // already at SF12 and maximum power, nothing left to trade
		}
		nstep++
	}

	return ADRResult{
		Changed:      sf != origSF || txPowerIx != origTxPowerIx,
		NewSF:        sf,
		NewTxPowerIx: txPowerIx,
	}
}

func roundToInt(x float64) int {
	if x >= 0 {
		return int(x + 0.5)
	}
	return -int(-x + 0.5)
}

// BuildLinkADRReq constructs the downlink MAC command for an ADR result.
func BuildLinkADRReq(result ADRResult, chMask uint16, nbTrans byte) lorawan.LinkADRReq {
	dr, _ := lorawan.SFToDR(result.NewSF)
	return lorawan.LinkADRReq{
		DR:           dr,
		TxPowerIndex: result.NewTxPowerIx,
		ChMask:       chMask,
		Redundancy:   nbTrans,
	}
}

// SendDownlink constructs a downlink frame per §4.4: MHDR=0x60,
// fctrl=FCtrlACK if requestAck, fcnt=node's current fcnt_down. If macCmd is
// non-nil, its encoding replaces payload entirely, matching the spec's ADR
// downlink construction.
func SendDownlink(fcntDown uint16, requestAck bool, payload []byte, macCmd lorawan.MACCommand) lorawan.Frame {
	body := payload
	if macCmd != nil {
		body = lorawan.EncodeMACCommands([]lorawan.MACCommand{macCmd})
	}
	var fctrl byte
	if requestAck {
		fctrl = lorawan.FCtrlACK
	}
	return lorawan.Frame{
		MHDR:    lorawan.MHDRUnconfirmedDown,
		FCtrl:   fctrl,
		FCnt:    fcntDown,
		Payload: body,
	}
}
