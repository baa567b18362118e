// Package lorawan implements the minimal LoRaWAN wire format the simulator
// needs: uplink/downlink frames, MAC-command encode/decode, and the
// DR/SF/tx-power tables used by ADR.
package lorawan

const (
	MHDRUnconfirmedUp   = 0x40
	MHDRConfirmedUp     = 0x80
	MHDRUnconfirmedDown = 0x60

	FCtrlADR          = 0x80
	FCtrlADRAckReq    = 0x40
	FCtrlACK          = 0x20
	FCtrlDownlinkAck  = 0x20 // alias: same bit, set on an uplink to ack a pending downlink
)

// Frame is an in-memory LoRaWAN frame; it is never actually serialized to a
// byte transport, matching the engine's in-process simulation scope.
type Frame struct {
	MHDR      byte
	FCtrl     byte
	FCnt      uint16
	Payload   []byte
	Confirmed bool
}

// drToSF maps a LoRaWAN data rate index to a spreading factor, per the
// EU868 default channel plan.
var drToSF = map[int]int{
	0: 12,
	1: 11,
	2: 10,
	3: 9,
	4: 8,
	5: 7,
}

// sfToDR is the inverse of drToSF.
var sfToDR = map[int]int{
	12: 0,
	11: 1,
	10: 2,
	9:  3,
	8:  4,
	7:  5,
}

// DRToSF returns the spreading factor for a data-rate index, and whether dr
// was recognized.
func DRToSF(dr int) (int, bool) {
	sf, ok := drToSF[dr]
	return sf, ok
}

// SFToDR returns the data-rate index for a spreading factor, and whether sf
// was recognized.
func SFToDR(sf int) (int, bool) {
	dr, ok := sfToDR[sf]
	return dr, ok
}

// txPowerIndexToDBm maps a LoRaWAN tx-power index to dBm, EU868 table.
var txPowerIndexToDBm = map[int]float64{
	0: 20,
	1: 17,
	2: 14,
	3: 11,
	4: 8,
	5: 5,
	6: 2,
}

// MaxTxPowerIndex is the largest valid tx-power index (lowest power, 2 dBm).
const MaxTxPowerIndex = 6

// TxPowerIndexToDBm returns the dBm value for a tx-power index, and whether
// idx was recognized.
func TxPowerIndexToDBm(idx int) (float64, bool) {
	dbm, ok := txPowerIndexToDBm[idx]
	return dbm, ok
}

// ComputeRX1 returns the RX1 window opening time, 1 second after txEnd.
func ComputeRX1(txEnd float64) float64 {
	return txEnd + 1.0
}

// ComputeRX2 returns the RX2 window opening time, 2 seconds after txEnd.
func ComputeRX2(txEnd float64) float64 {
	return txEnd + 2.0
}
