// Package channel models LoRa radio propagation: path loss, RSSI/SNR,
// air-time, per-SF sensitivity and the capture threshold used by the
// gateway's reception arbiter.
package channel

import (
	"math"

	"github.com/lorasim/lora-ns/prng"
)

// sensitivity is the per-SF receiver sensitivity in dBm, SF7..SF12.
var sensitivity = map[int]float64{
	7:  -123,
	8:  -126,
	9:  -129,
	10: -132,
	11: -134.5,
	12: -137,
}

// Sensitivity returns the receiver sensitivity in dBm for the given
// spreading factor.
func Sensitivity(sf int) float64 {
	return sensitivity[sf]
}

// Config holds the immutable parameters of a Channel.
type Config struct {
	FrequencyHz         float64
	PathLossExponent    float64
	ShadowingStdDB      float64
	FastFadingStdDB     float64
	CableLossDB         float64
	NoiseFloorRefDBmHz  float64
	NoiseFigureDB       float64
	NoiseStdDB          float64
	BandwidthHz         float64
	CodingRate          int
	PreambleSymbols     float64
	LowDataRateSFThresh int
	CaptureThresholdDB  float64
	TxPowerJitterStdDB  float64
	InterferenceFloorDB float64
}

// DefaultConfig returns the reference 868 MHz EU channel configuration.
func DefaultConfig() Config {
	return Config{
		FrequencyHz:         868e6,
		PathLossExponent:    2.7,
		ShadowingStdDB:      6.0,
		FastFadingStdDB:     0,
		CableLossDB:         0,
		NoiseFloorRefDBmHz:  -174.0,
		NoiseFigureDB:       6.0,
		NoiseStdDB:          0,
		BandwidthHz:         125e3,
		CodingRate:          1,
		PreambleSymbols:     8,
		LowDataRateSFThresh: 11,
		CaptureThresholdDB:  6.0,
		TxPowerJitterStdDB:  0,
		InterferenceFloorDB: 0,
	}
}

// Channel is an immutable radio-propagation configuration plus the RNG
// source used to draw its stochastic components (shadowing, fast fading,
// tx-power jitter, noise).
type Channel struct {
	cfg Config
	rng *prng.Source
}

// New creates a Channel from cfg, drawing its stochastic terms from rng.
func New(cfg Config, rng *prng.Source) *Channel {
	return &Channel{cfg: cfg, rng: rng}
}

// Config returns the channel's configuration.
func (c *Channel) Config() Config {
	return c.cfg
}

// PathLoss returns the log-distance path loss in dB at distance meters,
// anchored to free-space loss at 1 m: PL(d) = 32.45 + 20log10(f_MHz) - 60 +
// 10*gamma*log10(max(d,1)).
func (c *Channel) PathLoss(distanceM float64) float64 {
	fMHz := c.cfg.FrequencyHz / 1e6
	d := math.Max(distanceM, 1)
	return 32.45 + 20*math.Log10(fMHz) - 60 + 10*c.cfg.PathLossExponent*math.Log10(d)
}

// NoiseFloor returns the thermal+figure noise floor in dBm:
// N0 + 10log10(BW) + NF + I, plus an optional zero-mean Gaussian term.
func (c *Channel) NoiseFloor() float64 {
	floor := c.cfg.NoiseFloorRefDBmHz + 10*math.Log10(c.cfg.BandwidthHz) +
		c.cfg.NoiseFigureDB + c.cfg.InterferenceFloorDB
	if c.cfg.NoiseStdDB != 0 {
		floor += c.rng.Gauss(0, c.cfg.NoiseStdDB)
	}
	return floor
}

// ComputeRSSI returns (rssi, snr) in dBm/dB for a transmission at txPowerDBm
// over distanceM. Shadowing is folded into the path loss; tx-power jitter
// and fast fading are independent zero-mean Gaussian terms added to rssi.
func (c *Channel) ComputeRSSI(txPowerDBm, distanceM float64) (rssi, snr float64) {
	pl := c.PathLoss(distanceM)
	if c.cfg.ShadowingStdDB != 0 {
		pl += c.rng.Gauss(0, c.cfg.ShadowingStdDB)
	}
	epsTx := 0.0
	if c.cfg.TxPowerJitterStdDB != 0 {
		epsTx = c.rng.Gauss(0, c.cfg.TxPowerJitterStdDB)
	}
	epsFast := 0.0
	if c.cfg.FastFadingStdDB != 0 {
		epsFast = c.rng.Gauss(0, c.cfg.FastFadingStdDB)
	}
	rssi = txPowerDBm - pl - c.cfg.CableLossDB + epsTx + epsFast
	snr = rssi - c.NoiseFloor()
	return rssi, snr
}

// Airtime returns the on-air duration in seconds of a LoRa frame with the
// given spreading factor and payload length in bytes, per the standard LoRa
// modem symbol-time formula.
func (c *Channel) Airtime(sf int, payloadLen int) float64 {
	ts := math.Pow(2, float64(sf)) / c.cfg.BandwidthHz

	de := 0.0
	if sf >= c.cfg.LowDataRateSFThresh {
		de = 1
	}

	numerator := 8*float64(payloadLen) - 4*float64(sf) + 28 + 16
	denominator := 4 * (float64(sf) - 2*de)
	nPayload := math.Max(math.Ceil(numerator/denominator), 0)*float64(c.cfg.CodingRate+4) + 8

	preamble := c.cfg.PreambleSymbols + 4.25
	return (nPayload + preamble) * ts
}
