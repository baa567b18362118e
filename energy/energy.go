// Package energy tracks per-node battery consumption across radio states.
package energy

import (
	"math"

	"github.com/lorasim/lora-ns/types"
)

// Profile is the per-state current draw of a node's radio, in amperes, at a
// fixed supply voltage. Defaults mirror a typical LoRa transceiver profile.
type Profile struct {
	VoltageV         float64
	SleepCurrentA    float64
	TxCurrentA       float64
	RxCurrentA       float64
	ProcessCurrentA  float64
	RxWindowDuration float64 // seconds, nominal duration charged per receive window
}

// DefaultProfile returns the reference current-draw profile used when a
// scenario does not override it.
func DefaultProfile() Profile {
	return Profile{
		VoltageV:         3.3,
		SleepCurrentA:    1e-6,
		TxCurrentA:       0, // tx current is power-dependent; computed by ChargeTx
		RxCurrentA:       11e-3,
		ProcessCurrentA:  5e-3,
		RxWindowDuration: 0.1,
	}
}

// Tracker accumulates Joules spent by a single node against a finite battery
// capacity.
type Tracker struct {
	profile   Profile
	capacityJ float64
	spentJ    float64
}

// NewTracker creates a Tracker with the given profile and initial battery
// capacity in Joules.
func NewTracker(profile Profile, capacityJ float64) *Tracker {
	return &Tracker{profile: profile, capacityJ: capacityJ}
}

// Charge draws energy for spending durationS seconds in state, and returns
// the Joules consumed.
func (t *Tracker) Charge(state types.RadioState, durationS float64) float64 {
	var current float64
	switch state {
	case types.RadioSleep:
		current = t.profile.SleepCurrentA
	case types.RadioRx:
		current = t.profile.RxCurrentA
	case types.RadioProcessing:
		current = t.profile.ProcessCurrentA
	case types.RadioTx:
		current = t.profile.TxCurrentA
	}
	joules := t.profile.VoltageV * current * durationS
	t.spentJ += joules
	return joules
}

// ChargeTx draws energy for a transmission of the given duration at txPowerDBm,
// following E = 10^(P_dBm/10) / 1000 * duration, the usual way to turn a
// dBm transmit power into watts for energy bookkeeping.
func (t *Tracker) ChargeTx(txPowerDBm, durationS float64) float64 {
	watts := dbmToWatts(txPowerDBm)
	joules := watts * durationS
	t.spentJ += joules
	return joules
}

func dbmToWatts(dbm float64) float64 {
	return math.Pow(10, dbm/10) / 1000
}

// Remaining returns the Joules left in the battery; never negative.
func (t *Tracker) Remaining() float64 {
	r := t.capacityJ - t.spentJ
	if r < 0 {
		return 0
	}
	return r
}

// Capacity returns the initial battery capacity in Joules.
func (t *Tracker) Capacity() float64 {
	return t.capacityJ
}

// Depleted reports whether the tracked node has exhausted its battery.
func (t *Tracker) Depleted() bool {
	return t.spentJ >= t.capacityJ
}

// SpentJoules returns the total energy spent so far.
func (t *Tracker) SpentJoules() float64 {
	return t.spentJ
}
