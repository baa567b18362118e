package channel

import (
	"github.com/lorasim/lora-ns/prng"
	"github.com/pkg/errors"
)

// Distribution selects how MultiChannel picks among its channels.
type Distribution int

const (
	RoundRobin Distribution = iota
	Random
)

// MultiChannel owns a frequency plan of one or more Channels and selects
// among them per-transmission according to its Distribution.
type MultiChannel struct {
	channels []*Channel
	dist     Distribution
	rng      *prng.Source
	rrIndex  int
}

// NewMultiChannel creates a MultiChannel over channels. Returns InvalidConfig
// if channels is empty.
func NewMultiChannel(channels []*Channel, dist Distribution, rng *prng.Source) (*MultiChannel, error) {
	if len(channels) == 0 {
		return nil, errors.Errorf("invalid config: MultiChannel requires at least one channel")
	}
	return &MultiChannel{channels: channels, dist: dist, rng: rng}, nil
}

// Select returns the next Channel according to the configured distribution.
func (m *MultiChannel) Select() *Channel {
	switch m.dist {
	case Random:
		return prng.Choice(m.rng, m.channels)
	default:
		ch := m.channels[m.rrIndex%len(m.channels)]
		m.rrIndex++
		return ch
	}
}

// Channels returns the full set of channels owned by this MultiChannel.
func (m *MultiChannel) Channels() []*Channel {
	return m.channels
}
