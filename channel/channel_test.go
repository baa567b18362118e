package channel

import (
	"testing"

	"github.com/lorasim/lora-ns/prng"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAirtimeSF7_20Bytes(t *testing.T) {
	c := New(DefaultConfig(), prng.NewSource(1))
	got := c.Airtime(7, 20)
	assert.InDelta(t, 0.056576, got, 1e-6)
}

func TestRSSIMonotonicWithNoShadowing(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ShadowingStdDB = 0
	cfg.FastFadingStdDB = 0
	cfg.TxPowerJitterStdDB = 0
	c := New(cfg, prng.NewSource(1))

	rssi1, _ := c.ComputeRSSI(14, 100)
	rssi2, _ := c.ComputeRSSI(14, 1000)
	assert.GreaterOrEqual(t, rssi1, rssi2)
}

func TestMultiChannelRoundRobin(t *testing.T) {
	rng := prng.NewSource(1)
	a := New(DefaultConfig(), rng)
	b := New(DefaultConfig(), rng)
	mc, err := NewMultiChannel([]*Channel{a, b}, RoundRobin, rng)
	require.NoError(t, err)

	assert.Same(t, a, mc.Select())
	assert.Same(t, b, mc.Select())
	assert.Same(t, a, mc.Select())
}

func TestMultiChannelRejectsEmpty(t *testing.T) {
	rng := prng.NewSource(1)
	_, err := NewMultiChannel(nil, RoundRobin, rng)
	assert.Error(t, err)
}
