package gateway

import (
	"testing"

	"github.com/lorasim/lora-ns/lorawan"
	"github.com/lorasim/lora-ns/types"
	"github.com/stretchr/testify/assert"
)

func TestStartReceptionNoCollisionWhenAlone(t *testing.T) {
	g := New(1, 0, 0)
	rec := &ReceptionRecord{EventID: 1, NodeID: 1, Frequency: 868e6, RSSI: -90}
	g.StartReception(rec, 6)
	assert.False(t, rec.Collided)
}

func TestStartReceptionCaptureEffect(t *testing.T) {
	g := New(1, 0, 0)
	weak := &ReceptionRecord{EventID: 1, NodeID: 1, Frequency: 868e6, RSSI: -100}
	g.StartReception(weak, 6)

	strong := &ReceptionRecord{EventID: 2, NodeID: 2, Frequency: 868e6, RSSI: -80}
	g.StartReception(strong, 6)

	assert.True(t, weak.Collided)
	assert.False(t, strong.Collided)
}

func TestStartReceptionTrueCollisionWithinThreshold(t *testing.T) {
	g := New(1, 0, 0)
	a := &ReceptionRecord{EventID: 1, NodeID: 1, Frequency: 868e6, RSSI: -90}
	g.StartReception(a, 6)
	b := &ReceptionRecord{EventID: 2, NodeID: 2, Frequency: 868e6, RSSI: -92}
	g.StartReception(b, 6)

	assert.True(t, a.Collided)
	assert.True(t, b.Collided)
}

func TestDifferentFrequenciesDoNotInteract(t *testing.T) {
	g := New(1, 0, 0)
	a := &ReceptionRecord{EventID: 1, NodeID: 1, Frequency: 868.1e6, RSSI: -60}
	g.StartReception(a, 6)
	b := &ReceptionRecord{EventID: 2, NodeID: 2, Frequency: 868.3e6, RSSI: -120}
	g.StartReception(b, 6)

	assert.False(t, a.Collided)
	assert.False(t, b.Collided)
}

func TestEndReceptionDeliversWhenNotCollided(t *testing.T) {
	g := New(1, 0, 0)
	rec := &ReceptionRecord{EventID: 1, NodeID: 1, Frequency: 868e6, RSSI: -80}
	g.StartReception(rec, 6)

	var delivered bool
	g.EndReception(1, func(eventID types.EventId, nodeID types.NodeId, gatewayID types.GatewayId, rssi float64) {
		delivered = true
	})
	assert.True(t, delivered)
}

func TestDownlinkFIFO(t *testing.T) {
	g := New(1, 0, 0)
	g.BufferDownlink(1, lorawan.Frame{FCnt: 1})
	g.BufferDownlink(1, lorawan.Frame{FCnt: 2})

	f, ok := g.PopDownlink(1)
	assert.True(t, ok)
	assert.Equal(t, uint16(1), f.FCnt)

	f, ok = g.PopDownlink(1)
	assert.True(t, ok)
	assert.Equal(t, uint16(2), f.FCnt)

	_, ok = g.PopDownlink(1)
	assert.False(t, ok)
}
