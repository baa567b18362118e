package node

import (
	"testing"

	"github.com/lorasim/lora-ns/channel"
	"github.com/lorasim/lora-ns/energy"
	"github.com/lorasim/lora-ns/lorawan"
	"github.com/lorasim/lora-ns/prng"
	"github.com/lorasim/lora-ns/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestNode(t *testing.T) *Node {
	rng := prng.NewSource(1)
	ch := channel.New(channel.DefaultConfig(), rng)
	bat := energy.NewTracker(energy.DefaultProfile(), 1000)
	return New(Config{
		ID: 1, X: 0, Y: 0, SF: 7, TxPowerIndex: 2,
		Channel: ch, Class: types.ClassA, ADREnabled: true, NbTrans: 1,
		Battery: bat, RNG: rng,
	})
}

func TestPrepareUplinkIncrementsFCnt(t *testing.T) {
	n := newTestNode(t)
	f1 := n.PrepareUplink([]byte("hi"), false)
	f2 := n.PrepareUplink([]byte("hi"), false)
	assert.Equal(t, uint16(1), f1.FCnt)
	assert.Equal(t, uint16(2), f2.FCnt)
	assert.Equal(t, byte(lorawan.MHDRUnconfirmedUp), f1.MHDR)
}

func TestPrepareUplinkPrependsPendingMAC(t *testing.T) {
	n := newTestNode(t)
	n.PendingMAC = append(n.PendingMAC, lorawan.LinkADRAns{Status: 7})
	f := n.PrepareUplink([]byte("hi"), false)
	assert.Equal(t, byte(lorawan.CIDLinkADR), f.Payload[0])
	assert.Empty(t, n.PendingMAC)
}

func TestHandleDownlinkLinkADRReqUpdatesNode(t *testing.T) {
	n := newTestNode(t)
	req := lorawan.LinkADRReq{DR: 3, TxPowerIndex: 5, ChMask: 0xFFFF}
	encoded := lorawan.EncodeMACCommands([]lorawan.MACCommand{req})
	frame := lorawan.Frame{FCnt: 0, Payload: encoded}
	n.HandleDownlink(frame)

	assert.Equal(t, 9, n.SF)
	assert.Equal(t, 5, n.TxPowerIndex)
	require.Len(t, n.PendingMAC, 1)
	assert.Equal(t, lorawan.LinkADRAns{Status: 0x07}, n.PendingMAC[0])
}

func TestDeviceADRBackoffRaisesSF(t *testing.T) {
	n := newTestNode(t)
	n.AdrAckLimit = 2
	n.AdrAckDelay = 1
	// adr_ack_cnt reaches 4 and 5 on the last two uplinks, both past
	// limit+delay = 3, so SF steps up twice: 7 -> 9.
	for i := 0; i < 5; i++ {
		n.PrepareUplink([]byte("x"), false)
	}
	assert.Equal(t, 9, n.SF)
}

func TestRecentPDRReflectsRollingHistory(t *testing.T) {
	n := newTestNode(t)
	for i := 0; i < 5; i++ {
		n.AppendHistory(-5, i%2 == 0)
	}
	assert.InDelta(t, 0.6, n.RecentPDR(), 1e-9)
}

func TestScheduleReceiveWindows(t *testing.T) {
	n := newTestNode(t)
	rx1, rx2 := n.ScheduleReceiveWindows(100)
	assert.Equal(t, 101.0, rx1)
	assert.Equal(t, 102.0, rx2)
}
