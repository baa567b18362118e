package networkserver

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReceiveIgnoresDuplicateEventID(t *testing.T) {
	s := New(false)
	delivered1, _ := s.Receive(1, 1, 1, -90, -120, 7, 0)
	delivered2, _ := s.Receive(1, 1, 2, -80, -120, 7, 0)
	assert.True(t, delivered1)
	assert.False(t, delivered2)

	gw, ok := s.GatewayOf(1)
	assert.True(t, ok)
	assert.Equal(t, 1, gw)
}

func TestADRConvergesAfter20Samples(t *testing.T) {
	s := New(true)
	var lastResult ADRResult
	for i := 0; i < 20; i++ {
		_, adr := s.Receive(uint64(i+1), 1, 1, -70, -120, 12, 0)
		lastResult = adr
	}
	// strong SNR history (-70 - -120 = 50 dB) should push SF down from 12.
	assert.True(t, lastResult.Changed)
	assert.Less(t, lastResult.NewSF, 12)
}

func TestADRNoChangeBeforeHistoryFull(t *testing.T) {
	s := New(true)
	_, adr := s.Receive(1, 1, 1, -70, -120, 12, 0)
	assert.False(t, adr.Changed)
}
