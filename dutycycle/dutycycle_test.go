package dutycycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisabledNeverDefers(t *testing.T) {
	m := NewManager(0)
	m.RecordTransmission(1, 0, 1)
	at, deferred := m.Enforce(1, 0.001)
	assert.False(t, deferred)
	assert.Equal(t, 0.001, at)
}

func TestEnforceDefersWithinWindow(t *testing.T) {
	m := NewManager(0.01)
	m.RecordTransmission(1, 0, 1) // next allowed at 0 + 1/0.01 = 100
	at, deferred := m.Enforce(1, 50)
	assert.True(t, deferred)
	assert.Equal(t, 100.0, at)
}

func TestEnforceAllowsAfterWindow(t *testing.T) {
	m := NewManager(0.01)
	m.RecordTransmission(1, 0, 1)
	at, deferred := m.Enforce(1, 150)
	assert.False(t, deferred)
	assert.Equal(t, 150.0, at)
}
