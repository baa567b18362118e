package mobility

import (
	"testing"

	"github.com/lorasim/lora-ns/prng"
	"github.com/stretchr/testify/assert"
)

func TestAssignProducesValidPath(t *testing.T) {
	m := NewModel(100, 2, 5, 1, prng.NewSource(1))
	st := m.Assign(10, 10)
	assert.Equal(t, Point{X: 10, Y: 10}, st.Path[0])
	assert.Greater(t, st.PathDuration, 0.0)
	assert.GreaterOrEqual(t, st.Speed, 2.0)
	assert.LessOrEqual(t, st.Speed, 5.0)
}

func TestMoveAdvancesAlongPath(t *testing.T) {
	m := NewModel(100, 2, 5, 1, prng.NewSource(1))
	st := m.Assign(0, 0)
	pos1 := m.Move(&st, 1.0)
	pos2 := m.Move(&st, 2.0)
	assert.NotEqual(t, pos1, pos2)
}

func TestMoveWrapsToNewPathOnCompletion(t *testing.T) {
	m := NewModel(100, 2, 5, 1, prng.NewSource(1))
	st := m.Assign(0, 0)
	firstDest := st.Path[3]
	// jump far beyond path duration to force at least one wrap
	m.Move(&st, st.PathDuration*3)
	assert.NotEqual(t, firstDest, st.Path[3])
}
