// Package mobility implements smooth per-node movement along cubic Bezier
// paths, re-planned whenever a node reaches its current destination.
package mobility

import (
	"math"

	"github.com/lorasim/lora-ns/prng"
)

// Point is a 2-D planar coordinate in meters.
type Point struct {
	X, Y float64
}

func bezierPoint(p0, p1, p2, p3 Point, t float64) Point {
	u := 1 - t
	a := u * u * u
	b := 3 * u * u * t
	c := 3 * u * t * t
	d := t * t * t
	return Point{
		X: a*p0.X + b*p1.X + c*p2.X + d*p3.X,
		Y: a*p0.Y + b*p1.Y + c*p2.Y + d*p3.Y,
	}
}

// Path is a cubic Bezier path: start, two control points, and destination.
type Path [4]Point

// State is a node's mobility state, owned by the node but advanced only
// through Model.Move.
type State struct {
	Speed        float64
	Path         Path
	Progress     float64
	PathDuration float64
	LastMoveTime float64
}

// Model generates and advances Bezier paths within a square area of side
// AreaSize, at speeds uniformly drawn between MinSpeed and MaxSpeed.
type Model struct {
	AreaSize float64
	MinSpeed float64
	MaxSpeed float64
	Step     float64
	rng      *prng.Source
}

// NewModel creates a Model driven by rng.
func NewModel(areaSize, minSpeed, maxSpeed, step float64, rng *prng.Source) *Model {
	return &Model{AreaSize: areaSize, MinSpeed: minSpeed, MaxSpeed: maxSpeed, Step: step, rng: rng}
}

// Assign initializes a fresh mobility State for a node starting at (x, y).
func (m *Model) Assign(x, y float64) State {
	speed := m.MinSpeed + m.rng.Float64()*(m.MaxSpeed-m.MinSpeed)
	path := m.generatePath(x, y)
	return State{
		Speed:        speed,
		Path:         path,
		Progress:     0,
		PathDuration: m.approxLength(path) / speed,
		LastMoveTime: 0,
	}
}

func (m *Model) generatePath(x, y float64) Path {
	start := Point{X: x, Y: y}
	dest := Point{X: m.rng.Float64() * m.AreaSize, Y: m.rng.Float64() * m.AreaSize}
	offset := Point{
		X: (m.rng.Float64() - 0.5) * (m.AreaSize * 0.1),
		Y: (m.rng.Float64() - 0.5) * (m.AreaSize * 0.1),
	}
	cp1 := Point{
		X: start.X + (dest.X-start.X)/3 + offset.X,
		Y: start.Y + (dest.Y-start.Y)/3 + offset.Y,
	}
	cp2 := Point{
		X: start.X + 2*(dest.X-start.X)/3 - offset.X,
		Y: start.Y + 2*(dest.Y-start.Y)/3 - offset.Y,
	}
	return Path{start, cp1, cp2, dest}
}

func (m *Model) approxLength(path Path) float64 {
	const steps = 20
	prev := bezierPoint(path[0], path[1], path[2], path[3], 0.0)
	length := 0.0
	for i := 1; i <= steps; i++ {
		t := float64(i) / steps
		pos := bezierPoint(path[0], path[1], path[2], path[3], t)
		dx, dy := pos.X-prev.X, pos.Y-prev.Y
		length += math.Sqrt(dx*dx + dy*dy)
		prev = pos
	}
	return length
}

// Move advances state to currentTime, re-planning a new path whenever the
// node reaches its destination, and returns the new position.
func (m *Model) Move(state *State, currentTime float64) Point {
	dt := currentTime - state.LastMoveTime
	if dt <= 0 {
		p := bezierPoint(state.Path[0], state.Path[1], state.Path[2], state.Path[3], state.Progress)
		return p
	}
	state.Progress += dt / state.PathDuration
	for state.Progress >= 1.0 {
		dest := state.Path[3]
		state.Path = m.generatePath(dest.X, dest.Y)
		state.Progress -= 1.0
		state.PathDuration = m.approxLength(state.Path) / state.Speed
	}
	pos := bezierPoint(state.Path[0], state.Path[1], state.Path[2], state.Path[3], state.Progress)
	state.LastMoveTime = currentTime
	return pos
}
