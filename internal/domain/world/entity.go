package world

import (
	"fmt"
	"math/rand"

	"github.com/google/uuid"
)

// Rand is the randomness the world draws on. *rand.Rand satisfies it.
type Rand interface {
	Intn(n int) int
	Float64() float64
}

func NewRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// randBetween returns an int in [lo, hi].
func randBetween(r Rand, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + r.Intn(hi-lo+1)
}

type Direction uint8

// Directions are ordered so that Turn(1) is a quarter turn counter-clockwise.
const (
	DirUp Direction = iota
	DirLeft
	DirDown
	DirRight
)

var directionNames = [...]string{"up", "left", "down", "right"}

func (d Direction) String() string {
	if int(d) < len(directionNames) {
		return directionNames[d]
	}
	return fmt.Sprintf("direction(%d)", d)
}

func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d Direction) Turn(quarters int) Direction {
	return Direction(((int(d)+quarters)%4 + 4) % 4)
}

// Step returns the pixel delta for moving n units in direction d.
func (d Direction) Step(n int) (dx, dy int) {
	switch d {
	case DirUp:
		return 0, -n
	case DirLeft:
		return -n, 0
	case DirDown:
		return 0, n
	default:
		return n, 0
	}
}

func randomDirection(r Rand) Direction {
	return Direction(r.Intn(4))
}

const animationTicks = 10

// Entity is the movement, animation and health state shared by the player and
// every creature.
type Entity struct {
	ID     uuid.UUID
	Pos    Point
	Width  int
	Height int
	Facing Direction
	Frame  int
	Speed  int
	Alive  bool
	Health int

	frameTimer int
}

func (e *Entity) Rect() Rect {
	return Rect{X: e.Pos.X, Y: e.Pos.Y, W: e.Width, H: e.Height}
}

func (e *Entity) Center() Point {
	return Point{X: e.Pos.X + e.Width/2, Y: e.Pos.Y + e.Height/2}
}

func (e *Entity) canStand(tiles *TileMap, p Point) bool {
	return tiles.IsWalkable(p, e.Width, e.Height)
}

// tryMove commits p only if the footprint there is walkable.
func (e *Entity) tryMove(tiles *TileMap, p Point) bool {
	if !e.canStand(tiles, p) {
		return false
	}
	e.Pos = p
	return true
}

func (e *Entity) clamp(tiles *TileMap) {
	e.Pos.X = clampInt(e.Pos.X, 0, tiles.PixelWidth()-e.Width)
	e.Pos.Y = clampInt(e.Pos.Y, 0, tiles.PixelHeight()-e.Height)
}

// animate advances the frame timer every tick and the frame index every
// animationTicks ticks, but only while the entity is active.
func (e *Entity) animate(frames int, active bool) {
	if e.Frame >= frames {
		e.Frame = 0
	}
	e.frameTimer++
	if e.frameTimer < animationTicks {
		return
	}
	e.frameTimer = 0
	if active {
		e.Frame = (e.Frame + 1) % frames
	}
}

func clampInt(v, lo, hi int) int {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
