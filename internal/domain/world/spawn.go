package world

import (
	"errors"
	"fmt"
)

const defaultSpawnAttempts = 100000

var ErrNoSpawnSite = errors.New("no free spawn site")

// SpawnScheduler places new creatures on walkable ground clear of every
// existing creature, live or dead.
type SpawnScheduler struct {
	tiles       *TileMap
	rng         Rand
	maxAttempts int
}

func NewSpawnScheduler(tiles *TileMap, rng Rand, maxAttempts int) *SpawnScheduler {
	if maxAttempts <= 0 {
		maxAttempts = defaultSpawnAttempts
	}
	return &SpawnScheduler{tiles: tiles, rng: rng, maxAttempts: maxAttempts}
}

// SiteFree reports whether a size x size footprint at pos lies fully inside
// the world, clear of every creature, with its center on walkable ground.
func (s *SpawnScheduler) SiteFree(pos Point, size int, registry []*Creature) bool {
	if pos.X < 0 || pos.Y < 0 || pos.X > s.tiles.PixelWidth()-size || pos.Y > s.tiles.PixelHeight()-size {
		return false
	}
	box := Rect{X: pos.X, Y: pos.Y, W: size, H: size}
	for _, c := range registry {
		if box.Overlaps(c.Rect()) {
			return false
		}
	}
	return s.tiles.IsWalkable(pos, size, size)
}

// Sample draws uniform positions inside the world until one is free.
func (s *SpawnScheduler) Sample(kind Kind, registry []*Creature) (Point, error) {
	spec, ok := SpecFor(kind)
	if !ok {
		return Point{}, fmt.Errorf("unknown creature kind %q", kind)
	}
	maxX := s.tiles.PixelWidth() - spec.Size
	maxY := s.tiles.PixelHeight() - spec.Size
	for i := 0; i < s.maxAttempts; i++ {
		p := Point{X: randBetween(s.rng, 0, maxX), Y: randBetween(s.rng, 0, maxY)}
		if s.SiteFree(p, spec.Size, registry) {
			return p, nil
		}
	}
	return Point{}, fmt.Errorf("%w for %s after %d attempts", ErrNoSpawnSite, kind, s.maxAttempts)
}

// TrySpawn samples a site and builds the creature there. The caller appends
// it to the registry.
func (s *SpawnScheduler) TrySpawn(kind Kind, registry []*Creature) (*Creature, error) {
	p, err := s.Sample(kind, registry)
	if err != nil {
		return nil, err
	}
	return NewCreature(kind, p, s.rng)
}

// SpawnAt builds a creature at exactly pos, or reports false if the site is
// taken or not walkable.
func (s *SpawnScheduler) SpawnAt(kind Kind, pos Point, registry []*Creature) (*Creature, bool) {
	spec, ok := SpecFor(kind)
	if !ok || !s.SiteFree(pos, spec.Size, registry) {
		return nil, false
	}
	c, err := NewCreature(kind, pos, s.rng)
	if err != nil {
		return nil, false
	}
	return c, true
}
