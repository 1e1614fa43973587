package world

import (
	"fmt"
	"math"

	"github.com/google/uuid"
)

type Role uint8

const (
	RoleHerbivore Role = iota
	RolePredator
	RolePrey
	RoleTalker
)

var roleNames = [...]string{"herbivore", "predator", "prey", "talker"}

func (r Role) String() string {
	if int(r) < len(roleNames) {
		return roleNames[r]
	}
	return fmt.Sprintf("role(%d)", r)
}

func (r Role) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

type State uint8

const (
	StateWandering State = iota
	StateFleeing
	StateChasing
	StateAttacking
	StateDead
)

var stateNames = [...]string{"wandering", "fleeing", "chasing", "attacking", "dead"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", s)
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

type Kind string

const (
	KindCow     Kind = "cow"
	KindChicken Kind = "chicken"
	KindPig     Kind = "pig"
	KindWizard  Kind = "wizard"
)

// KindSpec is the per-kind row of the creature table.
type KindSpec struct {
	Role   Role
	Size   int
	Frames int
	Speed  int
}

var kindSpecs = map[Kind]KindSpec{
	KindCow:     {Role: RoleHerbivore, Size: 128, Frames: 4, Speed: 1},
	KindChicken: {Role: RolePrey, Size: 32, Frames: 4, Speed: 1},
	KindPig:     {Role: RolePredator, Size: 128, Frames: 4, Speed: 1},
	KindWizard:  {Role: RoleTalker, Size: 48, Frames: 3, Speed: 1},
}

func SpecFor(k Kind) (KindSpec, bool) {
	s, ok := kindSpecs[k]
	return s, ok
}

const (
	creatureHealth    = 100
	wanderTurnChance  = 0.01
	crowdingThreshold = 200
	fleeDuration      = 60
	fleeSpeedMin      = 3
	fleeSpeedMax      = 10
	calmSpeed         = 1
	chaseRadius       = 200
	chaseSpeedFactor  = 2
	contactDamage     = 10
)

type Creature struct {
	Entity
	Kind   Kind
	Role   Role
	State  State
	Frames int
	Moving bool
	Effect HitEffect
	// Talker is set only for RoleTalker creatures.
	Talker *Talker

	fleeTimer int
}

func NewCreature(kind Kind, pos Point, rng Rand) (*Creature, error) {
	spec, ok := SpecFor(kind)
	if !ok {
		return nil, fmt.Errorf("unknown creature kind %q", kind)
	}
	return &Creature{
		Entity: Entity{
			ID:     uuid.New(),
			Pos:    pos,
			Width:  spec.Size,
			Height: spec.Size,
			Facing: randomDirection(rng),
			Speed:  spec.Speed,
			Alive:  true,
			Health: creatureHealth,
		},
		Kind:   kind,
		Role:   spec.Role,
		State:  StateWandering,
		Frames: spec.Frames,
	}, nil
}

func (c *Creature) FleeTimer() int { return c.fleeTimer }

func (c *Creature) startFleeing() {
	c.State = StateFleeing
	c.fleeTimer = 0
}

// Update runs one frame of the behavior state machine. others is the whole
// registry; c itself is skipped.
func (c *Creature) Update(tiles *TileMap, others []*Creature, rng Rand) {
	c.Effect.advance()
	if !c.Alive {
		return
	}
	c.Moving = false
	switch c.State {
	case StateFleeing:
		c.flee(tiles, rng)
	default:
		c.wander(tiles, others, rng)
	}
	c.clamp(tiles)
	c.animate(c.Frames, c.Moving)
}

func (c *Creature) wander(tiles *TileMap, others []*Creature, rng Rand) {
	if rng.Float64() < wanderTurnChance {
		c.Facing = randomDirection(rng)
	}
	dx, dy := c.Facing.Step(c.Speed)
	next := Point{X: c.Pos.X + dx, Y: c.Pos.Y + dy}
	box := Rect{X: next.X, Y: next.Y, W: c.Width, H: c.Height}

	// Only the first crowding neighbour decides: heavy overlap may push
	// through, a light graze blocks. Corpses still occupy ground.
	for _, o := range others {
		if o == c || !box.Overlaps(o.Rect()) {
			continue
		}
		if box.Intersect(o.Rect()).Area() > crowdingThreshold && c.tryMove(tiles, next) {
			c.Moving = true
		}
		return
	}
	if c.tryMove(tiles, next) {
		c.Moving = true
	}
}

func (c *Creature) flee(tiles *TileMap, rng Rand) {
	c.fleeTimer++
	c.Speed = randBetween(rng, fleeSpeedMin, fleeSpeedMax)
	if c.fleeTimer >= fleeDuration {
		c.State = StateWandering
		c.Speed = calmSpeed
		c.fleeTimer = 0
	}
	for _, dir := range []Direction{c.Facing, c.Facing.Turn(1), c.Facing.Turn(-1)} {
		dx, dy := dir.Step(c.Speed)
		if c.tryMove(tiles, Point{X: c.Pos.X + dx, Y: c.Pos.Y + dy}) {
			c.Facing = dir
			c.Moving = true
			return
		}
	}
}

// Chase closes in on target and bites it on contact. Out of range the call is
// a no-op; the chaser keeps its state.
func (c *Creature) Chase(target *Creature, tiles *TileMap, combat *CombatResolver) bool {
	if !c.Alive || !target.Alive {
		return false
	}
	if c.State == StateWandering {
		c.State = StateChasing
	}
	from, to := c.Center(), target.Center()
	dx, dy := float64(to.X-from.X), float64(to.Y-from.Y)
	dist := math.Hypot(dx, dy)
	if dist >= chaseRadius {
		return false
	}
	contact := float64(target.Width)
	if dist > contact {
		stepX := int(math.Round(float64(c.Speed) * dx / dist * chaseSpeedFactor))
		stepY := int(math.Round(float64(c.Speed) * dy / dist * chaseSpeedFactor))
		if c.tryMove(tiles, Point{X: c.Pos.X + stepX, Y: c.Pos.Y + stepY}) {
			c.Facing = dominantFacing(dx, dy)
			c.Moving = true
			c.clamp(tiles)
		}
	}
	if dist < contact {
		return combat.ContactAttack(c, target)
	}
	return false
}

func dominantFacing(dx, dy float64) Direction {
	if math.Abs(dx) > math.Abs(dy) {
		if dx > 0 {
			return DirRight
		}
		return DirLeft
	}
	if dy > 0 {
		return DirDown
	}
	return DirUp
}

func (c *Creature) Snapshot() CreatureState {
	cs := CreatureState{
		ID:     c.ID,
		Kind:   c.Kind,
		Role:   c.Role,
		State:  c.State,
		X:      c.Pos.X,
		Y:      c.Pos.Y,
		Width:  c.Width,
		Height: c.Height,
		Facing: c.Facing,
		Frame:  c.Frame,
		Health: c.Health,
		Alive:  c.Alive,
	}
	if c.Effect.Active {
		cs.Effect = &EffectState{
			Frame:   c.Effect.Frame,
			Scale:   c.Effect.Scale,
			OffsetX: c.Effect.Offset.X,
			OffsetY: c.Effect.Offset.Y,
		}
	}
	return cs
}
