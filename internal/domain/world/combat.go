package world

const (
	hitEffectFrames     = 13
	hitEffectFrameTicks = 3
	hitEffectBaseSize   = 32
	puddleScale         = 0.5
)

// HitEffect is the blood splash played over a creature after a hit. It has no
// gameplay effect and keeps running after death.
type HitEffect struct {
	Active bool
	Frame  int
	Scale  float64
	// Offset positions the scaled splash relative to the creature origin.
	Offset Point

	timer int
}

func (h *HitEffect) start(rng Rand, w, ht int) {
	h.Active = true
	h.Frame = 0
	h.timer = 0
	h.Scale = 1 + rng.Float64()
	size := int(hitEffectBaseSize * h.Scale)
	h.Offset = Point{X: w/2 - size/2, Y: ht/2 - size/2}
}

func (h *HitEffect) advance() {
	if !h.Active {
		return
	}
	h.timer++
	if h.timer < hitEffectFrameTicks {
		return
	}
	h.timer = 0
	h.Frame++
	if h.Frame >= hitEffectFrames {
		h.Active = false
		h.Frame = 0
	}
}

// Decal is a puddle left on the ground where a creature died.
type Decal struct {
	Pos   Point   `json:"pos"`
	Scale float64 `json:"scale"`
	Angle float64 `json:"angle"`
}

// CombatResolver applies hits and records the decals they leave behind.
type CombatResolver struct {
	tiles  *TileMap
	rng    Rand
	decals []Decal
}

func NewCombatResolver(tiles *TileMap, rng Rand) *CombatResolver {
	return &CombatResolver{tiles: tiles, rng: rng}
}

func (r *CombatResolver) Decals() []Decal {
	return append([]Decal(nil), r.decals...)
}

// ApplyDamage hits defender for amount on behalf of an attacker standing at
// from. It reports whether the hit killed the defender. Hits on creatures
// already at or below zero health are ignored.
func (r *CombatResolver) ApplyDamage(from Point, defender *Creature, amount int) bool {
	if defender.Health <= 0 {
		return false
	}
	defender.Health -= amount
	killed := defender.Health <= 0
	if killed {
		defender.Alive = false
		defender.State = StateDead
		defender.Moving = false
		if code, ok := r.tiles.TileAt(defender.Pos); ok && code.Walkable() {
			r.decals = append(r.decals, Decal{
				Pos:   defender.Pos,
				Scale: puddleScale,
				Angle: r.rng.Float64() * 360,
			})
		}
	}

	defender.Effect.start(r.rng, defender.Width, defender.Height)
	if killed {
		return true
	}

	defender.startFleeing()
	// Horizontal first, vertical overrides when both differ.
	if from.X < defender.Pos.X {
		defender.Facing = DirRight
	} else if from.X > defender.Pos.X {
		defender.Facing = DirLeft
	}
	if from.Y < defender.Pos.Y {
		defender.Facing = DirDown
	} else if from.Y > defender.Pos.Y {
		defender.Facing = DirUp
	}
	return false
}

// PlayerSwing tests the player's attack box against every live creature and
// returns those killed this frame. Creatures inside the box take damage on
// every frame of the swing.
func (r *CombatResolver) PlayerSwing(p *Player, creatures []*Creature) []*Creature {
	if !p.Attacking {
		return nil
	}
	box := p.AttackBox()
	var killed []*Creature
	for _, c := range creatures {
		if !c.Alive || !box.Overlaps(c.Rect()) {
			continue
		}
		if r.ApplyDamage(p.Pos, c, playerAttackDamage) {
			killed = append(killed, c)
		}
	}
	p.tickAttack()
	return killed
}

// ContactAttack is a predator bite; it reports whether the target died.
func (r *CombatResolver) ContactAttack(attacker, target *Creature) bool {
	if target.Health <= 0 {
		return false
	}
	return r.ApplyDamage(attacker.Pos, target, contactDamage)
}
