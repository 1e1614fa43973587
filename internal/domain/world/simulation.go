package world

import (
	"fmt"
	"math"
	"time"
)

type PopulationEntry struct {
	Kind  Kind
	Count int
}

type Config struct {
	// Seed feeds the default random source; zero means time seeded.
	Seed int64
	// Rand overrides the random source entirely.
	Rand          Rand
	DayLength     int
	PlayerStart   Point
	TalkerStart   *Point
	Population    []PopulationEntry
	Dialog        *DialogTree
	SpawnAttempts int
}

func DefaultConfig() Config {
	talker := Point{X: 1500, Y: 1500}
	return Config{
		DayLength:   DayDuration,
		PlayerStart: Point{X: 2000, Y: 1500},
		TalkerStart: &talker,
		Population: []PopulationEntry{
			{Kind: KindCow, Count: 5},
			{Kind: KindChicken, Count: 50},
			{Kind: KindPig, Count: 10},
		},
	}
}

// Simulation is the whole world stepped one frame at a time. It is not safe
// for concurrent use; callers serialize Step and Snapshot.
type Simulation struct {
	tiles     *TileMap
	clock     Clock
	rng       Rand
	player    *Player
	creatures []*Creature
	talker    *Creature
	combat    *CombatResolver
	spawner   *SpawnScheduler
	landmark  Point
	hasMark   bool
	frame     uint64
	events    []Event
}

func New(tiles *TileMap, cfg Config) (*Simulation, error) {
	rng := cfg.Rand
	if rng == nil {
		seed := cfg.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		rng = NewRand(seed)
	}
	s := &Simulation{
		tiles:   tiles,
		clock:   NewClock(cfg.DayLength),
		rng:     rng,
		player:  NewPlayer(cfg.PlayerStart),
		combat:  NewCombatResolver(tiles, rng),
		spawner: NewSpawnScheduler(tiles, rng, cfg.SpawnAttempts),
	}
	if mark, ok := tiles.Find(TileChickenSpawn); ok {
		s.landmark = Point{X: mark.X, Y: mark.Y + TileSize}
		s.hasMark = true
	}

	// The wizard is placed first so seeding samples around it, and is moved
	// to the end of the registry afterwards.
	if cfg.TalkerStart != nil {
		wizard, ok := s.spawner.SpawnAt(KindWizard, *cfg.TalkerStart, nil)
		if !ok {
			return nil, fmt.Errorf("place %s at %v: %w", KindWizard, *cfg.TalkerStart, ErrNoSpawnSite)
		}
		wizard.Talker = NewTalker(cfg.Dialog)
		s.talker = wizard
		s.creatures = append(s.creatures, wizard)
	}

	for _, entry := range cfg.Population {
		for i := 0; i < entry.Count; i++ {
			c, err := s.spawner.TrySpawn(entry.Kind, s.creatures)
			if err != nil {
				return nil, fmt.Errorf("seed %s %d/%d: %w", entry.Kind, i+1, entry.Count, err)
			}
			s.creatures = append(s.creatures, c)
		}
	}
	if s.talker != nil {
		s.creatures = append(s.creatures[1:], s.talker)
	}
	return s, nil
}

func (s *Simulation) Tiles() *TileMap         { return s.tiles }
func (s *Simulation) Clock() Clock            { return s.clock }
func (s *Simulation) Player() *Player         { return s.player }
func (s *Simulation) Talker() *Creature       { return s.talker }
func (s *Simulation) Frame() uint64           { return s.frame }
func (s *Simulation) Creatures() []*Creature  { return s.creatures }
func (s *Simulation) Decals() []Decal         { return s.combat.Decals() }
func (s *Simulation) Combat() *CombatResolver { return s.combat }

// SpawnAt places a creature at an exact point, subject to the usual site
// checks. It must be called between steps.
func (s *Simulation) SpawnAt(kind Kind, pos Point) (*Creature, bool) {
	c, ok := s.spawner.SpawnAt(kind, pos, s.creatures)
	if !ok {
		return nil, false
	}
	s.creatures = append(s.creatures, c)
	s.emit(EventCreatureSpawned, c)
	return c, true
}

// Step advances the world by one frame and returns the events it produced.
func (s *Simulation) Step(in Intent) []Event {
	for _, p := range in.Spawns {
		s.SpawnAt(KindChicken, p)
	}
	if in.Attack {
		s.player.StartAttack()
	}
	if s.talker != nil && s.talker.Alive {
		if in.Talk {
			s.talker.Talker.Talk()
		}
		if in.Select > 0 {
			s.talker.Talker.Select(in.Select - 1)
		}
	}

	s.player.Update(in, s.tiles)
	for _, c := range s.combat.PlayerSwing(s.player, s.creatures) {
		s.emit(EventCreatureDied, c)
	}

	for _, c := range s.creatures {
		if c.Role == RoleTalker {
			continue
		}
		c.Update(s.tiles, s.creatures, s.rng)
	}
	if s.clock.IsDaytime() {
		s.hunt()
	}
	for _, c := range s.creatures {
		if c.Role == RoleTalker {
			s.updateTalker(c)
		}
	}

	if s.clock.AtDayStart() && s.hasMark {
		if c, ok := s.SpawnAt(KindChicken, s.landmark); ok {
			c.startFleeing()
		}
	}

	s.clock.Advance()
	switch s.clock.Tick() {
	case 0:
		s.emit(EventDaybreak, nil)
	case s.clock.DayLength():
		s.emit(EventNightfall, nil)
	}
	s.frame++
	events := s.events
	s.events = nil
	return events
}

// hunt sends every live predator after the nearest live prey in range.
func (s *Simulation) hunt() {
	for _, pred := range s.creatures {
		if pred.Role != RolePredator || !pred.Alive {
			continue
		}
		var prey *Creature
		best := math.Inf(1)
		for _, c := range s.creatures {
			if c.Role != RolePrey || !c.Alive {
				continue
			}
			d := math.Hypot(float64(pred.Pos.X-c.Pos.X), float64(pred.Pos.Y-c.Pos.Y))
			if d < best {
				best, prey = d, c
			}
		}
		if prey == nil || best >= chaseRadius {
			continue
		}
		if pred.Chase(prey, s.tiles, s.combat) {
			s.emit(EventCreatureDied, prey)
		}
	}
}

func (s *Simulation) updateTalker(c *Creature) {
	c.Update(s.tiles, s.creatures, s.rng)
	if c.Talker == nil {
		return
	}
	if c.Alive {
		d := math.Hypot(float64(c.Pos.X-s.player.Pos.X), float64(c.Pos.Y-s.player.Pos.Y))
		if d < talkRange {
			c.Talker.Talk()
		}
	}
	c.Talker.Tick()
}

func (s *Simulation) emit(kind EventKind, c *Creature) {
	evt := Event{Kind: kind, Frame: s.frame, Tick: s.clock.Tick()}
	if c != nil {
		evt.CreatureID = c.ID
		evt.CreatureKind = c.Kind
		evt.Pos = c.Pos
	}
	s.events = append(s.events, evt)
}

func (s *Simulation) Snapshot() WorldState {
	creatures := make([]CreatureState, 0, len(s.creatures))
	for _, c := range s.creatures {
		creatures = append(creatures, c.Snapshot())
	}
	ws := WorldState{
		Frame:     s.frame,
		Clock:     s.clock.State(),
		Player:    s.player.snapshot(s.tiles),
		Creatures: creatures,
		Decals:    s.combat.Decals(),
	}
	if s.talker != nil && s.talker.Talker != nil {
		ws.Dialog = s.talker.Talker.snapshot(s.talker)
	}
	return ws
}

// Census counts live and dead creatures per kind.
func (s *Simulation) Census() map[Kind][2]int {
	out := make(map[Kind][2]int)
	for _, c := range s.creatures {
		n := out[c.Kind]
		if c.Alive {
			n[0]++
		} else {
			n[1]++
		}
		out[c.Kind] = n
	}
	return out
}
