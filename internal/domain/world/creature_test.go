package world

import "testing"

func newTestCreature(t *testing.T, kind Kind, pos Point, facing Direction) *Creature {
	t.Helper()
	c, err := NewCreature(kind, pos, stubRand{f: 0.5})
	if err != nil {
		t.Fatalf("NewCreature err: %v", err)
	}
	c.Facing = facing
	return c
}

func TestWanderBlockedByWater(t *testing.T) {
	rows := grassMap(10, 10).Rows()
	rows[5][5] = TileWater
	tiles, err := NewTileMap(rows)
	if err != nil {
		t.Fatalf("NewTileMap err: %v", err)
	}
	// Footprint center sits on the last pixel column of tile (4,5).
	start := Point{X: 4*TileSize + 15, Y: 5 * TileSize}
	c := newTestCreature(t, KindChicken, start, DirRight)
	rng := stubRand{f: 0.5}

	c.Update(tiles, []*Creature{c}, rng)
	if c.Pos != start {
		t.Fatalf("expected step into water to be blocked, moved to %v", c.Pos)
	}

	c.Facing = DirDown
	c.Update(tiles, []*Creature{c}, rng)
	if c.Pos != (Point{X: start.X, Y: start.Y + 1}) {
		t.Fatalf("expected step down to succeed, at %v", c.Pos)
	}
}

func TestWanderCrowdingThreshold(t *testing.T) {
	tiles := grassMap(20, 20)
	rng := stubRand{f: 0.5}

	a := newTestCreature(t, KindChicken, Point{X: 100, Y: 100}, DirRight)
	heavy := newTestCreature(t, KindChicken, Point{X: 120, Y: 100}, DirUp)
	a.Update(tiles, []*Creature{a, heavy}, rng)
	if a.Pos.X != 101 {
		t.Fatalf("heavy overlap should let the move through, x=%d", a.Pos.X)
	}

	b := newTestCreature(t, KindChicken, Point{X: 100, Y: 100}, DirRight)
	graze := newTestCreature(t, KindChicken, Point{X: 128, Y: 100}, DirUp)
	b.Update(tiles, []*Creature{b, graze}, rng)
	if b.Pos.X != 100 {
		t.Fatalf("light overlap must block, x=%d", b.Pos.X)
	}
	if b.Moving {
		t.Fatal("blocked creature should not be moving")
	}
}

func TestFleeLastsExactlyFleeDuration(t *testing.T) {
	tiles := grassMap(40, 20)
	rng := stubRand{f: 0.5}
	combat := NewCombatResolver(tiles, rng)
	c := newTestCreature(t, KindChicken, Point{X: 320, Y: 320}, DirUp)

	combat.ApplyDamage(Point{X: 0, Y: 320}, c, 5)
	if c.State != StateFleeing || c.Facing != DirRight {
		t.Fatalf("expected fleeing to the right, got %s facing %s", c.State, c.Facing)
	}
	for i := 0; i < 30; i++ {
		c.Update(tiles, []*Creature{c}, rng)
	}
	combat.ApplyDamage(Point{X: 0, Y: 320}, c, 5)
	if c.FleeTimer() != 0 {
		t.Fatalf("re-damage must reset the flee timer, got %d", c.FleeTimer())
	}
	for i := 0; i < fleeDuration-1; i++ {
		c.Update(tiles, []*Creature{c}, rng)
		if c.State != StateFleeing {
			t.Fatalf("left fleeing early after %d frames", i+1)
		}
	}
	c.Update(tiles, []*Creature{c}, rng)
	if c.State != StateWandering {
		t.Fatalf("expected wandering after %d frames, got %s", fleeDuration, c.State)
	}
	if c.Speed != calmSpeed {
		t.Fatalf("expected calm speed after fleeing, got %d", c.Speed)
	}
}

func TestFleeFallsBackToSideways(t *testing.T) {
	rows := grassMap(10, 10).Rows()
	for y := range rows {
		rows[y][6] = TileWater
	}
	tiles, err := NewTileMap(rows)
	if err != nil {
		t.Fatalf("NewTileMap err: %v", err)
	}
	rng := stubRand{f: 0.5, n: 7} // flee speed 10
	c := newTestCreature(t, KindChicken, Point{X: 5*TileSize + 10, Y: 160}, DirRight)
	c.startFleeing()

	c.Update(tiles, []*Creature{c}, rng)
	// Right is water; a quarter turn counter-clockwise from right is up.
	if c.Facing != DirUp || c.Pos != (Point{X: 5*TileSize + 10, Y: 150}) {
		t.Fatalf("expected to dodge upwards, facing %s at %v", c.Facing, c.Pos)
	}
}

func TestDeadCreatureIsInert(t *testing.T) {
	tiles := grassMap(10, 10)
	rng := stubRand{f: 0.5}
	c := newTestCreature(t, KindChicken, Point{X: 64, Y: 64}, DirRight)
	NewCombatResolver(tiles, rng).ApplyDamage(Point{}, c, 200)

	before := *c
	for i := 0; i < 100; i++ {
		c.Update(tiles, []*Creature{c}, rng)
	}
	if c.Pos != before.Pos || c.Facing != before.Facing || c.State != StateDead || c.Frame != before.Frame {
		t.Fatalf("dead creature changed: %+v -> %+v", before.Entity, c.Entity)
	}
}

func TestChaseStepsTowardAndBites(t *testing.T) {
	tiles := grassMap(20, 20)
	rng := stubRand{f: 0.5}
	combat := NewCombatResolver(tiles, rng)

	pig := newTestCreature(t, KindPig, Point{X: 100, Y: 100}, DirUp)
	hen := newTestCreature(t, KindChicken, Point{X: 300, Y: 164}, DirUp)
	if pig.Chase(hen, tiles, combat) {
		t.Fatal("no bite expected at range")
	}
	if pig.Pos != (Point{X: 102, Y: 100}) || pig.Facing != DirRight || pig.State != StateChasing {
		t.Fatalf("unexpected chase step: %v facing %s state %s", pig.Pos, pig.Facing, pig.State)
	}

	near := newTestCreature(t, KindChicken, Point{X: 150, Y: 150}, DirUp)
	pig.Pos = Point{X: 100, Y: 100}
	pig.Chase(near, tiles, combat)
	if near.Health != creatureHealth-contactDamage || near.State != StateFleeing {
		t.Fatalf("expected a bite, health %d state %s", near.Health, near.State)
	}

	far := newTestCreature(t, KindChicken, Point{X: 500, Y: 500}, DirUp)
	pig.Pos = Point{X: 100, Y: 100}
	pig.Chase(far, tiles, combat)
	if pig.Pos != (Point{X: 100, Y: 100}) {
		t.Fatalf("out of range chase must not move, at %v", pig.Pos)
	}
}

func TestDirectionTurn(t *testing.T) {
	if DirUp.Turn(-1) != DirRight || DirRight.Turn(1) != DirUp || DirLeft.Turn(2) != DirRight {
		t.Fatal("Turn does not wrap around the compass")
	}
}

func TestCorpseCrowdsLikeTheLiving(t *testing.T) {
	tiles := grassMap(20, 20)
	rng := stubRand{f: 0.5}

	a := newTestCreature(t, KindChicken, Point{X: 100, Y: 100}, DirRight)
	corpse := newTestCreature(t, KindChicken, Point{X: 128, Y: 100}, DirUp)
	corpse.Alive = false
	corpse.State = StateDead
	a.Update(tiles, []*Creature{a, corpse}, rng)
	if a.Pos.X != 100 {
		t.Fatalf("a light graze with a corpse must block, x=%d", a.Pos.X)
	}
}
