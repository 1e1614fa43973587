package main

import (
	"testing"

	domainworld "barnyard/internal/domain/world"
)

func TestSimulateShippedMeadow(t *testing.T) {
	summary, err := simulate("../../data/maps/meadow.csv", 5, 240)
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	if summary.spawns < 1 {
		t.Fatalf("expected the landmark to spawn a chicken, got %d spawns", summary.spawns)
	}
	chickens := summary.census[domainworld.KindChicken]
	if chickens[0]+chickens[1] != 50+summary.spawns {
		t.Fatalf("chicken census %v does not match 50 seeded + %d spawned", chickens, summary.spawns)
	}
	if chickens[1] > summary.deaths {
		t.Fatalf("%d dead chickens but only %d death events", chickens[1], summary.deaths)
	}
}

func TestSimulateMissingMap(t *testing.T) {
	if _, err := simulate("../../data/maps/nope.csv", 1, 1); err == nil {
		t.Fatal("expected an error for a missing map")
	}
}
