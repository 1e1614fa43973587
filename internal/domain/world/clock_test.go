package world

import "testing"

func TestDayNightBoundary(t *testing.T) {
	c := NewClock(20 * TicksPerSecond)
	c.tick = 1199
	if !c.IsDaytime() {
		t.Fatal("tick 1199 should be daytime")
	}
	c.Advance()
	if c.Tick() != 1200 || c.IsDaytime() {
		t.Fatalf("tick %d should start the night", c.Tick())
	}
	if c.Phase() != PhaseNight {
		t.Fatalf("phase = %s", c.Phase())
	}
}

func TestClockWrapsAfterFullCycle(t *testing.T) {
	c := NewClock(50)
	for i := 0; i < 100; i++ {
		c.Advance()
	}
	if c.Tick() != 0 {
		t.Fatalf("expected wrap to 0, got %d", c.Tick())
	}
	if !c.AtDayStart() {
		t.Fatal("tick 0 is the start of the day")
	}
	c.Advance()
	if c.AtDayStart() {
		t.Fatal("only tick 0 starts the day")
	}
}

func TestDarknessRamps(t *testing.T) {
	c := NewClock(DayDuration)
	cases := []struct {
		tick int
		want int
	}{
		{0, 0},
		{DayDuration - TransitionDuration, 0},
		{DayDuration - TransitionDuration/2, 100},
		{DayDuration, maxDarkness},
		{2*DayDuration - TransitionDuration, maxDarkness},
		{2*DayDuration - TransitionDuration/2, 100},
		{2*DayDuration - 1, maxDarkness / TransitionDuration},
	}
	for _, tc := range cases {
		c.tick = tc.tick
		if got := c.Darkness(); got != tc.want {
			t.Fatalf("Darkness at %d = %d, want %d", tc.tick, got, tc.want)
		}
	}
}

func TestClockLabel(t *testing.T) {
	c := NewClock(DayDuration)
	c.tick = 61*60 + 7
	if got := c.Label(); got != "13:07" {
		t.Fatalf("Label = %q", got)
	}
}
