package world

import "fmt"

const (
	TicksPerSecond     = 60
	DayDuration        = 20 * TicksPerSecond
	TransitionDuration = 120
	maxDarkness        = 200
)

type Phase string

const (
	PhaseDay   Phase = "day"
	PhaseNight Phase = "night"
)

// Clock counts frames modulo two day lengths: the first half is day, the
// second half night.
type Clock struct {
	tick      int
	dayLength int
}

func NewClock(dayLength int) Clock {
	if dayLength <= 0 {
		dayLength = DayDuration
	}
	return Clock{dayLength: dayLength}
}

func (c Clock) Tick() int      { return c.tick }
func (c Clock) DayLength() int { return c.dayLength }

func (c *Clock) Advance() {
	c.tick = (c.tick + 1) % (2 * c.dayLength)
}

func (c Clock) IsDaytime() bool {
	return c.tick < c.dayLength
}

func (c Clock) Phase() Phase {
	if c.IsDaytime() {
		return PhaseDay
	}
	return PhaseNight
}

// AtDayStart is true on the first tick of each full cycle.
func (c Clock) AtDayStart() bool {
	return c.IsDaytime() && c.tick%c.dayLength == 0
}

// Darkness is the night overlay alpha in [0, 200], ramping over the last
// TransitionDuration ticks of each half.
func (c Clock) Darkness() int {
	into := c.tick % c.dayLength
	ramp := c.dayLength - TransitionDuration
	if !c.IsDaytime() {
		if into > ramp {
			return maxDarkness * (c.dayLength - into) / TransitionDuration
		}
		return maxDarkness
	}
	if into > ramp {
		return maxDarkness * (into - ramp) / TransitionDuration
	}
	return 0
}

func (c Clock) Label() string {
	return fmt.Sprintf("%02d:%02d", (c.tick/60)%24, c.tick%60)
}

func (c Clock) State() ClockState {
	return ClockState{
		Tick:     c.tick,
		Daytime:  c.IsDaytime(),
		Darkness: c.Darkness(),
		Label:    c.Label(),
	}
}
