package world

import (
	"encoding/json"

	"github.com/google/uuid"
)

type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type Rect struct {
	X int
	Y int
	W int
	H int
}

// Overlaps reports whether the two rectangles share interior area; touching
// edges do not count.
func (r Rect) Overlaps(o Rect) bool {
	if r.W <= 0 || r.H <= 0 || o.W <= 0 || o.H <= 0 {
		return false
	}
	return r.X < o.X+o.W && o.X < r.X+r.W && r.Y < o.Y+o.H && o.Y < r.Y+r.H
}

func (r Rect) Intersect(o Rect) Rect {
	x0, y0 := max(r.X, o.X), max(r.Y, o.Y)
	x1, y1 := min(r.X+r.W, o.X+o.W), min(r.Y+r.H, o.Y+o.H)
	if x1 <= x0 || y1 <= y0 {
		return Rect{X: x0, Y: y0}
	}
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

func (r Rect) Area() int {
	return r.W * r.H
}

type EventKind string

const (
	EventCreatureSpawned EventKind = "creature_spawned"
	EventCreatureDied    EventKind = "creature_died"
	EventNightfall       EventKind = "nightfall"
	EventDaybreak        EventKind = "daybreak"
)

// Event is a discrete world occurrence produced by a simulation step.
type Event struct {
	Kind         EventKind `json:"kind"`
	Frame        uint64    `json:"frame"`
	Tick         int       `json:"tick"`
	CreatureID   uuid.UUID `json:"creature_id,omitempty"`
	CreatureKind Kind      `json:"creature_kind,omitempty"`
	Pos          Point     `json:"pos"`
}

// MarshalJSON leaves creature_id out of world-wide events such as daybreak.
func (e Event) MarshalJSON() ([]byte, error) {
	type plain Event
	out := struct {
		plain
		CreatureID *uuid.UUID `json:"creature_id,omitempty"`
	}{plain: plain(e)}
	if e.CreatureID != uuid.Nil {
		id := e.CreatureID
		out.CreatureID = &id
	}
	return json.Marshal(out)
}

type TileReadout struct {
	X    int      `json:"x"`
	Y    int      `json:"y"`
	Code TileCode `json:"code"`
}

type PlayerState struct {
	ID        uuid.UUID   `json:"id"`
	X         int         `json:"x"`
	Y         int         `json:"y"`
	Width     int         `json:"width"`
	Height    int         `json:"height"`
	Facing    Direction   `json:"facing"`
	Frame     int         `json:"frame"`
	Health    int         `json:"health"`
	Alive     bool        `json:"alive"`
	Attacking bool        `json:"attacking"`
	Jumping   bool        `json:"jumping"`
	Tile      TileReadout `json:"tile"`
}

type EffectState struct {
	Frame   int     `json:"frame"`
	Scale   float64 `json:"scale"`
	OffsetX int     `json:"offset_x"`
	OffsetY int     `json:"offset_y"`
}

type CreatureState struct {
	ID     uuid.UUID    `json:"id"`
	Kind   Kind         `json:"kind"`
	Role   Role         `json:"role"`
	State  State        `json:"state"`
	X      int          `json:"x"`
	Y      int          `json:"y"`
	Width  int          `json:"width"`
	Height int          `json:"height"`
	Facing Direction    `json:"facing"`
	Frame  int          `json:"frame"`
	Health int          `json:"health"`
	Alive  bool         `json:"alive"`
	Effect *EffectState `json:"effect,omitempty"`
}

type DialogState struct {
	CreatureID  uuid.UUID `json:"creature_id"`
	Text        string    `json:"text"`
	Options     []string  `json:"options"`
	SpeechTimer int       `json:"speech_timer"`
	Visible     bool      `json:"visible"`
}

type ClockState struct {
	Tick     int    `json:"tick"`
	Daytime  bool   `json:"daytime"`
	Darkness int    `json:"darkness"`
	Label    string `json:"label"`
}

// WorldState is the read-only per-frame view handed to renderers.
type WorldState struct {
	Frame     uint64          `json:"frame"`
	Clock     ClockState      `json:"clock"`
	Player    PlayerState     `json:"player"`
	Creatures []CreatureState `json:"creatures"`
	Decals    []Decal         `json:"decals"`
	Dialog    *DialogState    `json:"dialog,omitempty"`
}
