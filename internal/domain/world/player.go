package world

import "github.com/google/uuid"

const (
	playerWidth        = 32
	playerHeight       = 64
	playerSpeed        = 4
	playerHealth       = 100
	playerAttackDamage = 1
	attackDuration     = 20
	walkFrames         = 4
	jumpFrames         = 3
	attackFrames       = 4
)

// Move is a bitset of held direction keys.
type Move uint8

const (
	MoveLeft Move = 1 << iota
	MoveRight
	MoveUp
	MoveDown
)

func (m Move) Has(bit Move) bool { return m&bit != 0 }

// Intent is the debounced input for one frame.
type Intent struct {
	Move   Move
	Jump   bool
	Attack bool
	Talk   bool
	// Select is the 1-based dialog option chosen this frame, 0 for none.
	Select int
	Spawns []Point
}

// Merge folds a later intent into i: movement is replaced, pulses accumulate.
func (i Intent) Merge(next Intent) Intent {
	out := Intent{
		Move:   next.Move,
		Jump:   next.Jump,
		Attack: i.Attack || next.Attack,
		Talk:   i.Talk || next.Talk,
		Select: i.Select,
		Spawns: append(append([]Point(nil), i.Spawns...), next.Spawns...),
	}
	if next.Select > 0 {
		out.Select = next.Select
	}
	return out
}

type Player struct {
	Entity
	Attacking bool
	Jumping   bool
	Moving    bool

	attackCounter int
}

func NewPlayer(pos Point) *Player {
	return &Player{Entity: Entity{
		ID:     uuid.New(),
		Pos:    pos,
		Width:  playerWidth,
		Height: playerHeight,
		Facing: DirUp,
		Speed:  playerSpeed,
		Alive:  true,
		Health: playerHealth,
	}}
}

// Update moves the player one frame according to the held keys.
func (p *Player) Update(in Intent, tiles *TileMap) {
	p.Moving = false
	p.Jumping = in.Jump
	next := p.Pos

	if in.Move.Has(MoveLeft) {
		next.X -= p.Speed
		p.Facing = DirLeft
		p.Moving = true
	}
	if in.Move.Has(MoveRight) {
		next.X += p.Speed
		p.Facing = DirRight
		p.Moving = true
	}
	if in.Move.Has(MoveUp) {
		next.Y -= p.Speed
		p.Facing = DirUp
		p.Moving = true
	}
	if in.Move.Has(MoveDown) {
		next.Y += p.Speed
		p.Facing = DirDown
		p.Moving = true
	}

	if !p.tryMove(tiles, next) {
		p.Frame = 0
	}
	p.clamp(tiles)
	p.animate(p.frameSet(), p.Jumping || p.Moving || p.Attacking)
}

func (p *Player) frameSet() int {
	switch {
	case p.Jumping:
		return jumpFrames
	case p.Moving:
		return walkFrames
	default:
		return attackFrames
	}
}

func (p *Player) StartAttack() {
	p.Attacking = true
	p.attackCounter = attackDuration
}

// AttackBox is the strip in front of the player that the swing covers.
func (p *Player) AttackBox() Rect {
	x, y, w, h := p.Pos.X, p.Pos.Y, p.Width, p.Height
	switch p.Facing {
	case DirDown:
		return Rect{X: x, Y: y + h, W: w, H: h / 2}
	case DirRight:
		return Rect{X: x + w, Y: y, W: w / 2, H: h}
	case DirUp:
		return Rect{X: x, Y: y - h/2, W: w, H: h / 2}
	default:
		return Rect{X: x - w/2, Y: y, W: w / 2, H: h}
	}
}

// tickAttack counts the attack window down; it reports whether the swing was
// live this frame.
func (p *Player) tickAttack() bool {
	if !p.Attacking {
		return false
	}
	p.attackCounter--
	if p.attackCounter <= 0 {
		p.Attacking = false
		p.Frame = 0
	}
	return true
}

func (p *Player) State() State {
	switch {
	case !p.Alive:
		return StateDead
	case p.Attacking:
		return StateAttacking
	default:
		return StateWandering
	}
}

func (p *Player) snapshot(tiles *TileMap) PlayerState {
	code, _ := tiles.TileAt(p.Pos)
	return PlayerState{
		ID:        p.ID,
		X:         p.Pos.X,
		Y:         p.Pos.Y,
		Width:     p.Width,
		Height:    p.Height,
		Facing:    p.Facing,
		Frame:     p.Frame,
		Health:    p.Health,
		Alive:     p.Alive,
		Attacking: p.Attacking,
		Jumping:   p.Jumping,
		Tile: TileReadout{
			X:    floorDiv(p.Pos.X, TileSize),
			Y:    floorDiv(p.Pos.Y, TileSize),
			Code: code,
		},
	}
}
