package world

import (
	"errors"
	"fmt"
)

const (
	TileSize      = 32
	DefaultWidth  = 100
	DefaultHeight = 80
)

type TileCode int

const (
	TileNone         TileCode = -1
	TileWater        TileCode = 283
	TileGrass        TileCode = 405
	TileChickenSpawn TileCode = 293
)

var walkableTiles = map[TileCode]struct{}{
	405:  {},
	365:  {},
	1201: {},
	532:  {},
	326:  {},
	286:  {},
	246:  {},
	0:    {},
}

func (c TileCode) Walkable() bool {
	_, ok := walkableTiles[c]
	return ok
}

var ErrMalformedGrid = errors.New("malformed tile grid")

// TileMap is the immutable terrain grid. Every movement in the world is
// validated against it.
type TileMap struct {
	width  int
	height int
	tiles  [][]TileCode
}

func NewTileMap(rows [][]TileCode) (*TileMap, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, fmt.Errorf("%w: empty grid", ErrMalformedGrid)
	}
	width := len(rows[0])
	tiles := make([][]TileCode, len(rows))
	for y, row := range rows {
		if len(row) != width {
			return nil, fmt.Errorf("%w: row %d has %d cells, want %d", ErrMalformedGrid, y, len(row), width)
		}
		tiles[y] = append([]TileCode(nil), row...)
	}
	return &TileMap{width: width, height: len(rows), tiles: tiles}, nil
}

// FilledTileMap builds a width x height grid holding a single code.
func FilledTileMap(width, height int, code TileCode) *TileMap {
	tiles := make([][]TileCode, height)
	for y := range tiles {
		row := make([]TileCode, width)
		for x := range row {
			row[x] = code
		}
		tiles[y] = row
	}
	return &TileMap{width: width, height: height, tiles: tiles}
}

func (m *TileMap) Width() int       { return m.width }
func (m *TileMap) Height() int      { return m.height }
func (m *TileMap) PixelWidth() int  { return m.width * TileSize }
func (m *TileMap) PixelHeight() int { return m.height * TileSize }

// IsWalkable tests the tile under the center of a w x h footprint placed at p.
func (m *TileMap) IsWalkable(p Point, w, h int) bool {
	tx := floorDiv(p.X+w/2, TileSize)
	ty := floorDiv(p.Y+h/2, TileSize)
	code, ok := m.cell(tx, ty)
	return ok && code.Walkable()
}

// TileAt returns the code of the tile containing p. Points outside the grid
// report TileNone and false.
func (m *TileMap) TileAt(p Point) (TileCode, bool) {
	return m.cell(floorDiv(p.X, TileSize), floorDiv(p.Y, TileSize))
}

// Find returns the pixel origin of the first tile holding code, scanning rows
// top to bottom.
func (m *TileMap) Find(code TileCode) (Point, bool) {
	for y, row := range m.tiles {
		for x, c := range row {
			if c == code {
				return Point{X: x * TileSize, Y: y * TileSize}, true
			}
		}
	}
	return Point{}, false
}

func (m *TileMap) Rows() [][]TileCode {
	rows := make([][]TileCode, len(m.tiles))
	for y, row := range m.tiles {
		rows[y] = append([]TileCode(nil), row...)
	}
	return rows
}

func (m *TileMap) cell(tx, ty int) (TileCode, bool) {
	if tx < 0 || ty < 0 || tx >= m.width || ty >= m.height {
		return TileNone, false
	}
	return m.tiles[ty][tx], true
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
