package world

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/lafriks/go-tiled"

	domainworld "barnyard/internal/domain/world"
)

var ErrUnsupportedMap = errors.New("unsupported map format")

// MapJSON is the JSON map layout: a grid of tile codes, row-major.
type MapJSON struct {
	Width  int                      `json:"width"`
	Height int                      `json:"height"`
	Tiles  [][]domainworld.TileCode `json:"tiles"`
}

// LoadTileMap reads a terrain grid from a .csv, .json or .tmx file.
func LoadTileMap(path string) (*domainworld.TileMap, error) {
	if path == "" {
		return nil, fmt.Errorf("empty world map path")
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open world map: %w", err)
		}
		defer f.Close()
		return parseCSVMap(f)
	case ".json":
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read world map: %w", err)
		}
		return parseJSONMap(b)
	case ".tmx":
		m, err := tiled.LoadFile(path)
		if err != nil {
			return nil, fmt.Errorf("load tiled map: %w", err)
		}
		return fromTiled(m)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMap, path)
	}
}

func parseCSVMap(r io.Reader) (*domainworld.TileMap, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse world map csv: %w", err)
	}
	rows := make([][]domainworld.TileCode, 0, len(records))
	for y, rec := range records {
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		row := make([]domainworld.TileCode, len(rec))
		for x, cell := range rec {
			n, err := strconv.Atoi(strings.TrimSpace(cell))
			if err != nil {
				return nil, fmt.Errorf("%w: cell (%d,%d) %q", domainworld.ErrMalformedGrid, x, y, cell)
			}
			row[x] = domainworld.TileCode(n)
		}
		rows = append(rows, row)
	}
	return domainworld.NewTileMap(rows)
}

func parseJSONMap(b []byte) (*domainworld.TileMap, error) {
	var data MapJSON
	if err := json.Unmarshal(b, &data); err != nil {
		return nil, fmt.Errorf("parse world map json: %w", err)
	}
	if data.Width <= 0 || data.Height <= 0 {
		return nil, fmt.Errorf("%w: invalid map dimensions", domainworld.ErrMalformedGrid)
	}
	if len(data.Tiles) != data.Height {
		return nil, fmt.Errorf("%w: rows count must equal height", domainworld.ErrMalformedGrid)
	}
	for y, row := range data.Tiles {
		if len(row) != data.Width {
			return nil, fmt.Errorf("%w: row %d width mismatch", domainworld.ErrMalformedGrid, y)
		}
	}
	return domainworld.NewTileMap(data.Tiles)
}

// fromTiled takes the first tile layer. Tile codes are tileset-local ids, the
// same numbering Tiled writes in its CSV export; empty cells become TileNone.
func fromTiled(m *tiled.Map) (*domainworld.TileMap, error) {
	if len(m.Layers) == 0 {
		return nil, fmt.Errorf("%w: tiled map has no tile layers", domainworld.ErrMalformedGrid)
	}
	layer := m.Layers[0]
	if len(layer.Tiles) != m.Width*m.Height {
		return nil, fmt.Errorf("%w: layer %q has %d tiles, want %d", domainworld.ErrMalformedGrid, layer.Name, len(layer.Tiles), m.Width*m.Height)
	}
	rows := make([][]domainworld.TileCode, m.Height)
	for y := range rows {
		row := make([]domainworld.TileCode, m.Width)
		for x := range row {
			t := layer.Tiles[y*m.Width+x]
			if t == nil || t.Nil {
				row[x] = domainworld.TileNone
				continue
			}
			row[x] = domainworld.TileCode(t.ID)
		}
		rows[y] = row
	}
	return domainworld.NewTileMap(rows)
}
