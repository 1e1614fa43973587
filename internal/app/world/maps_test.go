package world

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	domainworld "barnyard/internal/domain/world"
)

const farmTMX = `<?xml version="1.0" encoding="UTF-8"?>
<map version="1.10" orientation="orthogonal" renderorder="right-down" width="3" height="2" tilewidth="32" tileheight="32" infinite="0" nextlayerid="2" nextobjectid="1">
 <tileset firstgid="1" name="farm" tilewidth="32" tileheight="32" tilecount="2000" columns="40">
  <image source="farm.png" width="1280" height="1600"/>
 </tileset>
 <layer id="1" name="ground" width="3" height="2">
  <data encoding="csv">
406,406,0,
284,406,533
</data>
 </layer>
</map>
`

func writeMap(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write map: %v", err)
	}
	return path
}

func TestParseCSVMap(t *testing.T) {
	m, err := parseCSVMap(strings.NewReader("405, 405,283\n\n532,405,405\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if m.Width() != 3 || m.Height() != 2 {
		t.Fatalf("expected 3x2, got %dx%d", m.Width(), m.Height())
	}
	if code, _ := m.TileAt(domainworld.Point{X: 70, Y: 10}); code != domainworld.TileWater {
		t.Fatalf("expected water at (2,0), got %d", code)
	}
}

func TestParseCSVMapRejectsBadGrids(t *testing.T) {
	for name, src := range map[string]string{
		"ragged":  "405,405\n405\n",
		"garbage": "405,grass\n",
		"empty":   "",
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := parseCSVMap(strings.NewReader(src)); !errors.Is(err, domainworld.ErrMalformedGrid) {
				t.Fatalf("expected ErrMalformedGrid, got %v", err)
			}
		})
	}
}

func TestParseJSONMap(t *testing.T) {
	m, err := parseJSONMap([]byte(`{"width":2,"height":2,"tiles":[[405,405],[283,405]]}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if p, ok := m.Find(domainworld.TileWater); !ok || p.X != 0 || p.Y != 32 {
		t.Fatalf("expected water at (0,32), got %+v %v", p, ok)
	}

	_, err = parseJSONMap([]byte(`{"width":3,"height":2,"tiles":[[405,405],[283,405]]}`))
	if !errors.Is(err, domainworld.ErrMalformedGrid) {
		t.Fatalf("expected width mismatch to be rejected, got %v", err)
	}
}

func TestLoadTiledMap(t *testing.T) {
	m, err := LoadTileMap(writeMap(t, "farm.tmx", farmTMX))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := [][]domainworld.TileCode{
		{405, 405, domainworld.TileNone},
		{283, 405, 532},
	}
	for y, row := range m.Rows() {
		for x, code := range row {
			if code != want[y][x] {
				t.Fatalf("tile (%d,%d): expected %d, got %d", x, y, want[y][x], code)
			}
		}
	}
}

func TestLoadTileMapByExtension(t *testing.T) {
	if _, err := LoadTileMap(writeMap(t, "farm.txt", "405")); !errors.Is(err, ErrUnsupportedMap) {
		t.Fatalf("expected ErrUnsupportedMap, got %v", err)
	}
	m, err := LoadTileMap(writeMap(t, "FARM.CSV", "405,405\n"))
	if err != nil || m.Width() != 2 {
		t.Fatalf("upper-case extension should load as csv: %v", err)
	}
	if _, err := LoadTileMap("../../../data/maps/meadow.csv"); err != nil {
		t.Fatalf("shipped map: %v", err)
	}
}
