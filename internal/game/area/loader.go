package area

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/delvegame/delve/internal/game/character"
	"github.com/delvegame/delve/internal/game/level"
	"github.com/delvegame/delve/internal/protocol"
)

// Map legend used by dungeon files.
const (
	glyphWall   = '#'
	glyphFloor  = '.'
	glyphStairs = '>'
)

// DungeonData is the on-disk schema of a dungeon file. Its YAML tags match
// the project's dungeon file schema exactly.
type DungeonData struct {
	Name       string           `yaml:"name"`
	SpriteSize int32            `yaml:"sprite_size"`
	Sprites    map[int32]string `yaml:"sprites,omitempty"`
	Map        []string         `yaml:"map"`
	Entry      CoordSpec        `yaml:"entry"`
	Spawns     []SpawnSpec      `yaml:"spawns,omitempty"`
}

// CoordSpec holds a board coordinate.
type CoordSpec struct {
	X int32 `yaml:"x"`
	Y int32 `yaml:"y"`
}

// SpawnSpec holds a single monster spawn.
type SpawnSpec struct {
	Name      string `yaml:"name"`
	Sprite    int32  `yaml:"sprite"`
	Count     int    `yaml:"count"`
	HitPoints int32  `yaml:"hit_points"`
	Script    string `yaml:"script,omitempty"`
}

// BehaviorResolver maps a spawn's script name to a behavior. A nil
// resolver, or a nil result, leaves the spawn on its default random walk.
type BehaviorResolver func(script string) character.Behavior

// LoadDungeons reads every .yaml file under dir, builds a dungeon from
// each, and registers them. nextID allocates character ids for spawns.
//
// Postcondition: the returned dungeons are bound in the arena and announced
// to the aggregator, sorted by file name.
func LoadDungeons(dir string, deps Deps, aiTick time.Duration, resolve BehaviorResolver, nextID func() int32) ([]*Dungeon, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dungeon dir %s: %w", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	dungeons := make([]*Dungeon, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read dungeon file %s: %w", path, err)
		}
		d, err := BuildDungeon(raw, deps, aiTick, resolve, nextID)
		if err != nil {
			return nil, fmt.Errorf("dungeon file %s: %w", path, err)
		}
		dungeons = append(dungeons, d)
	}
	return dungeons, nil
}

// BuildDungeon parses a single dungeon file and assembles the dungeon.
func BuildDungeon(raw []byte, deps Deps, aiTick time.Duration, resolve BehaviorResolver, nextID func() int32) (*Dungeon, error) {
	var data DungeonData
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	if err := data.validate(); err != nil {
		return nil, err
	}

	width := int32(len(data.Map[0]))
	height := int32(len(data.Map))
	tiles := make([]int32, 0, width*height)
	var stairs []CoordSpec
	for y, row := range data.Map {
		for x, glyph := range row {
			switch glyph {
			case glyphWall:
				tiles = append(tiles, level.TileWall)
			case glyphFloor:
				tiles = append(tiles, level.TileFloor)
			case glyphStairs:
				tiles = append(tiles, level.TileStairs)
				stairs = append(stairs, CoordSpec{X: int32(x), Y: int32(y)})
			default:
				return nil, fmt.Errorf("row %d: unknown map glyph %q", y, glyph)
			}
		}
	}

	lvl := level.New(data.Name, width, height, tiles, deps.Logger, deps.Src)
	entry := level.NewConnector(lvl, data.Entry.X, data.Entry.Y, deps.Logger)
	for _, c := range stairs {
		lvl.SetExit(entry, c.X, c.Y)
	}

	var spawns []*character.AICharacterManager
	for _, spec := range data.Spawns {
		var behavior character.Behavior
		if resolve != nil && spec.Script != "" {
			behavior = resolve(spec.Script)
		}
		count := spec.Count
		if count <= 0 {
			count = 1
		}
		for i := 0; i < count; i++ {
			name := spec.Name
			if count > 1 {
				name = fmt.Sprintf("%s-%d", spec.Name, i+1)
			}
			stats := spawnStats(name, spec.HitPoints)
			spawns = append(spawns, character.NewAICharacterManager(nextID(), stats, deps.Src, deps.DamageDie, behavior))
		}
	}

	sprites := make(map[int32][]byte, len(data.Sprites))
	for id, label := range data.Sprites {
		sprites[id] = []byte(label)
	}
	return NewDungeon(data.Name, deps, lvl, data.SpriteSize, sprites, entry, spawns, aiTick), nil
}

func (d *DungeonData) validate() error {
	if d.Name == "" {
		return fmt.Errorf("missing name")
	}
	if d.SpriteSize <= 0 {
		return fmt.Errorf("sprite_size must be positive, got %d", d.SpriteSize)
	}
	if len(d.Map) == 0 || len(d.Map[0]) == 0 {
		return fmt.Errorf("empty map")
	}
	width := len(d.Map[0])
	for y, row := range d.Map {
		if len(row) != width {
			return fmt.Errorf("row %d: width %d, want %d", y, len(row), width)
		}
	}
	if d.Entry.X < 0 || d.Entry.Y < 0 || int(d.Entry.X) >= width || int(d.Entry.Y) >= len(d.Map) {
		return fmt.Errorf("entry (%d,%d) out of bounds", d.Entry.X, d.Entry.Y)
	}
	if d.Map[d.Entry.Y][d.Entry.X] != glyphFloor {
		return fmt.Errorf("entry (%d,%d) is not on floor", d.Entry.X, d.Entry.Y)
	}
	return nil
}

// spawnStats builds the fixed stat block monsters carry. Abilities are
// flat tens; only hit points vary per spawn type.
func spawnStats(name string, hitPoints int32) protocol.CharacterStats {
	if hitPoints <= 0 {
		hitPoints = 8
	}
	return protocol.CharacterStats{
		Name:         name,
		Strength:     10,
		Intelligence: 10,
		Dexterity:    10,
		Wisdom:       10,
		Constitution: 10,
		Charisma:     10,
		HitPoints:    hitPoints,
		MaxHitPoints: hitPoints,
	}
}
