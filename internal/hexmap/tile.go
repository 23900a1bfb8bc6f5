package hexmap

import "encoding/json"

// Biome is the terrain flavor of a tile. It drives the default defense bonus
// a defender standing on the tile receives.
type Biome string

const (
	BiomePlains   Biome = "plains"
	BiomeForest   Biome = "forest"
	BiomeMountain Biome = "mountain"
	BiomeSwamp    Biome = "swamp"
	BiomeRuins    Biome = "ruins"
	BiomeCavern   Biome = "cavern"
)

// biomeDefense maps each biome to its default terrain defense bonus.
// Biomes not listed grant no bonus.
var biomeDefense = map[Biome]int{
	BiomeForest:   2,
	BiomeMountain: 3,
	BiomeRuins:    2,
	BiomeCavern:   1,
}

// TileKind marks a tile's structural role on the map.
type TileKind string

const (
	TileNormal TileKind = "normal"
	TileStart  TileKind = "start"
	TileBoss   TileKind = "boss"
)

// EventKind is the closed set of encounter types a tile may carry.
type EventKind string

const (
	EventCombat    EventKind = "combat"
	EventTrap      EventKind = "trap"
	EventLoot      EventKind = "loot"
	EventNarrative EventKind = "narrative"
	EventAltar     EventKind = "altar"
	EventShop      EventKind = "shop"
	EventCamp      EventKind = "camp"
	EventAmbush    EventKind = "ambush"
	EventPuzzle    EventKind = "puzzle"
)

var eventKinds = map[EventKind]bool{
	EventCombat:    true,
	EventTrap:      true,
	EventLoot:      true,
	EventNarrative: true,
	EventAltar:     true,
	EventShop:      true,
	EventCamp:      true,
	EventAmbush:    true,
	EventPuzzle:    true,
}

// TileEvent is an encounter bound to a tile. It resolves at most once;
// Payload is opaque to the map and interpreted by whoever consumes the
// event, keyed by Kind.
type TileEvent struct {
	Id       string          `json:"id"`
	Kind     EventKind       `json:"kind"`
	Text     string          `json:"text,omitempty"`
	Resolved bool            `json:"resolved"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

// Resolve marks the event consumed. Returns false if it was already resolved.
func (e *TileEvent) Resolve() bool {
	if e.Resolved {
		return false
	}
	e.Resolved = true
	return true
}

// Tile is one discrete location on the map. Identity fields are fixed at
// construction; Visited and Revealed flip as the party moves.
type Tile struct {
	Id    string   `json:"id"`
	Q     int      `json:"q"`
	R     int      `json:"r"`
	Biome Biome    `json:"biome"`
	Kind  TileKind `json:"kind"`

	Visited  bool `json:"visited"`
	Revealed bool `json:"revealed"`

	Event *TileEvent `json:"event,omitempty"`

	// defense is resolved at build time from the biome table or a
	// per-tile override in the map spec.
	defense int
}

// Defense returns the terrain defense bonus for defenders on this tile.
func (t *Tile) Defense() int {
	if t == nil {
		return 0
	}
	return t.defense
}

// Distance returns the hex-grid distance between two tiles in axial
// coordinates.
func Distance(a, b *Tile) int {
	dq := a.Q - b.Q
	dr := a.R - b.R
	ds := dq + dr
	return (abs(dq) + abs(dr) + abs(ds)) / 2
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
