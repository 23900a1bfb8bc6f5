package hexmap

import (
	"errors"
	"fmt"
	"sync"
)

var (
	ErrUnknownTile   = errors.New("unknown tile")
	ErrDuplicateTile = errors.New("duplicate tile id")
)

// Map is a directed graph of tiles with current-position tracking. Tiles are
// kept in insertion order. The entity registry maps combatant ids to the
// tile they stand on; combat range checks read positions from it.
type Map struct {
	mu sync.RWMutex

	order       []string
	tiles       map[string]*Tile
	adjacency   map[string][]string
	currentTile string
	startTile   string
	bossTile    string

	positions map[string]string
}

// NewMap creates an empty map. The first tile added becomes the start and
// current tile unless SetCurrentTile is called.
func NewMap() *Map {
	return &Map{
		tiles:     make(map[string]*Tile),
		adjacency: make(map[string][]string),
		positions: make(map[string]string),
	}
}

// AddTile registers a tile. The first tile added becomes the start tile and
// the current position; a tile of kind boss becomes the boss tile.
func (m *Map) AddTile(t *Tile) error {
	if t == nil || t.Id == "" {
		return fmt.Errorf("tile id is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.tiles[t.Id]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTile, t.Id)
	}

	if t.defense == 0 {
		t.defense = biomeDefense[t.Biome]
	}

	m.tiles[t.Id] = t
	m.order = append(m.order, t.Id)

	if m.startTile == "" || t.Kind == TileStart {
		m.startTile = t.Id
		if m.currentTile == "" || t.Kind == TileStart {
			m.currentTile = t.Id
		}
	}
	if t.Kind == TileBoss {
		m.bossTile = t.Id
	}

	return nil
}

// AddConnection adds a directed edge. Callers wanting bidirectional movement
// add the reverse edge themselves.
func (m *Map) AddConnection(from, to string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.tiles[from]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTile, from)
	}
	if _, ok := m.tiles[to]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTile, to)
	}

	m.adjacency[from] = append(m.adjacency[from], to)
	return nil
}

// Tile returns the tile with the given id, or nil.
func (m *Map) Tile(id string) *Tile {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tiles[id]
}

// Tiles returns all tiles in insertion order.
func (m *Map) Tiles() []*Tile {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Tile, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.tiles[id])
	}
	return out
}

// AdjacentTiles returns the destinations of the tile's outgoing edges.
func (m *Map) AdjacentTiles(id string) []*Tile {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.adjacentLocked(id)
}

func (m *Map) adjacentLocked(id string) []*Tile {
	var out []*Tile
	for _, to := range m.adjacency[id] {
		if t, ok := m.tiles[to]; ok {
			out = append(out, t)
		}
	}
	return out
}

// CanMoveTo reports whether target is one hop from the current tile.
func (m *Map) CanMoveTo(target string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, to := range m.adjacency[m.currentTile] {
		if to == target {
			return true
		}
	}
	return false
}

// SetCurrentTile moves the party position. The destination is marked visited
// and revealed. Fails with ErrUnknownTile without touching any state if the
// id is not on the map.
func (m *Map) SetCurrentTile(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tiles[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTile, id)
	}

	m.currentTile = id
	t.Visited = true
	t.Revealed = true
	return nil
}

// AvailableMoves returns the tiles reachable in one hop from the current
// position.
func (m *Map) AvailableMoves() []*Tile {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.adjacentLocked(m.currentTile)
}

// CurrentTileId returns the party's current tile id.
func (m *Map) CurrentTileId() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.currentTile
}

// StartTileId returns the fixed starting tile id.
func (m *Map) StartTileId() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.startTile
}

// BossTileId returns the boss tile id, if the map has one.
func (m *Map) BossTileId() (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.bossTile, m.bossTile != ""
}

// PlaceEntity records which tile an entity stands on.
func (m *Map) PlaceEntity(entityId, tileId string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.tiles[tileId]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTile, tileId)
	}
	m.positions[entityId] = tileId
	return nil
}

// RemoveEntity drops an entity from the position registry.
func (m *Map) RemoveEntity(entityId string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.positions, entityId)
}

// EntityTile returns the tile an entity stands on, or nil if the entity has
// no recorded position.
func (m *Map) EntityTile(entityId string) *Tile {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tileId, ok := m.positions[entityId]
	if !ok {
		return nil
	}
	return m.tiles[tileId]
}
