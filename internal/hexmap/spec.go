package hexmap

import (
	"encoding/json"
	"fmt"

	"github.com/pixil98/go-errors"
)

// MapSpec is the stored definition of a map, loaded as a storage asset and
// built into a Map when a match starts.
type MapSpec struct {
	Name        string           `json:"name"`
	Tiles       []TileSpec       `json:"tiles"`
	Connections []ConnectionSpec `json:"connections"`
	StartTile   string           `json:"start_tile,omitempty"`
	BossTile    string           `json:"boss_tile,omitempty"`
}

// TileSpec describes one tile in a MapSpec. Defense overrides the biome
// default when set.
type TileSpec struct {
	Id      string     `json:"id"`
	Q       int        `json:"q"`
	R       int        `json:"r"`
	Biome   Biome      `json:"biome"`
	Kind    TileKind   `json:"kind,omitempty"`
	Defense *int       `json:"defense,omitempty"`
	Event   *EventSpec `json:"event,omitempty"`
}

// EventSpec describes a tile event in a MapSpec.
type EventSpec struct {
	Id      string          `json:"id"`
	Kind    EventKind       `json:"kind"`
	Text    string          `json:"text,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ConnectionSpec is one directed edge in a MapSpec.
type ConnectionSpec struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Validate satisfies storage.ValidatingSpec.
func (s *MapSpec) Validate() error {
	el := errors.NewErrorList()

	if s.Name == "" {
		el.Add(fmt.Errorf("map name is required"))
	}
	if len(s.Tiles) == 0 {
		el.Add(fmt.Errorf("at least one tile is required"))
	}

	ids := make(map[string]bool, len(s.Tiles))
	for i, t := range s.Tiles {
		if t.Id == "" {
			el.Add(fmt.Errorf("tile %d: id is required", i))
			continue
		}
		if ids[t.Id] {
			el.Add(fmt.Errorf("tile %d: duplicate id %q", i, t.Id))
		}
		ids[t.Id] = true

		if t.Event != nil {
			if t.Event.Id == "" {
				el.Add(fmt.Errorf("tile %q: event id is required", t.Id))
			}
			if !eventKinds[t.Event.Kind] {
				el.Add(fmt.Errorf("tile %q: unknown event kind %q", t.Id, t.Event.Kind))
			}
		}
	}

	for i, c := range s.Connections {
		if !ids[c.From] {
			el.Add(fmt.Errorf("connection %d: unknown tile %q", i, c.From))
		}
		if !ids[c.To] {
			el.Add(fmt.Errorf("connection %d: unknown tile %q", i, c.To))
		}
	}

	if s.StartTile != "" && !ids[s.StartTile] {
		el.Add(fmt.Errorf("start_tile %q does not exist", s.StartTile))
	}
	if s.BossTile != "" && !ids[s.BossTile] {
		el.Add(fmt.Errorf("boss_tile %q does not exist", s.BossTile))
	}

	return el.Err()
}

// Build constructs a Map from the spec. The spec is assumed to have been
// validated on load.
func (s *MapSpec) Build() (*Map, error) {
	m := NewMap()

	for _, ts := range s.Tiles {
		tile := &Tile{
			Id:    ts.Id,
			Q:     ts.Q,
			R:     ts.R,
			Biome: ts.Biome,
			Kind:  ts.Kind,
		}
		if tile.Kind == "" {
			tile.Kind = TileNormal
		}
		if ts.Id == s.StartTile {
			tile.Kind = TileStart
		}
		if ts.Id == s.BossTile {
			tile.Kind = TileBoss
		}
		if ts.Defense != nil {
			tile.defense = *ts.Defense
		}
		if ts.Event != nil {
			tile.Event = &TileEvent{
				Id:      ts.Event.Id,
				Kind:    ts.Event.Kind,
				Text:    ts.Event.Text,
				Payload: ts.Event.Payload,
			}
		}

		if err := m.AddTile(tile); err != nil {
			return nil, fmt.Errorf("adding tile %q: %w", ts.Id, err)
		}
	}

	for _, c := range s.Connections {
		if err := m.AddConnection(c.From, c.To); err != nil {
			return nil, fmt.Errorf("connecting %q -> %q: %w", c.From, c.To, err)
		}
	}

	// Mark the starting position visited and revealed.
	if err := m.SetCurrentTile(m.StartTileId()); err != nil {
		return nil, err
	}

	return m, nil
}
