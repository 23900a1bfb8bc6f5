package match

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/pixil98/go-skirmish/internal/events"
	"github.com/pixil98/go-skirmish/internal/gateway"
	"github.com/pixil98/go-skirmish/internal/hexmap"
	"github.com/pixil98/go-skirmish/internal/storage"
	"github.com/pixil98/go-skirmish/internal/turn"
)

var (
	ErrUnknownMap    = errors.New("unknown map")
	ErrMatchNotFound = errors.New("match not found")
)

// TransportFactory provides a per-match outbound transport.
type TransportFactory interface {
	ForMatch(matchId string) gateway.Transport
}

// EventBridge is attached to each new match's notifier so external
// consumers (wire fan-out, telemetry) receive its events. Detach is called
// when the match is swept.
type EventBridge interface {
	Attach(matchId string, n *events.Notifier) error
	Detach(matchId string)
}

// Manager creates and tracks running matches. It is a go-service worker;
// its Tick sweeps ended matches out of the registry.
type Manager struct {
	mu      sync.RWMutex
	matches map[string]*Match

	maps       storage.Storer[*hexmap.MapSpec]
	transports TransportFactory
	bridges    []EventBridge
}

// NewManager creates a Manager building matches from the given map store.
func NewManager(maps storage.Storer[*hexmap.MapSpec], transports TransportFactory, bridges ...EventBridge) *Manager {
	return &Manager{
		matches:    make(map[string]*Match),
		maps:       maps,
		transports: transports,
		bridges:    bridges,
	}
}

// CreateMatch builds the map, assembles the match, attaches event bridges,
// and starts play.
func (mgr *Manager) CreateMatch(mapId string, setups []PlayerSetup, opts ...Opt) (*Match, error) {
	spec := mgr.maps.Get(mapId)
	if spec == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMap, mapId)
	}

	world, err := spec.Build()
	if err != nil {
		return nil, fmt.Errorf("building map %q: %w", mapId, err)
	}

	id := uuid.NewString()
	m, err := NewMatch(id, world, mgr.transports.ForMatch(id), setups, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating match: %w", err)
	}

	for _, b := range mgr.bridges {
		if err := b.Attach(id, m.Notifier()); err != nil {
			return nil, fmt.Errorf("attaching event bridge: %w", err)
		}
	}

	mgr.mu.Lock()
	mgr.matches[id] = m
	mgr.mu.Unlock()

	m.Begin()
	return m, nil
}

// Get returns a running match.
func (mgr *Manager) Get(id string) (*Match, error) {
	mgr.mu.RLock()
	defer mgr.mu.RUnlock()

	m, ok := mgr.matches[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMatchNotFound, id)
	}
	return m, nil
}

// HandleActionResponse routes a transport acknowledgement to its match.
// Responses for unknown matches are dropped; the match may already have
// been swept.
func (mgr *Manager) HandleActionResponse(matchId, playerId, correlationId string, accepted bool, reason string) {
	m, err := mgr.Get(matchId)
	if err != nil {
		slog.Debug("dropping response for unknown match", "match", matchId, "player", playerId)
		return
	}
	m.HandleActionResponse(playerId, correlationId, accepted, reason)
}

// Count returns the number of tracked matches.
func (mgr *Manager) Count() int {
	mgr.mu.RLock()
	defer mgr.mu.RUnlock()
	return len(mgr.matches)
}

// Start satisfies the go-service worker contract. Matches are driven by
// inbound requests; the manager itself only waits for shutdown.
func (mgr *Manager) Start(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

// Tick sweeps ended matches, tearing down their notifiers.
func (mgr *Manager) Tick(ctx context.Context) error {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()

	for id, m := range mgr.matches {
		if m.Phase() != turn.PhaseEnded {
			continue
		}
		m.Notifier().Clear()
		for _, b := range mgr.bridges {
			b.Detach(id)
		}
		delete(mgr.matches, id)
		slog.InfoContext(ctx, "swept ended match", "match", id, "winner", m.Winner())
	}
	return nil
}
