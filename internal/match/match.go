package match

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/pixil98/go-skirmish/internal/combat"
	"github.com/pixil98/go-skirmish/internal/events"
	"github.com/pixil98/go-skirmish/internal/gateway"
	"github.com/pixil98/go-skirmish/internal/hexmap"
	"github.com/pixil98/go-skirmish/internal/protocol"
	"github.com/pixil98/go-skirmish/internal/turn"
)

var (
	ErrNotPlaying    = errors.New("match is not in the playing phase")
	ErrUnknownPlayer = errors.New("unknown player")
	ErrNotYourTurn   = errors.New("not your turn")
)

// PlayerSetup describes one participant at match creation.
type PlayerSetup struct {
	Id    string
	MaxHP int
	Items []string
}

// player is the match's authoritative per-player record.
type player struct {
	id    string
	hp    int
	maxHP int
	items map[string]bool
}

// Match owns one game's authoritative state: the map, the turn order, player
// health and inventory, and the per-player coordinators. The pipeline mutex
// serializes admit -> resolve -> notify, so two actions for the same match
// never interleave; distinct matches share nothing and run in parallel.
type Match struct {
	id string

	// pipelineMu serializes action processing end to end.
	pipelineMu sync.Mutex

	// stateMu guards phase, turn order, and player records. It is never
	// held across handler or transport calls.
	stateMu    sync.RWMutex
	phase      turn.Phase
	turnNumber int
	order      []string
	currentIdx int
	players    map[string]*player
	winner     string

	world    *hexmap.Map
	notifier *events.Notifier
	gateway  *gateway.Gateway
}

// Opt configures a Match.
type Opt func(*config)

type config struct {
	roller combat.Roller
}

// WithRoller fixes the match's random source, making combat reproducible.
func WithRoller(r combat.Roller) Opt {
	return func(c *config) {
		c.roller = r
	}
}

// NewMatch assembles a match in the lobby phase. All players start on the
// map's start tile.
func NewMatch(id string, world *hexmap.Map, transport gateway.Transport, setups []PlayerSetup, opts ...Opt) (*Match, error) {
	if len(setups) == 0 {
		return nil, fmt.Errorf("at least one player is required")
	}

	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	m := &Match{
		id:       id,
		phase:    turn.PhaseLobby,
		players:  make(map[string]*player, len(setups)),
		world:    world,
		notifier: events.NewNotifier(),
	}

	resolver := combat.NewResolver(world, cfg.roller)
	m.gateway = gateway.New(m, world, resolver, m.notifier, transport)

	for _, s := range setups {
		if _, exists := m.players[s.Id]; exists {
			return nil, fmt.Errorf("duplicate player %q", s.Id)
		}

		p := &player{
			id:    s.Id,
			hp:    s.MaxHP,
			maxHP: s.MaxHP,
			items: make(map[string]bool, len(s.Items)),
		}
		for _, item := range s.Items {
			p.items[item] = true
		}
		m.players[s.Id] = p
		m.order = append(m.order, s.Id)

		if err := world.PlaceEntity(s.Id, world.StartTileId()); err != nil {
			return nil, fmt.Errorf("placing player %q: %w", s.Id, err)
		}

		m.gateway.Register(turn.NewCoordinator(s.Id, m))
	}

	return m, nil
}

// Id returns the match identifier.
func (m *Match) Id() string {
	return m.id
}

// Notifier exposes the match's event hub so collaborators (transport
// adapters, telemetry, UI) can subscribe.
func (m *Match) Notifier() *events.Notifier {
	return m.notifier
}

// World returns the match's map.
func (m *Match) World() *hexmap.Map {
	return m.world
}

// Begin moves the match from lobby to playing. Turn one belongs to the
// first player in setup order.
func (m *Match) Begin() {
	m.stateMu.Lock()
	if m.phase != turn.PhaseLobby {
		m.stateMu.Unlock()
		return
	}
	m.phase = turn.PhasePlaying
	m.turnNumber = 1
	m.currentIdx = 0
	current := m.order[m.currentIdx]
	turnNumber := m.turnNumber
	m.stateMu.Unlock()

	for _, id := range m.order {
		m.gateway.Coordinator(id).EnterMatch()
	}

	m.notifier.Publish(protocol.NewEvent(protocol.CategoryTurn, protocol.TurnChanged{
		TurnNumber: turnNumber,
		PlayerId:   current,
	}))
}

// Submit runs one action through the pipeline. Calls for the same match are
// processed to completion in arrival order.
func (m *Match) Submit(ctx context.Context, req gateway.Request) (*gateway.Outcome, error) {
	m.pipelineMu.Lock()
	defer m.pipelineMu.Unlock()

	if m.Phase() != turn.PhasePlaying {
		return nil, ErrNotPlaying
	}

	out, err := m.gateway.Execute(ctx, req)
	if out != nil {
		if hit, ok := out.Combat.(combat.Hit); ok {
			m.applyHit(hit)
		}
	}
	return out, err
}

// applyHit deducts damage and handles lethal outcomes.
func (m *Match) applyHit(hit combat.Hit) {
	m.stateMu.Lock()
	target, ok := m.players[hit.TargetId]
	if !ok {
		m.stateMu.Unlock()
		return
	}

	target.hp -= hit.Damage
	if target.hp > 0 {
		m.stateMu.Unlock()
		return
	}
	target.hp = 0
	m.stateMu.Unlock()

	if c := m.gateway.Coordinator(hit.TargetId); c != nil {
		c.OnLethalDamage()
	}
	m.world.RemoveEntity(hit.TargetId)
	m.notifier.Publish(protocol.NewEvent(protocol.CategoryMatch, protocol.PlayerDied{
		PlayerId: hit.TargetId,
		KillerId: hit.AttackerId,
	}))

	m.checkEnd()
}

// checkEnd terminates the match when at most one player remains alive.
func (m *Match) checkEnd() {
	m.stateMu.Lock()
	if m.phase != turn.PhasePlaying {
		m.stateMu.Unlock()
		return
	}

	var alive []string
	for _, id := range m.order {
		if m.players[id].hp > 0 {
			alive = append(alive, id)
		}
	}
	if len(alive) > 1 {
		m.stateMu.Unlock()
		return
	}

	m.phase = turn.PhaseEnded
	if len(alive) == 1 {
		m.winner = alive[0]
	}
	winner := m.winner
	m.stateMu.Unlock()

	for _, id := range m.order {
		m.gateway.Coordinator(id).OnMatchEnd()
	}
	m.notifier.Publish(protocol.NewEvent(protocol.CategoryMatch, protocol.MatchEnded{
		MatchId:  m.id,
		WinnerId: winner,
	}))
}

// EndTurn passes the turn to the next living player. Only the active player
// may end the turn.
func (m *Match) EndTurn(playerId string) error {
	m.pipelineMu.Lock()
	defer m.pipelineMu.Unlock()

	m.stateMu.Lock()
	if m.phase != turn.PhasePlaying {
		m.stateMu.Unlock()
		return ErrNotPlaying
	}
	if m.order[m.currentIdx] != playerId {
		m.stateMu.Unlock()
		return ErrNotYourTurn
	}

	// Find the next living player. The active player may be dead here
	// (e.g. a trap), so the scan covers the full order.
	next := m.currentIdx
	for i := 0; i < len(m.order); i++ {
		next = (next + 1) % len(m.order)
		if m.players[m.order[next]].hp > 0 {
			break
		}
	}
	m.currentIdx = next
	m.turnNumber++
	current := m.order[m.currentIdx]
	turnNumber := m.turnNumber
	m.stateMu.Unlock()

	for _, id := range m.order {
		m.gateway.Coordinator(id).OnTurnChanged()
	}

	m.notifier.Publish(protocol.NewEvent(protocol.CategoryTurn, protocol.TurnChanged{
		TurnNumber: turnNumber,
		PlayerId:   current,
	}))
	return nil
}

// HandleActionResponse routes a transport acknowledgement into the match.
func (m *Match) HandleActionResponse(playerId, correlationId string, accepted bool, reason string) {
	m.gateway.HandleActionResponse(playerId, correlationId, accepted, reason)
}

// Coordinator returns a player's admission coordinator, or nil.
func (m *Match) Coordinator(playerId string) *turn.Coordinator {
	return m.gateway.Coordinator(playerId)
}

// HP returns a player's current hit points.
func (m *Match) HP(playerId string) (int, error) {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()

	p, ok := m.players[playerId]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownPlayer, playerId)
	}
	return p.hp, nil
}

// Winner returns the winning player id once the match has ended.
func (m *Match) Winner() string {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()
	return m.winner
}

// TurnNumber returns the current turn counter.
func (m *Match) TurnNumber() int {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()
	return m.turnNumber
}

// Phase satisfies turn.SessionInfo.
func (m *Match) Phase() turn.Phase {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()
	return m.phase
}

// CurrentTurnPlayer satisfies turn.SessionInfo.
func (m *Match) CurrentTurnPlayer() string {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()
	if m.phase != turn.PhasePlaying {
		return ""
	}
	return m.order[m.currentIdx]
}

// IsDead satisfies turn.SessionInfo.
func (m *Match) IsDead(playerId string) bool {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()

	p, ok := m.players[playerId]
	if !ok {
		return false
	}
	return p.hp <= 0
}

// HasItem satisfies turn.SessionInfo.
func (m *Match) HasItem(playerId, itemId string) bool {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()

	p, ok := m.players[playerId]
	if !ok {
		return false
	}
	return p.items[itemId]
}
