package match

import (
	"context"
	"errors"
	"testing"

	"github.com/pixil98/go-skirmish/internal/combat"
	"github.com/pixil98/go-skirmish/internal/gateway"
	"github.com/pixil98/go-skirmish/internal/hexmap"
	"github.com/pixil98/go-skirmish/internal/protocol"
	"github.com/pixil98/go-skirmish/internal/turn"
	"github.com/pixil98/go-testutil"
)

type fakeTransport struct {
	sent []protocol.Message
}

func (t *fakeTransport) Send(msg protocol.Message) error {
	t.sent = append(t.sent, msg)
	return nil
}

func (t *fakeTransport) IsConnected() bool { return true }

type fixedRoller struct{ v float64 }

func (r fixedRoller) Float64() float64 { return r.v }

func duelMapSpec() *hexmap.MapSpec {
	return &hexmap.MapSpec{
		Name: "duel-pit",
		Tiles: []hexmap.TileSpec{
			{Id: "pit", Q: 0, R: 0, Biome: hexmap.BiomePlains},
			{Id: "ledge", Q: 1, R: 0, Biome: hexmap.BiomePlains},
		},
		Connections: []hexmap.ConnectionSpec{
			{From: "pit", To: "ledge"},
			{From: "ledge", To: "pit"},
		},
		StartTile: "pit",
	}
}

func newDuel(t *testing.T, roll combat.Roller) (*Match, *fakeTransport) {
	t.Helper()

	world, err := duelMapSpec().Build()
	if err != nil {
		t.Fatalf("building map: %v", err)
	}

	transport := &fakeTransport{}
	m, err := NewMatch("duel-1", world, transport, []PlayerSetup{
		{Id: "alice", MaxHP: 20, Items: []string{"potion"}},
		{Id: "bob", MaxHP: 10},
	}, WithRoller(roll))
	if err != nil {
		t.Fatalf("creating match: %v", err)
	}

	return m, transport
}

func TestMatchLifecycle(t *testing.T) {
	m, _ := newDuel(t, fixedRoller{v: 0.5})

	testutil.AssertEqual(t, "lobby phase", m.Phase(), turn.PhaseLobby)
	testutil.AssertEqual(t, "no current player in lobby", m.CurrentTurnPlayer(), "")

	m.Begin()
	testutil.AssertEqual(t, "playing phase", m.Phase(), turn.PhasePlaying)
	testutil.AssertEqual(t, "turn number", m.TurnNumber(), 1)
	testutil.AssertEqual(t, "first player", m.CurrentTurnPlayer(), "alice")
	testutil.AssertEqual(t, "alice idle", m.Coordinator("alice").State(), turn.StateMyTurnIdle)
	testutil.AssertEqual(t, "bob waiting", m.Coordinator("bob").State(), turn.StateWaitingForTurn)
}

func TestSubmitBeforeBegin(t *testing.T) {
	m, _ := newDuel(t, fixedRoller{v: 0.5})

	_, err := m.Submit(context.Background(), gateway.Request{
		PlayerId: "alice",
		Kind:     gateway.ActionMove,
		TileId:   "ledge",
	})
	if !errors.Is(err, ErrNotPlaying) {
		t.Errorf("expected ErrNotPlaying, got %v", err)
	}
}

func TestSubmitAppliesDamage(t *testing.T) {
	m, _ := newDuel(t, fixedRoller{v: 0.5})
	m.Begin()

	out, err := m.Submit(context.Background(), gateway.Request{
		PlayerId:   "alice",
		Kind:       gateway.ActionAttack,
		TargetId:   "bob",
		AttackType: combat.AttackMelee,
		BaseDamage: 4,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := out.Combat.(combat.Hit); !ok {
		t.Fatalf("expected Hit, got %T", out.Combat)
	}

	hp, err := m.HP("bob")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "bob hp", hp, 6)
	testutil.AssertEqual(t, "match still playing", m.Phase(), turn.PhasePlaying)
}

func TestLethalHitEndsMatch(t *testing.T) {
	m, _ := newDuel(t, fixedRoller{v: 0.5})
	m.Begin()

	var died []protocol.PlayerDied
	var ended []protocol.MatchEnded
	if _, err := m.Notifier().Subscribe(protocol.CategoryMatch, func(ev protocol.GameEvent) {
		switch p := ev.Payload.(type) {
		case protocol.PlayerDied:
			died = append(died, p)
		case protocol.MatchEnded:
			ended = append(ended, p)
		}
	}); err != nil {
		t.Fatalf("subscribing: %v", err)
	}

	_, err := m.Submit(context.Background(), gateway.Request{
		PlayerId:   "alice",
		Kind:       gateway.ActionAttack,
		TargetId:   "bob",
		AttackType: combat.AttackMelee,
		BaseDamage: 10,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	hp, err := m.HP("bob")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "bob hp floored", hp, 0)
	testutil.AssertEqual(t, "bob dead", m.IsDead("bob"), true)
	testutil.AssertEqual(t, "bob coordinator dead or ended", m.Phase(), turn.PhaseEnded)
	testutil.AssertEqual(t, "winner", m.Winner(), "alice")

	testutil.AssertEqual(t, "death events", len(died), 1)
	testutil.AssertEqual(t, "victim", died[0].PlayerId, "bob")
	testutil.AssertEqual(t, "killer", died[0].KillerId, "alice")

	testutil.AssertEqual(t, "ended events", len(ended), 1)
	testutil.AssertEqual(t, "ended winner", ended[0].WinnerId, "alice")

	// No further actions are admitted.
	_, err = m.Submit(context.Background(), gateway.Request{
		PlayerId: "alice",
		Kind:     gateway.ActionMove,
		TileId:   "ledge",
	})
	if !errors.Is(err, ErrNotPlaying) {
		t.Errorf("expected ErrNotPlaying, got %v", err)
	}
}

func TestEndTurnRotation(t *testing.T) {
	m, _ := newDuel(t, fixedRoller{v: 0.5})
	m.Begin()

	if err := m.EndTurn("bob"); !errors.Is(err, ErrNotYourTurn) {
		t.Errorf("expected ErrNotYourTurn, got %v", err)
	}

	var changes []protocol.TurnChanged
	if _, err := m.Notifier().Subscribe(protocol.CategoryTurn, func(ev protocol.GameEvent) {
		if p, ok := ev.Payload.(protocol.TurnChanged); ok {
			changes = append(changes, p)
		}
	}); err != nil {
		t.Fatalf("subscribing: %v", err)
	}

	if err := m.EndTurn("alice"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	testutil.AssertEqual(t, "current player", m.CurrentTurnPlayer(), "bob")
	testutil.AssertEqual(t, "turn number", m.TurnNumber(), 2)
	testutil.AssertEqual(t, "alice waiting", m.Coordinator("alice").State(), turn.StateWaitingForTurn)
	testutil.AssertEqual(t, "bob idle", m.Coordinator("bob").State(), turn.StateMyTurnIdle)

	testutil.AssertEqual(t, "turn events", len(changes), 1)
	testutil.AssertEqual(t, "event player", changes[0].PlayerId, "bob")
	testutil.AssertEqual(t, "event number", changes[0].TurnNumber, 2)
}

func TestTurnSequencingWithResponseInFlight(t *testing.T) {
	m, _ := newDuel(t, fixedRoller{v: 0.5})
	m.Begin()

	out, err := m.Submit(context.Background(), gateway.Request{
		PlayerId: "alice",
		Kind:     gateway.ActionMove,
		TileId:   "ledge",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "awaiting", m.Coordinator("alice").State(), turn.StateAwaitingResponse)

	// Response arrives while it is still alice's turn.
	m.HandleActionResponse("alice", out.CorrelationId, true, "")
	testutil.AssertEqual(t, "back to idle", m.Coordinator("alice").State(), turn.StateMyTurnIdle)

	// Second action; this time the turn passes before the ack lands.
	out, err = m.Submit(context.Background(), gateway.Request{
		PlayerId: "alice",
		Kind:     gateway.ActionMove,
		TileId:   "pit",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := m.EndTurn("alice"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m.HandleActionResponse("alice", out.CorrelationId, true, "")
	testutil.AssertEqual(t, "now waiting", m.Coordinator("alice").State(), turn.StateWaitingForTurn)
}

func TestHasItemAndHP(t *testing.T) {
	m, _ := newDuel(t, fixedRoller{v: 0.5})

	testutil.AssertEqual(t, "alice has potion", m.HasItem("alice", "potion"), true)
	testutil.AssertEqual(t, "bob has nothing", m.HasItem("bob", "potion"), false)
	testutil.AssertEqual(t, "unknown player", m.HasItem("mallory", "potion"), false)

	if _, err := m.HP("mallory"); !errors.Is(err, ErrUnknownPlayer) {
		t.Errorf("expected ErrUnknownPlayer, got %v", err)
	}
}

func TestNewMatchValidation(t *testing.T) {
	world, err := duelMapSpec().Build()
	if err != nil {
		t.Fatalf("building map: %v", err)
	}

	if _, err := NewMatch("m", world, &fakeTransport{}, nil); err == nil {
		t.Error("expected error for no players")
	}

	if _, err := NewMatch("m", world, &fakeTransport{}, []PlayerSetup{
		{Id: "alice", MaxHP: 10},
		{Id: "alice", MaxHP: 10},
	}); err == nil {
		t.Error("expected error for duplicate player")
	}
}
