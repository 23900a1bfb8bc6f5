package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/pixil98/go-skirmish/internal/hexmap"
	"github.com/pixil98/go-skirmish/internal/match"
	"github.com/pixil98/go-testutil"
)

type fakeControlBroker struct {
	*fakeBroker
	*fakeSubscriber
	subscribed chan string
}

func newFakeControlBroker() *fakeControlBroker {
	return &fakeControlBroker{
		fakeBroker:     newFakeBroker(),
		fakeSubscriber: newFakeSubscriber(),
		subscribed:     make(chan string, 8),
	}
}

func (b *fakeControlBroker) Subscribe(subject string, handler func(data []byte)) (func(), error) {
	unsub, err := b.fakeSubscriber.Subscribe(subject, handler)
	b.subscribed <- subject
	return unsub, err
}

type fakeCreator struct {
	mapIds []string
	setups [][]match.PlayerSetup
	err    error
}

func (c *fakeCreator) CreateMatch(mapId string, setups []match.PlayerSetup, opts ...match.Opt) (*match.Match, error) {
	if c.err != nil {
		return nil, c.err
	}
	c.mapIds = append(c.mapIds, mapId)
	c.setups = append(c.setups, setups)

	world, err := (&hexmap.MapSpec{
		Name:      "lobby-test",
		Tiles:     []hexmap.TileSpec{{Id: "only", Q: 0, R: 0, Biome: hexmap.BiomePlains}},
		StartTile: "only",
	}).Build()
	if err != nil {
		return nil, err
	}
	return match.NewMatch("m-42", world, &matchTransport{broker: newFakeBroker(), subject: "x"}, setups)
}

func TestLobbyHandleCreatesMatch(t *testing.T) {
	broker := newFakeControlBroker()
	creator := &fakeCreator{}
	lobby := NewLobby(broker, creator)

	req, err := json.Marshal(CreateRequest{
		MapId: "duel-pit",
		Players: []PlayerSpec{
			{Id: "alice", MaxHP: 20, Items: []string{"potion"}},
			{Id: "bob", MaxHP: 10},
		},
	})
	if err != nil {
		t.Fatalf("marshalling request: %v", err)
	}
	lobby.handle(context.Background(), req)

	testutil.AssertEqual(t, "matches created", len(creator.mapIds), 1)
	testutil.AssertEqual(t, "map id", creator.mapIds[0], "duel-pit")
	testutil.AssertEqual(t, "player count", len(creator.setups[0]), 2)
	testutil.AssertEqual(t, "first player", creator.setups[0][0].Id, "alice")
	testutil.AssertEqual(t, "items carried", len(creator.setups[0][0].Items), 1)

	announced := broker.published[CreatedSubject]
	testutil.AssertEqual(t, "notices", len(announced), 1)

	var notice CreatedNotice
	if err := json.Unmarshal(announced[0], &notice); err != nil {
		t.Fatalf("unmarshalling notice: %v", err)
	}
	testutil.AssertEqual(t, "match id", notice.MatchId, "m-42")
	testutil.AssertEqual(t, "map id", notice.MapId, "duel-pit")
}

func TestLobbyHandleMalformedRequest(t *testing.T) {
	broker := newFakeControlBroker()
	creator := &fakeCreator{}
	lobby := NewLobby(broker, creator)

	lobby.handle(context.Background(), []byte(`{not json`))

	testutil.AssertEqual(t, "nothing created", len(creator.mapIds), 0)
	testutil.AssertEqual(t, "nothing announced", len(broker.published[CreatedSubject]), 0)
}

func TestLobbyHandleCreateFailure(t *testing.T) {
	broker := newFakeControlBroker()
	creator := &fakeCreator{err: errors.New("unknown map")}
	lobby := NewLobby(broker, creator)

	req, err := json.Marshal(CreateRequest{MapId: "atlantis"})
	if err != nil {
		t.Fatalf("marshalling request: %v", err)
	}
	lobby.handle(context.Background(), req)

	testutil.AssertEqual(t, "nothing announced", len(broker.published[CreatedSubject]), 0)
}

func TestLobbyStartSubscribesAndStops(t *testing.T) {
	broker := newFakeControlBroker()
	lobby := NewLobby(broker, &fakeCreator{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- lobby.Start(ctx) }()

	select {
	case subject := <-broker.subscribed:
		testutil.AssertEqual(t, "subject", subject, CreateSubject)
	case <-time.After(time.Second):
		t.Fatal("lobby never subscribed")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("lobby did not stop")
	}
}
