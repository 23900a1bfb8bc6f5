package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/pixil98/go-skirmish/internal/match"
)

const (
	// CreateSubject carries requests to start a new match.
	CreateSubject = "matches.create"

	// CreatedSubject carries confirmations for started matches.
	CreatedSubject = "matches.created"
)

// CreateRequest is the wire form of a match creation request.
type CreateRequest struct {
	MapId   string       `json:"map_id"`
	Players []PlayerSpec `json:"players"`
}

type PlayerSpec struct {
	Id    string   `json:"id"`
	MaxHP int      `json:"max_hp"`
	Items []string `json:"items,omitempty"`
}

// CreatedNotice is published once a match is running.
type CreatedNotice struct {
	MatchId string `json:"match_id"`
	MapId   string `json:"map_id"`
}

// MatchCreator starts matches; satisfied by match.Manager.
type MatchCreator interface {
	CreateMatch(mapId string, setups []match.PlayerSetup, opts ...match.Opt) (*match.Match, error)
}

// ControlBroker is the broker surface the lobby needs.
type ControlBroker interface {
	Subscriber
	Broker
}

// Lobby is a worker translating creation requests from the wire into running
// matches. It waits for the broker connection before subscribing, since the
// broker worker starts concurrently.
type Lobby struct {
	broker  ControlBroker
	creator MatchCreator
}

func NewLobby(broker ControlBroker, creator MatchCreator) *Lobby {
	return &Lobby{
		broker:  broker,
		creator: creator,
	}
}

func (l *Lobby) Start(ctx context.Context) error {
	for !l.broker.IsConnected() {
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(100 * time.Millisecond):
		}
	}

	unsub, err := l.broker.Subscribe(CreateSubject, func(data []byte) {
		l.handle(ctx, data)
	})
	if err != nil {
		return fmt.Errorf("subscribing to %s: %w", CreateSubject, err)
	}
	defer unsub()

	slog.InfoContext(ctx, "lobby accepting match requests", "subject", CreateSubject)

	<-ctx.Done()
	return nil
}

func (l *Lobby) handle(ctx context.Context, data []byte) {
	var req CreateRequest
	if err := json.Unmarshal(data, &req); err != nil {
		slog.WarnContext(ctx, "discarding malformed create request", "error", err)
		return
	}

	setups := make([]match.PlayerSetup, len(req.Players))
	for i, p := range req.Players {
		setups[i] = match.PlayerSetup{
			Id:    p.Id,
			MaxHP: p.MaxHP,
			Items: p.Items,
		}
	}

	m, err := l.creator.CreateMatch(req.MapId, setups)
	if err != nil {
		slog.WarnContext(ctx, "failed to create match", "map", req.MapId, "error", err)
		return
	}

	notice, err := json.Marshal(CreatedNotice{MatchId: m.Id(), MapId: req.MapId})
	if err != nil {
		slog.WarnContext(ctx, "failed to marshal created notice", "match", m.Id(), "error", err)
		return
	}
	if err := l.broker.Publish(CreatedSubject, notice); err != nil {
		slog.WarnContext(ctx, "failed to announce match", "match", m.Id(), "error", err)
	}

	slog.InfoContext(ctx, "created match", "match", m.Id(), "map", req.MapId, "players", len(setups))
}
