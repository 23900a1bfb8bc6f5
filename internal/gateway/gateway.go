package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pixil98/go-skirmish/internal/combat"
	"github.com/pixil98/go-skirmish/internal/events"
	"github.com/pixil98/go-skirmish/internal/hexmap"
	"github.com/pixil98/go-skirmish/internal/narrate"
	"github.com/pixil98/go-skirmish/internal/protocol"
	"github.com/pixil98/go-skirmish/internal/turn"
)

var (
	ErrItemNotOwned  = errors.New("item not owned")
	ErrIllegalMove   = errors.New("illegal move")
	ErrUnknownAction = errors.New("unknown action kind")
)

// ActionKind selects the execution route for an admitted action.
type ActionKind string

const (
	ActionAttack  ActionKind = "attack"
	ActionMove    ActionKind = "move"
	ActionUseItem ActionKind = "use-item"
)

// Request is an inbound action from a player.
type Request struct {
	PlayerId string
	Kind     ActionKind

	// Attack fields
	TargetId   string
	AttackType combat.AttackType
	BaseDamage int

	// Move fields
	TileId string

	// Use-item fields
	ItemId string
}

// Outcome is what an admitted request produced. Combat is set for attacks,
// MovedTo for movement.
type Outcome struct {
	CorrelationId string
	Combat        combat.Result
	MovedTo       string
}

// Transport is the outbound side of the wire. Send is fire-and-forget:
// delivery acknowledgements come back later through HandleActionResponse.
type Transport interface {
	Send(protocol.Message) error
	IsConnected() bool
}

// Gateway is the single entry point for player actions: it asks the
// player's coordinator for admission, routes by action kind, publishes the
// outcome, and hands admitted actions to the transport. It decides neither
// turn legality (the coordinator's job) nor combat math (the resolver's).
type Gateway struct {
	session   turn.SessionInfo
	world     *hexmap.Map
	resolver  *combat.Resolver
	notifier  *events.Notifier
	transport Transport

	coordinators map[string]*turn.Coordinator
}

// New creates a Gateway. Coordinators are registered per player as they join
// the match.
func New(session turn.SessionInfo, world *hexmap.Map, resolver *combat.Resolver, notifier *events.Notifier, transport Transport) *Gateway {
	return &Gateway{
		session:      session,
		world:        world,
		resolver:     resolver,
		notifier:     notifier,
		transport:    transport,
		coordinators: make(map[string]*turn.Coordinator),
	}
}

// Register adds a player's coordinator to the admission table.
func (g *Gateway) Register(c *turn.Coordinator) {
	g.coordinators[c.PlayerId()] = c
}

// Coordinator returns the coordinator for a player, or nil.
func (g *Gateway) Coordinator(playerId string) *turn.Coordinator {
	return g.coordinators[playerId]
}

// Execute runs the validate -> execute -> notify pipeline for one request.
// Denied or locally rejected actions return an error after publishing the
// user-facing event; admitted actions return the outcome.
func (g *Gateway) Execute(ctx context.Context, req Request) (*Outcome, error) {
	coord, ok := g.coordinators[req.PlayerId]
	if !ok {
		err := &turn.AdmissionError{Reason: turn.DenialNotInMatch}
		g.publishDenial(req.PlayerId, err.Reason)
		return nil, err
	}

	cid, err := coord.BeginAction()
	if err != nil {
		var denial *turn.AdmissionError
		if errors.As(err, &denial) {
			g.publishDenial(req.PlayerId, denial.Reason)
		}
		return nil, err
	}

	slog.DebugContext(ctx, "action admitted",
		"player", req.PlayerId,
		"kind", req.Kind,
		"correlation_id", cid,
	)

	switch req.Kind {
	case ActionAttack:
		return g.executeAttack(req, coord, cid)
	case ActionMove:
		return g.executeMove(req, coord, cid)
	case ActionUseItem:
		return g.executeUseItem(req, coord, cid)
	default:
		g.rejectLocal(req.PlayerId, coord, cid, fmt.Sprintf("unknown action %q", req.Kind))
		return nil, ErrUnknownAction
	}
}

func (g *Gateway) executeAttack(req Request, coord *turn.Coordinator, cid string) (*Outcome, error) {
	res := g.resolver.ResolveAttack(req.PlayerId, req.TargetId, req.AttackType, req.BaseDamage)
	g.notifier.Publish(protocol.NewEvent(protocol.CategoryCombat, res))

	if inv, ok := res.(combat.Invalid); ok {
		g.rejectLocal(req.PlayerId, coord, cid, inv.Reason)
		return &Outcome{CorrelationId: cid, Combat: res}, nil
	}

	payload := attackMessage{
		TargetId:      req.TargetId,
		AttackType:    string(req.AttackType),
		CorrelationId: cid,
		Narration:     narrate.AttackLine(res),
	}
	if hit, ok := res.(combat.Hit); ok {
		payload.Outcome = "hit"
		payload.Damage = hit.Damage
		payload.Critical = hit.Critical
	} else {
		payload.Outcome = "miss"
	}

	if err := g.send(req, coord, cid, protocol.MessagePlayerAction, payload); err != nil {
		return &Outcome{CorrelationId: cid, Combat: res}, err
	}
	return &Outcome{CorrelationId: cid, Combat: res}, nil
}

func (g *Gateway) executeMove(req Request, coord *turn.Coordinator, cid string) (*Outcome, error) {
	if !g.world.CanMoveTo(req.TileId) {
		g.rejectLocal(req.PlayerId, coord, cid, fmt.Sprintf("cannot move to %q from here", req.TileId))
		return nil, ErrIllegalMove
	}

	if err := g.world.SetCurrentTile(req.TileId); err != nil {
		g.rejectLocal(req.PlayerId, coord, cid, err.Error())
		return nil, err
	}
	if err := g.world.PlaceEntity(req.PlayerId, req.TileId); err != nil {
		return nil, err
	}

	g.notifier.Publish(protocol.NewEvent(protocol.CategoryMovement, protocol.MovementResult{
		PlayerId: req.PlayerId,
		TileId:   req.TileId,
	}))

	g.triggerTileEvent(req.PlayerId, req.TileId)

	payload := moveMessage{TileId: req.TileId, CorrelationId: cid}
	if err := g.send(req, coord, cid, protocol.MessageMovementResult, payload); err != nil {
		return &Outcome{CorrelationId: cid, MovedTo: req.TileId}, err
	}
	return &Outcome{CorrelationId: cid, MovedTo: req.TileId}, nil
}

// triggerTileEvent fires the destination tile's attached event, at most
// once.
func (g *Gateway) triggerTileEvent(playerId, tileId string) {
	tile := g.world.Tile(tileId)
	if tile == nil || tile.Event == nil {
		return
	}
	if !tile.Event.Resolve() {
		return
	}

	g.notifier.Publish(protocol.NewEvent(protocol.CategoryMatch, protocol.TileEventTriggered{
		PlayerId:  playerId,
		TileId:    tileId,
		EventId:   tile.Event.Id,
		EventKind: string(tile.Event.Kind),
		Text:      tile.Event.Text,
	}))
}

func (g *Gateway) executeUseItem(req Request, coord *turn.Coordinator, cid string) (*Outcome, error) {
	if !g.session.HasItem(req.PlayerId, req.ItemId) {
		g.rejectLocal(req.PlayerId, coord, cid, fmt.Sprintf("you do not have %q", req.ItemId))
		return nil, ErrItemNotOwned
	}

	payload := itemMessage{ItemId: req.ItemId, CorrelationId: cid}
	if err := g.send(req, coord, cid, protocol.MessagePlayerAction, payload); err != nil {
		return &Outcome{CorrelationId: cid}, err
	}
	return &Outcome{CorrelationId: cid}, nil
}

// send hands an admitted action to the transport. A send failure surfaces
// as a failed outcome and clears the awaiting flag so the player can retry
// once reconnected.
func (g *Gateway) send(req Request, coord *turn.Coordinator, cid string, t protocol.MessageType, payload any) error {
	msg, err := protocol.NewMessage(t, req.PlayerId, payload)
	if err != nil {
		return err
	}

	if !g.transport.IsConnected() {
		g.notifier.Publish(protocol.NewEvent(protocol.CategoryConnection, protocol.ConnectionChanged{
			PlayerId:  req.PlayerId,
			Connected: false,
		}))
		err = fmt.Errorf("transport disconnected")
	} else {
		err = g.transport.Send(msg)
	}
	if err != nil {
		g.notifier.Publish(protocol.NewEvent(protocol.CategoryAction, protocol.ActionFailed{
			PlayerId:      req.PlayerId,
			CorrelationId: cid,
			Reason:        err.Error(),
		}))
		coord.OnActionResponse(cid)
		return fmt.Errorf("sending %s: %w", t, err)
	}

	g.notifier.Publish(protocol.NewEvent(protocol.CategoryAction, protocol.ActionSent{
		PlayerId:      req.PlayerId,
		ActionKind:    string(req.Kind),
		CorrelationId: cid,
	}))
	return nil
}

// HandleActionResponse routes a transport acknowledgement back to the
// player's coordinator and announces the terminal outcome.
func (g *Gateway) HandleActionResponse(playerId, correlationId string, accepted bool, reason string) {
	coord, ok := g.coordinators[playerId]
	if !ok {
		return
	}

	coord.OnActionResponse(correlationId)

	if accepted {
		g.notifier.Publish(protocol.NewEvent(protocol.CategoryAction, protocol.ActionAccepted{
			PlayerId:      playerId,
			CorrelationId: correlationId,
		}))
		return
	}
	g.notifier.Publish(protocol.NewEvent(protocol.CategoryAction, protocol.ActionRejected{
		PlayerId:      playerId,
		CorrelationId: correlationId,
		Reason:        reason,
	}))
}

// rejectLocal terminates an admitted action that failed its own validity
// check, without a transport round trip.
func (g *Gateway) rejectLocal(playerId string, coord *turn.Coordinator, cid, reason string) {
	g.notifier.Publish(protocol.NewEvent(protocol.CategoryAction, protocol.ActionRejected{
		PlayerId:      playerId,
		CorrelationId: cid,
		Reason:        reason,
	}))
	g.notifier.Publish(protocol.NewEvent(protocol.CategoryUserError, protocol.UserError{
		PlayerId: playerId,
		Text:     reason,
	}))
	coord.OnActionResponse(cid)
}

func (g *Gateway) publishDenial(playerId string, reason turn.DenialReason) {
	g.notifier.Publish(protocol.NewEvent(protocol.CategoryAction, protocol.ActionRejected{
		PlayerId: playerId,
		Reason:   string(reason),
	}))
	g.notifier.Publish(protocol.NewEvent(protocol.CategoryUserError, protocol.UserError{
		PlayerId: playerId,
		Text:     narrate.DenialText(reason),
	}))
}

// Wire payloads for outbound messages.

type attackMessage struct {
	TargetId      string `json:"target_id"`
	AttackType    string `json:"attack_type"`
	Outcome       string `json:"outcome"`
	Damage        int    `json:"damage,omitempty"`
	Critical      bool   `json:"critical,omitempty"`
	Narration     string `json:"narration,omitempty"`
	CorrelationId string `json:"correlation_id"`
}

type moveMessage struct {
	TileId        string `json:"tile_id"`
	CorrelationId string `json:"correlation_id"`
}

type itemMessage struct {
	ItemId        string `json:"item_id"`
	CorrelationId string `json:"correlation_id"`
}
