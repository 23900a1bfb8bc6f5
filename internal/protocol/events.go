package protocol

import "time"

// EventCategory groups game events for notifier subscriptions.
type EventCategory string

const (
	CategoryAction     EventCategory = "action"
	CategoryCombat     EventCategory = "combat"
	CategoryMovement   EventCategory = "movement"
	CategoryTurn       EventCategory = "turn"
	CategoryMatch      EventCategory = "match"
	CategoryConnection EventCategory = "connection"
	CategoryUserError  EventCategory = "user-error"
)

// Categories lists every event category, for consumers that fan out all
// traffic.
var Categories = []EventCategory{
	CategoryAction,
	CategoryCombat,
	CategoryMovement,
	CategoryTurn,
	CategoryMatch,
	CategoryConnection,
	CategoryUserError,
}

// GameEvent is the envelope handed to notifier subscribers. Payload is one of
// the typed structs below, selected by Category. Events are values; they are
// published, fanned out, and discarded.
type GameEvent struct {
	Category  EventCategory `json:"category"`
	Timestamp time.Time     `json:"timestamp"`
	Payload   any           `json:"payload"`
}

// NewEvent stamps a payload into a GameEvent.
func NewEvent(cat EventCategory, payload any) GameEvent {
	return GameEvent{
		Category:  cat,
		Timestamp: time.Now(),
		Payload:   payload,
	}
}

// ActionSent is published when an admitted action has been handed to the
// transport.
type ActionSent struct {
	PlayerId      string `json:"player_id"`
	ActionKind    string `json:"action_kind"`
	CorrelationId string `json:"correlation_id"`
}

// ActionAccepted is published when the transport acknowledges an action.
type ActionAccepted struct {
	PlayerId      string `json:"player_id"`
	CorrelationId string `json:"correlation_id"`
}

// ActionRejected is published when an action is refused before or during
// resolution.
type ActionRejected struct {
	PlayerId      string `json:"player_id"`
	CorrelationId string `json:"correlation_id,omitempty"`
	Reason        string `json:"reason"`
}

// ActionFailed is published when an admitted action could not be delivered.
type ActionFailed struct {
	PlayerId      string `json:"player_id"`
	CorrelationId string `json:"correlation_id"`
	Reason        string `json:"reason"`
}

// MovementResult is published after a movement action resolves.
type MovementResult struct {
	PlayerId string `json:"player_id"`
	TileId   string `json:"tile_id"`
}

// TileEventTriggered is published when movement lands on a tile with an
// unresolved event attached.
type TileEventTriggered struct {
	PlayerId  string `json:"player_id"`
	TileId    string `json:"tile_id"`
	EventId   string `json:"event_id"`
	EventKind string `json:"event_kind"`
	Text      string `json:"text"`
}

// TurnChanged is published when the active player changes.
type TurnChanged struct {
	TurnNumber int    `json:"turn_number"`
	PlayerId   string `json:"player_id"`
}

// PlayerDied is published when lethal damage is applied.
type PlayerDied struct {
	PlayerId string `json:"player_id"`
	KillerId string `json:"killer_id,omitempty"`
}

// MatchEnded is published once when a match reaches its terminal phase.
type MatchEnded struct {
	MatchId  string `json:"match_id"`
	WinnerId string `json:"winner_id,omitempty"`
}

// ConnectionChanged is published when a player's transport link changes state.
type ConnectionChanged struct {
	PlayerId  string `json:"player_id"`
	Connected bool   `json:"connected"`
}

// UserError carries text meant to be shown to the requesting player.
type UserError struct {
	PlayerId string `json:"player_id"`
	Text     string `json:"text"`
}
