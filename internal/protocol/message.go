package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType identifies the kind of wire message exchanged with the
// transport layer. The core only produces and consumes a subset of these;
// the rest exist so collaborators share one enum.
type MessageType string

const (
	// Connection lifecycle
	MessagePlayerConnect    MessageType = "PLAYER_CONNECT"
	MessagePlayerDisconnect MessageType = "PLAYER_DISCONNECT"

	// Lobby
	MessageJoinRequest       MessageType = "JOIN_REQUEST"
	MessageReadyStatusChange MessageType = "READY_STATUS_CHANGE"
	MessageStartMatchRequest MessageType = "START_MATCH_REQUEST"

	// Game
	MessageGameState    MessageType = "GAME_STATE"
	MessagePlayerAction MessageType = "PLAYER_ACTION"
	MessageTurnStart    MessageType = "TURN_START"
	MessageTurnEnd      MessageType = "TURN_END"

	// Map / movement
	MessageMapState        MessageType = "MAP_STATE"
	MessageMovementRequest MessageType = "MOVEMENT_REQUEST"
	MessageMovementResult  MessageType = "MOVEMENT_RESULT"
	MessageReachableTiles  MessageType = "REACHABLE_TILES"

	// Validation
	MessageActionValid   MessageType = "ACTION_VALID"
	MessageActionInvalid MessageType = "ACTION_INVALID"

	// System
	MessageError MessageType = "ERROR"
	MessagePing  MessageType = "PING"
	MessagePong  MessageType = "PONG"
)

// Message is the wire envelope shared with the transport collaborator.
// Timestamp is unix milliseconds; Payload is typed by Type.
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp int64           `json:"timestamp"`
	SenderId  string          `json:"sender_id"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// ActionResponsePayload rides on ACTION_VALID and ACTION_INVALID messages.
type ActionResponsePayload struct {
	CorrelationId string `json:"correlation_id"`
	Reason        string `json:"reason,omitempty"`
}

// NewMessage builds a Message, marshalling the payload.
func NewMessage(t MessageType, senderId string, payload any) (Message, error) {
	msg := Message{
		Type:      t,
		Timestamp: time.Now().UnixMilli(),
		SenderId:  senderId,
	}

	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return Message{}, fmt.Errorf("marshalling %s payload: %w", t, err)
		}
		msg.Payload = data
	}

	return msg, nil
}
