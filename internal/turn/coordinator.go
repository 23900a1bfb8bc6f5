package turn

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Phase is the lifecycle stage of a match.
type Phase string

const (
	PhaseLobby   Phase = "lobby"
	PhasePlaying Phase = "playing"
	PhaseEnded   Phase = "ended"
)

// State is the coordinator's admission state for one player.
type State string

const (
	StateNotInMatch       State = "not-in-match"
	StateWaitingForTurn   State = "waiting-for-turn"
	StateMyTurnIdle       State = "my-turn-idle"
	StateAwaitingResponse State = "awaiting-response"
	StateDead             State = "dead"
	StateMatchEnded       State = "match-ended"
)

// DenialReason explains why an action was refused admission.
type DenialReason string

const (
	DenialNotInMatch       DenialReason = "not-in-match"
	DenialNotYourTurn      DenialReason = "not-your-turn"
	DenialIsDead           DenialReason = "is-dead"
	DenialAwaitingResponse DenialReason = "already-awaiting-response"
)

// AdmissionError is returned when an action is refused. It is user-facing
// and never fatal.
type AdmissionError struct {
	Reason DenialReason
}

func (e *AdmissionError) Error() string {
	return fmt.Sprintf("action denied: %s", e.Reason)
}

// SessionInfo is the match-side state the coordinator reads but does not
// own.
type SessionInfo interface {
	Phase() Phase
	CurrentTurnPlayer() string
	IsDead(playerId string) bool
	HasItem(playerId, itemId string) bool
}

// Coordinator is the per-player turn/admission state machine. Every
// player-initiated effect passes through BeginAction; nothing else may admit
// an action. Admitted actions carry a correlation id so a stale transport
// response cannot clear a newer action's wait state.
type Coordinator struct {
	mu       sync.Mutex
	playerId string
	session  SessionInfo
	state    State
	pending  string
}

// NewCoordinator creates a coordinator in the not-in-match state.
func NewCoordinator(playerId string, session SessionInfo) *Coordinator {
	return &Coordinator{
		playerId: playerId,
		session:  session,
		state:    StateNotInMatch,
	}
}

// State returns the current admission state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// PlayerId returns the player this coordinator gates.
func (c *Coordinator) PlayerId() string {
	return c.playerId
}

// EnterMatch transitions out of not-in-match once the match is underway.
func (c *Coordinator) EnterMatch() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateNotInMatch {
		return
	}
	c.state = c.idleState()
}

// CanAct reports whether an action would currently be admitted.
func (c *Coordinator) CanAct() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.denialLocked() == ""
}

// BeginAction admits an action, transitioning to awaiting-response, and
// returns the correlation id for the eventual response. Refusals return an
// AdmissionError and leave all state untouched.
func (c *Coordinator) BeginAction() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if reason := c.denialLocked(); reason != "" {
		return "", &AdmissionError{Reason: reason}
	}

	c.state = StateAwaitingResponse
	c.pending = uuid.NewString()
	return c.pending, nil
}

func (c *Coordinator) denialLocked() DenialReason {
	switch c.state {
	case StateNotInMatch, StateMatchEnded:
		return DenialNotInMatch
	case StateDead:
		return DenialIsDead
	case StateAwaitingResponse:
		return DenialAwaitingResponse
	}
	if c.session.Phase() != PhasePlaying {
		return DenialNotInMatch
	}
	if c.session.IsDead(c.playerId) {
		return DenialIsDead
	}
	if c.session.CurrentTurnPlayer() != c.playerId {
		return DenialNotYourTurn
	}
	return ""
}

// OnActionResponse records a terminal outcome for the pending action and
// clears the awaiting flag. Responses whose correlation id does not match
// the pending action are logged and ignored.
func (c *Coordinator) OnActionResponse(correlationId string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateAwaitingResponse {
		return
	}
	if correlationId != c.pending {
		slog.Debug("ignoring stale action response",
			"player", c.playerId,
			"correlation_id", correlationId,
		)
		return
	}

	c.pending = ""
	c.state = c.idleState()
}

// OnTurnChanged recomputes idle vs waiting when the active player changes.
// A coordinator mid-action keeps awaiting its response.
func (c *Coordinator) OnTurnChanged() {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateMyTurnIdle, StateWaitingForTurn:
		c.state = c.idleState()
	}
}

// OnLethalDamage moves the player to the dead state from any live state.
func (c *Coordinator) OnLethalDamage() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateMatchEnded {
		return
	}
	c.pending = ""
	c.state = StateDead
}

// OnMatchEnd is terminal.
func (c *Coordinator) OnMatchEnd() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pending = ""
	c.state = StateMatchEnded
}

// idleState picks between my-turn-idle and waiting-for-turn from the
// session's view of the match.
func (c *Coordinator) idleState() State {
	if c.session.Phase() == PhaseEnded {
		return StateMatchEnded
	}
	if c.session.IsDead(c.playerId) {
		return StateDead
	}
	if c.session.Phase() == PhasePlaying && c.session.CurrentTurnPlayer() == c.playerId {
		return StateMyTurnIdle
	}
	return StateWaitingForTurn
}
