package messaging

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pixil98/go-skirmish/internal/events"
	"github.com/pixil98/go-skirmish/internal/protocol"
)

// ResponseSubject is the wire subject carrying a match's inbound
// acknowledgements.
func ResponseSubject(matchId string) string {
	return fmt.Sprintf("match-%s.responses", matchId)
}

// Subscriber is the inbound slice of NatsServer.
type Subscriber interface {
	Subscribe(subject string, handler func(data []byte)) (func(), error)
}

// ResponseRouter delivers a decoded acknowledgement to its match.
type ResponseRouter interface {
	HandleActionResponse(matchId, playerId, correlationId string, accepted bool, reason string)
}

// ResponseListener subscribes to each match's response subject and routes
// ACTION_VALID / ACTION_INVALID messages back into the match. The router is
// set after construction because the match registry is built around the
// listener.
type ResponseListener struct {
	subscriber Subscriber

	mu     sync.Mutex
	router ResponseRouter
	unsubs map[string]func()
}

func NewResponseListener(sub Subscriber) *ResponseListener {
	return &ResponseListener{
		subscriber: sub,
		unsubs:     map[string]func(){},
	}
}

func (l *ResponseListener) SetRouter(r ResponseRouter) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.router = r
}

func (l *ResponseListener) Attach(matchId string, _ *events.Notifier) error {
	unsub, err := l.subscriber.Subscribe(ResponseSubject(matchId), func(data []byte) {
		l.handle(matchId, data)
	})
	if err != nil {
		return fmt.Errorf("subscribing to responses: %w", err)
	}

	l.mu.Lock()
	l.unsubs[matchId] = unsub
	l.mu.Unlock()
	return nil
}

func (l *ResponseListener) Detach(matchId string) {
	l.mu.Lock()
	unsub, ok := l.unsubs[matchId]
	delete(l.unsubs, matchId)
	l.mu.Unlock()

	if ok {
		unsub()
	}
}

func (l *ResponseListener) handle(matchId string, data []byte) {
	l.mu.Lock()
	router := l.router
	l.mu.Unlock()
	if router == nil {
		return
	}

	var msg protocol.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		slog.Warn("discarding malformed response", "match", matchId, "error", err)
		return
	}

	var accepted bool
	switch msg.Type {
	case protocol.MessageActionValid:
		accepted = true
	case protocol.MessageActionInvalid:
		accepted = false
	default:
		slog.Debug("ignoring non-response message", "match", matchId, "type", msg.Type)
		return
	}

	var payload protocol.ActionResponsePayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		slog.Warn("discarding malformed response payload", "match", matchId, "error", err)
		return
	}

	router.HandleActionResponse(matchId, msg.SenderId, payload.CorrelationId, accepted, payload.Reason)
}
