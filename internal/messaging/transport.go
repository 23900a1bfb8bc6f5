package messaging

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pixil98/go-skirmish/internal/events"
	"github.com/pixil98/go-skirmish/internal/gateway"
	"github.com/pixil98/go-skirmish/internal/protocol"
)

// Broker is the slice of NatsServer the fan-out components need.
type Broker interface {
	Publish(subject string, data []byte) error
	IsConnected() bool
}

// MatchSubject is the wire subject carrying a match's outbound messages.
func MatchSubject(matchId string) string {
	return fmt.Sprintf("match-%s", matchId)
}

// EventSubject is the wire subject carrying one match's events of one
// category.
func EventSubject(matchId string, cat protocol.EventCategory) string {
	return fmt.Sprintf("match-%s.events.%s", matchId, cat)
}

// Transports builds per-match transports backed by a broker.
type Transports struct {
	broker Broker
}

func NewTransports(broker Broker) *Transports {
	return &Transports{broker: broker}
}

func (t *Transports) ForMatch(matchId string) gateway.Transport {
	return &matchTransport{
		broker:  t.broker,
		subject: MatchSubject(matchId),
	}
}

// matchTransport serializes messages onto a single match subject.
type matchTransport struct {
	broker  Broker
	subject string
}

func (t *matchTransport) Send(msg protocol.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshalling message: %w", err)
	}
	return t.broker.Publish(t.subject, data)
}

func (t *matchTransport) IsConnected() bool {
	return t.broker.IsConnected()
}

// EventBridge forwards a match's game events onto per-category subjects so
// out-of-process consumers (clients, telemetry) can follow along.
type EventBridge struct {
	broker Broker

	mu     sync.Mutex
	unsubs map[string][]func()
}

func NewEventBridge(broker Broker) *EventBridge {
	return &EventBridge{
		broker: broker,
		unsubs: map[string][]func(){},
	}
}

func (b *EventBridge) Attach(matchId string, n *events.Notifier) error {
	var unsubs []func()
	for _, cat := range protocol.Categories {
		subject := EventSubject(matchId, cat)
		unsub, err := n.Subscribe(cat, func(ev protocol.GameEvent) {
			data, err := json.Marshal(ev)
			if err != nil {
				slog.Warn("failed to marshal event", "match", matchId, "category", ev.Category, "error", err)
				return
			}
			if err := b.broker.Publish(subject, data); err != nil {
				slog.Warn("failed to publish event", "match", matchId, "subject", subject, "error", err)
			}
		})
		if err != nil {
			return fmt.Errorf("subscribing to %s events: %w", cat, err)
		}
		unsubs = append(unsubs, unsub)
	}

	b.mu.Lock()
	b.unsubs[matchId] = unsubs
	b.mu.Unlock()
	return nil
}

func (b *EventBridge) Detach(matchId string) {
	b.mu.Lock()
	unsubs := b.unsubs[matchId]
	delete(b.unsubs, matchId)
	b.mu.Unlock()

	for _, unsub := range unsubs {
		unsub()
	}
}
