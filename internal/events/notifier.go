package events

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/pixil98/go-skirmish/internal/protocol"
)

// Handler receives published events for a subscribed category.
type Handler func(protocol.GameEvent)

// Notifier is a category-keyed publish/subscribe hub. Dispatch iterates a
// snapshot of the handler list taken at publish time, so handlers may
// subscribe or unsubscribe during a publish without affecting the in-flight
// delivery. A handler that panics is logged and skipped; delivery continues
// to the remaining handlers.
type Notifier struct {
	mu       sync.RWMutex
	handlers map[protocol.EventCategory][]*subscription
}

type subscription struct {
	fn Handler
}

// NewNotifier creates an empty Notifier.
func NewNotifier() *Notifier {
	return &Notifier{
		handlers: make(map[protocol.EventCategory][]*subscription),
	}
}

// Subscribe registers a handler for the given category and returns an
// unsubscribe function. The handler list is replaced rather than mutated in
// place so publishes holding a snapshot are unaffected.
func (n *Notifier) Subscribe(cat protocol.EventCategory, fn Handler) (unsubscribe func(), err error) {
	if fn == nil {
		return nil, fmt.Errorf("handler cannot be nil")
	}

	sub := &subscription{fn: fn}

	n.mu.Lock()
	list := n.handlers[cat]
	next := make([]*subscription, len(list), len(list)+1)
	copy(next, list)
	n.handlers[cat] = append(next, sub)
	n.mu.Unlock()

	return func() { n.remove(cat, sub) }, nil
}

func (n *Notifier) remove(cat protocol.EventCategory, sub *subscription) {
	n.mu.Lock()
	defer n.mu.Unlock()

	list := n.handlers[cat]
	next := make([]*subscription, 0, len(list))
	for _, s := range list {
		if s != sub {
			next = append(next, s)
		}
	}
	if len(next) == 0 {
		delete(n.handlers, cat)
		return
	}
	n.handlers[cat] = next
}

// Publish delivers the event to every handler registered for its category,
// in subscription order. Publishing to a category with no subscribers is a
// no-op.
func (n *Notifier) Publish(event protocol.GameEvent) {
	n.mu.RLock()
	snapshot := n.handlers[event.Category]
	n.mu.RUnlock()

	for _, sub := range snapshot {
		invoke(sub.fn, event)
	}
}

// invoke wraps a single handler call so one misbehaving subscriber cannot
// abort delivery to the rest.
func invoke(fn Handler, event protocol.GameEvent) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("event handler panicked",
				"category", event.Category,
				"panic", r,
			)
		}
	}()
	fn(event)
}

// Clear removes all handlers. Used at session teardown.
func (n *Notifier) Clear() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.handlers = make(map[protocol.EventCategory][]*subscription)
}
