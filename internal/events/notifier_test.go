package events

import (
	"testing"

	"github.com/pixil98/go-skirmish/internal/protocol"
	"github.com/pixil98/go-testutil"
)

func TestPublishDeliversInOrder(t *testing.T) {
	n := NewNotifier()

	var got []string
	for _, name := range []string{"first", "second", "third"} {
		name := name
		_, err := n.Subscribe(protocol.CategoryCombat, func(protocol.GameEvent) {
			got = append(got, name)
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	n.Publish(protocol.NewEvent(protocol.CategoryCombat, nil))

	testutil.AssertEqual(t, "handler count", len(got), 3)
	testutil.AssertEqual(t, "first", got[0], "first")
	testutil.AssertEqual(t, "second", got[1], "second")
	testutil.AssertEqual(t, "third", got[2], "third")
}

func TestPublishNoSubscribers(t *testing.T) {
	n := NewNotifier()
	// Must not panic or block.
	n.Publish(protocol.NewEvent(protocol.CategoryTurn, nil))
}

func TestPublishWrongCategoryNotDelivered(t *testing.T) {
	n := NewNotifier()

	called := false
	_, err := n.Subscribe(protocol.CategoryMovement, func(protocol.GameEvent) {
		called = true
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	n.Publish(protocol.NewEvent(protocol.CategoryCombat, nil))

	testutil.AssertEqual(t, "called", called, false)
}

func TestSubscribeNilHandler(t *testing.T) {
	n := NewNotifier()
	_, err := n.Subscribe(protocol.CategoryCombat, nil)
	if err == nil {
		t.Error("expected error for nil handler")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	n := NewNotifier()

	count := 0
	unsub, err := n.Subscribe(protocol.CategoryAction, func(protocol.GameEvent) {
		count++
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	n.Publish(protocol.NewEvent(protocol.CategoryAction, nil))
	unsub()
	n.Publish(protocol.NewEvent(protocol.CategoryAction, nil))

	testutil.AssertEqual(t, "deliveries", count, 1)
}

func TestPanickingHandlerDoesNotBlockOthers(t *testing.T) {
	n := NewNotifier()

	_, err := n.Subscribe(protocol.CategoryCombat, func(protocol.GameEvent) {
		panic("bad subscriber")
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	delivered := false
	_, err = n.Subscribe(protocol.CategoryCombat, func(protocol.GameEvent) {
		delivered = true
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	n.Publish(protocol.NewEvent(protocol.CategoryCombat, nil))

	testutil.AssertEqual(t, "delivered after panic", delivered, true)
}

func TestUnsubscribeDuringPublishDoesNotAffectSnapshot(t *testing.T) {
	n := NewNotifier()

	var unsubSecond func()
	firstCalls := 0
	secondCalls := 0

	_, err := n.Subscribe(protocol.CategoryCombat, func(protocol.GameEvent) {
		firstCalls++
		// Removing the second handler mid-dispatch must not affect the
		// current publish.
		unsubSecond()
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	unsubSecond, err = n.Subscribe(protocol.CategoryCombat, func(protocol.GameEvent) {
		secondCalls++
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	n.Publish(protocol.NewEvent(protocol.CategoryCombat, nil))
	testutil.AssertEqual(t, "second handler in snapshot", secondCalls, 1)

	n.Publish(protocol.NewEvent(protocol.CategoryCombat, nil))
	testutil.AssertEqual(t, "first handler still subscribed", firstCalls, 2)
	testutil.AssertEqual(t, "second handler removed", secondCalls, 1)
}

func TestClearRemovesAllHandlers(t *testing.T) {
	n := NewNotifier()

	count := 0
	for _, cat := range []protocol.EventCategory{protocol.CategoryCombat, protocol.CategoryTurn} {
		_, err := n.Subscribe(cat, func(protocol.GameEvent) { count++ })
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	n.Clear()
	n.Publish(protocol.NewEvent(protocol.CategoryCombat, nil))
	n.Publish(protocol.NewEvent(protocol.CategoryTurn, nil))

	testutil.AssertEqual(t, "deliveries after clear", count, 0)
}
