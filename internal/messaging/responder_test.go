package messaging

import (
	"encoding/json"
	"testing"

	"github.com/pixil98/go-skirmish/internal/protocol"
	"github.com/pixil98/go-testutil"
)

type fakeSubscriber struct {
	handlers map[string]func([]byte)
	unsubbed []string
}

func newFakeSubscriber() *fakeSubscriber {
	return &fakeSubscriber{handlers: map[string]func([]byte){}}
}

func (s *fakeSubscriber) Subscribe(subject string, handler func(data []byte)) (func(), error) {
	s.handlers[subject] = handler
	return func() { s.unsubbed = append(s.unsubbed, subject) }, nil
}

func (s *fakeSubscriber) deliver(t *testing.T, subject string, data []byte) {
	t.Helper()
	handler, ok := s.handlers[subject]
	if !ok {
		t.Fatalf("no subscription on %s", subject)
	}
	handler(data)
}

type routedResponse struct {
	matchId       string
	playerId      string
	correlationId string
	accepted      bool
	reason        string
}

type fakeRouter struct {
	routed []routedResponse
}

func (r *fakeRouter) HandleActionResponse(matchId, playerId, correlationId string, accepted bool, reason string) {
	r.routed = append(r.routed, routedResponse{matchId, playerId, correlationId, accepted, reason})
}

func responseMessage(t *testing.T, mt protocol.MessageType, playerId string, payload protocol.ActionResponsePayload) []byte {
	t.Helper()
	msg, err := protocol.NewMessage(mt, playerId, payload)
	if err != nil {
		t.Fatalf("building message: %v", err)
	}
	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshalling message: %v", err)
	}
	return data
}

func TestResponseListenerRoutes(t *testing.T) {
	sub := newFakeSubscriber()
	router := &fakeRouter{}
	listener := NewResponseListener(sub)
	listener.SetRouter(router)

	if err := listener.Attach("m-1", nil); err != nil {
		t.Fatalf("attaching: %v", err)
	}

	sub.deliver(t, "match-m-1.responses", responseMessage(t, protocol.MessageActionValid, "alice", protocol.ActionResponsePayload{
		CorrelationId: "cid-1",
	}))
	sub.deliver(t, "match-m-1.responses", responseMessage(t, protocol.MessageActionInvalid, "bob", protocol.ActionResponsePayload{
		CorrelationId: "cid-2",
		Reason:        "target already dead",
	}))

	testutil.AssertEqual(t, "routed count", len(router.routed), 2)

	testutil.AssertEqual(t, "match", router.routed[0].matchId, "m-1")
	testutil.AssertEqual(t, "player", router.routed[0].playerId, "alice")
	testutil.AssertEqual(t, "correlation id", router.routed[0].correlationId, "cid-1")
	testutil.AssertEqual(t, "accepted", router.routed[0].accepted, true)

	testutil.AssertEqual(t, "rejected", router.routed[1].accepted, false)
	testutil.AssertEqual(t, "reason", router.routed[1].reason, "target already dead")
}

func TestResponseListenerIgnoresOtherMessages(t *testing.T) {
	sub := newFakeSubscriber()
	router := &fakeRouter{}
	listener := NewResponseListener(sub)
	listener.SetRouter(router)

	if err := listener.Attach("m-1", nil); err != nil {
		t.Fatalf("attaching: %v", err)
	}

	sub.deliver(t, "match-m-1.responses", responseMessage(t, protocol.MessagePing, "alice", protocol.ActionResponsePayload{}))
	sub.deliver(t, "match-m-1.responses", []byte(`{not json`))

	testutil.AssertEqual(t, "nothing routed", len(router.routed), 0)
}

func TestResponseListenerWithoutRouter(t *testing.T) {
	sub := newFakeSubscriber()
	listener := NewResponseListener(sub)

	if err := listener.Attach("m-1", nil); err != nil {
		t.Fatalf("attaching: %v", err)
	}

	// Must not panic before the router is wired.
	sub.deliver(t, "match-m-1.responses", responseMessage(t, protocol.MessageActionValid, "alice", protocol.ActionResponsePayload{
		CorrelationId: "cid-1",
	}))
}

func TestResponseListenerDetach(t *testing.T) {
	sub := newFakeSubscriber()
	listener := NewResponseListener(sub)
	listener.SetRouter(&fakeRouter{})

	if err := listener.Attach("m-1", nil); err != nil {
		t.Fatalf("attaching: %v", err)
	}

	listener.Detach("m-1")
	testutil.AssertEqual(t, "unsubscribed", len(sub.unsubbed), 1)
	testutil.AssertEqual(t, "subject", sub.unsubbed[0], "match-m-1.responses")

	// Detaching twice is harmless.
	listener.Detach("m-1")
	testutil.AssertEqual(t, "no double unsubscribe", len(sub.unsubbed), 1)
}
