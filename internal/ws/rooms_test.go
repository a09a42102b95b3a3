package ws

import (
	"testing"

	"support-chat/internal/domain"
)

func TestRoomRouter_JoinAndBroadcast(t *testing.T) {
	rooms := NewRoomRouter()

	a := newClient(customerIdentity, nil)
	b := newClient(staffIdentity, nil)
	outsider := newClient(domain.Identity{ID: "cust-2", Role: domain.RoleCustomer}, nil)

	rooms.Join(a, "s1")
	rooms.Join(b, "s1")
	rooms.Join(outsider, "s2")

	rooms.BroadcastToRoom("s1", domain.EventNewMessage, "hola")

	for _, c := range []*Client{a, b} {
		events := drain(c)
		if len(events) != 1 || events[0].Type != domain.EventNewMessage {
			t.Fatalf("member %s: expected exactly one new_message, got %+v", c.identity.ID, events)
		}
	}
	if events := drain(outsider); len(events) != 0 {
		t.Fatalf("other room received %d events", len(events))
	}
}

func TestRoomRouter_BroadcastExceptSkipsSender(t *testing.T) {
	rooms := NewRoomRouter()

	sender := newClient(customerIdentity, nil)
	peer := newClient(staffIdentity, nil)
	rooms.Join(sender, "s1")
	rooms.Join(peer, "s1")

	rooms.BroadcastToRoomExcept("s1", sender, domain.EventUserTyping, nil)

	if events := drain(sender); len(events) != 0 {
		t.Fatalf("sender must not receive its own typing signal")
	}
	if events := drain(peer); len(events) != 1 {
		t.Fatalf("peer expected one typing event, got %d", len(events))
	}
}

func TestRoomRouter_LeaveNeverJoinedIsNoop(t *testing.T) {
	rooms := NewRoomRouter()
	c := newClient(customerIdentity, nil)

	rooms.Leave(c, "never-joined")

	if rooms.Members("never-joined") != 0 {
		t.Fatalf("phantom room has members")
	}
}

func TestRoomRouter_LeaveRemovesOnlyThatConnection(t *testing.T) {
	rooms := NewRoomRouter()

	tab1 := newClient(customerIdentity, nil)
	tab2 := newClient(customerIdentity, nil)
	rooms.Join(tab1, "s1")
	rooms.Join(tab2, "s1")

	rooms.Leave(tab1, "s1")

	if rooms.Members("s1") != 1 {
		t.Fatalf("expected one member left, got %d", rooms.Members("s1"))
	}
	if tab1.Joined("s1") {
		t.Fatalf("tab1 still marked as joined")
	}
	if !tab2.Joined("s1") {
		t.Fatalf("tab2 lost its membership")
	}
}

func TestRoomRouter_LeaveAllOnDisconnect(t *testing.T) {
	rooms := NewRoomRouter()

	c := newClient(staffIdentity, nil)
	rooms.Join(c, "s1")
	rooms.Join(c, "s2")

	left := rooms.LeaveAll(c)
	if len(left) != 2 {
		t.Fatalf("expected to leave 2 rooms, left %d", len(left))
	}

	// Sin miembros fantasma: una difusión posterior no le llega.
	rooms.BroadcastToRoom("s1", domain.EventNewMessage, nil)
	rooms.BroadcastToRoom("s2", domain.EventNewMessage, nil)
	if events := drain(c); len(events) != 0 {
		t.Fatalf("ghost member received %d events after disconnect", len(events))
	}
}

func TestClient_EnqueueFullBufferCancels(t *testing.T) {
	c := newClient(customerIdentity, nil)

	for i := 0; i < sendBufferSize; i++ {
		if !c.Enqueue(domain.Event{Type: domain.EventNewMessage}) {
			t.Fatalf("buffer filled early at %d", i)
		}
	}
	if c.Enqueue(domain.Event{Type: domain.EventNewMessage}) {
		t.Fatalf("expected enqueue to fail on full buffer")
	}

	select {
	case <-c.ctx.Done():
	default:
		t.Fatalf("expected slow client to be cancelled")
	}
}
