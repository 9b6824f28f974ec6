package bus

import (
	"testing"
	"time"
)

func recvOne(t *testing.T, sub *Subscription) *Message {
	t.Helper()
	select {
	case m := <-sub.Channel():
		return m
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for message")
		return nil
	}
}

func TestBasicPubSub(t *testing.T) {
	b := NewBus(4)
	conn := b.NewConnection("test")

	sub := conn.Subscribe(T("measurement", "office"))
	conn.Publish(conn.NewMessage(T("measurement", "office"), "hello", false))

	if got := recvOne(t, sub); got.Payload.(string) != "hello" {
		t.Errorf("payload = %v, want hello", got.Payload)
	}
}

func TestRetainedMessage(t *testing.T) {
	b := NewBus(2)
	conn := b.NewConnection("test")

	conn.Publish(conn.NewMessage(T("gateway", "state"), "running", true))

	sub := conn.Subscribe(T("gateway", "state"))
	if got := recvOne(t, sub); got.Payload.(string) != "running" {
		t.Errorf("retained payload = %v, want running", got.Payload)
	}

	// A nil retained payload clears the slot.
	conn.Publish(conn.NewMessage(T("gateway", "state"), nil, true))
	sub2 := conn.Subscribe(T("gateway", "state"))
	select {
	case m := <-sub2.Channel():
		t.Fatalf("unexpected retained message: %v", m.Payload)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestWildcard_SingleLevel(t *testing.T) {
	b := NewBus(4)
	conn := b.NewConnection("test")

	sub := conn.Subscribe(T("measurement", Plus))
	conn.Publish(conn.NewMessage(T("measurement", "office"), 1, false))
	conn.Publish(conn.NewMessage(T("measurement", "lab"), 2, false))
	conn.Publish(conn.NewMessage(T("other", "office"), 3, false))

	if got := recvOne(t, sub); got.Payload.(int) != 1 {
		t.Errorf("payload = %v, want 1", got.Payload)
	}
	if got := recvOne(t, sub); got.Payload.(int) != 2 {
		t.Errorf("payload = %v, want 2", got.Payload)
	}
	select {
	case m := <-sub.Channel():
		t.Fatalf("wildcard leaked across first level: %v", m.Payload)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestWildcard_MultiLevel(t *testing.T) {
	b := NewBus(4)
	conn := b.NewConnection("test")

	sub := conn.Subscribe(T("gateway", Hash))
	conn.Publish(conn.NewMessage(T("gateway", "state"), "a", false))
	conn.Publish(conn.NewMessage(T("gateway", "sink", "errors"), "b", false))

	if got := recvOne(t, sub); got.Payload.(string) != "a" {
		t.Errorf("payload = %v, want a", got.Payload)
	}
	if got := recvOne(t, sub); got.Payload.(string) != "b" {
		t.Errorf("payload = %v, want b", got.Payload)
	}
}

func TestDropOldestWhenFull(t *testing.T) {
	b := NewBus(2)
	conn := b.NewConnection("test")

	sub := conn.Subscribe(T("measurement"))
	for i := 1; i <= 5; i++ {
		conn.Publish(conn.NewMessage(T("measurement"), i, false))
	}

	// Queue length 2: only the two freshest survive.
	if got := recvOne(t, sub); got.Payload.(int) != 4 {
		t.Errorf("payload = %v, want 4", got.Payload)
	}
	if got := recvOne(t, sub); got.Payload.(int) != 5 {
		t.Errorf("payload = %v, want 5", got.Payload)
	}
}

func TestUnsubscribePrunes(t *testing.T) {
	b := NewBus(4)
	conn := b.NewConnection("test")

	sub := conn.Subscribe(T("a", "b", "c"))
	sub.Unsubscribe()

	if len(b.root.children) != 0 {
		t.Errorf("trie not pruned: %v", b.root.children)
	}
	// Publishing after unsubscribe must not panic or deliver.
	conn.Publish(conn.NewMessage(T("a", "b", "c"), 1, false))
}

func TestRetained_DeliveredThroughWildcard(t *testing.T) {
	b := NewBus(4)
	conn := b.NewConnection("test")

	conn.Publish(conn.NewMessage(T("measurement", "office"), 42, true))
	sub := conn.Subscribe(T("measurement", Plus))

	if got := recvOne(t, sub); got.Payload.(int) != 42 {
		t.Errorf("retained payload = %v, want 42", got.Payload)
	}
}
