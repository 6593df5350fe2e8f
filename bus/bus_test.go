package bus

import (
	"context"
	"testing"
	"time"
)

func expectPayload(t *testing.T, s *Subscription, want any) *Message {
	t.Helper()
	select {
	case m := <-s.Channel():
		if m.Payload != want {
			t.Fatalf("payload %v, want %v", m.Payload, want)
		}
		return m
	case <-time.After(100 * time.Millisecond):
		t.Fatalf("timeout waiting for %v on %s", want, s.Topic())
	}
	return nil
}

func expectNoMessage(t *testing.T, s *Subscription) {
	t.Helper()
	select {
	case m := <-s.Channel():
		t.Fatalf("unexpected message on %s: %v", s.Topic(), m.Payload)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestBasicPubSub(t *testing.T) {
	b := NewBus(4)
	conn := b.NewConnection("test")

	sub := conn.Subscribe(T("hal", "cap", "motor", 0, "value"))
	conn.Publish(conn.NewMessage(T("hal", "cap", "motor", 0, "value"), "hello", false))
	expectPayload(t, sub, "hello")

	// int and string tokens are distinct.
	conn.Publish(conn.NewMessage(T("hal", "cap", "motor", "0", "value"), "other", false))
	expectNoMessage(t, sub)
}

func TestRetainedMessage(t *testing.T) {
	b := NewBus(2)
	conn := b.NewConnection("test")

	conn.Publish(conn.NewMessage(T("config", "motor"), "persist", true))
	sub := conn.Subscribe(T("config", "motor"))
	expectPayload(t, sub, "persist")

	// nil payload clears the slot.
	conn.Publish(conn.NewMessage(T("config", "motor"), nil, true))
	<-sub.Channel()
	late := conn.Subscribe(T("config", "motor"))
	expectNoMessage(t, late)
}

func TestWildcards(t *testing.T) {
	b := NewBus(16)
	c := b.NewConnection("test")

	s1 := c.Subscribe(T("a", "+", "c"))
	s2 := c.Subscribe(T("a", "+", "+"))
	s3 := c.Subscribe(T("a", "#"))
	sNo := c.Subscribe(T("a", "+", "d"))

	c.Publish(b.NewMessage(T("a", "b", "c"), "m1", false))
	expectPayload(t, s1, "m1")
	expectPayload(t, s2, "m1")
	expectPayload(t, s3, "m1")
	expectNoMessage(t, sNo)

	c.Publish(b.NewMessage(T("a", 3), "m2", false))
	expectPayload(t, s3, "m2")
	expectNoMessage(t, s1)
	expectNoMessage(t, s2)
}

func TestRetainedReplayToWildcard(t *testing.T) {
	b := NewBus(8)
	c := b.NewConnection("test")
	c.Publish(b.NewMessage(T("hal", "cap", "motor", 1, "value"), "v1", true))
	c.Publish(b.NewMessage(T("hal", "cap", "motor", 2, "status"), "s2", true))

	sub := c.Subscribe(T("hal", "cap", "motor", "+", "value"))
	expectPayload(t, sub, "v1")
	expectNoMessage(t, sub)
}

func TestQueueDropsOldest(t *testing.T) {
	b := NewBus(2)
	c := b.NewConnection("test")
	sub := c.Subscribe(T("x"))
	for _, p := range []string{"1", "2", "3"} {
		c.Publish(b.NewMessage(T("x"), p, false))
	}
	expectPayload(t, sub, "2")
	expectPayload(t, sub, "3")
}

func TestUnsubscribeAndDisconnect(t *testing.T) {
	b := NewBus(4)
	c := b.NewConnection("test")
	sub := c.Subscribe(T("x", "y"))
	sub.Unsubscribe()
	if _, ok := <-sub.Channel(); ok {
		t.Fatal("channel should be closed")
	}
	sub.Unsubscribe() // second call is a no-op
	c.Publish(b.NewMessage(T("x", "y"), "gone", false))

	s2 := c.Subscribe(T("x", "#"))
	c.Disconnect()
	if _, ok := <-s2.Channel(); ok {
		t.Fatal("disconnect should close subscriptions")
	}
	if len(b.root.children) != 0 {
		t.Fatalf("trie not pruned: %v", b.root.children)
	}
}

func TestRequestReply(t *testing.T) {
	b := NewBus(4)
	server := b.NewConnection("server")
	client := b.NewConnection("client")

	reqs := server.Subscribe(T("svc", "echo"))
	go func() {
		m := <-reqs.Channel()
		server.Reply(m, m.Payload)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	reply, err := client.RequestWait(ctx, client.NewMessage(T("svc", "echo"), "ping", false))
	if err != nil {
		t.Fatal(err)
	}
	if reply.Payload != "ping" {
		t.Fatalf("reply %v", reply.Payload)
	}

	ctx2, cancel2 := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel2()
	if _, err := client.RequestWait(ctx2, client.NewMessage(T("svc", "nobody"), nil, false)); err == nil {
		t.Fatal("expected timeout")
	}
}

func TestTopicHelpers(t *testing.T) {
	tp := T("hal", "cap", "motor", 3)
	if tp.String() != "hal/cap/motor/3" || tp.Len() != 4 || tp.At(3) != 3 {
		t.Fatalf("topic helpers: %s", tp)
	}
	ext := tp.Append("value")
	if ext.String() != "hal/cap/motor/3/value" || tp.Len() != 4 {
		t.Fatal("Append must not alias")
	}
	if !Match(T("a", "#"), T("a")) || Match(T("a", "+"), T("a")) || !Match(T("+", "b"), T(1, "b")) {
		t.Fatal("Match")
	}
}
