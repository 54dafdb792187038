package events

import "testing"

// TestBusPublishAssignsSequence verifies sequencing and timestamps.
func TestBusPublishAssignsSequence(t *testing.T) {
	bus := NewBus(10)

	first := bus.Publish(Event{RequestID: "r1", Stage: "received"})
	second := bus.Publish(Event{RequestID: "r1", Stage: "saved"})

	if first.Seq != 1 || second.Seq != 2 {
		t.Fatalf("seq = %d,%d want 1,2", first.Seq, second.Seq)
	}
	if first.Timestamp.IsZero() {
		t.Fatal("expected timestamp")
	}
}

// TestBusSinceFiltersByRequest verifies incremental reads per request.
func TestBusSinceFiltersByRequest(t *testing.T) {
	bus := NewBus(10)
	bus.Publish(Event{RequestID: "r1", Stage: "received"})
	bus.Publish(Event{RequestID: "r2", Stage: "received"})
	bus.Publish(Event{RequestID: "r1", Stage: "done"})

	got := bus.Since("r1", 1)
	if len(got) != 1 || got[0].Stage != "done" {
		t.Fatalf("since = %+v", got)
	}
	if all := bus.Since("", 0); len(all) != 3 {
		t.Fatalf("all = %d, want 3", len(all))
	}
}

// TestBusTrimsHistory verifies the bounded buffer.
func TestBusTrimsHistory(t *testing.T) {
	bus := NewBus(2)
	for i := 0; i < 5; i++ {
		bus.Publish(Event{RequestID: "r", Stage: "x"})
	}

	got := bus.Since("", 0)
	if len(got) != 2 || got[0].Seq != 4 || got[1].Seq != 5 {
		t.Fatalf("history = %+v", got)
	}
}

// TestBusSubscribeReceivesAndUnsubscribeCloses verifies live fan-out.
func TestBusSubscribeReceivesAndUnsubscribeCloses(t *testing.T) {
	bus := NewBus(10)
	id, ch := bus.Subscribe(1)

	bus.Publish(Event{RequestID: "r", Stage: "received"})
	bus.Publish(Event{RequestID: "r", Stage: "dropped"})

	got := <-ch
	if got.Stage != "received" {
		t.Fatalf("stage = %q", got.Stage)
	}

	bus.Unsubscribe(id)
	if _, ok := <-ch; ok {
		t.Fatal("expected closed channel after unsubscribe")
	}
	bus.Unsubscribe(id)
}
