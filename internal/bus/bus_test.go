package bus

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"ingestflow/internal/event"
)

func makeEvent(i int) event.NormalizedEvent {
	return event.NormalizedEvent{
		Venue:     "binance",
		Symbol:    "BTCUSDT",
		Timestamp: time.Unix(int64(i), 0).UTC(),
		Payload:   json.RawMessage(fmt.Sprintf(`{"i":%d}`, i)),
	}
}

func TestPublishInOrder(t *testing.T) {
	b := New(16)
	pub := b.Publisher()
	sub := b.Subscribe()

	for i := 0; i < 10; i++ {
		pub.Publish(makeEvent(i))
	}

	for i := 0; i < 10; i++ {
		evt, ok := sub.Poll()
		if !ok {
			t.Fatalf("event %d missing", i)
		}
		if string(evt.Payload) != fmt.Sprintf(`{"i":%d}`, i) {
			t.Errorf("event %d out of order: %s", i, evt.Payload)
		}
	}
	if _, ok := sub.Poll(); ok {
		t.Error("caught-up subscription should report no event")
	}
	if sub.Dropped() != 0 {
		t.Errorf("no drops expected, got %d", sub.Dropped())
	}
}

func TestIndependentSubscribers(t *testing.T) {
	b := New(16)
	pub := b.Publisher()
	s1 := b.Subscribe()
	s2 := b.Subscribe()

	for i := 0; i < 5; i++ {
		pub.Publish(makeEvent(i))
	}

	for _, sub := range []*Subscription{s1, s2} {
		count := 0
		for {
			if _, ok := sub.Poll(); !ok {
				break
			}
			count++
		}
		if count != 5 {
			t.Errorf("subscription %s received %d events, want 5", sub.ID(), count)
		}
	}
}

func TestSubscribeSkipsHistory(t *testing.T) {
	b := New(16)
	pub := b.Publisher()
	pub.Publish(makeEvent(0))

	sub := b.Subscribe()
	if _, ok := sub.Poll(); ok {
		t.Error("subscription should not observe events published before it")
	}

	pub.Publish(makeEvent(1))
	evt, ok := sub.Poll()
	if !ok || string(evt.Payload) != `{"i":1}` {
		t.Errorf("expected event 1, got %v %v", evt, ok)
	}
}

func TestLaggingSubscriberLosesOldest(t *testing.T) {
	b := New(4)
	pub := b.Publisher()
	sub := b.Subscribe()

	// Publish well past capacity without the subscriber reading; the
	// publisher must never block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			pub.Publish(makeEvent(i))
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publisher blocked on a lagging subscriber")
	}

	// The earliest retained event is i=6; 6 events were lost.
	evt, ok := sub.Poll()
	if !ok {
		t.Fatal("expected a retained event")
	}
	if string(evt.Payload) != `{"i":6}` {
		t.Errorf("expected earliest retained event {\"i\":6}, got %s", evt.Payload)
	}
	if sub.Dropped() != 6 {
		t.Errorf("dropped: got %d, want 6", sub.Dropped())
	}

	// The remainder arrives in order with no further gap.
	for i := 7; i < 10; i++ {
		evt, ok := sub.Poll()
		if !ok || string(evt.Payload) != fmt.Sprintf(`{"i":%d}`, i) {
			t.Fatalf("event %d: got %v %v", i, evt, ok)
		}
	}
	if sub.Dropped() != 6 {
		t.Errorf("dropped changed after catch-up: %d", sub.Dropped())
	}
}

func TestConcurrentPublishSubscribe(t *testing.T) {
	b := New(1024)
	var wg sync.WaitGroup

	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pub := b.Publisher()
			for i := 0; i < 100; i++ {
				pub.Publish(makeEvent(i))
			}
		}()
	}
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sub := b.Subscribe()
			for i := 0; i < 50; i++ {
				sub.Poll()
			}
		}()
	}
	wg.Wait()
}
