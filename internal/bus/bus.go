package bus

import (
	"sync"

	"github.com/google/uuid"

	"ingestflow/internal/event"
)

// Bus is a lossy single-writer/many-reader broadcast over a bounded ring.
// Publishing never blocks; each subscription reads at its own pace and a
// subscription lagging more than the capacity behind silently loses its
// oldest unread events, favoring ingestion liveness over per-consumer
// completeness. One Bus is constructed per process and shared by handle.
type Bus struct {
	mu       sync.Mutex
	buf      []event.NormalizedEvent
	capacity uint64
	next     uint64 // sequence number of the next published event
}

// New allocates a bus retaining up to capacity events for slow readers.
func New(capacity int) *Bus {
	if capacity <= 0 {
		capacity = 1
	}
	return &Bus{
		buf:      make([]event.NormalizedEvent, capacity),
		capacity: uint64(capacity),
	}
}

// Publisher returns a lightweight publish handle. Handles are cheap and any
// number may exist concurrently.
func (b *Bus) Publisher() *Publisher {
	return &Publisher{bus: b}
}

// Subscribe registers a new independent consumer. It observes every event
// published after this call, in publish order, subject to the overflow
// policy.
func (b *Bus) Subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	return &Subscription{
		id:     uuid.NewString(),
		bus:    b,
		cursor: b.next,
	}
}

// Publisher is the write side of a Bus.
type Publisher struct {
	bus *Bus
}

// Publish appends the event to the ring. It is fire-and-forget: with zero
// subscribers the event is simply retained until overwritten, and slow
// readers never backpressure the caller.
func (p *Publisher) Publish(evt event.NormalizedEvent) {
	b := p.bus
	b.mu.Lock()
	b.buf[b.next%b.capacity] = evt
	b.next++
	b.mu.Unlock()
}

// Subscription is an independent read cursor over the bus.
type Subscription struct {
	id      string
	bus     *Bus
	cursor  uint64
	dropped uint64
}

// ID returns the subscription's unique identifier, useful for log fields.
func (s *Subscription) ID() string {
	return s.id
}

// Poll returns the next unread event, or ok=false when the subscription is
// caught up. When the cursor has fallen more than the bus capacity behind,
// the lost range is added to the dropped counter and reading resumes at the
// earliest retained event.
func (s *Subscription) Poll() (event.NormalizedEvent, bool) {
	b := s.bus
	b.mu.Lock()
	defer b.mu.Unlock()

	if s.cursor == b.next {
		return event.NormalizedEvent{}, false
	}
	if b.next-s.cursor > b.capacity {
		oldest := b.next - b.capacity
		s.dropped += oldest - s.cursor
		s.cursor = oldest
	}
	evt := s.bus.buf[s.cursor%b.capacity]
	s.cursor++
	return evt, true
}

// Dropped reports how many events this subscription has lost to overflow.
func (s *Subscription) Dropped() uint64 {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	return s.dropped
}
