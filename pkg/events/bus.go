package events

import (
	"sync"
	"sync/atomic"
)

// DefaultBufferSize is the per-subscriber channel capacity used when
// Subscribe is called with a non-positive size.
const DefaultBufferSize = 64

// Bus fans events out to subscribers. A subscriber whose buffer is full
// misses the event; Publish never blocks.
type Bus struct {
	mu      sync.RWMutex
	subs    map[uint64]chan Event
	nextID  uint64
	closed  bool
	dropped atomic.Uint64
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[uint64]chan Event)}
}

// Publish delivers e to every subscriber with buffer room.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
			b.dropped.Add(1)
		}
	}
}

// Subscribe registers a subscriber. The returned cancel function unsubscribes
// and closes the channel; it is safe to call more than once.
func (b *Bus) Subscribe(size int) (<-chan Event, func()) {
	if size <= 0 {
		size = DefaultBufferSize
	}
	ch := make(chan Event, size)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if sub, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(sub)
			}
		})
	}
}

// Subscribers returns the current subscriber count.
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Dropped returns how many deliveries were skipped because a buffer was full.
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}

// Close closes every subscriber channel. Later publishes are ignored.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
