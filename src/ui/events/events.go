// Package events carries UI notifications that any widget may listen to,
// e.g. popovers closing when the analysis list scrolls.
package events

import "sync"

type Event string

const (
	Scroll Event = "scroll"
)

type Bus struct {
	mu    sync.Mutex
	subs  map[int]chan<- Event
	subid int
}

func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan<- Event)}
}

func (b *Bus) Subscribe(ch chan<- Event) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.subid
	b.subs[id] = ch
	b.subid++

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs, id)
	}
}

// Publish never blocks; slow listeners miss events.
func (b *Bus) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
