package eventbus

import (
	"sync"
	"sync/atomic"
	"time"
)

// Well-known event types published by the bot.
const (
	EventConfigReloaded = "config.reloaded"
	EventFeedNotified   = "feed.notified"
	EventPluginState    = "plugin.state"
)

// Event carries an in-process signal between components that must not
// import each other, such as feed plugins and the journal writer.
//
// Contract:
//   - Publish MUST be non-blocking.
//   - Subscribers MUST use buffered channels.
//   - Slow subscribers may drop events (bounded backpressure).
type Event struct {
	Type string
	Time time.Time
	Data any
}

type Bus interface {
	Publish(e Event)
	Subscribe(buffer int) (ch <-chan Event, unsubscribe func())
}

// New returns an in-memory fanout bus with no background goroutines.
func New() Bus {
	return &fanoutBus{subs: map[uint64]chan Event{}}
}

type fanoutBus struct {
	mu     sync.RWMutex
	subs   map[uint64]chan Event
	nextID atomic.Uint64
}

func (b *fanoutBus) Publish(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	b.mu.RLock()
	targets := make([]chan Event, 0, len(b.subs))
	for _, ch := range b.subs {
		targets = append(targets, ch)
	}
	b.mu.RUnlock()

	for _, ch := range targets {
		b.send(ch, e)
	}
}

// send delivers without blocking; a full buffer drops the event. A
// concurrent unsubscribe can close the channel, so the send panic is
// recovered.
func (b *fanoutBus) send(ch chan Event, e Event) {
	defer func() { _ = recover() }()
	select {
	case ch <- e:
	default:
	}
}

func (b *fanoutBus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 8
	}
	ch := make(chan Event, buffer)
	id := b.nextID.Add(1)

	b.mu.Lock()
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			// Safe because Publish recovers from send panics.
			close(ch)
		})
	}
	return ch, unsub
}
