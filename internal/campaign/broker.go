package campaign

import (
	"sync"
	"time"
)

type EventKind string

const (
	EventSaved   EventKind = "saved"
	EventCleared EventKind = "cleared"
)

// Event announces a change to the stored campaign. Config is the zero value
// for EventCleared.
type Event struct {
	Kind   EventKind
	Config Config
	At     time.Time
}

// Broker fans config-changed events out to subscribers.
type Broker struct {
	mu   sync.RWMutex
	next int
	subs map[int]func(Event)
}

func NewBroker() *Broker {
	return &Broker{subs: map[int]func(Event){}}
}

// Subscribe registers fn and returns a function that removes it.
func (b *Broker) Subscribe(fn func(Event)) (unsubscribe func()) {
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = fn
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

// Publish delivers ev synchronously to every current subscriber.
func (b *Broker) Publish(ev Event) {
	b.mu.RLock()
	fns := make([]func(Event), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.mu.RUnlock()

	for _, fn := range fns {
		fn(ev)
	}
}
