package events

import (
	"context"
	"sync"
)

// LocalBus delivers events in-process. Handlers run synchronously on the
// publishing goroutine.
type LocalBus struct {
	mu     sync.RWMutex
	subs   map[int]Handler
	next   int
	closed bool
}

var _ Bus = (*LocalBus)(nil)

// NewLocalBus returns an empty LocalBus.
func NewLocalBus() *LocalBus {
	return &LocalBus{subs: make(map[int]Handler)}
}

// Publish implements Publisher.
func (b *LocalBus) Publish(_ context.Context, ev BoardEvent) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrClosed
	}
	handlers := make([]Handler, 0, len(b.subs))
	for _, h := range b.subs {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	ev = stamp(ev)
	for _, h := range handlers {
		h(ev)
	}
	return nil
}

// Subscribe implements Bus.
func (b *LocalBus) Subscribe(h Handler) (func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrClosed
	}
	id := b.next
	b.next++
	b.subs[id] = h

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}, nil
}

// Close implements Bus.
func (b *LocalBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.subs = map[int]Handler{}
	return nil
}
