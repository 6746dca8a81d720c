package storage

import (
	"sync"

	"github.com/agentkube/mockcluster/internal/api"
)

// EventType defines the possible types of watch events.
type EventType string

const (
	Added    EventType = "ADDED"
	Modified EventType = "MODIFIED"
	Deleted  EventType = "DELETED"
)

// Event represents a single state transition of one resource.
type Event[T api.Object] struct {
	Type   EventType `json:"type"`
	Object T         `json:"object"`
}

// EventHandler receives events synchronously, in mutation order, inside the
// mutating call. Handlers run while the store lock is held and must not call
// back into the store.
type EventHandler[T api.Object] func(Event[T])

// Watcher adapts the callback-based Watch to a channel for streaming
// consumers. Events are buffered; when the buffer is full the event is
// dropped for this watcher only, so a slow consumer can never block store
// mutations.
type Watcher[T api.Object] struct {
	ch     chan Event[T]
	cancel func()
	once   sync.Once
}

// NewWatcher registers a channel-backed subscriber on the store.
func (s *Store[T]) NewWatcher(buffer int) *Watcher[T] {
	if buffer <= 0 {
		buffer = 64
	}
	w := &Watcher[T]{ch: make(chan Event[T], buffer)}
	w.cancel = s.Watch(func(e Event[T]) {
		select {
		case w.ch <- e:
		default:
		}
	})
	return w
}

// ResultChan returns the channel events are delivered on. It is closed by
// Stop.
func (w *Watcher[T]) ResultChan() <-chan Event[T] { return w.ch }

// Stop deregisters the watcher and closes the result channel. Safe to call
// more than once.
func (w *Watcher[T]) Stop() {
	w.once.Do(func() {
		w.cancel()
		close(w.ch)
	})
}
