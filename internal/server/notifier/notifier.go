// Package notifier fans dataset change signals out to subscribers.
package notifier

import (
	"sync"

	"github.com/leapstack-labs/recordkeeper/pkg/core"
)

// Change reports one changed dataset. ShapeChanged is false when the row and
// column counts match what listeners were last told.
type Change struct {
	Dataset      core.DatasetID
	ShapeChanged bool
}

// Notifier broadcasts changed datasets to all subscribed listeners.
// Listeners receive the dataset that changed and should re-read it.
type Notifier struct {
	mu        sync.RWMutex
	listeners map[chan Change]struct{}
}

// New creates a new Notifier instance.
func New() *Notifier {
	return &Notifier{
		listeners: make(map[chan Change]struct{}),
	}
}

// Subscribe returns a channel that receives changed datasets.
// The caller must call Unsubscribe when done to prevent goroutine leaks.
func (n *Notifier) Subscribe() chan Change {
	ch := make(chan Change, len(core.AllDatasets()))
	n.mu.Lock()
	n.listeners[ch] = struct{}{}
	n.mu.Unlock()
	return ch
}

// Unsubscribe removes a listener channel and closes it.
func (n *Notifier) Unsubscribe(ch chan Change) {
	n.mu.Lock()
	delete(n.listeners, ch)
	n.mu.Unlock()
	close(ch)
}

// Broadcast sends c to all listeners.
// Non-blocking: if a listener's channel is full, the signal is dropped for it.
func (n *Notifier) Broadcast(c Change) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	for ch := range n.listeners {
		select {
		case ch <- c:
		default:
			// Channel full, skip (listener will catch up on next broadcast)
		}
	}
}

// Count returns the number of subscribed listeners.
func (n *Notifier) Count() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.listeners)
}
