// Package events allows for the registering and receiving of events.
package events

import (
	"fmt"
	"sync"
)

// messageBuffer is the number of messages a subscriber can fall behind
// before messages are dropped for it. Websocket writes can be slow.
const messageBuffer = 100

// Events maintains a mapping of unique id and channels so goroutines
// can register and receive events.
type Events struct {
	mu sync.RWMutex
	m  map[string]chan string
}

// New constructs an events for registering and receiving events.
func New() *Events {
	return &Events{
		m: make(map[string]chan string),
	}
}

// Shutdown closes and removes all channels that were provided by
// the call to Acquire.
func (evt *Events) Shutdown() {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	for id, ch := range evt.m {
		delete(evt.m, id)
		close(ch)
	}
}

// Acquire takes a unique id and returns a channel that can be used
// to receive events. Acquiring an id twice returns the same channel.
func (evt *Events) Acquire(id string) <-chan string {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	if ch, exists := evt.m[id]; exists {
		return ch
	}

	ch := make(chan string, messageBuffer)
	evt.m[id] = ch

	return ch
}

// Release closes and removes the channel that was provided by
// the call to Acquire.
func (evt *Events) Release(id string) error {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	ch, exists := evt.m[id]
	if !exists {
		return fmt.Errorf("id %q does not exist", id)
	}

	delete(evt.m, id)
	close(ch)

	return nil
}

// Send signals a message to every registered channel and returns how many
// received it. Send will not block waiting for a receiver on any given
// channel.
func (evt *Events) Send(s string) int {
	evt.mu.RLock()
	defer evt.mu.RUnlock()

	var sent int
	for _, ch := range evt.m {
		select {
		case ch <- s:
			sent++
		default:
		}
	}

	return sent
}

// Count returns the number of registered channels.
func (evt *Events) Count() int {
	evt.mu.RLock()
	defer evt.mu.RUnlock()

	return len(evt.m)
}
