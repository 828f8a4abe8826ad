package service

import (
	"sync"

	"github.com/joeblew999/plat-wfs/internal/feature"
)

// Event is a typed notification published on the EventBus.
type Event interface {
	Kind() string
}

// SessionOpened is published after a dataset was loaded for editing.
type SessionOpened struct {
	Dataset  string `json:"dataset"`
	Features int    `json:"features"`
}

// SessionClosed is published when the active session is discarded.
type SessionClosed struct {
	Dataset string `json:"dataset"`
}

// FeatureChanged is published for every local edit.
type FeatureChanged struct {
	Dataset string      `json:"dataset"`
	ID      string      `json:"id"`
	Action  string      `json:"action"` // "added", "attributes", "geometry", "deleted", "part-removed", "rolled-back"
	Tag     feature.Tag `json:"tag"`
}

// SaveStarted is published when a transaction is sent.
type SaveStarted struct {
	Dataset string `json:"dataset"`
	Inserts int    `json:"inserts"`
	Updates int    `json:"updates"`
	Deletes int    `json:"deletes"`
}

// SaveSucceeded is published after the service committed a transaction.
type SaveSucceeded struct {
	Dataset  string `json:"dataset"`
	Inserted int    `json:"inserted"`
	Updated  int    `json:"updated"`
	Deleted  int    `json:"deleted"`
}

// SaveFailed is published when a transaction was rejected or never answered.
type SaveFailed struct {
	Dataset string `json:"dataset"`
	Message string `json:"message"`
}

// LayerRefreshed asks rendered previews of a dataset to reload.
type LayerRefreshed struct {
	Dataset string `json:"dataset"`
	Layer   string `json:"layer,omitempty"`
}

// DatasetChanged is published when the dataset catalogue changes.
type DatasetChanged struct {
	ID     string `json:"id"`
	Action string `json:"action"` // "created", "updated", "deleted"
}

func (SessionOpened) Kind() string  { return "session-opened" }
func (SessionClosed) Kind() string  { return "session-closed" }
func (FeatureChanged) Kind() string { return "feature-changed" }
func (SaveStarted) Kind() string    { return "save-started" }
func (SaveSucceeded) Kind() string  { return "save-succeeded" }
func (SaveFailed) Kind() string     { return "save-failed" }
func (LayerRefreshed) Kind() string { return "layer-refreshed" }
func (DatasetChanged) Kind() string { return "dataset-changed" }

// EventBus is a simple fan-out pub/sub for typed events.
type EventBus struct {
	mu   sync.RWMutex
	subs map[chan Event]struct{}
}

// NewEventBus creates a new event bus.
func NewEventBus() *EventBus {
	return &EventBus{subs: make(map[chan Event]struct{})}
}

// Publish sends an event to all subscribers (non-blocking).
func (b *EventBus) Publish(e Event) {
	if b == nil {
		return
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- e:
		default:
			// subscriber too slow, skip
		}
	}
}

// Subscribe returns a buffered channel that receives events.
func (b *EventBus) Subscribe() chan Event {
	ch := make(chan Event, 16)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *EventBus) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	delete(b.subs, ch)
	b.mu.Unlock()
	close(ch)
}
