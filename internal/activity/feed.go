// Package activity fans domain events out to SSE subscribers. Events are
// transient: there is no persistence and slow subscribers are dropped rather
// than allowed to block publishers.
package activity

import (
	"context"
	"sync"
	"time"
)

// Event kinds published by the domain services.
const (
	KindTaskCreated     = "task.created"
	KindTaskCompleted   = "task.completed"
	KindEventScheduled  = "event.scheduled"
	KindVolunteerJoined = "volunteer.joined"
	KindDocumentAdded   = "document.added"
)

// Event is one organization-scoped activity item.
type Event struct {
	Kind           string    `json:"kind"`
	OrganizationID string    `json:"organization_id"`
	Actor          string    `json:"actor,omitempty"`
	Subject        string    `json:"subject,omitempty"`
	Title          string    `json:"title,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

type subscriber struct {
	ch    chan Event
	orgID string
}

// Feed fan-outs events to all active subscribers of the same organization.
type Feed struct {
	mu   sync.RWMutex
	subs map[int]subscriber
	next int
}

// New initialises an empty feed.
func New() *Feed {
	return &Feed{subs: make(map[int]subscriber)}
}

// Subscribe registers a subscriber scoped to one organization and returns the
// channel events arrive on. The channel is closed when ctx ends.
func (f *Feed) Subscribe(ctx context.Context, orgID string) <-chan Event {
	ch := make(chan Event, 16)

	f.mu.Lock()
	id := f.next
	f.next++
	f.subs[id] = subscriber{ch: ch, orgID: orgID}
	f.mu.Unlock()

	go func() {
		<-ctx.Done()
		f.mu.Lock()
		delete(f.subs, id)
		close(ch)
		f.mu.Unlock()
	}()

	return ch
}

// Publish delivers the event to every subscriber of its organization.
func (f *Feed) Publish(evt Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, sub := range f.subs {
		if sub.orgID != evt.OrganizationID {
			continue
		}
		select {
		case sub.ch <- evt:
		default:
			// Drop when subscriber is slow to avoid blocking.
		}
	}
}
