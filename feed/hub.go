// Package feed delivers change notifications to live subscribers.
//
// A notification only says "this owner's collection changed"; subscribers
// re-read the collection to build their next snapshot, so notifications
// coalesce and a slow subscriber never blocks a writer.
package feed

import (
	"context"
	"sync"
)

type Collection string

const (
	Habits      Collection = "habits"
	Completions Collection = "completions"
	Reflections Collection = "reflections"
)

type Topic struct {
	Collection Collection `json:"collection"`
	OwnerID    string     `json:"owner_id"`
}

// Notifier is implemented by Hub and RedisBridge.
type Notifier interface {
	Notify(ctx context.Context, topic Topic)
}

type Hub struct {
	mu   sync.Mutex
	subs map[Topic]map[*Subscription]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[Topic]map[*Subscription]struct{})}
}

type Subscription struct {
	// C receives a value after each change to the topic.
	C <-chan struct{}

	c     chan struct{}
	done  chan struct{}
	hub   *Hub
	topic Topic
	once  sync.Once
}

// Subscribe registers for changes to topic until ctx ends or Close is called.
func (h *Hub) Subscribe(ctx context.Context, topic Topic) *Subscription {
	c := make(chan struct{}, 1)
	sub := &Subscription{C: c, c: c, done: make(chan struct{}), hub: h, topic: topic}

	h.mu.Lock()
	if h.subs[topic] == nil {
		h.subs[topic] = make(map[*Subscription]struct{})
	}
	h.subs[topic][sub] = struct{}{}
	h.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			sub.Close()
		case <-sub.done:
		}
	}()

	return sub
}

func (h *Hub) Notify(_ context.Context, topic Topic) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.subs[topic] {
		select {
		case sub.c <- struct{}{}:
		default:
		}
	}
}

// Subscribers reports how many live subscriptions a topic has.
func (h *Hub) Subscribers(topic Topic) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[topic])
}

// Close unregisters the subscription and closes C. Safe to call twice.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.mu.Lock()
		delete(s.hub.subs[s.topic], s)
		if len(s.hub.subs[s.topic]) == 0 {
			delete(s.hub.subs, s.topic)
		}
		close(s.c)
		s.hub.mu.Unlock()
		close(s.done)
	})
}
