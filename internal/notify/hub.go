// Package notify fans state-change events out to live observers. Each
// subscriber owns an independent buffered queue; publishing never blocks and
// a subscriber that cannot keep up loses intermediate updates rather than
// slowing the board. Observers converge again via the full-state snapshot
// sent on (re)connect, so nothing is ever replayed.
package notify

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Event is one named state delta pushed to observers.
type Event struct {
	Name    string `json:"event"`
	Payload any    `json:"payload"`
}

const (
	defaultSubscriberBuffer = 64
	dropLogInterval         = 5 * time.Second
)

// Hub is the in-process publish/subscribe channel behind the WebSocket
// endpoint. It is safe for concurrent use.
type Hub struct {
	mu     sync.RWMutex
	subs   map[*Subscriber]struct{}
	logger *zap.Logger

	dropLimiter rateLimiter
	dropped     atomic.Int64
	onCount     func(int)
}

// Subscriber receives events on a private buffered channel.
type Subscriber struct {
	ch chan Event
}

// Events returns the subscriber's receive channel. It is closed when the
// subscriber is removed from the hub.
func (s *Subscriber) Events() <-chan Event {
	return s.ch
}

// NewHub builds a Hub. onCount, when non-nil, is invoked with the subscriber
// total after every subscribe and unsubscribe (used for the metrics gauge).
func NewHub(logger *zap.Logger, onCount func(int)) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		subs:        make(map[*Subscriber]struct{}),
		logger:      logger,
		dropLimiter: rateLimiter{interval: dropLogInterval},
		onCount:     onCount,
	}
}

// Subscribe registers a new observer with the given queue depth.
func (h *Hub) Subscribe(buffer int) *Subscriber {
	if buffer <= 0 {
		buffer = defaultSubscriberBuffer
	}
	sub := &Subscriber{ch: make(chan Event, buffer)}
	h.mu.Lock()
	h.subs[sub] = struct{}{}
	count := len(h.subs)
	h.mu.Unlock()
	if h.onCount != nil {
		h.onCount(count)
	}
	return sub
}

// Unsubscribe removes an observer and closes its channel. It is safe to call
// once per subscriber.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	_, ok := h.subs[sub]
	if ok {
		delete(h.subs, sub)
	}
	count := len(h.subs)
	h.mu.Unlock()
	if !ok {
		return
	}
	close(sub.ch)
	if h.onCount != nil {
		h.onCount(count)
	}
}

// Count returns the current number of subscribers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Publish delivers the event to every subscriber whose queue has room. Full
// queues drop the event; drops are counted and logged at a limited rate.
func (h *Hub) Publish(event string, payload any) {
	evt := Event{Name: event, Payload: payload}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs {
		select {
		case sub.ch <- evt:
		default:
			h.dropped.Add(1)
			if h.dropLimiter.Allow(time.Now()) {
				count := h.dropped.Swap(0)
				h.logger.Warn("events dropped for slow subscribers",
					zap.Int64("dropped", count),
					zap.String("event", event))
			}
		}
	}
}

type rateLimiter struct {
	interval time.Duration
	last     atomic.Int64
}

func (r *rateLimiter) Allow(now time.Time) bool {
	if r == nil || r.interval <= 0 {
		return true
	}
	nano := now.UnixNano()
	last := r.last.Load()
	if nano-last < r.interval.Nanoseconds() {
		return false
	}
	return r.last.CompareAndSwap(last, nano)
}
