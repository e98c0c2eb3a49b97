package broadcast

import (
	"log/slog"
	"sync"
)

// Event is one frame pushed to stream subscribers. Data is pre-marshaled
// JSON so a burst fans out without re-encoding per subscriber.
type Event struct {
	Name string
	Data []byte
}

const subscriberBuffer = 64

// Hub fans change events out to a churning set of subscribers. It holds its
// own mutex, independent of the state store: a broadcast never runs under a
// lock held for state mutation.
type Hub struct {
	mu   sync.Mutex
	subs map[chan Event]struct{}
}

func New() *Hub {
	return &Hub{subs: make(map[chan Event]struct{})}
}

// Subscribe registers a new observer. The returned channel is closed by the
// hub on eviction or Unsubscribe; receivers must treat a closed channel as
// end of stream.
func (h *Hub) Subscribe() chan Event {
	ch := make(chan Event, subscriberBuffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *Hub) Unsubscribe(ch chan Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[ch]; ok {
		delete(h.subs, ch)
		close(ch)
	}
}

// Broadcast delivers ev to every subscriber without ever blocking: a
// subscriber whose buffer is full is dropped so one stuck connection cannot
// stall the rest or the caller.
func (h *Hub) Broadcast(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
			delete(h.subs, ch)
			close(ch)
			slog.Warn("slow stream subscriber dropped", "subscribers", len(h.subs))
		}
	}
}

func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
