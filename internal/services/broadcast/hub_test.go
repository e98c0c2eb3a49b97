package broadcast

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHub_FanOut(t *testing.T) {
	h := New()
	a := h.Subscribe()
	b := h.Subscribe()
	require.Equal(t, 2, h.Subscribers())

	h.Broadcast(Event{Name: "status", Data: []byte(`{"callsign":"AB12"}`)})

	for _, ch := range []chan Event{a, b} {
		ev := <-ch
		require.Equal(t, "status", ev.Name)
		require.JSONEq(t, `{"callsign":"AB12"}`, string(ev.Data))
	}
}

func TestHub_UnsubscribeClosesAndStops(t *testing.T) {
	h := New()
	ch := h.Subscribe()
	h.Unsubscribe(ch)
	require.Equal(t, 0, h.Subscribers())

	_, open := <-ch
	require.False(t, open)

	// Double unsubscribe is a no-op, not a double close.
	h.Unsubscribe(ch)
}

func TestHub_SlowSubscriberDropped(t *testing.T) {
	h := New()
	slow := h.Subscribe()
	fast := h.Subscribe()

	// Fill the slow subscriber's buffer without draining it.
	for i := 0; i <= subscriberBuffer; i++ {
		h.Broadcast(Event{Name: "status"})
		for len(fast) > 0 {
			<-fast
		}
	}

	require.Equal(t, 1, h.Subscribers())

	// The slow channel was closed after its buffered backlog.
	n := 0
	for range slow {
		n++
	}
	require.Equal(t, subscriberBuffer, n)

	// Remaining subscriber still receives.
	h.Broadcast(Event{Name: "status"})
	ev := <-fast
	require.Equal(t, "status", ev.Name)
}
