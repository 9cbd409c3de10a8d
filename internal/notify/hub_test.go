package notify

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHubFanOut(t *testing.T) {
	t.Parallel()

	h := NewHub(zap.NewNop(), nil)
	a := h.Subscribe(4)
	b := h.Subscribe(4)

	h.Publish("task_update", "payload")

	for _, sub := range []*Subscriber{a, b} {
		select {
		case evt := <-sub.Events():
			require.Equal(t, Event{Name: "task_update", Payload: "payload"}, evt)
		case <-time.After(time.Second):
			t.Fatal("event not delivered")
		}
	}
}

func TestHubSlowSubscriberDrops(t *testing.T) {
	t.Parallel()

	h := NewHub(zap.NewNop(), nil)
	slow := h.Subscribe(2)
	fast := h.Subscribe(16)

	for i := 0; i < 10; i++ {
		h.Publish("task_progress_update", i)
	}

	// The slow queue keeps only the oldest events that fit.
	require.Len(t, slow.Events(), 2)
	require.Len(t, fast.Events(), 10)
	require.Equal(t, 0, (<-slow.Events()).Payload)
	require.Equal(t, 1, (<-slow.Events()).Payload)
}

func TestHubUnsubscribeClosesChannel(t *testing.T) {
	t.Parallel()

	h := NewHub(zap.NewNop(), nil)
	sub := h.Subscribe(0)
	require.Equal(t, 1, h.Count())

	h.Unsubscribe(sub)
	require.Equal(t, 0, h.Count())

	_, ok := <-sub.Events()
	require.False(t, ok)

	// A second unsubscribe must not panic on the closed channel.
	h.Unsubscribe(sub)
}

func TestHubPublishAfterUnsubscribe(t *testing.T) {
	t.Parallel()

	h := NewHub(zap.NewNop(), nil)
	sub := h.Subscribe(1)
	h.Unsubscribe(sub)

	// Must not panic or deliver to the removed subscriber.
	h.Publish("wip_update", nil)
}

func TestHubCountCallback(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var counts []int
	h := NewHub(zap.NewNop(), func(n int) {
		mu.Lock()
		counts = append(counts, n)
		mu.Unlock()
	})

	a := h.Subscribe(1)
	b := h.Subscribe(1)
	h.Unsubscribe(a)
	h.Unsubscribe(b)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []int{1, 2, 1, 0}, counts)
}

func TestHubConcurrentPublish(t *testing.T) {
	t.Parallel()

	h := NewHub(zap.NewNop(), nil)
	sub := h.Subscribe(1)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				h.Publish("task_update", j)
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for range sub.Events() {
		}
	}()

	wg.Wait()
	h.Unsubscribe(sub)
	<-done
}

func TestRateLimiter(t *testing.T) {
	t.Parallel()

	r := &rateLimiter{interval: time.Minute}
	base := time.Unix(0, 0)

	require.True(t, r.Allow(base.Add(time.Minute)))
	require.False(t, r.Allow(base.Add(90*time.Second)))
	require.True(t, r.Allow(base.Add(3*time.Minute)))
}
