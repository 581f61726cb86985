package realtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ideafeed/internal/models"
)

func snapshot(ids ...string) []models.Idea {
	ideas := make([]models.Idea, len(ids))
	for i, id := range ids {
		ideas[i] = models.Idea{ID: id, Headline: id, CreatedAt: time.Now()}
	}
	return ideas
}

func TestHub_BroadcastDeliversFullSnapshot(t *testing.T) {
	h := NewHub(zap.NewNop())
	defer h.Close()

	sub := h.Subscribe()
	require.NotNil(t, sub)

	h.Broadcast(snapshot("a", "b", "c"))
	select {
	case got := <-sub.Updates():
		require.Len(t, got, 3)
		assert.Equal(t, "a", got[0].ID)
	case <-time.After(time.Second):
		t.Fatal("no delivery")
	}
}

func TestHub_NewestSnapshotWins(t *testing.T) {
	h := NewHub(zap.NewNop())
	defer h.Close()

	sub := h.Subscribe()
	require.NotNil(t, sub)

	// Subscriber is not draining; the second broadcast replaces the first.
	h.Broadcast(snapshot("a", "b", "c", "d", "e"))
	h.Broadcast(snapshot("x", "y", "z"))

	got := <-sub.Updates()
	require.Len(t, got, 3)
	assert.Equal(t, "x", got[0].ID)

	select {
	case extra, open := <-sub.Updates():
		if open {
			t.Fatalf("unexpected extra delivery: %v", extra)
		}
	default:
	}
}

func TestSubscription_CloseStopsDeliveries(t *testing.T) {
	h := NewHub(zap.NewNop())
	defer h.Close()

	sub := h.Subscribe()
	require.NotNil(t, sub)
	require.Equal(t, 1, h.SubscriberCount())

	sub.Close()
	assert.Equal(t, 0, h.SubscriberCount())

	// Channel is closed; broadcasting afterwards must not deliver to it.
	h.Broadcast(snapshot("a"))
	_, open := <-sub.Updates()
	assert.False(t, open)
}

func TestSubscription_CloseIsIdempotent(t *testing.T) {
	h := NewHub(zap.NewNop())
	defer h.Close()

	sub := h.Subscribe()
	sub.Close()
	sub.Close()
	assert.Equal(t, 0, h.SubscriberCount())
}

func TestHub_CloseClosesAllSubscriptions(t *testing.T) {
	h := NewHub(zap.NewNop())
	a := h.Subscribe()
	b := h.Subscribe()

	h.Close()
	_, openA := <-a.Updates()
	_, openB := <-b.Updates()
	assert.False(t, openA)
	assert.False(t, openB)

	assert.Nil(t, h.Subscribe())
	h.Broadcast(snapshot("a")) // no panic after close
}
