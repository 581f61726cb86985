package feed

import (
	"sync"
	"time"

	"ideafeed/internal/models"
)

// Collection owns the in-memory idea snapshot that trending and search are
// computed over. Each realtime delivery is authoritative: Replace swaps the
// whole slice, it never merges, so a late snapshot simply wins over any
// optimistic local state.
type Collection struct {
	mu    sync.RWMutex
	ideas []models.Idea
}

func NewCollection() *Collection {
	return &Collection{ideas: []models.Idea{}}
}

// Replace installs snapshot as the new idea set, discarding the old one.
func (c *Collection) Replace(snapshot []models.Idea) {
	ideas := make([]models.Idea, len(snapshot))
	copy(ideas, snapshot)
	c.mu.Lock()
	c.ideas = ideas
	c.mu.Unlock()
}

// Snapshot returns a copy of the current idea set.
func (c *Collection) Snapshot() []models.Idea {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.Idea, len(c.ideas))
	copy(out, c.ideas)
	return out
}

func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.ideas)
}

// Trending returns the top trending ideas from the current snapshot.
func (c *Collection) Trending(now time.Time) []models.Idea {
	return Trending(c.Snapshot(), now)
}

// Search filters the current snapshot by query.
func (c *Collection) Search(query string) []models.Idea {
	return Search(c.Snapshot(), query)
}
