package orchestrator

import (
	"time"

	"github.com/patrickmn/go-cache"
)

// attemptTTL bounds how long a counter outlives a run that never reached
// termination, e.g. after a crash in a caller's goroutine.
const attemptTTL = time.Hour

// AttemptCounter tracks regeneration attempts per workflow id. It is safe
// for concurrent use by independent runs.
type AttemptCounter struct {
	store *cache.Cache
}

// NewAttemptCounter creates an empty counter.
func NewAttemptCounter() *AttemptCounter {
	return &AttemptCounter{store: cache.New(attemptTTL, 10*time.Minute)}
}

// Increment adds one to the counter for id and returns the new value.
func (c *AttemptCounter) Increment(id string) int {
	for {
		if n, err := c.store.IncrementInt(id, 1); err == nil {
			return n
		}
		// Add is atomic: exactly one concurrent caller creates the entry,
		// the others retry the increment.
		if err := c.store.Add(id, 1, cache.DefaultExpiration); err == nil {
			return 1
		}
	}
}

// Get returns the current count for id.
func (c *AttemptCounter) Get(id string) int {
	if v, ok := c.store.Get(id); ok {
		if n, ok := v.(int); ok {
			return n
		}
	}
	return 0
}

// Delete drops the counter for id.
func (c *AttemptCounter) Delete(id string) {
	c.store.Delete(id)
}

// Len returns the number of live counters.
func (c *AttemptCounter) Len() int {
	return c.store.ItemCount()
}
