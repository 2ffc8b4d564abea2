package api

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

// DefaultRunTTL is how long a run stays listable after it was created.
const DefaultRunTTL = 24 * time.Hour

// RunStore is a concurrency-safe in-memory store of runs. Entries expire
// after the store's TTL; the insertion order is kept separately so listing
// is deterministic.
type RunStore struct {
	mu    sync.Mutex
	runs  *cache.Cache
	order []string
}

// NewRunStore creates a store whose runs expire after ttl. A ttl <= 0 uses
// DefaultRunTTL.
func NewRunStore(ttl time.Duration) *RunStore {
	if ttl <= 0 {
		ttl = DefaultRunTTL
	}
	return &RunStore{runs: cache.New(ttl, ttl/4)}
}

// Create stores a new run.
func (s *RunStore) Create(run Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := run.clone()
	if err := s.runs.Add(run.ID, &r, cache.DefaultExpiration); err != nil {
		return fmt.Errorf("%w: %s", ErrRunExists, run.ID)
	}
	s.order = append(s.order, run.ID)
	return nil
}

// Get returns a copy of the run with the given id.
func (s *RunStore) Get(id string) (Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.lookup(id)
	if !ok {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return r.clone(), nil
}

// Update applies fn to the stored run under the store lock and stamps
// UpdatedAt.
func (s *RunStore) Update(id string, fn func(*Run)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.lookup(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	fn(r)
	r.UpdatedAt = time.Now()
	return nil
}

// List returns runs matching p, newest first.
func (s *RunStore) List(p ListRunsParams) (ListRunsResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prune()

	var matched []Run
	for _, id := range slices.Backward(s.order) {
		r, ok := s.lookup(id)
		if !ok || (p.State != "" && string(r.State) != p.State) {
			continue
		}
		matched = append(matched, r.clone())
	}
	total := len(matched)

	if p.PageToken != "" {
		i := slices.IndexFunc(matched, func(r Run) bool { return r.ID == p.PageToken })
		if i < 0 {
			return ListRunsResult{}, fmt.Errorf("invalid page token %q", p.PageToken)
		}
		matched = matched[i+1:]
	}
	var next string
	if p.PageSize > 0 && len(matched) > p.PageSize {
		matched = matched[:p.PageSize]
		next = matched[len(matched)-1].ID
	}
	if matched == nil {
		matched = []Run{}
	}
	return ListRunsResult{Runs: matched, TotalSize: total, NextPageToken: next}, nil
}

// Len returns the number of live runs.
func (s *RunStore) Len() int {
	return s.runs.ItemCount()
}

func (s *RunStore) lookup(id string) (*Run, bool) {
	v, ok := s.runs.Get(id)
	if !ok {
		return nil, false
	}
	return v.(*Run), true
}

// prune drops expired ids from the order index. Callers hold s.mu.
func (s *RunStore) prune() {
	s.order = slices.DeleteFunc(s.order, func(id string) bool {
		_, ok := s.runs.Get(id)
		return !ok
	})
}
