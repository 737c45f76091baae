// Package memory provides an in-memory journal.Journal for the CLI and
// lightweight deployments. Submissions are lost when the process restarts.
// Optional eviction of the oldest entry limits memory usage.
package memory

import (
	"container/list"
	"context"
	"sort"
	"sync"

	"github.com/rhuss/cuckoo/pkg/journal"
)

// entry holds a stored submission and its position in the eviction list.
type entry struct {
	sub     *journal.Submission
	lruElem *list.Element
}

// Store is an in-memory Journal with optional LRU eviction.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry
	lruList *list.List // front = newest, back = oldest
	maxSize int        // 0 = unlimited
}

// Ensure Store implements journal.Journal at compile time.
var _ journal.Journal = (*Store)(nil)

// New creates a new in-memory journal. If maxSize is 0, the journal grows
// without limit. If maxSize > 0, the oldest entry is evicted when the
// limit is reached.
func New(maxSize int) *Store {
	return &Store{
		entries: make(map[string]*entry),
		lruList: list.New(),
		maxSize: maxSize,
	}
}

// Record stores a copy of the submission.
func (s *Store) Record(_ context.Context, sub *journal.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[sub.ID]; exists {
		return journal.ErrConflict
	}

	if s.maxSize > 0 && len(s.entries) >= s.maxSize {
		s.evictOldest()
	}

	elem := s.lruList.PushFront(sub.ID)
	s.entries[sub.ID] = &entry{
		sub:     sub.Clone(),
		lruElem: elem,
	}
	return nil
}

// Get retrieves a submission by ID.
func (s *Store) Get(_ context.Context, id string) (*journal.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[id]
	if !ok {
		return nil, journal.ErrNotFound
	}
	return e.sub.Clone(), nil
}

// List returns the newest submissions first.
func (s *Store) List(_ context.Context, limit int) ([]*journal.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	subs := make([]*journal.Submission, 0, len(s.entries))
	for _, e := range s.entries {
		subs = append(subs, e.sub.Clone())
	}

	sort.Slice(subs, func(i, j int) bool {
		if !subs[i].SubmittedAt.Equal(subs[j].SubmittedAt) {
			return subs[i].SubmittedAt.After(subs[j].SubmittedAt)
		}
		return subs[i].ID > subs[j].ID
	})

	if limit > 0 && len(subs) > limit {
		subs = subs[:limit]
	}
	return subs, nil
}

// Delete removes a submission.
func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return journal.ErrNotFound
	}
	s.lruList.Remove(e.lruElem)
	delete(s.entries, id)
	return nil
}

// HealthCheck always returns nil for the in-memory journal.
func (s *Store) HealthCheck(_ context.Context) error {
	return nil
}

// Close is a no-op for the in-memory journal.
func (s *Store) Close() error {
	return nil
}

// evictOldest removes the least recently recorded entry.
// Must be called with s.mu held.
func (s *Store) evictOldest() {
	back := s.lruList.Back()
	if back == nil {
		return
	}

	id := back.Value.(string)
	s.lruList.Remove(back)
	delete(s.entries, id)
}
