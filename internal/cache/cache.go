// Package cache provides the shared TTL cache sitting in front of the ledger
// read paths, together with the key scheme and the generation counters used to
// invalidate whole classes of listing keys.
//
// The backend supports exact-key get/set/delete only. Listing and search keys
// therefore embed a per-entity-kind generation number: bumping the generation
// makes every previously written listing key unreachable, which stands in for
// the wildcard deletion the backend cannot do. Orphaned entries age out with
// their TTL.
package cache

import (
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Kind identifies an entity class for generation-based invalidation.
type Kind string

const (
	KindBudgets        Kind = "budgets"
	KindExpenses       Kind = "expenses"
	KindReimbursements Kind = "reimbursements"
)

// Cache is the read-through cache used by all ledger services. It is a
// performance optimization, never a source of truth: a miss and a backend
// failure are indistinguishable to callers.
type Cache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
	Delete(key string)

	// Generation returns the current generation for an entity kind.
	// Listing keys embed it, see keys.go.
	Generation(kind Kind) uint64

	// Invalidate bumps the generation for an entity kind, making all
	// listing keys derived from the previous generation unreachable.
	Invalidate(kind Kind)
}

// Store is the default in-process implementation backed by go-cache.
type Store struct {
	backend     *gocache.Cache
	generations map[Kind]*atomic.Uint64
}

// NewStore creates a Store with the given entry TTL and janitor interval.
func NewStore(ttl time.Duration, cleanupInterval time.Duration) *Store {
	return &Store{
		backend: gocache.New(ttl, cleanupInterval),
		generations: map[Kind]*atomic.Uint64{
			KindBudgets:        {},
			KindExpenses:       {},
			KindReimbursements: {},
		},
	}
}

func (s *Store) Get(key string) (any, bool) {
	return s.backend.Get(key)
}

func (s *Store) Set(key string, value any) {
	s.backend.SetDefault(key, value)
}

func (s *Store) Delete(key string) {
	s.backend.Delete(key)
}

func (s *Store) Generation(kind Kind) uint64 {
	gen, ok := s.generations[kind]
	if !ok {
		return 0
	}
	return gen.Load()
}

func (s *Store) Invalidate(kind Kind) {
	if gen, ok := s.generations[kind]; ok {
		gen.Add(1)
	}
}

// Noop is a Cache that stores nothing. Every read is a miss, so all requests
// fall through to the authoritative store. Used in tests and as a degraded
// mode when caching is disabled.
type Noop struct{}

func (Noop) Get(string) (any, bool) { return nil, false }
func (Noop) Set(string, any)        {}
func (Noop) Delete(string)          {}
func (Noop) Generation(Kind) uint64 { return 0 }
func (Noop) Invalidate(Kind)        {}
