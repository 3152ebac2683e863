// Package cache holds the most recent successful survey listing together
// with its staleness policy. The entry is owned by the survey service that
// constructed the manager, never ambient global state.
package cache

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/perkloop/surveydata/model"
)

const listingKey = "survey_listing"

// Listing is the cached survey sequence plus the instant it was fetched.
// Entries are replaced wholesale, never merged.
type Listing struct {
	Surveys   []model.Survey
	FetchedAt time.Time
}

// Manager wraps a TTL cache with a generation counter. A background refresh
// snapshots the generation before fetching; Invalidate bumps it and cancels
// the refresh context, so a refresh that raced a mutation can never write
// its pre-mutation data back (no read after a successful mutation may see
// pre-mutation cached data).
type Manager struct {
	mu            sync.Mutex
	entries       *gocache.Cache
	refreshAfter  time.Duration
	gen           uint64
	refreshCtx    context.Context
	refreshCancel context.CancelFunc
}

// New builds a manager whose entries stay servable for freshFor and signal a
// background refresh once older than refreshAfter.
func New(freshFor, refreshAfter time.Duration) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		entries:       gocache.New(freshFor, 2*freshFor),
		refreshAfter:  refreshAfter,
		refreshCtx:    ctx,
		refreshCancel: cancel,
	}
}

// Get returns the cached listing while it is inside the freshness window.
func (m *Manager) Get() (Listing, bool) {
	v, found := m.entries.Get(listingKey)
	if !found {
		return Listing{}, false
	}
	return v.(Listing), true
}

// NeedsRefresh reports whether a still-servable listing has aged past the
// soft threshold and should be re-derived in the background.
func (m *Manager) NeedsRefresh(l Listing) bool {
	return time.Since(l.FetchedAt) >= m.refreshAfter
}

// Put replaces the entry after a synchronous fetch.
func (m *Manager) Put(surveys []model.Survey) {
	m.entries.Set(listingKey, Listing{Surveys: surveys, FetchedAt: time.Now()}, gocache.DefaultExpiration)
}

// RefreshToken snapshots the state a background refresh needs: a context
// cancelled by the next invalidation and the current generation.
func (m *Manager) RefreshToken() (context.Context, uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refreshCtx, m.gen
}

// PutIfCurrent installs a background refresh result unless an invalidation
// happened since the refresh started. Reports whether the entry was kept.
func (m *Manager) PutIfCurrent(gen uint64, surveys []model.Survey) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.gen {
		return false
	}
	m.entries.Set(listingKey, Listing{Surveys: surveys, FetchedAt: time.Now()}, gocache.DefaultExpiration)
	return true
}

// Invalidate clears the entry after a successful mutation. Invalidation
// always wins over a concurrent refresh: the generation bump discards any
// in-flight result and the context cancellation stops it early.
func (m *Manager) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.gen++
	m.refreshCancel()
	m.refreshCtx, m.refreshCancel = context.WithCancel(context.Background())
	m.entries.Delete(listingKey)
}
