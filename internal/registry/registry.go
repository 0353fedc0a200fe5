// file: internal/registry/registry.go
// version: 1.0.0
// guid: 6d7e8f9a-0b1c-2d3e-4f5a-6b7c8d9e0f1a

package registry

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gofleetadvisor/fleetdocs/internal/matcher"
	"github.com/gofleetadvisor/fleetdocs/internal/storage"
)

// DefaultTTL is how long a roster snapshot is served before the directory
// is consulted again.
const DefaultTTL = 5 * time.Minute

// Provider hands out immutable company-registry snapshots with a TTL cache
// in front of the external directory. Replaces the original's process-global
// mutable company map: every caller receives an explicit snapshot and
// staleness is bounded by the TTL instead of hidden.
type Provider struct {
	mu        sync.RWMutex
	directory storage.CompanyDirectory
	ttl       time.Duration
	snapshot  *matcher.Registry
	fetchedAt time.Time
}

// NewProvider creates a provider over the directory. Pass 0 for ttl to use
// DefaultTTL.
func NewProvider(directory storage.CompanyDirectory, ttl time.Duration) *Provider {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Provider{directory: directory, ttl: ttl}
}

// Snapshot returns the current registry snapshot, refreshing from the
// directory when the cached one has expired. A stale snapshot is served if
// the refresh fails and a previous snapshot exists.
func (p *Provider) Snapshot(ctx context.Context) (*matcher.Registry, error) {
	p.mu.RLock()
	snap, fetchedAt := p.snapshot, p.fetchedAt
	p.mu.RUnlock()

	if snap != nil && time.Since(fetchedAt) < p.ttl {
		return snap, nil
	}

	names, err := p.directory.ListCompanies(ctx)
	if err != nil {
		if snap != nil {
			log.Printf("[WARN] registry refresh failed, serving stale snapshot (%d keys): %v", snap.Len(), err)
			return snap, nil
		}
		return nil, fmt.Errorf("load company registry: %w", err)
	}

	fresh := matcher.NewRegistry(names)
	p.mu.Lock()
	p.snapshot = fresh
	p.fetchedAt = time.Now()
	p.mu.Unlock()

	log.Printf("[INFO] company registry refreshed: %d keys", fresh.Len())
	return fresh, nil
}

// Invalidate drops the cached snapshot so the next call refetches.
func (p *Provider) Invalidate() {
	p.mu.Lock()
	p.snapshot = nil
	p.fetchedAt = time.Time{}
	p.mu.Unlock()
}
