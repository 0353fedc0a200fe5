// file: internal/registry/registry_test.go
// version: 1.0.0
// guid: 7e8f9a0b-1c2d-3e4f-5a6b-7c8d9e0f1a2b

package registry

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeDirectory struct {
	names []string
	err   error
	calls int
}

func (d *fakeDirectory) ListCompanies(ctx context.Context) ([]string, error) {
	d.calls++
	if d.err != nil {
		return nil, d.err
	}
	return d.names, nil
}

func TestProvider_CachesWithinTTL(t *testing.T) {
	dir := &fakeDirectory{names: []string{"sturgeon-electric", "rocky-mountain-transport"}}
	p := NewProvider(dir, time.Hour)

	first, err := p.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot() error: %v", err)
	}
	second, err := p.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot() error: %v", err)
	}

	if dir.calls != 1 {
		t.Errorf("directory called %d times, want 1", dir.calls)
	}
	if first != second {
		t.Error("expected the same snapshot within the TTL")
	}
	if first.Len() != 2 || !first.Contains("sturgeon-electric") {
		t.Errorf("unexpected snapshot contents: %v", first.Keys())
	}
}

func TestProvider_InvalidateForcesRefetch(t *testing.T) {
	dir := &fakeDirectory{names: []string{"acme-freight"}}
	p := NewProvider(dir, time.Hour)

	if _, err := p.Snapshot(context.Background()); err != nil {
		t.Fatalf("Snapshot() error: %v", err)
	}
	p.Invalidate()
	dir.names = []string{"acme-freight", "new-company"}
	snap, err := p.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot() error: %v", err)
	}

	if dir.calls != 2 {
		t.Errorf("directory called %d times, want 2", dir.calls)
	}
	if !snap.Contains("new-company") {
		t.Error("refetched snapshot missing new key")
	}
}

func TestProvider_ServesStaleOnRefreshFailure(t *testing.T) {
	dir := &fakeDirectory{names: []string{"acme-freight"}}
	p := NewProvider(dir, time.Nanosecond)

	first, err := p.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot() error: %v", err)
	}

	time.Sleep(time.Millisecond)
	dir.err = errors.New("directory down")
	stale, err := p.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("stale snapshot should be served, got error: %v", err)
	}
	if stale != first {
		t.Error("expected the previous snapshot to be served on failure")
	}
}

func TestProvider_ErrorWithNoSnapshot(t *testing.T) {
	dir := &fakeDirectory{err: errors.New("directory down")}
	p := NewProvider(dir, time.Hour)

	if _, err := p.Snapshot(context.Background()); err == nil {
		t.Fatal("expected an error when no snapshot exists yet")
	}
}
