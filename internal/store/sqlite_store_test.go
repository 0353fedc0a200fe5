// file: internal/store/sqlite_store_test.go
// version: 1.0.0
// guid: 1c2d3e4f-5a6b-7c8d-9e0f-1a2b3c4d5e6f

package store

import (
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "log.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore() error: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAppendAndIsProcessed(t *testing.T) {
	s := newTestStore(t)

	id, err := s.Append(LogEntry{
		MessageID: "msg-1",
		Subject:   "Sturgeon Electric invoices",
		Sender:    "billing@shop.example.com",
		Company:   "sturgeon-electric",
		MatchKind: "exact",
		Filenames: []string{"sturgeon-electric__I-4512__U-T-104__V-NA__D-09292025__P-NA.pdf"},
		Status:    StatusFiled,
	})
	if err != nil {
		t.Fatalf("Append() error: %v", err)
	}
	if id == "" {
		t.Fatal("Append() returned an empty id")
	}

	done, err := s.IsProcessed("msg-1")
	if err != nil {
		t.Fatalf("IsProcessed() error: %v", err)
	}
	if !done {
		t.Error("filed message should report processed")
	}

	done, err = s.IsProcessed("msg-2")
	if err != nil {
		t.Fatalf("IsProcessed() error: %v", err)
	}
	if done {
		t.Error("unknown message should not report processed")
	}
}

func TestSkippedMessagesStayEligible(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.Append(LogEntry{
		MessageID: "msg-3",
		Status:    StatusSkipped,
		Detail:    "ambiguous company match",
	}); err != nil {
		t.Fatalf("Append() error: %v", err)
	}

	done, err := s.IsProcessed("msg-3")
	if err != nil {
		t.Fatalf("IsProcessed() error: %v", err)
	}
	if done {
		t.Error("skipped message must remain eligible for a rerun")
	}
}

func TestProcessedMessageIDs(t *testing.T) {
	s := newTestStore(t)

	for _, e := range []LogEntry{
		{MessageID: "a", Status: StatusFiled},
		{MessageID: "a", Status: StatusFiled}, // rerun of the same message
		{MessageID: "b", Status: StatusFailed},
		{MessageID: "c", Status: StatusFiled},
	} {
		if _, err := s.Append(e); err != nil {
			t.Fatalf("Append() error: %v", err)
		}
	}

	ids, err := s.ProcessedMessageIDs()
	if err != nil {
		t.Fatalf("ProcessedMessageIDs() error: %v", err)
	}
	if len(ids) != 2 || !ids["a"] || !ids["c"] {
		t.Errorf("got %v, want exactly {a, c}", ids)
	}
}

func TestRecentRoundTripsFilenames(t *testing.T) {
	s := newTestStore(t)

	names := []string{
		"acme__I-1__U-NA__V-NA__D-NA__P-NA.pdf",
		"acme__dot__I-1__U-NA__V-NA__D-NA__P-NA.pdf",
	}
	if _, err := s.Append(LogEntry{MessageID: "m", Status: StatusFiled, Filenames: names}); err != nil {
		t.Fatalf("Append() error: %v", err)
	}

	entries, err := s.Recent(10)
	if err != nil {
		t.Fatalf("Recent() error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	got := entries[0].Filenames
	if len(got) != 2 || got[0] != names[0] || got[1] != names[1] {
		t.Errorf("filenames did not round-trip: %v", got)
	}
}
