package journal

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// createTempDB creates a temporary SQLite journal for testing.
func createTempDB(t *testing.T, maxEntries int) (*SQLiteStore, string) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "state", "journal.db")
	store, err := NewSQLiteStore(SQLiteConfig{Path: dbPath, MaxEntries: maxEntries})
	if err != nil {
		t.Fatalf("Failed to create SQLite journal: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store, dbPath
}

func entryAt(kind Kind, outcome string, started time.Time) Entry {
	return Entry{
		Kind:     kind,
		Outcome:  outcome,
		Started:  started,
		Finished: started.Add(250 * time.Millisecond),
	}
}

func TestSQLiteStore_Initialize(t *testing.T) {
	_, dbPath := createTempDB(t, 0)

	if _, err := os.Stat(dbPath); err != nil {
		t.Errorf("Database file was not created: %v", err)
	}

	// Reopening an existing database keeps the schema version.
	again, err := NewSQLiteStore(SQLiteConfig{Path: dbPath})
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	again.Close()
}

func TestSQLiteStore_RequiresPath(t *testing.T) {
	if _, err := NewSQLiteStore(SQLiteConfig{}); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestSQLiteStore_RecordAndList(t *testing.T) {
	store, _ := createTempDB(t, 0)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	commit := entryAt(KindCommit, "committed", base)
	commit.Revision = "0123456789abcdef0123456789abcdef01234567"
	commit.Detail = "Committed all changes"

	stored, err := store.Record(ctx, commit)
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if stored.ID == "" {
		t.Error("expected an ID to be assigned")
	}

	failed := entryAt(KindPush, "error", base.Add(time.Second))
	failed.ID = "attempt-2"
	failed.Error = "push failed: rejected"
	if _, err := store.Record(ctx, failed); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	entries, err := store.List(ctx, Query{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	// Newest first
	if entries[0].ID != "attempt-2" || entries[0].Error != "push failed: rejected" {
		t.Errorf("unexpected first entry: %+v", entries[0])
	}
	got := entries[1]
	if got.ID != stored.ID || got.Kind != KindCommit || got.Revision != commit.Revision || got.Detail != commit.Detail {
		t.Errorf("unexpected second entry: %+v", got)
	}
	if !got.Started.Equal(commit.Started) || !got.Finished.Equal(commit.Finished) {
		t.Errorf("times not preserved: %v %v", got.Started, got.Finished)
	}
	if got.Error != "" {
		t.Errorf("expected empty error, got %q", got.Error)
	}
}

func TestSQLiteStore_ListFilters(t *testing.T) {
	store, _ := createTempDB(t, 0)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, kind := range []Kind{KindCommit, KindSync, KindCommit, KindPush, KindCommit} {
		if _, err := store.Record(ctx, entryAt(kind, "ok", base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	commits, err := store.List(ctx, Query{Kind: KindCommit})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(commits) != 3 {
		t.Errorf("expected 3 commits, got %d", len(commits))
	}

	recent, err := store.List(ctx, Query{Since: base.Add(3 * time.Minute)})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(recent) != 2 {
		t.Errorf("expected 2 recent entries, got %d", len(recent))
	}

	limited, err := store.List(ctx, Query{Limit: 1})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(limited) != 1 || !limited[0].Started.Equal(base.Add(4*time.Minute)) {
		t.Errorf("expected newest entry only, got %+v", limited)
	}
}

func TestSQLiteStore_MaxEntries(t *testing.T) {
	store, _ := createTempDB(t, 3)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		if _, err := store.Record(ctx, entryAt(KindSync, "no_op", base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 3 {
		t.Errorf("expected 3 entries after pruning, got %d", count)
	}

	entries, _ := store.List(ctx, Query{})
	if !entries[len(entries)-1].Started.Equal(base.Add(2 * time.Minute)) {
		t.Errorf("oldest kept entry = %v", entries[len(entries)-1].Started)
	}
}

func TestSQLiteStore_InvalidEntry(t *testing.T) {
	store, _ := createTempDB(t, 0)

	_, err := store.Record(context.Background(), Entry{Kind: KindCommit})
	if !errors.Is(err, ErrInvalidEntry) {
		t.Errorf("expected ErrInvalidEntry, got %v", err)
	}
}

func TestSQLiteStore_ClosedDatabase(t *testing.T) {
	store, _ := createTempDB(t, 0)
	store.Close()

	_, err := store.List(context.Background(), Query{})
	var storageErr *StorageError
	if !errors.As(err, &storageErr) {
		t.Fatalf("expected StorageError, got %v", err)
	}
	if storageErr.Backend != "sqlite" || storageErr.Operation != "list" {
		t.Errorf("unexpected error fields: %+v", storageErr)
	}
}
