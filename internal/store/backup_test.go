package store

import (
	"fmt"
	"testing"

	"github.com/guildtools/stockpile/internal/database"
)

func setupBackupTestDB(t *testing.T) *BackupStore {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewBackupStore(db)
}

func TestBackupRecordAndList(t *testing.T) {
	s := setupBackupTestDB(t)

	b, err := s.Record("stockpile/20260301-120000-abc.db.enc", 4096)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if b.ID == 0 || b.SizeBytes != 4096 {
		t.Errorf("backup = %+v", b)
	}

	list, err := s.List(10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].ObjectKey != b.ObjectKey {
		t.Errorf("list = %v", list)
	}
}

func TestBackupPruneOlderThan(t *testing.T) {
	s := setupBackupTestDB(t)

	for i := 0; i < 5; i++ {
		if _, err := s.Record(fmt.Sprintf("stockpile/snap-%d.db.enc", i), 100); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}

	stale, err := s.PruneOlderThan(3)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if len(stale) != 2 {
		t.Fatalf("stale = %v, want 2 keys", stale)
	}

	list, err := s.List(10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 {
		t.Errorf("remaining = %d, want 3", len(list))
	}
	// Oldest rows go first.
	for _, key := range stale {
		if key != "stockpile/snap-0.db.enc" && key != "stockpile/snap-1.db.enc" {
			t.Errorf("unexpected stale key %s", key)
		}
	}
}
