package store

import (
	"testing"

	"github.com/guildtools/stockpile/internal/database"
)

func setupSettingsTestDB(t *testing.T) *SettingsStore {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewSettingsStore(db)
}

func TestSettingsGetUnset(t *testing.T) {
	s := setupSettingsTestDB(t)

	value, err := s.Get("missing")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if value != "" {
		t.Errorf("value = %q, want empty", value)
	}
}

func TestSettingsSetAndOverwrite(t *testing.T) {
	s := setupSettingsTestDB(t)

	if err := s.Set("theme", "dark"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.Set("theme", "light"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	value, err := s.Get("theme")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if value != "light" {
		t.Errorf("value = %q, want light", value)
	}
}

func TestSettingsGetAll(t *testing.T) {
	s := setupSettingsTestDB(t)

	if err := s.Set("a", "1"); err != nil {
		t.Fatalf("set a: %v", err)
	}
	if err := s.Set("b", "2"); err != nil {
		t.Fatalf("set b: %v", err)
	}

	all, err := s.GetAll()
	if err != nil {
		t.Fatalf("get all: %v", err)
	}
	if len(all) != 2 || all["a"] != "1" || all["b"] != "2" {
		t.Errorf("all = %v", all)
	}
}
