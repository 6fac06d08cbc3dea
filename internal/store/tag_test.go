package store

import (
	"errors"
	"testing"

	"github.com/guildtools/stockpile/internal/database"
	"github.com/guildtools/stockpile/internal/model"
)

func setupTagTestDB(t *testing.T) *TagStore {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewTagStore(db)
}

func TestTagCreateAndConflict(t *testing.T) {
	s := setupTagTestDB(t)

	tag, err := s.Create(model.DomainInventory, "재료", "1차 목표", model.ColorBlue)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if tag.Color != model.ColorBlue || len(tag.Items) != 0 {
		t.Errorf("tag = %+v", tag)
	}

	if _, err := s.Create(model.DomainInventory, "재료", "1차 목표", model.ColorRed); !errors.Is(err, ErrConflict) {
		t.Errorf("err = %v, want ErrConflict", err)
	}

	// Same name in another scope is fine.
	if _, err := s.Create(model.DomainCrafting, "재료", "1차 목표", model.ColorRed); err != nil {
		t.Errorf("other scope create: %v", err)
	}
}

func TestTagMembership(t *testing.T) {
	s := setupTagTestDB(t)

	tag, err := s.Create(model.DomainInventory, "재료", "주간 목표", model.ColorGreen)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	added, err := s.AddItem(tag.ID, "철광석")
	if err != nil {
		t.Fatalf("add item: %v", err)
	}
	if !added {
		t.Error("first add should change membership")
	}

	added, err = s.AddItem(tag.ID, "철광석")
	if err != nil {
		t.Fatalf("re-add item: %v", err)
	}
	if added {
		t.Error("re-add should be a no-op")
	}

	got, err := s.Get(model.DomainInventory, "재료", "주간 목표")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Items) != 1 || !got.HasItem("철광석") {
		t.Errorf("items = %v", got.Items)
	}

	removed, err := s.RemoveItem(tag.ID, "철광석")
	if err != nil {
		t.Fatalf("remove item: %v", err)
	}
	if !removed {
		t.Error("remove should report change")
	}

	removed, err = s.RemoveItem(tag.ID, "철광석")
	if err != nil {
		t.Fatalf("second remove: %v", err)
	}
	if removed {
		t.Error("second remove should be a no-op")
	}
}

func TestTagDeleteCascades(t *testing.T) {
	s := setupTagTestDB(t)

	tag, err := s.Create(model.DomainCrafting, "무기", "우선 제작", model.ColorOrange)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.AddItem(tag.ID, "강철 검"); err != nil {
		t.Fatalf("add item: %v", err)
	}

	ok, err := s.Delete(tag.ID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !ok {
		t.Fatal("expected deletion")
	}

	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM tag_items WHERE tag_id = ?`, tag.ID).Scan(&count); err != nil {
		t.Fatalf("count memberships: %v", err)
	}
	if count != 0 {
		t.Errorf("memberships = %d, want 0 after cascade", count)
	}
}

func TestTagSetColor(t *testing.T) {
	s := setupTagTestDB(t)

	tag, err := s.Create(model.DomainInventory, "재료", "색상", model.ColorGray)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.SetColor(tag.ID, model.ColorPink); err != nil {
		t.Fatalf("set color: %v", err)
	}

	got, err := s.Get(model.DomainInventory, "재료", "색상")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Color != model.ColorPink {
		t.Errorf("color = %q, want pink", got.Color)
	}
}

func TestTagLastModifiedAdvances(t *testing.T) {
	s := setupTagTestDB(t)

	before, err := s.LastModified()
	if err != nil {
		t.Fatalf("last modified: %v", err)
	}
	if !before.IsZero() {
		t.Errorf("empty store last modified = %v, want zero", before)
	}

	if _, err := s.Create(model.DomainInventory, "재료", "추적", model.ColorGray); err != nil {
		t.Fatalf("create: %v", err)
	}

	after, err := s.LastModified()
	if err != nil {
		t.Fatalf("last modified: %v", err)
	}
	if after.IsZero() {
		t.Error("last modified should advance after create")
	}
}
