package store

import (
	"testing"

	"github.com/guildtools/stockpile/internal/database"
	"github.com/guildtools/stockpile/internal/model"
)

func setupRecipeTestDB(t *testing.T) *RecipeStore {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewRecipeStore(db)
}

func TestRecipeUpsertPreservesOrder(t *testing.T) {
	s := setupRecipeTestDB(t)

	materials := []model.Material{
		{Name: "강철괴", Category: "재료", Quantity: 2},
		{Name: "가죽", Category: "재료", Quantity: 3},
		{Name: "루비", Category: "보석", Quantity: 1},
	}
	recipe, err := s.Upsert("무기", "강철 검", materials)
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	if len(recipe.Materials) != 3 {
		t.Fatalf("materials = %d, want 3", len(recipe.Materials))
	}
	for i, want := range materials {
		got := recipe.Materials[i]
		if got.Name != want.Name || got.Quantity != want.Quantity {
			t.Errorf("material[%d] = %v, want %v", i, got, want)
		}
	}
}

func TestRecipeUpsertReplacesMaterials(t *testing.T) {
	s := setupRecipeTestDB(t)

	if _, err := s.Upsert("무기", "단검", []model.Material{
		{Name: "철괴", Category: "재료", Quantity: 1},
		{Name: "목재", Category: "재료", Quantity: 1},
	}); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	recipe, err := s.Upsert("무기", "단검", []model.Material{
		{Name: "강철괴", Category: "재료", Quantity: 2},
	})
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if len(recipe.Materials) != 1 || recipe.Materials[0].Name != "강철괴" {
		t.Errorf("materials = %v, want single 강철괴", recipe.Materials)
	}
}

func TestRecipeGetAbsent(t *testing.T) {
	s := setupRecipeTestDB(t)

	recipe, err := s.Get("무기", "없는것")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if recipe != nil {
		t.Errorf("recipe = %v, want nil", recipe)
	}
}

func TestRecipeListByCategory(t *testing.T) {
	s := setupRecipeTestDB(t)

	if _, err := s.Upsert("무기", "검", []model.Material{{Name: "철괴", Category: "재료", Quantity: 1}}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if _, err := s.Upsert("방어구", "투구", []model.Material{{Name: "철괴", Category: "재료", Quantity: 2}}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	all, err := s.List("")
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("all = %d, want 2", len(all))
	}

	weapons, err := s.List("무기")
	if err != nil {
		t.Fatalf("list weapons: %v", err)
	}
	if len(weapons) != 1 || weapons[0].ResultName != "검" {
		t.Errorf("weapons = %v", weapons)
	}
}

func TestRecipeRemove(t *testing.T) {
	s := setupRecipeTestDB(t)

	if _, err := s.Upsert("무기", "검", []model.Material{{Name: "철괴", Category: "재료", Quantity: 1}}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	removed, err := s.Remove("무기", "검")
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if !removed {
		t.Error("expected removal")
	}

	removed, err = s.Remove("무기", "검")
	if err != nil {
		t.Fatalf("second remove: %v", err)
	}
	if removed {
		t.Error("second remove should report false")
	}
}
