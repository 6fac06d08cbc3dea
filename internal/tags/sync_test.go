package tags

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/guildtools/stockpile/internal/database"
	"github.com/guildtools/stockpile/internal/model"
	"github.com/guildtools/stockpile/internal/store"
)

type nopNotifier struct{}

func (nopNotifier) NotifyChange(model.Domain, string, string, string) {}

type fixture struct {
	tags  *store.TagStore
	items *store.ItemStore
	sync  *Synchronizer
}

func setupSync(t *testing.T) *fixture {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	tagStore := store.NewTagStore(db)
	itemStore := store.NewItemStore(db)
	return &fixture{
		tags:  tagStore,
		items: itemStore,
		sync:  NewSynchronizer(tagStore, itemStore, nopNotifier{}, slog.Default()),
	}
}

func (f *fixture) addItem(t *testing.T, item model.Item) {
	t.Helper()
	if _, err := f.items.Add(item); err != nil {
		t.Fatalf("add item %s: %v", item.Name, err)
	}
}

func (f *fixture) mustTag(t *testing.T, domain model.Domain, category, name string) *model.Tag {
	t.Helper()
	tag, err := f.tags.Get(domain, category, name)
	if err != nil {
		t.Fatalf("get tag %s: %v", name, err)
	}
	if tag == nil {
		t.Fatalf("tag %s missing", name)
	}
	return tag
}

func TestCreateTagInvalidColor(t *testing.T) {
	f := setupSync(t)

	_, err := f.sync.CreateTag(model.DomainInventory, "재료", "불량", model.TagColor("magenta"))
	if !errors.Is(err, store.ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}
}

func TestAddItemsExclusivityMove(t *testing.T) {
	f := setupSync(t)
	f.addItem(t, model.Item{Domain: model.DomainInventory, Category: "재료", Name: "철광석"})

	if _, err := f.sync.CreateTag(model.DomainInventory, "재료", "1차", model.ColorBlue); err != nil {
		t.Fatalf("create 1차: %v", err)
	}
	if _, err := f.sync.CreateTag(model.DomainInventory, "재료", "2차", model.ColorGreen); err != nil {
		t.Fatalf("create 2차: %v", err)
	}

	if _, err := f.sync.AddItems(model.DomainInventory, "재료", "1차", []string{"철광석"}, true); err != nil {
		t.Fatalf("add to 1차: %v", err)
	}

	res, err := f.sync.AddItems(model.DomainInventory, "재료", "2차", []string{"철광석"}, true)
	if err != nil {
		t.Fatalf("move to 2차: %v", err)
	}
	if res.Added != 1 || res.Moved != 1 {
		t.Errorf("result = %+v, want added 1 moved 1", res)
	}

	if f.mustTag(t, model.DomainInventory, "재료", "1차").HasItem("철광석") {
		t.Error("item should have left 1차")
	}
	if !f.mustTag(t, model.DomainInventory, "재료", "2차").HasItem("철광석") {
		t.Error("item should be in 2차")
	}
}

func TestAddItemsWithoutMoveKeepsBoth(t *testing.T) {
	f := setupSync(t)
	f.addItem(t, model.Item{Domain: model.DomainInventory, Category: "재료", Name: "목재"})

	if _, err := f.sync.CreateTag(model.DomainInventory, "재료", "가", model.ColorGray); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.sync.CreateTag(model.DomainInventory, "재료", "나", model.ColorGray); err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := f.sync.AddItems(model.DomainInventory, "재료", "가", []string{"목재"}, false); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := f.sync.AddItems(model.DomainInventory, "재료", "나", []string{"목재"}, false); err != nil {
		t.Fatalf("add: %v", err)
	}

	if !f.mustTag(t, model.DomainInventory, "재료", "가").HasItem("목재") {
		t.Error("item should stay in 가")
	}
	if !f.mustTag(t, model.DomainInventory, "재료", "나").HasItem("목재") {
		t.Error("item should also be in 나")
	}
}

func TestAddItemsUnknownTag(t *testing.T) {
	f := setupSync(t)

	_, err := f.sync.AddItems(model.DomainInventory, "재료", "없는태그", []string{"목재"}, true)
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestMembershipMirrorsOntoLinkedItem(t *testing.T) {
	f := setupSync(t)
	f.addItem(t, model.Item{
		Domain: model.DomainInventory, Category: "재료", Name: "수정",
		Linked: &model.LinkedRef{Category: "재료", Name: "수정"},
	})
	f.addItem(t, model.Item{
		Domain: model.DomainCrafting, Category: "재료", Name: "수정",
		Linked: &model.LinkedRef{Category: "재료", Name: "수정"},
	})

	if _, err := f.sync.CreateTag(model.DomainInventory, "재료", "주간", model.ColorPurple); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.sync.AddItems(model.DomainInventory, "재료", "주간", []string{"수정"}, true); err != nil {
		t.Fatalf("add: %v", err)
	}

	// Mirror tag is created on demand with the same name and color.
	mirror := f.mustTag(t, model.DomainCrafting, "재료", "주간")
	if mirror.Color != model.ColorPurple {
		t.Errorf("mirror color = %q, want purple", mirror.Color)
	}
	if !mirror.HasItem("수정") {
		t.Error("mirror tag should contain the linked item")
	}

	// Removal mirrors too.
	if _, err := f.sync.RemoveItems(model.DomainInventory, "재료", "주간", []string{"수정"}); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if f.mustTag(t, model.DomainCrafting, "재료", "주간").HasItem("수정") {
		t.Error("mirror membership should be removed")
	}
}

func TestMergeTags(t *testing.T) {
	f := setupSync(t)
	f.addItem(t, model.Item{Domain: model.DomainInventory, Category: "재료", Name: "목재"})
	f.addItem(t, model.Item{Domain: model.DomainInventory, Category: "재료", Name: "철괴"})

	if _, err := f.sync.CreateTag(model.DomainInventory, "재료", "옛것", model.ColorGray); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.sync.CreateTag(model.DomainInventory, "재료", "새것", model.ColorBlue); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.sync.AddItems(model.DomainInventory, "재료", "옛것", []string{"목재"}, false); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := f.sync.AddItems(model.DomainInventory, "재료", "새것", []string{"철괴"}, false); err != nil {
		t.Fatalf("add: %v", err)
	}

	merged, err := f.sync.MergeTags(model.DomainInventory, "재료", "옛것", "새것")
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if !merged.HasItem("목재") || !merged.HasItem("철괴") {
		t.Errorf("merged items = %v, want union", merged.Items)
	}

	source, err := f.tags.Get(model.DomainInventory, "재료", "옛것")
	if err != nil {
		t.Fatalf("get source: %v", err)
	}
	if source != nil {
		t.Error("source tag should be deleted after merge")
	}
}

func TestCleanupEmptyTags(t *testing.T) {
	f := setupSync(t)
	f.addItem(t, model.Item{Domain: model.DomainInventory, Category: "재료", Name: "목재"})

	if _, err := f.sync.CreateTag(model.DomainInventory, "재료", "빈것", model.ColorGray); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.sync.CreateTag(model.DomainCrafting, "무기", "빈것2", model.ColorGray); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.sync.CreateTag(model.DomainInventory, "재료", "찬것", model.ColorGray); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.sync.AddItems(model.DomainInventory, "재료", "찬것", []string{"목재"}, false); err != nil {
		t.Fatalf("add: %v", err)
	}

	pruned, err := f.sync.CleanupEmptyTags()
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if pruned != 2 {
		t.Errorf("pruned = %d, want 2", pruned)
	}

	if f.mustTag(t, model.DomainInventory, "재료", "찬것") == nil {
		t.Error("non-empty tag should survive")
	}
}

func TestSearchMatchesNamesAndMembers(t *testing.T) {
	f := setupSync(t)
	f.addItem(t, model.Item{Domain: model.DomainInventory, Category: "재료", Name: "강철괴"})

	if _, err := f.sync.CreateTag(model.DomainInventory, "재료", "주간 목표", model.ColorGray); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.sync.AddItems(model.DomainInventory, "재료", "주간 목표", []string{"강철괴"}, false); err != nil {
		t.Fatalf("add: %v", err)
	}

	byName, err := f.sync.Search("주간")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(byName) != 1 {
		t.Errorf("by name = %d, want 1", len(byName))
	}

	byMember, err := f.sync.Search("강철")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(byMember) != 1 {
		t.Errorf("by member = %d, want 1", len(byMember))
	}

	none, err := f.sync.Search("없음")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("no match = %d, want 0", len(none))
	}
}
