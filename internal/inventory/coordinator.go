package inventory

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/guildtools/stockpile/internal/model"
	"github.com/guildtools/stockpile/internal/store"
)

// nowFunc is swapped out by tests that need deterministic ledger
// timestamps.
var nowFunc = time.Now

// Notifier receives a change event after every persisted mutation. A
// misbehaving notifier must never fail the mutation path, so
// implementations do their own error isolation.
type Notifier interface {
	NotifyChange(domain model.Domain, category, name, action string)
}

// Actor identifies who requested a change, for the audit ledger.
type Actor struct {
	ID   string
	Name string
}

// Options controls one top-level coordinator call.
type Options struct {
	SyncMaterials bool
	SyncLinked    bool
	Action        string // ledger action, defaults to update_quantity
	Details       string // ledger display text, defaults to a template
}

// DefaultOptions enables recipe propagation and cross-domain mirroring.
func DefaultOptions() Options {
	return Options{SyncMaterials: true, SyncLinked: true}
}

// Coordinator orchestrates clamped quantity updates: the atomic write,
// recipe propagation into raw materials, mirroring onto the linked
// counterpart, the ledger append, and the change notification.
type Coordinator struct {
	items    *store.ItemStore
	resolver *Resolver
	history  *store.HistoryStore
	notifier Notifier
	logger   *slog.Logger
}

func NewCoordinator(items *store.ItemStore, resolver *Resolver, history *store.HistoryStore, notifier Notifier, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		items:    items,
		resolver: resolver,
		history:  history,
		notifier: notifier,
		logger:   logger,
	}
}

// ApplyDelta applies a signed quantity change to one item. A negative
// delta larger than the current quantity drains the item to exactly
// zero; the ledger records the applied, not the requested, delta.
func (c *Coordinator) ApplyDelta(domain model.Domain, category, name string, delta float64, actor Actor, opts Options) (*model.Item, error) {
	d, err := toCount(delta)
	if err != nil {
		return nil, fmt.Errorf("delta: %w", err)
	}
	key := model.Key{Domain: domain, Category: category, Name: name}
	return c.adjust(key, d, actor, opts, make(map[model.Key]bool))
}

// SetAbsolute stores max(0, value) as the item's quantity. Propagation
// uses the internally computed applied delta; the mirror hop stores the
// same absolute value on the counterpart.
func (c *Coordinator) SetAbsolute(domain model.Domain, category, name string, value float64, actor Actor, opts Options) (*model.Item, error) {
	v, err := toCount(value)
	if err != nil {
		return nil, fmt.Errorf("value: %w", err)
	}
	if v < 0 {
		v = 0
	}
	key := model.Key{Domain: domain, Category: category, Name: name}
	return c.setAbsolute(key, v, actor, opts, make(map[model.Key]bool))
}

// SetRequired stores max(0, value) as the item's target quantity and
// mirrors the edit onto the linked counterpart. Targets have no recipe
// propagation.
func (c *Coordinator) SetRequired(domain model.Domain, category, name string, value float64, actor Actor, opts Options) (*model.Item, error) {
	v, err := toCount(value)
	if err != nil {
		return nil, fmt.Errorf("value: %w", err)
	}
	if v < 0 {
		v = 0
	}

	item, prev, err := c.items.SetRequired(domain, category, name, v)
	if err != nil {
		return nil, err
	}

	if opts.SyncLinked && prev != v {
		if counterpart := c.counterpart(item); counterpart != nil {
			mirror := opts
			mirror.SyncLinked = false
			if _, err := c.SetRequired(counterpart.Domain, counterpart.Category, counterpart.Name, float64(v), actor, mirror); err != nil {
				c.logger.Warn("mirror required", "item", name, "error", err)
			}
		}
	}

	action := opts.Action
	if action == "" {
		action = model.ActionUpdateRequired
	}
	details := opts.Details
	if details == "" {
		details = fmt.Sprintf("목표 수정: %d → %d", prev, v)
	}
	applied := v - prev
	c.record(item, applied, actor, action, details)
	return item, nil
}

// RecordCreation logs a newly cataloged item. The initial quantity is
// credited to the actor like any other addition.
func (c *Coordinator) RecordCreation(item *model.Item, actor Actor) {
	c.record(item, item.Quantity, actor, model.ActionAdd, fmt.Sprintf("초기: %d개", item.Quantity))
}

// RecordRemoval logs an item deletion. Removals carry no quantity
// credit.
func (c *Coordinator) RecordRemoval(domain model.Domain, category, name string, actor Actor) {
	item := &model.Item{Domain: domain, Category: category, Name: name}
	c.record(item, 0, actor, model.ActionRemove, "항목 삭제")
}

// adjust is the recursive worker behind ApplyDelta. The visited set is
// defense in depth against cyclic recipes that slipped past save-time
// validation, and caps the work of one top-level call at one write per
// reachable item.
func (c *Coordinator) adjust(key model.Key, delta int64, actor Actor, opts Options, visited map[model.Key]bool) (*model.Item, error) {
	if visited[key] {
		c.logger.Warn("propagation revisited item, skipping",
			"domain", key.Domain, "category", key.Category, "item", key.Name)
		return c.items.Get(key.Domain, key.Category, key.Name)
	}
	visited[key] = true

	item, applied, err := c.items.AdjustQuantity(key.Domain, key.Category, key.Name, delta)
	if err != nil {
		return nil, err
	}

	if applied != 0 {
		if opts.SyncMaterials && item.Type.HasRecipe() {
			c.propagate(item, applied, actor, visited)
		}
		if opts.SyncLinked {
			if counterpart := c.counterpart(item); counterpart != nil {
				mirror := opts
				mirror.SyncLinked = false
				mirror.Details = ""
				if _, err := c.adjust(counterpart.Key(), applied, actor, mirror, visited); err != nil {
					c.logger.Warn("mirror quantity", "item", item.Name, "error", err)
				}
			}
		}
	}

	details := opts.Details
	if details == "" {
		details = deltaDetails(applied)
	}
	c.record(item, applied, actor, opts.Action, details)
	return item, nil
}

func (c *Coordinator) setAbsolute(key model.Key, value int64, actor Actor, opts Options, visited map[model.Key]bool) (*model.Item, error) {
	if visited[key] {
		c.logger.Warn("propagation revisited item, skipping",
			"domain", key.Domain, "category", key.Category, "item", key.Name)
		return c.items.Get(key.Domain, key.Category, key.Name)
	}
	visited[key] = true

	item, applied, err := c.items.SetQuantity(key.Domain, key.Category, key.Name, value)
	if err != nil {
		return nil, err
	}

	if applied != 0 {
		if opts.SyncMaterials && item.Type.HasRecipe() {
			c.propagate(item, applied, actor, visited)
		}
		if opts.SyncLinked {
			if counterpart := c.counterpart(item); counterpart != nil {
				mirror := opts
				mirror.SyncLinked = false
				mirror.Details = ""
				if _, err := c.setAbsolute(counterpart.Key(), value, actor, mirror, visited); err != nil {
					c.logger.Warn("mirror quantity", "item", item.Name, "error", err)
				}
			}
		}
	}

	details := opts.Details
	if details == "" {
		details = fmt.Sprintf("%d개 → %d개", item.Quantity-applied, item.Quantity)
	}
	c.record(item, applied, actor, opts.Action, details)
	return item, nil
}

// propagate consumes (or restores) raw materials for a crafted delta.
// Each material gets its own clamp, so draining below zero is absorbed
// per material rather than failing the whole chain.
func (c *Coordinator) propagate(item *model.Item, applied int64, actor Actor, visited map[model.Key]bool) {
	materials, err := c.resolver.Resolve(item.Category, item.Name)
	if err != nil {
		c.logger.Error("resolve recipe", "item", item.Name, "error", err)
		return
	}

	for _, m := range materials {
		materialDelta := -(applied * m.Quantity)
		opts := Options{
			SyncMaterials: true,
			Action:        model.ActionUpdateQuantity,
			Details:       materialDetails(item.Name, materialDelta),
		}
		key := model.Key{Domain: model.DomainInventory, Category: m.Category, Name: m.Name}
		if _, err := c.adjust(key, materialDelta, actor, opts, visited); err != nil {
			c.logger.Warn("propagate material",
				"result", item.Name, "material", m.Name, "error", err)
		}
	}
}

// counterpart resolves the linked item in the other domain. The
// explicit pointer is canonical; rows migrated before pointers existed
// fall back to a same-(category, name) match.
func (c *Coordinator) counterpart(item *model.Item) *model.Item {
	other := item.Domain.Other()

	category, name := item.Category, item.Name
	if item.Linked != nil {
		category, name = item.Linked.Category, item.Linked.Name
	}

	counterpart, err := c.items.Get(other, category, name)
	if err != nil {
		return nil
	}
	return counterpart
}

// record appends the ledger entry for one applied change and fires the
// change notification. Ledger failures degrade to a log line so a
// transient storage error cannot unwind an already-applied write.
func (c *Coordinator) record(item *model.Item, applied int64, actor Actor, action, details string) {
	if action == "" {
		action = model.ActionUpdateQuantity
	}
	entry := model.HistoryEntry{
		TS:       model.HistoryTS(nowFunc()),
		Domain:   item.Domain,
		Category: item.Category,
		ItemName: item.Name,
		Action:   action,
		Details:  details,
		UserName: actor.Name,
		Delta:    &applied,
	}
	if err := c.history.Append(entry); err != nil {
		c.logger.Error("append history", "item", item.Name, "error", err)
	}

	c.notifier.NotifyChange(item.Domain, item.Category, item.Name, action)
}

// toCount validates that a JSON-supplied number is a finite integer
// count and converts it.
func toCount(v float64) (int64, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("not a finite number: %w", store.ErrValidation)
	}
	if v != math.Trunc(v) {
		return 0, fmt.Errorf("not a whole number: %w", store.ErrValidation)
	}
	return int64(v), nil
}

func deltaDetails(applied int64) string {
	if applied >= 0 {
		return fmt.Sprintf("추가: +%d개", applied)
	}
	return fmt.Sprintf("차감: %d개", applied)
}

func materialDetails(resultName string, materialDelta int64) string {
	if materialDelta <= 0 {
		return fmt.Sprintf("%s 제작으로 %d개 소모", resultName, -materialDelta)
	}
	return fmt.Sprintf("%s 제작 취소로 %d개 반환", resultName, materialDelta)
}
