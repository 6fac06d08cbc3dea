package tags

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/guildtools/stockpile/internal/model"
	"github.com/guildtools/stockpile/internal/store"
)

// Notifier fans out tag-change events; same contract as the quantity
// coordinator's notifier.
type Notifier interface {
	NotifyChange(domain model.Domain, category, name, action string)
}

// Synchronizer owns tag membership rules: scope exclusivity, mirroring
// onto linked items, and the set operations the dashboard exposes.
type Synchronizer struct {
	tags     *store.TagStore
	items    *store.ItemStore
	notifier Notifier
	logger   *slog.Logger
}

func NewSynchronizer(tags *store.TagStore, items *store.ItemStore, notifier Notifier, logger *slog.Logger) *Synchronizer {
	return &Synchronizer{tags: tags, items: items, notifier: notifier, logger: logger}
}

// Result reports what a membership change actually did.
type Result struct {
	Added int `json:"added"`
	Moved int `json:"moved"`
}

// CreateTag makes an empty tag in one scope. ErrConflict when taken,
// ErrValidation for an unknown color.
func (s *Synchronizer) CreateTag(domain model.Domain, category, name string, color model.TagColor) (*model.Tag, error) {
	if !color.Valid() {
		return nil, fmt.Errorf("color %q: %w", color, store.ErrValidation)
	}
	tag, err := s.tags.Create(domain, category, name, color)
	if err != nil {
		return nil, err
	}
	s.notifier.NotifyChange(domain, category, name, "tag_created")
	return tag, nil
}

// AddItems puts the named items into a tag. With moveFromOtherTags each
// item is first removed from every other tag in the same scope, so an
// item belongs to at most one tag per (domain, category). Membership
// changes mirror onto each item's linked counterpart, creating the
// counterpart tag if needed.
func (s *Synchronizer) AddItems(domain model.Domain, category, tagName string, names []string, moveFromOtherTags bool) (Result, error) {
	var res Result

	tag, err := s.tags.Get(domain, category, tagName)
	if err != nil {
		return res, err
	}
	if tag == nil {
		return res, fmt.Errorf("tag %s/%s/%s: %w", domain, category, tagName, store.ErrNotFound)
	}

	scope, err := s.tags.ListScope(domain, category)
	if err != nil {
		return res, err
	}

	for _, name := range names {
		if moveFromOtherTags {
			for _, other := range scope {
				if other.ID == tag.ID || !other.HasItem(name) {
					continue
				}
				removed, err := s.tags.RemoveItem(other.ID, name)
				if err != nil {
					return res, err
				}
				if removed {
					res.Moved++
				}
			}
		}

		added, err := s.tags.AddItem(tag.ID, name)
		if err != nil {
			return res, err
		}
		if added {
			res.Added++
		}

		s.mirrorMembership(domain, category, name, tag, true, moveFromOtherTags)
	}

	s.notifier.NotifyChange(domain, category, tagName, "tag_updated")
	return res, nil
}

// RemoveItems drops the named items from a tag and mirrors the removal
// onto linked counterparts.
func (s *Synchronizer) RemoveItems(domain model.Domain, category, tagName string, names []string) (int, error) {
	tag, err := s.tags.Get(domain, category, tagName)
	if err != nil {
		return 0, err
	}
	if tag == nil {
		return 0, fmt.Errorf("tag %s/%s/%s: %w", domain, category, tagName, store.ErrNotFound)
	}

	removed := 0
	for _, name := range names {
		ok, err := s.tags.RemoveItem(tag.ID, name)
		if err != nil {
			return removed, err
		}
		if ok {
			removed++
		}
		s.mirrorMembership(domain, category, name, tag, false, false)
	}

	s.notifier.NotifyChange(domain, category, tagName, "tag_updated")
	return removed, nil
}

// DeleteTag removes a tag entirely. Returns false when absent.
func (s *Synchronizer) DeleteTag(domain model.Domain, category, tagName string) (bool, error) {
	tag, err := s.tags.Get(domain, category, tagName)
	if err != nil {
		return false, err
	}
	if tag == nil {
		return false, nil
	}
	ok, err := s.tags.Delete(tag.ID)
	if err != nil {
		return false, err
	}
	if ok {
		s.notifier.NotifyChange(domain, category, tagName, "tag_deleted")
	}
	return ok, nil
}

// MergeTags unions the source tag's items into the target tag, then
// deletes the source. Both must live in the same scope.
func (s *Synchronizer) MergeTags(domain model.Domain, category, sourceName, targetName string) (*model.Tag, error) {
	source, err := s.tags.Get(domain, category, sourceName)
	if err != nil {
		return nil, err
	}
	if source == nil {
		return nil, fmt.Errorf("tag %s/%s/%s: %w", domain, category, sourceName, store.ErrNotFound)
	}
	target, err := s.tags.Get(domain, category, targetName)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, fmt.Errorf("tag %s/%s/%s: %w", domain, category, targetName, store.ErrNotFound)
	}

	for _, name := range source.Items {
		if _, err := s.tags.AddItem(target.ID, name); err != nil {
			return nil, err
		}
	}
	if _, err := s.tags.Delete(source.ID); err != nil {
		return nil, err
	}

	s.notifier.NotifyChange(domain, category, targetName, "tag_updated")
	return s.tags.Get(domain, category, targetName)
}

// CleanupEmptyTags deletes every tag with no members, across all
// scopes, and returns how many were pruned.
func (s *Synchronizer) CleanupEmptyTags() (int, error) {
	all, err := s.tags.ListAll()
	if err != nil {
		return 0, err
	}

	pruned := 0
	for _, tag := range all {
		if len(tag.Items) > 0 {
			continue
		}
		ok, err := s.tags.Delete(tag.ID)
		if err != nil {
			return pruned, err
		}
		if ok {
			pruned++
			s.notifier.NotifyChange(tag.Domain, tag.Category, tag.Name, "tag_deleted")
		}
	}
	return pruned, nil
}

// SetColor changes a tag's display color. ErrValidation for an unknown
// color.
func (s *Synchronizer) SetColor(domain model.Domain, category, tagName string, color model.TagColor) error {
	if !color.Valid() {
		return fmt.Errorf("color %q: %w", color, store.ErrValidation)
	}
	tag, err := s.tags.Get(domain, category, tagName)
	if err != nil {
		return err
	}
	if tag == nil {
		return fmt.Errorf("tag %s/%s/%s: %w", domain, category, tagName, store.ErrNotFound)
	}
	if err := s.tags.SetColor(tag.ID, color); err != nil {
		return err
	}
	s.notifier.NotifyChange(domain, category, tagName, "tag_updated")
	return nil
}

// Search returns tags whose name or any member item contains the query,
// case-insensitive, across all scopes.
func (s *Synchronizer) Search(query string) ([]model.Tag, error) {
	all, err := s.tags.ListAll()
	if err != nil {
		return nil, err
	}

	q := strings.ToLower(query)
	var matched []model.Tag
	for _, tag := range all {
		if strings.Contains(strings.ToLower(tag.Name), q) {
			matched = append(matched, tag)
			continue
		}
		for _, item := range tag.Items {
			if strings.Contains(strings.ToLower(item), q) {
				matched = append(matched, tag)
				break
			}
		}
	}
	return matched, nil
}

// mirrorMembership replays one membership change onto the linked
// counterpart's scope. At most one hop; the mirrored change never
// mirrors again. Mirror failures log and move on so one broken link
// cannot fail the whole batch.
func (s *Synchronizer) mirrorMembership(domain model.Domain, category, itemName string, tag *model.Tag, add, move bool) {
	item, err := s.items.Get(domain, category, itemName)
	if err != nil || item.Linked == nil {
		return
	}

	linkedDomain := domain.Other()
	linkedCategory := item.Linked.Category
	linkedName := item.Linked.Name

	mirror, err := s.tags.Get(linkedDomain, linkedCategory, tag.Name)
	if err != nil {
		s.logger.Warn("mirror tag lookup", "tag", tag.Name, "error", err)
		return
	}
	if mirror == nil {
		if !add {
			return
		}
		mirror, err = s.tags.Create(linkedDomain, linkedCategory, tag.Name, tag.Color)
		if err != nil {
			s.logger.Warn("mirror tag create", "tag", tag.Name, "error", err)
			return
		}
	}

	if add {
		if move {
			scope, err := s.tags.ListScope(linkedDomain, linkedCategory)
			if err != nil {
				s.logger.Warn("mirror scope list", "tag", tag.Name, "error", err)
				return
			}
			for _, other := range scope {
				if other.ID == mirror.ID || !other.HasItem(linkedName) {
					continue
				}
				if _, err := s.tags.RemoveItem(other.ID, linkedName); err != nil {
					s.logger.Warn("mirror exclusivity move", "tag", other.Name, "error", err)
				}
			}
		}
		if _, err := s.tags.AddItem(mirror.ID, linkedName); err != nil {
			s.logger.Warn("mirror add item", "tag", tag.Name, "error", err)
		}
	} else {
		if _, err := s.tags.RemoveItem(mirror.ID, linkedName); err != nil {
			s.logger.Warn("mirror remove item", "tag", tag.Name, "error", err)
		}
	}

	s.notifier.NotifyChange(linkedDomain, linkedCategory, tag.Name, "tag_updated")
}
