package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/guildtools/stockpile/internal/model"
)

// maxCASAttempts bounds the compare-and-swap retry loop on quantity
// writes. Exhausting it means a pathological write storm on one item.
const maxCASAttempts = 10

type ItemStore struct {
	db *sql.DB
}

func NewItemStore(db *sql.DB) *ItemStore {
	return &ItemStore{db: db}
}

func scanItem(scanner interface{ Scan(...any) error }) (*model.Item, error) {
	var item model.Item
	var tier sql.NullInt64
	var linkedCategory, linkedName sql.NullString
	var workers string

	err := scanner.Scan(
		&item.ID, &item.Domain, &item.Category, &item.Name,
		&item.Quantity, &item.Required, &item.Type, &tier, &item.Emoji,
		&linkedCategory, &linkedName, &item.SortOrder, &workers,
		&item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if tier.Valid {
		t := int(tier.Int64)
		item.Tier = &t
	}
	if linkedName.Valid {
		item.Linked = &model.LinkedRef{Category: linkedCategory.String, Name: linkedName.String}
	}
	if err := json.Unmarshal([]byte(workers), &item.Workers); err != nil {
		return nil, fmt.Errorf("decode workers: %w", err)
	}
	return &item, nil
}

const itemCols = `id, domain, category, name, quantity, required, item_type, tier, emoji, linked_category, linked_name, sort_order, workers, created_at, updated_at`

// Get returns the item with the given key, or ErrNotFound.
func (s *ItemStore) Get(domain model.Domain, category, name string) (*model.Item, error) {
	row := s.db.QueryRow(
		`SELECT `+itemCols+` FROM items WHERE domain = ? AND category = ? AND name = ?`,
		domain, category, name,
	)
	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("item %s/%s/%s: %w", domain, category, name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

// List returns items in a domain, optionally restricted to one category,
// in display order.
func (s *ItemStore) List(domain model.Domain, category string) ([]model.Item, error) {
	query := `SELECT ` + itemCols + ` FROM items WHERE domain = ?`
	args := []any{domain}
	if category != "" {
		query += ` AND category = ?`
		args = append(args, category)
	}
	query += ` ORDER BY category ASC, sort_order ASC, name ASC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// Add inserts a new item. ErrConflict if the (domain, category, name)
// key is already taken.
func (s *ItemStore) Add(item model.Item) (*model.Item, error) {
	var tier sql.NullInt64
	if item.Tier != nil {
		tier = sql.NullInt64{Int64: int64(*item.Tier), Valid: true}
	}
	var linkedCategory, linkedName sql.NullString
	if item.Linked != nil {
		linkedCategory = sql.NullString{String: item.Linked.Category, Valid: true}
		linkedName = sql.NullString{String: item.Linked.Name, Valid: true}
	}
	workers := item.Workers
	if workers == nil {
		workers = []model.Worker{}
	}
	encoded, err := json.Marshal(workers)
	if err != nil {
		return nil, fmt.Errorf("encode workers: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO items (domain, category, name, quantity, required, item_type, tier, emoji, linked_category, linked_name, sort_order, workers, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.Domain, item.Category, item.Name, item.Quantity, item.Required,
		item.Type, tier, item.Emoji, linkedCategory, linkedName,
		item.SortOrder, string(encoded), time.Now().UTC(),
	)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("item %s/%s/%s: %w", item.Domain, item.Category, item.Name, ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("insert item: %w", err)
	}
	return s.Get(item.Domain, item.Category, item.Name)
}

// Remove deletes an item and its recipe, if any. Returns false when the
// item did not exist.
func (s *ItemStore) Remove(domain model.Domain, category, name string) (bool, error) {
	result, err := s.db.Exec(
		`DELETE FROM items WHERE domain = ? AND category = ? AND name = ?`,
		domain, category, name,
	)
	if err != nil {
		return false, fmt.Errorf("delete item: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return false, nil
	}

	// Cascade: the item's recipe goes with it.
	if _, err := s.db.Exec(
		`DELETE FROM recipes WHERE category = ? AND result_name = ?`,
		category, name,
	); err != nil {
		return false, fmt.Errorf("delete recipe cascade: %w", err)
	}
	return true, nil
}

// ItemUpdate holds the optional direct-edit fields. Nil pointers leave
// the stored value untouched.
type ItemUpdate struct {
	Name        *string
	Emoji       *string
	Type        *model.ItemType
	Tier        *int
	Linked      *model.LinkedRef
	ClearLinked bool
}

// UpdateDetails edits an item's non-quantity fields. ErrConflict when a
// rename collides with an existing key.
func (s *ItemStore) UpdateDetails(domain model.Domain, category, name string, upd ItemUpdate) (*model.Item, error) {
	item, err := s.Get(domain, category, name)
	if err != nil {
		return nil, err
	}

	if upd.Name != nil {
		item.Name = *upd.Name
	}
	if upd.Emoji != nil {
		item.Emoji = *upd.Emoji
	}
	if upd.Type != nil {
		item.Type = *upd.Type
	}
	if upd.Tier != nil {
		item.Tier = upd.Tier
	}
	if upd.ClearLinked {
		item.Linked = nil
	} else if upd.Linked != nil {
		item.Linked = upd.Linked
	}

	var tier sql.NullInt64
	if item.Tier != nil {
		tier = sql.NullInt64{Int64: int64(*item.Tier), Valid: true}
	}
	var linkedCategory, linkedName sql.NullString
	if item.Linked != nil {
		linkedCategory = sql.NullString{String: item.Linked.Category, Valid: true}
		linkedName = sql.NullString{String: item.Linked.Name, Valid: true}
	}

	_, err = s.db.Exec(
		`UPDATE items SET name = ?, emoji = ?, item_type = ?, tier = ?, linked_category = ?, linked_name = ?, updated_at = ?
		 WHERE domain = ? AND category = ? AND name = ?`,
		item.Name, item.Emoji, item.Type, tier, linkedCategory, linkedName,
		time.Now().UTC(), domain, category, name,
	)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("item %s/%s/%s: %w", domain, category, item.Name, ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("update item: %w", err)
	}
	return s.Get(domain, category, item.Name)
}

// Reorder applies new display sort positions to the named items.
func (s *ItemStore) Reorder(domain model.Domain, category string, order map[string]int) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin reorder: %w", err)
	}
	defer tx.Rollback()

	for name, pos := range order {
		if _, err := tx.Exec(
			`UPDATE items SET sort_order = ?, updated_at = ? WHERE domain = ? AND category = ? AND name = ?`,
			pos, time.Now().UTC(), domain, category, name,
		); err != nil {
			return fmt.Errorf("reorder %q: %w", name, err)
		}
	}
	return tx.Commit()
}

// AdjustQuantity atomically applies delta to an item's quantity,
// flooring at zero, and returns the updated item together with the
// applied (post-clamp) delta. The write is a compare-and-swap on the
// prior quantity so concurrent adjusters never lose updates.
func (s *ItemStore) AdjustQuantity(domain model.Domain, category, name string, delta int64) (*model.Item, int64, error) {
	for attempt := 0; attempt < maxCASAttempts; attempt++ {
		item, err := s.Get(domain, category, name)
		if err != nil {
			return nil, 0, err
		}

		next := item.Quantity + delta
		if next < 0 {
			next = 0
		}
		applied := next - item.Quantity

		result, err := s.db.Exec(
			`UPDATE items SET quantity = ?, updated_at = ?
			 WHERE domain = ? AND category = ? AND name = ? AND quantity = ?`,
			next, time.Now().UTC(), domain, category, name, item.Quantity,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("adjust quantity: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return nil, 0, fmt.Errorf("rows affected: %w", err)
		}
		if n == 1 {
			item.Quantity = next
			return item, applied, nil
		}
		// Lost the race; re-read and try again.
	}
	return nil, 0, fmt.Errorf("adjust quantity %s/%s/%s: too much contention", domain, category, name)
}

// SetQuantity atomically stores max(0, value) and returns the updated
// item plus the applied delta relative to the prior quantity.
func (s *ItemStore) SetQuantity(domain model.Domain, category, name string, value int64) (*model.Item, int64, error) {
	if value < 0 {
		value = 0
	}
	for attempt := 0; attempt < maxCASAttempts; attempt++ {
		item, err := s.Get(domain, category, name)
		if err != nil {
			return nil, 0, err
		}

		applied := value - item.Quantity
		result, err := s.db.Exec(
			`UPDATE items SET quantity = ?, updated_at = ?
			 WHERE domain = ? AND category = ? AND name = ? AND quantity = ?`,
			value, time.Now().UTC(), domain, category, name, item.Quantity,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("set quantity: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return nil, 0, fmt.Errorf("rows affected: %w", err)
		}
		if n == 1 {
			item.Quantity = value
			return item, applied, nil
		}
	}
	return nil, 0, fmt.Errorf("set quantity %s/%s/%s: too much contention", domain, category, name)
}

// SetRequired stores max(0, value) as the item's target quantity and
// returns the updated item plus the previous value.
func (s *ItemStore) SetRequired(domain model.Domain, category, name string, value int64) (*model.Item, int64, error) {
	if value < 0 {
		value = 0
	}
	item, err := s.Get(domain, category, name)
	if err != nil {
		return nil, 0, err
	}
	prev := item.Required

	_, err = s.db.Exec(
		`UPDATE items SET required = ?, updated_at = ? WHERE domain = ? AND category = ? AND name = ?`,
		value, time.Now().UTC(), domain, category, name,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("set required: %w", err)
	}
	item.Required = value
	return item, prev, nil
}

// AddWorker registers a collaborator on an item. Re-adding the same
// user refreshes their start time.
func (s *ItemStore) AddWorker(domain model.Domain, category, name string, w model.Worker) (*model.Item, error) {
	item, err := s.Get(domain, category, name)
	if err != nil {
		return nil, err
	}

	workers := make([]model.Worker, 0, len(item.Workers)+1)
	for _, existing := range item.Workers {
		if existing.UserID != w.UserID {
			workers = append(workers, existing)
		}
	}
	workers = append(workers, w)
	return s.storeWorkers(domain, category, name, workers)
}

// RemoveWorker drops a collaborator from an item. Removing an absent
// user is a no-op.
func (s *ItemStore) RemoveWorker(domain model.Domain, category, name, userID string) (*model.Item, error) {
	item, err := s.Get(domain, category, name)
	if err != nil {
		return nil, err
	}

	workers := make([]model.Worker, 0, len(item.Workers))
	for _, existing := range item.Workers {
		if existing.UserID != userID {
			workers = append(workers, existing)
		}
	}
	return s.storeWorkers(domain, category, name, workers)
}

func (s *ItemStore) storeWorkers(domain model.Domain, category, name string, workers []model.Worker) (*model.Item, error) {
	encoded, err := json.Marshal(workers)
	if err != nil {
		return nil, fmt.Errorf("encode workers: %w", err)
	}
	_, err = s.db.Exec(
		`UPDATE items SET workers = ?, updated_at = ? WHERE domain = ? AND category = ? AND name = ?`,
		string(encoded), time.Now().UTC(), domain, category, name,
	)
	if err != nil {
		return nil, fmt.Errorf("update workers: %w", err)
	}
	return s.Get(domain, category, name)
}

// LastModified returns the newest updated_at across all items, or the
// zero time when the catalog is empty. Used by the fallback poller.
func (s *ItemStore) LastModified() (time.Time, error) {
	var ts sql.NullTime
	err := s.db.QueryRow(`SELECT MAX(updated_at) FROM items`).Scan(&ts)
	if err != nil {
		return time.Time{}, fmt.Errorf("last modified: %w", err)
	}
	if !ts.Valid {
		return time.Time{}, nil
	}
	return ts.Time, nil
}
