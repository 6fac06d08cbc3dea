package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/guildtools/stockpile/internal/model"
)

type TagStore struct {
	db *sql.DB
}

func NewTagStore(db *sql.DB) *TagStore {
	return &TagStore{db: db}
}

func (s *TagStore) scanTagRows(rows *sql.Rows) ([]model.Tag, error) {
	var tags []model.Tag
	for rows.Next() {
		var t model.Tag
		if err := rows.Scan(&t.ID, &t.Domain, &t.Category, &t.Name, &t.Color, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range tags {
		items, err := s.items(tags[i].ID)
		if err != nil {
			return nil, err
		}
		tags[i].Items = items
	}
	return tags, nil
}

const tagCols = `id, domain, category, name, color, created_at, updated_at`

// Get returns a tag by key, or nil when absent.
func (s *TagStore) Get(domain model.Domain, category, name string) (*model.Tag, error) {
	var t model.Tag
	err := s.db.QueryRow(
		`SELECT `+tagCols+` FROM tags WHERE domain = ? AND category = ? AND name = ?`,
		domain, category, name,
	).Scan(&t.ID, &t.Domain, &t.Category, &t.Name, &t.Color, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get tag: %w", err)
	}

	items, err := s.items(t.ID)
	if err != nil {
		return nil, err
	}
	t.Items = items
	return &t, nil
}

// ListScope returns every tag in one (domain, category) scope.
func (s *TagStore) ListScope(domain model.Domain, category string) ([]model.Tag, error) {
	rows, err := s.db.Query(
		`SELECT `+tagCols+` FROM tags WHERE domain = ? AND category = ? ORDER BY name ASC`,
		domain, category,
	)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()
	return s.scanTagRows(rows)
}

// ListAll returns every tag across all scopes.
func (s *TagStore) ListAll() ([]model.Tag, error) {
	rows, err := s.db.Query(`SELECT ` + tagCols + ` FROM tags ORDER BY domain ASC, category ASC, name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list all tags: %w", err)
	}
	defer rows.Close()
	return s.scanTagRows(rows)
}

// Create inserts an empty tag. ErrConflict when the key exists.
func (s *TagStore) Create(domain model.Domain, category, name string, color model.TagColor) (*model.Tag, error) {
	now := time.Now().UTC()
	_, err := s.db.Exec(
		`INSERT INTO tags (domain, category, name, color, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		domain, category, name, color, now, now,
	)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("tag %s/%s/%s: %w", domain, category, name, ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("insert tag: %w", err)
	}
	return s.Get(domain, category, name)
}

// AddItem puts an item name into a tag. Re-adding is a no-op; returns
// true when the membership actually changed.
func (s *TagStore) AddItem(tagID int64, itemName string) (bool, error) {
	result, err := s.db.Exec(
		`INSERT OR IGNORE INTO tag_items (tag_id, item_name) VALUES (?, ?)`,
		tagID, itemName,
	)
	if err != nil {
		return false, fmt.Errorf("add tag item: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	if n > 0 {
		if err := s.touch(tagID); err != nil {
			return false, err
		}
	}
	return n > 0, nil
}

// RemoveItem drops an item name from a tag; returns true when it was
// a member.
func (s *TagStore) RemoveItem(tagID int64, itemName string) (bool, error) {
	result, err := s.db.Exec(
		`DELETE FROM tag_items WHERE tag_id = ? AND item_name = ?`,
		tagID, itemName,
	)
	if err != nil {
		return false, fmt.Errorf("remove tag item: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	if n > 0 {
		if err := s.touch(tagID); err != nil {
			return false, err
		}
	}
	return n > 0, nil
}

// Delete removes a tag and its memberships. Returns false when absent.
func (s *TagStore) Delete(tagID int64) (bool, error) {
	result, err := s.db.Exec(`DELETE FROM tags WHERE id = ?`, tagID)
	if err != nil {
		return false, fmt.Errorf("delete tag: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// SetColor updates a tag's display color.
func (s *TagStore) SetColor(tagID int64, color model.TagColor) error {
	if _, err := s.db.Exec(
		`UPDATE tags SET color = ?, updated_at = ? WHERE id = ?`,
		color, time.Now().UTC(), tagID,
	); err != nil {
		return fmt.Errorf("set tag color: %w", err)
	}
	return nil
}

// LastModified returns the newest updated_at across all tags, or the
// zero time when there are none.
func (s *TagStore) LastModified() (time.Time, error) {
	var ts sql.NullTime
	err := s.db.QueryRow(`SELECT MAX(updated_at) FROM tags`).Scan(&ts)
	if err != nil {
		return time.Time{}, fmt.Errorf("tags last modified: %w", err)
	}
	if !ts.Valid {
		return time.Time{}, nil
	}
	return ts.Time, nil
}

func (s *TagStore) items(tagID int64) ([]string, error) {
	rows, err := s.db.Query(
		`SELECT item_name FROM tag_items WHERE tag_id = ? ORDER BY item_name ASC`,
		tagID,
	)
	if err != nil {
		return nil, fmt.Errorf("list tag items: %w", err)
	}
	defer rows.Close()

	var items []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan tag item: %w", err)
		}
		items = append(items, name)
	}
	return items, rows.Err()
}

func (s *TagStore) touch(tagID int64) error {
	if _, err := s.db.Exec(
		`UPDATE tags SET updated_at = ? WHERE id = ?`,
		time.Now().UTC(), tagID,
	); err != nil {
		return fmt.Errorf("touch tag: %w", err)
	}
	return nil
}
