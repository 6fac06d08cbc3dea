package store

import (
	"database/sql"
	"fmt"

	"github.com/guildtools/stockpile/internal/model"
)

// DefaultHistoryCapacity is how many ledger rows survive pruning unless
// the server is configured otherwise.
const DefaultHistoryCapacity = 100

type HistoryStore struct {
	db       *sql.DB
	capacity int
}

func NewHistoryStore(db *sql.DB, capacity int) *HistoryStore {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &HistoryStore{db: db, capacity: capacity}
}

// HistoryFilter narrows queries and counts. Zero values match anything.
type HistoryFilter struct {
	Domain   model.Domain
	Category string
	UserName string
}

func (f HistoryFilter) where() (string, []any) {
	clause := ""
	var args []any
	add := func(cond string, arg any) {
		if clause == "" {
			clause = " WHERE " + cond
		} else {
			clause += " AND " + cond
		}
		args = append(args, arg)
	}
	if f.Domain != "" {
		add("domain = ?", f.Domain)
	}
	if f.Category != "" {
		add("category = ?", f.Category)
	}
	if f.UserName != "" {
		add("user_name = ?", f.UserName)
	}
	return clause, args
}

// Append inserts an entry and prunes the ledger to capacity in the same
// transaction: everything outside the newest-N id set is deleted at
// once, so concurrent appenders cannot interleave a partial prune.
func (s *HistoryStore) Append(e model.HistoryEntry) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin append: %w", err)
	}
	defer tx.Rollback()

	var delta sql.NullInt64
	if e.Delta != nil {
		delta = sql.NullInt64{Int64: *e.Delta, Valid: true}
	}

	if _, err := tx.Exec(
		`INSERT INTO history (ts, domain, category, item_name, action, details, user_name, delta)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.TS, e.Domain, e.Category, e.ItemName, e.Action, e.Details, e.UserName, delta,
	); err != nil {
		return fmt.Errorf("insert history: %w", err)
	}

	if _, err := tx.Exec(
		`DELETE FROM history WHERE id NOT IN (
			SELECT id FROM history ORDER BY ts DESC, id DESC LIMIT ?
		)`,
		s.capacity,
	); err != nil {
		return fmt.Errorf("prune history: %w", err)
	}

	return tx.Commit()
}

const historyCols = `id, ts, domain, category, item_name, action, details, user_name, delta`

// Query returns entries newest first.
func (s *HistoryStore) Query(limit, skip int, filter HistoryFilter) ([]model.HistoryEntry, error) {
	if limit <= 0 {
		limit = s.capacity
	}
	clause, args := filter.where()
	args = append(args, limit, skip)

	rows, err := s.db.Query(
		`SELECT `+historyCols+` FROM history`+clause+` ORDER BY ts DESC, id DESC LIMIT ? OFFSET ?`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []model.HistoryEntry
	for rows.Next() {
		var e model.HistoryEntry
		var delta sql.NullInt64
		if err := rows.Scan(&e.ID, &e.TS, &e.Domain, &e.Category, &e.ItemName, &e.Action, &e.Details, &e.UserName, &delta); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		if delta.Valid {
			e.Delta = &delta.Int64
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Count returns the number of retained entries matching the filter.
func (s *HistoryStore) Count(filter HistoryFilter) (int, error) {
	clause, args := filter.where()
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM history`+clause, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count history: %w", err)
	}
	return count, nil
}

// Clear wipes the ledger. Used to start a fresh scoring epoch.
func (s *HistoryStore) Clear() error {
	if _, err := s.db.Exec(`DELETE FROM history`); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}
