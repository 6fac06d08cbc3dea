package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/guildtools/stockpile/internal/model"
)

type RecipeStore struct {
	db *sql.DB
}

func NewRecipeStore(db *sql.DB) *RecipeStore {
	return &RecipeStore{db: db}
}

// Get returns the recipe for (category, resultName), or nil when the
// result has no recipe.
func (s *RecipeStore) Get(category, resultName string) (*model.Recipe, error) {
	var r model.Recipe
	err := s.db.QueryRow(
		`SELECT id, category, result_name, updated_at FROM recipes WHERE category = ? AND result_name = ?`,
		category, resultName,
	).Scan(&r.ID, &r.Category, &r.ResultName, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get recipe: %w", err)
	}

	materials, err := s.materials(r.ID)
	if err != nil {
		return nil, err
	}
	r.Materials = materials
	return &r, nil
}

// List returns all recipes, optionally restricted to one category.
func (s *RecipeStore) List(category string) ([]model.Recipe, error) {
	query := `SELECT id, category, result_name, updated_at FROM recipes`
	var args []any
	if category != "" {
		query += ` WHERE category = ?`
		args = append(args, category)
	}
	query += ` ORDER BY category ASC, result_name ASC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list recipes: %w", err)
	}
	defer rows.Close()

	var recipes []model.Recipe
	for rows.Next() {
		var r model.Recipe
		if err := rows.Scan(&r.ID, &r.Category, &r.ResultName, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan recipe: %w", err)
		}
		recipes = append(recipes, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range recipes {
		materials, err := s.materials(recipes[i].ID)
		if err != nil {
			return nil, err
		}
		recipes[i].Materials = materials
	}
	return recipes, nil
}

// Upsert replaces the material list for (category, resultName),
// creating the recipe row if needed. Material order is preserved.
func (s *RecipeStore) Upsert(category, resultName string, materials []model.Material) (*model.Recipe, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO recipes (category, result_name, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(category, result_name) DO UPDATE SET updated_at = excluded.updated_at`,
		category, resultName, time.Now().UTC(),
	); err != nil {
		return nil, fmt.Errorf("upsert recipe: %w", err)
	}

	var id int64
	if err := tx.QueryRow(
		`SELECT id FROM recipes WHERE category = ? AND result_name = ?`,
		category, resultName,
	).Scan(&id); err != nil {
		return nil, fmt.Errorf("get recipe id: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM recipe_materials WHERE recipe_id = ?`, id); err != nil {
		return nil, fmt.Errorf("clear materials: %w", err)
	}
	for i, m := range materials {
		if _, err := tx.Exec(
			`INSERT INTO recipe_materials (recipe_id, position, material_name, material_category, quantity) VALUES (?, ?, ?, ?, ?)`,
			id, i, m.Name, m.Category, m.Quantity,
		); err != nil {
			return nil, fmt.Errorf("insert material %q: %w", m.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit upsert: %w", err)
	}
	return s.Get(category, resultName)
}

// Remove deletes a recipe and its materials. Returns false when absent.
func (s *RecipeStore) Remove(category, resultName string) (bool, error) {
	result, err := s.db.Exec(
		`DELETE FROM recipes WHERE category = ? AND result_name = ?`,
		category, resultName,
	)
	if err != nil {
		return false, fmt.Errorf("delete recipe: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func (s *RecipeStore) materials(recipeID int64) ([]model.Material, error) {
	rows, err := s.db.Query(
		`SELECT material_name, material_category, quantity FROM recipe_materials WHERE recipe_id = ? ORDER BY position ASC`,
		recipeID,
	)
	if err != nil {
		return nil, fmt.Errorf("list materials: %w", err)
	}
	defer rows.Close()

	var materials []model.Material
	for rows.Next() {
		var m model.Material
		if err := rows.Scan(&m.Name, &m.Category, &m.Quantity); err != nil {
			return nil, fmt.Errorf("scan material: %w", err)
		}
		materials = append(materials, m)
	}
	return materials, rows.Err()
}
