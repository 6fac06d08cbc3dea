package inventory

import (
	"github.com/guildtools/stockpile/internal/model"
	"github.com/guildtools/stockpile/internal/store"
)

// Resolver is a read-only view over the recipe catalog plus the cycle
// check that guards every recipe save.
type Resolver struct {
	recipes *store.RecipeStore
}

func NewResolver(recipes *store.RecipeStore) *Resolver {
	return &Resolver{recipes: recipes}
}

// Resolve returns the material list for (category, resultName), or nil
// when the result has no recipe. Pure read, no side effects.
func (r *Resolver) Resolve(category, resultName string) ([]model.Material, error) {
	recipe, err := r.recipes.Get(category, resultName)
	if err != nil {
		return nil, err
	}
	if recipe == nil {
		return nil, nil
	}
	return recipe.Materials, nil
}

// ValidateAcyclic walks the transitive material graph of a prospective
// recipe and fails with CycleError if (category, resultName) reappears
// anywhere downstream. Must run before every recipe upsert; the
// coordinator's runtime visited-set guard only backs this up.
func (r *Resolver) ValidateAcyclic(category, resultName string, materials []model.Material) error {
	target := recipeKey{category: category, name: resultName}
	seen := map[recipeKey]bool{target: true}
	path := []string{resultName}
	return r.walk(target, materials, seen, path)
}

type recipeKey struct {
	category string
	name     string
}

func (r *Resolver) walk(target recipeKey, materials []model.Material, seen map[recipeKey]bool, path []string) error {
	for _, m := range materials {
		key := recipeKey{category: m.Category, name: m.Name}
		if key == target {
			return &CycleError{
				Category:   target.category,
				ResultName: target.name,
				Path:       append(append([]string{}, path...), m.Name),
			}
		}
		if seen[key] {
			// Shared subtree, already cleared.
			continue
		}
		seen[key] = true

		sub, err := r.Resolve(m.Category, m.Name)
		if err != nil {
			return err
		}
		if len(sub) == 0 {
			continue
		}
		if err := r.walk(target, sub, seen, append(path, m.Name)); err != nil {
			return err
		}
	}
	return nil
}
