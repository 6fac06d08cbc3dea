package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/guildtools/stockpile/internal/inventory"
	"github.com/guildtools/stockpile/internal/model"
	"github.com/guildtools/stockpile/internal/store"
)

// RecipeHandler exposes the crafting recipe catalog. Every save runs
// the cycle check first so a recipe can never make an item a transitive
// material of itself.
type RecipeHandler struct {
	recipes  *store.RecipeStore
	resolver *inventory.Resolver
	notifier inventory.Notifier
	logger   *slog.Logger
}

func NewRecipeHandler(recipes *store.RecipeStore, resolver *inventory.Resolver, notifier inventory.Notifier, logger *slog.Logger) *RecipeHandler {
	return &RecipeHandler{recipes: recipes, resolver: resolver, notifier: notifier, logger: logger}
}

func (h *RecipeHandler) List(w http.ResponseWriter, r *http.Request) {
	recipes, err := h.recipes.List(r.URL.Query().Get("category"))
	if err != nil {
		h.logger.Error("list recipes", "error", err)
		writeError(w, err)
		return
	}
	if recipes == nil {
		recipes = []model.Recipe{}
	}
	writeJSON(w, http.StatusOK, recipes)
}

func (h *RecipeHandler) Get(w http.ResponseWriter, r *http.Request) {
	recipe, err := h.recipes.Get(r.PathValue("category"), r.PathValue("name"))
	if err != nil {
		writeError(w, err)
		return
	}
	if recipe == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "recipe not found"})
		return
	}
	writeJSON(w, http.StatusOK, recipe)
}

type upsertRecipeRequest struct {
	actorRef
	Materials []model.Material `json:"materials"`
}

func (h *RecipeHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	category := r.PathValue("category")
	name := r.PathValue("name")

	var req upsertRecipeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	for i := range req.Materials {
		req.Materials[i].Name = strings.TrimSpace(req.Materials[i].Name)
		if req.Materials[i].Name == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "material name is required"})
			return
		}
		if req.Materials[i].Category == "" {
			req.Materials[i].Category = category
		}
		if req.Materials[i].Quantity <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "material quantity must be positive"})
			return
		}
	}

	if err := h.resolver.ValidateAcyclic(category, name, req.Materials); err != nil {
		writeError(w, err)
		return
	}

	recipe, err := h.recipes.Upsert(category, name, req.Materials)
	if err != nil {
		writeError(w, err)
		return
	}

	h.notifier.NotifyChange(model.DomainCrafting, category, name, "recipe_updated")
	writeJSON(w, http.StatusOK, recipe)
}

func (h *RecipeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	category, name := r.PathValue("category"), r.PathValue("name")

	removed, err := h.recipes.Remove(category, name)
	if err != nil {
		writeError(w, err)
		return
	}
	if !removed {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "recipe not found"})
		return
	}

	h.notifier.NotifyChange(model.DomainCrafting, category, name, "recipe_deleted")
	w.WriteHeader(http.StatusNoContent)
}
