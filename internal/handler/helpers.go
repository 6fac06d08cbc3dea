package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/guildtools/stockpile/internal/inventory"
	"github.com/guildtools/stockpile/internal/model"
	"github.com/guildtools/stockpile/internal/store"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps the store and inventory error taxonomy onto HTTP
// statuses: missing 404, duplicate key 409, bad input 400, recipe
// cycle 422, anything else 500.
func writeError(w http.ResponseWriter, err error) {
	var cycleErr *inventory.CycleError
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, store.ErrConflict):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, store.ErrValidation):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.As(err, &cycleErr):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": cycleErr.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

// pathDomain reads and validates the {domain} path value.
func pathDomain(r *http.Request) (model.Domain, bool) {
	d := model.Domain(r.PathValue("domain"))
	return d, d.Valid()
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

// actorRef carries the requesting user in mutation request bodies.
type actorRef struct {
	UserID   string `json:"user_id"`
	UserName string `json:"user_name"`
}

func (a actorRef) actor() inventory.Actor {
	name := a.UserName
	if name == "" {
		name = "anonymous"
	}
	return inventory.Actor{ID: a.UserID, Name: name}
}
