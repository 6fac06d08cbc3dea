package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/guildtools/stockpile/internal/model"
	"github.com/guildtools/stockpile/internal/store"
)

// PointsHandler exposes the per-item contribution multipliers.
type PointsHandler struct {
	points *store.PointsStore
}

func NewPointsHandler(points *store.PointsStore) *PointsHandler {
	return &PointsHandler{points: points}
}

func (h *PointsHandler) Get(w http.ResponseWriter, r *http.Request) {
	points, err := h.points.Load()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, points)
}

type setPointsRequest struct {
	Domain     model.Domain `json:"domain"`
	Category   string       `json:"category"`
	Name       string       `json:"name"`
	Multiplier int          `json:"multiplier"`
}

func (h *PointsHandler) Set(w http.ResponseWriter, r *http.Request) {
	var req setPointsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if !req.Domain.Valid() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid domain"})
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Category == "" || req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "category and name are required"})
		return
	}

	if err := h.points.Set(req.Domain, req.Category, req.Name, req.Multiplier); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}
