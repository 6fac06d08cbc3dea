package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/guildtools/stockpile/internal/model"
	"github.com/guildtools/stockpile/internal/store"
	"github.com/guildtools/stockpile/internal/tags"
)

// TagHandler exposes tag management. All membership changes go through
// the synchronizer so scope exclusivity and linked-item mirroring hold.
type TagHandler struct {
	sync   *tags.Synchronizer
	tags   *store.TagStore
	logger *slog.Logger
}

func NewTagHandler(sync *tags.Synchronizer, tagStore *store.TagStore, logger *slog.Logger) *TagHandler {
	return &TagHandler{sync: sync, tags: tagStore, logger: logger}
}

func (h *TagHandler) List(w http.ResponseWriter, r *http.Request) {
	domain, ok := pathDomain(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid domain"})
		return
	}

	list, err := h.tags.ListScope(domain, r.PathValue("category"))
	if err != nil {
		h.logger.Error("list tags", "error", err)
		writeError(w, err)
		return
	}
	if list == nil {
		list = []model.Tag{}
	}
	writeJSON(w, http.StatusOK, list)
}

type createTagRequest struct {
	Name  string         `json:"name"`
	Color model.TagColor `json:"color"`
}

func (h *TagHandler) Create(w http.ResponseWriter, r *http.Request) {
	domain, ok := pathDomain(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid domain"})
		return
	}

	var req createTagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}
	if req.Color == "" {
		req.Color = model.ColorGray
	}

	tag, err := h.sync.CreateTag(domain, r.PathValue("category"), req.Name, req.Color)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tag)
}

type tagItemsRequest struct {
	Items []string `json:"items"`
	Move  *bool    `json:"move"`
}

func (h *TagHandler) AddItems(w http.ResponseWriter, r *http.Request) {
	domain, ok := pathDomain(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid domain"})
		return
	}

	var req tagItemsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if len(req.Items) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "items are required"})
		return
	}

	// Exclusivity moves are the default; opting out keeps duplicates.
	move := true
	if req.Move != nil {
		move = *req.Move
	}

	res, err := h.sync.AddItems(domain, r.PathValue("category"), r.PathValue("tag"), req.Items, move)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *TagHandler) RemoveItems(w http.ResponseWriter, r *http.Request) {
	domain, ok := pathDomain(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid domain"})
		return
	}

	var req tagItemsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if len(req.Items) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "items are required"})
		return
	}

	removed, err := h.sync.RemoveItems(domain, r.PathValue("category"), r.PathValue("tag"), req.Items)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

func (h *TagHandler) Delete(w http.ResponseWriter, r *http.Request) {
	domain, ok := pathDomain(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid domain"})
		return
	}

	removed, err := h.sync.DeleteTag(domain, r.PathValue("category"), r.PathValue("tag"))
	if err != nil {
		writeError(w, err)
		return
	}
	if !removed {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "tag not found"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type mergeTagsRequest struct {
	Target string `json:"target"`
}

func (h *TagHandler) Merge(w http.ResponseWriter, r *http.Request) {
	domain, ok := pathDomain(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid domain"})
		return
	}

	var req mergeTagsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if req.Target == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "target is required"})
		return
	}

	merged, err := h.sync.MergeTags(domain, r.PathValue("category"), r.PathValue("tag"), req.Target)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, merged)
}

type setColorRequest struct {
	Color model.TagColor `json:"color"`
}

func (h *TagHandler) SetColor(w http.ResponseWriter, r *http.Request) {
	domain, ok := pathDomain(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid domain"})
		return
	}

	var req setColorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	if err := h.sync.SetColor(domain, r.PathValue("category"), r.PathValue("tag"), req.Color); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *TagHandler) Cleanup(w http.ResponseWriter, r *http.Request) {
	pruned, err := h.sync.CleanupEmptyTags()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"pruned": pruned})
}

func (h *TagHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "q is required"})
		return
	}

	matched, err := h.sync.Search(q)
	if err != nil {
		writeError(w, err)
		return
	}
	if matched == nil {
		matched = []model.Tag{}
	}
	writeJSON(w, http.StatusOK, matched)
}
