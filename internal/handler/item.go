package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/guildtools/stockpile/internal/inventory"
	"github.com/guildtools/stockpile/internal/model"
	"github.com/guildtools/stockpile/internal/store"
)

// ItemHandler exposes the item catalog: CRUD, display order, workers,
// and the quantity operations that run through the coordinator.
type ItemHandler struct {
	items       *store.ItemStore
	coordinator *inventory.Coordinator
	notifier    inventory.Notifier
	logger      *slog.Logger
}

func NewItemHandler(items *store.ItemStore, coordinator *inventory.Coordinator, notifier inventory.Notifier, logger *slog.Logger) *ItemHandler {
	return &ItemHandler{items: items, coordinator: coordinator, notifier: notifier, logger: logger}
}

func (h *ItemHandler) List(w http.ResponseWriter, r *http.Request) {
	domain, ok := pathDomain(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid domain"})
		return
	}

	items, err := h.items.List(domain, r.URL.Query().Get("category"))
	if err != nil {
		h.logger.Error("list items", "error", err)
		writeError(w, err)
		return
	}
	if items == nil {
		items = []model.Item{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *ItemHandler) Get(w http.ResponseWriter, r *http.Request) {
	domain, ok := pathDomain(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid domain"})
		return
	}

	item, err := h.items.Get(domain, r.PathValue("category"), r.PathValue("name"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

type createItemRequest struct {
	actorRef
	Category string           `json:"category"`
	Name     string           `json:"name"`
	Quantity int64            `json:"quantity"`
	Required int64            `json:"required"`
	Type     model.ItemType   `json:"item_type"`
	Tier     *int             `json:"tier"`
	Emoji    string           `json:"emoji"`
	Linked   *model.LinkedRef `json:"linked"`
}

func (h *ItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	domain, ok := pathDomain(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid domain"})
		return
	}

	var req createItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Category = strings.TrimSpace(req.Category)
	if req.Name == "" || req.Category == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "category and name are required"})
		return
	}
	if req.Type == "" {
		req.Type = model.TypeMaterial
	}
	if !req.Type.Valid() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid item_type"})
		return
	}
	if req.Quantity < 0 {
		req.Quantity = 0
	}
	if req.Required < 0 {
		req.Required = 0
	}

	item, err := h.items.Add(model.Item{
		Domain:   domain,
		Category: req.Category,
		Name:     req.Name,
		Quantity: req.Quantity,
		Required: req.Required,
		Type:     req.Type,
		Tier:     req.Tier,
		Emoji:    req.Emoji,
		Linked:   req.Linked,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	h.coordinator.RecordCreation(item, req.actor())
	writeJSON(w, http.StatusCreated, item)
}

type updateItemRequest struct {
	actorRef
	Name        *string          `json:"name"`
	Emoji       *string          `json:"emoji"`
	Type        *model.ItemType  `json:"item_type"`
	Tier        *int             `json:"tier"`
	Linked      *model.LinkedRef `json:"linked"`
	ClearLinked bool             `json:"clear_linked"`
}

func (h *ItemHandler) Update(w http.ResponseWriter, r *http.Request) {
	domain, ok := pathDomain(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid domain"})
		return
	}

	var req updateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if req.Type != nil && !req.Type.Valid() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid item_type"})
		return
	}

	item, err := h.items.UpdateDetails(domain, r.PathValue("category"), r.PathValue("name"), store.ItemUpdate{
		Name:        req.Name,
		Emoji:       req.Emoji,
		Type:        req.Type,
		Tier:        req.Tier,
		Linked:      req.Linked,
		ClearLinked: req.ClearLinked,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	h.notifier.NotifyChange(domain, item.Category, item.Name, model.ActionUpdateQuantity)
	writeJSON(w, http.StatusOK, item)
}

func (h *ItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
	domain, ok := pathDomain(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid domain"})
		return
	}

	// Deletes carry the actor in an optional body.
	var req struct{ actorRef }
	_ = json.NewDecoder(r.Body).Decode(&req)

	category, name := r.PathValue("category"), r.PathValue("name")
	removed, err := h.items.Remove(domain, category, name)
	if err != nil {
		writeError(w, err)
		return
	}
	if !removed {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "item not found"})
		return
	}

	h.coordinator.RecordRemoval(domain, category, name, req.actor())
	w.WriteHeader(http.StatusNoContent)
}

type reorderRequest struct {
	Category string         `json:"category"`
	Order    map[string]int `json:"order"`
}

func (h *ItemHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	domain, ok := pathDomain(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid domain"})
		return
	}

	var req reorderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if req.Category == "" || len(req.Order) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "category and order are required"})
		return
	}

	if err := h.items.Reorder(domain, req.Category, req.Order); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reordered"})
}

type quantityRequest struct {
	actorRef
	Delta         *float64 `json:"delta"`
	Value         *float64 `json:"value"`
	SyncMaterials *bool    `json:"sync_materials"`
	SyncLinked    *bool    `json:"sync_linked"`
	Action        string   `json:"action"`
	Details       string   `json:"details"`
}

func (r quantityRequest) options() inventory.Options {
	opts := inventory.DefaultOptions()
	if r.SyncMaterials != nil {
		opts.SyncMaterials = *r.SyncMaterials
	}
	if r.SyncLinked != nil {
		opts.SyncLinked = *r.SyncLinked
	}
	opts.Action = r.Action
	opts.Details = r.Details
	return opts
}

// AdjustQuantity applies a signed delta through the coordinator.
func (h *ItemHandler) AdjustQuantity(w http.ResponseWriter, r *http.Request) {
	domain, ok := pathDomain(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid domain"})
		return
	}

	var req quantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if req.Delta == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "delta is required"})
		return
	}

	item, err := h.coordinator.ApplyDelta(domain, r.PathValue("category"), r.PathValue("name"), *req.Delta, req.actor(), req.options())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// SetQuantity stores an absolute quantity through the coordinator.
func (h *ItemHandler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	domain, ok := pathDomain(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid domain"})
		return
	}

	var req quantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if req.Value == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "value is required"})
		return
	}

	item, err := h.coordinator.SetAbsolute(domain, r.PathValue("category"), r.PathValue("name"), *req.Value, req.actor(), req.options())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// SetRequired stores an item's target quantity.
func (h *ItemHandler) SetRequired(w http.ResponseWriter, r *http.Request) {
	domain, ok := pathDomain(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid domain"})
		return
	}

	var req quantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if req.Value == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "value is required"})
		return
	}

	item, err := h.coordinator.SetRequired(domain, r.PathValue("category"), r.PathValue("name"), *req.Value, req.actor(), req.options())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

type workerRequest struct {
	actorRef
}

// AddWorker registers the requesting user as working on the item.
func (h *ItemHandler) AddWorker(w http.ResponseWriter, r *http.Request) {
	domain, ok := pathDomain(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid domain"})
		return
	}

	var req workerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if req.UserID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "user_id is required"})
		return
	}

	item, err := h.items.AddWorker(domain, r.PathValue("category"), r.PathValue("name"), model.Worker{
		UserID:    req.UserID,
		UserName:  req.UserName,
		StartedAt: time.Now().UTC(),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	h.notifier.NotifyChange(domain, item.Category, item.Name, "worker_added")
	writeJSON(w, http.StatusOK, item)
}

// RemoveWorker drops the named user from the item's worker set.
func (h *ItemHandler) RemoveWorker(w http.ResponseWriter, r *http.Request) {
	domain, ok := pathDomain(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid domain"})
		return
	}

	item, err := h.items.RemoveWorker(domain, r.PathValue("category"), r.PathValue("name"), r.PathValue("user_id"))
	if err != nil {
		writeError(w, err)
		return
	}

	h.notifier.NotifyChange(domain, item.Category, item.Name, "worker_removed")
	writeJSON(w, http.StatusOK, item)
}
