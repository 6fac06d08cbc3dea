package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/guildtools/stockpile/internal/model"
	"github.com/guildtools/stockpile/internal/store"
)

// HistoryHandler exposes the audit ledger: paged queries, counts, the
// scoring-period reset marker, and the full wipe.
type HistoryHandler struct {
	history *store.HistoryStore
	logger  *slog.Logger
}

func NewHistoryHandler(history *store.HistoryStore, logger *slog.Logger) *HistoryHandler {
	return &HistoryHandler{history: history, logger: logger}
}

func historyFilter(r *http.Request) store.HistoryFilter {
	return store.HistoryFilter{
		Domain:   model.Domain(r.URL.Query().Get("domain")),
		Category: r.URL.Query().Get("category"),
		UserName: r.URL.Query().Get("user"),
	}
}

// List returns ledger entries newest first.
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 0)
	skip := queryInt(r, "skip", 0)

	entries, err := h.history.Query(limit, skip, historyFilter(r))
	if err != nil {
		h.logger.Error("query history", "error", err)
		writeError(w, err)
		return
	}
	if entries == nil {
		entries = []model.HistoryEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// Count returns how many retained entries match the filter.
func (h *HistoryHandler) Count(w http.ResponseWriter, r *http.Request) {
	count, err := h.history.Count(historyFilter(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": count})
}

type resetRequest struct {
	actorRef
}

// Reset appends a reset marker, starting a fresh scoring period. The
// marker is a normal ledger row; older entries stay queryable until
// capacity pruning takes them.
func (h *HistoryHandler) Reset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	actor := req.actor()
	entry := model.HistoryEntry{
		TS:       model.HistoryTS(time.Now()),
		Domain:   model.DomainInventory,
		Category: "system",
		ItemName: "scoring",
		Action:   model.ActionReset,
		Details:  "기여도 초기화",
		UserName: actor.Name,
	}
	if err := h.history.Append(entry); err != nil {
		h.logger.Error("append reset marker", "error", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

// Clear wipes the entire ledger.
func (h *HistoryHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.history.Clear(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}
