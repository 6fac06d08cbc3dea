package handler

import (
	"log/slog"
	"net/http"

	"github.com/guildtools/stockpile/internal/model"
	"github.com/guildtools/stockpile/internal/scoring"
	"github.com/guildtools/stockpile/internal/store"
)

// LeaderboardHandler scores the current period of the ledger and
// serves ranked contributions.
type LeaderboardHandler struct {
	history *store.HistoryStore
	points  *store.PointsStore
	logger  *slog.Logger
}

func NewLeaderboardHandler(history *store.HistoryStore, points *store.PointsStore, logger *slog.Logger) *LeaderboardHandler {
	return &LeaderboardHandler{history: history, points: points, logger: logger}
}

func (h *LeaderboardHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := h.history.Query(0, 0, store.HistoryFilter{})
	if err != nil {
		h.logger.Error("query history for scoring", "error", err)
		writeError(w, err)
		return
	}

	points, err := h.points.Load()
	if err != nil {
		h.logger.Error("load points", "error", err)
		writeError(w, err)
		return
	}

	opts := scoring.Options{Domain: model.Domain(r.URL.Query().Get("domain"))}
	if opts.Domain != "" && !opts.Domain.Valid() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid domain"})
		return
	}

	contributions := scoring.Score(scoring.CurrentPeriod(entries), points, opts)
	ranked := scoring.TopN(contributions, queryInt(r, "n", 0))
	writeJSON(w, http.StatusOK, ranked)
}
