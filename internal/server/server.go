package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/guildtools/stockpile/internal/backup"
	"github.com/guildtools/stockpile/internal/config"
	"github.com/guildtools/stockpile/internal/handler"
	"github.com/guildtools/stockpile/internal/inventory"
	"github.com/guildtools/stockpile/internal/middleware"
	"github.com/guildtools/stockpile/internal/notify"
	"github.com/guildtools/stockpile/internal/store"
	"github.com/guildtools/stockpile/internal/tags"
)

type Server struct {
	db            *sql.DB
	cfg           config.Config
	hub           *notify.Hub
	itemH         *handler.ItemHandler
	recipeH       *handler.RecipeHandler
	tagH          *handler.TagHandler
	historyH      *handler.HistoryHandler
	leaderboardH  *handler.LeaderboardHandler
	pointsH       *handler.PointsHandler
	backupH       *handler.BackupHandler
	poller        *notify.Poller
	backupManager *backup.Manager
	rateLimiter   *middleware.RateLimiter
	logger        *slog.Logger
}

func New(db *sql.DB, cfg config.Config, logger *slog.Logger) *Server {
	hub := notify.NewHub(logger.With("component", "websocket"))

	itemStore := store.NewItemStore(db)
	recipeStore := store.NewRecipeStore(db)
	historyStore := store.NewHistoryStore(db, cfg.HistoryCapacity)
	tagStore := store.NewTagStore(db)
	settingsStore := store.NewSettingsStore(db)
	pointsStore := store.NewPointsStore(settingsStore)
	backupStore := store.NewBackupStore(db)

	resolver := inventory.NewResolver(recipeStore)
	coordinator := inventory.NewCoordinator(itemStore, resolver, historyStore, hub, logger.With("component", "coordinator"))
	synchronizer := tags.NewSynchronizer(tagStore, itemStore, hub, logger.With("component", "tags"))

	backupCfg := backup.Config{
		S3Endpoint: cfg.Backup.S3Endpoint,
		S3Bucket:   cfg.Backup.S3Bucket,
		S3Region:   cfg.Backup.S3Region,
		S3Access:   cfg.Backup.S3Access,
		S3Secret:   cfg.Backup.S3Secret,
		Passphrase: cfg.Backup.Passphrase,
		DBPath:     cfg.DBPath,
		Interval:   cfg.Backup.Interval,
		Keep:       cfg.Backup.Keep,
	}
	backupMgr := backup.NewManager(backupCfg, db, backupStore, func(s backup.Status) {
		hub.Broadcast(notify.Message{
			Type:   "backup_status",
			Name:   "backup",
			Action: string(s.State),
		})
	}, logger.With("component", "backup"))

	var poller *notify.Poller
	if cfg.PollFallback {
		poller = notify.NewPoller(hub, cfg.PollInterval, logger.With("component", "poller"),
			itemStore, tagStore)
	}

	return &Server{
		db:            db,
		cfg:           cfg,
		hub:           hub,
		itemH:         handler.NewItemHandler(itemStore, coordinator, hub, logger.With("component", "items")),
		recipeH:       handler.NewRecipeHandler(recipeStore, resolver, hub, logger.With("component", "recipes")),
		tagH:          handler.NewTagHandler(synchronizer, tagStore, logger.With("component", "tag_handler")),
		historyH:      handler.NewHistoryHandler(historyStore, logger.With("component", "history")),
		leaderboardH:  handler.NewLeaderboardHandler(historyStore, pointsStore, logger.With("component", "scoring")),
		pointsH:       handler.NewPointsHandler(pointsStore),
		backupH:       handler.NewBackupHandler(backupMgr, logger.With("component", "backup_handler")),
		poller:        poller,
		backupManager: backupMgr,
		rateLimiter:   middleware.NewRateLimiter(),
		logger:        logger,
	}
}

// Poller returns the fallback change poller, nil when disabled.
func (s *Server) Poller() *notify.Poller {
	return s.poller
}

// BackupManager returns the snapshot manager for lifecycle control.
func (s *Server) BackupManager() *backup.Manager {
	return s.backupManager
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes
	outerMux.HandleFunc("GET /health", s.healthHandler)
	outerMux.HandleFunc("GET /ws", notify.Handler(s.hub, s.logger.With("component", "ws_handler")))

	// API routes behind the service token
	apiMux := http.NewServeMux()
	s.registerAPIRoutes(apiMux)

	tokenMiddleware := middleware.RequireToken(s.cfg.TokenSecret)
	outerMux.Handle("/api/", tokenMiddleware(apiMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{"status": "ok", "clients": s.hub.ClientCount()}
	if err := s.db.Ping(); err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{"status": "degraded", "error": err.Error()})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(status)
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, 60, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}

func (s *Server) registerAPIRoutes(mux *http.ServeMux) {
	// Item catalog
	mux.HandleFunc("GET /api/{domain}/items", s.itemH.List)
	mux.HandleFunc("POST /api/{domain}/items", s.rateLimitedHandler(s.itemH.Create))
	mux.HandleFunc("PUT /api/{domain}/items/reorder", s.itemH.Reorder)
	mux.HandleFunc("GET /api/{domain}/items/{category}/{name}", s.itemH.Get)
	mux.HandleFunc("PUT /api/{domain}/items/{category}/{name}", s.itemH.Update)
	mux.HandleFunc("DELETE /api/{domain}/items/{category}/{name}", s.itemH.Delete)

	// Quantity operations
	mux.HandleFunc("POST /api/{domain}/items/{category}/{name}/quantity", s.rateLimitedHandler(s.itemH.AdjustQuantity))
	mux.HandleFunc("PUT /api/{domain}/items/{category}/{name}/quantity", s.rateLimitedHandler(s.itemH.SetQuantity))
	mux.HandleFunc("PUT /api/{domain}/items/{category}/{name}/required", s.rateLimitedHandler(s.itemH.SetRequired))

	// Workers
	mux.HandleFunc("POST /api/{domain}/items/{category}/{name}/workers", s.itemH.AddWorker)
	mux.HandleFunc("DELETE /api/{domain}/items/{category}/{name}/workers/{user_id}", s.itemH.RemoveWorker)

	// Recipe catalog
	mux.HandleFunc("GET /api/recipes", s.recipeH.List)
	mux.HandleFunc("GET /api/recipes/{category}/{name}", s.recipeH.Get)
	mux.HandleFunc("PUT /api/recipes/{category}/{name}", s.recipeH.Upsert)
	mux.HandleFunc("DELETE /api/recipes/{category}/{name}", s.recipeH.Delete)

	// Tags
	mux.HandleFunc("GET /api/tags/search", s.tagH.Search)
	mux.HandleFunc("POST /api/tags/cleanup", s.tagH.Cleanup)
	mux.HandleFunc("GET /api/{domain}/tags/{category}", s.tagH.List)
	mux.HandleFunc("POST /api/{domain}/tags/{category}", s.tagH.Create)
	mux.HandleFunc("DELETE /api/{domain}/tags/{category}/{tag}", s.tagH.Delete)
	mux.HandleFunc("POST /api/{domain}/tags/{category}/{tag}/items", s.tagH.AddItems)
	mux.HandleFunc("POST /api/{domain}/tags/{category}/{tag}/items/remove", s.tagH.RemoveItems)
	mux.HandleFunc("POST /api/{domain}/tags/{category}/{tag}/merge", s.tagH.Merge)
	mux.HandleFunc("PUT /api/{domain}/tags/{category}/{tag}/color", s.tagH.SetColor)

	// History ledger
	mux.HandleFunc("GET /api/history", s.historyH.List)
	mux.HandleFunc("GET /api/history/count", s.historyH.Count)
	mux.HandleFunc("POST /api/history/reset", s.historyH.Reset)
	mux.HandleFunc("DELETE /api/history", s.historyH.Clear)

	// Scoring
	mux.HandleFunc("GET /api/leaderboard", s.leaderboardH.Leaderboard)
	mux.HandleFunc("GET /api/points", s.pointsH.Get)
	mux.HandleFunc("PUT /api/points", s.pointsH.Set)

	// Backups
	mux.HandleFunc("GET /api/backup/status", s.backupH.Status)
	mux.HandleFunc("GET /api/backup/history", s.backupH.List)
	mux.HandleFunc("POST /api/backup/now", s.backupH.Now)
}
