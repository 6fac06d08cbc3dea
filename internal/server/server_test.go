package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/guildtools/stockpile/internal/config"
	"github.com/guildtools/stockpile/internal/database"
	"github.com/guildtools/stockpile/internal/logging"
	"github.com/guildtools/stockpile/internal/model"
)

func setupTestServer(t *testing.T) http.Handler {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := config.Config{
		Port:            "0",
		HistoryCapacity: 100,
	}
	srv := New(db, cfg, logging.Setup("error"))
	return srv.Router()
}

func doJSON(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	router := setupTestServer(t)

	rec := doJSON(t, router, "GET", "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestItemLifecycleOverHTTP(t *testing.T) {
	router := setupTestServer(t)

	rec := doJSON(t, router, "POST", "/api/inventory/items",
		`{"category":"재료","name":"목재","quantity":5,"user_name":"민수"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body.String())
	}

	// Duplicate key conflicts.
	rec = doJSON(t, router, "POST", "/api/inventory/items",
		`{"category":"재료","name":"목재"}`)
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate status = %d, want 409", rec.Code)
	}

	// Clamped adjustment over HTTP.
	rec = doJSON(t, router, "POST", "/api/inventory/items/재료/목재/quantity",
		`{"delta":-8,"user_name":"민수"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("adjust status = %d: %s", rec.Code, rec.Body.String())
	}
	var item model.Item
	if err := json.Unmarshal(rec.Body.Bytes(), &item); err != nil {
		t.Fatalf("decode item: %v", err)
	}
	if item.Quantity != 0 {
		t.Errorf("quantity = %d, want clamped 0", item.Quantity)
	}

	// Fractional deltas are rejected.
	rec = doJSON(t, router, "POST", "/api/inventory/items/재료/목재/quantity",
		`{"delta":1.5}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("fractional delta status = %d, want 400", rec.Code)
	}

	// Missing item is 404.
	rec = doJSON(t, router, "GET", "/api/inventory/items/재료/없음", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing item status = %d, want 404", rec.Code)
	}

	// The adjustment landed in the ledger.
	rec = doJSON(t, router, "GET", "/api/history", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("history status = %d", rec.Code)
	}
	var entries []model.HistoryEntry
	if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(entries) == 0 || entries[0].Delta == nil || *entries[0].Delta != -5 {
		t.Errorf("history = %+v, want applied delta -5 on top", entries)
	}
}

func TestItemCreateAndDeleteAreLogged(t *testing.T) {
	router := setupTestServer(t)

	rec := doJSON(t, router, "POST", "/api/inventory/items",
		`{"category":"재료","name":"가죽","quantity":25,"user_name":"하늘"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, router, "GET", "/api/history", "")
	var entries []model.HistoryEntry
	if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("history rows after create = %d, want 1", len(entries))
	}
	e := entries[0]
	if e.Action != model.ActionAdd || e.Details != "초기: 25개" {
		t.Errorf("entry = %+v, want add with 초기: 25개", e)
	}
	if e.Delta == nil || *e.Delta != 25 {
		t.Errorf("delta = %v, want 25", e.Delta)
	}

	// The initial quantity scores for the creator.
	rec = doJSON(t, router, "GET", "/api/leaderboard", "")
	var ranked []struct {
		UserName string `json:"user_name"`
		Total    int64  `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &ranked); err != nil {
		t.Fatalf("decode leaderboard: %v", err)
	}
	if len(ranked) != 1 || ranked[0].UserName != "하늘" || ranked[0].Total != 25 {
		t.Errorf("leaderboard = %+v, want 하늘 with 25", ranked)
	}

	rec = doJSON(t, router, "DELETE", "/api/inventory/items/재료/가죽",
		`{"user_name":"하늘"}`)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, router, "GET", "/api/history", "")
	entries = nil
	if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(entries) != 2 || entries[0].Action != model.ActionRemove {
		t.Errorf("history after delete = %+v, want remove on top", entries)
	}
}

func TestRecipeCycleRejectedOverHTTP(t *testing.T) {
	router := setupTestServer(t)

	rec := doJSON(t, router, "PUT", "/api/recipes/재료/강철괴",
		`{"materials":[{"name":"강철괴","category":"재료","quantity":1}]}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("cycle status = %d, want 422: %s", rec.Code, rec.Body.String())
	}
}

func TestInvalidDomainRejected(t *testing.T) {
	router := setupTestServer(t)

	rec := doJSON(t, router, "GET", "/api/warehouse/items", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestLeaderboardOverHTTP(t *testing.T) {
	router := setupTestServer(t)

	doJSON(t, router, "POST", "/api/inventory/items",
		`{"category":"재료","name":"목재","user_name":"민수"}`)
	doJSON(t, router, "POST", "/api/inventory/items/재료/목재/quantity",
		`{"delta":10,"user_name":"민수"}`)

	rec := doJSON(t, router, "GET", "/api/leaderboard", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("leaderboard status = %d", rec.Code)
	}

	var ranked []struct {
		UserName string `json:"user_name"`
		Total    int64  `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &ranked); err != nil {
		t.Fatalf("decode leaderboard: %v", err)
	}
	if len(ranked) != 1 || ranked[0].UserName != "민수" || ranked[0].Total != 10 {
		t.Errorf("leaderboard = %+v", ranked)
	}
}

func TestBackupStatusDisabled(t *testing.T) {
	router := setupTestServer(t)

	rec := doJSON(t, router, "GET", "/api/backup/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "disabled") {
		t.Errorf("body = %s, want disabled state", rec.Body.String())
	}

	rec = doJSON(t, router, "POST", "/api/backup/now", "")
	if rec.Code != http.StatusConflict {
		t.Errorf("backup now status = %d, want 409 when unconfigured", rec.Code)
	}
}
