package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/asperguide/catfeeder-backend/pkg/sql"
)

// listingPool replays a fixed table listing.
type listingPool struct {
	rows []sql.Row
}

func (p *listingPool) RunAndFetchAll(context.Context, string, []any) ([]sql.Row, error) {
	return p.rows, nil
}

func (p *listingPool) RunEditingCommand(context.Context, string, []any) int {
	return sql.Success
}

func (p *listingPool) IsPoolActive() bool { return true }

func newTestTablesHandler(pool sql.Pool) *TablesHandler {
	boilerplate := sql.NewQueryBoilerplates(pool, zap.NewNop())
	orchestrator := sql.NewCacheOrchestrator(boilerplate, nil, "test:sql", zap.NewNop())
	return NewTablesHandler(orchestrator, zap.NewNop())
}

func TestTablesHandler_ListTables(t *testing.T) {
	handler := newTestTablesHandler(&listingPool{rows: []sql.Row{
		{"Tables_in_catfeeder": "cats"},
		{"Tables_in_catfeeder": "feeders"},
	}})

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodGet, "/tables", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var response map[string][]string
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	tables := response["tables"]
	if len(tables) != 2 || tables[0] != "cats" || tables[1] != "feeders" {
		t.Errorf("tables = %v", tables)
	}
}

func TestTablesHandler_HostileTableNameRejected(t *testing.T) {
	handler := newTestTablesHandler(&listingPool{})

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodGet, "/tables/cats%3B%20DROP%20TABLE%20cats/size", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
}
