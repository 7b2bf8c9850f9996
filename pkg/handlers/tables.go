package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/asperguide/catfeeder-backend/pkg/sql"
)

// TablesHandler exposes read-only schema information through the cache
// orchestrator.
type TablesHandler struct {
	orchestrator *sql.CacheOrchestrator
	logger       *zap.Logger
}

// NewTablesHandler creates a new TablesHandler.
func NewTablesHandler(orchestrator *sql.CacheOrchestrator, logger *zap.Logger) *TablesHandler {
	return &TablesHandler{orchestrator: orchestrator, logger: logger}
}

// RegisterRoutes registers the handler's routes on the given mux.
func (h *TablesHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /tables", h.ListTables)
	mux.HandleFunc("GET /tables/{table}/columns", h.ListColumns)
	mux.HandleFunc("GET /tables/{table}/size", h.TableSize)
}

// ListTables handles GET /tables requests.
func (h *TablesHandler) ListTables(w http.ResponseWriter, r *http.Request) {
	names, status := h.orchestrator.GetTableNames(r.Context())
	if status != sql.Success {
		_ = ErrorResponse(w, http.StatusInternalServerError, "tables_unavailable",
			"could not list tables")
		return
	}
	if err := WriteJSON(w, http.StatusOK, map[string][]string{"tables": names}); err != nil {
		h.logger.Error("Failed to encode tables response", zap.Error(err))
	}
}

// ListColumns handles GET /tables/{table}/columns requests. Hostile table
// names are rejected by the orchestrator's validation layer.
func (h *TablesHandler) ListColumns(w http.ResponseWriter, r *http.Request) {
	table := r.PathValue("table")
	columns, status := h.orchestrator.GetTableColumnNames(r.Context(), table)
	if status != sql.Success {
		_ = ErrorResponse(w, http.StatusBadRequest, "columns_unavailable",
			"could not list columns for table")
		return
	}
	if err := WriteJSON(w, http.StatusOK, map[string][]string{"columns": columns}); err != nil {
		h.logger.Error("Failed to encode columns response", zap.Error(err))
	}
}

// TableSize handles GET /tables/{table}/size requests.
func (h *TablesHandler) TableSize(w http.ResponseWriter, r *http.Request) {
	table := r.PathValue("table")
	size := h.orchestrator.GetTableSize(r.Context(), table, nil, nil)
	if size == sql.GetTableSizeError {
		_ = ErrorResponse(w, http.StatusBadRequest, "size_unavailable",
			"could not count rows for table")
		return
	}
	if err := WriteJSON(w, http.StatusOK, map[string]int64{"size": size}); err != nil {
		h.logger.Error("Failed to encode size response", zap.Error(err))
	}
}
