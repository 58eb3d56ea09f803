package handler

import (
	"log/slog"
	"net/http"

	"github.com/pitstopcrm/gateway/internal/model"
	"github.com/pitstopcrm/gateway/internal/server/middleware"
	"github.com/pitstopcrm/gateway/internal/store"
)

// AuditHandler lets account owners page through their request history.
type AuditHandler struct {
	store  *store.Store
	logger *slog.Logger
}

func NewAuditHandler(st *store.Store, logger *slog.Logger) *AuditHandler {
	return &AuditHandler{store: st, logger: logger}
}

// List returns a page of the account's audit records, newest first.
// Query parameters: page (1-based), limit (max 200).
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	accountID := middleware.GetAccountID(r.Context())

	page := queryInt(r, "page", 1)
	if page < 1 {
		page = 1
	}
	limit := clampInt(queryInt(r, "limit", 50), 1, 200)

	entries, total, err := h.store.ListAuditEntries(r.Context(), accountID, limit, (page-1)*limit)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, model.NewList(entries, page, limit, total))
}
