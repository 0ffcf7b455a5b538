package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/packrat-app/packrat/internal/middleware"
	"github.com/packrat-app/packrat/internal/repo"
)

// AuditHandler serves the current user's asset mutation trail.
type AuditHandler struct {
	Repo *repo.AuditRepo
}

// ListAudit returns recent audit entries for the authenticated user.
// Query: limit (default 50, max 200), offset (default 0).
func (h *AuditHandler) ListAudit(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	limit := 50
	offset := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		if val, err := strconv.Atoi(l); err == nil && val > 0 && val <= 200 {
			limit = val
		}
	}
	if o := r.URL.Query().Get("offset"); o != "" {
		if val, err := strconv.Atoi(o); err == nil && val >= 0 {
			offset = val
		}
	}

	entries, err := h.Repo.List(r.Context(), userID, limit, offset)
	if err != nil {
		slog.Error("list audit failed", "error", err)
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}

	JSONWrite(w, entries, http.StatusOK)
}
