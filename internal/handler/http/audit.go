package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/vaultkeeper/vaultkeeper/internal/utils"
	"github.com/vaultkeeper/vaultkeeper/models"
)

const defaultAuditPageSize = 100

// auditLog returns the caller's own audit trail, newest first. The actor
// filter is pinned to the authenticated user; action, resource_type, since,
// until, limit and offset narrow the page.
func (h *Handler) auditLog(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()

	filter := models.AuditFilter{
		ActorID:      &userID,
		Action:       q.Get("action"),
		ResourceType: q.Get("resource_type"),
		Limit:        defaultAuditPageSize,
	}

	if raw := q.Get("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			http.Error(w, "invalid since timestamp", http.StatusBadRequest)
			return
		}
		filter.Since = &since
	}
	if raw := q.Get("until"); raw != "" {
		until, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			http.Error(w, "invalid until timestamp", http.StatusBadRequest)
			return
		}
		filter.Until = &until
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || limit == 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		filter.Limit = limit
	}
	if raw := q.Get("offset"); raw != "" {
		offset, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			http.Error(w, "invalid offset", http.StatusBadRequest)
			return
		}
		filter.Offset = offset
	}

	records, err := h.services.AuditSink.Query(ctx, filter)
	if err != nil {
		respondError(w, r, err)
		return
	}

	utils.WriteJSON(w, records, http.StatusOK)
}
