package handlers

import (
	"net/http"
	"strings"
	"time"

	"props-bible/core/store"
)

type LogsHandler struct {
	audits store.AuditStore
}

func NewLogsHandler(audits store.AuditStore) *LogsHandler {
	return &LogsHandler{audits: audits}
}

// List returns the audit trail, newest first. ?since=RFC3339, ?user, ?action (prefix) and
// ?limit narrow it.
func (h *LogsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.AuditFilter{
		Username:     q.Get("user"),
		ActionPrefix: q.Get("action"),
		Limit:        parseIntDefault(q.Get("limit"), 200),
	}
	if raw := strings.TrimSpace(q.Get("since")); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		f.Since = since
	}
	items, err := h.audits.List(r.Context(), f)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}
