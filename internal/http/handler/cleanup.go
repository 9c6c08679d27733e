package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"munin/internal/auth"
	"munin/internal/retention"
)

type CleanupHandler struct {
	Cleaner *retention.Cleaner
}

type cleanupReq struct {
	// Days is a number of days to keep, or "all" to drop every published
	// journal (mirrors the /config cleanup command).
	Days string `json:"days"`
}

// Cleanup deletes the caller's published journals outside the requested
// retention window. Unpublished journals are never touched.
func (h *CleanupHandler) Cleanup(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	var req cleanupReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}

	days := retention.KeepAll
	if v := strings.ToLower(strings.TrimSpace(req.Days)); v != "all" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, `days must be a non-negative number or "all"`, http.StatusBadRequest)
			return
		}
		days = n
	}

	deleted, err := h.Cleaner.Cleanup(r.Context(), uid, days)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"deleted": deleted})
}

// Stats reports what a cleanup would reclaim.
func (h *CleanupHandler) Stats(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	st, err := h.Cleaner.Stats(r.Context(), uid)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"published_journals": st.PublishedJournals,
		"oldest_date":        st.OldestDate,
		"approx_bytes":       st.ApproxBytes,
	})
}
