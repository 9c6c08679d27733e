package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"munin/internal/auth"
	"munin/internal/merge"
)

type MergeHandler struct {
	Sched *merge.Scheduler
}

// MergeNow force-merges the caller's current-day journal, the /end command
// path. Informational outcomes (nothing to merge, already published) come
// back as 200 with a status the front end can phrase.
func (h *MergeHandler) MergeNow(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	ref, err := h.Sched.ForceMergeNow(r.Context(), uid)

	w.Header().Set("Content-Type", "application/json")
	switch {
	case err == nil:
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "published",
			"id":     ref.ID,
			"url":    ref.URL,
		})
	case errors.Is(err, merge.ErrNothingToMerge):
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "nothing_to_merge"})
	case errors.Is(err, merge.ErrAlreadyPublished):
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "already_published"})
	case errors.Is(err, merge.ErrMergeInProgress):
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "in_progress"})
	default:
		var remote *merge.RemoteArchiveError
		if errors.As(err, &remote) {
			w.WriteHeader(http.StatusBadGateway)
			_ = json.NewEncoder(w).Encode(map[string]any{"status": "merge_failed"})
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "error"})
	}
}
