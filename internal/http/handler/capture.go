package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"munin/internal/auth"
	"munin/internal/journal"
)

type CaptureHandler struct {
	Acc *journal.Accumulator
}

type captureReq struct {
	MessageID string   `json:"message_id"`
	Text      string   `json:"text"`
	ImageRefs []string `json:"image_refs"`
}

type captureResp struct {
	EntryID uint64   `json:"entry_id"`
	Seq     int64    `json:"seq"`
	Tags    []string `json:"tags"`
}

// Capture records one inbound message on today's journal. message_id is the
// dedupe key; redelivery returns the stored entry with the same seq.
func (h *CaptureHandler) Capture(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	var req captureReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	req.MessageID = strings.TrimSpace(req.MessageID)
	if req.MessageID == "" {
		http.Error(w, "message_id required", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Text) == "" && len(req.ImageRefs) == 0 {
		http.Error(w, "empty capture", http.StatusBadRequest)
		return
	}

	entry, total, err := h.Acc.Capture(r.Context(), uid, req.MessageID, req.Text, req.ImageRefs, time.Now())
	if err != nil {
		if errors.Is(err, journal.ErrPermissionDenied) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(captureResp{
		EntryID: entry.ID,
		Seq:     total,
		Tags:    entry.Tags,
	})
}
