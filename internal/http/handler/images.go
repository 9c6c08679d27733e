package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"munin/internal/archive"
	"munin/internal/auth"
	"munin/internal/journal"

	"github.com/google/uuid"
)

const maxImageBytes = 10 << 20

// ImagesHandler is the upload-on-capture step: photos become hosted blobs
// before the capture call, so the merge publisher never moves bytes itself.
type ImagesHandler struct {
	Archive archive.Client
	Store   *journal.Store
	Dir     string
}

// Upload stores the raw request body as an image blob and returns the
// markdown reference to pass along in a capture.
func (h *ImagesHandler) Upload(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	content, err := io.ReadAll(io.LimitReader(r.Body, maxImageBytes+1))
	if err != nil {
		http.Error(w, "read body", http.StatusBadRequest)
		return
	}
	if len(content) == 0 {
		http.Error(w, "empty body", http.StatusBadRequest)
		return
	}
	if len(content) > maxImageBytes {
		http.Error(w, "image too large", http.StatusRequestEntityTooLarge)
		return
	}

	now := time.Now().In(h.Store.UserLocation(r.Context(), uid))
	name := fmt.Sprintf("photo_%s_%s.jpg", now.Format("150405"), uuid.NewString()[:8])
	path := fmt.Sprintf("%s/%s/%s", h.Dir, now.Format("2006/01/02"), name)

	url, err := h.Archive.UploadBlob(r.Context(), path, content, "Add image "+name)
	if err != nil {
		http.Error(w, "upload failed", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"ref": fmt.Sprintf("![](%s)", url),
	})
}
