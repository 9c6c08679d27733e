package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"munin/internal/auth"
	"munin/internal/journal"

	"github.com/go-chi/chi/v5"
)

type SettingsHandler struct {
	Store *journal.Store
}

func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	key := chi.URLParam(r, "key")

	value, err := h.Store.GetSetting(r.Context(), uid, key, "")
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"key": key, "value": value})
}

type putSettingReq struct {
	Value string `json:"value"`
}

func (h *SettingsHandler) Put(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	key := strings.TrimSpace(chi.URLParam(r, "key"))
	if key == "" {
		http.Error(w, "key required", http.StatusBadRequest)
		return
	}

	var req putSettingReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}

	if err := h.Store.SetSetting(r.Context(), uid, key, req.Value); err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
