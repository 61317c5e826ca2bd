package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/ewhitaker/rallyup/internal/leaderboard"
	"github.com/ewhitaker/rallyup/internal/store"
)

type SettingsHandler struct {
	settingsStore *store.SettingsStore
	leaderboard   *leaderboard.Service
	logger        *slog.Logger
}

func NewSettingsHandler(ss *store.SettingsStore, lb *leaderboard.Service, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{settingsStore: ss, leaderboard: lb, logger: logger}
}

func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settingsStore.GetAll()
	if err != nil {
		h.logger.Error("get settings", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get settings")
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// Update accepts a map of known keys. Unknown keys reject the whole request so
// typos surface instead of silently creating orphan rows.
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req map[string]string
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if len(req) == 0 {
		writeError(w, http.StatusBadRequest, "no settings provided")
		return
	}

	known := make(map[string]struct{})
	for _, k := range store.KnownKeys() {
		known[k] = struct{}{}
	}
	for key := range req {
		if _, ok := known[key]; !ok {
			writeError(w, http.StatusBadRequest, "unknown setting: "+key)
			return
		}
	}

	for key, value := range req {
		if err := h.settingsStore.Set(key, value); err != nil {
			h.logger.Error("set setting", "error", err, "key", key)
			writeError(w, http.StatusInternalServerError, "failed to update settings")
			return
		}
	}

	// Goal and policy changes alter the published board.
	h.leaderboard.RecomputeAndBroadcast()

	settings, err := h.settingsStore.GetAll()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get settings")
		return
	}
	writeJSON(w, http.StatusOK, settings)
}
