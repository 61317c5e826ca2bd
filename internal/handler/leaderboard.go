package handler

import (
	"log/slog"
	"net/http"

	"github.com/ewhitaker/rallyup/internal/leaderboard"
	"github.com/ewhitaker/rallyup/internal/model"
)

type LeaderboardHandler struct {
	leaderboard *leaderboard.Service
	logger      *slog.Logger
}

func NewLeaderboardHandler(lb *leaderboard.Service, logger *slog.Logger) *LeaderboardHandler {
	return &LeaderboardHandler{leaderboard: lb, logger: logger}
}

func (h *LeaderboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	entries, err := h.leaderboard.Snapshot()
	if err != nil {
		h.logger.Error("leaderboard snapshot", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to build leaderboard")
		return
	}
	if entries == nil {
		entries = []model.LeaderboardEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// Statistics always answers 200. Aggregation failures are masked inside the
// service and surface as zeroed figures with the default goal.
func (h *LeaderboardHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.leaderboard.Statistics())
}
