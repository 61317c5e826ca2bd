package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ewhitaker/rallyup/internal/auth"
	"github.com/ewhitaker/rallyup/internal/leaderboard"
	"github.com/ewhitaker/rallyup/internal/model"
	"github.com/ewhitaker/rallyup/internal/store"
	"github.com/ewhitaker/rallyup/internal/websocket"
)

type AdjustmentHandler struct {
	pointStore  *store.PointStore
	teamStore   *store.TeamStore
	leaderboard *leaderboard.Service
	broadcaster leaderboard.Broadcaster
	logger      *slog.Logger
}

func NewAdjustmentHandler(ps *store.PointStore, ts *store.TeamStore, lb *leaderboard.Service, b leaderboard.Broadcaster, logger *slog.Logger) *AdjustmentHandler {
	return &AdjustmentHandler{pointStore: ps, teamStore: ts, leaderboard: lb, broadcaster: b, logger: logger}
}

// Create records a manual point award or deduction with a required reason.
func (h *AdjustmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TeamID int64  `json:"team_id"`
		Points int    `json:"points"`
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Points == 0 {
		writeError(w, http.StatusBadRequest, "points must be nonzero")
		return
	}
	req.Reason = strings.TrimSpace(req.Reason)
	if req.Reason == "" {
		writeError(w, http.StatusBadRequest, "reason is required")
		return
	}

	team, err := h.teamStore.GetByID(req.TeamID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get team")
		return
	}
	if team == nil {
		writeError(w, http.StatusNotFound, "team not found")
		return
	}

	createdBy := auth.UserID(r.Context())
	entry, err := h.pointStore.CreateAdjustment(req.TeamID, req.Points, req.Reason, &createdBy)
	if err != nil {
		h.logger.Error("create adjustment", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create adjustment")
		return
	}

	if h.broadcaster != nil {
		h.broadcaster.Broadcast(websocket.NewMessage("adjustment", "created", entry.ID, nil))
	}
	h.leaderboard.RecomputeAndBroadcast()

	writeJSON(w, http.StatusCreated, entry)
}

// ListByTeam returns a team's full point ledger, newest first.
func (h *AdjustmentHandler) ListByTeam(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	team, err := h.teamStore.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get team")
		return
	}
	if team == nil {
		writeError(w, http.StatusNotFound, "team not found")
		return
	}

	entries, err := h.pointStore.ListByTeam(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list point entries")
		return
	}
	if entries == nil {
		entries = []model.PointEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}
