package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ewhitaker/rallyup/internal/leaderboard"
	"github.com/ewhitaker/rallyup/internal/model"
	"github.com/ewhitaker/rallyup/internal/store"
	"github.com/ewhitaker/rallyup/internal/websocket"
)

type TeamHandler struct {
	teamStore   *store.TeamStore
	pointStore  *store.PointStore
	leaderboard *leaderboard.Service
	broadcaster leaderboard.Broadcaster
	logger      *slog.Logger
}

func NewTeamHandler(ts *store.TeamStore, ps *store.PointStore, lb *leaderboard.Service, b leaderboard.Broadcaster, logger *slog.Logger) *TeamHandler {
	return &TeamHandler{teamStore: ts, pointStore: ps, leaderboard: lb, broadcaster: b, logger: logger}
}

func (h *TeamHandler) broadcast(msg websocket.Message) {
	if h.broadcaster != nil {
		h.broadcaster.Broadcast(msg)
	}
}

type teamRequest struct {
	Name   string `json:"name"`
	Active *bool  `json:"active"`
}

func (h *TeamHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req teamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	team, err := h.teamStore.Create(req.Name)
	if err != nil {
		h.logger.Error("create team", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create team")
		return
	}

	h.broadcast(websocket.NewMessage("team", "created", team.ID, nil))
	h.leaderboard.RecomputeAndBroadcast()

	writeJSON(w, http.StatusCreated, team)
}

func (h *TeamHandler) List(w http.ResponseWriter, r *http.Request) {
	teams, err := h.teamStore.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list teams")
		return
	}
	if teams == nil {
		teams = []model.Team{}
	}
	writeJSON(w, http.StatusOK, teams)
}

func (h *TeamHandler) Get(w http.ResponseWriter, r *http.Request) {
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
	writeJSON(w, http.StatusOK, team)
}

func (h *TeamHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.teamStore.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get team")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "team not found")
		return
	}

	var req teamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		req.Name = existing.Name
	}
	active := existing.Active
	if req.Active != nil {
		active = *req.Active
	}

	team, err := h.teamStore.Update(id, req.Name, active)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update team")
		return
	}

	h.broadcast(websocket.NewMessage("team", "updated", id, nil))
	h.leaderboard.RecomputeAndBroadcast()

	writeJSON(w, http.StatusOK, team)
}

func (h *TeamHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.teamStore.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get team")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "team not found")
		return
	}

	if err := h.teamStore.Delete(id); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete team")
		return
	}

	h.broadcast(websocket.NewMessage("team", "deleted", id, nil))
	h.leaderboard.RecomputeAndBroadcast()

	w.WriteHeader(http.StatusNoContent)
}

// ResetPoints deletes the team's entire point ledger, zeroing its score.
func (h *TeamHandler) ResetPoints(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.teamStore.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get team")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "team not found")
		return
	}

	deleted, err := h.pointStore.ResetTeam(id)
	if err != nil {
		h.logger.Error("reset team points", "error", err, "team_id", id)
		writeError(w, http.StatusInternalServerError, "failed to reset points")
		return
	}

	h.broadcast(websocket.NewMessage("team", "points_reset", id, nil))
	h.leaderboard.RecomputeAndBroadcast()

	writeJSON(w, http.StatusOK, map[string]int64{"entries_deleted": deleted})
}
