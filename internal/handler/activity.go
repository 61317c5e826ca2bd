package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ewhitaker/rallyup/internal/activity"
	"github.com/ewhitaker/rallyup/internal/auth"
	"github.com/ewhitaker/rallyup/internal/leaderboard"
	"github.com/ewhitaker/rallyup/internal/model"
	"github.com/ewhitaker/rallyup/internal/store"
	"github.com/ewhitaker/rallyup/internal/websocket"
)

type ActivityHandler struct {
	activityStore *store.ActivityStore
	teamStore     *store.TeamStore
	leaderboard   *leaderboard.Service
	broadcaster   leaderboard.Broadcaster
	logger        *slog.Logger
}

func NewActivityHandler(as *store.ActivityStore, ts *store.TeamStore, lb *leaderboard.Service, b leaderboard.Broadcaster, logger *slog.Logger) *ActivityHandler {
	return &ActivityHandler{activityStore: as, teamStore: ts, leaderboard: lb, broadcaster: b, logger: logger}
}

type activityRequest struct {
	Title        string                   `json:"title"`
	Description  string                   `json:"description"`
	Points       int                      `json:"points"`
	Requirements []model.RequirementField `json:"requirements"`
	Active       bool                     `json:"active"`
}

func (r *activityRequest) validate() string {
	r.Title = strings.TrimSpace(r.Title)
	if r.Title == "" {
		return "title is required"
	}
	if r.Points < 0 {
		return "points must be >= 0"
	}
	if err := activity.ValidateSchema(r.Requirements); err != nil {
		return err.Error()
	}
	return ""
}

func (h *ActivityHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req activityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	act, err := h.activityStore.Create(req.Title, req.Description, req.Points, req.Requirements, req.Active)
	if err != nil {
		h.logger.Error("create activity", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create activity")
		return
	}

	if h.broadcaster != nil {
		h.broadcaster.Broadcast(websocket.NewMessage("activity", "created", act.ID, nil))
	}

	writeJSON(w, http.StatusCreated, act)
}

func (h *ActivityHandler) List(w http.ResponseWriter, r *http.Request) {
	activities, err := h.activityStore.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list activities")
		return
	}
	if activities == nil {
		activities = []model.Activity{}
	}
	writeJSON(w, http.StatusOK, activities)
}

func (h *ActivityHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.activityStore.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get activity")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "activity not found")
		return
	}

	var req activityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	act, err := h.activityStore.Update(id, req.Title, req.Description, req.Points, req.Requirements, req.Active)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update activity")
		return
	}

	if h.broadcaster != nil {
		h.broadcaster.Broadcast(websocket.NewMessage("activity", "updated", id, nil))
	}

	writeJSON(w, http.StatusOK, act)
}

// CreateSubmission records a pending submission after checking the responses
// against the activity's requirement schema. Students submit for their own
// team only.
func (h *ActivityHandler) CreateSubmission(w http.ResponseWriter, r *http.Request) {
	activityID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	act, err := h.activityStore.GetByID(activityID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get activity")
		return
	}
	if act == nil {
		writeError(w, http.StatusNotFound, "activity not found")
		return
	}
	if !act.Active {
		writeError(w, http.StatusBadRequest, "activity is not accepting submissions")
		return
	}

	var req struct {
		TeamID    int64          `json:"team_id"`
		Responses map[string]any `json:"responses"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	ac, _ := auth.FromContext(r.Context())
	teamID := req.TeamID
	if teamID == 0 {
		if ac.TeamID == nil {
			writeError(w, http.StatusBadRequest, "team_id is required")
			return
		}
		teamID = *ac.TeamID
	}
	if !auth.HasRole(r.Context(), model.RoleCoach, model.RoleStaff) {
		if ac.TeamID == nil || *ac.TeamID != teamID {
			writeError(w, http.StatusForbidden, "cannot submit for another team")
			return
		}
	}

	team, err := h.teamStore.GetByID(teamID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get team")
		return
	}
	if team == nil {
		writeError(w, http.StatusNotFound, "team not found")
		return
	}

	if err := activity.ValidateResponses(act.Requirements, req.Responses); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	submittedBy := auth.UserID(r.Context())
	sub, err := h.activityStore.CreateSubmission(activityID, teamID, &submittedBy, req.Responses)
	if err != nil {
		h.logger.Error("create submission", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create submission")
		return
	}

	if h.broadcaster != nil {
		h.broadcaster.BroadcastToTeam(teamID, websocket.NewMessage("submission", "created", sub.ID, nil))
	}

	writeJSON(w, http.StatusCreated, sub)
}

func (h *ActivityHandler) ListSubmissions(w http.ResponseWriter, r *http.Request) {
	teamID, err := parseTeamFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid team_id")
		return
	}
	status := r.URL.Query().Get("status")

	subs, err := h.activityStore.ListSubmissions(teamID, status)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list submissions")
		return
	}
	if subs == nil {
		subs = []model.ActivitySubmission{}
	}
	writeJSON(w, http.StatusOK, subs)
}

// ApproveSubmission awards the activity's points, or an explicit override when
// the reviewer supplies one.
func (h *ActivityHandler) ApproveSubmission(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req struct {
		Points *int `json:"points"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON")
			return
		}
	}

	sub, err := h.activityStore.GetSubmissionByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get submission")
		return
	}
	if sub == nil {
		writeError(w, http.StatusNotFound, "submission not found")
		return
	}

	points := 0
	if req.Points != nil {
		if *req.Points < 0 {
			writeError(w, http.StatusBadRequest, "points must be >= 0")
			return
		}
		points = *req.Points
	} else {
		act, err := h.activityStore.GetByID(sub.ActivityID)
		if err != nil || act == nil {
			writeError(w, http.StatusInternalServerError, "failed to get activity")
			return
		}
		points = act.Points
	}

	reviewedBy := auth.UserID(r.Context())
	approved, err := h.activityStore.ApproveSubmission(id, points, &reviewedBy)
	if errors.Is(err, store.ErrAlreadyReviewed) {
		writeError(w, http.StatusConflict, "submission already reviewed")
		return
	}
	if err != nil {
		h.logger.Error("approve submission", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to approve submission")
		return
	}
	if approved == nil {
		writeError(w, http.StatusNotFound, "submission not found")
		return
	}

	if h.broadcaster != nil {
		h.broadcaster.BroadcastToTeam(approved.TeamID, websocket.NewMessage("submission", "approved", id, map[string]int{"points": points}))
	}
	h.leaderboard.RecomputeAndBroadcast()

	writeJSON(w, http.StatusOK, approved)
}

func (h *ActivityHandler) RejectSubmission(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	reviewedBy := auth.UserID(r.Context())
	sub, err := h.activityStore.RejectSubmission(id, &reviewedBy)
	if errors.Is(err, store.ErrAlreadyReviewed) {
		writeError(w, http.StatusConflict, "submission already reviewed")
		return
	}
	if err != nil {
		h.logger.Error("reject submission", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to reject submission")
		return
	}
	if sub == nil {
		writeError(w, http.StatusNotFound, "submission not found")
		return
	}

	if h.broadcaster != nil {
		h.broadcaster.BroadcastToTeam(sub.TeamID, websocket.NewMessage("submission", "rejected", id, nil))
	}

	writeJSON(w, http.StatusOK, sub)
}
