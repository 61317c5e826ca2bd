package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/ewhitaker/rallyup/internal/leaderboard"
	"github.com/ewhitaker/rallyup/internal/model"
	"github.com/ewhitaker/rallyup/internal/store"
)

type UserHandler struct {
	userStore    *store.UserStore
	sessionStore *store.SessionStore
	teamStore    *store.TeamStore
	leaderboard  *leaderboard.Service
	logger       *slog.Logger
}

func NewUserHandler(us *store.UserStore, ss *store.SessionStore, ts *store.TeamStore, lb *leaderboard.Service, logger *slog.Logger) *UserHandler {
	return &UserHandler{userStore: us, sessionStore: ss, teamStore: ts, leaderboard: lb, logger: logger}
}

type userRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
	Role     string `json:"role"`
	TeamID   *int64 `json:"team_id"`
}

func (h *UserHandler) checkTeam(w http.ResponseWriter, teamID *int64) bool {
	if teamID == nil {
		return true
	}
	team, err := h.teamStore.GetByID(*teamID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get team")
		return false
	}
	if team == nil {
		writeError(w, http.StatusNotFound, "team not found")
		return false
	}
	return true
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.userStore.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list users")
		return
	}
	if users == nil {
		users = []model.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.Name = strings.TrimSpace(req.Name)
	if req.Email == "" || req.Name == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email, name, and password are required")
		return
	}
	if !model.ValidRole(req.Role) {
		writeError(w, http.StatusBadRequest, "invalid role")
		return
	}
	if !h.checkTeam(w, req.TeamID) {
		return
	}

	existing, err := h.userStore.GetByEmail(req.Email)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}
	if existing != nil {
		writeError(w, http.StatusConflict, "email already in use")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.logger.Error("hash password", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	user, err := h.userStore.Create(req.Email, req.Name, string(hash), req.Role, req.TeamID)
	if err != nil {
		h.logger.Error("create user", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	// Member counts feed the leaderboard.
	if user.TeamID != nil {
		h.leaderboard.RecomputeAndBroadcast()
	}

	writeJSON(w, http.StatusCreated, user)
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.userStore.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get user")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}

	var req userRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email == "" {
		email = existing.Email
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = existing.Name
	}
	role := req.Role
	if role == "" {
		role = existing.Role
	} else if !model.ValidRole(role) {
		writeError(w, http.StatusBadRequest, "invalid role")
		return
	}
	teamID := existing.TeamID
	if req.TeamID != nil {
		// team_id of 0 detaches the user from their team.
		if *req.TeamID == 0 {
			teamID = nil
		} else {
			if !h.checkTeam(w, req.TeamID) {
				return
			}
			teamID = req.TeamID
		}
	}

	user, err := h.userStore.Update(id, email, name, role, teamID)
	if err != nil {
		h.logger.Error("update user", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update user")
		return
	}

	// A password change invalidates existing sessions.
	if req.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to update password")
			return
		}
		if err := h.userStore.UpdatePassword(id, string(hash)); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to update password")
			return
		}
		if err := h.sessionStore.DeleteByUserID(id); err != nil {
			h.logger.Error("invalidate sessions", "error", err, "user_id", id)
		}
	}

	if req.TeamID != nil {
		h.leaderboard.RecomputeAndBroadcast()
	}

	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.userStore.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get user")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}

	if err := h.sessionStore.DeleteByUserID(id); err != nil {
		h.logger.Error("delete user sessions", "error", err, "user_id", id)
	}
	if err := h.userStore.Delete(id); err != nil {
		h.logger.Error("delete user", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete user")
		return
	}

	if existing.TeamID != nil {
		h.leaderboard.RecomputeAndBroadcast()
	}

	w.WriteHeader(http.StatusNoContent)
}
