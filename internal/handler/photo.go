package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/ewhitaker/rallyup/internal/auth"
	"github.com/ewhitaker/rallyup/internal/leaderboard"
	"github.com/ewhitaker/rallyup/internal/model"
	"github.com/ewhitaker/rallyup/internal/photostore"
	"github.com/ewhitaker/rallyup/internal/store"
	"github.com/ewhitaker/rallyup/internal/websocket"
)

const maxPhotoUpload = 10 << 20 // 10 MiB

type PhotoHandler struct {
	photoStore    *store.PhotoStore
	teamStore     *store.TeamStore
	settingsStore *store.SettingsStore
	photos        *photostore.Manager
	leaderboard   *leaderboard.Service
	broadcaster   leaderboard.Broadcaster
	logger        *slog.Logger
}

func NewPhotoHandler(ps *store.PhotoStore, ts *store.TeamStore, ss *store.SettingsStore, pm *photostore.Manager, lb *leaderboard.Service, b leaderboard.Broadcaster, logger *slog.Logger) *PhotoHandler {
	return &PhotoHandler{photoStore: ps, teamStore: ts, settingsStore: ss, photos: pm, leaderboard: lb, broadcaster: b, logger: logger}
}

// Create accepts either a multipart upload (stored via the photo manager) or
// a JSON body carrying an external URL. Members submit for their own team;
// staff and admins may submit for any team.
func (h *PhotoHandler) Create(w http.ResponseWriter, r *http.Request) {
	var teamID int64
	var photoURL, caption string

	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		var ok bool
		teamID, photoURL, caption, ok = h.handleUpload(w, r)
		if !ok {
			return
		}
	} else {
		var req struct {
			TeamID  int64  `json:"team_id"`
			URL     string `json:"url"`
			Caption string `json:"caption"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON")
			return
		}
		if u, err := url.Parse(req.URL); err != nil || u.Scheme == "" || u.Host == "" {
			writeError(w, http.StatusBadRequest, "valid url is required")
			return
		}
		teamID, photoURL, caption = req.TeamID, req.URL, req.Caption
	}

	teamID, ok := h.resolveTeam(w, r, teamID)
	if !ok {
		return
	}

	submittedBy := auth.UserID(r.Context())
	photo, err := h.photoStore.Create(teamID, &submittedBy, photoURL, caption)
	if err != nil {
		h.logger.Error("create photo", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create photo")
		return
	}

	if h.broadcaster != nil {
		h.broadcaster.BroadcastToTeam(teamID, websocket.NewMessage("photo", "submitted", photo.ID, nil))
	}

	writeJSON(w, http.StatusCreated, photo)
}

// handleUpload parses the multipart form and stores the file. Returns ok=false
// after writing an error response.
func (h *PhotoHandler) handleUpload(w http.ResponseWriter, r *http.Request) (teamID int64, photoURL, caption string, ok bool) {
	if !h.photos.Enabled() {
		writeError(w, http.StatusBadRequest, "photo uploads not configured; submit a url instead")
		return 0, "", "", false
	}
	if err := r.ParseMultipartForm(maxPhotoUpload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return 0, "", "", false
	}

	file, header, err := r.FormFile("photo")
	if err != nil {
		writeError(w, http.StatusBadRequest, "photo file is required")
		return 0, "", "", false
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxPhotoUpload))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read photo")
		return 0, "", "", false
	}

	if raw := r.FormValue("team_id"); raw != "" {
		teamID, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid team_id")
			return 0, "", "", false
		}
	}
	caption = r.FormValue("caption")

	// Team resolution happens in Create; upload under the declared team if
	// present, otherwise the submitter's own.
	uploadTeam := teamID
	if uploadTeam == 0 {
		if tid := auth.TeamID(r.Context()); tid != nil {
			uploadTeam = *tid
		}
	}

	photoURL, err = h.photos.Upload(r.Context(), uploadTeam, header.Filename, header.Header.Get("Content-Type"), data)
	if err != nil {
		h.logger.Error("upload photo", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to store photo")
		return 0, "", "", false
	}
	return teamID, photoURL, caption, true
}

// resolveTeam decides which team a submission belongs to and checks the
// submitter may post for it. Returns ok=false after writing an error response.
func (h *PhotoHandler) resolveTeam(w http.ResponseWriter, r *http.Request, requested int64) (int64, bool) {
	ac, _ := auth.FromContext(r.Context())

	teamID := requested
	if teamID == 0 {
		if ac.TeamID == nil {
			writeError(w, http.StatusBadRequest, "team_id is required")
			return 0, false
		}
		teamID = *ac.TeamID
	}

	// Members may only submit for their own team.
	if !auth.HasRole(r.Context(), model.RoleCoach, model.RoleStaff) {
		if ac.TeamID == nil || *ac.TeamID != teamID {
			writeError(w, http.StatusForbidden, "cannot submit for another team")
			return 0, false
		}
	}

	team, err := h.teamStore.GetByID(teamID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get team")
		return 0, false
	}
	if team == nil {
		writeError(w, http.StatusNotFound, "team not found")
		return 0, false
	}
	return teamID, true
}

func (h *PhotoHandler) List(w http.ResponseWriter, r *http.Request) {
	teamID, err := parseTeamFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid team_id")
		return
	}
	status := r.URL.Query().Get("status")

	photos, err := h.photoStore.List(teamID, status)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list photos")
		return
	}
	if photos == nil {
		photos = []model.Photo{}
	}
	writeJSON(w, http.StatusOK, photos)
}

// Approve awards the configured photo points and notifies the team's channel.
func (h *PhotoHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	points, err := h.settingsStore.GetInt("points_per_photo", 10)
	if err != nil {
		h.logger.Error("read photo points setting", "error", err)
		points = 10
	}

	reviewedBy := auth.UserID(r.Context())
	photo, err := h.photoStore.Approve(id, points, &reviewedBy)
	if errors.Is(err, store.ErrAlreadyReviewed) {
		writeError(w, http.StatusConflict, "photo already reviewed")
		return
	}
	if err != nil {
		h.logger.Error("approve photo", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to approve photo")
		return
	}
	if photo == nil {
		writeError(w, http.StatusNotFound, "photo not found")
		return
	}

	if h.broadcaster != nil {
		h.broadcaster.BroadcastToTeam(photo.TeamID, websocket.NewMessage("photo", "approved", id, map[string]int{"points": points}))
	}
	h.leaderboard.RecomputeAndBroadcast()

	writeJSON(w, http.StatusOK, photo)
}

func (h *PhotoHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	photo, err := h.photoStore.Reject(id)
	if errors.Is(err, store.ErrAlreadyReviewed) {
		writeError(w, http.StatusConflict, "photo already reviewed")
		return
	}
	if err != nil {
		h.logger.Error("reject photo", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to reject photo")
		return
	}
	if photo == nil {
		writeError(w, http.StatusNotFound, "photo not found")
		return
	}

	// Rejected uploads are removed from storage; external URLs are untouched.
	if err := h.photos.Delete(r.Context(), photo.URL); err != nil {
		h.logger.Warn("delete rejected photo object", "error", err, "photo_id", id)
	}

	if h.broadcaster != nil {
		h.broadcaster.BroadcastToTeam(photo.TeamID, websocket.NewMessage("photo", "rejected", id, nil))
	}
	h.leaderboard.RecomputeAndBroadcast()

	writeJSON(w, http.StatusOK, photo)
}
