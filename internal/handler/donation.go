package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/ewhitaker/rallyup/internal/auth"
	"github.com/ewhitaker/rallyup/internal/leaderboard"
	"github.com/ewhitaker/rallyup/internal/model"
	"github.com/ewhitaker/rallyup/internal/store"
	"github.com/ewhitaker/rallyup/internal/websocket"
)

type DonationHandler struct {
	donationStore *store.DonationStore
	teamStore     *store.TeamStore
	settingsStore *store.SettingsStore
	leaderboard   *leaderboard.Service
	broadcaster   leaderboard.Broadcaster
	logger        *slog.Logger
}

func NewDonationHandler(ds *store.DonationStore, ts *store.TeamStore, ss *store.SettingsStore, lb *leaderboard.Service, b leaderboard.Broadcaster, logger *slog.Logger) *DonationHandler {
	return &DonationHandler{donationStore: ds, teamStore: ts, settingsStore: ss, leaderboard: lb, broadcaster: b, logger: logger}
}

func (h *DonationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TeamID    int64  `json:"team_id"`
		DonorName string `json:"donor_name"`
		Amount    int    `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Amount <= 0 {
		writeError(w, http.StatusBadRequest, "amount must be positive")
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

	pointsPerUnit, err := h.settingsStore.GetInt("points_per_donation_unit", 1)
	if err != nil {
		h.logger.Error("read donation points setting", "error", err)
		pointsPerUnit = 1
	}

	recordedBy := auth.UserID(r.Context())
	donation, err := h.donationStore.Create(req.TeamID, req.DonorName, req.Amount, req.Amount*pointsPerUnit, &recordedBy)
	if err != nil {
		h.logger.Error("create donation", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create donation")
		return
	}

	if h.broadcaster != nil {
		h.broadcaster.Broadcast(websocket.NewMessage("donation", "created", donation.ID, nil))
	}
	h.leaderboard.RecomputeAndBroadcast()

	writeJSON(w, http.StatusCreated, donation)
}

func (h *DonationHandler) List(w http.ResponseWriter, r *http.Request) {
	teamID, err := parseTeamFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid team_id")
		return
	}

	donations, err := h.donationStore.List(teamID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list donations")
		return
	}
	if donations == nil {
		donations = []model.Donation{}
	}
	writeJSON(w, http.StatusOK, donations)
}
