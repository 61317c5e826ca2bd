package leaderboard

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/ewhitaker/rallyup/internal/model"
	"github.com/ewhitaker/rallyup/internal/store"
	"github.com/ewhitaker/rallyup/internal/websocket"
)

const defaultDonationGoal = 50000

// Broadcaster pushes real-time messages to connected clients. The websocket
// hub implements it; tests inject a recorder.
type Broadcaster interface {
	Broadcast(msg websocket.Message)
	BroadcastToTeam(teamID int64, msg websocket.Message)
}

// Service derives the leaderboard and platform statistics from the stores and
// pushes updates through the broadcaster.
type Service struct {
	teams       *store.TeamStore
	points      *store.PointStore
	donations   *store.DonationStore
	sales       *store.SaleStore
	photos      *store.PhotoStore
	activities  *store.ActivityStore
	settings    *store.SettingsStore
	broadcaster Broadcaster
	logger      *slog.Logger
}

func NewService(db *sql.DB, broadcaster Broadcaster, logger *slog.Logger) *Service {
	return &Service{
		teams:       store.NewTeamStore(db),
		points:      store.NewPointStore(db),
		donations:   store.NewDonationStore(db),
		sales:       store.NewSaleStore(db),
		photos:      store.NewPhotoStore(db),
		activities:  store.NewActivityStore(db),
		settings:    store.NewSettingsStore(db),
		broadcaster: broadcaster,
		logger:      logger,
	}
}

// Snapshot builds the ranked leaderboard for all active teams. Scores come
// from the point ledger; the per-team breakdown is informational. Any read
// failure fails the whole snapshot, no partial results.
func (s *Service) Snapshot() ([]model.LeaderboardEntry, error) {
	teams, err := s.teams.ListActive()
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	memberCounts, err := s.teams.MemberCounts()
	if err != nil {
		return nil, fmt.Errorf("member counts: %w", err)
	}
	totals, err := s.points.TotalsByTeam()
	if err != nil {
		return nil, fmt.Errorf("point totals: %w", err)
	}
	donationStats, err := s.donations.StatsByTeam()
	if err != nil {
		return nil, fmt.Errorf("donation stats: %w", err)
	}
	saleStats, err := s.sales.StatsByTeam()
	if err != nil {
		return nil, fmt.Errorf("sale stats: %w", err)
	}
	photoCounts, err := s.photos.ApprovedCountByTeam()
	if err != nil {
		return nil, fmt.Errorf("photo counts: %w", err)
	}
	activityPoints, err := s.activities.ApprovedPointsByTeam()
	if err != nil {
		return nil, fmt.Errorf("activity points: %w", err)
	}

	policy := PolicyStandard
	if value, err := s.settings.Get("rank_policy"); err == nil {
		policy = ParsePolicy(value)
	}

	entries := make([]model.LeaderboardEntry, 0, len(teams))
	for _, team := range teams {
		entries = append(entries, model.LeaderboardEntry{
			ID:          team.ID,
			Name:        team.Name,
			TotalScore:  totals[team.ID],
			MemberCount: memberCounts[team.ID],
			Stats: model.TeamStats{
				TotalDonations:      donationStats[team.ID].Total,
				DonationCount:       donationStats[team.ID].Count,
				ShirtSaleCount:      saleStats[team.ID].Count,
				TotalShirtSales:     saleStats[team.ID].Quantity,
				ApprovedPhotosCount: photoCounts[team.ID],
				ActivityPoints:      activityPoints[team.ID],
			},
		})
	}

	rank(entries, policy)
	return entries, nil
}

// Statistics returns the platform-wide fundraising summary. Unlike Snapshot,
// read failures are masked: callers always get a well-formed object, falling
// back to zeros with the default goal.
func (s *Service) Statistics() model.Statistics {
	fallback := model.Statistics{DonationGoal: defaultDonationGoal}

	teams, err := s.teams.ListActive()
	if err != nil {
		s.logger.Error("statistics: list teams", "error", err)
		return fallback
	}
	raised, err := s.donations.TotalRaised()
	if err != nil {
		s.logger.Error("statistics: total raised", "error", err)
		return fallback
	}
	goal, err := s.settings.GetInt("donation_goal", defaultDonationGoal)
	if err != nil {
		s.logger.Error("statistics: donation goal", "error", err)
		return fallback
	}

	progress := 0.0
	if goal > 0 {
		progress = float64(raised) / float64(goal) * 100
	}
	if progress > 100 {
		progress = 100
	}
	if progress < 0 {
		progress = 0
	}

	return model.Statistics{
		TeamCount:          len(teams),
		TotalRaised:        raised,
		DonationGoal:       goal,
		ProgressPercentage: progress,
	}
}

// RecomputeAndBroadcast rebuilds the leaderboard and pushes it to every
// connected client. It runs synchronously after each score-affecting mutation;
// failures are logged and never surfaced to the caller, so a broken recompute
// cannot fail a committed mutation.
func (s *Service) RecomputeAndBroadcast() {
	entries, err := s.Snapshot()
	if err != nil {
		s.logger.Error("leaderboard recompute", "error", err)
		return
	}
	if s.broadcaster == nil {
		return
	}
	s.broadcaster.Broadcast(websocket.NewMessage("leaderboard", "updated", 0, entries))
}
