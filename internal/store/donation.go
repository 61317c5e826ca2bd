package store

import (
	"database/sql"
	"fmt"

	"github.com/ewhitaker/rallyup/internal/model"
)

type DonationStore struct {
	db *sql.DB
}

func NewDonationStore(db *sql.DB) *DonationStore {
	return &DonationStore{db: db}
}

func scanDonation(scanner interface{ Scan(...any) error }) (*model.Donation, error) {
	var d model.Donation
	var recordedBy sql.NullInt64

	err := scanner.Scan(&d.ID, &d.TeamID, &d.DonorName, &d.Amount, &recordedBy, &d.CreatedAt)
	if err != nil {
		return nil, err
	}

	if recordedBy.Valid {
		d.RecordedBy = &recordedBy.Int64
	}
	return &d, nil
}

const donationCols = `id, team_id, donor_name, amount, recorded_by, created_at`

// Create records a donation and its point ledger entry in one transaction.
func (s *DonationStore) Create(teamID int64, donorName string, amount, points int, recordedBy *int64) (*model.Donation, error) {
	var rby sql.NullInt64
	if recordedBy != nil {
		rby = sql.NullInt64{Int64: *recordedBy, Valid: true}
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`INSERT INTO donations (team_id, donor_name, amount, recorded_by) VALUES (?, ?, ?, ?)`,
		teamID, donorName, amount, rby,
	)
	if err != nil {
		return nil, fmt.Errorf("insert donation: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	if err := insertPointEntry(tx, teamID, model.PointSourceDonation, &id, points, donorName, recordedBy); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	return s.GetByID(id)
}

func (s *DonationStore) GetByID(id int64) (*model.Donation, error) {
	row := s.db.QueryRow(`SELECT `+donationCols+` FROM donations WHERE id = ?`, id)
	d, err := scanDonation(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get donation: %w", err)
	}
	return d, nil
}

// List returns donations, optionally filtered to one team, newest first.
func (s *DonationStore) List(teamID *int64) ([]model.Donation, error) {
	query := `SELECT ` + donationCols + ` FROM donations`
	var args []any
	if teamID != nil {
		query += ` WHERE team_id = ?`
		args = append(args, *teamID)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list donations: %w", err)
	}
	defer rows.Close()

	var donations []model.Donation
	for rows.Next() {
		d, err := scanDonation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan donation: %w", err)
		}
		donations = append(donations, *d)
	}
	return donations, rows.Err()
}

// StatsByTeam returns per-team donation sums and counts for the leaderboard
// breakdown.
func (s *DonationStore) StatsByTeam() (map[int64]model.DonationStats, error) {
	rows, err := s.db.Query(`SELECT team_id, COALESCE(SUM(amount), 0), COUNT(*) FROM donations GROUP BY team_id`)
	if err != nil {
		return nil, fmt.Errorf("donation stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[int64]model.DonationStats)
	for rows.Next() {
		var teamID int64
		var st model.DonationStats
		if err := rows.Scan(&teamID, &st.Total, &st.Count); err != nil {
			return nil, fmt.Errorf("scan donation stats: %w", err)
		}
		stats[teamID] = st
	}
	return stats, rows.Err()
}

// TotalRaised returns the platform-wide donation sum across all teams.
func (s *DonationStore) TotalRaised() (int, error) {
	var total sql.NullInt64
	if err := s.db.QueryRow(`SELECT COALESCE(SUM(amount), 0) FROM donations`).Scan(&total); err != nil {
		return 0, fmt.Errorf("total raised: %w", err)
	}
	return int(total.Int64), nil
}
