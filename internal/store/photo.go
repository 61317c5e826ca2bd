package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ewhitaker/rallyup/internal/model"
)

// ErrAlreadyReviewed is returned when approving or rejecting a submission
// that has already left pending status. Reviews apply exactly once.
var ErrAlreadyReviewed = errors.New("already reviewed")

type PhotoStore struct {
	db *sql.DB
}

func NewPhotoStore(db *sql.DB) *PhotoStore {
	return &PhotoStore{db: db}
}

func scanPhoto(scanner interface{ Scan(...any) error }) (*model.Photo, error) {
	var p model.Photo
	var submittedBy sql.NullInt64
	var reviewedAt sql.NullTime

	err := scanner.Scan(&p.ID, &p.TeamID, &submittedBy, &p.URL, &p.Caption, &p.Status, &reviewedAt, &p.CreatedAt)
	if err != nil {
		return nil, err
	}

	if submittedBy.Valid {
		p.SubmittedBy = &submittedBy.Int64
	}
	if reviewedAt.Valid {
		p.ReviewedAt = &reviewedAt.Time
	}
	return &p, nil
}

const photoCols = `id, team_id, submitted_by, url, caption, status, reviewed_at, created_at`

// Create records a pending photo submission. No points are awarded until the
// photo is approved.
func (s *PhotoStore) Create(teamID int64, submittedBy *int64, url, caption string) (*model.Photo, error) {
	var sby sql.NullInt64
	if submittedBy != nil {
		sby = sql.NullInt64{Int64: *submittedBy, Valid: true}
	}

	result, err := s.db.Exec(
		`INSERT INTO photos (team_id, submitted_by, url, caption) VALUES (?, ?, ?, ?)`,
		teamID, sby, url, caption,
	)
	if err != nil {
		return nil, fmt.Errorf("insert photo: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *PhotoStore) GetByID(id int64) (*model.Photo, error) {
	row := s.db.QueryRow(`SELECT `+photoCols+` FROM photos WHERE id = ?`, id)
	p, err := scanPhoto(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get photo: %w", err)
	}
	return p, nil
}

// List returns photos, optionally filtered by team and/or status, newest first.
func (s *PhotoStore) List(teamID *int64, status string) ([]model.Photo, error) {
	query := `SELECT ` + photoCols + ` FROM photos`
	var conds []string
	var args []any
	if teamID != nil {
		conds = append(conds, `team_id = ?`)
		args = append(args, *teamID)
	}
	if status != "" {
		conds = append(conds, `status = ?`)
		args = append(args, status)
	}
	for i, c := range conds {
		if i == 0 {
			query += ` WHERE ` + c
		} else {
			query += ` AND ` + c
		}
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list photos: %w", err)
	}
	defer rows.Close()

	var photos []model.Photo
	for rows.Next() {
		p, err := scanPhoto(rows)
		if err != nil {
			return nil, fmt.Errorf("scan photo: %w", err)
		}
		photos = append(photos, *p)
	}
	return photos, rows.Err()
}

// Approve moves a pending photo to approved and writes its point ledger entry
// in one transaction. Approving a photo that is not pending returns
// ErrAlreadyReviewed so repeated reviews cannot double-award.
func (s *PhotoStore) Approve(id int64, points int, reviewedBy *int64) (*model.Photo, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var teamID int64
	err = tx.QueryRow(`SELECT team_id FROM photos WHERE id = ?`, id).Scan(&teamID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get photo: %w", err)
	}

	result, err := tx.Exec(
		`UPDATE photos SET status = ?, reviewed_at = ? WHERE id = ? AND status = ?`,
		model.PhotoStatusApproved, time.Now().UTC(), id, model.PhotoStatusPending,
	)
	if err != nil {
		return nil, fmt.Errorf("approve photo: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return nil, ErrAlreadyReviewed
	}

	if err := insertPointEntry(tx, teamID, model.PointSourcePhoto, &id, points, "", reviewedBy); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	return s.GetByID(id)
}

// Reject moves a pending photo to rejected. No ledger entry is written.
func (s *PhotoStore) Reject(id int64) (*model.Photo, error) {
	result, err := s.db.Exec(
		`UPDATE photos SET status = ?, reviewed_at = ? WHERE id = ? AND status = ?`,
		model.PhotoStatusRejected, time.Now().UTC(), id, model.PhotoStatusPending,
	)
	if err != nil {
		return nil, fmt.Errorf("reject photo: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		existing, err := s.GetByID(id)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, nil
		}
		return nil, ErrAlreadyReviewed
	}
	return s.GetByID(id)
}

// ApprovedCountByTeam returns per-team approved photo counts for the
// leaderboard breakdown.
func (s *PhotoStore) ApprovedCountByTeam() (map[int64]int, error) {
	rows, err := s.db.Query(
		`SELECT team_id, COUNT(*) FROM photos WHERE status = ? GROUP BY team_id`,
		model.PhotoStatusApproved,
	)
	if err != nil {
		return nil, fmt.Errorf("approved photo counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[int64]int)
	for rows.Next() {
		var teamID int64
		var count int
		if err := rows.Scan(&teamID, &count); err != nil {
			return nil, fmt.Errorf("scan photo count: %w", err)
		}
		counts[teamID] = count
	}
	return counts, rows.Err()
}
