package store

import (
	"database/sql"
	"fmt"

	"github.com/ewhitaker/rallyup/internal/model"
)

// execer is satisfied by both *sql.DB and *sql.Tx so ledger rows can be
// written inside the transaction of the contribution they mirror.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

// insertPointEntry writes one ledger row. Every score-affecting mutation in
// the store layer goes through this in the same transaction as its domain row;
// team totals are always derived by summing the ledger.
func insertPointEntry(e execer, teamID int64, source string, refID *int64, points int, note string, createdBy *int64) error {
	var rid, cby sql.NullInt64
	if refID != nil {
		rid = sql.NullInt64{Int64: *refID, Valid: true}
	}
	if createdBy != nil {
		cby = sql.NullInt64{Int64: *createdBy, Valid: true}
	}

	_, err := e.Exec(
		`INSERT INTO point_entries (team_id, source, ref_id, points, note, created_by) VALUES (?, ?, ?, ?, ?, ?)`,
		teamID, source, rid, points, note, cby,
	)
	if err != nil {
		return fmt.Errorf("insert point entry: %w", err)
	}
	return nil
}

type PointStore struct {
	db *sql.DB
}

func NewPointStore(db *sql.DB) *PointStore {
	return &PointStore{db: db}
}

func scanPointEntry(scanner interface{ Scan(...any) error }) (*model.PointEntry, error) {
	var p model.PointEntry
	var refID, createdBy sql.NullInt64

	err := scanner.Scan(&p.ID, &p.TeamID, &p.Source, &refID, &p.Points, &p.Note, &createdBy, &p.CreatedAt)
	if err != nil {
		return nil, err
	}

	if refID.Valid {
		p.RefID = &refID.Int64
	}
	if createdBy.Valid {
		p.CreatedBy = &createdBy.Int64
	}
	return &p, nil
}

const pointEntryCols = `id, team_id, source, ref_id, points, note, created_by, created_at`

// CreateAdjustment records a manual point award (positive or negative).
func (s *PointStore) CreateAdjustment(teamID int64, points int, reason string, createdBy *int64) (*model.PointEntry, error) {
	var cby sql.NullInt64
	if createdBy != nil {
		cby = sql.NullInt64{Int64: *createdBy, Valid: true}
	}

	result, err := s.db.Exec(
		`INSERT INTO point_entries (team_id, source, points, note, created_by) VALUES (?, ?, ?, ?, ?)`,
		teamID, model.PointSourceManual, points, reason, cby,
	)
	if err != nil {
		return nil, fmt.Errorf("insert adjustment: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	row := s.db.QueryRow(`SELECT `+pointEntryCols+` FROM point_entries WHERE id = ?`, id)
	return scanPointEntry(row)
}

func (s *PointStore) ListByTeam(teamID int64) ([]model.PointEntry, error) {
	rows, err := s.db.Query(
		`SELECT `+pointEntryCols+` FROM point_entries WHERE team_id = ? ORDER BY created_at DESC, id DESC`,
		teamID,
	)
	if err != nil {
		return nil, fmt.Errorf("list point entries: %w", err)
	}
	defer rows.Close()

	var entries []model.PointEntry
	for rows.Next() {
		p, err := scanPointEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan point entry: %w", err)
		}
		entries = append(entries, *p)
	}
	return entries, rows.Err()
}

// TotalsByTeam returns each team's score: the sum of its ledger.
func (s *PointStore) TotalsByTeam() (map[int64]int, error) {
	rows, err := s.db.Query(`SELECT team_id, COALESCE(SUM(points), 0) FROM point_entries GROUP BY team_id`)
	if err != nil {
		return nil, fmt.Errorf("point totals: %w", err)
	}
	defer rows.Close()

	totals := make(map[int64]int)
	for rows.Next() {
		var teamID int64
		var total int
		if err := rows.Scan(&teamID, &total); err != nil {
			return nil, fmt.Errorf("scan point total: %w", err)
		}
		totals[teamID] = total
	}
	return totals, rows.Err()
}

// TotalForTeam returns one team's score.
func (s *PointStore) TotalForTeam(teamID int64) (int, error) {
	var total sql.NullInt64
	err := s.db.QueryRow(
		`SELECT COALESCE(SUM(points), 0) FROM point_entries WHERE team_id = ?`,
		teamID,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("team point total: %w", err)
	}
	return int(total.Int64), nil
}

// ResetTeam deletes the team's entire ledger, zeroing its score.
func (s *PointStore) ResetTeam(teamID int64) (int64, error) {
	result, err := s.db.Exec(`DELETE FROM point_entries WHERE team_id = ?`, teamID)
	if err != nil {
		return 0, fmt.Errorf("reset team points: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return count, nil
}
