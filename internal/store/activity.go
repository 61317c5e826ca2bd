package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ewhitaker/rallyup/internal/model"
)

type ActivityStore struct {
	db *sql.DB
}

func NewActivityStore(db *sql.DB) *ActivityStore {
	return &ActivityStore{db: db}
}

func scanActivity(scanner interface{ Scan(...any) error }) (*model.Activity, error) {
	var a model.Activity
	var active int
	var requirements string

	err := scanner.Scan(&a.ID, &a.Title, &a.Description, &a.Points, &requirements, &active, &a.CreatedAt)
	if err != nil {
		return nil, err
	}

	a.Active = active != 0
	if err := json.Unmarshal([]byte(requirements), &a.Requirements); err != nil {
		return nil, fmt.Errorf("decode requirements: %w", err)
	}
	return &a, nil
}

const activityCols = `id, title, description, points, requirements, active, created_at`

func (s *ActivityStore) Create(title, description string, points int, requirements []model.RequirementField, active bool) (*model.Activity, error) {
	var a int
	if active {
		a = 1
	}
	if requirements == nil {
		requirements = []model.RequirementField{}
	}
	reqJSON, err := json.Marshal(requirements)
	if err != nil {
		return nil, fmt.Errorf("encode requirements: %w", err)
	}

	result, err := s.db.Exec(
		`INSERT INTO activities (title, description, points, requirements, active) VALUES (?, ?, ?, ?, ?)`,
		title, description, points, string(reqJSON), a,
	)
	if err != nil {
		return nil, fmt.Errorf("insert activity: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *ActivityStore) GetByID(id int64) (*model.Activity, error) {
	row := s.db.QueryRow(`SELECT `+activityCols+` FROM activities WHERE id = ?`, id)
	a, err := scanActivity(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get activity: %w", err)
	}
	return a, nil
}

// List returns all activities, active first, then by title.
func (s *ActivityStore) List() ([]model.Activity, error) {
	rows, err := s.db.Query(`SELECT ` + activityCols + ` FROM activities ORDER BY active DESC, title ASC`)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	defer rows.Close()

	var activities []model.Activity
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		activities = append(activities, *a)
	}
	return activities, rows.Err()
}

func (s *ActivityStore) Update(id int64, title, description string, points int, requirements []model.RequirementField, active bool) (*model.Activity, error) {
	var a int
	if active {
		a = 1
	}
	if requirements == nil {
		requirements = []model.RequirementField{}
	}
	reqJSON, err := json.Marshal(requirements)
	if err != nil {
		return nil, fmt.Errorf("encode requirements: %w", err)
	}

	_, err = s.db.Exec(
		`UPDATE activities SET title = ?, description = ?, points = ?, requirements = ?, active = ? WHERE id = ?`,
		title, description, points, string(reqJSON), a, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update activity: %w", err)
	}
	return s.GetByID(id)
}

// --- Submission methods ---

func scanSubmission(scanner interface{ Scan(...any) error }) (*model.ActivitySubmission, error) {
	var sub model.ActivitySubmission
	var submittedBy, reviewedBy sql.NullInt64
	var pointsAwarded sql.NullInt64
	var reviewedAt sql.NullTime
	var responses string

	err := scanner.Scan(&sub.ID, &sub.ActivityID, &sub.TeamID, &submittedBy, &responses,
		&sub.Status, &pointsAwarded, &reviewedBy, &reviewedAt, &sub.CreatedAt)
	if err != nil {
		return nil, err
	}

	if submittedBy.Valid {
		sub.SubmittedBy = &submittedBy.Int64
	}
	if reviewedBy.Valid {
		sub.ReviewedBy = &reviewedBy.Int64
	}
	if pointsAwarded.Valid {
		p := int(pointsAwarded.Int64)
		sub.PointsAwarded = &p
	}
	if reviewedAt.Valid {
		sub.ReviewedAt = &reviewedAt.Time
	}
	if err := json.Unmarshal([]byte(responses), &sub.Responses); err != nil {
		return nil, fmt.Errorf("decode responses: %w", err)
	}
	return &sub, nil
}

const submissionCols = `id, activity_id, team_id, submitted_by, responses, status, points_awarded, reviewed_by, reviewed_at, created_at`

// CreateSubmission records a pending submission. Points are only awarded on
// approval.
func (s *ActivityStore) CreateSubmission(activityID, teamID int64, submittedBy *int64, responses map[string]any) (*model.ActivitySubmission, error) {
	var sby sql.NullInt64
	if submittedBy != nil {
		sby = sql.NullInt64{Int64: *submittedBy, Valid: true}
	}
	if responses == nil {
		responses = map[string]any{}
	}
	respJSON, err := json.Marshal(responses)
	if err != nil {
		return nil, fmt.Errorf("encode responses: %w", err)
	}

	result, err := s.db.Exec(
		`INSERT INTO activity_submissions (activity_id, team_id, submitted_by, responses) VALUES (?, ?, ?, ?)`,
		activityID, teamID, sby, string(respJSON),
	)
	if err != nil {
		return nil, fmt.Errorf("insert submission: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetSubmissionByID(id)
}

func (s *ActivityStore) GetSubmissionByID(id int64) (*model.ActivitySubmission, error) {
	row := s.db.QueryRow(`SELECT `+submissionCols+` FROM activity_submissions WHERE id = ?`, id)
	sub, err := scanSubmission(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get submission: %w", err)
	}
	return sub, nil
}

// ListSubmissions returns submissions, optionally filtered by team and/or
// status, newest first.
func (s *ActivityStore) ListSubmissions(teamID *int64, status string) ([]model.ActivitySubmission, error) {
	query := `SELECT ` + submissionCols + ` FROM activity_submissions`
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
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	var subs []model.ActivitySubmission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		subs = append(subs, *sub)
	}
	return subs, rows.Err()
}

// ApproveSubmission moves a pending submission to approved, records the
// awarded points, and writes the point ledger entry in one transaction.
// Approving a non-pending submission returns ErrAlreadyReviewed.
func (s *ActivityStore) ApproveSubmission(id int64, points int, reviewedBy *int64) (*model.ActivitySubmission, error) {
	var rby sql.NullInt64
	if reviewedBy != nil {
		rby = sql.NullInt64{Int64: *reviewedBy, Valid: true}
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var teamID int64
	err = tx.QueryRow(`SELECT team_id FROM activity_submissions WHERE id = ?`, id).Scan(&teamID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get submission: %w", err)
	}

	result, err := tx.Exec(
		`UPDATE activity_submissions SET status = ?, points_awarded = ?, reviewed_by = ?, reviewed_at = ?
		 WHERE id = ? AND status = ?`,
		model.SubmissionStatusApproved, points, rby, time.Now().UTC(), id, model.SubmissionStatusPending,
	)
	if err != nil {
		return nil, fmt.Errorf("approve submission: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return nil, ErrAlreadyReviewed
	}

	if err := insertPointEntry(tx, teamID, model.PointSourceActivity, &id, points, "", reviewedBy); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	return s.GetSubmissionByID(id)
}

// RejectSubmission moves a pending submission to rejected.
func (s *ActivityStore) RejectSubmission(id int64, reviewedBy *int64) (*model.ActivitySubmission, error) {
	var rby sql.NullInt64
	if reviewedBy != nil {
		rby = sql.NullInt64{Int64: *reviewedBy, Valid: true}
	}

	result, err := s.db.Exec(
		`UPDATE activity_submissions SET status = ?, reviewed_by = ?, reviewed_at = ? WHERE id = ? AND status = ?`,
		model.SubmissionStatusRejected, rby, time.Now().UTC(), id, model.SubmissionStatusPending,
	)
	if err != nil {
		return nil, fmt.Errorf("reject submission: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		existing, err := s.GetSubmissionByID(id)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, nil
		}
		return nil, ErrAlreadyReviewed
	}
	return s.GetSubmissionByID(id)
}

// ApprovedPointsByTeam returns per-team sums of awarded activity points for
// the leaderboard breakdown. Missing points_awarded counts as 0.
func (s *ActivityStore) ApprovedPointsByTeam() (map[int64]int, error) {
	rows, err := s.db.Query(
		`SELECT team_id, COALESCE(SUM(COALESCE(points_awarded, 0)), 0)
		 FROM activity_submissions WHERE status = ? GROUP BY team_id`,
		model.SubmissionStatusApproved,
	)
	if err != nil {
		return nil, fmt.Errorf("approved activity points: %w", err)
	}
	defer rows.Close()

	points := make(map[int64]int)
	for rows.Next() {
		var teamID int64
		var total int
		if err := rows.Scan(&teamID, &total); err != nil {
			return nil, fmt.Errorf("scan activity points: %w", err)
		}
		points[teamID] = total
	}
	return points, rows.Err()
}
