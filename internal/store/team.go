package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/ewhitaker/rallyup/internal/model"
)

type TeamStore struct {
	db *sql.DB
}

func NewTeamStore(db *sql.DB) *TeamStore {
	return &TeamStore{db: db}
}

func scanTeam(scanner interface{ Scan(...any) error }) (*model.Team, error) {
	var t model.Team
	var active int

	err := scanner.Scan(&t.ID, &t.Name, &active, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}

	t.Active = active != 0
	return &t, nil
}

const teamCols = `id, name, active, created_at, updated_at`

func (s *TeamStore) Create(name string) (*model.Team, error) {
	result, err := s.db.Exec(`INSERT INTO teams (name) VALUES (?)`, name)
	if err != nil {
		return nil, fmt.Errorf("insert team: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *TeamStore) GetByID(id int64) (*model.Team, error) {
	row := s.db.QueryRow(`SELECT `+teamCols+` FROM teams WHERE id = ?`, id)
	t, err := scanTeam(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get team: %w", err)
	}
	return t, nil
}

// List returns all teams ordered by name.
func (s *TeamStore) List() ([]model.Team, error) {
	rows, err := s.db.Query(`SELECT ` + teamCols + ` FROM teams ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	defer rows.Close()

	var teams []model.Team
	for rows.Next() {
		t, err := scanTeam(rows)
		if err != nil {
			return nil, fmt.Errorf("scan team: %w", err)
		}
		teams = append(teams, *t)
	}
	return teams, rows.Err()
}

// ListActive returns active teams ordered by id, which is also the
// deterministic tie-break order used by the ranker.
func (s *TeamStore) ListActive() ([]model.Team, error) {
	rows, err := s.db.Query(`SELECT ` + teamCols + ` FROM teams WHERE active = 1 ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list active teams: %w", err)
	}
	defer rows.Close()

	var teams []model.Team
	for rows.Next() {
		t, err := scanTeam(rows)
		if err != nil {
			return nil, fmt.Errorf("scan team: %w", err)
		}
		teams = append(teams, *t)
	}
	return teams, rows.Err()
}

func (s *TeamStore) Update(id int64, name string, active bool) (*model.Team, error) {
	var a int
	if active {
		a = 1
	}

	_, err := s.db.Exec(
		`UPDATE teams SET name = ?, active = ?, updated_at = ? WHERE id = ?`,
		name, a, time.Now().UTC(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update team: %w", err)
	}
	return s.GetByID(id)
}

func (s *TeamStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM teams WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete team: %w", err)
	}
	return nil
}

// MemberCounts returns the number of users attached to each team.
func (s *TeamStore) MemberCounts() (map[int64]int, error) {
	rows, err := s.db.Query(`SELECT team_id, COUNT(*) FROM users WHERE team_id IS NOT NULL GROUP BY team_id`)
	if err != nil {
		return nil, fmt.Errorf("member counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[int64]int)
	for rows.Next() {
		var teamID int64
		var count int
		if err := rows.Scan(&teamID, &count); err != nil {
			return nil, fmt.Errorf("scan member count: %w", err)
		}
		counts[teamID] = count
	}
	return counts, rows.Err()
}
