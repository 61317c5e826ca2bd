package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/ewhitaker/rallyup/internal/model"
)

type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

func scanUser(scanner interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	var teamID sql.NullInt64

	err := scanner.Scan(&u.ID, &u.Email, &u.Name, &u.Role, &teamID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if teamID.Valid {
		u.TeamID = &teamID.Int64
	}
	return &u, nil
}

const userCols = `id, email, name, role, team_id, created_at, updated_at`

func (s *UserStore) Create(email, name, passwordHash, role string, teamID *int64) (*model.User, error) {
	var tid sql.NullInt64
	if teamID != nil {
		tid = sql.NullInt64{Int64: *teamID, Valid: true}
	}

	result, err := s.db.Exec(
		`INSERT INTO users (email, name, password_hash, role, team_id) VALUES (?, ?, ?, ?, ?)`,
		email, name, passwordHash, role, tid,
	)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *UserStore) GetByID(id int64) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *UserStore) GetByEmail(email string) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE email = ?`, email)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

// GetPasswordHash returns the stored bcrypt hash for the user, or "" if the
// user does not exist.
func (s *UserStore) GetPasswordHash(id int64) (string, error) {
	var hash string
	err := s.db.QueryRow(`SELECT password_hash FROM users WHERE id = ?`, id).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get password hash: %w", err)
	}
	return hash, nil
}

func (s *UserStore) List() ([]model.User, error) {
	rows, err := s.db.Query(`SELECT ` + userCols + ` FROM users ORDER BY email ASC`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func (s *UserStore) Update(id int64, email, name, role string, teamID *int64) (*model.User, error) {
	var tid sql.NullInt64
	if teamID != nil {
		tid = sql.NullInt64{Int64: *teamID, Valid: true}
	}

	_, err := s.db.Exec(
		`UPDATE users SET email = ?, name = ?, role = ?, team_id = ?, updated_at = ? WHERE id = ?`,
		email, name, role, tid, time.Now().UTC(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return s.GetByID(id)
}

func (s *UserStore) UpdatePassword(id int64, passwordHash string) error {
	_, err := s.db.Exec(
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		passwordHash, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

func (s *UserStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}
