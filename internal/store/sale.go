package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/ewhitaker/rallyup/internal/model"
)

// ErrInsufficientInventory is returned when a sale asks for more units than
// the product has left. The transaction is rolled back in full.
var ErrInsufficientInventory = errors.New("insufficient inventory")

type SaleStore struct {
	db *sql.DB
}

func NewSaleStore(db *sql.DB) *SaleStore {
	return &SaleStore{db: db}
}

func scanSale(scanner interface{ Scan(...any) error }) (*model.Sale, error) {
	var s model.Sale
	var soldBy sql.NullInt64

	err := scanner.Scan(&s.ID, &s.ProductID, &s.TeamID, &s.Quantity, &soldBy, &s.CreatedAt)
	if err != nil {
		return nil, err
	}

	if soldBy.Valid {
		s.SoldBy = &soldBy.Int64
	}
	return &s, nil
}

const saleCols = `id, product_id, team_id, quantity, sold_by, created_at`

// Create decrements inventory, records the sale, and writes its point ledger
// entry, all in one transaction. Points are quantity x the product's
// points_per_unit at time of sale.
func (s *SaleStore) Create(productID, teamID int64, quantity int, soldBy *int64) (*model.Sale, error) {
	var sby sql.NullInt64
	if soldBy != nil {
		sby = sql.NullInt64{Int64: *soldBy, Valid: true}
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var pointsPerUnit int
	err = tx.QueryRow(`SELECT points_per_unit FROM products WHERE id = ?`, productID).Scan(&pointsPerUnit)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}

	// Guarded decrement: zero rows affected means not enough stock.
	result, err := tx.Exec(
		`UPDATE products SET inventory = inventory - ? WHERE id = ? AND inventory >= ?`,
		quantity, productID, quantity,
	)
	if err != nil {
		return nil, fmt.Errorf("decrement inventory: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return nil, ErrInsufficientInventory
	}

	result, err = tx.Exec(
		`INSERT INTO sales (product_id, team_id, quantity, sold_by) VALUES (?, ?, ?, ?)`,
		productID, teamID, quantity, sby,
	)
	if err != nil {
		return nil, fmt.Errorf("insert sale: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	if err := insertPointEntry(tx, teamID, model.PointSourceSale, &id, quantity*pointsPerUnit, "", soldBy); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	return s.GetByID(id)
}

func (s *SaleStore) GetByID(id int64) (*model.Sale, error) {
	row := s.db.QueryRow(`SELECT `+saleCols+` FROM sales WHERE id = ?`, id)
	sale, err := scanSale(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get sale: %w", err)
	}
	return sale, nil
}

// Delete restores inventory, removes the sale's ledger entry, and deletes the
// sale row in one transaction.
func (s *SaleStore) Delete(id int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var productID int64
	var quantity int
	err = tx.QueryRow(`SELECT product_id, quantity FROM sales WHERE id = ?`, id).Scan(&productID, &quantity)
	if err == sql.ErrNoRows {
		return sql.ErrNoRows
	}
	if err != nil {
		return fmt.Errorf("get sale: %w", err)
	}

	if _, err := tx.Exec(`UPDATE products SET inventory = inventory + ? WHERE id = ?`, quantity, productID); err != nil {
		return fmt.Errorf("restore inventory: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM point_entries WHERE source = ? AND ref_id = ?`, model.PointSourceSale, id); err != nil {
		return fmt.Errorf("delete sale ledger entry: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM sales WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete sale: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// List returns sales, optionally filtered to one team, newest first.
func (s *SaleStore) List(teamID *int64) ([]model.Sale, error) {
	query := `SELECT ` + saleCols + ` FROM sales`
	var args []any
	if teamID != nil {
		query += ` WHERE team_id = ?`
		args = append(args, *teamID)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	defer rows.Close()

	var sales []model.Sale
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sale: %w", err)
		}
		sales = append(sales, *sale)
	}
	return sales, rows.Err()
}

// StatsByTeam returns per-team sale quantities and counts for the leaderboard
// breakdown.
func (s *SaleStore) StatsByTeam() (map[int64]model.SaleStats, error) {
	rows, err := s.db.Query(`SELECT team_id, COALESCE(SUM(quantity), 0), COUNT(*) FROM sales GROUP BY team_id`)
	if err != nil {
		return nil, fmt.Errorf("sale stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[int64]model.SaleStats)
	for rows.Next() {
		var teamID int64
		var st model.SaleStats
		if err := rows.Scan(&teamID, &st.Quantity, &st.Count); err != nil {
			return nil, fmt.Errorf("scan sale stats: %w", err)
		}
		stats[teamID] = st
	}
	return stats, rows.Err()
}
