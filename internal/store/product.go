package store

import (
	"database/sql"
	"fmt"

	"github.com/ewhitaker/rallyup/internal/model"
)

type ProductStore struct {
	db *sql.DB
}

func NewProductStore(db *sql.DB) *ProductStore {
	return &ProductStore{db: db}
}

func scanProduct(scanner interface{ Scan(...any) error }) (*model.Product, error) {
	var p model.Product
	var active int

	err := scanner.Scan(&p.ID, &p.Name, &p.Price, &p.PointsPerUnit, &p.Inventory, &active, &p.CreatedAt)
	if err != nil {
		return nil, err
	}

	p.Active = active != 0
	return &p, nil
}

const productCols = `id, name, price, points_per_unit, inventory, active, created_at`

func (s *ProductStore) Create(name string, price, pointsPerUnit, inventory int, active bool) (*model.Product, error) {
	var a int
	if active {
		a = 1
	}

	result, err := s.db.Exec(
		`INSERT INTO products (name, price, points_per_unit, inventory, active) VALUES (?, ?, ?, ?, ?)`,
		name, price, pointsPerUnit, inventory, a,
	)
	if err != nil {
		return nil, fmt.Errorf("insert product: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *ProductStore) GetByID(id int64) (*model.Product, error) {
	row := s.db.QueryRow(`SELECT `+productCols+` FROM products WHERE id = ?`, id)
	p, err := scanProduct(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// List returns all products, active first, then by name.
func (s *ProductStore) List() ([]model.Product, error) {
	rows, err := s.db.Query(`SELECT ` + productCols + ` FROM products ORDER BY active DESC, name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []model.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

func (s *ProductStore) Update(id int64, name string, price, pointsPerUnit, inventory int, active bool) (*model.Product, error) {
	var a int
	if active {
		a = 1
	}

	_, err := s.db.Exec(
		`UPDATE products SET name = ?, price = ?, points_per_unit = ?, inventory = ?, active = ? WHERE id = ?`,
		name, price, pointsPerUnit, inventory, a, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}
	return s.GetByID(id)
}

func (s *ProductStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	return nil
}
