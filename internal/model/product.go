package model

import "time"

type Product struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Price         int       `json:"price"`
	PointsPerUnit int       `json:"points_per_unit"`
	Inventory     int       `json:"inventory"`
	Active        bool      `json:"active"`
	CreatedAt     time.Time `json:"created_at"`
}

type Sale struct {
	ID        int64     `json:"id"`
	ProductID int64     `json:"product_id"`
	TeamID    int64     `json:"team_id"`
	Quantity  int       `json:"quantity"`
	SoldBy    *int64    `json:"sold_by"`
	CreatedAt time.Time `json:"created_at"`
}

// SaleStats is the per-team merchandise breakdown shown on the leaderboard.
type SaleStats struct {
	Quantity int `json:"quantity"`
	Count    int `json:"count"`
}
