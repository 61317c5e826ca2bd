package model

import "time"

type Donation struct {
	ID         int64     `json:"id"`
	TeamID     int64     `json:"team_id"`
	DonorName  string    `json:"donor_name"`
	Amount     int       `json:"amount"`
	RecordedBy *int64    `json:"recorded_by"`
	CreatedAt  time.Time `json:"created_at"`
}

// DonationStats is the per-team donation breakdown shown on the leaderboard.
type DonationStats struct {
	Total int `json:"total"`
	Count int `json:"count"`
}
