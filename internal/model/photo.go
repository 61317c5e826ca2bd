package model

import "time"

const (
	PhotoStatusPending  = "pending"
	PhotoStatusApproved = "approved"
	PhotoStatusRejected = "rejected"
)

type Photo struct {
	ID          int64      `json:"id"`
	TeamID      int64      `json:"team_id"`
	SubmittedBy *int64     `json:"submitted_by"`
	URL         string     `json:"url"`
	Caption     string     `json:"caption"`
	Status      string     `json:"status"`
	ReviewedAt  *time.Time `json:"reviewed_at"`
	CreatedAt   time.Time  `json:"created_at"`
}
