package model

import "time"

// Point ledger sources. Every score-affecting event writes one ledger row in
// the same transaction as the row it mirrors; a team's total score is the sum
// of its ledger.
const (
	PointSourceDonation = "donation"
	PointSourceSale     = "sale"
	PointSourcePhoto    = "photo"
	PointSourceActivity = "activity"
	PointSourceManual   = "manual"
)

type PointEntry struct {
	ID        int64     `json:"id"`
	TeamID    int64     `json:"team_id"`
	Source    string    `json:"source"`
	RefID     *int64    `json:"ref_id"`
	Points    int       `json:"points"`
	Note      string    `json:"note"`
	CreatedBy *int64    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}
