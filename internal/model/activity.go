package model

import "time"

const (
	SubmissionStatusPending  = "pending"
	SubmissionStatusApproved = "approved"
	SubmissionStatusRejected = "rejected"
)

// FieldKind enumerates the requirement field variants an activity may ask for.
type FieldKind string

const (
	FieldPhotoURL FieldKind = "photo_url"
	FieldNumber   FieldKind = "number"
	FieldText     FieldKind = "text"
)

// RequirementField is one entry in an activity's tagged-variant field schema.
// Min and Max only apply to FieldNumber.
type RequirementField struct {
	Name     string    `json:"name"`
	Kind     FieldKind `json:"kind"`
	Required bool      `json:"required"`
	Min      *float64  `json:"min,omitempty"`
	Max      *float64  `json:"max,omitempty"`
}

type Activity struct {
	ID           int64              `json:"id"`
	Title        string             `json:"title"`
	Description  string             `json:"description"`
	Points       int                `json:"points"`
	Requirements []RequirementField `json:"requirements"`
	Active       bool               `json:"active"`
	CreatedAt    time.Time          `json:"created_at"`
}

type ActivitySubmission struct {
	ID            int64          `json:"id"`
	ActivityID    int64          `json:"activity_id"`
	TeamID        int64          `json:"team_id"`
	SubmittedBy   *int64         `json:"submitted_by"`
	Responses     map[string]any `json:"responses"`
	Status        string         `json:"status"`
	PointsAwarded *int           `json:"points_awarded"`
	ReviewedBy    *int64         `json:"reviewed_by"`
	ReviewedAt    *time.Time     `json:"reviewed_at"`
	CreatedAt     time.Time      `json:"created_at"`
}
