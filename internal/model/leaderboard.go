package model

// TeamStats is the informational contribution breakdown attached to each
// leaderboard entry. It is display-only; ranking uses TotalScore.
type TeamStats struct {
	TotalDonations      int `json:"total_donations"`
	DonationCount       int `json:"donation_count"`
	ShirtSaleCount      int `json:"shirt_sale_count"`
	TotalShirtSales     int `json:"total_shirt_sales"`
	ApprovedPhotosCount int `json:"approved_photos_count"`
	ActivityPoints      int `json:"activity_points"`
}

// LeaderboardEntry is derived on every recompute and never persisted.
type LeaderboardEntry struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	TotalScore  int       `json:"total_score"`
	Rank        int       `json:"rank"`
	MemberCount int       `json:"member_count"`
	Stats       TeamStats `json:"stats"`
}

// Statistics is the platform-wide fundraising summary.
type Statistics struct {
	TeamCount          int     `json:"team_count"`
	TotalRaised        int     `json:"total_raised"`
	DonationGoal       int     `json:"donation_goal"`
	ProgressPercentage float64 `json:"progress_percentage"`
}
