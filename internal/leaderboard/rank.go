package leaderboard

import (
	"sort"

	"github.com/ewhitaker/rallyup/internal/model"
)

// Policy selects how ranks are assigned to sorted entries.
type Policy string

const (
	// PolicyStandard assigns dense sequential ranks 1..N. Ties break by
	// ascending team id, so every recompute yields the same order.
	PolicyStandard Policy = "standard"

	// PolicyCompetition gives tied scores a shared rank; the rank after a
	// tie group skips by the group's size (1, 2, 2, 4).
	PolicyCompetition Policy = "competition"
)

// ParsePolicy maps a rank_policy setting value to a Policy. Unknown values
// fall back to standard.
func ParsePolicy(value string) Policy {
	if Policy(value) == PolicyCompetition {
		return PolicyCompetition
	}
	return PolicyStandard
}

// rank sorts entries by total score descending (team id ascending on ties)
// and assigns ranks in place under the given policy.
func rank(entries []model.LeaderboardEntry, policy Policy) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].TotalScore != entries[j].TotalScore {
			return entries[i].TotalScore > entries[j].TotalScore
		}
		return entries[i].ID < entries[j].ID
	})

	for i := range entries {
		switch policy {
		case PolicyCompetition:
			if i > 0 && entries[i].TotalScore == entries[i-1].TotalScore {
				entries[i].Rank = entries[i-1].Rank
			} else {
				entries[i].Rank = i + 1
			}
		default:
			entries[i].Rank = i + 1
		}
	}
}
