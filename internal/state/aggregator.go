package state

import (
	"time"

	"github.com/guildsync/backend/internal/models"
)

// recentWindow is the rolling window used for "active today" and "recent
// eviction" counts.
const recentWindow = 24 * time.Hour

// Aggregate derives the singleton stats record from the current members and
// the action log entries inside the rolling window. Both window checks are
// strict greater-than: activity at exactly now-24h does not count.
func Aggregate(members []models.Member, entries []models.ActionLogEntry, now time.Time) *models.AggregateStats {
	cutoff := now.Add(-recentWindow)
	st := &models.AggregateStats{
		TotalMembers: len(members),
		LastUpdated:  now,
	}
	for _, m := range members {
		if m.Status == models.StatusOnline {
			st.OnlineMembers++
		}
		if m.LastSeen.After(cutoff) {
			st.ActiveToday++
		}
	}
	for _, e := range entries {
		if e.CreatedAt.After(cutoff) {
			st.RecentEvictions++
		}
	}
	return st
}
