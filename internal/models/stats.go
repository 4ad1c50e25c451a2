package models

import "time"

// AggregateStats is the singleton derived record. It is recomputed from the
// member store and action log after every mutation, never authored directly.
type AggregateStats struct {
	TotalMembers    int       `json:"total_members" db:"total_members"`
	OnlineMembers   int       `json:"online_members" db:"online_members"`
	ActiveToday     int       `json:"active_today" db:"active_today"`
	RecentEvictions int       `json:"recent_evictions" db:"recent_evictions"`
	LastUpdated     time.Time `json:"last_updated" db:"last_updated"`
}
