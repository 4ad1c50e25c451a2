package repository

import (
	"database/sql"
	"fmt"

	"github.com/guildsync/backend/internal/database"
	"github.com/guildsync/backend/internal/models"
)

type StatsRepository struct {
	db *database.DB
}

func NewStatsRepository(db *database.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

// Get retrieves the singleton aggregate record; ok=false when it has never
// been written
func (r *StatsRepository) Get() (*models.AggregateStats, bool, error) {
	query := `
		SELECT total_members, online_members, active_today, recent_evictions, last_updated
		FROM aggregate_stats
		WHERE id = 1
	`

	var s models.AggregateStats
	err := r.db.QueryRow(query).Scan(
		&s.TotalMembers,
		&s.OnlineMembers,
		&s.ActiveToday,
		&s.RecentEvictions,
		&s.LastUpdated,
	)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get stats: %w", err)
	}
	return &s, true, nil
}

// Put writes the singleton aggregate record
func (r *StatsRepository) Put(s *models.AggregateStats) error {
	query := `
		INSERT INTO aggregate_stats (id, total_members, online_members, active_today, recent_evictions, last_updated)
		VALUES (1, $1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			total_members = EXCLUDED.total_members,
			online_members = EXCLUDED.online_members,
			active_today = EXCLUDED.active_today,
			recent_evictions = EXCLUDED.recent_evictions,
			last_updated = EXCLUDED.last_updated
	`

	_, err := r.db.Exec(query, s.TotalMembers, s.OnlineMembers, s.ActiveToday, s.RecentEvictions, s.LastUpdated)
	if err != nil {
		return fmt.Errorf("failed to put stats: %w", err)
	}
	return nil
}
