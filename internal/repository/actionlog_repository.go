package repository

import (
	"fmt"
	"time"

	"github.com/guildsync/backend/internal/database"
	"github.com/guildsync/backend/internal/models"
)

type ActionLogRepository struct {
	db *database.DB
}

func NewActionLogRepository(db *database.DB) *ActionLogRepository {
	return &ActionLogRepository{db: db}
}

// Append writes one action log entry. Entries are never updated or deleted.
func (r *ActionLogRepository) Append(e *models.ActionLogEntry) error {
	query := `
		INSERT INTO action_log (id, member_id, actor, action, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.Exec(query, e.ID, e.MemberID, e.Actor, e.Action, e.Reason, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append action log: %w", err)
	}
	return nil
}

// ListSince retrieves entries created after the given time
func (r *ActionLogRepository) ListSince(t time.Time) ([]models.ActionLogEntry, error) {
	query := `
		SELECT id, member_id, actor, action, reason, created_at
		FROM action_log
		WHERE created_at > $1
		ORDER BY created_at
	`

	rows, err := r.db.Query(query, t)
	if err != nil {
		return nil, fmt.Errorf("failed to query action log: %w", err)
	}
	defer rows.Close()

	entries := []models.ActionLogEntry{}
	for rows.Next() {
		var e models.ActionLogEntry
		if err := rows.Scan(&e.ID, &e.MemberID, &e.Actor, &e.Action, &e.Reason, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan action log entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// List retrieves the most recent entries, newest first
func (r *ActionLogRepository) List(limit int) ([]models.ActionLogEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, member_id, actor, action, reason, created_at
		FROM action_log
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query action log: %w", err)
	}
	defer rows.Close()

	entries := []models.ActionLogEntry{}
	for rows.Next() {
		var e models.ActionLogEntry
		if err := rows.Scan(&e.ID, &e.MemberID, &e.Actor, &e.Action, &e.Reason, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan action log entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
