package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/guildsync/backend/internal/database"
	"github.com/guildsync/backend/internal/models"
)

type MemberRepository struct {
	db *database.DB
}

func NewMemberRepository(db *database.DB) *MemberRepository {
	return &MemberRepository{db: db}
}

// GetAll retrieves every member record
func (r *MemberRepository) GetAll() ([]models.Member, error) {
	query := `
		SELECT id, display_name, handle, status, role, role_tags, cash, guild_joined_at, joined_platform, last_seen
		FROM members
		ORDER BY id
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query members: %w", err)
	}
	defer rows.Close()

	members := []models.Member{}
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, *m)
	}
	return members, rows.Err()
}

// GetByID retrieves a member by id; ok=false when no record exists
func (r *MemberRepository) GetByID(id string) (*models.Member, bool, error) {
	query := `
		SELECT id, display_name, handle, status, role, role_tags, cash, guild_joined_at, joined_platform, last_seen
		FROM members
		WHERE id = $1
	`

	m, err := scanMember(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return m, true, nil
}

// Put inserts or fully replaces a member record
func (r *MemberRepository) Put(m *models.Member) error {
	query := `
		INSERT INTO members (id, display_name, handle, status, role, role_tags, cash, guild_joined_at, joined_platform, last_seen)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			handle = EXCLUDED.handle,
			status = EXCLUDED.status,
			role = EXCLUDED.role,
			role_tags = EXCLUDED.role_tags,
			cash = EXCLUDED.cash,
			guild_joined_at = EXCLUDED.guild_joined_at,
			joined_platform = EXCLUDED.joined_platform,
			last_seen = EXCLUDED.last_seen
	`

	_, err := r.db.Exec(
		query,
		m.ID,
		m.DisplayName,
		m.Handle,
		m.Status,
		m.Role,
		pq.Array(m.RoleTags),
		m.Cash,
		nullTime(m.GuildJoinedAt),
		nullTime(m.JoinedPlatform),
		m.LastSeen,
	)
	if err != nil {
		return fmt.Errorf("failed to put member: %w", err)
	}
	return nil
}

// Delete removes a member record; ok=false when no record existed
func (r *MemberRepository) Delete(id string) (bool, error) {
	res, err := r.db.Exec(`DELETE FROM members WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete member: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMember(row rowScanner) (*models.Member, error) {
	var m models.Member
	var tags pq.StringArray
	var guildJoined, joinedPlatform sql.NullTime

	err := row.Scan(
		&m.ID,
		&m.DisplayName,
		&m.Handle,
		&m.Status,
		&m.Role,
		&tags,
		&m.Cash,
		&guildJoined,
		&joinedPlatform,
		&m.LastSeen,
	)
	if err != nil {
		return nil, err
	}

	m.RoleTags = []string(tags)
	if m.RoleTags == nil {
		m.RoleTags = []string{}
	}
	if guildJoined.Valid {
		m.GuildJoinedAt = guildJoined.Time
	}
	if joinedPlatform.Valid {
		m.JoinedPlatform = joinedPlatform.Time
	}
	return &m, nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
