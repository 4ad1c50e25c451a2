package database

import (
	"database/sql"
	"fmt"
	"sort"
)

// Migration represents a database migration
type Migration struct {
	Version int
	Up      string
	Down    string
}

// Migrations contains all database migrations
var Migrations = []Migration{
	{
		Version: 1,
		Up: `
			CREATE EXTENSION IF NOT EXISTS "uuid-ossp";

			CREATE TABLE IF NOT EXISTS members (
				id TEXT PRIMARY KEY,
				display_name VARCHAR(255) NOT NULL,
				handle VARCHAR(255) NOT NULL,
				status VARCHAR(20) NOT NULL DEFAULT 'offline',
				role VARCHAR(50) NOT NULL DEFAULT 'Member',
				role_tags TEXT[] NOT NULL DEFAULT '{}',
				cash BIGINT NOT NULL DEFAULT 0,
				guild_joined_at TIMESTAMP,
				joined_platform TIMESTAMP,
				last_seen TIMESTAMP NOT NULL DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS idx_members_status ON members(status);
			CREATE INDEX IF NOT EXISTS idx_members_last_seen ON members(last_seen);
		`,
		Down: `
			DROP TABLE IF EXISTS members;
		`,
	},
	{
		Version: 2,
		Up: `
			CREATE TABLE IF NOT EXISTS action_log (
				id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
				member_id TEXT NOT NULL,
				actor VARCHAR(255) NOT NULL,
				action VARCHAR(50) NOT NULL,
				reason TEXT,
				created_at TIMESTAMP NOT NULL DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS idx_action_log_member ON action_log(member_id);
			CREATE INDEX IF NOT EXISTS idx_action_log_created ON action_log(created_at);
		`,
		Down: `
			DROP TABLE IF EXISTS action_log;
		`,
	},
	{
		Version: 3,
		Up: `
			CREATE TABLE IF NOT EXISTS aggregate_stats (
				id INT PRIMARY KEY CHECK (id = 1),
				total_members INT NOT NULL DEFAULT 0,
				online_members INT NOT NULL DEFAULT 0,
				active_today INT NOT NULL DEFAULT 0,
				recent_evictions INT NOT NULL DEFAULT 0,
				last_updated TIMESTAMP NOT NULL DEFAULT NOW()
			);
		`,
		Down: `
			DROP TABLE IF EXISTS aggregate_stats;
		`,
	},
	{
		Version: 4,
		Up: `
			CREATE TABLE IF NOT EXISTS blocked_terms (
				id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
				term VARCHAR(255) UNIQUE NOT NULL,
				created_by VARCHAR(255) NOT NULL,
				created_at TIMESTAMP NOT NULL DEFAULT NOW()
			);
		`,
		Down: `
			DROP TABLE IF EXISTS blocked_terms;
		`,
	},
}

// RunMigrations runs all pending migrations
func RunMigrations(db *sql.DB) error {
	if err := ensureMigrationsTable(db); err != nil {
		return fmt.Errorf("failed to ensure migrations table: %w", err)
	}

	current, err := getCurrentVersion(db)
	if err != nil {
		return fmt.Errorf("failed to get current version: %w", err)
	}

	pending := make([]Migration, 0, len(Migrations))
	for _, m := range Migrations {
		if m.Version > current {
			pending = append(pending, m)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].Version < pending[j].Version })

	for _, migration := range pending {
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin migration %d: %w", migration.Version, err)
		}

		if _, err := tx.Exec(migration.Up); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to run migration %d: %w", migration.Version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES ($1)", migration.Version); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}

		fmt.Printf("Migration %d completed\n", migration.Version)
	}

	return nil
}

func ensureMigrationsTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INT PRIMARY KEY,
			applied_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)
	return err
}

func getCurrentVersion(db *sql.DB) (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	if err != nil {
		return 0, err
	}
	return version, nil
}
