package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/guildsync/backend/internal/database"
	"github.com/guildsync/backend/internal/models"
)

// ErrDuplicateTerm signals an insert of a term that is already blocked.
var ErrDuplicateTerm = errors.New("term is already blocked")

type BlockedTermRepository struct {
	db *database.DB
}

func NewBlockedTermRepository(db *database.DB) *BlockedTermRepository {
	return &BlockedTermRepository{db: db}
}

// List retrieves all blocked terms
func (r *BlockedTermRepository) List() ([]models.BlockedTerm, error) {
	query := `SELECT id, term, created_by, created_at FROM blocked_terms ORDER BY term`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query blocked terms: %w", err)
	}
	defer rows.Close()

	terms := []models.BlockedTerm{}
	for rows.Next() {
		var t models.BlockedTerm
		if err := rows.Scan(&t.ID, &t.Term, &t.CreatedBy, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan blocked term: %w", err)
		}
		terms = append(terms, t)
	}
	return terms, rows.Err()
}

// Add inserts a blocked term. The term is stored case-folded; inserting a
// duplicate returns ErrDuplicateTerm.
func (r *BlockedTermRepository) Add(t *models.BlockedTerm) error {
	t.Term = strings.ToLower(t.Term)
	query := `INSERT INTO blocked_terms (id, term, created_by, created_at) VALUES ($1, $2, $3, $4)`

	if _, err := r.db.Exec(query, t.ID, t.Term, t.CreatedBy, t.CreatedAt); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateTerm
		}
		return fmt.Errorf("failed to add blocked term: %w", err)
	}
	return nil
}

// Remove deletes a blocked term by id; ok=false when no row existed
func (r *BlockedTermRepository) Remove(id string) (bool, error) {
	res, err := r.db.Exec(`DELETE FROM blocked_terms WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to remove blocked term: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
