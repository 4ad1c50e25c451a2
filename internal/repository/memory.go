package repository

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/guildsync/backend/internal/models"
)

// Memory holds an in-memory copy of every persisted collection. It backs
// the server when no database is configured and the package tests. The
// Members/ActionLog/Stats/Terms views satisfy the same contracts as the
// Postgres repositories.
type Memory struct {
	mu      sync.RWMutex
	members map[string]*models.Member
	log     []models.ActionLogEntry
	stats   *models.AggregateStats
	terms   map[string]models.BlockedTerm // keyed by case-folded term
}

func NewMemory() *Memory {
	return &Memory{
		members: make(map[string]*models.Member),
		terms:   make(map[string]models.BlockedTerm),
	}
}

func (m *Memory) Members() *MemoryMembers     { return &MemoryMembers{m} }
func (m *Memory) ActionLog() *MemoryActionLog { return &MemoryActionLog{m} }
func (m *Memory) Stats() *MemoryStats         { return &MemoryStats{m} }
func (m *Memory) Terms() *MemoryTerms         { return &MemoryTerms{m} }

type MemoryMembers struct{ m *Memory }

func (r *MemoryMembers) GetAll() ([]models.Member, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	members := make([]models.Member, 0, len(r.m.members))
	for _, rec := range r.m.members {
		members = append(members, *rec.Clone())
	}
	sort.Slice(members, func(i, j int) bool { return members[i].ID < members[j].ID })
	return members, nil
}

func (r *MemoryMembers) GetByID(id string) (*models.Member, bool, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	rec, ok := r.m.members[id]
	if !ok {
		return nil, false, nil
	}
	return rec.Clone(), true, nil
}

func (r *MemoryMembers) Put(rec *models.Member) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	r.m.members[rec.ID] = rec.Clone()
	return nil
}

func (r *MemoryMembers) Delete(id string) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if _, ok := r.m.members[id]; !ok {
		return false, nil
	}
	delete(r.m.members, id)
	return true, nil
}

type MemoryActionLog struct{ m *Memory }

func (r *MemoryActionLog) Append(e *models.ActionLogEntry) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	r.m.log = append(r.m.log, *e)
	return nil
}

func (r *MemoryActionLog) ListSince(t time.Time) ([]models.ActionLogEntry, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	entries := []models.ActionLogEntry{}
	for _, e := range r.m.log {
		if e.CreatedAt.After(t) {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

func (r *MemoryActionLog) List(limit int) ([]models.ActionLogEntry, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}
	entries := append([]models.ActionLogEntry(nil), r.m.log...)
	sort.Slice(entries, func(i, j int) bool { return entries[i].CreatedAt.After(entries[j].CreatedAt) })
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

type MemoryStats struct{ m *Memory }

func (r *MemoryStats) Get() (*models.AggregateStats, bool, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	if r.m.stats == nil {
		return nil, false, nil
	}
	cp := *r.m.stats
	return &cp, true, nil
}

func (r *MemoryStats) Put(s *models.AggregateStats) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	cp := *s
	r.m.stats = &cp
	return nil
}

type MemoryTerms struct{ m *Memory }

func (r *MemoryTerms) List() ([]models.BlockedTerm, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	terms := make([]models.BlockedTerm, 0, len(r.m.terms))
	for _, t := range r.m.terms {
		terms = append(terms, t)
	}
	sort.Slice(terms, func(i, j int) bool { return terms[i].Term < terms[j].Term })
	return terms, nil
}

func (r *MemoryTerms) Add(t *models.BlockedTerm) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	t.Term = strings.ToLower(t.Term)
	if _, ok := r.m.terms[t.Term]; ok {
		return ErrDuplicateTerm
	}
	r.m.terms[t.Term] = *t
	return nil
}

func (r *MemoryTerms) Remove(id string) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	for key, t := range r.m.terms {
		if t.ID.String() == id {
			delete(r.m.terms, key)
			return true, nil
		}
	}
	return false, nil
}
