package state

import (
	"fmt"
	"sync"
	"time"

	"github.com/guildsync/backend/internal/models"
)

// MemberRepository is the persistence collaborator for member records. The
// store depends only on this contract; Postgres and in-memory
// implementations live in internal/repository.
type MemberRepository interface {
	GetAll() ([]models.Member, error)
	GetByID(id string) (*models.Member, bool, error)
	Put(m *models.Member) error
	Delete(id string) (bool, error)
}

// ActionLogRepository persists the append-only moderation action log.
type ActionLogRepository interface {
	Append(e *models.ActionLogEntry) error
	ListSince(t time.Time) ([]models.ActionLogEntry, error)
}

// StatsRepository owns the singleton aggregate record.
type StatsRepository interface {
	Get() (*models.AggregateStats, bool, error)
	Put(s *models.AggregateStats) error
}

// Store is the single source of truth for member state. Every mutation is
// one atomic unit that also recomputes and persists the aggregate stats
// before returning, so readers never observe the two out of sync.
type Store struct {
	mu      sync.RWMutex
	members MemberRepository
	log     ActionLogRepository
	stats   StatsRepository
	now     func() time.Time
}

// NewStore creates a Store over the given persistence collaborators.
func NewStore(members MemberRepository, log ActionLogRepository, stats StatsRepository) *Store {
	return &Store{
		members: members,
		log:     log,
		stats:   stats,
		now:     time.Now,
	}
}

// GetAll returns a snapshot of every member record.
func (s *Store) GetAll() ([]models.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.members.GetAll()
}

// GetByID returns the member with the given id, or ok=false if absent.
func (s *Store) GetByID(id string) (*models.Member, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.members.GetByID(id)
}

// Stats returns the current aggregate record, lazily creating a zero-valued
// singleton if none has been computed yet.
func (s *Store) Stats() (*models.AggregateStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok, err := s.stats.Get()
	if err != nil {
		return nil, err
	}
	if !ok {
		return &models.AggregateStats{}, nil
	}
	return st, nil
}

// Create inserts a new member record, filling defaults for zero fields.
func (s *Store) Create(m *models.Member) (*models.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := m.Clone()
	if rec.Status == "" {
		rec.Status = models.StatusOffline
	}
	if rec.Role == "" {
		rec.Role = models.RoleMember
	}
	if rec.RoleTags == nil {
		rec.RoleTags = []string{}
	}
	if rec.LastSeen.IsZero() {
		rec.LastSeen = s.now()
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	if err := s.members.Put(rec); err != nil {
		return nil, fmt.Errorf("failed to create member: %w", err)
	}
	if err := s.recompute(); err != nil {
		return nil, err
	}
	return rec.Clone(), nil
}

// Upsert reconciles one member against the store during snapshot sync.
// Locally owned fields (cash, role tags, last activity) are preserved for
// existing records, so applying the same snapshot twice leaves the store
// unchanged.
func (s *Store) Upsert(m *models.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := m.Clone()
	cur, ok, err := s.members.GetByID(rec.ID)
	if err != nil {
		return err
	}
	if ok {
		rec.Cash = cur.Cash
		rec.RoleTags = append([]string(nil), cur.RoleTags...)
		rec.LastSeen = cur.LastSeen
	} else {
		if rec.RoleTags == nil {
			rec.RoleTags = []string{}
		}
		if rec.LastSeen.IsZero() {
			rec.LastSeen = s.now()
		}
	}
	if err := rec.Validate(); err != nil {
		return err
	}
	if err := s.members.Put(rec); err != nil {
		return fmt.Errorf("failed to upsert member: %w", err)
	}
	return s.recompute()
}

// Update applies a partial mutation and refreshes the member's last
// activity. Returns ok=false when the member does not exist.
func (s *Store) Update(id string, upd models.MemberUpdate) (*models.Member, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok, err := s.members.GetByID(id)
	if err != nil || !ok {
		return nil, ok, err
	}
	if upd.DisplayName != nil {
		cur.DisplayName = *upd.DisplayName
	}
	if upd.Handle != nil {
		cur.Handle = *upd.Handle
	}
	if upd.Status != nil {
		cur.Status = *upd.Status
	}
	if upd.Role != nil {
		cur.Role = *upd.Role
	}
	cur.LastSeen = s.now()
	if err := cur.Validate(); err != nil {
		return nil, true, err
	}
	if err := s.members.Put(cur); err != nil {
		return nil, true, fmt.Errorf("failed to update member: %w", err)
	}
	if err := s.recompute(); err != nil {
		return nil, true, err
	}
	return cur.Clone(), true, nil
}

// Delete removes the member record. Deleting an absent id is a no-op
// signalled through ok=false.
func (s *Store) Delete(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ok, err := s.members.Delete(id)
	if err != nil {
		return false, fmt.Errorf("failed to delete member: %w", err)
	}
	if !ok {
		return false, nil
	}
	return true, s.recompute()
}

// SetBalance overrides the member's balance with an absolute amount.
// Negative amounts are rejected.
func (s *Store) SetBalance(id string, amount int64) (bool, error) {
	if amount < 0 {
		return false, fmt.Errorf("balance must not be negative, got %d", amount)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok, err := s.members.GetByID(id)
	if err != nil || !ok {
		return ok, err
	}
	cur.Cash = amount
	cur.LastSeen = s.now()
	if err := s.members.Put(cur); err != nil {
		return true, fmt.Errorf("failed to set balance: %w", err)
	}
	return true, s.recompute()
}

// AddBalance applies a signed delta to the member's balance. No lower bound
// is enforced on the result.
func (s *Store) AddBalance(id string, delta int64) (*models.Member, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok, err := s.members.GetByID(id)
	if err != nil || !ok {
		return nil, ok, err
	}
	cur.Cash += delta
	cur.LastSeen = s.now()
	if err := s.members.Put(cur); err != nil {
		return nil, true, fmt.Errorf("failed to add balance: %w", err)
	}
	if err := s.recompute(); err != nil {
		return nil, true, err
	}
	return cur.Clone(), true, nil
}

// AddTag adds a role tag to the member's tag set. Adding a tag that is
// already present is a no-op.
func (s *Store) AddTag(id, tag string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok, err := s.members.GetByID(id)
	if err != nil || !ok {
		return ok, err
	}
	if cur.HasTag(tag) {
		return true, nil
	}
	cur.RoleTags = append(cur.RoleTags, tag)
	cur.LastSeen = s.now()
	if err := s.members.Put(cur); err != nil {
		return true, fmt.Errorf("failed to add tag: %w", err)
	}
	return true, s.recompute()
}

// RemoveTag removes a role tag from the member's tag set. Removing an
// absent tag is a no-op.
func (s *Store) RemoveTag(id, tag string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok, err := s.members.GetByID(id)
	if err != nil || !ok {
		return ok, err
	}
	if !cur.HasTag(tag) {
		return true, nil
	}
	tags := make([]string, 0, len(cur.RoleTags)-1)
	for _, t := range cur.RoleTags {
		if t != tag {
			tags = append(tags, t)
		}
	}
	cur.RoleTags = tags
	cur.LastSeen = s.now()
	if err := s.members.Put(cur); err != nil {
		return true, fmt.Errorf("failed to remove tag: %w", err)
	}
	return true, s.recompute()
}

// AppendAction writes one action log entry and recomputes the aggregate.
func (s *Store) AppendAction(e *models.ActionLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}
	if err := s.log.Append(e); err != nil {
		return fmt.Errorf("failed to append action log: %w", err)
	}
	return s.recompute()
}

// recompute derives the aggregate record and persists it. Callers must hold
// the write lock.
func (s *Store) recompute() error {
	now := s.now()
	members, err := s.members.GetAll()
	if err != nil {
		return fmt.Errorf("failed to load members for stats: %w", err)
	}
	entries, err := s.log.ListSince(now.Add(-recentWindow))
	if err != nil {
		return fmt.Errorf("failed to load action log for stats: %w", err)
	}
	st := Aggregate(members, entries, now)
	if err := s.stats.Put(st); err != nil {
		return fmt.Errorf("failed to persist stats: %w", err)
	}
	return nil
}
