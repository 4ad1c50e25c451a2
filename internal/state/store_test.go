package state

import (
	"reflect"
	"testing"
	"time"

	"github.com/guildsync/backend/internal/models"
	"github.com/guildsync/backend/internal/repository"
)

func newTestStore(t *testing.T) (*Store, *repository.Memory) {
	t.Helper()
	mem := repository.NewMemory()
	return NewStore(mem.Members(), mem.ActionLog(), mem.Stats()), mem
}

func TestCreateFillsDefaults(t *testing.T) {
	store, _ := newTestStore(t)

	created, err := store.Create(&models.Member{ID: "m1", DisplayName: "Alice"})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	if created.Status != models.StatusOffline {
		t.Errorf("expected default status offline, got %s", created.Status)
	}
	if created.Role != models.RoleMember {
		t.Errorf("expected default role Member, got %s", created.Role)
	}
	if created.Cash != 0 {
		t.Errorf("expected zero balance, got %d", created.Cash)
	}
	if created.RoleTags == nil || len(created.RoleTags) != 0 {
		t.Errorf("expected empty tag set, got %v", created.RoleTags)
	}
}

func TestTotalMembersTracksLiveCount(t *testing.T) {
	store, _ := newTestStore(t)

	ids := []string{"m1", "m2", "m3"}
	for i, id := range ids {
		if _, err := store.Create(&models.Member{ID: id}); err != nil {
			t.Fatalf("Create error: %v", err)
		}
		stats, err := store.Stats()
		if err != nil {
			t.Fatalf("Stats error: %v", err)
		}
		if stats.TotalMembers != i+1 {
			t.Fatalf("after %d creates expected totalMembers=%d, got %d", i+1, i+1, stats.TotalMembers)
		}
	}

	if _, err := store.Delete("m2"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	stats, err := store.Stats()
	if err != nil {
		t.Fatalf("Stats error: %v", err)
	}
	if stats.TotalMembers != 2 {
		t.Errorf("expected totalMembers=2 after delete, got %d", stats.TotalMembers)
	}
}

func TestDeleteAbsentIsSignalledNotFailed(t *testing.T) {
	store, _ := newTestStore(t)

	ok, err := store.Delete("ghost")
	if err != nil {
		t.Fatalf("Delete of absent id should not error, got %v", err)
	}
	if ok {
		t.Error("expected ok=false for absent id")
	}
}

func TestSetBalanceRejectsNegative(t *testing.T) {
	store, _ := newTestStore(t)
	if _, err := store.Create(&models.Member{ID: "m1"}); err != nil {
		t.Fatalf("Create error: %v", err)
	}

	if _, err := store.SetBalance("m1", -5); err == nil {
		t.Fatal("expected error for negative absolute balance")
	}

	// A valid set fully overrides prior history
	if _, _, err := store.AddBalance("m1", 100); err != nil {
		t.Fatalf("AddBalance error: %v", err)
	}
	if _, err := store.SetBalance("m1", 7); err != nil {
		t.Fatalf("SetBalance error: %v", err)
	}
	m, _, _ := store.GetByID("m1")
	if m.Cash != 7 {
		t.Errorf("expected balance 7 after absolute set, got %d", m.Cash)
	}
}

func TestAddBalanceIsAssociativeWithNoFloor(t *testing.T) {
	store, _ := newTestStore(t)
	if _, err := store.Create(&models.Member{ID: "m1"}); err != nil {
		t.Fatalf("Create error: %v", err)
	}

	deltas := []int64{50, -30, 10, -100, 25}
	var sum int64
	for _, d := range deltas {
		if _, _, err := store.AddBalance("m1", d); err != nil {
			t.Fatalf("AddBalance(%d) error: %v", d, err)
		}
		sum += d
	}

	m, _, _ := store.GetByID("m1")
	if m.Cash != sum {
		t.Errorf("expected balance %d, got %d", sum, m.Cash)
	}
	if m.Cash >= 0 {
		t.Errorf("test should drive the balance negative, got %d", m.Cash)
	}
}

func TestTagOperationsAreIdempotent(t *testing.T) {
	store, _ := newTestStore(t)
	if _, err := store.Create(&models.Member{ID: "m1"}); err != nil {
		t.Fatalf("Create error: %v", err)
	}

	for i := 0; i < 2; i++ {
		ok, err := store.AddTag("m1", "role-1")
		if err != nil || !ok {
			t.Fatalf("AddTag round %d: ok=%v err=%v", i, ok, err)
		}
	}
	m, _, _ := store.GetByID("m1")
	if len(m.RoleTags) != 1 {
		t.Fatalf("expected 1 tag after double add, got %v", m.RoleTags)
	}

	for i := 0; i < 2; i++ {
		ok, err := store.RemoveTag("m1", "role-1")
		if err != nil || !ok {
			t.Fatalf("RemoveTag round %d: ok=%v err=%v", i, ok, err)
		}
	}
	m, _, _ = store.GetByID("m1")
	if len(m.RoleTags) != 0 {
		t.Fatalf("expected no tags after removal, got %v", m.RoleTags)
	}
}

func TestMutationsOnAbsentMemberSignalNotFound(t *testing.T) {
	store, _ := newTestStore(t)

	if _, ok, err := store.Update("ghost", models.MemberUpdate{}); ok || err != nil {
		t.Errorf("Update: ok=%v err=%v", ok, err)
	}
	if ok, err := store.SetBalance("ghost", 5); ok || err != nil {
		t.Errorf("SetBalance: ok=%v err=%v", ok, err)
	}
	if _, ok, err := store.AddBalance("ghost", 5); ok || err != nil {
		t.Errorf("AddBalance: ok=%v err=%v", ok, err)
	}
	if ok, err := store.AddTag("ghost", "t"); ok || err != nil {
		t.Errorf("AddTag: ok=%v err=%v", ok, err)
	}
	if ok, err := store.RemoveTag("ghost", "t"); ok || err != nil {
		t.Errorf("RemoveTag: ok=%v err=%v", ok, err)
	}
}

func TestUpdateRefreshesLastSeen(t *testing.T) {
	store, _ := newTestStore(t)

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return base }

	if _, err := store.Create(&models.Member{ID: "m1"}); err != nil {
		t.Fatalf("Create error: %v", err)
	}

	later := base.Add(time.Hour)
	store.now = func() time.Time { return later }

	name := "Alice"
	updated, ok, err := store.Update("m1", models.MemberUpdate{DisplayName: &name})
	if err != nil || !ok {
		t.Fatalf("Update: ok=%v err=%v", ok, err)
	}
	if !updated.LastSeen.Equal(later) {
		t.Errorf("expected last seen %v, got %v", later, updated.LastSeen)
	}
}

func TestUpsertIsIdempotent(t *testing.T) {
	store, _ := newTestStore(t)

	snapshot := []*models.Member{
		{ID: "m1", DisplayName: "Alice", Handle: "alice", Status: models.StatusOnline, Role: models.RoleAdmin},
		{ID: "m2", DisplayName: "Bob", Handle: "bob", Status: models.StatusOffline, Role: models.RoleMember},
	}

	apply := func() {
		for _, m := range snapshot {
			if err := store.Upsert(m); err != nil {
				t.Fatalf("Upsert error: %v", err)
			}
		}
	}

	apply()

	// Accumulate some local-only state between syncs
	if _, _, err := store.AddBalance("m1", 42); err != nil {
		t.Fatalf("AddBalance error: %v", err)
	}
	if _, err := store.AddTag("m2", "role-9"); err != nil {
		t.Fatalf("AddTag error: %v", err)
	}

	first, err := store.GetAll()
	if err != nil {
		t.Fatalf("GetAll error: %v", err)
	}

	apply()

	second, err := store.GetAll()
	if err != nil {
		t.Fatalf("GetAll error: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Errorf("second sync changed the store:\nbefore: %+v\nafter:  %+v", first, second)
	}
}

func TestStatsLazySingleton(t *testing.T) {
	store, _ := newTestStore(t)

	stats, err := store.Stats()
	if err != nil {
		t.Fatalf("Stats error: %v", err)
	}
	if stats.TotalMembers != 0 || stats.OnlineMembers != 0 || stats.ActiveToday != 0 || stats.RecentEvictions != 0 {
		t.Errorf("expected zero-valued singleton, got %+v", stats)
	}
}
