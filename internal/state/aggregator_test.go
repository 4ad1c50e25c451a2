package state

import (
	"testing"
	"time"

	"github.com/guildsync/backend/internal/models"
)

func TestAggregateCounts(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	members := []models.Member{
		{ID: "m1", Status: models.StatusOnline, LastSeen: now},
		{ID: "m2", Status: models.StatusIdle, LastSeen: now.Add(-time.Hour)},
		{ID: "m3", Status: models.StatusOffline, LastSeen: now.Add(-48 * time.Hour)},
	}
	entries := []models.ActionLogEntry{
		{MemberID: "m9", Action: models.ActionKick, CreatedAt: now.Add(-time.Minute)},
		{MemberID: "m8", Action: models.ActionBan, CreatedAt: now.Add(-30 * time.Hour)},
	}

	st := Aggregate(members, entries, now)

	if st.TotalMembers != 3 {
		t.Errorf("totalMembers = %d, want 3", st.TotalMembers)
	}
	if st.OnlineMembers != 1 {
		t.Errorf("onlineMembers = %d, want 1", st.OnlineMembers)
	}
	if st.ActiveToday != 2 {
		t.Errorf("activeToday = %d, want 2", st.ActiveToday)
	}
	if st.RecentEvictions != 1 {
		t.Errorf("recentEvictions = %d, want 1", st.RecentEvictions)
	}
	if !st.LastUpdated.Equal(now) {
		t.Errorf("lastUpdated = %v, want %v", st.LastUpdated, now)
	}
}

func TestActiveTodayBoundaryIsStrict(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	atBoundary := []models.Member{{ID: "m1", LastSeen: now.Add(-24 * time.Hour)}}
	if st := Aggregate(atBoundary, nil, now); st.ActiveToday != 0 {
		t.Errorf("member at exactly now-24h counted as active, activeToday = %d", st.ActiveToday)
	}

	justInside := []models.Member{{ID: "m1", LastSeen: now.Add(-24*time.Hour + time.Second)}}
	if st := Aggregate(justInside, nil, now); st.ActiveToday != 1 {
		t.Errorf("member one second inside window not counted, activeToday = %d", st.ActiveToday)
	}
}

func TestRecentEvictionBoundaryIsStrict(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	entries := []models.ActionLogEntry{
		{CreatedAt: now.Add(-24 * time.Hour)},
		{CreatedAt: now.Add(-24*time.Hour + time.Second)},
	}
	if st := Aggregate(nil, entries, now); st.RecentEvictions != 1 {
		t.Errorf("recentEvictions = %d, want 1", st.RecentEvictions)
	}
}
